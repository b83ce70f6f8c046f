package host_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmplts/pkg/host"
	"github.com/walteh/tmplts/pkg/synth"
)

type countingFs struct {
	afero.Fs
	opens int
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens++
	return c.Fs.Open(name)
}

func newLocator(fs afero.Fs) *host.Locator {
	return host.NewLocator(fs, synth.New("", synth.FixedIndent("  ")),
		host.WithVirtualSuffix(".tc.template.virtual.tsx"),
		host.WithExclude("*.d.ts"),
	)
}

func writeFile(t *testing.T, fs afero.Fs, path, text string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(text), 0o644))
}

func TestLocateFindsFirstMatch(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/app/a.card.tc.template.virtual.tsx", "export class Card {}\n")
	writeFile(t, fs, "/app/b.ts", "export class Other {}\n")
	writeFile(t, fs, "/app/c.d.ts", "export declare class Card {}\n")
	writeFile(t, fs, "/app/card.ts", "export class Card {}\n")
	writeFile(t, fs, "/app/notes.md", "class Card {}\n")
	writeFile(t, fs, "/app/z.tsx", "export class Card {}\n")

	src, reused, err := newLocator(fs).Locate(ctx, "/app", "Card", nil)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, "/app/card.ts", src.Path)
	assert.Equal(t, "export class Card {}\n", src.Text)
	require.NotNil(t, src.Skeleton)
	assert.Contains(t, src.Skeleton.Text, synth.StartMarker)
}

func TestLocateSkipsBrokenCandidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/app/a.ts", "export class Card {\n  broken( {\n")
	writeFile(t, fs, "/app/b.ts", "export class Card {}\n")

	src, _, err := newLocator(fs).Locate(context.Background(), "/app", "Card", nil)
	require.NoError(t, err)
	assert.Equal(t, "/app/b.ts", src.Path)
}

func TestLocateNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/app/b.ts", "export class Other {}\n")

	_, _, err := newLocator(fs).Locate(context.Background(), "/app", "Card", nil)
	assert.ErrorIs(t, err, host.ErrHostClassNotFound)

	_, _, err = newLocator(fs).Locate(context.Background(), "/missing", "Card", nil)
	assert.ErrorIs(t, err, host.ErrHostClassNotFound)
}

func TestLocateReusesFreshCache(t *testing.T) {
	ctx := context.Background()
	fs := &countingFs{Fs: afero.NewMemMapFs()}
	writeFile(t, fs, "/app/card.ts", "export class Card {}\n")

	loc := newLocator(fs)
	first, _, err := loc.Locate(ctx, "/app", "Card", nil)
	require.NoError(t, err)

	opens := fs.opens
	second, reused, err := loc.Locate(ctx, "/app", "Card", first)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, first, second)
	assert.Equal(t, opens, fs.opens, "fresh cache must not read the file")
}

func TestLocateRereadsStaleCache(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/app/card.ts", "export class Card {}\n")

	loc := newLocator(fs)
	first, _, err := loc.Locate(ctx, "/app", "Card", nil)
	require.NoError(t, err)

	writeFile(t, fs, "/app/card.ts", "export class Card {\n  y = 2;\n}\n")
	later := first.ModTime.Add(time.Second)
	require.NoError(t, fs.Chtimes("/app/card.ts", later, later))

	second, reused, err := loc.Locate(ctx, "/app", "Card", first)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Contains(t, second.Text, "y = 2;")
	assert.True(t, second.ModTime.Equal(later))
}

func TestLocateMovedClass(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/app/a.ts", "export class Card {}\n")

	loc := newLocator(fs)
	first, _, err := loc.Locate(ctx, "/app", "Card", nil)
	require.NoError(t, err)

	writeFile(t, fs, "/app/a.ts", "export class Other {}\n")
	later := first.ModTime.Add(time.Second)
	require.NoError(t, fs.Chtimes("/app/a.ts", later, later))
	writeFile(t, fs, "/app/b.ts", "export class Card {}\n")

	second, _, err := loc.Locate(ctx, "/app", "Card", first)
	require.NoError(t, err)
	assert.Equal(t, "/app/b.ts", second.Path)
}

func TestIsCandidate(t *testing.T) {
	loc := newLocator(afero.NewMemMapFs())
	assert.True(t, loc.IsCandidate("card.ts"))
	assert.True(t, loc.IsCandidate("/x/card.tsx"))
	assert.False(t, loc.IsCandidate("card.d.ts"))
	assert.False(t, loc.IsCandidate("card.tc.template.virtual.tsx"))
	assert.False(t, loc.IsCandidate("card.template"))
}

func TestModTimePolicy(t *testing.T) {
	now := time.Now()
	var p host.ModTimePolicy
	assert.False(t, p.IsStale(now, now))
	assert.True(t, p.IsStale(now, now.Add(time.Millisecond)))
}
