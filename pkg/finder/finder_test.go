package finder_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmplts/pkg/finder"
	"github.com/walteh/tmplts/pkg/virtual"
)

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/repo/app/Card.template":                     "<div/>",
		"/repo/app/card.ts":                           "export class Card {}",
		"/repo/app/Card.tc.template.virtual.tsx":      "export class Card {}",
		"/repo/app/list/List.template":                "<ul/>",
		"/repo/app/list/Row.template":                 "<li/>",
		"/repo/app/legacy/Old.template":               "<p/>",
		"/repo/node_modules/pkg/Vendored.template":    "<b/>",
		"/repo/app/list/fixtures/Broken.template.bak": "<",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func paths(infos []finder.FileInfo) []string {
	out := make([]string, 0, len(infos))
	for _, fi := range infos {
		out = append(out, fi.Path)
	}
	return out
}

func TestFindTemplates(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		exclude []string
		want    []string
		wantErr bool
	}{
		{
			name: "directory",
			path: "/repo",
			want: []string{
				"/repo/app/Card.template",
				"/repo/app/legacy/Old.template",
				"/repo/app/list/List.template",
				"/repo/app/list/Row.template",
			},
		},
		{
			name:    "directory with exclude",
			path:    "/repo/app",
			exclude: []string{"**/legacy/**", "Row.template"},
			want: []string{
				"/repo/app/Card.template",
				"/repo/app/list/List.template",
			},
		},
		{
			name: "single file",
			path: "/repo/app/Card.template",
			want: []string{"/repo/app/Card.template"},
		},
		{
			name: "pattern",
			path: "/repo/app/**/L*.template",
			want: []string{"/repo/app/list/List.template"},
		},
		{
			name:    "not a template",
			path:    "/repo/app/card.ts",
			wantErr: true,
		},
		{
			name:    "missing",
			path:    "/repo/nope",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := finder.NewDefaultFinder(newFs(t), virtual.DefaultNaming(), tt.exclude...)
			got, err := f.FindTemplates(context.Background(), tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(got))
			for _, fi := range got {
				assert.NotEmpty(t, fi.Content)
			}
		})
	}
}

func TestFindAllDeduplicates(t *testing.T) {
	f := finder.NewDefaultFinder(newFs(t), virtual.DefaultNaming())
	got, err := f.FindAll(context.Background(), []string{"/repo/app/list", "/repo/app/list/Row.template"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/app/list/List.template", "/repo/app/list/Row.template"}, paths(got))
}

func TestFindTemplatesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := finder.NewDefaultFinder(newFs(t), virtual.DefaultNaming())
	_, err := f.FindTemplates(ctx, "/repo")
	assert.ErrorIs(t, err, context.Canceled)
}
