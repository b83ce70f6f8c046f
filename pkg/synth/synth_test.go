package synth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmplts/pkg/diff"
	"github.com/walteh/tmplts/pkg/synth"
)

const wantSkeleton = "export class Card {\n  x = 1;\n  template() {\n    return (<>/*__TC_START__*//*__TC_END__*/</>);\n  }\n}\n"

func newSynth() *synth.Synthesizer {
	return synth.New("", synth.FixedIndent("  "))
}

func TestBuildSkeleton(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want string
	}{
		{
			name: "replaces existing method body",
			path: "card.tsx",
			src:  "export class Card {\n  x = 1;\n  template() {\n    return <div/>;\n  }\n}\n",
			want: wantSkeleton,
		},
		{
			name: "appends missing method",
			path: "card.ts",
			src:  "export class Card {\n  x = 1;\n}\n",
			want: wantSkeleton,
		},
		{
			name: "empty class",
			path: "card.ts",
			src:  "class Card {}",
			want: "class Card {\n  template() {\n    return (<>/*__TC_START__*//*__TC_END__*/</>);\n  }\n}",
		},
		{
			name: "keeps surrounding code",
			path: "card.tsx",
			src:  "import { a } from \"a\";\n\nclass Other {}\n\nexport class Card {\n  template() {}\n}\n\nconst z = 2;\n",
			want: "import { a } from \"a\";\n\nclass Other {}\n\nexport class Card {\n  template() {\n    return (<>/*__TC_START__*//*__TC_END__*/</>);\n  }\n}\n\nconst z = 2;\n",
		},
		{
			name: "abstract signature becomes the method",
			path: "card.ts",
			src:  "export abstract class Card {\n  x = 1;\n  abstract template(): unknown;\n}\n",
			want: "export abstract class Card {\n  x = 1;\n  template() {\n    return (<>/*__TC_START__*//*__TC_END__*/</>);\n  };\n}\n",
		},
		{
			name: "overload signature without implementation",
			path: "card.ts",
			src:  "export class Card {\n  x = 1;\n  template(): void;\n}\n",
			want: "export class Card {\n  x = 1;\n  template() {\n    return (<>/*__TC_START__*//*__TC_END__*/</>);\n  };\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sk, err := newSynth().BuildSkeleton(context.Background(), tt.path, tt.src, "Card")
			require.NoError(t, err)
			assert.Equal(t, tt.want, sk.Text)
			assert.Equal(t, synth.StartMarker+synth.EndMarker, sk.Text[sk.WindowStart:sk.WindowEnd])
			assert.Equal(t, tt.src[:sk.EditStart], sk.Text[:sk.EditStart])
			assert.Equal(t, tt.src[sk.EditOldEnd:], sk.Text[sk.EditNewEnd:])
		})
	}
}

func TestBuildSkeletonIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSynth()

	first, err := s.BuildSkeleton(ctx, "card.ts", "export class Card {\n  x = 1;\n}\n", "Card")
	require.NoError(t, err)

	second, err := s.BuildSkeleton(ctx, "card.ts", first.Text, "Card")
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestBuildSkeletonTabs(t *testing.T) {
	sk, err := synth.New("view", synth.FixedIndent("\t")).
		BuildSkeleton(context.Background(), "card.ts", "class Card {\n}\n", "Card")
	require.NoError(t, err)
	assert.Equal(t, "class Card {\n\tview() {\n\t\treturn (<>/*__TC_START__*//*__TC_END__*/</>);\n\t}\n}\n", sk.Text)
}

func TestBuildSkeletonErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newSynth().BuildSkeleton(ctx, "card.ts", "export class Card {\n  foo( {\n", "Card")
	assert.ErrorIs(t, err, synth.ErrCompanionParse)

	_, err = newSynth().BuildSkeleton(ctx, "card.ts", "export class Other {}\n", "Card")
	assert.ErrorIs(t, err, synth.ErrClassNotFound)
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	src := "export class Card {\n  x = 1;\n}\n"
	sk, err := newSynth().BuildSkeleton(ctx, "card.ts", src, "Card")
	require.NoError(t, err)

	prelude, body := "import a from 'a';\n", "<div>{this.x}</div>"
	res := sk.Render(prelude, body)

	want := prelude + strings.Replace(wantSkeleton, synth.StartMarker+synth.EndMarker, body, 1)
	if d := diff.Text(want, res.Content); d != "" {
		t.Fatalf("unexpected virtual source:%s", d)
	}
	assert.False(t, res.Translator.Overlaps())

	imp := res.Translator.Import
	assert.Equal(t, 0, imp.StartVirtual)
	assert.Equal(t, prelude, res.Content[imp.StartVirtual:imp.EndVirtual])

	b := res.Translator.Body
	assert.Equal(t, len(prelude), b.StartTemplate)
	assert.Equal(t, body, res.Content[b.StartVirtual:b.EndVirtual])

	// hover offset 6 in the body lands on `this`
	v, ok := res.Translator.ToVirtual(ctx, len(prelude)+6)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(res.Content[v:], "this.x"))

	// copied companion text maps back byte for byte
	p := len(prelude)
	for v := p; v < p+sk.EditStart; v++ {
		h, ok := res.Host.ToHost(v)
		require.True(t, ok)
		require.Equal(t, src[h], res.Content[v], "head offset %d", v)
	}
	for v := len(res.Content) - (len(src) - sk.EditOldEnd); v < len(res.Content); v++ {
		h, ok := res.Host.ToHost(v)
		require.True(t, ok)
		require.Equal(t, src[h], res.Content[v], "tail offset %d", v)
	}

	_, ok = res.Host.ToHost(v)
	assert.False(t, ok, "body text is not companion text")
}

func TestRenderWithoutPrelude(t *testing.T) {
	sk, err := newSynth().BuildSkeleton(context.Background(), "card.ts", "class Card {}", "Card")
	require.NoError(t, err)

	res := sk.Render("", "<span/>")
	assert.False(t, res.Translator.Import.IsValid())
	assert.Equal(t, 0, res.Translator.Body.StartTemplate)
	assert.Equal(t, "<span/>", res.Content[res.Translator.Body.StartVirtual:res.Translator.Body.EndVirtual])
}
