package tsx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmplts/pkg/tsx"
)

const companion = `import { Component } from "typecomposer";

// plain helper
class Helper {}

export class Card extends Component {
	title = "x";

	template() {
		return <div />;
	}

	render() {}
}

export abstract class Base {}
`

func TestFindClass(t *testing.T) {
	ctx := context.Background()
	tree, err := tsx.Parse(ctx, tsx.TSX, []byte(companion))
	require.NoError(t, err)
	defer tree.Close()

	require.False(t, tree.HasError())

	card, ok := tree.FindClass("Card")
	require.True(t, ok)
	assert.Equal(t, "Card", card.Name)
	assert.Equal(t, tsx.KindClassBody, card.Body.Kind())

	base, ok := tree.FindClass("Base")
	require.True(t, ok)
	assert.Equal(t, tsx.KindAbstractClass, base.Node.Kind())

	_, ok = tree.FindClass("Missing")
	assert.False(t, ok)
}

func TestVisitClassesShortCircuits(t *testing.T) {
	tree, err := tsx.Parse(context.Background(), tsx.TSX, []byte(companion))
	require.NoError(t, err)
	defer tree.Close()

	var seen []string
	tree.VisitClasses(func(c tsx.Class) bool {
		seen = append(seen, c.Name)
		return c.Name != "Card"
	})
	assert.Equal(t, []string{"Helper", "Card"}, seen)
}

func TestFindMethod(t *testing.T) {
	tree, err := tsx.Parse(context.Background(), tsx.TSX, []byte(companion))
	require.NoError(t, err)
	defer tree.Close()

	card, ok := tree.FindClass("Card")
	require.True(t, ok)

	m, ok := tree.FindMethod(card, "template")
	require.True(t, ok)
	require.NotNil(t, m.Body)
	assert.Equal(t, tsx.KindStatementBlock, m.Body.Kind())
	assert.Contains(t, tree.Text(m.Body), "return <div />;")

	_, ok = tree.FindMethod(card, "title")
	assert.False(t, ok)
}

func TestFindMethodSignatures(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantBody bool
		wantKind string
	}{
		{
			name:     "abstract signature",
			src:      "abstract class Card {\n  abstract template(): unknown;\n}\n",
			wantKind: tsx.KindAbstractMethodSignature,
		},
		{
			name:     "overload signature only",
			src:      "class Card {\n  template(): void;\n}\n",
			wantKind: tsx.KindMethodSignature,
		},
		{
			name:     "implementation wins over overload",
			src:      "class Card {\n  template(): void;\n  template() {}\n}\n",
			wantBody: true,
			wantKind: tsx.KindMethodDefinition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := tsx.Parse(context.Background(), tsx.TypeScript, []byte(tt.src))
			require.NoError(t, err)
			defer tree.Close()

			card, ok := tree.FindClass("Card")
			require.True(t, ok)

			m, ok := tree.FindMethod(card, "template")
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, m.Node.Kind())
			assert.Equal(t, tt.wantBody, m.Body != nil)
		})
	}
}

func TestFirstError(t *testing.T) {
	tree, err := tsx.Parse(context.Background(), tsx.TSX, []byte("class A {\n  foo( {\n}\n"))
	require.NoError(t, err)
	defer tree.Close()

	assert.True(t, tree.HasError())
	_, ok := tree.FirstError()
	assert.True(t, ok)
}

func TestDialectForPath(t *testing.T) {
	assert.Equal(t, tsx.TypeScript, tsx.DialectForPath("/a/b/card.ts"))
	assert.Equal(t, tsx.TSX, tsx.DialectForPath("/a/b/card.tsx"))
	assert.Equal(t, tsx.TSX, tsx.DialectForPath("card.template"))
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tsx.Parse(ctx, tsx.TSX, []byte("<div/>"))
	assert.ErrorIs(t, err, context.Canceled)
}
