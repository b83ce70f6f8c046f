package template

import (
	"context"

	"github.com/rs/zerolog"
	sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/walteh/tmplts/pkg/tsx"
)

// IsBodyOnlyValid reports whether text consists of leading import statements
// followed by at most one JSX element or fragment expression. Comments are
// allowed anywhere. Empty text is body only.
func IsBodyOnlyValid(ctx context.Context, text string) bool {
	tree, err := tsx.Parse(ctx, tsx.TSX, []byte(text))
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("parsing template body")
		return false
	}
	defer tree.Close()

	if tree.HasError() {
		if off, ok := tree.FirstError(); ok {
			zerolog.Ctx(ctx).Debug().Int("offset", off).Msg("template has syntax errors")
		}
		return false
	}

	stmts := tsx.NamedChildren(tree.Root())
	for len(stmts) > 0 && stmts[0].Kind() == tsx.KindImportStatement {
		stmts = stmts[1:]
	}

	switch len(stmts) {
	case 0:
		return true
	case 1:
		return isJSXStatement(stmts[0])
	default:
		return false
	}
}

func isJSXStatement(n *sitter.Node) bool {
	if n.Kind() != tsx.KindExpressionStatement {
		return false
	}
	expr := firstNamed(n)
	for expr != nil && expr.Kind() == tsx.KindParenthesizedExpression {
		expr = firstNamed(expr)
	}
	if expr == nil {
		return false
	}
	switch expr.Kind() {
	case tsx.KindJSXElement, tsx.KindJSXSelfClosingElement:
		return true
	}
	return false
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := tsx.NamedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}
