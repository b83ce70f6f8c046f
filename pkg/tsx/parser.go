// Package tsx wraps tree-sitter's TypeScript and TSX grammars with the few
// syntax queries the virtual source pipeline needs.
package tsx

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"gitlab.com/tozd/go/errors"
)

// Dialect selects the grammar. Plain .ts files must not use the TSX grammar,
// since `<T>expr` type assertions are JSX there.
type Dialect int

const (
	TSX Dialect = iota
	TypeScript
)

func (d Dialect) String() string {
	if d == TypeScript {
		return "typescript"
	}
	return "tsx"
}

// DialectForPath picks the grammar from a file extension, defaulting to TSX.
func DialectForPath(path string) Dialect {
	if strings.EqualFold(filepath.Ext(path), ".ts") {
		return TypeScript
	}
	return TSX
}

func language(d Dialect) *sitter.Language {
	if d == TypeScript {
		return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	}
	return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
}

// Parser wraps a tree-sitter parser configured for one dialect.
type Parser struct {
	inner *sitter.Parser
}

func NewParser(d Dialect) (*Parser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(language(d)); err != nil {
		p.Close()
		return nil, errors.Errorf("setting %s language: %w", d, err)
	}
	return &Parser{inner: p}, nil
}

func (p *Parser) Close() {
	if p == nil || p.inner == nil {
		return
	}
	p.inner.Close()
	p.inner = nil
}

// Parse parses src. The returned tree keeps a reference to src.
func (p *Parser) Parse(ctx context.Context, src []byte) (*Tree, error) {
	if p == nil || p.inner == nil {
		return nil, errors.New("nil parser")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := p.inner.ParseWithOptions(func(i int, _ sitter.Point) []byte {
		if i >= len(src) {
			return nil
		}
		return src[i:]
	}, nil, &sitter.ParseOptions{
		ProgressCallback: func(_ sitter.ParseState) bool {
			return ctx.Err() != nil
		},
	})
	if err := ctx.Err(); err != nil {
		if raw != nil {
			raw.Close()
		}
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("tree-sitter parse returned nil tree")
	}
	return &Tree{inner: raw, src: src}, nil
}

// Parse is a one-shot helper that creates and releases a parser.
func Parse(ctx context.Context, d Dialect, src []byte) (*Tree, error) {
	p, err := NewParser(d)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Parse(ctx, src)
}

// Tree wraps a parsed tree-sitter tree together with its source.
type Tree struct {
	inner *sitter.Tree
	src   []byte
}

func (t *Tree) Close() {
	if t == nil || t.inner == nil {
		return
	}
	t.inner.Close()
	t.inner = nil
}

func (t *Tree) Root() *sitter.Node {
	if t == nil || t.inner == nil {
		return nil
	}
	return t.inner.RootNode()
}

// HasError reports whether the tree contains error or missing nodes.
func (t *Tree) HasError() bool {
	root := t.Root()
	return root == nil || root.HasError()
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(t.src)
}

// FirstError returns the byte offset of the first error or missing node.
func (t *Tree) FirstError() (int, bool) {
	return firstError(t.Root())
}

func firstError(n *sitter.Node) (int, bool) {
	if n == nil || !(n.HasError() || n.IsMissing()) {
		return -1, false
	}
	if n.IsError() || n.IsMissing() {
		return int(n.StartByte()), true
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if off, ok := firstError(n.Child(i)); ok {
			return off, true
		}
	}
	return int(n.StartByte()), true
}
