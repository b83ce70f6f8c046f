package tsx

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// node kinds from the tree-sitter-typescript grammars
const (
	KindComment                 = "comment"
	KindImportStatement         = "import_statement"
	KindExportStatement         = "export_statement"
	KindClassDeclaration        = "class_declaration"
	KindAbstractClass           = "abstract_class_declaration"
	KindClassBody               = "class_body"
	KindMethodDefinition        = "method_definition"
	KindMethodSignature         = "method_signature"
	KindAbstractMethodSignature = "abstract_method_signature"
	KindStatementBlock          = "statement_block"
	KindExpressionStatement     = "expression_statement"
	KindParenthesizedExpression = "parenthesized_expression"
	KindJSXElement              = "jsx_element"
	KindJSXSelfClosingElement   = "jsx_self_closing_element"
)

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() == KindComment {
			continue
		}
		out = append(out, child)
	}
	return out
}

// Class is a class declaration found in a tree.
type Class struct {
	Node *sitter.Node
	Name string
	Body *sitter.Node
}

// Method is a method inside a class body. Body is nil for overload and
// abstract signatures.
type Method struct {
	Node *sitter.Node
	Name string
	Body *sitter.Node
}

// ClassVisitor is called for every top-level class declaration. Returning
// false stops the traversal.
type ClassVisitor func(Class) bool

// VisitClasses calls visit for each top-level class declaration, including
// exported ones, in source order.
func (t *Tree) VisitClasses(visit ClassVisitor) {
	for _, stmt := range NamedChildren(t.Root()) {
		decl := stmt
		if stmt.Kind() == KindExportStatement {
			decl = stmt.ChildByFieldName("declaration")
			if decl == nil {
				continue
			}
		}
		if decl.Kind() != KindClassDeclaration && decl.Kind() != KindAbstractClass {
			continue
		}
		cls := Class{
			Node: decl,
			Name: t.Text(decl.ChildByFieldName("name")),
			Body: decl.ChildByFieldName("body"),
		}
		if !visit(cls) {
			return
		}
	}
}

// FindClass returns the first top-level class called name.
func (t *Tree) FindClass(name string) (Class, bool) {
	var (
		found Class
		ok    bool
	)
	t.VisitClasses(func(c Class) bool {
		if c.Name == name && c.Body != nil && c.Body.Kind() == KindClassBody {
			found, ok = c, true
			return false
		}
		return true
	})
	return found, ok
}

// FindMethod returns the first method of c called name that has a body, or
// failing that its first bodiless signature.
func (t *Tree) FindMethod(c Class, name string) (Method, bool) {
	var (
		signature Method
		found     bool
	)
	for _, member := range NamedChildren(c.Body) {
		switch member.Kind() {
		case KindMethodDefinition, KindMethodSignature, KindAbstractMethodSignature:
		default:
			continue
		}
		if t.Text(member.ChildByFieldName("name")) != name {
			continue
		}
		body := member.ChildByFieldName("body")
		if body != nil && body.Kind() == KindStatementBlock {
			return Method{Node: member, Name: name, Body: body}, true
		}
		if !found {
			signature, found = Method{Node: member, Name: name}, true
		}
	}
	return signature, found
}
