// Package synth builds the virtual TSX source for a template by splicing the
// template body into a reserved method of its companion class.
//
// Synthesis runs in two steps. BuildSkeleton edits the companion once, putting
// a placeholder return statement with two marker comments into the method.
// Render then replaces the marker window with the current template body. The
// skeleton only changes when the companion does, so edits to the template
// reuse it.
package synth

import (
	"context"
	"strings"

	"github.com/walteh/tmplts/pkg/mapping"
	"github.com/walteh/tmplts/pkg/tsx"
	"gitlab.com/tozd/go/errors"
)

const (
	StartMarker       = "/*__TC_START__*/"
	EndMarker         = "/*__TC_END__*/"
	DefaultMethodName = "template"
)

var (
	ErrCompanionParse = errors.Base("companion source has syntax errors")
	ErrClassNotFound  = errors.Base("class not found in companion source")
	ErrMarkersMissing = errors.Base("template markers missing from synthesized source")
)

// Placeholder is the statement the reserved method body is replaced with.
func Placeholder() string {
	return "return (<>" + StartMarker + EndMarker + "</>);"
}

// Skeleton is a companion source with the placeholder injected.
//
// The companion bytes [EditStart, EditOldEnd) were replaced by skeleton bytes
// [EditStart, EditNewEnd). The marker window [WindowStart, WindowEnd) lies
// inside the edit.
type Skeleton struct {
	Text        string
	SourceLen   int
	EditStart   int
	EditOldEnd  int
	EditNewEnd  int
	WindowStart int
	WindowEnd   int
}

// Result is one rendered virtual source.
type Result struct {
	Content    string
	Translator mapping.Translator
	Host       mapping.HostMap
}

// IndentFunc returns one indentation unit for the file at path.
type IndentFunc func(path string) string

type Synthesizer struct {
	methodName string
	indent     IndentFunc
}

// New returns a synthesizer injecting methodName. A nil indent uses
// EditorConfigIndent.
func New(methodName string, indent IndentFunc) *Synthesizer {
	if methodName == "" {
		methodName = DefaultMethodName
	}
	if indent == nil {
		indent = EditorConfigIndent
	}
	return &Synthesizer{methodName: methodName, indent: indent}
}

func (s *Synthesizer) MethodName() string {
	return s.methodName
}

// BuildSkeleton parses the companion source at path and injects the
// placeholder into className's reserved method, adding the method when the
// class has none.
func (s *Synthesizer) BuildSkeleton(ctx context.Context, path, src, className string) (*Skeleton, error) {
	tree, err := tsx.Parse(ctx, tsx.DialectForPath(path), []byte(src))
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	if tree.HasError() {
		off, _ := tree.FirstError()
		return nil, errors.Errorf("%w: %s at byte %d", ErrCompanionParse, path, off)
	}

	cls, ok := tree.FindClass(className)
	if !ok {
		return nil, errors.Errorf("%w: %s in %s", ErrClassNotFound, className, path)
	}

	unit := s.indent(path)

	var editStart, editOldEnd int
	var insert string

	m, found := tree.FindMethod(cls, s.methodName)
	switch {
	case found && m.Body != nil:
		base := lineIndent(src, int(m.Node.StartByte()))
		editStart, editOldEnd = int(m.Body.StartByte()), int(m.Body.EndByte())
		insert = "{\n" + base + unit + Placeholder() + "\n" + base + "}"
	case found:
		// an abstract or overload signature becomes the implementation
		base := lineIndent(src, int(m.Node.StartByte()))
		editStart, editOldEnd = int(m.Node.StartByte()), int(m.Node.EndByte())
		insert = s.methodName + "() {\n" + base + unit + Placeholder() + "\n" + base + "}"
	default:
		base := lineIndent(src, int(cls.Node.StartByte()))
		closing := int(cls.Body.EndByte()) - 1
		editStart = lastContent(src, int(cls.Body.StartByte())+1, closing)
		editOldEnd = closing
		member := base + unit
		insert = "\n" + member + s.methodName + "() {\n" +
			member + unit + Placeholder() + "\n" +
			member + "}\n" + base
	}

	text := src[:editStart] + insert + src[editOldEnd:]

	ws := strings.Index(text[editStart:], StartMarker)
	if ws < 0 {
		return nil, errors.Errorf("%w: start marker in %s", ErrMarkersMissing, path)
	}
	ws += editStart
	we := strings.Index(text[ws:], EndMarker)
	if we < 0 {
		return nil, errors.Errorf("%w: end marker in %s", ErrMarkersMissing, path)
	}
	we += ws + len(EndMarker)

	return &Skeleton{
		Text:        text,
		SourceLen:   len(src),
		EditStart:   editStart,
		EditOldEnd:  editOldEnd,
		EditNewEnd:  editStart + len(insert),
		WindowStart: ws,
		WindowEnd:   we,
	}, nil
}

// Render produces the virtual source for a template split into prelude and
// body. The prelude is prepended verbatim and the body replaces the marker
// window.
func (sk *Skeleton) Render(prelude, body string) Result {
	p := len(prelude)

	var b strings.Builder
	b.Grow(p + len(sk.Text) + len(body))
	b.WriteString(prelude)
	b.WriteString(sk.Text[:sk.WindowStart])
	b.WriteString(body)
	b.WriteString(sk.Text[sk.WindowEnd:])

	tr := mapping.NewTranslator()
	if p > 0 {
		tr.Import = mapping.NewRange(0, 0, p)
	}
	tr.Body = mapping.NewRange(p, p+sk.WindowStart, len(body))

	shift := len(body) - (sk.WindowEnd - sk.WindowStart)
	host := mapping.HostMap{
		Head: mapping.NewRange(0, p, sk.EditStart),
		Tail: mapping.NewRange(sk.EditOldEnd, p+sk.EditNewEnd+shift, sk.SourceLen-sk.EditOldEnd),
	}

	return Result{Content: b.String(), Translator: tr, Host: host}
}

// lineIndent returns the leading whitespace of the line holding offset.
func lineIndent(src string, offset int) string {
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[start:end]
}

// lastContent returns the offset just past the last non-space byte in
// src[from:to], or from when there is none.
func lastContent(src string, from, to int) int {
	for i := to; i > from; i-- {
		switch src[i-1] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return i
	}
	return from
}
