package diagnostic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/walteh/tmplts/pkg/engine"
	"github.com/walteh/tmplts/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Severity uses the LSP numbering.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	}
	return "error"
}

const (
	// CodeBodyNotJSXOnly marks a template that holds more than imports and a
	// single JSX expression.
	CodeBodyNotJSXOnly = 9999

	SourceTemplate = "tmplts"
	SourceEngine   = "ts"

	bodyNotJSXOnlyMessage = "A template may only contain imports followed by a single JSX element or fragment."
)

// Diagnostic is a problem reported against a template, in template
// coordinates.
type Diagnostic struct {
	Range    position.Range `json:"range"`
	Code     int            `json:"code"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Source   string         `json:"source"`
}

// BodyNotJSXOnly is the whole-document diagnostic for an invalid template.
func BodyNotJSXOnly(doc *position.Document) Diagnostic {
	return Diagnostic{
		Range:    doc.Full(),
		Code:     CodeBodyNotJSXOnly,
		Message:  bodyNotJSXOnlyMessage,
		Severity: SeverityError,
		Source:   SourceTemplate,
	}
}

// SeverityFor maps an engine category onto an LSP severity.
func SeverityFor(c engine.Category) Severity {
	switch c {
	case engine.CategoryWarning:
		return SeverityWarning
	case engine.CategorySuggestion:
		return SeverityHint
	case engine.CategoryMessage:
		return SeverityInformation
	}
	return SeverityError
}

// Formatter formats diagnostics for one file into an output format.
type Formatter interface {
	Format(path string, diags []Diagnostic) ([]byte, error)
}

// TextFormatter prints one line per diagnostic, compiler style, with 1-based
// lines and columns.
type TextFormatter struct{}

func (TextFormatter) Format(path string, diags []Diagnostic) ([]byte, error) {
	var buf bytes.Buffer
	for _, d := range diags {
		fmt.Fprintf(&buf, "%s:%d:%d: %s TS%d: %s\n",
			path, d.Range.Start.Line+1, d.Range.Start.Character+1, d.Severity, d.Code, d.Message)
	}
	return buf.Bytes(), nil
}

// JSONFormatter emits {"path": ..., "diagnostics": [...]}.
type JSONFormatter struct{}

func (JSONFormatter) Format(path string, diags []Diagnostic) ([]byte, error) {
	if diags == nil {
		diags = []Diagnostic{}
	}
	data, err := json.Marshal(struct {
		Path        string       `json:"path"`
		Diagnostics []Diagnostic `json:"diagnostics"`
	}{path, diags})
	if err != nil {
		return nil, errors.Errorf("encoding diagnostics: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatterFor returns the formatter called name.
func FormatterFor(name string) (Formatter, error) {
	switch name {
	case "", "text":
		return TextFormatter{}, nil
	case "json":
		return JSONFormatter{}, nil
	}
	return nil, errors.Errorf("unknown diagnostic format %q", name)
}
