// Package engine describes the TypeScript analysis engine the virtual files
// are fed to. All offsets are byte offsets into the file named by the call.
package engine

import (
	"context"
)

// Span is a byte range [Start, Start+Length) in one file.
type Span struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

func (s Span) End() int {
	return s.Start + s.Length
}

type CompletionEntry struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	KindModifiers string `json:"kind_modifiers,omitempty"`
	SortText      string `json:"sort_text,omitempty"`
	InsertText    string `json:"insert_text,omitempty"`
	// Replacement is the span the entry replaces, when the engine gives one.
	Replacement *Span `json:"replacement,omitempty"`
}

type CompletionOptions struct {
	TriggerCharacter string
}

type QuickInfo struct {
	Kind          string `json:"kind"`
	Display       string `json:"display"`
	Documentation string `json:"documentation,omitempty"`
	Span          Span   `json:"span"`
}

type DefinitionInfo struct {
	FileName string `json:"file_name"`
	Span     Span   `json:"span"`
	Name     string `json:"name,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

type Category int

const (
	CategoryWarning Category = iota
	CategoryError
	CategorySuggestion
	CategoryMessage
)

// ParseCategory maps the engine's category names.
func ParseCategory(s string) Category {
	switch s {
	case "warning":
		return CategoryWarning
	case "suggestion":
		return CategorySuggestion
	case "message":
		return CategoryMessage
	}
	return CategoryError
}

func (c Category) String() string {
	switch c {
	case CategoryWarning:
		return "warning"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	}
	return "error"
}

type Diagnostic struct {
	Span     Span     `json:"span"`
	Code     int      `json:"code"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
	Source   string   `json:"source,omitempty"`
}

type TextChange struct {
	Span    Span   `json:"span"`
	NewText string `json:"new_text"`
}

type FileTextChanges struct {
	FileName    string       `json:"file_name"`
	TextChanges []TextChange `json:"text_changes"`
}

type CodeFixAction struct {
	FixName     string            `json:"fix_name"`
	Description string            `json:"description"`
	Changes     []FileTextChanges `json:"changes"`
}

// Engine is a TypeScript language service. UpdateFile must be called with the
// current content of a file before it is queried.
type Engine interface {
	UpdateFile(ctx context.Context, fileName, content string) error
	CloseFile(ctx context.Context, fileName string) error

	Completions(ctx context.Context, fileName string, offset int, opts CompletionOptions) ([]CompletionEntry, error)
	QuickInfo(ctx context.Context, fileName string, offset int) (*QuickInfo, error)
	Definitions(ctx context.Context, fileName string, offset int) ([]DefinitionInfo, error)
	SemanticDiagnostics(ctx context.Context, fileName string) ([]Diagnostic, error)
	SyntacticDiagnostics(ctx context.Context, fileName string) ([]Diagnostic, error)
	CodeFixes(ctx context.Context, fileName string, span Span, errorCodes []int) ([]CodeFixAction, error)
}
