package tsserver

import (
	"encoding/json"
)

// command names understood by tsserver
const (
	CommandUpdateOpen                 = "updateOpen"
	CommandCompletionInfo             = "completionInfo"
	CommandQuickInfo                  = "quickinfo"
	CommandDefinition                 = "definition"
	CommandSemanticDiagnosticsSync    = "semanticDiagnosticsSync"
	CommandSyntacticDiagnosticsSync   = "syntacticDiagnosticsSync"
	CommandGetCodeFixes               = "getCodeFixes"
	CommandConfigure                  = "configure"
	CommandCompilerOptionsForInferred = "compilerOptionsForInferredProjects"
	CommandExit                       = "exit"
)

// quick info returns this message instead of an empty body
const noContentMessage = "No content available."

type request struct {
	Seq       int    `json:"seq"`
	Type      string `json:"type"`
	Command   string `json:"command"`
	Arguments any    `json:"arguments,omitempty"`
}

// message is any frame tsserver writes: a response or an event.
type message struct {
	Seq        int             `json:"seq"`
	Type       string          `json:"type"`
	Event      string          `json:"event,omitempty"`
	RequestSeq int             `json:"request_seq"`
	Command    string          `json:"command"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Location is a 1-based line and 1-based UTF-16 column.
type Location struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

type TextSpan struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

type FileLocationArgs struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
}

type FileArgs struct {
	File string `json:"file"`
}

type OpenRequestArgs struct {
	File            string `json:"file"`
	FileContent     string `json:"fileContent"`
	ScriptKindName  string `json:"scriptKindName,omitempty"`
	ProjectRootPath string `json:"projectRootPath,omitempty"`
}

type CodeEdit struct {
	Start   Location `json:"start"`
	End     Location `json:"end"`
	NewText string   `json:"newText"`
}

type FileCodeEdits struct {
	FileName    string     `json:"fileName"`
	TextChanges []CodeEdit `json:"textChanges"`
}

type UpdateOpenArgs struct {
	OpenFiles    []OpenRequestArgs `json:"openFiles,omitempty"`
	ChangedFiles []FileCodeEdits   `json:"changedFiles,omitempty"`
	ClosedFiles  []string          `json:"closedFiles,omitempty"`
}

type CompletionsArgs struct {
	FileLocationArgs
	TriggerCharacter             string `json:"triggerCharacter,omitempty"`
	IncludeExternalModuleExports bool   `json:"includeExternalModuleExports"`
	IncludeInsertTextCompletions bool   `json:"includeInsertTextCompletions"`
}

type CompletionEntry struct {
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	KindModifiers string    `json:"kindModifiers,omitempty"`
	SortText      string    `json:"sortText"`
	InsertText    string    `json:"insertText,omitempty"`
	ReplaceSpan   *TextSpan `json:"replacementSpan,omitempty"`
}

type CompletionInfo struct {
	IsGlobalCompletion      bool              `json:"isGlobalCompletion"`
	IsMemberCompletion      bool              `json:"isMemberCompletion"`
	IsNewIdentifierLocation bool              `json:"isNewIdentifierLocation"`
	Entries                 []CompletionEntry `json:"entries"`
}

type SymbolDisplayPart struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

type QuickInfoBody struct {
	Kind          string   `json:"kind"`
	KindModifiers string   `json:"kindModifiers"`
	Start         Location `json:"start"`
	End           Location `json:"end"`
	DisplayString string   `json:"displayString"`
	// Documentation is a plain string or a list of display parts depending on
	// the tsserver version.
	Documentation json.RawMessage `json:"documentation"`
}

type FileSpan struct {
	File  string   `json:"file"`
	Start Location `json:"start"`
	End   Location `json:"end"`
}

type Diagnostic struct {
	Start    Location `json:"start"`
	End      Location `json:"end"`
	Text     string   `json:"text"`
	Code     int      `json:"code"`
	Category string   `json:"category"`
	Source   string   `json:"source,omitempty"`
}

type DiagnosticsSyncArgs struct {
	File                string `json:"file"`
	IncludeLinePosition bool   `json:"includeLinePosition"`
}

type CodeFixArgs struct {
	File        string `json:"file"`
	StartLine   int    `json:"startLine"`
	StartOffset int    `json:"startOffset"`
	EndLine     int    `json:"endLine"`
	EndOffset   int    `json:"endOffset"`
	ErrorCodes  []int  `json:"errorCodes"`
}

type CodeFixAction struct {
	FixName     string          `json:"fixName"`
	Description string          `json:"description"`
	Changes     []FileCodeEdits `json:"changes"`
}

type CompilerOptions struct {
	JSX                        string `json:"jsx,omitempty"`
	AllowJS                    bool   `json:"allowJs,omitempty"`
	AllowNonTSExtensions       bool   `json:"allowNonTsExtensions,omitempty"`
	ExperimentalDecorators     bool   `json:"experimentalDecorators,omitempty"`
	Strict                     bool   `json:"strict,omitempty"`
	Target                     string `json:"target,omitempty"`
	Module                     string `json:"module,omitempty"`
	ModuleResolution           string `json:"moduleResolution,omitempty"`
	JSXImportSource            string `json:"jsxImportSource,omitempty"`
	UseDefineForClassFields    bool   `json:"useDefineForClassFields,omitempty"`
	SkipLibCheck               bool   `json:"skipLibCheck,omitempty"`
	EsModuleInterop            bool   `json:"esModuleInterop,omitempty"`
	ForceConsistentCasingNames bool   `json:"forceConsistentCasingInFileNames,omitempty"`
}

type SetCompilerOptionsArgs struct {
	Options CompilerOptions `json:"options"`
}

// DefaultCompilerOptions are used for virtual files outside any tsconfig
// project.
func DefaultCompilerOptions() CompilerOptions {
	return CompilerOptions{
		JSX:                    "preserve",
		AllowJS:                true,
		AllowNonTSExtensions:   true,
		ExperimentalDecorators: true,
		Target:                 "ES2020",
		Module:                 "ESNext",
		ModuleResolution:       "Node",
		SkipLibCheck:           true,
		EsModuleInterop:        true,
	}
}
