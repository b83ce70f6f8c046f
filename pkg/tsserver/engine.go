package tsserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/walteh/tmplts/pkg/engine"
	"github.com/walteh/tmplts/pkg/position"
	"gitlab.com/tozd/go/errors"
)

var _ engine.Engine = (*Client)(nil)

func (c *Client) UpdateFile(ctx context.Context, fileName, content string) error {
	c.mu.Lock()
	prev, open := c.docs[fileName]
	c.mu.Unlock()

	if open && prev.Text() == content {
		return nil
	}

	var args UpdateOpenArgs
	if open {
		args.ChangedFiles = []FileCodeEdits{{
			FileName: fileName,
			TextChanges: []CodeEdit{{
				Start:   Location{Line: 1, Offset: 1},
				End:     toLocation(prev, prev.Len()),
				NewText: content,
			}},
		}}
	} else {
		args.OpenFiles = []OpenRequestArgs{{
			File:           fileName,
			FileContent:    content,
			ScriptKindName: "TSX",
		}}
	}

	if err := c.Call(ctx, CommandUpdateOpen, args, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.docs[fileName] = position.NewDocument(position.PathToURI(fileName), 0, content)
	c.mu.Unlock()
	return nil
}

func (c *Client) CloseFile(ctx context.Context, fileName string) error {
	c.mu.Lock()
	_, open := c.docs[fileName]
	delete(c.docs, fileName)
	c.mu.Unlock()

	if !open {
		return nil
	}
	return c.Call(ctx, CommandUpdateOpen, UpdateOpenArgs{ClosedFiles: []string{fileName}}, nil)
}

func (c *Client) locationArgs(fileName string, offset int) (*position.Document, FileLocationArgs, error) {
	doc, err := c.document(fileName)
	if err != nil {
		return nil, FileLocationArgs{}, err
	}
	loc := toLocation(doc, offset)
	return doc, FileLocationArgs{File: fileName, Line: loc.Line, Offset: loc.Offset}, nil
}

func (c *Client) Completions(ctx context.Context, fileName string, offset int, opts engine.CompletionOptions) ([]engine.CompletionEntry, error) {
	doc, loc, err := c.locationArgs(fileName, offset)
	if err != nil {
		return nil, err
	}

	var info CompletionInfo
	err = c.Call(ctx, CommandCompletionInfo, CompletionsArgs{
		FileLocationArgs:             loc,
		TriggerCharacter:             opts.TriggerCharacter,
		IncludeExternalModuleExports: false,
		IncludeInsertTextCompletions: true,
	}, &info)
	if err != nil {
		return nil, err
	}

	out := make([]engine.CompletionEntry, 0, len(info.Entries))
	for _, e := range info.Entries {
		entry := engine.CompletionEntry{
			Name:          e.Name,
			Kind:          e.Kind,
			KindModifiers: e.KindModifiers,
			SortText:      e.SortText,
			InsertText:    e.InsertText,
		}
		if e.ReplaceSpan != nil {
			s := spanOf(doc, e.ReplaceSpan.Start, e.ReplaceSpan.End)
			entry.Replacement = &s
		}
		out = append(out, entry)
	}
	return out, nil
}

func (c *Client) QuickInfo(ctx context.Context, fileName string, offset int) (*engine.QuickInfo, error) {
	doc, loc, err := c.locationArgs(fileName, offset)
	if err != nil {
		return nil, err
	}

	var body QuickInfoBody
	if err := c.Call(ctx, CommandQuickInfo, loc, &body); err != nil {
		if errors.Is(err, ErrRequestFailed) && strings.Contains(err.Error(), noContentMessage) {
			return nil, nil
		}
		return nil, err
	}
	if body.DisplayString == "" && body.Kind == "" {
		return nil, nil
	}

	return &engine.QuickInfo{
		Kind:          body.Kind,
		Display:       body.DisplayString,
		Documentation: documentationText(body.Documentation),
		Span:          spanOf(doc, body.Start, body.End),
	}, nil
}

func documentationText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []SymbolDisplayPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (c *Client) Definitions(ctx context.Context, fileName string, offset int) ([]engine.DefinitionInfo, error) {
	_, loc, err := c.locationArgs(fileName, offset)
	if err != nil {
		return nil, err
	}

	var spans []FileSpan
	if err := c.Call(ctx, CommandDefinition, loc, &spans); err != nil {
		return nil, err
	}

	out := make([]engine.DefinitionInfo, 0, len(spans))
	for _, s := range spans {
		doc, err := c.document(s.File)
		if err != nil {
			return nil, err
		}
		out = append(out, engine.DefinitionInfo{
			FileName: s.File,
			Span:     spanOf(doc, s.Start, s.End),
		})
	}
	return out, nil
}

func (c *Client) SemanticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	return c.diagnostics(ctx, CommandSemanticDiagnosticsSync, fileName)
}

func (c *Client) SyntacticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	return c.diagnostics(ctx, CommandSyntacticDiagnosticsSync, fileName)
}

func (c *Client) diagnostics(ctx context.Context, command, fileName string) ([]engine.Diagnostic, error) {
	doc, err := c.document(fileName)
	if err != nil {
		return nil, err
	}

	var diags []Diagnostic
	if err := c.Call(ctx, command, DiagnosticsSyncArgs{File: fileName}, &diags); err != nil {
		return nil, err
	}

	out := make([]engine.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, engine.Diagnostic{
			Span:     spanOf(doc, d.Start, d.End),
			Code:     d.Code,
			Message:  d.Text,
			Category: engine.ParseCategory(d.Category),
			Source:   d.Source,
		})
	}
	return out, nil
}

func (c *Client) CodeFixes(ctx context.Context, fileName string, span engine.Span, errorCodes []int) ([]engine.CodeFixAction, error) {
	doc, err := c.document(fileName)
	if err != nil {
		return nil, err
	}
	start, end := toLocation(doc, span.Start), toLocation(doc, span.End())

	var actions []CodeFixAction
	err = c.Call(ctx, CommandGetCodeFixes, CodeFixArgs{
		File:        fileName,
		StartLine:   start.Line,
		StartOffset: start.Offset,
		EndLine:     end.Line,
		EndOffset:   end.Offset,
		ErrorCodes:  errorCodes,
	}, &actions)
	if err != nil {
		return nil, err
	}

	out := make([]engine.CodeFixAction, 0, len(actions))
	for _, a := range actions {
		fix := engine.CodeFixAction{FixName: a.FixName, Description: a.Description}
		for _, fc := range a.Changes {
			target, err := c.document(fc.FileName)
			if err != nil {
				// new files created by the fix have no text yet
				target = position.NewDocument(position.PathToURI(fc.FileName), 0, "")
			}
			changes := engine.FileTextChanges{FileName: fc.FileName}
			for _, tc := range fc.TextChanges {
				changes.TextChanges = append(changes.TextChanges, engine.TextChange{
					Span:    spanOf(target, tc.Start, tc.End),
					NewText: tc.NewText,
				})
			}
			fix.Changes = append(fix.Changes, changes)
		}
		out = append(out, fix)
	}
	return out, nil
}

func spanOf(doc *position.Document, start, end Location) engine.Span {
	s, e := toOffset(doc, start), toOffset(doc, end)
	if e < s {
		e = s
	}
	return engine.Span{Start: s, Length: e - s}
}
