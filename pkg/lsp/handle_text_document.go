package lsp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/walteh/tmplts/pkg/position"
	"github.com/walteh/tmplts/pkg/service"
)

// isTemplate filters out documents the client opens that are not templates,
// such as companion sources sharing the language id.
func (s *Server) isTemplate(uri string) bool {
	return s.service.Registry().Naming().IsTemplate(position.URIToPath(uri))
}

// sync resynthesizes doc and publishes its diagnostics. Synthesis problems
// degrade the document; they are not returned to the client.
func (s *Server) sync(ctx context.Context, doc *position.Document) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if _, err := s.service.Sync(ctx, doc); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("uri", doc.URI).Msg("synthesizing virtual file")
	}
	s.publishDiagnostics(ctx, doc)
}

func (s *Server) DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error {
	td := params.TextDocument
	if !s.isTemplate(td.URI) {
		return nil
	}
	zerolog.Ctx(ctx).Debug().Str("uri", td.URI).Int32("version", td.Version).Msg("document opened")

	_, reopened := s.documents.Get(td.URI)
	doc := s.documents.Open(td.URI, td.Version, td.Text)
	if s.watcher != nil && !reopened {
		if err := s.watcher.Add(filepath.Dir(position.URIToPath(td.URI))); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("uri", td.URI).Msg("watching template directory")
		}
	}
	s.sync(ctx, doc)
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	td := params.TextDocument
	if !s.isTemplate(td.URI) {
		return nil
	}
	doc, err := s.documents.Change(td.URI, td.Version, params.ContentChanges)
	if err != nil {
		return err
	}
	s.sync(ctx, doc)
	return nil
}

// DidSave resynthesizes a saved template. A saved companion source refreshes
// the templates next to it.
func (s *Server) DidSave(ctx context.Context, params *DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	if !s.isTemplate(uri) {
		s.refresh(ctx, position.URIToPath(uri))
		return nil
	}
	doc, ok := s.documents.Get(uri)
	if !ok {
		return nil
	}
	s.sync(ctx, doc)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	if !s.isTemplate(uri) {
		return nil
	}
	_, open := s.documents.Get(uri)
	s.documents.Close(uri)
	if s.watcher != nil && open {
		s.watcher.Remove(filepath.Dir(position.URIToPath(uri)))
	}

	s.syncMu.Lock()
	err := s.service.Close(ctx, uri)
	s.syncMu.Unlock()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("closing virtual file")
	}
	s.clearDiagnostics(ctx, uri)
	return nil
}

func (s *Server) Completion(ctx context.Context, params *CompletionParams) (*CompletionList, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return &CompletionList{Items: []CompletionItem{}}, nil
	}

	items, err := s.service.Completions(ctx, doc, params.Position)
	if err != nil {
		return nil, err
	}

	out := make([]CompletionItem, 0, len(items))
	for _, it := range items {
		ci := CompletionItem{
			Label:      it.Label,
			Kind:       completionKind(it.Kind),
			Detail:     it.Detail,
			SortText:   it.SortText,
			InsertText: it.InsertText,
		}
		if it.Edit != nil {
			text := it.InsertText
			if text == "" {
				text = it.Label
			}
			ci.TextEdit = &TextEdit{Range: *it.Edit, NewText: text}
		}
		out = append(out, ci)
	}
	return &CompletionList{Items: out}, nil
}

func (s *Server) Hover(ctx context.Context, params *HoverParams) (*Hover, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	h, err := s.service.Hover(ctx, doc, params.Position)
	if err != nil || h == nil {
		return nil, err
	}
	rng := h.Range
	return &Hover{
		Contents: MarkupContent{Kind: "markdown", Value: h.Contents},
		Range:    &rng,
	}, nil
}

func (s *Server) Definition(ctx context.Context, params *DefinitionParams) ([]Location, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return []Location{}, nil
	}
	locs, err := s.service.Definitions(ctx, doc, params.Position)
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, Location{URI: l.URI, Range: l.Range})
	}
	return out, nil
}

// CodeAction offers the engine's quick fixes for the numeric diagnostic codes
// in the request context.
func (s *Server) CodeAction(ctx context.Context, params *CodeActionParams) ([]CodeAction, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return []CodeAction{}, nil
	}

	var codes []int
	seen := map[int]bool{}
	for _, d := range params.Context.Diagnostics {
		code, ok := numericCode(d.Code)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return []CodeAction{}, nil
	}

	actions, err := s.service.CodeFixes(ctx, doc, params.Range, codes)
	if err != nil {
		return nil, err
	}
	out := make([]CodeAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, toCodeAction(a))
	}
	return out, nil
}

func toCodeAction(a service.CodeAction) CodeAction {
	changes := make(map[string][]TextEdit, len(a.Edits))
	for uri, edits := range a.Edits {
		for _, e := range edits {
			changes[uri] = append(changes[uri], TextEdit{Range: e.Range, NewText: e.NewText})
		}
	}
	return CodeAction{
		Title: a.Title,
		Kind:  CodeActionQuickFix,
		Edit:  &WorkspaceEdit{Changes: changes},
	}
}

// numericCode reads a diagnostic code sent as a number or a numeric string.
func numericCode(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(str)
	return n, err == nil
}

// completionKind maps engine element kinds onto the protocol's.
func completionKind(kind string) CompletionItemKind {
	switch kind {
	case service.KindTag:
		return CompletionItemProperty
	case "property", "getter", "setter":
		return CompletionItemField
	case "method":
		return CompletionItemMethod
	case "function", "local function":
		return CompletionItemFunction
	case "constructor":
		return CompletionItemConstructor
	case "class":
		return CompletionItemClass
	case "interface", "type", "alias":
		return CompletionItemInterface
	case "module", "external module name":
		return CompletionItemModule
	case "enum":
		return CompletionItemEnum
	case "enum member":
		return CompletionItemEnumMember
	case "const":
		return CompletionItemConstant
	case "var", "let", "local var", "parameter":
		return CompletionItemVariable
	case "keyword":
		return CompletionItemKeyword
	case "type parameter":
		return CompletionItemTypeParameter
	default:
		return CompletionItemText
	}
}
