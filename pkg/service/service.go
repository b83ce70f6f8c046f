// Package service answers language queries against templates by running them
// through the synthesized virtual files and an analysis engine, translating
// every position on the way in and out.
package service

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/tmplts/pkg/diagnostic"
	"github.com/walteh/tmplts/pkg/engine"
	"github.com/walteh/tmplts/pkg/host"
	"github.com/walteh/tmplts/pkg/position"
	"github.com/walteh/tmplts/pkg/virtual"
	"gitlab.com/tozd/go/errors"
)

// DefaultIgnoredCodes hides "JSX element implicitly has type 'any'", which every
// intrinsic element reports when no JSX typings are installed.
var DefaultIgnoredCodes = []int{7026}

type CompletionItem struct {
	Label      string
	Kind       string
	Detail     string
	SortText   string
	InsertText string
	// Edit is the template range the item replaces, when known.
	Edit *position.Range
}

type Hover struct {
	Contents string
	Range    position.Range
}

type Location struct {
	URI   string
	Range position.Range
}

type TextEdit struct {
	Range   position.Range
	NewText string
}

type CodeAction struct {
	Title string
	// Edits by document URI.
	Edits map[string][]TextEdit
}

type Options struct {
	IgnoredCodes []int
	// Fs reads files outside the template and its companion that results
	// point into.
	Fs afero.Fs
}

// Service is the analysis adapter of one session.
type Service struct {
	registry *virtual.Registry
	engine   engine.Engine
	fs       afero.Fs
	ignored  map[int]bool

	mu     sync.Mutex
	pushed map[string]int64
}

func New(registry *virtual.Registry, eng engine.Engine, opts Options) *Service {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.IgnoredCodes == nil {
		opts.IgnoredCodes = DefaultIgnoredCodes
	}
	ignored := make(map[int]bool, len(opts.IgnoredCodes))
	for _, c := range opts.IgnoredCodes {
		ignored[c] = true
	}
	return &Service{
		registry: registry,
		engine:   eng,
		fs:       opts.Fs,
		ignored:  ignored,
		pushed:   make(map[string]int64),
	}
}

func (s *Service) Registry() *virtual.Registry {
	return s.registry
}

// Sync resynthesizes the virtual file for doc and hands it to the engine. A
// missing companion class is not an error: the file stays degraded until a
// later sync finds it.
func (s *Service) Sync(ctx context.Context, doc *position.Document) (virtual.File, error) {
	return s.upsert(ctx, position.URIToPath(doc.URI), doc.Text())
}

func (s *Service) upsert(ctx context.Context, id, text string) (virtual.File, error) {
	f, err := s.registry.Upsert(ctx, id, text)
	if err != nil && !errors.Is(err, host.ErrHostClassNotFound) {
		return f, err
	}
	if cur, ok := s.registry.Get(id); !ok || cur.Version != f.Version {
		// closed or superseded while synthesizing
		return f, nil
	}
	if f.Synthesized && !f.Stale {
		if err := s.push(ctx, f); err != nil {
			return f, err
		}
	}
	return f, nil
}

// Close drops the virtual file for uri and closes it in the engine.
func (s *Service) Close(ctx context.Context, uri string) error {
	id := position.URIToPath(uri)
	f, err := s.registry.Lookup(id)
	if errors.Is(err, virtual.ErrNotFound) {
		return nil
	}
	s.registry.Remove(id)

	s.mu.Lock()
	_, pushed := s.pushed[f.Path]
	delete(s.pushed, f.Path)
	s.mu.Unlock()

	if !pushed {
		return nil
	}
	if err := s.engine.CloseFile(ctx, f.Path); err != nil {
		return errors.Errorf("closing %s: %w", f.Path, err)
	}
	return nil
}

// Refresh resynthesizes every open template in the directory of a changed
// companion file and returns their ids.
func (s *Service) Refresh(ctx context.Context, changedPath string) []string {
	if s.registry.Naming().IsGenerated(changedPath) || s.registry.Naming().IsTemplate(changedPath) {
		return nil
	}
	var refreshed []string
	for _, id := range s.registry.InDir(filepath.Dir(changedPath)) {
		f, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		if _, err := s.upsert(ctx, id, f.RawContent); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("template", id).Msg("refreshing template")
			continue
		}
		refreshed = append(refreshed, id)
	}
	return refreshed
}

// push sends the virtual content to the engine unless it already has this
// version. A file closed while the update was in flight is closed again in
// the engine, since Close found nothing pushed to release.
func (s *Service) push(ctx context.Context, f virtual.File) error {
	s.mu.Lock()
	v, ok := s.pushed[f.Path]
	s.mu.Unlock()
	if ok && v == f.Version {
		return nil
	}
	if err := s.engine.UpdateFile(ctx, f.Path, f.VirtualContent); err != nil {
		return errors.Errorf("updating %s: %w", f.Path, err)
	}

	s.mu.Lock()
	_, open := s.registry.Get(f.ID)
	if open {
		s.pushed[f.Path] = f.Version
	}
	s.mu.Unlock()

	if !open {
		if err := s.engine.CloseFile(ctx, f.Path); err != nil {
			return errors.Errorf("closing %s: %w", f.Path, err)
		}
	}
	return nil
}

// ready returns the file for doc when the engine may be queried for it.
func (s *Service) ready(ctx context.Context, doc *position.Document) (virtual.File, bool, error) {
	f, ok := s.registry.Get(position.URIToPath(doc.URI))
	if !ok || !f.Ready() {
		return f, false, nil
	}
	if err := s.push(ctx, f); err != nil {
		return f, false, err
	}
	return f, true, nil
}

// Completions lists completions at place. After a `<` the static tag list
// follows the engine's entries, and is offered even when the engine cannot be
// queried.
func (s *Service) Completions(ctx context.Context, doc *position.Document, place position.Place) ([]CompletionItem, error) {
	offset := doc.OffsetAt(place)
	text := doc.Text()
	afterAngle := offset > 0 && text[offset-1] == '<'

	var items []CompletionItem
	seen := map[string]bool{}

	f, ok, err := s.ready(ctx, doc)
	if err != nil {
		return nil, err
	}
	if ok {
		if v, claimed := f.Ranges.ToVirtual(ctx, offset); claimed {
			var trigger string
			if offset > 0 {
				switch text[offset-1] {
				case '.', '<', '"', '\'', '/', '@':
					trigger = string(text[offset-1])
				}
			}
			entries, err := s.engine.Completions(ctx, f.Path, v, engine.CompletionOptions{TriggerCharacter: trigger})
			if err != nil {
				return nil, errors.Errorf("completions in %s: %w", f.Path, err)
			}
			for _, e := range entries {
				item := CompletionItem{
					Label:      e.Name,
					Kind:       e.Kind,
					SortText:   e.SortText,
					InsertText: e.InsertText,
				}
				if e.Replacement != nil {
					if ts, te, ok := f.Ranges.SpanToTemplate(ctx, e.Replacement.Start, e.Replacement.Length); ok {
						r := doc.RangeAt(ts, te)
						item.Edit = &r
					}
				}
				seen[e.Name] = true
				items = append(items, item)
			}
		}
	}

	if afterAngle {
		items = append(items, tagCompletions(seen)...)
	}
	return items, nil
}

// Hover returns quick info at place, or nil when there is none.
func (s *Service) Hover(ctx context.Context, doc *position.Document, place position.Place) (*Hover, error) {
	f, ok, err := s.ready(ctx, doc)
	if err != nil || !ok {
		return nil, err
	}
	offset := doc.OffsetAt(place)
	v, claimed := f.Ranges.ToVirtual(ctx, offset)
	if !claimed {
		return nil, nil
	}

	info, err := s.engine.QuickInfo(ctx, f.Path, v)
	if err != nil {
		return nil, errors.Errorf("quick info in %s: %w", f.Path, err)
	}
	if info == nil {
		return nil, nil
	}

	contents := "```typescript\n" + info.Display + "\n```"
	if info.Documentation != "" {
		contents += "\n\n" + info.Documentation
	}

	rng := doc.RangeAt(offset, offset)
	if ts, te, ok := f.Ranges.SpanToTemplate(ctx, info.Span.Start, info.Span.Length); ok {
		rng = doc.RangeAt(ts, te)
	}
	return &Hover{Contents: contents, Range: rng}, nil
}

// Definitions resolves the symbol at place. Targets inside the virtual file
// are reported in the template or, for code copied from it, the companion
// source. Targets that map nowhere are dropped.
func (s *Service) Definitions(ctx context.Context, doc *position.Document, place position.Place) ([]Location, error) {
	f, ok, err := s.ready(ctx, doc)
	if err != nil || !ok {
		return nil, err
	}
	v, claimed := f.Ranges.ToVirtual(ctx, doc.OffsetAt(place))
	if !claimed {
		return nil, nil
	}

	defs, err := s.engine.Definitions(ctx, f.Path, v)
	if err != nil {
		return nil, errors.Errorf("definitions in %s: %w", f.Path, err)
	}

	var out []Location
	for _, d := range defs {
		loc, ok := s.resolveSpan(ctx, doc, f, d.FileName, d.Span)
		if !ok {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

// resolveSpan maps a span reported by the engine onto a document location.
func (s *Service) resolveSpan(ctx context.Context, doc *position.Document, f virtual.File, fileName string, span engine.Span) (Location, bool) {
	if fileName != f.Path {
		other, err := s.readDocument(fileName)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("file", fileName).Msg("dropping location in unreadable file")
			return Location{}, false
		}
		return Location{URI: other.URI, Range: other.RangeAt(span.Start, span.End())}, true
	}

	if ts, te, ok := f.Ranges.SpanToTemplate(ctx, span.Start, span.Length); ok {
		return Location{URI: doc.URI, Range: doc.RangeAt(ts, te)}, true
	}
	if hs, he, ok := f.Host.SpanToHost(span.Start, span.Length); ok {
		companion := position.NewDocument(position.PathToURI(f.HostSourcePath), 0, f.HostSourceText)
		return Location{URI: companion.URI, Range: companion.RangeAt(hs, he)}, true
	}
	return Location{}, false
}

func (s *Service) readDocument(path string) (*position.Document, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", path, err)
	}
	return position.NewDocument(position.PathToURI(path), 0, string(data)), nil
}

// Diagnostics reports problems in doc. An invalid template gets the single
// whole-document diagnostic and no engine results.
func (s *Service) Diagnostics(ctx context.Context, doc *position.Document) ([]diagnostic.Diagnostic, error) {
	f, ok := s.registry.Get(position.URIToPath(doc.URI))
	if !ok {
		return nil, nil
	}
	if !f.IsBodyOnlyValid {
		return []diagnostic.Diagnostic{diagnostic.BodyNotJSXOnly(doc)}, nil
	}

	f, ok, err := s.ready(ctx, doc)
	if err != nil || !ok {
		return nil, err
	}

	syntactic, err := s.engine.SyntacticDiagnostics(ctx, f.Path)
	if err != nil {
		return nil, errors.Errorf("syntactic diagnostics in %s: %w", f.Path, err)
	}
	semantic, err := s.engine.SemanticDiagnostics(ctx, f.Path)
	if err != nil {
		return nil, errors.Errorf("semantic diagnostics in %s: %w", f.Path, err)
	}

	out := make([]diagnostic.Diagnostic, 0, len(syntactic)+len(semantic))
	for _, d := range append(syntactic, semantic...) {
		if s.ignored[d.Code] {
			continue
		}
		ts, te, ok := f.Ranges.SpanToTemplate(ctx, d.Span.Start, d.Span.Length)
		if !ok {
			continue
		}
		source := d.Source
		if source == "" {
			source = diagnostic.SourceEngine
		}
		out = append(out, diagnostic.Diagnostic{
			Range:    doc.RangeAt(ts, te),
			Code:     d.Code,
			Message:  d.Message,
			Severity: diagnostic.SeverityFor(d.Category),
			Source:   source,
		})
	}
	return out, nil
}

// CodeFixes returns the engine's fixes for the given error codes over rng.
// Edits to the virtual file are translated back to the template or the
// companion; edits that map to neither are dropped, and a fix left without
// edits is dropped with them.
func (s *Service) CodeFixes(ctx context.Context, doc *position.Document, rng position.Range, codes []int) ([]CodeAction, error) {
	f, ok, err := s.ready(ctx, doc)
	if err != nil || !ok || len(codes) == 0 {
		return nil, err
	}

	vs, ve, claimed := f.Ranges.SpanToVirtual(ctx, doc.OffsetAt(rng.Start), doc.OffsetAt(rng.End))
	if !claimed {
		return nil, nil
	}

	fixes, err := s.engine.CodeFixes(ctx, f.Path, engine.Span{Start: vs, Length: ve - vs}, codes)
	if err != nil {
		return nil, errors.Errorf("code fixes in %s: %w", f.Path, err)
	}

	var out []CodeAction
	for _, fix := range fixes {
		action := CodeAction{Title: fix.Description, Edits: map[string][]TextEdit{}}
		for _, fc := range fix.Changes {
			for _, tc := range fc.TextChanges {
				loc, ok := s.resolveSpan(ctx, doc, f, fc.FileName, tc.Span)
				if !ok {
					continue
				}
				action.Edits[loc.URI] = append(action.Edits[loc.URI], TextEdit{Range: loc.Range, NewText: tc.NewText})
			}
		}
		if len(action.Edits) == 0 {
			continue
		}
		out = append(out, action)
	}
	return out, nil
}
