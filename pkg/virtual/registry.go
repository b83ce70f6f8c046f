// Package virtual keeps the synthesized virtual source of every open template.
package virtual

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/tmplts/pkg/host"
	"github.com/walteh/tmplts/pkg/mapping"
	"github.com/walteh/tmplts/pkg/template"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrSuperseded = errors.Base("virtual file changed while synthesizing")
	ErrNotFound   = errors.Base("no virtual file for template")
)

// Locator finds the companion source of a template class.
type Locator interface {
	Locate(ctx context.Context, dir, className string, cached *host.Source) (*host.Source, bool, error)
}

type Options struct {
	Naming Naming
	// DebugWrite writes every synthesized source and its range table next to
	// the template.
	DebugWrite bool
	// Fs receives debug writes.
	Fs afero.Fs
}

type entry struct {
	file   File
	source *host.Source
	gen    uint64
}

// Registry owns the virtual files of one session.
type Registry struct {
	mu      sync.Mutex
	files   map[string]*entry
	locator Locator
	opts    Options
}

func NewRegistry(locator Locator, opts Options) *Registry {
	if opts.Naming.TemplateExtension == "" {
		opts.Naming.TemplateExtension = DefaultTemplateExtension
	}
	if opts.Naming.VirtualSuffix == "" {
		opts.Naming.VirtualSuffix = DefaultVirtualSuffix
	}
	return &Registry{
		files:   make(map[string]*entry),
		locator: locator,
		opts:    opts,
	}
}

func (r *Registry) Naming() Naming {
	return r.opts.Naming
}

// Get returns a snapshot of the file for id.
func (r *Registry) Get(id string) (File, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.files[id]
	if !ok {
		return File{}, false
	}
	return e.file, true
}

// Lookup is Get returning ErrNotFound for unknown ids.
func (r *Registry) Lookup(id string) (File, error) {
	f, ok := r.Get(id)
	if !ok {
		return File{}, errors.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, nil
}

// Remove forgets id. Upserts still running for it are discarded.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[id]
	delete(r.files, id)
	return ok
}

// All returns snapshots of every file ordered by id.
func (r *Registry) All() []File {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]File, 0, len(r.files))
	for _, e := range r.files {
		out = append(out, e.file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InDir returns the ids of the templates in dir.
func (r *Registry) InDir(dir string) []string {
	dir = filepath.Clean(dir)
	var ids []string
	for _, f := range r.All() {
		if f.Dir == dir {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// Upsert records text as the template content of id and resynthesizes its
// virtual source. On failure the previous virtual source and ranges stay in
// place, marked stale, and the error is returned with the updated snapshot.
// When another Upsert or Remove for id arrives first, the result is dropped
// and ErrSuperseded is returned.
func (r *Registry) Upsert(ctx context.Context, id, text string) (File, error) {
	r.mu.Lock()
	e, ok := r.files[id]
	if !ok {
		e = &entry{file: NewFile(id, r.opts.Naming)}
		r.files[id] = e
	}
	e.gen++
	gen := e.gen
	cached := e.source
	file := e.file
	r.mu.Unlock()

	logger := zerolog.Ctx(ctx).With().Str("template", id).Logger()

	prelude, body, valid := template.Parts(ctx, text)

	src, reused, locErr := r.locator.Locate(ctx, file.Dir, file.HostClassName, cached)

	r.mu.Lock()
	if cur, ok := r.files[id]; !ok || cur != e || e.gen != gen {
		r.mu.Unlock()
		logger.Debug().Uint64("generation", gen).Msg("dropping superseded synthesis")
		return File{}, errors.Errorf("%w: %s", ErrSuperseded, id)
	}

	e.file.RawContent = text
	e.file.IsBodyOnlyValid = valid

	if locErr != nil {
		e.file.Stale = true
		snapshot := e.file
		r.mu.Unlock()

		if errors.Is(locErr, host.ErrHostClassNotFound) {
			logger.Debug().Err(locErr).Msg("companion class not found")
		} else {
			logger.Warn().Err(locErr).Msg("locating companion")
		}
		return snapshot, locErr
	}

	res := src.Skeleton.Render(prelude, body)
	e.source = src
	e.file.VirtualContent = res.Content
	e.file.Ranges = res.Translator
	e.file.Host = res.Host
	e.file.HostSourcePath = src.Path
	e.file.HostSourceModTime = src.ModTime
	e.file.HostSourceText = src.Text
	e.file.Synthesized = true
	e.file.Stale = false
	e.file.Version++
	snapshot := e.file
	r.mu.Unlock()

	logger.Debug().
		Str("companion", src.Path).
		Bool("reused", reused).
		Bool("body_only", valid).
		Int64("version", snapshot.Version).
		Stringer("body", snapshot.Ranges.Body).
		Stringer("import", snapshot.Ranges.Import).
		Msg("synthesized virtual file")

	if r.opts.DebugWrite {
		r.debugWrite(ctx, snapshot)
	}

	return snapshot, nil
}

// NewFile returns the empty snapshot for a template that was never
// synthesized.
func NewFile(id string, n Naming) File {
	return File{
		ID:            id,
		Path:          n.FileName(id),
		Dir:           filepath.Dir(id),
		HostClassName: n.ClassName(id),
		Ranges:        mapping.NewTranslator(),
		Host:          mapping.NewHostMap(),
	}
}

func (r *Registry) debugWrite(ctx context.Context, f File) {
	if r.opts.Fs == nil {
		return
	}
	logger := zerolog.Ctx(ctx)

	if err := afero.WriteFile(r.opts.Fs, f.Path, []byte(f.VirtualContent), 0o644); err != nil {
		logger.Warn().Err(err).Str("path", f.Path).Msg("writing debug virtual file")
		return
	}

	meta, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		logger.Warn().Err(err).Msg("encoding debug virtual file metadata")
		return
	}
	if err := afero.WriteFile(r.opts.Fs, f.Path+".json", meta, 0o644); err != nil {
		logger.Warn().Err(err).Str("path", f.Path+".json").Msg("writing debug virtual file metadata")
	}
}
