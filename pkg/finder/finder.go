// Package finder expands command line arguments into template files.
package finder

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/walteh/tmplts/pkg/virtual"
	"gitlab.com/tozd/go/errors"
)

// TemplateFinder finds template files under a path.
type TemplateFinder interface {
	FindTemplates(ctx context.Context, path string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	Content []byte
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

type DefaultFinder struct {
	fs      afero.Fs
	naming  virtual.Naming
	exclude []string
}

var _ TemplateFinder = (*DefaultFinder)(nil)

// NewDefaultFinder finds files named by naming, skipping paths matching any
// of the exclude globs.
func NewDefaultFinder(fs afero.Fs, naming virtual.Naming, exclude ...string) *DefaultFinder {
	return &DefaultFinder{fs: fs, naming: naming, exclude: exclude}
}

// FindTemplates returns the templates at path: the file itself, every
// template below a directory, or the matches of a doublestar pattern.
func (f *DefaultFinder) FindTemplates(ctx context.Context, path string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, pattern := doublestar.SplitPattern(filepath.ToSlash(path))
	if !hasMeta(pattern) {
		root, pattern = filepath.ToSlash(path), ""
	}
	root = filepath.FromSlash(root)

	info, err := f.fs.Stat(root)
	if err != nil {
		return nil, errors.Errorf("finding templates in %s: %w", path, err)
	}
	if !info.IsDir() {
		if !f.naming.IsTemplate(root) {
			return nil, errors.Errorf("%s is not a %s file", root, f.naming.TemplateExtension)
		}
		fi, err := f.read(root)
		if err != nil {
			return nil, err
		}
		return []FileInfo{fi}, nil
	}

	var paths []string
	err = afero.Walk(f.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			if p != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.naming.IsTemplate(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if f.excluded(rel) {
			return nil
		}
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				return nil
			}
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(paths)
	out := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		fi, err := f.read(p)
		if err != nil {
			return nil, err
		}
		out = append(out, fi)
	}
	return out, nil
}

// FindAll runs FindTemplates over every path, dropping duplicates.
func (f *DefaultFinder) FindAll(ctx context.Context, paths []string) ([]FileInfo, error) {
	seen := map[string]bool{}
	var out []FileInfo
	for _, p := range paths {
		found, err := f.FindTemplates(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, fi := range found {
			if seen[fi.Path] {
				continue
			}
			seen[fi.Path] = true
			out = append(out, fi)
		}
	}
	return out, nil
}

func (f *DefaultFinder) read(path string) (FileInfo, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return FileInfo{}, errors.Errorf("reading %s: %w", path, err)
	}
	return FileInfo{Path: path, Content: data}, nil
}

// excluded matches rel, slash separated and relative to the walk root, and
// its base name against the exclude globs.
func (f *DefaultFinder) excluded(rel string) bool {
	base := filepath.Base(rel)
	for _, pat := range f.exclude {
		if ok, _ := doublestar.Match(pat, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
