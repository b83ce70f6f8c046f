// Package host finds the companion source that declares a template's class.
package host

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/tmplts/pkg/synth"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

var ErrHostClassNotFound = errors.Base("no companion source declares the class")

var DefaultPatterns = []string{"*.ts", "*.tsx"}

// StalenessPolicy decides whether a cached companion must be reread.
type StalenessPolicy interface {
	IsStale(cached, current time.Time) bool
}

// ModTimePolicy treats any change of modification time as stale.
type ModTimePolicy struct{}

func (ModTimePolicy) IsStale(cached, current time.Time) bool {
	return !cached.Equal(current)
}

// Source is a located companion file together with its skeleton.
type Source struct {
	Path     string
	ModTime  time.Time
	Text     string
	Skeleton *synth.Skeleton
}

type Locator struct {
	fs            afero.Fs
	synth         *synth.Synthesizer
	policy        StalenessPolicy
	patterns      []string
	exclude       []string
	virtualSuffix string
}

type Option func(*Locator)

// WithPatterns sets the glob patterns companion file names must match.
func WithPatterns(patterns ...string) Option {
	return func(l *Locator) {
		if len(patterns) > 0 {
			l.patterns = patterns
		}
	}
}

// WithExclude sets glob patterns for file names that are never companions.
func WithExclude(patterns ...string) Option {
	return func(l *Locator) { l.exclude = patterns }
}

// WithVirtualSuffix skips files ending in suffix, the generated virtual files.
func WithVirtualSuffix(suffix string) Option {
	return func(l *Locator) { l.virtualSuffix = suffix }
}

func WithStalenessPolicy(p StalenessPolicy) Option {
	return func(l *Locator) { l.policy = p }
}

func NewLocator(fs afero.Fs, s *synth.Synthesizer, opts ...Option) *Locator {
	l := &Locator{
		fs:       fs,
		synth:    s,
		policy:   ModTimePolicy{},
		patterns: DefaultPatterns,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the companion in dir declaring className. When cached is
// still fresh it is returned as is with reused set. Otherwise the cached path
// is tried first and then every candidate in directory order, stopping at the
// first match.
func (l *Locator) Locate(ctx context.Context, dir, className string, cached *Source) (src *Source, reused bool, err error) {
	logger := zerolog.Ctx(ctx).With().Str("dir", dir).Str("class", className).Logger()

	var tried string
	if cached != nil && cached.Path != "" {
		info, statErr := l.fs.Stat(cached.Path)
		if statErr == nil && !l.policy.IsStale(cached.ModTime, info.ModTime()) && cached.Skeleton != nil {
			logger.Trace().Str("path", cached.Path).Msg("companion unchanged")
			return cached, true, nil
		}
		if statErr == nil && filepath.Dir(cached.Path) == filepath.Clean(dir) {
			tried = cached.Path
			found, err := l.load(ctx, cached.Path, className)
			if err == nil {
				return found, false, nil
			}
			logger.Debug().Err(err).Str("path", cached.Path).Msg("cached companion no longer matches")
		}
	}

	candidates, err := l.candidates(dir)
	if err != nil {
		logger.Warn().Err(err).Msg("listing companion candidates")
		return nil, false, errors.Errorf("%w: %s in %s", ErrHostClassNotFound, className, dir)
	}

	var errs error
	for _, path := range candidates {
		if path == tried {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		found, err := l.load(ctx, path, className)
		if err == nil {
			logger.Debug().Str("path", path).Msg("located companion")
			return found, false, nil
		}
		if !errors.Is(err, synth.ErrClassNotFound) {
			errs = multierr.Append(errs, err)
		}
	}

	for _, err := range multierr.Errors(errs) {
		logger.Debug().Err(err).Msg("skipped companion candidate")
	}

	return nil, false, errors.Errorf("%w: %s in %s", ErrHostClassNotFound, className, dir)
}

func (l *Locator) load(ctx context.Context, path, className string) (*Source, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, errors.Errorf("stat %s: %w", path, err)
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	// cheap reject before parsing
	if !strings.Contains(text, className) {
		return nil, errors.Errorf("%w: %s in %s", synth.ErrClassNotFound, className, path)
	}

	sk, err := l.synth.BuildSkeleton(ctx, path, text, className)
	if err != nil {
		return nil, err
	}
	return &Source{Path: path, ModTime: info.ModTime(), Text: text, Skeleton: sk}, nil
}

// candidates lists companion candidates in dir in directory order.
func (l *Locator) candidates(dir string) ([]string, error) {
	infos, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, errors.Errorf("reading dir %s: %w", dir, err)
	}
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if l.IsCandidate(info.Name()) {
			out = append(out, filepath.Join(dir, info.Name()))
		}
	}
	return out, nil
}

// IsCandidate reports whether a file name may hold a companion class.
func (l *Locator) IsCandidate(name string) bool {
	name = filepath.Base(name)
	if l.virtualSuffix != "" && strings.HasSuffix(name, l.virtualSuffix) {
		return false
	}
	if matchAny(l.exclude, name) {
		return false
	}
	return matchAny(l.patterns, name)
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
