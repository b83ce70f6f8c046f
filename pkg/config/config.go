// Package config loads the optional .tmplts.yaml project file.
package config

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/tmplts/pkg/host"
	"github.com/walteh/tmplts/pkg/service"
	"github.com/walteh/tmplts/pkg/synth"
	"github.com/walteh/tmplts/pkg/virtual"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory and its parents.
const FileName = ".tmplts.yaml"

type Config struct {
	TsserverPath           string   `json:"tsserver_path" yaml:"tsserver_path"`
	TsserverArgs           []string `json:"tsserver_args,omitempty" yaml:"tsserver_args,omitempty"`
	TemplateExtension      string   `json:"template_extension" yaml:"template_extension"`
	VirtualSuffix          string   `json:"virtual_suffix" yaml:"virtual_suffix"`
	MethodName             string   `json:"method_name" yaml:"method_name"`
	CandidatePatterns      []string `json:"candidate_patterns" yaml:"candidate_patterns"`
	Exclude                []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	DebugVirtualFiles      bool     `json:"debug_virtual_files" yaml:"debug_virtual_files"`
	LogLevel               string   `json:"log_level" yaml:"log_level"`
	IgnoredDiagnosticCodes []int    `json:"ignored_diagnostic_codes" yaml:"ignored_diagnostic_codes"`
}

func Default() *Config {
	return &Config{
		TsserverPath:           "tsserver",
		TemplateExtension:      virtual.DefaultTemplateExtension,
		VirtualSuffix:          virtual.DefaultVirtualSuffix,
		MethodName:             synth.DefaultMethodName,
		CandidatePatterns:      append([]string(nil), host.DefaultPatterns...),
		LogLevel:               zerolog.InfoLevel.String(),
		IgnoredDiagnosticCodes: append([]int(nil), service.DefaultIgnoredCodes...),
	}
}

// Load reads path on fs over the defaults. An empty path searches for
// FileName from dir upwards; finding nothing yields the defaults.
func Load(fs afero.Fs, dir, path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		found, ok := Find(fs, dir)
		if !ok {
			return cfg, nil
		}
		path = found
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Find walks from dir to the filesystem root looking for FileName.
func Find(fs afero.Fs, dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.TsserverPath == "" {
		result = multierror.Append(result, errors.New("tsserver_path must not be empty"))
	}
	if !strings.HasPrefix(c.TemplateExtension, ".") {
		result = multierror.Append(result, errors.Errorf("template_extension %q must start with a dot", c.TemplateExtension))
	}
	if !strings.HasPrefix(c.VirtualSuffix, ".") {
		result = multierror.Append(result, errors.Errorf("virtual_suffix %q must start with a dot", c.VirtualSuffix))
	}
	if c.VirtualSuffix == c.TemplateExtension {
		result = multierror.Append(result, errors.New("virtual_suffix must differ from template_extension"))
	}
	if !isIdentifier(c.MethodName) {
		result = multierror.Append(result, errors.Errorf("method_name %q is not an identifier", c.MethodName))
	}
	if len(c.CandidatePatterns) == 0 {
		result = multierror.Append(result, errors.New("candidate_patterns must not be empty"))
	}
	for _, p := range append(append([]string(nil), c.CandidatePatterns...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			result = multierror.Append(result, errors.Errorf("bad glob %q", p))
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, errors.Errorf("log_level: %w", err))
	}

	return result.ErrorOrNil()
}

// Level is the parsed LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) Naming() virtual.Naming {
	return virtual.Naming{
		TemplateExtension: c.TemplateExtension,
		VirtualSuffix:     c.VirtualSuffix,
	}
}

// LocatorOptions configures a host.Locator from c.
func (c *Config) LocatorOptions() []host.Option {
	return []host.Option{
		host.WithPatterns(c.CandidatePatterns...),
		host.WithExclude(c.Exclude...),
		host.WithVirtualSuffix(c.VirtualSuffix),
	}
}

type contextKey struct{}

func (c *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the config stored by WithContext, or the defaults.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(contextKey{}).(*Config); ok && c != nil {
		return c
	}
	return Default()
}

// Registry builds the locator and registry of one session on fs.
func (c *Config) Registry(fs afero.Fs) *virtual.Registry {
	s := synth.New(c.MethodName, synth.EditorConfigIndent)
	loc := host.NewLocator(fs, s, c.LocatorOptions()...)
	return virtual.NewRegistry(loc, virtual.Options{
		Naming:     c.Naming(),
		DebugWrite: c.DebugVirtualFiles,
		Fs:         fs,
	})
}

func (c *Config) ServiceOptions(fs afero.Fs) service.Options {
	return service.Options{IgnoredCodes: c.IgnoredDiagnosticCodes, Fs: fs}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
