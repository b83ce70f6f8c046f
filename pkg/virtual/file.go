package virtual

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/walteh/tmplts/pkg/mapping"
)

const (
	DefaultTemplateExtension = ".template"
	DefaultVirtualSuffix     = ".tc.template.virtual.tsx"
)

// File is a snapshot of one template's virtual source. Values returned by the
// registry are copies and never change underneath the caller.
type File struct {
	// ID is the template path.
	ID string `json:"id"`
	// Path is where the virtual source would live on disk. The engine sees the
	// virtual source under this name.
	Path          string `json:"path"`
	Dir           string `json:"dir"`
	HostClassName string `json:"host_class_name"`

	RawContent     string `json:"raw_content"`
	VirtualContent string `json:"virtual_content"`

	HostSourcePath    string    `json:"host_source_path"`
	HostSourceModTime time.Time `json:"host_source_mod_time"`
	HostSourceText    string    `json:"-"`

	Ranges mapping.Translator `json:"ranges"`
	Host   mapping.HostMap    `json:"host"`

	IsBodyOnlyValid bool `json:"is_body_only_valid"`
	// Synthesized is set once any synthesis has succeeded.
	Synthesized bool `json:"synthesized"`
	// Stale is set when the last synthesis failed, so VirtualContent and
	// Ranges describe an older RawContent.
	Stale   bool  `json:"stale"`
	Version int64 `json:"version"`
}

// Ready reports whether the engine may be queried for this file.
func (f File) Ready() bool {
	return f.Synthesized && !f.Stale && f.IsBodyOnlyValid
}

// Naming derives class names and virtual paths from template paths.
type Naming struct {
	TemplateExtension string
	VirtualSuffix     string
}

func DefaultNaming() Naming {
	return Naming{TemplateExtension: DefaultTemplateExtension, VirtualSuffix: DefaultVirtualSuffix}
}

// IsTemplate reports whether path names a template.
func (n Naming) IsTemplate(path string) bool {
	return strings.HasSuffix(path, n.TemplateExtension)
}

// IsGenerated reports whether path was written for a virtual source: the
// source itself or a sidecar named after it, such as its debug metadata.
func (n Naming) IsGenerated(path string) bool {
	return strings.Contains(filepath.Base(path), n.VirtualSuffix)
}

// ClassName is the template base name without its extension.
func (n Naming) ClassName(templatePath string) string {
	return strings.TrimSuffix(filepath.Base(templatePath), n.TemplateExtension)
}

// FileName is the virtual source path next to the template: Foo.template
// becomes Foo.tc.template.virtual.tsx.
func (n Naming) FileName(templatePath string) string {
	return filepath.Join(filepath.Dir(templatePath), n.ClassName(templatePath)+n.VirtualSuffix)
}

// TemplateName inverts FileName.
func (n Naming) TemplateName(virtualPath string) string {
	base := strings.TrimSuffix(filepath.Base(virtualPath), n.VirtualSuffix)
	return filepath.Join(filepath.Dir(virtualPath), base+n.TemplateExtension)
}
