package position

import (
	"net/url"
	"path/filepath"
	"strings"
)

// URIToPath turns a file:// URI into a clean filesystem path. Inputs that are
// already paths pass through.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		return filepath.Clean(uri)
	}
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		// fall back to the prefix-stripping the editors tolerate
		p := strings.TrimPrefix(uri, "file://")
		p = strings.TrimPrefix(p, "file:")
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.FromSlash(u.Path))
}

// PathToURI is the inverse of URIToPath.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs := filepath.ToSlash(path)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return (&url.URL{Scheme: "file", Path: abs}).String()
}
