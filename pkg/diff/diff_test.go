package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/tmplts/pkg/diff"
)

type snapshot struct {
	Path    string
	Version int
	cache   string
}

func TestText(t *testing.T) {
	assert.Empty(t, diff.Text("a\nb\n", "a\nb\n"))

	d := diff.Text("a\nb\n", "a\nc\n")
	assert.Contains(t, d, "-c")
	assert.Contains(t, d, "+b")
}

func TestExported(t *testing.T) {
	assert.Empty(t, diff.Exported(snapshot{Path: "/a", cache: "x"}, snapshot{Path: "/a", cache: "y"}))

	d := diff.Exported(snapshot{Path: "/a", Version: 1}, snapshot{Path: "/a", Version: 2})
	assert.Contains(t, d, "Version")
}
