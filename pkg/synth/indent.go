package synth

import (
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
)

const defaultIndent = "  "

// EditorConfigIndent resolves the indentation unit for path from the
// .editorconfig files above it, falling back to two spaces.
func EditorConfigIndent(path string) string {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil || def == nil {
		return defaultIndent
	}
	return indentUnit(def)
}

func indentUnit(def *editorconfig.Definition) string {
	if def.IndentStyle == editorconfig.IndentStyleTab {
		return "\t"
	}
	size, err := strconv.Atoi(def.IndentSize)
	if err != nil || size <= 0 {
		size = def.TabWidth
	}
	if size <= 0 {
		return defaultIndent
	}
	return strings.Repeat(" ", size)
}

// FixedIndent always returns unit.
func FixedIndent(unit string) IndentFunc {
	return func(string) string { return unit }
}
