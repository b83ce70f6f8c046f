// Package diff renders readable differences for test failures.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Text diffs two sources line by line. It returns "" when they are equal.
func Text(want, got string) string {
	if want == got {
		return ""
	}
	return render(diff.Diff(got, want))
}

// Exported diffs the exported fields of want and got, so snapshots with
// unexported caches compare by what callers can see.
func Exported[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	return Text(printer.Sprint(want), printer.Sprint(got))
}

func render(d string) string {
	var b strings.Builder
	b.WriteString("\n\nto turn got into want:\n  + add\n  - remove\n\n")
	b.WriteString(d)
	return b.String()
}
