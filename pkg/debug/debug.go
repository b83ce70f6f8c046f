// Package debug holds the zerolog hooks shared by the CLI and the language
// server.
package debug

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// TimeFormat is millisecond precision without a zone.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// callerSkip reads the event's unexported skipFrame so CallerSkipFrame is
// honoured by CustomCallerHook.
func callerSkip(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() {
		return int(field.Int())
	}
	return 0
}

type CustomTimeHook struct {
	Format string
}

func (t CustomTimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = TimeFormat
	}
	e.Str("time", time.Now().UTC().Format(format))
}

type CustomCallerHook struct {
	WithColor bool
}

func (c CustomCallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(callerSkip(e) + 3)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	pkg, _ := SplitFuncName(fn.Name())
	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name such as
// "github.com/walteh/tmplts/pkg/host.(*Locator).Locate" into its package
// path and the function with its receiver.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	dot := strings.IndexByte(name[lastSlash:], '.')
	if dot < 0 {
		return name, ""
	}
	dot += lastSlash
	return name[:dot], name[dot+1:]
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := filepath.Base(path)
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
}

// NewLogger builds the CLI logger. Colour output goes through a console
// writer; otherwise lines are JSON.
func NewLogger(w io.Writer, level zerolog.Level, colorize bool) zerolog.Logger {
	if colorize {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: TimeFormat}
	}
	return zerolog.New(w).
		Level(level).
		Hook(CustomTimeHook{}).
		Hook(CustomCallerHook{WithColor: colorize})
}
