package backend

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// Writer accumulates indented source lines.
type Writer struct {
	sb     strings.Builder
	indent int
	unit   string
}

// NewWriter returns a Writer that indents with unit.
func NewWriter(unit string) *Writer {
	return &Writer{unit: unit}
}

// Line writes s on its own line at the current indent. An empty s writes
// a blank line.
func (w *Writer) Line(s string) {
	if s != "" {
		w.sb.WriteString(strings.Repeat(w.unit, w.indent))
		w.sb.WriteString(s)
	}
	w.sb.WriteByte('\n')
}

// Linef is Line with formatting.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Block writes open, runs body one level deeper and writes close.
func (w *Writer) Block(open, close string, body func()) {
	w.Line(open)
	w.In()
	body()
	w.Out()
	w.Line(close)
}

// In increases the indent.
func (w *Writer) In() { w.indent++ }

// Out decreases the indent.
func (w *Writer) Out() { w.indent-- }

// Bytes returns the written source.
func (w *Writer) Bytes() []byte {
	return []byte(w.sb.String())
}

// Header writes the generated-file banner as line comments starting with
// comment, e.g. "//".
func (w *Writer) Header(comment string, plan *Plan, opts Options) {
	for _, line := range opts.CopyrightHeader {
		w.Line(strings.TrimRight(comment+" "+line, " "))
	}
	w.Linef("%s Autogenerated from Pigeon (v%s), do not edit directly.", comment, ir.GeneratorVersion)
	w.Linef("%s See also: https://pub.dev/packages/pigeon", comment)
	w.Linef("%s Document fingerprint: %s", comment, plan.Fingerprint)
}

var (
	titleCaser = cases.Title(language.Und, cases.NoLower)
	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
)

// Upper returns name with its first letter upper-cased, e.g. "search" to
// "Search".
func Upper(name string) string {
	return titleCaser.String(name)
}

// Lower returns name with its first letter lower-cased.
func Lower(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return lowerCaser.String(string(r)) + name[size:]
}

// Screaming converts a camelCase name to SCREAMING_SNAKE_CASE.
func Screaming(name string) string {
	var sb strings.Builder
	prevLower := false
	for _, r := range name {
		if unicode.IsUpper(r) && prevLower {
			sb.WriteByte('_')
		}
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		sb.WriteRune(r)
	}
	return upperCaser.String(sb.String())
}

// Quote returns s as a double-quoted literal with backslash escapes, valid
// in Go, Dart and Kotlin for identifier-like names.
func Quote(s string) string {
	return fmt.Sprintf("%q", s)
}
