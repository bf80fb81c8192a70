package jvm

import (
	"slices"
	"strings"
)

// JavadocArgs is an immutable, ordered list of javadoc option lines. Every
// With method returns a new value; the receiver is never modified.
type JavadocArgs struct {
	lines [][]string
}

var defaultJavadocArgs = [][]string{
	{"-quiet"},
	{"-protected"},
	{"-encoding", "UTF-8"},
	{"-charset", "UTF-8"},
	{"-notimestamp"},
}

// NewJavadocArgs returns the default option lines.
func NewJavadocArgs() JavadocArgs {
	return JavadocArgs{lines: slices.Clone(defaultJavadocArgs)}
}

// With appends one option line.
func (a JavadocArgs) With(option string, params ...string) JavadocArgs {
	line := append([]string{option}, params...)
	return JavadocArgs{lines: append(slices.Clip(a.lines), line)}
}

// WithJoined appends an option whose parameters are joined with ':'.
// A non-empty first is kept as a separate parameter before the joined list.
func (a JavadocArgs) WithJoined(option, first string, joined []string) JavadocArgs {
	if first == "" {
		return a.With(option, strings.Join(joined, ":"))
	}
	return a.With(option, first, strings.Join(joined, ":"))
}

// Lines renders each option line, escaping parameters for an @argfile.
func (a JavadocArgs) Lines() []string {
	out := make([]string, len(a.lines))
	for i, line := range a.lines {
		parts := make([]string, len(line))
		for j, p := range line {
			parts[j] = escapeArg(p)
		}
		out[i] = strings.Join(parts, " ")
	}
	return out
}

// Flatten returns every option and parameter in order.
func (a JavadocArgs) Flatten() []string {
	var out []string
	for _, line := range a.lines {
		out = append(out, line...)
	}
	return out
}

func escapeArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\n\"'\\#") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
