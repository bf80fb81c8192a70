// Package macros expands build-target macros in rule arguments such as
// "java -cp $(classpath //app:app) Main".
//
// A macro is written "$(name args...)". Arguments are split with shell
// quoting rules and the target argument may be relative (":name") to the
// owner's package. The built-in macros are:
//
//   - classpath: the transitive classpath of a rule, path-list separated.
//   - srcs: the compiled sources of a library, space separated. A java_test
//     stands for its compiled tests library.
//   - bindir: the classes directory of a compiled library.
//
// Rules of unsupported types fail with INVALID_MACRO.
package macros

import (
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Expander expands a macro whose single argument names r.
type Expander interface {
	Expand(bc *description.Context, r *rules.Rule) (string, error)
}

// ExpanderFunc adapts a function to [Expander].
type ExpanderFunc func(bc *description.Context, r *rules.Rule) (string, error)

func (f ExpanderFunc) Expand(bc *description.Context, r *rules.Rule) (string, error) {
	return f(bc, r)
}

// Handler expands the macros of one build context.
type Handler struct {
	bc        *description.Context
	expanders map[string]Expander
}

// NewHandler creates a handler with the built-in macros.
func NewHandler(bc *description.Context) *Handler {
	return &Handler{
		bc: bc,
		expanders: map[string]Expander{
			"classpath": ExpanderFunc(expandClasspath),
			"srcs":      ExpanderFunc(expandSrcs),
			"bindir":    ExpanderFunc(expandBinDir),
		},
	}
}

// With returns a copy of h with e registered under name, replacing any
// existing macro of that name.
func (h *Handler) With(name string, e Expander) *Handler {
	expanders := make(map[string]Expander, len(h.expanders)+1)
	for k, v := range h.expanders {
		expanders[k] = v
	}
	expanders[name] = e
	return &Handler{bc: h.bc, expanders: expanders}
}

// Expand replaces every macro in s. Target arguments are resolved relative
// to owner and must name registered rules. "\$" escapes a literal "$".
func (h *Handler) Expand(owner target.BuildTarget, s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], `\$`):
			b.WriteByte('$')
			i += 2
		case strings.HasPrefix(s[i:], "$("):
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				return "", errors.New(errors.ErrCodeInvalidMacro, "%s: unterminated macro in %q", owner, s)
			}
			out, err := h.expandOne(owner, s[i+2:i+end])
			if err != nil {
				return "", err
			}
			b.WriteString(out)
			i += end + 1
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// ExpandAll expands each of args.
func (h *Handler) ExpandAll(owner target.BuildTarget, args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		var err error
		if out[i], err = h.Expand(owner, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Targets returns the targets referenced by macros in s, in order of
// appearance. Callers use it to add macro targets as dependencies.
func (h *Handler) Targets(owner target.BuildTarget, s string) ([]target.BuildTarget, error) {
	var out []target.BuildTarget
	for rest := s; ; {
		start := strings.Index(rest, "$(")
		if start < 0 {
			return out, nil
		}
		if start > 0 && rest[start-1] == '\\' {
			rest = rest[start+2:]
			continue
		}
		end := strings.IndexByte(rest[start:], ')')
		if end < 0 {
			return nil, errors.New(errors.ErrCodeInvalidMacro, "%s: unterminated macro in %q", owner, s)
		}
		_, t, err := h.parse(owner, rest[start+2:start+end])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		rest = rest[start+end+1:]
	}
}

func (h *Handler) expandOne(owner target.BuildTarget, body string) (string, error) {
	e, t, err := h.parse(owner, body)
	if err != nil {
		return "", err
	}
	r, err := h.bc.Index.Rule(t)
	if err != nil {
		return "", err
	}
	return e.Expand(h.bc, r)
}

func (h *Handler) parse(owner target.BuildTarget, body string) (Expander, target.BuildTarget, error) {
	words, err := shellwords.Parse(body)
	if err != nil {
		return nil, target.BuildTarget{}, errors.Wrap(errors.ErrCodeInvalidMacro, err, "%s: macro $(%s)", owner, body)
	}
	if len(words) == 0 {
		return nil, target.BuildTarget{}, errors.New(errors.ErrCodeInvalidMacro, "%s: empty macro", owner)
	}
	e, ok := h.expanders[words[0]]
	if !ok {
		return nil, target.BuildTarget{}, errors.New(errors.ErrCodeInvalidMacro, "%s: unrecognized macro %q", owner, words[0])
	}
	if len(words) != 2 {
		return nil, target.BuildTarget{}, errors.New(errors.ErrCodeInvalidMacro, "%s: macro %s expects one target argument, got %d", owner, words[0], len(words)-1)
	}
	t, err := description.ResolveTarget(owner, words[1])
	if err != nil {
		return nil, target.BuildTarget{}, errors.Wrap(errors.ErrCodeInvalidMacro, err, "%s: macro %s", owner, words[0])
	}
	return e, t, nil
}

func expandClasspath(bc *description.Context, r *rules.Rule) (string, error) {
	cp := bc.Classpath.TransitiveClasspath(r)
	if cp.Len() == 0 {
		return "", errors.New(errors.ErrCodeInvalidMacro, "%s used in classpath macro does not have classpath entries", r.Target())
	}
	return cp.Arg(), nil
}

func expandSrcs(bc *description.Context, r *rules.Rule) (string, error) {
	if info := r.TestInfo(); info != nil {
		lib, err := bc.Index.Rule(info.TestsLibrary)
		if err != nil {
			return "", err
		}
		r = lib
	}
	if lib := r.Library(); lib != nil && r.Is(rules.Sources) {
		return strings.Join(lib.Srcs, " "), nil
	}
	return "", unsupported("srcs", r)
}

func expandBinDir(bc *description.Context, r *rules.Rule) (string, error) {
	if lib := r.Library(); lib != nil && lib.ClassesDir != "" {
		return lib.ClassesDir, nil
	}
	return "", unsupported("bin directory", r)
}

func unsupported(macro string, r *rules.Rule) error {
	return errors.New(errors.ErrCodeInvalidMacro, "%s used in %s macro is of unsupported type: %s", r.Target(), macro, r.Kind())
}
