package description

import (
	"slices"

	"github.com/matzehuels/rulegraph/pkg/errors"
)

// SourceBuiltin is the origin reported for compiled-in descriptions.
const SourceBuiltin = "builtin"

// Known is the set of constructible rule kinds. It is populated once at
// start-up (built-ins, then plugins) and read-only afterwards.
type Known struct {
	byKind  map[string]Description
	sources map[string]string
}

// NewKnown creates a set holding the given built-in descriptions.
func NewKnown(builtins ...Description) (*Known, error) {
	k := &Known{byKind: map[string]Description{}, sources: map[string]string{}}
	for _, d := range builtins {
		if err := k.Register(d, SourceBuiltin); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Register adds d, recording where it came from. Registering a kind twice is
// a PLUGIN_DUPLICATE error and leaves the first registration in place.
func (k *Known) Register(d Description, source string) error {
	kind := d.Kind()
	if prev, ok := k.sources[kind]; ok {
		return errors.New(errors.ErrCodePluginDuplicate, "rule kind %s from %s is already registered by %s", kind, source, prev)
	}
	k.byKind[kind] = d
	k.sources[kind] = source
	return nil
}

// Get returns the description for kind.
func (k *Known) Get(kind string) (Description, bool) {
	d, ok := k.byKind[kind]
	return d, ok
}

// Lookup returns the description for kind or an UNKNOWN_RULE_KIND error.
func (k *Known) Lookup(kind string) (Description, error) {
	if d, ok := k.byKind[kind]; ok {
		return d, nil
	}
	return nil, errors.New(errors.ErrCodeUnknownRuleKind, "unknown rule kind %q", kind)
}

// Source returns where kind was registered from: SourceBuiltin or an archive path.
func (k *Known) Source(kind string) string { return k.sources[kind] }

// Kinds returns every registered kind, sorted.
func (k *Known) Kinds() []string {
	out := make([]string, 0, len(k.byKind))
	for kind := range k.byKind {
		out = append(out, kind)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of registered kinds.
func (k *Known) Len() int { return len(k.byKind) }
