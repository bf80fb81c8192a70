package rules

import (
	"slices"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// DepSpec is the explicit dependency split of a rule before classification.
type DepSpec struct {
	Declared []*Rule
	Exported []*Rule
	Provided []*Rule
}

// Deps is a classified dependency split. Every slice is sorted by target and unique.
type Deps struct {
	Declared []*Rule
	Exported []*Rule
	Provided []*Rule
}

// ValidateExported checks that every exported dependency is a library.
// The error names the first offending dependency (in target order) and its kind.
func ValidateExported(owner target.BuildTarget, exported []*Rule) error {
	for _, dep := range sortUnique(exported) {
		if !dep.Is(Library) {
			return errors.New(errors.ErrCodeInvalidExportedDep,
				"%s: exported dep %s (%s) must be a type of java library", owner, dep.Target(), dep.Kind())
		}
	}
	return nil
}

// ExportedRules returns the transitive exported closure of rs: the rules
// exported by rs, the rules those export, and so on. rs themselves are only
// included if reachable through an exported edge.
func ExportedRules(rs ...*Rule) []*Rule {
	seen := make(map[target.BuildTarget]*Rule)
	var visit func(r *Rule)
	visit = func(r *Rule) {
		for _, e := range r.exported {
			if _, ok := seen[e.target]; ok {
				continue
			}
			seen[e.target] = e
			visit(e)
		}
	}
	for _, r := range rs {
		visit(r)
	}
	out := make([]*Rule, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	return sortUnique(out)
}

// Classify validates spec and applies exported-dependency forwarding:
// declared deps gain the exported closure of the declared deps, and provided
// deps gain the exported closure of the provided deps.
func Classify(owner target.BuildTarget, spec DepSpec) (Deps, error) {
	if err := ValidateExported(owner, spec.Exported); err != nil {
		return Deps{}, err
	}
	return Deps{
		Declared: Union(spec.Declared, ExportedRules(spec.Declared...)),
		Exported: sortUnique(spec.Exported),
		Provided: Union(spec.Provided, ExportedRules(spec.Provided...)),
	}, nil
}

// Union merges rule lists into one sorted, unique list.
func Union(lists ...[]*Rule) []*Rule {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]*Rule, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return sortUnique(out)
}

// Filter returns the rules in rs that have capability c.
func Filter(rs []*Rule, c Capability) []*Rule {
	var out []*Rule
	for _, r := range rs {
		if r.Is(c) {
			out = append(out, r)
		}
	}
	return out
}

// Targets returns the targets of rs.
func Targets(rs []*Rule) []target.BuildTarget {
	out := make([]target.BuildTarget, len(rs))
	for i, r := range rs {
		out[i] = r.target
	}
	return out
}

func compareRules(a, b *Rule) int { return target.Compare(a.target, b.target) }

func sortUnique(rs []*Rule) []*Rule {
	out := slices.Clone(rs)
	out = slices.DeleteFunc(out, func(r *Rule) bool { return r == nil })
	slices.SortFunc(out, compareRules)
	return slices.CompactFunc(out, func(a, b *Rule) bool { return a.target == b.target })
}
