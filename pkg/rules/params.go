package rules

import (
	"slices"

	"github.com/matzehuels/rulegraph/pkg/target"
)

// Params are the construction parameters a description receives for one
// target: the target, the resolved dependency split and any extra deps.
// Params are values; the With* methods return modified copies.
type Params struct {
	Target target.BuildTarget
	Kind   string
	Deps   DepSpec
	Extra  []*Rule
}

// WithTarget returns a copy of p for another target.
func (p Params) WithTarget(t target.BuildTarget) Params {
	p.Target = t
	return p
}

// WithFlavor returns a copy of p whose target has f appended.
func (p Params) WithFlavor(f target.Flavor) Params {
	return p.WithTarget(p.Target.WithAppendedFlavors(f))
}

// WithoutFlavor returns a copy of p whose target has f removed.
func (p Params) WithoutFlavor(f target.Flavor) Params {
	return p.WithTarget(p.Target.WithoutFlavors(f))
}

// WithKind returns a copy of p for another rule kind.
func (p Params) WithKind(kind string) Params {
	p.Kind = kind
	return p
}

// WithDeps returns a copy of p with the given dependency split and no extra deps.
func (p Params) WithDeps(deps DepSpec) Params {
	p.Deps = cloneSpec(deps)
	p.Extra = nil
	return p
}

// AppendExtra returns a copy of p with rs added to the extra deps.
func (p Params) AppendExtra(rs ...*Rule) Params {
	p.Extra = append(slices.Clone(p.Extra), rs...)
	return p
}

// Spec starts a rule spec from the params.
func (p Params) Spec(caps Capability) Spec {
	return Spec{
		Target:       p.Target,
		Kind:         p.Kind,
		Capabilities: caps,
		Deps:         cloneSpec(p.Deps),
		Extra:        slices.Clone(p.Extra),
	}
}

// AllDeps returns the declared, exported, provided and extra deps of p, sorted and unique.
func (p Params) AllDeps() []*Rule {
	return Union(p.Deps.Declared, p.Deps.Exported, p.Deps.Provided, p.Extra)
}

func cloneSpec(d DepSpec) DepSpec {
	return DepSpec{
		Declared: slices.Clone(d.Declared),
		Exported: slices.Clone(d.Exported),
		Provided: slices.Clone(d.Provided),
	}
}
