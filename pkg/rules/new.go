package rules

import (
	"slices"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Spec holds everything needed to construct a rule.
type Spec struct {
	Target       target.BuildTarget
	Kind         string
	Capabilities Capability
	Deps         DepSpec
	Extra        []*Rule
	Fields       []rulekey.Field

	Output      string
	Sources     []string
	MavenCoords string

	Library *LibraryInfo
	Test    *TestInfo
	Native  *NativeInfo
	Javadoc *JavadocInfo
}

// New classifies the spec's dependencies and constructs the rule. Validation
// happens before the rule value exists: on error no rule is returned.
func New(spec Spec) (*Rule, error) {
	if spec.Target.IsZero() {
		return nil, errors.New(errors.ErrCodeInvalidTarget, "rule of kind %q has no target", spec.Kind)
	}
	if spec.Kind == "" {
		return nil, errors.New(errors.ErrCodeUnknownRuleKind, "%s: rule has no kind", spec.Target)
	}
	if spec.Capabilities.Has(Library) && spec.Library == nil {
		spec.Library = &LibraryInfo{}
	}

	deps, err := Classify(spec.Target, spec.Deps)
	if err != nil {
		return nil, err
	}
	for _, d := range Union(deps.Declared, deps.Exported, deps.Provided, spec.Extra) {
		if d.target == spec.Target {
			return nil, errors.New(errors.ErrCodeDependencyCycle, "%s: rule depends on itself", spec.Target)
		}
	}

	r := &Rule{
		target:   spec.Target,
		kind:     spec.Kind,
		caps:     spec.Capabilities,
		declared: deps.Declared,
		exported: deps.Exported,
		provided: deps.Provided,
		extra:    sortUnique(spec.Extra),
		fields:   slices.Clone(spec.Fields),
		output:   spec.Output,
		maven:    spec.MavenCoords,
	}
	if len(spec.Sources) > 0 {
		r.sources = slices.Compact(slices.Sorted(slices.Values(spec.Sources)))
	}
	if spec.Library != nil {
		lib := *spec.Library
		lib.Resources = sortedPaths(lib.Resources)
		lib.AdditionalEntries = sortedPaths(lib.AdditionalEntries)
		lib.Srcs = sortedPaths(lib.Srcs)
		r.library = &lib
	}
	if spec.Test != nil {
		ti := *spec.Test
		r.test = &ti
	}
	if spec.Native != nil {
		ni := *spec.Native
		r.native = &ni
	}
	if spec.Javadoc != nil {
		ji := JavadocInfo{Args: slices.Clone(spec.Javadoc.Args)}
		r.javadoc = &ji
	}
	return r, nil
}

func sortedPaths(ps []string) []string {
	if len(ps) == 0 {
		return nil
	}
	return slices.Compact(slices.Sorted(slices.Values(ps)))
}
