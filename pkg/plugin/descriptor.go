package plugin

import (
	"github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/matzehuels/rulegraph/pkg/buildinfo"
	"github.com/matzehuels/rulegraph/pkg/errors"
)

// CandidatePattern selects the archive entries that hold rule descriptors.
const CandidatePattern = "**/*.rule.hcl"

// Constructor names, in order of preference.
const (
	ConstructorConfig  = "config"
	ConstructorDefault = "default"
)

// descriptorFile is the top-level structure of a *.rule.hcl entry:
//
//	requires_engine = ">= 1.2"
//
//	capability "android" {}
//
//	rule "android_library" {
//	  base       = "java_library"
//	  implements = ["description", "android"]
//
//	  constructor "config" {
//	    defaults = { source = config.java.source_level }
//	  }
//	  constructor "default" {
//	    defaults = { source = "7" }
//	  }
//	}
type descriptorFile struct {
	RequiresEngine *string            `hcl:"requires_engine,optional"`
	Capabilities   []*capabilityBlock `hcl:"capability,block"`
	Rules          []*ruleBlock       `hcl:"rule,block"`
}

type capabilityBlock struct {
	Name string `hcl:"name,label"`
}

type ruleBlock struct {
	Kind         string              `hcl:"kind,label"`
	Base         *string             `hcl:"base,optional"`
	Implements   []string            `hcl:"implements,optional"`
	Constructors []*constructorBlock `hcl:"constructor,block"`
}

type constructorBlock struct {
	Name     string         `hcl:"name,label"`
	Defaults hcl.Expression `hcl:"defaults,optional"`
}

// parseDescriptor decodes one descriptor entry into symbols. Constructor
// expressions are kept unevaluated until instantiation.
func parseDescriptor(archive, entry string, src []byte) ([]*Symbol, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, entry)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodePluginSymbol, diags, "%s!%s: parse", archive, entry)
	}
	var root descriptorFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodePluginSymbol, diags, "%s!%s: decode", archive, entry)
	}
	if root.RequiresEngine != nil {
		if err := checkEngine(*root.RequiresEngine); err != nil {
			return nil, errors.Wrap(errors.ErrCodePluginSymbol, err, "%s!%s", archive, entry)
		}
	}

	var out []*Symbol
	for _, c := range root.Capabilities {
		out = append(out, &Symbol{Name: c.Name, Kind: SymbolCapability, Archive: archive, Entry: entry})
	}
	for _, r := range root.Rules {
		s := &Symbol{
			Name:         r.Kind,
			Kind:         SymbolRule,
			Archive:      archive,
			Entry:        entry,
			Implements:   r.Implements,
			constructors: map[string]hcl.Expression{},
		}
		if r.Base != nil {
			s.Base = *r.Base
		}
		for _, c := range r.Constructors {
			if _, dup := s.constructors[c.Name]; dup {
				return nil, errors.New(errors.ErrCodePluginSymbol, "%s!%s: rule %s declares constructor %q twice", archive, entry, r.Kind, c.Name)
			}
			s.constructors[c.Name] = c.Defaults
		}
		out = append(out, s)
	}
	return out, nil
}

// checkEngine verifies the running engine satisfies constraint. Development
// builds satisfy every constraint.
func checkEngine(constraint string) error {
	cs, err := version.NewConstraint(constraint)
	if err != nil {
		return errors.Wrap(errors.ErrCodePluginSymbol, err, "invalid requires_engine %q", constraint)
	}
	if buildinfo.IsDev() {
		return nil
	}
	v, err := version.NewVersion(buildinfo.Version)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "engine version %q", buildinfo.Version)
	}
	if !cs.Check(v) {
		return errors.New(errors.ErrCodePluginSymbol, "requires engine %s, running %s", constraint, buildinfo.Version)
	}
	return nil
}
