package plugin

import (
	"slices"

	"github.com/hashicorp/hcl/v2"

	"github.com/matzehuels/rulegraph/pkg/description"
)

// CapabilityDescription is the capability every rule description provides.
const CapabilityDescription = "description"

// SymbolKind distinguishes what a symbol stands for.
type SymbolKind int

const (
	// SymbolRule is a rule kind: a built-in description or a plugin rule block.
	SymbolRule SymbolKind = iota
	// SymbolCapability is a capability that rule symbols may implement.
	SymbolCapability
)

// Symbol is a named definition inside a namespace.
type Symbol struct {
	Name string
	Kind SymbolKind

	// Archive and Entry locate a plugin symbol; both are empty for engine symbols.
	Archive string
	Entry   string

	// Base names the rule symbol this rule extends; Implements names
	// capabilities. Both are resolved through the namespace chain.
	Base       string
	Implements []string

	constructors map[string]hcl.Expression

	// Set for engine rule symbols only.
	builtin description.Description

	// Set by resolution.
	base     *Symbol
	resolved bool
}

// IsBuiltin reports whether s is a compiled-in rule description.
func (s *Symbol) IsBuiltin() bool { return s.builtin != nil }

// Namespace is an isolation boundary for symbols. Lookups fall back to the
// parent namespace, so every plugin sees the engine's descriptions and
// capabilities, but symbols of one archive are invisible to the others.
type Namespace struct {
	name    string
	parent  *Namespace
	symbols map[string]*Symbol
}

// NewEngineNamespace returns the root namespace holding the known
// descriptions and the description capability.
func NewEngineNamespace(known *description.Known) *Namespace {
	ns := &Namespace{name: "engine", symbols: map[string]*Symbol{}}
	ns.symbols[CapabilityDescription] = &Symbol{Name: CapabilityDescription, Kind: SymbolCapability, resolved: true}
	if known != nil {
		for _, kind := range known.Kinds() {
			d, _ := known.Get(kind)
			ns.symbols[kind] = &Symbol{Name: kind, Kind: SymbolRule, builtin: d, resolved: true}
		}
	}
	return ns
}

// Child returns an empty namespace whose parent is ns.
func (ns *Namespace) Child(name string) *Namespace {
	return &Namespace{name: name, parent: ns, symbols: map[string]*Symbol{}}
}

// Name returns the namespace name: "engine" or an archive path.
func (ns *Namespace) Name() string { return ns.name }

// Parent returns the parent namespace, nil for the engine namespace.
func (ns *Namespace) Parent() *Namespace { return ns.parent }

// Define adds s to ns. It reports false if ns itself already defines the name.
func (ns *Namespace) Define(s *Symbol) bool {
	if _, ok := ns.symbols[s.Name]; ok {
		return false
	}
	ns.symbols[s.Name] = s
	return true
}

// Lookup finds name in ns or its ancestors.
func (ns *Namespace) Lookup(name string) (*Symbol, bool) {
	for n := ns; n != nil; n = n.parent {
		if s, ok := n.symbols[name]; ok {
			return s, true
		}
	}
	return nil, false
}

// Symbols returns the names defined directly in ns, sorted.
func (ns *Namespace) Symbols() []string {
	out := make([]string, 0, len(ns.symbols))
	for name := range ns.symbols {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
