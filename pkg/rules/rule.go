// Package rules defines the immutable build rule and the rule index.
//
// A [Rule] is constructed once by [New] and never mutated. Variants of a rule
// (a flavored target) are distinct rules with their own targets. Instead of a
// class hierarchy, a rule carries a kind tag, a [Capability] bit set and one
// optional payload per capability; consumers dispatch on capabilities.
//
// Dependency edges are split by visibility:
//
//   - declared: used to build this rule, not exposed to dependents
//   - exported: forwarded onto dependents' compile classpath, transitively;
//     must be library rules
//   - provided: compile-time only, never on the runtime classpath
//
// Extra dependencies are neither: they are runtime-only or fingerprint-only
// inputs (for example a native library symlink tree).
package rules

import (
	"slices"

	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Capability is a bit set of what a rule provides.
type Capability uint16

const (
	// Library rules contribute paths to classpaths.
	Library Capability = 1 << iota
	// Sources rules carry source files.
	Sources
	// Maven rules carry publishable Maven coordinates.
	Maven
	// Test rules run tests.
	Test
	// NativeLinkable rules produce native libraries.
	NativeLinkable
	// Javadoc rules produce documentation archives.
	Javadoc
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{Library, "library"},
	{Sources, "sources"},
	{Maven, "maven"},
	{Test, "test"},
	{NativeLinkable, "native"},
	{Javadoc, "javadoc"},
}

// Has reports whether all of other's bits are set.
func (c Capability) Has(other Capability) bool { return c&other == other }

// Names returns the capability names in a fixed order.
func (c Capability) Names() []string {
	var out []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			out = append(out, n.name)
		}
	}
	return out
}

// LibraryInfo is the payload of the Library capability. All paths are absolute.
type LibraryInfo struct {
	// OutputJar is empty when the library has nothing to compile.
	OutputJar         string
	Resources         []string
	AdditionalEntries []string

	// Srcs are the compiled source files and ClassesDir the directory they
	// compile into. Both are empty for prebuilt and derived jars.
	Srcs       []string
	ClassesDir string
}

// TestInfo is the payload of the Test capability.
type TestInfo struct {
	// TestsLibrary is the compiled tests library the test runs from.
	TestsLibrary    target.BuildTarget
	SourceUnderTest []target.BuildTarget
	Labels          []string
	Contacts        []string
	VMArgs          []string
	TimeoutMS       int64
	Env             map[string]string
}

// NativeInfo is the payload of the NativeLinkable capability.
type NativeInfo struct {
	// SharedLib is the absolute path of the shared library (or, for a symlink
	// tree, its root directory).
	SharedLib string
	SOName    string
}

// JavadocInfo is the payload of the Javadoc capability.
type JavadocInfo struct {
	Args []string
}

// Rule is an immutable node of the rule graph.
type Rule struct {
	target target.BuildTarget
	kind   string
	caps   Capability

	declared []*Rule
	exported []*Rule
	provided []*Rule
	extra    []*Rule

	fields  []rulekey.Field
	output  string
	sources []string
	maven   string

	library *LibraryInfo
	test    *TestInfo
	native  *NativeInfo
	javadoc *JavadocInfo
}

// Target returns the rule's build target.
func (r *Rule) Target() target.BuildTarget { return r.target }

// Kind returns the rule-kind tag, e.g. "java_library".
func (r *Rule) Kind() string { return r.kind }

// Capabilities returns the rule's capability set.
func (r *Rule) Capabilities() Capability { return r.caps }

// Is reports whether the rule has capability c.
func (r *Rule) Is(c Capability) bool { return r.caps.Has(c) }

// Declared returns the declared deps, including deps forwarded by their
// exported closure, sorted by target.
func (r *Rule) Declared() []*Rule { return slices.Clone(r.declared) }

// Exported returns the exported deps as given, sorted by target.
func (r *Rule) Exported() []*Rule { return slices.Clone(r.exported) }

// Provided returns the provided deps, including their exported closure, sorted by target.
func (r *Rule) Provided() []*Rule { return slices.Clone(r.provided) }

// Extra returns the runtime-only and fingerprint-only deps, sorted by target.
func (r *Rule) Extra() []*Rule { return slices.Clone(r.extra) }

// Deps returns every dependency of the rule, sorted by target and unique.
func (r *Rule) Deps() []*Rule {
	return Union(r.declared, r.exported, r.provided, r.extra)
}

// Fields returns the rule's bound rule-key fields.
func (r *Rule) Fields() []rulekey.Field { return r.fields }

// KeyDeps implements rulekey.Rule.
func (r *Rule) KeyDeps() []rulekey.Rule {
	deps := r.Deps()
	out := make([]rulekey.Rule, len(deps))
	for i, d := range deps {
		out[i] = d
	}
	return out
}

// Output returns the absolute path of the rule's primary output, or "".
func (r *Rule) Output() string { return r.output }

// SourcePaths returns the rule's absolute source paths, sorted.
func (r *Rule) SourcePaths() []string { return slices.Clone(r.sources) }

// MavenCoords returns the rule's Maven coordinates, or "".
func (r *Rule) MavenCoords() string { return r.maven }

// Library returns the Library payload, or nil.
func (r *Rule) Library() *LibraryInfo { return r.library }

// TestInfo returns the Test payload, or nil.
func (r *Rule) TestInfo() *TestInfo { return r.test }

// Native returns the NativeLinkable payload, or nil.
func (r *Rule) Native() *NativeInfo { return r.native }

// JavadocInfo returns the Javadoc payload, or nil.
func (r *Rule) JavadocInfo() *JavadocInfo { return r.javadoc }

// String returns the rule's target.
func (r *Rule) String() string { return r.target.String() }

var _ rulekey.Rule = (*Rule)(nil)
