// Package target defines build target identifiers and flavors.
//
// A build target names a rule: "//java/com/example:lib". A target may carry an
// ordered set of flavors, appended after '#': "//java/com/example:lib#abi,maven-jar".
// Flavors select a variant of the base rule. Two targets that differ only in
// their flavors are distinct rules that share a base identity (see
// [BuildTarget.Unflavored]).
//
// BuildTarget values are comparable and can be used as map keys. Flavors are
// kept in canonical (sorted, de-duplicated) form, so the string form of a
// target is a total order usable for deterministic iteration.
package target

import (
	"slices"
	"strings"

	"github.com/matzehuels/rulegraph/pkg/errors"
)

// Flavor is an opaque tag appended to a target to request a rule variant.
type Flavor string

// Well-known flavors understood by the built-in descriptions.
const (
	// MavenJar requests a jar repackaged for Maven publication.
	MavenJar Flavor = "maven-jar"
	// ABI requests an ABI-only jar of a compiled library.
	ABI Flavor = "abi"
	// CompiledTests marks the library that holds a test rule's compiled sources.
	CompiledTests Flavor = "testsjar"
	// NativeLibs marks the symlink tree of native libraries needed by a test.
	NativeLibs Flavor = "native-libs"
)

const (
	rootPrefix     = "//"
	nameSep        = ":"
	flavorSep      = "#"
	flavorListSep  = ","
	maxTargetChars = 1024
)

// BuildTarget identifies a rule by base path, short name and flavor set.
// The zero value is invalid; use [New] or [Parse].
type BuildTarget struct {
	base    string // "java/com/example" (no leading //)
	name    string // "lib"
	flavors string // canonical, comma-joined
}

// New creates a target from its components. The base path may be given with or
// without the leading "//". Flavors are canonicalized. New panics with an
// internal error if a flavor contains "," or "#".
func New(base, name string, flavors ...Flavor) BuildTarget {
	return BuildTarget{
		base:    strings.TrimPrefix(base, rootPrefix),
		name:    name,
		flavors: canonical(flavors),
	}
}

// Parse parses a fully qualified target string such as "//a/b:c#f1,f2".
// Returns an INVALID_TARGET error if the string is malformed.
func Parse(s string) (BuildTarget, error) {
	if len(s) > maxTargetChars {
		return BuildTarget{}, errors.New(errors.ErrCodeInvalidTarget, "target too long (max %d characters)", maxTargetChars)
	}
	if !strings.HasPrefix(s, rootPrefix) {
		return BuildTarget{}, errors.New(errors.ErrCodeInvalidTarget, "target %q must start with //", s)
	}
	rest := strings.TrimPrefix(s, rootPrefix)

	var flavorPart string
	hasFlavors := false
	if i := strings.Index(rest, flavorSep); i >= 0 {
		rest, flavorPart, hasFlavors = rest[:i], rest[i+1:], true
	}

	i := strings.LastIndex(rest, nameSep)
	if i < 0 {
		return BuildTarget{}, errors.New(errors.ErrCodeInvalidTarget, "target %q has no ':name' part", s)
	}
	base, name := rest[:i], rest[i+1:]
	if name == "" {
		return BuildTarget{}, errors.New(errors.ErrCodeInvalidTarget, "target %q has an empty name", s)
	}
	if strings.Contains(base, "..") || strings.Contains(base, "//") || strings.ContainsAny(name, "/#") {
		return BuildTarget{}, errors.New(errors.ErrCodeInvalidTarget, "target %q contains invalid characters", s)
	}

	var flavors []Flavor
	if hasFlavors {
		for _, f := range strings.Split(flavorPart, flavorListSep) {
			if f == "" || strings.Contains(f, flavorSep) {
				return BuildTarget{}, errors.New(errors.ErrCodeInvalidTarget, "target %q has an empty flavor", s)
			}
			flavors = append(flavors, Flavor(f))
		}
	}
	return New(base, name, flavors...), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level declarations.
func MustParse(s string) BuildTarget {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the canonical form "//base:name#f1,f2".
func (t BuildTarget) String() string {
	return rootPrefix + t.base + nameSep + t.ShortNameAndFlavorPostfix()
}

// IsZero reports whether t is the zero value.
func (t BuildTarget) IsZero() bool { return t == BuildTarget{} }

// BasePath returns the package path without the leading "//".
func (t BuildTarget) BasePath() string { return t.base }

// BaseNameWithSlash returns the base path with a trailing slash, or "" for the root package.
func (t BuildTarget) BaseNameWithSlash() string {
	if t.base == "" {
		return ""
	}
	return t.base + "/"
}

// ShortName returns the rule name without flavors.
func (t BuildTarget) ShortName() string { return t.name }

// ShortNameAndFlavorPostfix returns "name#f1,f2", or just "name" when unflavored.
func (t BuildTarget) ShortNameAndFlavorPostfix() string {
	if t.flavors == "" {
		return t.name
	}
	return t.name + flavorSep + t.flavors
}

// Flavors returns a copy of the sorted flavor set.
func (t BuildTarget) Flavors() []Flavor {
	if t.flavors == "" {
		return nil
	}
	parts := strings.Split(t.flavors, flavorListSep)
	out := make([]Flavor, len(parts))
	for i, p := range parts {
		out[i] = Flavor(p)
	}
	return out
}

// IsFlavored reports whether the target carries any flavor.
func (t BuildTarget) IsFlavored() bool { return t.flavors != "" }

// HasFlavor reports whether f is part of the target's flavor set.
func (t BuildTarget) HasFlavor(f Flavor) bool {
	return slices.Contains(t.Flavors(), f)
}

// WithFlavors returns a copy of t whose flavor set is exactly flavors.
func (t BuildTarget) WithFlavors(flavors ...Flavor) BuildTarget {
	t.flavors = canonical(flavors)
	return t
}

// WithAppendedFlavors returns a copy of t with flavors added to its set.
func (t BuildTarget) WithAppendedFlavors(flavors ...Flavor) BuildTarget {
	t.flavors = canonical(append(t.Flavors(), flavors...))
	return t
}

// WithoutFlavors returns a copy of t with the given flavors removed.
func (t BuildTarget) WithoutFlavors(flavors ...Flavor) BuildTarget {
	kept := slices.DeleteFunc(t.Flavors(), func(f Flavor) bool { return slices.Contains(flavors, f) })
	t.flavors = canonical(kept)
	return t
}

// Unflavored returns the base identity of t.
func (t BuildTarget) Unflavored() BuildTarget {
	t.flavors = ""
	return t
}

// Compare orders targets by their canonical string form.
func Compare(a, b BuildTarget) int {
	return strings.Compare(a.String(), b.String())
}

// FlavorSet is an unordered collection of flavors a description supports.
type FlavorSet map[Flavor]struct{}

// NewFlavorSet builds a set from the given flavors.
func NewFlavorSet(flavors ...Flavor) FlavorSet {
	s := make(FlavorSet, len(flavors))
	for _, f := range flavors {
		s[f] = struct{}{}
	}
	return s
}

// Contains reports whether f is in the set.
func (s FlavorSet) Contains(f Flavor) bool {
	_, ok := s[f]
	return ok
}

// ContainsAll reports whether every flavor is in the set. The empty request
// is always supported.
func (s FlavorSet) ContainsAll(flavors []Flavor) bool {
	for _, f := range flavors {
		if !s.Contains(f) {
			return false
		}
	}
	return true
}

// Sorted returns the flavors in canonical order.
func (s FlavorSet) Sorted() []Flavor {
	out := make([]Flavor, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func canonical(flavors []Flavor) string {
	if len(flavors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(flavors))
	for _, f := range flavors {
		if strings.ContainsAny(string(f), flavorListSep+flavorSep) {
			errors.Internal("flavor %q contains a separator", f)
		}
		if f != "" {
			parts = append(parts, string(f))
		}
	}
	slices.Sort(parts)
	parts = slices.Compact(parts)
	return strings.Join(parts, flavorListSep)
}
