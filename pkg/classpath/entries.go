package classpath

import (
	"os"
	"slices"
	"strings"

	"github.com/matzehuels/rulegraph/pkg/target"
)

// Entry is the set of paths one library rule contributes.
type Entry struct {
	Owner target.BuildTarget
	Paths []string
}

// Entries maps owning library rules to their paths. Entries are ordered by
// owner target and each entry's paths are sorted and unique, so iteration
// order never depends on construction order.
type Entries []Entry

// Owners returns the owning targets in order.
func (e Entries) Owners() []target.BuildTarget {
	out := make([]target.BuildTarget, len(e))
	for i, en := range e {
		out[i] = en.Owner
	}
	return out
}

// Get returns the paths contributed by owner.
func (e Entries) Get(owner target.BuildTarget) []string {
	i, ok := slices.BinarySearchFunc(e, owner, func(en Entry, t target.BuildTarget) int {
		return target.Compare(en.Owner, t)
	})
	if !ok {
		return nil
	}
	return e[i].Paths
}

// Paths flattens the entries into one de-duplicated path list, in owner
// order and then path order.
func (e Entries) Paths() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, en := range e {
		for _, p := range en.Paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Arg returns the classpath argument: Paths joined with the platform path
// list separator.
func (e Entries) Arg() string {
	return Join(e.Paths())
}

// Join joins classpath paths with the platform path list separator.
func Join(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}

// Len returns the number of owners.
func (e Entries) Len() int { return len(e) }

// builder accumulates entries keyed by owner.
type builder map[target.BuildTarget][]string

func (b builder) add(owner target.BuildTarget, paths ...string) {
	if len(paths) == 0 {
		return
	}
	b[owner] = append(b[owner], paths...)
}

func (b builder) merge(e Entries) {
	for _, en := range e {
		b.add(en.Owner, en.Paths...)
	}
}

func (b builder) build() Entries {
	out := make(Entries, 0, len(b))
	for owner, paths := range b {
		ps := slices.Clone(paths)
		slices.Sort(ps)
		out = append(out, Entry{Owner: owner, Paths: slices.Compact(ps)})
	}
	slices.SortFunc(out, func(a, b Entry) int { return target.Compare(a.Owner, b.Owner) })
	return out
}
