// Package classpath computes the classpath views of library rules.
//
// A [Resolver] exposes four views per rule, each a pure function of the rule
// graph and each memoized independently for the resolver's lifetime (one
// build invocation):
//
//   - OutputClasspath: the paths the rule itself contributes (output jar,
//     resource roots, additional entries). Not transitive.
//   - DeclaredClasspath: the output classpath of each direct declared,
//     exported or provided library dep. One hop; this is what compiling the
//     rule's own sources needs.
//   - TransitiveClasspath: the rule's own output plus that of every library
//     reachable over declared and exported edges. Provided deps are not
//     followed. Keyed by owning library so diamonds collapse.
//   - TransitiveClasspathDeps: the library rules reachable the same way.
//
// Views are safe for concurrent use. Each is computed at most once per rule,
// even under concurrent first access. Returned values are shared and must
// not be modified.
package classpath

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/memo"
	"github.com/matzehuels/rulegraph/pkg/observability"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// View names, as reported to observability hooks.
const (
	ViewOutput         = "output"
	ViewDeclared       = "declared"
	ViewTransitive     = "transitive"
	ViewTransitiveDeps = "transitive_deps"
)

// Resolver computes memoized classpath views over the rules of an index.
type Resolver struct {
	index *rules.Index

	output         memo.Table[target.BuildTarget, []string]
	declared       memo.Table[target.BuildTarget, Entries]
	transitive     memo.Table[target.BuildTarget, Entries]
	transitiveDeps memo.Table[target.BuildTarget, []*rules.Rule]
}

// NewResolver creates a resolver over index. The index must be fully
// populated before views are requested.
func NewResolver(index *rules.Index) *Resolver {
	return &Resolver{index: index}
}

// OutputClasspath returns the absolute paths r contributes, sorted.
func (res *Resolver) OutputClasspath(r *rules.Rule) []string {
	res.mustBeIndexed(r)
	return res.output.Get(r.Target(), func() []string {
		start := time.Now()
		b := builder{}
		if lib := r.Library(); lib != nil {
			if lib.OutputJar != "" {
				b.add(r.Target(), lib.OutputJar)
			}
			b.add(r.Target(), lib.Resources...)
			b.add(r.Target(), lib.AdditionalEntries...)
		}
		out := b.build().Get(r.Target())
		report(ViewOutput, r, len(out), start)
		return out
	})
}

// DeclaredClasspath returns the output classpath of each direct declared,
// exported or provided library dependency of r.
func (res *Resolver) DeclaredClasspath(r *rules.Rule) Entries {
	res.mustBeIndexed(r)
	return res.declared.Get(r.Target(), func() Entries {
		start := time.Now()
		out := res.OutputsOf(rules.Union(r.Declared(), r.Exported(), r.Provided()))
		report(ViewDeclared, r, len(out), start)
		return out
	})
}

// OutputsOf returns the output classpath of each library in deps, keyed by
// owner. It is the declared view of a rule that is still being constructed.
// The result is not memoized.
func (res *Resolver) OutputsOf(deps []*rules.Rule) Entries {
	b := builder{}
	for _, dep := range rules.Filter(deps, rules.Library) {
		b.add(dep.Target(), res.OutputClasspath(dep)...)
	}
	return b.build()
}

// TransitiveClasspath returns r's own output classpath plus that of every
// library reachable over declared and exported edges.
func (res *Resolver) TransitiveClasspath(r *rules.Rule) Entries {
	res.mustBeIndexed(r)
	return res.transitive.Get(r.Target(), func() Entries {
		start := time.Now()
		b := builder{}
		b.add(r.Target(), res.OutputClasspath(r)...)
		for _, dep := range runtimeDeps(r) {
			b.merge(res.TransitiveClasspath(dep))
		}
		out := b.build()
		report(ViewTransitive, r, len(out), start)
		return out
	})
}

// TransitiveClasspathDeps returns the library rules reachable from r over
// declared and exported edges, including r itself if it is a library,
// sorted by target.
func (res *Resolver) TransitiveClasspathDeps(r *rules.Rule) []*rules.Rule {
	res.mustBeIndexed(r)
	return res.transitiveDeps.Get(r.Target(), func() []*rules.Rule {
		start := time.Now()
		var all [][]*rules.Rule
		if r.Is(rules.Library) {
			all = append(all, []*rules.Rule{r})
		}
		for _, dep := range runtimeDeps(r) {
			all = append(all, res.TransitiveClasspathDeps(dep))
		}
		out := rules.Union(all...)
		report(ViewTransitiveDeps, r, len(out), start)
		return out
	})
}

// Warm computes every view of rs concurrently. It is typically called once
// after graph construction so later readers only hit memoized values.
func (res *Resolver) Warm(ctx context.Context, rs []*rules.Rule) error {
	for _, r := range rs {
		if !res.index.Contains(r) {
			return errors.New(errors.ErrCodeInternal, "%s: classpath requested for a rule that is not in the index", r.Target())
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, r := range rs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.OutputClasspath(r)
			res.DeclaredClasspath(r)
			res.TransitiveClasspath(r)
			res.TransitiveClasspathDeps(r)
			return nil
		})
	}
	return g.Wait()
}

func (res *Resolver) mustBeIndexed(r *rules.Rule) {
	if !res.index.Contains(r) {
		errors.Internal("%s: classpath requested for a rule that is not in the index", r.Target())
	}
}

// runtimeDeps are the library deps followed by the transitive views.
func runtimeDeps(r *rules.Rule) []*rules.Rule {
	return rules.Filter(rules.Union(r.Declared(), r.Exported()), rules.Library)
}

func report(view string, r *rules.Rule, n int, start time.Time) {
	observability.Resolver().OnViewComputed(view, r.Target().String(), n, time.Since(start))
}
