// Package targetgraph holds the already-parsed target nodes of a project and
// turns them into rules.
//
// A [Graph] is a set of [Node] values, one per unflavored target, with their
// dependencies split by visibility. Graphs are read from JSON ([ReadJSON],
// [ImportJSON]) and written back with [WriteJSON]. A [Transformer] builds
// rules in dependency order through the flavored dispatcher; dependencies
// may name flavored targets, whose variants are built on demand.
package targetgraph

import (
	"maps"
	"slices"

	"github.com/matzehuels/rulegraph/pkg/dag"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Argument keys holding dependency references. They are lifted out of the
// construction arguments into the node's dependency split.
const (
	ArgDeps            = "deps"
	ArgExportedDeps    = "exported_deps"
	ArgProvidedDeps    = "provided_deps"
	ArgSourceUnderTest = "source_under_test"
)

// Edge visibilities recorded on DAG edges.
const (
	VisibilityDeclared = "declared"
	VisibilityExported = "exported"
	VisibilityProvided = "provided"
	VisibilityTest     = "source_under_test"
)

// Node is one target as written in a build file.
type Node struct {
	Target   target.BuildTarget
	Kind     string
	Args     map[string]any
	Declared []target.BuildTarget
	Exported []target.BuildTarget
	Provided []target.BuildTarget

	// UnderTest are the libraries a test targets. They are ordering edges
	// only; the test description resolves them from Args.
	UnderTest []target.BuildTarget
}

// Deps returns every target n references, sorted and unique.
func (n *Node) Deps() []target.BuildTarget {
	out := slices.Concat(n.Declared, n.Exported, n.Provided, n.UnderTest)
	slices.SortFunc(out, target.Compare)
	return slices.Compact(out)
}

// Graph is the set of target nodes of one invocation.
type Graph struct {
	nodes map[target.BuildTarget]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: map[target.BuildTarget]*Node{}}
}

// Add inserts n. Node targets must be unflavored and unique.
func (g *Graph) Add(n *Node) error {
	if n.Target.IsFlavored() {
		return errors.New(errors.ErrCodeInvalidTarget, "%s: node targets must not carry flavors", n.Target)
	}
	if _, ok := g.nodes[n.Target]; ok {
		return errors.New(errors.ErrCodeDuplicateTarget, "%s: target already defined", n.Target)
	}
	if n.Args == nil {
		n.Args = map[string]any{}
	}
	g.nodes[n.Target] = n
	return nil
}

// Node returns the node defining t, ignoring t's flavors.
func (g *Graph) Node(t target.BuildTarget) (*Node, bool) {
	n, ok := g.nodes[t.Unflavored()]
	return n, ok
}

// Nodes returns all nodes sorted by target.
func (g *Graph) Nodes() []*Node {
	keys := slices.SortedFunc(maps.Keys(g.nodes), target.Compare)
	out := make([]*Node, len(keys))
	for i, k := range keys {
		out[i] = g.nodes[k]
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// DAG returns the dependency graph of the nodes. Every reference must name a
// defined node (UNKNOWN_TARGET otherwise). Edges carry their visibility in
// [dag.MetaVisibility] and nodes their kind in [dag.MetaKind].
func (g *Graph) DAG() (*dag.DAG, error) {
	d := dag.New(nil)
	for _, n := range g.Nodes() {
		if err := d.AddNode(dag.Node{ID: n.Target.String(), Meta: dag.Metadata{dag.MetaKind: n.Kind}}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "node %s", n.Target)
		}
	}
	for _, n := range g.Nodes() {
		for _, e := range []struct {
			visibility string
			deps       []target.BuildTarget
		}{
			{VisibilityDeclared, n.Declared},
			{VisibilityExported, n.Exported},
			{VisibilityProvided, n.Provided},
			{VisibilityTest, n.UnderTest},
		} {
			for _, dep := range e.deps {
				if _, ok := g.Node(dep); !ok {
					return nil, errors.New(errors.ErrCodeUnknownTarget, "%s: dependency %s is not defined", n.Target, dep)
				}
				edge := dag.Edge{
					From: n.Target.String(),
					To:   dep.Unflavored().String(),
					Meta: dag.Metadata{dag.MetaVisibility: e.visibility},
				}
				if err := d.AddEdge(edge); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInternal, err, "edge %s->%s", edge.From, edge.To)
				}
			}
		}
	}
	return d, nil
}

// Order returns the nodes reachable from roots (all nodes when roots is
// empty), dependencies first. A cycle is a DEPENDENCY_CYCLE error naming it.
func (g *Graph) Order(roots ...target.BuildTarget) ([]*Node, error) {
	d, err := g.DAG()
	if err != nil {
		return nil, err
	}
	if len(roots) > 0 {
		ids := make([]string, 0, len(roots))
		for _, r := range roots {
			n, ok := g.Node(r)
			if !ok {
				return nil, errors.New(errors.ErrCodeUnknownTarget, "%s: target is not defined", r)
			}
			ids = append(ids, n.Target.String())
		}
		d = d.Subgraph(d.Reachable(ids...))
	}
	order, err := d.TopoOrder()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDependencyCycle, err, "target graph is not acyclic")
	}
	out := make([]*Node, len(order))
	for i, id := range order {
		out[i], _ = g.Node(target.MustParse(id))
	}
	return out, nil
}

func (n *Node) depSpec(index *rules.Index) (rules.DepSpec, error) {
	var spec rules.DepSpec
	var err error
	if spec.Declared, err = lookup(index, n.Declared); err != nil {
		return spec, err
	}
	if spec.Exported, err = lookup(index, n.Exported); err != nil {
		return spec, err
	}
	if spec.Provided, err = lookup(index, n.Provided); err != nil {
		return spec, err
	}
	return spec, nil
}

func lookup(index *rules.Index, ts []target.BuildTarget) ([]*rules.Rule, error) {
	out := make([]*rules.Rule, 0, len(ts))
	for _, t := range ts {
		r, err := index.Rule(t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
