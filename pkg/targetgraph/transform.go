package targetgraph

import (
	"context"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/flavor"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Transformer builds the rules of a graph's targets into a build context.
// It is not safe for concurrent use.
type Transformer struct {
	graph *Graph
	known *description.Known
	disp  *flavor.Dispatcher
	args  map[target.BuildTarget]any

	active map[target.BuildTarget]bool
}

// NewTransformer creates a transformer for g resolving rule kinds in known
// and registering rules into bc.
func NewTransformer(g *Graph, known *description.Known, bc *description.Context) *Transformer {
	return &Transformer{
		graph: g,
		known: known,
		disp:  flavor.NewDispatcher(bc),
		args:  map[target.BuildTarget]any{},

		active: map[target.BuildTarget]bool{},
	}
}

// Context returns the build context rules are registered into.
func (tr *Transformer) Context() *description.Context { return tr.disp.Context() }

// Build constructs the rules for targets and everything they depend on, in
// dependency order, and returns the rules of targets. Targets may carry
// flavors. With no targets every node of the graph is built and the
// unflavored rules of all nodes are returned in target order.
func (tr *Transformer) Build(ctx context.Context, targets ...target.BuildTarget) ([]*rules.Rule, error) {
	order, err := tr.graph.Order(targets...)
	if err != nil {
		return nil, err
	}
	for _, n := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := tr.Require(ctx, n.Target); err != nil {
			return nil, err
		}
	}
	if len(targets) == 0 {
		for _, n := range tr.graph.Nodes() {
			targets = append(targets, n.Target)
		}
	}
	out := make([]*rules.Rule, 0, len(targets))
	for _, t := range targets {
		r, err := tr.Require(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Require returns the rule for t, building it if needed. The dependencies of
// t's node must already be built, except flavored variants of them, which are
// built here.
func (tr *Transformer) Require(ctx context.Context, t target.BuildTarget) (*rules.Rule, error) {
	bc := tr.disp.Context()
	if r, ok := bc.Index.Get(t); ok {
		return r, nil
	}
	n, ok := tr.graph.Node(t)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownTarget, "%s: target is not defined", t)
	}
	desc, ok := tr.known.Get(n.Kind)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownRuleKind, "%s: unknown rule kind %q", n.Target, n.Kind)
	}
	if err := flavor.Validate(desc, t); err != nil {
		return nil, err
	}
	if tr.active[t] {
		return nil, errors.New(errors.ErrCodeDependencyCycle, "%s: target depends on itself", t)
	}
	tr.active[t] = true
	defer delete(tr.active, t)
	for _, dep := range n.Deps() {
		if _, err := tr.Require(ctx, dep); err != nil {
			return nil, err
		}
	}
	deps, err := n.depSpec(bc.Index)
	if err != nil {
		return nil, err
	}
	arg, err := tr.arg(desc, n)
	if err != nil {
		return nil, err
	}
	bc.Logger.Debug("building target", "target", t, "kind", n.Kind)
	return tr.disp.Dispatch(ctx, desc, rules.Params{Target: t, Deps: deps}, arg)
}

func (tr *Transformer) arg(desc description.Description, n *Node) (any, error) {
	if a, ok := tr.args[n.Target]; ok {
		return a, nil
	}
	a, err := description.DecodeArg(desc, n.Target, n.Args)
	if err != nil {
		return nil, err
	}
	tr.args[n.Target] = a
	return a, nil
}
