// Package flavor builds the rules requested for a (target, flavor set) pair.
//
// The [Dispatcher] validates the requested flavors against what the rule kind
// supports, then follows the description's recipe for any special flavor:
//
//  1. Unsupported flavors fail with INVALID_FLAVOR before any rule exists.
//  2. A stripping recipe builds the primary rule under the target without
//     the special flavor first (or reuses it from the index).
//  3. Auxiliary rules of the recipe are built and registered.
//  4. The flavored variant is built on top of the primary rule.
//
// Enhancers run on the construction params before the primary rule is
// created, and descriptions with auxiliaries get those built and registered
// right after their primary rule.
package flavor

import (
	"context"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Dispatcher builds rules into a build context.
type Dispatcher struct {
	bc *description.Context
}

// NewDispatcher creates a dispatcher registering rules into bc.
func NewDispatcher(bc *description.Context) *Dispatcher {
	return &Dispatcher{bc: bc}
}

// Context returns the dispatcher's build context.
func (d *Dispatcher) Context() *description.Context { return d.bc }

// Dispatch returns the rule for params.Target, building it (and any primary
// and auxiliary rules it implies) if the index does not hold it yet.
func (d *Dispatcher) Dispatch(ctx context.Context, desc description.Description, params rules.Params, arg any) (*rules.Rule, error) {
	if err := Validate(desc, params.Target); err != nil {
		return nil, err
	}
	params.Kind = desc.Kind()
	return d.dispatch(ctx, desc, params, arg)
}

// Validate checks that every flavor of t is supported by desc.
func Validate(desc description.Description, t target.BuildTarget) error {
	flavors := t.Flavors()
	if desc.Flavors().ContainsAll(flavors) {
		return nil
	}
	var unsupported []target.Flavor
	for _, f := range flavors {
		if !desc.Flavors().Contains(f) {
			unsupported = append(unsupported, f)
		}
	}
	return errors.New(errors.ErrCodeInvalidFlavor,
		"%s: unsupported flavors %v for rule kind %s (supported: %v)",
		t, unsupported, desc.Kind(), desc.Flavors().Sorted())
}

func (d *Dispatcher) dispatch(ctx context.Context, desc description.Description, params rules.Params, arg any) (*rules.Rule, error) {
	if existing, ok := d.bc.Index.Get(params.Target); ok {
		return existing, nil
	}

	recipe, ok := description.RecipeFor(desc, params.Target.Flavors())
	if !ok {
		return d.buildPrimary(ctx, desc, params, arg)
	}

	var primary *rules.Rule
	primaryParams := params
	if recipe.Strip {
		primaryParams = params.WithoutFlavor(recipe.Flavor)
		var err error
		if primary, err = d.dispatch(ctx, desc, primaryParams, arg); err != nil {
			return nil, err
		}
	}

	for _, build := range recipe.Aux {
		if _, err := d.buildAndRegister(ctx, build, primaryParams, primary, arg); err != nil {
			return nil, err
		}
	}

	if recipe.Variant == nil {
		return nil, errors.New(errors.ErrCodeInternal, "%s: recipe for flavor %s has no variant", desc.Kind(), recipe.Flavor)
	}
	d.bc.Logger.Debug("building flavored variant", "target", params.Target, "flavor", recipe.Flavor)
	return d.buildAndRegister(ctx, recipe.Variant, params, primary, arg)
}

func (d *Dispatcher) buildPrimary(ctx context.Context, desc description.Description, params rules.Params, arg any) (*rules.Rule, error) {
	if e, ok := desc.(description.Enhancer); ok {
		enhanced, err := e.Enhance(ctx, d.bc, params, arg)
		if err != nil {
			return nil, err
		}
		params = enhanced
	}

	r, err := desc.CreateRule(ctx, d.bc, params, arg)
	if err != nil {
		return nil, err
	}
	if err := checkTarget(r, params.Target); err != nil {
		return nil, err
	}
	if err := d.bc.Register(r); err != nil {
		return nil, err
	}

	if a, ok := desc.(description.Auxiliary); ok {
		for _, build := range a.Auxiliaries() {
			if _, err := d.buildAndRegister(ctx, build, params, r, arg); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (d *Dispatcher) buildAndRegister(ctx context.Context, build description.Builder, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
	r, err := build(ctx, d.bc, params, primary, arg)
	if err != nil {
		return nil, err
	}
	if existing, ok := d.bc.Index.Get(r.Target()); ok {
		return existing, nil
	}
	if err := d.bc.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

func checkTarget(r *rules.Rule, want target.BuildTarget) error {
	if r.Target() != want {
		return errors.New(errors.ErrCodeInternal, "description built %s for %s", r.Target(), want)
	}
	return nil
}
