package plugin

import (
	"context"
	"maps"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// pluginDescription is a rule kind contributed by a plugin. It constructs
// rules through its base description under its own kind tag, with the
// argument defaults evaluated by its constructor.
type pluginDescription struct {
	kind     string
	base     description.Description
	defaults map[string]any
	schema   *rulekey.Schema
}

func newDescription(kind string, base description.Description, defaults map[string]any) *pluginDescription {
	merged := map[string]any{}
	if df, ok := base.(description.Defaulter); ok {
		maps.Copy(merged, df.Defaults())
	}
	maps.Copy(merged, defaults)
	return &pluginDescription{
		kind:     kind,
		base:     base,
		defaults: merged,
		schema:   base.Schema().Rename(kind),
	}
}

func (d *pluginDescription) Kind() string              { return d.kind }
func (d *pluginDescription) Flavors() target.FlavorSet { return d.base.Flavors() }
func (d *pluginDescription) Schema() *rulekey.Schema   { return d.schema }
func (d *pluginDescription) NewArg() any               { return d.base.NewArg() }
func (d *pluginDescription) Defaults() map[string]any  { return maps.Clone(d.defaults) }

// Base returns the description d builds on.
func (d *pluginDescription) Base() description.Description { return d.base }

func (d *pluginDescription) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	return d.base.CreateRule(ctx, bc, params.WithKind(d.kind), arg)
}

func (d *pluginDescription) Recipes() []description.Recipe {
	if f, ok := d.base.(description.Flavored); ok {
		return f.Recipes()
	}
	return nil
}

func (d *pluginDescription) Auxiliaries() []description.Builder {
	if a, ok := d.base.(description.Auxiliary); ok {
		return a.Auxiliaries()
	}
	return nil
}

func (d *pluginDescription) Enhance(ctx context.Context, bc *description.Context, params rules.Params, arg any) (rules.Params, error) {
	if e, ok := d.base.(description.Enhancer); ok {
		return e.Enhance(ctx, bc, params, arg)
	}
	return params, nil
}
