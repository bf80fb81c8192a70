// Package description defines rule descriptions: the per-kind recipes that
// turn a target and its construction arguments into concrete rules.
//
// A [Description] knows its kind tag, the flavors it supports, the rule key
// schema of its rules and how to construct its primary rule. Optional
// interfaces extend it:
//
//   - [Flavored]: declares a [Recipe] per special flavor (e.g. "maven-jar"),
//     used by the flavored dispatcher to build variants.
//   - [Auxiliary]: declares rules built alongside every primary rule (e.g. the
//     ABI jar of a test's compiled library).
//   - [Enhancer]: rewrites the construction params before the primary rule is
//     finalized (e.g. adding native library symlink trees).
//
// Descriptions are registered in a [Known] set, merged from the built-in
// descriptions and those discovered in plugin archives.
package description

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/go-viper/mapstructure/v2"

	"github.com/matzehuels/rulegraph/pkg/classpath"
	"github.com/matzehuels/rulegraph/pkg/config"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Description constructs the rules of one rule kind.
type Description interface {
	// Kind is the rule-kind tag used in build files, e.g. "java_library".
	Kind() string

	// Flavors is the set of flavors a target of this kind may carry.
	Flavors() target.FlavorSet

	// Schema declares the rule key fields of the primary rule.
	Schema() *rulekey.Schema

	// NewArg returns a pointer to a zero construction argument, which is
	// filled by [DecodeArg].
	NewArg() any

	// CreateRule constructs the primary rule for params. It may register
	// helper rules in the context's index but must not register the returned
	// rule itself.
	CreateRule(ctx context.Context, bc *Context, params rules.Params, arg any) (*rules.Rule, error)
}

// Builder constructs a rule derived from a primary rule. primary is nil for
// recipes that do not strip their flavor.
type Builder func(ctx context.Context, bc *Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error)

// Recipe describes how a special flavor turns into rules.
type Recipe struct {
	// Flavor is the flavor the recipe handles.
	Flavor target.Flavor

	// Strip means the primary rule is built first under the target without
	// Flavor, so the variant's output never collides with it.
	Strip bool

	// Aux builds auxiliary rules after the primary rule. params carry the
	// primary (stripped) target.
	Aux []Builder

	// Variant builds the flavored rule itself. params carry the requested target.
	Variant Builder
}

// Flavored is implemented by descriptions with special flavors.
type Flavored interface {
	Recipes() []Recipe
}

// Auxiliary is implemented by descriptions that build extra rules alongside
// every primary rule.
type Auxiliary interface {
	Auxiliaries() []Builder
}

// Enhancer is implemented by descriptions that add environment-specific
// dependencies before the primary rule is finalized.
type Enhancer interface {
	Enhance(ctx context.Context, bc *Context, params rules.Params, arg any) (rules.Params, error)
}

// Defaulter is implemented by descriptions whose construction arguments
// have defaults, such as plugin descriptions layered over a built-in kind.
// Explicit arguments override defaults key by key.
type Defaulter interface {
	Defaults() map[string]any
}

// Context carries what descriptions need while building rules for one
// invocation.
type Context struct {
	Index     *rules.Index
	FS        *fsys.Filesystem
	Config    *config.Config
	Classpath *classpath.Resolver
	Logger    *log.Logger
}

// NewContext creates a build context with a fresh index and resolver.
// A nil config or logger is replaced by the defaults.
func NewContext(fs *fsys.Filesystem, cfg *config.Config, logger *log.Logger) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	index := rules.NewIndex()
	return &Context{
		Index:     index,
		FS:        fs,
		Config:    cfg,
		Classpath: classpath.NewResolver(index),
		Logger:    logger,
	}
}

// Register adds r to the index.
func (bc *Context) Register(r *rules.Rule) error {
	if err := bc.Index.Add(r); err != nil {
		return err
	}
	bc.Logger.Debug("registered rule", "target", r.Target(), "kind", r.Kind())
	return nil
}

// RegisterNew constructs a rule from spec and registers it, reusing an
// already registered rule for the same target.
func (bc *Context) RegisterNew(spec rules.Spec) (*rules.Rule, error) {
	if existing, ok := bc.Index.Get(spec.Target); ok {
		return existing, nil
	}
	r, err := rules.New(spec)
	if err != nil {
		return nil, err
	}
	if err := bc.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeArg decodes raw construction arguments into a fresh argument of d.
// Unknown keys are an INVALID_ARG error.
func DecodeArg(d Description, owner target.BuildTarget, raw map[string]any) (any, error) {
	if df, ok := d.(Defaulter); ok {
		merged := make(map[string]any, len(raw))
		for k, v := range df.Defaults() {
			merged[k] = v
		}
		for k, v := range raw {
			merged[k] = v
		}
		raw = merged
	}
	arg := d.NewArg()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           arg,
		TagName:          "arg",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "%s: arg decoder", d.Kind())
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArg, err, "%s: invalid %s arguments", owner, d.Kind())
	}
	return arg, nil
}

// RecipeFor returns the recipe for the first special flavor in flavors, in
// target flavor order.
func RecipeFor(d Description, flavors []target.Flavor) (Recipe, bool) {
	fd, ok := d.(Flavored)
	if !ok {
		return Recipe{}, false
	}
	for _, f := range flavors {
		for _, r := range fd.Recipes() {
			if r.Flavor == f {
				return r, true
			}
		}
	}
	return Recipe{}, false
}
