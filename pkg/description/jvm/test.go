package jvm

import (
	"context"
	"slices"

	"github.com/mattn/go-shellwords"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/description/cxx"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// TestArg is the construction argument of java_test.
type TestArg struct {
	LibraryArg `arg:",squash"`

	SourceUnderTest     []string          `arg:"source_under_test"`
	Contacts            []string          `arg:"contacts"`
	VMArgs              []string          `arg:"vm_args"`
	Env                 map[string]string `arg:"env"`
	TestTimeoutMS       *int64            `arg:"test_rule_timeout_ms"`
	UseCxxLibraries     bool              `arg:"use_cxx_libraries"`
	CxxLibraryWhitelist []string          `arg:"cxx_library_whitelist"`
}

// Test describes java_test rules. A test compiles its sources into a tests
// library (target flavored "testsjar") and runs from it; the ABI jar of that
// library is built alongside under the "abi" flavor.
type Test struct{}

var testSchema = rulekey.NewSchema(KindTest,
	rulekey.Value("tests_library"),
	rulekey.Value("source_under_test"),
	rulekey.Value("vm_args"),
	rulekey.Value("env"),
	rulekey.Value("test_rule_timeout_ms"),
	rulekey.Exclude("labels"),
	rulekey.Exclude("contacts"),
)

func (Test) Kind() string              { return KindTest }
func (Test) Flavors() target.FlavorSet { return target.NewFlavorSet(target.MavenJar) }
func (Test) Schema() *rulekey.Schema   { return testSchema }
func (Test) NewArg() any               { return &TestArg{} }

func (Test) Recipes() []description.Recipe {
	return []description.Recipe{
		{Flavor: target.MavenJar, Strip: true, Variant: buildTestsMavenJar},
	}
}

func (Test) Auxiliaries() []description.Builder {
	return []description.Builder{buildTestsABI}
}

// Enhance adds the native library symlink tree when the test loads native
// code. The whitelist is applied before the tree is built; an empty whitelist
// keeps every native library.
func (Test) Enhance(ctx context.Context, bc *description.Context, params rules.Params, arg any) (rules.Params, error) {
	a := arg.(*TestArg)
	if !a.UseCxxLibraries {
		return params, nil
	}
	libs := cxx.NativeLinkables(params.AllDeps())
	if len(a.CxxLibraryWhitelist) > 0 {
		allowed, err := description.ResolveTargets(params.Target, a.CxxLibraryWhitelist)
		if err != nil {
			return params, err
		}
		libs = slices.DeleteFunc(libs, func(r *rules.Rule) bool {
			return !slices.Contains(allowed, r.Target().Unflavored())
		})
	}
	if len(libs) == 0 {
		return params, nil
	}

	treeTarget := params.Target.WithAppendedFlavors(target.NativeLibs)
	tree, ok := bc.Index.Get(treeTarget)
	if !ok {
		var err error
		if tree, err = cxx.NewSymlinkTree(bc, treeTarget, libs); err != nil {
			return params, err
		}
		if err := bc.Register(tree); err != nil {
			return params, err
		}
	}
	return params.AppendExtra(tree), nil
}

func (Test) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	a := arg.(*TestArg)
	t := params.Target

	underTest, err := sourcesUnderTest(bc, t, a.SourceUnderTest)
	if err != nil {
		return nil, err
	}

	testsLibrary, err := registerTestsLibrary(bc, params, &a.LibraryArg)
	if err != nil {
		return nil, err
	}

	var vmArgs []string
	for _, v := range a.VMArgs {
		words, err := shellwords.Parse(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidArg, err, "%s: vm_args %q", t, v)
		}
		vmArgs = append(vmArgs, words...)
	}

	env := make(map[string]string, len(a.Env)+1)
	for k, v := range a.Env {
		env[k] = v
	}
	for _, r := range params.Extra {
		if r.Kind() == cxx.KindSymlinkTree {
			env[bc.Config.Cxx.LDSearchPathEnv] = r.Output()
		}
	}

	timeout := bc.Config.Java.TestTimeoutMS
	if a.TestTimeoutMS != nil {
		timeout = *a.TestTimeoutMS
	}

	fields, err := testSchema.Rename(params.Kind).Bind(map[string]any{
		"tests_library":        testsLibrary.Target().String(),
		"source_under_test":    targetStrings(underTest),
		"vm_args":              vmArgs,
		"env":                  env,
		"test_rule_timeout_ms": timeout,
		"labels":               a.Labels,
		"contacts":             a.Contacts,
	})
	if err != nil {
		return nil, err
	}

	spec := params.WithDeps(rules.DepSpec{Declared: []*rules.Rule{testsLibrary}}).
		AppendExtra(params.Extra...).
		Spec(rules.Test | rules.Sources)
	spec.Fields = fields
	spec.Sources = testsLibrary.SourcePaths()
	spec.Test = &rules.TestInfo{
		TestsLibrary:    testsLibrary.Target(),
		SourceUnderTest: rules.Targets(underTest),
		Labels:          slices.Clone(a.Labels),
		Contacts:        slices.Clone(a.Contacts),
		VMArgs:          vmArgs,
		TimeoutMS:       timeout,
		Env:             env,
	}
	return rules.New(spec)
}

// sourcesUnderTest resolves source_under_test references, each of which must
// name an already registered library.
func sourcesUnderTest(bc *description.Context, owner target.BuildTarget, refs []string) ([]*rules.Rule, error) {
	targets, err := description.ResolveTargets(owner, refs)
	if err != nil {
		return nil, err
	}
	out := make([]*rules.Rule, 0, len(targets))
	for _, t := range targets {
		r, err := bc.Index.Rule(t)
		if err != nil {
			return nil, err
		}
		if !r.Is(rules.Library) {
			return nil, errors.New(errors.ErrCodeInvalidArg,
				"Specified source under test for %s is not a Java library: %s (%s).", owner, r.Target(), r.Kind())
		}
		out = append(out, r)
	}
	return out, nil
}

// registerTestsLibrary builds the library holding the compiled tests. Its
// declared deps are the test's declared deps plus everything exported by the
// declared and provided deps; it exports nothing and provides nothing.
func registerTestsLibrary(bc *description.Context, params rules.Params, a *LibraryArg) (*rules.Rule, error) {
	t := params.Target.WithAppendedFlavors(target.CompiledTests)
	if existing, ok := bc.Index.Get(t); ok {
		return existing, nil
	}
	declared := rules.Union(params.Deps.Declared, rules.ExportedRules(rules.Union(params.Deps.Declared, params.Deps.Provided)...))
	libParams := params.
		WithTarget(t).
		WithKind(KindLibrary).
		WithDeps(rules.DepSpec{Declared: declared}).
		AppendExtra(params.Extra...)
	lib, err := newLibrary(bc, libParams, a)
	if err != nil {
		return nil, err
	}
	if err := bc.Register(lib); err != nil {
		return nil, err
	}
	return lib, nil
}

func testsLibraryOf(bc *description.Context, test *rules.Rule) (*rules.Rule, error) {
	if test == nil || test.TestInfo() == nil {
		return nil, errors.New(errors.ErrCodeInternal, "rule %v is not a test", test)
	}
	return bc.Index.Rule(test.TestInfo().TestsLibrary)
}

func buildTestsABI(ctx context.Context, bc *description.Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
	lib, err := testsLibraryOf(bc, primary)
	if err != nil {
		return nil, err
	}
	return NewABI(bc, params.Target.WithAppendedFlavors(target.ABI), lib)
}

func buildTestsMavenJar(ctx context.Context, bc *description.Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
	lib, err := testsLibraryOf(bc, primary)
	if err != nil {
		return nil, err
	}
	return NewMavenJar(bc, params.Target, lib)
}
