package flavor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// fakeLib is a library description with a stripping "abi" recipe that also
// builds an auxiliary "-docs" rule, and a non-stripping "wrapped" recipe.
type fakeLib struct {
	created  *int
	enhanced *int
	extra    *rules.Rule
}

func (fakeLib) Kind() string { return "fake_library" }
func (fakeLib) Flavors() target.FlavorSet {
	return target.NewFlavorSet(target.ABI, "wrapped")
}
func (fakeLib) Schema() *rulekey.Schema { return rulekey.NewSchema("fake_library") }
func (fakeLib) NewArg() any             { return nil }

func (f fakeLib) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	*f.created++
	spec := params.Spec(rules.Library)
	spec.Library = &rules.LibraryInfo{OutputJar: "/out/" + params.Target.ShortNameAndFlavorPostfix() + ".jar"}
	return rules.New(spec)
}

func (f fakeLib) Enhance(ctx context.Context, bc *description.Context, params rules.Params, arg any) (rules.Params, error) {
	*f.enhanced++
	if f.extra != nil {
		params = params.AppendExtra(f.extra)
	}
	return params, nil
}

func (fakeLib) Recipes() []description.Recipe {
	return []description.Recipe{
		{Flavor: target.ABI, Strip: true, Aux: []description.Builder{docs}, Variant: variant("fake_abi")},
		{Flavor: "wrapped", Variant: variant("fake_wrapper")},
	}
}

func docs(ctx context.Context, bc *description.Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
	return rules.New(rules.Spec{
		Target: params.Target.WithAppendedFlavors("docs"),
		Kind:   "fake_docs",
		Deps:   rules.DepSpec{Declared: []*rules.Rule{primary}},
	})
}

func variant(kind string) description.Builder {
	return func(ctx context.Context, bc *description.Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
		spec := rules.Spec{Target: params.Target, Kind: kind}
		if primary != nil {
			spec.Deps.Declared = []*rules.Rule{primary}
		}
		return rules.New(spec)
	}
}

func newFake() (fakeLib, *int, *int) {
	var created, enhanced int
	return fakeLib{created: &created, enhanced: &enhanced}, &created, &enhanced
}

func newDispatcher() *Dispatcher {
	return NewDispatcher(description.NewContext(fsys.Memory("/repo"), nil, nil))
}

func params(s string) rules.Params {
	return rules.Params{Target: target.MustParse(s)}
}

func indexed(d *Dispatcher) []string {
	var out []string
	for _, r := range d.Context().Index.Rules() {
		out = append(out, r.Target().String())
	}
	return out
}

func TestDispatchUnsupportedFlavorBuildsNothing(t *testing.T) {
	d := newDispatcher()
	desc, created, _ := newFake()

	_, err := d.Dispatch(context.Background(), desc, params("//a:a#maven-jar"), nil)
	if !errors.Is(err, errors.ErrCodeInvalidFlavor) {
		t.Fatalf("err = %v, want INVALID_FLAVOR", err)
	}
	if *created != 0 {
		t.Errorf("CreateRule called %d times", *created)
	}
	if d.Context().Index.Len() != 0 {
		t.Errorf("index holds %v", indexed(d))
	}
}

func TestDispatchPlain(t *testing.T) {
	d := newDispatcher()
	desc, created, enhanced := newFake()

	r, err := d.Dispatch(context.Background(), desc, params("//a:a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind() != "fake_library" {
		t.Errorf("Kind = %q", r.Kind())
	}
	if *created != 1 || *enhanced != 1 {
		t.Errorf("created=%d enhanced=%d, want 1 and 1", *created, *enhanced)
	}
	if !d.Context().Index.Contains(r) {
		t.Error("rule not registered")
	}
}

func TestDispatchStripBuildsPrimaryAuxAndVariant(t *testing.T) {
	d := newDispatcher()
	desc, created, _ := newFake()

	v, err := d.Dispatch(context.Background(), desc, params("//a:a#abi"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != "fake_abi" {
		t.Errorf("variant kind = %q", v.Kind())
	}
	if diff := cmp.Diff([]string{"//a:a"}, targets(v.Declared())); diff != "" {
		t.Errorf("variant deps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"//a:a", "//a:a#abi", "//a:a#docs"}, indexed(d)); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
	if *created != 1 {
		t.Errorf("CreateRule called %d times", *created)
	}
}

func TestDispatchReusesPrimary(t *testing.T) {
	d := newDispatcher()
	desc, created, _ := newFake()
	ctx := context.Background()

	primary, err := d.Dispatch(ctx, desc, params("//a:a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	v, err := d.Dispatch(ctx, desc, params("//a:a#abi"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Declared()[0] != primary {
		t.Error("variant does not depend on the registered primary")
	}
	again, err := d.Dispatch(ctx, desc, params("//a:a#abi"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if again != v {
		t.Error("second dispatch built a new variant")
	}
	if *created != 1 {
		t.Errorf("CreateRule called %d times", *created)
	}
}

func TestDispatchNonStrippingRecipe(t *testing.T) {
	d := newDispatcher()
	desc, created, _ := newFake()

	v, err := d.Dispatch(context.Background(), desc, params("//a:a#wrapped"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != "fake_wrapper" || len(v.Deps()) != 0 {
		t.Errorf("variant = %s with deps %v", v.Kind(), targets(v.Deps()))
	}
	if *created != 0 {
		t.Errorf("CreateRule called %d times", *created)
	}
}

func TestEnhancerRunsBeforeCreate(t *testing.T) {
	d := newDispatcher()
	desc, _, _ := newFake()
	extra, err := rules.New(rules.Spec{Target: target.MustParse("//native:tree"), Kind: "symlink_tree"})
	if err != nil {
		t.Fatal(err)
	}
	desc.extra = extra

	r, err := d.Dispatch(context.Background(), desc, params("//a:a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"//native:tree"}, targets(r.Extra())); diff != "" {
		t.Errorf("Extra mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	desc, _, _ := newFake()
	if err := Validate(desc, target.MustParse("//a:a#abi,wrapped")); err != nil {
		t.Errorf("Validate supported flavors: %v", err)
	}
	err := Validate(desc, target.MustParse("//a:a#abi,bogus"))
	if !errors.Is(err, errors.ErrCodeInvalidFlavor) {
		t.Errorf("err = %v, want INVALID_FLAVOR", err)
	}
}

func targets(rs []*rules.Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Target().String()
	}
	return out
}
