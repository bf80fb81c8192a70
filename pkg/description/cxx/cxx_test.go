package cxx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

func newLib(t *testing.T, bc *description.Context, name string, arg *LibraryArg, deps ...*rules.Rule) *rules.Rule {
	t.Helper()
	params := rules.Params{
		Target: target.MustParse(name),
		Kind:   KindLibrary,
		Deps:   rules.DepSpec{Declared: deps},
	}
	r, err := Library{}.CreateRule(context.Background(), bc, params, arg)
	if err != nil {
		t.Fatalf("CreateRule(%s): %v", name, err)
	}
	return r
}

func TestLibrarySharedLib(t *testing.T) {
	bc := description.NewContext(fsys.Memory("/repo"), nil, nil)

	dflt := newLib(t, bc, "//native/z:z", &LibraryArg{})
	if got := dflt.Native().SOName; got != "libz.so" {
		t.Errorf("SOName = %q, want libz.so", got)
	}
	want := filepath.Join("/repo", "build-out", "gen", "native/z", "z", "libz.so")
	if got := dflt.Native().SharedLib; got != want {
		t.Errorf("SharedLib = %q, want %q", got, want)
	}

	named := newLib(t, bc, "//native/y:y", &LibraryArg{SOName: "libcustom.so.1"})
	if got := named.Native().SOName; got != "libcustom.so.1" {
		t.Errorf("SOName = %q", got)
	}
	if !named.Is(rules.NativeLinkable) {
		t.Error("cxx_library is not native linkable")
	}
}

func TestNativeLinkablesWalksAllDeps(t *testing.T) {
	bc := description.NewContext(fsys.Memory("/repo"), nil, nil)
	leaf := newLib(t, bc, "//native:leaf", &LibraryArg{})
	mid := newLib(t, bc, "//native:mid", &LibraryArg{}, leaf)
	java, err := rules.New(rules.Spec{
		Target:       target.MustParse("//java:lib"),
		Kind:         "java_library",
		Capabilities: rules.Library,
		Deps:         rules.DepSpec{Declared: []*rules.Rule{mid}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := NativeLinkables([]*rules.Rule{java, leaf})
	var names []string
	for _, r := range got {
		names = append(names, r.Target().String())
	}
	if diff := cmp.Diff([]string{"//native:leaf", "//native:mid"}, names); diff != "" {
		t.Errorf("NativeLinkables mismatch (-want +got):\n%s", diff)
	}
}

func TestSymlinkTree(t *testing.T) {
	bc := description.NewContext(fsys.Memory("/repo"), nil, nil)
	a := newLib(t, bc, "//native:a", &LibraryArg{})
	b := newLib(t, bc, "//native:b", &LibraryArg{SOName: "libbee.so"})

	tree, err := NewSymlinkTree(bc, target.MustParse("//java:t#native-libs"), []*rules.Rule{b, a})
	if err != nil {
		t.Fatal(err)
	}
	if tree.Kind() != KindSymlinkTree {
		t.Errorf("Kind = %q", tree.Kind())
	}
	var links map[string]string
	for _, f := range tree.Fields() {
		if f.Name == "links" {
			links = f.Value.(map[string]string)
		}
	}
	want := map[string]string{"liba.so": "//native:a", "libbee.so": "//native:b"}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if len(tree.Extra()) != 2 {
		t.Errorf("Extra = %d rules, want 2", len(tree.Extra()))
	}
}

func TestSymlinkTreeSonameCollision(t *testing.T) {
	bc := description.NewContext(fsys.Memory("/repo"), nil, nil)
	a := newLib(t, bc, "//a:foo", &LibraryArg{})
	b := newLib(t, bc, "//b:foo", &LibraryArg{})

	_, err := NewSymlinkTree(bc, target.MustParse("//java:t#native-libs"), []*rules.Rule{b, a})
	if !errors.Is(err, errors.ErrCodeInvalidArg) {
		t.Fatalf("err = %v, want INVALID_ARG", err)
	}
	want := "//java:t#native-libs: //a:foo and //b:foo both provide shared library libfoo.so"
	if got := errors.UserMessage(err); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}
