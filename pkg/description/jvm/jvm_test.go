package jvm

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/description/cxx"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/flavor"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

type harness struct {
	t  *testing.T
	fs *fsys.Filesystem
	d  *flavor.Dispatcher
}

func newHarness(t *testing.T, files ...string) *harness {
	t.Helper()
	fs := fsys.Memory("/repo")
	for _, f := range files {
		if err := fs.WriteFile(f, []byte("content of "+f)); err != nil {
			t.Fatal(err)
		}
	}
	return &harness{t: t, fs: fs, d: flavor.NewDispatcher(description.NewContext(fs, nil, nil))}
}

func (h *harness) bc() *description.Context { return h.d.Context() }

func (h *harness) build(desc description.Description, tg string, deps rules.DepSpec, raw map[string]any) (*rules.Rule, error) {
	owner := target.MustParse(tg)
	arg, err := description.DecodeArg(desc, owner, raw)
	if err != nil {
		return nil, err
	}
	return h.d.Dispatch(context.Background(), desc, rules.Params{Target: owner, Deps: deps}, arg)
}

func (h *harness) mustBuild(desc description.Description, tg string, deps rules.DepSpec, raw map[string]any) *rules.Rule {
	h.t.Helper()
	r, err := h.build(desc, tg, deps, raw)
	if err != nil {
		h.t.Fatalf("build %s: %v", tg, err)
	}
	return r
}

func (h *harness) rule(tg string) *rules.Rule {
	h.t.Helper()
	r, err := h.bc().Index.Rule(target.MustParse(tg))
	if err != nil {
		h.t.Fatal(err)
	}
	return r
}

func gen(parts ...string) string {
	return filepath.Join(append([]string{"/repo", "build-out", "gen"}, parts...)...)
}

func names(rs []*rules.Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Target().String()
	}
	return out
}

func TestLibraryOutputJar(t *testing.T) {
	h := newHarness(t, "//java/a/A.java", "//java/a/res/x.properties")
	lib := h.mustBuild(Library{}, "//java/a:a", rules.DepSpec{}, map[string]any{
		"srcs":           []any{"A.java"},
		"resources":      []any{"res/*.properties"},
		"resources_root": "res",
	})

	want := gen("java/a", "lib__a__output", "a.jar")
	if got := lib.Library().OutputJar; got != want {
		t.Errorf("OutputJar = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"/repo/java/a/res"}, lib.Library().Resources); diff != "" {
		t.Errorf("Resources mismatch (-want +got):\n%s", diff)
	}
	if lib.Is(rules.Maven) {
		t.Error("library without coordinates has the Maven capability")
	}

	empty := h.mustBuild(Library{}, "//java/b:b", rules.DepSpec{}, nil)
	if empty.Library().OutputJar != "" {
		t.Errorf("OutputJar of empty library = %q", empty.Library().OutputJar)
	}
}

func TestLibraryKeyIndependentOfProjectRoot(t *testing.T) {
	keyUnder := func(root string) string {
		fs := fsys.Memory(root)
		if err := fs.WriteFile("//java/lib/A.java", []byte("class A {}")); err != nil {
			t.Fatal(err)
		}
		d := flavor.NewDispatcher(description.NewContext(fs, nil, nil))
		owner := target.MustParse("//java/lib:lib")
		arg, err := description.DecodeArg(Library{}, owner, map[string]any{
			"srcs":                         []any{"A.java"},
			"additional_classpath_entries": []any{"//third_party/tools.jar", "/opt/jdk/lib/tools.jar"},
		})
		if err != nil {
			t.Fatal(err)
		}
		r, err := d.Dispatch(context.Background(), Library{}, rules.Params{Target: owner}, arg)
		if err != nil {
			t.Fatal(err)
		}
		if got := r.Library().AdditionalEntries[0]; got != root+"/third_party/tools.jar" {
			t.Errorf("AdditionalEntries[0] = %q, want absolute", got)
		}
		key, err := rulekey.NewKeyer(rulekey.NewFileHasher(fs, 0)).Key(context.Background(), r)
		if err != nil {
			t.Fatal(err)
		}
		return key
	}
	if a, b := keyUnder("/home/alice/repo"), keyUnder("/ci/work/repo"); a != b {
		t.Errorf("keys differ across project roots: %s != %s", a, b)
	}
}

func TestLibraryABIFlavor(t *testing.T) {
	h := newHarness(t, "//java/a/A.java")
	abi := h.mustBuild(Library{}, "//java/a:a#abi", rules.DepSpec{}, map[string]any{"srcs": []any{"A.java"}})

	if abi.Kind() != KindCalculateABI {
		t.Errorf("Kind = %q", abi.Kind())
	}
	primary := h.rule("//java/a:a")
	if diff := cmp.Diff([]string{"//java/a:a"}, names(abi.Declared())); diff != "" {
		t.Errorf("abi deps mismatch (-want +got):\n%s", diff)
	}
	if abi.Output() == primary.Output() {
		t.Error("abi jar collides with the primary output")
	}
}

func TestLibraryMavenJarRequiresCoords(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(Library{}, "//java/a:a#maven-jar", rules.DepSpec{}, nil)
	if !errors.Is(err, errors.ErrCodeInvalidArg) {
		t.Fatalf("err = %v, want INVALID_ARG", err)
	}
}

func TestLibraryMavenJarPackagesUnpublishedDeps(t *testing.T) {
	h := newHarness(t)
	published := h.mustBuild(Library{}, "//java/pub:pub", rules.DepSpec{}, map[string]any{"maven_coords": "org:pub:1"})
	inner := h.mustBuild(Library{}, "//java/inner:inner", rules.DepSpec{Declared: []*rules.Rule{published}}, nil)
	host := h.mustBuild(Library{}, "//java/host:host", rules.DepSpec{}, nil)

	jar := h.mustBuild(Library{}, "//java/a:a#maven-jar",
		rules.DepSpec{Declared: []*rules.Rule{inner}, Provided: []*rules.Rule{host}},
		map[string]any{"maven_coords": "org:a:1"})

	if jar.Kind() != KindMavenUberJar || jar.MavenCoords() != "org:a:1" {
		t.Errorf("jar = %s %q", jar.Kind(), jar.MavenCoords())
	}
	packaged, mavenDeps := MavenClosure(h.rule("//java/a:a"))
	if diff := cmp.Diff([]string{"//java/a:a", "//java/inner:inner"}, names(packaged)); diff != "" {
		t.Errorf("packaged mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"//java/pub:pub"}, names(mavenDeps)); diff != "" {
		t.Errorf("maven deps mismatch (-want +got):\n%s", diff)
	}
}

func TestLibraryRejectsUnsupportedFlavor(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(Library{}, "//java/a:a#testsjar", rules.DepSpec{}, nil)
	if !errors.Is(err, errors.ErrCodeInvalidFlavor) {
		t.Fatalf("err = %v, want INVALID_FLAVOR", err)
	}
	if h.bc().Index.Len() != 0 {
		t.Errorf("index is not empty: %d rules", h.bc().Index.Len())
	}
}

func TestJavaTestBuildsTestsLibraryAndABI(t *testing.T) {
	h := newHarness(t, "//java/a/ATest.java")
	c := h.mustBuild(Library{}, "//java/c:c", rules.DepSpec{}, nil)
	p := h.mustBuild(Library{}, "//java/p:p", rules.DepSpec{Exported: []*rules.Rule{c}}, nil)
	lib := h.mustBuild(Library{}, "//java/lib:lib", rules.DepSpec{}, nil)

	test := h.mustBuild(Test{}, "//java/a:test", rules.DepSpec{
		Declared: []*rules.Rule{lib},
		Provided: []*rules.Rule{p},
	}, map[string]any{
		"srcs":              []any{"ATest.java"},
		"source_under_test": []any{"//java/lib:lib"},
		"vm_args":           []any{"-Xmx1g -Dname='a b'"},
	})

	if !test.Is(rules.Test) {
		t.Fatal("test rule lacks the Test capability")
	}
	info := test.TestInfo()
	if info.TestsLibrary.String() != "//java/a:test#testsjar" {
		t.Errorf("TestsLibrary = %s", info.TestsLibrary)
	}
	if diff := cmp.Diff([]string{"//java/a:test#testsjar"}, names(test.Declared())); diff != "" {
		t.Errorf("test deps mismatch (-want +got):\n%s", diff)
	}
	testsLib := h.rule("//java/a:test#testsjar")
	if diff := cmp.Diff([]string{"//java/c:c", "//java/lib:lib"}, names(testsLib.Declared())); diff != "" {
		t.Errorf("tests library deps mismatch (-want +got):\n%s", diff)
	}
	abi := h.rule("//java/a:test#abi")
	if diff := cmp.Diff([]string{"//java/a:test#testsjar"}, names(abi.Declared())); diff != "" {
		t.Errorf("abi deps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-Xmx1g", "-Dname=a b"}, info.VMArgs); diff != "" {
		t.Errorf("VMArgs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"//java/lib:lib"}, targetsToStrings(info.SourceUnderTest)); diff != "" {
		t.Errorf("SourceUnderTest mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaTestSourceUnderTestMustBeLibrary(t *testing.T) {
	h := newHarness(t)
	native := h.mustBuild(cxx.Library{}, "//native:n", rules.DepSpec{}, nil)
	_, err := h.build(Test{}, "//java/a:test", rules.DepSpec{}, map[string]any{
		"source_under_test": []any{native.Target().String()},
	})
	if !errors.Is(err, errors.ErrCodeInvalidArg) {
		t.Fatalf("err = %v, want INVALID_ARG", err)
	}
	want := "Specified source under test for //java/a:test is not a Java library: //native:n (cxx_library)."
	if !strings.Contains(err.Error(), want) {
		t.Errorf("err = %q, want it to contain %q", err, want)
	}
	if _, ok := h.bc().Index.Get(target.MustParse("//java/a:test")); ok {
		t.Error("failed test rule entered the index")
	}
}

func TestJavaTestNativeWhitelist(t *testing.T) {
	h := newHarness(t)
	n1 := h.mustBuild(cxx.Library{}, "//native:one", rules.DepSpec{}, nil)
	n2 := h.mustBuild(cxx.Library{}, "//native:two", rules.DepSpec{}, nil)
	deps := rules.DepSpec{Declared: []*rules.Rule{n1, n2}}

	test := h.mustBuild(Test{}, "//java/a:filtered", deps, map[string]any{
		"use_cxx_libraries":     true,
		"cxx_library_whitelist": []any{"//native:two"},
	})
	tree := h.rule("//java/a:filtered#native-libs")
	if diff := cmp.Diff([]string{"//native:two"}, names(tree.Extra())); diff != "" {
		t.Errorf("whitelisted tree mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"//java/a:filtered#native-libs"}, names(test.Extra())); diff != "" {
		t.Errorf("test extra deps mismatch (-want +got):\n%s", diff)
	}
	if got := test.TestInfo().Env["LD_LIBRARY_PATH"]; got != tree.Output() {
		t.Errorf("LD_LIBRARY_PATH = %q, want %q", got, tree.Output())
	}

	h.mustBuild(Test{}, "//java/a:all", deps, map[string]any{"use_cxx_libraries": true})
	all := h.rule("//java/a:all#native-libs")
	if diff := cmp.Diff([]string{"//native:one", "//native:two"}, names(all.Extra())); diff != "" {
		t.Errorf("unfiltered tree mismatch (-want +got):\n%s", diff)
	}
}

func TestJavaTestWithoutNativeLibraries(t *testing.T) {
	h := newHarness(t)
	test := h.mustBuild(Test{}, "//java/a:test", rules.DepSpec{}, map[string]any{"use_cxx_libraries": true})
	if len(test.Extra()) != 0 {
		t.Errorf("Extra = %v, want none", names(test.Extra()))
	}
	if _, ok := test.TestInfo().Env["LD_LIBRARY_PATH"]; ok {
		t.Error("LD_LIBRARY_PATH set without native libraries")
	}
}

func TestJavaTestTimeout(t *testing.T) {
	h := newHarness(t)
	h.bc().Config.Java.TestTimeoutMS = 5000

	dflt := h.mustBuild(Test{}, "//java/a:dflt", rules.DepSpec{}, nil)
	if dflt.TestInfo().TimeoutMS != 5000 {
		t.Errorf("default timeout = %d", dflt.TestInfo().TimeoutMS)
	}
	set := h.mustBuild(Test{}, "//java/a:set", rules.DepSpec{}, map[string]any{"test_rule_timeout_ms": 10})
	if set.TestInfo().TimeoutMS != 10 {
		t.Errorf("timeout = %d, want 10", set.TestInfo().TimeoutMS)
	}
}

func TestJavaTestMavenJar(t *testing.T) {
	h := newHarness(t)
	jar := h.mustBuild(Test{}, "//java/a:test#maven-jar", rules.DepSpec{}, map[string]any{"maven_coords": "org:a-tests:1"})
	if jar.Kind() != KindMavenUberJar {
		t.Errorf("Kind = %q", jar.Kind())
	}
	if diff := cmp.Diff([]string{"//java/a:test#testsjar"}, names(jar.Declared())); diff != "" {
		t.Errorf("jar deps mismatch (-want +got):\n%s", diff)
	}
	h.rule("//java/a:test")
}

func TestJavadoc(t *testing.T) {
	h := newHarness(t, "//java/a/A.java", "//java/a/package.html")
	lib := h.mustBuild(Library{}, "//java/lib:lib", rules.DepSpec{}, map[string]any{"srcs": []any{"//java/a/A.java"}})

	doc := h.mustBuild(Javadoc{}, "//java/a:docs", rules.DepSpec{Declared: []*rules.Rule{lib}}, map[string]any{
		"srcs":   []any{"*"},
		"groups": []any{map[string]any{"title": "Core API", "packages": []any{"org.a", "org.a.b"}}},
	})

	if doc.Output() != gen("java/a", "docs-javadoc.jar") {
		t.Errorf("Output = %q", doc.Output())
	}
	want := []string{
		"-quiet",
		"-protected",
		"-encoding UTF-8",
		"-charset UTF-8",
		"-notimestamp",
		"-windowtitle docs",
		"-link https://docs.oracle.com/javase/8/docs/api",
		"-classpath " + lib.Library().OutputJar,
		`-group "Core API" org.a:org.a.b`,
	}
	if diff := cmp.Diff(want, doc.JavadocInfo().Args); diff != "" {
		t.Errorf("javadoc args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/repo/java/a/A.java"}, JavaSources(doc.SourcePaths())); diff != "" {
		t.Errorf("JavaSources mismatch (-want +got):\n%s", diff)
	}
}

func TestJavadocArgsImmutable(t *testing.T) {
	base := NewJavadocArgs()
	a := base.With("-a")
	b := base.With("-b")
	if len(base.Lines()) != len(defaultJavadocArgs) {
		t.Errorf("base modified: %v", base.Lines())
	}
	if a.Lines()[len(a.Lines())-1] != "-a" || b.Lines()[len(b.Lines())-1] != "-b" {
		t.Errorf("a = %v, b = %v", a.Lines(), b.Lines())
	}
}

func TestPrebuiltJar(t *testing.T) {
	h := newHarness(t, "//third_party/guava.jar")
	jar := h.mustBuild(PrebuiltJar{}, "//third_party:guava", rules.DepSpec{}, map[string]any{
		"binary_jar":   "guava.jar",
		"maven_coords": "com.google:guava:1",
	})
	if jar.Library().OutputJar != "/repo/third_party/guava.jar" {
		t.Errorf("OutputJar = %q", jar.Library().OutputJar)
	}
	if !jar.Is(rules.Library | rules.Maven) {
		t.Errorf("capabilities = %v", jar.Capabilities().Names())
	}

	if _, err := h.build(PrebuiltJar{}, "//third_party:none", rules.DepSpec{}, nil); !errors.Is(err, errors.ErrCodeInvalidArg) {
		t.Errorf("err = %v, want INVALID_ARG", err)
	}
}

func TestPrebuiltJarMustMatchOneFile(t *testing.T) {
	h := newHarness(t, "//third_party/a.jar", "//third_party/b.jar")
	tests := []struct {
		name string
		tg   string
		args map[string]any
	}{
		{"glob matches nothing", "//third_party:none", map[string]any{"binary_jar": "*.zip"}},
		{"package dir missing", "//missing:jar", map[string]any{"binary_jar": "*.jar"}},
		{"glob matches two", "//third_party:two", map[string]any{"binary_jar": "*.jar"}},
		{"source jar matches nothing", "//third_party:src", map[string]any{"binary_jar": "a.jar", "source_jar": "*-sources.jar"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.build(PrebuiltJar{}, tt.tg, rules.DepSpec{}, tt.args)
			if !errors.Is(err, errors.ErrCodeInvalidArg) {
				t.Errorf("err = %v, want INVALID_ARG", err)
			}
			if _, ok := h.bc().Index.Get(target.MustParse(tt.tg)); ok {
				t.Error("rule was indexed")
			}
		})
	}

	jar := h.mustBuild(PrebuiltJar{}, "//third_party:a", rules.DepSpec{}, map[string]any{"binary_jar": "a*.jar"})
	if jar.Library().OutputJar != "/repo/third_party/a.jar" {
		t.Errorf("OutputJar = %q", jar.Library().OutputJar)
	}
}

func targetsToStrings(ts []target.BuildTarget) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
