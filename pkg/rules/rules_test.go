package rules

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/target"
)

func mustRule(t *testing.T, spec Spec) *Rule {
	t.Helper()
	r, err := New(spec)
	if err != nil {
		t.Fatalf("New(%s) error: %v", spec.Target, err)
	}
	return r
}

func library(t *testing.T, name string, deps DepSpec) *Rule {
	t.Helper()
	return mustRule(t, Spec{
		Target:       target.MustParse(name),
		Kind:         "java_library",
		Capabilities: Library,
		Deps:         deps,
		Library:      &LibraryInfo{OutputJar: "/out/" + name + ".jar"},
	})
}

func names(rs []*Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Target().String()
	}
	return out
}

func TestExportedRulesTransitive(t *testing.T) {
	c := library(t, "//c:c", DepSpec{})
	b := library(t, "//b:b", DepSpec{Exported: []*Rule{c}})
	a := library(t, "//a:a", DepSpec{Exported: []*Rule{b}})

	got := names(ExportedRules(a))
	want := []string{"//b:b", "//c:c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportedRules(a) mismatch (-want +got):\n%s", diff)
	}
	if got := ExportedRules(c); len(got) != 0 {
		t.Errorf("ExportedRules(c) = %v, want empty", names(got))
	}
}

func TestClassifyForwardsExports(t *testing.T) {
	c := library(t, "//c:c", DepSpec{})
	b := library(t, "//b:b", DepSpec{Exported: []*Rule{c}})
	a := library(t, "//a:a", DepSpec{Exported: []*Rule{b}})
	p := library(t, "//p:p", DepSpec{Exported: []*Rule{c}})
	host := library(t, "//host:api", DepSpec{})

	user := library(t, "//user:lib", DepSpec{Declared: []*Rule{a}, Provided: []*Rule{host, p}})

	if diff := cmp.Diff([]string{"//a:a", "//b:b", "//c:c"}, names(user.Declared())); diff != "" {
		t.Errorf("Declared() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"//c:c", "//host:api", "//p:p"}, names(user.Provided())); diff != "" {
		t.Errorf("Provided() mismatch (-want +got):\n%s", diff)
	}
	if len(user.Exported()) != 0 {
		t.Errorf("Exported() = %v, want empty", names(user.Exported()))
	}
	if diff := cmp.Diff([]string{"//a:a", "//b:b", "//c:c", "//host:api", "//p:p"}, names(user.Deps())); diff != "" {
		t.Errorf("Deps() mismatch (-want +got):\n%s", diff)
	}
}

func TestExportedDepMustBeLibrary(t *testing.T) {
	ix := NewIndex()
	test := mustRule(t, Spec{
		Target:       target.MustParse("//t:test"),
		Kind:         "java_test",
		Capabilities: Test,
	})

	owner := target.MustParse("//a:lib")
	r, err := New(Spec{
		Target:       owner,
		Kind:         "java_library",
		Capabilities: Library,
		Deps:         DepSpec{Exported: []*Rule{test}},
	})
	if r != nil {
		t.Fatal("New() returned a rule despite an invalid exported dep")
	}
	if !errors.Is(err, errors.ErrCodeInvalidExportedDep) {
		t.Fatalf("New() error = %v, want INVALID_EXPORTED_DEP", err)
	}
	msg := errors.UserMessage(err)
	for _, want := range []string{"//a:lib", "//t:test", "java_test"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not mention %q", msg, want)
		}
	}
	if ix.Len() != 0 {
		t.Errorf("index has %d rules, want 0", ix.Len())
	}
}

func TestNewRejectsSelfDependency(t *testing.T) {
	a := library(t, "//a:a", DepSpec{})
	_, err := New(Spec{
		Target:       a.Target(),
		Kind:         "java_library",
		Capabilities: Library,
		Deps:         DepSpec{Declared: []*Rule{a}},
	})
	if !errors.Is(err, errors.ErrCodeDependencyCycle) {
		t.Errorf("New() error = %v, want DEPENDENCY_CYCLE", err)
	}
}

func TestRuleIsImmutable(t *testing.T) {
	b := library(t, "//b:b", DepSpec{})
	srcs := []string{"/repo/b.java", "/repo/a.java", "/repo/a.java"}
	r := mustRule(t, Spec{
		Target:       target.MustParse("//a:a"),
		Kind:         "java_library",
		Capabilities: Library | Sources,
		Deps:         DepSpec{Declared: []*Rule{b}},
		Sources:      srcs,
	})
	srcs[0] = "/mutated"

	if diff := cmp.Diff([]string{"/repo/a.java", "/repo/b.java"}, r.SourcePaths()); diff != "" {
		t.Errorf("SourcePaths() mismatch (-want +got):\n%s", diff)
	}

	deps := r.Declared()
	deps[0] = nil
	if r.Declared()[0] != b {
		t.Error("Declared() must return a copy")
	}
	if r.Library() == nil {
		t.Error("Library capability should imply a Library payload")
	}
}

func TestIndex(t *testing.T) {
	ix := NewIndex()
	a := library(t, "//a:a", DepSpec{})
	b := library(t, "//b:b", DepSpec{})

	for _, r := range []*Rule{b, a, a} {
		if err := ix.Add(r); err != nil {
			t.Fatalf("Add(%s) error: %v", r, err)
		}
	}
	if diff := cmp.Diff([]string{"//a:a", "//b:b"}, names(ix.Rules())); diff != "" {
		t.Errorf("Rules() mismatch (-want +got):\n%s", diff)
	}

	other := library(t, "//a:a", DepSpec{})
	if err := ix.Add(other); !errors.Is(err, errors.ErrCodeDuplicateTarget) {
		t.Errorf("Add(duplicate) error = %v, want DUPLICATE_TARGET", err)
	}
	if !ix.Contains(a) || ix.Contains(other) {
		t.Error("Contains() must compare rule identity")
	}

	if _, err := ix.Rule(target.MustParse("//missing:x")); !errors.Is(err, errors.ErrCodeUnknownTarget) {
		t.Errorf("Rule(missing) error = %v, want UNKNOWN_TARGET", err)
	}
}

func TestParams(t *testing.T) {
	a := library(t, "//a:a", DepSpec{})
	p := Params{Target: target.MustParse("//x:test#maven-jar"), Kind: "java_test"}

	stripped := p.WithoutFlavor(target.MavenJar)
	if stripped.Target.String() != "//x:test" {
		t.Errorf("WithoutFlavor() target = %s", stripped.Target)
	}
	if p.Target.String() != "//x:test#maven-jar" {
		t.Error("WithoutFlavor() must not modify the receiver")
	}

	withExtra := stripped.AppendExtra(a)
	if len(stripped.Extra) != 0 || len(withExtra.Extra) != 1 {
		t.Error("AppendExtra() must copy")
	}
	if got := withExtra.WithFlavor(target.CompiledTests).Target.String(); got != "//x:test#testsjar" {
		t.Errorf("WithFlavor() target = %s", got)
	}
	if diff := cmp.Diff([]string{"//a:a"}, names(withExtra.AllDeps())); diff != "" {
		t.Errorf("AllDeps() mismatch (-want +got):\n%s", diff)
	}
}

func TestCapabilityNames(t *testing.T) {
	c := Library | Maven | Javadoc
	if diff := cmp.Diff([]string{"library", "maven", "javadoc"}, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if !c.Has(Library | Maven) {
		t.Error("Has(Library|Maven) = false")
	}
	if c.Has(Test) {
		t.Error("Has(Test) = true")
	}
}
