package builtin

import (
	"testing"

	"github.com/matzehuels/rulegraph/pkg/description"
)

func TestAllKindsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range All {
		if seen[d.Kind()] {
			t.Errorf("duplicate kind %s", d.Kind())
		}
		seen[d.Kind()] = true
	}
}

func TestFind(t *testing.T) {
	if d := Find("java_library"); d == nil || d.Kind() != "java_library" {
		t.Errorf("Find(java_library) = %v", d)
	}
	if d := Find("nope"); d != nil {
		t.Errorf("Find(nope) = %v, want nil", d)
	}
}

func TestKnown(t *testing.T) {
	k, err := Known()
	if err != nil {
		t.Fatalf("Known: %v", err)
	}
	if k.Len() != len(All) {
		t.Errorf("Len = %d, want %d", k.Len(), len(All))
	}
	for _, d := range All {
		if got := k.Source(d.Kind()); got != description.SourceBuiltin {
			t.Errorf("Source(%s) = %q", d.Kind(), got)
		}
	}
}
