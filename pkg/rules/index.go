package rules

import (
	"slices"
	"sync"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Index maps targets to constructed rules. It is written while the graph is
// built and read concurrently afterwards.
type Index struct {
	mu    sync.RWMutex
	rules map[target.BuildTarget]*Rule
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{rules: make(map[target.BuildTarget]*Rule)}
}

// Add registers r. Adding the same rule twice is a no-op; adding a different
// rule under an existing target is a DUPLICATE_TARGET error.
func (ix *Index) Add(r *Rule) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if existing, ok := ix.rules[r.target]; ok {
		if existing == r {
			return nil
		}
		return errors.New(errors.ErrCodeDuplicateTarget, "%s: target already defined", r.target)
	}
	ix.rules[r.target] = r
	return nil
}

// Get returns the rule registered for t.
func (ix *Index) Get(t target.BuildTarget) (*Rule, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	r, ok := ix.rules[t]
	return r, ok
}

// Rule returns the rule registered for t or an UNKNOWN_TARGET error.
func (ix *Index) Rule(t target.BuildTarget) (*Rule, error) {
	if r, ok := ix.Get(t); ok {
		return r, nil
	}
	return nil, errors.New(errors.ErrCodeUnknownTarget, "%s: no rule registered for target", t)
}

// Contains reports whether exactly r is registered under its target.
func (ix *Index) Contains(r *Rule) bool {
	got, ok := ix.Get(r.target)
	return ok && got == r
}

// Rules returns every registered rule sorted by target.
func (ix *Index) Rules() []*Rule {
	ix.mu.RLock()
	out := make([]*Rule, 0, len(ix.rules))
	for _, r := range ix.rules {
		out = append(out, r)
	}
	ix.mu.RUnlock()
	slices.SortFunc(out, compareRules)
	return out
}

// Len returns the number of registered rules.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.rules)
}
