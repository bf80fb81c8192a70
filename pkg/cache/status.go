package cache

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/matzehuels/rulegraph/pkg/observability"
)

const statusKey = "rulekeys"

// ChangeKind classifies how a rule's key moved between two invocations.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// Change is one rule whose key differs from the previous invocation.
type Change struct {
	Target string
	Kind   ChangeKind
}

// Status remembers the rule keys of the last recorded invocation.
type Status struct {
	cache Cache
}

// NewStatus creates a status store on top of c.
func NewStatus(c Cache) *Status {
	if c == nil {
		c = NewNullCache()
	}
	return &Status{cache: c}
}

// Previous returns the recorded target -> rule key map, or an empty map if
// nothing was recorded.
func (s *Status) Previous(ctx context.Context) (map[string]string, error) {
	data, ok, err := s.cache.Get(ctx, statusKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, statusKey)
		return map[string]string{}, nil
	}
	observability.Cache().OnCacheHit(ctx, statusKey)

	keys := map[string]string{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return map[string]string{}, nil
	}
	return keys, nil
}

// Record replaces the stored rule keys.
func (s *Status) Record(ctx context.Context, keys map[string]string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, statusKey, data, 0); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, statusKey, len(data))
	return nil
}

// Diff compares two target -> key maps and returns the changes sorted by target.
// Unchanged rules are omitted.
func Diff(prev, cur map[string]string) []Change {
	var changes []Change
	for t, key := range cur {
		old, ok := prev[t]
		switch {
		case !ok:
			changes = append(changes, Change{Target: t, Kind: Added})
		case old != key:
			changes = append(changes, Change{Target: t, Kind: Modified})
		}
	}
	for t := range prev {
		if _, ok := cur[t]; !ok {
			changes = append(changes, Change{Target: t, Kind: Removed})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Target, b.Target) })
	return changes
}
