package rulekey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/rulegraph/pkg/cache"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/memo"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Rule is the view of a build rule the key subsystem needs.
type Rule interface {
	Target() target.BuildTarget
	Kind() string
	Fields() []Field
	// KeyDeps returns every dependency whose key feeds this rule's key,
	// sorted by target.
	KeyDeps() []Rule
}

// Triples returns the (name, mode, value) triples a rule exposes to the key
// subsystem, excluded fields included.
func Triples(r Rule) []Field {
	return slices.Clone(r.Fields())
}

// Keyer computes and memoizes rule keys for one build invocation.
type Keyer struct {
	files *FileHasher
	keys  memo.Table[target.BuildTarget, result]
}

type result struct {
	key string
	err error
}

// NewKeyer creates a keyer. files may be nil if no rule carries SourcePath values.
func NewKeyer(files *FileHasher) *Keyer {
	return &Keyer{files: files}
}

// Key returns the hex SHA-256 rule key of r. Keys are memoized by target, so
// a Keyer must only see rules from a single index.
func (k *Keyer) Key(ctx context.Context, r Rule) (string, error) {
	res := k.keys.Get(r.Target(), func() result {
		key, err := k.compute(ctx, r)
		return result{key: key, err: err}
	})
	return res.key, res.err
}

func (k *Keyer) compute(ctx context.Context, r Rule) (string, error) {
	var buf bytes.Buffer
	writeEntry(&buf, "kind", r.Kind())
	writeEntry(&buf, "target", r.Target().String())

	fields := slices.Clone(r.Fields())
	slices.SortStableFunc(fields, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	for _, f := range fields {
		switch f.Mode {
		case Excluded:
			continue
		case Stringify:
			writeEntry(&buf, "s:"+f.Name, stringify(f.Value))
		case ByValue:
			v, err := k.canonical(ctx, f.Value)
			if err != nil {
				return "", fmt.Errorf("%s: field %s: %w", r.Target(), f.Name, err)
			}
			writeEntry(&buf, "v:"+f.Name, v)
		}
	}

	for _, dep := range r.KeyDeps() {
		key, err := k.Key(ctx, dep)
		if err != nil {
			return "", err
		}
		writeEntry(&buf, "dep:"+dep.Target().String(), key)
	}
	return cache.Hash(buf.Bytes()), nil
}

func (k *Keyer) canonical(ctx context.Context, v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case SourcePath:
		return k.hashSource(ctx, v)
	case []SourcePath:
		sums := make([]string, len(v))
		for i, p := range v {
			sum, err := k.hashSource(ctx, p)
			if err != nil {
				return "", err
			}
			sums[i] = k.files.Name(p) + "=" + sum
		}
		v2, _ := json.Marshal(sums)
		return string(v2), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidArg, err, "encode field value")
	}
	return string(data), nil
}

func (k *Keyer) hashSource(ctx context.Context, p SourcePath) (string, error) {
	if k.files == nil {
		errors.Internal("rule key: source path %s without a file hasher", p)
	}
	return k.files.Hash(ctx, p)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// writeEntry appends a length-prefixed name/value pair so adjacent entries
// cannot be confused.
func writeEntry(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "%d:%s%d:%s", len(name), name, len(value), value)
}
