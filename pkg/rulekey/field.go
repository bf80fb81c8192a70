// Package rulekey computes rule fingerprints ("rule keys").
//
// Every rule kind declares a fixed [Schema] that enumerates each of its
// fingerprint-relevant attributes exactly once, together with an inclusion
// [Mode]. The schema is part of the rule kind's definition; it is never
// inferred from attribute types. A description binds concrete attribute
// values against its schema to produce the rule's [Field] triples, and a
// [Keyer] folds those triples, the rule's identity and the keys of its
// dependencies into a SHA-256 digest.
//
// Inclusion modes:
//
//   - ByValue: the value is hashed in canonical JSON form. [SourcePath]
//     values are replaced by the hash of the file they name.
//   - Stringify: the value's fmt.Sprint form is hashed, so structurally equal
//     values built differently collide.
//   - Excluded: the value is informational (or derived from the target, like
//     output paths) and never influences the key.
package rulekey

import (
	"github.com/matzehuels/rulegraph/pkg/errors"
)

// Mode says how a field participates in the rule key.
type Mode int

const (
	ByValue Mode = iota
	Stringify
	Excluded
)

func (m Mode) String() string {
	switch m {
	case ByValue:
		return "value"
	case Stringify:
		return "stringify"
	case Excluded:
		return "excluded"
	}
	return "unknown"
}

// SourcePath is a file path whose content, not its name, is fingerprinted.
type SourcePath string

// Descriptor declares one fingerprint-relevant field of a rule kind.
type Descriptor struct {
	Name string
	Mode Mode
}

// Value declares a field hashed by value.
func Value(name string) Descriptor { return Descriptor{Name: name, Mode: ByValue} }

// String declares a field hashed by its string form.
func String(name string) Descriptor { return Descriptor{Name: name, Mode: Stringify} }

// Exclude declares a field that never influences the key.
func Exclude(name string) Descriptor { return Descriptor{Name: name, Mode: Excluded} }

// Field is a bound (name, mode, value) triple.
type Field struct {
	Name  string
	Mode  Mode
	Value any
}

// Schema is the fixed set of field descriptors of a rule kind.
type Schema struct {
	kind   string
	descs  []Descriptor
	byName map[string]int
}

// NewSchema declares the fields of kind. It panics if a name is empty or
// declared twice, since schemas are fixed when a description is defined.
func NewSchema(kind string, descs ...Descriptor) *Schema {
	s := &Schema{kind: kind, byName: make(map[string]int, len(descs))}
	for _, d := range descs {
		if d.Name == "" {
			panic(errors.New(errors.ErrCodeInternal, "rule kind %s: empty field name", kind))
		}
		if _, dup := s.byName[d.Name]; dup {
			panic(errors.New(errors.ErrCodeInternal, "rule kind %s: field %q declared twice", kind, d.Name))
		}
		s.byName[d.Name] = len(s.descs)
		s.descs = append(s.descs, d)
	}
	return s
}

// Kind returns the rule kind the schema belongs to.
func (s *Schema) Kind() string { return s.kind }

// Descriptors returns the declared fields in declaration order.
func (s *Schema) Descriptors() []Descriptor {
	return append([]Descriptor(nil), s.descs...)
}

// Mode returns the inclusion mode of a declared field.
func (s *Schema) Mode(name string) (Mode, bool) {
	i, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	return s.descs[i].Mode, true
}

// Bind pairs values with their declared modes. Every declared field is
// present in the result, in declaration order; fields missing from values are
// bound to nil. A value for an undeclared field is an error.
func (s *Schema) Bind(values map[string]any) ([]Field, error) {
	for name := range values {
		if _, ok := s.byName[name]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidArg, "rule kind %s: field %q is not part of the rule key schema", s.kind, name)
		}
	}
	fields := make([]Field, len(s.descs))
	for i, d := range s.descs {
		fields[i] = Field{Name: d.Name, Mode: d.Mode, Value: values[d.Name]}
	}
	return fields, nil
}

// Rename returns a copy of the schema for another rule kind with the same fields.
func (s *Schema) Rename(kind string) *Schema {
	return NewSchema(kind, s.descs...)
}
