// Package builtin provides the complete list of compiled-in rule descriptions.
//
// This package exists to break import cycles: the individual description
// packages (jvm, cxx) import pkg/description, so pkg/description cannot import
// them back. Consumers that need the full set import this package.
//
// Usage:
//
//	known, err := builtin.Known()
//	for _, kind := range known.Kinds() {
//	    fmt.Println(kind, known.Source(kind))
//	}
package builtin

import (
	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/description/cxx"
	"github.com/matzehuels/rulegraph/pkg/description/jvm"
)

// All is the canonical list of built-in rule descriptions.
var All = []description.Description{
	jvm.Library{},
	jvm.Test{},
	jvm.Javadoc{},
	jvm.PrebuiltJar{},
	cxx.Library{},
}

// Find returns the built-in description for kind, or nil if not found.
func Find(kind string) description.Description {
	for _, d := range All {
		if d.Kind() == kind {
			return d
		}
	}
	return nil
}

// Known returns a fresh registry holding every built-in description. Plugin
// descriptions are registered into it afterwards.
func Known() (*description.Known, error) {
	return description.NewKnown(All...)
}
