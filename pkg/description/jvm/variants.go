package jvm

import (
	"context"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

var abiSchema = rulekey.NewSchema(KindCalculateABI,
	rulekey.Value("source_jar"),
	rulekey.Exclude("abi_jar"),
)

// buildABI builds the ABI jar of primary: a stripped jar holding only the
// public signatures, whose sole dependency is primary itself.
func buildABI(ctx context.Context, bc *description.Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
	return NewABI(bc, params.Target, primary)
}

// NewABI builds the calculate_abi rule for lib under t.
func NewABI(bc *description.Context, t target.BuildTarget, lib *rules.Rule) (*rules.Rule, error) {
	if lib == nil || !lib.Is(rules.Library) {
		return nil, errors.New(errors.ErrCodeInternal, "%s: abi of a non-library rule", t)
	}
	abiJar := bc.FS.GenPath(t, "%s.jar")
	fields, err := abiSchema.Bind(map[string]any{
		"source_jar": lib.Target().String(),
		"abi_jar":    abiJar,
	})
	if err != nil {
		return nil, err
	}
	return rules.New(rules.Spec{
		Target:       t,
		Kind:         KindCalculateABI,
		Capabilities: rules.Library,
		Deps:         rules.DepSpec{Declared: []*rules.Rule{lib}},
		Fields:       fields,
		Output:       abiJar,
		Library:      &rules.LibraryInfo{OutputJar: abiJar},
	})
}

var uberJarSchema = rulekey.NewSchema(KindMavenUberJar,
	rulekey.Value("maven_coords"),
	rulekey.Value("packaged"),
	rulekey.Value("maven_deps"),
	rulekey.Exclude("output_jar"),
)

// buildMavenJar packages primary for publishing.
func buildMavenJar(ctx context.Context, bc *description.Context, params rules.Params, primary *rules.Rule, arg any) (*rules.Rule, error) {
	return NewMavenJar(bc, params.Target, primary)
}

// NewMavenJar builds the maven_uber_jar rule packaging lib under t. The jar
// holds lib and every library it reaches at runtime that has no Maven
// coordinates of its own; libraries with coordinates become dependencies of
// the published artifact instead and are not descended into.
func NewMavenJar(bc *description.Context, t target.BuildTarget, lib *rules.Rule) (*rules.Rule, error) {
	if lib == nil {
		return nil, errors.New(errors.ErrCodeInternal, "%s: maven jar without a primary rule", t)
	}
	if lib.MavenCoords() == "" {
		return nil, errors.New(errors.ErrCodeInvalidArg, "%s: %s has no maven_coords and cannot be published", t, lib.Target())
	}

	packaged, mavenDeps := MavenClosure(lib)
	coords := make([]string, len(mavenDeps))
	for i, d := range mavenDeps {
		coords[i] = d.MavenCoords()
	}
	outputJar := bc.FS.GenPath(t, "%s.jar")
	fields, err := uberJarSchema.Bind(map[string]any{
		"maven_coords": lib.MavenCoords(),
		"packaged":     targetStrings(packaged),
		"maven_deps":   coords,
		"output_jar":   outputJar,
	})
	if err != nil {
		return nil, err
	}
	return rules.New(rules.Spec{
		Target:       t,
		Kind:         KindMavenUberJar,
		Capabilities: rules.Library | rules.Maven,
		Deps:         rules.DepSpec{Declared: []*rules.Rule{lib}},
		Fields:       fields,
		Output:       outputJar,
		MavenCoords:  lib.MavenCoords(),
		Library:      &rules.LibraryInfo{OutputJar: outputJar},
	})
}

// MavenClosure splits the runtime closure of root into the libraries packaged
// into root's uber jar (root included) and the first libraries with Maven
// coordinates on each path, which are referenced rather than packaged.
// Provided dependencies are neither. Both results are sorted by target.
func MavenClosure(root *rules.Rule) (packaged, mavenDeps []*rules.Rule) {
	seen := map[target.BuildTarget]bool{root.Target(): true}
	packaged = []*rules.Rule{root}
	queue := []*rules.Rule{root}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for _, d := range rules.Union(r.Declared(), r.Exported()) {
			if seen[d.Target()] || !d.Is(rules.Library) {
				continue
			}
			seen[d.Target()] = true
			if d.Is(rules.Maven) {
				mavenDeps = append(mavenDeps, d)
				continue
			}
			packaged = append(packaged, d)
			queue = append(queue, d)
		}
	}
	return rules.Union(packaged), rules.Union(mavenDeps)
}

func targetStrings(rs []*rules.Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Target().String()
	}
	return out
}
