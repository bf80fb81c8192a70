// Package jvm provides the built-in JVM rule kinds: java_library, java_test,
// javadoc_jar and prebuilt_jar, plus the auxiliary calculate_abi and
// maven_uber_jar rules their flavors produce.
package jvm

import (
	"context"
	"slices"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// Rule kinds.
const (
	KindLibrary      = "java_library"
	KindTest         = "java_test"
	KindJavadoc      = "javadoc_jar"
	KindPrebuiltJar  = "prebuilt_jar"
	KindCalculateABI = "calculate_abi"
	KindMavenUberJar = "maven_uber_jar"
)

// LibraryArg is the construction argument of java_library.
type LibraryArg struct {
	Srcs                       []string `arg:"srcs"`
	Resources                  []string `arg:"resources"`
	ResourcesRoot              string   `arg:"resources_root"`
	AdditionalClasspathEntries []string `arg:"additional_classpath_entries"`
	MavenCoords                string   `arg:"maven_coords"`
	MavenPomTemplate           string   `arg:"maven_pom_template"`
	Source                     string   `arg:"source"`
	Target                     string   `arg:"target"`
	Labels                     []string `arg:"labels"`
}

// Library describes java_library rules.
type Library struct{}

var librarySchema = rulekey.NewSchema(KindLibrary,
	rulekey.Value("srcs"),
	rulekey.Value("resources"),
	rulekey.String("resources_root"),
	rulekey.Value("additional_classpath_entries"),
	rulekey.Value("maven_coords"),
	rulekey.Value("source_level"),
	rulekey.Value("target_level"),
	rulekey.Exclude("output_jar"),
	rulekey.Exclude("labels"),
)

func (Library) Kind() string { return KindLibrary }

func (Library) Flavors() target.FlavorSet {
	return target.NewFlavorSet(target.MavenJar, target.ABI)
}

func (Library) Schema() *rulekey.Schema { return librarySchema }
func (Library) NewArg() any             { return &LibraryArg{} }

func (Library) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	return newLibrary(bc, params, arg.(*LibraryArg))
}

func (Library) Recipes() []description.Recipe {
	return []description.Recipe{
		{Flavor: target.ABI, Strip: true, Variant: buildABI},
		{Flavor: target.MavenJar, Strip: true, Variant: buildMavenJar},
	}
}

// newLibrary constructs a java library for params. The output jar exists
// only when there are sources or resources to package.
func newLibrary(bc *description.Context, params rules.Params, a *LibraryArg) (*rules.Rule, error) {
	t := params.Target
	srcs, err := description.ResolvePaths(bc.FS, t, a.Srcs)
	if err != nil {
		return nil, err
	}
	resources, err := description.ResolvePaths(bc.FS, t, a.Resources)
	if err != nil {
		return nil, err
	}

	var outputJar, classesDir string
	if len(srcs) > 0 || len(resources) > 0 {
		outputJar = bc.FS.GenPath(t, "lib__%s__output/%s.jar")
		classesDir = bc.FS.ScratchPath(t, "lib__%s__classes")
	}

	var resourceRoots []string
	if a.ResourcesRoot != "" {
		if resourceRoots, err = description.ResolvePaths(bc.FS, t, []string{a.ResourcesRoot}); err != nil {
			return nil, err
		}
	}
	additional := make([]string, len(a.AdditionalClasspathEntries))
	keyedAdditional := make([]string, len(a.AdditionalClasspathEntries))
	for i, e := range a.AdditionalClasspathEntries {
		additional[i] = bc.FS.Abs(e)
		keyedAdditional[i] = bc.FS.Rel(additional[i])
	}

	source, tgt := a.Source, a.Target
	if source == "" {
		source = bc.Config.Java.SourceLevel
	}
	if tgt == "" {
		tgt = bc.Config.Java.TargetLevel
	}

	fields, err := librarySchema.Rename(params.Kind).Bind(map[string]any{
		"srcs":                         description.SourcePaths(srcs),
		"resources":                    description.SourcePaths(resources),
		"resources_root":               a.ResourcesRoot,
		"additional_classpath_entries": keyedAdditional,
		"maven_coords":                 a.MavenCoords,
		"source_level":                 source,
		"target_level":                 tgt,
		"output_jar":                   outputJar,
		"labels":                       a.Labels,
	})
	if err != nil {
		return nil, err
	}

	caps := rules.Library | rules.Sources
	if a.MavenCoords != "" {
		caps |= rules.Maven
	}
	spec := params.Spec(caps)
	if spec.Kind == "" {
		spec.Kind = KindLibrary
	}
	spec.Fields = fields
	spec.Sources = slices.Concat(srcs, resources)
	spec.Output = outputJar
	spec.MavenCoords = a.MavenCoords
	spec.Library = &rules.LibraryInfo{
		OutputJar:         outputJar,
		Resources:         resourceRoots,
		AdditionalEntries: additional,
		Srcs:              srcs,
		ClassesDir:        classesDir,
	}
	return rules.New(spec)
}
