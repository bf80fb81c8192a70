package jvm

import (
	"context"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// PrebuiltJarArg is the construction argument of prebuilt_jar.
type PrebuiltJarArg struct {
	BinaryJar   string   `arg:"binary_jar"`
	SourceJar   string   `arg:"source_jar"`
	MavenCoords string   `arg:"maven_coords"`
	Labels      []string `arg:"labels"`
}

// PrebuiltJar describes prebuilt_jar rules: libraries whose jar is checked in
// rather than compiled. The jar's content is part of the rule key.
type PrebuiltJar struct{}

var prebuiltJarSchema = rulekey.NewSchema(KindPrebuiltJar,
	rulekey.Value("binary_jar"),
	rulekey.Value("source_jar"),
	rulekey.Value("maven_coords"),
	rulekey.Exclude("labels"),
)

func (PrebuiltJar) Kind() string              { return KindPrebuiltJar }
func (PrebuiltJar) Flavors() target.FlavorSet { return target.NewFlavorSet() }
func (PrebuiltJar) Schema() *rulekey.Schema   { return prebuiltJarSchema }
func (PrebuiltJar) NewArg() any               { return &PrebuiltJarArg{} }

func (PrebuiltJar) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	a := arg.(*PrebuiltJarArg)
	t := params.Target
	if a.BinaryJar == "" {
		return nil, errors.New(errors.ErrCodeInvalidArg, "%s: binary_jar is required", t)
	}
	binaryJar, err := resolveJar(bc, t, "binary_jar", a.BinaryJar)
	if err != nil {
		return nil, err
	}

	values := map[string]any{
		"binary_jar":   rulekey.SourcePath(binaryJar),
		"source_jar":   nil,
		"maven_coords": a.MavenCoords,
		"labels":       a.Labels,
	}
	sources := []string{binaryJar}
	if a.SourceJar != "" {
		srcJar, err := resolveJar(bc, t, "source_jar", a.SourceJar)
		if err != nil {
			return nil, err
		}
		values["source_jar"] = rulekey.SourcePath(srcJar)
		sources = append(sources, srcJar)
	}
	fields, err := prebuiltJarSchema.Rename(params.Kind).Bind(values)
	if err != nil {
		return nil, err
	}

	caps := rules.Library
	if a.MavenCoords != "" {
		caps |= rules.Maven
	}
	spec := params.Spec(caps)
	spec.Fields = fields
	spec.Sources = sources
	spec.Output = binaryJar
	spec.MavenCoords = a.MavenCoords
	spec.Library = &rules.LibraryInfo{OutputJar: binaryJar}
	return rules.New(spec)
}

// resolveJar resolves a jar argument that must name exactly one file.
func resolveJar(bc *description.Context, t target.BuildTarget, arg, value string) (string, error) {
	jars, err := description.ResolvePaths(bc.FS, t, []string{value})
	if err != nil {
		return "", err
	}
	if len(jars) != 1 {
		return "", errors.New(errors.ErrCodeInvalidArg, "%s: %s %q must match exactly one file, matched %d", t, arg, value, len(jars))
	}
	return jars[0], nil
}
