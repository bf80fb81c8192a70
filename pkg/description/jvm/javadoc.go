package jvm

import (
	"context"
	"strings"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// JavadocGroup is one "-group" option: a title and its package patterns.
type JavadocGroup struct {
	Title    string   `arg:"title"`
	Packages []string `arg:"packages"`
}

// JavadocArg is the construction argument of javadoc_jar.
type JavadocArg struct {
	Srcs        []string       `arg:"srcs"`
	MavenCoords string         `arg:"maven_coords"`
	Groups      []JavadocGroup `arg:"groups"`
	Labels      []string       `arg:"labels"`
}

// Javadoc describes javadoc_jar rules, which package the documentation of
// their Java sources. The classpath handed to javadoc is the output of the
// rule's direct dependencies.
type Javadoc struct{}

var javadocSchema = rulekey.NewSchema(KindJavadoc,
	rulekey.Value("srcs"),
	rulekey.Value("maven_coords"),
	rulekey.Value("args"),
	rulekey.Exclude("output_jar"),
	rulekey.Exclude("scratch_dir"),
	rulekey.Exclude("labels"),
)

func (Javadoc) Kind() string              { return KindJavadoc }
func (Javadoc) Flavors() target.FlavorSet { return target.NewFlavorSet() }
func (Javadoc) Schema() *rulekey.Schema   { return javadocSchema }
func (Javadoc) NewArg() any               { return &JavadocArg{} }

func (Javadoc) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	a := arg.(*JavadocArg)
	t := params.Target

	srcs, err := description.ResolvePaths(bc.FS, t, a.Srcs)
	if err != nil {
		return nil, err
	}
	deps, err := rules.Classify(t, params.Deps)
	if err != nil {
		return nil, err
	}
	classpath := bc.Classpath.OutputsOf(rules.Union(deps.Declared, deps.Exported, deps.Provided))

	args := JavadocArgsFor(t, bc.Config.Javadoc.Link, classpath.Paths(), a.Groups)
	relClasspath := make([]string, 0, len(classpath.Paths()))
	for _, p := range classpath.Paths() {
		relClasspath = append(relClasspath, bc.FS.Rel(p))
	}
	keyedArgs := JavadocArgsFor(t, bc.Config.Javadoc.Link, relClasspath, a.Groups)
	outputJar := bc.FS.GenPath(t, "%s-javadoc.jar")

	fields, err := javadocSchema.Rename(params.Kind).Bind(map[string]any{
		"srcs":         description.SourcePaths(srcs),
		"maven_coords": a.MavenCoords,
		"args":         keyedArgs.Lines(),
		"output_jar":   outputJar,
		"scratch_dir":  bc.FS.ScratchPath(t, "%s-javadoc"),
		"labels":       a.Labels,
	})
	if err != nil {
		return nil, err
	}

	caps := rules.Javadoc | rules.Sources
	if a.MavenCoords != "" {
		caps |= rules.Maven
	}
	spec := params.Spec(caps)
	spec.Fields = fields
	spec.Sources = srcs
	spec.Output = outputJar
	spec.MavenCoords = a.MavenCoords
	spec.Javadoc = &rules.JavadocInfo{Args: args.Lines()}
	return rules.New(spec)
}

// JavadocArgsFor folds the option lines of a javadoc invocation for t.
func JavadocArgsFor(t target.BuildTarget, link string, classpath []string, groups []JavadocGroup) JavadocArgs {
	args := NewJavadocArgs().With("-windowtitle", t.ShortName())
	if link != "" {
		args = args.With("-link", link)
	}
	args = args.WithJoined("-classpath", "", classpath)
	for _, g := range groups {
		args = args.WithJoined("-group", g.Title, g.Packages)
	}
	return args
}

// JavaSources returns the ".java" files of paths, in order.
func JavaSources(paths []string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasSuffix(p, ".java") {
			out = append(out, p)
		}
	}
	return out
}
