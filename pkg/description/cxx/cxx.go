// Package cxx provides the native library rule kinds needed by JVM tests that
// load native code: cxx_library and the symlink_tree that gathers shared
// libraries into one directory.
package cxx

import (
	"context"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
)

const (
	KindLibrary     = "cxx_library"
	KindSymlinkTree = "symlink_tree"
)

// LibraryArg is the construction argument of cxx_library.
type LibraryArg struct {
	Srcs          []string `arg:"srcs"`
	Headers       []string `arg:"headers"`
	SOName        string   `arg:"soname"`
	CompilerFlags []string `arg:"compiler_flags"`
	LinkerFlags   []string `arg:"linker_flags"`
	Labels        []string `arg:"labels"`
}

// Library describes cxx_library rules.
type Library struct{}

var librarySchema = rulekey.NewSchema(KindLibrary,
	rulekey.Value("srcs"),
	rulekey.Value("headers"),
	rulekey.Value("soname"),
	rulekey.Value("compiler_flags"),
	rulekey.Value("linker_flags"),
	rulekey.Exclude("shared_lib"),
	rulekey.Exclude("labels"),
)

func (Library) Kind() string              { return KindLibrary }
func (Library) Flavors() target.FlavorSet { return target.NewFlavorSet() }
func (Library) Schema() *rulekey.Schema   { return librarySchema }
func (Library) NewArg() any               { return &LibraryArg{} }

func (Library) CreateRule(ctx context.Context, bc *description.Context, params rules.Params, arg any) (*rules.Rule, error) {
	a := arg.(*LibraryArg)
	t := params.Target

	srcs, err := description.ResolvePaths(bc.FS, t, a.Srcs)
	if err != nil {
		return nil, err
	}
	headers, err := description.ResolvePaths(bc.FS, t, a.Headers)
	if err != nil {
		return nil, err
	}
	soname := a.SOName
	if soname == "" {
		soname = "lib" + t.ShortName() + ".so"
	}
	sharedLib := bc.FS.GenPath(t, "%s/"+soname)

	fields, err := librarySchema.Bind(map[string]any{
		"srcs":           description.SourcePaths(srcs),
		"headers":        description.SourcePaths(headers),
		"soname":         soname,
		"compiler_flags": a.CompilerFlags,
		"linker_flags":   a.LinkerFlags,
		"shared_lib":     sharedLib,
		"labels":         a.Labels,
	})
	if err != nil {
		return nil, err
	}

	spec := params.Spec(rules.NativeLinkable | rules.Sources)
	spec.Fields = fields
	spec.Sources = append(srcs, headers...)
	spec.Output = sharedLib
	spec.Native = &rules.NativeInfo{SharedLib: sharedLib, SOName: soname}
	return rules.New(spec)
}

// NativeLinkables returns every native linkable rule reachable from roots
// over any dependency edge, sorted by target.
func NativeLinkables(roots []*rules.Rule) []*rules.Rule {
	seen := map[target.BuildTarget]bool{}
	var out []*rules.Rule
	var visit func(r *rules.Rule)
	visit = func(r *rules.Rule) {
		if seen[r.Target()] {
			return
		}
		seen[r.Target()] = true
		if r.Is(rules.NativeLinkable) {
			out = append(out, r)
		}
		for _, d := range r.Deps() {
			visit(d)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return rules.Union(out)
}

var symlinkTreeSchema = rulekey.NewSchema(KindSymlinkTree,
	rulekey.Value("links"),
	rulekey.Exclude("root"),
)

// NewSymlinkTree builds the rule that links the shared libraries of libs
// into one directory. The libraries become extra deps of the tree, so their
// keys feed the tree's key. Two libraries with the same soname are an
// INVALID_ARG error.
func NewSymlinkTree(bc *description.Context, t target.BuildTarget, libs []*rules.Rule) (*rules.Rule, error) {
	libs = rules.Union(libs)
	root := bc.FS.GenPath(t, "%s")
	links := make(map[string]string, len(libs))
	for _, lib := range libs {
		soname := lib.Native().SOName
		if prev, ok := links[soname]; ok {
			return nil, errors.New(errors.ErrCodeInvalidArg, "%s: %s and %s both provide shared library %s", t, prev, lib.Target(), soname)
		}
		links[soname] = lib.Target().String()
	}

	fields, err := symlinkTreeSchema.Bind(map[string]any{"links": links, "root": root})
	if err != nil {
		return nil, err
	}
	return rules.New(rules.Spec{
		Target: t,
		Kind:   KindSymlinkTree,
		Extra:  libs,
		Fields: fields,
		Output: root,
		Native: &rules.NativeInfo{SharedLib: root},
	})
}
