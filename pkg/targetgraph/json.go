package targetgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// DefaultFile is the target graph file looked up at the project root.
const DefaultFile = "targets.json"

type document struct {
	Targets []node `json:"targets"`
}

type node struct {
	Target string         `json:"target"`
	Kind   string         `json:"kind"`
	Args   map[string]any `json:"args,omitempty"`
}

// ReadJSON decodes a target graph from r.
//
// The input is an object with a "targets" array:
//
//	{
//	  "targets": [
//	    {"target": "//java/lib:lib", "kind": "java_library",
//	     "args": {"srcs": ["**/*.java"], "exported_deps": [":api"]}}
//	  ]
//	}
//
// The dependency arguments deps, exported_deps and provided_deps are lifted
// into the node and may be relative (":name") to the node's package.
// source_under_test stays in the arguments and also adds ordering edges.
// ReadJSON does not check that references are defined; see [Graph.DAG].
func ReadJSON(r io.Reader) (*Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArg, err, "decode target graph")
	}

	g := New()
	for _, raw := range doc.Targets {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		if err := g.Add(n); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ImportJSON reads the target graph file at p, resolved against the
// filesystem root.
func ImportJSON(fs *fsys.Filesystem, p string) (*Graph, error) {
	f, err := fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

func decodeNode(raw node) (*Node, error) {
	t, err := target.Parse(raw.Target)
	if err != nil {
		return nil, err
	}
	if raw.Kind == "" {
		return nil, errors.New(errors.ErrCodeInvalidArg, "%s: missing rule kind", t)
	}
	args := maps.Clone(raw.Args)
	if args == nil {
		args = map[string]any{}
	}
	n := &Node{Target: t, Kind: raw.Kind, Args: args}
	for key, dst := range map[string]*[]target.BuildTarget{
		ArgDeps:         &n.Declared,
		ArgExportedDeps: &n.Exported,
		ArgProvidedDeps: &n.Provided,
	} {
		refs, err := stringList(t, key, args[key])
		if err != nil {
			return nil, err
		}
		delete(args, key)
		if *dst, err = description.ResolveTargets(t, refs); err != nil {
			return nil, err
		}
	}
	refs, err := stringList(t, ArgSourceUnderTest, args[ArgSourceUnderTest])
	if err != nil {
		return nil, err
	}
	if n.UnderTest, err = description.ResolveTargets(t, refs); err != nil {
		return nil, err
	}
	return n, nil
}

func stringList(owner target.BuildTarget, key string, v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidArg, "%s: %s must be a list of targets", owner, key)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidArg, "%s: %s must be a list of targets", owner, key)
		}
		out[i] = s
	}
	return out, nil
}

// WriteJSON encodes g as JSON with nodes sorted by target and dependency
// references written back as absolute targets. The output can be re-read
// with [ReadJSON].
func WriteJSON(g *Graph, w io.Writer) error {
	out := document{Targets: make([]node, 0, g.Len())}
	for _, n := range g.Nodes() {
		args := maps.Clone(n.Args)
		for key, deps := range map[string][]target.BuildTarget{
			ArgDeps:         n.Declared,
			ArgExportedDeps: n.Exported,
			ArgProvidedDeps: n.Provided,
		} {
			if len(deps) > 0 {
				args[key] = targetStrings(deps)
			}
		}
		if len(args) == 0 {
			args = nil
		}
		out.Targets = append(out.Targets, node{Target: n.Target.String(), Kind: n.Kind, Args: args})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func targetStrings(ts []target.BuildTarget) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
