package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/matzehuels/rulegraph/pkg/dag"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
	"github.com/matzehuels/rulegraph/pkg/targetgraph"
)

// Graph output formats.
const (
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatJSON = "json"
)

// graphCommand renders the target graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)
	cmd := &cobra.Command{
		Use:   "graph [TARGET...]",
		Short: "Render the target graph as DOT, SVG or JSON",
		Long: `Render the target graph.

With targets, only the targets they reach are rendered. Exported dependencies
are drawn bold and provided dependencies dashed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.loadProject(ctx)
			if err != nil {
				return err
			}
			g, err := c.graph(p)
			if err != nil {
				return err
			}
			roots, err := parseTargets(args)
			if err != nil {
				return err
			}
			order, err := g.Order(roots...)
			if err != nil {
				return err
			}
			sub := targetgraph.New()
			for _, n := range order {
				if err := sub.Add(n); err != nil {
					return err
				}
			}

			var buf bytes.Buffer
			switch format {
			case formatJSON:
				if err := targetgraph.WriteJSON(sub, &buf); err != nil {
					return err
				}
			case formatDOT, formatSVG:
				d, err := sub.DAG()
				if err != nil {
					return err
				}
				d.AssignLayers()
				dot := dag.ToDOT(d, dag.DOTOptions{Detailed: detailed})
				if format == formatDOT {
					buf.WriteString(dot)
					break
				}
				svg, err := dag.RenderSVG(ctx, dot)
				if err != nil {
					return err
				}
				buf.Write(svg)
			default:
				return errors.New(errors.ErrCodeInvalidArg, "unknown graph format %q (want dot, svg or json)", format)
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			path := p.fs.Abs(output)
			if err := afero.WriteFile(c.FS, path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printSuccess(cmd.OutOrStdout(), "Wrote %d targets", sub.Len())
			printDetail(cmd.OutOrStdout(), "%s", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot, svg or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include rows and metadata in node labels")
	return cmd
}

// depsCommand prints the rule dependency tree of a target.
func (c *CLI) depsCommand() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "deps TARGET",
		Short: "Print the rule dependency tree of a target",
		Long: `Print the rule dependency tree of a target.

Each dependency is tagged with how the rule sees it: declared (including
forwarded exports), exported, provided or extra. Rules already printed
higher up are not expanded again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.loadProject(ctx)
			if err != nil {
				return err
			}
			built, err := c.build(ctx, p, args)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), depsTree(built[0], depth).String())
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum depth (0 = unlimited)")
	return cmd
}

func depsTree(root *rules.Rule, maxDepth int) treeprint.Tree {
	tree := treeprint.NewWithRoot(ruleLabel(root))
	seen := map[target.BuildTarget]bool{root.Target(): true}

	var walk func(branch treeprint.Tree, r *rules.Rule, depth int)
	walk = func(branch treeprint.Tree, r *rules.Rule, depth int) {
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, group := range []struct {
			tag  string
			deps []*rules.Rule
		}{
			{targetgraph.VisibilityDeclared, r.Declared()},
			{targetgraph.VisibilityExported, r.Exported()},
			{targetgraph.VisibilityProvided, r.Provided()},
			{"extra", r.Extra()},
		} {
			for _, dep := range group.deps {
				if seen[dep.Target()] {
					branch.AddMetaNode(group.tag, ruleLabel(dep)+" ...")
					continue
				}
				seen[dep.Target()] = true
				walk(branch.AddMetaBranch(group.tag, ruleLabel(dep)), dep, depth+1)
			}
		}
	}
	walk(tree, root, 0)
	return tree
}

func ruleLabel(r *rules.Rule) string {
	return fmt.Sprintf("%s (%s)", r.Target(), r.Kind())
}
