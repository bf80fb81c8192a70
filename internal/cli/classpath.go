package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rulegraph/pkg/classpath"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/macros"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// classpathCommand prints one classpath view of a rule.
func (c *CLI) classpathCommand() *cobra.Command {
	var (
		view string
		arg  bool
	)
	cmd := &cobra.Command{
		Use:   "classpath TARGET",
		Short: "Print a classpath view of a rule",
		Long: `Print a classpath view of a rule.

Views:
  output       paths the rule itself contributes
  declared     outputs of the direct declared, exported and provided libraries
  transitive   the rule's outputs plus every library reachable at runtime
  transitive_deps
               the libraries on the transitive classpath`,
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
			r := built[0]
			res := p.bc.Classpath
			if err := res.Warm(ctx, built); err != nil {
				return err
			}

			var entries classpath.Entries
			var paths []string
			switch view {
			case classpath.ViewOutput:
				paths = res.OutputClasspath(r)
			case classpath.ViewDeclared:
				entries = res.DeclaredClasspath(r)
			case classpath.ViewTransitive:
				entries = res.TransitiveClasspath(r)
			case classpath.ViewTransitiveDeps:
				for _, dep := range res.TransitiveClasspathDeps(r) {
					fmt.Fprintln(cmd.OutOrStdout(), dep.Target())
				}
				return nil
			default:
				return errors.New(errors.ErrCodeInvalidArg, "unknown classpath view %q", view)
			}
			if entries != nil {
				paths = entries.Paths()
			}

			w := cmd.OutOrStdout()
			if arg {
				fmt.Fprintln(w, classpath.Join(paths))
				return nil
			}
			for _, path := range paths {
				fmt.Fprintln(w, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", classpath.ViewTransitive, "classpath view: output, declared, transitive or transitive_deps")
	cmd.Flags().BoolVar(&arg, "arg", false, "print the view as a single classpath argument")
	return cmd
}

// rulekeyCommand prints rule keys.
func (c *CLI) rulekeyCommand() *cobra.Command {
	var fields bool
	cmd := &cobra.Command{
		Use:   "rulekey TARGET...",
		Short: "Print the rule keys of rules",
		Args:  cobra.MinimumNArgs(1),
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
			keyer := rulekey.NewKeyer(rulekey.NewFileHasher(p.fs, 0))
			w := cmd.OutOrStdout()
			for _, r := range built {
				key, err := keyer.Key(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s %s\n", StyleHighlight.Render(r.Target().String()), key)
				if !fields {
					continue
				}
				for _, f := range rulekey.Triples(r) {
					printDetail(w, "%s (%s) = %v", f.Name, f.Mode, f.Value)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fields, "fields", false, "also print the fields each key is computed from")
	return cmd
}

// expandCommand expands macros as a rule of TARGET would see them.
func (c *CLI) expandCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand TARGET STRING...",
		Short: "Expand $(classpath), $(srcs) and $(bindir) macros",
		Long: `Expand $(classpath), $(srcs) and $(bindir) macros.

Every argument after TARGET is a string to expand, even one that starts
with "-".`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := target.Parse(args[0])
			if err != nil {
				return err
			}
			p, err := c.loadProject(ctx)
			if err != nil {
				return err
			}
			h := macros.NewHandler(p.bc)
			var refs []string
			for _, s := range args[1:] {
				ts, err := h.Targets(owner, s)
				if err != nil {
					return err
				}
				for _, t := range ts {
					refs = append(refs, t.String())
				}
			}
			if len(refs) > 0 {
				if _, err := c.build(ctx, p, refs); err != nil {
					return err
				}
			}
			out, err := h.ExpandAll(owner, args[1:])
			if err != nil {
				return err
			}
			for _, s := range out {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
