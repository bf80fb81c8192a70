package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/plugin"
)

// kindsCommand lists every constructible rule kind.
func (c *CLI) kindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the known rule kinds and where they come from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, kind := range p.known.Kinds() {
				d, _ := p.known.Get(kind)
				source := p.known.Source(kind)
				if source != description.SourceBuiltin {
					source = p.relative(source)
				}
				flavors := make([]string, 0)
				for _, f := range d.Flavors().Sorted() {
					flavors = append(flavors, string(f))
				}
				line := source
				if len(flavors) > 0 {
					line += StyleDim.Render(" [" + strings.Join(flavors, ",") + "]")
				}
				printKeyValue(w, kind, line)
			}
			printPluginProblems(w, p, false)
			return nil
		},
	}
}

// pluginsCommand reports plugin discovery.
func (c *CLI) pluginsCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Show the rule kinds discovered in plugin archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			dir, ok := p.config.PluginDirectory(p.fs)
			if !ok {
				printInfo(w, "Plugin discovery is disabled (no [plugins] directory)")
				return nil
			}
			printTitle(w, "Plugins in "+p.relative(dir))
			entries := p.plugins.Entries()
			for _, e := range entries {
				status := "registered"
				if p.known.Source(e.Kind) != e.Archive {
					status = "shadowed"
				}
				printKeyValue(w, e.Kind, p.relative(e.Archive)+StyleDim.Render(" "+status))
			}
			if len(entries) == 0 {
				printInfo(w, "No plugin rule kinds found")
			}
			printPluginProblems(w, p, all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include skipped symbols")
	return cmd
}

func printPluginProblems(w io.Writer, p *project, all bool) {
	for _, d := range p.plugins.Diagnostics() {
		msg := p.relative(d.Archive)
		if d.Kind != "" {
			msg += ": " + d.Kind
		}
		msg = fmt.Sprintf("%s: %v", msg, d.Err)
		switch d.Severity {
		case plugin.SeverityError:
			printError(w, "%s", msg)
		case plugin.SeverityWarning:
			printWarning(w, "%s", msg)
		default:
			if all {
				printDetail(w, "%s", msg)
			}
		}
	}
}

// relative shortens an absolute path below the project root.
func (p *project) relative(path string) string {
	if rel, err := filepath.Rel(p.fs.Root(), path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
