package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rulegraph/pkg/buildinfo"
	"github.com/matzehuels/rulegraph/pkg/cache"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
)

// statusCommand reports the rules whose keys changed since the last record.
func (c *CLI) statusCommand() *cobra.Command {
	var (
		record  bool
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "status [TARGET...]",
		Short: "Show rules whose keys changed since the last recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.loadProject(ctx)
			if err != nil {
				return err
			}
			if _, err := c.build(ctx, p, args); err != nil {
				return err
			}

			keyer := rulekey.NewKeyer(rulekey.NewFileHasher(p.fs, 0))
			current := map[string]string{}
			for _, r := range p.bc.Index.Rules() {
				key, err := keyer.Key(ctx, r)
				if err != nil {
					return err
				}
				current[r.Target().String()] = key
			}

			store, err := c.newStatusStore(p.fs.Root(), noCache)
			if err != nil {
				return err
			}
			prev, err := store.Previous(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			changes := cache.Diff(prev, current)
			for _, ch := range changes {
				style := styleModified
				switch ch.Kind {
				case cache.Added:
					style = styleAdded
				case cache.Removed:
					style = styleRemoved
				}
				fmt.Fprintf(w, "%s %s\n", style.Render(fmt.Sprintf("%-8s", ch.Kind)), ch.Target)
			}
			if len(changes) == 0 {
				printSuccess(w, "No changes in %d rules", len(current))
			}

			if record {
				if err := store.Record(ctx, current); err != nil {
					return err
				}
				printInfo(w, "Recorded %d rule keys", len(current))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "remember the current rule keys for the next run")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not read or write the status store")
	return cmd
}

// cacheCommand manages the rule key status store.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the rule key status store",
	}
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every recorded rule key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			w := cmd.OutOrStdout()
			if ok, _ := afero.DirExists(c.FS, dir); !ok {
				printInfo(w, "Cache is empty")
				return nil
			}
			count := 0
			err = afero.Walk(c.FS, dir, func(path string, info os.FileInfo, err error) error {
				if err == nil && !info.IsDir() {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := c.FS.RemoveAll(dir); err != nil {
				return err
			}
			printSuccess(w, "Cleared %d cached entries", count)
			printDetail(w, "Directory: %s", dir)
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
			fmt.Fprintf(cmd.OutOrStdout(), "build id: %s\n", c.BuildID)
			return nil
		},
	}
}
