// Package cli implements the rulegraph command-line interface.
//
// Every command works on the project rooted at --root (default: the working
// directory). The project's targets are read from targets.json (--targets),
// its configuration from .rulegraph.toml, and plugin rule kinds from the
// configured plugin directory.
//
// # Commands
//
//   - kinds, plugins: the known rule kinds and plugin diagnostics
//   - classpath: a classpath view of a rule
//   - rulekey: rule keys and their fields
//   - deps, graph: the rule tree of a target and the target graph
//   - expand: macro expansion in the context of a target
//   - status: rules whose keys changed since the last recorded run
//
// All commands support --verbose (-v) for debug-level logging. Each
// invocation logs under a fresh build ID.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rulegraph/pkg/buildinfo"
	"github.com/matzehuels/rulegraph/pkg/cache"
)

// appName is the application name used for directories and display.
const appName = "rulegraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// FS backs every file access. It is the OS filesystem unless replaced,
	// e.g. by an in-memory one in tests.
	FS afero.Fs

	// BuildID identifies this invocation in log output.
	BuildID string

	root       string
	targetFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	id := uuid.NewString()
	return &CLI{
		Logger:  newLogger(w, level).With("build", id[:8]),
		FS:      afero.NewOsFs(),
		BuildID: id,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Rulegraph builds JVM rule graphs and resolves their classpaths",
		Long:         `Rulegraph turns a project's build targets into a graph of rules, resolving classpaths, flavored variants, rule keys and plugin rule kinds.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.root, "root", "", "project root (default: working directory)")
	root.PersistentFlags().StringVar(&c.targetFile, "targets", "", "target graph file, relative to the root (default: targets.json)")

	root.AddCommand(c.kindsCommand())
	root.AddCommand(c.pluginsCommand())
	root.AddCommand(c.classpathCommand())
	root.AddCommand(c.rulekeyCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.expandCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newStatusStore opens the rule key status store for the project at root.
func (c *CLI) newStatusStore(root string, noCache bool) (*cache.Status, error) {
	if noCache {
		return cache.NewStatus(cache.NewNullCache()), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewStatus(cache.NewNullCache()), nil
	}
	fc, err := cache.NewFileCache(c.FS, dir)
	if err != nil {
		return nil, err
	}
	return cache.NewStatus(cache.NewScoped(fc, cache.ProjectScope(root))), nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/rulegraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
