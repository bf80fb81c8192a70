package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/matzehuels/rulegraph/pkg/config"
	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/description/builtin"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/plugin"
	"github.com/matzehuels/rulegraph/pkg/rules"
	"github.com/matzehuels/rulegraph/pkg/target"
	"github.com/matzehuels/rulegraph/pkg/targetgraph"
)

// project is everything a command needs about the project it runs in.
type project struct {
	fs      *fsys.Filesystem
	config  *config.Config
	known   *description.Known
	plugins *plugin.Manager
	bc      *description.Context
}

// loadProject reads the configuration and loads plugin rule kinds. The
// target graph is read separately by [project.graph].
func (c *CLI) loadProject(ctx context.Context) (*project, error) {
	root := c.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	fs := fsys.New(c.FS, root, "")
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}
	fs = fsys.New(c.FS, root, cfg.Build.OutDir)

	known, err := builtin.Known()
	if err != nil {
		return nil, err
	}
	plugins, err := plugin.Load(ctx, fs, cfg, known, c.Logger)
	if err != nil {
		return nil, err
	}
	return &project{
		fs:      fs,
		config:  cfg,
		known:   known,
		plugins: plugins,
		bc:      description.NewContext(fs, cfg, c.Logger),
	}, nil
}

// graph reads the project's target graph.
func (c *CLI) graph(p *project) (*targetgraph.Graph, error) {
	file := c.targetFile
	if file == "" {
		file = targetgraph.DefaultFile
	}
	return targetgraph.ImportJSON(p.fs, file)
}

// build loads the target graph and returns the rules for targets (every
// target when none are given), registering them into the project's build
// context.
func (c *CLI) build(ctx context.Context, p *project, targets []string) ([]*rules.Rule, error) {
	g, err := c.graph(p)
	if err != nil {
		return nil, err
	}
	ts, err := parseTargets(targets)
	if err != nil {
		return nil, err
	}
	prog := newProgress(c.Logger)
	built, err := targetgraph.NewTransformer(g, p.known, p.bc).Build(ctx, ts...)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Built %d rules", p.bc.Index.Len()))
	return built, nil
}

func parseTargets(args []string) ([]target.BuildTarget, error) {
	out := make([]target.BuildTarget, 0, len(args))
	for _, s := range args {
		t, err := target.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
