// Package config loads the project configuration file (.rulegraph.toml).
//
// A missing file is not an error: every setting has a default, and the
// absence of a [plugins] directory simply disables plugin discovery.
package config

import (
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/zclconf/go-cty/cty"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
)

// FileName is the configuration file looked up at the project root.
const FileName = ".rulegraph.toml"

// Defaults.
const (
	DefaultSourceLevel   = "8"
	DefaultLDSearchPath  = "LD_LIBRARY_PATH"
	DefaultJavadocLink   = "https://docs.oracle.com/javase/8/docs/api"
	DefaultTestTimeoutMS = 0
)

// Config is the engine's shared configuration object. It is read-only after Load.
type Config struct {
	Build   BuildSection   `toml:"build"`
	Plugins PluginsSection `toml:"plugins"`
	Java    JavaSection    `toml:"java"`
	Cxx     CxxSection     `toml:"cxx"`
	Javadoc JavadocSection `toml:"javadoc"`

	root string
}

type BuildSection struct {
	OutDir string `toml:"out_dir"`
}

type PluginsSection struct {
	Directory string `toml:"directory"`
}

type JavaSection struct {
	SourceLevel   string `toml:"source_level"`
	TargetLevel   string `toml:"target_level"`
	TestTimeoutMS int64  `toml:"test_timeout_ms"`
}

type CxxSection struct {
	LDSearchPathEnv string `toml:"ld_search_path_env"`
}

type JavadocSection struct {
	Link string `toml:"link"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads FileName from the root of fs. A missing file yields Default().
func Load(fs *fsys.Filesystem) (*Config, error) {
	if !fs.Exists(FileName) {
		c := Default()
		c.root = fs.Root()
		return c, nil
	}
	data, err := fs.ReadFile(FileName)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", FileName)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.root = fs.Root()
	return c, nil
}

// Parse decodes TOML configuration data.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", FileName)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", FileName, undecoded[0].String())
	}
	if c.Java.TestTimeoutMS < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: java.test_timeout_ms must not be negative", FileName)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Build.OutDir == "" {
		c.Build.OutDir = fsys.DefaultOutDir
	}
	if c.Java.SourceLevel == "" {
		c.Java.SourceLevel = DefaultSourceLevel
	}
	if c.Java.TargetLevel == "" {
		c.Java.TargetLevel = c.Java.SourceLevel
	}
	if c.Cxx.LDSearchPathEnv == "" {
		c.Cxx.LDSearchPathEnv = DefaultLDSearchPath
	}
	if c.Javadoc.Link == "" {
		c.Javadoc.Link = DefaultJavadocLink
	}
}

// PluginDirectory returns the configured plugin directory resolved against the
// project root. ok is false when no directory is configured or it does not
// exist, in which case plugin discovery is disabled.
func (c *Config) PluginDirectory(fs *fsys.Filesystem) (dir string, ok bool) {
	if c.Plugins.Directory == "" {
		return "", false
	}
	dir = fs.Abs(c.Plugins.Directory)
	if !fs.IsDir(dir) {
		return "", false
	}
	return dir, true
}

// CtyValue exposes the configuration to plugin constructor expressions as
// the object referenced by the "config" variable.
func (c *Config) CtyValue() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"root": cty.StringVal(c.root),
		"build": cty.ObjectVal(map[string]cty.Value{
			"out_dir": cty.StringVal(c.Build.OutDir),
		}),
		"java": cty.ObjectVal(map[string]cty.Value{
			"source_level":    cty.StringVal(c.Java.SourceLevel),
			"target_level":    cty.StringVal(c.Java.TargetLevel),
			"test_timeout_ms": cty.NumberIntVal(c.Java.TestTimeoutMS),
		}),
		"cxx": cty.ObjectVal(map[string]cty.Value{
			"ld_search_path_env": cty.StringVal(c.Cxx.LDSearchPathEnv),
		}),
		"javadoc": cty.ObjectVal(map[string]cty.Value{
			"link": cty.StringVal(c.Javadoc.Link),
		}),
	})
}

// Strings returns a flat key/value view for display.
func (c *Config) Strings() [][2]string {
	return [][2]string{
		{"build.out_dir", c.Build.OutDir},
		{"plugins.directory", c.Plugins.Directory},
		{"java.source_level", c.Java.SourceLevel},
		{"java.target_level", c.Java.TargetLevel},
		{"java.test_timeout_ms", strconv.FormatInt(c.Java.TestTimeoutMS, 10)},
		{"cxx.ld_search_path_env", c.Cxx.LDSearchPathEnv},
		{"javadoc.link", c.Javadoc.Link},
	}
}
