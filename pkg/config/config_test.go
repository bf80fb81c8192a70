package config

import (
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	fs := fsys.Memory("/repo")
	c, err := Load(fs)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Build.OutDir != fsys.DefaultOutDir {
		t.Errorf("OutDir = %q", c.Build.OutDir)
	}
	if c.Java.TargetLevel != DefaultSourceLevel {
		t.Errorf("TargetLevel = %q", c.Java.TargetLevel)
	}
	if _, ok := c.PluginDirectory(fs); ok {
		t.Error("PluginDirectory() should be disabled when unset")
	}
}

func TestLoadFile(t *testing.T) {
	fs := fsys.Memory("/repo")
	data := `
[build]
out_dir = "out"

[plugins]
directory = "//plugins"

[java]
source_level = "11"
test_timeout_ms = 60000

[cxx]
ld_search_path_env = "DYLD_LIBRARY_PATH"
`
	if err := fs.WriteFile(FileName, []byte(data)); err != nil {
		t.Fatal(err)
	}

	c, err := Load(fs)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Build.OutDir != "out" {
		t.Errorf("OutDir = %q, want out", c.Build.OutDir)
	}
	if c.Java.TargetLevel != "11" {
		t.Errorf("TargetLevel = %q, want source level fallback 11", c.Java.TargetLevel)
	}
	if c.Java.TestTimeoutMS != 60000 {
		t.Errorf("TestTimeoutMS = %d", c.Java.TestTimeoutMS)
	}
	if c.Javadoc.Link != DefaultJavadocLink {
		t.Errorf("Javadoc.Link = %q", c.Javadoc.Link)
	}

	if _, ok := c.PluginDirectory(fs); ok {
		t.Error("PluginDirectory() should be disabled while the directory is missing")
	}
	if err := fs.WriteFile("plugins/a.zip", nil); err != nil {
		t.Fatal(err)
	}
	dir, ok := c.PluginDirectory(fs)
	if !ok || dir != fs.Abs("plugins") {
		t.Errorf("PluginDirectory() = %q, %v", dir, ok)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[build\n"},
		{"unknown key", "[build]\nouts = 1\n"},
		{"negative timeout", "[java]\ntest_timeout_ms = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestCtyValue(t *testing.T) {
	c := Default()
	v := c.CtyValue()
	java := v.GetAttr("java")
	if got := java.GetAttr("source_level"); !got.RawEquals(cty.StringVal(DefaultSourceLevel)) {
		t.Errorf("java.source_level = %#v", got)
	}
	if got := v.GetAttr("cxx").GetAttr("ld_search_path_env"); got.AsString() != DefaultLDSearchPath {
		t.Errorf("cxx.ld_search_path_env = %q", got.AsString())
	}
}
