package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const testTargets = `{"targets": [
  {"target": "//java/model:model", "kind": "java_library", "args": {"srcs": ["Model.java"]}},
  {"target": "//java/api:api", "kind": "java_library",
   "args": {"srcs": ["Api.java"], "exported_deps": ["//java/model:model"]}},
  {"target": "//java/app:app", "kind": "java_library",
   "args": {"srcs": ["App.java"], "deps": ["//java/api:api"], "provided_deps": ["//third_party:servlet"]}},
  {"target": "//third_party:servlet", "kind": "prebuilt_jar", "args": {"binary_jar": "servlet.jar"}}
]}`

type testEnv struct {
	t  *testing.T
	fs afero.Fs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", "/cache")
	env := &testEnv{t: t, fs: afero.NewMemMapFs()}
	env.write("targets.json", testTargets)
	env.write("java/model/Model.java", "class Model {}")
	env.write("java/api/Api.java", "interface Api {}")
	env.write("java/app/App.java", "class App {}")
	env.write("third_party/servlet.jar", "PK")
	return env
}

func (e *testEnv) write(rel, content string) {
	e.t.Helper()
	if err := afero.WriteFile(e.fs, filepath.Join("/repo", rel), []byte(content), 0o644); err != nil {
		e.t.Fatal(err)
	}
}

// run executes one CLI invocation and returns its stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out, logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.FS = e.fs
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(append([]string{"--root", "/repo"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestKinds(t *testing.T) {
	out := newTestEnv(t).mustRun("kinds")
	for _, want := range []string{"java_library", "java_test", "javadoc_jar", "prebuilt_jar", "cxx_library", "builtin", "abi,maven-jar"} {
		if !strings.Contains(out, want) {
			t.Errorf("kinds output missing %q:\n%s", want, out)
		}
	}
}

func TestPluginsDisabled(t *testing.T) {
	out := newTestEnv(t).mustRun("plugins")
	if !strings.Contains(out, "Plugin discovery is disabled") {
		t.Errorf("plugins output = %q", out)
	}
}

func TestClasspathViews(t *testing.T) {
	env := newTestEnv(t)
	const (
		apiJar   = "/repo/build-out/gen/java/api/lib__api__output/api.jar"
		appJar   = "/repo/build-out/gen/java/app/lib__app__output/app.jar"
		modelJar = "/repo/build-out/gen/java/model/lib__model__output/model.jar"
		servlet  = "/repo/third_party/servlet.jar"
	)
	tests := []struct {
		view string
		want []string
	}{
		{"output", []string{appJar}},
		{"declared", []string{apiJar, modelJar, servlet}},
		{"transitive", []string{apiJar, appJar, modelJar}},
		{"transitive_deps", []string{"//java/api:api", "//java/app:app", "//java/model:model"}},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			out := env.mustRun("classpath", "--view", tt.view, "//java/app:app")
			got := lines(out)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("classpath --view %s =\n%s\nwant\n%s", tt.view, out, strings.Join(tt.want, "\n"))
			}
		})
	}

	out := env.mustRun("classpath", "--arg", "//java/api:api")
	want := apiJar + string(os.PathListSeparator) + modelJar
	if strings.TrimSpace(out) != want {
		t.Errorf("classpath --arg = %q, want %q", out, want)
	}

	if _, err := env.run("classpath", "--view", "bogus", "//java/app:app"); err == nil {
		t.Error("unknown view accepted")
	}
}

func TestClasspathUnsupportedFlavor(t *testing.T) {
	_, err := newTestEnv(t).run("classpath", "//java/app:app#native-libs")
	if err == nil || !strings.Contains(err.Error(), "INVALID_FLAVOR") {
		t.Errorf("classpath of unsupported flavor = %v", err)
	}
}

func TestRulekey(t *testing.T) {
	env := newTestEnv(t)
	first := env.mustRun("rulekey", "//java/app:app")
	if first != env.mustRun("rulekey", "//java/app:app") {
		t.Error("rule key is not stable across invocations")
	}

	env.write("java/model/Model.java", "class Model { int x; }")
	if first == env.mustRun("rulekey", "//java/app:app") {
		t.Error("rule key did not change with a transitive source")
	}

	out := env.mustRun("rulekey", "--fields", "//java/app:app")
	for _, want := range []string{"srcs (value)", "output_jar (excluded)"} {
		if !strings.Contains(out, want) {
			t.Errorf("rulekey --fields missing %q:\n%s", want, out)
		}
	}
}

func TestDeps(t *testing.T) {
	out := newTestEnv(t).mustRun("deps", "//java/app:app")
	for _, want := range []string{
		"//java/app:app (java_library)",
		"[declared]  //java/api:api (java_library)",
		"[exported]  //java/model:model (java_library)",
		"[provided]  //third_party:servlet (prebuilt_jar)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("deps output missing %q:\n%s", want, out)
		}
	}
}

func TestGraph(t *testing.T) {
	env := newTestEnv(t)
	dot := env.mustRun("graph", "//java/api:api")
	if !strings.Contains(dot, `"//java/api:api" -> "//java/model:model" [style=bold];`) {
		t.Errorf("graph output missing exported edge:\n%s", dot)
	}
	if strings.Contains(dot, "//java/app:app") {
		t.Errorf("graph of //java/api:api includes unreachable targets:\n%s", dot)
	}

	out := env.mustRun("graph", "--format", "json", "--output", "graph.json")
	if !strings.Contains(out, "Wrote 4 targets") {
		t.Errorf("graph --output = %q", out)
	}
	data, err := afero.ReadFile(env.fs, "/repo/graph.json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"//third_party:servlet"`) {
		t.Errorf("graph.json = %s", data)
	}
}

func TestGraphCycle(t *testing.T) {
	env := newTestEnv(t)
	env.write("targets.json", `{"targets": [
	  {"target": "//a:a", "kind": "java_library", "args": {"deps": ["//b:b"]}},
	  {"target": "//b:b", "kind": "java_library", "args": {"deps": ["//a:a"]}}
	]}`)
	_, err := env.run("graph")
	if err == nil || !strings.Contains(err.Error(), "//a:a -> //b:b -> //a:a") {
		t.Errorf("graph with a cycle = %v", err)
	}
}

func TestExpand(t *testing.T) {
	out := newTestEnv(t).mustRun("expand", "//java/app:app", "javac $(srcs :app)", "-cp $(classpath //java/api:api)")
	got := lines(out)
	want := []string{
		"javac /repo/java/app/App.java",
		"-cp /repo/build-out/gen/java/api/lib__api__output/api.jar" + string(os.PathListSeparator) +
			"/repo/build-out/gen/java/model/lib__model__output/model.jar",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("expand =\n%s\nwant\n%s", out, strings.Join(want, "\n"))
	}
}

func TestExpandDashArguments(t *testing.T) {
	out := newTestEnv(t).mustRun("expand", "//java/app:app", "-d $(bindir :app)", "--verbose")
	want := "-d /repo/build-out/bin/java/app/lib__app__classes\n--verbose"
	if strings.TrimSpace(out) != want {
		t.Errorf("expand = %q, want %q", out, want)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("status", "--record")
	if !strings.Contains(out, "added") || !strings.Contains(out, "//java/app:app") {
		t.Errorf("first status = %q", out)
	}
	if !strings.Contains(out, "Recorded") {
		t.Errorf("status --record did not record: %q", out)
	}

	out = env.mustRun("status")
	if !strings.Contains(out, "No changes") {
		t.Errorf("unchanged status = %q", out)
	}

	env.write("java/api/Api.java", "interface Api { void run(); }")
	out = env.mustRun("status")
	if !strings.Contains(out, "modified") || !strings.Contains(out, "//java/api:api") {
		t.Errorf("status after edit = %q", out)
	}
	if strings.Contains(out, "//java/model:model") {
		t.Errorf("unaffected rule reported as changed: %q", out)
	}

	out = env.mustRun("status", "--no-cache")
	if !strings.Contains(out, "added") {
		t.Errorf("status --no-cache = %q", out)
	}
}

func TestCacheClear(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("cache", "clear")
	if !strings.Contains(out, "Cache is empty") {
		t.Errorf("cache clear on empty cache = %q", out)
	}

	env.mustRun("status", "--record")
	out = env.mustRun("cache", "clear")
	if !strings.Contains(out, "Cleared 1 cached entries") {
		t.Errorf("cache clear = %q", out)
	}
	if ok, _ := afero.DirExists(env.fs, "/cache/rulegraph"); ok {
		t.Error("cache directory still exists")
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "rulegraph") {
		t.Errorf("cacheDir() = %q", dir)
	}

	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir, _ = cacheDir()
	if dir != filepath.Join(home, ".cache", "rulegraph") {
		t.Errorf("cacheDir() = %q", dir)
	}
}

func TestVersion(t *testing.T) {
	out := newTestEnv(t).mustRun("version")
	if !strings.Contains(out, "version: dev") || !strings.Contains(out, "build id: ") {
		t.Errorf("version = %q", out)
	}
}
