package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackpm/pkg/cache"
	"github.com/matzehuels/stackpm/pkg/config"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	treeio "github.com/matzehuels/stackpm/pkg/io"
	"github.com/matzehuels/stackpm/pkg/manifest"
	"github.com/matzehuels/stackpm/pkg/observability"
	"github.com/matzehuels/stackpm/pkg/registrytest"
	"github.com/matzehuels/stackpm/pkg/tree"
)

type testCLI struct {
	*CLI
	logs *bytes.Buffer
	env  map[string]string
}

// newTestCLI returns a CLI isolated from the user's config files and
// STACKPM_* variables.
func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	t.Cleanup(observability.Reset)

	logs := &bytes.Buffer{}
	tc := &testCLI{CLI: New(logs, log.InfoLevel), logs: logs, env: map[string]string{}}
	tc.Env = func(key string) (string, bool) {
		v, ok := tc.env[key]
		return v, ok
	}
	return tc
}

func (tc *testCLI) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := tc.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeProject(t *testing.T, deps map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(map[string]any{"name": "app", "dependencies": deps})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), data, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newFixtureRegistry(t *testing.T) *registrytest.Registry {
	t.Helper()
	reg := registrytest.New(t)
	reg.Publish(
		registrytest.Package{Name: "a", Version: "1.0.0", Dependencies: map[string]string{"b": "^1.0.0"}},
		registrytest.Package{Name: "b", Version: "1.0.0"},
		registrytest.Package{Name: "b", Version: "1.4.2"},
	)
	return reg
}

func TestInstallCommand(t *testing.T) {
	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"a": "^1.0.0"})
	cacheDir := t.TempDir()

	out, err := tc.run(t, "install", dir, "--registry", reg.URL(), "--cache-dir", cacheDir)
	if err != nil {
		t.Fatalf("install: %v\nlogs:\n%s", err, tc.logs)
	}
	if !strings.Contains(out, "Installed 2 packages") {
		t.Errorf("output missing summary:\n%s", out)
	}

	for _, name := range []string{"a", "b"} {
		m, err := manifest.Read(filepath.Join(dir, "node_modules", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if name == "b" && m.Version != "1.4.2" {
			t.Errorf("b version = %s, want hoisted 1.4.2", m.Version)
		}
	}

	fc, err := cache.NewFileCache(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := fc.Get(context.Background(), "b/1.4.2.tgz"); !ok {
		t.Error("archive for b@1.4.2 not cached")
	}
}

func TestInstallNoCache(t *testing.T) {
	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"b": "1.0.0"})
	cacheDir := t.TempDir()
	tc.env[config.EnvCacheDir] = cacheDir

	if _, err := tc.run(t, "install", dir, "--registry", reg.URL(), "--no-cache"); err != nil {
		t.Fatalf("install: %v", err)
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("cache dir has %d entries with --no-cache", len(entries))
	}
}

func TestInstallConfigFile(t *testing.T) {
	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"b": "^1.0.0"})
	cacheDir := t.TempDir()

	cfgPath := filepath.Join(t.TempDir(), "stackpm.toml")
	body := "registry = \"" + reg.URL() + "\"\nconcurrency = 1\n\n[cache]\ndir = \"" + filepath.ToSlash(cacheDir) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := tc.run(t, "--config", cfgPath, "install", dir); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "b", "1.4.2.tgz")); err != nil {
		t.Errorf("archive not cached in configured dir: %v", err)
	}
}

func TestInstallRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"b": "1.0.0"})
	tc.env[config.EnvCacheBackend] = config.BackendRedis
	tc.env[config.EnvRedisURL] = "redis://" + mr.Addr()

	if _, err := tc.run(t, "install", dir, "--registry", reg.URL()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if !mr.Exists(config.DefaultRedisPrefix + "b/1.0.0.tgz") {
		t.Errorf("archive not cached in redis; keys: %v", mr.Keys())
	}

	out, err := tc.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 cached archives") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("keys left after clear: %v", mr.Keys())
	}
}

func TestInstallErrors(t *testing.T) {
	reg := newFixtureRegistry(t)

	tests := []struct {
		name string
		deps map[string]string
		args []string
		code errs.Code
	}{
		{"negative concurrency", nil, []string{"--concurrency", "-1"}, errs.ErrCodeInvalidConfig},
		{"bad registry scheme", nil, []string{"--registry", "ftp://example.com"}, errs.ErrCodeInvalidConfig},
		{"unknown package", map[string]string{"missing": "1.0.0"}, nil, errs.ErrCodeResolution},
		{"no matching version", map[string]string{"b": "^9.0.0"}, nil, errs.ErrCodeResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t)
			dir := writeProject(t, tt.deps)
			args := append([]string{"install", dir, "--registry", reg.URL(), "--no-cache"}, tt.args...)
			_, err := tc.run(t, args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestInstallMissingManifest(t *testing.T) {
	tc := newTestCLI(t)
	if _, err := tc.run(t, "install", t.TempDir(), "--no-cache"); err == nil {
		t.Fatal("expected error for a directory without package.json")
	}
}

func TestVerboseLogsTraffic(t *testing.T) {
	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"b": "1.0.0"})

	if _, err := tc.run(t, "-v", "install", dir, "--registry", reg.URL(), "--cache-dir", t.TempDir()); err != nil {
		t.Fatalf("install: %v", err)
	}
	logs := tc.logs.String()
	for _, want := range []string{"http request", "cache miss", "cache set", "stage finished"} {
		if !strings.Contains(logs, want) {
			t.Errorf("verbose logs missing %q", want)
		}
	}
}

func TestTreeCommand(t *testing.T) {
	reg := registrytest.New(t)
	reg.Publish(
		registrytest.Package{Name: "a", Version: "1.0.0", Dependencies: map[string]string{"c": "1.0.0"}},
		registrytest.Package{Name: "b", Version: "1.0.0", Dependencies: map[string]string{"c": "1.0.0"}},
		registrytest.Package{Name: "c", Version: "1.0.0"},
	)
	dir := writeProject(t, map[string]string{"a": "1.0.0", "b": "1.0.0"})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"optimized", nil, "app\n└─ a@1.0.0\n└─ b@1.0.0\n└─ c@1.0.0\n"},
		{"raw", []string{"--raw"}, "app\n└─ a@1.0.0\n   └─ c@1.0.0\n└─ b@1.0.0\n   └─ c@1.0.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t)
			args := append([]string{"tree", dir, "--registry", reg.URL()}, tt.args...)
			out, err := tc.run(t, args...)
			if err != nil {
				t.Fatalf("tree: %v", err)
			}
			if out != tt.want {
				t.Errorf("tree output:\n%s\nwant:\n%s", out, tt.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "node_modules")); !os.IsNotExist(err) {
		t.Error("tree should not create node_modules")
	}
}

func TestTreeDOTToFile(t *testing.T) {
	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"a": "^1.0.0"})
	outPath := filepath.Join(t.TempDir(), "tree.dot")

	out, err := tc.run(t, "tree", dir, "--registry", reg.URL(), "--format", "dot", "-o", outPath)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !strings.Contains(out, outPath) {
		t.Errorf("output does not name the file:\n%s", out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"digraph G {", `label="a@1.0.0"`, `label="b@1.4.2"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("DOT missing %q:\n%s", want, data)
		}
	}
}

func TestTreeJSON(t *testing.T) {
	tc := newTestCLI(t)
	reg := newFixtureRegistry(t)
	dir := writeProject(t, map[string]string{"a": "^1.0.0"})

	out, err := tc.run(t, "tree", dir, "--registry", reg.URL(), "--format", "json")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	got, err := treeio.ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadJSON: %v\n%s", err, out)
	}
	want := tree.New("app", "", tree.New("a", "1.0.0"), tree.New("b", "1.4.2"))
	if !tree.Equal(got, want) {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func TestTreeUnknownFormat(t *testing.T) {
	tc := newTestCLI(t)
	_, err := tc.run(t, "tree", t.TempDir(), "--format", "png")
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestCachePathAndClear(t *testing.T) {
	tc := newTestCLI(t)
	dir := filepath.Join(t.TempDir(), "archives")
	tc.env[config.EnvCacheDir] = dir

	out, err := tc.run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", out, dir)
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"a/1.0.0.tgz", "@scope/b/2.0.0.tgz"} {
		if err := fc.Set(ctx, key, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	out, err = tc.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 cached archives") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, ok, _ := fc.Get(ctx, "a/1.0.0.tgz"); ok {
		t.Error("entry survived cache clear")
	}
}

func TestCacheDisabled(t *testing.T) {
	tc := newTestCLI(t)
	tc.env[config.EnvCacheBackend] = config.BackendNone

	out, err := tc.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "disabled") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDefaultCacheDirFollowsXDG(t *testing.T) {
	tc := newTestCLI(t)
	out, err := tc.run(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), "stackpm", "archives")
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestVersionFlag(t *testing.T) {
	tc := newTestCLI(t)
	out, err := tc.run(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "stackpm dev") {
		t.Errorf("version output = %q", out)
	}
}
