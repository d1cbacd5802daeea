package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"mclaunch/internal/paths"
	"mclaunch/internal/runner"
)

const testDescriptor = `{
  "id": "1.20.1",
  "type": "release",
  "mainClass": "net.minecraft.client.main.Main",
  "assetIndex": {"id": "5", "url": "https://example.invalid/5.json"},
  "downloads": {"client": {"url": "https://example.invalid/client.jar"}},
  "javaVersion": {"component": "java-runtime-gamma"},
  "arguments": {"game": ["--username", "${auth_player_name}", "--version", "${version_name}"], "jvm": ["-cp", "${classpath}"]},
  "libraries": [
    {"name": "com.example:core:1.0", "downloads": {"artifact": {"path": "com/example/core/1.0/core-1.0.jar", "url": "https://example.invalid/core.jar"}}}
  ]
}`

const testCatalog = `{
  "latest": {"release": "1.20.1", "snapshot": "23w31a"},
  "versions": [
    {"id": "23w31a", "type": "snapshot", "url": "u", "time": "t", "releaseTime": "2023-08-01"},
    {"id": "1.20.1", "type": "release", "url": "u", "time": "t", "releaseTime": "2023-06-12"},
    {"id": "1.20", "type": "release", "url": "u", "time": "t", "releaseTime": "2023-06-07"},
    {"id": "1.19.4", "type": "release", "url": "u", "time": "t", "releaseTime": "2023-03-14"}
  ]
}`

// withFlags gives the test a fresh launcher root and restores the
// collaborators tests are allowed to swap. Flag variables are reset by
// newRootCmd itself.
func withFlags(t *testing.T) string {
	t.Helper()
	prevCatalog, prevRunner := catalogURL, launchRunner
	t.Cleanup(func() {
		catalogURL, launchRunner = prevCatalog, prevRunner
	})
	catalogURL = ""
	return t.TempDir()
}

func seedInstalledVersion(t *testing.T, root string) paths.Layout {
	t.Helper()
	layout := paths.New(root, "linux")
	if err := os.MkdirAll(layout.VersionDir("1.20.1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(layout.VersionJSON("1.20.1"), []byte(testDescriptor), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(layout.ClientJar("1.20.1"), []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	return layout
}

// execute runs the full command tree against root on a fixed platform.
func execute(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	args = append(args, "--root", root, "--platform", "linux")
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	root := withFlags(t)

	out, _, err := execute(t, root, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, filepath.Join(root, "launcher.yaml")) {
		t.Fatalf("unexpected init output %q", out)
	}

	if _, _, err := execute(t, root, "config", "init"); err == nil {
		t.Fatal("expected second init to refuse overwriting")
	}

	out, _, err = execute(t, root, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"arch_rule_mode: arch", "username: Player", "concurrency: 5"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowRejectsInvalidFile(t *testing.T) {
	root := withFlags(t)
	if err := os.WriteFile(filepath.Join(root, "launcher.yaml"), []byte("arch_rule_mode: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := execute(t, root, "config", "show")
	if err == nil || !strings.Contains(err.Error(), "arch_rule_mode") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVersionsJSON(t *testing.T) {
	root := withFlags(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testCatalog))
	}))
	defer srv.Close()
	catalogURL = srv.URL
	seedInstalledVersion(t, root)

	out, _, err := execute(t, root, "versions", "1.20", "--type", "release", "--json")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	var rows []versionRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 matches, got %+v", rows)
	}
	installed := map[string]bool{}
	for _, row := range rows {
		installed[row.ID] = row.Installed
	}
	if !installed["1.20.1"] || installed["1.20"] {
		t.Fatalf("installed flags wrong: %+v", rows)
	}
}

func TestVersionsTable(t *testing.T) {
	root := withFlags(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testCatalog))
	}))
	defer srv.Close()
	catalogURL = srv.URL

	out, _, err := execute(t, root, "versions", "--limit", "2")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if !strings.Contains(out, "Latest release: 1.20.1") {
		t.Fatalf("missing latest line: %q", out)
	}
	if !strings.Contains(out, "23w31a") || strings.Contains(out, "1.19.4") {
		t.Fatalf("limit not applied: %q", out)
	}
}

func TestLaunchDryRunJSON(t *testing.T) {
	root := withFlags(t)
	layout := seedInstalledVersion(t, root)

	out, _, err := execute(t, root, "launch", "1.20.1", "--dry-run", "--json", "--username", "Steve")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	var res launchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Dir != layout.InstanceDir("1.20.1") {
		t.Fatalf("dir = %q", res.Dir)
	}
	mainIdx := slices.Index(res.Args, "net.minecraft.client.main.Main")
	if mainIdx < 0 {
		t.Fatalf("main class missing from %v", res.Args)
	}
	game := res.Args[mainIdx+1:]
	if !slices.Equal(game, []string{"--username", "Steve", "--version", "1.20.1"}) {
		t.Fatalf("game args = %v", game)
	}
	cp := res.Args[slices.Index(res.Args, "-cp")+1]
	if !strings.HasSuffix(cp, layout.ClientJar("1.20.1")) || !strings.Contains(cp, "core-1.0.jar") {
		t.Fatalf("classpath = %q", cp)
	}
}

type recordingRunner struct {
	command string
	args    []string
	opts    runner.RunOptions
}

func (r *recordingRunner) Run(_ context.Context, command string, args []string, opts runner.RunOptions) (runner.RunResult, error) {
	r.command, r.args, r.opts = command, args, opts
	return runner.RunResult{}, nil
}

func TestLaunchRunsThroughRunner(t *testing.T) {
	root := withFlags(t)
	layout := seedInstalledVersion(t, root)
	if err := os.WriteFile(filepath.Join(root, "launcher.yaml"), []byte("game:\n  java_path: /opt/java/bin/java\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recordingRunner{}
	launchRunner = rec

	if _, _, err := execute(t, root, "launch", "1.20.1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if rec.command != "/opt/java/bin/java" {
		t.Fatalf("command = %q", rec.command)
	}
	if rec.opts.Dir != layout.InstanceDir("1.20.1") || !rec.opts.Passthrough {
		t.Fatalf("options = %+v", rec.opts)
	}
	if !slices.Contains(rec.args, "Player") {
		t.Fatalf("default username missing from %v", rec.args)
	}
}

func TestLaunchRequiresInstall(t *testing.T) {
	root := withFlags(t)
	_, _, err := execute(t, root, "launch", "1.20.1")
	if err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Fatalf("expected not-installed error, got %v", err)
	}
}
