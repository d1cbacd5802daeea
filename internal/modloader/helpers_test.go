package modloader

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"mclaunch/internal/assets"
	"mclaunch/internal/config"
	"mclaunch/internal/download"
	"mclaunch/internal/install"
	"mclaunch/internal/paths"
	"mclaunch/internal/runner"
)

const vanillaCatalog = `{
  "latest": {"release": "1.20.1", "snapshot": "1.20.1"},
  "versions": [{"id": "1.20.1", "type": "release", "url": "{{base}}/v/1.20.1.json", "time": "t", "releaseTime": "r"}]
}`

const vanillaDescriptor = `{
  "id": "1.20.1",
  "type": "release",
  "mainClass": "net.minecraft.client.main.Main",
  "assetIndex": {"id": "5", "url": "{{base}}/assets/5.json"},
  "downloads": {"client": {"url": "{{base}}/client.jar"}},
  "javaVersion": {"component": "java-runtime-gamma"},
  "arguments": {"game": ["--version", "${version_name}"], "jvm": ["-cp", "${classpath}"]},
  "libraries": [
    {"name": "com.example:core:1.0", "downloads": {"artifact": {"path": "com/example/core/1.0/core-1.0.jar", "url": "{{base}}/lib/core.jar"}}}
  ]
}`

type stubRuntime struct{}

func (stubRuntime) Ensure(context.Context, string) error { return nil }

// testServer serves the vanilla catalog plus any extra routes.
type testServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests map[string]int
	routes   map[string][]byte
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{requests: map[string]int{}, routes: map[string][]byte{}}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.requests[r.URL.Path]++
		body, ok := ts.routes[r.URL.Path]
		ts.mu.Unlock()
		switch {
		case ok:
			_, _ = w.Write(body)
		case r.URL.Path == "/catalog.json":
			_, _ = w.Write(ts.expand(vanillaCatalog))
		case r.URL.Path == "/v/1.20.1.json":
			_, _ = w.Write(ts.expand(vanillaDescriptor))
		case r.URL.Path == "/assets/5.json":
			_, _ = w.Write([]byte(`{"objects": {}}`))
		case strings.HasPrefix(r.URL.Path, "/lib/") || r.URL.Path == "/client.jar":
			_, _ = w.Write([]byte("bytes:" + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) expand(s string) []byte {
	return []byte(strings.ReplaceAll(s, "{{base}}", ts.URL))
}

func (ts *testServer) route(path string, body []byte) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.routes[path] = body
}

func (ts *testServer) count(path string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.requests[path]
}

func newTestPipeline(t *testing.T, ts *testServer) *install.Pipeline {
	t.Helper()
	cfg := config.Default()
	cfg.Platform = "linux"
	layout := paths.New(t.TempDir(), "linux")
	p := install.New(layout, cfg, download.NewManager("", 4, nil, nil), nil)
	p.CatalogURL = ts.URL + "/catalog.json"
	p.Runtime = stubRuntime{}
	p.Assets.(*assets.Fetcher).BaseURL = ts.URL
	return p
}

type zipEntry struct {
	name string
	body []byte
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(e.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func processorJar(t *testing.T, mainClass string) []byte {
	return buildZip(t, zipEntry{"META-INF/MANIFEST.MF", []byte("Manifest-Version: 1.0\nMain-Class: " + mainClass + "\n")})
}

type recordedCall struct {
	command string
	args    []string
}

// fakeRunner records invocations and delegates behaviour to fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls []recordedCall
	fn    func(command string, args []string, opts runner.RunOptions) error
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, opts runner.RunOptions) (runner.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{command: command, args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.fn != nil {
		if err := f.fn(command, args, opts); err != nil {
			return runner.RunResult{}, err
		}
	}
	return runner.RunResult{}, nil
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
