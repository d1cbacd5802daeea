package install

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mclaunch/internal/assets"
	"mclaunch/internal/config"
	"mclaunch/internal/download"
	"mclaunch/internal/paths"
	"mclaunch/internal/version"
)

const catalogDoc = `{
  "latest": {"release": "1.20.1", "snapshot": "1.20.1"},
  "versions": [{"id": "1.20.1", "type": "release", "url": "{{base}}/v/1.20.1.json", "time": "t", "releaseTime": "r"}]
}`

const descriptorDoc = `{
  "id": "1.20.1",
  "type": "release",
  "mainClass": "net.minecraft.client.main.Main",
  "assetIndex": {"id": "5", "url": "{{base}}/assets/5.json"},
  "downloads": {"client": {"url": "{{base}}/client.jar"}},
  "javaVersion": {"component": "java-runtime-gamma"},
  "arguments": {"game": ["--version", "${version_name}"], "jvm": ["-cp", "${classpath}"]},
  "libraries": [
    {"name": "com.example:core:1.0", "downloads": {"artifact": {"path": "com/example/core/1.0/core-1.0.jar", "url": "{{base}}/lib/core.jar"}}},
    {"name": "com.example:winonly:1.0", "downloads": {"artifact": {"path": "com/example/winonly/1.0/winonly-1.0.jar", "url": "{{base}}/lib/winonly.jar"}}, "rules": [{"action": "allow", "os": {"name": "windows"}}]},
    {"name": "org.lwjgl:lwjgl:3.3.1:natives-linux", "downloads": {"artifact": {"path": "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar", "url": "{{base}}/lib/natives-linux.jar"}}},
    {"name": "org.lwjgl:lwjgl:3.3.1:natives-windows", "downloads": {"artifact": {"path": "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-windows.jar", "url": "{{base}}/lib/natives-windows.jar"}}}
  ]
}`

const assetIndexDoc = `{"objects": {"icons/icon.png": {"hash": "ab12cd", "size": 3}}}`

type fakeRuntime struct{ calls []string }

func (f *fakeRuntime) Ensure(_ context.Context, component string) error {
	f.calls = append(f.calls, component)
	return nil
}

type requestLog struct {
	mu    sync.Mutex
	total int
	paths map[string]int
}

func (r *requestLog) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.paths[path]++
}

func (r *requestLog) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[path]
}

func (r *requestLog) sum() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func nativeJar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"META-INF/MANIFEST.MF":  "Manifest-Version: 1.0\n",
		"linux/x64/liblwjgl.so": "elf",
		"linux/x64/README.txt":  "docs",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newPipeline(t *testing.T) (*Pipeline, *requestLog, *fakeRuntime) {
	t.Helper()
	log := &requestLog{paths: map[string]int{}}
	jar := nativeJar(t)
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		expand := func(s string) []byte { return []byte(strings.ReplaceAll(s, "{{base}}", srv.URL)) }
		switch r.URL.Path {
		case "/catalog.json":
			_, _ = w.Write(expand(catalogDoc))
		case "/v/1.20.1.json":
			_, _ = w.Write(expand(descriptorDoc))
		case "/assets/5.json":
			_, _ = w.Write([]byte(assetIndexDoc))
		case "/lib/natives-linux.jar":
			_, _ = w.Write(jar)
		default:
			_, _ = w.Write([]byte("bytes:" + r.URL.Path))
		}
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Platform = "linux"
	layout := paths.New(t.TempDir(), "linux")
	p := New(layout, cfg, download.NewManager("", 4, nil, nil), nil)
	p.CatalogURL = srv.URL + "/catalog.json"
	p.Assets.(*assets.Fetcher).BaseURL = srv.URL
	rt := &fakeRuntime{}
	p.Runtime = rt
	return p, log, rt
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		sum := sha1.Sum(data)
		rel, _ := filepath.Rel(root, p)
		out[rel] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestInstallMaterialisesVersion(t *testing.T) {
	p, requests, rt := newPipeline(t)
	v, err := p.Install(context.Background(), "1.20.1")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if v.MainClass != "net.minecraft.client.main.Main" {
		t.Fatalf("unexpected version: %+v", v)
	}
	l := p.Layout

	for _, want := range []string{
		l.VersionJSON("1.20.1"),
		l.ClientJar("1.20.1"),
		l.LibraryPath("com/example/core/1.0/core-1.0.jar"),
		l.AssetIndexPath("5"),
		l.AssetObjectPath("ab12cd"),
		filepath.Join(l.NativesDir("1.20.1"), "liblwjgl.so"),
	} {
		if ok, _ := paths.FileExists(want); !ok {
			t.Errorf("missing %s", want)
		}
	}
	if ok, _ := paths.FileExists(l.LibraryPath("com/example/winonly/1.0/winonly-1.0.jar")); ok {
		t.Error("windows-only library fetched on linux")
	}
	if requests.count("/lib/natives-windows.jar") != 0 {
		t.Error("windows natives fetched on linux")
	}
	if ok, _ := paths.FileExists(filepath.Join(l.NativesDir("1.20.1"), "README.txt")); ok {
		t.Error("non-library file unpacked into natives")
	}
	if len(rt.calls) != 1 || rt.calls[0] != "java-runtime-gamma" {
		t.Errorf("runtime calls = %v", rt.calls)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	p, requests, _ := newPipeline(t)
	if _, err := p.Install(context.Background(), "1.20.1"); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	before := snapshot(t, p.Layout.Root)
	first := requests.sum()

	cfg := config.Default()
	cfg.Platform = "linux"
	again := New(p.Layout, cfg, p.Downloads, nil)
	again.CatalogURL = p.CatalogURL
	again.Runtime = p.Runtime
	again.Assets.(*assets.Fetcher).BaseURL = p.Assets.(*assets.Fetcher).BaseURL
	if _, err := again.Install(context.Background(), "1.20.1"); err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if got := requests.sum(); got != first {
		t.Fatalf("second install issued %d requests", got-first)
	}
	after := snapshot(t, p.Layout.Root)
	if len(before) != len(after) {
		t.Fatalf("tree changed: %d files before, %d after", len(before), len(after))
	}
	for k, v := range before {
		if after[k] != v {
			t.Fatalf("file %s changed", k)
		}
	}
}

func TestInstallUnknownVersion(t *testing.T) {
	p, _, _ := newPipeline(t)
	_, err := p.Install(context.Background(), "9.9.9")
	var nf *version.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := os.Stat(p.Layout.VersionDir("9.9.9")); err == nil {
		t.Fatal("unknown version left a directory behind")
	}
}

func TestInstallFailureLeavesNoClientJar(t *testing.T) {
	p, _, _ := newPipeline(t)
	p.Downloads.Fetcher = failingFetcher{inner: p.Downloads.Fetcher, fail: "/lib/core.jar"}
	_, err := p.Install(context.Background(), "1.20.1")
	var failed *download.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected FailedError, got %v", err)
	}
	if p.Installed("1.20.1") {
		t.Fatal("client jar present after failed install")
	}
}

type failingFetcher struct {
	inner download.Fetcher
	fail  string
}

func (f failingFetcher) Fetch(ctx context.Context, url string, w io.Writer) error {
	if strings.HasSuffix(url, f.fail) {
		return &download.FailedError{URL: url, Status: http.StatusInternalServerError}
	}
	return f.inner.Fetch(ctx, url, w)
}
