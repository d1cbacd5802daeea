package javaruntime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"mclaunch/internal/download"
	"mclaunch/internal/paths"
	"mclaunch/internal/platform"
)

func newRuntimeServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/all.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"linux": {"java-runtime-gamma": [{"manifest": {"url": "%s/manifest.json"}}], "jre-legacy": []}}`, srv.URL)
	})
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"files": {
			"bin": {"type": "directory"},
			"bin/java": {"type": "file", "executable": true, "downloads": {"raw": {"url": "%[1]s/java"}}},
			"lib/rt.jar": {"type": "file", "executable": false, "downloads": {"raw": {"url": "%[1]s/rt"}}},
			"bin/jexec": {"type": "link", "target": "java"}
		}}`, srv.URL)
	})
	mux.HandleFunc("/java", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("#!/bin/sh\n")) })
	mux.HandleFunc("/rt", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("jar")) })
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureInstallsAndCommitsManifest(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	var hits atomic.Int32
	srv := newRuntimeServer(t, &hits)
	layout := paths.New(t.TempDir(), "linux")
	inst := &Installer{
		Layout:    layout,
		Platform:  platform.FromName("linux", ""),
		Downloads: download.NewManager("", 2, nil, nil),
		IndexURL:  srv.URL + "/all.json",
	}

	if err := inst.Ensure(context.Background(), "java-runtime-gamma"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	java := Executable(layout, inst.Platform, "java-runtime-gamma")
	info, err := os.Stat(java)
	if err != nil {
		t.Fatalf("stat java: %v", err)
	}
	if info.Mode()&0o100 == 0 {
		t.Fatalf("java not executable: %v", info.Mode())
	}
	target, err := os.Readlink(filepath.Join(layout.RuntimeComponentDir("java-runtime-gamma"), "bin", "jexec"))
	if err != nil || target != "java" {
		t.Fatalf("link target = %q, %v", target, err)
	}
	if ok, _ := paths.FileExists(layout.RuntimeManifest("java-runtime-gamma")); !ok {
		t.Fatal("manifest marker not committed")
	}

	first := hits.Load()
	if err := inst.Ensure(context.Background(), "java-runtime-gamma"); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if hits.Load() != first {
		t.Fatalf("second Ensure issued %d requests", hits.Load()-first)
	}
}

func TestEnsureUnavailableComponent(t *testing.T) {
	var hits atomic.Int32
	srv := newRuntimeServer(t, &hits)
	inst := &Installer{
		Layout:    paths.New(t.TempDir(), "linux"),
		Platform:  platform.FromName("linux", ""),
		Downloads: download.NewManager("", 1, nil, nil),
		IndexURL:  srv.URL + "/all.json",
	}
	err := inst.Ensure(context.Background(), "jre-legacy")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) || unavailable.Component != "jre-legacy" {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}

func TestExecutablePerPlatform(t *testing.T) {
	layout := paths.New("/mc", "windows-x64")
	got := Executable(layout, platform.FromName("windows-x64", ""), "jre-legacy")
	want := filepath.Join("/mc", "runtime", "windows-x64", "jre-legacy", "bin", "java.exe")
	if got != want {
		t.Fatalf("windows executable = %q, want %q", got, want)
	}

	mac := paths.New("/mc", "mac-os")
	got = Executable(mac, platform.FromName("mac-os", ""), "jre-legacy")
	want = filepath.Join("/mc", "runtime", "mac-os", "jre-legacy", "jre.bundle", "Contents", "Home", "bin", "java")
	if got != want {
		t.Fatalf("mac executable = %q, want %q", got, want)
	}
}
