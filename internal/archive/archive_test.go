package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jar")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractFlat(t *testing.T) {
	jar := writeZip(t, map[string]string{
		"META-INF/MANIFEST.MF":         "Manifest-Version: 1.0\n",
		"linux/x64/org/lwjgl/liblw.so": "so",
		"native/libopenal.so":          "al",
	})
	dest := filepath.Join(t.TempDir(), "natives")
	written, err := ExtractFlat(jar, dest, func(name string) bool { return strings.HasSuffix(name, ".so") })
	if err != nil {
		t.Fatalf("ExtractFlat: %v", err)
	}
	slices.Sort(written)
	if !slices.Equal(written, []string{"liblw.so", "libopenal.so"}) {
		t.Fatalf("written = %v", written)
	}
	if data, err := os.ReadFile(filepath.Join(dest, "liblw.so")); err != nil || string(data) != "so" {
		t.Fatalf("liblw.so = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "MANIFEST.MF")); !os.IsNotExist(err) {
		t.Fatal("filtered entry was written")
	}
}

func TestExtractPrefix(t *testing.T) {
	jar := writeZip(t, map[string]string{
		"maven/net/minecraftforge/forge/1/forge-1.jar": "forge",
		"data/client.lzma": "lzma",
	})
	dest := t.TempDir()
	if err := ExtractPrefix(jar, "maven/", dest); err != nil {
		t.Fatalf("ExtractPrefix: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "net", "minecraftforge", "forge", "1", "forge-1.jar")); err != nil {
		t.Fatalf("maven entry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "data")); !os.IsNotExist(err) {
		t.Fatal("entry outside prefix extracted")
	}
}

func TestMainClass(t *testing.T) {
	jar := writeZip(t, map[string]string{
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\r\nMain-Class: net.minecraftforge.installertools.ConsoleTool\r\n",
	})
	got, err := MainClass(jar)
	if err != nil {
		t.Fatalf("MainClass: %v", err)
	}
	if got != "net.minecraftforge.installertools.ConsoleTool" {
		t.Fatalf("MainClass = %q", got)
	}
}

func TestReadEntryMissing(t *testing.T) {
	jar := writeZip(t, map[string]string{"a.txt": "a"})
	if _, err := ReadEntry(jar, "b.txt"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	data, err := ReadEntry(jar, "/a.txt")
	if err != nil || string(data) != "a" {
		t.Fatalf("ReadEntry = %q, %v", data, err)
	}
}

func TestCopyTreeKeepsExisting(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a", "b", "new.jar"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a", "keep.jar"), []byte("src"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dst, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "a", "keep.jar"), []byte("dst"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "a", "b", "new.jar")); string(data) != "new" {
		t.Fatalf("new.jar = %q", data)
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "a", "keep.jar")); string(data) != "dst" {
		t.Fatalf("keep.jar overwritten: %q", data)
	}
}
