// Package archive reads and unpacks zip archives (jars, native bundles,
// installer jars) and copies extracted trees into place.
package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrEntryNotFound is returned when a named entry is absent from an archive.
var ErrEntryNotFound = errors.New("archive entry not found")

// ExtractPrefix unpacks the entries under prefix (e.g. "maven/") below dest,
// with the prefix stripped. Existing files are left untouched.
func ExtractPrefix(archivePath, prefix, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if !strings.HasPrefix(file.Name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(file.Name, prefix)
		if rel == "" {
			continue
		}
		target, err := safeJoin(dest, rel)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := writeEntry(file, target); err != nil {
			return err
		}
	}
	return nil
}

// ExtractFlat copies every entry accepted by keep directly into dest,
// discarding the archive's directory structure. It returns the written names.
func ExtractFlat(archivePath, dest string, keep func(name string) bool) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}

	var written []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		base := path.Base(file.Name)
		if keep != nil && !keep(file.Name) {
			continue
		}
		if err := writeEntry(file, filepath.Join(dest, base)); err != nil {
			return written, err
		}
		written = append(written, base)
	}
	return written, nil
}

// ReadEntry returns the contents of one entry.
func ReadEntry(archivePath, name string) ([]byte, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	name = strings.TrimPrefix(name, "/")
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s in %s: %w", name, filepath.Base(archivePath), ErrEntryNotFound)
}

// ExtractEntry writes one entry to target.
func ExtractEntry(archivePath, name, target string) error {
	data, err := ReadEntry(archivePath, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", target, err)
	}
	return os.WriteFile(target, data, 0o644)
}

// MainClass reads the Main-Class attribute from a jar's manifest.
func MainClass(jarPath string) (string, error) {
	data, err := ReadEntry(jarPath, "META-INF/MANIFEST.MF")
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if value, ok := strings.CutPrefix(line, "Main-Class:"); ok {
			return strings.TrimSpace(value), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan manifest: %w", err)
	}
	return "", fmt.Errorf("no Main-Class in %s", filepath.Base(jarPath))
}

// CopyTree copies regular files from src into dst, creating directories as
// needed. Files already present in dst are kept.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		return CopyFile(p, target)
	})
}

// CopyFile copies src to dst.
func CopyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dest, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		return err
	}
	return nil
}

func writeEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("copy file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("zip entry %q escapes destination", name)
	}
	return target, nil
}
