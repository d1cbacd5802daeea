// Package javaruntime provisions the Java runtime component a version asks for.
package javaruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"mclaunch/internal/download"
	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
	"mclaunch/internal/platform"
)

// DefaultIndexURL lists runtime components per platform.
const DefaultIndexURL = "https://launchermeta.mojang.com/v1/products/java-runtime/2ec0cc96c44e5a76b9c8b7c39df7210883d12871/all.json"

// UnavailableError reports a component the index does not offer for a platform.
type UnavailableError struct {
	Component string
	Platform  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("runtime %q is not available for %s", e.Component, e.Platform)
}

// Installer downloads runtime components into the layout's runtime tree.
type Installer struct {
	Layout    paths.Layout
	Platform  platform.Context
	Downloads *download.Manager
	IndexURL  string
	Logger    *log.Logger
}

type indexEntry struct {
	Manifest struct {
		URL string `json:"url"`
	} `json:"manifest"`
}

type fileEntry struct {
	Type       string `json:"type"`
	Executable bool   `json:"executable"`
	Target     string `json:"target"`
	Downloads  struct {
		Raw struct {
			URL string `json:"url"`
		} `json:"raw"`
	} `json:"downloads"`
}

type fileManifest struct {
	Files map[string]fileEntry `json:"files"`
}

// Executable returns the java binary of an installed component.
func Executable(layout paths.Layout, ctx platform.Context, component string) string {
	dir := layout.RuntimeComponentDir(component)
	if ctx.OS == "osx" {
		dir = filepath.Join(dir, "jre.bundle", "Contents", "Home")
	}
	return filepath.Join(dir, "bin", ctx.Executable("java"))
}

// Ensure installs component unless its file manifest is already committed.
// Directories, files, executable bits and links are materialised first; the
// manifest is written last and marks the component complete.
func (i *Installer) Ensure(ctx context.Context, component string) error {
	logger := logx.OrDiscard(i.Logger)
	marker := i.Layout.RuntimeManifest(component)
	if exists, _ := paths.FileExists(marker); exists {
		logger.Debug("runtime already installed", "component", component)
		return nil
	}

	manifestURL, err := i.manifestURL(ctx, component)
	if err != nil {
		return err
	}
	raw, err := i.Downloads.Get(ctx, manifestURL)
	if err != nil {
		return fmt.Errorf("fetch runtime manifest: %w", err)
	}
	var manifest fileManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("parse runtime manifest: %w", err)
	}

	root := i.Layout.RuntimeComponentDir(component)
	names := make([]string, 0, len(manifest.Files))
	for name := range manifest.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		tasks       []download.Task
		executables []string
		links       [][2]string
	)
	for _, name := range names {
		entry := manifest.Files[name]
		dest := filepath.Join(root, filepath.FromSlash(name))
		switch entry.Type {
		case "directory":
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("create runtime directory: %w", err)
			}
		case "link":
			links = append(links, [2]string{dest, entry.Target})
		case "file":
			tasks = append(tasks, download.Task{URL: entry.Downloads.Raw.URL, Dest: dest})
			if entry.Executable {
				executables = append(executables, dest)
			}
		default:
			logger.Warn("unknown runtime entry type", "path", name, "type", entry.Type)
		}
	}

	logger.Info("installing runtime", "component", component, "files", len(tasks))
	if err := i.Downloads.FetchAll(ctx, "runtime "+component, tasks); err != nil {
		return fmt.Errorf("download runtime %s: %w", component, err)
	}

	for _, exe := range executables {
		if err := os.Chmod(exe, 0o755); err != nil {
			return fmt.Errorf("mark executable: %w", err)
		}
	}
	for _, link := range links {
		if _, err := os.Lstat(link[0]); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(link[0]), 0o755); err != nil {
			return fmt.Errorf("prepare link directory: %w", err)
		}
		if err := os.Symlink(link[1], link[0]); err != nil {
			return fmt.Errorf("create runtime link: %w", err)
		}
	}

	if err := paths.WriteFileAtomic(marker, raw); err != nil {
		return fmt.Errorf("commit runtime manifest: %w", err)
	}
	return nil
}

func (i *Installer) manifestURL(ctx context.Context, component string) (string, error) {
	indexURL := i.IndexURL
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	indexFile := i.Layout.RuntimeIndexFile()
	if err := i.Downloads.Fetch(ctx, indexURL, indexFile); err != nil {
		return "", fmt.Errorf("fetch runtime index: %w", err)
	}
	data, err := os.ReadFile(indexFile)
	if err != nil {
		return "", fmt.Errorf("read runtime index: %w", err)
	}

	var index map[string]map[string][]indexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return "", fmt.Errorf("parse runtime index: %w", err)
	}
	entries := index[i.Layout.Platform][component]
	if len(entries) == 0 || entries[0].Manifest.URL == "" {
		return "", &UnavailableError{Component: component, Platform: i.Layout.Platform}
	}
	return entries[0].Manifest.URL, nil
}
