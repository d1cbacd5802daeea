package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sahilm/fuzzy"

	"mclaunch/internal/download"
	"mclaunch/internal/version"
)

// DefaultURL is the upstream version catalog.
const DefaultURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

// Aliases accepted wherever a version id is expected.
const (
	AliasLatestRelease  = "latest-release"
	AliasLatestSnapshot = "latest-snapshot"
)

const maxSuggestions = 5

// ManifestVersion is one catalog entry.
type ManifestVersion struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Time        string `json:"time"`
	ReleaseTime string `json:"releaseTime"`
}

// Catalog is the parsed version manifest.
type Catalog struct {
	LatestRelease  string
	LatestSnapshot string
	Versions       []ManifestVersion

	byID map[string]int
}

type document struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []ManifestVersion `json:"versions"`
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse version catalog: %w", err)
	}
	c := &Catalog{
		LatestRelease:  doc.Latest.Release,
		LatestSnapshot: doc.Latest.Snapshot,
		Versions:       doc.Versions,
		byID:           make(map[string]int, len(doc.Versions)),
	}
	for i, v := range doc.Versions {
		if _, dup := c.byID[v.ID]; !dup {
			c.byID[v.ID] = i
		}
	}
	return c, nil
}

// Load reads the catalog cached at path, fetching it from url only when the
// cache file is missing. The cache is never refreshed once present.
func Load(ctx context.Context, dl *download.Manager, url, path string) (*Catalog, error) {
	if url == "" {
		url = DefaultURL
	}
	if err := dl.Fetch(ctx, url, path); err != nil {
		return nil, fmt.Errorf("fetch version catalog: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read version catalog: %w", err)
	}
	return Parse(data)
}

// Resolve expands the latest-* aliases.
func (c *Catalog) Resolve(id string) string {
	switch strings.TrimSpace(id) {
	case AliasLatestRelease:
		latest, _ := c.Latest("release")
		return latest
	case AliasLatestSnapshot:
		latest, _ := c.Latest("snapshot")
		return latest
	}
	return strings.TrimSpace(id)
}

// Latest returns the newest id of kind "release" or "snapshot".
func (c *Catalog) Latest(kind string) (string, bool) {
	switch kind {
	case "release":
		return c.LatestRelease, c.LatestRelease != ""
	case "snapshot":
		return c.LatestSnapshot, c.LatestSnapshot != ""
	}
	return "", false
}

// Lookup returns the entry for id (aliases allowed). Unknown ids yield a
// *version.NotFoundError carrying close matches.
func (c *Catalog) Lookup(id string) (ManifestVersion, error) {
	resolved := c.Resolve(id)
	if idx, ok := c.byID[resolved]; ok {
		return c.Versions[idx], nil
	}
	return ManifestVersion{}, &version.NotFoundError{ID: id, Suggestions: c.Suggest(id)}
}

// Suggest returns up to a handful of ids resembling pattern, best first.
func (c *Catalog) Suggest(pattern string) []string {
	if pattern == "" {
		return nil
	}
	matches := fuzzy.Find(pattern, ids(c.Versions))
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// Filter returns entries of the given type ("" for all), in catalog order.
func (c *Catalog) Filter(kind string) []ManifestVersion {
	if kind == "" {
		return c.Versions
	}
	var out []ManifestVersion
	for _, v := range c.Versions {
		if v.Type == kind {
			out = append(out, v)
		}
	}
	return out
}

// Search returns entries of kind ("" for all) whose id fuzzily matches
// pattern, best match first. An empty pattern is the same as Filter.
func (c *Catalog) Search(pattern, kind string) []ManifestVersion {
	candidates := c.Filter(kind)
	if pattern == "" {
		return candidates
	}
	matches := fuzzy.Find(pattern, ids(candidates))
	out := make([]ManifestVersion, len(matches))
	for i, m := range matches {
		out[i] = candidates[m.Index]
	}
	return out
}

func ids(versions []ManifestVersion) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.ID
	}
	return out
}
