// Package assets fetches an asset index and its content-addressed objects.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"mclaunch/internal/download"
	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
)

// DefaultObjectBaseURL serves asset objects by hash.
const DefaultObjectBaseURL = "https://resources.download.minecraft.net"

// Object is one entry of an asset index.
type Object struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Index maps logical asset names to objects.
type Index struct {
	Objects map[string]Object `json:"objects"`
}

// Fetcher installs asset indexes and objects into a layout.
type Fetcher struct {
	Layout    paths.Layout
	Downloads *download.Manager
	BaseURL   string
	Logger    *log.Logger
}

// ObjectURL returns the download location of hash under base.
func ObjectURL(base, hash string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(paths.AssetObjectRel(hash), "objects/")
}

// Ensure fetches the index (when missing) and every object it references.
// Objects sharing a hash share a path and are fetched once.
func (f *Fetcher) Ensure(ctx context.Context, indexID, indexURL string) error {
	logger := logx.OrDiscard(f.Logger)
	indexPath := f.Layout.AssetIndexPath(indexID)
	if err := f.Downloads.Fetch(ctx, indexURL, indexPath); err != nil {
		return fmt.Errorf("fetch asset index %s: %w", indexID, err)
	}

	index, err := LoadIndex(indexPath)
	if err != nil {
		return err
	}

	base := f.BaseURL
	if base == "" {
		base = DefaultObjectBaseURL
	}
	tasks := make([]download.Task, 0, len(index.Objects))
	for _, hash := range index.Hashes() {
		tasks = append(tasks, download.Task{
			URL:  ObjectURL(base, hash),
			Dest: f.Layout.AssetObjectPath(hash),
		})
	}
	logger.Info("asset objects", "index", indexID, "objects", len(tasks))
	if err := f.Downloads.FetchAll(ctx, "assets "+indexID, tasks); err != nil {
		return fmt.Errorf("download assets %s: %w", indexID, err)
	}
	return nil
}

// LoadIndex reads an asset index from disk.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset index: %w", err)
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse asset index: %w", err)
	}
	return &index, nil
}

// Hashes returns the distinct object hashes, sorted.
func (i *Index) Hashes() []string {
	seen := make(map[string]struct{}, len(i.Objects))
	out := make([]string, 0, len(i.Objects))
	for _, obj := range i.Objects {
		if obj.Hash == "" {
			continue
		}
		if _, dup := seen[obj.Hash]; dup {
			continue
		}
		seen[obj.Hash] = struct{}{}
		out = append(out, obj.Hash)
	}
	sort.Strings(out)
	return out
}
