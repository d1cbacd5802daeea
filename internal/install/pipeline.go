// Package install materialises versions on disk: descriptor, runtime, assets,
// libraries, natives and finally the client jar.
package install

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"mclaunch/internal/assets"
	"mclaunch/internal/catalog"
	"mclaunch/internal/config"
	"mclaunch/internal/download"
	"mclaunch/internal/javaruntime"
	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
	"mclaunch/internal/platform"
	"mclaunch/internal/rules"
	"mclaunch/internal/version"
)

// RuntimeProvisioner makes a named runtime component available.
type RuntimeProvisioner interface {
	Ensure(ctx context.Context, component string) error
}

// AssetProvisioner fetches an asset index and its objects.
type AssetProvisioner interface {
	Ensure(ctx context.Context, indexID, indexURL string) error
}

// Pipeline installs versions for one platform.
type Pipeline struct {
	Layout     paths.Layout
	Platform   platform.Context
	Evaluator  rules.Evaluator
	Downloads  *download.Manager
	Runtime    RuntimeProvisioner
	Assets     AssetProvisioner
	CatalogURL string
	Logger     *log.Logger

	catalog *catalog.Catalog
}

// New wires a pipeline with the default runtime and asset provisioners.
func New(layout paths.Layout, cfg config.Config, dl *download.Manager, logger *log.Logger) *Pipeline {
	ctx := cfg.PlatformContext()
	return &Pipeline{
		Layout:    layout,
		Platform:  ctx,
		Evaluator: cfg.Evaluator(),
		Downloads: dl,
		Runtime: &javaruntime.Installer{
			Layout:    layout,
			Platform:  ctx,
			Downloads: dl,
			Logger:    logger,
		},
		Assets: &assets.Fetcher{
			Layout:    layout,
			Downloads: dl,
			Logger:    logger,
		},
		Logger: logger,
	}
}

// Catalog loads the version catalog once per pipeline.
func (p *Pipeline) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if p.catalog != nil {
		return p.catalog, nil
	}
	c, err := catalog.Load(ctx, p.Downloads, p.CatalogURL, p.Layout.CatalogFile)
	if err != nil {
		return nil, err
	}
	p.catalog = c
	return c, nil
}

// Resolver reads descriptors from the platform's versions tree.
func (p *Pipeline) Resolver() *version.Resolver {
	return version.NewResolver(version.FileSource{Path: p.Layout.VersionJSON})
}

// Installed reports whether id's completeness marker (its client jar) exists.
func (p *Pipeline) Installed(id string) bool {
	ok, _ := paths.FileExists(p.Layout.ClientJar(id))
	return ok
}

// Install installs a catalog version. Unknown ids fail with
// *version.NotFoundError before anything is written.
func (p *Pipeline) Install(ctx context.Context, id string) (*version.Version, error) {
	c, err := p.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := c.Lookup(id)
	if err != nil {
		return nil, err
	}
	id = entry.ID

	if err := p.Downloads.Fetch(ctx, entry.URL, p.Layout.VersionJSON(id)); err != nil {
		return nil, fmt.Errorf("fetch descriptor %s: %w", id, err)
	}
	return p.InstallLocal(ctx, id)
}

// InstallLocal installs a version whose descriptor is already on disk, such
// as a mod-loader version inheriting from an installed parent.
func (p *Pipeline) InstallLocal(ctx context.Context, id string) (*version.Version, error) {
	logger := logx.OrDiscard(p.Logger)
	v, err := p.Resolver().Resolve(id)
	if err != nil {
		return nil, err
	}
	if p.Installed(id) {
		logger.Info("version already installed", "version", id)
		return v, nil
	}
	logger.Info("installing version", "version", id, "chain", strings.Join(v.Chain, " -> "))

	if v.ServerURL != "" {
		if err := p.Downloads.Fetch(ctx, v.ServerURL, p.Layout.ServerJar(id)); err != nil {
			return nil, fmt.Errorf("fetch server: %w", err)
		}
	}
	if p.Runtime != nil {
		if err := p.Runtime.Ensure(ctx, v.JavaComponent); err != nil {
			return nil, fmt.Errorf("install runtime %s: %w", v.JavaComponent, err)
		}
	}
	if p.Assets != nil {
		if err := p.Assets.Ensure(ctx, v.AssetIndex, v.AssetIndexURL); err != nil {
			return nil, err
		}
	}
	if err := p.Downloads.FetchAll(ctx, "libraries", p.LibraryTasks(v)); err != nil {
		return nil, fmt.Errorf("download libraries: %w", err)
	}
	if err := p.installNatives(ctx, v); err != nil {
		return nil, err
	}

	if err := p.Downloads.Fetch(ctx, v.ClientURL, p.Layout.ClientJar(id)); err != nil {
		return nil, fmt.Errorf("fetch client: %w", err)
	}
	logger.Info("installed version", "version", id)
	return v, nil
}

// LibraryTasks lists the rule-approved libraries that have a download URL.
func (p *Pipeline) LibraryTasks(v *version.Version) []download.Task {
	var tasks []download.Task
	for _, lib := range v.Libraries {
		if lib.URL == "" || !p.Evaluator.Allows(lib.Rules) {
			continue
		}
		tasks = append(tasks, download.Task{URL: lib.URL, Dest: p.Layout.LibraryPath(lib.Path)})
	}
	return tasks
}

// NativeTasks lists the natives targeting this platform that pass their rules.
func (p *Pipeline) NativeTasks(v *version.Version) []download.Task {
	var tasks []download.Task
	for _, n := range v.Natives {
		if n.URL == "" || !n.MatchesPlatform(p.Platform) || !p.Evaluator.Allows(n.Rules) {
			continue
		}
		tasks = append(tasks, download.Task{URL: n.URL, Dest: p.Layout.LibraryPath(n.Path)})
	}
	return tasks
}

func (p *Pipeline) installNatives(ctx context.Context, v *version.Version) error {
	tasks := p.NativeTasks(v)
	if err := p.Downloads.FetchAll(ctx, "natives", tasks); err != nil {
		return fmt.Errorf("download natives: %w", err)
	}
	dest := p.Layout.NativesDir(v.ID)
	for _, task := range tasks {
		if _, err := UnpackNatives(task.Dest, dest); err != nil {
			return fmt.Errorf("unpack %s: %w", filepath.Base(task.Dest), err)
		}
	}
	return nil
}
