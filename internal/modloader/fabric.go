package modloader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"mclaunch/internal/archive"
	"mclaunch/internal/install"
	"mclaunch/internal/javaruntime"
	"mclaunch/internal/runner"
	"mclaunch/internal/version"
)

const (
	DefaultFabricGameURL      = "https://meta.fabricmc.net/v2/versions/game"
	DefaultFabricLoaderURL    = "https://meta.fabricmc.net/v2/versions/loader"
	DefaultFabricInstallerURL = "https://maven.fabricmc.net/net/fabricmc/fabric-installer/"
)

// UnsupportedError reports a game or loader version Fabric does not list.
type UnsupportedError struct {
	Kind    string
	Version string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("fabric does not support %s %s", e.Kind, e.Version)
}

// Fabric installs Fabric loader versions by running the official installer.
type Fabric struct {
	Pipeline     *install.Pipeline
	Runner       runner.Runner
	Java         string
	GameURL      string
	LoaderURL    string
	InstallerURL string
	OnStep       StepObserver
	Logger       *log.Logger
}

// NewFabric returns a Fabric installer using p for base and derived versions.
func NewFabric(p *install.Pipeline, r runner.Runner, java string, logger *log.Logger) *Fabric {
	return &Fabric{
		Pipeline:     p,
		Runner:       r,
		Java:         java,
		GameURL:      DefaultFabricGameURL,
		LoaderURL:    DefaultFabricLoaderURL,
		InstallerURL: DefaultFabricInstallerURL,
		Logger:       logger,
	}
}

type metaVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

type fabricState struct {
	mc, loader, id string
	tmp            string
	installer      string
	base           *version.Version
}

// Install installs the Fabric loader for mcVersion and returns the derived
// version id. An empty loaderVersion selects the newest loader.
func (f *Fabric) Install(ctx context.Context, mcVersion, loaderVersion string) (string, error) {
	tmp, err := os.MkdirTemp("", "mclaunch-fabric-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	st := &fabricState{mc: mcVersion, loader: loaderVersion, tmp: tmp}
	if err := f.plan(st).Execute(ctx, f.Logger); err != nil {
		return "", err
	}
	return st.id, nil
}

func (f *Fabric) plan(st *fabricState) *Plan {
	plan := &Plan{Loader: "fabric", Observer: f.OnStep}
	plan.add("check game version", StepFetch, func(ctx context.Context) error {
		games, err := f.listVersions(ctx, f.GameURL)
		if err != nil {
			return err
		}
		if !containsVersion(games, st.mc) {
			return &UnsupportedError{Kind: "minecraft", Version: st.mc}
		}
		return nil
	})
	plan.add("select loader", StepFetch, func(ctx context.Context) error {
		loaders, err := f.listVersions(ctx, f.LoaderURL)
		if err != nil {
			return err
		}
		if st.loader == "" {
			if len(loaders) == 0 {
				return &UnsupportedError{Kind: "loader", Version: "(none listed)"}
			}
			st.loader = loaders[0].Version
			return nil
		}
		if !containsVersion(loaders, st.loader) {
			return &UnsupportedError{Kind: "loader", Version: st.loader}
		}
		return nil
	})
	plan.add("install minecraft", StepInstall, func(ctx context.Context) error {
		v, err := f.Pipeline.Install(ctx, st.mc)
		if err != nil {
			return err
		}
		st.base = v
		return nil
	})
	plan.add("download installer", StepFetch, func(ctx context.Context) error {
		return f.downloadInstaller(ctx, st)
	})
	plan.add("run installer", StepMaterialize, func(ctx context.Context) error {
		out := filepath.Join(st.tmp, "client")
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		args := []string{
			"-jar", st.installer, "client",
			"-dir", out,
			"-mcversion", st.mc,
			"-loader", st.loader,
			"-noprofile", "-snapshot",
		}
		if _, err := f.Runner.Run(ctx, f.java(st.base), args, runner.RunOptions{Dir: st.tmp}); err != nil {
			return fmt.Errorf("fabric installer: %w", err)
		}
		return nil
	})
	plan.add("import installer output", StepResolve, func(context.Context) error {
		return f.importOutput(st)
	})
	plan.add("install fabric version", StepInstall, func(ctx context.Context) error {
		_, err := f.Pipeline.InstallLocal(ctx, st.id)
		return err
	})
	return plan
}

func (f *Fabric) listVersions(ctx context.Context, url string) ([]metaVersion, error) {
	data, err := f.Pipeline.Downloads.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	var out []metaVersion
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse fabric versions: %w", err)
	}
	return out, nil
}

func (f *Fabric) downloadInstaller(ctx context.Context, st *fabricState) error {
	base := f.InstallerURL
	if base == "" {
		base = DefaultFabricInstallerURL
	}
	data, err := f.Pipeline.Downloads.Get(ctx, base+"maven-metadata.xml")
	if err != nil {
		return err
	}
	md, err := ParseMavenMetadata(data)
	if err != nil {
		return err
	}
	latest := md.Versioning.Latest
	if latest == "" {
		return fmt.Errorf("fabric installer metadata lists no latest version")
	}
	st.installer = filepath.Join(st.tmp, "installer.jar")
	url := base + latest + "/fabric-installer-" + latest + ".jar"
	return f.Pipeline.Downloads.Fetch(ctx, url, st.installer)
}

// importOutput merges the installer's versions/ and libraries/ trees into the
// platform trees and records the derived version id.
func (f *Fabric) importOutput(st *fabricState) error {
	layout := f.Pipeline.Layout
	out := filepath.Join(st.tmp, "client")
	versionsDir := filepath.Join(out, "versions")

	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return fmt.Errorf("read installer output: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("fabric installer produced no version")
	}
	sort.Strings(ids)
	st.id = ids[0]

	if err := archive.CopyTree(versionsDir, layout.PlatformVersionsDir()); err != nil {
		return fmt.Errorf("import versions: %w", err)
	}
	libs := filepath.Join(out, "libraries")
	if _, err := os.Stat(libs); err == nil {
		if err := archive.CopyTree(libs, layout.LibraryRoot()); err != nil {
			return fmt.Errorf("import libraries: %w", err)
		}
	}
	return nil
}

func (f *Fabric) java(v *version.Version) string {
	if f.Java != "" {
		return f.Java
	}
	return javaruntime.Executable(f.Pipeline.Layout, f.Pipeline.Platform, v.JavaComponent)
}

func containsVersion(list []metaVersion, want string) bool {
	for _, v := range list {
		if v.Version == want {
			return true
		}
	}
	return false
}
