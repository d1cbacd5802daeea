package modloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"mclaunch/internal/archive"
	"mclaunch/internal/download"
	"mclaunch/internal/install"
	"mclaunch/internal/javaruntime"
	"mclaunch/internal/paths"
	"mclaunch/internal/runner"
	"mclaunch/internal/version"
)

const (
	DefaultForgeMaven       = "https://maven.minecraftforge.net/"
	DefaultForgeMetadataURL = DefaultForgeMaven + "net/minecraftforge/forge/maven-metadata.xml"
)

// InstallProfile is install_profile.json from a Forge installer jar. Legacy
// installers carry the version descriptor inline as versionInfo; modern ones
// reference an embedded json entry and declare processors.
type InstallProfile struct {
	JSON        string               `json:"json"`
	Data        map[string]DataEntry `json:"data"`
	Processors  []Processor          `json:"processors"`
	Libraries   json.RawMessage      `json:"libraries"`
	VersionInfo json.RawMessage      `json:"versionInfo"`
	Install     *struct {
		Path     string `json:"path"`
		FilePath string `json:"filePath"`
	} `json:"install"`
}

// Forge installs Forge builds through their installer jar.
type Forge struct {
	Pipeline    *install.Pipeline
	Runner      runner.Runner
	Java        string
	Side        string
	MavenURL    string
	MetadataURL string
	OnStep      StepObserver
	Logger      *log.Logger
}

// NewForge returns a Forge installer using p for base and derived versions.
func NewForge(p *install.Pipeline, r runner.Runner, java string, logger *log.Logger) *Forge {
	return &Forge{Pipeline: p, Runner: r, Java: java, Logger: logger}
}

// ForgeVersionID is the directory name of an installed Forge build.
func ForgeVersionID(mcVersion, forgeVersion string) string {
	return "forge-" + mcVersion + "-" + forgeVersion
}

// InstallerURL returns the installer jar location for a build.
func (f *Forge) InstallerURL(mcVersion, forgeVersion string) string {
	build := mcVersion + "-" + forgeVersion
	return f.maven() + "net/minecraftforge/forge/" + build + "/forge-" + build + "-installer.jar"
}

// Install installs Forge for mcVersion and returns the derived version id.
// An empty forgeVersion selects the newest build for mcVersion.
func (f *Forge) Install(ctx context.Context, mcVersion, forgeVersion string) (string, error) {
	tmp, err := os.MkdirTemp("", "mclaunch-forge-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	st := &forgeState{mc: mcVersion, forge: forgeVersion, tmp: tmp}
	plan := f.plan(st)
	if err := plan.Execute(ctx, f.Logger); err != nil {
		return "", err
	}
	return st.id, nil
}

type forgeState struct {
	mc, forge, id string
	tmp           string
	installer     string
	profile       InstallProfile
	derived       *version.Version
}

// plan lays out the installation as discrete steps over st.
func (f *Forge) plan(st *forgeState) *Plan {
	plan := &Plan{Loader: "forge", Observer: f.OnStep}

	if st.forge == "" {
		plan.add("select forge build", StepFetch, func(ctx context.Context) error {
			build, err := f.newestBuild(ctx, st.mc)
			if err != nil {
				return err
			}
			st.forge = build
			return nil
		})
	}
	plan.add("download installer", StepFetch, func(ctx context.Context) error {
		st.id = ForgeVersionID(st.mc, st.forge)
		st.installer = filepath.Join(st.tmp, "installer.jar")
		return f.Pipeline.Downloads.Fetch(ctx, f.InstallerURL(st.mc, st.forge), st.installer)
	})
	plan.add("read install profile", StepResolve, func(context.Context) error {
		data, err := archive.ReadEntry(st.installer, "install_profile.json")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &st.profile); err != nil {
			return fmt.Errorf("parse install profile: %w", err)
		}
		return nil
	})
	plan.add("fetch profile libraries", StepFetch, func(ctx context.Context) error {
		return f.fetchProfileLibraries(ctx, st)
	})
	plan.add("write version descriptor", StepResolve, func(context.Context) error {
		return f.writeDescriptor(st)
	})
	plan.add("unpack embedded artifacts", StepResolve, func(context.Context) error {
		return f.unpackEmbedded(st)
	})
	plan.add("install minecraft "+st.mc, StepInstall, func(ctx context.Context) error {
		_, err := f.Pipeline.Install(ctx, st.mc)
		return err
	})
	plan.add("resolve forge version", StepResolve, func(context.Context) error {
		v, err := f.Pipeline.Resolver().Resolve(st.id)
		if err != nil {
			return err
		}
		st.derived = v
		return nil
	})
	plan.add("run processors", StepMaterialize, func(ctx context.Context) error {
		if len(st.profile.Processors) == 0 {
			return nil
		}
		binpatch := filepath.Join(st.tmp, "data", "client.lzma")
		return f.RunProcessors(ctx, st.profile, st.derived, st.installer, binpatch, st.tmp)
	})
	// The derived client jar is the completeness marker, so it is only
	// committed once every processor has succeeded.
	plan.add("install forge version", StepInstall, func(ctx context.Context) error {
		_, err := f.Pipeline.InstallLocal(ctx, st.id)
		return err
	})
	return plan
}

// RunProcessors resolves the profile data table and runs its processors for
// the configured side. root is the shared scratch directory processors write
// to. {MINECRAFT_JAR} names the vanilla client jar at the root of v's chain.
func (f *Forge) RunProcessors(ctx context.Context, profile InstallProfile, v *version.Version, installerPath, binpatchPath, root string) error {
	layout := f.Pipeline.Layout
	pr := &ProcessorRunner{
		Layout:   layout,
		Platform: f.Pipeline.Platform,
		Java:     f.java(v),
		Side:     f.side(),
		Runner:   f.Runner,
		Logger:   f.Logger,
	}
	fixed := map[string]string{
		"MINECRAFT_JAR":     layout.ClientJar(minecraftVersion(v)),
		"SIDE":              pr.Side,
		"INSTALLER":         installerPath,
		"BINPATCH":          binpatchPath,
		"ROOT":              root,
		"LIBRARY_DIR":       layout.LibraryRoot(),
		"MINECRAFT_VERSION": minecraftVersion(v),
	}
	table, err := pr.BuildSubstitutions(profile.Data, fixed, func(entry, dest string) error {
		return archive.ExtractEntry(installerPath, entry, dest)
	})
	if err != nil {
		return err
	}
	return pr.Run(ctx, profile.Processors, table)
}

func (f *Forge) newestBuild(ctx context.Context, mcVersion string) (string, error) {
	metadataURL := f.MetadataURL
	if metadataURL == "" {
		metadataURL = DefaultForgeMetadataURL
	}
	cache := f.Pipeline.Layout.ForgeMetadataFile
	if err := f.Pipeline.Downloads.Fetch(ctx, metadataURL, cache); err != nil {
		return "", fmt.Errorf("fetch forge metadata: %w", err)
	}
	data, err := os.ReadFile(cache)
	if err != nil {
		return "", fmt.Errorf("read forge metadata: %w", err)
	}
	md, err := ParseMavenMetadata(data)
	if err != nil {
		return "", err
	}
	build, ok := md.NewestWithPrefix(mcVersion + "-")
	if !ok {
		return "", &version.NotFoundError{ID: "forge for " + mcVersion}
	}
	return build, nil
}

func (f *Forge) fetchProfileLibraries(ctx context.Context, st *forgeState) error {
	if len(st.profile.Libraries) == 0 {
		return nil
	}
	libs, _, err := version.ParseLibraries(st.profile.Libraries)
	if err != nil {
		return err
	}
	var tasks []download.Task
	for _, lib := range libs {
		if lib.URL == "" || !f.Pipeline.Evaluator.Allows(lib.Rules) {
			continue
		}
		tasks = append(tasks, download.Task{URL: lib.URL, Dest: f.Pipeline.Layout.LibraryPath(lib.Path)})
	}
	return f.Pipeline.Downloads.FetchAll(ctx, "forge libraries", tasks)
}

func (f *Forge) writeDescriptor(st *forgeState) error {
	dest := f.Pipeline.Layout.VersionJSON(st.id)
	var data []byte
	if len(st.profile.VersionInfo) > 0 {
		data = st.profile.VersionInfo
	} else {
		entry := st.profile.JSON
		if entry == "" {
			entry = "/version.json"
		}
		var err error
		if data, err = archive.ReadEntry(st.installer, entry); err != nil {
			return err
		}
	}
	if _, err := version.ParseDescriptor(data); err != nil {
		return fmt.Errorf("forge descriptor: %w", err)
	}
	return paths.WriteFileAtomic(dest, data)
}

// unpackEmbedded copies artifacts shipped inside the installer into the
// library tree and extracts the binary patch for the processors.
func (f *Forge) unpackEmbedded(st *forgeState) error {
	layout := f.Pipeline.Layout
	if err := archive.ExtractPrefix(st.installer, "maven/", layout.LibraryRoot()); err != nil {
		return err
	}
	if inst := st.profile.Install; inst != nil && inst.Path != "" && inst.FilePath != "" {
		coord, err := version.ParseCoordinate(inst.Path)
		if err != nil {
			return err
		}
		dest := layout.LibraryPath(coord.Path())
		if exists, _ := paths.FileExists(dest); !exists {
			if err := archive.ExtractEntry(st.installer, inst.FilePath, dest); err != nil {
				return err
			}
		}
	}
	err := archive.ExtractEntry(st.installer, "data/client.lzma", filepath.Join(st.tmp, "data", "client.lzma"))
	if err != nil && !errors.Is(err, archive.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (f *Forge) java(v *version.Version) string {
	if f.Java != "" {
		return f.Java
	}
	return javaruntime.Executable(f.Pipeline.Layout, f.Pipeline.Platform, v.JavaComponent)
}

func (f *Forge) side() string {
	if f.Side == "" {
		return "client"
	}
	return f.Side
}

func (f *Forge) maven() string {
	if f.MavenURL == "" {
		return DefaultForgeMaven
	}
	return strings.TrimSuffix(f.MavenURL, "/") + "/"
}

// minecraftVersion returns the root of the inheritance chain.
func minecraftVersion(v *version.Version) string {
	if len(v.Chain) == 0 {
		return v.ID
	}
	return v.Chain[len(v.Chain)-1]
}
