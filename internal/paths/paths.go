package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout captures canonical locations inside a launcher root. Versions,
// libraries and runtimes are partitioned by platform name so one root can
// hold installs for several platforms.
type Layout struct {
	Root              string
	Platform          string
	ConfigFile        string
	VersionsDir       string
	LibrariesDir      string
	AssetsDir         string
	RuntimeDir        string
	GameDir           string
	LogsDir           string
	CatalogFile       string
	ForgeMetadataFile string
}

// Resolve determines the launcher root using the optional --root flag, or
// ./.minecraft under the current working directory when the flag is empty.
func Resolve(rootFlag, platformName string) (Layout, error) {
	var (
		root string
		err  error
	)
	if rootFlag != "" {
		root, err = filepath.Abs(rootFlag)
	} else {
		var wd string
		wd, err = os.Getwd()
		root = filepath.Join(wd, ".minecraft")
	}
	if err != nil {
		return Layout{}, fmt.Errorf("resolve launcher root: %w", err)
	}
	return New(root, platformName), nil
}

// New returns the layout rooted at root for platformName.
func New(root, platformName string) Layout {
	return Layout{
		Root:              root,
		Platform:          platformName,
		ConfigFile:        filepath.Join(root, "launcher.yaml"),
		VersionsDir:       filepath.Join(root, "versions"),
		LibrariesDir:      filepath.Join(root, "libraries"),
		AssetsDir:         filepath.Join(root, "assets"),
		RuntimeDir:        filepath.Join(root, "runtime"),
		GameDir:           filepath.Join(root, "game"),
		LogsDir:           filepath.Join(root, "logs"),
		CatalogFile:       filepath.Join(root, "version_manifest.json"),
		ForgeMetadataFile: filepath.Join(root, "forge_manifest.xml"),
	}
}

// WithPlatform returns a copy of the layout for another platform name.
func (l Layout) WithPlatform(platformName string) Layout {
	l.Platform = platformName
	return l
}

// PlatformVersionsDir is <versions>/<platform>.
func (l Layout) PlatformVersionsDir() string {
	return filepath.Join(l.VersionsDir, l.Platform)
}

// VersionDir is <versions>/<platform>/<id>.
func (l Layout) VersionDir(id string) string {
	return filepath.Join(l.VersionsDir, l.Platform, id)
}

// VersionJSON is the descriptor path <versions>/<platform>/<id>/<id>.json.
func (l Layout) VersionJSON(id string) string {
	return filepath.Join(l.VersionDir(id), id+".json")
}

// ClientJar is the primary artifact of a version and its completeness marker.
func (l Layout) ClientJar(id string) string {
	return filepath.Join(l.VersionDir(id), "client.jar")
}

// ServerJar is the optional server artifact.
func (l Layout) ServerJar(id string) string {
	return filepath.Join(l.VersionDir(id), "server.jar")
}

// NativesDir is the flat directory natives are unpacked into.
func (l Layout) NativesDir(id string) string {
	return filepath.Join(l.VersionDir(id), "natives")
}

// LibraryRoot is <libraries>/<platform>.
func (l Layout) LibraryRoot() string {
	return filepath.Join(l.LibrariesDir, l.Platform)
}

// LibraryPath maps a slash-separated maven path into the library tree.
func (l Layout) LibraryPath(rel string) string {
	return filepath.Join(l.LibraryRoot(), filepath.FromSlash(rel))
}

// AssetIndexPath is <assets>/indexes/<id>.json.
func (l Layout) AssetIndexPath(id string) string {
	return filepath.Join(l.AssetsDir, "indexes", id+".json")
}

// AssetObjectPath is the content-addressed object path <assets>/objects/<hh>/<hash>.
func (l Layout) AssetObjectPath(hash string) string {
	return filepath.Join(l.AssetsDir, filepath.FromSlash(AssetObjectRel(hash)))
}

// AssetObjectRel returns objects/<hash[0:2]>/<hash>.
func AssetObjectRel(hash string) string {
	prefix := hash
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return "objects/" + prefix + "/" + hash
}

// RuntimeIndexFile caches the runtime distribution index.
func (l Layout) RuntimeIndexFile() string {
	return filepath.Join(l.RuntimeDir, "runtimes.json")
}

// RuntimeComponentDir is <runtime>/<platform>/<component>.
func (l Layout) RuntimeComponentDir(component string) string {
	return filepath.Join(l.RuntimeDir, l.Platform, component)
}

// RuntimeManifest is the committed file manifest of an installed component.
func (l Layout) RuntimeManifest(component string) string {
	return filepath.Join(l.RuntimeComponentDir(component), component+".json")
}

// InstanceDir is the per-version game (working) directory.
func (l Layout) InstanceDir(id string) string {
	return filepath.Join(l.GameDir, id)
}

// EnsureRoot makes sure the launcher root exists on disk.
func (l Layout) EnsureRoot() error {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return fmt.Errorf("create launcher root: %w", err)
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
