package install

import (
	"path"
	"strings"

	"mclaunch/internal/archive"
)

var sharedLibraryExts = map[string]bool{
	".so":     true,
	".dll":    true,
	".dylib":  true,
	".jnilib": true,
}

// UnpackNatives copies the shared libraries inside archivePath flat into dest.
func UnpackNatives(archivePath, dest string) ([]string, error) {
	return archive.ExtractFlat(archivePath, dest, isSharedLibrary)
}

func isSharedLibrary(name string) bool {
	if strings.HasPrefix(name, "META-INF/") {
		return false
	}
	return sharedLibraryExts[strings.ToLower(path.Ext(name))]
}
