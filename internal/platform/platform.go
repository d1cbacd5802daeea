package platform

import (
	"runtime"
	"strings"
)

// Context identifies the machine a version is resolved and launched for.
type Context struct {
	// Name is the layout/runtime-index key, e.g. "linux", "windows-x64", "mac-os-arm64".
	Name string
	// OS is the name rule predicates and native classifiers use: "linux", "windows" or "osx".
	OS string
	// Arch is the architecture rule predicates compare against: "x86", "x86_64" or "arm64".
	Arch string
}

// Detect returns the context of the running process.
func Detect() Context {
	return FromName(detectName(runtime.GOOS, runtime.GOARCH), detectArch(runtime.GOARCH))
}

// FromName builds a context from a layout name such as "windows-x64". An empty
// arch is derived from the name suffix.
func FromName(name, arch string) Context {
	name = strings.TrimSpace(name)
	if arch == "" {
		arch = archFromName(name)
	}
	return Context{Name: name, OS: osFromName(name), Arch: arch}
}

// IsWindows reports whether the context targets Windows.
func (c Context) IsWindows() bool {
	return c.OS == "windows"
}

// ClasspathSeparator returns the separator the runtime expects between classpath entries.
func (c Context) ClasspathSeparator() string {
	if c.IsWindows() {
		return ";"
	}
	return ":"
}

// Executable appends the platform executable suffix.
func (c Context) Executable(base string) string {
	if c.IsWindows() {
		return base + ".exe"
	}
	return base
}

func detectName(goos, goarch string) string {
	switch goos {
	case "linux":
		if goarch == "386" {
			return "linux-i386"
		}
		return "linux"
	case "windows":
		switch goarch {
		case "386":
			return "windows-x86"
		case "arm64":
			return "windows-arm64"
		}
		return "windows-x64"
	case "darwin":
		if goarch == "arm64" {
			return "mac-os-arm64"
		}
		return "mac-os"
	default:
		return "gamecore"
	}
}

func detectArch(goarch string) string {
	switch goarch {
	case "386":
		return "x86"
	case "arm64":
		return "arm64"
	default:
		return "x86_64"
	}
}

func osFromName(name string) string {
	switch {
	case strings.HasPrefix(name, "windows"):
		return "windows"
	case strings.HasPrefix(name, "mac-os"), strings.HasPrefix(name, "osx"), strings.HasPrefix(name, "macos"):
		return "osx"
	case strings.HasPrefix(name, "linux"):
		return "linux"
	default:
		return name
	}
}

func archFromName(name string) string {
	switch {
	case strings.HasSuffix(name, "-x86"), strings.HasSuffix(name, "-i386"):
		return "x86"
	case strings.HasSuffix(name, "-arm64"):
		return "arm64"
	default:
		return "x86_64"
	}
}

// MatchesArch reports whether a native built for arch runs on c. The word
// sizes "32" and "64" match any architecture of that width; an empty arch
// matches everything.
func (c Context) MatchesArch(arch string) bool {
	switch arch {
	case "":
		return true
	case "32":
		return c.Arch == "x86"
	case "64":
		return c.Arch != "x86"
	}
	return arch == c.Arch
}

// SplitClassifier separates a native classifier such as "natives-macos-arm64"
// into its rule OS name and architecture. arch is empty when the classifier
// names none.
func SplitClassifier(value string) (os, arch string) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "natives-")
	if i := strings.LastIndexByte(value, '-'); i > 0 {
		if a := normalizeArch(value[i+1:]); a != "" {
			return NormalizeOS(value[:i]), a
		}
	}
	return NormalizeOS(value), ""
}

func normalizeArch(value string) string {
	switch value {
	case "x86", "i386":
		return "x86"
	case "x86_64", "x64", "amd64":
		return "x86_64"
	case "arm64", "aarch64", "aarch_64":
		return "arm64"
	case "32", "64":
		return value
	}
	return ""
}

// NormalizeOS maps classifier spellings ("macos", "natives-osx") onto rule OS names.
func NormalizeOS(value string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), "natives-")
	switch value {
	case "macos", "mac-os":
		return "osx"
	}
	return value
}
