// Package version models version descriptors and resolves their inheritance
// chains into a single launchable Version.
package version

import (
	"mclaunch/internal/platform"
	"mclaunch/internal/rules"
)

// Library is a classpath dependency. Name (group:artifact) is its identity.
type Library struct {
	Name    string
	Version string
	URL     string
	Path    string
	Rules   []rules.Rule
}

// Native is a platform-specific archive of shared libraries.
type Native struct {
	Name     string
	Version  string
	URL      string
	Path     string
	Platform string
	// Arch is "x86", "x86_64", "arm64", a word size ("32" or "64"), or empty
	// when the native runs on any architecture of its OS.
	Arch  string
	Rules []rules.Rule
}

// Key identifies a native within a merged set; one library can carry natives
// for several platforms and architectures.
func (n Native) Key() string {
	if n.Arch == "" {
		return n.Name + "@" + n.Platform
	}
	return n.Name + "@" + n.Platform + "-" + n.Arch
}

// MatchesPlatform reports whether the native targets ctx's operating system
// and architecture.
func (n Native) MatchesPlatform(ctx platform.Context) bool {
	return n.Platform == ctx.OS && ctx.MatchesArch(n.Arch)
}

// ArgumentKind tags the two shapes an argument list entry can take.
type ArgumentKind int

const (
	ArgLiteral ArgumentKind = iota
	ArgConditional
)

// Argument is either a literal token or a value gated by rules.
type Argument struct {
	Kind  ArgumentKind
	Value string
	Rules []rules.Rule
}

// Literal returns an unconditional argument.
func Literal(value string) Argument {
	return Argument{Kind: ArgLiteral, Value: value}
}

// Conditional returns an argument gated by rs.
func Conditional(value string, rs []rules.Rule) Argument {
	return Argument{Kind: ArgConditional, Value: value, Rules: rs}
}

// Allowed reports whether the argument survives rule filtering.
func (a Argument) Allowed(ev rules.Evaluator) bool {
	if a.Kind == ArgLiteral {
		return true
	}
	return ev.Allows(a.Rules)
}

// Version is a fully resolved descriptor.
type Version struct {
	ID   string
	Type string
	// Chain lists the descriptor ids merged into this version, self first.
	Chain []string

	AssetIndex    string
	AssetIndexURL string
	ClientURL     string
	ServerURL     string
	JavaComponent string
	MainClass     string

	// JVMArgs is nil when no descriptor in the chain declares arguments.jvm.
	JVMArgs  []Argument
	GameArgs []Argument

	Libraries []Library
	Natives   []Native
}
