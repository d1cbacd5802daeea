// Package launch turns a resolved version into the command line that starts
// the game.
package launch

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"mclaunch/internal/config"
	"mclaunch/internal/javaruntime"
	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
	"mclaunch/internal/platform"
	"mclaunch/internal/rules"
	"mclaunch/internal/version"
)

// Offline identity values substituted where an authenticated session would
// normally supply them.
const (
	placeholderAccessToken = "auth_access_token"
	placeholderUserType    = "user_type"
	placeholderClientID    = "clientid"
	placeholderXUID        = "auth_xuid"
	placeholderProperties  = "{}"
	placeholderQuickPlay   = "logs"
)

var legacySoundArgs = []string{
	"-Dhttp.proxyHost=betacraft.uk",
	"-Djava.util.Arrays.useLegacyMergeSort=true",
}

var residualPattern = regexp.MustCompile(`\$\{[A-Za-z_]+\}`)

// Invocation is a ready-to-run process description.
type Invocation struct {
	Executable string
	Args       []string
	Dir        string
}

// Argv returns the executable followed by its arguments.
func (inv Invocation) Argv() []string {
	return append([]string{inv.Executable}, inv.Args...)
}

// String renders the invocation as a copy-pasteable shell line.
func (inv Invocation) String() string {
	parts := inv.Argv()
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = shellQuote(p)
	}
	return strings.Join(quoted, " ")
}

// Assembler builds invocations for one platform.
type Assembler struct {
	Layout    paths.Layout
	Platform  platform.Context
	Evaluator rules.Evaluator
	Logger    *log.Logger
}

// NewAssembler derives the platform and rule evaluator from cfg.
func NewAssembler(layout paths.Layout, cfg config.Config, logger *log.Logger) *Assembler {
	return &Assembler{
		Layout:    layout,
		Platform:  cfg.PlatformContext(),
		Evaluator: cfg.Evaluator(),
		Logger:    logger,
	}
}

// Assemble builds the invocation for v. The instance directory is created if
// it does not exist; nothing else is touched.
func (a *Assembler) Assemble(v *version.Version, game config.GameConfig) (Invocation, error) {
	logger := logx.OrDiscard(a.Logger)

	classpath := a.Classpath(v)
	replacer := a.replacer(v, game, classpath)

	jvm := a.jvmArgs(v, game)
	for i := range jvm {
		jvm[i] = replacer.Replace(jvm[i])
	}
	jvm = dedupeJVMArgs(jvm)

	gameArgs := filterArgs(v.GameArgs, a.Evaluator)
	gameArgs = append(gameArgs, game.GameArgs...)
	for i := range gameArgs {
		gameArgs[i] = replacer.Replace(gameArgs[i])
	}

	args := make([]string, 0, len(jvm)+1+len(gameArgs))
	args = append(args, jvm...)
	args = append(args, v.MainClass)
	args = append(args, gameArgs...)

	for _, arg := range args {
		if token := residualPattern.FindString(arg); token != "" {
			logger.Warn("unresolved placeholder", "version", v.ID, "token", token)
		}
	}

	dir := a.Layout.InstanceDir(v.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Invocation{}, fmt.Errorf("create game directory: %w", err)
	}

	inv := Invocation{
		Executable: a.executable(v, game),
		Args:       args,
		Dir:        dir,
	}
	logger.Info("assembled launch", "version", v.ID, "main", v.MainClass, "args", len(args))
	return inv, nil
}

// Classpath joins every rule-approved library path, in resolved order, and
// appends the version's own client jar.
func (a *Assembler) Classpath(v *version.Version) string {
	entries := make([]string, 0, len(v.Libraries)+1)
	seen := make(map[string]struct{}, len(v.Libraries))
	for _, lib := range v.Libraries {
		if !a.Evaluator.Allows(lib.Rules) {
			continue
		}
		p := a.Layout.LibraryPath(lib.Path)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		entries = append(entries, p)
	}
	entries = append(entries, a.Layout.ClientJar(v.ID))
	return strings.Join(entries, a.Platform.ClasspathSeparator())
}

func (a *Assembler) jvmArgs(v *version.Version, game config.GameConfig) []string {
	var out []string
	if game.LegacySounds {
		out = append(out, legacySoundArgs...)
	}
	if v.JVMArgs == nil {
		out = append(out, "-Djava.library.path=${natives_directory}", "-cp", "${classpath}")
	} else {
		out = append(out, filterArgs(v.JVMArgs, a.Evaluator)...)
	}
	return append(out, game.JVMArgs...)
}

func (a *Assembler) executable(v *version.Version, game config.GameConfig) string {
	if game.JavaPath != "" {
		return game.JavaPath
	}
	return javaruntime.Executable(a.Layout, a.Platform, v.JavaComponent)
}

func (a *Assembler) replacer(v *version.Version, game config.GameConfig, classpath string) *strings.Replacer {
	versionType := v.Type
	if versionType == "" {
		versionType = "release"
	}
	values := map[string]string{
		"natives_directory":   a.Layout.NativesDir(v.ID),
		"launcher_name":       game.LauncherName,
		"launcher_version":    game.LauncherVersion,
		"classpath":           classpath,
		"classpath_separator": a.Platform.ClasspathSeparator(),
		"library_directory":   a.Layout.LibraryRoot(),
		"auth_player_name":    game.Username,
		"version_name":        v.ID,
		"game_directory":      a.Layout.InstanceDir(v.ID),
		"assets_root":         a.Layout.AssetsDir,
		"game_assets":         a.Layout.AssetsDir,
		"assets_index_name":   v.AssetIndex,
		"auth_uuid":           game.AuthUUID(),
		"auth_access_token":   placeholderAccessToken,
		"auth_session":        placeholderAccessToken,
		"user_type":           placeholderUserType,
		"user_properties":     placeholderProperties,
		"version_type":        versionType,
		"clientid":            placeholderClientID,
		"auth_xuid":           placeholderXUID,
		"quickPlayPath":       placeholderQuickPlay,
	}
	pairs := make([]string, 0, len(values)*2)
	for token, value := range values {
		pairs = append(pairs, "${"+token+"}", value)
	}
	return strings.NewReplacer(pairs...)
}

func filterArgs(args []version.Argument, ev rules.Evaluator) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg.Allowed(ev) {
			out = append(out, arg.Value)
		}
	}
	return out
}

// dedupeJVMArgs drops consecutive repeats and later repeats of self-contained
// -D/-X options. Options that take a separate value (-cp <path>) are only
// collapsed when repeated back to back.
func dedupeJVMArgs(args []string) []string {
	out := make([]string, 0, len(args))
	seen := make(map[string]struct{})
	for i, arg := range args {
		if i > 0 && arg == args[i-1] {
			continue
		}
		if strings.HasPrefix(arg, "-D") || strings.HasPrefix(arg, "-X") {
			if _, dup := seen[arg]; dup {
				continue
			}
			seen[arg] = struct{}{}
		}
		out = append(out, arg)
	}
	return out
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r == '-' || r == '_' || r == '.' || r == '/' || r == ':' || r == '=' || r == ',' || r == '+' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
