package modloader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"mclaunch/internal/archive"
	"mclaunch/internal/logx"
	"mclaunch/internal/paths"
	"mclaunch/internal/platform"
	"mclaunch/internal/runner"
	"mclaunch/internal/version"
)

// Processor is one transform program declared by a Forge install profile.
// Outputs maps each file the processor must produce to its expected SHA-1;
// both sides may be substitution tokens.
type Processor struct {
	Jar       string            `json:"jar"`
	Classpath []string          `json:"classpath"`
	Args      []string          `json:"args"`
	Sides     []string          `json:"sides"`
	Outputs   map[string]string `json:"outputs"`
}

// DataEntry holds the per-side values of an install profile data key.
type DataEntry struct {
	Client string `json:"client"`
	Server string `json:"server"`
}

// Value returns the entry for side.
func (d DataEntry) Value(side string) string {
	if side == "server" {
		return d.Server
	}
	return d.Client
}

// AppliesTo reports whether the processor runs for side. No sides means all.
func (p Processor) AppliesTo(side string) bool {
	return len(p.Sides) == 0 || slices.Contains(p.Sides, side)
}

// ProcessorRunner executes processors against one library tree.
type ProcessorRunner struct {
	Layout   paths.Layout
	Platform platform.Context
	Java     string
	Side     string
	Runner   runner.Runner
	Logger   *log.Logger
}

// Substitutions maps "{KEY}" tokens to resolved values.
type Substitutions map[string]string

// BuildSubstitutions resolves the profile data for side and overlays the
// fixed entries. Values of the form [coord] become library paths, 'text'
// becomes text, and /path names a file that extract writes below root.
func (r *ProcessorRunner) BuildSubstitutions(data map[string]DataEntry, fixed map[string]string, extract func(entry, dest string) error) (Substitutions, error) {
	root := fixed["ROOT"]
	table := make(Substitutions, len(data)+len(fixed))
	for key, entry := range data {
		value := entry.Value(r.Side)
		switch {
		case isCoordinateRef(value):
			p, err := r.libraryPath(value)
			if err != nil {
				return nil, fmt.Errorf("data %s: %w", key, err)
			}
			value = p
		case len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'"):
			value = value[1 : len(value)-1]
		case strings.HasPrefix(value, "/") && extract != nil && root != "":
			dest := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(value, "/")))
			if err := extract(value, dest); err != nil {
				return nil, fmt.Errorf("data %s: %w", key, err)
			}
			value = dest
		}
		table["{"+key+"}"] = value
	}
	for key, value := range fixed {
		table["{"+key+"}"] = value
	}
	return table, nil
}

// Run executes each processor applicable to the side, strictly in order.
// Later processors may read files earlier ones wrote, so a failure stops the
// chain immediately.
func (r *ProcessorRunner) Run(ctx context.Context, processors []Processor, table Substitutions) error {
	logger := logx.OrDiscard(r.Logger)
	for i, proc := range processors {
		if !proc.AppliesTo(r.Side) {
			logger.Debug("skip processor", "jar", proc.Jar, "side", r.Side)
			continue
		}
		args, err := r.Command(proc, table)
		if err != nil {
			return fmt.Errorf("processor %d (%s): %w", i+1, proc.Jar, err)
		}
		logger.Info("run processor", "n", i+1, "jar", proc.Jar)
		res, err := r.Runner.Run(ctx, r.Java, args, runner.RunOptions{})
		if err != nil {
			logger.Error("processor failed", "jar", proc.Jar, "stderr", string(res.Stderr))
			return fmt.Errorf("processor %d (%s): %w", i+1, proc.Jar, err)
		}
		if err := r.verifyOutputs(proc, table); err != nil {
			return fmt.Errorf("processor %d (%s): %w", i+1, proc.Jar, err)
		}
	}
	return nil
}

// OutputError reports a declared processor output that is missing or whose
// content does not match the declared checksum.
type OutputError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *OutputError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("declared output %s was not produced", e.Path)
	}
	return fmt.Sprintf("output %s has sha1 %s, expected %s", e.Path, e.Actual, e.Expected)
}

func (r *ProcessorRunner) verifyOutputs(proc Processor, table Substitutions) error {
	for key, want := range proc.Outputs {
		path, err := r.substitute(key, table)
		if err != nil {
			return err
		}
		expected, err := r.substitute(want, table)
		if err != nil {
			return err
		}
		expected = strings.Trim(expected, "'")

		got, err := fileSHA1(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &OutputError{Path: path, Expected: expected}
			}
			return err
		}
		if expected != "" && !strings.EqualFold(got, expected) {
			return &OutputError{Path: path, Expected: expected, Actual: got}
		}
	}
	return nil
}

func fileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Command returns the java arguments for proc: classpath, main class and the
// substituted processor arguments.
func (r *ProcessorRunner) Command(proc Processor, table Substitutions) ([]string, error) {
	jarPath, err := r.libraryPath(proc.Jar)
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(proc.Classpath)+1)
	for _, coord := range proc.Classpath {
		p, err := r.libraryPath(coord)
		if err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	entries = append(entries, jarPath)

	mainClass, err := archive.MainClass(jarPath)
	if err != nil {
		return nil, fmt.Errorf("read main class: %w", err)
	}

	args := []string{"-cp", strings.Join(entries, r.Platform.ClasspathSeparator()), mainClass}
	for _, arg := range proc.Args {
		value, err := r.substitute(arg, table)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	return args, nil
}

func (r *ProcessorRunner) substitute(arg string, table Substitutions) (string, error) {
	if value, ok := table[arg]; ok {
		arg = value
	}
	if isCoordinateRef(arg) {
		return r.libraryPath(arg)
	}
	return arg, nil
}

func (r *ProcessorRunner) libraryPath(ref string) (string, error) {
	ref = strings.TrimSuffix(strings.TrimPrefix(ref, "["), "]")
	coord, err := version.ParseCoordinate(ref)
	if err != nil {
		return "", err
	}
	return r.Layout.LibraryPath(coord.Path()), nil
}

func isCoordinateRef(value string) bool {
	return len(value) > 2 && strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]")
}
