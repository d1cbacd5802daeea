package version

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"mclaunch/internal/platform"
	"mclaunch/internal/rules"
)

// DefaultLibraryRepository serves libraries that declare neither downloads nor url.
const DefaultLibraryRepository = "https://libraries.minecraft.net/"

// Descriptor is one parsed, unmerged version descriptor. Empty strings and
// nil slices mean "not declared here" so a parent can fill them.
type Descriptor struct {
	ID           string
	Type         string
	InheritsFrom string

	AssetIndex    string
	AssetIndexURL string
	ClientURL     string
	ServerURL     string
	JavaComponent string
	MainClass     string

	JVMArgs  []Argument
	GameArgs []Argument
	// LegacyArgs is set when GameArgs came from minecraftArguments.
	LegacyArgs bool

	Libraries []Library
	Natives   []Native
}

type rawDescriptor struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	InheritsFrom string `json:"inheritsFrom"`
	MainClass    string `json:"mainClass"`
	AssetIndex   *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"assetIndex"`
	Downloads map[string]struct {
		URL string `json:"url"`
	} `json:"downloads"`
	JavaVersion *struct {
		Component string `json:"component"`
	} `json:"javaVersion"`
	Arguments *struct {
		JVM  []json.RawMessage `json:"jvm"`
		Game []json.RawMessage `json:"game"`
	} `json:"arguments"`
	MinecraftArguments *string      `json:"minecraftArguments"`
	Libraries          []rawLibrary `json:"libraries"`
}

type rawArtifact struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type rawLibrary struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Downloads struct {
		Artifact    *rawArtifact           `json:"artifact"`
		Classifiers map[string]rawArtifact `json:"classifiers"`
	} `json:"downloads"`
	Natives map[string]string `json:"natives"`
	Rules   []rules.Rule      `json:"rules"`
}

type rawConditional struct {
	Rules []rules.Rule    `json:"rules"`
	Value json.RawMessage `json:"value"`
}

// ParseDescriptor decodes a descriptor document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var raw rawDescriptor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}

	d := &Descriptor{
		ID:           raw.ID,
		Type:         raw.Type,
		InheritsFrom: raw.InheritsFrom,
		MainClass:    raw.MainClass,
	}
	if raw.AssetIndex != nil {
		d.AssetIndex = raw.AssetIndex.ID
		d.AssetIndexURL = raw.AssetIndex.URL
	}
	if dl, ok := raw.Downloads["client"]; ok {
		d.ClientURL = dl.URL
	}
	if dl, ok := raw.Downloads["server"]; ok {
		d.ServerURL = dl.URL
	}
	if raw.JavaVersion != nil {
		d.JavaComponent = raw.JavaVersion.Component
	}

	var err error
	if raw.Arguments != nil {
		if raw.Arguments.JVM != nil {
			if d.JVMArgs, err = parseArguments(raw.Arguments.JVM); err != nil {
				return nil, fmt.Errorf("arguments.jvm: %w", err)
			}
		}
		if raw.Arguments.Game != nil {
			if d.GameArgs, err = parseArguments(raw.Arguments.Game); err != nil {
				return nil, fmt.Errorf("arguments.game: %w", err)
			}
		}
	}
	if d.GameArgs == nil && raw.MinecraftArguments != nil {
		d.GameArgs = parseLegacyArguments(*raw.MinecraftArguments)
		d.LegacyArgs = true
	}

	if raw.Libraries != nil {
		if d.Libraries, d.Natives, err = parseLibraries(raw.Libraries); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ParseLibraries decodes a bare "libraries" array, as found in installer profiles.
func ParseLibraries(data []byte) ([]Library, []Native, error) {
	var raw []rawLibrary
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode libraries: %w", err)
	}
	return parseLibraries(raw)
}

func parseArguments(entries []json.RawMessage) ([]Argument, error) {
	args := make([]Argument, 0, len(entries))
	for i, entry := range entries {
		var literal string
		if err := json.Unmarshal(entry, &literal); err == nil {
			args = append(args, Literal(literal))
			continue
		}

		var cond rawConditional
		if err := json.Unmarshal(entry, &cond); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		var values []string
		if err := json.Unmarshal(cond.Value, &values); err != nil {
			var single string
			if err := json.Unmarshal(cond.Value, &single); err != nil {
				return nil, fmt.Errorf("entry %d: value is neither string nor list", i)
			}
			values = []string{single}
		}
		for _, v := range values {
			args = append(args, Conditional(v, cond.Rules))
		}
	}
	return args, nil
}

func parseLegacyArguments(value string) []Argument {
	fields := strings.Fields(value)
	args := make([]Argument, 0, len(fields))
	for _, f := range fields {
		args = append(args, Literal(f))
	}
	return args
}

func parseLibraries(raw []rawLibrary) ([]Library, []Native, error) {
	libraries := make([]Library, 0, len(raw))
	natives := make([]Native, 0)

	for _, lib := range raw {
		coord, err := ParseCoordinate(lib.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("library: %w", err)
		}

		if strings.HasPrefix(coord.Classifier, "natives-") {
			osName, arch := platform.SplitClassifier(coord.Classifier)
			natives = append(natives, Native{
				Name:     coord.Key(),
				Version:  coord.Version,
				URL:      artifactURL(lib, coord),
				Path:     artifactPath(lib, coord),
				Platform: osName,
				Arch:     arch,
				Rules:    lib.Rules,
			})
			continue
		}

		if len(lib.Natives) > 0 {
			for osName, template := range lib.Natives {
				for _, variant := range expandArch(template) {
					art, ok := lib.Downloads.Classifiers[variant.classifier]
					if !ok {
						continue
					}
					nativeCoord := coord
					nativeCoord.Classifier = variant.classifier
					p := art.Path
					if p == "" {
						p = nativeCoord.Path()
					}
					natives = append(natives, Native{
						Name:     coord.Key(),
						Version:  coord.Version,
						URL:      art.URL,
						Path:     p,
						Platform: platform.NormalizeOS(osName),
						Arch:     variant.arch,
						Rules:    lib.Rules,
					})
				}
			}
			// Natives-only entries carry no classpath artifact.
			if lib.Downloads.Artifact == nil {
				continue
			}
		}

		libraries = append(libraries, Library{
			Name:    coord.Key(),
			Version: coord.Version,
			URL:     artifactURL(lib, coord),
			Path:    artifactPath(lib, coord),
			Rules:   lib.Rules,
		})
	}
	sortNatives(natives)
	return libraries, natives, nil
}

func artifactURL(lib rawLibrary, coord Coordinate) string {
	if lib.Downloads.Artifact != nil {
		return lib.Downloads.Artifact.URL
	}
	base := lib.URL
	if base == "" {
		base = DefaultLibraryRepository
	}
	return strings.TrimSuffix(base, "/") + "/" + coord.Path()
}

func artifactPath(lib rawLibrary, coord Coordinate) string {
	if lib.Downloads.Artifact != nil && lib.Downloads.Artifact.Path != "" {
		return path.Clean(lib.Downloads.Artifact.Path)
	}
	return coord.Path()
}

type nativeVariant struct {
	classifier string
	arch       string
}

// expandArch turns a per-OS classifier template into the concrete classifiers
// it can name. ${arch} is the JVM word size, so a template using it yields a
// 32-bit and a 64-bit variant and the platform picks one at install time.
func expandArch(template string) []nativeVariant {
	if !strings.Contains(template, "${arch}") {
		_, arch := platform.SplitClassifier(template)
		return []nativeVariant{{classifier: template, arch: arch}}
	}
	return []nativeVariant{
		{classifier: strings.ReplaceAll(template, "${arch}", "32"), arch: "32"},
		{classifier: strings.ReplaceAll(template, "${arch}", "64"), arch: "64"},
	}
}

// sortNatives orders natives declared through a per-platform map, whose
// iteration order is random, while keeping declaration order between libraries.
func sortNatives(natives []Native) {
	for i := 1; i < len(natives); i++ {
		for j := i; j > 0; j-- {
			a, b := natives[j-1], natives[j]
			if a.Name != b.Name || a.Key() <= b.Key() {
				break
			}
			natives[j-1], natives[j] = b, a
		}
	}
}
