package version

import (
	"fmt"
	"path"
	"strings"
)

// Coordinate is a maven artifact coordinate
// group:artifact:version[:classifier...][@extension].
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

// ParseCoordinate parses a maven coordinate. Multiple trailing classifier
// segments are joined with "-", and an "@ext" suffix on the last segment sets
// the file extension (default "jar").
func ParseCoordinate(value string) (Coordinate, error) {
	value = strings.TrimSpace(value)
	ext := "jar"
	if i := strings.LastIndex(value, "@"); i >= 0 {
		ext = value[i+1:]
		value = value[:i]
	}
	parts := strings.Split(value, ":")
	if len(parts) < 3 {
		return Coordinate{}, fmt.Errorf("invalid maven coordinate %q", value)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Coordinate{}, fmt.Errorf("invalid maven coordinate %q", value)
		}
	}
	return Coordinate{
		Group:      parts[0],
		Artifact:   parts[1],
		Version:    parts[2],
		Classifier: strings.Join(parts[3:], "-"),
		Extension:  ext,
	}, nil
}

// Key is the library uniqueness key, group:artifact.
func (c Coordinate) Key() string {
	return c.Group + ":" + c.Artifact
}

// FileName returns artifact-version[-classifier].ext.
func (c Coordinate) FileName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.Extension
}

// Path returns the slash-separated maven repository path of the artifact.
func (c Coordinate) Path() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version, c.FileName())
}

func (c Coordinate) String() string {
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	if c.Extension != "" && c.Extension != "jar" {
		s += "@" + c.Extension
	}
	return s
}
