package modloader

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// MavenMetadata is the subset of maven-metadata.xml the installers read.
type MavenMetadata struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
	} `xml:"versioning"`
}

// ParseMavenMetadata decodes a maven-metadata.xml document.
func ParseMavenMetadata(data []byte) (*MavenMetadata, error) {
	var md MavenMetadata
	if err := xml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parse maven metadata: %w", err)
	}
	return &md, nil
}

// NewestWithPrefix returns the highest version starting with prefix, with the
// prefix removed. Forge lists builds as "<mc>-<forge>".
func (m *MavenMetadata) NewestWithPrefix(prefix string) (string, bool) {
	var best string
	found := false
	for _, v := range m.Versioning.Versions {
		rest, ok := strings.CutPrefix(v, prefix)
		if !ok || rest == "" {
			continue
		}
		if !found || compareVersions(rest, best) > 0 {
			best = rest
			found = true
		}
	}
	return best, found
}

// compareVersions orders dotted versions numerically where possible.
func compareVersions(a, b string) int {
	as := strings.FieldsFunc(a, isVersionSep)
	bs := strings.FieldsFunc(b, isVersionSep)
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := comparePart(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func comparePart(x, y string) int {
	xi, xerr := strconv.Atoi(x)
	yi, yerr := strconv.Atoi(y)
	switch {
	case xerr == nil && yerr == nil:
		switch {
		case xi < yi:
			return -1
		case xi > yi:
			return 1
		}
		return 0
	case x == "":
		return -1
	case y == "":
		return 1
	}
	return strings.Compare(x, y)
}

func isVersionSep(r rune) bool {
	return r == '.' || r == '-' || r == '_'
}
