// Package manifest reads and rewrites the version declared in a package
// manifest: a .podspec, a .podspec.json, a TOML manifest or a plain VERSION
// file.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrVersionNotFound is returned when no version declaration matches.
var ErrVersionNotFound = errors.New("no version declaration found")

// versionExpr matches "1", "1.2", "1.2.3" and an optional prerelease, with
// an optional leading "v".
const versionExpr = `v?\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z.-]+)?`

// VersionPattern represents a pattern for finding the version in a manifest.
// Pattern has three groups: prefix, version and suffix.
type VersionPattern struct {
	Pattern *regexp.Regexp
	Name    string

	// Tables, when set, restricts matches to the root table and these TOML
	// tables, so dependency versions are never picked.
	Tables []string
}

// PodspecPatterns match the version attribute of a Ruby podspec, e.g.
// `s.version = '1.2.3'` or `spec.version      = "1.2.3"`.
var PodspecPatterns = []VersionPattern{
	{
		Pattern: regexp.MustCompile(`^(\s*\w+\.version\s*=\s*['"])(` + versionExpr + `)(['"])`),
		Name:    "podspec version attribute",
	},
}

// JSONPatterns match a top-level "version" field.
var JSONPatterns = []VersionPattern{
	{
		Pattern: regexp.MustCompile(`^(\s{0,4}"version"\s*:\s*")(` + versionExpr + `)(")`),
		Name:    "root JSON version field",
	},
}

// TOMLPatterns match a version key.
var TOMLPatterns = []VersionPattern{
	{
		Pattern: regexp.MustCompile(`^(\s*version\s*=\s*")(` + versionExpr + `)(")`),
		Name:    "root TOML version field",
		Tables:  []string{"package", "project", "tool.poetry"},
	},
}

// MainVersionPatterns is tried for any other file.
var MainVersionPatterns = []VersionPattern{
	{
		Pattern: regexp.MustCompile(`(?i)^(\s*VERSION\s*[:=]\s*["']?)(` + versionExpr + `)(["']?)`),
		Name:    "root VERSION assignment",
	},
	{
		Pattern: regexp.MustCompile(`^(\s*)(` + versionExpr + `)(\s*)$`),
		Name:    "bare version",
	},
}

// PatternsFor picks the patterns for a manifest by file name.
func PatternsFor(path string) []VersionPattern {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".podspec"):
		return PodspecPatterns
	case strings.HasSuffix(name, ".json"):
		return JSONPatterns
	case strings.HasSuffix(name, ".toml"):
		return TOMLPatterns
	}
	return MainVersionPatterns
}

// VersionMatch represents a found version in a file.
type VersionMatch struct {
	Line       int // 1-based
	StartIndex int
	EndIndex   int
	Version    string
	Prefix     string
	Suffix     string
	Pattern    VersionPattern
}

// FindVersion returns the first line of content matching one of patterns.
func FindVersion(content string, patterns []VersionPattern) (*VersionMatch, error) {
	section := ""
	for lineNum, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.Trim(trimmed, "[]")
			continue
		}
		for _, vp := range patterns {
			m := vp.Pattern.FindStringSubmatchIndex(line)
			if len(m) < 8 {
				continue
			}
			if vp.Tables != nil && section != "" && !slices.Contains(vp.Tables, section) {
				continue
			}
			return &VersionMatch{
				Line:       lineNum + 1,
				StartIndex: m[0],
				EndIndex:   m[1],
				Prefix:     line[m[2]:m[3]],
				Version:    line[m[4]:m[5]],
				Suffix:     line[m[6]:m[7]],
				Pattern:    vp,
			}, nil
		}
	}
	return nil, ErrVersionNotFound
}

// ReplaceVersion substitutes newVersion for the match in content.
func ReplaceVersion(content string, match *VersionMatch, newVersion string) string {
	lines := strings.Split(content, "\n")
	if match.Line < 1 || match.Line > len(lines) {
		return content
	}
	line := lines[match.Line-1]
	if match.StartIndex < 0 || match.EndIndex > len(line) || match.StartIndex >= match.EndIndex {
		return content
	}
	lines[match.Line-1] = line[:match.StartIndex] + match.Prefix + newVersion + match.Suffix + line[match.EndIndex:]
	return strings.Join(lines, "\n")
}

// FindMainVersionInFile reads path and finds its version declaration.
func FindMainVersionInFile(path string) (*VersionMatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	m, err := FindVersion(string(data), PatternsFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// BumpVersionInFile writes newVersion over the version declared in path and
// returns the version it replaced.
func BumpVersionInFile(path, newVersion string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", path, err)
	}
	m, err := FindVersion(string(data), PatternsFor(path))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	out := ReplaceVersion(string(data), m, newVersion)
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return m.Version, nil
}

// Podspec is the manifest collaborator for CocoaPods specs. The zero value
// is ready to use.
type Podspec struct{}

// ReadVersion returns the version declared in the manifest at path.
func (Podspec) ReadVersion(path string) (string, error) {
	m, err := FindMainVersionInFile(path)
	if err != nil {
		return "", err
	}
	return m.Version, nil
}

// WriteVersion rewrites the version declared in the manifest at path.
func (Podspec) WriteVersion(path, version string) error {
	_, err := BumpVersionInFile(path, version)
	return err
}
