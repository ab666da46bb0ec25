// Package xcodeproj reads and rewrites the marketing version and the build
// number of an Xcode project.
//
// A project path may name an .xcodeproj bundle, its project.pbxproj file, or
// an Info.plist. In a pbxproj the MARKETING_VERSION and
// CURRENT_PROJECT_VERSION build settings are used; every build configuration
// must agree on them. In an Info.plist the CFBundleShortVersionString and
// CFBundleVersion keys are used.
package xcodeproj

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrVersionNotFound is returned when the project declares no literal value.
	ErrVersionNotFound = errors.New("no version found in project")

	// ErrInconsistentVersions is returned when build configurations disagree.
	ErrInconsistentVersions = errors.New("build configurations declare different values")

	// ErrInvalidBuildNumber is returned for a build number that is not dotted digits.
	ErrInvalidBuildNumber = errors.New("invalid build number")
)

// setting locates one value in a project file. Pattern has three groups:
// prefix, value and suffix.
type setting struct {
	Name    string
	Pattern *regexp.Regexp
}

var (
	pbxMarketingVersion = setting{
		Name:    "MARKETING_VERSION",
		Pattern: regexp.MustCompile(`(MARKETING_VERSION\s*=\s*"?)([^";\s]+)("?\s*;)`),
	}
	pbxBuildNumber = setting{
		Name:    "CURRENT_PROJECT_VERSION",
		Pattern: regexp.MustCompile(`(CURRENT_PROJECT_VERSION\s*=\s*"?)([^";\s]+)("?\s*;)`),
	}
	plistMarketingVersion = setting{
		Name:    "CFBundleShortVersionString",
		Pattern: regexp.MustCompile(`(<key>CFBundleShortVersionString</key>\s*<string>)([^<]*)(</string>)`),
	}
	plistBuildNumber = setting{
		Name:    "CFBundleVersion",
		Pattern: regexp.MustCompile(`(<key>CFBundleVersion</key>\s*<string>)([^<]*)(</string>)`),
	}
)

var buildNumberPattern = regexp.MustCompile(`^\d+(?:\.\d+){0,2}$`)

// isReference reports whether v is a build setting reference like $(VAR).
func isReference(v string) bool {
	return strings.Contains(v, "$(") || strings.Contains(v, "${")
}

// values returns the distinct literal values of s in content, in order.
func (s setting) values(content string) []string {
	var out []string
	for _, m := range s.Pattern.FindAllStringSubmatch(content, -1) {
		v := m[2]
		if isReference(v) || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// value returns the single literal value of s in content.
func (s setting) value(content string) (string, error) {
	vals := s.values(content)
	switch len(vals) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, s.Name)
	case 1:
		return vals[0], nil
	}
	return "", fmt.Errorf("%w: %s is %s", ErrInconsistentVersions, s.Name, strings.Join(vals, ", "))
}

// replace sets every literal occurrence of s in content to v.
func (s setting) replace(content, v string) string {
	return s.Pattern.ReplaceAllStringFunc(content, func(match string) string {
		m := s.Pattern.FindStringSubmatch(match)
		if isReference(m[2]) {
			return match
		}
		return m[1] + v + m[3]
	})
}

// projectFile is a resolved project path with the settings it carries.
type projectFile struct {
	path    string
	version setting
	build   setting
}

func resolve(path string) (projectFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return projectFile{}, err
	}
	switch {
	case info.IsDir():
		if filepath.Ext(path) != ".xcodeproj" {
			return projectFile{}, fmt.Errorf("%s is a directory but not an .xcodeproj bundle", path)
		}
		return projectFile{filepath.Join(path, "project.pbxproj"), pbxMarketingVersion, pbxBuildNumber}, nil
	case strings.EqualFold(filepath.Ext(path), ".plist"):
		return projectFile{path, plistMarketingVersion, plistBuildNumber}, nil
	default:
		return projectFile{path, pbxMarketingVersion, pbxBuildNumber}, nil
	}
}

func (p projectFile) read() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", p.path, err)
	}
	return string(data), nil
}

func (p projectFile) write(content string) error {
	info, err := os.Stat(p.path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing file %s: %w", p.path, err)
	}
	return nil
}

func (p projectFile) get(s setting) (string, error) {
	content, err := p.read()
	if err != nil {
		return "", err
	}
	v, err := s.value(content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.path, err)
	}
	return v, nil
}

func (p projectFile) set(s setting, v string) error {
	content, err := p.read()
	if err != nil {
		return err
	}
	if len(s.values(content)) == 0 {
		return fmt.Errorf("%s: %w: %s", p.path, ErrVersionNotFound, s.Name)
	}
	return p.write(s.replace(content, v))
}

// NextBuildNumber increments the last component of a dotted build number:
// "7" becomes "8", "1.2.9" becomes "1.2.10".
func NextBuildNumber(current string) (string, error) {
	if !buildNumberPattern.MatchString(current) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBuildNumber, current)
	}
	parts := strings.Split(current, ".")
	last, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBuildNumber, current)
	}
	parts[len(parts)-1] = strconv.Itoa(last + 1)
	return strings.Join(parts, "."), nil
}

// Project is the project metadata collaborator. The zero value is ready to use.
type Project struct{}

// ReadVersion returns the marketing version of the project at path.
func (Project) ReadVersion(path string) (string, error) {
	p, err := resolve(path)
	if err != nil {
		return "", err
	}
	return p.get(p.version)
}

// WriteVersion sets the marketing version in every build configuration.
func (Project) WriteVersion(path, version string) error {
	p, err := resolve(path)
	if err != nil {
		return err
	}
	return p.set(p.version, version)
}

// BumpBuildNumber sets the build number to explicit, or increments the
// current one when explicit is empty, and returns the new value.
func (Project) BumpBuildNumber(path, explicit string) (string, error) {
	p, err := resolve(path)
	if err != nil {
		return "", err
	}

	next := explicit
	if next == "" {
		current, err := p.get(p.build)
		if err != nil {
			return "", err
		}
		if next, err = NextBuildNumber(current); err != nil {
			return "", err
		}
	} else if !buildNumberPattern.MatchString(next) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBuildNumber, next)
	}

	if err := p.set(p.build, next); err != nil {
		return "", err
	}
	return next, nil
}
