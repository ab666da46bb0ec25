package podrelease

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// BumpType is the semantic-versioning increment applied when no explicit
// version is requested.
type BumpType string

const (
	BumpPatch BumpType = "patch"
	BumpMinor BumpType = "minor"
	BumpMajor BumpType = "major"
)

// bumpExplicit is reported in Result.BumpType when the version was given verbatim.
const bumpExplicit = "explicit"

// Valid reports whether b is one of patch, minor or major.
func (b BumpType) Valid() bool {
	switch b {
	case BumpPatch, BumpMinor, BumpMajor:
		return true
	}
	return false
}

// ParseBumpType converts s into a BumpType, failing with ErrInvalidBumpType.
func ParseBumpType(s string) (BumpType, error) {
	b := BumpType(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q (available values are 'patch', 'minor' and 'major')", ErrInvalidBumpType, s)
	}
	return b, nil
}

// canonical turns a manifest version ("1.2", "v1.2.3-beta") into a canonical
// semver string with a leading "v". Short forms are padded with zeros.
func canonical(v string) (string, error) {
	c := semver.Canonical("v" + strings.TrimPrefix(strings.TrimSpace(v), "v"))
	if c == "" {
		return "", fmt.Errorf("unexpected version format: %q", v)
	}
	return c, nil
}

// parseSemVer extracts the numeric components of a canonical semver string.
func parseSemVer(version string) (major, minor, patch int, err error) {
	core := strings.TrimPrefix(semver.Canonical(version), "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		err = fmt.Errorf("unexpected version format: %s", version)
		return
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return
	}
	patch, err = strconv.Atoi(parts[2])
	return
}

// BumpVersion applies bump to current and returns the new version. A leading
// "v" on current is kept; prerelease and build suffixes are dropped.
func BumpVersion(current string, bump BumpType) (string, error) {
	if !bump.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBumpType, bump)
	}
	c, err := canonical(current)
	if err != nil {
		return "", err
	}
	major, minor, patch, err := parseSemVer(c)
	if err != nil {
		return "", err
	}

	switch bump {
	case BumpMajor:
		major++
		minor = 0
		patch = 0
	case BumpMinor:
		minor++
		patch = 0
	case BumpPatch:
		patch++
	}

	next := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if strings.HasPrefix(strings.TrimSpace(current), "v") {
		next = "v" + next
	}
	return next, nil
}
