package podrelease

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults used by NewRequest.
const (
	DefaultBranch        = "master"
	DefaultRegistryRepo  = "Trunk"
	DefaultCommitMessage = "Version bump"
)

// DefaultRegistrySources is the spec repository pods are linted against.
var DefaultRegistrySources = []string{"https://github.com/CocoaPods/Specs"}

// Request describes one release. It is built once per invocation and only
// read afterwards.
type Request struct {
	ManifestPath string `validate:"required,exists"`
	ProjectPath  string `validate:"required,exists"`

	// ExplicitVersion and BumpType are mutually exclusive. An empty BumpType
	// with no ExplicitVersion means patch.
	ExplicitVersion string   `validate:"omitempty,excluded_with=BumpType,version"`
	BumpType        BumpType `validate:"omitempty,oneof=patch minor major"`

	TagPrefix       string
	BumpBuildNumber bool
	BuildNumber     string // only used when BumpBuildNumber is set
	CommitMessage   string `validate:"required"`
	IncludePaths    []string

	BranchConstraint   string `validate:"required"`
	RequireCleanStatus bool
	CheckRemoteParity  bool
	CheckVersionSync   bool

	RegistryRepo         string   `validate:"required"`
	RegistrySources      []string `validate:"dive,url"`
	AllowPublishWarnings bool
}

// NewRequest returns a Request carrying the documented defaults.
func NewRequest(manifestPath, projectPath string) *Request {
	return &Request{
		ManifestPath:         manifestPath,
		ProjectPath:          projectPath,
		CommitMessage:        DefaultCommitMessage,
		BranchConstraint:     DefaultBranch,
		RequireCleanStatus:   true,
		CheckRemoteParity:    true,
		CheckVersionSync:     true,
		RegistryRepo:         DefaultRegistryRepo,
		RegistrySources:      append([]string(nil), DefaultRegistrySources...),
		AllowPublishWarnings: true,
	}
}

// Tag returns the tag name for version.
func (r *Request) Tag(version string) string {
	return r.TagPrefix + version
}

// CommitPaths lists the files staged for the version-bump commit.
func (r *Request) CommitPaths() []string {
	paths := []string{r.ManifestPath, r.ProjectPath}
	for _, p := range r.IncludePaths {
		if !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	return paths
}

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("exists", validateExists)
	_ = requestValidate.RegisterValidation("version", validateVersion)
}

// explicitVersionPattern accepts what a podspec can carry: one to three
// numeric components, an optional leading v and a prerelease suffix.
var explicitVersionPattern = regexp.MustCompile(`^v?\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z.-]+)?$`)

func validateVersion(fl validator.FieldLevel) bool {
	return explicitVersionPattern.MatchString(fl.Field().String())
}

// validateExists checks that a path names an existing file or directory.
// Xcode projects are directories, so the baked-in "file" tag does not fit.
func validateExists(fl validator.FieldLevel) bool {
	_, err := os.Stat(fl.Field().String())
	return err == nil
}

// Validate checks the request before any collaborator runs. Every failure
// wraps ErrConfiguration; an unknown bump type also wraps ErrInvalidBumpType.
func (r *Request) Validate() error {
	err := requestValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	msgs := make([]string, 0, len(verrs))
	badBump := false
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
		if fe.Field() == "BumpType" && fe.Tag() == "oneof" {
			badBump = true
		}
	}
	msg := strings.Join(msgs, "; ")
	if badBump {
		return fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrInvalidBumpType, msg)
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "exists":
		return fmt.Sprintf("could not find %s at path '%v'", fe.Field(), fe.Value())
	case "excluded_with":
		return "ExplicitVersion and BumpType are mutually exclusive"
	case "oneof":
		return fmt.Sprintf("%s %q is not one of 'patch', 'minor' and 'major'", fe.Field(), fe.Value())
	case "version":
		return fmt.Sprintf("%s %q is not a version like 1.2, 1.2.3 or v1.2.3-beta.1", fe.Field(), fe.Value())
	case "url":
		return fmt.Sprintf("%s entry %q is not a URL", fe.Namespace(), fe.Value())
	}
	return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
}
