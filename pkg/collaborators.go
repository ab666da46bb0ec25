package podrelease

import "context"

// Repository is the version-control collaborator. Implementations signal
// policy failures by wrapping ErrBranchMismatch and ErrDirtyWorkingTree.
type Repository interface {
	CheckBranch(ctx context.Context, constraint string) error
	CheckCleanStatus(ctx context.Context) error
	FetchRemoteRefs(ctx context.Context) error
	CurrentCommit(ctx context.Context) (string, error)
	UpstreamCommit(ctx context.Context) (string, error)
	TagExists(ctx context.Context, name string) (bool, error)

	// Commit stages paths, commits them with message and returns the new hash.
	Commit(ctx context.Context, message string, paths []string) (string, error)
	CreateTag(ctx context.Context, name string) error
	// DeleteTag removes the local tag and, when remote is set, the pushed one.
	DeleteTag(ctx context.Context, name string, remote bool) error
	// PushBranch pushes the current branch plus the given tags.
	PushBranch(ctx context.Context, force bool, tags ...string) error
	ResetHard(ctx context.Context, commit string) error
}

// Manifest reads and writes the authoritative package version.
type Manifest interface {
	ReadVersion(path string) (string, error)
	WriteVersion(path, version string) error
}

// ProjectMetadata reads and writes the build's version and build number.
type ProjectMetadata interface {
	ReadVersion(path string) (string, error)
	WriteVersion(path, version string) error
	// BumpBuildNumber sets explicit when non-empty, otherwise increments the
	// current build number. It returns the resulting build number.
	BumpBuildNumber(path, explicit string) (string, error)
}

// PublishRequest carries the registry arguments of step 7.
type PublishRequest struct {
	ManifestPath  string
	Repo          string
	Sources       []string
	AllowWarnings bool
}

// Registry publishes the package.
type Registry interface {
	Publish(ctx context.Context, req PublishRequest) error
}
