package podrelease

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Resolution is the single version value the pipeline works with.
type Resolution struct {
	Current  string // manifest version before the bump
	Version  string // used for the manifest, the project and the tag
	BumpType string
	Tag      string
}

// resolve computes the new version. The manifest is authoritative; when
// CheckVersionSync is set the project metadata must agree with it first.
func (rn *run) resolve(ctx context.Context) (*Resolution, error) {
	req := rn.req

	current, err := rn.manifest.ReadVersion(req.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest version: %w", err)
	}

	if req.CheckVersionSync {
		projectVersion, err := rn.project.ReadVersion(req.ProjectPath)
		if err != nil {
			return nil, fmt.Errorf("reading project version: %w", err)
		}
		if projectVersion != current {
			return nil, &VersionMismatchError{Manifest: current, Project: projectVersion}
		}
	}

	res := &Resolution{Current: current}
	if req.ExplicitVersion != "" {
		res.Version = req.ExplicitVersion
		res.BumpType = bumpExplicit
	} else {
		bump := req.BumpType
		if bump == "" {
			bump = BumpPatch
		}
		next, err := BumpVersion(current, bump)
		if err != nil {
			return nil, err
		}
		res.Version = next
		res.BumpType = string(bump)
	}

	if res.Version == current {
		return nil, fmt.Errorf("%w: %s", ErrVersionUnchanged, current)
	}

	res.Tag = req.Tag(res.Version)
	exists, err := rn.repo.TagExists(ctx, res.Tag)
	if err != nil {
		return nil, fmt.Errorf("checking tag %s: %w", res.Tag, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrTagExists, res.Tag)
	}

	rn.log.Info("resolved version",
		zap.String("current", current),
		zap.String("version", res.Version),
		zap.String("bump", res.BumpType),
		zap.String("tag", res.Tag))
	return res, nil
}
