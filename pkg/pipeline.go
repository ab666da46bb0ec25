package podrelease

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// execute runs the mutation pipeline. Steps 1-3 only touch the working tree
// and fail without a rollback; steps 4-7 run guarded, each recording its
// compensation plan in ledger before it mutates anything.
func (rn *run) execute(ctx context.Context, res *Resolution, ledger *Ledger) error {
	req := rn.req

	base, err := rn.repo.CurrentCommit(ctx)
	if err != nil {
		return rn.fail(StepValidate, fmt.Errorf("reading HEAD: %w", err))
	}
	rn.result.BaseCommit = base

	rn.transition(StateBumping)

	if err := rn.manifest.WriteVersion(req.ManifestPath, res.Version); err != nil {
		return rn.fail(StepBumpManifest, err)
	}
	rn.result.UpdatedFiles = append(rn.result.UpdatedFiles, req.ManifestPath)
	rn.log.Info("manifest bumped", zap.String("path", req.ManifestPath), zap.String("version", res.Version))

	if err := rn.project.WriteVersion(req.ProjectPath, res.Version); err != nil {
		return rn.fail(StepBumpProject, err)
	}
	rn.result.UpdatedFiles = append(rn.result.UpdatedFiles, req.ProjectPath)
	rn.log.Info("project version bumped", zap.String("path", req.ProjectPath), zap.String("version", res.Version))

	if req.BumpBuildNumber {
		build, err := rn.project.BumpBuildNumber(req.ProjectPath, req.BuildNumber)
		if err != nil {
			return rn.fail(StepBumpBuildNumber, err)
		}
		rn.result.BuildNumber = build
		rn.log.Info("build number bumped", zap.String("build_number", build))
	}

	tag := res.Tag
	resetHard := Compensation{Action: ActionResetHard, Undo: func(ctx context.Context) error {
		return rn.repo.ResetHard(ctx, base)
	}}
	deleteLocalTag := Compensation{Action: ActionDeleteTag, Undo: func(ctx context.Context) error {
		return rn.repo.DeleteTag(ctx, tag, false)
	}}
	deleteTag := Compensation{Action: ActionDeleteTag, Undo: func(ctx context.Context) error {
		return rn.repo.DeleteTag(ctx, tag, true)
	}}
	forcePush := Compensation{Action: ActionForcePush, Undo: func(ctx context.Context) error {
		return rn.repo.PushBranch(ctx, true)
	}}

	if err := rn.guarded(ctx, ledger, StepCommit, []Compensation{resetHard}, func(ctx context.Context) error {
		hash, err := rn.repo.Commit(ctx, req.CommitMessage, req.CommitPaths())
		rn.result.ReleaseCommit = hash
		return err
	}); err != nil {
		return err
	}

	if err := rn.guarded(ctx, ledger, StepTag, []Compensation{resetHard, deleteLocalTag}, func(ctx context.Context) error {
		return rn.repo.CreateTag(ctx, tag)
	}); err != nil {
		return err
	}

	if err := rn.guarded(ctx, ledger, StepPush, []Compensation{resetHard, deleteTag}, func(ctx context.Context) error {
		return rn.repo.PushBranch(ctx, false, tag)
	}); err != nil {
		return err
	}

	return rn.guarded(ctx, ledger, StepPublish, []Compensation{resetHard, deleteTag, forcePush}, func(ctx context.Context) error {
		return rn.registry.Publish(ctx, PublishRequest{
			ManifestPath:  req.ManifestPath,
			Repo:          req.RegistryRepo,
			Sources:       req.RegistrySources,
			AllowWarnings: req.AllowPublishWarnings,
		})
	})
}
