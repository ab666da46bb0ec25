package podrelease

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// validate runs the read-only repository checks. It stops at the first
// failure so that nothing past a failing check is ever consulted.
func (rn *run) validate(ctx context.Context) error {
	req := rn.req

	if err := rn.repo.CheckBranch(ctx, req.BranchConstraint); err != nil {
		return err
	}

	if req.RequireCleanStatus {
		if err := rn.repo.CheckCleanStatus(ctx); err != nil {
			return err
		}
	}

	if req.CheckRemoteParity {
		if err := rn.checkRemoteParity(ctx); err != nil {
			return err
		}
	}

	rn.log.Info("preflight checks passed", zap.String("branch_constraint", req.BranchConstraint))
	return nil
}

// checkRemoteParity refreshes remote refs, then requires HEAD to equal the
// upstream tracking commit.
func (rn *run) checkRemoteParity(ctx context.Context) error {
	if err := rn.repo.FetchRemoteRefs(ctx); err != nil {
		return fmt.Errorf("updating remote refs: %w", err)
	}
	local, err := rn.repo.CurrentCommit(ctx)
	if err != nil {
		return fmt.Errorf("reading HEAD: %w", err)
	}
	upstream, err := rn.repo.UpstreamCommit(ctx)
	if err != nil {
		return fmt.Errorf("reading upstream: %w", err)
	}
	if local != upstream {
		return fmt.Errorf("%w: HEAD is %s, upstream is %s (use \"git pull\" to update your local branch)",
			ErrBehindRemote, short(local), short(upstream))
	}
	return nil
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
