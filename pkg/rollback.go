package podrelease

import (
	"context"

	"go.uber.org/zap"
)

// guarded is the rollback controller's failure boundary around one pipeline
// step. The step's compensation plan goes into the ledger before forward
// runs, so a failure halfway through forward is still covered.
func (rn *run) guarded(ctx context.Context, ledger *Ledger, step Step, plan []Compensation, forward func(context.Context) error) error {
	rn.transition(stepStates[step])
	ledger.Record(step, plan...)

	rn.log.Info("step started", zap.String("step", string(step)))
	if err := forward(ctx); err != nil {
		return rn.rollback(ctx, ledger, step, err)
	}
	rn.log.Info("step finished", zap.String("step", string(step)))
	return nil
}

// rollback drains the ledger and returns the original failure. Compensation
// errors are logged and attached to the StepError; they never replace cause.
func (rn *run) rollback(ctx context.Context, ledger *Ledger, step Step, cause error) error {
	rn.transition(StateRollingBack)
	rn.log.Warn("step failed, rolling back",
		zap.String("step", string(step)),
		zap.Error(cause),
		zap.Strings("plan", ledger.Plan()))

	// Compensate even if the caller's context is already cancelled.
	failures := ledger.Unwind(context.WithoutCancel(ctx), func(from Step, action string, err error) {
		if err != nil {
			rn.log.Warn("compensating action failed",
				zap.String("action", action),
				zap.String("entry", string(from)),
				zap.Error(err))
			return
		}
		rn.log.Info("compensating action done", zap.String("action", action), zap.String("entry", string(from)))
	})

	rn.transition(StateFailed)
	rn.log.Error("release failed",
		zap.String("step", string(step)),
		zap.Error(cause),
		zap.Int("rollback_failures", len(failures)))
	return &StepError{Step: step, Err: cause, Rollback: failures}
}
