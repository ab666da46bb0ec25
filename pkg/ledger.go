package podrelease

import (
	"context"
)

// Compensating action names.
const (
	ActionResetHard = "reset-hard"
	ActionDeleteTag = "delete-tag"
	ActionForcePush = "force-push"
)

// Compensation is one undo action.
type Compensation struct {
	Action string
	Undo   func(ctx context.Context) error
}

// Entry pairs a pipeline step with the compensation plan that restores the
// pre-run state should that step, or any later one, fail. Plans widen as the
// pipeline reaches further out (local, remote, registry).
type Entry struct {
	Step    Step
	Actions []Compensation
}

// Ledger is the stack of compensation entries for one run. It only grows
// while the pipeline moves forward and is drained at most once.
type Ledger struct {
	entries []Entry
	drained bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record pushes the compensation plan for step.
func (l *Ledger) Record(step Step, actions ...Compensation) {
	if l.drained {
		return
	}
	l.entries = append(l.entries, Entry{Step: step, Actions: actions})
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Plan lists the actions Unwind would run, in order: entries most recent
// first, and an action already covered by a more recent entry is skipped.
func (l *Ledger) Plan() []string {
	var plan []string
	l.walk(func(_ Step, c Compensation) {
		plan = append(plan, c.Action)
	})
	return plan
}

// Unwind runs the plan. A failing action does not stop the ones after it;
// failures are reported to onResult and returned. Calling Unwind again, or
// after Discard, does nothing.
func (l *Ledger) Unwind(ctx context.Context, onResult func(step Step, action string, err error)) []*CompensationError {
	if l.drained {
		return nil
	}
	var failed []*CompensationError
	l.walk(func(step Step, c Compensation) {
		err := c.Undo(ctx)
		if onResult != nil {
			onResult(step, c.Action, err)
		}
		if err != nil {
			failed = append(failed, &CompensationError{Step: step, Action: c.Action, Err: err})
		}
	})
	l.entries = nil
	l.drained = true
	return failed
}

// Discard drops every entry without running it. Used on success.
func (l *Ledger) Discard() {
	l.entries = nil
	l.drained = true
}

func (l *Ledger) walk(fn func(Step, Compensation)) {
	seen := make(map[string]bool)
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		for _, c := range e.Actions {
			if seen[c.Action] {
				continue
			}
			seen[c.Action] = true
			fn(e.Step, c)
		}
	}
}
