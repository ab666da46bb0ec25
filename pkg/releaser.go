package podrelease

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result holds metadata about a release run.
type Result struct {
	RunID         string
	OldVersion    string // manifest version before the run
	NewVersion    string
	BumpType      string // "patch", "minor", "major" or "explicit"
	Tag           string
	BuildNumber   string // set when the build number was bumped
	BaseCommit    string // HEAD before any mutation
	ReleaseCommit string
	UpdatedFiles  []string
	Plan          []Step  // dry runs only: the steps a real run would take
	States        []State // every state visited, in order
}

var errNilRequest = &StepError{Step: StepConfigure, Err: fmt.Errorf("%w: nil request", ErrConfiguration)}

// Releaser runs releases against its collaborators. A Releaser may be reused
// for several runs but not concurrently: the repository is the shared
// resource and nothing here locks it.
type Releaser struct {
	repo     Repository
	manifest Manifest
	project  ProjectMetadata
	registry Registry

	logger       *zap.Logger
	onTransition func(from, to State)
	newRunID     func() string
}

// Option configures a Releaser.
type Option func(*Releaser)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Releaser) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(r *Releaser) { r.onTransition = fn }
}

// New returns a Releaser wired to the given collaborators.
func New(repo Repository, manifest Manifest, project ProjectMetadata, registry Registry, opts ...Option) *Releaser {
	r := &Releaser{
		repo:     repo,
		manifest: manifest,
		project:  project,
		registry: registry,
		logger:   zap.NewNop(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the per-invocation state: the result being built, the current
// state, and a logger tagged with the run ID.
type run struct {
	*Releaser
	req    *Request
	result *Result
	state  State
	log    *zap.Logger
}

func (r *Releaser) start(req *Request) *run {
	id := r.newRunID()
	return &run{
		Releaser: r,
		req:      req,
		result:   &Result{RunID: id, States: []State{StateIdle}},
		state:    StateIdle,
		log:      r.logger.With(zap.String("run_id", id)),
	}
}

func (rn *run) transition(to State) {
	from := rn.state
	if from.Terminal() {
		rn.log.Error("state transition after the run finished", zap.String("from", string(from)), zap.String("to", string(to)))
		return
	}
	if !canTransition(from, to) {
		// Programming error in the pipeline; keep going but make it visible.
		rn.log.Error("illegal state transition", zap.String("from", string(from)), zap.String("to", string(to)))
	}
	rn.state = to
	rn.result.States = append(rn.result.States, to)
	rn.log.Debug("state transition", zap.String("from", string(from)), zap.String("to", string(to)))
	if rn.onTransition != nil {
		rn.onTransition(from, to)
	}
}

// fail moves to Failed and wraps err with the step it came from.
func (rn *run) fail(step Step, err error) error {
	rn.transition(StateFailed)
	rn.log.Error("release failed", zap.String("step", string(step)), zap.Error(err))
	return &StepError{Step: step, Err: err}
}

// Run performs the release described by req: validate, resolve, then the
// mutation pipeline under the rollback controller. On success it returns the
// result, whose NewVersion is the released version. Every failure is a
// *StepError naming the step that failed.
func (r *Releaser) Run(ctx context.Context, req *Request) (*Result, error) {
	return r.runWithLedger(ctx, req, NewLedger())
}

func (r *Releaser) runWithLedger(ctx context.Context, req *Request, ledger *Ledger) (*Result, error) {
	if req == nil {
		return nil, errNilRequest
	}
	rn := r.start(req)
	rn.log.Info("starting release",
		zap.String("manifest", req.ManifestPath),
		zap.String("project", req.ProjectPath))

	res, err := rn.prepare(ctx)
	if err != nil {
		return rn.result, err
	}

	if err := rn.execute(ctx, res, ledger); err != nil {
		return rn.result, err
	}

	ledger.Discard()
	rn.transition(StateDone)
	rn.log.Info("release complete",
		zap.String("version", rn.result.NewVersion),
		zap.String("tag", rn.result.Tag))
	return rn.result, nil
}

// DryRun validates and resolves like Run but performs no mutation. The
// result lists the steps and files a real run would touch.
func (r *Releaser) DryRun(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errNilRequest
	}
	rn := r.start(req)
	res, err := rn.prepare(ctx)
	if err != nil {
		return rn.result, err
	}

	rn.result.Plan = plannedSteps(req)
	rn.result.UpdatedFiles = []string{req.ManifestPath, req.ProjectPath}
	rn.transition(StateDone)
	rn.log.Info("dry run complete", zap.String("version", res.Version), zap.String("tag", res.Tag))
	return rn.result, nil
}

// prepare covers configuration, preflight and resolution: everything that
// happens before the first write.
func (rn *run) prepare(ctx context.Context) (*Resolution, error) {
	if err := rn.req.Validate(); err != nil {
		return nil, rn.fail(StepConfigure, err)
	}

	rn.transition(StateValidating)
	if err := rn.validate(ctx); err != nil {
		return nil, rn.fail(StepValidate, err)
	}

	rn.transition(StateResolving)
	res, err := rn.resolve(ctx)
	if err != nil {
		return nil, rn.fail(StepResolve, err)
	}
	rn.result.OldVersion = res.Current
	rn.result.NewVersion = res.Version
	rn.result.BumpType = res.BumpType
	rn.result.Tag = res.Tag
	return res, nil
}

func plannedSteps(req *Request) []Step {
	steps := []Step{StepBumpManifest, StepBumpProject}
	if req.BumpBuildNumber {
		steps = append(steps, StepBumpBuildNumber)
	}
	return append(steps, StepCommit, StepTag, StepPush, StepPublish)
}
