package podrelease

// Step names one unit of work in a release run.
type Step string

const (
	StepConfigure       Step = "configure"
	StepValidate        Step = "validate"
	StepResolve         Step = "resolve"
	StepBumpManifest    Step = "bump-manifest"
	StepBumpProject     Step = "bump-project"
	StepBumpBuildNumber Step = "bump-build-number"
	StepCommit          Step = "commit"
	StepTag             Step = "tag"
	StepPush            Step = "push"
	StepPublish         Step = "publish"
)

func (s Step) String() string { return string(s) }

func (s Step) kind() FailureKind {
	switch s {
	case StepConfigure:
		return KindConfiguration
	case StepValidate:
		return KindPreflight
	case StepResolve:
		return KindResolution
	case StepBumpManifest, StepBumpProject, StepBumpBuildNumber:
		return KindMutation
	default:
		return KindPipeline
	}
}

// State is a node of the release state machine.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateResolving   State = "resolving"
	StateBumping     State = "bumping"
	StateCommitting  State = "committing"
	StateTagging     State = "tagging"
	StatePushing     State = "pushing"
	StatePublishing  State = "publishing"
	StateDone        State = "done"
	StateRollingBack State = "rolling-back"
	StateFailed      State = "failed"
)

// stepStates maps the guarded pipeline steps onto their state.
var stepStates = map[Step]State{
	StepCommit:  StateCommitting,
	StepTag:     StateTagging,
	StepPush:    StatePushing,
	StepPublish: StatePublishing,
}

// transitions lists the legal moves. Failed is reachable from any non-terminal
// state because configuration, preflight, resolution and steps 1-3 fail
// without a rollback.
var transitions = map[State][]State{
	StateIdle:        {StateValidating, StateFailed},
	StateValidating:  {StateResolving, StateFailed},
	StateResolving:   {StateBumping, StateDone, StateFailed},
	StateBumping:     {StateCommitting, StateFailed},
	StateCommitting:  {StateTagging, StateRollingBack},
	StateTagging:     {StatePushing, StateRollingBack},
	StatePushing:     {StatePublishing, StateRollingBack},
	StatePublishing:  {StateDone, StateRollingBack},
	StateRollingBack: {StateFailed},
}

// canTransition reports whether from -> to is an edge of the state machine.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
