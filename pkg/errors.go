package podrelease

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Match them with errors.Is; the concrete errors returned by
// the core and the collaborators wrap them with detail.
var (
	// ErrConfiguration marks an invalid ReleaseRequest: conflicting options,
	// a missing path, an unknown bump type. Raised before any collaborator
	// is invoked.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidBumpType is returned for a bump type outside patch, minor, major.
	ErrInvalidBumpType = errors.New("invalid bump type")

	ErrBranchMismatch   = errors.New("branch does not match constraint")
	ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")
	ErrBehindRemote     = errors.New("local branch differs from its upstream")

	ErrVersionMismatch  = errors.New("manifest and project versions differ")
	ErrVersionUnchanged = errors.New("new version is the same as the current version")
	ErrTagExists        = errors.New("tag already exists")
)

// VersionMismatchError reports the two diverging version sources.
type VersionMismatchError struct {
	Manifest string
	Project  string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("manifest version (%s) does not match project version (%s)", e.Manifest, e.Project)
}

// Is lets errors.Is(err, ErrVersionMismatch) match.
func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// FailureKind classifies a StepError by the phase it happened in.
type FailureKind string

const (
	KindConfiguration FailureKind = "configuration"
	KindPreflight     FailureKind = "preflight"
	KindResolution    FailureKind = "resolution"
	KindMutation      FailureKind = "mutation" // steps 1-3, nothing rolled back
	KindPipeline      FailureKind = "pipeline" // steps 4-7, rolled back
)

// CompensationError records a compensating action that itself failed.
type CompensationError struct {
	Step   Step   // ledger entry the action belonged to
	Action string // e.g. "reset-hard"
	Err    error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("rollback %s (from %s): %v", e.Action, e.Step, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }

// StepError is the failure half of a release outcome. Err is the original
// error, untouched; Rollback holds whatever went wrong while compensating.
type StepError struct {
	Step     Step
	Err      error
	Rollback []*CompensationError
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Step, e.Err)
	if len(e.Rollback) > 0 {
		parts := make([]string, len(e.Rollback))
		for i, r := range e.Rollback {
			parts[i] = r.Error()
		}
		msg += fmt.Sprintf(" (rollback incomplete: %s)", strings.Join(parts, "; "))
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }

// Kind reports which phase of the release the step belongs to.
func (e *StepError) Kind() FailureKind {
	return e.Step.kind()
}

// RolledBack reports whether the failure triggered the rollback controller.
func (e *StepError) RolledBack() bool {
	return e.Kind() == KindPipeline
}

// CommandError wraps a failed external command (git, pod) with its stderr.
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Stderr)
//	}
type CommandError struct {
	// Command is the command line that was executed.
	Command string

	// ExitCode is the process exit code (-1 if unknown).
	ExitCode int

	// Stderr contains the trimmed standard error output.
	Stderr string

	// Wrapped is the underlying error.
	Wrapped error
}

// NewCommandError creates a CommandError. Stderr is trimmed of surrounding
// whitespace.
func NewCommandError(cmd string, exitCode int, stderr string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Wrapped:  wrapped,
	}
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

func (e *CommandError) Unwrap() error { return e.Wrapped }
