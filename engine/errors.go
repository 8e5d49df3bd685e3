package engine

import (
	"errors"
	"fmt"
)

// ErrAborted unwinds the run loop when the session's abort flag is set. It
// is checked at every emission point.
var ErrAborted = errors.New("run aborted")

// ErrPaused is returned by Run when a gate suspended the stream because no
// callback was registered. The session keeps its state; a Resume call
// re-enters the machine.
var ErrPaused = errors.New("run paused awaiting external input")

// AgentError marks a model or tooling failure that is terminal for the
// turn. The reporter turns it into a diagnostic instead of a crash.
type AgentError struct {
	Phase Phase
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent failure in %s phase: %v", e.Phase, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// Termination reasons for the non-error, policy-driven loop exits.
const (
	TerminationMaxIterations  = "max_iterations"
	TerminationRepeatedCall   = "repeated_call"
	TerminationApprovalDenied = "approval_denied"
	TerminationAgentError     = "agent_error"
	TerminationCompleted      = "completed"
)
