package reconcile

import (
	"fmt"
	"log/slog"
)

// State is a phase of a reconciliation run.
type State int

const (
	StateIdle State = iota
	StateLoadingSnapshot
	StateNormalizing
	StateClassifying
	StateWriting
	StateDraining
	StateReporting
	StateDone

	// StateFailed is terminal: the run stopped before writing.
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateLoadingSnapshot: "loading_snapshot",
	StateNormalizing:     "normalizing",
	StateClassifying:     "classifying",
	StateWriting:         "writing",
	StateDraining:        "draining",
	StateReporting:       "reporting",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// canTransition reports whether a run may move from one state to the next.
// Runs advance strictly in order; only the phases before Writing may fail.
func canTransition(from, to State) bool {
	switch {
	case to == StateFailed:
		return from == StateLoadingSnapshot || from == StateNormalizing
	case from == StateDone || from == StateFailed:
		return false
	default:
		return to == from+1
	}
}

// stateMachine tracks one run's phase and notifies an observer on every move.
type stateMachine struct {
	current State
	runID   string
	source  string
	observe func(State)
}

func (m *stateMachine) enter(to State) {
	if !canTransition(m.current, to) {
		panic(fmt.Sprintf("reconcile: invalid state transition %s -> %s", m.current, to))
	}
	m.current = to
	slog.Debug("run state", "run_id", m.runID, "source", m.source, "state", to.String())
	if m.observe != nil {
		m.observe(to)
	}
}
