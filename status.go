package agentpulse

import (
	"strings"
	"time"
)

// State is the activity state reported for a single agent.
//
// State is a closed set: [StateBusy], [StateIdle], [StateError] and
// [StateUnknown]. Raw strings from the wire are mapped into it by
// [ParseState], so rendering code never has to handle arbitrary values.
type State string

const (
	// StateBusy indicates the agent is working on a task.
	StateBusy State = "busy"

	// StateIdle indicates the agent is waiting for work.
	StateIdle State = "idle"

	// StateError indicates the agent reported a failure.
	StateError State = "error"

	// StateUnknown is used for any value the poller does not recognise.
	StateUnknown State = "unknown"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// ParseState maps a raw status string onto the closed [State] set.
//
// Matching ignores case and surrounding whitespace. Anything outside the
// allow-list, including the empty string, yields [StateUnknown].
func ParseState(raw string) State {
	switch State(strings.ToLower(strings.TrimSpace(raw))) {
	case StateBusy:
		return StateBusy
	case StateIdle:
		return StateIdle
	case StateError:
		return StateError
	default:
		return StateUnknown
	}
}

// AgentStatus is the most recent known state of one polled agent.
//
// Name is unique within a poll result. LastTaskTime is the zero time when
// the upstream omitted it or sent something that is not RFC 3339.
type AgentStatus struct {
	Name           string
	State          State
	LastTask       string
	LastTaskTime   time.Time
	TasksCompleted int64
	SuccessRate    float64
}
