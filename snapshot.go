package agentpulse

import "time"

// Phase is the poller's position in its lifecycle.
//
//	loading ──► fresh ⇄ stale
//	   └──────────┴───────┴──► stopped
type Phase string

const (
	// PhaseLoading means no poll attempt has resolved yet.
	PhaseLoading Phase = "loading"

	// PhaseFresh means the most recent poll succeeded.
	PhaseFresh Phase = "fresh"

	// PhaseStale means the most recent poll failed; Entities are from an
	// earlier successful poll, or empty if there has never been one.
	PhaseStale Phase = "stale"

	// PhaseStopped means the poller was stopped and will not change again.
	PhaseStopped Phase = "stopped"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Snapshot is a point-in-time copy of a poller's state.
//
// Snapshots are values: the Entities slice is owned by the caller and
// later polls never modify it.
type Snapshot struct {
	// Entities holds the agents from the last successful poll, in the
	// order the server returned them.
	Entities []AgentStatus

	// IsLoading is true only until the first poll attempt resolves.
	IsLoading bool

	// IsStale is true when the most recent poll attempt failed.
	IsStale bool

	// LastError is the error from the most recent poll attempt, nil after
	// a successful one. It is one of [*NetworkError], [*HTTPError] or
	// [*ParseError].
	LastError error

	// Phase is the lifecycle position derived from the fields above and
	// whether the poller has been stopped.
	Phase Phase

	// CheckedAt is when the most recent poll attempt resolved.
	CheckedAt time.Time

	// UpdatedAt is when Entities were last replaced.
	UpdatedAt time.Time

	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int
}

// Agent returns the entity with the given name.
func (s Snapshot) Agent(name string) (AgentStatus, bool) {
	for _, a := range s.Entities {
		if a.Name == name {
			return a, true
		}
	}
	return AgentStatus{}, false
}

// Count returns how many entities are in the given state.
func (s Snapshot) Count(state State) int {
	n := 0
	for _, a := range s.Entities {
		if a.State == state {
			n++
		}
	}
	return n
}

// pollState is the mutable state behind a Handle.
type pollState struct {
	entities            []AgentStatus
	loading             bool
	stale               bool
	lastErr             error
	checkedAt           time.Time
	updatedAt           time.Time
	consecutiveFailures int
}

func newPollState() pollState {
	return pollState{loading: true}
}

// applySuccess replaces the entities wholesale and clears the error flags.
func (s *pollState) applySuccess(entities []AgentStatus, at time.Time) {
	s.entities = entities
	s.loading = false
	s.stale = false
	s.lastErr = nil
	s.checkedAt = at
	s.updatedAt = at
	s.consecutiveFailures = 0
}

// applyFailure marks the state stale and keeps the last good entities.
func (s *pollState) applyFailure(err error, at time.Time) {
	s.loading = false
	s.stale = true
	s.lastErr = err
	s.checkedAt = at
	s.consecutiveFailures++
}

// snapshot copies the state. stopped overrides the derived phase.
func (s *pollState) snapshot(stopped bool) Snapshot {
	var entities []AgentStatus
	if s.entities != nil {
		entities = make([]AgentStatus, len(s.entities))
		copy(entities, s.entities)
	}

	phase := PhaseFresh
	switch {
	case stopped:
		phase = PhaseStopped
	case s.loading:
		phase = PhaseLoading
	case s.stale:
		phase = PhaseStale
	}

	return Snapshot{
		Entities:            entities,
		IsLoading:           s.loading,
		IsStale:             s.stale,
		LastError:           s.lastErr,
		Phase:               phase,
		CheckedAt:           s.checkedAt,
		UpdatedAt:           s.updatedAt,
		ConsecutiveFailures: s.consecutiveFailures,
	}
}
