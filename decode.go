package agentpulse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// wireStatus is one element of the upstream JSON array.
//
// Status and LastTaskTime stay raw so that a bad value in either field can
// be normalised instead of failing the whole document.
type wireStatus struct {
	Name           string          `json:"name"`
	Status         json.RawMessage `json:"status"`
	LastTask       string          `json:"last_task"`
	LastTaskTime   json.RawMessage `json:"last_task_time"`
	TasksCompleted int64           `json:"tasks_completed"`
	SuccessRate    float64         `json:"success_rate"`
}

// DecodeStatuses parses a status document into agent records, preserving
// the order of the array.
//
// The document must be a JSON array of objects. Unrecognised or malformed
// status values become [StateUnknown] and unreadable timestamps become the
// zero time; neither fails the decode. Everything else that does not fit
// the record shape (wrong field types, empty or duplicate names, negative
// counters, success rates outside [0,1]) is reported as a [*ParseError].
func DecodeStatuses(body []byte) ([]AgentStatus, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ParseError{Index: -1, Err: errors.New("expected a JSON array")}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	statuses := make([]AgentStatus, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, msg := range raw {
		var w wireStatus
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil, &ParseError{Index: i, Err: err}
		}

		if w.Name == "" {
			return nil, &ParseError{Index: i, Err: errors.New("name is required")}
		}
		if _, dup := seen[w.Name]; dup {
			return nil, &ParseError{Index: i, Err: fmt.Errorf("duplicate name %q", w.Name)}
		}
		seen[w.Name] = struct{}{}

		if w.TasksCompleted < 0 {
			return nil, &ParseError{Index: i, Err: fmt.Errorf("tasks_completed must not be negative, got %d", w.TasksCompleted)}
		}
		if w.SuccessRate < 0 || w.SuccessRate > 1 {
			return nil, &ParseError{Index: i, Err: fmt.Errorf("success_rate must be within [0,1], got %g", w.SuccessRate)}
		}

		statuses = append(statuses, AgentStatus{
			Name:           w.Name,
			State:          decodeState(w.Status),
			LastTask:       w.LastTask,
			LastTaskTime:   decodeTime(w.LastTaskTime),
			TasksCompleted: w.TasksCompleted,
			SuccessRate:    w.SuccessRate,
		})
	}

	return statuses, nil
}

// decodeState maps a raw JSON value to a State. Non-string values are unknown.
func decodeState(raw json.RawMessage) State {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return StateUnknown
	}
	return ParseState(s)
}

// decodeTime parses an RFC 3339 timestamp, returning the zero time on failure.
func decodeTime(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
