// Package mockagents serves a fake agents endpoint for demos and tests.
//
// A Fleet answers GET with the JSON array agentpulse expects. Agents move
// through idle, busy and error on their own schedule, and the fleet can be
// told to fail a share of requests or to report statuses outside the usual
// set so the stale and unknown paths show up end to end.
package mockagents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const (
	defaultAgents   = 5
	minChangeDelay  = 5 * time.Second
	maxChangeJitter = 15 * time.Second
)

// statusCycle is the order agents move through. Busy appears twice so
// agents spend more time working than waiting.
var statusCycle = []string{"idle", "busy", "busy", "error"}

// oddStatuses are reported instead of the real status when malformed
// output is requested. Some normalise to a known state, others to unknown.
var oddStatuses = []string{"BUSY", " Idle ", "offline", "", "paused"}

var tasks = []string{
	"compile", "unit tests", "lint", "package", "deploy staging",
	"integration tests", "publish artifacts", "rebuild cache",
}

// Config controls how a Fleet behaves.
type Config struct {
	// Agents is the number of agents reported. Defaults to 5.
	Agents int

	// FailRate is the share of requests, 0..1, that fail. Failures
	// alternate between a 503 and a truncated body.
	FailRate float64

	// MalformedRate is the share of agent records, 0..1, whose status is
	// replaced with an odd value.
	MalformedRate float64

	// Seed seeds the random source. Zero uses the current time.
	Seed int64

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Validate checks the rates are within 0..1 and the agent count is sane.
func (c Config) Validate() error {
	if c.Agents < 0 {
		return fmt.Errorf("agents cannot be negative, got %d", c.Agents)
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("fail rate must be between 0 and 1, got %v", c.FailRate)
	}
	if c.MalformedRate < 0 || c.MalformedRate > 1 {
		return fmt.Errorf("malformed rate must be between 0 and 1, got %v", c.MalformedRate)
	}
	return nil
}

// agentState tracks status and next change time for a single agent.
type agentState struct {
	name         string
	statusIdx    int
	nextChangeAt time.Time
	lastTask     string
	lastTaskTime time.Time
	completed    int64
	succeeded    int64
}

// record is one element of the response body.
type record struct {
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	LastTask       string  `json:"last_task,omitempty"`
	LastTaskTime   string  `json:"last_task_time,omitempty"`
	TasksCompleted int64   `json:"tasks_completed"`
	SuccessRate    float64 `json:"success_rate"`
}

// Fleet is an http.Handler serving a simulated set of agents.
type Fleet struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	agents   []*agentState
	failures int
}

// NewFleet creates a fleet. A nil logger uses slog.Default.
func NewFleet(cfg Config, logger *slog.Logger) (*Fleet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Agents == 0 {
		cfg.Agents = defaultAgents
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fleet{
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	now := cfg.Now()
	for i := range cfg.Agents {
		f.agents = append(f.agents, &agentState{
			name:         fmt.Sprintf("agent-%02d", i+1),
			statusIdx:    f.rng.Intn(len(statusCycle)),
			nextChangeAt: now.Add(f.changeDelay()),
		})
	}
	return f, nil
}

// changeDelay returns the time until an agent's next status change.
// Callers hold f.mu or own f exclusively.
func (f *Fleet) changeDelay() time.Duration {
	return minChangeDelay + time.Duration(f.rng.Int63n(int64(maxChangeJitter)))
}

// ServeHTTP answers GET with the current agent records.
func (f *Fleet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f.mu.Lock()
	fail := f.rng.Float64() < f.cfg.FailRate
	var failures int
	if fail {
		f.failures++
		failures = f.failures
	}
	records := f.advance(f.cfg.Now())
	f.mu.Unlock()

	if fail {
		if failures%2 == 1 {
			f.logger.Info("injecting failure", "kind", "http_503")
			http.Error(w, "agents unavailable", http.StatusServiceUnavailable)
			return
		}
		f.logger.Info("injecting failure", "kind", "truncated_body")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name": "agent-01", "status": `))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		f.logger.Error("failed to write response", "error", err)
	}
}

// advance moves agents whose change time has passed to their next status
// and returns the records to report. Callers hold f.mu.
func (f *Fleet) advance(now time.Time) []record {
	records := make([]record, 0, len(f.agents))

	for _, a := range f.agents {
		if !now.Before(a.nextChangeAt) {
			from := statusCycle[a.statusIdx]
			a.statusIdx = (a.statusIdx + 1) % len(statusCycle)
			a.nextChangeAt = now.Add(f.changeDelay())
			to := statusCycle[a.statusIdx]

			switch to {
			case "busy":
				a.lastTask = tasks[f.rng.Intn(len(tasks))]
				a.lastTaskTime = now
			case "idle":
				a.completed++
				a.succeeded++
			case "error":
				a.completed++
			}
			f.logger.Info("status change", "agent", a.name, "from", from, "to", to)
		}

		records = append(records, f.recordFor(a))
	}

	return records
}

func (f *Fleet) recordFor(a *agentState) record {
	rec := record{
		Name:           a.name,
		Status:         statusCycle[a.statusIdx],
		LastTask:       a.lastTask,
		TasksCompleted: a.completed,
	}
	if !a.lastTaskTime.IsZero() {
		rec.LastTaskTime = a.lastTaskTime.UTC().Format(time.RFC3339)
	}
	if a.completed > 0 {
		rec.SuccessRate = float64(a.succeeded) / float64(a.completed)
	}
	if f.cfg.MalformedRate > 0 && f.rng.Float64() < f.cfg.MalformedRate {
		rec.Status = oddStatuses[f.rng.Intn(len(oddStatuses))]
	}
	return rec
}
