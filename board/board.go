package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/agentpulse"
	"github.com/jpalmerr/agentpulse/dashboard"
	"github.com/jpalmerr/agentpulse/internal/server"
	"github.com/jpalmerr/agentpulse/internal/store"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultPort            = 8080
)

// SourceStatus is delivered to status callbacks each time a source's
// snapshot changes.
type SourceStatus struct {
	// Source is the name of the source that was polled.
	Source string

	// URL is the source's agents endpoint.
	URL string

	// Snapshot is the poller state after the change. Its Entities slice is
	// owned by the callback.
	Snapshot agentpulse.Snapshot
}

// Board polls several agent-status sources and serves them on one dashboard.
//
// Each source gets its own [agentpulse.Handle], so a slow or failing source
// never delays the others. The typical lifecycle is:
//
//	b, err := board.New(board.WithSource(src))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
type Board struct {
	title           string
	sources         []Source
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	callbacks       []func(SourceStatus)
}

// New creates a [Board] with the given options.
//
// At least one source must be configured via [WithSource] or [WithSources],
// and source names must be unique. Defaults: polling interval 5 seconds,
// port 8080.
//
// Example:
//
//	b, err := board.New(
//	    board.WithSources(farm, staging),
//	    board.WithPollingInterval(10*time.Second),
//	    board.WithPort(9090),
//	)
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		sources:         []Source{},
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.sources) == 0 {
		return nil, errors.New("at least one source is required")
	}

	// names key the store and the /api/status/{name} route
	seen := make(map[string]bool, len(cfg.sources))
	for _, src := range cfg.sources {
		if seen[src.name] {
			return nil, fmt.Errorf("duplicate source name: %q", src.name)
		}
		seen[src.name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		sources:         cfg.sources,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		logger:          logger,
		callbacks:       cfg.callbacks,
	}, nil
}

// Start begins polling every source and serving the dashboard.
//
// Start blocks until ctx is cancelled, then stops every poller before
// returning. Each source appears on the dashboard immediately in the
// loading phase and is replaced as its polls resolve.
//
// Returns nil on graceful shutdown, and immediately when ctx is already
// cancelled. Returns an error if the HTTP server cannot bind its port.
func (b *Board) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	b.logger.Info("board starting", "source_count", len(b.sources))
	b.logger.Info("polling configured", "interval", b.pollingInterval.String())

	st := store.NewMemoryStore()
	for _, src := range b.sources {
		st.Update(toStoreSnapshot(src, agentpulse.Snapshot{IsLoading: true, Phase: agentpulse.PhaseLoading}))
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	httpServer := server.NewServer(st, b.port, dashboard.Assets, b.title, b.logger)
	if err := httpServer.Start(serverCtx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	handles := make([]*agentpulse.Handle, 0, len(b.sources))
	stopAll := func() {
		for _, h := range handles {
			h.Stop()
		}
	}

	for _, src := range b.sources {
		h, err := agentpulse.Start(ctx, src.url, b.intervalFor(src),
			agentpulse.WithLogger(b.logger.With("source", src.name)),
			agentpulse.WithTimeout(src.timeout),
			agentpulse.WithHeaders(flattenHeaders(src.headers)...),
			agentpulse.WithSnapshotCallback(b.onSnapshot(st, src)),
		)
		if err != nil {
			stopAll()
			return fmt.Errorf("failed to start poller for %q: %w", src.name, err)
		}
		handles = append(handles, h)
	}

	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	<-ctx.Done()
	stopAll()
	b.logger.Info("board stopped")
	return nil
}

// intervalFor returns the source's own interval or the board-wide default.
func (b *Board) intervalFor(src Source) time.Duration {
	if src.interval > 0 {
		return src.interval
	}
	return b.pollingInterval
}

// onSnapshot returns the poller callback for src. The store is updated
// before user callbacks fire.
func (b *Board) onSnapshot(st store.Store, src Source) func(agentpulse.Snapshot) {
	return func(snap agentpulse.Snapshot) {
		st.Update(toStoreSnapshot(src, snap))

		for _, cb := range b.callbacks {
			status := SourceStatus{Source: src.name, URL: src.url, Snapshot: snap}
			status.Snapshot.Entities = slices.Clone(snap.Entities)
			invokeCallbackSafe(cb, status, b.logger)
		}
	}
}

// Sources returns a copy of the configured sources.
func (b *Board) Sources() []Source {
	return slices.Clone(b.sources)
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollingInterval returns the interval used by sources without their own.
func (b *Board) PollingInterval() time.Duration {
	return b.pollingInterval
}

// Title returns the configured dashboard title, empty for the default.
func (b *Board) Title() string {
	return b.title
}

// toStoreSnapshot converts a poller snapshot to its storage form.
func toStoreSnapshot(src Source, snap agentpulse.Snapshot) store.SourceSnapshot {
	var errStr *string
	if snap.LastError != nil {
		s := snap.LastError.Error()
		errStr = &s
	}

	agents := make([]store.AgentRecord, len(snap.Entities))
	for i, a := range snap.Entities {
		agents[i] = store.AgentRecord{
			Name:           a.Name,
			Status:         a.State.String(),
			LastTask:       a.LastTask,
			LastTaskTime:   a.LastTaskTime,
			TasksCompleted: a.TasksCompleted,
			SuccessRate:    a.SuccessRate,
		}
	}

	return store.SourceSnapshot{
		Name:                src.name,
		URL:                 src.url,
		Phase:               snap.Phase.String(),
		Agents:              agents,
		Loading:             snap.IsLoading,
		Stale:               snap.IsStale,
		Error:               errStr,
		CheckedAt:           snap.CheckedAt,
		UpdatedAt:           snap.UpdatedAt,
		ConsecutiveFailures: snap.ConsecutiveFailures,
	}
}

// flattenHeaders turns a header map into key-value pairs.
func flattenHeaders(headers map[string]string) []string {
	kv := make([]string, 0, len(headers)*2)
	for k, v := range headers {
		kv = append(kv, k, v)
	}
	return kv
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged under a correlation id but do not propagate.
func invokeCallbackSafe(cb func(SourceStatus), status SourceStatus, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"source", status.Source,
			)
		}
	}()
	cb(status)
}
