package agentpulse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/agentpulse/internal/poller"
)

// Handle owns one running poller.
//
// A Handle is returned by [Start] and is the only way to observe or stop
// the poller it owns; there is no package-level poller state, so any
// number of independent pollers can run side by side.
//
// All methods are safe for concurrent use, including on a nil Handle.
type Handle struct {
	id        string
	endpoint  string
	interval  time.Duration
	timeout   time.Duration
	headers   map[string]string
	callbacks []func(Snapshot)
	logger    *slog.Logger

	client *poller.Client
	ticker *poller.Ticker
	cancel context.CancelFunc

	mu      sync.RWMutex
	state   pollState
	stopped bool

	// inCallback is set while a snapshot callback runs on the poll goroutine.
	inCallback atomic.Bool
}

// Start begins polling endpoint every interval and returns the owning [Handle].
//
// The first poll is issued immediately rather than after the first
// interval. Each poll is a GET whose body must be a JSON array of agent
// statuses (see [DecodeStatuses]). Poll failures never surface as errors
// from Start or panics; they are recorded in the handle's [Snapshot].
//
// Start returns an error only for invalid arguments: [ErrInvalidInterval]
// when interval is not positive, [ErrInvalidEndpoint] when endpoint is not
// an absolute http or https URL, or the error of a failing [Option].
//
// The poller runs until [Handle.Stop] is called or ctx is cancelled,
// whichever happens first.
//
// Example:
//
//	h, err := agentpulse.Start(ctx, "http://localhost:9999/agents", 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer h.Stop()
//
//	snap := h.Snapshot()
func Start(ctx context.Context, endpoint string, interval time.Duration, opts ...Option) (*Handle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidInterval, interval)
	}
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}

	cfg := &pollConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	h := &Handle{
		id:        id,
		endpoint:  endpoint,
		interval:  interval,
		timeout:   cfg.timeout,
		headers:   cfg.headers,
		callbacks: cfg.callbacks,
		logger:    logger.With("poller_id", id, "endpoint", endpoint),
		client:    poller.NewClient(),
		state:     newPollState(),
	}

	pollCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.ticker = poller.NewTicker(interval, h.poll, h.logger)

	// a cancelled parent context stops the handle just like Stop does
	context.AfterFunc(pollCtx, func() {
		if h.markStopped() {
			h.logger.Info("poller stopped", "reason", context.Cause(pollCtx).Error())
		}
		h.client.Close()
	})

	h.logger.Info("poller starting", "interval", interval.String())
	h.ticker.Start(pollCtx)

	return h, nil
}

// validateEndpoint checks that endpoint is an absolute http(s) URL.
func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return nil
}

// Stop stops the poller.
//
// No state change is applied after Stop begins: a poll that is in flight
// is cancelled and whatever it resolves to is discarded, and no further
// snapshot callback starts. Stop waits for the poll goroutines to exit
// before returning, except while a snapshot callback is running: the
// callback runs on the poll goroutine, so Stop only cancels and returns.
// This makes it safe to call Stop from a callback.
//
// Stop is idempotent. Calling it on a nil Handle, or on a Handle that was
// never started, is a no-op.
func (h *Handle) Stop() {
	if h == nil {
		return
	}

	first := h.markStopped()
	if h.cancel != nil {
		h.cancel()
	}
	if h.ticker != nil {
		h.ticker.Cancel()
		if !h.inCallback.Load() {
			h.ticker.Wait()
		}
	}
	h.client.Close()

	if first && h.logger != nil {
		h.logger.Info("poller stopped", "reason", "stop requested")
	}
}

// markStopped sets the stopped flag and reports whether this call set it.
func (h *Handle) markStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.stopped = true
	return true
}

// Snapshot returns a copy of the poller's current state.
//
// Snapshot never waits on the network. On a nil Handle, or one that was
// never started, it returns a loading snapshot.
func (h *Handle) Snapshot() Snapshot {
	if h == nil {
		s := newPollState()
		return s.snapshot(false)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.ticker == nil {
		s := newPollState()
		return s.snapshot(h.stopped)
	}
	return h.state.snapshot(h.stopped)
}

// ID returns the unique identifier assigned to this poller, as it appears
// in log records under "poller_id".
func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Endpoint returns the URL being polled.
func (h *Handle) Endpoint() string {
	if h == nil {
		return ""
	}
	return h.endpoint
}

// Interval returns the configured time between polls.
func (h *Handle) Interval() time.Duration {
	if h == nil {
		return 0
	}
	return h.interval
}

// poll performs one fetch-and-apply cycle. The ticker guarantees that
// calls never overlap for the same handle.
func (h *Handle) poll(ctx context.Context) {
	resp := h.client.Fetch(ctx, h.endpoint, h.headers, h.timeout)
	entities, err := h.interpret(resp)
	now := time.Now()

	h.mu.Lock()
	if h.stopped || ctx.Err() != nil {
		h.mu.Unlock()
		h.logger.Debug("poll result discarded", "reason", "poller stopped")
		return
	}
	if err != nil {
		h.state.applyFailure(err, now)
	} else {
		h.state.applySuccess(entities, now)
	}
	snap := h.state.snapshot(false)
	h.mu.Unlock()

	logAttrs := []any{
		"status_code", resp.StatusCode,
		"latency_ms", resp.Latency.Milliseconds(),
	}
	if err != nil {
		h.logger.Warn("poll failed", append(logAttrs,
			"error", err.Error(),
			"consecutive_failures", snap.ConsecutiveFailures,
			"retained_agents", len(snap.Entities),
		)...)
	} else {
		h.logger.Debug("poll completed", append(logAttrs, "agents", len(entities))...)
	}

	for _, cb := range h.callbacks {
		if h.isStopped() {
			return
		}
		h.inCallback.Store(true)
		h.invokeCallbackSafe(cb, snap)
		h.inCallback.Store(false)
	}
}

func (h *Handle) isStopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// interpret classifies a fetch response into entities or a poll error.
func (h *Handle) interpret(resp poller.Response) ([]AgentStatus, error) {
	if resp.Error != nil {
		return nil, &NetworkError{URL: h.endpoint, Err: resp.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{URL: h.endpoint, StatusCode: resp.StatusCode}
	}
	return DecodeStatuses(resp.Body)
}

// invokeCallbackSafe calls a snapshot callback with panic recovery.
// The stack is logged under a correlation id; the panic does not propagate.
func (h *Handle) invokeCallbackSafe(cb func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("snapshot callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(snap)
}
