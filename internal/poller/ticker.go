package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// PollFunc performs one poll. It must return once ctx is cancelled.
type PollFunc func(ctx context.Context)

// Ticker runs a [PollFunc] immediately and then at a fixed interval.
//
// At most one poll runs at a time. A tick that fires while the previous
// poll is still running is skipped rather than queued, so a slow endpoint
// stretches the effective interval instead of piling up requests.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Ticker struct {
	interval time.Duration
	poll     PollFunc
	logger   *slog.Logger

	inFlight atomic.Bool
	skipped  atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTicker creates a [Ticker]. interval must be positive.
//
// The ticker must be started with [Ticker.Start] and stopped with
// [Ticker.Stop].
func NewTicker(interval time.Duration, poll PollFunc, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		interval: interval,
		poll:     poll,
		logger:   logger,
	}
}

// Start begins the poll loop in a background goroutine.
//
// The first poll is issued immediately, without waiting for the first
// tick. Start is idempotent; if Stop was called first, Start is a no-op.
// If ctx is nil, context.Background() is used.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()

		t.tryPoll(loopCtx)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				t.tryPoll(loopCtx)
			}
		}
	}()
}

// tryPoll launches a poll unless one is already running.
func (t *Ticker) tryPoll(ctx context.Context) {
	if !t.inFlight.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		t.logger.Debug("poll skipped", "reason", "previous poll still in flight")
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.inFlight.Store(false)
		t.poll(ctx)
	}()
}

// Stop halts the loop, cancels any in-flight poll and waits for it to return.
//
// Stop is idempotent and safe to call before Start. It must not be called
// from inside a poll; use [Ticker.Cancel] there.
func (t *Ticker) Stop() {
	t.Cancel()
	t.Wait()
}

// Cancel halts the loop and cancels any in-flight poll without waiting.
// It is idempotent, safe before Start, and safe to call from a poll.
func (t *Ticker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.cancel != nil {
		t.cancel()
	}
}

// Wait blocks until the loop and any in-flight poll have returned.
func (t *Ticker) Wait() {
	t.wg.Wait()
}

// InFlight reports whether a poll is currently running.
func (t *Ticker) InFlight() bool {
	return t.inFlight.Load()
}

// Skipped returns how many ticks were dropped because a poll was in flight.
func (t *Ticker) Skipped() uint64 {
	return t.skipped.Load()
}
