package store

import (
	"cmp"
	"slices"
	"sync"
)

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Snapshots are keyed by source name. Subscribers receive updates via
// buffered channels; sends are non-blocking, so an update is dropped for a
// subscriber whose buffer is full instead of stalling the pollers.
type MemoryStore struct {
	mu          sync.RWMutex
	sources     map[string]SourceSnapshot
	subscribers map[chan SourceSnapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources:     make(map[string]SourceSnapshot),
		subscribers: make(map[chan SourceSnapshot]struct{}),
	}
}

// Update stores a [SourceSnapshot] and notifies all subscribers.
//
// The snapshot's Agents slice is copied, and a nil slice is stored as an
// empty one so it serializes as [].
func (m *MemoryStore) Update(snap SourceSnapshot) {
	snap = clone(snap)

	m.mu.Lock()
	m.sources[snap.Name] = snap
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// Get returns the snapshot stored under name.
func (m *MemoryStore) Get(name string) (SourceSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.sources[name]
	if !ok {
		return SourceSnapshot{}, false
	}
	return clone(snap), true
}

// GetAll returns a copy of all stored snapshots, sorted by name.
func (m *MemoryStore) GetAll() []SourceSnapshot {
	m.mu.RLock()
	results := make([]SourceSnapshot, 0, len(m.sources))
	for _, snap := range m.sources {
		results = append(results, clone(snap))
	}
	m.mu.RUnlock()

	slices.SortFunc(results, func(a, b SourceSnapshot) int { return cmp.Compare(a.Name, b.Name) })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan SourceSnapshot {
	ch := make(chan SourceSnapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan SourceSnapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// map keys are the bidirectional channel, so match by identity
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(snap SourceSnapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- clone(snap):
		default:
			// subscriber is slow, drop the message
		}
	}
}

func clone(snap SourceSnapshot) SourceSnapshot {
	if snap.Agents == nil {
		snap.Agents = []AgentRecord{}
	} else {
		snap.Agents = slices.Clone(snap.Agents)
	}
	if snap.Error != nil {
		msg := *snap.Error
		snap.Error = &msg
	}
	return snap
}
