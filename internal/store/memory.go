package store

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels. Sends are non-blocking;
// if a subscriber's buffer is full the update is dropped for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	states      map[string]SensorState
	subscribers map[chan SensorState]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:      make(map[string]SensorState),
		subscribers: make(map[chan SensorState]struct{}),
	}
}

// Update stores a [SensorState] and notifies all subscribers.
func (m *MemoryStore) Update(state SensorState) {
	m.mu.Lock()
	m.states[state.Name] = state
	m.mu.Unlock()

	m.notifySubscribers(state)
}

// Get returns the current state for name.
func (m *MemoryStore) Get(name string) (SensorState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[name]
	return state, ok
}

// GetAll returns a snapshot of all stored states, sorted by name.
func (m *MemoryStore) GetAll() []SensorState {
	m.mu.RLock()
	results := make([]SensorState, 0, len(m.states))
	for _, state := range m.states {
		results = append(results, state)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Subscribe creates a new subscription with a buffer of 100 updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done.
func (m *MemoryStore) Subscribe() <-chan SensorState {
	ch := make(chan SensorState, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan SensorState) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the state to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(state SensorState) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- state:
		default:
			// subscriber is slow, drop the update
		}
	}
}
