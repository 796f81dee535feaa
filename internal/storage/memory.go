package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process settings backend. It keeps nothing across process
// restarts and is used for tests and the --ephemeral daemon mode.
type Memory struct {
	handlers handlerSet

	mu       sync.Mutex
	data     map[string][]byte
	writes   int
	failWith error
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// RegisterHandler implements configstore.Backend.
func (m *Memory) RegisterHandler(namespace string, h SetHandler) error {
	return m.handlers.register(namespace, h)
}

// LoadAll implements configstore.Backend. Entries are replayed in key order.
func (m *Memory) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([][]byte, len(keys))
	for i, k := range keys {
		entries[i] = append([]byte(nil), m.data[k]...)
	}
	m.mu.Unlock()

	for i, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.handlers.dispatch(k, entries[i])
	}
	return nil
}

// Rejected returns how many entries handlers have refused across all LoadAll
// calls.
func (m *Memory) Rejected() int { return int(m.handlers.rejected.Load()) }

// SaveOne implements configstore.Backend.
func (m *Memory) SaveOne(ctx context.Context, key string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.data[key] = append([]byte(nil), raw...)
	m.writes++
	return nil
}

// Put seeds a stored entry without counting it as a write.
func (m *Memory) Put(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), raw...)
}

// Get returns a copy of the stored bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), raw...), true
}

// Writes returns the number of successful SaveOne calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailWrites makes every subsequent SaveOne return err (nil restores normal
// behavior).
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}
