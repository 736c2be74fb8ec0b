package cart

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// ErrNotFound is returned by a Storage when the key holds nothing
var ErrNotFound = errors.New("storage key not found")

// Storage persists a cart as one opaque value under one key
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Change reports a write made to key by another origin
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// ChangeFeed delivers writes made by other origins. Watch blocks until ctx is done.
type ChangeFeed interface {
	Watch(ctx context.Context, fn func(Change)) error
}

// MemoryStorage is an in-process Storage. Peers share data but have distinct
// origins, so a write through one peer is reported to the others' watchers only.
type MemoryStorage struct {
	shared *memoryShared
	origin string
}

type memoryShared struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[int]memoryWatcher
	nextID   int
	peers    int
}

type memoryWatcher struct {
	origin string
	fn     func(Change)
}

// NewMemoryStorage creates an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		shared: &memoryShared{
			values:   make(map[string][]byte),
			watchers: make(map[int]memoryWatcher),
			peers:    1,
		},
		origin: "memory-0",
	}
}

// Peer returns a view of the same data acting as a different origin
func (m *MemoryStorage) Peer() *MemoryStorage {
	m.shared.mu.Lock()
	defer m.shared.mu.Unlock()

	p := &MemoryStorage{
		shared: m.shared,
		origin: "memory-" + strconv.Itoa(m.shared.peers),
	}
	m.shared.peers++
	return p
}

// Origin identifies this peer in Change notifications
func (m *MemoryStorage) Origin() string {
	return m.origin
}

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.shared.mu.RLock()
	defer m.shared.mu.RUnlock()

	v, ok := m.shared.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	m.shared.mu.Lock()
	m.shared.values[key] = append([]byte(nil), value...)
	m.shared.mu.Unlock()

	m.publish(key)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.shared.mu.Lock()
	delete(m.shared.values, key)
	m.shared.mu.Unlock()

	m.publish(key)
	return nil
}

// Subscribe registers fn for changes made by other peers and returns its cancel func
func (m *MemoryStorage) Subscribe(fn func(Change)) func() {
	m.shared.mu.Lock()
	id := m.shared.nextID
	m.shared.nextID++
	m.shared.watchers[id] = memoryWatcher{origin: m.origin, fn: fn}
	m.shared.mu.Unlock()

	return func() {
		m.shared.mu.Lock()
		delete(m.shared.watchers, id)
		m.shared.mu.Unlock()
	}
}

// Watch implements ChangeFeed
func (m *MemoryStorage) Watch(ctx context.Context, fn func(Change)) error {
	cancel := m.Subscribe(fn)
	defer cancel()

	<-ctx.Done()
	return ctx.Err()
}

func (m *MemoryStorage) publish(key string) {
	m.shared.mu.RLock()
	var targets []func(Change)
	for _, w := range m.shared.watchers {
		if w.origin != m.origin {
			targets = append(targets, w.fn)
		}
	}
	m.shared.mu.RUnlock()

	change := Change{Key: key, Origin: m.origin}
	for _, fn := range targets {
		fn(change)
	}
}
