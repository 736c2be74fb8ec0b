// Package cart implements the buyer's persisted shopping cart.
//
// A Store reads and rewrites the whole collection under one storage key on
// every mutation, then notifies its listeners synchronously in registration
// order. Listeners are registered under a name; registering the same name
// again replaces the earlier callback in place.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketplace/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive multiple of the minimum order quantity")
	ErrInvalidItem     = errors.New("cart item has no product")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrPersist         = errors.New("cart could not be persisted")
	ErrCorrupt         = errors.New("persisted cart is corrupt")
)

// EventKind says which operation produced an Event
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventUpdated  EventKind = "updated"
	EventRemoved  EventKind = "removed"
	EventCleared  EventKind = "cleared"
	EventExternal EventKind = "external"
)

// Event carries the fresh collection after a change
type Event struct {
	Kind  EventKind
	Key   string
	Items []LineItem
}

// Listener receives cart events
type Listener func(Event)

type namedListener struct {
	name string
	fn   Listener
}

// Store is a cart persisted under a single storage key
type Store struct {
	storage Storage
	key     string
	logger  *zap.Logger
	now     func() time.Time

	mu sync.Mutex

	lmu       sync.RWMutex
	listeners []namedListener
}

// NewStore creates a store persisting under key
func NewStore(storage Storage, key string) *Store {
	return &Store{
		storage: storage,
		key:     key,
		logger:  util.Named("cart"),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Key is the storage key of this cart
func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted collection. A missing key is an empty cart.
// Corrupt data is reported as ErrCorrupt.
func (s *Store) Load(ctx context.Context) ([]LineItem, error) {
	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return []LineItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrPersist, err)
	}

	var items []LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}

// Items returns the persisted collection, or an empty one when it cannot be read
func (s *Store) Items(ctx context.Context) []LineItem {
	items, err := s.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to read cart, treating as empty",
			zap.String("key", s.key),
			zap.Error(err))
		util.CartStorageErrorsTotal.WithLabelValues("read").Inc()
		return []LineItem{}
	}
	return items
}

// Count is the sum of quantities
func (s *Store) Count(ctx context.Context) int {
	return Count(s.Items(ctx))
}

// Total is the sum of price times quantity
func (s *Store) Total(ctx context.Context) decimal.Decimal {
	return Total(s.Items(ctx))
}

// Add appends item with qty, or increments the quantity of the entry with the same key
func (s *Store) Add(ctx context.Context, item LineItem, qty int) error {
	if item.ProductID == 0 {
		return ErrInvalidItem
	}
	if qty <= 0 || qty%item.Step() != 0 {
		return ErrInvalidQuantity
	}

	key := item.Key()
	return s.mutate(ctx, "add", func(items []LineItem) ([]LineItem, Event, error) {
		for i := range items {
			if items[i].Key() == key {
				items[i].Quantity += qty
				return items, Event{Kind: EventUpdated, Key: key}, nil
			}
		}

		item.Quantity = qty
		item.AddedAt = s.now()
		return append(items, item), Event{Kind: EventAdded, Key: key}, nil
	})
}

// Remove drops the entry with key. Removing an absent key still persists and notifies.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.mutate(ctx, "remove", func(items []LineItem) ([]LineItem, Event, error) {
		return without(items, key), Event{Kind: EventRemoved, Key: key}, nil
	})
}

// UpdateQuantity overwrites the quantity of key; qty <= 0 removes the entry
func (s *Store) UpdateQuantity(ctx context.Context, key string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, key)
	}

	return s.mutate(ctx, "update", func(items []LineItem) ([]LineItem, Event, error) {
		for i := range items {
			if items[i].Key() != key {
				continue
			}
			if qty%items[i].Step() != 0 {
				return nil, Event{}, ErrInvalidQuantity
			}
			items[i].Quantity = qty
			return items, Event{Kind: EventUpdated, Key: key}, nil
		}
		return nil, Event{}, ErrItemNotFound
	})
}

// Clear deletes the persisted cart
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.storage.Delete(ctx, s.key)
	s.mu.Unlock()

	if err != nil {
		util.CartStorageErrorsTotal.WithLabelValues("clear").Inc()
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	s.notify(Event{Kind: EventCleared, Items: []LineItem{}})
	return nil
}

// HandleExternalChange re-reads the cart after another origin wrote it and notifies listeners
func (s *Store) HandleExternalChange(ctx context.Context) {
	util.CartExternalChangesTotal.Inc()
	s.notify(Event{Kind: EventExternal, Items: s.Items(ctx)})
}

// AddListener registers fn under name, replacing any listener already registered under it
func (s *Store) AddListener(name string, fn Listener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	for i := range s.listeners {
		if s.listeners[i].name == name {
			s.listeners[i].fn = fn
			return
		}
	}
	s.listeners = append(s.listeners, namedListener{name: name, fn: fn})
}

// RemoveListener unregisters name
func (s *Store) RemoveListener(name string) {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	for i := range s.listeners {
		if s.listeners[i].name == name {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount reports how many listeners are registered
func (s *Store) ListenerCount() int {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	return len(s.listeners)
}

func (s *Store) mutate(ctx context.Context, op string, fn func([]LineItem) ([]LineItem, Event, error)) error {
	ctx, span := util.StartSpan(ctx, "cart.Store."+op)
	defer span.End()

	s.mu.Lock()

	items, err := s.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn("Overwriting corrupt cart", zap.String("key", s.key), zap.Error(err))
		items, err = []LineItem{}, nil
	}
	if err != nil {
		s.mu.Unlock()
		util.CartStorageErrorsTotal.WithLabelValues(op).Inc()
		return err
	}

	next, event, err := fn(items)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	raw, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		util.CartStorageErrorsTotal.WithLabelValues(op).Inc()
		return fmt.Errorf("%w: encode: %v", ErrPersist, err)
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		s.mu.Unlock()
		util.CartStorageErrorsTotal.WithLabelValues(op).Inc()
		s.logger.Error("Failed to persist cart", zap.String("key", s.key), zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}
	s.mu.Unlock()

	util.CartMutationsTotal.WithLabelValues(op).Inc()
	event.Items = next
	s.notify(event)
	return nil
}

func (s *Store) notify(event Event) {
	s.lmu.RLock()
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	s.lmu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func without(items []LineItem, key string) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.Key() != key {
			out = append(out, it)
		}
	}
	return out
}
