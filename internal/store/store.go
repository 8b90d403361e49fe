// Package store implements the canonical in-process entity collections and
// their derived filtered views.
//
// A Store is the single source of truth for one entity family. All structural
// mutations are serialized: either inline under the store's lock, or, once
// Run has been called, through a command channel consumed by one owning
// goroutine that applies them strictly in arrival order. Subscribers observe
// every mutation in exactly the order applied. Reads are safe from any
// goroutine and see the snapshot current at call time.
//
// Move repositions an item without changing membership and is deliberately
// not broadcast on the change feed; views keep their own ordering.
package store

import (
	"context"
	"sync"

	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type op struct {
	fn   func()
	done chan struct{}
}

// Store is a thread-safe, identity-keyed, order-preserving collection of one
// entity family.
type Store[T core.Entity] struct {
	name string
	log  zerolog.Logger

	mu    sync.RWMutex
	items []T

	// applyMu serializes mutation+notification while no owning goroutine is
	// running. Once Run is called, the owning goroutine serializes instead.
	applyMu sync.Mutex

	ownMu  sync.Mutex
	ops    chan op
	closed chan struct{}

	subs []Subscriber[T]

	applied metric.Int64Counter
}

// New creates an empty store. Mutations apply inline on the caller's
// goroutine until Run designates an owning goroutine.
func New[T core.Entity](name string, log zerolog.Logger) *Store[T] {
	s := &Store[T]{
		name: name,
		log:  log.With().Str("store", name).Logger(),
	}

	var err error
	s.applied, err = meter().Int64Counter(
		"store.mutations.applied",
		metric.WithDescription("Total structural mutations applied per store"),
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("Creating mutation counter failed, store metrics disabled")
	}

	return s
}

// Run designates the calling context's consumer goroutine as the store's
// owner: from now on every mutation is posted to it and applied in arrival
// order, and the calling goroutine of a mutation blocks until it has been
// applied. When ctx is canceled the owner stops and subsequent mutations are
// logged and dropped rather than surfaced as errors; callers are background
// completions with no useful recovery.
func (s *Store[T]) Run(ctx context.Context) {
	s.ownMu.Lock()
	if s.ops != nil {
		s.ownMu.Unlock()
		return
	}
	s.ops = make(chan op, 128)
	s.closed = make(chan struct{})
	ops, closed := s.ops, s.closed
	s.ownMu.Unlock()

	go func() {
		defer close(closed)
		for {
			select {
			case <-ctx.Done():
				return
			case o := <-ops:
				o.fn()
				close(o.done)
			}
		}
	}()
}

// apply runs fn on the serialization path: the owning goroutine when one is
// running, otherwise inline under applyMu. Blocks until applied. If the owner
// has stopped, the mutation is logged and swallowed.
func (s *Store[T]) apply(fn func()) {
	s.ownMu.Lock()
	ops, closed := s.ops, s.closed
	s.ownMu.Unlock()

	if ops == nil {
		s.applyMu.Lock()
		defer s.applyMu.Unlock()
		fn()
		return
	}

	o := op{fn: fn, done: make(chan struct{})}
	select {
	case ops <- o:
	case <-closed:
		s.log.Warn().Msg("Mutation dropped, owning goroutine stopped")
		return
	}
	select {
	case <-o.done:
	case <-closed:
		s.log.Warn().Msg("Mutation dropped, owning goroutine stopped")
	}
}

func (s *Store[T]) notify(c Change[T]) {
	for _, sub := range s.subs {
		sub(c)
	}
	if s.applied != nil {
		s.applied.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("store", s.name),
			attribute.String("kind", c.Kind.String()),
		))
	}
}

// indexOfLocked returns the position of the entity with the given id, or -1.
// Callers hold mu.
func (s *Store[T]) indexOfLocked(id uint) int {
	for i, item := range s.items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

// Add appends an item. An item whose id is already present is rejected:
// identities are unique within a store.
func (s *Store[T]) Add(item T) {
	s.apply(func() {
		s.mu.Lock()
		if item.EntityID() != 0 && s.indexOfLocked(item.EntityID()) >= 0 {
			s.mu.Unlock()
			s.log.Warn().Uint("id", item.EntityID()).Msg("Duplicate id rejected")
			return
		}
		s.items = append(s.items, item)
		s.mu.Unlock()

		s.notify(Change[T]{Kind: ChangeAdded, Items: []T{item}})
	})
}

// AddAt inserts an item at the given position, clamped to the valid range.
// Duplicate ids are rejected as in Add.
func (s *Store[T]) AddAt(item T, index int) {
	s.apply(func() {
		s.mu.Lock()
		if item.EntityID() != 0 && s.indexOfLocked(item.EntityID()) >= 0 {
			s.mu.Unlock()
			s.log.Warn().Uint("id", item.EntityID()).Msg("Duplicate id rejected")
			return
		}
		if index < 0 {
			index = 0
		}
		if index > len(s.items) {
			index = len(s.items)
		}
		s.items = append(s.items, item)
		copy(s.items[index+1:], s.items[index:])
		s.items[index] = item
		s.mu.Unlock()

		s.notify(Change[T]{Kind: ChangeAdded, Items: []T{item}, Index: index})
	})
}

// Remove removes the entry with the item's id. Absence is not an error.
func (s *Store[T]) Remove(item T) {
	s.apply(func() {
		s.mu.Lock()
		i := s.indexOfLocked(item.EntityID())
		if i < 0 {
			s.mu.Unlock()
			return
		}
		removed := s.items[i]
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.mu.Unlock()

		s.notify(Change[T]{Kind: ChangeRemoved, Items: []T{removed}})
	})
}

// Replace swaps the entry sharing the item's id for the item, keeping its
// position. Returns false when no entry with that id exists; the store is
// then unchanged and no notification fires.
func (s *Store[T]) Replace(item T) bool {
	var found bool
	s.apply(func() {
		s.mu.Lock()
		i := s.indexOfLocked(item.EntityID())
		if i < 0 {
			s.mu.Unlock()
			return
		}
		old := s.items[i]
		s.items[i] = item
		s.mu.Unlock()

		found = true
		s.notify(Change[T]{Kind: ChangeReplaced, Old: old, New: item, Index: i})
	})
	return found
}

// Move repositions an entry without changing membership. Not broadcast.
func (s *Store[T]) Move(oldIndex, newIndex int) {
	s.apply(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if oldIndex < 0 || oldIndex >= len(s.items) || newIndex < 0 || newIndex >= len(s.items) {
			s.log.Warn().Int("old", oldIndex).Int("new", newIndex).Msg("Move out of range")
			return
		}
		item := s.items[oldIndex]
		s.items = append(s.items[:oldIndex], s.items[oldIndex+1:]...)
		s.items = append(s.items, item)
		copy(s.items[newIndex+1:], s.items[newIndex:])
		s.items[newIndex] = item
	})
}

// Clear removes every entry and fires a single reset notification.
func (s *Store[T]) Clear() {
	s.apply(func() {
		s.mu.Lock()
		s.items = nil
		s.mu.Unlock()

		s.notify(Change[T]{Kind: ChangeReset})
	})
}

// ResetTo discards the current contents and installs items as the new
// contents in one step, firing a single reset notification. Readers never
// observe the empty intermediate state: the swap happens under the lock.
// Duplicate ids in items are dropped after their first occurrence.
func (s *Store[T]) ResetTo(items []T) {
	s.apply(func() {
		next := make([]T, 0, len(items))
		seen := make(map[uint]struct{}, len(items))
		for _, item := range items {
			id := item.EntityID()
			if id != 0 {
				if _, dup := seen[id]; dup {
					s.log.Warn().Uint("id", id).Msg("Duplicate id dropped during reset")
					continue
				}
				seen[id] = struct{}{}
			}
			next = append(next, item)
		}

		s.mu.Lock()
		s.items = next
		s.mu.Unlock()

		s.notify(Change[T]{Kind: ChangeReset})
	})
}

// Subscribe registers a subscriber for all future changes.
func (s *Store[T]) Subscribe(sub Subscriber[T]) {
	s.apply(func() {
		s.subs = append(s.subs, sub)
	})
}

// projectAndSubscribe atomically snapshots the matching items and registers a
// subscriber, so a view misses no change between projection and subscription.
func (s *Store[T]) projectAndSubscribe(pred func(T) bool, sub Subscriber[T]) []T {
	var initial []T
	s.apply(func() {
		s.mu.RLock()
		for _, item := range s.items {
			if pred(item) {
				initial = append(initial, item)
			}
		}
		s.mu.RUnlock()

		s.subs = append(s.subs, sub)
	})
	return initial
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a copy of the current contents.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the entry with the given id.
func (s *Store[T]) Get(id uint) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOfLocked(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Contains reports whether an entry with the given id exists.
func (s *Store[T]) Contains(id uint) bool {
	_, ok := s.Get(id)
	return ok
}
