package store

import (
	"sync"

	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/rs/zerolog"
)

// View is a derived, independently materialized projection of one Store: it
// holds exactly the subset of the source's contents matching its predicate.
// External callers never write to it; it is a pure reducer over the source's
// change feed. Entries are matched against the source by entity id, never by
// reference: after codec round-trips the source and the view may hold
// distinct instances of the same entity.
type View[T core.Entity] struct {
	name   string
	log    zerolog.Logger
	source *Store[T]
	pred   func(T) bool

	mu    sync.RWMutex
	items []T
}

// NewView builds a view over source with a static predicate. The initial
// projection and the feed subscription happen atomically, so no change is
// missed or double-applied.
func NewView[T core.Entity](name string, source *Store[T], pred func(T) bool, log zerolog.Logger) *View[T] {
	v := &View[T]{
		name:   name,
		log:    log.With().Str("view", name).Logger(),
		source: source,
		pred:   pred,
	}
	v.items = source.projectAndSubscribe(pred, v.onChange)
	return v
}

func (v *View[T]) onChange(c Change[T]) {
	switch c.Kind {
	case ChangeAdded:
		v.mu.Lock()
		for _, item := range c.Items {
			if v.pred(item) {
				v.items = append(v.items, item)
			}
		}
		v.mu.Unlock()

	case ChangeRemoved:
		v.mu.Lock()
		for _, item := range c.Items {
			if i := v.indexOfLocked(item.EntityID()); i >= 0 {
				v.items = append(v.items[:i], v.items[i+1:]...)
			}
		}
		v.mu.Unlock()

	case ChangeReplaced:
		v.mu.Lock()
		i := v.indexOfLocked(c.Old.EntityID())
		switch {
		case i >= 0 && v.pred(c.New):
			// keep the position across the replace
			v.items[i] = c.New
		case i >= 0:
			v.items = append(v.items[:i], v.items[i+1:]...)
		case v.pred(c.New):
			v.items = append(v.items, c.New)
		}
		v.mu.Unlock()

	case ChangeReset:
		fresh := v.source.Snapshot()
		v.mu.Lock()
		v.items = v.items[:0]
		for _, item := range fresh {
			if v.pred(item) {
				v.items = append(v.items, item)
			}
		}
		v.mu.Unlock()

	default:
		v.log.Warn().Uint8("kind", uint8(c.Kind)).Msg("Unknown change kind ignored")
	}
}

// indexOfLocked returns the position of the entity with the given id, or -1.
// Callers hold mu.
func (v *View[T]) indexOfLocked(id uint) int {
	for i, item := range v.items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

// Len returns the number of entries.
func (v *View[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

// Snapshot returns a copy of the current contents.
func (v *View[T]) Snapshot() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

// Get returns the entry with the given id.
func (v *View[T]) Get(id uint) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := v.indexOfLocked(id); i >= 0 {
		return v.items[i], true
	}
	var zero T
	return zero, false
}

// IDs returns the identity set of the view in display order.
func (v *View[T]) IDs() []uint {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]uint, len(v.items))
	for i, item := range v.items {
		ids[i] = item.EntityID()
	}
	return ids
}
