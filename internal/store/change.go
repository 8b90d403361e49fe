package store

import "github.com/perimetra/sentinel/internal/model/core"

// ChangeKind tags a structural mutation delivered on a store's change feed.
type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeReplaced
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeReplaced:
		return "replaced"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Change is one structural mutation of a Store, delivered to subscribers in
// exactly the order mutations were applied.
//
// Added and Removed carry the affected items in Items. Replaced carries the
// outgoing and incoming item plus the position the replacement happened at.
// Reset carries nothing; subscribers re-read the source.
type Change[T core.Entity] struct {
	Kind  ChangeKind
	Items []T
	Old   T
	New   T
	Index int
}

// Subscriber receives changes. Subscribers run on the store's apply path and
// must not mutate the store from inside the callback.
type Subscriber[T core.Entity] func(Change[T])
