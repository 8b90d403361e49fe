package store

import (
	"testing"

	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEvent(id uint) *core.IntrusionEvent {
	return &core.IntrusionEvent{EventBase: core.EventBase{ID: id, Open: true}}
}

func closedEvent(id uint) *core.IntrusionEvent {
	return &core.IntrusionEvent{EventBase: core.EventBase{ID: id, Open: false}}
}

func newEventStoreAndView(t *testing.T) (*Store[core.Event], *View[core.Event]) {
	t.Helper()
	s := New[core.Event]("events", testLogger())
	v := NewView("open-events", s, func(e core.Event) bool {
		return e.Base().Open
	}, testLogger())
	return s, v
}

func TestView_InitialProjection(t *testing.T) {
	s := New[core.Event]("events", testLogger())
	s.Add(openEvent(1))
	s.Add(closedEvent(2))
	s.Add(openEvent(3))

	v := NewView("open-events", s, func(e core.Event) bool {
		return e.Base().Open
	}, testLogger())

	assert.Equal(t, []uint{1, 3}, v.IDs())
}

func TestView_AddFilters(t *testing.T) {
	s, v := newEventStoreAndView(t)

	s.Add(openEvent(1))
	s.Add(closedEvent(2))

	assert.Equal(t, []uint{1}, v.IDs())
}

func TestView_RemoveByIdentity(t *testing.T) {
	s, v := newEventStoreAndView(t)
	s.Add(openEvent(1))
	s.Add(openEvent(2))

	// distinct instance, same identity
	s.Remove(openEvent(1))

	assert.Equal(t, []uint{2}, v.IDs())
}

func TestView_ReplaceStillMatchingKeepsPosition(t *testing.T) {
	s, v := newEventStoreAndView(t)
	s.Add(openEvent(1))
	s.Add(openEvent(2))
	s.Add(openEvent(3))

	replacement := openEvent(2)
	replacement.DetectionCode = 7
	s.Replace(replacement)

	require.Equal(t, []uint{1, 2, 3}, v.IDs())
	got, ok := v.Get(2)
	require.True(t, ok)
	assert.Equal(t, 7, got.(*core.IntrusionEvent).DetectionCode)
}

func TestView_ReplaceNoLongerMatchingDropsEntry(t *testing.T) {
	s, v := newEventStoreAndView(t)
	s.Add(openEvent(1))
	s.Add(openEvent(2))

	s.Replace(closedEvent(1))

	assert.Equal(t, []uint{2}, v.IDs())
}

func TestView_ReplaceNowMatchingAppends(t *testing.T) {
	s, v := newEventStoreAndView(t)
	s.Add(closedEvent(1))
	s.Add(openEvent(2))

	s.Replace(openEvent(1))

	assert.Equal(t, []uint{2, 1}, v.IDs())
}

func TestView_ResetReprojects(t *testing.T) {
	s, v := newEventStoreAndView(t)
	s.Add(openEvent(1))
	s.Add(openEvent(2))

	s.ResetTo([]core.Event{closedEvent(10), openEvent(11), openEvent(12)})

	assert.Equal(t, []uint{11, 12}, v.IDs())
}

func TestView_ClearEmptiesView(t *testing.T) {
	s, v := newEventStoreAndView(t)
	s.Add(openEvent(1))

	s.Clear()

	assert.Equal(t, 0, v.Len())
}

// The view is always exactly the matching subset of the source, whatever
// sequence of mutations arrives.
func TestView_SubsetInvariant(t *testing.T) {
	s, v := newEventStoreAndView(t)

	s.Add(openEvent(1))
	s.Add(closedEvent(2))
	s.Add(openEvent(3))
	s.Replace(closedEvent(3))
	s.Remove(openEvent(1))
	s.Add(openEvent(4))
	s.Replace(openEvent(2))

	want := make([]uint, 0)
	for _, e := range s.Snapshot() {
		if e.Base().Open {
			want = append(want, e.EntityID())
		}
	}

	got := v.IDs()
	assert.ElementsMatch(t, want, got)
}
