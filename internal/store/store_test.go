package store

import (
	"context"
	"sync"
	"testing"

	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func account(id uint, name string) *core.Account {
	return &core.Account{ID: id, Name: name}
}

func TestStore_AddAndGet(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	s.Add(account(1, "operator"))
	s.Add(account(2, "supervisor"))

	require.Equal(t, 2, s.Len())

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "operator", got.Name)

	_, ok = s.Get(99)
	assert.False(t, ok)
}

func TestStore_AddRejectsDuplicateID(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	s.Add(account(1, "first"))
	s.Add(account(1, "second"))

	require.Equal(t, 1, s.Len())
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "first", got.Name)
}

func TestStore_AddAtClampsIndex(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	s.Add(account(1, "a"))
	s.Add(account(2, "b"))
	s.AddAt(account(3, "c"), 1)
	s.AddAt(account(4, "d"), 100)
	s.AddAt(account(5, "e"), -5)

	snap := s.Snapshot()
	require.Len(t, snap, 5)
	assert.Equal(t, uint(5), snap[0].ID)
	assert.Equal(t, uint(1), snap[1].ID)
	assert.Equal(t, uint(3), snap[2].ID)
	assert.Equal(t, uint(2), snap[3].ID)
	assert.Equal(t, uint(4), snap[4].ID)
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "a"))

	var changes []Change[*core.Account]
	s.Subscribe(func(c Change[*core.Account]) {
		changes = append(changes, c)
	})

	s.Remove(account(2, "ghost"))

	assert.Equal(t, 1, s.Len())
	assert.Empty(t, changes, "removing an absent entity must not notify")
}

func TestStore_RemoveMatchesByIdentityNotReference(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "a"))

	// distinct instance, same identity
	s.Remove(account(1, "other instance"))

	assert.Equal(t, 0, s.Len())
}

func TestStore_ReplaceKeepsPosition(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "a"))
	s.Add(account(2, "b"))
	s.Add(account(3, "c"))

	found := s.Replace(account(2, "b2"))
	require.True(t, found)

	snap := s.Snapshot()
	assert.Equal(t, "b2", snap[1].Name)
}

func TestStore_ReplaceMissReturnsFalse(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "a"))

	var notified bool
	s.Subscribe(func(Change[*core.Account]) { notified = true })

	found := s.Replace(account(9, "missing"))

	assert.False(t, found)
	assert.False(t, notified, "a replace miss must not notify")
	assert.Equal(t, 1, s.Len())
}

func TestStore_MoveDoesNotNotify(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "a"))
	s.Add(account(2, "b"))
	s.Add(account(3, "c"))

	var changes []Change[*core.Account]
	s.Subscribe(func(c Change[*core.Account]) {
		changes = append(changes, c)
	})

	s.Move(0, 2)

	snap := s.Snapshot()
	assert.Equal(t, uint(2), snap[0].ID)
	assert.Equal(t, uint(3), snap[1].ID)
	assert.Equal(t, uint(1), snap[2].ID)
	assert.Empty(t, changes)
}

func TestStore_ClearNotifiesReset(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "a"))

	var changes []Change[*core.Account]
	s.Subscribe(func(c Change[*core.Account]) {
		changes = append(changes, c)
	})

	s.Clear()

	assert.Equal(t, 0, s.Len())
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeReset, changes[0].Kind)
}

func TestStore_ResetToSwapsInOneStep(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())
	s.Add(account(1, "stale"))

	var changes []Change[*core.Account]
	s.Subscribe(func(c Change[*core.Account]) {
		changes = append(changes, c)
	})

	s.ResetTo([]*core.Account{
		account(10, "x"),
		account(11, "y"),
		account(10, "dup"),
	})

	require.Len(t, changes, 1, "a reset must fire exactly one notification")
	assert.Equal(t, ChangeReset, changes[0].Kind)

	snap := s.Snapshot()
	require.Len(t, snap, 2, "duplicate ids are dropped after the first occurrence")
	assert.Equal(t, "x", snap[0].Name)
	assert.Equal(t, "y", snap[1].Name)
}

func TestStore_SubscribersObserveChangesInOrder(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	var kinds []ChangeKind
	s.Subscribe(func(c Change[*core.Account]) {
		kinds = append(kinds, c.Kind)
	})

	s.Add(account(1, "a"))
	s.Replace(account(1, "a2"))
	s.Remove(account(1, "a2"))

	assert.Equal(t, []ChangeKind{ChangeAdded, ChangeReplaced, ChangeRemoved}, kinds)
}

func TestStore_RunSerializesConcurrentMutations(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx)

	const n = 200
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			s.Add(account(id, "concurrent"))
		}(uint(i))
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())

	// identity set must be complete, no lost or duplicated adds
	seen := make(map[uint]bool, n)
	for _, a := range s.Snapshot() {
		require.False(t, seen[a.ID], "duplicate id %d", a.ID)
		seen[a.ID] = true
	}
	assert.Len(t, seen, n)
}

func TestStore_MutationAfterShutdownIsSwallowed(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx)
	s.Add(account(1, "before"))
	require.Equal(t, 1, s.Len())

	cancel()

	// must return, not block or panic
	s.Add(account(2, "after"))
}

func TestStore_ConcurrentReadsDuringWrites(t *testing.T) {
	s := New[*core.Account]("accounts", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(id uint) {
			defer wg.Done()
			s.Add(account(id, "w"))
		}(uint(i))
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Len()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
