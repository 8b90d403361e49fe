package service

import "sync/atomic"

// State is the lifecycle of a family service's database bridge.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// lifecycle tracks connection state plus whether the first rehydrate has
// completed. Cache-dependent reads are unreliable until it has.
type lifecycle struct {
	state    atomic.Int32
	hydrated atomic.Bool
}

func (l *lifecycle) State() State { return State(l.state.Load()) }

func (l *lifecycle) setState(s State) { l.state.Store(int32(s)) }

// Hydrated reports whether the initial rehydrate has completed at least once.
func (l *lifecycle) Hydrated() bool { return l.hydrated.Load() }

func (l *lifecycle) markHydrated() { l.hydrated.Store(true) }

// ensureConnected gates CRUD operations on the connected state.
func (l *lifecycle) ensureConnected() error {
	if l.State() != StateConnected {
		return ErrNotConnected
	}
	return nil
}
