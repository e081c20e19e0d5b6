// Package powerstate is the single atomic enum the Lifecycle and Dispatcher
// both read: PowerState must be a plain atomic value with no lock on the
// hot path, and splitting it out of internal/lifecycle keeps the Dispatcher
// from having to import the component that owns the park/wake loop.
package powerstate

import "sync/atomic"

// State is one of the four lifecycle states.
type State int32

const (
	Running State = iota
	Shutdown
	Restart
	Cancel
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	case Restart:
		return "Restart"
	case Cancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// Atomic is a single atomic PowerState cell. Storing Shutdown or Restart
// also wakes anyone parked on Woken, matching 4.D's "set_power... also
// unparks the main thread" transition; Cancel and Running never do.
type Atomic struct {
	v    atomic.Int32
	wake chan struct{}
}

// NewAtomic returns an Atomic initialized to initial.
func NewAtomic(initial State) *Atomic {
	a := &Atomic{wake: make(chan struct{}, 1)}
	a.v.Store(int32(initial))
	return a
}

func (a *Atomic) Load() State { return State(a.v.Load()) }

func (a *Atomic) Store(s State) {
	a.v.Store(int32(s))
	if s == Shutdown || s == Restart {
		select {
		case a.wake <- struct{}{}:
		default:
		}
	}
}

// Woken returns the channel a park loop selects on to learn that Shutdown
// or Restart was just stored.
func (a *Atomic) Woken() <-chan struct{} { return a.wake }

// ReadAndReset atomically reads the current state and resets it to
// Running, matching the Lifecycle loop's "read-and-reset the power state"
// step.
func (a *Atomic) ReadAndReset() State {
	return State(a.v.Swap(int32(Running)))
}
