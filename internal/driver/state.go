package driver

import "sync/atomic"

// atomicState wraps lock-free access to a driver's State so schedulers
// and tests can observe lifecycle transitions from other goroutines.
type atomicState struct {
	v int32
}

func (a *atomicState) load() State {
	return State(atomic.LoadInt32(&a.v))
}

func (a *atomicState) store(s State) {
	// A failed connection never transitions again.
	for {
		cur := atomic.LoadInt32(&a.v)
		if State(cur) == StateFailed {
			return
		}
		if atomic.CompareAndSwapInt32(&a.v, cur, int32(s)) {
			return
		}
	}
}
