package unwind

import (
	"sync/atomic"
)

// cell owns engine state that every engine call, reads included, needs
// exclusive access to. A borrow lasts for a single engine call.
type cell[T any] struct {
	busy atomic.Bool
	v    T
}

// borrow runs fn with exclusive access to the state. A second borrow while
// one is outstanding means the owner is being used concurrently, which the
// engines do not support.
func (c *cell[T]) borrow(fn func(v *T)) {
	if !c.busy.CompareAndSwap(false, true) {
		panic("unwind: concurrent use of unwind state")
	}
	defer c.busy.Store(false)
	fn(&c.v)
}

// snapshot returns a copy of the state.
func (c *cell[T]) snapshot() (v T) {
	c.borrow(func(p *T) { v = *p })
	return v
}
