package draw

import (
	"sync"
	"sync/atomic"
)

// DefaultAllocatorSize is the ring size used when NewAllocator gets 0.
const DefaultAllocatorSize = 128

// Allocator hands out draw calls from a fixed ring.
//
// Allocate recycles the oldest draw call once the ring has been walked, so
// a caller must not hold more than Size draw calls at a time. This keeps
// per-frame draw call churn free of allocations.
type Allocator struct {
	mu    sync.Mutex
	items []*DrawCall
	next  int

	allocated atomic.Uint64
}

// NewAllocator creates a ring of size draw calls.
func NewAllocator(size int) *Allocator {
	if size <= 0 {
		size = DefaultAllocatorSize
	}
	return &Allocator{items: make([]*DrawCall, size)}
}

// Allocate returns a reset draw call.
func (a *Allocator) Allocate() *DrawCall {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := a.items[a.next]
	if d == nil {
		d = NewDrawCall()
		a.items[a.next] = d
	} else {
		d.Reset()
	}
	a.next = (a.next + 1) % len(a.items)
	a.allocated.Add(1)
	return d
}

// Size returns the ring size.
func (a *Allocator) Size() int { return len(a.items) }

// Allocated returns the number of Allocate calls so far.
func (a *Allocator) Allocated() uint64 { return a.allocated.Load() }
