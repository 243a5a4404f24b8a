package memory

import (
	"sync"

	wasmobject "github.com/wippyai/wasm-object"
)

// Allocation records one live allocation.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// Tracking wraps an allocator and records every allocation and free.
// Frees of pointers it never handed out (or already saw freed) are counted
// as bad frees and still forwarded to the wrapped allocator.
// Thread-safe.
type Tracking struct {
	inner    wasmobject.Allocator
	live     map[uint32]Allocation
	allocs   int
	frees    int
	badFrees int
	mu       sync.Mutex
}

// NewTracking wraps inner.
func NewTracking(inner wasmobject.Allocator) *Tracking {
	return &Tracking{
		inner: inner,
		live:  make(map[uint32]Allocation),
	}
}

// Alloc forwards to the wrapped allocator and records the result.
func (t *Tracking) Alloc(size, align uint32) (uint32, error) {
	ptr, err := t.inner.Alloc(size, align)
	if err != nil || ptr == 0 {
		return ptr, err
	}

	t.mu.Lock()
	t.live[ptr] = Allocation{Ptr: ptr, Size: size, Align: align}
	t.allocs++
	t.mu.Unlock()

	return ptr, nil
}

// Free records the free and forwards it.
func (t *Tracking) Free(ptr, size, align uint32) {
	t.mu.Lock()
	if _, ok := t.live[ptr]; ok {
		delete(t.live, ptr)
		t.frees++
	} else {
		t.badFrees++
	}
	t.mu.Unlock()

	t.inner.Free(ptr, size, align)
}

// Allocs returns the number of successful allocations.
func (t *Tracking) Allocs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocs
}

// Frees returns the number of frees that matched a live allocation.
func (t *Tracking) Frees() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frees
}

// BadFrees returns the number of frees with no matching live allocation.
func (t *Tracking) BadFrees() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.badFrees
}

// Live returns the allocations that have not been freed.
func (t *Tracking) Live() []Allocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Allocation, 0, len(t.live))
	for _, a := range t.live {
		out = append(out, a)
	}
	return out
}

// Balanced reports whether every allocation was freed exactly once.
func (t *Tracking) Balanced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live) == 0 && t.badFrees == 0 && t.allocs == t.frees
}
