package memory

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-object/errors"
)

// DefaultAlign is used when a caller passes align 0.
const DefaultAlign = 8

// Heap is a first-fit allocator over the address range [base, limit) of a
// linear memory. It only manages addresses; it never reads or writes the
// memory itself. Freed neighbours are coalesced.
// Thread-safe.
type Heap struct {
	free  []span
	used  map[uint32]uint32
	base  uint32
	limit uint32
	inUse uint32
	mu    sync.Mutex
}

type span struct {
	addr uint32
	size uint32
}

// NewHeap creates a heap over [base, limit). A base of 0 is bumped to
// DefaultAlign so that no allocation can ever return the null address.
func NewHeap(base, limit uint32) *Heap {
	if base == 0 {
		base = DefaultAlign
	}
	h := &Heap{
		used:  make(map[uint32]uint32),
		base:  base,
		limit: limit,
	}
	if limit > base {
		h.free = []span{{addr: base, size: limit - base}}
	}
	return h
}

// Alloc reserves size bytes aligned to align.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = DefaultAlign
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "alignment must be a power of two")
	}
	if size == 0 {
		size = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.free {
		start := uint64(alignUp(uint64(s.addr), uint64(align)))
		end := start + uint64(size)
		if end > uint64(s.addr)+uint64(s.size) {
			continue
		}

		var repl []span
		if pad := uint32(start) - s.addr; pad > 0 {
			repl = append(repl, span{addr: s.addr, size: pad})
		}
		if tail := uint32(uint64(s.addr) + uint64(s.size) - end); tail > 0 {
			repl = append(repl, span{addr: uint32(end), size: tail})
		}
		h.free = append(h.free[:i], append(repl, h.free[i+1:]...)...)

		ptr := uint32(start)
		h.used[ptr] = size
		h.inUse += size
		return ptr, nil
	}

	return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
}

// Free returns an allocation to the heap. Unknown pointers are logged and
// ignored, which also makes a double free harmless to the heap's own state.
func (h *Heap) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.used[ptr]
	if !ok {
		Logger().Warn("heap: free of unknown pointer", zap.Uint32("ptr", ptr))
		return
	}
	if size != 0 && size != n {
		Logger().Warn("heap: free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("allocated", n))
	}
	delete(h.used, ptr)
	h.inUse -= n

	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > ptr })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{addr: ptr, size: n}

	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].addr+h.free[i-1].size == h.free[i].addr {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

// InUse returns the number of bytes currently allocated.
func (h *Heap) InUse() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

// Allocations returns the number of live allocations.
func (h *Heap) Allocations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.used)
}

// Bounds returns the managed address range.
func (h *Heap) Bounds() (base, limit uint32) {
	return h.base, h.limit
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
