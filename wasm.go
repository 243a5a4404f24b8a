package wasmobject

import "context"

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory in WASM linear memory.
// A zero pointer from Alloc is never a valid allocation.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Handlers is the per-class hook table a binding installs into an object
// runtime. The runtime only ever passes header addresses to the hooks.
type Handlers struct {
	// Free runs when the object's refcount reaches zero, before the runtime
	// returns the composite allocation to its allocator. It must release
	// binding state and then destroy the header through the runtime.
	Free func(ctx context.Context, header uint32) error

	// Clone produces a new object (refcount 1) from an existing header.
	// Nil means the runtime's default header-only clone.
	Clone func(ctx context.Context, header uint32) (uint32, error)

	// Offset is the distance in bytes from the start of the allocation to
	// the header. The runtime frees header-Offset.
	Offset uint32
}

// Constructor is a class's user-level constructor. It runs after the header
// is initialized; an error means the object must be torn down.
type Constructor func(ctx context.Context, header uint32, args []uint64) error

// ClassSpec declares a class to an object runtime.
type ClassSpec struct {
	Constructor Constructor
	Handlers    *Handlers
	Name        string   `validate:"required,max=255"`
	Properties  []string `validate:"unique,dive,required,max=255"`
}
