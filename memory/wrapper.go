package memory

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/errors"
)

// WrapMemory wraps a wazero api.Memory to implement wasmobject.Memory.
func WrapMemory(mem api.Memory) *Wrapper {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// WrapAllocator wraps a guest cabi_realloc export to implement wasmobject.Allocator.
func WrapAllocator(ctx context.Context, fn api.Function) wasmobject.Allocator {
	if fn == nil {
		return nil
	}
	return &AllocatorWrapper{Ctx: ctx, Fn: fn}
}

// WrapMallocFree wraps a guest's malloc(size) and free(ptr) exports.
func WrapMallocFree(ctx context.Context, malloc, free api.Function) wasmobject.Allocator {
	if malloc == nil || free == nil {
		return nil
	}
	return &MallocWrapper{Ctx: ctx, Malloc: malloc, FreeFn: free}
}

// Wrapper adapts wazero api.Memory to wasmobject.Memory.
type Wrapper struct {
	Mem api.Memory
}

// Size returns the current memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// Read reads bytes from memory.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, uint32(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 1)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 2)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 1)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 2)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 8)
	}
	return nil
}

// AllocatorWrapper adapts a guest cabi_realloc export to wasmobject.Allocator.
type AllocatorWrapper struct {
	Ctx context.Context
	Fn  api.Function
}

// Alloc allocates memory using cabi_realloc(0, 0, align, size).
func (a *AllocatorWrapper) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("cabi_realloc trapped").
			Cause(err).
			Build()
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	return uint32(results[0]), nil
}

// Free deallocates memory using cabi_realloc(ptr, size, align, 0).
func (a *AllocatorWrapper) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if _, err := a.Fn.Call(a.Ctx, uint64(ptr), uint64(size), uint64(align), 0); err != nil {
		Logger().Warn("Free: failed to call cabi_realloc for deallocation",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// MallocWrapper adapts guest malloc/free exports to wasmobject.Allocator.
// Alignment is whatever the guest's malloc guarantees.
type MallocWrapper struct {
	Ctx    context.Context
	Malloc api.Function
	FreeFn api.Function
}

// Alloc calls malloc(size).
func (a *MallocWrapper) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Malloc.Call(a.Ctx, uint64(size))
	if err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("malloc trapped").
			Cause(err).
			Build()
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	return uint32(results[0]), nil
}

// Free calls free(ptr).
func (a *MallocWrapper) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if _, err := a.FreeFn.Call(a.Ctx, uint64(ptr)); err != nil {
		Logger().Warn("Free: guest free trapped",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
