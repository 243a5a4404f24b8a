package ebox

import (
	"go.uber.org/zap"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/errors"
	"github.com/wippyai/wasm-object/memory"
)

// Box owns one T stored in runtime-allocated memory.
// A Box is not safe for concurrent use.
type Box[T any] struct {
	alloc  wasmobject.Allocator
	mem    wasmobject.Memory
	layout Layout[T]
	ptr    uint32
}

// New allocates Size() bytes from alloc and stores v in them.
// It panics with an allocation error if the allocator fails or returns 0;
// it also panics if the freshly allocated bytes cannot be written, since
// that means the allocator handed out memory outside mem.
func New[T any](alloc wasmobject.Allocator, mem wasmobject.Memory, layout Layout[T], v T) *Box[T] {
	size, align := layout.Size(), layout.Align()
	ptr, err := alloc.Alloc(size, align)
	if err != nil || ptr == 0 {
		fail := errors.AllocationFailed(errors.PhaseAlloc, size, align)
		fail.Cause = err
		panic(fail)
	}

	if err := layout.Store(mem, ptr, v); err != nil {
		alloc.Free(ptr, size, align)
		panic(errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "store into fresh allocation"))
	}

	return &Box[T]{alloc: alloc, mem: mem, layout: layout, ptr: ptr}
}

// FromRaw re-arms a box around ptr. The caller guarantees ptr came from
// alloc (typically via IntoRaw) and holds a live T; anything else is
// undefined behaviour.
func FromRaw[T any](alloc wasmobject.Allocator, mem wasmobject.Memory, layout Layout[T], ptr uint32) *Box[T] {
	return &Box[T]{alloc: alloc, mem: mem, layout: layout, ptr: ptr}
}

// IntoRaw disarms the box and returns its address. No teardown runs; the
// new owner is responsible for releasing the bytes.
func (b *Box[T]) IntoRaw() uint32 {
	ptr := b.ptr
	b.ptr = 0
	return ptr
}

// Ptr returns the owned address, or 0 once the box is disarmed.
func (b *Box[T]) Ptr() uint32 {
	return b.ptr
}

// Armed reports whether Release would still free memory.
func (b *Box[T]) Armed() bool {
	return b.ptr != 0
}

// Get decodes the owned value.
func (b *Box[T]) Get() (T, error) {
	if b.ptr == 0 {
		var zero T
		return zero, errors.New(errors.PhaseAccess, errors.KindReleased).Detail("box is disarmed").Build()
	}
	return b.layout.Load(b.mem, b.ptr)
}

// Set overwrites the owned value in place.
func (b *Box[T]) Set(v T) error {
	if b.ptr == 0 {
		return errors.New(errors.PhaseAccess, errors.KindReleased).Detail("box is disarmed").Build()
	}
	return b.layout.Store(b.mem, b.ptr, v)
}

// Release runs the layout's finalizer and frees the bytes. It is a no-op on a
// disarmed or already released box.
func (b *Box[T]) Release() {
	if b.ptr == 0 {
		return
	}
	ptr := b.ptr
	b.ptr = 0

	if f, ok := b.layout.(Finalizer); ok {
		if err := f.Finalize(b.mem, ptr); err != nil {
			memory.Logger().Warn("ebox: finalizer failed",
				zap.Uint32("ptr", ptr),
				zap.Error(err))
		}
	}
	b.alloc.Free(ptr, b.layout.Size(), b.layout.Align())
}
