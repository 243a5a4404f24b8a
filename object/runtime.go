package object

import (
	"context"

	wasmobject "github.com/wippyai/wasm-object"
)

// Runtime is the object runtime the binding layer sits on. guest.Runtime
// implements it.
type Runtime interface {
	Memory() wasmobject.Memory
	Allocator() wasmobject.Allocator

	RegisterClass(spec wasmobject.ClassSpec) (uint32, error)
	HeaderSize(classID uint32) (uint32, error)

	// InitHeader makes the bytes at header a live object with refcount 1.
	InitHeader(ctx context.Context, header, classID uint32) error
	// Construct runs the class constructor, reporting whether one exists.
	Construct(ctx context.Context, header uint32, args []uint64) (bool, error)
	// DestroyHeader releases header-owned resources; idempotent.
	DestroyHeader(ctx context.Context, header uint32) error

	AddRef(header uint32) (uint32, error)
	// Release decrements the refcount and removes the object at zero.
	Release(ctx context.Context, header uint32) error
	RefCount(header uint32) (uint32, error)
	ClassID(header uint32) (uint32, error)

	Clone(ctx context.Context, header uint32) (uint32, error)
	CloneMembers(src, dst uint32) error

	ReadProperty(header uint32, name string) (uint64, error)
	WriteProperty(header uint32, name string, v uint64) error
}
