package ebox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/errors"
	"github.com/wippyai/wasm-object/memory"
)

func newEnv() (*memory.Linear, *memory.Tracking) {
	mem := memory.NewLinear(1)
	return mem, memory.NewTracking(memory.NewHeap(8, mem.Size()))
}

func TestBox_NewGetSet(t *testing.T) {
	mem, alloc := newEnv()

	b := New(alloc, mem, I64, -7)
	defer b.Release()

	require.True(t, b.Armed())
	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)

	require.NoError(t, b.Set(99))
	raw, err := mem.ReadU64(b.Ptr())
	require.NoError(t, err)
	assert.Equal(t, uint64(99), raw)
}

func TestBox_ReleaseOnce(t *testing.T) {
	mem, alloc := newEnv()

	b := New(alloc, mem, U32, 1)
	b.Release()
	b.Release()

	assert.Equal(t, 1, alloc.Allocs())
	assert.Equal(t, 1, alloc.Frees())
	assert.True(t, alloc.Balanced())
	assert.False(t, b.Armed())

	_, err := b.Get()
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAccess, Kind: errors.KindReleased})
}

func TestBox_IntoRawFromRaw(t *testing.T) {
	mem, alloc := newEnv()

	b := New(alloc, mem, F64, 2.5)
	ptr := b.IntoRaw()
	require.NotZero(t, ptr)

	b.Release()
	assert.Zero(t, alloc.Frees(), "disarmed box must not free")
	assert.Error(t, b.Set(1))

	again := FromRaw(alloc, mem, F64, ptr)
	v, err := again.Get()
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	again.Release()
	assert.True(t, alloc.Balanced())
}

func TestBox_Bytes(t *testing.T) {
	mem, alloc := newEnv()

	b := New(alloc, mem, Bytes(6), []byte("hi"))
	defer b.Release()

	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, []byte{'h', 'i', 0, 0, 0, 0}, v)
}

func TestBox_Zeroed(t *testing.T) {
	mem, alloc := newEnv()
	require.NoError(t, mem.Write(16, []byte{0xff, 0xff, 0xff, 0xff}))

	b := New(alloc, mem, Zeroed(32, 16), struct{}{})
	assert.Zero(t, b.Ptr()%16)

	raw, err := mem.Read(b.Ptr(), 32)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), raw)

	b.Release()
	assert.True(t, alloc.Balanced())
}

type tracedLayout struct {
	log *[]string
}

func (tracedLayout) Size() uint32  { return 4 }
func (tracedLayout) Align() uint32 { return 4 }
func (tracedLayout) Store(mem wasmobject.Memory, ptr uint32, v uint32) error {
	return mem.WriteU32(ptr, v)
}
func (tracedLayout) Load(mem wasmobject.Memory, ptr uint32) (uint32, error) {
	return mem.ReadU32(ptr)
}
func (l tracedLayout) Finalize(mem wasmobject.Memory, ptr uint32) error {
	v, err := mem.ReadU32(ptr)
	if err != nil {
		return err
	}
	if v == 5 {
		*l.log = append(*l.log, "finalize")
	}
	return nil
}

type orderAllocator struct {
	wasmobject.Allocator
	log *[]string
}

func (a orderAllocator) Free(ptr, size, align uint32) {
	*a.log = append(*a.log, "free")
	a.Allocator.Free(ptr, size, align)
}

func TestBox_FinalizerRunsBeforeFree(t *testing.T) {
	mem, heap := newEnv()
	var log []string
	alloc := orderAllocator{Allocator: heap, log: &log}

	b := New[uint32](alloc, mem, tracedLayout{log: &log}, 5)
	b.Release()
	b.Release()

	assert.Equal(t, []string{"finalize", "free"}, log)
}

type nullAllocator struct{}

func (nullAllocator) Alloc(size, align uint32) (uint32, error) { return 0, nil }
func (nullAllocator) Free(ptr, size, align uint32)             {}

func TestBox_AllocationFailureIsFatal(t *testing.T) {
	mem := memory.NewLinear(1)

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(*errors.Error)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, errors.KindAllocation, err.Kind)
	}()

	New(nullAllocator{}, mem, U64, 1)
}

func TestBox_ExhaustedHeapIsFatal(t *testing.T) {
	mem := memory.NewLinear(1)
	heap := memory.NewHeap(8, 12)

	assert.Panics(t, func() {
		New(heap, mem, U64, 1)
	})
}
