package ebox

import (
	"math"

	wasmobject "github.com/wippyai/wasm-object"
)

// Layout describes how a T is stored in linear memory.
type Layout[T any] interface {
	Size() uint32
	Align() uint32
	Store(mem wasmobject.Memory, ptr uint32, v T) error
	Load(mem wasmobject.Memory, ptr uint32) (T, error)
}

// Finalizer is implemented by layouts whose values own further runtime
// resources. Finalize runs before the box's bytes are freed.
type Finalizer interface {
	Finalize(mem wasmobject.Memory, ptr uint32) error
}

type u32Layout struct{}

func (u32Layout) Size() uint32  { return 4 }
func (u32Layout) Align() uint32 { return 4 }
func (u32Layout) Store(mem wasmobject.Memory, ptr uint32, v uint32) error {
	return mem.WriteU32(ptr, v)
}
func (u32Layout) Load(mem wasmobject.Memory, ptr uint32) (uint32, error) {
	return mem.ReadU32(ptr)
}

type u64Layout struct{}

func (u64Layout) Size() uint32  { return 8 }
func (u64Layout) Align() uint32 { return 8 }
func (u64Layout) Store(mem wasmobject.Memory, ptr uint32, v uint64) error {
	return mem.WriteU64(ptr, v)
}
func (u64Layout) Load(mem wasmobject.Memory, ptr uint32) (uint64, error) {
	return mem.ReadU64(ptr)
}

type i64Layout struct{}

func (i64Layout) Size() uint32  { return 8 }
func (i64Layout) Align() uint32 { return 8 }
func (i64Layout) Store(mem wasmobject.Memory, ptr uint32, v int64) error {
	return mem.WriteU64(ptr, uint64(v))
}
func (i64Layout) Load(mem wasmobject.Memory, ptr uint32) (int64, error) {
	v, err := mem.ReadU64(ptr)
	return int64(v), err
}

type f64Layout struct{}

func (f64Layout) Size() uint32  { return 8 }
func (f64Layout) Align() uint32 { return 8 }
func (f64Layout) Store(mem wasmobject.Memory, ptr uint32, v float64) error {
	return mem.WriteU64(ptr, math.Float64bits(v))
}
func (f64Layout) Load(mem wasmobject.Memory, ptr uint32) (float64, error) {
	v, err := mem.ReadU64(ptr)
	return math.Float64frombits(v), err
}

// Stock layouts.
var (
	U32 Layout[uint32]  = u32Layout{}
	U64 Layout[uint64]  = u64Layout{}
	I64 Layout[int64]   = i64Layout{}
	F64 Layout[float64] = f64Layout{}
)

// Bytes returns a layout for fixed-size byte arrays of length n. Shorter
// values are zero padded; longer values are truncated.
func Bytes(n uint32) Layout[[]byte] {
	return bytesLayout(n)
}

type bytesLayout uint32

func (l bytesLayout) Size() uint32  { return uint32(l) }
func (l bytesLayout) Align() uint32 { return 1 }
func (l bytesLayout) Store(mem wasmobject.Memory, ptr uint32, v []byte) error {
	buf := make([]byte, l)
	copy(buf, v)
	return mem.Write(ptr, buf)
}
func (l bytesLayout) Load(mem wasmobject.Memory, ptr uint32) ([]byte, error) {
	b, err := mem.Read(ptr, uint32(l))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Zeroed returns a layout for size bytes of raw memory aligned to align.
// Store zero-fills the bytes; the value carries nothing. Useful for records
// whose owner writes the contents itself after allocation.
func Zeroed(size, align uint32) Layout[struct{}] {
	return zeroedLayout{size: size, align: align}
}

type zeroedLayout struct {
	size  uint32
	align uint32
}

func (l zeroedLayout) Size() uint32  { return l.size }
func (l zeroedLayout) Align() uint32 { return l.align }
func (l zeroedLayout) Store(mem wasmobject.Memory, ptr uint32, _ struct{}) error {
	return mem.Write(ptr, make([]byte, l.size))
}
func (l zeroedLayout) Load(mem wasmobject.Memory, ptr uint32) (struct{}, error) {
	if _, err := mem.Read(ptr, l.size); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, nil
}
