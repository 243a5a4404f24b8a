package object

import (
	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/resource"
)

// Composite record layout:
//
//	composite            composite+Offset
//	| handle | type id | runtime header ... |
//
// The state slot is a table handle plus the type id the state was stored
// with. Its size does not depend on the state type, so Offset is the same
// for every class.
const (
	slotHandle = 0
	slotType   = 4

	// SlotSize is the size of the state slot.
	SlotSize = 8

	// Offset is the distance from a composite record to its header.
	Offset = SlotSize

	// Align is the alignment of every composite record.
	Align = 8
)

// CompositeOf returns the composite record that owns header.
func CompositeOf(header uint32) uint32 {
	return header - Offset
}

// HeaderOf returns the header inside a composite record.
func HeaderOf(composite uint32) uint32 {
	return composite + Offset
}

type slot struct {
	handle resource.Handle
	typeID uint32
}

// compositeLayout is the ebox layout of a whole composite record. The boxed
// value is the state slot; the header bytes behind it are zeroed and left
// to the runtime. Finalize drops whatever state the slot refers to.
type compositeLayout struct {
	reg    *Registry
	header uint32
}

func (l compositeLayout) Size() uint32  { return Offset + l.header }
func (l compositeLayout) Align() uint32 { return Align }

func (l compositeLayout) Store(mem wasmobject.Memory, ptr uint32, s slot) error {
	if err := mem.Write(ptr, make([]byte, l.Size())); err != nil {
		return err
	}
	return writeSlot(mem, ptr, s)
}

func (l compositeLayout) Load(mem wasmobject.Memory, ptr uint32) (slot, error) {
	return readSlot(mem, ptr)
}

func (l compositeLayout) Finalize(_ wasmobject.Memory, ptr uint32) error {
	return l.reg.dropState(ptr)
}

func readSlot(mem wasmobject.Memory, composite uint32) (slot, error) {
	h, err := mem.ReadU32(composite + slotHandle)
	if err != nil {
		return slot{}, err
	}
	t, err := mem.ReadU32(composite + slotType)
	if err != nil {
		return slot{}, err
	}
	return slot{handle: resource.Handle(h), typeID: t}, nil
}

func writeSlot(mem wasmobject.Memory, composite uint32, s slot) error {
	if err := mem.WriteU32(composite+slotHandle, uint32(s.handle)); err != nil {
		return err
	}
	return mem.WriteU32(composite+slotType, s.typeID)
}
