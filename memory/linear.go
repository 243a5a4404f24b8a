package memory

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/wasm-object/errors"
)

// PageSize is the WebAssembly page size.
const PageSize = 65536

// Linear is a linear memory backed by a Go byte slice. It behaves like an
// exported wasm memory that cannot grow, for hosts that run the object
// runtime without a wasm engine.
type Linear struct {
	buf []byte
}

// MaxPages is the largest memory whose byte size still fits a uint32.
const MaxPages = 65535

// NewLinear allocates a zeroed memory of the given number of pages.
// It panics if pages exceeds MaxPages.
func NewLinear(pages uint32) *Linear {
	if pages > MaxPages {
		panic(errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("%d pages exceed the %d page limit", pages, MaxPages)))
	}
	return &Linear{buf: make([]byte, uint64(pages)*PageSize)}
}

// Size returns the memory size in bytes.
func (m *Linear) Size() uint32 {
	return uint32(len(m.buf))
}

func (m *Linear) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.buf)) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, length)
	}
	return nil
}

// Read returns a view of length bytes at offset.
func (m *Linear) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.buf[offset : offset+length], nil
}

// Write copies data to offset.
func (m *Linear) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.buf[offset:], data)
	return nil
}

func (m *Linear) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.buf[offset], nil
}

func (m *Linear) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.buf[offset:]), nil
}

func (m *Linear) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.buf[offset:]), nil
}

func (m *Linear) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.buf[offset:]), nil
}

func (m *Linear) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.buf[offset] = value
	return nil
}

func (m *Linear) WriteU16(offset uint32, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.buf[offset:], value)
	return nil
}

func (m *Linear) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.buf[offset:], value)
	return nil
}

func (m *Linear) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.buf[offset:], value)
	return nil
}
