package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-object/errors"
)

func TestHeap_NeverReturnsNull(t *testing.T) {
	h := NewHeap(0, 256)
	ptr, err := h.Alloc(16, 8)
	require.NoError(t, err)
	assert.NotZero(t, ptr)
	assert.Equal(t, uint32(DefaultAlign), ptr)
}

func TestHeap_Alignment(t *testing.T) {
	h := NewHeap(8, 1024)

	a, err := h.Alloc(3, 1)
	require.NoError(t, err)
	b, err := h.Alloc(8, 16)
	require.NoError(t, err)

	assert.Equal(t, uint32(8), a)
	assert.Zero(t, b%16)
	assert.GreaterOrEqual(t, b, a+3)

	_, err = h.Alloc(8, 3)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindInvalidInput})
}

func TestHeap_Exhaustion(t *testing.T) {
	h := NewHeap(8, 40)

	_, err := h.Alloc(32, 8)
	require.NoError(t, err)

	_, err = h.Alloc(8, 8)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindAllocation})
}

func TestHeap_FreeCoalesces(t *testing.T) {
	h := NewHeap(8, 8+96)

	a, err := h.Alloc(32, 8)
	require.NoError(t, err)
	b, err := h.Alloc(32, 8)
	require.NoError(t, err)
	c, err := h.Alloc(32, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Allocations())
	assert.Equal(t, uint32(96), h.InUse())

	h.Free(a, 32, 8)
	h.Free(c, 32, 8)
	h.Free(b, 32, 8)
	assert.Zero(t, h.Allocations())
	assert.Zero(t, h.InUse())

	// the whole range is one span again
	big, err := h.Alloc(96, 8)
	require.NoError(t, err)
	assert.Equal(t, a, big)
}

func TestHeap_UnknownFreeIgnored(t *testing.T) {
	h := NewHeap(8, 128)
	p, err := h.Alloc(16, 8)
	require.NoError(t, err)

	h.Free(p, 16, 8)
	h.Free(p, 16, 8)
	h.Free(999, 4, 4)

	assert.Zero(t, h.Allocations())
	q, err := h.Alloc(120, 8)
	require.NoError(t, err)
	assert.Equal(t, p, q)
}

func TestTracking_Pairing(t *testing.T) {
	tr := NewTracking(NewHeap(8, 1024))

	a, err := tr.Alloc(24, 8)
	require.NoError(t, err)
	b, err := tr.Alloc(40, 8)
	require.NoError(t, err)
	assert.Len(t, tr.Live(), 2)
	assert.False(t, tr.Balanced())

	tr.Free(a, 24, 8)
	tr.Free(b, 40, 8)
	assert.Equal(t, 2, tr.Allocs())
	assert.Equal(t, 2, tr.Frees())
	assert.True(t, tr.Balanced())

	tr.Free(a, 24, 8)
	assert.Equal(t, 1, tr.BadFrees())
	assert.False(t, tr.Balanced())
}

func TestTracking_FailedAllocNotRecorded(t *testing.T) {
	tr := NewTracking(NewHeap(8, 16))
	_, err := tr.Alloc(64, 8)
	require.Error(t, err)
	assert.Zero(t, tr.Allocs())
	assert.True(t, tr.Balanced())
}
