package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-object/errors"
)

func TestLinear_Size(t *testing.T) {
	assert.Zero(t, NewLinear(0).Size())
	assert.Equal(t, uint32(2*PageSize), NewLinear(2).Size())
}

func TestLinear_RejectsPagesBeyondAddressSpace(t *testing.T) {
	for _, pages := range []uint32{MaxPages + 1, 1 << 20} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "NewLinear(%d) must panic", pages)
				perr, ok := r.(*errors.Error)
				require.True(t, ok, "panic value %T", r)
				assert.Equal(t, errors.KindInvalidInput, perr.Kind)
			}()
			NewLinear(pages)
		}()
	}
}

func TestLinear_OutOfBounds(t *testing.T) {
	m := NewLinear(1)

	_, err := m.ReadU32(PageSize - 2)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindOutOfBounds})
	assert.Error(t, m.Write(PageSize-1, []byte{1, 2}))
	require.NoError(t, m.WriteU64(PageSize-8, 42))
}
