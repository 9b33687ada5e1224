package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

func newSection(t *testing.T, format terrain.HeightStorageFormat) *terrain.Section {
	t.Helper()
	params := terrain.Parameters{
		HeightStorageFormat: format,
		MinHeight:           0,
		MaxHeight:           100,
		Scale:               2,
		SectionSize:         8,
		LODCount:            2,
	}
	s := terrain.NewSection(params, 1, 0, 0)
	require.NoError(t, s.Create(0, 0))
	return s
}

func TestHeightAt(t *testing.T) {
	b := NewHeightfieldBuilder()
	s := newSection(t, terrain.HeightStorageFloat32)
	h, err := b.BuildHeightfield(s)
	require.NoError(t, err)
	require.Equal(t, 1, b.Live())

	// Section (1, 0) starts at X 16 with 2 units per quad.
	require.True(t, s.SetHeightMapValue(1, 0, 8))

	got, ok := h.HeightAt(18, 0)
	require.True(t, ok)
	require.InDelta(t, 8, float64(got), 1e-5)

	got, ok = h.HeightAt(17, 0)
	require.True(t, ok)
	require.InDelta(t, 4, float64(got), 1e-5)

	got, ok = h.HeightAt(18, 1)
	require.True(t, ok)
	require.InDelta(t, 4, float64(got), 1e-5)

	got, ok = h.HeightAt(32, 16)
	require.True(t, ok)
	require.Zero(t, got)

	_, ok = h.HeightAt(15, 0)
	require.False(t, ok)
	_, ok = h.HeightAt(20, 17)
	require.False(t, ok)

	h.Release()
	h.Release()
	require.Equal(t, 0, b.Live())
	_, ok = h.HeightAt(18, 0)
	require.False(t, ok)
}

func TestHeightAtQuantized(t *testing.T) {
	s := newSection(t, terrain.HeightStorageUint16)
	h, err := NewHeightfieldBuilder().BuildHeightfield(s)
	require.NoError(t, err)

	require.True(t, s.SetHeightMapValue(2, 2, 50))
	got, ok := h.HeightAt(20, 4)
	require.True(t, ok)
	require.InDelta(t, 50, float64(got), 0.01)
}

func TestHeightAtHole(t *testing.T) {
	s := newSection(t, terrain.HeightStorageFloat32)
	h, err := NewHeightfieldBuilder().BuildHeightfield(s)
	require.NoError(t, err)

	require.True(t, s.SetHeightMapValue(3, 3, terrain.Infinite))
	_, ok := h.HeightAt(22, 6)
	require.False(t, ok)
	_, ok = h.HeightAt(30, 14)
	require.True(t, ok)
}
