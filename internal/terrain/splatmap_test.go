package terrain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func weightSum(s *Section, x, y uint32) float32 {
	var sum float32
	for _, layer := range s.UsedLayers() {
		sum += s.SplatMapValue(x, y, layer)
	}
	return sum
}

func TestSplatMapChannelGrowth(t *testing.T) {
	s := newTestSection(t, testParams(), 0)
	require.Len(t, s.SplatMaps(), 1)
	require.EqualValues(t, 1, s.SplatMaps()[0].ChannelCount)

	s.SetSplatMapValue(2, 2, 5, 0.25, false)
	require.EqualValues(t, 2, s.SplatMaps()[0].ChannelCount)

	s.SetSplatMapValue(2, 2, 6, 0.25, false)
	require.EqualValues(t, 4, s.SplatMaps()[0].ChannelCount)
	s.SetSplatMapValue(2, 2, 7, 0.25, false)
	require.EqualValues(t, 4, s.SplatMaps()[0].ChannelCount)
	require.Len(t, s.SplatMaps(), 1)

	s.SetSplatMapValue(2, 2, 8, 0.25, false)
	require.Len(t, s.SplatMaps(), 2)
	require.Equal(t, []int32{0, 5, 6, 7, 8}, s.UsedLayers())

	// Growth preserved earlier channel data.
	require.InDelta(t, 1, s.SplatMapValue(0, 0, 0), 1e-6)
	require.InDelta(t, 1, s.SplatMapValue(2, 2, 0), 1e-6)
	require.InDelta(t, 0.25, s.SplatMapValue(2, 2, 5), 1.0/255)
}

func TestSplatMapRenormalize(t *testing.T) {
	s := newTestSection(t, testParams(), 0)
	s.SetSplatMapValue(4, 4, 1, 0.4, true)
	require.InDelta(t, 1, weightSum(s, 4, 4), 0.01)
	require.InDelta(t, 0.6, s.SplatMapValue(4, 4, 0), 0.01)

	s.SetSplatMapValue(4, 4, 2, 0.3, true)
	require.InDelta(t, 1, weightSum(s, 4, 4), 0.01)
	require.InDelta(t, 0.3, s.SplatMapValue(4, 4, 2), 0.01)

	s.SetSplatMapValue(4, 4, 3, 1, true)
	require.Equal(t, float32(1), s.SplatMapValue(4, 4, 3))
	for _, layer := range []int32{0, 1, 2} {
		require.Zero(t, s.SplatMapValue(4, 4, layer))
	}
	// Neighbouring points are untouched.
	require.Equal(t, float32(1), s.SplatMapValue(5, 4, 0))
}

func TestSetSplatMapValueNoChange(t *testing.T) {
	s := newTestSection(t, testParams(), 0)
	s.ClearChanged()
	require.False(t, s.SetSplatMapValue(1, 1, 0, 1, true))
	require.False(t, s.SetSplatMapValue(1, 1, 9, 0, true))
	require.False(t, s.Changed())
	require.Equal(t, []int32{0}, s.UsedLayers())
}

func TestFilterSplatMapValues(t *testing.T) {
	s := newTestSection(t, testParams(), 0)
	s.SetSplatMapValue(1, 1, 1, 0.02, false)
	s.SetSplatMapValue(2, 2, 2, 0.5, true)

	require.True(t, s.FilterSplatMapValues(0.05, true))
	require.Equal(t, []int32{0, 2}, s.UsedLayers())
	require.InDelta(t, 1, weightSum(s, 2, 2), 0.01)
	require.InDelta(t, 1, weightSum(s, 1, 1), 0.01)

	require.False(t, s.FilterSplatMapValues(0.05, true))
}

func TestDeleteLayer(t *testing.T) {
	s := newTestSection(t, testParams(), 0)
	s.SetSplatMapValue(0, 0, 4, 0.5, false)
	require.True(t, s.DeleteLayer(4))
	require.False(t, s.DeleteLayer(4))
	require.Equal(t, []int32{0}, s.UsedLayers())

	// The freed channel is reused before the map grows again.
	_, ch, err := s.AllocateLayerInSplatMap(9)
	require.NoError(t, err)
	require.Equal(t, 1, ch)
	require.EqualValues(t, 2, s.SplatMaps()[0].ChannelCount)

	require.True(t, s.DeleteLayer(0))
	require.True(t, s.DeleteLayer(9))
	require.Empty(t, s.SplatMaps())

	_, _, err = s.AllocateLayerInSplatMap(MaxLayers)
	require.Error(t, err)
}
