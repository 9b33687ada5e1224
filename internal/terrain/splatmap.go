package terrain

import (
	"fmt"
	gomath "math"
	"slices"
)

// SplatMap packs the weights of up to four layers, one byte per channel,
// interleaved per point.
type SplatMap struct {
	Layers       [4]int32
	LayerCount   uint32
	ChannelCount uint32
	RowPitch     uint32
	Data         []byte

	pointCount uint32
}

func newSplatMap(pointCount, channelCount uint32) *SplatMap {
	m := &SplatMap{
		Layers:       [4]int32{-1, -1, -1, -1},
		ChannelCount: channelCount,
		RowPitch:     alignRowPitch(pointCount * channelCount),
		pointCount:   pointCount,
	}
	m.Data = make([]byte, int(m.RowPitch)*int(pointCount))
	return m
}

func (m *SplatMap) offset(x, y, channel uint32) uint32 {
	return y*m.RowPitch + x*m.ChannelCount + channel
}

// Value returns the raw weight in a channel.
func (m *SplatMap) Value(x, y uint32, channel int) uint8 {
	return m.Data[m.offset(x, y, uint32(channel))]
}

func (m *SplatMap) set(x, y uint32, channel int, v uint8) bool {
	off := m.offset(x, y, uint32(channel))
	if m.Data[off] == v {
		return false
	}
	m.Data[off] = v
	return true
}

func (m *SplatMap) fill(channel int, v uint8) {
	for y := uint32(0); y < m.pointCount; y++ {
		for x := uint32(0); x < m.pointCount; x++ {
			m.Data[m.offset(x, y, uint32(channel))] = v
		}
	}
}

func (m *SplatMap) channelOf(layer int32) int {
	for ch := 0; ch < int(m.ChannelCount); ch++ {
		if m.Layers[ch] == layer {
			return ch
		}
	}
	return -1
}

// grow re-interleaves the channel data into a wider pixel format.
func (m *SplatMap) grow(channelCount uint32) {
	grown := newSplatMap(m.pointCount, channelCount)
	for y := uint32(0); y < m.pointCount; y++ {
		for x := uint32(0); x < m.pointCount; x++ {
			copy(grown.Data[grown.offset(x, y, 0):], m.Data[m.offset(x, y, 0):m.offset(x, y, 0)+m.ChannelCount])
		}
	}
	copy(grown.Layers[:], m.Layers[:m.ChannelCount])
	grown.LayerCount = m.LayerCount
	*m = *grown
}

func quantizeWeight(w float32) uint8 {
	return uint8(gomath.Round(float64(clampWeight(w)) * 255))
}

func clampWeight(w float32) float32 {
	switch {
	case w != w || w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}

// SplatMaps returns the section's splat maps.
func (s *Section) SplatMaps() []*SplatMap { return s.splatMaps }

// UsedLayers returns the sorted indices of every allocated layer.
func (s *Section) UsedLayers() []int32 {
	var layers []int32
	for _, m := range s.splatMaps {
		for ch := 0; ch < int(m.ChannelCount); ch++ {
			if m.Layers[ch] >= 0 {
				layers = append(layers, m.Layers[ch])
			}
		}
	}
	slices.Sort(layers)
	return layers
}

func (s *Section) layerLocation(layer int32) (mapIndex, channel int, ok bool) {
	for i, m := range s.splatMaps {
		if ch := m.channelOf(layer); ch >= 0 {
			return i, ch, true
		}
	}
	return 0, 0, false
}

// AllocateLayerInSplatMap returns the splat map and channel holding layer,
// allocating one if needed. New capacity comes from a free channel first,
// then from growing a 1- or 2-channel map, then from a new map.
func (s *Section) AllocateLayerInSplatMap(layer int32) (mapIndex, channel int, err error) {
	if mi, ch, ok := s.layerLocation(layer); ok {
		return mi, ch, nil
	}
	if layer < 0 || layer >= MaxLayers {
		return 0, 0, fmt.Errorf("layer %d out of range [0, %d)", layer, MaxLayers)
	}
	if len(s.UsedLayers()) >= MaxLayers {
		return 0, 0, fmt.Errorf("section already uses %d layers", MaxLayers)
	}

	for i, m := range s.splatMaps {
		if ch := m.channelOf(-1); ch >= 0 {
			m.Layers[ch] = layer
			m.LayerCount++
			m.fill(ch, 0)
			return i, ch, nil
		}
	}

	for i, m := range s.splatMaps {
		if m.ChannelCount < 4 {
			ch := int(m.ChannelCount)
			m.grow(m.ChannelCount * 2)
			m.Layers[ch] = layer
			m.LayerCount++
			return i, ch, nil
		}
	}

	m := newSplatMap(s.pointCount, 1)
	m.Layers[0] = layer
	m.LayerCount = 1
	s.splatMaps = append(s.splatMaps, m)
	return len(s.splatMaps) - 1, 0, nil
}

// SplatMapValue returns a layer's weight at a point in [0, 1].
func (s *Section) SplatMapValue(x, y uint32, layer int32) float32 {
	mi, ch, ok := s.layerLocation(layer)
	if !ok {
		return 0
	}
	return float32(s.splatMaps[mi].Value(x, y, ch)) / 255
}

// SetSplatMapValue stores a layer weight at a point. With renormalize the
// other layers at that point are rescaled so all weights sum to one; a full
// weight clears them. It returns whether any stored weight changed.
func (s *Section) SetSplatMapValue(x, y uint32, layer int32, weight float32, renormalize bool) bool {
	q := quantizeWeight(weight)

	mi, ch, ok := s.layerLocation(layer)
	if !ok {
		if q == 0 {
			return false
		}
		var err error
		if mi, ch, err = s.AllocateLayerInSplatMap(layer); err != nil {
			return false
		}
	}

	changed := false
	if renormalize {
		changed = s.renormalizeOthers(x, y, layer, float32(q)/255)
	}
	if s.splatMaps[mi].set(x, y, ch, q) {
		changed = true
	}
	if changed {
		s.changed = true
	}
	return changed
}

func (s *Section) renormalizeOthers(x, y uint32, layer int32, weight float32) bool {
	var otherSum float32
	for _, m := range s.splatMaps {
		for ch := 0; ch < int(m.ChannelCount); ch++ {
			if m.Layers[ch] >= 0 && m.Layers[ch] != layer {
				otherSum += float32(m.Value(x, y, ch)) / 255
			}
		}
	}
	if otherSum == 0 {
		return false
	}

	remaining := 1 - weight
	scale := remaining / otherSum
	if remaining <= 1.0/255 {
		scale = 0
	}

	changed := false
	for _, m := range s.splatMaps {
		for ch := 0; ch < int(m.ChannelCount); ch++ {
			if m.Layers[ch] < 0 || m.Layers[ch] == layer {
				continue
			}
			v := float32(m.Value(x, y, ch)) / 255
			if m.set(x, y, ch, quantizeWeight(v*scale)) {
				changed = true
			}
		}
	}
	return changed
}

// FilterSplatMapValues zeroes every weight below threshold and optionally
// renormalizes the survivors at each point to sum to one. Layers left with
// no weight anywhere are deleted. It returns whether anything changed.
func (s *Section) FilterSplatMapValues(threshold float32, renormalize bool) bool {
	changed := false
	for y := uint32(0); y < s.pointCount; y++ {
		for x := uint32(0); x < s.pointCount; x++ {
			var sum float32
			for _, m := range s.splatMaps {
				for ch := 0; ch < int(m.ChannelCount); ch++ {
					if m.Layers[ch] < 0 {
						continue
					}
					v := float32(m.Value(x, y, ch)) / 255
					if v > 0 && v < threshold {
						m.set(x, y, ch, 0)
						changed = true
						v = 0
					}
					sum += v
				}
			}
			if !renormalize || sum == 0 {
				continue
			}
			for _, m := range s.splatMaps {
				for ch := 0; ch < int(m.ChannelCount); ch++ {
					if m.Layers[ch] < 0 {
						continue
					}
					v := float32(m.Value(x, y, ch)) / 255
					if m.set(x, y, ch, quantizeWeight(v/sum)) {
						changed = true
					}
				}
			}
		}
	}

	for _, layer := range s.UsedLayers() {
		if !s.layerHasWeight(layer) && s.DeleteLayer(layer) {
			changed = true
		}
	}
	if changed {
		s.changed = true
	}
	return changed
}

func (s *Section) layerHasWeight(layer int32) bool {
	mi, ch, ok := s.layerLocation(layer)
	if !ok {
		return false
	}
	m := s.splatMaps[mi]
	for y := uint32(0); y < s.pointCount; y++ {
		for x := uint32(0); x < s.pointCount; x++ {
			if m.Value(x, y, ch) != 0 {
				return true
			}
		}
	}
	return false
}

// DeleteLayer frees a layer's channel. A splat map left without layers is
// removed.
func (s *Section) DeleteLayer(layer int32) bool {
	mi, ch, ok := s.layerLocation(layer)
	if !ok {
		return false
	}
	m := s.splatMaps[mi]
	m.fill(ch, 0)
	m.Layers[ch] = -1
	m.LayerCount--
	if m.LayerCount == 0 {
		s.splatMaps = slices.Delete(s.splatMaps, mi, mi+1)
	}
	s.changed = true
	return true
}
