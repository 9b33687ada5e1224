package terrain

import "fmt"

// CreateLODCopy returns a coarsened copy of the section stored at lod. Every
// 2^(lod-current) sample is kept; splat maps keep their channel layout and
// detail meshes are copied unchanged.
func (s *Section) CreateLODCopy(lod uint32) (*Section, error) {
	if lod <= s.lodLevel || lod >= s.params.LODCount {
		return nil, fmt.Errorf("cannot derive LOD %d from LOD %d with %d LODs", lod, s.lodLevel, s.params.LODCount)
	}
	step := uint32(1) << (lod - s.lodLevel)

	c := NewSection(s.params, s.sectionX, s.sectionY, lod)
	for y := uint32(0); y < c.pointCount; y++ {
		for x := uint32(0); x < c.pointCount; x++ {
			src := s.heightOffset(x*step, y*step)
			dst := c.heightOffset(x, y)
			copy(c.heightMap[dst:dst+c.heightMapValueSize], s.heightMap[src:src+s.heightMapValueSize])
		}
	}

	for _, m := range s.splatMaps {
		cm := newSplatMap(c.pointCount, m.ChannelCount)
		cm.Layers = m.Layers
		cm.LayerCount = m.LayerCount
		for y := uint32(0); y < c.pointCount; y++ {
			for x := uint32(0); x < c.pointCount; x++ {
				src := m.offset(x*step, y*step, 0)
				copy(cm.Data[cm.offset(x, y, 0):], m.Data[src:src+m.ChannelCount])
			}
		}
		c.splatMaps = append(c.splatMaps, cm)
	}

	c.detailMeshes = append([]DetailMesh(nil), s.detailMeshes...)
	c.detailMeshInstances = append([]DetailMeshInstance(nil), s.detailMeshInstances...)

	if err := c.RebuildQuadTree(); err != nil {
		return nil, err
	}
	c.changed = false
	return c, nil
}
