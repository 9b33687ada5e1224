package terrain

import (
	"fmt"
	"io"

	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// countingWriter tracks bytes written for io.WriterTo implementations.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ReadSection parses a section at the given coordinates and storage LOD.
// Nothing is returned unless the whole record parses.
func ReadSection(params Parameters, sectionX, sectionY int32, lodLevel uint32, r io.Reader) (*Section, error) {
	s := NewSection(params, sectionX, sectionY, lodLevel)
	if err := s.LoadFromStream(r); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFromStream replaces the section contents with a serialized record.
// On error the section is left unchanged.
func (s *Section) LoadFromStream(r io.Reader) error {
	h, err := formats.ReadSectionHeader(r)
	if err != nil {
		return err
	}
	if h.PointCount != s.pointCount {
		return fmt.Errorf("%w: got %d points, want %d", formats.ErrPointCountMismatch, h.PointCount, s.pointCount)
	}
	if h.HeightMapValueSize != s.heightMapValueSize {
		return fmt.Errorf("%w: height value size %d, want %d", formats.ErrCorrupt, h.HeightMapValueSize, s.heightMapValueSize)
	}

	raw, err := formats.ReadBytes(r, h.HeightMapSize(), "height map")
	if err != nil {
		return err
	}

	splatMaps := make([]*SplatMap, 0, h.SplatMapCount)
	for range h.SplatMapCount {
		sh, err := formats.ReadSplatMapHeader(r, s.pointCount)
		if err != nil {
			return err
		}
		data, err := formats.ReadBytes(r, int(sh.RowPitch)*int(s.pointCount), "splat map")
		if err != nil {
			return err
		}
		splatMaps = append(splatMaps, &SplatMap{
			Layers:       sh.Layers,
			LayerCount:   sh.LayerCount,
			ChannelCount: sh.ChannelCount,
			RowPitch:     sh.RowPitch,
			Data:         data,
			pointCount:   s.pointCount,
		})
	}

	tree, err := ReadQuadTree(r)
	if err != nil {
		return err
	}
	if want := s.params.LODCount - s.lodLevel; tree.LODCount() != want {
		return fmt.Errorf("%w: quadtree has %d LODs, want %d", formats.ErrCorrupt, tree.LODCount(), want)
	}
	if root := tree.Node(0); root.NodeSize != s.pointCount-1 {
		return fmt.Errorf("%w: quadtree root covers %d quads, want %d", formats.ErrCorrupt, root.NodeSize, s.pointCount-1)
	}

	meshes := make([]DetailMesh, 0, h.DetailMeshCount)
	for range h.DetailMeshCount {
		rec, name, err := formats.ReadDetailMesh(r)
		if err != nil {
			return err
		}
		meshes = append(meshes, DetailMesh{Name: name, DrawDistance: rec.DrawDistance})
	}
	instances := make([]DetailMeshInstance, 0, h.DetailMeshInstanceCount)
	for range h.DetailMeshInstanceCount {
		rec, err := formats.ReadDetailMeshInstance(r)
		if err != nil {
			return err
		}
		if int(rec.MeshIndex) >= len(meshes) {
			return fmt.Errorf("%w: detail mesh instance references mesh %d of %d", formats.ErrCorrupt, rec.MeshIndex, len(meshes))
		}
		instances = append(instances, DetailMeshInstance{
			MeshIndex: rec.MeshIndex,
			Position:  math.Vec3{X: rec.Position[0], Y: rec.Position[1], Z: rec.Position[2]},
			Rotation:  math.Quat{X: rec.Rotation[0], Y: rec.Rotation[1], Z: rec.Rotation[2], W: rec.Rotation[3]},
		})
	}

	// Repack rows into the section's own pitch so the buffer never moves.
	pitch := int(h.HeightMapRowPitch)
	rowBytes := int(s.pointCount * s.heightMapValueSize)
	for y := 0; y < int(s.pointCount); y++ {
		copy(s.heightMap[y*int(s.heightMapRowPitch):], raw[y*pitch:y*pitch+rowBytes])
	}
	s.splatMaps = splatMaps
	s.quadTree = tree
	s.detailMeshes = meshes
	s.detailMeshInstances = instances
	s.changed = false
	return nil
}

// WriteTo serializes the section: header, heightfield, splat maps,
// quadtree, then the detail mesh block.
func (s *Section) WriteTo(w io.Writer) (int64, error) {
	if s.quadTree == nil {
		return 0, fmt.Errorf("section (%d, %d) has no quadtree", s.sectionX, s.sectionY)
	}
	cw := &countingWriter{w: w}

	h := formats.NewSectionHeader()
	h.PointCount = s.pointCount
	h.HeightMapValueSize = s.heightMapValueSize
	h.HeightMapRowPitch = s.heightMapRowPitch
	h.SplatMapCount = uint32(len(s.splatMaps))
	h.DetailMeshCount = uint32(len(s.detailMeshes))
	h.DetailMeshInstanceCount = uint32(len(s.detailMeshInstances))
	if err := h.Write(cw); err != nil {
		return cw.n, err
	}
	if _, err := cw.Write(s.heightMap); err != nil {
		return cw.n, fmt.Errorf("writing height map: %w", err)
	}

	for _, m := range s.splatMaps {
		sh := formats.SplatMapHeader{
			Layers:       m.Layers,
			LayerCount:   m.LayerCount,
			ChannelCount: m.ChannelCount,
			RowPitch:     m.RowPitch,
		}
		if err := sh.Write(cw); err != nil {
			return cw.n, err
		}
		if _, err := cw.Write(m.Data); err != nil {
			return cw.n, fmt.Errorf("writing splat map: %w", err)
		}
	}

	if _, err := s.quadTree.WriteTo(cw); err != nil {
		return cw.n, err
	}

	for _, m := range s.detailMeshes {
		if err := formats.WriteDetailMesh(cw, m.Name, m.DrawDistance); err != nil {
			return cw.n, err
		}
	}
	for _, inst := range s.detailMeshInstances {
		rec := formats.DetailMeshInstanceRecord{
			MeshIndex: inst.MeshIndex,
			Position:  [3]float32{inst.Position.X, inst.Position.Y, inst.Position.Z},
			Rotation:  [4]float32{inst.Rotation.X, inst.Rotation.Y, inst.Rotation.Z, inst.Rotation.W},
		}
		if err := rec.Write(cw); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}
