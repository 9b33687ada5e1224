package terrain

import (
	"bytes"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Section is one square tile of heightfield and splat data.
//
// The heightfield buffer is allocated once and never reallocated, so the
// slice returned by RawHeightMapData stays valid for the section's lifetime.
type Section struct {
	params     Parameters
	sectionX   int32
	sectionY   int32
	lodLevel   uint32
	pointCount uint32

	heightMap          []byte
	heightMapValueSize uint32
	heightMapRowPitch  uint32

	splatMaps []*SplatMap

	detailMeshes        []DetailMesh
	detailMeshInstances []DetailMeshInstance

	quadTree *QuadTree
	changed  bool
}

// NewSection allocates an empty section. Call Create or LoadFromStream
// before using it.
func NewSection(params Parameters, sectionX, sectionY int32, lodLevel uint32) *Section {
	s := &Section{
		params:             params,
		sectionX:           sectionX,
		sectionY:           sectionY,
		lodLevel:           lodLevel,
		pointCount:         params.PointCount(lodLevel),
		heightMapValueSize: params.HeightStorageFormat.ValueSize(),
	}
	s.heightMapRowPitch = params.heightRowPitch(s.pointCount)
	s.heightMap = make([]byte, int(s.heightMapRowPitch)*int(s.pointCount))
	return s
}

// Create fills the section with a uniform height and a single full-weight
// layer, then builds its quadtree.
func (s *Section) Create(baseHeight float32, baseLayer int32) error {
	if s.lodLevel >= s.params.LODCount {
		return fmt.Errorf("%w: section LOD %d with %d LODs", ErrInvalidParameters, s.lodLevel, s.params.LODCount)
	}

	var enc [4]byte
	s.params.EncodeHeight(enc[:], baseHeight)
	for y := uint32(0); y < s.pointCount; y++ {
		row := s.heightMap[y*s.heightMapRowPitch:]
		for x := uint32(0); x < s.pointCount; x++ {
			copy(row[x*s.heightMapValueSize:], enc[:s.heightMapValueSize])
		}
	}

	s.splatMaps = nil
	if baseLayer >= 0 {
		mapIndex, channel, err := s.AllocateLayerInSplatMap(baseLayer)
		if err != nil {
			return err
		}
		s.splatMaps[mapIndex].fill(channel, 255)
	}

	s.detailMeshes = nil
	s.detailMeshInstances = nil
	s.changed = true
	return s.RebuildQuadTree()
}

// SectionX returns the section column.
func (s *Section) SectionX() int32 { return s.sectionX }

// SectionY returns the section row.
func (s *Section) SectionY() int32 { return s.sectionY }

// LODLevel returns the storage resolution tier.
func (s *Section) LODLevel() uint32 { return s.lodLevel }

// PointCount returns the number of samples per edge.
func (s *Section) PointCount() uint32 { return s.pointCount }

// Parameters returns the terrain parameters the section was built with.
func (s *Section) Parameters() Parameters { return s.params }

// QuadTree returns the section's current quadtree. The tree is replaced on
// rebuild, so callers should not hold on to it across edits.
func (s *Section) QuadTree() *QuadTree { return s.quadTree }

// Changed reports whether the section has unsaved modifications.
func (s *Section) Changed() bool { return s.changed }

// ClearChanged resets the dirty flag after the section is persisted.
func (s *Section) ClearChanged() { s.changed = false }

// QuadSize returns the world-space edge length of one quad.
func (s *Section) QuadSize() float32 {
	return s.params.QuadSize(s.lodLevel)
}

// WorldOrigin returns the world position of point (0, 0) at zero height.
func (s *Section) WorldOrigin() math.Vec3 {
	size := s.params.SectionWorldSize()
	return math.Vec3{X: float32(s.sectionX) * size, Y: float32(s.sectionY) * size}
}

// PointPosition returns the world position of a heightfield sample.
func (s *Section) PointPosition(x, y uint32) math.Vec3 {
	o := s.WorldOrigin()
	q := s.QuadSize()
	return math.Vec3{X: o.X + float32(x)*q, Y: o.Y + float32(y)*q, Z: s.HeightMapValue(x, y)}
}

// Bounds returns the section's bounding box, or an empty box without a tree.
func (s *Section) Bounds() math.AABox {
	if root := s.quadTree.Root(); root != nil {
		return root.BoundingBox
	}
	return math.EmptyAABox()
}

func (s *Section) heightOffset(x, y uint32) uint32 {
	return y*s.heightMapRowPitch + x*s.heightMapValueSize
}

// HeightMapValue returns the decoded height at point (x, y).
func (s *Section) HeightMapValue(x, y uint32) float32 {
	off := s.heightOffset(x, y)
	return s.params.DecodeHeight(s.heightMap[off : off+s.heightMapValueSize])
}

// SetHeightMapValue stores a height at point (x, y). It returns false and
// leaves the section untouched when the quantized value is unchanged.
// Widening a flat-collapsed node triggers a synchronous quadtree rebuild.
func (s *Section) SetHeightMapValue(x, y uint32, height float32) bool {
	off := s.heightOffset(x, y)
	dst := s.heightMap[off : off+s.heightMapValueSize]

	var enc [4]byte
	s.params.EncodeHeight(enc[:], height)
	if bytes.Equal(enc[:s.heightMapValueSize], dst) {
		return false
	}

	oldHeight := s.params.DecodeHeight(dst)
	copy(dst, enc[:s.heightMapValueSize])
	newHeight := s.params.DecodeHeight(dst)
	s.changed = true

	if s.quadTree != nil && s.quadTree.UpdateMinMaxHeight(x, y, newHeight, oldHeight) {
		if err := s.RebuildQuadTree(); err != nil {
			logger.Error("quadtree rebuild failed",
				zap.Int32("sectionX", s.sectionX),
				zap.Int32("sectionY", s.sectionY),
				zap.Error(err))
		}
	}
	return true
}

// RawHeightMapData exposes the encoded heightfield for collision builders.
// The slice aliases the section's storage; only values change on edit.
func (s *Section) RawHeightMapData() (data []byte, valueSize, rowPitch uint32) {
	return s.heightMap, s.heightMapValueSize, s.heightMapRowPitch
}

// RebuildQuadTree builds a fresh quadtree, round-trips it through the binary
// format and swaps it in.
func (s *Section) RebuildQuadTree() error {
	start := time.Now()

	tree, err := BuildQuadTree(s, NopProgress())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := tree.WriteTo(&buf); err != nil {
		return fmt.Errorf("serializing quadtree: %w", err)
	}
	loaded, err := ReadQuadTree(&buf)
	if err != nil {
		return fmt.Errorf("reloading quadtree: %w", err)
	}

	rebuild := s.quadTree != nil
	s.quadTree = loaded
	instrumentQuadTreeBuild(rebuild, start)

	logger.Debug("quadtree built",
		zap.Int32("sectionX", s.sectionX),
		zap.Int32("sectionY", s.sectionY),
		zap.Uint32("lod", s.lodLevel),
		zap.Int("nodes", loaded.NodeCount()),
		zap.Bool("rebuild", rebuild))
	return nil
}
