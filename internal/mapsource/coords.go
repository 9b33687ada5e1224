package mapsource

import (
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// sectionIndex floors p / size so sections tile across the origin.
func sectionIndex(p, size int32) int32 {
	if p >= 0 {
		return p / size
	}
	return ((p + 1) / size) - 1
}

func (d *TerrainData) sectionSize() int32 {
	return int32(d.params.SectionSize)
}

// CalculateSectionForPoint returns the section owning a global point.
func (d *TerrainData) CalculateSectionForPoint(gx, gy int32) (sx, sy int32) {
	size := d.sectionSize()
	return sectionIndex(gx, size), sectionIndex(gy, size)
}

// CalculateSectionAndOffsetForPoint returns the owning section and the
// point's offset inside it. Offsets are always in [0, SectionSize).
func (d *TerrainData) CalculateSectionAndOffsetForPoint(gx, gy int32) (sx, sy int32, ox, oy uint32) {
	size := d.sectionSize()
	sx, sy = sectionIndex(gx, size), sectionIndex(gy, size)
	return sx, sy, uint32(gx - sx*size), uint32(gy - sy*size)
}

// CalculatePointForSectionAndOffset is the inverse of
// CalculateSectionAndOffsetForPoint.
func (d *TerrainData) CalculatePointForSectionAndOffset(sx, sy int32, ox, oy uint32) (gx, gy int32) {
	size := d.sectionSize()
	return sx*size + int32(ox), sy*size + int32(oy)
}

// CalculatePointForPosition returns the global point nearest a world
// position.
func (d *TerrainData) CalculatePointForPosition(p math.Vec3) (gx, gy int32) {
	scale := float64(d.params.Scale)
	return int32(gomath.Floor(float64(p.X)/scale + 0.5)), int32(gomath.Floor(float64(p.Y)/scale + 0.5))
}

// CalculateSectionForPosition returns the section containing a world
// position.
func (d *TerrainData) CalculateSectionForPosition(p math.Vec3) (sx, sy int32) {
	size := float64(d.params.SectionWorldSize())
	return int32(gomath.Floor(float64(p.X) / size)), int32(gomath.Floor(float64(p.Y) / size))
}

// CalculateSectionAndOffsetForPosition returns the section and local point
// nearest a world position.
func (d *TerrainData) CalculateSectionAndOffsetForPosition(p math.Vec3) (sx, sy int32, ox, oy uint32) {
	gx, gy := d.CalculatePointForPosition(p)
	return d.CalculateSectionAndOffsetForPoint(gx, gy)
}

// CalculatePositionForPoint returns the world position of a global point.
// The height comes from the owning section when loaded and is the base
// height otherwise.
func (d *TerrainData) CalculatePositionForPoint(gx, gy int32) math.Vec3 {
	scale := float32(d.params.Scale)
	pos := math.Vec3{X: float32(gx) * scale, Y: float32(gy) * scale, Z: float32(d.params.BaseHeight)}
	if h, ok := d.PointHeight(gx, gy); ok {
		pos.Z = h
	}
	return pos
}
