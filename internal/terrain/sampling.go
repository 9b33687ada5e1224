package terrain

import (
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// gridCell maps a normalized coordinate to the lower sample index of its
// cell and the fractional position inside it.
func (s *Section) gridCell(n float32) (uint32, float32) {
	f := math.Clamp(n, 0, 1) * float32(s.pointCount-1)
	i := uint32(f)
	if i >= s.pointCount-1 {
		i = s.pointCount - 2
	}
	return i, math.Clamp(f-float32(i), 0, 1)
}

// SampleHeightMap returns the bilinearly interpolated height at normalized
// section coordinates. If any of the four samples is a hole the nearest
// sample is returned instead.
func (s *Section) SampleHeightMap(nx, ny float32) float32 {
	x, fx := s.gridCell(nx)
	y, fy := s.gridCell(ny)

	h00 := s.HeightMapValue(x, y)
	h10 := s.HeightMapValue(x+1, y)
	h01 := s.HeightMapValue(x, y+1)
	h11 := s.HeightMapValue(x+1, y+1)

	if IsHole(h00) || IsHole(h10) || IsHole(h01) || IsHole(h11) {
		if fx >= 0.5 {
			x++
		}
		if fy >= 0.5 {
			y++
		}
		return s.HeightMapValue(x, y)
	}

	top := h00*(1-fx) + h10*fx
	bottom := h01*(1-fx) + h11*fx
	return top*(1-fy) + bottom*fy
}

// SampleNormal returns the bilinearly interpolated surface normal at
// normalized section coordinates.
func (s *Section) SampleNormal(nx, ny float32) math.Vec3 {
	x, fx := s.gridCell(nx)
	y, fy := s.gridCell(ny)

	n00 := s.PointNormal(x, y)
	n10 := s.PointNormal(x+1, y)
	n01 := s.PointNormal(x, y+1)
	n11 := s.PointNormal(x+1, y+1)

	top := n00.Lerp(n10, fx)
	bottom := n01.Lerp(n11, fx)
	return top.Lerp(bottom, fy).Normalize()
}

// PointNormal estimates the normal at a sample with central differences,
// falling back to one-sided differences at edges and holes.
func (s *Section) PointNormal(x, y uint32) math.Vec3 {
	h := s.HeightMapValue(x, y)
	if IsHole(h) {
		return math.Vec3{Z: 1}
	}
	q := s.QuadSize()
	dx := s.slope(x, y, h, q, true)
	dy := s.slope(x, y, h, q, false)
	return math.Vec3{X: -dx, Y: -dy, Z: 1}.Normalize()
}

func (s *Section) slope(x, y uint32, h, quad float32, alongX bool) float32 {
	sample := func(o int) (float32, bool) {
		px, py := int(x), int(y)
		if alongX {
			px += o
		} else {
			py += o
		}
		if px < 0 || py < 0 || px >= int(s.pointCount) || py >= int(s.pointCount) {
			return 0, false
		}
		v := s.HeightMapValue(uint32(px), uint32(py))
		return v, !IsHole(v)
	}

	lo, hi := h, h
	span := float32(0)
	if v, ok := sample(-1); ok {
		lo = v
		span += quad
	}
	if v, ok := sample(1); ok {
		hi = v
		span += quad
	}
	if span == 0 {
		return 0
	}
	return (hi - lo) / span
}
