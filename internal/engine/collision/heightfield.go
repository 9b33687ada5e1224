// Package collision builds heightfield collision shapes over terrain
// sections.
package collision

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// ErrNoHeightData is returned for sections without a heightfield.
var ErrNoHeightData = errors.New("section has no height data")

// Heightfield is a collision shape reading a section's encoded heights in
// place. Edits to the section are visible without a rebuild.
type Heightfield struct {
	builder *HeightfieldBuilder

	params     terrain.Parameters
	data       []byte
	valueSize  uint32
	rowPitch   uint32
	pointCount uint32
	origin     math.Vec3
	quad       float32
	bounds     math.AABox

	released atomic.Bool
}

// HeightfieldBuilder creates heightfields and counts the live ones.
type HeightfieldBuilder struct {
	live atomic.Int64
}

// NewHeightfieldBuilder returns a builder.
func NewHeightfieldBuilder() *HeightfieldBuilder {
	return &HeightfieldBuilder{}
}

// BuildHeightfield wraps a section's raw height data.
func (b *HeightfieldBuilder) BuildHeightfield(s *terrain.Section) (*Heightfield, error) {
	data, valueSize, rowPitch := s.RawHeightMapData()
	n := s.PointCount()
	if len(data) == 0 || uint32(len(data)) < rowPitch*(n-1)+valueSize*n {
		return nil, fmt.Errorf("%w: section (%d, %d)", ErrNoHeightData, s.SectionX(), s.SectionY())
	}

	h := &Heightfield{
		builder:    b,
		params:     s.Parameters(),
		data:       data,
		valueSize:  valueSize,
		rowPitch:   rowPitch,
		pointCount: n,
		origin:     s.WorldOrigin(),
		quad:       s.QuadSize(),
		bounds:     s.Bounds(),
	}
	b.live.Add(1)
	logger.Debug("heightfield built",
		zap.Int32("sectionX", s.SectionX()),
		zap.Int32("sectionY", s.SectionY()),
		zap.Uint32("points", n))
	return h, nil
}

// Live returns the number of heightfields built and not released.
func (b *HeightfieldBuilder) Live() int { return int(b.live.Load()) }

// Bounds returns the section bounds at build time.
func (h *Heightfield) Bounds() math.AABox { return h.bounds }

func (h *Heightfield) height(x, y uint32) float32 {
	off := y*h.rowPitch + x*h.valueSize
	return h.params.DecodeHeight(h.data[off : off+h.valueSize])
}

// HeightAt returns the bilinear height at a world XY position. It reports
// false outside the section, over a hole or after Release.
func (h *Heightfield) HeightAt(x, y float32) (float32, bool) {
	if h.released.Load() {
		return 0, false
	}
	fx := (x - h.origin.X) / h.quad
	fy := (y - h.origin.Y) / h.quad
	last := float32(h.pointCount - 1)
	if fx < 0 || fy < 0 || fx > last || fy > last {
		return 0, false
	}

	cx := min(uint32(fx), h.pointCount-2)
	cy := min(uint32(fy), h.pointCount-2)
	tx := math.Clamp(fx-float32(cx), 0, 1)
	ty := math.Clamp(fy-float32(cy), 0, 1)

	h00, h10 := h.height(cx, cy), h.height(cx+1, cy)
	h01, h11 := h.height(cx, cy+1), h.height(cx+1, cy+1)
	if terrain.IsHole(h00) || terrain.IsHole(h10) || terrain.IsHole(h01) || terrain.IsHole(h11) {
		return 0, false
	}

	top := h00*(1-tx) + h10*tx
	bottom := h01*(1-tx) + h11*tx
	return top*(1-ty) + bottom*ty, true
}

// Release drops the shape. Releasing twice is a no-op.
func (h *Heightfield) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.builder.live.Add(-1)
		h.data = nil
	}
}
