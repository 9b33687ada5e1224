package mapsource

import (
	"fmt"
	gomath "math"
	"slices"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// sharedPoint is a section-local view of a global point.
type sharedPoint struct {
	section *terrain.Section
	x, y    uint32
}

// sharedPoints returns every loaded section holding global point (gx, gy):
// the owner plus the left, top and top-left neighbours when the point lies
// on their shared edge. The owner comes first when loaded.
func (d *TerrainData) sharedPoints(gx, gy int32) []sharedPoint {
	sx, sy, ox, oy := d.CalculateSectionAndOffsetForPoint(gx, gy)
	size := d.params.SectionSize

	points := make([]sharedPoint, 0, 4)
	add := func(x, y int32, px, py uint32) {
		if s := d.Section(x, y); s != nil {
			points = append(points, sharedPoint{s, px, py})
		}
	}
	add(sx, sy, ox, oy)
	if ox == 0 {
		add(sx-1, sy, size, oy)
	}
	if oy == 0 {
		add(sx, sy-1, ox, size)
	}
	if ox == 0 && oy == 0 {
		add(sx-1, sy-1, size, size)
	}
	return points
}

// PointHeight returns the height at a global point from any loaded section
// holding it.
func (d *TerrainData) PointHeight(gx, gy int32) (float32, bool) {
	points := d.sharedPoints(gx, gy)
	if len(points) == 0 {
		return 0, false
	}
	p := points[0]
	return p.section.HeightMapValue(p.x, p.y), true
}

// SetPointHeight writes a height to a global point and to the matching
// edge points of loaded neighbours. Unloaded neighbours are skipped. It
// returns whether any section changed.
func (d *TerrainData) SetPointHeight(gx, gy int32, height float32) bool {
	changed := false
	for _, p := range d.sharedPoints(gx, gy) {
		if !p.section.SetHeightMapValue(p.x, p.y, height) {
			continue
		}
		changed = true
		instrumentPointEdit(editHeight)
		d.emit(EditEvent{
			Kind:     SectionPointHeightModified,
			SectionX: p.section.SectionX(),
			SectionY: p.section.SectionY(),
			PointX:   p.x,
			PointY:   p.y,
			Section:  p.section,
		})
	}
	return changed
}

// PointLayerWeight returns a layer weight at a global point.
func (d *TerrainData) PointLayerWeight(gx, gy int32, layer int32) (float32, bool) {
	points := d.sharedPoints(gx, gy)
	if len(points) == 0 {
		return 0, false
	}
	p := points[0]
	return p.section.SplatMapValue(p.x, p.y, layer), true
}

// SetPointLayerWeight sets a layer weight at a global point, renormalizing
// the other layers, and mirrors it to loaded neighbours. A section whose
// layer set changed reports SectionLayersModified instead of a point event.
func (d *TerrainData) SetPointLayerWeight(gx, gy int32, layer int32, weight float32) bool {
	changed := false
	for _, p := range d.sharedPoints(gx, gy) {
		before := p.section.UsedLayers()
		if !p.section.SetSplatMapValue(p.x, p.y, layer, weight, true) {
			continue
		}
		changed = true
		instrumentPointEdit(editLayer)

		e := EditEvent{
			Kind:     SectionPointLayersModified,
			SectionX: p.section.SectionX(),
			SectionY: p.section.SectionY(),
			PointX:   p.x,
			PointY:   p.y,
			Section:  p.section,
		}
		if !slices.Equal(before, p.section.UsedLayers()) {
			e.Kind = SectionLayersModified
			e.PointX, e.PointY = 0, 0
		}
		d.emit(e)
	}
	return changed
}

// FilterLayers drops weights below threshold across every loaded section.
func (d *TerrainData) FilterLayers(threshold float32) int {
	n := 0
	for _, s := range d.loaded {
		if s.FilterSplatMapValues(threshold, true) {
			n++
			d.emit(EditEvent{Kind: SectionLayersModified, SectionX: s.SectionX(), SectionY: s.SectionY(), Section: s})
		}
	}
	return n
}

// Falloff shapes a brush from its centre to its radius.
type Falloff uint8

const (
	FalloffConstant Falloff = iota
	FalloffLinear
	FalloffSmooth
)

// ParseFalloff parses a falloff name.
func ParseFalloff(s string) (Falloff, error) {
	switch s {
	case "constant":
		return FalloffConstant, nil
	case "linear":
		return FalloffLinear, nil
	case "", "smooth":
		return FalloffSmooth, nil
	}
	return 0, fmt.Errorf("unknown falloff %q", s)
}

// weight returns the brush weight at normalized distance t in [0, 1].
func (f Falloff) weight(t float32) float32 {
	switch f {
	case FalloffLinear:
		return 1 - t
	case FalloffSmooth:
		s := 1 - t
		return s * s * (3 - 2*s)
	default:
		return 1
	}
}

// brushPoints calls fn for every global point within radius of center on
// the XY plane, with its falloff weight.
func (d *TerrainData) brushPoints(center math.Vec3, radius float32, falloff Falloff, fn func(gx, gy int32, w float32)) {
	scale := float32(d.params.Scale)
	minX := int32(gomath.Ceil(float64((center.X - radius) / scale)))
	maxX := int32(gomath.Floor(float64((center.X + radius) / scale)))
	minY := int32(gomath.Ceil(float64((center.Y - radius) / scale)))
	maxY := int32(gomath.Floor(float64((center.Y + radius) / scale)))

	for gy := minY; gy <= maxY; gy++ {
		for gx := minX; gx <= maxX; gx++ {
			p := math.Vec2{X: float32(gx) * scale, Y: float32(gy) * scale}
			dist := p.Distance(center.XY())
			if dist > radius {
				continue
			}
			t := float32(0)
			if radius > 0 {
				t = dist / radius
			}
			fn(gx, gy, falloff.weight(t))
		}
	}
}

// ApplyHeightBrush raises (or with negative strength lowers) the terrain
// around center and returns the number of points changed. Detail meshes on
// touched sections are re-seated.
func (d *TerrainData) ApplyHeightBrush(center math.Vec3, radius, strength float32, falloff Falloff) int {
	touched := map[*terrain.Section]struct{}{}
	n := 0
	d.brushPoints(center, radius, falloff, func(gx, gy int32, w float32) {
		h, ok := d.PointHeight(gx, gy)
		if !ok || terrain.IsHole(h) {
			return
		}
		if d.SetPointHeight(gx, gy, h+strength*w) {
			n++
			for _, p := range d.sharedPoints(gx, gy) {
				touched[p.section] = struct{}{}
			}
		}
	})
	for s := range touched {
		s.UpdateDetailMeshInstances()
	}
	return n
}

// ApplyLayerBrush paints a layer around center and returns the number of
// points changed. The painted weight is scaled by the falloff.
func (d *TerrainData) ApplyLayerBrush(center math.Vec3, radius float32, layer int32, weight float32, falloff Falloff) int {
	n := 0
	d.brushPoints(center, radius, falloff, func(gx, gy int32, w float32) {
		current, ok := d.PointLayerWeight(gx, gy, layer)
		if !ok {
			return
		}
		target := current + (weight-current)*w
		if d.SetPointLayerWeight(gx, gy, layer, target) {
			n++
		}
	})
	return n
}

// RayHit is a terrain hit with the section that was struck.
type RayHit struct {
	terrain.RayHit
	SectionX int32
	SectionY int32
}

// RayCast intersects a ray with every loaded section and returns the
// closest hit.
func (d *TerrainData) RayCast(ray math.Ray, exitAtFirstIntersection bool) (RayHit, bool) {
	var best RayHit
	found := false
	for _, s := range d.loaded {
		if _, _, hit := ray.IntersectAABox(s.Bounds()); !hit {
			continue
		}
		h, ok := s.RayCast(ray, exitAtFirstIntersection)
		if !ok || (found && h.Distance >= best.Distance) {
			continue
		}
		best = RayHit{RayHit: h, SectionX: s.SectionX(), SectionY: s.SectionY()}
		found = true
		if exitAtFirstIntersection {
			break
		}
	}
	return best, found
}
