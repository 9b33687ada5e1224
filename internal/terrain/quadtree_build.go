package terrain

import (
	"slices"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

type quadTreeBuilder struct {
	section  *Section
	origin   math.Vec3
	quad     float32
	nodes    []QuadTreeNode
	progress Progress
}

// BuildQuadTree builds a section's quadtree top-down. Quadrants that are all
// holes get no node, and a node whose four quadrants share one constant
// height becomes a flat leaf.
func BuildQuadTree(s *Section, progress Progress) (*QuadTree, error) {
	lodCount := s.params.LODCount - s.lodLevel

	// Worst case is a complete tree.
	capacity := 0
	for i := range lodCount {
		capacity += 1 << (2 * i)
	}

	b := &quadTreeBuilder{
		section:  s,
		origin:   s.WorldOrigin(),
		quad:     s.QuadSize(),
		nodes:    make([]QuadTreeNode, 0, capacity),
		progress: progress,
	}
	progress.SetRange(capacity)

	quads := s.pointCount - 1
	lo, hi, ok, _ := s.heightRange(0, 0, quads)
	if !ok {
		base := float32(s.params.BaseHeight)
		lo, hi = base, base
	}
	b.addNode(lodCount-1, 0, 0, quads, lo, hi)
	if err := b.split(0); err != nil {
		return nil, err
	}

	return &QuadTree{lodCount: lodCount, nodes: slices.Clip(b.nodes)}, nil
}

func (b *quadTreeBuilder) addNode(lod, x, y, size uint32, lo, hi float32) int32 {
	box := math.AABox{
		Min: math.Vec3{X: b.origin.X + float32(x)*b.quad, Y: b.origin.Y + float32(y)*b.quad, Z: lo},
		Max: math.Vec3{X: b.origin.X + float32(x+size)*b.quad, Y: b.origin.Y + float32(y+size)*b.quad, Z: hi},
	}
	b.nodes = append(b.nodes, QuadTreeNode{
		LODLevel:       lod,
		StartQuadX:     x,
		StartQuadY:     y,
		NodeSize:       size,
		BoundingBox:    box,
		BoundingSphere: box.BoundingSphere(),
		Children:       [4]int32{NoChild, NoChild, NoChild, NoChild},
	})
	return int32(len(b.nodes) - 1)
}

func (b *quadTreeBuilder) split(i int32) error {
	if b.progress.Cancelled() {
		return ErrCancelled
	}
	b.progress.SetValue(len(b.nodes))

	n := b.nodes[i]
	if n.LODLevel == 0 {
		b.nodes[i].IsLeaf = true
		return nil
	}

	var (
		lo, hi [4]float32
		valid  [4]bool
		holes  bool
	)
	flat := true
	for c := range 4 {
		x, y, size := n.Quadrant(c)
		lo[c], hi[c], valid[c], holes = b.section.heightRange(x, y, size)
		if !valid[c] || holes || lo[c] != hi[c] || lo[c] != lo[0] {
			flat = false
		}
	}
	if flat {
		b.nodes[i].IsLeaf = true
		b.nodes[i].IsFlat = true
		return nil
	}

	for c := range 4 {
		if !valid[c] {
			continue
		}
		x, y, size := n.Quadrant(c)
		b.nodes[i].Children[c] = b.addNode(n.LODLevel-1, x, y, size, lo[c], hi[c])
	}
	for _, c := range b.nodes[i].Children {
		if c == NoChild {
			continue
		}
		if err := b.split(c); err != nil {
			return err
		}
	}
	return nil
}

// heightRange returns the min and max height over the points of a quad
// range, shared edges included. ok is false if every point is a hole;
// holes reports whether any point is.
func (s *Section) heightRange(x, y, size uint32) (lo, hi float32, ok, holes bool) {
	for py := y; py <= y+size; py++ {
		for px := x; px <= x+size; px++ {
			h := s.HeightMapValue(px, py)
			if IsHole(h) {
				holes = true
				continue
			}
			if !ok {
				lo, hi, ok = h, h, true
				continue
			}
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi, ok, holes
}
