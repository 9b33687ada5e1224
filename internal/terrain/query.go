package terrain

import (
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// DrawFlags selects which quadrants of a node to draw.
type DrawFlags uint8

const (
	DrawTopLeft DrawFlags = 1 << iota
	DrawTopRight
	DrawBottomLeft
	DrawBottomRight

	DrawAll = DrawTopLeft | DrawTopRight | DrawBottomLeft | DrawBottomRight
)

// Has reports whether the quadrant flag for child i is set.
func (f DrawFlags) Has(i int) bool {
	return f&(1<<i) != 0
}

// RenderEntry is one node chosen for drawing this frame.
type RenderEntry struct {
	Section   *Section
	Node      int32
	LODLevel  uint32
	DrawFlags DrawFlags
}

// RenderQuery selects quadtree nodes to draw from camera position, frustum
// and per-LOD visibility ranges. A node that is out of range hands its
// quadrant back to the parent, which fills it at its own coarser LOD.
type RenderQuery struct {
	entries  []RenderEntry
	camera   math.Vec3
	frustum  *math.Frustum
	ranges   []float32
	section  *Section
	tree     *QuadTree
	lodShift uint32
}

// DefaultVisibilityRanges returns one range per LOD, starting at baseRange
// for LOD 0 and doubling per level.
func DefaultVisibilityRanges(params Parameters, baseRange float32) []float32 {
	ranges := make([]float32, params.LODCount)
	r := baseRange
	for i := range ranges {
		ranges[i] = r
		r *= 2
	}
	return ranges
}

// Invoke runs the selection over sections and returns the entries in
// section order. The returned slice is reused by the next call. A nil
// frustum treats everything as inside.
func (q *RenderQuery) Invoke(sections []*Section, camera math.Vec3, frustum *math.Frustum, ranges []float32) []RenderEntry {
	q.entries = q.entries[:0]
	q.camera = camera
	q.frustum = frustum
	q.ranges = ranges
	if len(ranges) == 0 {
		return q.entries
	}

	for _, s := range sections {
		root := s.QuadTree().Root()
		if root == nil {
			continue
		}
		inside := frustum == nil
		if !inside {
			switch frustum.ClassifyAABox(root.BoundingBox) {
			case math.Outside:
				continue
			case math.Inside:
				inside = true
			}
		}
		q.section = s
		q.tree = s.QuadTree()
		q.lodShift = s.LODLevel()
		q.processNode(0, inside)
	}
	q.section, q.tree = nil, nil
	return q.entries
}

func (q *RenderQuery) visibilityRange(lod uint32) float32 {
	i := int(lod + q.lodShift)
	if i >= len(q.ranges) {
		i = len(q.ranges) - 1
	}
	return q.ranges[i]
}

func (q *RenderQuery) inRange(n *QuadTreeNode, lod uint32) bool {
	return n.BoundingBox.IntersectsSphere(math.Sphere{Center: q.camera, Radius: q.visibilityRange(lod)})
}

// processNode returns true if the node's area is handled, either drawn or
// culled by the frustum, and false if the parent must fill it.
func (q *RenderQuery) processNode(i int32, parentInside bool) bool {
	n := q.tree.Node(i)

	inside := parentInside
	if !inside {
		switch q.frustum.ClassifyAABox(n.BoundingBox) {
		case math.Outside:
			return true
		case math.Inside:
			inside = true
		}
	}

	if !q.inRange(n, n.LODLevel) {
		return false
	}

	if n.IsLeaf || !q.inRange(n, n.LODLevel-1) {
		q.add(i, n, DrawAll)
		return true
	}

	var flags DrawFlags
	for c, child := range n.Children {
		if child == NoChild {
			continue
		}
		if !q.processNode(child, inside) {
			flags |= 1 << c
		}
	}
	if flags != 0 {
		q.add(i, n, flags)
	}
	return true
}

func (q *RenderQuery) add(i int32, n *QuadTreeNode, flags DrawFlags) {
	q.entries = append(q.entries, RenderEntry{Section: q.section, Node: i, LODLevel: n.LODLevel + q.lodShift, DrawFlags: flags})
}
