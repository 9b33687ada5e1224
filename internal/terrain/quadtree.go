package terrain

import (
	"cmp"
	"slices"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Child quadrant indices.
const (
	ChildTopLeft = iota
	ChildTopRight
	ChildBottomLeft
	ChildBottomRight
)

// NoChild marks an absent child.
const NoChild int32 = -1

// QuadTreeNode covers a square range of a section's quads.
// LODLevel counts down from LODCount-1 at the root to 0 at full detail.
type QuadTreeNode struct {
	LODLevel       uint32
	StartQuadX     uint32
	StartQuadY     uint32
	NodeSize       uint32
	BoundingBox    math.AABox
	BoundingSphere math.Sphere
	Children       [4]int32
	IsLeaf         bool
	IsFlat         bool
}

// ContainsPoint reports whether a heightfield point lies on or inside the
// node's quad range.
func (n *QuadTreeNode) ContainsPoint(x, y uint32) bool {
	return x >= n.StartQuadX && x <= n.StartQuadX+n.NodeSize &&
		y >= n.StartQuadY && y <= n.StartQuadY+n.NodeSize
}

// ContainsQuad reports whether quad (qx, qy) lies inside the node.
func (n *QuadTreeNode) ContainsQuad(qx, qy uint32) bool {
	return qx >= n.StartQuadX && qx < n.StartQuadX+n.NodeSize &&
		qy >= n.StartQuadY && qy < n.StartQuadY+n.NodeSize
}

// Quadrant returns the start and size of child quadrant i.
func (n *QuadTreeNode) Quadrant(i int) (x, y, size uint32) {
	half := n.NodeSize / 2
	return n.StartQuadX + uint32(i&1)*half, n.StartQuadY + uint32(i>>1)*half, half
}

// QuadTree is a section's LOD hierarchy stored as a node arena. The root is
// node 0 and children always follow their parent.
type QuadTree struct {
	lodCount uint32
	nodes    []QuadTreeNode
}

// LODCount returns the number of levels in the tree.
func (t *QuadTree) LODCount() uint32 { return t.lodCount }

// NodeCount returns the number of nodes.
func (t *QuadTree) NodeCount() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Root returns the root node, or nil for an empty tree.
func (t *QuadTree) Root() *QuadTreeNode {
	if t == nil || len(t.nodes) == 0 {
		return nil
	}
	return &t.nodes[0]
}

// Node returns the node at index i.
func (t *QuadTree) Node(i int32) *QuadTreeNode {
	return &t.nodes[i]
}

// Nodes returns the node arena.
func (t *QuadTree) Nodes() []QuadTreeNode { return t.nodes }

// UpdateMinMaxHeight widens the Z extent of every node containing point
// (x, y) to include newHeight. It reports whether the tree must be rebuilt:
// a flat-collapsed leaf gained variation or a hole, or a former hole gained a
// height where no node exists.
func (t *QuadTree) UpdateMinMaxHeight(x, y uint32, newHeight, oldHeight float32) bool {
	if t.NodeCount() == 0 {
		return false
	}
	if IsHole(newHeight) {
		return !IsHole(oldHeight) && t.inFlatLeaf(0, x, y)
	}
	return t.updateNode(0, x, y, newHeight, IsHole(oldHeight))
}

// inFlatLeaf reports whether a flat leaf touches point (x, y). A hole there
// needs the leaf split.
func (t *QuadTree) inFlatLeaf(i int32, x, y uint32) bool {
	n := &t.nodes[i]
	if !n.ContainsPoint(x, y) {
		return false
	}
	if n.IsLeaf {
		return n.IsFlat
	}
	for _, c := range n.Children {
		if c != NoChild && t.inFlatLeaf(c, x, y) {
			return true
		}
	}
	return false
}

func (t *QuadTree) updateNode(i int32, x, y uint32, h float32, wasHole bool) bool {
	n := &t.nodes[i]
	if !n.ContainsPoint(x, y) {
		return false
	}

	rebuild := false
	if h < n.BoundingBox.Min.Z || h > n.BoundingBox.Max.Z {
		n.BoundingBox.Min.Z = min(n.BoundingBox.Min.Z, h)
		n.BoundingBox.Max.Z = max(n.BoundingBox.Max.Z, h)
		n.BoundingSphere = n.BoundingBox.BoundingSphere()
		if n.IsLeaf && n.LODLevel > 0 {
			rebuild = true
		}
	}
	if n.IsLeaf {
		return rebuild
	}

	for c := range 4 {
		child := n.Children[c]
		if child == NoChild {
			if wasHole {
				qx, qy, size := n.Quadrant(c)
				if x >= qx && x <= qx+size && y >= qy && y <= qy+size {
					rebuild = true
				}
			}
			continue
		}
		if t.updateNode(child, x, y, h, wasHole) {
			rebuild = true
		}
	}
	return rebuild
}

// EnumerateNodesOverlappingBox calls fn for every node overlapping box that
// is either a leaf or at lod. Traversal stops when fn returns false.
func (t *QuadTree) EnumerateNodesOverlappingBox(box math.AABox, lod uint32, fn func(i int32, n *QuadTreeNode) bool) {
	if t.NodeCount() == 0 {
		return
	}
	t.enumerateBox(0, box, lod, fn)
}

func (t *QuadTree) enumerateBox(i int32, box math.AABox, lod uint32, fn func(int32, *QuadTreeNode) bool) bool {
	n := &t.nodes[i]
	if !n.BoundingBox.Intersects(box) {
		return true
	}
	if n.IsLeaf || n.LODLevel <= lod {
		return fn(i, n)
	}
	for _, c := range n.Children {
		if c != NoChild && !t.enumerateBox(c, box, lod, fn) {
			return false
		}
	}
	return true
}

// EnumerateNodesIntersectingRay calls fn, nearest first, for every node the
// ray enters that is either a leaf or at lod. Traversal stops when fn
// returns false.
func (t *QuadTree) EnumerateNodesIntersectingRay(ray math.Ray, lod uint32, fn func(i int32, n *QuadTreeNode) bool) {
	if t.NodeCount() == 0 {
		return
	}
	if _, _, hit := ray.IntersectAABox(t.nodes[0].BoundingBox); !hit {
		return
	}
	t.enumerateRay(0, ray, lod, fn)
}

func (t *QuadTree) enumerateRay(i int32, ray math.Ray, lod uint32, fn func(int32, *QuadTreeNode) bool) bool {
	n := &t.nodes[i]
	if n.IsLeaf || n.LODLevel <= lod {
		return fn(i, n)
	}

	type entry struct {
		index int32
		near  float32
	}
	hits := make([]entry, 0, 4)
	for _, c := range n.Children {
		if c == NoChild {
			continue
		}
		if near, _, hit := ray.IntersectAABox(t.nodes[c].BoundingBox); hit {
			hits = append(hits, entry{c, near})
		}
	}
	slices.SortFunc(hits, func(a, b entry) int { return cmp.Compare(a.near, b.near) })

	for _, e := range hits {
		if !t.enumerateRay(e.index, ray, lod, fn) {
			return false
		}
	}
	return true
}

// LeafContaining returns the index of the leaf covering quad (qx, qy), or
// NoChild when the quad lies in a hole or outside the tree.
func (t *QuadTree) LeafContaining(qx, qy uint32) int32 {
	if t.NodeCount() == 0 || !t.nodes[0].ContainsQuad(qx, qy) {
		return NoChild
	}
	i := int32(0)
	for {
		n := &t.nodes[i]
		if n.IsLeaf {
			return i
		}
		next := NoChild
		for _, c := range n.Children {
			if c != NoChild && t.nodes[c].ContainsQuad(qx, qy) {
				next = c
				break
			}
		}
		if next == NoChild {
			return NoChild
		}
		i = next
	}
}
