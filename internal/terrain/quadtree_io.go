package terrain

import (
	"io"

	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// ReadQuadTree loads a serialized quadtree.
func ReadQuadTree(r io.Reader) (*QuadTree, error) {
	h, records, err := formats.ReadQuadTree(r)
	if err != nil {
		return nil, err
	}
	nodes := make([]QuadTreeNode, len(records))
	for i, rec := range records {
		nodes[i] = QuadTreeNode{
			LODLevel:   rec.LODLevel,
			StartQuadX: rec.StartQuadX,
			StartQuadY: rec.StartQuadY,
			NodeSize:   rec.NodeSize,
			BoundingBox: math.AABox{
				Min: vec3(rec.BoundingBoxMin),
				Max: vec3(rec.BoundingBoxMax),
			},
			BoundingSphere: math.Sphere{
				Center: vec3(rec.BoundingSphereCenter),
				Radius: rec.BoundingSphereRadius,
			},
			Children: rec.ChildNodeIndices,
			IsLeaf:   rec.IsLeafNode != 0,
			IsFlat:   rec.IsFlat != 0,
		}
	}
	return &QuadTree{lodCount: h.LODCount, nodes: nodes}, nil
}

// WriteTo serializes the tree as a header followed by the node array.
func (t *QuadTree) WriteTo(w io.Writer) (int64, error) {
	records := make([]formats.QuadTreeNodeRecord, len(t.nodes))
	for i, n := range t.nodes {
		records[i] = formats.QuadTreeNodeRecord{
			LODLevel:             n.LODLevel,
			StartQuadX:           n.StartQuadX,
			StartQuadY:           n.StartQuadY,
			NodeSize:             n.NodeSize,
			BoundingBoxMin:       array3(n.BoundingBox.Min),
			BoundingBoxMax:       array3(n.BoundingBox.Max),
			BoundingSphereCenter: array3(n.BoundingSphere.Center),
			BoundingSphereRadius: n.BoundingSphere.Radius,
			IsLeafNode:           boolByte(n.IsLeaf),
			IsFlat:               boolByte(n.IsFlat),
			ChildNodeIndices:     n.Children,
		}
	}
	cw := &countingWriter{w: w}
	err := formats.WriteQuadTree(cw, t.lodCount, records)
	return cw.n, err
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func array3(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
