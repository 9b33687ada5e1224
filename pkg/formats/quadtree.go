package formats

import (
	"fmt"
	"io"
)

// QuadTreeMagic identifies a serialized section quadtree ("TQTR").
const QuadTreeMagic uint32 = 0x52545154

// NoChild marks an absent child in QuadTreeNodeRecord.ChildNodeIndices.
const NoChild int32 = -1

// QuadTreeHeader precedes the node array.
type QuadTreeHeader struct {
	Magic      uint32
	HeaderSize uint32
	LODCount   uint32
	NodeCount  uint32
}

// QuadTreeHeaderSize is the encoded size of QuadTreeHeader.
var QuadTreeHeaderSize = recordSize(QuadTreeHeader{})

// QuadTreeNodeRecord is one node in array order. Children are indices into
// the same array.
type QuadTreeNodeRecord struct {
	LODLevel             uint32
	StartQuadX           uint32
	StartQuadY           uint32
	NodeSize             uint32
	BoundingBoxMin       [3]float32
	BoundingBoxMax       [3]float32
	BoundingSphereCenter [3]float32
	BoundingSphereRadius float32
	IsLeafNode           uint8
	IsFlat               uint8
	_                    [2]uint8
	ChildNodeIndices     [4]int32
}

// ReadQuadTree reads the header and node array, validating magic, header size,
// that every child index points forward inside the array, and that each
// child covers exactly its quadrant of the parent.
func ReadQuadTree(r io.Reader) (QuadTreeHeader, []QuadTreeNodeRecord, error) {
	var h QuadTreeHeader
	if err := readRecord(r, &h, "quadtree header"); err != nil {
		return h, nil, err
	}
	if h.Magic != QuadTreeMagic {
		return h, nil, fmt.Errorf("%w: quadtree 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.HeaderSize != QuadTreeHeaderSize {
		return h, nil, fmt.Errorf("%w: quadtree %d, want %d", ErrInvalidHeaderSize, h.HeaderSize, QuadTreeHeaderSize)
	}
	if h.NodeCount == 0 || h.LODCount == 0 || h.LODCount > 32 {
		return h, nil, fmt.Errorf("%w: quadtree with %d nodes and %d LODs", ErrCorrupt, h.NodeCount, h.LODCount)
	}

	// A complete quadtree of LODCount levels bounds the node count.
	var maxNodes uint64
	for i := uint32(0); i < h.LODCount; i++ {
		maxNodes += uint64(1) << (2 * i)
	}
	if uint64(h.NodeCount) > maxNodes {
		return h, nil, fmt.Errorf("%w: %d nodes exceed %d", ErrCorrupt, h.NodeCount, maxNodes)
	}

	nodes := make([]QuadTreeNodeRecord, h.NodeCount)
	if err := readRecord(r, nodes, "quadtree nodes"); err != nil {
		return h, nil, err
	}

	root := &nodes[0]
	if root.LODLevel != h.LODCount-1 || root.StartQuadX != 0 || root.StartQuadY != 0 ||
		root.NodeSize == 0 || root.NodeSize%(1<<root.LODLevel) != 0 {
		return h, nil, fmt.Errorf("%w: root at (%d, %d) size %d LOD %d", ErrCorrupt,
			root.StartQuadX, root.StartQuadY, root.NodeSize, root.LODLevel)
	}

	parented := make([]bool, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if n.LODLevel >= h.LODCount {
			return h, nil, fmt.Errorf("%w: node %d has LOD %d", ErrCorrupt, i, n.LODLevel)
		}
		if i > 0 && !parented[i] {
			return h, nil, fmt.Errorf("%w: node %d has no parent", ErrCorrupt, i)
		}
		half := n.NodeSize / 2
		for q, c := range n.ChildNodeIndices {
			if c == NoChild {
				continue
			}
			if c <= int32(i) || c >= int32(h.NodeCount) || parented[c] {
				return h, nil, fmt.Errorf("%w: node %d -> %d", ErrInvalidChildIndex, i, c)
			}
			parented[c] = true
			child := &nodes[c]
			if child.LODLevel+1 != n.LODLevel {
				return h, nil, fmt.Errorf("%w: node %d child %d skips a level", ErrInvalidChildIndex, i, c)
			}
			x := n.StartQuadX + uint32(q&1)*half
			y := n.StartQuadY + uint32(q>>1)*half
			if child.StartQuadX != x || child.StartQuadY != y || child.NodeSize != half {
				return h, nil, fmt.Errorf("%w: node %d child %d covers (%d, %d) size %d, want (%d, %d) size %d",
					ErrCorrupt, i, c, child.StartQuadX, child.StartQuadY, child.NodeSize, x, y, half)
			}
		}
	}
	return h, nodes, nil
}

// WriteQuadTree writes a header and node array.
func WriteQuadTree(w io.Writer, lodCount uint32, nodes []QuadTreeNodeRecord) error {
	h := QuadTreeHeader{
		Magic:      QuadTreeMagic,
		HeaderSize: QuadTreeHeaderSize,
		LODCount:   lodCount,
		NodeCount:  uint32(len(nodes)),
	}
	if err := writeRecord(w, h, "quadtree header"); err != nil {
		return err
	}
	return writeRecord(w, nodes, "quadtree nodes")
}
