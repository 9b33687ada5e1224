package terrain

import (
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// RayHit is the closest intersection of a ray with a section surface.
type RayHit struct {
	Distance float32
	Position math.Vec3
	QuadX    uint32
	QuadY    uint32
}

// RayCast intersects a ray with the section surface. Only leaves whose box
// the ray enters are tested; flat leaves are tested as a plane. With
// exitAtFirstIntersection the first hit found is returned instead of the
// closest.
func (s *Section) RayCast(ray math.Ray, exitAtFirstIntersection bool) (RayHit, bool) {
	var best RayHit
	found := false

	consider := func(t float32, qx, qy uint32) {
		if !found || t < best.Distance {
			best = RayHit{Distance: t, Position: ray.At(t), QuadX: qx, QuadY: qy}
			found = true
		}
	}

	s.quadTree.EnumerateNodesIntersectingRay(ray, 0, func(_ int32, n *QuadTreeNode) bool {
		if n.IsFlat {
			if t, ok := ray.IntersectPlaneZ(n.BoundingBox.Min.Z); ok {
				p := ray.At(t)
				box := n.BoundingBox
				if p.X >= box.Min.X && p.X <= box.Max.X && p.Y >= box.Min.Y && p.Y <= box.Max.Y {
					qx, qy := s.quadAt(p, n)
					consider(t, qx, qy)
				}
			}
		} else {
			for qy := n.StartQuadY; qy < n.StartQuadY+n.NodeSize; qy++ {
				for qx := n.StartQuadX; qx < n.StartQuadX+n.NodeSize; qx++ {
					if t, ok := s.rayCastQuad(ray, qx, qy); ok {
						consider(t, qx, qy)
					}
				}
			}
		}
		return !(found && exitAtFirstIntersection)
	})
	return best, found
}

// rayCastQuad tests the two triangles of a quad. The diagonal always runs
// from (x, y) to (x+1, y+1).
func (s *Section) rayCastQuad(ray math.Ray, qx, qy uint32) (float32, bool) {
	p00 := s.PointPosition(qx, qy)
	p10 := s.PointPosition(qx+1, qy)
	p01 := s.PointPosition(qx, qy+1)
	p11 := s.PointPosition(qx+1, qy+1)
	if IsHole(p00.Z) || IsHole(p10.Z) || IsHole(p01.Z) || IsHole(p11.Z) {
		return 0, false
	}

	t1, hit1 := ray.IntersectTriangle(p00, p10, p11)
	t2, hit2 := ray.IntersectTriangle(p00, p11, p01)
	switch {
	case hit1 && hit2:
		return min(t1, t2), true
	case hit1:
		return t1, true
	case hit2:
		return t2, true
	}
	return 0, false
}

func (s *Section) quadAt(p math.Vec3, n *QuadTreeNode) (uint32, uint32) {
	o := s.WorldOrigin()
	q := s.QuadSize()
	clampQuad := func(v float32, start uint32) uint32 {
		i := int64(v / q)
		if i < int64(start) {
			i = int64(start)
		}
		if last := int64(start + n.NodeSize - 1); i > last {
			i = last
		}
		return uint32(i)
	}
	return clampQuad(p.X-o.X, n.StartQuadX), clampQuad(p.Y-o.Y, n.StartQuadY)
}
