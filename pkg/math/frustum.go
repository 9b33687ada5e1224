package math

// Plane is the set of points p with Normal·p + D = 0.
type Plane struct {
	Normal Vec3
	D      float32
}

// Distance returns the signed distance from the plane to p.
func (p Plane) Distance(v Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

func (p Plane) normalize() Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Scale(1 / l), D: p.D / l}
}

// Intersection classifies a volume against a frustum.
type Intersection int

const (
	Outside Intersection = iota
	Intersecting
	Inside
)

// String returns the classification name.
func (i Intersection) String() string {
	switch i {
	case Outside:
		return "Outside"
	case Intersecting:
		return "Intersecting"
	default:
		return "Inside"
	}
}

// Frustum is a view volume bounded by six inward-facing planes.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the frustum planes from a view-projection matrix
// (left, right, bottom, top, near, far).
func FrustumFromMatrix(viewProj Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	mk := func(a Vec4, sign float32, b Vec4) Plane {
		return Plane{
			Normal: Vec3{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			D:      a[3] + sign*b[3],
		}.normalize()
	}
	return Frustum{Planes: [6]Plane{
		mk(r3, 1, r0),
		mk(r3, -1, r0),
		mk(r3, 1, r1),
		mk(r3, -1, r1),
		mk(r3, 1, r2),
		mk(r3, -1, r2),
	}}
}

// ClassifyAABox tests a box against the frustum.
func (f *Frustum) ClassifyAABox(b AABox) Intersection {
	result := Inside
	for _, p := range f.Planes {
		// Corner furthest along the plane normal, and the one opposite it.
		pos, neg := b.Min, b.Max
		if p.Normal.X >= 0 {
			pos.X, neg.X = b.Max.X, b.Min.X
		}
		if p.Normal.Y >= 0 {
			pos.Y, neg.Y = b.Max.Y, b.Min.Y
		}
		if p.Normal.Z >= 0 {
			pos.Z, neg.Z = b.Max.Z, b.Min.Z
		}
		if p.Distance(pos) < 0 {
			return Outside
		}
		if p.Distance(neg) < 0 {
			result = Intersecting
		}
	}
	return result
}

// IntersectsAABox reports whether any part of the box is inside the frustum.
func (f *Frustum) IntersectsAABox(b AABox) bool {
	return f.ClassifyAABox(b) != Outside
}
