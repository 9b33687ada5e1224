package math

import gomath "math"

// Ray is a half-line with origin and normalized direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// NewRay creates a ray, normalizing the direction.
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectAABox tests the ray against a box using the slab method.
// Returns the entry distance (0 when starting inside) and the exit distance.
func (r Ray) IntersectAABox(b AABox) (tNear, tFar float32, hit bool) {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Axis(axis)
		d := r.Direction.Axis(axis)
		lo, hi := b.Min.Axis(axis), b.Max.Axis(axis)
		if d == 0 {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	if tmin < 0 {
		tmin = 0
	}
	return tmin, tmax, true
}

// IntersectTriangle tests the ray against triangle (a, b, c), double sided
// (Moller-Trumbore). Returns the hit distance.
func (r Ray) IntersectTriangle(a, b, c Vec3) (float32, bool) {
	const epsilon = 1e-7

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if det > -epsilon && det < epsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

// IntersectPlaneZ intersects the ray with the horizontal plane Z = z.
func (r Ray) IntersectPlaneZ(z float32) (float32, bool) {
	if gomath.Abs(float64(r.Direction.Z)) < 1e-7 {
		return 0, false
	}
	t := (z - r.Origin.Z) / r.Direction.Z
	if t < 0 {
		return 0, false
	}
	return t, true
}
