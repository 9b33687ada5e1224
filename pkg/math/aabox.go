package math

import "math"

// AABox is an axis-aligned bounding box.
type AABox struct {
	Min Vec3
	Max Vec3
}

// NewAABox creates a box from two corners, sorting each axis.
func NewAABox(a, b Vec3) AABox {
	return AABox{Min: a.Min(b), Max: a.Max(b)}
}

// EmptyAABox returns an inverted box that any Merge will replace.
func EmptyAABox() AABox {
	inf := float32(math.Inf(1))
	return AABox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box encloses nothing.
func (b AABox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the center point of the box.
func (b AABox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extents returns the half-size of the box on each axis.
func (b AABox) Extents() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// MergePoint grows the box to include p.
func (b AABox) MergePoint(p Vec3) AABox {
	return AABox{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Merge grows the box to include other.
func (b AABox) Merge(other AABox) AABox {
	return AABox{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// ContainsPoint reports whether p lies inside or on the box.
func (b AABox) ContainsPoint(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether two boxes overlap (touching counts).
func (b AABox) Intersects(other AABox) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// IntersectsSphere reports whether the sphere touches the box.
func (b AABox) IntersectsSphere(s Sphere) bool {
	closest := s.Center.Max(b.Min).Min(b.Max)
	return closest.Sub(s.Center).LengthSquared() <= s.Radius*s.Radius
}

// BoundingSphere returns the sphere through the box corners.
func (b AABox) BoundingSphere() Sphere {
	return Sphere{Center: b.Center(), Radius: b.Extents().Length()}
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// ContainsPoint reports whether p lies inside or on the sphere.
func (s Sphere) ContainsPoint(p Vec3) bool {
	return p.Sub(s.Center).LengthSquared() <= s.Radius*s.Radius
}
