// Package picking turns screen positions into terrain hits.
package picking

import (
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// ScreenToRay converts pixel coordinates to a world-space ray through the
// inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) math.Ray {
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH

	near := unproject(invViewProj, ndcX, ndcY, -1)
	far := unproject(invViewProj, ndcX, ndcY, 1)
	return math.NewRay(near, far.Sub(near))
}

func unproject(inv math.Mat4, x, y, z float32) math.Vec3 {
	p := inv.MulVec4(math.Vec4{x, y, z, 1})
	if p[3] != 0 {
		p[0] /= p[3]
		p[1] /= p[3]
		p[2] /= p[3]
	}
	return math.Vec3{X: p[0], Y: p[1], Z: p[2]}
}

// Hit is a picked terrain point.
type Hit struct {
	Position math.Vec3
	SectionX int32
	SectionY int32
}

// RayCaster is implemented by anything that can ray cast terrain.
type RayCaster interface {
	PickTerrain(ray math.Ray) (Hit, bool)
}

// Pick casts a screen position into the terrain.
func Pick(rc RayCaster, screenX, screenY, viewportW, viewportH float32, viewProj math.Mat4) (Hit, bool) {
	return rc.PickTerrain(ScreenToRay(screenX, screenY, viewportW, viewportH, viewProj.Inverse()))
}

// GroundPlane intersects a ray with the plane Z = z, used when no terrain
// is under the cursor.
func GroundPlane(ray math.Ray, z float32) (math.Vec3, bool) {
	t, ok := ray.IntersectPlaneZ(z)
	if !ok {
		return math.Vec3{}, false
	}
	return ray.At(t), true
}
