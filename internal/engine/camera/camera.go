// Package camera provides the viewer's orbit camera. World space is Z-up.
package camera

import (
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// OrbitCamera orbits around a focus point on the terrain.
type OrbitCamera struct {
	Center math.Vec3

	Distance float32
	Pitch    float32 // elevation above the XY plane, radians
	Yaw      float32 // rotation around +Z, radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32

	FovY      float32
	Near, Far float32
	Aspect    float32
}

// NewOrbitCamera creates an orbit camera with viewer defaults.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        200.0,
		Pitch:           0.6,
		MinDistance:     5.0,
		MaxDistance:     20000.0,
		MinPitch:        0.05,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            float32(gomath.Pi / 3),
		Near:            1.0,
		Far:             50000.0,
		Aspect:          16.0 / 9.0,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp, sp := gomath.Cos(float64(c.Pitch)), gomath.Sin(float64(c.Pitch))
	cy, sy := gomath.Cos(float64(c.Yaw)), gomath.Sin(float64(c.Yaw))
	return c.Center.Add(math.Vec3{
		X: c.Distance * float32(cp*cy),
		Y: c.Distance * float32(cp*sy),
		Z: c.Distance * float32(sp),
	})
}

// ViewMatrix returns the view matrix.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Z: 1})
}

// ProjectionMatrix returns the perspective projection.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// Frustum returns the view frustum used for render selection.
func (c *OrbitCamera) Frustum() math.Frustum {
	return math.FrustumFromMatrix(c.ViewProjection())
}

// SetViewport updates the aspect ratio.
func (c *OrbitCamera) SetViewport(width, height int) {
	if height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// HandleDrag rotates around the center.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = math.Clamp(c.Pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom scales the distance by a scroll delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = math.Clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the center. Speed scales with distance.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	speed := c.Distance * 0.01
	cy, sy := float32(gomath.Cos(float64(c.Yaw))), float32(gomath.Sin(float64(c.Yaw)))

	// The camera looks along -(cy, sy) in XY.
	c.Center.X += (-cy*forward + sy*right) * speed
	c.Center.Y += (-sy*forward - cy*right) * speed
	c.Center.Z += up * speed
}

// FitToBounds frames a bounding box.
func (c *OrbitCamera) FitToBounds(b math.AABox) {
	if b.IsEmpty() {
		return
	}
	c.Center = b.Center()
	size := b.Max.Sub(b.Min)
	c.Distance = math.Clamp(max(size.X, size.Y)*0.6, c.MinDistance, c.MaxDistance)
	c.Pitch = 0.6
	c.Yaw = 0
}
