package camera

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func TestOrbitPosition(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 10, Y: 20, Z: 5}
	c.Distance = 100
	c.Pitch = 0
	c.Yaw = 0

	p := c.Position()
	require.InDelta(t, 110, float64(p.X), 1e-3)
	require.InDelta(t, 20, float64(p.Y), 1e-3)
	require.InDelta(t, 5, float64(p.Z), 1e-3)

	c.Pitch = float32(gomath.Pi / 2)
	p = c.Position()
	require.InDelta(t, 105, float64(p.Z), 1e-3)
}

func TestDragAndZoomClamp(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	require.Equal(t, c.MaxPitch, c.Pitch)
	c.HandleDrag(0, -1e6)
	require.Equal(t, c.MinPitch, c.Pitch)

	c.HandleZoom(1e6)
	require.Equal(t, c.MinDistance, c.Distance)
}

func TestFrustumContainsCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 50, Y: 50}
	f := c.Frustum()

	around := math.NewAABox(math.Vec3{X: 49, Y: 49, Z: -1}, math.Vec3{X: 51, Y: 51, Z: 1})
	require.True(t, f.IntersectsAABox(around))

	behind := c.Position().Add(c.Position().Sub(c.Center))
	far := math.NewAABox(behind.Sub(math.Vec3{X: 1, Y: 1, Z: 1}), behind.Add(math.Vec3{X: 1, Y: 1, Z: 1}))
	require.False(t, f.IntersectsAABox(far))
}

func TestHandleMovementForward(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 100
	c.HandleMovement(1, 0, 0)
	// Yaw 0 puts the camera on +X, so forward is -X.
	require.Less(t, c.Center.X, float32(0))
	require.InDelta(t, 0, float64(c.Center.Y), 1e-4)
}
