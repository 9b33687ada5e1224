// Package lighting provides the directional light used to shade terrain.
package lighting

import (
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// SunDirection converts an azimuth (degrees clockwise from +Y around +Z) and
// an elevation above the horizon (degrees) to a unit vector pointing at the
// sun.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	az := float64(azimuth) * gomath.Pi / 180
	el := float64(math.Clamp(elevation, 0, 90)) * gomath.Pi / 180
	return math.Vec3{
		X: float32(gomath.Cos(el) * gomath.Sin(az)),
		Y: float32(gomath.Cos(el) * gomath.Cos(az)),
		Z: float32(gomath.Sin(el)),
	}
}
