package lighting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSunDirection(t *testing.T) {
	up := SunDirection(123, 90)
	require.InDelta(t, 1, float64(up.Z), 1e-6)

	north := SunDirection(0, 0)
	require.InDelta(t, 1, float64(north.Y), 1e-6)
	require.InDelta(t, 0, float64(north.Z), 1e-6)

	east := SunDirection(90, 0)
	require.InDelta(t, 1, float64(east.X), 1e-6)

	d := SunDirection(37, 52)
	require.InDelta(t, 1, float64(d.Length()), 1e-5)

	// Elevation below the horizon is clamped.
	require.Equal(t, SunDirection(10, 0), SunDirection(10, -30))
}
