package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Z axis
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 0, Z: 1}, float32(math.Pi/2))

	expectedW := float32(math.Cos(math.Pi / 4))
	expectedZ := float32(math.Sin(math.Pi / 4))

	if math.Abs(float64(q.W-expectedW)) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(float64(q.Z-expectedZ)) > 0.001 {
		t.Errorf("QuatFromAxisAngle Z: expected %v, got %v", expectedZ, q.Z)
	}

	r := q.Rotate(Vec3{1, 0, 0})
	if abs(r.X) > 0.001 || abs(r.Y-1) > 0.001 {
		t.Errorf("rotating +X by 90 degrees around Z: got %v, want (0,1,0)", r)
	}
}

func TestQuatFromTo(t *testing.T) {
	tests := []struct {
		name string
		to   Vec3
	}{
		{"same", Vec3{0, 0, 1}},
		{"tilted", Vec3{1, 0, 1}.Normalize()},
		{"sideways", Vec3{0, 1, 0}},
		{"opposite", Vec3{0, 0, -1}},
	}

	up := Vec3{0, 0, 1}
	for _, tc := range tests {
		got := QuatFromTo(up, tc.to).Rotate(up)
		if got.Sub(tc.to).Length() > 0.001 {
			t.Errorf("%s: rotated +Z = %v, want %v", tc.name, got, tc.to)
		}
	}
}
