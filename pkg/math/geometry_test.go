package math

import (
	"math"
	"testing"
)

func TestAABoxIntersectsSphere(t *testing.T) {
	box := AABox{Min: Vec3{0, 0, 0}, Max: Vec3{10, 10, 10}}

	tests := []struct {
		name   string
		sphere Sphere
		want   bool
	}{
		{"center inside", Sphere{Vec3{5, 5, 5}, 1}, true},
		{"touching face", Sphere{Vec3{15, 5, 5}, 5}, true},
		{"near corner", Sphere{Vec3{12, 12, 12}, 3}, false},
		{"far away", Sphere{Vec3{100, 0, 0}, 10}, false},
	}

	for _, tc := range tests {
		if got := box.IntersectsSphere(tc.sphere); got != tc.want {
			t.Errorf("%s: IntersectsSphere = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAABoxMerge(t *testing.T) {
	b := EmptyAABox()
	if !b.IsEmpty() {
		t.Fatal("EmptyAABox should be empty")
	}
	b = b.MergePoint(Vec3{1, 2, 3}).MergePoint(Vec3{-1, 5, 0})
	want := AABox{Min: Vec3{-1, 2, 0}, Max: Vec3{1, 5, 3}}
	if b != want {
		t.Errorf("merged box = %v, want %v", b, want)
	}
}

func TestFrustumClassify(t *testing.T) {
	// Camera at origin looking down +X, Z up.
	view := LookAt(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 0, 1})
	proj := Perspective(float32(math.Pi/2), 1, 1, 100)
	f := FrustumFromMatrix(proj.Mul(view))

	tests := []struct {
		name string
		box  AABox
		want Intersection
	}{
		{"ahead", AABox{Vec3{10, -1, -1}, Vec3{12, 1, 1}}, Inside},
		{"behind", AABox{Vec3{-12, -1, -1}, Vec3{-10, 1, 1}}, Outside},
		{"straddles near plane", AABox{Vec3{-5, -1, -1}, Vec3{5, 1, 1}}, Intersecting},
		{"beyond far plane", AABox{Vec3{200, -1, -1}, Vec3{210, 1, 1}}, Outside},
	}

	for _, tc := range tests {
		if got := f.ClassifyAABox(tc.box); got != tc.want {
			t.Errorf("%s: ClassifyAABox = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRayIntersectAABox(t *testing.T) {
	box := AABox{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}

	r := NewRay(Vec3{-1, 0.5, 0.5}, Vec3{1, 0, 0})
	near, far, hit := r.IntersectAABox(box)
	if !hit || abs(near-1) > 1e-5 || abs(far-2) > 1e-5 {
		t.Errorf("IntersectAABox = (%v, %v, %v), want (1, 2, true)", near, far, hit)
	}

	miss := NewRay(Vec3{-1, 2, 0.5}, Vec3{1, 0, 0})
	if _, _, hit := miss.IntersectAABox(box); hit {
		t.Error("expected ray to miss box")
	}
}

func TestRayIntersectTriangle(t *testing.T) {
	a, b, c := Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0}

	down := NewRay(Vec3{0.25, 0.25, 5}, Vec3{0, 0, -1})
	d, hit := down.IntersectTriangle(a, b, c)
	if !hit || abs(d-5) > 1e-5 {
		t.Errorf("IntersectTriangle = (%v, %v), want (5, true)", d, hit)
	}

	outside := NewRay(Vec3{0.9, 0.9, 5}, Vec3{0, 0, -1})
	if _, hit := outside.IntersectTriangle(a, b, c); hit {
		t.Error("expected ray to miss triangle")
	}
}
