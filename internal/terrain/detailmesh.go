package terrain

import (
	"fmt"
	gomath "math"
	"math/rand/v2"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// DetailMesh is a small decoration mesh scattered over a section.
type DetailMesh struct {
	Name         string
	DrawDistance float32
}

// DetailMeshInstance places one detail mesh on the surface.
type DetailMeshInstance struct {
	MeshIndex uint32
	Position  math.Vec3
	Rotation  math.Quat
}

var up = math.Vec3{Z: 1}

// DetailMeshes returns the section's detail mesh definitions.
func (s *Section) DetailMeshes() []DetailMesh { return s.detailMeshes }

// DetailMeshInstances returns the placed detail mesh instances.
func (s *Section) DetailMeshInstances() []DetailMeshInstance { return s.detailMeshInstances }

// AddDetailMesh registers a detail mesh and returns its index. A mesh with
// the same name is reused.
func (s *Section) AddDetailMesh(name string, drawDistance float32) uint32 {
	for i, m := range s.detailMeshes {
		if m.Name == name {
			return uint32(i)
		}
	}
	s.detailMeshes = append(s.detailMeshes, DetailMesh{Name: name, DrawDistance: drawDistance})
	s.changed = true
	return uint32(len(s.detailMeshes) - 1)
}

// AddDetailMeshInstance places an instance at normalized section coordinates,
// standing on the sampled surface and turned by yaw radians about its up axis.
func (s *Section) AddDetailMeshInstance(mesh uint32, nx, ny, yaw float32) error {
	if int(mesh) >= len(s.detailMeshes) {
		return fmt.Errorf("detail mesh %d not defined", mesh)
	}
	h := s.SampleHeightMap(nx, ny)
	if IsHole(h) {
		return fmt.Errorf("detail mesh instance at (%.3f, %.3f) lies in a hole", nx, ny)
	}

	inst := DetailMeshInstance{
		MeshIndex: mesh,
		Position:  s.normalizedToWorld(nx, ny, h),
		Rotation:  surfaceRotation(s.SampleNormal(nx, ny), math.QuatFromAxisAngle(up, yaw)),
	}
	s.detailMeshInstances = append(s.detailMeshInstances, inst)
	s.changed = true
	return nil
}

// ScatterDetailMesh places count instances at random positions and yaws.
// Positions that fall into holes are skipped.
func (s *Section) ScatterDetailMesh(mesh uint32, count int, rng *rand.Rand) (int, error) {
	if int(mesh) >= len(s.detailMeshes) {
		return 0, fmt.Errorf("detail mesh %d not defined", mesh)
	}
	placed := 0
	for range count {
		nx, ny := rng.Float32(), rng.Float32()
		yaw := rng.Float32() * 2 * gomath.Pi
		if err := s.AddDetailMeshInstance(mesh, nx, ny, yaw); err == nil {
			placed++
		}
	}
	return placed, nil
}

// RemoveDetailMeshInstances removes every instance whose normalized
// position lies inside [minX, maxX] x [minY, maxY] and returns the count.
func (s *Section) RemoveDetailMeshInstances(minX, minY, maxX, maxY float32) int {
	kept := s.detailMeshInstances[:0]
	removed := 0
	for _, inst := range s.detailMeshInstances {
		nx, ny := s.worldToNormalized(inst.Position)
		if nx >= minX && nx <= maxX && ny >= minY && ny <= maxY {
			removed++
			continue
		}
		kept = append(kept, inst)
	}
	s.detailMeshInstances = kept
	if removed > 0 {
		s.changed = true
	}
	return removed
}

// UpdateDetailMeshInstances re-seats every instance on the current surface,
// keeping each instance's yaw.
func (s *Section) UpdateDetailMeshInstances() {
	for i := range s.detailMeshInstances {
		inst := &s.detailMeshInstances[i]
		nx, ny := s.worldToNormalized(inst.Position)
		h := s.SampleHeightMap(nx, ny)
		if IsHole(h) {
			continue
		}
		align := math.QuatFromTo(up, inst.Rotation.Rotate(up).Normalize())
		yaw := align.Conjugate().Mul(inst.Rotation)
		inst.Position.Z = h
		inst.Rotation = surfaceRotation(s.SampleNormal(nx, ny), yaw)
	}
}

func surfaceRotation(normal math.Vec3, yaw math.Quat) math.Quat {
	return math.QuatFromTo(up, normal).Mul(yaw).Normalize()
}

func (s *Section) normalizedToWorld(nx, ny, h float32) math.Vec3 {
	o := s.WorldOrigin()
	size := s.params.SectionWorldSize()
	return math.Vec3{X: o.X + nx*size, Y: o.Y + ny*size, Z: h}
}

func (s *Section) worldToNormalized(p math.Vec3) (float32, float32) {
	o := s.WorldOrigin()
	size := s.params.SectionWorldSize()
	return (p.X - o.X) / size, (p.Y - o.Y) / size
}
