package world

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/assets"
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func testParams() terrain.Parameters {
	return terrain.Parameters{
		HeightStorageFormat: terrain.HeightStorageFloat32,
		MinHeight:           -100,
		MaxHeight:           100,
		Scale:               1,
		SectionSize:         16,
		LODCount:            3,
	}
}

type releaseLog struct {
	events []string
}

type recorder struct {
	log  *releaseLog
	kind string
}

func (r recorder) Release() { r.log.events = append(r.log.events, r.kind) }

type fixture struct {
	archive  *storage.DirArchive
	loader   *assets.Manager
	entities *StaticEntityLoader
	log      *releaseLog
}

// newFixture bakes one-section regions at the given section columns of row
// zero. Section x has height x.
func newFixture(t *testing.T, columns ...int32) *fixture {
	t.Helper()
	a, err := storage.OpenDir(t.TempDir())
	require.NoError(t, err)

	source, err := mapsource.New(a, testParams())
	require.NoError(t, err)
	for _, x := range columns {
		require.True(t, source.CreateSection(x, 0, float32(x), 0))
	}
	require.NoError(t, source.Save(terrain.NopProgress()))

	_, err = BakeRegions(source, a, BakeOptions{
		Name:       "test",
		RegionSize: 1,
		LODLevels:  3,
		Entities: func(c formats.Coord) []*StaticEntity {
			if c.X != 0 {
				return nil
			}
			return []*StaticEntity{NewStaticEntity("rock", math.Vec3{X: 4, Y: 4}, 0.5)}
		},
	}, terrain.NopProgress())
	require.NoError(t, err)

	loader := assets.NewManager()
	loader.AddArchive(a)
	return &fixture{archive: a, loader: loader, entities: NewStaticEntityLoader(), log: &releaseLog{}}
}

func (f *fixture) load(t *testing.T, radius int32) *Map {
	t.Helper()
	m, err := LoadMap(f.loader, Options{
		LoadRadius: radius,
		CreateRenderProxy: func(s *terrain.Section) Releaser {
			return recorder{f.log, "proxy"}
		},
		BuildCollision: func(s *terrain.Section) (Releaser, error) {
			return recorder{f.log, "collision"}, nil
		},
		Entities: f.entities,
	})
	require.NoError(t, err)
	return m
}

func TestTierForDistance(t *testing.T) {
	tests := []struct {
		distance, radius int32
		levels           int
		want             int
	}{
		{0, 2, 3, 0},
		{2, 2, 3, 0},
		{3, 2, 3, 1},
		{4, 2, 3, 1},
		{16, 2, 3, 2},
		{17, 2, 3, Unloaded},
		{1, 1, 3, 0},
		{2, 1, 3, 1},
		{4, 1, 3, 2},
		{5, 1, 3, Unloaded},
		{0, 0, 2, 0},
		{2, 0, 2, 1},
		{-1, 2, 3, Unloaded},
		{stdmath.MaxInt32, 2, 40, 5},
		{stdmath.MaxInt32, 1 << 16, 40, 1},
		{stdmath.MaxInt32, stdmath.MaxInt32, 1, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, TierForDistance(tt.distance, tt.radius, tt.levels),
			"distance %d radius %d", tt.distance, tt.radius)
	}
}

func TestLoadMap(t *testing.T) {
	f := newFixture(t, 0, 1)
	m := f.load(t, 2)

	require.Equal(t, "test", m.Header().Name)
	require.Equal(t, testParams(), m.Parameters())
	require.Len(t, m.Regions(), 2)
	require.Equal(t, Unloaded, m.Region(0, 0).LoadedLOD())
	require.Nil(t, m.Region(5, 5))
	require.Equal(t, float32(16), m.RegionWorldSize())
	require.Equal(t, formats.Coord{X: -1, Y: 2}, m.RegionForPosition(math.Vec3{X: -0.5, Y: 40}))
}

func TestLoadMapFailures(t *testing.T) {
	a, err := storage.OpenDir(t.TempDir())
	require.NoError(t, err)
	loader := assets.NewManager()
	loader.AddArchive(a)

	_, err = LoadMap(loader, Options{})
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, a.Write(formats.MapHeaderName, []byte("{")))
	loader.Evict(formats.MapHeaderName)
	_, err = LoadMap(loader, Options{})
	require.ErrorIs(t, err, formats.ErrCorrupt)
}

func TestHandleStreaming(t *testing.T) {
	f := newFixture(t, 0, 1, 3, 17)
	m := f.load(t, 2)

	m.SetObservers(math.Vec3{X: 8, Y: 8})
	require.NoError(t, m.HandleStreaming(terrain.NopProgress()))

	require.Equal(t, 0, m.Region(0, 0).LoadedLOD())
	require.Equal(t, 0, m.Region(1, 0).LoadedLOD())
	require.Equal(t, 1, m.Region(3, 0).LoadedLOD())
	require.Equal(t, Unloaded, m.Region(17, 0).LoadedLOD())

	s := m.Region(3, 0).Sections()[0]
	require.Equal(t, uint32(1), s.LODLevel())
	require.Equal(t, uint32(9), s.PointCount())
	require.Equal(t, float32(3), s.HeightMapValue(4, 4))
	require.Len(t, m.LoadedSections(), 3)
	require.Equal(t, 1, f.entities.Live())

	m.SetObservers(math.Vec3{X: 17*16 + 1, Y: 8})
	require.NoError(t, m.HandleStreaming(terrain.NopProgress()))

	require.Equal(t, 0, m.Region(17, 0).LoadedLOD())
	require.Equal(t, 2, m.Region(3, 0).LoadedLOD())
	require.Equal(t, Unloaded, m.Region(0, 0).LoadedLOD())
	require.Equal(t, 2, m.Region(1, 0).LoadedLOD())
	require.Equal(t, 0, f.entities.Live())

	m.SetObservers()
	require.NoError(t, m.HandleStreaming(terrain.NopProgress()))
	for _, r := range m.Regions() {
		require.Equal(t, Unloaded, r.LoadedLOD())
	}
	require.Empty(t, m.LoadedSections())
}

func TestUnloadRegionReleaseOrder(t *testing.T) {
	f := newFixture(t, 0)
	m := f.load(t, 1)

	require.NoError(t, m.LoadRegion(0, 0, 0))
	require.Len(t, m.Region(0, 0).Entities(), 1)
	e := m.Region(0, 0).Entities()[0].(*StaticEntity)
	require.Equal(t, "rock", e.Name)
	require.Equal(t, math.Vec3{X: 4, Y: 4}, e.Position)
	_, ok := f.entities.Lookup(e.ID())
	require.True(t, ok)

	m.UnloadRegion(m.Region(0, 0))
	require.Equal(t, []string{"collision", "proxy"}, f.log.events)
	require.Equal(t, 0, f.entities.Live())
	require.Empty(t, m.Region(0, 0).Sections())

	m.UnloadRegion(m.Region(0, 0))
	require.Len(t, f.log.events, 2)
}

func TestChangeRegionLODFailureKeepsState(t *testing.T) {
	f := newFixture(t, 0)
	m := f.load(t, 1)

	require.NoError(t, m.LoadRegion(0, 0, 0))
	before := m.Region(0, 0).Sections()

	require.NoError(t, f.archive.Delete(formats.RegionChunkName(0, 0, 1)))
	err := m.LoadRegion(0, 0, 1)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Equal(t, 0, m.Region(0, 0).LoadedLOD())
	require.Equal(t, before, m.Region(0, 0).Sections())
	require.Empty(t, f.log.events)

	require.NoError(t, f.archive.Write(formats.RegionChunkName(0, 0, 2), []byte("TREGgarbage")))
	err = m.LoadRegion(0, 0, 2)
	require.ErrorIs(t, err, formats.ErrCorrupt)
	require.Equal(t, 0, m.Region(0, 0).LoadedLOD())

	require.ErrorIs(t, m.LoadRegion(9, 9, 0), ErrRegionNotFound)
	require.Error(t, m.LoadRegion(0, 0, 5))
}

func TestLoadAllRegionsContinuesPastFailures(t *testing.T) {
	f := newFixture(t, 0, 1, 2)
	m := f.load(t, 1)

	require.NoError(t, f.archive.Delete(formats.RegionChunkName(1, 0, 0)))
	err := m.LoadAllRegions(0, terrain.NopProgress())
	require.Error(t, err)
	require.Equal(t, 0, m.Region(0, 0).LoadedLOD())
	require.Equal(t, Unloaded, m.Region(1, 0).LoadedLOD())
	require.Equal(t, 0, m.Region(2, 0).LoadedLOD())

	m.UnloadAllRegions()
	require.Empty(t, m.LoadedSections())
}

func TestStreamingDoesNotRetryFailedTier(t *testing.T) {
	f := newFixture(t, 0)
	m := f.load(t, 1)
	require.NoError(t, f.archive.Delete(formats.RegionChunkName(0, 0, 0)))

	m.SetObservers(math.Vec3{X: 1, Y: 1})
	require.Error(t, m.HandleStreaming(terrain.NopProgress()))
	require.NoError(t, m.HandleStreaming(terrain.NopProgress()))
	require.Equal(t, Unloaded, m.Region(0, 0).LoadedLOD())
}

func TestMapRayCast(t *testing.T) {
	f := newFixture(t, 0, 1)
	m := f.load(t, 1)
	require.NoError(t, m.LoadAllRegions(0, terrain.NopProgress()))

	hit, s, ok := m.RayCast(math.NewRay(math.Vec3{X: 20, Y: 4, Z: 50}, math.Vec3{Z: -1}))
	require.True(t, ok)
	require.Equal(t, int32(1), s.SectionX())
	require.InDelta(t, 1, float64(hit.Position.Z), 0.001)
}
