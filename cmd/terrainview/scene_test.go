package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/engine/renderer"
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/world"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// nullDevice accepts every upload and draws nothing.
type nullDevice struct {
	next     uint32
	failNext bool
}

func (d *nullDevice) id() uint32 { d.next++; return d.next }

func (d *nullDevice) CreateVertexBuffer([]float32) (renderer.BufferID, error) {
	if d.failNext {
		d.failNext = false
		return 0, errors.New("out of memory")
	}
	return renderer.BufferID(d.id()), nil
}
func (d *nullDevice) UpdateVertexBuffer(renderer.BufferID, int, []float32) error { return nil }
func (d *nullDevice) CreateIndexBuffer([]uint32) (renderer.BufferID, error) {
	return renderer.BufferID(d.id()), nil
}
func (d *nullDevice) DeleteBuffer(renderer.BufferID) {}
func (d *nullDevice) CreateTexture(renderer.TextureDesc, []byte) (renderer.TextureID, error) {
	return renderer.TextureID(d.id()), nil
}
func (d *nullDevice) UpdateTexture(renderer.TextureID, renderer.TextureDesc, []byte) error {
	return nil
}
func (d *nullDevice) DeleteTexture(renderer.TextureID)  {}
func (d *nullDevice) BeginTerrain(math.Mat4, math.Vec3) {}
func (d *nullDevice) DrawIndexed(renderer.DrawCall)     {}
func (d *nullDevice) EndTerrain()                       {}

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

func TestCreateRenderProxyNilIsNilInterface(t *testing.T) {
	dev := &nullDevice{failNext: true}
	sc := newScene(renderer.New(dev))
	s := terrain.NewSection(testParams(), 0, 0, 0)
	require.NoError(t, s.Create(0, 0))

	require.Nil(t, sc.createRenderProxy(s))
	require.NotNil(t, sc.createRenderProxy(s))
}

func TestStreamedScene(t *testing.T) {
	dir := t.TempDir()
	a, err := storage.OpenDir(dir)
	require.NoError(t, err)
	source, err := mapsource.New(a, testParams())
	require.NoError(t, err)
	for x := int32(0); x < 4; x++ {
		require.True(t, source.CreateSection(x, 0, float32(x), 0))
	}
	require.NoError(t, source.Save(terrain.NopProgress()))
	_, err = world.BakeRegions(source, a, world.BakeOptions{RegionSize: 1, LODLevels: 3}, terrain.NopProgress())
	require.NoError(t, err)

	r := renderer.New(&nullDevice{})
	sc := newScene(r)
	require.NoError(t, sc.openStreamed(storage.BackendDir, dir, 1))
	require.False(t, sc.bounds().IsEmpty())

	ctx := context.Background()
	require.NoError(t, sc.update(ctx, math.Vec3{X: 8, Y: 8}))
	require.Equal(t, 4, r.ProxyCount())
	require.Len(t, sc.fields, 4)

	h, ok := sc.groundHeight(math.Vec3{X: 40, Y: 8})
	require.True(t, ok)
	require.InDelta(t, 2, float64(h), 1e-4)

	_, ok = sc.rayCaster().PickTerrain(math.NewRay(math.Vec3{X: 20, Y: 8, Z: 50}, math.Vec3{Z: -1}))
	require.True(t, ok)

	require.NoError(t, sc.close(ctx))
	r.Update()
	require.Equal(t, 0, r.ProxyCount())
	require.Empty(t, sc.fields)
	require.Equal(t, 0, sc.builder.Live())
}

func TestEditableScene(t *testing.T) {
	a, err := storage.OpenDir(t.TempDir())
	require.NoError(t, err)
	source, err := mapsource.New(a, testParams())
	require.NoError(t, err)
	require.True(t, source.CreateSection(0, 0, 1, 0))
	require.NoError(t, source.Save(terrain.NopProgress()))

	r := renderer.New(&nullDevice{})
	sc := newScene(r)
	ctx := context.Background()
	require.NoError(t, sc.openEditable(ctx, a))
	require.Equal(t, 1, r.ProxyCount())

	require.Positive(t, sc.brush(math.Vec3{X: 8, Y: 8}, 3, 2))
	h, ok := sc.groundHeight(math.Vec3{X: 8, Y: 8})
	require.True(t, ok)
	require.InDelta(t, 3, float64(h), 1e-4)

	require.True(t, sc.data.CreateSection(1, 0, 0, 0))
	require.Len(t, sc.fields, 2)
	require.True(t, sc.data.DeleteSection(1, 0))
	require.Len(t, sc.fields, 1)

	require.NoError(t, sc.close(ctx))
}
