package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

type fakeDevice struct {
	next     uint32
	buffers  map[BufferID][]float32
	indices  map[BufferID][]uint32
	textures map[TextureID]TextureDesc
	uploads  int
	draws    []DrawCall
	failNext bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		buffers:  make(map[BufferID][]float32),
		indices:  make(map[BufferID][]uint32),
		textures: make(map[TextureID]TextureDesc),
	}
}

func (d *fakeDevice) id() uint32 {
	d.next++
	return d.next
}

func (d *fakeDevice) CreateVertexBuffer(data []float32) (BufferID, error) {
	if d.failNext {
		d.failNext = false
		return 0, errors.New("out of memory")
	}
	id := BufferID(d.id())
	d.buffers[id] = append([]float32(nil), data...)
	return id, nil
}

func (d *fakeDevice) UpdateVertexBuffer(id BufferID, offset int, data []float32) error {
	copy(d.buffers[id][offset:], data)
	d.uploads++
	return nil
}

func (d *fakeDevice) CreateIndexBuffer(data []uint32) (BufferID, error) {
	id := BufferID(d.id())
	d.indices[id] = append([]uint32(nil), data...)
	return id, nil
}

func (d *fakeDevice) DeleteBuffer(id BufferID) {
	delete(d.buffers, id)
	delete(d.indices, id)
}

func (d *fakeDevice) CreateTexture(desc TextureDesc, data []byte) (TextureID, error) {
	id := TextureID(d.id())
	d.textures[id] = desc
	return id, nil
}

func (d *fakeDevice) UpdateTexture(id TextureID, desc TextureDesc, data []byte) error {
	d.uploads++
	return nil
}

func (d *fakeDevice) DeleteTexture(id TextureID) { delete(d.textures, id) }

func (d *fakeDevice) BeginTerrain(viewProj math.Mat4, camera math.Vec3) { d.draws = nil }

func (d *fakeDevice) DrawIndexed(call DrawCall) { d.draws = append(d.draws, call) }

func (d *fakeDevice) EndTerrain() {}

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

func newSection(t *testing.T) *terrain.Section {
	t.Helper()
	s := terrain.NewSection(testParams(), 0, 0, 0)
	require.NoError(t, s.Create(0, 0))
	return s
}

func TestProxyQueuesMutations(t *testing.T) {
	dev := newFakeDevice()
	r := New(dev)
	s := newSection(t)

	p := r.CreateSectionRenderProxy(0, s)
	require.NotNil(t, p)
	require.Same(t, p, r.CreateSectionRenderProxy(0, s))
	require.Len(t, dev.buffers[p.vertexBuffer], 17*17*vertexStride)
	require.Len(t, dev.textures, 1)

	require.True(t, s.SetHeightMapValue(5, 5, 10))
	p.OnPointHeightModified(5, 5)
	require.Equal(t, 1, p.Pending())

	z := func() float32 { return dev.buffers[p.vertexBuffer][(5*17+5)*vertexStride+2] }
	require.Equal(t, float32(0), z())

	r.Update()
	require.Equal(t, 0, p.Pending())
	require.Equal(t, float32(10), z())
	require.Equal(t, 1, r.Stats().Mutations)

	// A new layer grows the splat map from one to two channels.
	require.True(t, s.SetSplatMapValue(2, 2, 7, 0.5, true))
	p.OnLayersModified()
	r.Update()
	require.Len(t, dev.textures, 1)
	for _, desc := range dev.textures {
		require.Equal(t, 2, desc.Channels)
	}

	require.True(t, s.SetSplatMapValue(3, 3, 7, 0.25, true))
	p.OnPointLayersModified(3, 3)
	uploads := dev.uploads
	r.Update()
	require.Equal(t, uploads+1, dev.uploads)
}

func TestProxyRelease(t *testing.T) {
	dev := newFakeDevice()
	r := New(dev)
	p := r.CreateSectionRenderProxy(0, newSection(t))

	p.Release()
	p.OnPointHeightModified(1, 1)
	require.Equal(t, 0, p.Pending())
	require.Equal(t, 1, r.ProxyCount())

	r.Update()
	require.Equal(t, 0, r.ProxyCount())
	require.Empty(t, dev.buffers)
	require.Empty(t, dev.textures)
}

func TestProxyCreateFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failNext = true
	r := New(dev)
	require.Nil(t, r.CreateSectionRenderProxy(0, newSection(t)))
	require.Equal(t, 0, r.ProxyCount())
}

func TestDrawFlatSection(t *testing.T) {
	dev := newFakeDevice()
	r := New(dev)
	s := newSection(t)
	r.CreateSectionRenderProxy(0, s)

	entries := r.Select(math.Vec3{X: 8, Y: 8, Z: 10}, nil, []float32{1000, 2000, 4000})
	require.Len(t, entries, 1)
	require.Equal(t, terrain.DrawAll, entries[0].DrawFlags)

	require.Equal(t, 1, r.Draw(entries, math.Identity(), math.Vec3{}))
	require.Len(t, dev.draws, 1)
	// Root of a flat section: 16 quads stepped by 4.
	require.Equal(t, 4*4*6, dev.draws[0].IndexCount)
	require.Equal(t, 32, r.Stats().Triangles)
}

func TestDrawQuadrants(t *testing.T) {
	dev := newFakeDevice()
	r := New(dev)
	s := newSection(t)
	r.CreateSectionRenderProxy(0, s)

	entries := []terrain.RenderEntry{
		{Section: s, Node: 0, LODLevel: 2, DrawFlags: terrain.DrawTopLeft | terrain.DrawBottomRight},
		{Section: newSection(t), Node: 0, DrawFlags: terrain.DrawAll},
	}
	require.Equal(t, 2, r.Draw(entries, math.Identity(), math.Vec3{}))
	for _, d := range dev.draws {
		require.Equal(t, 2*2*6, d.IndexCount)
	}

	idx := dev.indices[dev.draws[1].IndexBuffer]
	br := idx[dev.draws[1].IndexOffset:]
	// Bottom-right quadrant starts at quad (8, 8).
	require.Equal(t, uint32(8*17+8), br[0])
	require.Equal(t, uint32(12*17+12), br[1])
}

func TestPatchIndices(t *testing.T) {
	r := New(newFakeDevice())
	ir := r.patch(indexKey{pointCount: 17, x: 4, y: 4, size: 4, step: 1})
	require.Equal(t, 4*4*6, ir.count)
	first := r.indices[ir.offset : ir.offset+6]
	require.Equal(t, []uint32{72, 90, 73, 72, 89, 90}, first)

	again := r.patch(indexKey{pointCount: 17, x: 4, y: 4, size: 4, step: 1})
	require.Equal(t, ir, again)

	coarse := r.patch(indexKey{pointCount: 17, x: 0, y: 0, size: 2, step: 4})
	require.Equal(t, 6, coarse.count)
}

func TestTracker(t *testing.T) {
	a, err := storage.OpenDir(t.TempDir())
	require.NoError(t, err)
	data, err := mapsource.New(a, testParams())
	require.NoError(t, err)
	require.True(t, data.CreateSection(0, 0, 0, 0))

	r := New(newFakeDevice())
	tr := Track(r, data)
	require.NotNil(t, tr.Proxy(0, 0))

	require.True(t, data.CreateSection(1, 0, 0, 0))
	require.NotNil(t, tr.Proxy(1, 0))
	require.Equal(t, 2, r.ProxyCount())

	// Shared edge points notify both sections.
	require.True(t, data.SetPointHeight(16, 3, 4))
	require.Equal(t, 1, tr.Proxy(0, 0).Pending())
	require.Equal(t, 1, tr.Proxy(1, 0).Pending())

	require.True(t, data.SetPointLayerWeight(2, 2, 5, 1))
	require.Equal(t, 2, tr.Proxy(0, 0).Pending())

	require.True(t, data.DeleteSection(1, 0))
	require.Nil(t, tr.Proxy(1, 0))
	r.Update()
	require.Equal(t, 1, r.ProxyCount())

	tr.Close()
	r.Update()
	require.Equal(t, 0, r.ProxyCount())
	require.False(t, data.SetPointHeight(100, 100, 1))
}
