package renderer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// indexKey identifies a grid patch: a square of size quads starting at
// (x, y) in a section grid of pointCount points, stepped every step quads.
type indexKey struct {
	pointCount uint32
	x, y       uint32
	size, step uint32
}

type indexRange struct {
	offset, count int
}

// Stats counts the work of the last Update and Draw.
type Stats struct {
	Proxies   int
	Mutations int
	DrawCalls int
	Triangles int
}

// TerrainRenderer owns the section proxies of one device.
type TerrainRenderer struct {
	device GraphicsDevice
	log    *zap.Logger

	proxies map[*terrain.Section]*SectionRenderProxy

	// Patch indices live in one growing list uploaded as a buffer whenever
	// a new patch shape is first drawn.
	indices      []uint32
	indexRanges  map[indexKey]indexRange
	indexBuffer  BufferID
	indicesDirty bool

	releaseMu sync.Mutex
	releasing []*SectionRenderProxy

	query terrain.RenderQuery
	stats Stats
}

// New creates a renderer drawing through device.
func New(device GraphicsDevice) *TerrainRenderer {
	return &TerrainRenderer{
		device:      device,
		log:         logger.Named("renderer"),
		proxies:     make(map[*terrain.Section]*SectionRenderProxy),
		indexRanges: make(map[indexKey]indexRange),
	}
}

// CreateSectionRenderProxy uploads a section and returns its proxy, or nil
// when the device rejects it. A second call for the same section returns
// the existing proxy.
func (r *TerrainRenderer) CreateSectionRenderProxy(lod uint32, s *terrain.Section) *SectionRenderProxy {
	if p, ok := r.proxies[s]; ok && !p.isReleased() {
		return p
	}
	p := &SectionRenderProxy{renderer: r, section: s, lod: lod}
	if err := p.create(r.device); err != nil {
		p.destroy(r.device)
		r.log.Error("creating render proxy failed", p.fields(zap.Error(err))...)
		return nil
	}
	r.proxies[s] = p
	instrumentProxies(len(r.proxies))
	return p
}

// Proxy returns the proxy of a section, or nil.
func (r *TerrainRenderer) Proxy(s *terrain.Section) *SectionRenderProxy {
	return r.proxies[s]
}

// ProxyCount returns the number of live proxies.
func (r *TerrainRenderer) ProxyCount() int { return len(r.proxies) }

func (r *TerrainRenderer) scheduleRelease(p *SectionRenderProxy) {
	r.releaseMu.Lock()
	r.releasing = append(r.releasing, p)
	r.releaseMu.Unlock()
}

// Update runs on the render thread before drawing: released proxies free
// their resources and live proxies apply their queued mutations.
func (r *TerrainRenderer) Update() {
	r.releaseMu.Lock()
	releasing := r.releasing
	r.releasing = nil
	r.releaseMu.Unlock()

	for _, p := range releasing {
		if r.proxies[p.section] == p {
			delete(r.proxies, p.section)
		}
		p.destroy(r.device)
	}

	mutations := 0
	for _, p := range r.proxies {
		mutations += p.update(r.device, r.log)
	}
	r.stats.Proxies = len(r.proxies)
	r.stats.Mutations = mutations
	if len(releasing) > 0 {
		instrumentProxies(len(r.proxies))
	}
}

// Select runs the render query over every proxied section.
func (r *TerrainRenderer) Select(camera math.Vec3, frustum *math.Frustum, ranges []float32) []terrain.RenderEntry {
	sections := make([]*terrain.Section, 0, len(r.proxies))
	for s := range r.proxies {
		sections = append(sections, s)
	}
	return r.query.Invoke(sections, camera, frustum, ranges)
}

// patch returns the index range of a grid patch, appending it on first use.
func (r *TerrainRenderer) patch(k indexKey) indexRange {
	if ir, ok := r.indexRanges[k]; ok {
		return ir
	}
	step := min(k.step, k.size)
	ir := indexRange{offset: len(r.indices)}
	for y := k.y; y < k.y+k.size; y += step {
		for x := k.x; x < k.x+k.size; x += step {
			i00 := y*k.pointCount + x
			i10 := i00 + step
			i01 := i00 + step*k.pointCount
			i11 := i01 + step
			// Split along (x, y)-(x+1, y+1) to match ray casts.
			r.indices = append(r.indices, i00, i11, i10, i00, i01, i11)
		}
	}
	ir.count = len(r.indices) - ir.offset
	r.indexRanges[k] = ir
	r.indicesDirty = true
	return ir
}

func (r *TerrainRenderer) uploadIndices() bool {
	if !r.indicesDirty {
		return true
	}
	if r.indexBuffer != 0 {
		r.device.DeleteBuffer(r.indexBuffer)
		r.indexBuffer = 0
	}
	id, err := r.device.CreateIndexBuffer(r.indices)
	if err != nil {
		r.log.Error("index buffer upload failed", zap.Int("indices", len(r.indices)), zap.Error(err))
		return false
	}
	r.indexBuffer = id
	r.indicesDirty = false
	return true
}

type patchDraw struct {
	proxy *SectionRenderProxy
	lod   uint32
	r     indexRange
}

// Draw issues one draw per DrawAll entry and one per set quadrant bit
// otherwise. Entries without a proxy are skipped. It returns the number of
// draw calls.
func (r *TerrainRenderer) Draw(entries []terrain.RenderEntry, viewProj math.Mat4, camera math.Vec3) int {
	draws := make([]patchDraw, 0, len(entries))
	for _, e := range entries {
		p := r.proxies[e.Section]
		if p == nil || p.vertexBuffer == 0 {
			continue
		}
		tree := e.Section.QuadTree()
		if e.Node < 0 || int(e.Node) >= tree.NodeCount() {
			continue
		}
		n := tree.Node(e.Node)
		key := indexKey{pointCount: e.Section.PointCount(), step: 1 << n.LODLevel}
		if e.DrawFlags == terrain.DrawAll {
			key.x, key.y, key.size = n.StartQuadX, n.StartQuadY, n.NodeSize
			draws = append(draws, patchDraw{p, e.LODLevel, r.patch(key)})
			continue
		}
		for i := range 4 {
			if !e.DrawFlags.Has(i) {
				continue
			}
			key.x, key.y, key.size = n.Quadrant(i)
			draws = append(draws, patchDraw{p, e.LODLevel, r.patch(key)})
		}
	}
	if len(draws) == 0 || !r.uploadIndices() {
		r.stats.DrawCalls, r.stats.Triangles = 0, 0
		return 0
	}

	triangles := 0
	r.device.BeginTerrain(viewProj, camera)
	for _, d := range draws {
		r.device.DrawIndexed(DrawCall{
			VertexBuffer: d.proxy.vertexBuffer,
			IndexBuffer:  r.indexBuffer,
			IndexOffset:  d.r.offset,
			IndexCount:   d.r.count,
			SplatMaps:    d.proxy.splatMaps,
			Origin:       d.proxy.section.WorldOrigin(),
			LODLevel:     d.lod,
		})
		triangles += d.r.count / 3
	}
	r.device.EndTerrain()

	r.stats.DrawCalls, r.stats.Triangles = len(draws), triangles
	instrumentDraw(len(draws), triangles)
	return len(draws)
}

// Stats returns the counters of the last Update and Draw.
func (r *TerrainRenderer) Stats() Stats { return r.stats }

// Close frees every proxy and the shared index buffer.
func (r *TerrainRenderer) Close() {
	r.Update()
	for s, p := range r.proxies {
		p.destroy(r.device)
		delete(r.proxies, s)
	}
	if r.indexBuffer != 0 {
		r.device.DeleteBuffer(r.indexBuffer)
		r.indexBuffer = 0
	}
	instrumentProxies(0)
}
