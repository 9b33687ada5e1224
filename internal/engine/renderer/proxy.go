package renderer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// vertexStride is the float count per vertex: position then normal.
const vertexStride = 6

type mutationKind uint8

const (
	mutationHeight mutationKind = iota
	mutationPointLayers
	mutationLayers
)

type mutation struct {
	kind mutationKind
	x, y uint32
}

// SectionRenderProxy holds the GPU copy of one section. Edit notifications
// only queue a mutation; Update applies the queue on the render pass, so
// bound buffers are never rewritten from the editing thread.
type SectionRenderProxy struct {
	renderer *TerrainRenderer
	section  *terrain.Section
	lod      uint32

	vertexBuffer BufferID
	vertices     []float32
	splatMaps    []TextureID
	splatDescs   []TextureDesc

	mu       sync.Mutex
	pending  []mutation
	released bool
}

// Section returns the proxied section.
func (p *SectionRenderProxy) Section() *terrain.Section { return p.section }

// LODLevel returns the storage LOD the proxy was created for.
func (p *SectionRenderProxy) LODLevel() uint32 { return p.lod }

// OnPointHeightModified queues a vertex refresh around a point.
func (p *SectionRenderProxy) OnPointHeightModified(x, y uint32) {
	p.enqueue(mutation{kind: mutationHeight, x: x, y: y})
}

// OnPointLayersModified queues a splat texture refresh.
func (p *SectionRenderProxy) OnPointLayersModified(x, y uint32) {
	p.enqueue(mutation{kind: mutationPointLayers, x: x, y: y})
}

// OnLayersModified queues a rebuild of every splat texture, for when the
// section's layer set or channel layout changed.
func (p *SectionRenderProxy) OnLayersModified() {
	p.enqueue(mutation{kind: mutationLayers})
}

func (p *SectionRenderProxy) enqueue(m mutation) {
	p.mu.Lock()
	if !p.released {
		p.pending = append(p.pending, m)
	}
	p.mu.Unlock()
}

// Pending returns the number of queued mutations.
func (p *SectionRenderProxy) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Release frees the proxy's GPU resources on the next renderer Update.
func (p *SectionRenderProxy) Release() {
	p.mu.Lock()
	p.released = true
	p.pending = nil
	p.mu.Unlock()
	p.renderer.scheduleRelease(p)
}

func (p *SectionRenderProxy) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func (p *SectionRenderProxy) vertex(x, y uint32) []float32 {
	n := p.section.PointCount()
	off := int(y*n+x) * vertexStride
	return p.vertices[off : off+vertexStride]
}

func (p *SectionRenderProxy) fillVertex(x, y uint32) {
	s := p.section
	pos := s.PointPosition(x, y).Sub(s.WorldOrigin())
	if terrain.IsHole(pos.Z) {
		pos.Z = float32(s.Parameters().MinHeight)
	}
	normal := s.PointNormal(x, y)
	copy(p.vertex(x, y), []float32{pos.X, pos.Y, pos.Z, normal.X, normal.Y, normal.Z})
}

func (p *SectionRenderProxy) create(dev GraphicsDevice) error {
	n := p.section.PointCount()
	p.vertices = make([]float32, int(n*n)*vertexStride)
	for y := uint32(0); y < n; y++ {
		for x := uint32(0); x < n; x++ {
			p.fillVertex(x, y)
		}
	}

	id, err := dev.CreateVertexBuffer(p.vertices)
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	p.vertexBuffer = id
	return p.createSplatMaps(dev)
}

func (p *SectionRenderProxy) splatDesc(m *terrain.SplatMap) TextureDesc {
	n := int(p.section.PointCount())
	return TextureDesc{Width: n, Height: n, Channels: int(m.ChannelCount), RowPitch: int(m.RowPitch)}
}

func (p *SectionRenderProxy) createSplatMaps(dev GraphicsDevice) error {
	for _, m := range p.section.SplatMaps() {
		desc := p.splatDesc(m)
		id, err := dev.CreateTexture(desc, m.Data)
		if err != nil {
			return fmt.Errorf("splat texture: %w", err)
		}
		p.splatMaps = append(p.splatMaps, id)
		p.splatDescs = append(p.splatDescs, desc)
	}
	return nil
}

func (p *SectionRenderProxy) deleteSplatMaps(dev GraphicsDevice) {
	for _, id := range p.splatMaps {
		dev.DeleteTexture(id)
	}
	p.splatMaps = nil
	p.splatDescs = nil
}

func (p *SectionRenderProxy) destroy(dev GraphicsDevice) {
	if p.vertexBuffer != 0 {
		dev.DeleteBuffer(p.vertexBuffer)
		p.vertexBuffer = 0
	}
	p.deleteSplatMaps(dev)
	p.vertices = nil
}

// update drains the mutation queue. It returns the number of mutations
// applied.
func (p *SectionRenderProxy) update(dev GraphicsDevice, log *zap.Logger) int {
	p.mu.Lock()
	queue := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(queue) == 0 {
		return 0
	}

	n := p.section.PointCount()
	dirtyLo, dirtyHi := -1, -1
	splatsDirty, layoutDirty := false, false

	for _, m := range queue {
		switch m.kind {
		case mutationHeight:
			// Neighbour normals depend on this height too.
			x0, y0 := max(int(m.x)-1, 0), max(int(m.y)-1, 0)
			x1, y1 := min(int(m.x)+1, int(n)-1), min(int(m.y)+1, int(n)-1)
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					p.fillVertex(uint32(x), uint32(y))
				}
			}
			lo, hi := y0*int(n)+x0, y1*int(n)+x1
			if dirtyLo < 0 || lo < dirtyLo {
				dirtyLo = lo
			}
			dirtyHi = max(dirtyHi, hi)
		case mutationPointLayers:
			splatsDirty = true
		case mutationLayers:
			layoutDirty = true
		}
	}

	if dirtyLo >= 0 {
		data := p.vertices[dirtyLo*vertexStride : (dirtyHi+1)*vertexStride]
		if err := dev.UpdateVertexBuffer(p.vertexBuffer, dirtyLo*vertexStride, data); err != nil {
			log.Error("vertex upload failed", p.fields(zap.Error(err))...)
		}
	}

	maps := p.section.SplatMaps()
	if !layoutDirty && len(maps) != len(p.splatMaps) {
		layoutDirty = true
	}
	switch {
	case layoutDirty:
		p.deleteSplatMaps(dev)
		if err := p.createSplatMaps(dev); err != nil {
			log.Error("splat texture rebuild failed", p.fields(zap.Error(err))...)
		}
	case splatsDirty:
		for i, m := range maps {
			desc := p.splatDesc(m)
			if desc != p.splatDescs[i] {
				p.deleteSplatMaps(dev)
				if err := p.createSplatMaps(dev); err != nil {
					log.Error("splat texture rebuild failed", p.fields(zap.Error(err))...)
				}
				break
			}
			if err := dev.UpdateTexture(p.splatMaps[i], desc, m.Data); err != nil {
				log.Error("splat upload failed", p.fields(zap.Error(err))...)
			}
		}
	}
	return len(queue)
}

func (p *SectionRenderProxy) fields(extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.Int32("sectionX", p.section.SectionX()),
		zap.Int32("sectionY", p.section.SectionY()),
		zap.Uint32("lod", p.lod),
	}, extra...)
}
