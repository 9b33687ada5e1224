package renderer

import (
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// Tracker keeps one proxy per loaded section of an editable terrain,
// following its edit events.
type Tracker struct {
	renderer    *TerrainRenderer
	proxies     map[formats.Coord]*SectionRenderProxy
	unsubscribe func()
}

// Track creates proxies for the sections already loaded in data and
// subscribes to its edit events.
func Track(r *TerrainRenderer, data *mapsource.TerrainData) *Tracker {
	t := &Tracker{renderer: r, proxies: make(map[formats.Coord]*SectionRenderProxy)}
	for _, s := range data.LoadedSections() {
		t.create(formats.Coord{X: s.SectionX(), Y: s.SectionY()}, s)
	}
	t.unsubscribe = data.Subscribe(t.handle)
	return t
}

func (t *Tracker) create(c formats.Coord, s *terrain.Section) {
	t.release(c)
	if p := t.renderer.CreateSectionRenderProxy(s.LODLevel(), s); p != nil {
		t.proxies[c] = p
	}
}

func (t *Tracker) handle(e mapsource.EditEvent) {
	c := formats.Coord{X: e.SectionX, Y: e.SectionY}
	switch e.Kind {
	case mapsource.SectionCreated, mapsource.SectionLoaded:
		t.create(c, e.Section)
	case mapsource.SectionDeleted, mapsource.SectionUnloaded:
		t.release(c)
	case mapsource.SectionPointHeightModified:
		if p := t.proxies[c]; p != nil {
			p.OnPointHeightModified(e.PointX, e.PointY)
		}
	case mapsource.SectionPointLayersModified:
		if p := t.proxies[c]; p != nil {
			p.OnPointLayersModified(e.PointX, e.PointY)
		}
	case mapsource.SectionLayersModified:
		if p := t.proxies[c]; p != nil {
			p.OnLayersModified()
		}
	}
}

func (t *Tracker) release(c formats.Coord) {
	if p := t.proxies[c]; p != nil {
		p.Release()
		delete(t.proxies, c)
	}
}

// Proxy returns the proxy of a section, or nil.
func (t *Tracker) Proxy(x, y int32) *SectionRenderProxy {
	return t.proxies[formats.Coord{X: x, Y: y}]
}

// Close unsubscribes and releases every proxy.
func (t *Tracker) Close() {
	t.unsubscribe()
	for c := range t.proxies {
		t.release(c)
	}
}
