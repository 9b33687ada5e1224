package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/assets"
	"github.com/Faultbox/midgard-terrain/internal/engine/collision"
	"github.com/Faultbox/midgard-terrain/internal/engine/picking"
	"github.com/Faultbox/midgard-terrain/internal/engine/renderer"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/world"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// scene is the terrain shown by the viewer: either a baked map streamed
// around the camera or an editable map loaded whole.
type scene struct {
	log      *zap.Logger
	renderer *renderer.TerrainRenderer
	builder  *collision.HeightfieldBuilder
	fields   map[*terrain.Section]*collision.Heightfield

	// Streamed.
	loader   *assets.Manager
	world    *world.Map
	entities *world.StaticEntityLoader
	region   formats.Coord
	streamed bool

	// Editable.
	data    *mapsource.TerrainData
	tracker *renderer.Tracker
}

func newScene(r *renderer.TerrainRenderer) *scene {
	return &scene{
		log:      logger.Named("scene"),
		renderer: r,
		builder:  collision.NewHeightfieldBuilder(),
		fields:   make(map[*terrain.Section]*collision.Heightfield),
	}
}

// heightfieldHandle removes a heightfield from the scene on release.
type heightfieldHandle struct {
	scene   *scene
	section *terrain.Section
	field   *collision.Heightfield
}

func (h heightfieldHandle) Release() {
	if h.scene.fields[h.section] == h.field {
		delete(h.scene.fields, h.section)
	}
	h.field.Release()
}

func (sc *scene) createRenderProxy(s *terrain.Section) world.Releaser {
	p := sc.renderer.CreateSectionRenderProxy(s.LODLevel(), s)
	if p == nil {
		// A nil *SectionRenderProxy would be a non-nil Releaser.
		return nil
	}
	return p
}

func (sc *scene) buildCollision(s *terrain.Section) (world.Releaser, error) {
	f, err := sc.builder.BuildHeightfield(s)
	if err != nil {
		return nil, err
	}
	sc.fields[s] = f
	return heightfieldHandle{scene: sc, section: s, field: f}, nil
}

// openStreamed loads a baked map and streams nothing until the first
// update.
func (sc *scene) openStreamed(backend, path string, loadRadius int32) error {
	sc.loader = assets.NewManager()
	if err := sc.loader.OpenArchive(backend, path); err != nil {
		return err
	}
	sc.entities = world.NewStaticEntityLoader()
	m, err := world.LoadMap(sc.loader, world.Options{
		LoadRadius:        loadRadius,
		CreateRenderProxy: sc.createRenderProxy,
		BuildCollision:    sc.buildCollision,
		Entities:          sc.entities,
	})
	if err != nil {
		sc.loader.Close()
		return err
	}
	sc.world = m
	sc.streamed = true
	sc.region = formats.Coord{X: -1 << 30, Y: -1 << 30}
	return nil
}

// openEditable loads every section of an editable map and mirrors its edits
// onto render proxies and heightfields.
func (sc *scene) openEditable(ctx context.Context, archive storage.Archive) error {
	d, err := mapsource.Open(archive)
	if err != nil {
		return err
	}
	if err := d.LoadAllSections(terrain.NewContextProgress(ctx, sc.log)); err != nil {
		return err
	}
	sc.data = d
	sc.tracker = renderer.Track(sc.renderer, d)
	for _, s := range d.LoadedSections() {
		if f, err := sc.builder.BuildHeightfield(s); err == nil {
			sc.fields[s] = f
		}
	}
	d.Subscribe(sc.onEdit)
	return nil
}

func (sc *scene) onEdit(e mapsource.EditEvent) {
	switch e.Kind {
	case mapsource.SectionCreated, mapsource.SectionLoaded:
		if f, err := sc.builder.BuildHeightfield(e.Section); err == nil {
			sc.fields[e.Section] = f
		}
	case mapsource.SectionDeleted, mapsource.SectionUnloaded:
		if f := sc.fields[e.Section]; f != nil {
			f.Release()
			delete(sc.fields, e.Section)
		}
	}
}

func (sc *scene) parameters() terrain.Parameters {
	if sc.streamed {
		return sc.world.Parameters()
	}
	return sc.data.Parameters()
}

// bounds returns the extent of the terrain for framing the camera.
func (sc *scene) bounds() math.AABox {
	box := math.EmptyAABox()
	if sc.streamed {
		size := sc.world.RegionWorldSize()
		p := sc.parameters()
		for _, r := range sc.world.Regions() {
			lo := math.Vec3{X: float32(r.Coord().X) * size, Y: float32(r.Coord().Y) * size, Z: float32(p.MinHeight)}
			hi := math.Vec3{X: lo.X + size, Y: lo.Y + size, Z: float32(p.MaxHeight)}
			box = box.Merge(math.NewAABox(lo, hi))
		}
		return box
	}
	for _, s := range sc.data.LoadedSections() {
		box = box.Merge(s.Bounds())
	}
	return box
}

// update streams regions around the observer when it changes region.
func (sc *scene) update(ctx context.Context, observer math.Vec3) error {
	if !sc.streamed {
		return nil
	}
	region := sc.world.RegionForPosition(observer)
	if region == sc.region {
		return nil
	}
	sc.region = region
	sc.world.SetObservers(observer)
	err := sc.world.HandleStreaming(terrain.NewContextProgress(ctx, sc.log))
	sc.log.Debug("streamed",
		zap.Int32("regionX", region.X),
		zap.Int32("regionY", region.Y),
		zap.Int("sections", len(sc.world.LoadedSections())),
		zap.Int("entities", sc.entities.Live()))
	return err
}

// groundHeight returns the collision height under p.
func (sc *scene) groundHeight(p math.Vec3) (float32, bool) {
	for _, f := range sc.fields {
		b := f.Bounds()
		if p.X < b.Min.X || p.X > b.Max.X || p.Y < b.Min.Y || p.Y > b.Max.Y {
			continue
		}
		if h, ok := f.HeightAt(p.X, p.Y); ok {
			return h, true
		}
	}
	return 0, false
}

func (sc *scene) rayCaster() picking.RayCaster {
	if sc.streamed {
		return picking.StreamedTerrain{Map: sc.world}
	}
	return picking.EditableTerrain{Data: sc.data}
}

// brush raises or lowers editable terrain at p.
func (sc *scene) brush(p math.Vec3, radius, strength float32) int {
	if sc.streamed {
		return 0
	}
	return sc.data.ApplyHeightBrush(p, radius, strength, mapsource.FalloffSmooth)
}

func (sc *scene) status() string {
	if sc.streamed {
		return fmt.Sprintf("region (%d, %d), %d sections", sc.region.X, sc.region.Y, len(sc.world.LoadedSections()))
	}
	return fmt.Sprintf("%d sections", len(sc.data.LoadedSections()))
}

func (sc *scene) close(ctx context.Context) error {
	if sc.streamed {
		sc.world.UnloadAllRegions()
		return sc.loader.Close()
	}
	sc.tracker.Close()
	for s, f := range sc.fields {
		f.Release()
		delete(sc.fields, s)
	}
	if err := sc.data.Save(terrain.NewContextProgress(ctx, sc.log)); err != nil {
		return err
	}
	return sc.data.Archive().Close()
}
