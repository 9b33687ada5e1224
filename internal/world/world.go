// Package world streams a baked map: regions of terrain sections and
// static entities are paged in at a LOD tier chosen from observer distance.
package world

import (
	"cmp"
	"errors"
	"fmt"
	gomath "math"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/assets"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// ErrRegionNotFound is returned for coordinates the map header does not
// declare.
var ErrRegionNotFound = errors.New("region not found")

// Releaser is a resource owned by a loaded region.
type Releaser interface {
	Release()
}

// Options wires a map to its collaborators. Every hook is optional.
type Options struct {
	// LoadRadius is the region distance of the finest tier.
	LoadRadius int32

	// CreateRenderProxy returns nil when the proxy cannot be created.
	CreateRenderProxy func(s *terrain.Section) Releaser

	BuildCollision func(s *terrain.Section) (Releaser, error)

	Entities EntityLoader

	Logger *zap.Logger
}

// Map is a loaded map header and its region table.
type Map struct {
	header  formats.MapHeader
	params  terrain.Parameters
	loader  *assets.Manager
	opts    Options
	log     *zap.Logger
	regions map[formats.Coord]*Region

	observers []math.Vec3
}

// LoadMap reads the map header through loader and declares its regions.
// Nothing is streamed in until HandleStreaming or LoadRegion is called.
func LoadMap(loader *assets.Manager, opts Options) (*Map, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Named("world")
	}
	if opts.LoadRadius <= 0 {
		opts.LoadRadius = 1
	}

	data, err := loader.Load(formats.MapHeaderName)
	if err != nil {
		return nil, fmt.Errorf("loading map header: %w", err)
	}
	h, err := formats.ParseMapHeader(data)
	if err != nil {
		return nil, err
	}
	params, err := terrain.ParametersFromHeader(&h.Terrain)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", h.Name, err)
	}

	m := &Map{
		header:  *h,
		params:  params,
		loader:  loader,
		opts:    opts,
		log:     opts.Logger.With(zap.String("map", h.Name)),
		regions: make(map[formats.Coord]*Region, len(h.Regions)),
	}
	for _, c := range h.Regions {
		m.regions[c] = &Region{coord: c, loadedLOD: Unloaded, failedLOD: Unloaded}
	}

	m.log.Info("map loaded",
		zap.Stringer("guid", h.GUID),
		zap.Int("regions", len(h.Regions)),
		zap.Int32("regionSize", h.RegionSize),
		zap.Int32("lodLevels", h.RegionLODLevels))
	return m, nil
}

// Header returns the map header.
func (m *Map) Header() formats.MapHeader { return m.header }

// Parameters returns the terrain parameters of the map.
func (m *Map) Parameters() terrain.Parameters { return m.params }

// LODLevels returns the number of region tiers.
func (m *Map) LODLevels() int { return int(m.header.RegionLODLevels) }

// Region returns a declared region or nil.
func (m *Map) Region(x, y int32) *Region {
	return m.regions[formats.Coord{X: x, Y: y}]
}

// Regions returns every declared region in row-major order.
func (m *Map) Regions() []*Region {
	regions := make([]*Region, 0, len(m.regions))
	for _, r := range m.regions {
		regions = append(regions, r)
	}
	slices.SortFunc(regions, func(a, b *Region) int {
		return cmp.Or(cmp.Compare(a.coord.Y, b.coord.Y), cmp.Compare(a.coord.X, b.coord.X))
	})
	return regions
}

// RegionWorldSize returns the world extent of one region on X and Y.
func (m *Map) RegionWorldSize() float32 {
	return float32(m.header.RegionSize) * m.params.SectionWorldSize()
}

// RegionForPosition returns the region coordinate containing a world
// position, whether or not it is declared.
func (m *Map) RegionForPosition(p math.Vec3) formats.Coord {
	size := float64(m.RegionWorldSize())
	return formats.Coord{
		X: int32(gomath.Floor(float64(p.X) / size)),
		Y: int32(gomath.Floor(float64(p.Y) / size)),
	}
}

// SetObservers replaces the positions that drive streaming.
func (m *Map) SetObservers(positions ...math.Vec3) {
	m.observers = append(m.observers[:0], positions...)
}

// Observers returns the current observer positions.
func (m *Map) Observers() []math.Vec3 { return m.observers }

// LoadedSections returns the sections of every loaded region.
func (m *Map) LoadedSections() []*terrain.Section {
	var sections []*terrain.Section
	for _, r := range m.Regions() {
		sections = append(sections, r.sections...)
	}
	return sections
}

// RayCast intersects a ray with every loaded section.
func (m *Map) RayCast(ray math.Ray) (terrain.RayHit, *terrain.Section, bool) {
	var (
		best    terrain.RayHit
		bestSec *terrain.Section
	)
	for _, s := range m.LoadedSections() {
		if _, _, hit := ray.IntersectAABox(s.Bounds()); !hit {
			continue
		}
		h, ok := s.RayCast(ray, false)
		if ok && (bestSec == nil || h.Distance < best.Distance) {
			best, bestSec = h, s
		}
	}
	return best, bestSec, bestSec != nil
}
