package world

import (
	"bytes"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// Unloaded is the LOD tier of a region holding no data.
const Unloaded = -1

// Region is one streaming unit of a map.
type Region struct {
	coord     formats.Coord
	loadedLOD int

	// failedLOD is the last tier that failed to load. Streaming does not
	// retry it until the target tier changes.
	failedLOD int

	sections  []*terrain.Section
	proxies   []Releaser
	collision []Releaser
	entities  []Entity
}

// Coord returns the region coordinate.
func (r *Region) Coord() formats.Coord { return r.coord }

// LoadedLOD returns the loaded tier or Unloaded.
func (r *Region) LoadedLOD() int { return r.loadedLOD }

// Sections returns the loaded sections.
func (r *Region) Sections() []*terrain.Section { return r.sections }

// Entities returns the loaded static entities.
func (r *Region) Entities() []Entity { return r.entities }

// chunk is a parsed region chunk that has not been installed yet.
type chunk struct {
	sections []*terrain.Section
	entities []Entity
}

func (m *Map) readChunk(r *Region, lod int) (*chunk, error) {
	name := formats.RegionChunkName(r.coord.X, r.coord.Y, lod)
	data, err := m.loader.Load(name)
	if err != nil {
		return nil, err
	}
	// Chunks are not kept in the asset cache.
	defer m.loader.Evict(name)

	rd := bytes.NewReader(data)
	h, err := formats.ReadRegionHeader(rd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if h.RegionX != r.coord.X || h.RegionY != r.coord.Y || h.LODLevel != uint32(lod) {
		return nil, fmt.Errorf("%w: %s holds region (%d, %d) tier %d", formats.ErrCorrupt, name, h.RegionX, h.RegionY, h.LODLevel)
	}

	c := &chunk{sections: make([]*terrain.Section, 0, h.TerrainSectionCount)}
	for range h.TerrainSectionCount {
		sh, err := formats.ReadRegionSectionHeader(rd)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if sh.LODLevel >= m.params.LODCount {
			return nil, fmt.Errorf("%w: %s section LOD %d", formats.ErrCorrupt, name, sh.LODLevel)
		}
		s, err := terrain.ReadSection(m.params, sh.SectionX, sh.SectionY, sh.LODLevel, rd)
		if err != nil {
			return nil, fmt.Errorf("%s section (%d, %d): %w", name, sh.SectionX, sh.SectionY, err)
		}
		c.sections = append(c.sections, s)
	}

	entityData, err := formats.ReadBytes(rd, int(h.EntityDataSize), "entity block")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if m.opts.Entities != nil && h.EntityCount > 0 {
		if c.entities, err = m.opts.Entities.LoadEntities(r.coord, h.EntityCount, entityData); err != nil {
			return nil, fmt.Errorf("%s entities: %w", name, err)
		}
	}
	if rd.Len() != 0 {
		m.log.Warn("trailing bytes in region chunk", zap.String("name", name), zap.Int("bytes", rd.Len()))
	}
	return c, nil
}

// install hands a parsed chunk's sections to the render and collision
// collaborators. Failures there are logged and the section stays loaded.
func (m *Map) install(r *Region, c *chunk, lod int) {
	r.sections = c.sections
	r.entities = c.entities
	for _, s := range c.sections {
		if m.opts.CreateRenderProxy != nil {
			if p := m.opts.CreateRenderProxy(s); p != nil {
				r.proxies = append(r.proxies, p)
			} else {
				m.log.Warn("render proxy creation failed",
					zap.Int32("sectionX", s.SectionX()),
					zap.Int32("sectionY", s.SectionY()))
			}
		}
		if m.opts.BuildCollision != nil {
			shape, err := m.opts.BuildCollision(s)
			if err != nil {
				m.log.Warn("collision shape build failed",
					zap.Int32("sectionX", s.SectionX()),
					zap.Int32("sectionY", s.SectionY()),
					zap.Error(err))
				continue
			}
			r.collision = append(r.collision, shape)
		}
	}
	r.loadedLOD = lod
	r.failedLOD = Unloaded
}

// release drops everything a region owns: collision shapes first, then
// render proxies, static entities and finally the sections.
func (r *Region) release() {
	for _, c := range r.collision {
		c.Release()
	}
	r.collision = nil
	for _, p := range r.proxies {
		p.Release()
	}
	r.proxies = nil
	for _, e := range r.entities {
		e.Release()
	}
	r.entities = nil
	r.sections = nil
	r.loadedLOD = Unloaded
}

// ChangeRegionLOD moves a region to a new tier. The new chunk is parsed
// before the current tier is released, so a failed load leaves the region
// as it was. Unloaded releases the region.
func (m *Map) ChangeRegionLOD(r *Region, lod int) error {
	if lod == r.loadedLOD {
		return nil
	}
	if lod == Unloaded {
		m.UnloadRegion(r)
		return nil
	}
	if lod < 0 || lod >= m.LODLevels() {
		return fmt.Errorf("region (%d, %d): tier %d out of range", r.coord.X, r.coord.Y, lod)
	}

	start := time.Now()
	c, err := m.readChunk(r, lod)
	if err != nil {
		r.failedLOD = lod
		instrumentRegionLoad(false, start)
		m.log.Warn("region load failed",
			zap.Int32("regionX", r.coord.X),
			zap.Int32("regionY", r.coord.Y),
			zap.Int("lod", lod),
			zap.Error(err))
		return err
	}

	previous := r.loadedLOD
	if previous != Unloaded {
		r.release()
	}
	m.install(r, c, lod)
	instrumentRegionLoad(true, start)

	m.log.Debug("region loaded",
		zap.Int32("regionX", r.coord.X),
		zap.Int32("regionY", r.coord.Y),
		zap.Int("lod", lod),
		zap.Int("previous", previous),
		zap.Int("sections", len(r.sections)),
		zap.Int("entities", len(r.entities)))
	return nil
}

// LoadRegion loads a declared region at a tier.
func (m *Map) LoadRegion(x, y int32, lod int) error {
	r := m.Region(x, y)
	if r == nil {
		return fmt.Errorf("%w: (%d, %d)", ErrRegionNotFound, x, y)
	}
	return m.ChangeRegionLOD(r, lod)
}

// UnloadRegion releases a region. Unloading an unloaded region is a no-op.
func (m *Map) UnloadRegion(r *Region) {
	if r.loadedLOD == Unloaded {
		return
	}
	lod := r.loadedLOD
	r.release()
	instrumentRegionUnload()
	m.log.Debug("region unloaded",
		zap.Int32("regionX", r.coord.X),
		zap.Int32("regionY", r.coord.Y),
		zap.Int("lod", lod))
}

// LoadAllRegions loads every region at a tier. Failures are logged and
// loading continues; the returned error aggregates them.
func (m *Map) LoadAllRegions(lod int, progress terrain.Progress) error {
	regions := m.Regions()
	progress.SetStatus("loading regions")
	progress.SetRange(len(regions))

	var errs error
	for i, r := range regions {
		if progress.Cancelled() {
			return multierr.Append(errs, terrain.ErrCancelled)
		}
		errs = multierr.Append(errs, m.ChangeRegionLOD(r, lod))
		progress.SetValue(i + 1)
	}
	return errs
}

// UnloadAllRegions releases every loaded region.
func (m *Map) UnloadAllRegions() {
	for _, r := range m.regions {
		m.UnloadRegion(r)
	}
}
