package world

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// BakeOptions shape the regions written by BakeRegions.
type BakeOptions struct {
	Name string
	// RegionSize is the region edge length in sections.
	RegionSize int32
	// LODLevels is the number of tiers written per region. Tier t stores
	// its sections at LOD min(t, LODCount-1).
	LODLevels int32
	// Entities returns the static entities of a region, or nil.
	Entities func(region formats.Coord) []*StaticEntity
}

func regionIndex(p, size int32) int32 {
	if p >= 0 {
		return p / size
	}
	return ((p + 1) / size) - 1
}

// BakeRegions writes every tier of every region covering source's sections
// into archive, followed by the map header. Sections loaded for the bake
// are unloaded again.
func BakeRegions(source *mapsource.TerrainData, archive storage.Archive, opts BakeOptions, progress terrain.Progress) (*formats.MapHeader, error) {
	params := source.Parameters()
	if opts.RegionSize <= 0 {
		return nil, fmt.Errorf("invalid region size %d", opts.RegionSize)
	}
	if opts.LODLevels <= 0 {
		opts.LODLevels = int32(params.LODCount)
	}

	regions := make(map[formats.Coord][]formats.Coord)
	for _, c := range source.AvailableSections() {
		rc := formats.Coord{X: regionIndex(c.X, opts.RegionSize), Y: regionIndex(c.Y, opts.RegionSize)}
		regions[rc] = append(regions[rc], c)
	}
	coords := slices.SortedFunc(maps.Keys(regions), func(a, b formats.Coord) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})

	progress.SetStatus("baking regions")
	progress.SetRange(len(coords))
	for i, rc := range coords {
		if progress.Cancelled() {
			return nil, terrain.ErrCancelled
		}
		if err := bakeRegion(source, archive, rc, regions[rc], opts); err != nil {
			return nil, err
		}
		progress.SetValue(i + 1)
	}

	h := &formats.MapHeader{
		Name:            opts.Name,
		GUID:            uuid.New(),
		Terrain:         source.Header(),
		RegionSize:      opts.RegionSize,
		RegionLODLevels: opts.LODLevels,
		Regions:         coords,
	}
	data, err := h.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding map header: %w", err)
	}
	if err := archive.Write(formats.MapHeaderName, data); err != nil {
		return nil, err
	}

	logger.Info("regions baked",
		zap.String("map", opts.Name),
		zap.Stringer("guid", h.GUID),
		zap.Int("regions", len(coords)),
		zap.Int32("lodLevels", opts.LODLevels))
	return h, nil
}

func bakeRegion(source *mapsource.TerrainData, archive storage.Archive, rc formats.Coord, sections []formats.Coord, opts BakeOptions) error {
	params := source.Parameters()

	var entityData []byte
	var entityCount uint32
	if opts.Entities != nil {
		entities := opts.Entities(rc)
		var err error
		if entityData, err = EncodeStaticEntities(entities); err != nil {
			return err
		}
		entityCount = uint32(len(entities))
	}

	var loadedHere []formats.Coord
	defer func() {
		for _, c := range loadedHere {
			if _, err := source.UnloadSection(c.X, c.Y); err != nil {
				logger.Warn("unloading baked section failed", zap.Int32("x", c.X), zap.Int32("y", c.Y), zap.Error(err))
			}
		}
	}()

	for _, c := range sections {
		if source.IsSectionLoaded(c.X, c.Y) {
			continue
		}
		if err := source.LoadSection(c.X, c.Y); err != nil {
			return err
		}
		loadedHere = append(loadedHere, c)
	}

	for tier := int32(0); tier < opts.LODLevels; tier++ {
		lod := min(uint32(tier), params.LODCount-1)

		var buf bytes.Buffer
		h := formats.NewRegionHeader(rc.X, rc.Y, uint32(tier))
		h.TerrainSectionCount = uint32(len(sections))
		h.EntityCount = entityCount
		h.EntityDataSize = uint32(len(entityData))
		if err := h.Write(&buf); err != nil {
			return err
		}

		for _, c := range sections {
			s := source.Section(c.X, c.Y)
			if lod > 0 {
				var err error
				if s, err = s.CreateLODCopy(lod); err != nil {
					return fmt.Errorf("region (%d, %d): %w", rc.X, rc.Y, err)
				}
			}
			sh := formats.RegionSectionHeader{SectionX: c.X, SectionY: c.Y, LODLevel: lod}
			if err := sh.Write(&buf); err != nil {
				return err
			}
			if _, err := s.WriteTo(&buf); err != nil {
				return fmt.Errorf("region (%d, %d) section (%d, %d): %w", rc.X, rc.Y, c.X, c.Y, err)
			}
		}
		buf.Write(entityData)

		if err := archive.Write(formats.RegionChunkName(rc.X, rc.Y, int(tier)), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
