// Package mapsource holds the editable terrain of a source map: a sparse
// table of sections addressed by integer coordinates, paged in and out of an
// archive, with point-level edits that keep shared section edges in sync.
package mapsource

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

var (
	// ErrSectionNotAvailable is returned when loading a section that was
	// never created.
	ErrSectionNotAvailable = errors.New("section not available")
)

// TerrainData is the section table of an editable map.
//
// The table is a dense rectangle [minX..maxX] x [minY..maxY] that always
// matches the bounds of the created sections. A slot holds a section only
// while it is loaded; available marks slots created in storage.
type TerrainData struct {
	params  terrain.Parameters
	archive storage.Archive
	layers  []formats.Layer
	log     *zap.Logger

	minSectionX, minSectionY int32
	maxSectionX, maxSectionY int32
	sections                 []*terrain.Section
	available                []bool

	loaded  []*terrain.Section
	deleted []formats.Coord

	subscribers      []subscription
	nextSubscriberID int
}

// New creates an empty terrain with the given parameters, backed by archive.
func New(archive storage.Archive, params terrain.Parameters) (*TerrainData, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &TerrainData{
		params:  params,
		archive: archive,
		log:     logger.Named("mapsource"),
	}, nil
}

// Open reads the terrain header from archive and marks its sections as
// available. No section is loaded.
func Open(archive storage.Archive) (*TerrainData, error) {
	data, err := archive.Read(formats.TerrainHeaderName)
	if err != nil {
		return nil, fmt.Errorf("reading terrain header: %w", err)
	}
	h, err := formats.ParseTerrainHeader(data)
	if err != nil {
		return nil, err
	}
	params, err := terrain.ParametersFromHeader(h)
	if err != nil {
		return nil, err
	}

	d, err := New(archive, params)
	if err != nil {
		return nil, err
	}
	d.layers = h.Layers
	for _, c := range h.Sections {
		d.ensureInTable(c.X, c.Y)
		d.available[d.index(c.X, c.Y)] = true
	}
	return d, nil
}

// Parameters returns the terrain parameters.
func (d *TerrainData) Parameters() terrain.Parameters { return d.params }

// Archive returns the backing archive.
func (d *TerrainData) Archive() storage.Archive { return d.archive }

// Layers returns the named surface layers.
func (d *TerrainData) Layers() []formats.Layer { return d.layers }

// SetLayerName names a layer index, adding it if needed.
func (d *TerrainData) SetLayerName(index int32, name string) {
	for i := range d.layers {
		if d.layers[i].Index == index {
			d.layers[i].Name = name
			return
		}
	}
	d.layers = append(d.layers, formats.Layer{Index: index, Name: name})
	slices.SortFunc(d.layers, func(a, b formats.Layer) int { return int(a.Index - b.Index) })
}

// SectionBounds returns the inclusive table bounds. ok is false when no
// section exists.
func (d *TerrainData) SectionBounds() (minX, minY, maxX, maxY int32, ok bool) {
	if len(d.available) == 0 {
		return 0, 0, 0, 0, false
	}
	return d.minSectionX, d.minSectionY, d.maxSectionX, d.maxSectionY, true
}

func (d *TerrainData) width() int32 {
	if len(d.available) == 0 {
		return 0
	}
	return d.maxSectionX - d.minSectionX + 1
}

func (d *TerrainData) inTable(x, y int32) bool {
	return len(d.available) > 0 &&
		x >= d.minSectionX && x <= d.maxSectionX &&
		y >= d.minSectionY && y <= d.maxSectionY
}

func (d *TerrainData) index(x, y int32) int {
	return int((y-d.minSectionY)*d.width() + (x - d.minSectionX))
}

// ResizeSectionArray resizes the table to the given inclusive bounds,
// keeping every entry that still fits at its coordinate.
func (d *TerrainData) ResizeSectionArray(minX, minY, maxX, maxY int32) {
	w := maxX - minX + 1
	h := maxY - minY + 1
	sections := make([]*terrain.Section, w*h)
	available := make([]bool, w*h)

	if len(d.available) > 0 {
		for y := d.minSectionY; y <= d.maxSectionY; y++ {
			for x := d.minSectionX; x <= d.maxSectionX; x++ {
				if x < minX || x > maxX || y < minY || y > maxY {
					continue
				}
				src := d.index(x, y)
				dst := int((y-minY)*w + (x - minX))
				sections[dst] = d.sections[src]
				available[dst] = d.available[src]
			}
		}
	}

	d.minSectionX, d.minSectionY = minX, minY
	d.maxSectionX, d.maxSectionY = maxX, maxY
	d.sections = sections
	d.available = available
}

func (d *TerrainData) ensureInTable(x, y int32) {
	if d.inTable(x, y) {
		return
	}
	if len(d.available) == 0 {
		d.ResizeSectionArray(x, y, x, y)
		return
	}
	d.ResizeSectionArray(min(d.minSectionX, x), min(d.minSectionY, y), max(d.maxSectionX, x), max(d.maxSectionY, y))
}

// shrinkToFit trims the table to the bounds of the available sections.
func (d *TerrainData) shrinkToFit() {
	first := true
	var minX, minY, maxX, maxY int32
	for y := d.minSectionY; y <= d.maxSectionY && len(d.available) > 0; y++ {
		for x := d.minSectionX; x <= d.maxSectionX; x++ {
			if !d.available[d.index(x, y)] {
				continue
			}
			if first {
				minX, minY, maxX, maxY = x, y, x, y
				first = false
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if first {
		d.sections, d.available = nil, nil
		d.minSectionX, d.minSectionY, d.maxSectionX, d.maxSectionY = 0, 0, 0, 0
		return
	}
	if minX != d.minSectionX || minY != d.minSectionY || maxX != d.maxSectionX || maxY != d.maxSectionY {
		d.ResizeSectionArray(minX, minY, maxX, maxY)
	}
}

// IsSectionAvailable reports whether a section was created.
func (d *TerrainData) IsSectionAvailable(x, y int32) bool {
	return d.inTable(x, y) && d.available[d.index(x, y)]
}

// IsSectionLoaded reports whether a section is resident.
func (d *TerrainData) IsSectionLoaded(x, y int32) bool {
	return d.Section(x, y) != nil
}

// Section returns a loaded section, or nil.
func (d *TerrainData) Section(x, y int32) *terrain.Section {
	if !d.inTable(x, y) {
		return nil
	}
	return d.sections[d.index(x, y)]
}

// LoadedSections returns the resident sections.
func (d *TerrainData) LoadedSections() []*terrain.Section { return d.loaded }

// AvailableSections returns the coordinates of every created section in
// row-major order.
func (d *TerrainData) AvailableSections() []formats.Coord {
	var coords []formats.Coord
	for y := d.minSectionY; y <= d.maxSectionY && len(d.available) > 0; y++ {
		for x := d.minSectionX; x <= d.maxSectionX; x++ {
			if d.available[d.index(x, y)] {
				coords = append(coords, formats.Coord{X: x, Y: y})
			}
		}
	}
	return coords
}

func (d *TerrainData) removeLoaded(s *terrain.Section) {
	if i := slices.Index(d.loaded, s); i >= 0 {
		d.loaded = slices.Delete(d.loaded, i, i+1)
	}
}
