package mapsource

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// CreateSection creates a uniform section at (x, y). It returns false if
// the slot is already available or the section cannot be built.
func (d *TerrainData) CreateSection(x, y int32, height float32, layer int32) bool {
	if d.IsSectionAvailable(x, y) {
		return false
	}

	s := terrain.NewSection(d.params, x, y, 0)
	if err := s.Create(height, layer); err != nil {
		d.log.Error("creating section failed", zap.Int32("x", x), zap.Int32("y", y), zap.Error(err))
		return false
	}

	d.ensureInTable(x, y)
	i := d.index(x, y)
	d.sections[i] = s
	d.available[i] = true
	d.loaded = append(d.loaded, s)
	d.deleted = removeCoord(d.deleted, x, y)

	instrumentSectionOp(opCreate)
	d.emit(EditEvent{Kind: SectionCreated, SectionX: x, SectionY: y, Section: s})
	return true
}

// DeleteSection removes a section from the table. Its stored file is
// removed on the next Save. It returns false if the slot is not available.
func (d *TerrainData) DeleteSection(x, y int32) bool {
	if !d.IsSectionAvailable(x, y) {
		return false
	}

	i := d.index(x, y)
	s := d.sections[i]
	if s != nil {
		d.removeLoaded(s)
	}
	d.sections[i] = nil
	d.available[i] = false
	d.deleted = append(d.deleted, formats.Coord{X: x, Y: y})
	d.shrinkToFit()

	instrumentSectionOp(opDelete)
	d.emit(EditEvent{Kind: SectionDeleted, SectionX: x, SectionY: y, Section: s})
	return true
}

// LoadSection reads an available section from the archive. Loading a
// resident section is a no-op. A section that fails to parse is not
// inserted.
func (d *TerrainData) LoadSection(x, y int32) error {
	if !d.IsSectionAvailable(x, y) {
		return fmt.Errorf("%w: (%d, %d)", ErrSectionNotAvailable, x, y)
	}
	if d.IsSectionLoaded(x, y) {
		return nil
	}

	name := formats.SectionFileName(x, y)
	data, err := d.archive.Read(name)
	if err != nil {
		d.log.Warn("section file unavailable", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("loading section (%d, %d): %w", x, y, err)
	}
	s, err := terrain.ReadSection(d.params, x, y, 0, bytes.NewReader(data))
	if err != nil {
		d.log.Error("section file corrupt", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("loading section (%d, %d): %w", x, y, err)
	}

	d.sections[d.index(x, y)] = s
	d.loaded = append(d.loaded, s)

	instrumentSectionOp(opLoad)
	d.emit(EditEvent{Kind: SectionLoaded, SectionX: x, SectionY: y, Section: s})
	return nil
}

// UnloadSection releases a resident section, writing it first if it has
// unsaved changes. It returns false if the section is not loaded.
func (d *TerrainData) UnloadSection(x, y int32) (bool, error) {
	s := d.Section(x, y)
	if s == nil {
		return false, nil
	}
	if s.Changed() {
		if err := d.writeSection(s); err != nil {
			return false, err
		}
	}

	d.sections[d.index(x, y)] = nil
	d.removeLoaded(s)

	instrumentSectionOp(opUnload)
	d.emit(EditEvent{Kind: SectionUnloaded, SectionX: x, SectionY: y, Section: s})
	return true, nil
}

// LoadAllSections loads every available section, continuing past failures.
func (d *TerrainData) LoadAllSections(progress terrain.Progress) error {
	coords := d.AvailableSections()
	progress.SetStatus("loading sections")
	progress.SetRange(len(coords))

	var errs error
	for i, c := range coords {
		if progress.Cancelled() {
			return multierr.Append(errs, terrain.ErrCancelled)
		}
		errs = multierr.Append(errs, d.LoadSection(c.X, c.Y))
		progress.SetValue(i + 1)
	}
	return errs
}

// UnloadAllSections releases every resident section.
func (d *TerrainData) UnloadAllSections() error {
	var errs error
	for _, s := range append([]*terrain.Section(nil), d.loaded...) {
		_, err := d.UnloadSection(s.SectionX(), s.SectionY())
		errs = multierr.Append(errs, err)
	}
	return errs
}

// RebuildQuadTrees rebuilds the quadtree of every resident section.
func (d *TerrainData) RebuildQuadTrees(progress terrain.Progress) error {
	progress.SetStatus("rebuilding quadtrees")
	progress.SetRange(len(d.loaded))
	for i, s := range d.loaded {
		if progress.Cancelled() {
			return terrain.ErrCancelled
		}
		if err := s.RebuildQuadTree(); err != nil {
			return fmt.Errorf("rebuilding section (%d, %d): %w", s.SectionX(), s.SectionY(), err)
		}
		progress.SetValue(i + 1)
	}
	return nil
}

// Save writes every changed section, removes the files of deleted
// sections and writes the terrain header.
func (d *TerrainData) Save(progress terrain.Progress) error {
	progress.SetStatus("saving terrain")
	progress.SetRange(len(d.loaded) + len(d.deleted))

	var errs error
	done := 0
	for _, s := range d.loaded {
		if progress.Cancelled() {
			return multierr.Append(errs, terrain.ErrCancelled)
		}
		if s.Changed() {
			errs = multierr.Append(errs, d.writeSection(s))
		}
		done++
		progress.SetValue(done)
	}

	var pending []formats.Coord
	for _, c := range d.deleted {
		err := d.archive.Delete(formats.SectionFileName(c.X, c.Y))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = multierr.Append(errs, err)
			pending = append(pending, c)
		}
		done++
		progress.SetValue(done)
	}
	d.deleted = pending

	errs = multierr.Append(errs, d.writeHeader())
	return errs
}

// Header returns the terrain header describing the current table.
func (d *TerrainData) Header() formats.TerrainHeader {
	h := d.params.Header()
	h.Layers = d.layers
	h.Sections = d.AvailableSections()
	if h.Sections == nil {
		h.Sections = []formats.Coord{}
	}
	return h
}

func (d *TerrainData) writeHeader() error {
	h := d.Header()
	data, err := h.Marshal()
	if err != nil {
		return fmt.Errorf("encoding terrain header: %w", err)
	}
	return d.archive.Write(formats.TerrainHeaderName, data)
}

func (d *TerrainData) writeSection(s *terrain.Section) error {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return fmt.Errorf("encoding section (%d, %d): %w", s.SectionX(), s.SectionY(), err)
	}
	if err := d.archive.Write(formats.SectionFileName(s.SectionX(), s.SectionY()), buf.Bytes()); err != nil {
		return err
	}
	s.ClearChanged()
	return nil
}

func removeCoord(coords []formats.Coord, x, y int32) []formats.Coord {
	for i, c := range coords {
		if c.X == x && c.Y == y {
			return append(coords[:i], coords[i+1:]...)
		}
	}
	return coords
}
