package picking

import (
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/world"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// EditableTerrain picks against the loaded sections of an editable map.
type EditableTerrain struct {
	Data *mapsource.TerrainData
}

// PickTerrain returns the nearest hit.
func (e EditableTerrain) PickTerrain(ray math.Ray) (Hit, bool) {
	h, ok := e.Data.RayCast(ray, false)
	if !ok {
		return Hit{}, false
	}
	return Hit{Position: h.Position, SectionX: h.SectionX, SectionY: h.SectionY}, true
}

// StreamedTerrain picks against the loaded regions of a streamed map.
type StreamedTerrain struct {
	Map *world.Map
}

// PickTerrain returns the nearest hit.
func (s StreamedTerrain) PickTerrain(ray math.Ray) (Hit, bool) {
	h, sec, ok := s.Map.RayCast(ray)
	if !ok {
		return Hit{}, false
	}
	return Hit{Position: h.Position, SectionX: sec.SectionX(), SectionY: sec.SectionY()}, true
}
