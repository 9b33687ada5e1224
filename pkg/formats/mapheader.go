package formats

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

// Archive entry names.
const (
	MapHeaderName     = "map.json"
	TerrainHeaderName = "terrain/terrain.json"
)

// SectionFileName returns the archive name of an editable source section.
func SectionFileName(sectionX, sectionY int32) string {
	return fmt.Sprintf("terrain/section_%d_%d.dat", sectionX, sectionY)
}

// Height storage format names used in TerrainHeader.HeightFormat.
const (
	HeightFormatUint8   = "uint8"
	HeightFormatUint16  = "uint16"
	HeightFormatFloat32 = "float32"
)

// Coord is an integer grid coordinate (section or region).
type Coord struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// TerrainHeader stores the terrain parameters and the set of created sections.
type TerrainHeader struct {
	HeightFormat string  `json:"height_format"`
	MinHeight    int32   `json:"min_height"`
	MaxHeight    int32   `json:"max_height"`
	BaseHeight   int32   `json:"base_height"`
	Scale        uint32  `json:"scale"`
	SectionSize  uint32  `json:"section_size"`
	LODCount     uint32  `json:"lod_count"`
	Layers       []Layer `json:"layers,omitempty"`
	Sections     []Coord `json:"sections"`
}

// Layer names a terrain surface layer. Materials are resolved elsewhere.
type Layer struct {
	Index int32  `json:"index"`
	Name  string `json:"name"`
}

// MapHeader is the directory header of a streamable map.
type MapHeader struct {
	Name            string        `json:"name"`
	GUID            uuid.UUID     `json:"guid"`
	Terrain         TerrainHeader `json:"terrain"`
	RegionSize      int32         `json:"region_size"`
	RegionLODLevels int32         `json:"region_lod_levels"`
	Regions         []Coord       `json:"regions"`
}

// ParseTerrainHeader decodes a terrain header.
func ParseTerrainHeader(data []byte) (*TerrainHeader, error) {
	var h TerrainHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: terrain header: %v", ErrCorrupt, err)
	}
	if h.SectionSize == 0 || h.LODCount == 0 {
		return nil, fmt.Errorf("%w: terrain header missing section size or LOD count", ErrCorrupt)
	}
	return &h, nil
}

// Marshal encodes the terrain header.
func (h *TerrainHeader) Marshal() ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}

// ParseMapHeader decodes a map header.
func ParseMapHeader(data []byte) (*MapHeader, error) {
	var h MapHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: map header: %v", ErrCorrupt, err)
	}
	if h.RegionSize <= 0 || h.RegionLODLevels <= 0 {
		return nil, fmt.Errorf("%w: map header region size %d, LOD levels %d", ErrCorrupt, h.RegionSize, h.RegionLODLevels)
	}
	if h.Terrain.SectionSize == 0 || h.Terrain.LODCount == 0 {
		return nil, fmt.Errorf("%w: map header missing terrain parameters", ErrCorrupt)
	}
	return &h, nil
}

// Marshal encodes the map header.
func (h *MapHeader) Marshal() ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}
