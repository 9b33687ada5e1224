package formats

import (
	"fmt"
	"io"
)

// RegionMagic identifies a region chunk ("TREG").
const RegionMagic uint32 = 0x47455254

// RegionHeader starts a region chunk. It is followed by TerrainSectionCount
// (RegionSectionHeader, section) pairs and then EntityDataSize bytes of
// entity data holding EntityCount entities.
type RegionHeader struct {
	Magic               uint32
	HeaderSize          uint32
	RegionX             int32
	RegionY             int32
	LODLevel            uint32
	TerrainSectionCount uint32
	EntityCount         uint32
	EntityDataSize      uint32
}

// RegionHeaderSize is the encoded size of RegionHeader.
var RegionHeaderSize = recordSize(RegionHeader{})

// RegionSectionHeader precedes each section inside a region chunk.
type RegionSectionHeader struct {
	SectionX int32
	SectionY int32
	LODLevel uint32
}

// RegionChunkName returns the archive name of a region chunk at a LOD tier.
func RegionChunkName(regionX, regionY int32, lod int) string {
	return fmt.Sprintf("region_%d_%d.%d", regionX, regionY, lod)
}

// NewRegionHeader fills in the magic and size fields.
func NewRegionHeader(regionX, regionY int32, lod uint32) RegionHeader {
	return RegionHeader{
		Magic:      RegionMagic,
		HeaderSize: RegionHeaderSize,
		RegionX:    regionX,
		RegionY:    regionY,
		LODLevel:   lod,
	}
}

// ReadRegionHeader reads and validates a region header.
func ReadRegionHeader(r io.Reader) (RegionHeader, error) {
	var h RegionHeader
	if err := readRecord(r, &h, "region header"); err != nil {
		return h, err
	}
	if h.Magic != RegionMagic {
		return h, fmt.Errorf("%w: region 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.HeaderSize != RegionHeaderSize {
		return h, fmt.Errorf("%w: region %d, want %d", ErrInvalidHeaderSize, h.HeaderSize, RegionHeaderSize)
	}
	return h, nil
}

// Write writes the header.
func (h RegionHeader) Write(w io.Writer) error {
	return writeRecord(w, h, "region header")
}

// ReadRegionSectionHeader reads a per-section header inside a region chunk.
func ReadRegionSectionHeader(r io.Reader) (RegionSectionHeader, error) {
	var h RegionSectionHeader
	err := readRecord(r, &h, "region section header")
	return h, err
}

// Write writes the header.
func (h RegionSectionHeader) Write(w io.Writer) error {
	return writeRecord(w, h, "region section header")
}
