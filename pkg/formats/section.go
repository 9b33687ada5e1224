package formats

import (
	"fmt"
	"io"
)

// SectionMagic identifies a terrain section record ("TSEC").
const SectionMagic uint32 = 0x43455354

// SectionHeader precedes a section's heightfield, splat maps, quadtree and
// detail mesh block.
type SectionHeader struct {
	Magic                   uint32
	HeaderSize              uint32
	PointCount              uint32
	HeightMapValueSize      uint32
	HeightMapRowPitch       uint32
	SplatMapCount           uint32
	DetailMeshCount         uint32
	DetailMeshInstanceCount uint32
}

// SectionHeaderSize is the encoded size of SectionHeader.
var SectionHeaderSize = recordSize(SectionHeader{})

// NewSectionHeader fills in the magic and size fields.
func NewSectionHeader() SectionHeader {
	return SectionHeader{Magic: SectionMagic, HeaderSize: SectionHeaderSize}
}

// HeightMapSize returns the byte size of the heightfield buffer.
func (h SectionHeader) HeightMapSize() int {
	return int(h.HeightMapRowPitch) * int(h.PointCount)
}

// ReadSectionHeader reads and validates a section header.
func ReadSectionHeader(r io.Reader) (SectionHeader, error) {
	var h SectionHeader
	if err := readRecord(r, &h, "section header"); err != nil {
		return h, err
	}
	if h.Magic != SectionMagic {
		return h, fmt.Errorf("%w: section 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.HeaderSize != SectionHeaderSize {
		return h, fmt.Errorf("%w: section %d, want %d", ErrInvalidHeaderSize, h.HeaderSize, SectionHeaderSize)
	}
	if h.PointCount < 2 {
		return h, fmt.Errorf("%w: section has %d points per edge", ErrPointCountMismatch, h.PointCount)
	}
	switch h.HeightMapValueSize {
	case 1, 2, 4:
	default:
		return h, fmt.Errorf("%w: height value size %d", ErrCorrupt, h.HeightMapValueSize)
	}
	if !validRowPitch(h.HeightMapRowPitch, h.PointCount, h.HeightMapValueSize) {
		return h, fmt.Errorf("%w: row pitch %d for %d points of %d bytes", ErrCorrupt,
			h.HeightMapRowPitch, h.PointCount, h.HeightMapValueSize)
	}
	return h, nil
}

// Write writes the header.
func (h SectionHeader) Write(w io.Writer) error {
	return writeRecord(w, h, "section header")
}

// MaxSplatLayers bounds the layer indices a splat map may reference.
const MaxSplatLayers = 64

// validRowPitch accepts a pitch covering one row of count values of size
// bytes, padded by at most 3 bytes.
func validRowPitch(pitch, count, size uint32) bool {
	row := uint64(count) * uint64(size)
	return uint64(pitch) >= row && uint64(pitch) <= row+3
}

// SplatMapHeader precedes each splat map's channel buffer.
// Layers maps channel index to terrain layer index (-1 = unused channel).
type SplatMapHeader struct {
	Layers       [4]int32
	LayerCount   uint32
	ChannelCount uint32
	RowPitch     uint32
}

// ReadSplatMapHeader reads and validates a splat map header for a section
// with pointCount points per edge.
func ReadSplatMapHeader(r io.Reader, pointCount uint32) (SplatMapHeader, error) {
	var h SplatMapHeader
	if err := readRecord(r, &h, "splat map header"); err != nil {
		return h, err
	}
	switch h.ChannelCount {
	case 1, 2, 4:
	default:
		return h, fmt.Errorf("%w: %d channels", ErrInvalidSplatMap, h.ChannelCount)
	}
	var used uint32
	for ch, layer := range h.Layers {
		switch {
		case layer == -1:
		case layer < 0 || layer >= MaxSplatLayers || uint32(ch) >= h.ChannelCount:
			return h, fmt.Errorf("%w: channel %d holds layer %d", ErrInvalidSplatMap, ch, layer)
		default:
			used++
		}
	}
	if h.LayerCount != used {
		return h, fmt.Errorf("%w: layer count %d, %d channels in use", ErrInvalidSplatMap, h.LayerCount, used)
	}
	if !validRowPitch(h.RowPitch, pointCount, h.ChannelCount) {
		return h, fmt.Errorf("%w: row pitch %d for %d points of %d channels", ErrInvalidSplatMap,
			h.RowPitch, pointCount, h.ChannelCount)
	}
	return h, nil
}

// Write writes the header.
func (h SplatMapHeader) Write(w io.Writer) error {
	return writeRecord(w, h, "splat map header")
}

// DetailMeshRecord describes one detail mesh definition. The mesh name
// (NameLength bytes) follows the record.
type DetailMeshRecord struct {
	NameLength   uint32
	DrawDistance float32
}

// DetailMeshInstanceRecord places one detail mesh instance.
type DetailMeshInstanceRecord struct {
	MeshIndex uint32
	Position  [3]float32
	Rotation  [4]float32
}

// ReadDetailMesh reads a detail mesh record and its name.
func ReadDetailMesh(r io.Reader) (DetailMeshRecord, string, error) {
	var rec DetailMeshRecord
	if err := readRecord(r, &rec, "detail mesh"); err != nil {
		return rec, "", err
	}
	if rec.NameLength > 1024 {
		return rec, "", fmt.Errorf("%w: detail mesh name length %d", ErrCorrupt, rec.NameLength)
	}
	name, err := ReadBytes(r, int(rec.NameLength), "detail mesh name")
	if err != nil {
		return rec, "", err
	}
	return rec, string(name), nil
}

// WriteDetailMesh writes a detail mesh record followed by its name.
func WriteDetailMesh(w io.Writer, name string, drawDistance float32) error {
	rec := DetailMeshRecord{NameLength: uint32(len(name)), DrawDistance: drawDistance}
	if err := writeRecord(w, rec, "detail mesh"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return fmt.Errorf("writing detail mesh name: %w", err)
	}
	return nil
}

// ReadDetailMeshInstance reads one instance record.
func ReadDetailMeshInstance(r io.Reader) (DetailMeshInstanceRecord, error) {
	var rec DetailMeshInstanceRecord
	err := readRecord(r, &rec, "detail mesh instance")
	return rec, err
}

// Write writes the instance record.
func (rec DetailMeshInstanceRecord) Write(w io.Writer) error {
	return writeRecord(w, rec, "detail mesh instance")
}
