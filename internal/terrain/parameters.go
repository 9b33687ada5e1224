// Package terrain implements heightfield sections: height and splat storage,
// the per-section LOD quadtree, render node selection and ray queries.
//
// World space is Z-up. A section covers SectionSize*Scale world units on X and
// Y starting at (SectionX, SectionY) * SectionSize * Scale.
package terrain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// MaxLayers is the number of distinct surface layers a section can blend.
const MaxLayers = formats.MaxSplatLayers

// ErrInvalidParameters is returned for terrain parameters that fail Validate.
var ErrInvalidParameters = errors.New("invalid terrain parameters")

// Infinite marks a hole in a FLOAT32 heightfield.
var Infinite = float32(math.Inf(1))

// IsHole reports whether a height value marks a hole.
func IsHole(h float32) bool {
	return math.IsInf(float64(h), 1)
}

// HeightStorageFormat selects how height samples are encoded.
type HeightStorageFormat uint8

const (
	HeightStorageUint8 HeightStorageFormat = iota
	HeightStorageUint16
	HeightStorageFloat32
)

// String returns the header name of the format.
func (f HeightStorageFormat) String() string {
	switch f {
	case HeightStorageUint8:
		return formats.HeightFormatUint8
	case HeightStorageUint16:
		return formats.HeightFormatUint16
	case HeightStorageFloat32:
		return formats.HeightFormatFloat32
	default:
		return fmt.Sprintf("HeightStorageFormat(%d)", uint8(f))
	}
}

// ValueSize returns the encoded size of one sample in bytes.
func (f HeightStorageFormat) ValueSize() uint32 {
	switch f {
	case HeightStorageUint8:
		return 1
	case HeightStorageUint16:
		return 2
	default:
		return 4
	}
}

// ParseHeightStorageFormat parses a header format name.
func ParseHeightStorageFormat(s string) (HeightStorageFormat, error) {
	switch s {
	case formats.HeightFormatUint8:
		return HeightStorageUint8, nil
	case formats.HeightFormatUint16:
		return HeightStorageUint16, nil
	case formats.HeightFormatFloat32:
		return HeightStorageFloat32, nil
	}
	return 0, fmt.Errorf("%w: unknown height format %q", ErrInvalidParameters, s)
}

// Parameters are shared by every section of a terrain.
type Parameters struct {
	HeightStorageFormat HeightStorageFormat
	MinHeight           int32
	MaxHeight           int32
	BaseHeight          int32
	Scale               uint32
	SectionSize         uint32
	LODCount            uint32
}

// DefaultParameters returns a 64-quad float32 terrain with five LODs.
func DefaultParameters() Parameters {
	return Parameters{
		HeightStorageFormat: HeightStorageFloat32,
		MinHeight:           -1024,
		MaxHeight:           1024,
		Scale:               1,
		SectionSize:         64,
		LODCount:            5,
	}
}

// Validate checks the parameter constraints.
func (p Parameters) Validate() error {
	switch {
	case p.HeightStorageFormat > HeightStorageFloat32:
		return fmt.Errorf("%w: height format %d", ErrInvalidParameters, p.HeightStorageFormat)
	case p.MinHeight > p.MaxHeight:
		return fmt.Errorf("%w: min height %d above max height %d", ErrInvalidParameters, p.MinHeight, p.MaxHeight)
	case p.MinHeight == p.MaxHeight && p.HeightStorageFormat != HeightStorageFloat32:
		return fmt.Errorf("%w: %s storage needs a height range, got [%d, %d]", ErrInvalidParameters,
			p.HeightStorageFormat, p.MinHeight, p.MaxHeight)
	case p.BaseHeight < p.MinHeight || p.BaseHeight > p.MaxHeight:
		return fmt.Errorf("%w: base height %d outside [%d, %d]", ErrInvalidParameters, p.BaseHeight, p.MinHeight, p.MaxHeight)
	case p.Scale == 0:
		return fmt.Errorf("%w: zero scale", ErrInvalidParameters)
	case p.SectionSize < 2 || p.SectionSize&(p.SectionSize-1) != 0:
		return fmt.Errorf("%w: section size %d is not a power of two", ErrInvalidParameters, p.SectionSize)
	case p.LODCount == 0:
		return fmt.Errorf("%w: zero LOD count", ErrInvalidParameters)
	case p.SectionSize>>(p.LODCount-1) == 0:
		return fmt.Errorf("%w: %d LODs too many for section size %d", ErrInvalidParameters, p.LODCount, p.SectionSize)
	}
	return nil
}

// IsValidParameters reports whether p passes Validate.
func IsValidParameters(p Parameters) bool {
	return p.Validate() == nil
}

// PointCount returns the number of samples per edge of a section stored at lod.
func (p Parameters) PointCount(lod uint32) uint32 {
	return (p.SectionSize >> lod) + 1
}

// SectionWorldSize returns the world-space edge length of a section.
func (p Parameters) SectionWorldSize() float32 {
	return float32(p.SectionSize) * float32(p.Scale)
}

// QuadSize returns the world-space edge length of one quad at lod.
func (p Parameters) QuadSize(lod uint32) float32 {
	return float32(p.Scale) * float32(uint32(1)<<lod)
}

// heightRowPitch returns the 4-byte aligned row stride of a heightfield.
func (p Parameters) heightRowPitch(pointCount uint32) uint32 {
	return alignRowPitch(pointCount * p.HeightStorageFormat.ValueSize())
}

func alignRowPitch(n uint32) uint32 {
	return (n + 3) &^ 3
}

// EncodeHeight writes h into dst using the storage format. Fixed-point
// formats clamp to [MinHeight, MaxHeight] and cannot store holes.
func (p Parameters) EncodeHeight(dst []byte, h float32) {
	switch p.HeightStorageFormat {
	case HeightStorageUint8:
		dst[0] = uint8(p.quantize(h, math.MaxUint8))
	case HeightStorageUint16:
		binary.LittleEndian.PutUint16(dst, uint16(p.quantize(h, math.MaxUint16)))
	default:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(h))
	}
}

// DecodeHeight reads one height sample from src.
func (p Parameters) DecodeHeight(src []byte) float32 {
	switch p.HeightStorageFormat {
	case HeightStorageUint8:
		return p.dequantize(float64(src[0]), math.MaxUint8)
	case HeightStorageUint16:
		return p.dequantize(float64(binary.LittleEndian.Uint16(src)), math.MaxUint16)
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	}
}

// QuantizeHeight returns h as it would read back after storage.
func (p Parameters) QuantizeHeight(h float32) float32 {
	var buf [4]byte
	p.EncodeHeight(buf[:], h)
	return p.DecodeHeight(buf[:])
}

func (p Parameters) quantize(h float32, maxValue float64) uint32 {
	lo, hi := float64(p.MinHeight), float64(p.MaxHeight)
	t := (float64(h) - lo) / (hi - lo)
	if math.IsNaN(t) || t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return uint32(math.Round(t * maxValue))
}

func (p Parameters) dequantize(v, maxValue float64) float32 {
	lo, hi := float64(p.MinHeight), float64(p.MaxHeight)
	return float32(lo + v/maxValue*(hi-lo))
}

// ParametersFromHeader converts a terrain header and validates the result.
func ParametersFromHeader(h *formats.TerrainHeader) (Parameters, error) {
	f, err := ParseHeightStorageFormat(h.HeightFormat)
	if err != nil {
		return Parameters{}, err
	}
	p := Parameters{
		HeightStorageFormat: f,
		MinHeight:           h.MinHeight,
		MaxHeight:           h.MaxHeight,
		BaseHeight:          h.BaseHeight,
		Scale:               h.Scale,
		SectionSize:         h.SectionSize,
		LODCount:            h.LODCount,
	}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// Header returns a terrain header carrying these parameters.
func (p Parameters) Header() formats.TerrainHeader {
	return formats.TerrainHeader{
		HeightFormat: p.HeightStorageFormat.String(),
		MinHeight:    p.MinHeight,
		MaxHeight:    p.MaxHeight,
		BaseHeight:   p.BaseHeight,
		Scale:        p.Scale,
		SectionSize:  p.SectionSize,
		LODCount:     p.LODCount,
	}
}
