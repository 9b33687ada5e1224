package mapsource

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	_ "image/png"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// ScaleMode resizes a heightmap image before import.
type ScaleMode uint8

const (
	ScaleNone ScaleMode = iota
	ScaleDown
	ScaleUp
)

// ParseScaleMode parses "none", "down" or "up".
func ParseScaleMode(s string) (ScaleMode, error) {
	switch s {
	case "", "none":
		return ScaleNone, nil
	case "down":
		return ScaleDown, nil
	case "up":
		return ScaleUp, nil
	}
	return ScaleNone, fmt.Errorf("unknown scale mode %q", s)
}

// ImportOptions places and remaps a heightmap image.
type ImportOptions struct {
	StartSectionX int32
	StartSectionY int32
	MinHeight     float32
	MaxHeight     float32
	ScaleMode     ScaleMode
	ScaleFactor   int
	// Layer paints the base layer of sections created by the import.
	Layer int32
}

// ErrInvalidImage is returned for images too small to cover one quad.
var ErrInvalidImage = errors.New("invalid heightmap image")

// DecodeHeightmap decodes a PNG, BMP or TIFF heightmap.
func DecodeHeightmap(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding heightmap: %w", err)
	}
	logger.Debug("heightmap decoded", zap.String("format", format), zap.Stringer("bounds", img.Bounds()))
	return img, nil
}

// scaleImage resizes img by an integer factor with bilinear filtering.
func scaleImage(img image.Image, mode ScaleMode, factor int) image.Image {
	if mode == ScaleNone || factor <= 1 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if mode == ScaleDown {
		w, h = max(1, w/factor), max(1, h/factor)
	} else {
		w, h = w*factor, h*factor
	}
	dst := image.NewGray16(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// intensity returns a pixel's normalized luminance.
func intensity(img image.Image, x, y int) float32 {
	g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
	return float32(g.Y) / 0xffff
}

// ImportHeightmap writes img into the terrain, one pixel per point, starting
// at the first point of the start section. Missing destination sections
// are created first. Heights are written through SetPointHeight so
// quadtrees and neighbour edges stay consistent.
func (d *TerrainData) ImportHeightmap(img image.Image, opts ImportOptions, progress terrain.Progress) error {
	img = scaleImage(img, opts.ScaleMode, opts.ScaleFactor)
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}

	size := int(d.params.SectionSize)
	sectionsX := (b.Dx() - 1 + size - 1) / size
	sectionsY := (b.Dy() - 1 + size - 1) / size

	progress.SetStatus("importing heightmap")
	progress.SetRange(sectionsX*sectionsY + b.Dy())
	done := 0

	for sy := 0; sy < sectionsY; sy++ {
		for sx := 0; sx < sectionsX; sx++ {
			if progress.Cancelled() {
				return terrain.ErrCancelled
			}
			x, y := opts.StartSectionX+int32(sx), opts.StartSectionY+int32(sy)
			if !d.IsSectionAvailable(x, y) {
				if !d.CreateSection(x, y, float32(d.params.BaseHeight), opts.Layer) {
					return fmt.Errorf("creating section (%d, %d) with layer %d failed", x, y, opts.Layer)
				}
			} else if err := d.LoadSection(x, y); err != nil {
				return err
			}
			done++
			progress.SetValue(done)
		}
	}

	originX, originY := d.CalculatePointForSectionAndOffset(opts.StartSectionX, opts.StartSectionY, 0, 0)
	span := opts.MaxHeight - opts.MinHeight
	for py := 0; py < b.Dy(); py++ {
		if progress.Cancelled() {
			return terrain.ErrCancelled
		}
		for px := 0; px < b.Dx(); px++ {
			h := opts.MinHeight + intensity(img, b.Min.X+px, b.Min.Y+py)*span
			d.SetPointHeight(originX+int32(px), originY+int32(py), h)
		}
		done++
		progress.SetValue(done)
	}

	d.log.Info("heightmap imported",
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.Int("sectionsX", sectionsX),
		zap.Int("sectionsY", sectionsY))
	return nil
}
