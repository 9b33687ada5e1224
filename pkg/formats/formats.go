// Package formats defines the on-disk layouts of terrain map files: section
// and quadtree binaries, region chunks, and the JSON map/terrain headers.
//
// All binary records are little-endian and fixed-size so they can be read
// with encoding/binary directly.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt is the root of all structural-corruption errors.
var ErrCorrupt = errors.New("corrupt terrain data")

// Structural corruption errors. All of them wrap ErrCorrupt.
var (
	ErrInvalidMagic       = fmt.Errorf("%w: invalid magic", ErrCorrupt)
	ErrInvalidHeaderSize  = fmt.Errorf("%w: invalid header size", ErrCorrupt)
	ErrTruncated          = fmt.Errorf("%w: truncated data", ErrCorrupt)
	ErrPointCountMismatch = fmt.Errorf("%w: point count mismatch", ErrCorrupt)
	ErrInvalidChildIndex  = fmt.Errorf("%w: invalid child node index", ErrCorrupt)
	ErrInvalidSplatMap    = fmt.Errorf("%w: invalid splat map", ErrCorrupt)
)

// ByteOrder is the byte order of every binary record.
var ByteOrder = binary.LittleEndian

// readRecord reads a fixed-size record, mapping short reads to ErrTruncated.
func readRecord(r io.Reader, v any, what string) error {
	if err := binary.Read(r, ByteOrder, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: reading %s", ErrTruncated, what)
		}
		return fmt.Errorf("reading %s: %w", what, err)
	}
	return nil
}

// writeRecord writes a fixed-size record.
func writeRecord(w io.Writer, v any, what string) error {
	if err := binary.Write(w, ByteOrder, v); err != nil {
		return fmt.Errorf("writing %s: %w", what, err)
	}
	return nil
}

// ReadBytes reads exactly n bytes.
func ReadBytes(r io.Reader, n int, what string) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: reading %s", ErrTruncated, what)
		}
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return buf, nil
}

// recordSize returns the encoded size of a fixed-size record.
func recordSize(v any) uint32 {
	return uint32(binary.Size(v))
}
