// Package renderer turns terrain sections into GPU resources and draws the
// quadtree node selection through a GraphicsDevice.
package renderer

import (
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// BufferID names a device vertex or index buffer. Zero is never valid.
type BufferID uint32

// TextureID names a device texture. Zero is never valid.
type TextureID uint32

// TextureDesc describes a tightly packed byte texture whose rows are
// RowPitch bytes apart.
type TextureDesc struct {
	Width    int
	Height   int
	Channels int
	RowPitch int
}

// DrawCall draws IndexCount indices starting at IndexOffset.
type DrawCall struct {
	VertexBuffer BufferID
	IndexBuffer  BufferID
	IndexOffset  int
	IndexCount   int
	SplatMaps    []TextureID
	// Origin is the world position of the section's first point; vertex
	// positions are relative to it.
	Origin   math.Vec3
	LODLevel uint32
}

// GraphicsDevice is the GPU surface the terrain renderer needs. All calls
// happen on the render thread.
type GraphicsDevice interface {
	CreateVertexBuffer(data []float32) (BufferID, error)
	UpdateVertexBuffer(id BufferID, offset int, data []float32) error
	CreateIndexBuffer(data []uint32) (BufferID, error)
	DeleteBuffer(id BufferID)

	CreateTexture(desc TextureDesc, data []byte) (TextureID, error)
	UpdateTexture(id TextureID, desc TextureDesc, data []byte) error
	DeleteTexture(id TextureID)

	BeginTerrain(viewProj math.Mat4, cameraPosition math.Vec3)
	DrawIndexed(call DrawCall)
	EndTerrain()
}
