// Package gldevice implements the terrain GraphicsDevice on OpenGL 4.1.
package gldevice

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/lighting"
	"github.com/Faultbox/midgard-terrain/internal/engine/renderer"
	"github.com/Faultbox/midgard-terrain/internal/engine/shader"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

const floatSize = 4

var errEmpty = errors.New("empty buffer")

type vertexArray struct {
	vao, vbo uint32
}

// Device draws terrain with GL. It must be created and used on the thread
// owning the GL context.
type Device struct {
	log         *zap.Logger
	program     *shader.Program
	sectionSize float32
	sun         math.Vec3

	arrays   map[renderer.BufferID]vertexArray
	elements map[renderer.BufferID]uint32
	textures map[renderer.TextureID]uint32
	nextID   uint32
}

// New initializes GL and compiles the terrain program. sectionWorldSize
// maps section-relative positions to splat texture coordinates.
func New(sectionWorldSize float32) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log := logger.Named("gl")
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.FrontFace(gl.CW)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	program, err := shader.Compile(terrainVertexShader, terrainFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("terrain program: %w", err)
	}

	return &Device{
		log:         log,
		program:     program,
		sectionSize: sectionWorldSize,
		sun:         lighting.SunDirection(135, 45),
		arrays:      make(map[renderer.BufferID]vertexArray),
		elements:    make(map[renderer.BufferID]uint32),
		textures:    make(map[renderer.TextureID]uint32),
	}, nil
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

// CreateVertexBuffer uploads interleaved position and normal data.
func (d *Device) CreateVertexBuffer(data []float32) (renderer.BufferID, error) {
	if len(data) == 0 {
		return 0, errEmpty
	}
	var va vertexArray
	gl.GenVertexArrays(1, &va.vao)
	gl.BindVertexArray(va.vao)
	gl.GenBuffers(1, &va.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*floatSize, gl.Ptr(data), gl.DYNAMIC_DRAW)

	stride := int32(6 * floatSize)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*floatSize)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteBuffers(1, &va.vbo)
		gl.DeleteVertexArrays(1, &va.vao)
		return 0, fmt.Errorf("vertex buffer: GL error 0x%x", code)
	}
	id := renderer.BufferID(d.id())
	d.arrays[id] = va
	return id, nil
}

// UpdateVertexBuffer rewrites a float range of a vertex buffer.
func (d *Device) UpdateVertexBuffer(id renderer.BufferID, offset int, data []float32) error {
	va, ok := d.arrays[id]
	if !ok {
		return fmt.Errorf("unknown vertex buffer %d", id)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, offset*floatSize, len(data)*floatSize, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// CreateIndexBuffer uploads a uint32 element buffer.
func (d *Device) CreateIndexBuffer(data []uint32) (renderer.BufferID, error) {
	if len(data) == 0 {
		return 0, errEmpty
	}
	var ebo uint32
	gl.GenBuffers(1, &ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	id := renderer.BufferID(d.id())
	d.elements[id] = ebo
	return id, nil
}

// DeleteBuffer frees a vertex or index buffer.
func (d *Device) DeleteBuffer(id renderer.BufferID) {
	if va, ok := d.arrays[id]; ok {
		gl.DeleteBuffers(1, &va.vbo)
		gl.DeleteVertexArrays(1, &va.vao)
		delete(d.arrays, id)
	}
	if ebo, ok := d.elements[id]; ok {
		gl.DeleteBuffers(1, &ebo)
		delete(d.elements, id)
	}
}

func textureFormat(channels int) (int32, uint32) {
	switch channels {
	case 1:
		return gl.R8, gl.RED
	case 2:
		return gl.RG8, gl.RG
	default:
		return gl.RGBA8, gl.RGBA
	}
}

func upload(desc renderer.TextureDesc, data []byte, create bool) {
	internal, format := textureFormat(desc.Channels)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(desc.RowPitch/desc.Channels))
	ptr := unsafe.Pointer(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	if create {
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, gl.UNSIGNED_BYTE, ptr)
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(desc.Width), int32(desc.Height), format, gl.UNSIGNED_BYTE, ptr)
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
}

// CreateTexture uploads a splat map.
func (d *Device) CreateTexture(desc renderer.TextureDesc, data []byte) (renderer.TextureID, error) {
	if desc.Channels <= 0 || desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("invalid texture %dx%d with %d channels", desc.Width, desc.Height, desc.Channels)
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	upload(desc, data, true)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	id := renderer.TextureID(d.id())
	d.textures[id] = tex
	return id, nil
}

// UpdateTexture re-uploads a splat map of unchanged size.
func (d *Device) UpdateTexture(id renderer.TextureID, desc renderer.TextureDesc, data []byte) error {
	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("unknown texture %d", id)
	}
	gl.BindTexture(gl.TEXTURE_2D, tex)
	upload(desc, data, false)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// DeleteTexture frees a texture.
func (d *Device) DeleteTexture(id renderer.TextureID) {
	if tex, ok := d.textures[id]; ok {
		gl.DeleteTextures(1, &tex)
		delete(d.textures, id)
	}
}

// SetSunDirection sets the direction towards the light.
func (d *Device) SetSunDirection(dir math.Vec3) {
	d.sun = dir.Normalize()
}

// Viewport resizes the GL viewport.
func (d *Device) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (d *Device) ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// Clear clears color and depth.
func (d *Device) Clear() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// BeginTerrain binds the terrain program.
func (d *Device) BeginTerrain(viewProj math.Mat4, camera math.Vec3) {
	d.program.Use()
	d.program.SetMat4("uViewProj", viewProj)
	d.program.SetVec3("uCamera", camera)
	d.program.SetFloat("uSectionSize", d.sectionSize)
	d.program.SetInt("uSplat", 0)
	d.program.SetVec3("uLightDir", d.sun)
}

// DrawIndexed draws one patch.
func (d *Device) DrawIndexed(call renderer.DrawCall) {
	va, ok := d.arrays[call.VertexBuffer]
	ebo, eok := d.elements[call.IndexBuffer]
	if !ok || !eok {
		d.log.Warn("draw with unknown buffer",
			zap.Uint32("vertexBuffer", uint32(call.VertexBuffer)),
			zap.Uint32("indexBuffer", uint32(call.IndexBuffer)))
		return
	}

	d.program.SetVec3("uOrigin", call.Origin)
	d.program.SetInt("uLOD", int32(call.LODLevel))
	hasSplat := int32(0)
	if len(call.SplatMaps) > 0 {
		if tex, ok := d.textures[call.SplatMaps[0]]; ok {
			gl.ActiveTexture(gl.TEXTURE0)
			gl.BindTexture(gl.TEXTURE_2D, tex)
			hasSplat = 1
		}
	}
	d.program.SetInt("uHasSplat", hasSplat)

	gl.BindVertexArray(va.vao)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(call.IndexCount), gl.UNSIGNED_INT, uintptr(call.IndexOffset*4))
}

// EndTerrain unbinds terrain state.
func (d *Device) EndTerrain() {
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
}

// Close frees every GL object the device still owns.
func (d *Device) Close() {
	for id := range d.arrays {
		d.DeleteBuffer(id)
	}
	for id := range d.elements {
		d.DeleteBuffer(id)
	}
	for id := range d.textures {
		d.DeleteTexture(id)
	}
	d.program.Delete()
	d.log.Info("GL device closed")
}

var _ renderer.GraphicsDevice = (*Device)(nil)
