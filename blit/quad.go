package blit

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y          float32
	Width, Height float32
}

// IsEmpty reports whether r covers no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// FullTexture is the source rectangle covering a whole texture in
// normalized texture coordinates.
var FullTexture = Rect{Width: 1, Height: 1}

// Quad geometry.
const (
	quadVertices = 4
	// vertexFloats is position (2), texture coordinate (2) and color (4).
	vertexFloats = 8
	vertexStride = vertexFloats * 4
	quadBytes    = quadVertices * vertexStride

	// projectionBytes is one column-major mat4x4<f32>.
	projectionBytes = 16 * 4
)

// vertex is one corner of the blit quad.
type vertex struct {
	position f32.Vec2
	uv       f32.Vec2
	color    f32.Vec4
}

// quad returns the triangle-strip corners of dst textured with src.
func quad(dst, src Rect, color gputypes.Color) [quadVertices]vertex {
	c := f32.Vec4{float32(color.R), float32(color.G), float32(color.B), float32(color.A)}
	l, t := dst.X, dst.Y
	r, b := dst.X+dst.Width, dst.Y+dst.Height
	u0, v0 := src.X, src.Y
	u1, v1 := src.X+src.Width, src.Y+src.Height

	return [quadVertices]vertex{
		{f32.Vec2{l, t}, f32.Vec2{u0, v0}, c},
		{f32.Vec2{r, t}, f32.Vec2{u1, v0}, c},
		{f32.Vec2{l, b}, f32.Vec2{u0, v1}, c},
		{f32.Vec2{r, b}, f32.Vec2{u1, v1}, c},
	}
}

// encodeQuad writes vertices into buf in vertex buffer layout.
func encodeQuad(buf []byte, vertices [quadVertices]vertex) {
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, v := range vertices {
		put(v.position[0])
		put(v.position[1])
		put(v.uv[0])
		put(v.uv[1])
		for _, ch := range v.color {
			put(ch)
		}
	}
}

// ortho returns the projection mapping target pixels, origin top-left, to
// clip space.
func ortho(width, height uint32) f32.Mat4 {
	w, h := float32(width), float32(height)
	return f32.Mat4{
		2 / w, 0, 0, -1,
		0, -2 / h, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// encodeMatrix writes m into buf in column-major order as WGSL expects.
// f32.Mat4 is row-major.
func encodeMatrix(buf []byte, m f32.Mat4) {
	off := 0
	for col := range 4 {
		for row := range 4 {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(m[row*4+col]))
			off += 4
		}
	}
}
