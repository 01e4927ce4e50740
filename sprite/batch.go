// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package sprite

import (
	"unsafe"

	mat32 "goki.dev/mat32/v2"
)

// Vertex is the layout the pipeline consumes. Pos is in
// world units, UV in normalized atlas coordinates; Color
// multiplies the sampled texel.
type Vertex struct {
	Pos   mat32.Vec2
	UV    mat32.Vec2
	Color mat32.Vec4
}

const vertexSize = int(unsafe.Sizeof(Vertex{}))

// Batch accumulates quads on the CPU. The zero value is an
// empty batch ready for use; Reset empties it again while
// keeping its storage, so a batch can be rebuilt every
// frame without allocating.
type Batch struct {
	verts []Vertex
}

// Reset empties the batch.
func (b *Batch) Reset() { b.verts = b.verts[:0] }

// Quads returns the number of quads appended so far.
func (b *Batch) Quads() int { return len(b.verts) / 4 }

// Append adds the quad spanning [x, x+w] × [y, y+h] in
// world space, textured with the atlas rectangle
// (u0,v0)-(u1,v1) and tinted by color. Four vertices are
// appended in the order the shared index pattern expects.
func (b *Batch) Append(x, y, w, h, u0, v0, u1, v1 float32, color mat32.Vec4) {
	b.verts = append(b.verts,
		Vertex{mat32.Vec2{X: x, Y: y}, mat32.Vec2{X: u0, Y: v0}, color},
		Vertex{mat32.Vec2{X: x + w, Y: y}, mat32.Vec2{X: u1, Y: v0}, color},
		Vertex{mat32.Vec2{X: x + w, Y: y + h}, mat32.Vec2{X: u1, Y: v1}, color},
		Vertex{mat32.Vec2{X: x, Y: y + h}, mat32.Vec2{X: u0, Y: v1}, color},
	)
}

// indexPattern returns the index stream for n quads: two
// triangles over each group of four vertices.
func indexPattern(n int) []uint32 {
	idx := make([]uint32, 0, n*6)
	for i := 0; i < n; i++ {
		k := uint32(i * 4)
		idx = append(idx, k, k+1, k+2, k+2, k+3, k)
	}
	return idx
}

// Camera maps world coordinates to the drawable. Pos is the
// world point at the center of the drawable and PPU the
// number of pixels one world unit covers.
type Camera struct {
	Pos mat32.Vec2
	PPU float32
}

// matrix returns the clip transform for a drawable of the
// given pixel size, as the column-major 4x4 the vertex
// stage's push constant block expects. World Y grows
// downward like Vulkan clip Y, so there is no flip.
func (c *Camera) matrix(width, height int) [16]float32 {
	sx := 2 * c.PPU / float32(width)
	sy := 2 * c.PPU / float32(height)
	return [16]float32{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, 1, 0,
		-c.Pos.X * sx, -c.Pos.Y * sy, 0, 1,
	}
}

// pushSize is the size of the vertex stage's push constant
// block, a single 4x4 float32 matrix.
const pushSize = 16 * 4

// vertexBytes views vs as raw bytes without copying.
func vertexBytes(vs []Vertex) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*vertexSize)
}

// indexBytes views idx as raw bytes without copying.
func indexBytes(idx []uint32) []byte {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), len(idx)*4)
}
