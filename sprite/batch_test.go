// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package sprite

import (
	"testing"

	"github.com/chewxy/math32"
	mat32 "goki.dev/mat32/v2"
)

func TestBatchAppend(t *testing.T) {
	var b Batch
	if n := b.Quads(); n != 0 {
		t.Fatalf("Batch.Quads: have %d, want 0", n)
	}
	white := mat32.Vec4{X: 1, Y: 1, Z: 1, W: 1}
	b.Append(1, 2, 3, 4, 0.25, 0.5, 0.75, 1, white)
	if n := b.Quads(); n != 1 {
		t.Fatalf("Batch.Quads: have %d, want 1", n)
	}
	want := []Vertex{
		{mat32.Vec2{X: 1, Y: 2}, mat32.Vec2{X: 0.25, Y: 0.5}, white},
		{mat32.Vec2{X: 4, Y: 2}, mat32.Vec2{X: 0.75, Y: 0.5}, white},
		{mat32.Vec2{X: 4, Y: 6}, mat32.Vec2{X: 0.75, Y: 1}, white},
		{mat32.Vec2{X: 1, Y: 6}, mat32.Vec2{X: 0.25, Y: 1}, white},
	}
	for i, w := range want {
		if b.verts[i] != w {
			t.Fatalf("Batch.Append: vertex %d: have %v, want %v", i, b.verts[i], w)
		}
	}
	b.Append(0, 0, 1, 1, 0, 0, 1, 1, white)
	if n := b.Quads(); n != 2 {
		t.Fatalf("Batch.Quads: have %d, want 2", n)
	}
}

func TestBatchReset(t *testing.T) {
	var b Batch
	b.Append(0, 0, 1, 1, 0, 0, 1, 1, mat32.Vec4{})
	b.Reset()
	if n := b.Quads(); n != 0 {
		t.Fatalf("Batch.Quads after Reset: have %d, want 0", n)
	}
	b.Append(5, 5, 1, 1, 0, 0, 1, 1, mat32.Vec4{})
	if n := b.Quads(); n != 1 {
		t.Fatalf("Batch.Quads after reuse: have %d, want 1", n)
	}
	if p := b.verts[0].Pos; p != (mat32.Vec2{X: 5, Y: 5}) {
		t.Fatalf("Batch reuse: have position %v, want {5 5}", p)
	}
}

func TestIndexPattern(t *testing.T) {
	want := []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}
	idx := indexPattern(2)
	if len(idx) != len(want) {
		t.Fatalf("indexPattern length: have %d, want %d", len(idx), len(want))
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("indexPattern[%d]: have %d, want %d", i, idx[i], want[i])
		}
	}
	if n := len(indexPattern(0)); n != 0 {
		t.Fatalf("indexPattern(0) length: have %d, want 0", n)
	}
}

func TestCameraMatrix(t *testing.T) {
	near := func(a, b float32) bool { return math32.Abs(a-b) <= 1e-6 }
	cam := Camera{Pos: mat32.Vec2{X: 3, Y: 2}, PPU: 100}
	m := cam.matrix(800, 600)
	if m[0] != 0.25 {
		t.Fatalf("matrix x scale: have %v, want 0.25", m[0])
	}
	if !near(m[5], 1.0/3) {
		t.Fatalf("matrix y scale: have %v, want 1/3", m[5])
	}
	if m[10] != 1 || m[15] != 1 {
		t.Fatalf("matrix diagonal: have %v, %v, want 1, 1", m[10], m[15])
	}
	// The camera position must land at the clip origin.
	if x := m[0]*cam.Pos.X + m[12]; !near(x, 0) {
		t.Fatalf("camera center clip x: have %v, want 0", x)
	}
	if y := m[5]*cam.Pos.Y + m[13]; !near(y, 0) {
		t.Fatalf("camera center clip y: have %v, want 0", y)
	}
	// One world unit to the right must cover 2*PPU/width in
	// clip space, and y must not flip.
	if x := m[0]*(cam.Pos.X+1) + m[12]; !near(x, 0.25) {
		t.Fatalf("unit offset clip x: have %v, want 0.25", x)
	}
	if y := m[5]*(cam.Pos.Y+1) + m[13]; y <= 0 {
		t.Fatalf("clip y flipped: have %v, want > 0", y)
	}
}

func TestVertexBytes(t *testing.T) {
	if b := vertexBytes(nil); b != nil {
		t.Fatalf("vertexBytes(nil): have %d bytes, want nil", len(b))
	}
	vs := []Vertex{{}, {}, {}}
	if n := len(vertexBytes(vs)); n != 3*vertexSize {
		t.Fatalf("vertexBytes length: have %d, want %d", n, 3*vertexSize)
	}
	if n := len(indexBytes([]uint32{1, 2, 3})); n != 12 {
		t.Fatalf("indexBytes length: have %d, want 12", n)
	}
}

func TestSPIRVWords(t *testing.T) {
	if _, err := spirvWords(nil); err == nil {
		t.Fatal("spirvWords(nil): have nil error")
	}
	if _, err := spirvWords(make([]byte, 7)); err == nil {
		t.Fatal("spirvWords with odd size: have nil error")
	}
	words, err := spirvWords(make([]byte, 32))
	if err != nil {
		t.Fatalf("spirvWords: %v", err)
	}
	if len(words) != 8 {
		t.Fatalf("spirvWords length: have %d, want 8", len(words))
	}
}
