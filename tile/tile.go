// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package tile simulates a small tile world: seeded terrain
// generation and a population of wandering monsters.
// It is plain simulation code with no GPU types; rendering
// consumes it through quad batch emission.
package tile

import (
	"math/rand"

	mat32 "goki.dev/mat32/v2"

	"gviegas/neo2/sprite"
)

// Kind identifies a terrain tile. Kinds double as atlas
// cell indices for emission.
type Kind int

const (
	Grass Kind = iota
	Sand
	Water
	Wall
	nkind
)

// MonsterBase is the atlas cell where monster variants start
// on a sheet that lays out the terrain kinds first.
const MonsterBase = int(nkind)

// passable reports whether monsters may stand on k.
func (k Kind) passable() bool { return k == Grass || k == Sand }

// Sheet locates sprites on an atlas laid out as a grid of
// uniform cells, indexed in row-major order.
type Sheet struct {
	Cols int
	Rows int
}

// Rect returns the UV rectangle of cell i.
func (s Sheet) Rect(i int) (u0, v0, u1, v1 float32) {
	du := 1 / float32(s.Cols)
	dv := 1 / float32(s.Rows)
	u0 = float32(i%s.Cols) * du
	v0 = float32(i/s.Cols) * dv
	return u0, v0, u0 + du, v0 + dv
}

// World is one running simulation. One world unit equals
// one tile; tile (i, j) spans [i, i+1] × [j, j+1] with Y
// growing downward.
type World struct {
	width  int
	height int
	tiles  []Kind
	mons   []Monster
	rng    *rand.Rand
}

// New generates a world of the given size with the given
// monster population. Generation and simulation draw from a
// single source seeded with seed, so equal arguments make
// equal worlds and equal Advance sequences keep them equal.
func New(width, height, monsters int, seed int64) *World {
	// Room for the border and one interior tile.
	if width < 3 {
		width = 3
	}
	if height < 3 {
		height = 3
	}
	w := &World{
		width:  width,
		height: height,
		tiles:  make([]Kind, width*height),
		rng:    rand.New(rand.NewSource(seed)),
	}
	w.generate()
	for i := 0; i < monsters; i++ {
		w.mons = append(w.mons, w.spawn())
	}
	return w
}

// generate fills the terrain: a walled border, lakes carved
// by random walks and sand wherever grass touches water.
func (w *World) generate() {
	for i := range w.tiles {
		w.tiles[i] = Grass
	}
	for x := 0; x < w.width; x++ {
		w.tiles[x] = Wall
		w.tiles[(w.height-1)*w.width+x] = Wall
	}
	for y := 0; y < w.height; y++ {
		w.tiles[y*w.width] = Wall
		w.tiles[y*w.width+w.width-1] = Wall
	}

	lakes := max(1, w.width*w.height/192)
	for i := 0; i < lakes; i++ {
		x := 1 + w.rng.Intn(w.width-2)
		y := 1 + w.rng.Intn(w.height-2)
		steps := 8 + w.rng.Intn(w.width+w.height)
		for j := 0; j < steps; j++ {
			w.tiles[y*w.width+x] = Water
			switch w.rng.Intn(4) {
			case 0:
				x++
			case 1:
				x--
			case 2:
				y++
			case 3:
				y--
			}
			if x < 1 || x >= w.width-1 || y < 1 || y >= w.height-1 {
				break
			}
		}
	}

	for y := 1; y < w.height-1; y++ {
		for x := 1; x < w.width-1; x++ {
			if w.tiles[y*w.width+x] != Grass {
				continue
			}
			if w.at(x-1, y) == Water || w.at(x+1, y) == Water ||
				w.at(x, y-1) == Water || w.at(x, y+1) == Water {
				w.tiles[y*w.width+x] = Sand
			}
		}
	}

	rocks := w.width * w.height / 64
	for i := 0; i < rocks; i++ {
		x := 1 + w.rng.Intn(w.width-2)
		y := 1 + w.rng.Intn(w.height-2)
		if w.tiles[y*w.width+x] == Grass {
			w.tiles[y*w.width+x] = Wall
		}
	}
}

// at returns the tile at (x, y); out-of-range coordinates
// read as Wall.
func (w *World) at(x, y int) Kind {
	if x < 0 || y < 0 || x >= w.width || y >= w.height {
		return Wall
	}
	return w.tiles[y*w.width+x]
}

// Size returns the world dimensions in tiles.
func (w *World) Size() (width, height int) { return w.width, w.height }

// At returns the tile at (x, y). Out-of-range coordinates
// read as Wall, so callers need not clamp.
func (w *World) At(x, y int) Kind { return w.at(x, y) }

// Monsters returns the monster population. The slice is the
// world's own; Advance mutates it.
func (w *World) Monsters() []Monster { return w.mons }

// AppendTileQuads appends one quad per terrain tile to b,
// textured by the atlas cell matching each tile's Kind.
// The result feeds the static batch: terrain never changes
// after generation.
func (w *World) AppendTileQuads(b *sprite.Batch, s Sheet) {
	white := mat32.Vec4{X: 1, Y: 1, Z: 1, W: 1}
	for y := 0; y < w.height; y++ {
		for x := 0; x < w.width; x++ {
			u0, v0, u1, v1 := s.Rect(int(w.tiles[y*w.width+x]))
			b.Append(float32(x), float32(y), 1, 1, u0, v0, u1, v1, white)
		}
	}
}

// AppendQuads appends the whole scene to b: every terrain
// tile followed by every monster. Splitting emission with
// AppendTileQuads and AppendMonsterQuads instead lets the
// terrain be staged once.
func (w *World) AppendQuads(b *sprite.Batch, s Sheet, monsterBase int) {
	w.AppendTileQuads(b, s)
	w.AppendMonsterQuads(b, s, monsterBase)
}
