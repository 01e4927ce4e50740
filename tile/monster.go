// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package tile

import (
	"github.com/chewxy/math32"
	mat32 "goki.dev/mat32/v2"

	"gviegas/neo2/sprite"
)

// monsterVariants is the number of distinct monster sprites
// a world draws from.
const monsterVariants = 4

// monsterSize is the quad size of a monster in world units.
const monsterSize = 0.8

// wanderRate bounds the random heading drift, in radians
// per second.
const wanderRate = 2.5

// Monster is a wandering creature. Pos is its center in
// world units; Heading its direction of travel in radians.
type Monster struct {
	Pos     mat32.Vec2
	Heading float32
	Speed   float32
	// Variant selects the sprite, in [0, monsterVariants).
	Variant int
}

// spawn creates a monster on a passable tile. Random
// placement is retried a bounded number of times before
// falling back to a scan; a world with no passable tile at
// all has its center cleared, since a population was asked
// for.
func (w *World) spawn() Monster {
	x, y := -1, -1
	for i := 0; i < 100; i++ {
		tx := 1 + w.rng.Intn(w.width-2)
		ty := 1 + w.rng.Intn(w.height-2)
		if w.at(tx, ty).passable() {
			x, y = tx, ty
			break
		}
	}
	if x < 0 {
	scan:
		for ty := 1; ty < w.height-1; ty++ {
			for tx := 1; tx < w.width-1; tx++ {
				if w.at(tx, ty).passable() {
					x, y = tx, ty
					break scan
				}
			}
		}
	}
	if x < 0 {
		x, y = w.width/2, w.height/2
		w.tiles[y*w.width+x] = Grass
	}
	return Monster{
		Pos:     mat32.Vec2{X: float32(x) + 0.5, Y: float32(y) + 0.5},
		Heading: w.rng.Float32() * 2 * math32.Pi,
		Speed:   0.5 + w.rng.Float32(),
		Variant: w.rng.Intn(monsterVariants),
	}
}

// passableAt reports whether the world point (x, y) lies on
// a passable tile.
func (w *World) passableAt(x, y float32) bool {
	return w.at(int(math32.Floor(x)), int(math32.Floor(y))).passable()
}

// Advance steps the simulation by dt seconds. Each monster
// drifts its heading randomly and moves along it; a step
// into an impassable tile is discarded and the monster
// turns away instead. Advance is deterministic for a given
// seed and call sequence.
func (w *World) Advance(dt float32) {
	for i := range w.mons {
		m := &w.mons[i]
		m.Heading += (w.rng.Float32()*2 - 1) * wanderRate * dt
		x := m.Pos.X + math32.Cos(m.Heading)*m.Speed*dt
		y := m.Pos.Y + math32.Sin(m.Heading)*m.Speed*dt
		if !w.passableAt(x, y) {
			m.Heading += math32.Pi/2 + w.rng.Float32()*math32.Pi
			continue
		}
		m.Pos.X = x
		m.Pos.Y = y
	}
}

// AppendMonsterQuads appends one quad per monster to b.
// Sprites start at atlas cell base: a monster of variant v
// uses cell base+v. The result feeds a per-frame batch.
func (w *World) AppendMonsterQuads(b *sprite.Batch, s Sheet, base int) {
	white := mat32.Vec4{X: 1, Y: 1, Z: 1, W: 1}
	for i := range w.mons {
		m := &w.mons[i]
		u0, v0, u1, v1 := s.Rect(base + m.Variant)
		b.Append(m.Pos.X-monsterSize/2, m.Pos.Y-monsterSize/2,
			monsterSize, monsterSize, u0, v0, u1, v1, white)
	}
}
