// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"image"
	"image/color"
	"math/rand"
)

// cellSize is the pixel size of one atlas cell.
const cellSize = 16

// The atlas lays out the four terrain kinds on the first row
// and the four monster variants on the second, matching
// tile.MonsterBase.
const (
	atlasCols = 4
	atlasRows = 2
)

// buildAtlas draws the demo's sprite sheet: flat, lightly
// speckled terrain cells and round monster bodies on
// transparent ground. The seed is fixed, so every run ships
// the same art.
func buildAtlas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, atlasCols*cellSize, atlasRows*cellSize))
	rng := rand.New(rand.NewSource(7))
	terrain := [atlasCols]struct{ base, fleck color.RGBA }{
		{color.RGBA{64, 152, 68, 255}, color.RGBA{52, 128, 56, 255}},
		{color.RGBA{214, 192, 118, 255}, color.RGBA{196, 172, 96, 255}},
		{color.RGBA{56, 96, 188, 255}, color.RGBA{88, 128, 212, 255}},
		{color.RGBA{108, 104, 100, 255}, color.RGBA{84, 80, 78, 255}},
	}
	for i, t := range terrain {
		fillCell(img, i, 0, t.base)
		speckle(img, rng, i, 0, t.fleck)
	}
	bodies := [atlasCols]color.RGBA{
		{228, 88, 72, 255},
		{232, 176, 60, 255},
		{160, 84, 212, 255},
		{72, 196, 208, 255},
	}
	for i, c := range bodies {
		blob(img, i, 1, c)
	}
	return img
}

// fillCell paints cell (cx, cy) with c.
func fillCell(img *image.RGBA, cx, cy int, c color.RGBA) {
	for y := 0; y < cellSize; y++ {
		for x := 0; x < cellSize; x++ {
			img.SetRGBA(cx*cellSize+x, cy*cellSize+y, c)
		}
	}
}

// speckle scatters fleck pixels over cell (cx, cy).
func speckle(img *image.RGBA, rng *rand.Rand, cx, cy int, c color.RGBA) {
	for i := 0; i < cellSize*cellSize/8; i++ {
		x := rng.Intn(cellSize)
		y := rng.Intn(cellSize)
		img.SetRGBA(cx*cellSize+x, cy*cellSize+y, c)
	}
}

// blob paints a round monster body with two eyes in cell
// (cx, cy), leaving the rest transparent.
func blob(img *image.RGBA, cx, cy int, c color.RGBA) {
	const r = cellSize/2 - 1
	for y := 0; y < cellSize; y++ {
		for x := 0; x < cellSize; x++ {
			dx := x - cellSize/2
			dy := y - cellSize/2
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(cx*cellSize+x, cy*cellSize+y, c)
			}
		}
	}
	eye := color.RGBA{255, 255, 255, 255}
	img.SetRGBA(cx*cellSize+5, cy*cellSize+6, eye)
	img.SetRGBA(cx*cellSize+10, cy*cellSize+6, eye)
}
