// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// config is the demo's TOML-decoded configuration.
// Pacing fields left at zero select the renderer's defaults.
type config struct {
	Title      string      `toml:"title"`
	Width      int         `toml:"width"`
	Height     int         `toml:"height"`
	VSync      bool        `toml:"vsync"`
	Frames     int         `toml:"frames-in-flight"`
	Suboptimal int         `toml:"suboptimal-limit"`
	Validation bool        `toml:"validation"`
	PPU        float32     `toml:"pixels-per-tile"`
	Clear      [4]float32  `toml:"clear"`
	VertSPV    string      `toml:"vert-spv"`
	FragSPV    string      `toml:"frag-spv"`
	World      worldConfig `toml:"world"`
}

// worldConfig configures generation of the demo world.
type worldConfig struct {
	Width    int   `toml:"width"`
	Height   int   `toml:"height"`
	Monsters int   `toml:"monsters"`
	Seed     int64 `toml:"seed"`
}

// defaultConfig returns the configuration used for keys the
// file does not set.
func defaultConfig() config {
	return config{
		Title:   "neo2 demo",
		Width:   1280,
		Height:  720,
		PPU:     32,
		Clear:   [4]float32{0.07, 0.08, 0.1, 1},
		VertSPV: "shaders/sprite.vert.spv",
		FragSPV: "shaders/sprite.frag.spv",
		World: worldConfig{
			Width:    48,
			Height:   32,
			Monsters: 12,
			Seed:     1,
		},
	}
}

// parseConfig decodes TOML data over the defaults.
func parseConfig(data []byte) (config, error) {
	cfg := defaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// loadConfig reads path and decodes it over the defaults.
// A missing file is not an error; the defaults apply.
func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	if err != nil {
		return config{}, err
	}
	return parseConfig(data)
}
