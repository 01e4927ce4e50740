// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// neo2demo renders a generated tile world populated by
// wandering monsters. WASD or the arrow keys pan the camera,
// space recenters it and escape quits.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/chewxy/math32"
	mat32 "goki.dev/mat32/v2"

	"gviegas/neo2"
	"gviegas/neo2/sprite"
	"gviegas/neo2/tile"
	"gviegas/neo2/wsi"
)

func init() {
	// The window system and the swap chain must stay on the
	// main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "neo2demo:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "neo2.toml", "TOML configuration file")
	debug := flag.Bool("debug", false, "log renderer events to stderr")
	vsync := flag.Bool("vsync", false, "present in vertical blank order")
	validation := flag.Bool("validation", false, "enable the Vulkan validation layer")
	seed := flag.Int64("seed", 0, "world generation seed")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "vsync":
			cfg.VSync = *vsync
		case "validation":
			cfg.Validation = *validation
		case "seed":
			cfg.World.Seed = *seed
		}
	})
	if *debug {
		neo2.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	vert, err := os.ReadFile(cfg.VertSPV)
	if err != nil {
		return err
	}
	frag, err := os.ReadFile(cfg.FragSPV)
	if err != nil {
		return err
	}

	if err := wsi.Init(); err != nil {
		return err
	}
	defer wsi.Terminate()

	r, err := neo2.New(neo2.Config{
		Title:           cfg.Title,
		Width:           cfg.Width,
		Height:          cfg.Height,
		Atlas:           buildAtlas(),
		VertSPV:         vert,
		FragSPV:         frag,
		Clear:           cfg.Clear,
		VSync:           cfg.VSync,
		FramesInFlight:  cfg.Frames,
		SuboptimalLimit: cfg.Suboptimal,
		Validation:      cfg.Validation,
	})
	if err != nil {
		return err
	}
	defer r.Destroy()

	world := tile.New(cfg.World.Width, cfg.World.Height, cfg.World.Monsters, cfg.World.Seed)
	sheet := tile.Sheet{Cols: atlasCols, Rows: atlasRows}

	var tiles sprite.Batch
	world.AppendTileQuads(&tiles, sheet)
	if err := r.SetTiles(&tiles); err != nil {
		return err
	}

	ww, wh := world.Size()
	center := mat32.Vec2{X: float32(ww) / 2, Y: float32(wh) / 2}
	cam := sprite.Camera{Pos: center, PPU: cfg.PPU}

	held := map[wsi.Key]bool{}
	r.Window().OnKey(func(key wsi.Key, pressed bool) {
		switch key {
		case wsi.KeyEsc:
			if pressed {
				r.Stop()
			}
		case wsi.KeySpace:
			if pressed {
				cam.Pos = center
			}
		default:
			held[key] = pressed
		}
	})

	var (
		sprites sprite.Batch
		acc     float32
		second  float32
		frames  int
	)
	const tick = 1.0 / 60
	return r.Run(func(dt float32) (*sprite.Camera, *sprite.Batch, error) {
		panCamera(&cam, held, dt)
		// The simulation advances on a fixed timestep, so its
		// course does not depend on frame rate.
		for acc += dt; acc >= tick; acc -= tick {
			world.Advance(tick)
		}
		sprites.Reset()
		world.AppendMonsterQuads(&sprites, sheet, tile.MonsterBase)

		frames++
		if second += dt; second >= 1 {
			r.Window().SetTitle(fmt.Sprintf("%s (%s) %d fps", cfg.Title, r.DeviceName(), frames))
			second, frames = 0, 0
		}
		return &cam, &sprites, nil
	})
}

// panCamera moves cam according to the held movement keys.
func panCamera(cam *sprite.Camera, held map[wsi.Key]bool, dt float32) {
	const speed = 8 // tiles per second
	var v mat32.Vec2
	if held[wsi.KeyW] || held[wsi.KeyUp] {
		v.Y--
	}
	if held[wsi.KeyS] || held[wsi.KeyDown] {
		v.Y++
	}
	if held[wsi.KeyA] || held[wsi.KeyLeft] {
		v.X--
	}
	if held[wsi.KeyD] || held[wsi.KeyRight] {
		v.X++
	}
	s := speed * dt
	if v.X != 0 && v.Y != 0 {
		s /= math32.Sqrt(2)
	}
	cam.Pos.X += v.X * s
	cam.Pos.Y += v.Y * s
}
