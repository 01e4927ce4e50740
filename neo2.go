// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package neo2 is a real-time renderer for 2D tile maps and
// sprites, built on Vulkan.
//
// A Renderer ties together the window (wsi), the driver
// bootstrap (vkdev), the swap chain and frame protocol
// (present) and the quad pipeline (sprite). Callers drive it
// from the main goroutine: dispatch window events, advance
// their world, fill a sprite batch and call Frame. Run wraps
// that loop for the common case.
package neo2

import (
	"image"
	"time"

	"gviegas/neo2/present"
	"gviegas/neo2/sprite"
	"gviegas/neo2/vkdev"
	"gviegas/neo2/wsi"
)

// Config parameterizes New. The zero value of every field
// other than Atlas and the shader code is usable.
type Config struct {
	// Title names the window and the application.
	Title string
	// Width and Height size the window in screen
	// coordinates. Values below one select a default.
	Width, Height int

	// Atlas is the texture atlas every quad samples. It must
	// not be nil.
	Atlas image.Image
	// AtlasScale prescales the atlas by an integer factor
	// with nearest neighbor filtering. Values below two
	// leave it unscaled.
	AtlasScale int
	// VertSPV and FragSPV hold the SPIR-V bytecode of the
	// sprite pipeline's shader stages.
	VertSPV, FragSPV []byte
	// Clear is the background color, as RGBA in [0, 1].
	Clear [4]float32

	// VSync, FramesInFlight and SuboptimalLimit configure
	// presentation; see present.Config.
	VSync           bool
	FramesInFlight  int
	SuboptimalLimit int

	// Validation enables the Vulkan validation layer.
	Validation bool
}

// Renderer owns a window and everything needed to render
// quad batches into it. New creates it; Destroy releases it.
//
// A Renderer is driven from a single goroutine, which must
// be the main one since window system calls happen on it.
type Renderer struct {
	win    *wsi.Window
	dev    *vkdev.Device
	sf     *present.Surface
	loop   *present.Loop
	drawer *sprite.Drawer
	stop   bool
}

// New creates a window and a Renderer drawing into it.
// wsi.Init must have succeeded beforehand.
func New(cfg Config) (r *Renderer, err error) {
	if cfg.Title == "" {
		cfg.Title = "neo2"
	}
	if cfg.Width < 1 {
		cfg.Width = 1280
	}
	if cfg.Height < 1 {
		cfg.Height = 720
	}
	r = &Renderer{}
	if r.win, err = wsi.NewWindow(cfg.Width, cfg.Height, cfg.Title); err != nil {
		goto fail
	}
	if r.dev, err = vkdev.Open(r.win, vkdev.Options{
		AppName:    cfg.Title,
		Validation: cfg.Validation,
	}); err != nil {
		goto fail
	}
	if r.sf, err = present.NewSurface(r.dev, r.win, present.Config{
		VSync: cfg.VSync,
	}); err != nil {
		goto fail
	}
	if r.loop, err = present.NewLoop(r.dev, r.sf, present.Config{
		FramesInFlight:  cfg.FramesInFlight,
		SuboptimalLimit: cfg.SuboptimalLimit,
	}); err != nil {
		goto fail
	}
	if r.drawer, err = sprite.NewDrawer(r.dev, r.sf, sprite.Config{
		Atlas:      cfg.Atlas,
		AtlasScale: cfg.AtlasScale,
		VertSPV:    cfg.VertSPV,
		FragSPV:    cfg.FragSPV,
		Frames:     r.loop.FramesInFlight(),
		Clear:      cfg.Clear,
	}); err != nil {
		goto fail
	}
	// Framebuffers view the swap chain's images, so every
	// rebuild must reach the drawer.
	r.loop.OnRebuild(func() error {
		ext := r.sf.Extent()
		Logger().Debug("swap chain rebuilt",
			"width", ext.Width, "height", ext.Height,
			"images", r.sf.ImageCount())
		return r.drawer.Rebuild()
	})
	Logger().Info("renderer ready",
		"device", r.dev.Name(),
		"width", r.sf.Extent().Width,
		"height", r.sf.Extent().Height,
		"images", r.sf.ImageCount(),
		"frames", r.loop.FramesInFlight())
	return r, nil
fail:
	r.Destroy()
	return nil, err
}

// Window returns the Renderer's window.
func (r *Renderer) Window() *wsi.Window { return r.win }

// DeviceName returns the name of the Vulkan device in use.
func (r *Renderer) DeviceName() string { return r.dev.Name() }

// Extent returns the swap chain's current extent.
func (r *Renderer) Extent() present.Dim { return r.sf.Extent() }

// Format returns the selected surface format.
func (r *Renderer) Format() present.Format { return r.sf.Format() }

// Views returns the per-image views of the current swap
// chain generation. The result is valid until the next
// rebuild.
func (r *Renderer) Views() []present.View { return r.sf.Views() }

// SetTiles stages b as the static tile layer, drawn under
// the sprites of every subsequent frame.
func (r *Renderer) SetTiles(b *sprite.Batch) error { return r.drawer.SetTiles(b) }

// Frame renders and presents one frame: the tile layer,
// then sprites, viewed through cam. sprites may be nil when
// only tiles are drawn. See present.Loop.Frame for the
// protocol; its errors are fatal to the Renderer.
func (r *Renderer) Frame(cam *sprite.Camera, sprites *sprite.Batch) error {
	return r.loop.Frame(func(cb present.CmdBuffer, image, frame int) error {
		return r.drawer.Record(cb, image, frame, cam, sprites)
	})
}

// Step produces the content of one frame: the camera to view
// it through and the sprites to draw, given the time in
// seconds since the previous step.
type Step func(dt float32) (*sprite.Camera, *sprite.Batch, error)

// Run drives the render loop until the window closes, Stop
// is called or an error occurs: dispatch window events,
// invoke step, render and present. It must be called from
// the main goroutine.
func (r *Renderer) Run(step Step) error {
	r.stop = false
	prev := time.Now()
	for !r.win.ShouldClose() && !r.stop {
		wsi.Dispatch()
		now := time.Now()
		dt := float32(now.Sub(prev).Seconds())
		prev = now
		// Cap stalls such as window drags so the simulation
		// never leaps.
		if dt > 0.1 {
			dt = 0.1
		}
		cam, sprites, err := step(dt)
		if err != nil {
			return err
		}
		if err := r.Frame(cam, sprites); err != nil {
			return err
		}
	}
	return nil
}

// Stop makes Run return after the frame in progress.
// It only makes sense from within a Step function or a
// window callback, as those run on Run's goroutine.
func (r *Renderer) Stop() { r.stop = true }

// Destroy releases everything the Renderer owns, including
// the window. The window system itself is the caller's to
// terminate.
func (r *Renderer) Destroy() {
	if r == nil {
		return
	}
	if r.drawer != nil {
		r.drawer.Destroy()
	}
	if r.loop != nil {
		r.loop.Destroy()
	}
	if r.sf != nil {
		r.sf.Destroy()
	}
	if r.dev != nil {
		r.dev.Close()
	}
	if r.win != nil {
		r.win.Close()
	}
	*r = Renderer{}
}
