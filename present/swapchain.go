// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package present

// WindowState is the view of a window that presentation
// needs: the drawable size, queried on demand, and a resize
// signal that is cleared on read.
// wsi.Window satisfies this interface.
type WindowState interface {
	PixelSize() (width, height int)
	Resized() bool
}

// preferredImages is the image count the builder targets.
// Triple buffering keeps one image on screen, one queued
// and one being rendered.
const preferredImages = 3

// preferredFormat is the format the builder favors.
// The preference is soft; its absence from the supported
// set is not an error.
var preferredFormat = Format{BGRA8sRGB, SRGBNonlinear}

// chooseFormat selects the surface format to build with.
func chooseFormat(fs []Format) Format {
	for _, f := range fs {
		if f == preferredFormat {
			return f
		}
	}
	return fs[0]
}

// chooseMode selects the present mode to build with.
// Mailbox is preferred for its latency unless vsync demands
// strict queuing. FIFO support is guaranteed, so it is the
// unconditional fallback.
func chooseMode(ms []PresentMode, vsync bool) PresentMode {
	if !vsync {
		for _, m := range ms {
			if m == Mailbox {
				return m
			}
		}
	}
	return FIFO
}

// chooseExtent resolves the extent to build with.
// When the surface sizes itself after the window, the
// window's drawable size is clamped componentwise into the
// supported range. Otherwise the surface's extent is taken
// as is.
func chooseExtent(c *Caps, width, height int) Dim {
	if c.Current.Width != SizeFromWindow {
		return c.Current
	}
	return Dim{
		Width:  min(max(width, c.MinExtent.Width), c.MaxExtent.Width),
		Height: min(max(height, c.MinExtent.Height), c.MaxExtent.Height),
	}
}

// chooseImageCount resolves the image count to request.
// It targets preferredImages, raised to the supported floor
// and capped at the supported ceiling, if any.
func chooseImageCount(c *Caps) int {
	n := preferredImages
	if c.MinImages > n {
		n = c.MinImages
	} else if c.MaxImages != 0 && c.MaxImages < n {
		n = c.MaxImages
	}
	return n
}

// chooseSharing resolves image sharing across queue families.
// A single family accesses images exclusively, with no
// ownership transfers; distinct graphics and presentation
// families share concurrently over exactly the two indices,
// graphics first.
func chooseSharing(graphics, present int) []int {
	if graphics == present {
		return nil
	}
	return []int{graphics, present}
}

// chooseTransform resolves the presentation transform.
// Identity is preferred; surfaces that do not support it
// keep whatever transform is in effect.
func chooseTransform(c *Caps) Transform {
	if c.Transforms&TIdentity != 0 {
		return TIdentity
	}
	return c.CurrentTransform
}

// chooseAlpha resolves the composite alpha mode as the
// first supported entry of a fixed preference order.
func chooseAlpha(c *Caps) CompositeAlpha {
	for _, a := range [...]CompositeAlpha{COpaque, CPreMultiplied, CPostMultiplied, CInherit} {
		if c.AlphaModes&a != 0 {
			return a
		}
	}
	return COpaque
}

// SwapchainInfo describes a swap chain to be created by a
// Device.
type SwapchainInfo struct {
	// Images is the requested image count. The driver may
	// settle on a different count; retrieve the images to
	// learn the final one.
	Images int
	// Format is the format of every image.
	Format Format
	// Extent is the size of every image.
	Extent Dim
	// Mode is the presentation mode.
	Mode PresentMode
	// Transform is the presentation transform.
	Transform Transform
	// Alpha is the composite alpha mode.
	Alpha CompositeAlpha
	// Sharing lists the queue families that access images
	// concurrently. nil selects exclusive access.
	Sharing []int
	// Old identifies the swap chain being replaced, or is
	// zero on first build. Passing it lets the driver
	// recycle resources; the caller destroys it after the
	// new swap chain exists.
	Old Swapchain
}

// Surface owns one swap chain generation: the driver handle,
// its presentable images, their views and the per-image
// semaphores that order rendering before presentation.
// Recreate replaces the generation; per-frame objects are
// unaffected (see Loop).
type Surface struct {
	dev        Device
	win        WindowState
	vsync      bool
	sc         Swapchain
	images     []Image
	views      []View
	renderDone []Semaphore
	format     Format
	extent     Dim
	mode       PresentMode
}

// NewSurface builds a swap chain for win through dev.
// Of cfg, only the VSync preference is read here; pacing
// fields belong to NewLoop.
func NewSurface(dev Device, win WindowState, cfg Config) (*Surface, error) {
	s := &Surface{dev: dev, win: win, vsync: cfg.VSync}
	if err := s.build(0); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

// build creates a swap chain generation from fresh surface
// capabilities, replacing old if nonzero.
// Every driver object is recorded on s as soon as it is
// created, so a failure at any step leaves Destroy able to
// release exactly the objects that exist.
func (s *Surface) build(old Swapchain) error {
	sup, err := querySupport(s.dev)
	if err != nil {
		return err
	}
	width, height := s.win.PixelSize()
	gfam, pfam := s.dev.QueueFamilies()
	info := SwapchainInfo{
		Images:    chooseImageCount(&sup.caps),
		Format:    chooseFormat(sup.formats),
		Extent:    chooseExtent(&sup.caps, width, height),
		Mode:      chooseMode(sup.modes, s.vsync),
		Transform: chooseTransform(&sup.caps),
		Alpha:     chooseAlpha(&sup.caps),
		Sharing:   chooseSharing(gfam, pfam),
		Old:       old,
	}
	sc, err := s.dev.NewSwapchain(&info)
	if err != nil {
		// old, if any, is still s.sc and still live.
		return devErr("swap chain creation", err)
	}
	s.sc = sc
	if old != 0 {
		s.dev.DestroySwapchain(old)
	}
	s.format = info.Format
	s.extent = info.Extent
	s.mode = info.Mode
	imgs, err := s.dev.Images(sc)
	if err != nil {
		return devErr("swap chain image retrieval", err)
	}
	s.images = imgs
	for _, img := range imgs {
		v, err := s.dev.NewView(img, info.Format.Pixel)
		if err != nil {
			return devErr("image view creation", err)
		}
		s.views = append(s.views, v)
	}
	for range imgs {
		sem, err := s.dev.NewSemaphore()
		if err != nil {
			return devErr("semaphore creation", err)
		}
		s.renderDone = append(s.renderDone, sem)
	}
	if err := s.dev.PrepareImages(imgs); err != nil {
		return devErr("image layout transition", err)
	}
	return nil
}

// Recreate tears down the current generation and builds a
// new one sized to the window's current drawable.
// It must be called between frames only, never while a
// command buffer is mid-recording. A failure here is fatal:
// a surface that cannot rebuild cannot present.
func (s *Surface) Recreate() error {
	if err := s.dev.WaitIdle(); err != nil {
		return devErr("device idle wait", err)
	}
	s.destroyPerImage()
	return s.build(s.sc)
}

// destroyPerImage releases the objects whose lifetime is
// tied to the swap chain generation. The handle itself is
// kept so that build may pass it as the previous swap chain.
func (s *Surface) destroyPerImage() {
	for _, v := range s.views {
		s.dev.DestroyView(v)
	}
	for _, sem := range s.renderDone {
		s.dev.DestroySemaphore(sem)
	}
	s.views = nil
	s.renderDone = nil
	s.images = nil
}

// Destroy releases every driver object the Surface owns,
// waiting for the device to go idle first.
func (s *Surface) Destroy() {
	s.dev.WaitIdle()
	s.destroyPerImage()
	if s.sc != 0 {
		s.dev.DestroySwapchain(s.sc)
		s.sc = 0
	}
}

// Views returns the per-image views of the current
// generation, indexed like the images they view.
// The result is valid until Recreate or Destroy.
func (s *Surface) Views() []View { return s.views }

// Images returns the presentable images of the current
// generation. Rendering layers that record their own layout
// transitions need them; the result is valid until Recreate
// or Destroy.
func (s *Surface) Images() []Image { return s.images }

// Format returns the selected surface format.
func (s *Surface) Format() Format { return s.format }

// Extent returns the extent of the current generation.
func (s *Surface) Extent() Dim { return s.extent }

// Mode returns the selected present mode.
func (s *Surface) Mode() PresentMode { return s.mode }

// ImageCount returns the image count of the current
// generation. It need not equal the count requested nor the
// number of frames in flight.
func (s *Surface) ImageCount() int { return len(s.images) }
