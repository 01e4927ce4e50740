// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package present

import "fmt"

// Dim is a two-dimensional size in pixels.
type Dim struct {
	Width, Height int
}

// SizeFromWindow is the Dim component value used in
// Caps.Current to indicate that the surface assumes whatever
// size the window's drawable has, clamped into the range
// [Caps.MinExtent, Caps.MaxExtent].
const SizeFromWindow = -1

// Caps describes the capabilities of a surface.
// Capabilities must be queried immediately before every swap
// chain build and never cached across builds.
type Caps struct {
	// MinImages and MaxImages bound the swap chain's image
	// count. MaxImages of zero means unbounded.
	MinImages int
	MaxImages int

	// Current is the surface's extent. Both components are
	// SizeFromWindow when the surface sizes itself after
	// the window.
	Current Dim

	// MinExtent and MaxExtent bound the extent of swap
	// chains created for the surface.
	MinExtent Dim
	MaxExtent Dim

	// Transforms is the bitmask of supported presentation
	// transforms, and CurrentTransform the one currently in
	// effect.
	Transforms       Transform
	CurrentTransform Transform

	// AlphaModes is the bitmask of supported composite
	// alpha modes.
	AlphaModes CompositeAlpha
}

// PixelFmt describes the format of a presentable pixel.
type PixelFmt int

// Pixel formats.
// Surface formats outside this set are not usable for
// presentation through this package; Device implementations
// filter them out when enumerating.
const (
	BGRA8sRGB PixelFmt = iota
	BGRA8un
	RGBA8sRGB
	RGBA8un
	RGB10A2un
	RGBA16f
)

// ColorSpace describes how the presentation engine interprets
// pixel values.
type ColorSpace int

// Color spaces.
const (
	SRGBNonlinear ColorSpace = iota
	DisplayP3
	ExtendedSRGBLinear
)

// Format is a (pixel format, color space) pair supported by
// a surface. One is selected per swap chain lifetime and is
// immutable until rebuild.
type Format struct {
	Pixel PixelFmt
	Color ColorSpace
}

// PresentMode determines how queued images reach the display.
type PresentMode int

// Present modes.
const (
	// FIFO presents in submission order, waiting for the
	// vertical blank. Always supported.
	FIFO PresentMode = iota
	// FIFORelaxed is FIFO that tears instead of waiting
	// when a frame arrives late.
	FIFORelaxed
	// Mailbox replaces the queued image with the newest
	// one, never blocking submission.
	Mailbox
	// Immediate presents without waiting for the vertical
	// blank. It may tear.
	Immediate
)

// Transform is a bitmask of presentation transforms.
type Transform int

// Transforms.
const (
	TIdentity Transform = 1 << iota
	TRotate90
	TRotate180
	TRotate270
)

// CompositeAlpha is a bitmask of composite alpha modes.
type CompositeAlpha int

// Composite alpha modes.
const (
	COpaque CompositeAlpha = 1 << iota
	CPreMultiplied
	CPostMultiplied
	CInherit
)

// support is a fresh snapshot of everything the surface
// reports about presentation.
type support struct {
	caps    Caps
	formats []Format
	modes   []PresentMode
}

// querySupport queries the surface's capabilities, formats
// and present modes through dev.
// An empty format or present mode set means the device/
// surface pair cannot present at all; device selection
// should have rejected such pairs, so reaching that failure
// here is itself a defect.
func querySupport(dev Device) (support, error) {
	caps, err := dev.SurfaceCaps()
	if err != nil {
		return support{}, devErr("surface capability query", err)
	}
	formats, err := dev.SurfaceFormats()
	if err != nil {
		return support{}, devErr("surface format query", err)
	}
	if len(formats) == 0 {
		return support{}, fmt.Errorf("%w: no surface formats", ErrUnsupported)
	}
	modes, err := dev.PresentModes()
	if err != nil {
		return support{}, devErr("present mode query", err)
	}
	if len(modes) == 0 {
		return support{}, fmt.Errorf("%w: no present modes", ErrUnsupported)
	}
	return support{caps, formats, modes}, nil
}
