// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package vkdev

import (
	vk "github.com/goki/vulkan"

	"gviegas/neo2/present"
)

// PixelFormat returns the VkFormat backing pf. The rendering
// layer needs it to create passes and views that match the
// swap chain's images.
func PixelFormat(pf present.PixelFmt) vk.Format { return convPixelFmt(pf) }

// convPixelFmt converts a present.PixelFmt to a VkFormat.
func convPixelFmt(pf present.PixelFmt) vk.Format {
	switch pf {
	case present.BGRA8sRGB:
		return vk.FormatB8g8r8a8Srgb
	case present.BGRA8un:
		return vk.FormatB8g8r8a8Unorm
	case present.RGBA8sRGB:
		return vk.FormatR8g8b8a8Srgb
	case present.RGBA8un:
		return vk.FormatR8g8b8a8Unorm
	case present.RGB10A2un:
		return vk.FormatA2b10g10r10UnormPack32
	case present.RGBA16f:
		return vk.FormatR16g16b16a16Sfloat
	}

	// Expected to be unreachable.
	return vk.FormatUndefined
}

// pixelFmtFromVK converts a VkFormat to a present.PixelFmt.
// Formats outside the presentable set are not representable.
func pixelFmtFromVK(f vk.Format) (present.PixelFmt, bool) {
	switch f {
	case vk.FormatB8g8r8a8Srgb:
		return present.BGRA8sRGB, true
	case vk.FormatB8g8r8a8Unorm:
		return present.BGRA8un, true
	case vk.FormatR8g8b8a8Srgb:
		return present.RGBA8sRGB, true
	case vk.FormatR8g8b8a8Unorm:
		return present.RGBA8un, true
	case vk.FormatA2b10g10r10UnormPack32:
		return present.RGB10A2un, true
	case vk.FormatR16g16b16a16Sfloat:
		return present.RGBA16f, true
	}
	return 0, false
}

// convColorSpace converts a present.ColorSpace to a
// VkColorSpaceKHR.
func convColorSpace(cs present.ColorSpace) vk.ColorSpace {
	switch cs {
	case present.SRGBNonlinear:
		return vk.ColorSpaceSrgbNonlinear
	case present.DisplayP3:
		return vk.ColorSpaceDisplayP3Nonlinear
	case present.ExtendedSRGBLinear:
		return vk.ColorSpaceExtendedSrgbLinear
	}

	// Expected to be unreachable.
	return vk.ColorSpaceSrgbNonlinear
}

// colorSpaceFromVK converts a VkColorSpaceKHR to a
// present.ColorSpace.
func colorSpaceFromVK(cs vk.ColorSpace) (present.ColorSpace, bool) {
	switch cs {
	case vk.ColorSpaceSrgbNonlinear:
		return present.SRGBNonlinear, true
	case vk.ColorSpaceDisplayP3Nonlinear:
		return present.DisplayP3, true
	case vk.ColorSpaceExtendedSrgbLinear:
		return present.ExtendedSRGBLinear, true
	}
	return 0, false
}

// convPresentMode converts a present.PresentMode to a
// VkPresentModeKHR.
func convPresentMode(m present.PresentMode) vk.PresentMode {
	switch m {
	case present.FIFO:
		return vk.PresentModeFifo
	case present.FIFORelaxed:
		return vk.PresentModeFifoRelaxed
	case present.Mailbox:
		return vk.PresentModeMailbox
	case present.Immediate:
		return vk.PresentModeImmediate
	}

	// Expected to be unreachable.
	return vk.PresentModeFifo
}

// modeFromVK converts a VkPresentModeKHR to a
// present.PresentMode.
func modeFromVK(m vk.PresentMode) (present.PresentMode, bool) {
	switch m {
	case vk.PresentModeFifo:
		return present.FIFO, true
	case vk.PresentModeFifoRelaxed:
		return present.FIFORelaxed, true
	case vk.PresentModeMailbox:
		return present.Mailbox, true
	case vk.PresentModeImmediate:
		return present.Immediate, true
	}
	return 0, false
}

// convTransform converts a single present.Transform bit to a
// VkSurfaceTransformFlagBitsKHR.
func convTransform(t present.Transform) vk.SurfaceTransformFlagBits {
	switch t {
	case present.TIdentity:
		return vk.SurfaceTransformIdentityBit
	case present.TRotate90:
		return vk.SurfaceTransformRotate90Bit
	case present.TRotate180:
		return vk.SurfaceTransformRotate180Bit
	case present.TRotate270:
		return vk.SurfaceTransformRotate270Bit
	}

	// Expected to be unreachable.
	return vk.SurfaceTransformIdentityBit
}

// transformsFromVK converts a VkSurfaceTransformFlagsKHR mask
// to a present.Transform mask, dropping transforms that
// presentation cannot request.
func transformsFromVK(ts vk.SurfaceTransformFlags) present.Transform {
	var t present.Transform
	if ts&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		t |= present.TIdentity
	}
	if ts&vk.SurfaceTransformFlags(vk.SurfaceTransformRotate90Bit) != 0 {
		t |= present.TRotate90
	}
	if ts&vk.SurfaceTransformFlags(vk.SurfaceTransformRotate180Bit) != 0 {
		t |= present.TRotate180
	}
	if ts&vk.SurfaceTransformFlags(vk.SurfaceTransformRotate270Bit) != 0 {
		t |= present.TRotate270
	}
	return t
}

// convAlpha converts a single present.CompositeAlpha bit to a
// VkCompositeAlphaFlagBitsKHR.
func convAlpha(a present.CompositeAlpha) vk.CompositeAlphaFlagBits {
	switch a {
	case present.COpaque:
		return vk.CompositeAlphaOpaqueBit
	case present.CPreMultiplied:
		return vk.CompositeAlphaPreMultipliedBit
	case present.CPostMultiplied:
		return vk.CompositeAlphaPostMultipliedBit
	case present.CInherit:
		return vk.CompositeAlphaInheritBit
	}

	// Expected to be unreachable.
	return vk.CompositeAlphaOpaqueBit
}

// alphaFromVK converts a VkCompositeAlphaFlagsKHR mask to a
// present.CompositeAlpha mask.
func alphaFromVK(as vk.CompositeAlphaFlags) present.CompositeAlpha {
	var a present.CompositeAlpha
	if as&vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit) != 0 {
		a |= present.COpaque
	}
	if as&vk.CompositeAlphaFlags(vk.CompositeAlphaPreMultipliedBit) != 0 {
		a |= present.CPreMultiplied
	}
	if as&vk.CompositeAlphaFlags(vk.CompositeAlphaPostMultipliedBit) != 0 {
		a |= present.CPostMultiplied
	}
	if as&vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit) != 0 {
		a |= present.CInherit
	}
	return a
}
