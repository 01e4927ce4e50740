// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package vkdev

import (
	"testing"

	vk "github.com/goki/vulkan"

	"gviegas/neo2/present"
)

func TestPixelFmt(t *testing.T) {
	pfs := [...]present.PixelFmt{
		present.BGRA8sRGB,
		present.BGRA8un,
		present.RGBA8sRGB,
		present.RGBA8un,
		present.RGB10A2un,
		present.RGBA16f,
	}
	for _, f := range pfs {
		vf := convPixelFmt(f)
		if vf == vk.FormatUndefined {
			t.Fatalf("convPixelFmt(%v):\nhave %v\nwant a defined format", f, vf)
		}
		x, ok := pixelFmtFromVK(vf)
		if !ok || x != f {
			t.Fatalf("pixelFmtFromVK(%v):\nhave %v, %v\nwant %v, true", vf, x, ok, f)
		}
	}
	if x, ok := pixelFmtFromVK(vk.FormatD32Sfloat); ok {
		t.Fatalf("pixelFmtFromVK(%v):\nhave %v, true\nwant _, false", vk.FormatD32Sfloat, x)
	}
}

func TestColorSpace(t *testing.T) {
	css := [...]present.ColorSpace{
		present.SRGBNonlinear,
		present.DisplayP3,
		present.ExtendedSRGBLinear,
	}
	for _, cs := range css {
		vcs := convColorSpace(cs)
		x, ok := colorSpaceFromVK(vcs)
		if !ok || x != cs {
			t.Fatalf("colorSpaceFromVK(%v):\nhave %v, %v\nwant %v, true", vcs, x, ok, cs)
		}
	}
}

func TestPresentMode(t *testing.T) {
	ms := [...]present.PresentMode{
		present.FIFO,
		present.FIFORelaxed,
		present.Mailbox,
		present.Immediate,
	}
	for _, m := range ms {
		vm := convPresentMode(m)
		x, ok := modeFromVK(vm)
		if !ok || x != m {
			t.Fatalf("modeFromVK(%v):\nhave %v, %v\nwant %v, true", vm, x, ok, m)
		}
	}
}

func TestTransform(t *testing.T) {
	ts := [...]present.Transform{
		present.TIdentity,
		present.TRotate90,
		present.TRotate180,
		present.TRotate270,
	}
	for _, tf := range ts {
		vt := convTransform(tf)
		if x := transformsFromVK(vk.SurfaceTransformFlags(vt)); x != tf {
			t.Fatalf("transformsFromVK(%v):\nhave %v\nwant %v", vt, x, tf)
		}
	}
	var mask vk.SurfaceTransformFlags
	var want present.Transform
	for _, tf := range ts {
		mask |= vk.SurfaceTransformFlags(convTransform(tf))
		want |= tf
	}
	if x := transformsFromVK(mask); x != want {
		t.Fatalf("transformsFromVK(%v):\nhave %v\nwant %v", mask, x, want)
	}
}

func TestCompositeAlpha(t *testing.T) {
	as := [...]present.CompositeAlpha{
		present.COpaque,
		present.CPreMultiplied,
		present.CPostMultiplied,
		present.CInherit,
	}
	for _, a := range as {
		va := convAlpha(a)
		if x := alphaFromVK(vk.CompositeAlphaFlags(va)); x != a {
			t.Fatalf("alphaFromVK(%v):\nhave %v\nwant %v", va, x, a)
		}
	}
	var mask vk.CompositeAlphaFlags
	var want present.CompositeAlpha
	for _, a := range as {
		mask |= vk.CompositeAlphaFlags(convAlpha(a))
		want |= a
	}
	if x := alphaFromVK(mask); x != want {
		t.Fatalf("alphaFromVK(%v):\nhave %v\nwant %v", mask, x, want)
	}
}

func TestStateFromResult(t *testing.T) {
	cases := [...]struct {
		res  vk.Result
		st   present.State
		fail bool
	}{
		{vk.Success, present.Optimal, false},
		{vk.Suboptimal, present.Suboptimal, false},
		{vk.ErrorOutOfDate, present.OutOfDate, false},
		{vk.ErrorDeviceLost, present.Optimal, true},
		{vk.ErrorSurfaceLost, present.Optimal, true},
	}
	for _, c := range cases {
		st, err := stateFromResult(c.res)
		if st != c.st || (err != nil) != c.fail {
			t.Fatalf("stateFromResult(%v):\nhave %v, %v\nwant %v, fail=%v", c.res, st, err, c.st, c.fail)
		}
	}
}
