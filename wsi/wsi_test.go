// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestResizedConsumeOnce(t *testing.T) {
	var w Window
	if w.Resized() {
		t.Fatal("Resized:\nhave true\nwant false")
	}
	w.resized = true
	if !w.Resized() {
		t.Fatal("Resized:\nhave false\nwant true")
	}
	if w.Resized() {
		t.Fatal("Resized (second read):\nhave true\nwant false")
	}
}

func TestKeyFromGLFW(t *testing.T) {
	for _, c := range [...]struct {
		code glfw.Key
		want Key
	}{
		{glfw.KeyEscape, KeyEsc},
		{glfw.KeySpace, KeySpace},
		{glfw.KeyUp, KeyUp},
		{glfw.KeyDown, KeyDown},
		{glfw.KeyLeft, KeyLeft},
		{glfw.KeyRight, KeyRight},
		{glfw.KeyW, KeyW},
		{glfw.KeyA, KeyA},
		{glfw.KeyS, KeyS},
		{glfw.KeyD, KeyD},
		{glfw.KeyF12, KeyUnknown},
		{glfw.KeyKP0, KeyUnknown},
	} {
		if key := fromGLFW(c.code); key != c.want {
			t.Fatalf("fromGLFW(%d):\nhave %v\nwant %v", c.code, key, c.want)
		}
	}
}

func TestWindow(t *testing.T) {
	if err := Init(); err != nil {
		t.Skipf("no window system: %v", err)
	}
	defer Terminate()
	win, err := NewWindow(480, 360, "wsi test")
	if err != nil {
		t.Skipf("NewWindow: %v", err)
	}
	defer win.Close()
	if s := win.Title(); s != "wsi test" {
		t.Fatalf("Title:\nhave %s\nwant wsi test", s)
	}
	win.SetTitle("renamed")
	if s := win.Title(); s != "renamed" {
		t.Fatalf("Title:\nhave %s\nwant renamed", s)
	}
	w, h := win.PixelSize()
	if w <= 0 || h <= 0 {
		t.Fatalf("PixelSize:\nhave %d, %d\nwant positive", w, h)
	}
	if exts := win.RequiredExtensions(); len(exts) == 0 {
		t.Fatal("RequiredExtensions:\nhave none\nwant at least VK_KHR_surface")
	}
	Dispatch()
}
