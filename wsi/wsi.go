// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package wsi provides window system integration (WSI)
// for presentation.
// It is a thin layer over GLFW exposing just what the
// renderer needs from a window: a Vulkan surface, the
// drawable size in pixels and the resize/close signals
// that drive swap chain rebuilds.
package wsi

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// Init initializes the window system and the Vulkan loader.
// It must be called before any other wsi function, from the
// main goroutine, with the main thread locked.
func Init() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("wsi: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errNoVulkan
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return fmt.Errorf("wsi: %w", err)
	}
	return nil
}

// Terminate shuts down the window system.
// All windows must have been closed.
// It must be called from the main goroutine.
func Terminate() { glfw.Terminate() }

var errNoVulkan = errors.New("wsi: window system cannot present vulkan surfaces")

// Dispatch dispatches queued events.
// Window callbacks fire during this call, on the calling
// goroutine. It must be called from the main goroutine.
func Dispatch() { glfw.PollEvents() }

// Window is a drawable window.
// The purpose of a window is to provide a surface into
// which a GPU can draw.
type Window struct {
	win     *glfw.Window
	title   string
	resized bool
	onKey   func(Key, bool)
}

// NewWindow creates a new window.
// width and height are in screen coordinates, which may
// differ from the drawable size (see PixelSize).
func NewWindow(width, height int, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("wsi: %w", err)
	}
	w := &Window{win: win, title: title}
	win.SetFramebufferSizeCallback(func(*glfw.Window, int, int) {
		w.resized = true
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if w.onKey == nil || action == glfw.Repeat {
			return
		}
		w.onKey(fromGLFW(key), action == glfw.Press)
	})
	return w, nil
}

// PixelSize returns the window's drawable size in pixels.
// This is the size a swap chain built for the window must
// clamp into the surface's extent bounds.
func (w *Window) PixelSize() (width, height int) { return w.win.GetFramebufferSize() }

// Width returns the window's width in screen coordinates.
func (w *Window) Width() int {
	width, _ := w.win.GetSize()
	return width
}

// Height returns the window's height in screen coordinates.
func (w *Window) Height() int {
	_, height := w.win.GetSize()
	return height
}

// Resized reports whether the window's drawable was resized
// since the previous call. The flag is cleared on read.
func (w *Window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// ShouldClose reports whether the user asked to close the
// window.
func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// SetTitle sets the window's title.
func (w *Window) SetTitle(title string) {
	w.win.SetTitle(title)
	w.title = title
}

// Title returns the window's title.
func (w *Window) Title() string { return w.title }

// OnKey sets the handler called when a keyboard key is
// pressed or released while the window has focus.
// Key repeat events are not delivered.
func (w *Window) OnKey(h func(key Key, pressed bool)) { w.onKey = h }

// RequiredExtensions returns the instance extensions that
// surface creation requires. They must be enabled on the
// instance passed to CreateSurface.
func (w *Window) RequiredExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface creates a presentable surface backed by the
// window. The caller owns the returned surface and must
// destroy it before closing the window.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("wsi: surface creation failed: %w", err)
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// Close destroys the window.
// The window must not be used afterwards.
func (w *Window) Close() { w.win.Destroy() }
