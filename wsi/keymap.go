// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package wsi

import "github.com/go-gl/glfw/v3.3/glfw"

// Key is the type of keyboard keys.
type Key int

// Keyboard keys.
// Only keys the renderer's demos act upon are translated;
// everything else maps to KeyUnknown.
const (
	KeyUnknown Key = iota
	KeyEsc
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyW
	KeyA
	KeyS
	KeyD
)

// fromGLFW returns the Key value that represents a
// GLFW key code.
func fromGLFW(key glfw.Key) Key {
	switch key {
	case glfw.KeyEscape:
		return KeyEsc
	case glfw.KeySpace:
		return KeySpace
	case glfw.KeyUp:
		return KeyUp
	case glfw.KeyDown:
		return KeyDown
	case glfw.KeyLeft:
		return KeyLeft
	case glfw.KeyRight:
		return KeyRight
	case glfw.KeyW:
		return KeyW
	case glfw.KeyA:
		return KeyA
	case glfw.KeyS:
		return KeyS
	case glfw.KeyD:
		return KeyD
	}
	return KeyUnknown
}
