// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package present implements swap chain management and frame
// synchronization for rendering into a window surface.
//
// Surface owns one swap chain generation: the driver handle,
// its presentable images, their views and the per-image
// semaphores that gate presentation. Loop drives the steady
// state acquire/record/submit/present protocol, paces a fixed
// number of frames in flight and rebuilds the Surface when
// the window system invalidates it. All driver access goes
// through the Device interface, which need not be backed by
// a real GPU.
package present

import (
	"errors"
	"fmt"
)

// Driver object handles.
// A Device implementation assigns its own meaning to the
// nonzero values it returns. The zero value always means
// "no object".
type (
	// Swapchain identifies a driver swap chain.
	Swapchain uint64
	// Image identifies a presentable image owned by a
	// swap chain.
	Image uint64
	// View identifies an image view.
	View uint64
	// Semaphore identifies a GPU-GPU synchronization object.
	Semaphore uint64
	// Fence identifies a GPU-CPU synchronization object.
	Fence uint64
	// CmdBuffer identifies a command buffer.
	CmdBuffer uint64
)

// State is the surface compatibility that acquire and present
// operations report alongside their result.
type State int

// Surface states.
const (
	// Optimal means the swap chain matches the surface.
	Optimal State = iota
	// Suboptimal means the swap chain no longer matches the
	// surface exactly but can still present.
	Suboptimal
	// OutOfDate means the swap chain cannot present anymore
	// and must be rebuilt.
	OutOfDate
)

// Device is the interface that defines the driver operations
// presentation requires. The vkdev package provides the
// implementation used for rendering; tests substitute fakes.
//
// Unless stated otherwise, methods must not be called
// concurrently.
type Device interface {
	// SurfaceCaps returns the surface's capabilities.
	// Capabilities change as the window changes, so they
	// must be queried anew before every swap chain build.
	SurfaceCaps() (Caps, error)

	// SurfaceFormats returns the formats the surface
	// supports, in driver preference order.
	SurfaceFormats() ([]Format, error)

	// PresentModes returns the present modes the surface
	// supports.
	PresentModes() ([]PresentMode, error)

	// QueueFamilies returns the graphics and presentation
	// queue family indices. They may be equal.
	QueueFamilies() (graphics, present int)

	// NewSwapchain creates a new swap chain.
	// info.Old, if nonzero, identifies the swap chain being
	// replaced; it remains valid and must still be destroyed
	// by the caller.
	NewSwapchain(info *SwapchainInfo) (Swapchain, error)

	// Images returns the presentable images owned by sc.
	// The driver decides the final image count, so the
	// result's length may differ from the count requested
	// at creation. The images are owned by sc and are not
	// destroyed individually.
	Images(sc Swapchain) ([]Image, error)

	// DestroySwapchain destroys sc.
	DestroySwapchain(sc Swapchain)

	// NewView creates a 2D color view of img covering its
	// single mip level and array layer.
	NewView(img Image, pf PixelFmt) (View, error)

	// DestroyView destroys v.
	DestroyView(v View)

	// PrepareImages transitions newly created swap chain
	// images so that their first presentation is well
	// defined. It records, submits and drains the required
	// commands before returning. The images must not be in
	// use by the GPU.
	PrepareImages(imgs []Image) error

	// NewSemaphore creates a new semaphore.
	NewSemaphore() (Semaphore, error)

	// DestroySemaphore destroys sem.
	DestroySemaphore(sem Semaphore)

	// NewFence creates a new fence, pre-signaled if
	// signaled is true.
	NewFence(signaled bool) (Fence, error)

	// DestroyFence destroys f.
	DestroyFence(f Fence)

	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// FreeCmdBuffer frees cb.
	FreeCmdBuffer(cb CmdBuffer)

	// WaitFence blocks until f is signaled. The wait is
	// unbounded; if the GPU never signals, there is no
	// recovery at this layer.
	WaitFence(f Fence) error

	// ResetFence returns f to the unsignaled state.
	ResetFence(f Fence) error

	// Acquire requests the index of the next image to
	// render into. sem is signaled when the image becomes
	// available for writing. A State of OutOfDate means no
	// image was acquired.
	Acquire(sc Swapchain, sem Semaphore) (img int, st State, err error)

	// ResetCmd returns cb to the initial state.
	ResetCmd(cb CmdBuffer) error

	// BeginCmd begins recording on cb.
	BeginCmd(cb CmdBuffer) error

	// EndCmd ends recording on cb.
	EndCmd(cb CmdBuffer) error

	// Submit commits cb to the graphics queue.
	// Execution waits on the wait semaphore before color
	// attachment output; earlier pipeline stages may run
	// ahead of it. sig and f are signaled when execution
	// completes.
	Submit(cb CmdBuffer, wait, sig Semaphore, f Fence) error

	// Present queues presentation of image img after sem
	// is signaled.
	Present(sc Swapchain, img int, sem Semaphore) (State, error)

	// WaitIdle blocks until the device completes all
	// outstanding work.
	WaitIdle() error
}

// Errors that operations of this package may produce.
// Errors are wrapped, so use errors.Is for comparisons.
var (
	// ErrUnsupported means that the device/surface pair
	// cannot satisfy presentation at all. It is reported at
	// build time; device selection is expected to filter
	// such pairs out beforehand.
	ErrUnsupported = errors.New("present: unsupported surface configuration")

	// ErrDevice means that a driver operation failed for a
	// reason other than surface invalidation. There is no
	// recovery at this layer.
	ErrDevice = errors.New("present: device operation failed")
)

// devErr wraps a driver failure, naming the operation that
// failed.
func devErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDevice, op, err)
}

// Defaults of Config fields that are left unset.
const (
	DefaultFramesInFlight  = 2
	DefaultSuboptimalLimit = 10
)

// Config controls swap chain construction and frame pacing.
// The zero value selects the defaults.
type Config struct {
	// FramesInFlight is the number of frames the CPU may
	// record ahead of the GPU. It is fixed for the lifetime
	// of a Loop and is independent of the swap chain's
	// image count. Zero selects DefaultFramesInFlight.
	FramesInFlight int

	// VSync, if true, restricts presentation to the FIFO
	// present mode. Otherwise a low-latency mode is
	// preferred when the surface offers one, with FIFO as
	// the fallback.
	VSync bool

	// SuboptimalLimit is the number of consecutive
	// suboptimal acquire/present reports tolerated before
	// the swap chain is rebuilt. Some drivers report a
	// suboptimal surface spuriously for a frame or two, and
	// rebuilding is far more disruptive than tolerating a
	// transient report. The default is an empirical
	// workaround for such drivers, not a protocol constant.
	// Zero selects DefaultSuboptimalLimit.
	SuboptimalLimit int
}

// sanitized validates c and fills in defaults for unset
// fields.
func (c Config) sanitized() (Config, error) {
	switch {
	case c.FramesInFlight < 0:
		return c, fmt.Errorf("present: invalid frames in flight: %d", c.FramesInFlight)
	case c.FramesInFlight == 0:
		c.FramesInFlight = DefaultFramesInFlight
	}
	switch {
	case c.SuboptimalLimit < 0:
		return c, fmt.Errorf("present: invalid suboptimal limit: %d", c.SuboptimalLimit)
	case c.SuboptimalLimit == 0:
		c.SuboptimalLimit = DefaultSuboptimalLimit
	}
	return c, nil
}
