// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package present

import "fmt"

// RecordFunc records the commands that render one frame.
// cmd is in the recording state. image indexes the swap
// chain image being rendered, matching the Surface's view
// order; frame is the frame slot, in [0, FramesInFlight).
// Per-frame CPU state such as dynamic vertex memory must be
// keyed by frame, render targets by image. The two index
// spaces are unrelated.
type RecordFunc func(cmd CmdBuffer, image, frame int) error

// Loop drives the steady-state frame protocol: wait,
// acquire, record, submit, present. It detects surface
// degradation and rebuilds the Surface between frames when
// presentation demands it.
//
// A Loop is driven from a single goroutine. All parallelism
// happens between that goroutine and the GPU's own engines.
type Loop struct {
	dev  Device
	sf   *Surface
	sync *frameSync
	// frame counts displayed frames; frame % frames is the
	// current slot.
	frame  int
	frames int
	// suboptimal counts consecutive suboptimal reports from
	// acquire and present. A clean present resets it.
	suboptimal int
	limit      int
	onRebuild  func() error
}

// NewLoop creates a frame loop pacing cfg.FramesInFlight
// frames over sf.
func NewLoop(dev Device, sf *Surface, cfg Config) (*Loop, error) {
	cfg, err := cfg.sanitized()
	if err != nil {
		return nil, err
	}
	sync, err := newFrameSync(dev, cfg.FramesInFlight)
	if err != nil {
		return nil, err
	}
	return &Loop{
		dev:    dev,
		sf:     sf,
		sync:   sync,
		frames: cfg.FramesInFlight,
		limit:  cfg.SuboptimalLimit,
	}, nil
}

// OnRebuild sets a function called after every swap chain
// rebuild, before the next acquire. State keyed to the swap
// chain generation, such as framebuffers over the Surface's
// views, must be refreshed there. An error from f is treated
// like a rebuild failure.
func (l *Loop) OnRebuild(f func() error) { l.onRebuild = f }

// Surface returns the surface the loop presents to.
func (l *Loop) Surface() *Surface { return l.sf }

// FramesInFlight returns the fixed frame slot count.
func (l *Loop) FramesInFlight() int { return l.frames }

// Frame renders and presents one frame, invoking rec to
// record its commands.
//
// The steps, in order: wait for the slot's in-flight fence;
// acquire an image; reset the slot's fence and command
// buffer; record through rec; submit, waiting for image
// availability at color attachment output and signaling the
// image's presentation semaphore plus the slot's fence;
// present. An out-of-date surface at acquire abandons the
// frame (rec is not called) and rebuilds; the fence is left
// signaled so the slot retries cleanly on the next call.
// Degradation reported at present rebuilds after the frame
// completes. When the window's drawable has zero area, Frame
// does nothing.
//
// A nil error means the frame was presented, skipped
// (minimized window) or abandoned for a successful rebuild.
// Errors are fatal: the Loop must be destroyed.
func (l *Loop) Frame(rec RecordFunc) error {
	if width, height := l.sf.win.PixelSize(); width == 0 || height == 0 {
		return nil
	}
	f := l.frame % l.frames
	if err := l.dev.WaitFence(l.sync.fences[f]); err != nil {
		return devErr("fence wait", err)
	}
	img, st, err := l.dev.Acquire(l.sf.sc, l.sync.avail[f])
	if err != nil {
		return devErr("image acquisition", err)
	}
	if st == OutOfDate {
		// Abandon before touching the fence or command
		// buffer; the slot must retry as if this call
		// never happened.
		return l.Rebuild()
	}
	if st == Suboptimal {
		l.suboptimal++
	}
	if err := l.dev.ResetFence(l.sync.fences[f]); err != nil {
		return devErr("fence reset", err)
	}
	if err := l.dev.ResetCmd(l.sync.cmds[f]); err != nil {
		return devErr("command buffer reset", err)
	}
	if err := l.dev.BeginCmd(l.sync.cmds[f]); err != nil {
		return devErr("command buffer begin", err)
	}
	if err := rec(l.sync.cmds[f], img, f); err != nil {
		return fmt.Errorf("present: frame recording: %w", err)
	}
	if err := l.dev.EndCmd(l.sync.cmds[f]); err != nil {
		return devErr("command buffer end", err)
	}
	err = l.dev.Submit(l.sync.cmds[f], l.sync.avail[f], l.sf.renderDone[img], l.sync.fences[f])
	if err != nil {
		return devErr("queue submission", err)
	}
	st, err = l.dev.Present(l.sf.sc, img, l.sf.renderDone[img])
	if err != nil {
		return devErr("presentation", err)
	}
	if st == Suboptimal {
		l.suboptimal++
	} else if st == Optimal {
		l.suboptimal = 0
	}
	// The resize flag is consumed unconditionally; after a
	// rebuild for any reason it would be stale.
	resized := l.sf.win.Resized()
	l.frame++
	if st == OutOfDate || resized || l.suboptimal >= l.limit {
		return l.Rebuild()
	}
	return nil
}

// Rebuild replaces the swap chain generation and notifies
// the OnRebuild function, if any. The Loop's frame slots and
// their sync objects carry over untouched.
// Frame calls it as needed; calling it directly is only
// useful to force a rebuild that the surface did not demand.
func (l *Loop) Rebuild() error {
	if err := l.sf.Recreate(); err != nil {
		return err
	}
	l.suboptimal = 0
	if l.onRebuild != nil {
		if err := l.onRebuild(); err != nil {
			return fmt.Errorf("present: rebuild notification: %w", err)
		}
	}
	return nil
}

// Destroy waits for the device to go idle and releases the
// per-frame objects. The Surface is not destroyed; it has
// its own Destroy.
func (l *Loop) Destroy() {
	l.dev.WaitIdle()
	l.sync.destroy()
}
