// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package present

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestLoop builds a fake device, surface and loop with
// the given config.
func newTestLoop(t *testing.T, d *fakeDevice, win *fakeWin, cfg Config) *Loop {
	t.Helper()
	sf, err := NewSurface(d, win, cfg)
	require.NoError(t, err)
	l, err := NewLoop(d, sf, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Destroy()
		sf.Destroy()
		d.check(t)
	})
	return l
}

func discard(CmdBuffer, int, int) error { return nil }

func TestNewLoopConfig(t *testing.T) {
	d := newFakeDevice()
	sf, err := NewSurface(d, &fakeWin{w: 64, h: 64}, Config{})
	require.NoError(t, err)
	defer sf.Destroy()

	_, err = NewLoop(d, sf, Config{FramesInFlight: -2})
	require.Error(t, err)

	l, err := NewLoop(d, sf, Config{})
	require.NoError(t, err)
	require.Equal(t, DefaultFramesInFlight, l.FramesInFlight())
	l.Destroy()
	d.check(t)
}

func TestFrameOrder(t *testing.T) {
	d := newFakeDevice()
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{})

	var gotCmd CmdBuffer
	var gotImg, gotFrame int
	require.NoError(t, l.Frame(func(cmd CmdBuffer, image, frame int) error {
		gotCmd, gotImg, gotFrame = cmd, image, frame
		return nil
	}))
	require.Equal(t, l.sync.cmds[0], gotCmd)
	require.Equal(t, 0, gotImg)
	require.Equal(t, 0, gotFrame)

	want := []string{
		"newChain",
		"wait",
		"acquire",
		"resetFence",
		"resetCmd",
		"begin",
		"end",
		fmt.Sprintf("submit(wait=%d,sig=%d)", l.sync.avail[0], l.sf.renderDone[0]),
		fmt.Sprintf("present(img=0,sem=%d)", l.sf.renderDone[0]),
	}
	require.Equal(t, want, d.calls)
}

func TestFramePacing(t *testing.T) {
	// Two frame slots cycling over three images: the slot
	// index and the image index advance independently.
	d := newFakeDevice()
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{FramesInFlight: 2})

	var frames, images []int
	for i := 0; i < 6; i++ {
		require.NoError(t, l.Frame(func(_ CmdBuffer, image, frame int) error {
			frames = append(frames, frame)
			images = append(images, image)
			return nil
		}))
	}
	require.Equal(t, []int{0, 1, 0, 1, 0, 1}, frames)
	require.Equal(t, []int{0, 1, 2, 0, 1, 2}, images)
}

func TestFrameImageIndexedSemaphores(t *testing.T) {
	// Presentation waits must be keyed to the image handed
	// back by acquire, not to the frame slot, or they race
	// when image count differs from frame count.
	d := newFakeDevice()
	d.imageCount = 4
	d.acquires = []acquireResult{{img: 3, st: Optimal}}
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{FramesInFlight: 2})

	require.NoError(t, l.Frame(discard))
	require.Contains(t, d.calls, fmt.Sprintf("submit(wait=%d,sig=%d)", l.sync.avail[0], l.sf.renderDone[3]))
	require.Contains(t, d.calls, fmt.Sprintf("present(img=3,sem=%d)", l.sf.renderDone[3]))
}

func TestFrameOutOfDateAcquire(t *testing.T) {
	d := newFakeDevice()
	d.acquires = []acquireResult{{st: OutOfDate}}
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{})

	recorded := 0
	require.NoError(t, l.Frame(func(CmdBuffer, int, int) error {
		recorded++
		return nil
	}))
	require.Zero(t, recorded, "abandoned frame must not record")
	require.Equal(t, 2, d.created["swapchain"], "out-of-date acquire must rebuild")

	// The fence was not reset, so the same slot must retry
	// cleanly: the fake fails the wait if it would block.
	require.NoError(t, l.Frame(func(_ CmdBuffer, _, frame int) error {
		require.Equal(t, 0, frame, "abandoned slot must be retried")
		recorded++
		return nil
	}))
	require.Equal(t, 1, recorded)
}

func TestFrameSuboptimalThreshold(t *testing.T) {
	d := newFakeDevice()
	for i := 0; i < 10; i++ {
		d.presents = append(d.presents, presentResult{st: Suboptimal})
	}
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{})

	for i := 0; i < 9; i++ {
		require.NoError(t, l.Frame(discard))
		require.Equal(t, 1, d.created["swapchain"], "frame %d: premature rebuild", i)
	}
	// The tenth consecutive report crosses the default
	// threshold: exactly one rebuild, counter reset.
	require.NoError(t, l.Frame(discard))
	require.Equal(t, 2, d.created["swapchain"])

	// Nine more reports followed by a clean present must
	// not rebuild again.
	for i := 0; i < 9; i++ {
		d.presents = append(d.presents, presentResult{st: Suboptimal})
	}
	d.presents = append(d.presents, presentResult{st: Optimal})
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Frame(discard))
	}
	require.Equal(t, 2, d.created["swapchain"])
}

func TestFrameSuboptimalAcquireCounts(t *testing.T) {
	// A suboptimal report from acquire adds to the same
	// consecutive count as one from present.
	d := newFakeDevice()
	d.acquires = []acquireResult{{img: 0, st: Suboptimal}}
	d.presents = []presentResult{{st: Suboptimal}}
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{SuboptimalLimit: 2})

	require.NoError(t, l.Frame(discard))
	require.Equal(t, 2, d.created["swapchain"])
}

func TestFrameSuboptimalTunableLimit(t *testing.T) {
	d := newFakeDevice()
	for i := 0; i < 3; i++ {
		d.presents = append(d.presents, presentResult{st: Suboptimal})
	}
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{SuboptimalLimit: 3})

	for i := 0; i < 2; i++ {
		require.NoError(t, l.Frame(discard))
	}
	require.Equal(t, 1, d.created["swapchain"])
	require.NoError(t, l.Frame(discard))
	require.Equal(t, 2, d.created["swapchain"])
}

func TestFrameResizeSignal(t *testing.T) {
	d := newFakeDevice()
	win := &fakeWin{w: 800, h: 600}
	l := newTestLoop(t, d, win, Config{})

	require.NoError(t, l.Frame(discard))
	require.Equal(t, 1, d.created["swapchain"])

	win.w, win.h = 400, 300
	win.resized = true
	require.NoError(t, l.Frame(discard))
	require.Equal(t, 2, d.created["swapchain"])
	require.Equal(t, Dim{400, 300}, l.Surface().Extent())

	// The signal is consume-once; no further rebuilds.
	require.NoError(t, l.Frame(discard))
	require.Equal(t, 2, d.created["swapchain"])
}

func TestFrameMinimized(t *testing.T) {
	d := newFakeDevice()
	win := &fakeWin{w: 800, h: 600}
	l := newTestLoop(t, d, win, Config{})

	win.w, win.h = 0, 0
	require.NoError(t, l.Frame(func(CmdBuffer, int, int) error {
		t.Fatal("zero-area drawable must not record")
		return nil
	}))
	require.Equal(t, []string{"newChain"}, d.calls, "zero-area drawable must not touch the device")
}

func TestFrameRecordError(t *testing.T) {
	d := newFakeDevice()
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{})

	boom := errors.New("boom")
	err := l.Frame(func(CmdBuffer, int, int) error { return boom })
	require.ErrorIs(t, err, boom)
	for _, call := range d.calls {
		require.NotContains(t, call, "submit", "failed recording must not submit")
	}
	// The fence stays unsignaled after the aborted frame;
	// the loop is not reusable, matching the fatal error
	// contract. Destroy must still succeed.
}

func TestFrameFatalErrors(t *testing.T) {
	boom := errors.New("boom")
	for _, op := range []string{"WaitFence", "Acquire", "Submit", "Present"} {
		d := newFakeDevice()
		sf, err := NewSurface(d, &fakeWin{w: 64, h: 64}, Config{})
		require.NoError(t, err)
		l, err := NewLoop(d, sf, Config{})
		require.NoError(t, err)

		d.failNext[op] = boom
		err = l.Frame(discard)
		require.ErrorIs(t, err, ErrDevice, "op %s", op)
		require.ErrorContains(t, err, "boom", "op %s", op)
	}
}

func TestFrameRebuildFailure(t *testing.T) {
	d := newFakeDevice()
	d.acquires = []acquireResult{{st: OutOfDate}}
	l := newTestLoop(t, d, &fakeWin{w: 800, h: 600}, Config{})

	d.failNext["NewSwapchain"] = errors.New("boom")
	require.ErrorIs(t, l.Frame(discard), ErrDevice)
}

func TestOnRebuild(t *testing.T) {
	d := newFakeDevice()
	win := &fakeWin{w: 800, h: 600}
	l := newTestLoop(t, d, win, Config{})

	calls := 0
	l.OnRebuild(func() error {
		calls++
		// The new generation must be in place when the
		// notification runs.
		require.Len(t, l.Surface().Views(), l.Surface().ImageCount())
		return nil
	})
	win.resized = true
	require.NoError(t, l.Frame(discard))
	require.Equal(t, 1, calls)

	boom := errors.New("boom")
	l.OnRebuild(func() error { return boom })
	win.resized = true
	require.ErrorIs(t, l.Frame(discard), boom)
}

func TestLoopDestroyAccounting(t *testing.T) {
	d := newFakeDevice()
	sf, err := NewSurface(d, &fakeWin{w: 800, h: 600}, Config{})
	require.NoError(t, err)
	l, err := NewLoop(d, sf, Config{FramesInFlight: 3})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Frame(discard))
	}
	l.Destroy()
	sf.Destroy()
	require.Empty(t, d.sems)
	require.Empty(t, d.fences)
	require.Empty(t, d.cmds)
	require.Empty(t, d.views)
	require.Empty(t, d.chains)
	require.Equal(t, d.created["fence"], d.deleted["fence"])
	require.Equal(t, d.created["cmdbuffer"], d.deleted["cmdbuffer"])
	d.check(t)
}
