// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package present

import (
	"fmt"
	"testing"
)

// fakeWin implements WindowState for tests.
type fakeWin struct {
	w, h    int
	resized bool
}

func (w *fakeWin) PixelSize() (int, int) { return w.w, w.h }

func (w *fakeWin) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// Command buffer states tracked by fakeDevice.
const (
	cmdInitial = iota
	cmdRecording
	cmdExecutable
)

// acquireResult and presentResult script fakeDevice surface
// behavior. An empty script acquires images round-robin and
// presents optimally.
type acquireResult struct {
	img int
	st  State
	err error
}

type presentResult struct {
	st  State
	err error
}

// fakeDevice implements Device on reference-counted handles.
// Beyond counting, it enforces the lifetime and ordering
// rules a real driver would enforce, recording violations
// instead of crashing so tests can report them.
type fakeDevice struct {
	caps    Caps
	formats []Format
	modes   []PresentMode
	gfam    int
	pfam    int

	// imageCount, if nonzero, overrides the requested image
	// count of every new swap chain, imitating a driver
	// that settles on a different number.
	imageCount int

	next   uint64
	chains map[Swapchain][]Image
	owner  map[Image]Swapchain
	views  map[View]Image
	sems   map[Semaphore]bool
	fences map[Fence]bool // value is the signaled state
	cmds   map[CmdBuffer]int

	created map[string]int
	deleted map[string]int

	calls    []string
	infos    []SwapchainInfo
	prepared int
	idles    int
	rr       int

	acquires []acquireResult
	presents []presentResult
	failNext map[string]error

	violations []string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		caps: Caps{
			MinImages:        2,
			Current:          Dim{SizeFromWindow, SizeFromWindow},
			MinExtent:        Dim{1, 1},
			MaxExtent:        Dim{4096, 4096},
			Transforms:       TIdentity,
			CurrentTransform: TIdentity,
			AlphaModes:       COpaque,
		},
		formats:  []Format{{BGRA8un, SRGBNonlinear}, {BGRA8sRGB, SRGBNonlinear}},
		modes:    []PresentMode{FIFO, Mailbox},
		chains:   make(map[Swapchain][]Image),
		owner:    make(map[Image]Swapchain),
		views:    make(map[View]Image),
		sems:     make(map[Semaphore]bool),
		fences:   make(map[Fence]bool),
		cmds:     make(map[CmdBuffer]int),
		created:  make(map[string]int),
		deleted:  make(map[string]int),
		failNext: make(map[string]error),
	}
}

func (d *fakeDevice) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

// check fails the test if the fake observed any driver rule
// violation.
func (d *fakeDevice) check(t *testing.T) {
	t.Helper()
	for _, v := range d.violations {
		t.Errorf("driver rule violated: %s", v)
	}
}

func (d *fakeDevice) fail(op string) error {
	err := d.failNext[op]
	if err != nil {
		delete(d.failNext, op)
	}
	return err
}

func (d *fakeDevice) handle() uint64 {
	d.next++
	return d.next
}

func (d *fakeDevice) SurfaceCaps() (Caps, error) {
	if err := d.fail("SurfaceCaps"); err != nil {
		return Caps{}, err
	}
	return d.caps, nil
}

func (d *fakeDevice) SurfaceFormats() ([]Format, error) {
	if err := d.fail("SurfaceFormats"); err != nil {
		return nil, err
	}
	return d.formats, nil
}

func (d *fakeDevice) PresentModes() ([]PresentMode, error) {
	if err := d.fail("PresentModes"); err != nil {
		return nil, err
	}
	return d.modes, nil
}

func (d *fakeDevice) QueueFamilies() (graphics, present int) { return d.gfam, d.pfam }

func (d *fakeDevice) NewSwapchain(info *SwapchainInfo) (Swapchain, error) {
	if err := d.fail("NewSwapchain"); err != nil {
		return 0, err
	}
	if info.Old != 0 {
		if _, ok := d.chains[info.Old]; !ok {
			d.violate("NewSwapchain: old swap chain %d is not live", info.Old)
		}
	}
	d.calls = append(d.calls, "newChain")
	d.infos = append(d.infos, *info)
	d.created["swapchain"]++
	sc := Swapchain(d.handle())
	n := info.Images
	if d.imageCount != 0 {
		n = d.imageCount
	}
	imgs := make([]Image, n)
	for i := range imgs {
		imgs[i] = Image(d.handle())
		d.owner[imgs[i]] = sc
	}
	d.chains[sc] = imgs
	d.rr = 0
	return sc, nil
}

func (d *fakeDevice) Images(sc Swapchain) ([]Image, error) {
	if err := d.fail("Images"); err != nil {
		return nil, err
	}
	imgs, ok := d.chains[sc]
	if !ok {
		d.violate("Images: swap chain %d is not live", sc)
	}
	return append([]Image(nil), imgs...), nil
}

func (d *fakeDevice) DestroySwapchain(sc Swapchain) {
	imgs, ok := d.chains[sc]
	if !ok {
		d.violate("DestroySwapchain: swap chain %d destroyed twice or never created", sc)
		return
	}
	for v, img := range d.views {
		if d.owner[img] == sc {
			d.violate("DestroySwapchain: view %d outlives swap chain %d", v, sc)
		}
	}
	for _, img := range imgs {
		delete(d.owner, img)
	}
	delete(d.chains, sc)
	d.calls = append(d.calls, "destroyChain")
	d.deleted["swapchain"]++
}

func (d *fakeDevice) NewView(img Image, pf PixelFmt) (View, error) {
	if err := d.fail("NewView"); err != nil {
		return 0, err
	}
	if _, ok := d.owner[img]; !ok {
		d.violate("NewView: image %d is not live", img)
	}
	d.created["view"]++
	v := View(d.handle())
	d.views[v] = img
	return v, nil
}

func (d *fakeDevice) DestroyView(v View) {
	if _, ok := d.views[v]; !ok {
		d.violate("DestroyView: view %d destroyed twice or never created", v)
		return
	}
	delete(d.views, v)
	d.deleted["view"]++
}

func (d *fakeDevice) PrepareImages(imgs []Image) error {
	if err := d.fail("PrepareImages"); err != nil {
		return err
	}
	for _, img := range imgs {
		if _, ok := d.owner[img]; !ok {
			d.violate("PrepareImages: image %d is not live", img)
		}
	}
	d.prepared++
	return nil
}

func (d *fakeDevice) NewSemaphore() (Semaphore, error) {
	if err := d.fail("NewSemaphore"); err != nil {
		return 0, err
	}
	d.created["semaphore"]++
	sem := Semaphore(d.handle())
	d.sems[sem] = true
	return sem, nil
}

func (d *fakeDevice) DestroySemaphore(sem Semaphore) {
	if !d.sems[sem] {
		d.violate("DestroySemaphore: semaphore %d destroyed twice or never created", sem)
		return
	}
	delete(d.sems, sem)
	d.deleted["semaphore"]++
}

func (d *fakeDevice) NewFence(signaled bool) (Fence, error) {
	if err := d.fail("NewFence"); err != nil {
		return 0, err
	}
	d.created["fence"]++
	f := Fence(d.handle())
	d.fences[f] = signaled
	return f, nil
}

func (d *fakeDevice) DestroyFence(f Fence) {
	if _, ok := d.fences[f]; !ok {
		d.violate("DestroyFence: fence %d destroyed twice or never created", f)
		return
	}
	delete(d.fences, f)
	d.deleted["fence"]++
}

func (d *fakeDevice) NewCmdBuffer() (CmdBuffer, error) {
	if err := d.fail("NewCmdBuffer"); err != nil {
		return 0, err
	}
	d.created["cmdbuffer"]++
	cb := CmdBuffer(d.handle())
	d.cmds[cb] = cmdInitial
	return cb, nil
}

func (d *fakeDevice) FreeCmdBuffer(cb CmdBuffer) {
	if _, ok := d.cmds[cb]; !ok {
		d.violate("FreeCmdBuffer: command buffer %d freed twice or never created", cb)
		return
	}
	delete(d.cmds, cb)
	d.deleted["cmdbuffer"]++
}

func (d *fakeDevice) WaitFence(f Fence) error {
	if err := d.fail("WaitFence"); err != nil {
		return err
	}
	d.calls = append(d.calls, "wait")
	signaled, ok := d.fences[f]
	if !ok {
		d.violate("WaitFence: fence %d is not live", f)
		return nil
	}
	if !signaled {
		d.violate("WaitFence: fence %d is unsignaled; the wait would block forever", f)
	}
	return nil
}

func (d *fakeDevice) ResetFence(f Fence) error {
	if err := d.fail("ResetFence"); err != nil {
		return err
	}
	d.calls = append(d.calls, "resetFence")
	if _, ok := d.fences[f]; !ok {
		d.violate("ResetFence: fence %d is not live", f)
		return nil
	}
	d.fences[f] = false
	return nil
}

func (d *fakeDevice) Acquire(sc Swapchain, sem Semaphore) (int, State, error) {
	if err := d.fail("Acquire"); err != nil {
		return 0, Optimal, err
	}
	d.calls = append(d.calls, "acquire")
	imgs, ok := d.chains[sc]
	if !ok {
		d.violate("Acquire: swap chain %d is not live", sc)
		return 0, Optimal, nil
	}
	if !d.sems[sem] {
		d.violate("Acquire: semaphore %d is not live", sem)
	}
	if len(d.acquires) > 0 {
		r := d.acquires[0]
		d.acquires = d.acquires[1:]
		return r.img, r.st, r.err
	}
	img := d.rr % len(imgs)
	d.rr++
	return img, Optimal, nil
}

func (d *fakeDevice) ResetCmd(cb CmdBuffer) error {
	if err := d.fail("ResetCmd"); err != nil {
		return err
	}
	d.calls = append(d.calls, "resetCmd")
	if _, ok := d.cmds[cb]; !ok {
		d.violate("ResetCmd: command buffer %d is not live", cb)
		return nil
	}
	d.cmds[cb] = cmdInitial
	return nil
}

func (d *fakeDevice) BeginCmd(cb CmdBuffer) error {
	if err := d.fail("BeginCmd"); err != nil {
		return err
	}
	d.calls = append(d.calls, "begin")
	st, ok := d.cmds[cb]
	if !ok {
		d.violate("BeginCmd: command buffer %d is not live", cb)
		return nil
	}
	if st != cmdInitial {
		d.violate("BeginCmd: command buffer %d was not reset", cb)
	}
	d.cmds[cb] = cmdRecording
	return nil
}

func (d *fakeDevice) EndCmd(cb CmdBuffer) error {
	if err := d.fail("EndCmd"); err != nil {
		return err
	}
	d.calls = append(d.calls, "end")
	if st := d.cmds[cb]; st != cmdRecording {
		d.violate("EndCmd: command buffer %d is not recording", cb)
	}
	d.cmds[cb] = cmdExecutable
	return nil
}

func (d *fakeDevice) Submit(cb CmdBuffer, wait, sig Semaphore, f Fence) error {
	if err := d.fail("Submit"); err != nil {
		return err
	}
	d.calls = append(d.calls, fmt.Sprintf("submit(wait=%d,sig=%d)", wait, sig))
	if st := d.cmds[cb]; st != cmdExecutable {
		d.violate("Submit: command buffer %d is not executable", cb)
	}
	if !d.sems[wait] || !d.sems[sig] {
		d.violate("Submit: wait %d or signal %d semaphore is not live", wait, sig)
	}
	signaled, ok := d.fences[f]
	if !ok {
		d.violate("Submit: fence %d is not live", f)
		return nil
	}
	if signaled {
		d.violate("Submit: fence %d is already signaled", f)
	}
	// The fake GPU completes instantly.
	d.fences[f] = true
	return nil
}

func (d *fakeDevice) Present(sc Swapchain, img int, sem Semaphore) (State, error) {
	if err := d.fail("Present"); err != nil {
		return Optimal, err
	}
	d.calls = append(d.calls, fmt.Sprintf("present(img=%d,sem=%d)", img, sem))
	imgs, ok := d.chains[sc]
	if !ok {
		d.violate("Present: swap chain %d is not live", sc)
		return Optimal, nil
	}
	if img < 0 || img >= len(imgs) {
		d.violate("Present: image index %d out of range", img)
	}
	if !d.sems[sem] {
		d.violate("Present: semaphore %d is not live", sem)
	}
	if len(d.presents) > 0 {
		r := d.presents[0]
		d.presents = d.presents[1:]
		return r.st, r.err
	}
	return Optimal, nil
}

func (d *fakeDevice) WaitIdle() error {
	if err := d.fail("WaitIdle"); err != nil {
		return err
	}
	d.idles++
	return nil
}
