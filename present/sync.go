// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package present

// frameSync owns the objects that pace frames in flight.
// Everything here is indexed by frame slot and lives for the
// whole Loop, across swap chain rebuilds. The semaphores
// that gate presentation are indexed by image instead and
// belong to the Surface.
type frameSync struct {
	dev Device
	// avail[f] is signaled when the image acquired on
	// frame slot f becomes available for writing.
	avail []Semaphore
	// fences[f] is signaled when the GPU finishes the work
	// submitted on frame slot f. It starts signaled so the
	// first wait on a fresh slot does not block.
	fences []Fence
	// cmds[f] is the command buffer recorded on frame
	// slot f.
	cmds []CmdBuffer
}

// newFrameSync creates the sync objects for the given number
// of frame slots.
func newFrameSync(dev Device, frames int) (*frameSync, error) {
	fs := &frameSync{
		dev:    dev,
		avail:  make([]Semaphore, 0, frames),
		fences: make([]Fence, 0, frames),
		cmds:   make([]CmdBuffer, 0, frames),
	}
	for i := 0; i < frames; i++ {
		sem, err := dev.NewSemaphore()
		if err != nil {
			fs.destroy()
			return nil, devErr("semaphore creation", err)
		}
		fs.avail = append(fs.avail, sem)
		f, err := dev.NewFence(true)
		if err != nil {
			fs.destroy()
			return nil, devErr("fence creation", err)
		}
		fs.fences = append(fs.fences, f)
		cb, err := dev.NewCmdBuffer()
		if err != nil {
			fs.destroy()
			return nil, devErr("command buffer creation", err)
		}
		fs.cmds = append(fs.cmds, cb)
	}
	return fs, nil
}

// destroy releases whatever objects exist.
// The device must be idle with respect to them.
func (fs *frameSync) destroy() {
	for _, sem := range fs.avail {
		fs.dev.DestroySemaphore(sem)
	}
	for _, f := range fs.fences {
		fs.dev.DestroyFence(f)
	}
	for _, cb := range fs.cmds {
		fs.dev.FreeCmdBuffer(cb)
	}
	fs.avail = nil
	fs.fences = nil
	fs.cmds = nil
}
