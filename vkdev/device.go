// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package vkdev

import (
	vk "github.com/goki/vulkan"

	"gviegas/neo2/present"
)

// SurfaceCaps returns the surface's current capabilities.
func (d *Device) SurfaceCaps() (present.Caps, error) {
	var c vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(d.pdev, d.sf, &c)
	if err := vk.Error(res); err != nil {
		return present.Caps{}, err
	}
	c.Deref()
	c.CurrentExtent.Deref()
	c.MinImageExtent.Deref()
	c.MaxImageExtent.Deref()
	caps := present.Caps{
		MinImages: int(c.MinImageCount),
		MaxImages: int(c.MaxImageCount),
		Current: present.Dim{
			Width:  int(c.CurrentExtent.Width),
			Height: int(c.CurrentExtent.Height),
		},
		MinExtent: present.Dim{
			Width:  int(c.MinImageExtent.Width),
			Height: int(c.MinImageExtent.Height),
		},
		MaxExtent: present.Dim{
			Width:  int(c.MaxImageExtent.Width),
			Height: int(c.MaxImageExtent.Height),
		},
		Transforms:       transformsFromVK(c.SupportedTransforms),
		CurrentTransform: transformsFromVK(vk.SurfaceTransformFlags(c.CurrentTransform)),
		AlphaModes:       alphaFromVK(c.SupportedCompositeAlpha),
	}
	if c.CurrentExtent.Width == vk.MaxUint32 {
		caps.Current = present.Dim{
			Width:  present.SizeFromWindow,
			Height: present.SizeFromWindow,
		}
	}
	return caps, nil
}

// SurfaceFormats returns the surface formats that both the
// surface and this package can express, in driver order.
func (d *Device) SurfaceFormats() ([]present.Format, error) {
	var n uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.sf, &n, nil)); err != nil {
		return nil, err
	}
	sfs := make([]vk.SurfaceFormat, n)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.pdev, d.sf, &n, sfs)); err != nil {
		return nil, err
	}
	var fs []present.Format
	for i := range sfs {
		sfs[i].Deref()
		pf, ok := pixelFmtFromVK(sfs[i].Format)
		if !ok {
			continue
		}
		cs, ok := colorSpaceFromVK(sfs[i].ColorSpace)
		if !ok {
			continue
		}
		fs = append(fs, present.Format{Pixel: pf, Color: cs})
	}
	return fs, nil
}

// PresentModes returns the present modes the surface supports.
func (d *Device) PresentModes() ([]present.PresentMode, error) {
	var n uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(d.pdev, d.sf, &n, nil)); err != nil {
		return nil, err
	}
	vms := make([]vk.PresentMode, n)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(d.pdev, d.sf, &n, vms)); err != nil {
		return nil, err
	}
	var ms []present.PresentMode
	for _, vm := range vms {
		if m, ok := modeFromVK(vm); ok {
			ms = append(ms, m)
		}
	}
	return ms, nil
}

// QueueFamilies returns the graphics and presentation queue
// family indices selected at Open.
func (d *Device) QueueFamilies() (graphics, present int) { return d.gfam, d.pfam }

// NewSwapchain creates a new swap chain for the surface.
func (d *Device) NewSwapchain(info *present.SwapchainInfo) (present.Swapchain, error) {
	create := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         d.sf,
		MinImageCount:   uint32(info.Images),
		ImageFormat:     convPixelFmt(info.Format.Pixel),
		ImageColorSpace: convColorSpace(info.Format.Color),
		ImageExtent: vk.Extent2D{
			Width:  uint32(info.Extent.Width),
			Height: uint32(info.Extent.Height),
		},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     convTransform(info.Transform),
		CompositeAlpha:   convAlpha(info.Alpha),
		PresentMode:      convPresentMode(info.Mode),
		Clipped:          vk.True,
		// A zero Old token misses the map and yields the
		// null handle.
		OldSwapchain: d.scs[info.Old],
	}
	if len(info.Sharing) > 0 {
		fams := make([]uint32, len(info.Sharing))
		for i, f := range info.Sharing {
			fams[i] = uint32(f)
		}
		create.ImageSharingMode = vk.SharingModeConcurrent
		create.QueueFamilyIndexCount = uint32(len(fams))
		create.PQueueFamilyIndices = fams
	}
	var sc vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(d.dev, &create, nil, &sc)); err != nil {
		return 0, err
	}
	tok := present.Swapchain(d.token())
	d.scs[tok] = sc
	return tok, nil
}

// Images returns the presentable images owned by sc.
func (d *Device) Images(sc present.Swapchain) ([]present.Image, error) {
	var n uint32
	if err := vk.Error(vk.GetSwapchainImages(d.dev, d.scs[sc], &n, nil)); err != nil {
		return nil, err
	}
	imgs := make([]vk.Image, n)
	if err := vk.Error(vk.GetSwapchainImages(d.dev, d.scs[sc], &n, imgs)); err != nil {
		return nil, err
	}
	toks := make([]present.Image, n)
	for i, img := range imgs {
		tok := present.Image(d.token())
		d.imgs[tok] = img
		toks[i] = tok
	}
	d.scImgs[sc] = toks
	return toks, nil
}

// DestroySwapchain destroys sc. The image tokens retrieved
// from it become invalid.
func (d *Device) DestroySwapchain(sc present.Swapchain) {
	for _, tok := range d.scImgs[sc] {
		delete(d.imgs, tok)
	}
	delete(d.scImgs, sc)
	if h, ok := d.scs[sc]; ok {
		vk.DestroySwapchain(d.dev, h, nil)
		delete(d.scs, sc)
	}
}

// NewView creates a 2D color view of img.
func (d *Device) NewView(img present.Image, pf present.PixelFmt) (present.View, error) {
	create := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    d.imgs[img],
		ViewType: vk.ImageViewType2d,
		Format:   convPixelFmt(pf),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(d.dev, &create, nil, &view)); err != nil {
		return 0, err
	}
	tok := present.View(d.token())
	d.views[tok] = view
	return tok, nil
}

// DestroyView destroys v.
func (d *Device) DestroyView(v present.View) {
	if h, ok := d.views[v]; ok {
		vk.DestroyImageView(d.dev, h, nil)
		delete(d.views, v)
	}
}

// PrepareImages transitions imgs from the undefined layout to
// the presentation layout, so that the render pass of the
// first frame to use each image finds it in a known state.
// It submits the transition and drains the queue before
// returning.
func (d *Device) PrepareImages(imgs []present.Image) error {
	return d.OneShot(func(cb vk.CommandBuffer) {
		barriers := make([]vk.ImageMemoryBarrier, len(imgs))
		for i, img := range imgs {
			barriers[i] = vk.ImageMemoryBarrier{
				SType:               vk.StructureTypeImageMemoryBarrier,
				DstAccessMask:       vk.AccessFlags(vk.AccessMemoryReadBit),
				OldLayout:           vk.ImageLayoutUndefined,
				NewLayout:           vk.ImageLayoutPresentSrc,
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               d.imgs[img],
				SubresourceRange: vk.ImageSubresourceRange{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					LevelCount: 1,
					LayerCount: 1,
				},
			}
		}
		vk.CmdPipelineBarrier(cb,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			0, 0, nil, 0, nil,
			uint32(len(barriers)), barriers)
	})
}

// NewSemaphore creates a new semaphore.
func (d *Device) NewSemaphore() (present.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sem vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(d.dev, &info, nil, &sem)); err != nil {
		return 0, err
	}
	tok := present.Semaphore(d.token())
	d.sems[tok] = sem
	return tok, nil
}

// DestroySemaphore destroys sem.
func (d *Device) DestroySemaphore(sem present.Semaphore) {
	if h, ok := d.sems[sem]; ok {
		vk.DestroySemaphore(d.dev, h, nil)
		delete(d.sems, sem)
	}
}

// NewFence creates a new fence.
func (d *Device) NewFence(signaled bool) (present.Fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := vk.Error(vk.CreateFence(d.dev, &info, nil, &f)); err != nil {
		return 0, err
	}
	tok := present.Fence(d.token())
	d.fences[tok] = f
	return tok, nil
}

// DestroyFence destroys f.
func (d *Device) DestroyFence(f present.Fence) {
	if h, ok := d.fences[f]; ok {
		vk.DestroyFence(d.dev, h, nil)
		delete(d.fences, f)
	}
}

// NewCmdBuffer allocates a new primary command buffer.
func (d *Device) NewCmdBuffer() (present.CmdBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.dev, &info, cbs)); err != nil {
		return 0, err
	}
	tok := present.CmdBuffer(d.token())
	d.cmds[tok] = cbs[0]
	return tok, nil
}

// FreeCmdBuffer frees cb.
func (d *Device) FreeCmdBuffer(cb present.CmdBuffer) {
	if h, ok := d.cmds[cb]; ok {
		vk.FreeCommandBuffers(d.dev, d.pool, 1, []vk.CommandBuffer{h})
		delete(d.cmds, cb)
	}
}

// WaitFence blocks until f is signaled.
func (d *Device) WaitFence(f present.Fence) error {
	res := vk.WaitForFences(d.dev, 1, []vk.Fence{d.fences[f]}, vk.True, vk.MaxUint64)
	return vk.Error(res)
}

// ResetFence returns f to the unsignaled state.
func (d *Device) ResetFence(f present.Fence) error {
	return vk.Error(vk.ResetFences(d.dev, 1, []vk.Fence{d.fences[f]}))
}

// Acquire requests the next image of sc.
func (d *Device) Acquire(sc present.Swapchain, sem present.Semaphore) (int, present.State, error) {
	var idx uint32
	res := vk.AcquireNextImage(d.dev, d.scs[sc], vk.MaxUint64, d.sems[sem], vk.NullFence, &idx)
	st, err := stateFromResult(res)
	if err != nil {
		return 0, st, err
	}
	return int(idx), st, nil
}

// ResetCmd returns cb to the initial state.
func (d *Device) ResetCmd(cb present.CmdBuffer) error {
	return vk.Error(vk.ResetCommandBuffer(d.cmds[cb], 0))
}

// BeginCmd begins recording on cb.
func (d *Device) BeginCmd(cb present.CmdBuffer) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return vk.Error(vk.BeginCommandBuffer(d.cmds[cb], &info))
}

// EndCmd ends recording on cb.
func (d *Device) EndCmd(cb present.CmdBuffer) error {
	return vk.Error(vk.EndCommandBuffer(d.cmds[cb]))
}

// Submit commits cb to the graphics queue. Execution waits on
// the wait semaphore at the color attachment output stage and
// signals sig and f on completion.
func (d *Device) Submit(cb present.CmdBuffer, wait, sig present.Semaphore, f present.Fence) error {
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.sems[wait]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{d.cmds[cb]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{d.sems[sig]},
	}
	return vk.Error(vk.QueueSubmit(d.gque, 1, []vk.SubmitInfo{info}, d.fences[f]))
}

// Present queues presentation of image img of sc after sem is
// signaled.
func (d *Device) Present(sc present.Swapchain, img int, sem present.Semaphore) (present.State, error) {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.sems[sem]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.scs[sc]},
		PImageIndices:      []uint32{uint32(img)},
	}
	return stateFromResult(vk.QueuePresent(d.pque, &info))
}

// WaitIdle blocks until the device completes all outstanding
// work.
func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.dev))
}

// stateFromResult splits an acquire or present result into
// surface state and error. Suboptimal and out of date results
// are states, not failures.
func stateFromResult(res vk.Result) (present.State, error) {
	switch res {
	case vk.Success:
		return present.Optimal, nil
	case vk.Suboptimal:
		return present.Suboptimal, nil
	case vk.ErrorOutOfDate:
		return present.OutOfDate, nil
	}
	return present.Optimal, vk.Error(res)
}
