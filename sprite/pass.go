// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package sprite

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"gviegas/neo2/vkdev"
)

// initPass creates the render pass: a single color
// attachment in the surface's format, cleared at load and
// stored at the end. The attachment enters and leaves the
// pass already in the color attachment layout; Record
// transitions from and back to the presentation layout with
// explicit barriers, so the pass itself performs none.
func (d *Drawer) initPass() error {
	att := vk.AttachmentDescription{
		Format:         vkdev.PixelFormat(d.sf.Format().Pixel),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
	ref := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	sub := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{ref},
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{att},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{sub},
	}
	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d.dev.Handle(), &info, nil, &pass)); err != nil {
		return fmt.Errorf("sprite: render pass creation: %w", err)
	}
	d.pass = pass
	return nil
}

// Rebuild replaces the per-image framebuffers with ones
// over the surface's current views. It must run after every
// swap chain rebuild, before the next frame is recorded;
// the Loop's rebuild notification is the natural place.
// NewDrawer calls it once for the initial generation.
//
// The surface format is assumed stable across rebuilds, as
// the selection is deterministic for a given device, so the
// render pass is kept.
func (d *Drawer) Rebuild() error {
	for _, fb := range d.fbs {
		vk.DestroyFramebuffer(d.dev.Handle(), fb, nil)
	}
	d.fbs = d.fbs[:0]
	ext := d.sf.Extent()
	for _, v := range d.sf.Views() {
		info := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      d.pass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{d.dev.ImageView(v)},
			Width:           uint32(ext.Width),
			Height:          uint32(ext.Height),
			Layers:          1,
		}
		var fb vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(d.dev.Handle(), &info, nil, &fb)); err != nil {
			return fmt.Errorf("sprite: framebuffer creation: %w", err)
		}
		d.fbs = append(d.fbs, fb)
	}
	return nil
}

// toAttachment records the barrier that moves img from the
// presentation layout into the color attachment layout.
// The submission waits for image availability at the same
// stage, so the transition orders after the acquire.
func toAttachment(cb vk.CommandBuffer, img vk.Image) {
	b := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       0,
		DstAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		OldLayout:           vk.ImageLayoutPresentSrc,
		NewLayout:           vk.ImageLayoutColorAttachmentOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{b})
}

// toPresent records the barrier that returns img to the
// presentation layout once rendering is done.
func toPresent(cb vk.CommandBuffer, img vk.Image) {
	b := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstAccessMask:       0,
		OldLayout:           vk.ImageLayoutColorAttachmentOptimal,
		NewLayout:           vk.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{b})
}
