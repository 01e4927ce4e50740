// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package sprite renders textured, tinted quads into swap
// chain images: a static tile batch staged once per map and
// per-frame sprite batches streamed every frame.
//
// A Drawer owns the render pass, the pipeline, the atlas
// texture and every buffer. Its Record method plugs into
// the present package's frame protocol; its Rebuild method
// plugs into the frame loop's rebuild notification.
//
// Like the device it draws through, a Drawer is owned by
// the frame loop's goroutine.
package sprite

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	vk "github.com/goki/vulkan"

	"gviegas/neo2/present"
	"gviegas/neo2/vkdev"
)

// defaultQuads is the initial per-frame sprite capacity
// when Config leaves MaxQuads unset.
const defaultQuads = 1024

// Config parameterizes NewDrawer.
type Config struct {
	// Atlas is the texture every draw samples. It must not
	// be nil.
	Atlas image.Image
	// AtlasScale prescales the atlas by an integer factor
	// with nearest neighbor filtering. Values below two
	// leave the atlas unscaled.
	AtlasScale int
	// VertSPV and FragSPV hold the SPIR-V bytecode of the
	// vertex and fragment stages.
	VertSPV, FragSPV []byte
	// Frames is the number of per-frame sprite buffers. It
	// must match the loop's frames in flight.
	Frames int
	// MaxQuads is the initial capacity, in quads, of each
	// per-frame buffer. Buffers grow as batches demand.
	MaxQuads int
	// Clear is the color the pass clears to, as RGBA in
	// [0, 1].
	Clear [4]float32
}

// Drawer draws batches of quads. NewDrawer creates it over
// an open device and a built surface.
type Drawer struct {
	dev *vkdev.Device
	sf  *present.Surface

	pass vk.RenderPass
	fbs  []vk.Framebuffer

	atlas     vk.Image
	atlasMem  vk.DeviceMemory
	atlasView vk.ImageView
	sampler   vk.Sampler
	atlasW    int
	atlasH    int

	dlayout vk.DescriptorSetLayout
	dpool   vk.DescriptorPool
	dset    vk.DescriptorSet

	playout  vk.PipelineLayout
	pipeline vk.Pipeline

	index    buffer
	indexCap int
	static   buffer
	tiles    int
	dynamic  []dynBuffer

	clear [4]float32
}

// NewDrawer creates a Drawer rendering to sf through dev.
func NewDrawer(dev *vkdev.Device, sf *present.Surface, cfg Config) (dr *Drawer, err error) {
	if cfg.Atlas == nil {
		return nil, errors.New("sprite: nil atlas")
	}
	if cfg.Frames < 1 {
		return nil, fmt.Errorf("sprite: bad frame count %d", cfg.Frames)
	}
	if cfg.MaxQuads < 1 {
		cfg.MaxQuads = defaultQuads
	}
	dr = &Drawer{dev: dev, sf: sf, clear: cfg.Clear}
	if err = dr.initPass(); err != nil {
		goto fail
	}
	if err = dr.initAtlas(cfg.Atlas, cfg.AtlasScale); err != nil {
		goto fail
	}
	if err = dr.initLayouts(); err != nil {
		goto fail
	}
	if err = dr.initDescriptors(); err != nil {
		goto fail
	}
	if err = dr.initPipeline(cfg.VertSPV, cfg.FragSPV); err != nil {
		goto fail
	}
	if err = dr.initBuffers(cfg.Frames, cfg.MaxQuads); err != nil {
		goto fail
	}
	if err = dr.Rebuild(); err != nil {
		goto fail
	}
	return dr, nil
fail:
	dr.Destroy()
	return nil, err
}

// SetTiles stages b as the static tile batch, replacing any
// previous one. The batch is drawn before the per-frame
// sprites of every subsequent frame. Replacing a batch
// drains the device first, since in-flight frames may still
// draw the old one; maps are expected to change rarely.
func (d *Drawer) SetTiles(b *Batch) error {
	if d.static.buf != nil {
		if err := d.dev.WaitIdle(); err != nil {
			return err
		}
		d.destroyBuffer(d.static)
		d.static = buffer{}
		d.tiles = 0
	}
	n := b.Quads()
	if n == 0 {
		return nil
	}
	buf, err := d.newBuffer(n*4*vertexSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return err
	}
	if err := d.stage(buf.buf, vertexBytes(b.verts)); err != nil {
		d.destroyBuffer(buf)
		return err
	}
	if err := d.ensureIndices(n); err != nil {
		d.destroyBuffer(buf)
		return err
	}
	d.static = buf
	d.tiles = n
	return nil
}

// Record writes one frame's commands into cb: move the swap
// chain image into the color attachment layout, clear it,
// draw the tile batch and this frame's sprites, then return
// the image to the presentation layout.
//
// image and frame are the loop's indices. sprites may be
// nil when only tiles are drawn; it is read during the call
// only. cam must not be nil.
func (d *Drawer) Record(cb present.CmdBuffer, image, frame int, cam *Camera, sprites *Batch) error {
	cmd := d.dev.CommandBuffer(cb)
	ext := d.sf.Extent()

	n := 0
	if sprites != nil {
		n = sprites.Quads()
	}
	if n > 0 {
		if err := d.ensureDynamic(frame, n); err != nil {
			return err
		}
		vk.Memcopy(d.dynamic[frame].ptr, vertexBytes(sprites.verts))
	}
	if quads := max(n, d.tiles); quads > 0 {
		if err := d.ensureIndices(quads); err != nil {
			return err
		}
	}

	img := d.dev.Image(d.sf.Images()[image])
	toAttachment(cmd, img)

	clear := vk.NewClearValue(d.clear[:])
	begin := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  d.pass,
		Framebuffer: d.fbs[image],
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{
				Width:  uint32(ext.Width),
				Height: uint32(ext.Height),
			},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clear},
	}
	vk.CmdBeginRenderPass(cmd, &begin, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, d.pipeline)

	viewport := vk.Viewport{
		Width:    float32(ext.Width),
		Height:   float32(ext.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  uint32(ext.Width),
			Height: uint32(ext.Height),
		},
	}
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, d.playout,
		0, 1, []vk.DescriptorSet{d.dset}, 0, nil)
	m := cam.matrix(ext.Width, ext.Height)
	vk.CmdPushConstants(cmd, d.playout, vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, pushSize, unsafe.Pointer(&m))

	if d.tiles > 0 || n > 0 {
		vk.CmdBindIndexBuffer(cmd, d.index.buf, 0, vk.IndexTypeUint32)
	}
	if d.tiles > 0 {
		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{d.static.buf}, []vk.DeviceSize{0})
		vk.CmdDrawIndexed(cmd, uint32(d.tiles*6), 1, 0, 0, 0)
	}
	if n > 0 {
		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{d.dynamic[frame].buf}, []vk.DeviceSize{0})
		vk.CmdDrawIndexed(cmd, uint32(n*6), 1, 0, 0, 0)
	}

	vk.CmdEndRenderPass(cmd)
	toPresent(cmd, img)
	return nil
}

// Destroy releases every object the Drawer owns, draining
// the device first. The device and surface are not the
// Drawer's to destroy.
func (d *Drawer) Destroy() {
	if d == nil || d.dev == nil {
		return
	}
	d.dev.WaitIdle()
	dev := d.dev.Handle()
	for _, fb := range d.fbs {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
	if d.pipeline != nil {
		vk.DestroyPipeline(dev, d.pipeline, nil)
	}
	if d.playout != nil {
		vk.DestroyPipelineLayout(dev, d.playout, nil)
	}
	if d.dpool != nil {
		// Frees the descriptor set as well.
		vk.DestroyDescriptorPool(dev, d.dpool, nil)
	}
	if d.dlayout != nil {
		vk.DestroyDescriptorSetLayout(dev, d.dlayout, nil)
	}
	if d.sampler != nil {
		vk.DestroySampler(dev, d.sampler, nil)
	}
	if d.atlasView != nil {
		vk.DestroyImageView(dev, d.atlasView, nil)
	}
	if d.atlas != nil {
		vk.DestroyImage(dev, d.atlas, nil)
	}
	if d.atlasMem != nil {
		vk.FreeMemory(dev, d.atlasMem, nil)
	}
	for _, b := range d.dynamic {
		if b.buf == nil {
			continue
		}
		vk.UnmapMemory(dev, b.mem)
		d.destroyBuffer(b.buffer)
	}
	d.destroyBuffer(d.index)
	d.destroyBuffer(d.static)
	if d.pass != nil {
		vk.DestroyRenderPass(dev, d.pass, nil)
	}
	*d = Drawer{}
}
