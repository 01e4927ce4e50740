// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package sprite

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// buffer pairs a Vulkan buffer with its backing memory.
type buffer struct {
	buf vk.Buffer
	mem vk.DeviceMemory
}

// newBuffer creates a buffer of the given size and binds
// fresh memory with the given properties to it.
func (d *Drawer) newBuffer(size int, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var b buffer
	if err := vk.Error(vk.CreateBuffer(d.dev.Handle(), &info, nil, &b.buf)); err != nil {
		return buffer{}, fmt.Errorf("sprite: buffer creation: %w", err)
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev.Handle(), b.buf, &req)
	req.Deref()
	idx := d.dev.MemoryIndex(req.MemoryTypeBits, props)
	if idx < 0 {
		d.destroyBuffer(b)
		return buffer{}, fmt.Errorf("sprite: no suitable memory type for buffer")
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: uint32(idx),
	}
	if err := vk.Error(vk.AllocateMemory(d.dev.Handle(), &alloc, nil, &b.mem)); err != nil {
		vk.DestroyBuffer(d.dev.Handle(), b.buf, nil)
		return buffer{}, fmt.Errorf("sprite: memory allocation: %w", err)
	}
	vk.BindBufferMemory(d.dev.Handle(), b.buf, b.mem, 0)
	return b, nil
}

// destroyBuffer releases b. It accepts partially created
// buffers.
func (d *Drawer) destroyBuffer(b buffer) {
	if b.buf != nil {
		vk.DestroyBuffer(d.dev.Handle(), b.buf, nil)
	}
	if b.mem != nil {
		vk.FreeMemory(d.dev.Handle(), b.mem, nil)
	}
}

// stage copies data into dst through a transient staging
// buffer, waiting for the transfer to complete. dst must
// have been created with transfer destination usage.
func (d *Drawer) stage(dst vk.Buffer, data []byte) error {
	stg, err := d.newBuffer(len(data),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer d.destroyBuffer(stg)
	var p unsafe.Pointer
	if err := vk.Error(vk.MapMemory(d.dev.Handle(), stg.mem, 0, vk.DeviceSize(len(data)), 0, &p)); err != nil {
		return fmt.Errorf("sprite: staging map: %w", err)
	}
	vk.Memcopy(p, data)
	vk.UnmapMemory(d.dev.Handle(), stg.mem)
	return d.dev.OneShot(func(cb vk.CommandBuffer) {
		region := []vk.BufferCopy{{Size: vk.DeviceSize(len(data))}}
		vk.CmdCopyBuffer(cb, stg.buf, dst, 1, region)
	})
}

// dynBuffer is a host visible vertex buffer rewritten every
// frame. It stays mapped for its whole life.
type dynBuffer struct {
	buffer
	ptr unsafe.Pointer
	cap int // quads
}

// initBuffers creates the index buffer and one dynamic
// vertex buffer per frame slot, each sized for quads quads.
func (d *Drawer) initBuffers(frames, quads int) error {
	d.dynamic = make([]dynBuffer, frames)
	for i := range d.dynamic {
		if err := d.growDynamic(i, quads); err != nil {
			return err
		}
	}
	return d.ensureIndices(quads)
}

// ensureDynamic makes the frame slot's vertex buffer hold at
// least quads quads. The slot's previous submission has
// completed when this runs (the loop waited its fence), so
// the outgoing buffer is free to destroy.
func (d *Drawer) ensureDynamic(frame, quads int) error {
	if d.dynamic[frame].cap >= quads {
		return nil
	}
	n := d.dynamic[frame].cap
	if n == 0 {
		n = 1
	}
	for n < quads {
		n *= 2
	}
	return d.growDynamic(frame, n)
}

// growDynamic replaces the frame slot's buffer with one of
// exactly quads quads, mapped persistently.
func (d *Drawer) growDynamic(frame, quads int) error {
	old := d.dynamic[frame]
	b, err := d.newBuffer(quads*4*vertexSize,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	var p unsafe.Pointer
	if err := vk.Error(vk.MapMemory(d.dev.Handle(), b.mem, 0, vk.DeviceSize(quads*4*vertexSize), 0, &p)); err != nil {
		d.destroyBuffer(b)
		return fmt.Errorf("sprite: vertex buffer map: %w", err)
	}
	if old.buf != nil {
		vk.UnmapMemory(d.dev.Handle(), old.mem)
		d.destroyBuffer(old.buffer)
	}
	d.dynamic[frame] = dynBuffer{buffer: b, ptr: p, cap: quads}
	return nil
}

// ensureIndices makes the shared index buffer cover at
// least quads quads. The pattern is fixed, so the buffer is
// device local and staged once per growth. Unlike the
// per-frame buffers the outgoing one may still be read by
// other in-flight frames, so growth drains the device.
func (d *Drawer) ensureIndices(quads int) error {
	if d.indexCap >= quads {
		return nil
	}
	n := d.indexCap
	if n == 0 {
		n = 1
	}
	for n < quads {
		n *= 2
	}
	b, err := d.newBuffer(n*6*4,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageIndexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return err
	}
	if err := d.stage(b.buf, indexBytes(indexPattern(n))); err != nil {
		d.destroyBuffer(b)
		return err
	}
	if d.index.buf != nil {
		if err := d.dev.WaitIdle(); err != nil {
			d.destroyBuffer(b)
			return err
		}
		d.destroyBuffer(d.index)
	}
	d.index = b
	d.indexCap = n
	return nil
}
