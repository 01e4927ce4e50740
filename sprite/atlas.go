// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package sprite

import (
	"fmt"
	"image"
	"unsafe"

	vk "github.com/goki/vulkan"
	"golang.org/x/image/draw"
)

// rgbaOf returns img as a zero-origin, tightly packed RGBA
// image, converting only when needed. The conversion
// premultiplies alpha, which is what the pipeline's blend
// state expects.
func rgbaOf(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok && r.Rect.Min == (image.Point{}) && r.Stride == 4*r.Rect.Dx() {
		return r
	}
	b := img.Bounds()
	r := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(r, image.Point{}, img, b, draw.Src, nil)
	return r
}

// scaled returns src scaled up by the integer factor using
// nearest neighbor filtering. Pixel art atlases are
// authored small and prescaled once here instead of being
// magnified at sample time, where linear filtering would
// blur them. A factor below two returns src unchanged.
func scaled(src *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// initAtlas uploads img as the atlas texture and creates
// its view and sampler. The texels travel through a staging
// buffer; the image itself lives in device local memory in
// the shader read-only layout.
func (d *Drawer) initAtlas(img image.Image, scale int) error {
	rgba := scaled(rgbaOf(img), scale)
	w := rgba.Rect.Dx()
	h := rgba.Rect.Dy()
	if w == 0 || h == 0 {
		return fmt.Errorf("sprite: empty atlas image")
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.FormatR8g8b8a8Srgb,
		Extent: vk.Extent3D{
			Width:  uint32(w),
			Height: uint32(h),
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if err := vk.Error(vk.CreateImage(d.dev.Handle(), &info, nil, &d.atlas)); err != nil {
		return fmt.Errorf("sprite: atlas image creation: %w", err)
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev.Handle(), d.atlas, &req)
	req.Deref()
	idx := d.dev.MemoryIndex(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if idx < 0 {
		return fmt.Errorf("sprite: no suitable memory type for atlas")
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: uint32(idx),
	}
	if err := vk.Error(vk.AllocateMemory(d.dev.Handle(), &alloc, nil, &d.atlasMem)); err != nil {
		return fmt.Errorf("sprite: atlas memory allocation: %w", err)
	}
	vk.BindImageMemory(d.dev.Handle(), d.atlas, d.atlasMem, 0)

	if err := d.uploadAtlas(rgba.Pix, w, h); err != nil {
		return err
	}

	vinfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    d.atlas,
		ViewType: vk.ImageViewType2d,
		Format:   vk.FormatR8g8b8a8Srgb,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if err := vk.Error(vk.CreateImageView(d.dev.Handle(), &vinfo, nil, &d.atlasView)); err != nil {
		return fmt.Errorf("sprite: atlas view creation: %w", err)
	}

	sinfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeNearest,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		CompareOp:    vk.CompareOpAlways,
	}
	if err := vk.Error(vk.CreateSampler(d.dev.Handle(), &sinfo, nil, &d.sampler)); err != nil {
		return fmt.Errorf("sprite: sampler creation: %w", err)
	}

	d.atlasW = w
	d.atlasH = h
	return nil
}

// uploadAtlas copies pix into the atlas image through a
// staging buffer, transitioning the image into the shader
// read-only layout in the same submission.
func (d *Drawer) uploadAtlas(pix []byte, w, h int) error {
	stg, err := d.newBuffer(len(pix),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer d.destroyBuffer(stg)
	var p unsafe.Pointer
	if err := vk.Error(vk.MapMemory(d.dev.Handle(), stg.mem, 0, vk.DeviceSize(len(pix)), 0, &p)); err != nil {
		return fmt.Errorf("sprite: staging map: %w", err)
	}
	vk.Memcopy(p, pix)
	vk.UnmapMemory(d.dev.Handle(), stg.mem)

	return d.dev.OneShot(func(cb vk.CommandBuffer) {
		sub := vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		}
		toDst := vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			OldLayout:           vk.ImageLayoutUndefined,
			NewLayout:           vk.ImageLayoutTransferDstOptimal,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               d.atlas,
			SubresourceRange:    sub,
		}
		vk.CmdPipelineBarrier(cb,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toDst})

		region := vk.BufferImageCopy{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{
				Width:  uint32(w),
				Height: uint32(h),
				Depth:  1,
			},
		}
		vk.CmdCopyBufferToImage(cb, stg.buf, d.atlas,
			vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

		toRead := vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
			OldLayout:           vk.ImageLayoutTransferDstOptimal,
			NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               d.atlas,
			SubresourceRange:    sub,
		}
		vk.CmdPipelineBarrier(cb,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toRead})
	})
}

// initDescriptors allocates the atlas descriptor set and
// points it at the atlas view and sampler. One set serves
// every frame; its contents never change.
func (d *Drawer) initDescriptors() error {
	size := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
	}
	pinfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{size},
	}
	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(d.dev.Handle(), &pinfo, nil, &pool)); err != nil {
		return fmt.Errorf("sprite: descriptor pool creation: %w", err)
	}
	d.dpool = pool

	ainfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.dpool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{d.dlayout},
	}
	if err := vk.Error(vk.AllocateDescriptorSets(d.dev.Handle(), &ainfo, &d.dset)); err != nil {
		return fmt.Errorf("sprite: descriptor set allocation: %w", err)
	}

	iinfo := vk.DescriptorImageInfo{
		Sampler:     d.sampler,
		ImageView:   d.atlasView,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.dset,
		DstBinding:      0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo:      []vk.DescriptorImageInfo{iinfo},
	}
	vk.UpdateDescriptorSets(d.dev.Handle(), 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// AtlasSize returns the dimensions of the uploaded atlas in
// texels, after any prescale.
func (d *Drawer) AtlasSize() (width, height int) { return d.atlasW, d.atlasH }
