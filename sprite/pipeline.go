// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package sprite

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// initLayouts creates the descriptor set layout, a single
// combined image sampler for the atlas, and the pipeline
// layout carrying it plus the view matrix push constant.
func (d *Drawer) initLayouts() error {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	dinfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	var dlayout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(d.dev.Handle(), &dinfo, nil, &dlayout)); err != nil {
		return fmt.Errorf("sprite: descriptor layout creation: %w", err)
	}
	d.dlayout = dlayout

	push := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       pushSize,
	}
	pinfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{d.dlayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{push},
	}
	var playout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(d.dev.Handle(), &pinfo, nil, &playout)); err != nil {
		return fmt.Errorf("sprite: pipeline layout creation: %w", err)
	}
	d.playout = playout
	return nil
}

// initPipeline creates the graphics pipeline from the given
// SPIR-V stages. Viewport and scissor are dynamic so the
// pipeline survives swap chain rebuilds.
func (d *Drawer) initPipeline(vert, frag []byte) error {
	vmod, err := d.shaderModule(vert)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(d.dev.Handle(), vmod, nil)
	fmod, err := d.shaderModule(frag)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(d.dev.Handle(), fmod, nil)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vmod,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fmod,
			PName:  "main\x00",
		},
	}

	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(vertexSize),
		InputRate: vk.VertexInputRateVertex,
	}
	attrs := []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.UV)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
	input := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	dynamics := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamics)),
		PDynamicStates:    dynamics,
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Quads are emitted in screen space; culling would only
	// hide winding mistakes.
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}

	// Premultiplied alpha over. The atlas conversion
	// premultiplies texels; the fragment stage premultiplies
	// the vertex color.
	blendAtt := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit |
				vk.ColorComponentGBit |
				vk.ColorComponentBBit |
				vk.ColorComponentABit,
		),
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAtt},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &input,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		Layout:              d.playout,
		RenderPass:          d.pass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.dev.Handle(), vk.PipelineCache(vk.NullHandle),
		1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("sprite: pipeline creation: %w", err)
	}
	d.pipeline = pipelines[0]
	return nil
}

// shaderModule creates a shader module from SPIR-V
// bytecode.
func (d *Drawer) shaderModule(code []byte) (vk.ShaderModule, error) {
	words, err := spirvWords(code)
	if err != nil {
		return nil, err
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	var mod vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.dev.Handle(), &info, nil, &mod)); err != nil {
		return nil, fmt.Errorf("sprite: shader module creation: %w", err)
	}
	return mod, nil
}

// spirvWords reinterprets SPIR-V bytecode as the word
// stream module creation takes. The length must be a
// nonzero multiple of four.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("sprite: bad SPIR-V size %d", len(b))
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}
