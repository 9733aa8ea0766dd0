package vkdevice

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PipelineBuilder accumulates the fixed-function state for one graphics
// pipeline. Grounded on the teacher's PipelineBuilder: default triangle
// list topology, no vertex input (vertex data generated in-shader, as the
// demo driver does), clockwise-front-face fill rasterization, single
// sample, no blending. BuildPipeline here takes an explicit vk.RenderPass
// and viewport/scissor extent instead of looking a named renderpass up on
// a CoreRenderInstance, since render-graph passes don't have a persistent
// renderpass registry -- CommandList builds and caches them per
// attachment shape.
type PipelineBuilder struct {
	shaderStages    []vk.PipelineShaderStageCreateInfo
	vertexInputInfo vk.PipelineVertexInputStateCreateInfo
	inputAssembly   vk.PipelineInputAssemblyStateCreateInfo
	rasterizer      vk.PipelineRasterizationStateCreateInfo
	colorBlend      vk.PipelineColorBlendAttachmentState
	multisampling   vk.PipelineMultisampleStateCreateInfo
	depthTestEnable bool
	layout          vk.PipelineLayout
}

// NewPipelineBuilder seeds a builder with program's vertex+fragment
// stages and the teacher's fixed-function defaults.
func NewPipelineBuilder(program *ShaderProgram, layout vk.PipelineLayout, depthTestEnable bool) *PipelineBuilder {
	pb := &PipelineBuilder{layout: layout, depthTestEnable: depthTestEnable}

	pb.shaderStages = []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageVertexBit),
			Module: program.Vertex,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageFragmentBit),
			Module: program.Fragment,
			PName:  safeString("main"),
		},
	}

	pb.vertexInputInfo = vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	pb.inputAssembly = vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	pb.rasterizer = vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceClockwise,
		LineWidth:   1.0,
	}

	pb.multisampling = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	pb.colorBlend = vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) |
			vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	return pb
}

// BuildPipeline creates the vk.Pipeline against pass, sized to
// width/height.
func (p *PipelineBuilder) BuildPipeline(device vk.Device, pass vk.RenderPass, width, height uint32) (vk.Pipeline, error) {
	viewport := vk.Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1}
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{p.colorBlend},
	}

	depthState := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.Bool32(b2i(p.depthTestEnable)),
		DepthWriteEnable: vk.Bool32(b2i(p.depthTestEnable)),
		DepthCompareOp:   vk.CompareOpLess,
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(p.shaderStages)),
		PStages:             p.shaderStages,
		PVertexInputState:   &p.vertexInputInfo,
		PInputAssemblyState: &p.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &p.rasterizer,
		PMultisampleState:   &p.multisampling,
		PColorBlendState:    &blendState,
		PDepthStencilState:  &depthState,
		Layout:              p.layout,
		RenderPass:          pass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if res != vk.Success {
		return vk.NullPipeline, fmt.Errorf("create graphics pipeline: %w", newError(res))
	}
	return pipelines[0], nil
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
