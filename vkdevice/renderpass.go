package vkdevice

import (
	"fmt"

	"github.com/andewx/rgraph"
	vk "github.com/vulkan-go/vulkan"
)

// renderPassKey identifies a cached vk.RenderPass by the shape that
// actually affects compatibility: attachment formats and load/store ops
// plus initial/final layouts. Two passes with the same key can share one
// vk.RenderPass and, transitively, one vk.Pipeline built against it.
type renderPassKey struct {
	color    [8]rgraph.ColorAttachmentInfo
	ncolor   int
	hasDepth bool
	depth    rgraph.DepthStencilAttachmentInfo
}

func makeRenderPassKey(info rgraph.PassBeginInfo) renderPassKey {
	var k renderPassKey
	k.ncolor = len(info.ColorAttachmentInfos)
	for i, ca := range info.ColorAttachmentInfos {
		if i >= len(k.color) {
			break
		}
		k.color[i] = ca
	}
	k.hasDepth = info.HasDepthStencil
	if info.HasDepthStencil {
		k.depth = info.DepthStencilAttachmentInfo
	}
	return k
}

// BuildRenderPass constructs a vk.RenderPass matching info's attachments,
// one subpass binding every color attachment plus the optional
// depth-stencil attachment. Grounded on the teacher's
// CoreRenderPass.CreateRenderPass (color+depth attachment descriptions, a
// single graphics subpass, BOTTOM_OF_PIPE<->COLOR_ATTACHMENT_OUTPUT
// external subpass dependencies at each end), generalized here from one
// hardcoded attachment pair to the render graph's per-pass attachment set.
func BuildRenderPass(device vk.Device, info rgraph.PassBeginInfo) (vk.RenderPass, error) {
	var descriptions []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference

	for _, ca := range info.ColorAttachmentInfos {
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         ca.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         ca.LoadOp,
			StoreOp:        ca.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  ca.InitialLayout,
			FinalLayout:    ca.PassLayout,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(descriptions) - 1),
			Layout:     ca.PassLayout,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	var depthRef vk.AttachmentReference
	if info.HasDepthStencil {
		ds := info.DepthStencilAttachmentInfo
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         ds.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         ds.DepthLoadOp,
			StoreOp:        ds.DepthStoreOp,
			StencilLoadOp:  ds.StencilLoadOp,
			StencilStoreOp: ds.StencilStoreOp,
			InitialLayout:  ds.InitialLayout,
			FinalLayout:    ds.PassLayout,
		})
		depthRef = vk.AttachmentReference{
			Attachment: uint32(len(descriptions) - 1),
			Layout:     ds.PassLayout,
		}
		subpass.PDepthStencilAttachment = &depthRef
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:      vk.MaxUint32,
			DstSubpass:      0,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
		{
			SrcSubpass:      0,
			DstSubpass:      vk.MaxUint32,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessMemoryReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
	}

	var pass vk.RenderPass
	res := vk.CreateRenderPass(device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &pass)
	if res != vk.Success {
		return vk.NullRenderPass, fmt.Errorf("create render pass: %w", newError(res))
	}
	return pass, nil
}
