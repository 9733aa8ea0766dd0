package vkdevice

import (
	"fmt"

	"github.com/andewx/rgraph"
	vk "github.com/vulkan-go/vulkan"
)

// framebufferKey identifies a cached vk.Framebuffer by the render pass it
// was built against plus the concrete image handles bound to it -- the
// same render-pass shape reused with a different physical image (the
// common case once the resource cache settles) needs its own framebuffer.
type framebufferKey struct {
	pass   vk.RenderPass
	images [9]vk.Image
	n      int
}

// CommandList is the rgraph.CommandList implementation: one primary
// command buffer, plus the render-pass/image-view/framebuffer caches a
// render graph backend needs because, unlike the teacher's single
// hardcoded renderpass.go pass, CmdBeginPass is called once per
// declared graphics pass with whatever attachment set that pass resolved
// to. Grounded on the teacher's context.go render-loop shape (acquire,
// record, submit) and CoreSwapchain.CreateFrameBuffer's
// image-view-then-framebuffer sequence, generalized from one fixed
// color+depth pair to an arbitrary per-pass attachment list.
type CommandList struct {
	device vk.Device
	cmd    vk.CommandBuffer

	renderPasses map[renderPassKey]vk.RenderPass
	imageViews   map[vk.Image]vk.ImageView
	framebuffers map[framebufferKey]vk.Framebuffer

	activePass   vk.RenderPass
	activeWidth  uint32
	activeHeight uint32
}

var _ rgraph.CommandList = (*CommandList)(nil)

// NewCommandList allocates a primary command buffer from pool.
func NewCommandList(device vk.Device, pool *CommandPool) (*CommandList, error) {
	buffers := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle(),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)
	if res != vk.Success {
		return nil, fmt.Errorf("allocate command buffer: %w", newError(res))
	}
	return &CommandList{
		device:       device,
		cmd:          buffers[0],
		renderPasses: make(map[renderPassKey]vk.RenderPass),
		imageViews:   make(map[vk.Image]vk.ImageView),
		framebuffers: make(map[framebufferKey]vk.Framebuffer),
	}, nil
}

// Handle implements rgraph.CommandList.
func (c *CommandList) Handle() vk.CommandBuffer { return c.cmd }

// ActiveRenderPass returns the vk.RenderPass most recently begun by
// CmdBeginPass, for use by pass callbacks that need to build (or look up
// a cached) pipeline compatible with it. Not part of rgraph.CommandList:
// callers reach it by asserting the concrete backend type, same as any
// other backend-specific capability a callback might need.
func (c *CommandList) ActiveRenderPass() vk.RenderPass { return c.activePass }

// Begin implements rgraph.CommandList.
func (c *CommandList) Begin() error {
	res := vk.BeginCommandBuffer(c.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if res != vk.Success {
		return fmt.Errorf("begin command buffer: %w", newError(res))
	}
	return nil
}

// End implements rgraph.CommandList.
func (c *CommandList) End() error {
	res := vk.EndCommandBuffer(c.cmd)
	if res != vk.Success {
		return fmt.Errorf("end command buffer: %w", newError(res))
	}
	return nil
}

func (c *CommandList) viewFor(img vk.Image, aspect vk.ImageAspectFlags, format vk.Format) (vk.ImageView, error) {
	if v, ok := c.imageViews[img]; ok {
		return v, nil
	}
	var view vk.ImageView
	res := vk.CreateImageView(c.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if res != vk.Success {
		return vk.NullImageView, fmt.Errorf("create image view: %w", newError(res))
	}
	c.imageViews[img] = view
	return view, nil
}

// CmdBeginPass implements rgraph.CommandList: it resolves (or builds) the
// vk.RenderPass and vk.Framebuffer this attachment set requires, then
// issues vk.CmdBeginRenderPass with the clear values the graph computed.
func (c *CommandList) CmdBeginPass(info rgraph.PassBeginInfo) {
	key := makeRenderPassKey(info)
	pass, ok := c.renderPasses[key]
	if !ok {
		built, err := BuildRenderPass(c.device, info)
		if err != nil {
			Logger.Printf("CmdBeginPass: %v", err)
			return
		}
		c.renderPasses[key] = built
		pass = built
	}

	fbKey := framebufferKey{pass: pass}
	var views []vk.ImageView
	for i, img := range info.ColorAttachments {
		v, err := c.viewFor(img, vk.ImageAspectFlags(vk.ImageAspectColorBit), info.ColorAttachmentInfos[i].Format)
		if err != nil {
			Logger.Printf("CmdBeginPass: %v", err)
			return
		}
		views = append(views, v)
		if fbKey.n < len(fbKey.images) {
			fbKey.images[fbKey.n] = img
			fbKey.n++
		}
	}
	if info.HasDepthStencil {
		v, err := c.viewFor(info.DepthStencilAttachment, vk.ImageAspectFlags(vk.ImageAspectDepthBit)|vk.ImageAspectFlags(vk.ImageAspectStencilBit), info.DepthStencilAttachmentInfo.Format)
		if err != nil {
			Logger.Printf("CmdBeginPass: %v", err)
			return
		}
		views = append(views, v)
		if fbKey.n < len(fbKey.images) {
			fbKey.images[fbKey.n] = info.DepthStencilAttachment
			fbKey.n++
		}
	}

	fb, ok := c.framebuffers[fbKey]
	if !ok {
		res := vk.CreateFramebuffer(c.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      pass,
			AttachmentCount: uint32(len(views)),
			PAttachments:    views,
			Width:           info.Width,
			Height:          info.Height,
			Layers:          1,
		}, nil, &fb)
		if res != vk.Success {
			Logger.Printf("CmdBeginPass: create framebuffer: %v", newError(res))
			return
		}
		c.framebuffers[fbKey] = fb
	}

	clears := append([]vk.ClearValue{}, info.ClearColors...)
	if info.HasDepthStencil {
		clears = append(clears, info.ClearDepthStencil)
	}

	vk.CmdBeginRenderPass(c.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{},
			Extent: vk.Extent2D{Width: info.Width, Height: info.Height},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}, vk.SubpassContentsInline)

	c.activePass = pass
	c.activeWidth = info.Width
	c.activeHeight = info.Height
}

// CmdEndPass implements rgraph.CommandList.
func (c *CommandList) CmdEndPass() {
	vk.CmdEndRenderPass(c.cmd)
}

// CmdImageMemoryBarrier implements rgraph.CommandList.
func (c *CommandList) CmdImageMemoryBarrier(srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier) {
	barrier.SType = vk.StructureTypeImageMemoryBarrier
	if barrier.SubresourceRange.LevelCount == 0 {
		barrier.SubresourceRange = vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		}
	}
	vk.CmdPipelineBarrier(c.cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CmdBlitImage implements rgraph.CommandList.
func (c *CommandList) CmdBlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, region vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(c.cmd, src, srcLayout, dst, dstLayout, 1, []vk.ImageBlit{region}, filter)
}

// Destroy releases every cached render pass, image view and framebuffer
// plus the command buffer itself.
func (c *CommandList) Destroy(device vk.Device, pool *CommandPool) {
	for _, fb := range c.framebuffers {
		vk.DestroyFramebuffer(device, fb, nil)
	}
	for _, v := range c.imageViews {
		vk.DestroyImageView(device, v, nil)
	}
	for _, p := range c.renderPasses {
		vk.DestroyRenderPass(device, p, nil)
	}
	vk.FreeCommandBuffers(device, pool.Handle(), 1, []vk.CommandBuffer{c.cmd})
}
