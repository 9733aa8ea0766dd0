package rgraph

import vk "github.com/vulkan-go/vulkan"

// ImageInfo describes the physical image the graph wants Device to own.
// It is the generalized (usage- and size-widened) request computed by the
// physical resource cache, §4.3.
type ImageInfo struct {
	Format  vk.Format
	Usage   vk.ImageUsageFlags
	Width   uint32
	Height  uint32
	Sampler vk.SamplerCreateInfo
}

// Device is the GPU abstraction the graph compiles against. A concrete
// implementation (see package vkdevice) owns image memory allocation,
// the graphics queue, and the wait-idle required before destroying any
// image that might still be referenced by a frame in flight.
type Device interface {
	// CreateImage allocates a 2D, single-sample, single-layer device
	// image matching info. The graph never reads back the contents of
	// an image it allocates this way; callers needing a specific initial
	// layout rely on the recorder's UNDEFINED-initialized transitions.
	CreateImage(info ImageInfo) (vk.Image, error)

	// DestroyImage releases a previously created image. The caller is
	// responsible for having waited for the device to go idle first if
	// the image might still be referenced by in-flight work.
	DestroyImage(img vk.Image)

	// WaitIdle blocks until all submitted GPU work has completed. Called
	// before invalidating a physical image (§4.3 step 5) and during
	// Release tear-down.
	WaitIdle()

	// GraphicsQueue returns the queue used for Graph.Submit.
	GraphicsQueue() vk.Queue
}

// ColorAttachmentInfo is the backend-facing description of one color
// attachment slot, consumed by CommandList.CmdBeginPass.
type ColorAttachmentInfo struct {
	Format        vk.Format
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	PassLayout    vk.ImageLayout
}

// DepthStencilAttachmentInfo is the backend-facing description of the
// depth-stencil attachment slot. Stencil load/store are always DONT_CARE
// (spec §9, "Open questions carried from the source").
type DepthStencilAttachmentInfo struct {
	Format         vk.Format
	DepthLoadOp    vk.AttachmentLoadOp
	DepthStoreOp   vk.AttachmentStoreOp
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
	InitialLayout  vk.ImageLayout
	PassLayout     vk.ImageLayout
}

// PassDependency carries the accumulated stage/access masks a backend must
// turn into a subpass dependency (or an explicit barrier) before beginning
// a render pass that depends on the one immediately before it in emission
// order (§4.4 step 4).
type PassDependency struct {
	SrcAccessMask vk.AccessFlags
	DstAccessMask vk.AccessFlags
	SrcStageMask  vk.PipelineStageFlags
	DstStageMask  vk.PipelineStageFlags
}

// PassBeginInfo is everything CommandList.CmdBeginPass needs to begin one
// graphics pass: resolved image handles, per-attachment layouts and clear
// values, and an optional dependency on the previous pass.
type PassBeginInfo struct {
	Width, Height uint32

	ColorAttachments     []vk.Image
	ColorAttachmentInfos []ColorAttachmentInfo
	ClearColors          []vk.ClearValue

	HasDepthStencil            bool
	DepthStencilAttachment     vk.Image
	DepthStencilAttachmentInfo DepthStencilAttachmentInfo
	ClearDepthStencil          vk.ClearValue

	Dependency *PassDependency
}

// CommandList is the single command buffer the graph records into. A user
// pass callback receives one via GraphicsPass's owning Graph and issues
// draw commands against it between CmdBeginPass and CmdEndPass.
type CommandList interface {
	Begin() error
	End() error

	CmdBeginPass(info PassBeginInfo)
	CmdEndPass()

	CmdImageMemoryBarrier(srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier)
	CmdBlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, region vk.ImageBlit, filter vk.Filter)

	// Handle exposes the raw command buffer for draw calls issued from
	// inside a pass callback. The graph itself never issues draw calls.
	Handle() vk.CommandBuffer
}
