package rgraph

import vk "github.com/vulkan-go/vulkan"

// GraphInfo supplies everything CreateGraph needs to bind a graph to one
// frame's device resources: the backend, the command list to record into,
// and the swapchain image/synchronization primitives for the final blit
// and present (spec §4.4, §6).
type GraphInfo struct {
	Device Device
	List   CommandList

	SwapchainImage  vk.Image
	SwapchainWidth  uint32
	SwapchainHeight uint32

	ImageAcquired vk.Semaphore
	PresentReady  vk.Semaphore
	FrameComplete vk.Fence
}

type graphObj struct {
	device Device
	list   CommandList

	swapchainImage  vk.Image
	swapchainWidth  uint32
	swapchainHeight uint32
	swapchainSource *graphImage // set by ConnectSwapchainImage
	swapchainOwner  *componentObj

	imageAcquired vk.Semaphore
	presentReady  vk.Semaphore
	frameComplete vk.Fence

	components      []*componentObj
	componentByName map[Name]*componentObj

	releaseCallbacks []func()
	destroyCallbacks []func()
}

// Graph is the top-level, per-frame builder: components are added to it,
// passes and images are declared on those components, and Submit compiles
// everything declared so far into a hazard-free command sequence (spec §3).
type Graph struct {
	obj *graphObj
}

// CreateGraph starts a new, empty graph bound to info's device and command
// list. See spec §4.1.
func CreateGraph(info GraphInfo) (Graph, error) {
	if info.Device == nil || info.List == nil {
		return Graph{}, reportAndSkip(newError(ErrInvalidDevice, "CreateGraph: Device and CommandList are required"))
	}
	return Graph{obj: &graphObj{
		device:          info.Device,
		list:            info.List,
		swapchainImage:  info.SwapchainImage,
		swapchainWidth:  info.SwapchainWidth,
		swapchainHeight: info.SwapchainHeight,
		imageAcquired:   info.ImageAcquired,
		presentReady:    info.PresentReady,
		frameComplete:   info.FrameComplete,
		componentByName: make(map[Name]*componentObj),
	}}, nil
}

// Device returns the backend this graph was created against.
func (g Graph) Device() Device { return g.obj.device }

// SwapchainImage returns the raw swapchain image this graph will blit its
// connected output into on Submit.
func (g Graph) SwapchainImage() vk.Image { return g.obj.swapchainImage }

// AddComponent declares a new, empty component on the graph. See spec §4.1.
func (g Graph) AddComponent(name string) (Component, error) {
	n := Intern(name)
	if _, exists := g.obj.componentByName[n]; exists {
		return Component{}, reportAndSkip(newError(ErrDuplicateName, "component %q already exists", name))
	}
	obj := &componentObj{
		name:           n,
		debugName:      name,
		graphicsPasses: make(map[Name]*passObj),
		images:         make(map[Name]*graphImage),
		imageRefs:      make(map[Name]*graphImageRef),
	}
	g.obj.componentByName[n] = obj
	g.obj.components = append(g.obj.components, obj)
	return Component{obj: obj}, nil
}

func (g Graph) findComponent(name string) (*componentObj, *Error) {
	c, ok := g.obj.componentByName[Intern(name)]
	if !ok {
		return nil, newError(ErrUnknownName, "component %q not found", name)
	}
	return c, nil
}

// ConnectImage wires dstComponent's INPUT or IO image named dstName to
// srcComponent's OUTPUT or IO image named srcName, so that any pass using
// dstName resolves, transitively, to the physical image backing srcName
// (spec §4.1).
func (g Graph) ConnectImage(srcComponent, srcName, dstComponent, dstName string) error {
	src, err := g.findComponent(srcComponent)
	if err != nil {
		return reportAndSkip(err)
	}
	dst, err := g.findComponent(dstComponent)
	if err != nil {
		return reportAndSkip(err)
	}

	srcN := Intern(srcName)
	srcImg, ok := src.images[srcN]
	if !ok {
		return reportAndSkip(newError(ErrUnknownName, "image %q not declared in component %q", srcName, srcComponent))
	}
	dstN := Intern(dstName)
	dstImg, ok := dst.images[dstN]
	if !ok {
		return reportAndSkip(newError(ErrUnknownName, "image %q not declared in component %q", dstName, dstComponent))
	}
	if dstImg.kind != NodeTypeInput && dstImg.kind != NodeTypeIO {
		return reportAndSkip(newError(ErrUnknownName, "image %q in component %q is not an INPUT or IO node", dstName, dstComponent))
	}

	dst.imageRefs[dstN] = &graphImageRef{kind: dstImg.kind, srcComponent: src, srcOutputName: srcN}

	// spec §4.2: the source's usage bitfield widens with every native
	// usage recorded on the destination's passes, and for every
	// (srcPass, dstPass) pair whose usages hazard against each other a
	// dependency edge runs from srcPass to dstPass -- this is what makes
	// cross-component ordering work, since topologicalSort only ever
	// walks passObj.edges, which addIntraComponentEdges otherwise
	// populates intra-component only.
	for _, dstPass := range dst.graphicsPasses {
		dstUsage, ok := dstPass.imageUsages[dstN]
		if !ok {
			continue
		}
		srcImg.usage |= nativeUsage(dstUsage)

		for _, srcPass := range src.graphicsPasses {
			srcUsage, ok := srcPass.imageUsages[srcN]
			if !ok {
				continue
			}
			if hasImageDependency(srcUsage, dstUsage) {
				srcPass.edges[dstPass.name] = dstPass
			}
		}
	}

	return nil
}

// ConnectSwapchainImage marks srcComponent's OUTPUT/IO image srcName as the
// source for this graph's final swapchain blit (spec §4.4, "final
// presentation step").
func (g Graph) ConnectSwapchainImage(srcComponent, srcName string) error {
	src, err := g.findComponent(srcComponent)
	if err != nil {
		return reportAndSkip(err)
	}
	n := Intern(srcName)
	img, ok := src.images[n]
	if !ok {
		return reportAndSkip(newError(ErrUnknownName, "image %q not declared in component %q", srcName, srcComponent))
	}

	// spec §4.2: the final blit reads this image as a transfer source, so
	// its usage must widen to include TRANSFER_SRC or the physical image
	// storage.go allocates for it won't be valid for blitToSwapchain.
	img.usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)

	g.obj.swapchainSource = img
	g.obj.swapchainOwner = src
	return nil
}

// AddReleaseCallback registers fn to run, LIFO, the next time this graph's
// per-frame resources are released (spec §9, "release/destroy stacks").
func (g Graph) AddReleaseCallback(fn func()) { g.obj.releaseCallbacks = append(g.obj.releaseCallbacks, fn) }

// AddDestroyCallback registers fn to run, LIFO, when this graph is torn
// down entirely.
func (g Graph) AddDestroyCallback(fn func()) { g.obj.destroyCallbacks = append(g.obj.destroyCallbacks, fn) }

func runStackLIFO(stack []func()) {
	for i := len(stack) - 1; i >= 0; i-- {
		stack[i]()
	}
}

// Release runs every registered release callback and clears this graph's
// component declarations, ready for the next frame's AddComponent calls.
// The physical resource cache (Storage) is untouched, so images persist
// across frames as spec §4.3 requires.
func (g Graph) Release() {
	runStackLIFO(g.obj.releaseCallbacks)
	g.obj.releaseCallbacks = nil
	g.obj.components = nil
	g.obj.componentByName = make(map[Name]*componentObj)
	g.obj.swapchainSource = nil
	g.obj.swapchainOwner = nil
}

// Destroy runs every registered destroy callback and drops every physical
// image this graph's components ever allocated in the Storage cache.
func (g Graph) Destroy() {
	runStackLIFO(g.obj.destroyCallbacks)
	g.obj.destroyCallbacks = nil
	for n := range g.obj.componentByName {
		invalidateComponentStorage(g.obj.device, n)
	}
}

func clearColorValue(v *vk.ClearColorValue) vk.ClearValue {
	var cv vk.ClearValue
	if v == nil {
		return cv
	}
	cv.SetColor(v.Float32)
	return cv
}

// Submit topologically sorts every pass declared on this graph's
// components, resolves each pass's image usages to physical images
// (allocating or reallocating via the cache as needed), and records the
// full per-frame command sequence: per-pass layout transitions and render
// pass begin/end around each user callback, then the final swapchain blit
// and queue submit (spec §4.4). save requests a Graphviz dump of the
// resulting pass schedule (see dot.go).
func (g Graph) Submit(save bool) error {
	order, err := topologicalSort(g.obj.components)
	if err != nil {
		panic(err.Error())
	}

	if save {
		writeDot(g.obj.components, order)
	}

	list := g.obj.list
	if err := list.Begin(); err != nil {
		return err
	}

	var prevDeps *PassDependency
	for _, p := range order {
		begin, dep, cleanupBarriers, serr := g.preparePass(p, prevDeps)
		if serr != nil {
			return serr
		}

		for _, b := range cleanupBarriers {
			list.CmdImageMemoryBarrier(b.srcStage, b.dstStage, b.barrier)
		}

		list.CmdBeginPass(begin)
		p.isCallbackScope = true
		if p.callback != nil {
			p.callback(GraphicsPass{obj: p}, list, p.userData)
		}
		p.isCallbackScope = false
		list.CmdEndPass()

		prevDeps = dep
	}

	if g.obj.swapchainSource != nil {
		if err := g.blitToSwapchain(); err != nil {
			return err
		}
	}

	if err := list.End(); err != nil {
		return err
	}

	return g.submitQueue()
}

// submitQueue submits the recorded command list, waiting on imageAcquired
// at the color-attachment-output stage and signaling presentReady and
// frameComplete, matching the teacher's submit_pipeline in instance.go.
func (g Graph) submitQueue() error {
	cmd := g.obj.list.Handle()
	waitStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{g.obj.imageAcquired},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{g.obj.presentReady},
	}

	ret := vk.QueueSubmit(g.obj.device.GraphicsQueue(), 1, []vk.SubmitInfo{info}, g.obj.frameComplete)
	if ret != vk.Success {
		return newError(ErrInvalidDevice, "QueueSubmit failed: %d", ret)
	}
	return nil
}

type pendingBarrier struct {
	srcStage, dstStage vk.PipelineStageFlags
	barrier            vk.ImageMemoryBarrier
}

// preparePass resolves p's attachments and sampled images to physical
// images, widening and (re)allocating them via the cache, and builds the
// CmdBeginPass parameters plus any pre-pass barriers its sampled images
// need (spec §4.4 steps 2-3).
func (g Graph) preparePass(p *passObj, prevDeps *PassDependency) (PassBeginInfo, *PassDependency, []pendingBarrier, *Error) {
	begin := PassBeginInfo{Width: p.width, Height: p.height, Dependency: prevDeps}
	var barriers []pendingBarrier

	for _, ca := range p.colorAttachments {
		compObj, n := p.component, ca.name
		img := dereferenceImage(&compObj, &n)
		state, err := getOrCreateImage(g.obj.device, compObj.name, n, img.format, img.width, img.height, img.usage, img.sampler)
		if err != nil {
			return begin, nil, nil, err
		}
		begin.ColorAttachments = append(begin.ColorAttachments, state.handle)
		info := p.colorAttachmentInfos[len(begin.ColorAttachments)-1]
		info.InitialLayout = state.lastLayout
		begin.ColorAttachmentInfos = append(begin.ColorAttachmentInfos, info)
		begin.ClearColors = append(begin.ClearColors, clearColorValue(ca.clearValue))
		state.lastLayout = info.PassLayout
	}

	if p.hasDepthStencil {
		ca := p.depthStencilAttachment
		compObj, n := p.component, ca.name
		img := dereferenceImage(&compObj, &n)
		state, err := getOrCreateImage(g.obj.device, compObj.name, n, img.format, img.width, img.height, img.usage, img.sampler)
		if err != nil {
			return begin, nil, nil, err
		}
		begin.HasDepthStencil = true
		begin.DepthStencilAttachment = state.handle
		info := p.depthStencilAttachmentInfo
		info.InitialLayout = state.lastLayout
		begin.DepthStencilAttachmentInfo = info
		if ca.clearValue != nil {
			begin.ClearDepthStencil.SetDepthStencil(ca.clearValue.Depth, ca.clearValue.Stencil)
		}
		state.lastLayout = info.PassLayout
	}

	for name := range p.sampledImage {
		compObj := p.component
		n := name
		img := dereferenceImage(&compObj, &n)
		state := storageFor(compObj.name, n)
		if state == nil || state.handle == vk.NullHandle {
			continue // nothing allocated yet to sample from; producing pass hasn't run
		}
		if state.lastLayout == vk.ImageLayoutShaderReadOnlyOptimal {
			continue
		}
		barriers = append(barriers, pendingBarrier{
			srcStage: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			dstStage: vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			barrier: vk.ImageMemoryBarrier{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
				DstAccessMask:       0,
				OldLayout:           state.lastLayout,
				NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
				Image:               state.handle,
				SubresourceRange:    colorSubresourceRange(img),
			},
		})
		state.lastLayout = vk.ImageLayoutShaderReadOnlyOptimal
	}

	dep := &PassDependency{
		SrcAccessMask: p.accessFlags,
		DstAccessMask: p.accessFlags,
		SrcStageMask:  p.stageFlags,
		DstStageMask:  p.stageFlags,
	}
	return begin, dep, barriers, nil
}

func colorSubresourceRange(img *graphImage) vk.ImageSubresourceRange {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if img != nil && img.usage&vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit) != 0 {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// blitToSwapchain transitions the connected output image and the
// swapchain image into transfer layouts, blits between them, and leaves
// the swapchain image in PRESENT_SRC (spec §4.4 "final presentation step",
// grounded on the original's three-barrier-plus-blit sequence).
func (g Graph) blitToSwapchain() error {
	list := g.obj.list
	src := g.obj.swapchainSource
	owner := g.obj.swapchainOwner

	state := storageFor(owner.name, src.name)
	if state == nil || state.handle == vk.NullHandle {
		return newError(ErrUnknownName, "swapchain source image %q was never produced by any pass", src.debugName)
	}

	list.CmdImageMemoryBarrier(
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageMemoryBarrier{
			SType:            vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:    vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask:    vk.AccessFlags(vk.AccessTransferReadBit),
			OldLayout:        state.lastLayout,
			NewLayout:        vk.ImageLayoutTransferSrcOptimal,
			Image:            state.handle,
			SubresourceRange: colorSubresourceRange(src),
		},
	)
	state.lastLayout = vk.ImageLayoutTransferSrcOptimal

	list.CmdImageMemoryBarrier(
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.ImageMemoryBarrier{
			SType:            vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:    0,
			DstAccessMask:    vk.AccessFlags(vk.AccessTransferWriteBit),
			OldLayout:        vk.ImageLayoutUndefined,
			NewLayout:        vk.ImageLayoutTransferDstOptimal,
			Image:            g.obj.swapchainImage,
			SubresourceRange: colorSubresourceRange(nil),
		},
	)

	var region vk.ImageBlit
	region.SrcSubresource = vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1}
	region.DstSubresource = region.SrcSubresource
	region.SrcOffsets[1] = vk.Offset3D{X: int32(src.width), Y: int32(src.height), Z: 1}
	region.DstOffsets[1] = vk.Offset3D{X: int32(g.obj.swapchainWidth), Y: int32(g.obj.swapchainHeight), Z: 1}

	list.CmdBlitImage(state.handle, vk.ImageLayoutTransferSrcOptimal, g.obj.swapchainImage, vk.ImageLayoutTransferDstOptimal, region, vk.FilterNearest)

	list.CmdImageMemoryBarrier(
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		vk.ImageMemoryBarrier{
			SType:            vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:    vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:    0,
			OldLayout:        vk.ImageLayoutTransferDstOptimal,
			NewLayout:        vk.ImageLayoutPresentSrc,
			Image:            g.obj.swapchainImage,
			SubresourceRange: colorSubresourceRange(nil),
		},
	)

	return nil
}
