package rgraph

import vk "github.com/vulkan-go/vulkan"

// PassCallback records draw commands inside an active render pass. It is
// invoked exactly once per pass per frame, between CmdBeginPass and
// CmdEndPass, with the pass's image lookups enabled (spec §3 "Lifecycle").
type PassCallback func(pass GraphicsPass, list CommandList, user any)

type colorAttachment struct {
	name       Name
	clearValue *vk.ClearColorValue
}

type depthStencilAttachment struct {
	name       Name
	clearValue *vk.ClearDepthStencilValue
}

// passObj is the owning storage for one declared graphics pass.
type passObj struct {
	name      Name
	debugName string
	width     uint32
	height    uint32
	component *componentObj

	colorAttachments     []colorAttachment
	colorAttachmentInfos []ColorAttachmentInfo

	hasDepthStencil            bool
	depthStencilAttachment     depthStencilAttachment
	depthStencilAttachmentInfo DepthStencilAttachmentInfo

	imageUsages  map[Name]imageUsage
	sampledImage map[Name]struct{}
	edges        map[Name]*passObj // dependency passes: this -> edges, i.e. this must run before each of them

	stageFlags  vk.PipelineStageFlags
	accessFlags vk.AccessFlags

	userData        any
	callback        PassCallback
	isCallbackScope bool
}

// GraphicsPass is an opaque handle to a declared graphics pass.
type GraphicsPass struct {
	obj *passObj
}

// Name returns the interned pass name.
func (p GraphicsPass) Name() Name { return p.obj.name }

// DebugName returns the original user-supplied pass name string, kept
// alongside the interned Name for diagnostics and the DOT dump (spec §4,
// "Supplemented features").
func (p GraphicsPass) DebugName() string { return p.obj.debugName }

func checkGraphicsPassImage(p *passObj, name Name) *Error {
	if _, ok := p.component.images[name]; !ok {
		return newError(ErrUnknownName, "image not found in component %q", p.component.debugName)
	}
	if _, ok := p.imageUsages[name]; ok {
		return newError(ErrDoubleUse, "image already used in pass %q", p.debugName)
	}
	return nil
}

func checkLoadOpClearValue(loadOp vk.AttachmentLoadOp, hasClear bool) *Error {
	if loadOp == vk.AttachmentLoadOpClear && !hasClear {
		return newError(ErrClearValueMismatch, "load-op CLEAR requires a clear value")
	}
	if loadOp != vk.AttachmentLoadOpClear && hasClear {
		return newError(ErrClearValueMismatch, "clear value supplied for a non-CLEAR load-op")
	}
	return nil
}

// addIntraComponentEdges records a dependency edge from every earlier pass
// in the same component that hazards against this pass's new usage of
// name (spec §4.2, "for every earlier pass ... adds a dependency edge").
func addIntraComponentEdges(p *passObj, name Name) {
	for _, src := range p.component.graphicsPassOrder {
		if src.name == p.name {
			break
		}
		if u, ok := src.imageUsages[name]; ok && hasImageDependency(u, p.imageUsages[name]) {
			src.edges[p.name] = p
		}
	}
}

// UseColorAttachment declares that the pass writes name as a color
// attachment. See spec §4.2.
func (p GraphicsPass) UseColorAttachment(name string, loadOp vk.AttachmentLoadOp, clear *vk.ClearColorValue) error {
	obj := p.obj
	n := Intern(name)

	if err := checkGraphicsPassImage(obj, n); err != nil {
		return reportAndSkip(err)
	}
	if err := checkLoadOpClearValue(loadOp, clear != nil); err != nil {
		return reportAndSkip(err)
	}

	img := obj.component.images[n]

	obj.imageUsages[n] = usageColorAttachment
	img.usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)

	obj.colorAttachments = append(obj.colorAttachments, colorAttachment{name: n, clearValue: clear})
	obj.colorAttachmentInfos = append(obj.colorAttachmentInfos, ColorAttachmentInfo{
		Format:        img.format,
		LoadOp:        loadOp,
		StoreOp:       vk.AttachmentStoreOpStore,
		InitialLayout: vk.ImageLayoutUndefined, // resolved by the recorder
		PassLayout:    vk.ImageLayoutColorAttachmentOptimal,
	})

	obj.accessFlags |= vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	obj.stageFlags |= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)

	addIntraComponentEdges(obj, n)
	return nil
}

// UseDepthStencilAttachment declares the pass's single depth-stencil
// attachment. Stencil load/store are always DONT_CARE (spec §9).
func (p GraphicsPass) UseDepthStencilAttachment(name string, loadOp vk.AttachmentLoadOp, clear *vk.ClearDepthStencilValue) error {
	obj := p.obj
	n := Intern(name)

	if err := checkGraphicsPassImage(obj, n); err != nil {
		return reportAndSkip(err)
	}
	if err := checkLoadOpClearValue(loadOp, clear != nil); err != nil {
		return reportAndSkip(err)
	}
	if obj.hasDepthStencil {
		return reportAndSkip(newError(ErrDoubleUse, "pass %q already has a depth-stencil attachment", obj.debugName))
	}

	img := obj.component.images[n]
	obj.hasDepthStencil = true
	obj.imageUsages[n] = usageDepthStencilAttachment
	img.usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)

	obj.depthStencilAttachment = depthStencilAttachment{name: n, clearValue: clear}
	obj.depthStencilAttachmentInfo = DepthStencilAttachmentInfo{
		Format:         img.format,
		DepthLoadOp:    loadOp,
		DepthStoreOp:   vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		PassLayout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	obj.accessFlags |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	obj.stageFlags |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)

	addIntraComponentEdges(obj, n)
	return nil
}

// UseImageSampled declares that the pass samples name. See spec §4.2.
func (p GraphicsPass) UseImageSampled(name string) error {
	obj := p.obj
	n := Intern(name)

	if err := checkGraphicsPassImage(obj, n); err != nil {
		return reportAndSkip(err)
	}

	img := obj.component.images[n]

	obj.sampledImage[n] = struct{}{}
	obj.imageUsages[n] = usageSampled
	img.usage |= nativeUsage(usageSampled)

	addIntraComponentEdges(obj, n)
	return nil
}

// GetImage resolves name to the physical image backing it. It is only
// valid while isCallbackScope is true, i.e. from inside this pass's
// PassCallback (spec §4.4 "Image lookup during callback").
func (p GraphicsPass) GetImage(name string) (vk.Image, error) {
	obj := p.obj
	if !obj.isCallbackScope {
		return vk.NullHandle, newError(ErrOutOfScope, "get_image(%q) called outside pass %q's callback", name, obj.debugName)
	}

	compObj := obj.component
	n := Intern(name)
	dereferenceImage(&compObj, &n)

	state := storageFor(compObj.name, n)
	if state == nil || state.handle == vk.NullHandle {
		panic(newError(ErrUnknownName, "get_image(%q): no physical image backing it", name).Error())
	}
	return state.handle, nil
}
