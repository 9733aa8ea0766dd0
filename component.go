package rgraph

import vk "github.com/vulkan-go/vulkan"

// componentObj is the owning storage for one component's declared images
// and passes. Public API (Component) is an opaque handle wrapping a
// pointer to it, per the handle-over-opaque-token convention in spec §9.
type componentObj struct {
	name      Name
	debugName string

	graphicsPassOrder []*passObj
	graphicsPasses    map[Name]*passObj
	images            map[Name]*graphImage
	imageRefs         map[Name]*graphImageRef
}

// Component is a named grouping of passes and image declarations, rebuilt
// every frame (spec §3). Its Storage entry, keyed by the same name,
// persists across frames in the physical resource cache.
type Component struct {
	obj *componentObj
}

// Name returns the interned component name.
func (c Component) Name() Name { return c.obj.name }

// DebugName returns the original user-supplied component name string, kept
// alongside the interned Name for diagnostics and the DOT dump (spec §4,
// "Supplemented features").
func (c Component) DebugName() string { return c.obj.debugName }

// ImageDebugName returns the original user-supplied name string for the
// image declared as name in this component.
func (c Component) ImageDebugName(name string) (string, error) {
	n := Intern(name)
	img, ok := c.obj.images[n]
	if !ok {
		return "", reportAndSkip(newError(ErrUnknownName, "image %q not declared in component %q", name, c.obj.debugName))
	}
	return img.debugName, nil
}

func (c Component) declareImage(nameStr string, kind NodeType, format vk.Format, w, h uint32, sampler *vk.SamplerCreateInfo) error {
	name := Intern(nameStr)
	if _, exists := c.obj.images[name]; exists {
		return reportAndSkip(newError(ErrDuplicateName, "image %q already declared in component %q", nameStr, c.obj.debugName))
	}

	img := &graphImage{
		kind:      kind,
		name:      name,
		debugName: nameStr,
		format:    format,
		width:     w,
		height:    h,
	}
	if sampler != nil {
		img.sampler = *sampler
	}
	c.obj.images[name] = img

	// physical kinds get a lazily-created Storage entry the first time
	// they are declared in this component (spec §4.2).
	if kind != NodeTypeInput {
		ensureStorageEntry(c.obj.name, name, w, h)
	}
	return nil
}

// AddPrivateImage declares a PRIVATE image: a physical resource visible
// only inside this component.
func (c Component) AddPrivateImage(name string, format vk.Format, w, h uint32, sampler *vk.SamplerCreateInfo) error {
	return c.declareImage(name, NodeTypePrivate, format, w, h, sampler)
}

// AddOutputImage declares an OUTPUT image: a physical resource that may be
// referenced by another component via Graph.ConnectImage.
func (c Component) AddOutputImage(name string, format vk.Format, w, h uint32, sampler *vk.SamplerCreateInfo) error {
	return c.declareImage(name, NodeTypeOutput, format, w, h, sampler)
}

// AddInputImage declares an INPUT image: a reference that resolves to the
// OUTPUT/IO of another component via Graph.ConnectImage. It carries no
// Storage entry of its own.
func (c Component) AddInputImage(name string, format vk.Format, w, h uint32) error {
	return c.declareImage(name, NodeTypeInput, format, w, h, nil)
}

// AddIOImage declares an IO image: a physical resource that may also be
// referenced by another component (input+output).
func (c Component) AddIOImage(name string, format vk.Format, w, h uint32) error {
	return c.declareImage(name, NodeTypeIO, format, w, h, nil)
}

// AddGraphicsPass declares a graphics pass inside this component. The pass
// starts with no attachments, no sampled images and isCallbackScope=false;
// callback is invoked exactly once, during Graph.Submit, bracketed by the
// pass's render-pass begin/end.
func (c Component) AddGraphicsPass(name string, width, height uint32, user any, callback PassCallback) (GraphicsPass, error) {
	n := Intern(name)
	if _, exists := c.obj.graphicsPasses[n]; exists {
		return GraphicsPass{}, reportAndSkip(newError(ErrDuplicateName, "pass %q already declared in component %q", name, c.obj.debugName))
	}

	obj := &passObj{
		name:         n,
		debugName:    name,
		width:        width,
		height:       height,
		component:    c.obj,
		userData:     user,
		callback:     callback,
		imageUsages:  make(map[Name]imageUsage),
		sampledImage: make(map[Name]struct{}),
		edges:        make(map[Name]*passObj),
	}

	c.obj.graphicsPasses[n] = obj
	c.obj.graphicsPassOrder = append(c.obj.graphicsPassOrder, obj)

	return GraphicsPass{obj: obj}, nil
}
