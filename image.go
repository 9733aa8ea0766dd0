package rgraph

import vk "github.com/vulkan-go/vulkan"

// NodeType is the kind of an image node declared on a Component (spec §3).
type NodeType int

const (
	// NodeTypePrivate: physical resource, visible only inside the
	// declaring component.
	NodeTypePrivate NodeType = iota
	// NodeTypeOutput: physical resource, may be referenced by another
	// component.
	NodeTypeOutput
	// NodeTypeInput: reference only, resolves to the OUTPUT/IO of
	// another component.
	NodeTypeInput
	// NodeTypeIO: physical resource and may be referenced by another
	// component (input+output).
	NodeTypeIO
)

// imageUsage is how a single pass uses a single image — the hazard
// predicate operates on these, not on the raw vk.ImageUsageFlags bitfield.
type imageUsage int

const (
	usageColorAttachment imageUsage = iota
	usageDepthStencilAttachment
	usageSampled
)

func nativeUsage(u imageUsage) vk.ImageUsageFlags {
	switch u {
	case usageColorAttachment:
		return vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	case usageDepthStencilAttachment:
		return vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	case usageSampled:
		return vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	default:
		panic("rgraph: unreachable image usage")
	}
}

// hasImageDependency reports whether src, dst usages on the same image
// impose a RAW/WAR/WAW ordering requirement (spec §4.2 hazard table). The
// depth-stencil cases are treated symmetrically to the color ones, per
// spec §9 ("not explicitly tabulated in the source; treat them
// symmetrically").
func hasImageDependency(src, dst imageUsage) bool {
	isWrite := func(u imageUsage) bool {
		return u == usageColorAttachment || u == usageDepthStencilAttachment
	}
	isAttachment := func(u imageUsage) bool {
		return u == usageColorAttachment || u == usageDepthStencilAttachment
	}

	switch {
	case isWrite(src) && dst == usageSampled: // RAW
		return true
	case src == usageSampled && isWrite(dst): // WAR
		return true
	case isAttachment(src) && isAttachment(dst): // WAW (also covers mixed color/depth-stencil on an aliased image)
		return true
	default:
		return false
	}
}

// graphImage is a declared image node (spec §3 "Image node").
type graphImage struct {
	kind      NodeType
	name      Name
	debugName string
	usage     vk.ImageUsageFlags
	sampler   vk.SamplerCreateInfo
	format    vk.Format
	width     uint32
	height    uint32
}

// graphImageRef is the non-owning reference an INPUT/IO node carries to
// the component/name pair it resolves to (spec §3 "Image reference").
type graphImageRef struct {
	kind          NodeType
	srcComponent  *componentObj
	srcOutputName Name
}

// dereferenceImage walks compObj/name through any image reference until it
// lands on a physical (PRIVATE/OUTPUT/IO) node, and rewrites *compObj/*name
// in place to the resolved owner. The caller-supplied pointers let every
// call site "slide" to the resolved component without a second lookup.
//
// Termination: the builder's public API has no way to construct a cycle
// (connect_image only ever points a destination at a source that already
// exists), so this always terminates in at most len(imageRefs) steps —
// spec P2.
func dereferenceImage(compObj **componentObj, name *Name) *graphImage {
	c := *compObj
	for step := 0; ; step++ {
		ref, ok := c.imageRefs[*name]
		if !ok {
			break
		}
		c = ref.srcComponent
		*name = ref.srcOutputName
		if step > len(c.images)+1 {
			panic("rgraph: dereferenceImage: reference chain did not terminate")
		}
	}
	*compObj = c
	img, ok := c.images[*name]
	if !ok {
		panic(newError(ErrUnknownName, "image %d not declared in component %d", *name, c.name).Error())
	}
	return img
}
