package rgraph

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func newTestGraph(t *testing.T) Graph {
	t.Helper()
	g, err := CreateGraph(GraphInfo{Device: &fakeDevice{}, List: &fakeCommandList{}})
	if err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	return g
}

func TestAddPrivateImageDuplicateName(t *testing.T) {
	g := newTestGraph(t)
	c, err := g.AddComponent("componentDup")
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := c.AddPrivateImage("img", vk.FormatR8g8b8a8Unorm, 4, 4, nil); err != nil {
		t.Fatalf("first AddPrivateImage: %v", err)
	}
	err = c.AddPrivateImage("img", vk.FormatR8g8b8a8Unorm, 4, 4, nil)
	if err == nil {
		t.Fatalf("second AddPrivateImage with the same name succeeded, want ErrDuplicateName")
	}
	if gotErr, ok := err.(*Error); !ok || gotErr.Kind != ErrDuplicateName {
		t.Fatalf("AddPrivateImage duplicate: got %v, want ErrDuplicateName", err)
	}
}

func TestAddGraphicsPassDuplicateName(t *testing.T) {
	g := newTestGraph(t)
	c, _ := g.AddComponent("componentPassDup")
	if _, err := c.AddGraphicsPass("clear", 4, 4, nil, nil); err != nil {
		t.Fatalf("first AddGraphicsPass: %v", err)
	}
	if _, err := c.AddGraphicsPass("clear", 4, 4, nil, nil); err == nil {
		t.Fatalf("second AddGraphicsPass with the same name succeeded, want ErrDuplicateName")
	}
}

func TestComponentAndPassDebugNameAccessors(t *testing.T) {
	g := newTestGraph(t)
	c, err := g.AddComponent("myComponent")
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if got := c.DebugName(); got != "myComponent" {
		t.Fatalf("Component.DebugName(): got %q, want %q", got, "myComponent")
	}

	if err := c.AddPrivateImage("myImage", vk.FormatR8g8b8a8Unorm, 4, 4, nil); err != nil {
		t.Fatalf("AddPrivateImage: %v", err)
	}
	if got, err := c.ImageDebugName("myImage"); err != nil || got != "myImage" {
		t.Fatalf("Component.ImageDebugName(): got (%q, %v), want (%q, nil)", got, err, "myImage")
	}
	if _, err := c.ImageDebugName("noSuchImage"); err == nil {
		t.Fatalf("Component.ImageDebugName() on an undeclared image succeeded, want an error")
	}

	p, err := c.AddGraphicsPass("myPass", 4, 4, nil, nil)
	if err != nil {
		t.Fatalf("AddGraphicsPass: %v", err)
	}
	if got := p.DebugName(); got != "myPass" {
		t.Fatalf("GraphicsPass.DebugName(): got %q, want %q", got, "myPass")
	}
}

func TestAddComponentDuplicateName(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.AddComponent("dupComponent"); err != nil {
		t.Fatalf("first AddComponent: %v", err)
	}
	if _, err := g.AddComponent("dupComponent"); err == nil {
		t.Fatalf("second AddComponent with the same name succeeded, want ErrDuplicateName")
	}
}

func TestConnectImageRejectsNonInputDestination(t *testing.T) {
	g := newTestGraph(t)
	src, _ := g.AddComponent("connSrc")
	dst, _ := g.AddComponent("connDst")
	if err := src.AddOutputImage("out", vk.FormatR8g8b8a8Unorm, 4, 4, nil); err != nil {
		t.Fatalf("AddOutputImage: %v", err)
	}
	if err := dst.AddPrivateImage("priv", vk.FormatR8g8b8a8Unorm, 4, 4, nil); err != nil {
		t.Fatalf("AddPrivateImage: %v", err)
	}
	if err := g.ConnectImage("connSrc", "out", "connDst", "priv"); err == nil {
		t.Fatalf("ConnectImage onto a PRIVATE destination succeeded, want an error")
	}
}

func TestConnectImageUnknownComponent(t *testing.T) {
	g := newTestGraph(t)
	if err := g.ConnectImage("nope", "out", "alsoNope", "in"); err == nil {
		t.Fatalf("ConnectImage with unknown components succeeded, want ErrUnknownName")
	}
}

// TestConnectImageWidensUsageAndAddsCrossComponentEdge exercises the
// canonical cross-component producer/consumer case from spec §4.2: a pass
// in one component writes an OUTPUT image, a pass in another component
// samples it via an INPUT connected with ConnectImage. ConnectImage must
// both widen the source image's usage with the consumer's native usage and
// add an edge from the producer pass to the consumer pass, since
// topologicalSort only ever walks passObj.edges.
func TestConnectImageWidensUsageAndAddsCrossComponentEdge(t *testing.T) {
	g := newTestGraph(t)
	src, _ := g.AddComponent("producer")
	dst, _ := g.AddComponent("consumer")

	if err := src.AddOutputImage("out", vk.FormatR8g8b8a8Unorm, 4, 4, nil); err != nil {
		t.Fatalf("AddOutputImage: %v", err)
	}
	if err := dst.AddInputImage("in", vk.FormatR8g8b8a8Unorm, 4, 4); err != nil {
		t.Fatalf("AddInputImage: %v", err)
	}

	srcPass, err := src.AddGraphicsPass("write", 4, 4, nil, nil)
	if err != nil {
		t.Fatalf("AddGraphicsPass(write): %v", err)
	}
	var clear vk.ClearColorValue
	if err := srcPass.UseColorAttachment("out", vk.AttachmentLoadOpClear, &clear); err != nil {
		t.Fatalf("UseColorAttachment: %v", err)
	}

	dstPass, err := dst.AddGraphicsPass("read", 4, 4, nil, nil)
	if err != nil {
		t.Fatalf("AddGraphicsPass(read): %v", err)
	}
	if err := dstPass.UseImageSampled("in"); err != nil {
		t.Fatalf("UseImageSampled: %v", err)
	}

	if err := g.ConnectImage("producer", "out", "consumer", "in"); err != nil {
		t.Fatalf("ConnectImage: %v", err)
	}

	srcImg := src.obj.images[Intern("out")]
	wantUsage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	if srcImg.usage != wantUsage {
		t.Fatalf("source image usage after ConnectImage: got %v, want %v", srcImg.usage, wantUsage)
	}

	if got := srcPass.obj.edges[dstPass.obj.name]; got != dstPass.obj {
		t.Fatalf("ConnectImage did not add a cross-component edge from the producer pass to the consumer pass")
	}

	sorted, serr := topologicalSort([]*componentObj{src.obj, dst.obj})
	if serr != nil {
		t.Fatalf("topologicalSort: %v", serr)
	}
	producerIdx, consumerIdx := -1, -1
	for i, p := range sorted {
		if p == srcPass.obj {
			producerIdx = i
		}
		if p == dstPass.obj {
			consumerIdx = i
		}
	}
	if producerIdx == -1 || consumerIdx == -1 {
		t.Fatalf("topologicalSort dropped a pass: got %v", sorted)
	}
	if producerIdx >= consumerIdx {
		t.Fatalf("topologicalSort scheduled the consumer before the producer: producer at %d, consumer at %d", producerIdx, consumerIdx)
	}
}

// TestConnectSwapchainImageWidensUsageWithTransferSrc exercises spec §4.2's
// requirement that connecting an image as the swapchain blit source widens
// its usage with TRANSFER_SRC, since blitToSwapchain later reads it as a
// blit source and storage.go allocates strictly from the declared usage.
func TestConnectSwapchainImageWidensUsageWithTransferSrc(t *testing.T) {
	g := newTestGraph(t)
	c, _ := g.AddComponent("present")
	if err := c.AddOutputImage("color", vk.FormatR8g8b8a8Unorm, 4, 4, nil); err != nil {
		t.Fatalf("AddOutputImage: %v", err)
	}
	p, err := c.AddGraphicsPass("draw", 4, 4, nil, nil)
	if err != nil {
		t.Fatalf("AddGraphicsPass: %v", err)
	}
	var clear vk.ClearColorValue
	if err := p.UseColorAttachment("color", vk.AttachmentLoadOpClear, &clear); err != nil {
		t.Fatalf("UseColorAttachment: %v", err)
	}

	if err := g.ConnectSwapchainImage("present", "color"); err != nil {
		t.Fatalf("ConnectSwapchainImage: %v", err)
	}

	img := c.obj.images[Intern("color")]
	wantUsage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	if img.usage != wantUsage {
		t.Fatalf("image usage after ConnectSwapchainImage: got %v, want %v", img.usage, wantUsage)
	}
	if g.obj.swapchainSource != img {
		t.Fatalf("ConnectSwapchainImage did not set the graph's swapchainSource")
	}
}
