package rgraph

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestCreateGraphRequiresDeviceAndList(t *testing.T) {
	if _, err := CreateGraph(GraphInfo{}); err == nil {
		t.Fatalf("CreateGraph with no device/list succeeded, want ErrInvalidDevice")
	}
	if _, err := CreateGraph(GraphInfo{Device: &fakeDevice{}}); err == nil {
		t.Fatalf("CreateGraph with no command list succeeded, want ErrInvalidDevice")
	}
}

func TestReleaseRunsCallbacksLIFOAndKeepsStorage(t *testing.T) {
	g := newTestGraph(t)
	var order []int
	g.AddReleaseCallback(func() { order = append(order, 1) })
	g.AddReleaseCallback(func() { order = append(order, 2) })
	g.AddReleaseCallback(func() { order = append(order, 3) })

	c, _ := g.AddComponent("releaseComp")
	c.AddOutputImage("color", vk.FormatR8g8b8a8Unorm, 4, 4, nil)

	g.Release()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Fatalf("release callbacks ran in order %v, want [3 2 1]", order)
	}
	if _, err := g.findComponent("releaseComp"); err == nil {
		t.Fatalf("component survived Release")
	}
	if storageFor(Intern("releaseComp"), Intern("color")) == nil {
		t.Fatalf("Release dropped the physical resource cache entry, but it must persist across frames")
	}
}

func TestDestroyRunsCallbacksLIFOAndDropsStorage(t *testing.T) {
	dev := &fakeDevice{}
	g, err := CreateGraph(GraphInfo{Device: dev, List: &fakeCommandList{}})
	if err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	var order []int
	g.AddDestroyCallback(func() { order = append(order, 1) })
	g.AddDestroyCallback(func() { order = append(order, 2) })

	c, _ := g.AddComponent("destroyComp")
	c.AddOutputImage("color", vk.FormatR8g8b8a8Unorm, 4, 4, nil)
	if _, err := getOrCreateImage(dev, Intern("destroyComp"), Intern("color"), vk.FormatR8g8b8a8Unorm, 4, 4, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{}); err != nil {
		t.Fatalf("getOrCreateImage: %v", err)
	}

	g.Destroy()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("destroy callbacks ran in order %v, want [2 1]", order)
	}
	if storageFor(Intern("destroyComp"), Intern("color")) != nil {
		t.Fatalf("Destroy left a physical resource cache entry behind")
	}
	if dev.destroyed != 1 {
		t.Fatalf("Destroy did not destroy the physical image it owned")
	}
}

// preparePass must resolve a pass's color attachment to a physical image
// allocated through the Device, carrying forward the prior layout as the
// attachment's initial layout.
func TestPreparePassResolvesColorAttachment(t *testing.T) {
	dev := &fakeDevice{}
	g, err := CreateGraph(GraphInfo{Device: dev, List: &fakeCommandList{}})
	if err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	c, _ := g.AddComponent("preparePassComp")
	c.AddOutputImage("color", vk.FormatR8g8b8a8Unorm, 16, 16, nil)
	pass, _ := c.AddGraphicsPass("pass", 16, 16, nil, nil)
	var clear vk.ClearColorValue
	if err := pass.UseColorAttachment("color", vk.AttachmentLoadOpClear, &clear); err != nil {
		t.Fatalf("UseColorAttachment: %v", err)
	}

	begin, dep, barriers, serr := g.preparePass(pass.obj, nil)
	if serr != nil {
		t.Fatalf("preparePass: %v", serr)
	}
	if len(begin.ColorAttachments) != 1 || begin.ColorAttachments[0] == vk.NullHandle {
		t.Fatalf("preparePass did not resolve the color attachment to a physical image")
	}
	if len(barriers) != 0 {
		t.Fatalf("preparePass emitted %d barriers for a pass with no sampled images, want 0", len(barriers))
	}
	if dep == nil {
		t.Fatalf("preparePass returned a nil dependency")
	}
	if dev.created != 1 {
		t.Fatalf("preparePass caused %d image creations, want 1", dev.created)
	}
}

// A pass sampling an image a previous pass wrote must receive a transition
// barrier into SHADER_READ_ONLY_OPTIMAL.
func TestPreparePassEmitsBarrierForSampledImage(t *testing.T) {
	dev := &fakeDevice{}
	g, err := CreateGraph(GraphInfo{Device: dev, List: &fakeCommandList{}})
	if err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	c, _ := g.AddComponent("preparePassSampled")
	c.AddOutputImage("mid", vk.FormatR8g8b8a8Unorm, 16, 16, nil)

	producer, _ := c.AddGraphicsPass("producer", 16, 16, nil, nil)
	var clear vk.ClearColorValue
	producer.UseColorAttachment("mid", vk.AttachmentLoadOpClear, &clear)
	if _, _, _, serr := g.preparePass(producer.obj, nil); serr != nil {
		t.Fatalf("preparePass(producer): %v", serr)
	}

	consumer, _ := c.AddGraphicsPass("consumer", 16, 16, nil, nil)
	if err := consumer.UseImageSampled("mid"); err != nil {
		t.Fatalf("UseImageSampled: %v", err)
	}
	_, _, barriers, serr := g.preparePass(consumer.obj, nil)
	if serr != nil {
		t.Fatalf("preparePass(consumer): %v", serr)
	}
	if len(barriers) != 1 {
		t.Fatalf("preparePass(consumer) emitted %d barriers, want 1", len(barriers))
	}
	if barriers[0].barrier.NewLayout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Fatalf("sampled-image barrier new layout = %v, want SHADER_READ_ONLY_OPTIMAL", barriers[0].barrier.NewLayout)
	}
}

func TestBlitToSwapchainRequiresProducedSource(t *testing.T) {
	dev := &fakeDevice{}
	list := &fakeCommandList{}
	g, err := CreateGraph(GraphInfo{Device: dev, List: list, SwapchainImage: vk.Image(1)})
	if err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	c, _ := g.AddComponent("blitComp")
	c.AddOutputImage("color", vk.FormatR8g8b8a8Unorm, 4, 4, nil)
	if err := g.ConnectSwapchainImage("blitComp", "color"); err != nil {
		t.Fatalf("ConnectSwapchainImage: %v", err)
	}

	if err := g.blitToSwapchain(); err == nil {
		t.Fatalf("blitToSwapchain succeeded with a never-produced source image")
	}
}

func TestBlitToSwapchainRecordsFullSequence(t *testing.T) {
	dev := &fakeDevice{}
	list := &fakeCommandList{}
	g, err := CreateGraph(GraphInfo{Device: dev, List: list, SwapchainImage: vk.Image(1), SwapchainWidth: 8, SwapchainHeight: 8})
	if err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	c, _ := g.AddComponent("blitFull")
	c.AddOutputImage("color", vk.FormatR8g8b8a8Unorm, 8, 8, nil)
	pass, _ := c.AddGraphicsPass("pass", 8, 8, nil, nil)
	var clear vk.ClearColorValue
	pass.UseColorAttachment("color", vk.AttachmentLoadOpClear, &clear)
	if _, _, _, serr := g.preparePass(pass.obj, nil); serr != nil {
		t.Fatalf("preparePass: %v", serr)
	}
	if err := g.ConnectSwapchainImage("blitFull", "color"); err != nil {
		t.Fatalf("ConnectSwapchainImage: %v", err)
	}

	if err := g.blitToSwapchain(); err != nil {
		t.Fatalf("blitToSwapchain: %v", err)
	}
	if len(list.barriers) != 3 {
		t.Fatalf("blitToSwapchain recorded %d barriers, want 3", len(list.barriers))
	}
	if len(list.blitSrc) != 1 || list.blitDst[0] != vk.Image(1) {
		t.Fatalf("blitToSwapchain did not blit into the swapchain image")
	}
}
