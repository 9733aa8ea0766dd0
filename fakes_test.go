package rgraph

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// fakeDevice is a headless stand-in for a real vkdevice.Device: it hands out
// distinct, non-zero vk.Image values and counts the calls storage.go makes,
// so tests can assert on allocation/reallocation behavior without a GPU.
type fakeDevice struct {
	mu        sync.Mutex
	next      uint64
	created   int
	destroyed int
	waited    int
}

func (d *fakeDevice) CreateImage(info ImageInfo) (vk.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.created++
	return vk.Image(d.next), nil
}

func (d *fakeDevice) DestroyImage(img vk.Image) {
	d.mu.Lock()
	d.destroyed++
	d.mu.Unlock()
}

func (d *fakeDevice) WaitIdle() {
	d.mu.Lock()
	d.waited++
	d.mu.Unlock()
}

func (d *fakeDevice) GraphicsQueue() vk.Queue {
	var q vk.Queue
	return q
}

// fakeCommandList records every CmdXxx call made against it, so tests can
// assert on the recorded pass/barrier/blit sequence without an actual
// command buffer.
type fakeCommandList struct {
	begun, ended int
	passes       []PassBeginInfo
	barriers     []vk.ImageMemoryBarrier
	blitSrc      []vk.Image
	blitDst      []vk.Image
}

func (l *fakeCommandList) Begin() error { l.begun++; return nil }
func (l *fakeCommandList) End() error   { l.ended++; return nil }

func (l *fakeCommandList) CmdBeginPass(info PassBeginInfo) { l.passes = append(l.passes, info) }
func (l *fakeCommandList) CmdEndPass()                     {}

func (l *fakeCommandList) CmdImageMemoryBarrier(srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier) {
	l.barriers = append(l.barriers, barrier)
}

func (l *fakeCommandList) CmdBlitImage(src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, region vk.ImageBlit, filter vk.Filter) {
	l.blitSrc = append(l.blitSrc, src)
	l.blitDst = append(l.blitDst, dst)
}

func (l *fakeCommandList) Handle() vk.CommandBuffer {
	var cb vk.CommandBuffer
	return cb
}
