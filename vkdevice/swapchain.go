package vkdevice

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Swapchain owns the presentable images a Device blits its final output
// into. Grounded on the teacher's CoreSwapchain: surface-format and
// present-mode selection, image-count clamping against surface
// capabilities, and the per-image vk.ImageView creation loop. Unlike the
// teacher's version it does not also own a hardcoded depth image and
// framebuffer set -- those are now the render graph's job, built
// per-pass by CommandList against whatever attachments a pass declares.
type Swapchain struct {
	device  *Device
	display *Display

	handle vk.Swapchain
	format vk.SurfaceFormat
	extent vk.Extent2D

	images     []vk.Image
	imageViews []vk.ImageView
}

// NewSwapchain creates a swapchain for device's surface, sized to the
// surface's current extent, requesting desiredDepth images clamped to the
// surface's supported minimum and maximum image counts.
func NewSwapchain(device *Device, display *Display, desiredDepth int) (*Swapchain, error) {
	surface := device.Surface()
	if surface == vk.NullSurface {
		return nil, errors.New("vkdevice: device has no presentable surface")
	}

	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(device.PhysicalDevice(), surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(device.PhysicalDevice(), surface, &formatCount, nil)
	if formatCount == 0 {
		return nil, errors.New("vkdevice: no surface formats available")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(device.PhysicalDevice(), surface, &formatCount, formats)
	formats[0].Deref()
	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Unorm
	}

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		return nil, errors.New("vkdevice: surface reported invalid current extent")
	}

	depth := uint32(desiredDepth)
	if caps.MaxImageCount > 0 && depth > caps.MaxImageCount {
		depth = caps.MaxImageCount
	}
	if depth < caps.MinImageCount {
		depth = caps.MinImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, candidate := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	var handle vk.Swapchain
	res := vk.CreateSwapchain(device.Handle(), &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    depth,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
	}, nil, &handle)
	if res != vk.Success {
		return nil, fmt.Errorf("create swapchain: %w", newError(res))
	}

	sc := &Swapchain{device: device, display: display, handle: handle, format: format, extent: extent}

	var imageCount uint32
	vk.GetSwapchainImages(device.Handle(), handle, &imageCount, nil)
	sc.images = make([]vk.Image, imageCount)
	vk.GetSwapchainImages(device.Handle(), handle, &imageCount, sc.images)

	sc.imageViews = make([]vk.ImageView, imageCount)
	for i, img := range sc.images {
		res := vk.CreateImageView(device.Handle(), &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleR,
				G: vk.ComponentSwizzleG,
				B: vk.ComponentSwizzleB,
				A: vk.ComponentSwizzleA,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &sc.imageViews[i])
		if res != vk.Success {
			return nil, fmt.Errorf("create swapchain image view %d: %w", i, newError(res))
		}
	}

	return sc, nil
}

// Format returns the selected surface format.
func (s *Swapchain) Format() vk.SurfaceFormat { return s.format }

// Extent returns the swapchain's image extent.
func (s *Swapchain) Extent() vk.Extent2D { return s.extent }

// ImageCount returns how many images this swapchain holds.
func (s *Swapchain) ImageCount() int { return len(s.images) }

// Image returns the index'th swapchain image.
func (s *Swapchain) Image(index int) vk.Image { return s.images[index] }

// AcquireNextImage returns the index of the next presentable swapchain
// image; signal is signalled once that image is ready to be rendered to.
func (s *Swapchain) AcquireNextImage(signal vk.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(s.device.Handle(), s.handle, vk.MaxUint64, signal, vk.NullFence, &index)
	if res != vk.Success && res != vk.Suboptimal {
		return 0, fmt.Errorf("acquire next image: %w", newError(res))
	}
	return index, nil
}

// Present submits index for presentation on queue, waiting on wait.
func (s *Swapchain) Present(queue vk.Queue, index uint32, wait vk.Semaphore) error {
	res := vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{index},
	})
	if res != vk.Success && res != vk.Suboptimal {
		return fmt.Errorf("queue present: %w", newError(res))
	}
	return nil
}

// Destroy releases every image view and the swapchain itself.
func (s *Swapchain) Destroy() {
	for _, v := range s.imageViews {
		vk.DestroyImageView(s.device.Handle(), v, nil)
	}
	vk.DestroySwapchain(s.device.Handle(), s.handle, nil)
}
