package vkdevice

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/andewx/rgraph"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceConfig describes how to bring up a Device: which extensions and
// validation layers to request, and which window (if any) needs a
// presentable surface. It replaces the teacher's Application-interface
// decorator pattern with a single plain value, since this package talks
// to exactly one render graph Device rather than an open set of
// application kinds.
type DeviceConfig struct {
	AppName            string
	Window             *glfw.Window
	InstanceExtensions []string
	DeviceExtensions   []string
	ValidationLayers   []string
	Debug              bool
}

// Device is the concrete Vulkan backend the rgraph package compiles
// against: it owns the physical/logical device, the graphics (and
// optional separate present) queue, a command pool, and every image this
// process has allocated on behalf of the render graph's physical resource
// cache. Grounded on the teacher's platform.go NewPlatform bring-up
// (instance/device/queue-family selection and the optional debug-report
// callback), with CoreQueue's family search substituted for the teacher's
// inline loop.
type Device struct {
	instance vk.Instance
	gpu      vk.PhysicalDevice
	handle   vk.Device

	gpuProperties vk.PhysicalDeviceProperties
	memProperties vk.PhysicalDeviceMemoryProperties

	queues             *CoreQueue
	graphicsQueue      vk.Queue
	graphicsQueueIndex uint32
	presentQueue       vk.Queue
	presentQueueIndex  uint32
	separatePresent    bool

	pool *CommandPool

	surface vk.Surface
	display *Display

	debugCallback vk.DebugReportCallback

	images map[vk.Image]vk.DeviceMemory
}

var _ rgraph.Device = (*Device)(nil)

// NewDevice brings up a Vulkan instance, optional debug callback, physical
// device, logical device and graphics (+ present) queue per cfg.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	d := &Device{images: make(map[vk.Image]vk.DeviceMemory)}

	actualInstanceExt, err := InstanceExtensions()
	if err != nil {
		return nil, err
	}
	instanceExt, missing := checkExisting(actualInstanceExt, cfg.InstanceExtensions)
	instanceExt = safeStrings(instanceExt)
	if missing > 0 {
		Logger.Printf("%d requested instance extensions unavailable", missing)
	}

	var validationLayers []string
	if len(cfg.ValidationLayers) > 0 {
		actual, err := ValidationLayers()
		if err != nil {
			return nil, err
		}
		validationLayers, missing = checkExisting(actual, cfg.ValidationLayers)
		validationLayers = safeStrings(validationLayers)
		if missing > 0 {
			Logger.Printf("%d requested validation layers unavailable", missing)
		}
	}

	var flags vk.InstanceCreateFlags
	if PlatformOS == "darwin" {
		flags = vk.InstanceCreateFlags(vk.InstanceCreateEnumeratePortabilityBit)
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         vk.MakeVersion(1, 1, 0),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PApplicationName:   safeString(cfg.AppName),
			PEngineName:        safeString("rgraph"),
		},
		EnabledExtensionCount:   uint32(len(instanceExt)),
		PpEnabledExtensionNames: instanceExt,
		EnabledLayerCount:       uint32(len(validationLayers)),
		PpEnabledLayerNames:     validationLayers,
		Flags:                   flags,
	}, nil, &instance)
	if ret != vk.Success {
		return nil, fmt.Errorf("create instance: %w", newError(ret))
	}
	d.instance = instance
	vk.InitInstance(instance)

	if cfg.Debug {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}, nil, &d.debugCallback)
		if ret != vk.Success {
			return nil, fmt.Errorf("create debug report callback: %w", newError(ret))
		}
	}

	var gpuCount uint32
	vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)
	if gpuCount == 0 {
		return nil, errors.New("vkdevice: no GPU devices found")
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus)
	d.gpu = gpus[0] // multi-GPU selection not supported yet

	vk.GetPhysicalDeviceProperties(d.gpu, &d.gpuProperties)
	d.gpuProperties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.gpu, &d.memProperties)
	d.memProperties.Deref()

	if cfg.Window != nil {
		d.display = NewDisplay(cfg.Window)
		surface, err := d.display.CreateSurface(instance)
		if err != nil {
			return nil, err
		}
		d.surface = surface
	}

	d.queues = NewCoreQueue(d.gpu, cfg.AppName)
	if d.queues == nil {
		return nil, errors.New("vkdevice: no queue families reported for physical device")
	}

	found, graphicsIndex := d.queues.FindSuitableQueue(uint32(vk.QueueGraphicsBit))
	if !found {
		return nil, errors.New("vkdevice: no graphics-capable queue family")
	}
	d.graphicsQueueIndex = uint32(graphicsIndex)
	d.presentQueueIndex = d.graphicsQueueIndex

	if d.surface != vk.NullSurface {
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(d.gpu, d.graphicsQueueIndex, d.surface, &supportsPresent)
		if !supportsPresent.B() {
			for i := range d.queues.properties {
				vk.GetPhysicalDeviceSurfaceSupport(d.gpu, uint32(i), d.surface, &supportsPresent)
				if supportsPresent.B() {
					d.presentQueueIndex = uint32(i)
					d.separatePresent = d.presentQueueIndex != d.graphicsQueueIndex
					break
				}
			}
		}
	}

	actualDeviceExt, err := DeviceExtensions(d.gpu)
	if err != nil {
		return nil, err
	}
	deviceExt, missing := checkExisting(actualDeviceExt, cfg.DeviceExtensions)
	deviceExt = safeStrings(deviceExt)
	if missing > 0 {
		Logger.Printf("%d requested device extensions unavailable", missing)
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	if d.separatePresent {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.presentQueueIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	var handle vk.Device
	ret = vk.CreateDevice(d.gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExt)),
		PpEnabledExtensionNames: deviceExt,
		EnabledLayerCount:       uint32(len(validationLayers)),
		PpEnabledLayerNames:     validationLayers,
	}, nil, &handle)
	if ret != vk.Success {
		return nil, fmt.Errorf("create device: %w", newError(ret))
	}
	d.handle = handle

	vk.GetDeviceQueue(handle, d.graphicsQueueIndex, 0, &d.graphicsQueue)
	if d.separatePresent {
		vk.GetDeviceQueue(handle, d.presentQueueIndex, 0, &d.presentQueue)
	} else {
		d.presentQueue = d.graphicsQueue
	}

	pool, err := NewCommandPool(handle, d.graphicsQueueIndex)
	if err != nil {
		return nil, fmt.Errorf("create command pool: %w", err)
	}
	d.pool = pool

	return d, nil
}

// Handle returns the underlying vk.Device.
func (d *Device) Handle() vk.Device { return d.handle }

// PhysicalDevice returns the selected vk.PhysicalDevice.
func (d *Device) PhysicalDevice() vk.PhysicalDevice { return d.gpu }

// Instance returns the vk.Instance this device was created against.
func (d *Device) Instance() vk.Instance { return d.instance }

// Surface returns the presentable surface bound at NewDevice, or
// vk.NullSurface if none was requested.
func (d *Device) Surface() vk.Surface { return d.surface }

// PresentQueue returns the queue used to present swapchain images. It is
// the graphics queue unless the physical device required a separate
// present-capable family.
func (d *Device) PresentQueue() vk.Queue { return d.presentQueue }

// CommandPool returns the graphics command pool owned by this device.
func (d *Device) CommandPool() *CommandPool { return d.pool }

// MemoryProperties returns the selected physical device's memory
// properties, for callers building their own allocations (e.g.
// UniformBuffer.Allocate).
func (d *Device) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return d.memProperties }

// GraphicsQueue implements rgraph.Device.
func (d *Device) GraphicsQueue() vk.Queue { return d.graphicsQueue }

// WaitIdle implements rgraph.Device.
func (d *Device) WaitIdle() { vk.DeviceWaitIdle(d.handle) }

// CreateImage implements rgraph.Device: it allocates a 2D, single-sample,
// single-layer, optimally-tiled image matching info and binds
// device-local memory to it. Grounded on the teacher's
// CoreSwapchain.CreateFrameBuffer depth-image allocation sequence
// (vk.CreateImage -> vk.GetImageMemoryRequirements -> FindMemoryTypeIndex
// -> vk.AllocateMemory -> vk.BindImageMemory).
func (d *Device) CreateImage(info rgraph.ImageInfo) (vk.Image, error) {
	var img vk.Image
	ret := vk.CreateImage(d.handle, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        info.Format,
		Extent:        vk.Extent3D{Width: info.Width, Height: info.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if ret != vk.Success {
		return vk.NullHandle, fmt.Errorf("create image: %w", newError(ret))
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, img, &req)
	req.Deref()

	typeIndex, ok := findRequiredMemoryType(d.memProperties, vk.MemoryPropertyFlagBits(req.MemoryTypeBits), vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyImage(d.handle, img, nil)
		return vk.NullHandle, errors.New("vkdevice: no device-local memory type for image")
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(d.handle, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyImage(d.handle, img, nil)
		return vk.NullHandle, fmt.Errorf("allocate image memory: %w", newError(ret))
	}

	if ret := vk.BindImageMemory(d.handle, img, mem, 0); ret != vk.Success {
		vk.FreeMemory(d.handle, mem, nil)
		vk.DestroyImage(d.handle, img, nil)
		return vk.NullHandle, fmt.Errorf("bind image memory: %w", newError(ret))
	}

	d.images[img] = mem
	return img, nil
}

// DestroyImage implements rgraph.Device.
func (d *Device) DestroyImage(img vk.Image) {
	mem, ok := d.images[img]
	if !ok {
		return
	}
	vk.DestroyImage(d.handle, img, nil)
	vk.FreeMemory(d.handle, mem, nil)
	delete(d.images, img)
}

// Destroy tears down the command pool, every image still allocated, the
// surface, the device, the debug callback and the instance, in that order,
// waiting for the device to go idle first.
func (d *Device) Destroy() {
	if d.handle != nil {
		vk.DeviceWaitIdle(d.handle)
	}
	if d.pool != nil {
		d.pool.Destroy(d.handle)
	}
	for img, mem := range d.images {
		vk.DestroyImage(d.handle, img, nil)
		vk.FreeMemory(d.handle, mem, nil)
	}
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.instance, d.surface, nil)
	}
	if d.handle != nil {
		vk.DestroyDevice(d.handle, nil)
	}
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	Logger.Printf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	return vk.False
}
