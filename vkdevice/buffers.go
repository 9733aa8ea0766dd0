package vkdevice

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// UniformBuffer is a small per-frame uniform buffer with its own
// descriptor set layout, one vk.Buffer per frame in flight. Used by the
// demo driver to upload its projection matrix into a pass callback.
type UniformBuffer struct {
	buffer         []vk.Buffer
	deviceMemory   []vk.DeviceMemory
	location       uint32
	descriptorType vk.DescriptorType
	stageFlags     vk.ShaderStageFlags
	layout         vk.DescriptorSetLayout
	name           string
}

// NewUniformBuffer creates a uniform buffer and its descriptor set layout,
// with one vk.Buffer per frame in flight to avoid racing the GPU while it
// still reads last frame's data.
func NewUniformBuffer(handle vk.Device, name string, bindLoc uint32, stageFlags vk.ShaderStageFlags, bytesSize int, framesInFlight int) (*UniformBuffer, error) {
	ub := &UniformBuffer{
		location:       bindLoc,
		descriptorType: vk.DescriptorTypeUniformBuffer,
		stageFlags:     stageFlags,
		name:           name,
		buffer:         make([]vk.Buffer, framesInFlight),
		deviceMemory:   make([]vk.DeviceMemory, framesInFlight),
	}

	binding := vk.DescriptorSetLayoutBinding{
		Binding:         ub.location,
		DescriptorCount: 1,
		DescriptorType:  ub.descriptorType,
		StageFlags:      ub.stageFlags,
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}

	if ret := vk.CreateDescriptorSetLayout(handle, &layoutInfo, nil, &ub.layout); ret != vk.Success {
		return nil, fmt.Errorf("create uniform buffer descriptor set layout: %w", newError(ret))
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		SharingMode: vk.SharingModeExclusive,
		Size:        vk.DeviceSize(bytesSize),
	}

	for i := 0; i < framesInFlight; i++ {
		if ret := vk.CreateBuffer(handle, &bufferInfo, nil, &ub.buffer[i]); ret != vk.Success {
			return nil, fmt.Errorf("create uniform buffer %d: %w", i, newError(ret))
		}
	}

	return ub, nil
}

// Allocate binds host-visible, host-coherent memory to every frame's
// buffer so MapMemory can be used without an explicit flush.
func (ub *UniformBuffer) Allocate(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties) error {
	for i, buf := range ub.buffer {
		var req vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, buf, &req)
		req.Deref()

		typeIndex, ok := findRequiredMemoryType(memProps, vk.MemoryPropertyFlagBits(req.MemoryTypeBits),
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if !ok {
			return fmt.Errorf("no host-visible/coherent memory type for uniform buffer %d", i)
		}

		ret := vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  req.Size,
			MemoryTypeIndex: typeIndex,
		}, nil, &ub.deviceMemory[i])
		if ret != vk.Success {
			return fmt.Errorf("allocate uniform buffer memory %d: %w", i, newError(ret))
		}
		if ret := vk.BindBufferMemory(device, buf, ub.deviceMemory[i], 0); ret != vk.Success {
			return fmt.Errorf("bind uniform buffer memory %d: %w", i, newError(ret))
		}
	}
	return nil
}

// DeviceMemoryAt returns the index'th frame's backing device memory, for
// callers that need to unmap or flush it directly.
func (ub *UniformBuffer) DeviceMemoryAt(index int) vk.DeviceMemory { return ub.deviceMemory[index] }

// MapMemory maps the backing memory for the index'th frame's buffer.
func (ub *UniformBuffer) MapMemory(device vk.Device, data *unsafe.Pointer, index int, size vk.DeviceSize) error {
	ret := vk.MapMemory(device, ub.deviceMemory[index], 0, size, 0, data)
	if ret != vk.Success {
		return newError(ret)
	}
	return nil
}

// Destroy releases every per-frame buffer and device memory allocation
// plus the descriptor set layout.
func (ub *UniformBuffer) Destroy(device vk.Device) {
	for i := range ub.buffer {
		if ub.buffer[i] != vk.NullBuffer {
			vk.DestroyBuffer(device, ub.buffer[i], nil)
		}
		if ub.deviceMemory[i] != vk.NullDeviceMemory {
			vk.FreeMemory(device, ub.deviceMemory[i], nil)
		}
	}
	if ub.layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, ub.layout, nil)
	}
}
