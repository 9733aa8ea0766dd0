package vkdevice

import vk "github.com/vulkan-go/vulkan"

// CommandPool owns a single vk.CommandPool, created with
// CommandPoolCreateResetCommandBufferBit so its buffers can be reset
// individually between frames.
type CommandPool struct {
	pool vk.CommandPool
}

func NewCommandPool(device vk.Device, familyIndex uint32) (*CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if ret != vk.Success {
		return nil, newError(ret)
	}
	return &CommandPool{pool: pool}, nil
}

func (c *CommandPool) Handle() vk.CommandPool { return c.pool }

func (c *CommandPool) Destroy(device vk.Device) {
	vk.DestroyCommandPool(device, c.pool, nil)
}
