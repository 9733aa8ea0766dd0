package vkdevice

import vk "github.com/vulkan-go/vulkan"

// findRequiredMemoryType searches props for a memory type whose bit is set
// in deviceRequirements and whose property flags fully satisfy
// hostRequirements.
func findRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties,
	deviceRequirements, hostRequirements vk.MemoryPropertyFlagBits) (uint32, bool) {

	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if deviceRequirements&(vk.MemoryPropertyFlagBits(1)<<i) != 0 {
			props.MemoryTypes[i].Deref()
			flags := props.MemoryTypes[i].PropertyFlags
			if flags&vk.MemoryPropertyFlags(hostRequirements) == vk.MemoryPropertyFlags(hostRequirements) {
				return i, true
			}
		}
	}
	return 0, false
}
