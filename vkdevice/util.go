package vkdevice

import (
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// PlatformOS is runtime.GOOS, named to match the teacher's own
// Darwin-portability checks around instance creation.
var PlatformOS = runtime.GOOS

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// checkExisting returns the subset of required present in actual, plus a
// count of how many were missing.
func checkExisting(actual, required []string) (existing []string, missing int) {
	for _, req := range required {
		found := false
		for _, act := range actual {
			if req == act {
				found = true
				break
			}
		}
		if found {
			existing = append(existing, req)
		} else {
			missing++
		}
	}
	return existing, missing
}

// sliceUint32 reinterprets a byte slice as the uint32 slice SPIR-V module
// creation expects.
func sliceUint32(data []byte) []uint32 {
	const u32 = 4
	out := make([]uint32, len(data)/u32)
	for i := range out {
		out[i] = uint32(data[i*u32]) | uint32(data[i*u32+1])<<8 | uint32(data[i*u32+2])<<16 | uint32(data[i*u32+3])<<24
	}
	return out
}

// InstanceExtensions gets the instance extensions available on the
// platform.
func InstanceExtensions() (names []string, err error) {
	defer checkErr(&err)
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	orPanic(newError(ret))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	orPanic(newError(ret))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// DeviceExtensions gets the extensions available on gpu.
func DeviceExtensions(gpu vk.PhysicalDevice) (names []string, err error) {
	defer checkErr(&err)
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	orPanic(newError(ret))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	orPanic(newError(ret))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// ValidationLayers gets the validation layers available on the platform.
func ValidationLayers() (names []string, err error) {
	defer checkErr(&err)
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	orPanic(newError(ret))
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	orPanic(newError(ret))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}
