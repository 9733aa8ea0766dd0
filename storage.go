package rgraph

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// physicalImage is one entry in the process-global physical resource cache:
// the live Vulkan image backing a (component, image-name) pair, plus enough
// state to detect when a new frame's request has outgrown it (spec §4.3).
type physicalImage struct {
	handle     vk.Image
	lastLayout vk.ImageLayout
	usage      vk.ImageUsageFlags
	format     vk.Format
	width      uint32
	height     uint32
	hash       uint32
}

// storageKey identifies a cache slot. Component and image names are both
// interned Names, so the key packs the two uint32s into one uint64
// (component in the high 32 bits, image in the low 32 bits) rather than
// using a struct map key.
type storageKey uint64

func makeStorageKey(component, image Name) storageKey {
	return storageKey(component)<<32 | storageKey(image)
}

var (
	storageMu sync.Mutex
	storages  = map[storageKey]*physicalImage{}
)

func imageHash(usage vk.ImageUsageFlags, format vk.Format, name Name) uint32 {
	h := Combine(uint32(offset32Seed), uint32(usage))
	h = Combine(h, uint32(format))
	h = Combine(h, uint32(name))
	return h
}

const offset32Seed = 2166136261

// ensureStorageEntry creates a zero-valued cache slot the first time a
// PRIVATE/OUTPUT/IO image is declared in a component, if one doesn't
// already exist from a previous frame. It never allocates a GPU image —
// that happens lazily in getOrCreateImage, once usage flags from this
// frame's passes are known.
func ensureStorageEntry(component, image Name, w, h uint32) {
	storageMu.Lock()
	defer storageMu.Unlock()
	key := makeStorageKey(component, image)
	if _, ok := storages[key]; ok {
		return
	}
	storages[key] = &physicalImage{width: w, height: h}
}

// storageFor returns the cache entry for (component, image), or nil if
// none exists (e.g. the image was never declared as a physical node).
func storageFor(component, image Name) *physicalImage {
	storageMu.Lock()
	defer storageMu.Unlock()
	return storages[makeStorageKey(component, image)]
}

// getOrCreateImage resolves the physical image backing (component, image),
// widening its usage flags and dimensions to cover this frame's request and
// allocating or reallocating the backing vk.Image as needed (spec §4.3).
//
// Usage and size only ever grow monotonically across frames: a pass asking
// for a smaller image than is already cached does not shrink it, since a
// later pass in the same or a future frame may still need the larger size.
// A reallocation happens when no image exists yet, when the combined
// (usage, format, name) hash changes — a new format, or a usage bit the
// cached image does not already have — or when the widened size is larger
// than the cached one. A request already covered by the cached usage and
// size reuses the existing image.
func getOrCreateImage(device Device, component, image Name, format vk.Format, w, h uint32, requested vk.ImageUsageFlags, sampler vk.SamplerCreateInfo) (*physicalImage, error) {
	storageMu.Lock()
	entry, ok := storages[makeStorageKey(component, image)]
	if !ok {
		entry = &physicalImage{}
		storages[makeStorageKey(component, image)] = entry
	}
	storageMu.Unlock()

	widenedUsage := entry.usage | requested
	widenedW, widenedH := entry.width, entry.height
	if w > widenedW {
		widenedW = w
	}
	if h > widenedH {
		widenedH = h
	}

	newHash := imageHash(widenedUsage, format, image)

	needsRealloc := entry.handle == vk.NullHandle || newHash != entry.hash || widenedW != entry.width || widenedH != entry.height

	if !needsRealloc {
		return entry, nil
	}

	if entry.handle != vk.NullHandle {
		device.WaitIdle()
		device.DestroyImage(entry.handle)
	}

	img, err := device.CreateImage(ImageInfo{
		Format:  format,
		Usage:   widenedUsage,
		Width:   widenedW,
		Height:  widenedH,
		Sampler: sampler,
	})
	if err != nil {
		return nil, newError(ErrInvalidDevice, "create image for %d/%d: %v", component, image, err)
	}

	entry.handle = img
	entry.usage = widenedUsage
	entry.format = format
	entry.width = widenedW
	entry.height = widenedH
	entry.hash = newHash
	entry.lastLayout = vk.ImageLayoutUndefined

	return entry, nil
}

// invalidateComponentStorage drops every cache entry owned by component.
// Called from Graph.Destroy so a destroyed graph doesn't leak entries that
// will never be widened again.
func invalidateComponentStorage(device Device, component Name) {
	storageMu.Lock()
	defer storageMu.Unlock()
	for key, entry := range storages {
		if key>>32 != storageKey(component) {
			continue
		}
		if entry.handle != vk.NullHandle {
			device.WaitIdle()
			device.DestroyImage(entry.handle)
		}
		delete(storages, key)
	}
}
