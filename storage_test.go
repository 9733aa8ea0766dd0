package rgraph

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

const storageTestFormat = vk.FormatR8g8b8a8Unorm

func TestGetOrCreateImageAllocatesOnce(t *testing.T) {
	dev := &fakeDevice{}
	comp, img := Intern("storageOnce"), Intern("color")
	ensureStorageEntry(comp, img, 64, 64)

	state, err := getOrCreateImage(dev, comp, img, storageTestFormat, 64, 64, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{})
	if err != nil {
		t.Fatalf("getOrCreateImage: %v", err)
	}
	if dev.created != 1 {
		t.Fatalf("created = %d, want 1", dev.created)
	}
	if state.handle == vk.NullHandle {
		t.Fatalf("getOrCreateImage returned a null handle")
	}
}

// A request smaller than the cached size must not shrink or reallocate the
// image (spec §4.3, usage/size widen monotonically).
func TestGetOrCreateImageDoesNotShrink(t *testing.T) {
	dev := &fakeDevice{}
	comp, img := Intern("storageShrink"), Intern("color")
	ensureStorageEntry(comp, img, 0, 0)

	first, err := getOrCreateImage(dev, comp, img, storageTestFormat, 100, 100, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{})
	if err != nil {
		t.Fatalf("getOrCreateImage (first): %v", err)
	}
	second, err := getOrCreateImage(dev, comp, img, storageTestFormat, 50, 50, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{})
	if err != nil {
		t.Fatalf("getOrCreateImage (second): %v", err)
	}
	if dev.created != 1 {
		t.Fatalf("created = %d, want 1 (a smaller request must not reallocate)", dev.created)
	}
	if second.width != 100 || second.height != 100 {
		t.Fatalf("image shrank: width=%d height=%d, want 100x100", second.width, second.height)
	}
	if first.handle != second.handle {
		t.Fatalf("image handle changed on a smaller request: %v -> %v", first.handle, second.handle)
	}
}

// A request larger than the cached size must widen it and reallocate,
// destroying the old handle first.
func TestGetOrCreateImageWidensAndReallocates(t *testing.T) {
	dev := &fakeDevice{}
	comp, img := Intern("storageWiden"), Intern("color")
	ensureStorageEntry(comp, img, 0, 0)

	first, err := getOrCreateImage(dev, comp, img, storageTestFormat, 64, 64, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{})
	if err != nil {
		t.Fatalf("getOrCreateImage (first): %v", err)
	}
	second, err := getOrCreateImage(dev, comp, img, storageTestFormat, 128, 64, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{})
	if err != nil {
		t.Fatalf("getOrCreateImage (second): %v", err)
	}
	if dev.created != 2 || dev.destroyed != 1 || dev.waited != 1 {
		t.Fatalf("created=%d destroyed=%d waited=%d, want 2/1/1", dev.created, dev.destroyed, dev.waited)
	}
	if second.width != 128 || second.height != 64 {
		t.Fatalf("widened size = %dx%d, want 128x64", second.width, second.height)
	}
	if first.handle == second.handle {
		t.Fatalf("handle unchanged after a widening reallocation")
	}
}

// Widening the requested usage flags (without growing the size) must also
// trigger a reallocation, since the combined (usage, format, name) hash
// changed.
func TestGetOrCreateImageUsageWideningReallocates(t *testing.T) {
	dev := &fakeDevice{}
	comp, img := Intern("storageUsageWiden"), Intern("color")
	ensureStorageEntry(comp, img, 0, 0)

	if _, err := getOrCreateImage(dev, comp, img, storageTestFormat, 64, 64, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{}); err != nil {
		t.Fatalf("getOrCreateImage (first): %v", err)
	}
	if _, err := getOrCreateImage(dev, comp, img, storageTestFormat, 64, 64, nativeUsage(usageSampled), vk.SamplerCreateInfo{}); err != nil {
		t.Fatalf("getOrCreateImage (second): %v", err)
	}
	if dev.created != 2 {
		t.Fatalf("created = %d, want 2 (widening usage flags must reallocate)", dev.created)
	}
}

func TestInvalidateComponentStorageDropsOnlyThatComponent(t *testing.T) {
	dev := &fakeDevice{}
	keep, drop := Intern("storageKeep"), Intern("storageDrop")
	img := Intern("color")
	ensureStorageEntry(keep, img, 0, 0)
	ensureStorageEntry(drop, img, 0, 0)

	if _, err := getOrCreateImage(dev, keep, img, storageTestFormat, 4, 4, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{}); err != nil {
		t.Fatalf("getOrCreateImage(keep): %v", err)
	}
	if _, err := getOrCreateImage(dev, drop, img, storageTestFormat, 4, 4, nativeUsage(usageColorAttachment), vk.SamplerCreateInfo{}); err != nil {
		t.Fatalf("getOrCreateImage(drop): %v", err)
	}

	invalidateComponentStorage(dev, drop)

	if storageFor(drop, img) != nil {
		t.Fatalf("invalidateComponentStorage left an entry behind for the invalidated component")
	}
	if storageFor(keep, img) == nil {
		t.Fatalf("invalidateComponentStorage dropped an entry belonging to a different component")
	}
	if dev.destroyed != 1 || dev.waited != 1 {
		t.Fatalf("destroyed=%d waited=%d, want 1/1", dev.destroyed, dev.waited)
	}
}
