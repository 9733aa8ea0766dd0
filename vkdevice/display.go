package vkdevice

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Display binds a GLFW window to the Vulkan surface/format/depth-format it
// presents through.
type Display struct {
	window       *glfw.Window
	extent       vk.Extent2D
	surfaceFormat vk.SurfaceFormat
	depthFormat  vk.Format
	surface      vk.Surface
}

// NewDisplay wraps window; call CreateSurface once a vk.Instance exists.
func NewDisplay(window *glfw.Window) *Display {
	return &Display{window: window}
}

// CreateSurface creates the vk.Surface this display presents through.
func (d *Display) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ret, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("create window surface: %w", err)
	}
	d.surface = vk.SurfaceFromPointer(ret)
	return d.surface, nil
}

func (d *Display) Size() (int, int) {
	return d.window.GetSize()
}
