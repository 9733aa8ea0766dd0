package vkdevice

import (
	"fmt"
	"os"

	vk "github.com/vulkan-go/vulkan"
)

// ShaderProgram is a linked vertex+fragment module pair, created once per
// pipeline and shared by every frame's PipelineBuilder invocation.
// Grounded on the teacher's ShaderProgram/CoreShader, collapsed from a
// name-keyed registry (the teacher's CreateProgram/shader_programs map)
// to a single value the demo driver owns directly -- this package never
// needed more than one program at a time.
type ShaderProgram struct {
	Vertex   vk.ShaderModule
	Fragment vk.ShaderModule
}

// LoadShaderProgram reads SPIR-V bytecode from vertexPath and fragPath and
// creates their shader modules.
func LoadShaderProgram(device vk.Device, vertexPath, fragPath string) (*ShaderProgram, error) {
	vert, err := loadShaderModule(device, vertexPath)
	if err != nil {
		return nil, fmt.Errorf("load vertex shader %q: %w", vertexPath, err)
	}
	frag, err := loadShaderModule(device, fragPath)
	if err != nil {
		return nil, fmt.Errorf("load fragment shader %q: %w", fragPath, err)
	}
	return &ShaderProgram{Vertex: vert, Fragment: frag}, nil
}

func loadShaderModule(device vk.Device, path string) (vk.ShaderModule, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return vk.NullShaderModule, err
	}

	var module vk.ShaderModule
	res := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(buffer)),
		PCode:    sliceUint32(buffer),
	}, nil, &module)
	if res != vk.Success {
		return vk.NullShaderModule, newError(res)
	}
	return module, nil
}

// Destroy releases both shader modules.
func (p *ShaderProgram) Destroy(device vk.Device) {
	if p.Vertex != vk.NullShaderModule {
		vk.DestroyShaderModule(device, p.Vertex, nil)
	}
	if p.Fragment != vk.NullShaderModule {
		vk.DestroyShaderModule(device, p.Fragment, nil)
	}
}
