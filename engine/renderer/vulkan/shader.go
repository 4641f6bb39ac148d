package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lagoon/engine/core"
)

/**
 * @brief ShaderStage is one compiled SPIR-V module plus the pipeline stage
 * info that references it.
 */
type ShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage reads a compiled SPIR-V file from disk and wraps it in a
// shader module for the given stage.
func NewShaderStage(context *Context, path string, stageFlag vk.ShaderStageFlagBits) (*ShaderStage, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		core.LogError("unable to read shader module %s: %s", path, err)
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("shader module %s is not valid SPIR-V", path)
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	stage := &ShaderStage{}
	if res := vk.CreateShaderModule(
		context.Device.LogicalDevice,
		&createInfo,
		context.Allocator,
		&stage.Handle); res != vk.Success {
		err := fmt.Errorf("vkCreateShaderModule for %s failed with %s", path, ResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	stage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageFlag,
		Module: stage.Handle,
		PName:  SafeString("main"),
	}

	return stage, nil
}

func (s *ShaderStage) Destroy(context *Context) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}

// sliceUint32 reinterprets SPIR-V bytes as the word slice the create info
// expects. The input length must be a multiple of 4.
func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
