package vulkan

import (
	"fmt"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/frame"
	lmath "github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/platform"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
	"github.com/spaghettifunk/lagoon/engine/scene"
)

// pushConstants travels with every draw: the indices that select this draw's
// rows in the per-frame constant arrays.
type pushConstants struct {
	ObjectIndex   uint32
	MaterialIndex uint32
	TextureIndex  uint32
	_             uint32
}

// frameSlot carries the GPU-side resources owned by one frame ring slot.
type frameSlot struct {
	commandBuffer *CommandBuffer
	fence         vk.Fence

	objectUB   *Buffer
	materialUB *Buffer
	passUB     *Buffer

	descriptorSet vk.DescriptorSet
}

type VulkanRenderer struct {
	platform *platform.Platform
	context  *Context
	fence    *SubmissionFence

	ringSize int
	slots    []frameSlot

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	buffers          map[metadata.BufferHandle]*Buffer
	nextBufferHandle metadata.BufferHandle

	textureSampler vk.Sampler
	textures       []*Image

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool

	pipelines     [scene.LayerCount]*Pipeline
	boundPipeline *Pipeline

	// Slot index of the frame currently being recorded.
	currentSlot int

	shaderDir string
	debug     bool
}

func New(p *platform.Platform, shaderDir string) *VulkanRenderer {
	return &VulkanRenderer{
		platform:         p,
		context:          &Context{},
		buffers:          make(map[metadata.BufferHandle]*Buffer),
		nextBufferHandle: metadata.InvalidBufferHandle + 1,
		shaderDir:        shaderDir,
		debug:            true,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, width, height uint32, ringSize int) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	// TODO: custom allocator.
	vr.context.Allocator = nil
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	vr.ringSize = ringSize

	if err := vr.createInstance(appName); err != nil {
		return err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed.")
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	vr.context.Device = &Device{}
	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(
		vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.2, 1.0,
		1.0,
		0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	vr.context.Swapchain.Framebuffers = make([]*Framebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(vr.context.Swapchain, vr.context.MainRenderpass); err != nil {
		return err
	}

	vr.fence = NewSubmissionFence(vr.context.Device.LogicalDevice)

	if err := vr.createFrameSlots(); err != nil {
		return err
	}
	if err := vr.createDescriptors(); err != nil {
		return err
	}
	if err := vr.createSampler(); err != nil {
		return err
	}
	if err := vr.createPipelines(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   SafeString(appName),
		PEngineName:        SafeString("Lagoon Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for _, name := range requiredExtensions {
			core.LogInfo(name)
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = SafeStrings(requiredExtensions)

	requiredValidationLayerNames := []string{}
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", ResultString(res))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", ResultString(res))
		}

		for _, required := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				zero := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if required == vk.ToString(availableLayers[j].LayerName[:zero+1]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", required)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = SafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create the Vulkan instance with error `%s`", ResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	return nil
}

func (vr *VulkanRenderer) createFrameSlots() error {
	vr.slots = make([]frameSlot, vr.ringSize)
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, vr.ringSize)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, vr.ringSize)
	vr.context.GraphicsCommandBuffers = make([]*CommandBuffer, vr.ringSize)

	objectSize := vk.DeviceSize(uint32(unsafe.Sizeof(metadata.ObjectConstants{})) * MAX_OBJECT_COUNT)
	materialSize := vk.DeviceSize(uint32(unsafe.Sizeof(metadata.MaterialConstants{})) * MAX_MATERIAL_COUNT)
	passSize := vk.DeviceSize(unsafe.Sizeof(metadata.PassConstants{}))

	for i := 0; i < vr.ringSize; i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore on image available")
			core.LogError(err.Error())
			return err
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore on queue complete")
			core.LogError(err.Error())
			return err
		}

		// Created unsignaled: the frame ring skips the wait for slots that
		// were never submitted.
		fenceCreateInfo := vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
		}
		if res := vk.CreateFence(vr.context.Device.LogicalDevice, &fenceCreateInfo, vr.context.Allocator, &vr.slots[i].fence); res != vk.Success {
			err := fmt.Errorf("failed to create frame slot fence")
			core.LogError(err.Error())
			return err
		}

		commandBuffer, err := NewCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.slots[i].commandBuffer = commandBuffer
		vr.context.GraphicsCommandBuffers[i] = commandBuffer

		hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

		objectUB, err := BufferCreate(vr.context, objectSize, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), hostVisible, true)
		if err != nil {
			return err
		}
		vr.slots[i].objectUB = objectUB

		materialUB, err := BufferCreate(vr.context, materialSize, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), hostVisible, true)
		if err != nil {
			return err
		}
		vr.slots[i].materialUB = materialUB

		passUB, err := BufferCreate(vr.context, passSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible, true)
		if err != nil {
			return err
		}
		vr.slots[i].passUB = passUB
	}

	core.LogDebug("Vulkan frame slots created.")
	return nil
}

func (vr *VulkanRenderer) createDescriptors() error {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         2,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         3,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: MAX_TEXTURE_COUNT,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutCreateInfo, vr.context.Allocator, &vr.descriptorSetLayout); res != vk.Success {
		err := fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", ResultString(res))
		core.LogError(err.Error())
		return err
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: uint32(vr.ringSize)},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: uint32(vr.ringSize) * 2},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: uint32(vr.ringSize) * MAX_TEXTURE_COUNT},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       uint32(vr.ringSize),
	}
	if res := vk.CreateDescriptorPool(vr.context.Device.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &vr.descriptorPool); res != vk.Success {
		err := fmt.Errorf("vkCreateDescriptorPool failed with %s", ResultString(res))
		core.LogError(err.Error())
		return err
	}

	for i := 0; i < vr.ringSize; i++ {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     vr.descriptorPool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{vr.descriptorSetLayout},
		}
		if res := vk.AllocateDescriptorSets(vr.context.Device.LogicalDevice, &allocateInfo, &vr.slots[i].descriptorSet); res != vk.Success {
			err := fmt.Errorf("vkAllocateDescriptorSets failed with %s", ResultString(res))
			core.LogError(err.Error())
			return err
		}

		writes := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          vr.slots[i].descriptorSet,
				DstBinding:      0,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: vr.slots[i].passUB.Handle,
					Offset: 0,
					Range:  vr.slots[i].passUB.Size,
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          vr.slots[i].descriptorSet,
				DstBinding:      1,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: vr.slots[i].objectUB.Handle,
					Offset: 0,
					Range:  vr.slots[i].objectUB.Size,
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          vr.slots[i].descriptorSet,
				DstBinding:      2,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: vr.slots[i].materialUB.Handle,
					Offset: 0,
					Range:  vr.slots[i].materialUB.Size,
				}},
			},
		}
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}

	core.LogDebug("Vulkan descriptor sets created.")
	return nil
}

func (vr *VulkanRenderer) createSampler() error {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           8,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	if res := vk.CreateSampler(vr.context.Device.LogicalDevice, &samplerCreateInfo, vr.context.Allocator, &vr.textureSampler); res != vk.Success {
		err := fmt.Errorf("vkCreateSampler failed with %s", ResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// layerPipelineConfig is the per-layer fixed function state. Alpha-tested
// geometry discards in the fragment shader, so it shares the scene shaders
// with a cull-free rasterizer. The highlight layer re-draws the picked
// triangle blended on top without disturbing depth.
type layerPipelineConfig struct {
	vertexShader   string
	fragmentShader string
	topology       vk.PrimitiveTopology
	cullMode       vk.CullModeFlagBits
	depthWrite     bool
	blendEnabled   bool
}

var layerConfigs = map[scene.RenderLayer]layerPipelineConfig{
	scene.LayerOpaque: {
		vertexShader:   "scene.vert.spv",
		fragmentShader: "scene.frag.spv",
		topology:       vk.PrimitiveTopologyTriangleList,
		cullMode:       vk.CullModeBackBit,
		depthWrite:     true,
	},
	scene.LayerAlphaTested: {
		vertexShader:   "scene.vert.spv",
		fragmentShader: "alphatest.frag.spv",
		topology:       vk.PrimitiveTopologyTriangleList,
		cullMode:       vk.CullModeNone,
		depthWrite:     true,
	},
	scene.LayerTreeSprites: {
		vertexShader:   "sprite.vert.spv",
		fragmentShader: "sprite.frag.spv",
		topology:       vk.PrimitiveTopologyPointList,
		cullMode:       vk.CullModeNone,
		depthWrite:     true,
	},
	scene.LayerTransparent: {
		vertexShader:   "scene.vert.spv",
		fragmentShader: "scene.frag.spv",
		topology:       vk.PrimitiveTopologyTriangleList,
		cullMode:       vk.CullModeBackBit,
		depthWrite:     true,
		blendEnabled:   true,
	},
	scene.LayerHighlight: {
		vertexShader:   "scene.vert.spv",
		fragmentShader: "scene.frag.spv",
		topology:       vk.PrimitiveTopologyTriangleList,
		cullMode:       vk.CullModeBackBit,
		depthWrite:     false,
		blendEnabled:   true,
	},
}

func (vr *VulkanRenderer) createPipelines() error {
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
	}
	stride := uint32(unsafe.Sizeof(lmath.Vertex3D{}))

	// Flipped viewport so clip space matches the left-handed projection.
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}

	for layer := scene.RenderLayer(0); layer < scene.LayerCount; layer++ {
		config, ok := layerConfigs[layer]
		if !ok {
			return fmt.Errorf("no pipeline configuration for layer %d", layer)
		}

		vertexStage, err := NewShaderStage(vr.context, filepath.Join(vr.shaderDir, config.vertexShader), vk.ShaderStageVertexBit)
		if err != nil {
			return err
		}
		fragmentStage, err := NewShaderStage(vr.context, filepath.Join(vr.shaderDir, config.fragmentShader), vk.ShaderStageFragmentBit)
		if err != nil {
			vertexStage.Destroy(vr.context)
			return err
		}

		pipeline, err := NewGraphicsPipeline(vr.context, &PipelineConfig{
			Renderpass:           vr.context.MainRenderpass,
			Stride:               stride,
			Attributes:           attributes,
			DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.descriptorSetLayout},
			Stages: []vk.PipelineShaderStageCreateInfo{
				vertexStage.ShaderStageCreateInfo,
				fragmentStage.ShaderStageCreateInfo,
			},
			Viewport:         viewport,
			Scissor:          scissor,
			Topology:         config.topology,
			CullMode:         config.cullMode,
			DepthWrite:       config.depthWrite,
			BlendEnabled:     config.blendEnabled,
			PushConstantSize: uint32(unsafe.Sizeof(pushConstants{})),
		})

		// Modules are owned by the pipeline once created.
		vertexStage.Destroy(vr.context)
		fragmentStage.Destroy(vr.context)

		if err != nil {
			return err
		}
		vr.pipelines[layer] = pipeline
	}

	return nil
}

func (vr *VulkanRenderer) Fence() frame.CompletionFence {
	return vr.fence
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
	return nil
}

func (vr *VulkanRenderer) CreateGeometryBuffers(name string, vertices []lmath.Vertex3D, indices []uint32) (metadata.BufferHandle, metadata.BufferHandle, error) {
	vertexBuffer, err := uploadDeviceLocal(vr.context, rawBytes(vertices), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return metadata.InvalidBufferHandle, metadata.InvalidBufferHandle, fmt.Errorf("vertex buffer for %s: %w", name, err)
	}
	indexBuffer, err := uploadDeviceLocal(vr.context, rawBytes(indices), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy(vr.context)
		return metadata.InvalidBufferHandle, metadata.InvalidBufferHandle, fmt.Errorf("index buffer for %s: %w", name, err)
	}

	vb := vr.registerBuffer(vertexBuffer)
	ib := vr.registerBuffer(indexBuffer)
	core.LogDebug("Geometry buffers for '%s' uploaded (%d vertices, %d indices).", name, len(vertices), len(indices))
	return vb, ib, nil
}

func (vr *VulkanRenderer) CreateDynamicVertexBuffer(name string, vertexCount int) (metadata.BufferHandle, error) {
	size := vk.DeviceSize(vertexCount) * vk.DeviceSize(unsafe.Sizeof(lmath.Vertex3D{}))
	buffer, err := BufferCreate(
		vr.context,
		size,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		true)
	if err != nil {
		return metadata.InvalidBufferHandle, fmt.Errorf("dynamic vertex buffer %s: %w", name, err)
	}
	handle := vr.registerBuffer(buffer)
	core.LogDebug("Dynamic vertex buffer '%s' created for %d vertices.", name, vertexCount)
	return handle, nil
}

func (vr *VulkanRenderer) registerBuffer(buffer *Buffer) metadata.BufferHandle {
	handle := vr.nextBufferHandle
	vr.nextBufferHandle++
	vr.buffers[handle] = buffer
	return handle
}

func (vr *VulkanRenderer) CreateTexture(name string, width, height uint32, pixels []byte) (metadata.TextureHandle, error) {
	if uint32(len(vr.textures)) >= MAX_TEXTURE_COUNT {
		return 0, fmt.Errorf("texture array is full, cannot load %s", name)
	}

	staging, err := BufferCreate(
		vr.context,
		vk.DeviceSize(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		true)
	if err != nil {
		return 0, err
	}
	defer staging.Destroy(vr.context)

	if err := staging.LoadData(pixels); err != nil {
		return 0, err
	}

	image, err := ImageCreate(
		vr.context,
		vk.ImageType2d,
		width, height,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return 0, err
	}

	commandBuffer, err := AllocateAndBeginSingleUse(vr.context, vr.context.Device.GraphicsCommandPool)
	if err != nil {
		return 0, err
	}
	if err := image.TransitionLayout(commandBuffer, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return 0, err
	}
	image.CopyFromBuffer(commandBuffer, staging.Handle)
	if err := image.TransitionLayout(commandBuffer, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return 0, err
	}
	if err := commandBuffer.EndSingleUse(vr.context, vr.context.Device.GraphicsCommandPool, vr.context.Device.GraphicsQueue); err != nil {
		return 0, err
	}

	handle := metadata.TextureHandle(len(vr.textures))
	vr.textures = append(vr.textures, image)
	vr.updateTextureDescriptors()

	core.LogDebug("Texture '%s' uploaded at slot %d (%dx%d).", name, handle, width, height)
	return handle, nil
}

// updateTextureDescriptors refreshes the sampler array binding on every
// slot's descriptor set. Empty slots alias the first texture so the array is
// always fully populated.
func (vr *VulkanRenderer) updateTextureDescriptors() {
	if len(vr.textures) == 0 {
		return
	}

	imageInfos := make([]vk.DescriptorImageInfo, MAX_TEXTURE_COUNT)
	for i := range imageInfos {
		image := vr.textures[0]
		if i < len(vr.textures) {
			image = vr.textures[i]
		}
		imageInfos[i] = vk.DescriptorImageInfo{
			Sampler:     vr.textureSampler,
			ImageView:   image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
	}

	for i := 0; i < vr.ringSize; i++ {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          vr.slots[i].descriptorSet,
			DstBinding:      3,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: MAX_TEXTURE_COUNT,
			PImageInfo:      imageInfos,
		}
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	}
}

func (vr *VulkanRenderer) BeginFrame(resource *frame.Resource) error {
	device := vr.context.Device

	if vr.context.RecreatingSwapchain {
		if res := vk.DeviceWaitIdle(device.LogicalDevice); !ResultIsSuccess(res) {
			err := fmt.Errorf("BeginFrame vkDeviceWaitIdle (1) failed: '%s'", ResultString(res))
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	// A resize invalidates the swapchain; rebuild it and skip this frame.
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if res := vk.DeviceWaitIdle(device.LogicalDevice); !ResultIsSuccess(res) {
			err := fmt.Errorf("BeginFrame vkDeviceWaitIdle (2) failed: '%s'", ResultString(res))
			core.LogError(err.Error())
			return err
		}
		if !vr.recreateSwapchain() {
			err := fmt.Errorf("failed to recreate the swapchain")
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	vr.currentSlot = resource.Index
	slot := &vr.slots[vr.currentSlot]

	imageIndex, ok := vr.context.Swapchain.SwapchainAcquireNextImageIndex(
		vr.context,
		^uint64(0),
		vr.context.ImageAvailableSemaphores[vr.currentSlot],
		vk.NullFence)
	if !ok {
		vr.context.FramebufferSizeGeneration++
		return core.ErrSwapchainBooting
	}
	vr.context.ImageIndex = imageIndex

	commandBuffer := slot.commandBuffer
	commandBuffer.Reset()
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{
			Width:  vr.context.FramebufferWidth,
			Height: vr.context.FramebufferHeight,
		},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[vr.context.ImageIndex].Handle)

	vr.boundPipeline = nil
	return nil
}

func (vr *VulkanRenderer) BindLayer(layer scene.RenderLayer) {
	pipeline := vr.pipelines[layer]
	if pipeline == nil {
		return
	}
	slot := &vr.slots[vr.currentSlot]
	commandBuffer := slot.commandBuffer

	pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(
		commandBuffer.Handle,
		vk.PipelineBindPointGraphics,
		pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{slot.descriptorSet},
		0, nil)
	vr.boundPipeline = pipeline
}

func (vr *VulkanRenderer) Draw(resource *frame.Resource, data *metadata.GeometryRenderData) {
	if vr.boundPipeline == nil {
		return
	}
	vertexBuffer, ok := vr.buffers[data.VertexBuffer]
	if !ok {
		core.LogWarn("draw skipped: unknown vertex buffer handle %d", data.VertexBuffer)
		return
	}
	indexBuffer, ok := vr.buffers[data.IndexBuffer]
	if !ok {
		core.LogWarn("draw skipped: unknown index buffer handle %d", data.IndexBuffer)
		return
	}

	commandBuffer := vr.slots[vr.currentSlot].commandBuffer

	push := pushConstants{
		ObjectIndex:   data.ObjectCBIndex,
		MaterialIndex: data.MaterialCB,
		TextureIndex:  uint32(data.Texture),
	}
	vk.CmdPushConstants(
		commandBuffer.Handle,
		vr.boundPipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		0,
		uint32(unsafe.Sizeof(push)),
		unsafe.Pointer(&push))

	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{vertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, indexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, data.IndexCount, 1, data.StartIndex, data.BaseVertex, 0)
}

func (vr *VulkanRenderer) EndFrame(resource *frame.Resource) (uint64, error) {
	slot := &vr.slots[vr.currentSlot]
	commandBuffer := slot.commandBuffer

	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return 0, err
	}

	// Host-visible uploads are ordered before the submission below.
	if err := vr.uploadFrameConstants(resource, slot); err != nil {
		return 0, err
	}

	if res := vk.ResetFences(vr.context.Device.LogicalDevice, 1, []vk.Fence{slot.fence}); res != vk.Success {
		err := fmt.Errorf("failed to reset frame slot fence: %s", ResultString(res))
		core.LogError(err.Error())
		return 0, err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[vr.currentSlot]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.currentSlot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}

	fenceValue := vr.fence.NextValue()
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, slot.fence); res != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed with result: %s", ResultString(res))
		core.LogError(err.Error())
		return 0, err
	}
	vr.fence.Register(fenceValue, slot.fence)
	commandBuffer.UpdateSubmitted()

	if !vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		vr.context.QueueCompleteSemaphores[vr.currentSlot],
		vr.context.ImageIndex) {
		vr.context.FramebufferSizeGeneration++
	}

	return fenceValue, nil
}

func (vr *VulkanRenderer) uploadFrameConstants(resource *frame.Resource, slot *frameSlot) error {
	if err := slot.objectUB.LoadData(rawBytes(resource.ObjectCB.Raw())); err != nil {
		return err
	}
	if err := slot.materialUB.LoadData(rawBytes(resource.MaterialCB.Raw())); err != nil {
		return err
	}
	if err := slot.passUB.LoadData(rawBytes(resource.PassCB.Raw())); err != nil {
		return err
	}

	if resource.WaveVB != metadata.InvalidBufferHandle && resource.WaveVertices.Len() > 0 {
		waveBuffer, ok := vr.buffers[resource.WaveVB]
		if !ok {
			return fmt.Errorf("unknown wave vertex buffer handle %d", resource.WaveVB)
		}
		if err := waveBuffer.LoadData(rawBytes(resource.WaveVertices.Raw())); err != nil {
			return err
		}
	}
	return nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !ResultIsSuccess(res) {
		return fmt.Errorf("vkDeviceWaitIdle failed with %s", ResultString(res))
	}
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	for _, pipeline := range vr.pipelines {
		if pipeline != nil {
			pipeline.Destroy(vr.context)
		}
	}

	if vr.textureSampler != vk.NullSampler {
		vk.DestroySampler(vr.context.Device.LogicalDevice, vr.textureSampler, vr.context.Allocator)
		vr.textureSampler = vk.NullSampler
	}
	for _, texture := range vr.textures {
		texture.ImageDestroy(vr.context)
	}
	vr.textures = nil

	if vr.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, vr.descriptorPool, vr.context.Allocator)
		vr.descriptorPool = vk.NullDescriptorPool
	}
	if vr.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.descriptorSetLayout, vr.context.Allocator)
		vr.descriptorSetLayout = vk.NullDescriptorSetLayout
	}

	for handle, buffer := range vr.buffers {
		buffer.Destroy(vr.context)
		delete(vr.buffers, handle)
	}

	for i := range vr.slots {
		slot := &vr.slots[i]
		if slot.objectUB != nil {
			slot.objectUB.Destroy(vr.context)
		}
		if slot.materialUB != nil {
			slot.materialUB.Destroy(vr.context)
		}
		if slot.passUB != nil {
			slot.passUB.Destroy(vr.context)
		}
		if slot.fence != vk.NullFence {
			vk.DestroyFence(vr.context.Device.LogicalDevice, slot.fence, vr.context.Allocator)
			slot.fence = vk.NullFence
		}
		if vr.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
			vr.context.ImageAvailableSemaphores[i] = vk.NullSemaphore
		}
		if vr.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
			vr.context.QueueCompleteSemaphores[i] = vk.NullSemaphore
		}
		if slot.commandBuffer != nil && slot.commandBuffer.Handle != nil {
			slot.commandBuffer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.slots = nil
	vr.context.ImageAvailableSemaphores = nil
	vr.context.QueueCompleteSemaphores = nil
	vr.context.GraphicsCommandBuffers = nil

	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
	}
	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.debug && vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

func (vr *VulkanRenderer) regenerateFramebuffers(swapchain *Swapchain, renderpass *Renderpass) error {
	for i := 0; i < int(swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		framebuffer, err := FramebufferCreate(vr.context, renderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			core.LogError("failed to create swapchain framebuffer %d", i)
			return err
		}
		swapchain.Framebuffers[i] = framebuffer
	}
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() bool {
	if vr.context.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called when already recreating. Booting.")
		return false
	}
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		core.LogDebug("recreateSwapchain called when window is < 1 in a dimension. Booting.")
		return false
	}

	vr.context.RecreatingSwapchain = true
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}
	DeviceDetectDepthFormat(vr.context.Device)

	// Framebuffers are bound to the old swapchain images.
	oldFramebuffers := vr.context.Swapchain.Framebuffers
	for _, framebuffer := range oldFramebuffers {
		if framebuffer != nil {
			framebuffer.Destroy(vr.context)
		}
	}

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight)
	if err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}
	vr.context.Swapchain = sc

	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	vr.context.MainRenderpass.X = 0
	vr.context.MainRenderpass.Y = 0
	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0

	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	vr.context.Swapchain.Framebuffers = make([]*Framebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(vr.context.Swapchain, vr.context.MainRenderpass); err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}

	vr.context.RecreatingSwapchain = false
	return true
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
