package renderer

// Instance is the entry point into the graphics API: device enumeration and the capability queries the
// device selection needs. All queries against a surface refer to the surface the instance was created for.
type Instance interface {
	PhysicalDevices() ([]PhysicalDevice, error)
	DeviceName(pd PhysicalDevice) string
	QueueFamilies(pd PhysicalDevice) ([]QueueFamilyProperties, error)
	SurfaceSupport(pd PhysicalDevice, family uint32, surface Surface) (bool, error)
	DeviceExtensions(pd PhysicalDevice) ([]string, error)
	SurfaceCapabilities(pd PhysicalDevice, surface Surface) (SurfaceCapabilities, error)
	SurfaceFormats(pd PhysicalDevice, surface Surface) ([]SurfaceFormat, error)
	SurfacePresentModes(pd PhysicalDevice, surface Surface) ([]PresentMode, error)
	CreateDevice(pd PhysicalDevice, desc DeviceDesc) (Device, error)
}

// Device is a logical device. Destroy calls accept the null handle and ignore it.
type Device interface {
	GetQueue(family uint32, index uint32) Queue
	WaitIdle() error
	Destroy()

	CreateSwapchain(desc SwapchainDesc) (Swapchain, error)
	SwapchainImages(sc Swapchain) ([]Image, error)
	DestroySwapchain(sc Swapchain)

	CreateImageView(desc ImageViewDesc) (ImageView, error)
	DestroyImageView(iv ImageView)

	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(rp RenderPass)

	CreateShaderModule(code []byte) (ShaderModule, error)
	DestroyShaderModule(sm ShaderModule)

	// CreatePipelineLayout creates a layout without descriptor sets or push constants.
	CreatePipelineLayout() (PipelineLayout, error)
	DestroyPipelineLayout(pl PipelineLayout)

	CreateGraphicsPipeline(desc PipelineDesc) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)

	CreateCommandPool(family uint32) (CommandPool, error)
	DestroyCommandPool(cp CommandPool)
	AllocateCommandBuffers(cp CommandPool, count uint32) ([]CommandBuffer, error)
	FreeCommandBuffers(cp CommandPool, cbs []CommandBuffer)

	BeginCommandBuffer(cb CommandBuffer) error
	CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin)
	CmdBindPipeline(cb CommandBuffer, p Pipeline)
	CmdDraw(cb CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdEndRenderPass(cb CommandBuffer)
	EndCommandBuffer(cb CommandBuffer) error

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)
	// WaitForFence blocks without timeout until f is signaled.
	WaitForFence(f Fence) error
	ResetFence(f Fence) error

	AcquireNextImage(sc Swapchain, signal Semaphore) (uint32, Result)
	QueueSubmit(q Queue, desc SubmitDesc, fence Fence) error
	QueuePresent(q Queue, desc PresentDesc) Result
}

// Window is the part of the window system the renderer consumes.
type Window interface {
	PollEvents()
	// WaitEvents blocks until at least one window event arrived.
	WaitEvents()
	ShouldClose() bool
	FramebufferSize() (width, height int)
	SetResizeCallback(cb func(width, height int))
}

// ShaderSource returns pre-compiled shader byte code by name.
type ShaderSource interface {
	Load(name string) ([]byte, error)
}
