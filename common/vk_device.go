package common

import (
	"log"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"vk_triangle/renderer"
)

type queueKey struct {
	family uint32
	index  uint32
}

// Device implements renderer.Device on top of a vk.Device. Every native object is kept in an arena of its kind
// and handed out as a renderer handle, destroy calls look the object up and drop it from the arena.
type Device struct {
	D vk.Device

	surfaces *arena[vk.Surface]

	handles      renderer.Handle
	queues       *arena[vk.Queue]
	queueIDs     map[queueKey]renderer.Queue
	swapchains   *arena[vk.Swapchain]
	images       *arena[vk.Image]
	scImages     map[renderer.Swapchain][]renderer.Image
	imageViews   *arena[vk.ImageView]
	renderPasses *arena[vk.RenderPass]
	shaders      *arena[vk.ShaderModule]
	layouts      *arena[vk.PipelineLayout]
	pipelines    *arena[vk.Pipeline]
	framebuffers *arena[vk.Framebuffer]
	pools        *arena[vk.CommandPool]
	cmdBuffers   *arena[vk.CommandBuffer]
	semaphores   *arena[vk.Semaphore]
	fences       *arena[vk.Fence]
}

func newDevice(d vk.Device, surfaces *arena[vk.Surface]) *Device {
	dev := &Device{
		D:        d,
		surfaces: surfaces,
		queueIDs: map[queueKey]renderer.Queue{},
		scImages: map[renderer.Swapchain][]renderer.Image{},
	}
	dev.queues = newArena[vk.Queue](&dev.handles)
	dev.swapchains = newArena[vk.Swapchain](&dev.handles)
	dev.images = newArena[vk.Image](&dev.handles)
	dev.imageViews = newArena[vk.ImageView](&dev.handles)
	dev.renderPasses = newArena[vk.RenderPass](&dev.handles)
	dev.shaders = newArena[vk.ShaderModule](&dev.handles)
	dev.layouts = newArena[vk.PipelineLayout](&dev.handles)
	dev.pipelines = newArena[vk.Pipeline](&dev.handles)
	dev.framebuffers = newArena[vk.Framebuffer](&dev.handles)
	dev.pools = newArena[vk.CommandPool](&dev.handles)
	dev.cmdBuffers = newArena[vk.CommandBuffer](&dev.handles)
	dev.semaphores = newArena[vk.Semaphore](&dev.handles)
	dev.fences = newArena[vk.Fence](&dev.handles)
	return dev
}

// liveObjects counts the objects created through the device that were not destroyed yet. Queues and swap chain
// images are owned by the device and the swap chain respectively and are not counted.
func (dev *Device) liveObjects() int {
	return dev.swapchains.len() + dev.imageViews.len() + dev.renderPasses.len() + dev.shaders.len() +
		dev.layouts.len() + dev.pipelines.len() + dev.framebuffers.len() + dev.pools.len() +
		dev.cmdBuffers.len() + dev.semaphores.len() + dev.fences.len()
}

func (dev *Device) GetQueue(family uint32, index uint32) renderer.Queue {
	key := queueKey{family: family, index: index}
	if q, ok := dev.queueIDs[key]; ok {
		return q
	}
	var q vk.Queue
	vk.GetDeviceQueue(dev.D, family, index, &q)
	h := renderer.Queue(dev.queues.put(q))
	dev.queueIDs[key] = h
	return h
}

func (dev *Device) WaitIdle() error {
	return errors.Wrap(vk.Error(vk.DeviceWaitIdle(dev.D)), "vkDeviceWaitIdle")
}

// Destroy destroys the logical device. Objects still alive at this point are leaked on the driver side, they
// are reported to the log.
func (dev *Device) Destroy() {
	if n := dev.liveObjects(); n > 0 {
		log.Printf("Destroying device with %d objects still alive", n)
	}
	vk.DestroyDevice(dev.D, nil)
	dev.D = nil
}

func (dev *Device) CreateSwapchain(desc renderer.SwapchainDesc) (renderer.Swapchain, error) {
	surface, ok := dev.surfaces.get(renderer.Handle(desc.Surface))
	if !ok {
		return 0, errors.Errorf("unknown surface %d", desc.Surface)
	}
	sc, err := VkCreateSwapChain(dev.D, swapchainCreateInfo(desc, surface), nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateSwapchainKHR")
	}
	return renderer.Swapchain(dev.swapchains.put(sc)), nil
}

// SwapchainImages reads the images once per swap chain, later calls return the same handles.
func (dev *Device) SwapchainImages(sc renderer.Swapchain) ([]renderer.Image, error) {
	if imgs, ok := dev.scImages[sc]; ok {
		return imgs, nil
	}
	native, ok := dev.swapchains.get(renderer.Handle(sc))
	if !ok {
		return nil, errors.Errorf("unknown swap chain %d", sc)
	}
	vkImgs, err := readSwapChainImages(dev.D, native)
	if err != nil {
		return nil, errors.Wrap(err, "vkGetSwapchainImagesKHR")
	}
	imgs := make([]renderer.Image, len(vkImgs))
	for i := range vkImgs {
		imgs[i] = renderer.Image(dev.images.put(vkImgs[i]))
	}
	dev.scImages[sc] = imgs
	return imgs, nil
}

func (dev *Device) DestroySwapchain(sc renderer.Swapchain) {
	native, ok := dev.swapchains.take(renderer.Handle(sc))
	if !ok {
		return
	}
	for _, img := range dev.scImages[sc] {
		dev.images.take(renderer.Handle(img))
	}
	delete(dev.scImages, sc)
	vk.DestroySwapchain(dev.D, native, nil)
}

func (dev *Device) CreateImageView(desc renderer.ImageViewDesc) (renderer.ImageView, error) {
	img, ok := dev.images.get(renderer.Handle(desc.Image))
	if !ok {
		return 0, errors.Errorf("unknown image %d", desc.Image)
	}
	iv, err := VkCreateImageView(dev.D, imageViewCreateInfo(img, vk.Format(desc.Format)), nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateImageView")
	}
	return renderer.ImageView(dev.imageViews.put(iv)), nil
}

func (dev *Device) DestroyImageView(iv renderer.ImageView) {
	if native, ok := dev.imageViews.take(renderer.Handle(iv)); ok {
		vk.DestroyImageView(dev.D, native, nil)
	}
}

func (dev *Device) CreateRenderPass(desc renderer.RenderPassDesc) (renderer.RenderPass, error) {
	rp, err := VkCreateRenderPass(dev.D, renderPassCreateInfo(desc), nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateRenderPass")
	}
	return renderer.RenderPass(dev.renderPasses.put(rp)), nil
}

func (dev *Device) DestroyRenderPass(rp renderer.RenderPass) {
	if native, ok := dev.renderPasses.take(renderer.Handle(rp)); ok {
		vk.DestroyRenderPass(dev.D, native, nil)
	}
}

func (dev *Device) CreateShaderModule(code []byte) (renderer.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, errors.Errorf("shader code size %d is not a positive multiple of 4", len(code))
	}
	createInfo := &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		PNext:    nil,
		Flags:    0,
		CodeSize: uint64(len(code)),
		PCode:    AsUint32Arr(code),
	}
	sm, err := VkCreateShaderModule(dev.D, createInfo, nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateShaderModule")
	}
	return renderer.ShaderModule(dev.shaders.put(sm)), nil
}

// DestroyShaderModule discards a shader module. Modules only carry the code into the pipeline, so they can be
// destroyed right after pipeline creation.
func (dev *Device) DestroyShaderModule(sm renderer.ShaderModule) {
	if native, ok := dev.shaders.take(renderer.Handle(sm)); ok {
		vk.DestroyShaderModule(dev.D, native, nil)
	}
}

func (dev *Device) CreatePipelineLayout() (renderer.PipelineLayout, error) {
	pl, err := VkCreatePipelineLayout(dev.D, pipelineLayoutCreateInfo(), nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreatePipelineLayout")
	}
	return renderer.PipelineLayout(dev.layouts.put(pl)), nil
}

func (dev *Device) DestroyPipelineLayout(pl renderer.PipelineLayout) {
	if native, ok := dev.layouts.take(renderer.Handle(pl)); ok {
		vk.DestroyPipelineLayout(dev.D, native, nil)
	}
}

func (dev *Device) CreateGraphicsPipeline(desc renderer.PipelineDesc) (renderer.Pipeline, error) {
	layout, ok := dev.layouts.get(renderer.Handle(desc.Layout))
	if !ok {
		return 0, errors.Errorf("unknown pipeline layout %d", desc.Layout)
	}
	rp, ok := dev.renderPasses.get(renderer.Handle(desc.RenderPass))
	if !ok {
		return 0, errors.Errorf("unknown render pass %d", desc.RenderPass)
	}
	vert, ok := dev.shaders.get(renderer.Handle(desc.VertexShader))
	if !ok {
		return 0, errors.Errorf("unknown vertex shader module %d", desc.VertexShader)
	}
	frag, ok := dev.shaders.get(renderer.Handle(desc.FragmentShader))
	if !ok {
		return 0, errors.Errorf("unknown fragment shader module %d", desc.FragmentShader)
	}
	pipelineInfos := []vk.GraphicsPipelineCreateInfo{graphicsPipelineCreateInfo(desc, layout, rp, vert, frag)}
	pipelines, err := VkCreateGraphicsPipelines(dev.D, nil, 1, pipelineInfos, nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateGraphicsPipelines")
	}
	return renderer.Pipeline(dev.pipelines.put(pipelines[0])), nil
}

func (dev *Device) DestroyPipeline(p renderer.Pipeline) {
	if native, ok := dev.pipelines.take(renderer.Handle(p)); ok {
		vk.DestroyPipeline(dev.D, native, nil)
	}
}

func (dev *Device) CreateFramebuffer(desc renderer.FramebufferDesc) (renderer.Framebuffer, error) {
	rp, ok := dev.renderPasses.get(renderer.Handle(desc.RenderPass))
	if !ok {
		return 0, errors.Errorf("unknown render pass %d", desc.RenderPass)
	}
	iv, ok := dev.imageViews.get(renderer.Handle(desc.Attachment))
	if !ok {
		return 0, errors.Errorf("unknown image view %d", desc.Attachment)
	}
	fb, err := VkCreateFrameBuffer(dev.D, framebufferCreateInfo(rp, iv, desc.Extent), nil)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateFramebuffer")
	}
	return renderer.Framebuffer(dev.framebuffers.put(fb)), nil
}

func (dev *Device) DestroyFramebuffer(fb renderer.Framebuffer) {
	if native, ok := dev.framebuffers.take(renderer.Handle(fb)); ok {
		vk.DestroyFramebuffer(dev.D, native, nil)
	}
}

// CreateCommandPool creates a pool whose buffers can be reset individually, so the recorded buffers can be
// re-recorded after a rebuild without recreating the pool.
func (dev *Device) CreateCommandPool(family uint32) (renderer.CommandPool, error) {
	cp, err := VKSCreateCommandPool(dev.D, vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit), family)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateCommandPool")
	}
	return renderer.CommandPool(dev.pools.put(cp)), nil
}

func (dev *Device) DestroyCommandPool(cp renderer.CommandPool) {
	if native, ok := dev.pools.take(renderer.Handle(cp)); ok {
		vk.DestroyCommandPool(dev.D, native, nil)
	}
}

func (dev *Device) AllocateCommandBuffers(cp renderer.CommandPool, count uint32) ([]renderer.CommandBuffer, error) {
	pool, ok := dev.pools.get(renderer.Handle(cp))
	if !ok {
		return nil, errors.Errorf("unknown command pool %d", cp)
	}
	buffers, err := VKSAllocateCommandBuffersPrimary(dev.D, pool, count)
	if err != nil {
		return nil, errors.Wrap(err, "vkAllocateCommandBuffers")
	}
	cbs := make([]renderer.CommandBuffer, len(buffers))
	for i := range buffers {
		cbs[i] = renderer.CommandBuffer(dev.cmdBuffers.put(buffers[i]))
	}
	return cbs, nil
}

func (dev *Device) FreeCommandBuffers(cp renderer.CommandPool, cbs []renderer.CommandBuffer) {
	pool, ok := dev.pools.get(renderer.Handle(cp))
	if !ok {
		return
	}
	buffers := make([]vk.CommandBuffer, 0, len(cbs))
	for _, cb := range cbs {
		if native, ok := dev.cmdBuffers.take(renderer.Handle(cb)); ok {
			buffers = append(buffers, native)
		}
	}
	if len(buffers) > 0 {
		vk.FreeCommandBuffers(dev.D, pool, uint32(len(buffers)), buffers)
	}
}

func (dev *Device) commandBuffer(cb renderer.CommandBuffer) vk.CommandBuffer {
	native, ok := dev.cmdBuffers.get(renderer.Handle(cb))
	if !ok {
		log.Panicf("Recording into unknown command buffer %d", cb)
	}
	return native
}

func (dev *Device) BeginCommandBuffer(cb renderer.CommandBuffer) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType:            vk.StructureTypeCommandBufferBeginInfo,
		PNext:            nil,
		Flags:            0,
		PInheritanceInfo: nil,
	}
	return errors.Wrap(vk.Error(vk.BeginCommandBuffer(dev.commandBuffer(cb), &beginInfo)), "vkBeginCommandBuffer")
}

func (dev *Device) CmdBeginRenderPass(cb renderer.CommandBuffer, begin renderer.RenderPassBegin) {
	rp, _ := dev.renderPasses.get(renderer.Handle(begin.RenderPass))
	fb, _ := dev.framebuffers.get(renderer.Handle(begin.Framebuffer))
	vk.CmdBeginRenderPass(dev.commandBuffer(cb), renderPassBeginInfo(rp, fb, begin.Extent, begin.ClearColor), vk.SubpassContentsInline)
}

func (dev *Device) CmdBindPipeline(cb renderer.CommandBuffer, p renderer.Pipeline) {
	pipeline, _ := dev.pipelines.get(renderer.Handle(p))
	vk.CmdBindPipeline(dev.commandBuffer(cb), vk.PipelineBindPointGraphics, pipeline)
}

func (dev *Device) CmdDraw(cb renderer.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(dev.commandBuffer(cb), vertexCount, instanceCount, firstVertex, firstInstance)
}

func (dev *Device) CmdEndRenderPass(cb renderer.CommandBuffer) {
	vk.CmdEndRenderPass(dev.commandBuffer(cb))
}

func (dev *Device) EndCommandBuffer(cb renderer.CommandBuffer) error {
	return errors.Wrap(vk.Error(vk.EndCommandBuffer(dev.commandBuffer(cb))), "vkEndCommandBuffer")
}

func (dev *Device) CreateSemaphore() (renderer.Semaphore, error) {
	s, err := VKSCreateSemaphore(dev.D)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateSemaphore")
	}
	return renderer.Semaphore(dev.semaphores.put(s)), nil
}

func (dev *Device) DestroySemaphore(s renderer.Semaphore) {
	if native, ok := dev.semaphores.take(renderer.Handle(s)); ok {
		vk.DestroySemaphore(dev.D, native, nil)
	}
}

func (dev *Device) CreateFence(signaled bool) (renderer.Fence, error) {
	f, err := VKSCreateFence(dev.D, signaled)
	if err != nil {
		return 0, errors.Wrap(err, "vkCreateFence")
	}
	return renderer.Fence(dev.fences.put(f)), nil
}

func (dev *Device) DestroyFence(f renderer.Fence) {
	if native, ok := dev.fences.take(renderer.Handle(f)); ok {
		vk.DestroyFence(dev.D, native, nil)
	}
}

func (dev *Device) WaitForFence(f renderer.Fence) error {
	native, ok := dev.fences.get(renderer.Handle(f))
	if !ok {
		return errors.Errorf("unknown fence %d", f)
	}
	err := vk.Error(vk.WaitForFences(dev.D, 1, []vk.Fence{native}, vk.True, math.MaxUint64))
	return errors.Wrap(err, "vkWaitForFences")
}

func (dev *Device) ResetFence(f renderer.Fence) error {
	native, ok := dev.fences.get(renderer.Handle(f))
	if !ok {
		return errors.Errorf("unknown fence %d", f)
	}
	return errors.Wrap(vk.Error(vk.ResetFences(dev.D, 1, []vk.Fence{native})), "vkResetFences")
}

// AcquireNextImage waits without timeout for the next presentable image. Only the semaphore is signaled on
// acquisition, no fence.
func (dev *Device) AcquireNextImage(sc renderer.Swapchain, signal renderer.Semaphore) (uint32, renderer.Result) {
	native, ok := dev.swapchains.get(renderer.Handle(sc))
	if !ok {
		return 0, renderer.ErrorSurfaceLost
	}
	sem, _ := dev.semaphores.get(renderer.Handle(signal))
	var imgIdx uint32
	result := vk.AcquireNextImage(dev.D, native, math.MaxUint64, sem, nil, &imgIdx)
	return imgIdx, renderer.Result(result)
}

func (dev *Device) QueueSubmit(q renderer.Queue, desc renderer.SubmitDesc, fence renderer.Fence) error {
	queue, ok := dev.queues.get(renderer.Handle(q))
	if !ok {
		return errors.Errorf("unknown queue %d", q)
	}
	waitSem, _ := dev.semaphores.get(renderer.Handle(desc.WaitSemaphore))
	signalSem, _ := dev.semaphores.get(renderer.Handle(desc.SignalSemaphore))
	native, _ := dev.fences.get(renderer.Handle(fence))
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSem},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(desc.WaitStage),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{dev.commandBuffer(desc.CommandBuffer)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signalSem},
	}
	err := vk.Error(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, native))
	return errors.Wrap(err, "vkQueueSubmit")
}

func (dev *Device) QueuePresent(q renderer.Queue, desc renderer.PresentDesc) renderer.Result {
	queue, ok := dev.queues.get(renderer.Handle(q))
	if !ok {
		return renderer.ErrorDeviceLost
	}
	sc, ok := dev.swapchains.get(renderer.Handle(desc.Swapchain))
	if !ok {
		return renderer.ErrorSurfaceLost
	}
	waitSem, _ := dev.semaphores.get(renderer.Handle(desc.WaitSemaphore))
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSem},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc},
		PImageIndices:      []uint32{desc.ImageIndex},
		PResults:           nil,
	}
	return renderer.Result(vk.QueuePresent(queue, &presentInfo))
}
