package renderer

import (
	"log"
	"sync/atomic"

	"github.com/pkg/errors"
)

// PresentationChain is one generation of the swap chain and everything derived from it. All slices have the
// same length, one entry per swap chain image. A chain is built and torn down as a whole.
type PresentationChain struct {
	Handle      Swapchain
	Format      SurfaceFormat
	PresentMode PresentMode
	Extent      Extent2D

	Images         []Image
	ImgViews       []ImageView
	RenderPass     RenderPass
	PipelineLayout PipelineLayout
	Pipeline       Pipeline
	FrameBuffers   []Framebuffer
	CommandBuffers []CommandBuffer
}

// ImageCount is the number of presentable images in the chain.
func (pc *PresentationChain) ImageCount() int {
	return len(pc.Images)
}

type SwapChainConfig struct {
	VertexShader   string
	FragmentShader string
	ClearColor     [4]float32
}

// SwapChain owns the presentation chain. It builds it, records its command buffers and rebuilds it when the
// surface changes. The frame pacer only reads the current chain through Chain.
type SwapChain struct {
	in      Instance
	surface Surface
	dc      *DeviceContext
	win     Window
	shaders ShaderSource
	cmdPool CommandPool
	cfg     SwapChainConfig

	caps            Capabilities
	chain           *PresentationChain
	resizeRequested atomic.Bool
}

// NewSwapChain builds the first chain generation from caps and records its command buffers.
func NewSwapChain(in Instance, surface Surface, dc *DeviceContext, win Window, shaders ShaderSource, cmdPool CommandPool, cfg SwapChainConfig, caps Capabilities) (*SwapChain, error) {
	sc := &SwapChain{
		in:      in,
		surface: surface,
		dc:      dc,
		win:     win,
		shaders: shaders,
		cmdPool: cmdPool,
		cfg:     cfg,
	}
	if err := sc.Build(caps); err != nil {
		return nil, err
	}
	if err := sc.Record(); err != nil {
		sc.Teardown()
		return nil, err
	}
	return sc, nil
}

// Chain returns the current chain generation. The returned value is invalidated by the next Rebuild.
func (sc *SwapChain) Chain() *PresentationChain {
	return sc.chain
}

// RequestResize marks the chain as stale because the window framebuffer changed size.
func (sc *SwapChain) RequestResize() {
	sc.resizeRequested.Store(true)
}

func (sc *SwapChain) ResizeRequested() bool {
	return sc.resizeRequested.Load()
}

// Build creates the swap chain, its image views, the render pass, the graphics pipeline and one framebuffer
// per image. On failure everything created by this attempt is released before the error is returned.
func (sc *SwapChain) Build(caps Capabilities) error {
	rel := &releaseStack{}
	chain, err := sc.build(caps, rel)
	if err != nil {
		rel.release()
		return err
	}
	rel.forget()
	sc.caps = caps
	sc.chain = chain
	return nil
}

func (sc *SwapChain) build(caps Capabilities, rel *releaseStack) (*PresentationChain, error) {
	d := sc.dc.D
	chain := &PresentationChain{}
	if !caps.Complete() || len(caps.Formats) == 0 {
		return nil, &SwapchainCreationError{Step: StepSwapchain, Err: errors.New("surface capabilities are incomplete")}
	}

	chain.Format = selectSwapSurfaceFormat(caps.Formats)
	chain.PresentMode = selectSwapPresentMode(caps.PresentModes)
	width, height := sc.win.FramebufferSize()
	chain.Extent = chooseSwapExtent(caps.Surface, width, height)

	sharingMode, qFamIndices := chooseSharingMode(caps.Families)
	handle, err := d.CreateSwapchain(SwapchainDesc{
		Surface:            sc.surface,
		MinImageCount:      chooseImageCount(caps.Surface),
		Format:             chain.Format,
		Extent:             chain.Extent,
		SharingMode:        sharingMode,
		QueueFamilyIndices: qFamIndices,
		PreTransform:       caps.Surface.CurrentTransform,
		PresentMode:        chain.PresentMode,
	})
	if err != nil {
		return nil, &SwapchainCreationError{Step: StepSwapchain, Err: err}
	}
	rel.push(func() { d.DestroySwapchain(handle) })
	chain.Handle = handle

	chain.Images, err = d.SwapchainImages(handle)
	if err != nil {
		return nil, &SwapchainCreationError{Step: StepSwapchain, Err: errors.Wrap(err, "read swap chain images")}
	}
	log.Printf("Successfully created swap chain: %d images, %s, format %d, %s",
		len(chain.Images), chain.Extent, chain.Format.Format, chain.PresentMode)

	if err := sc.createImageViews(chain, rel); err != nil {
		return nil, err
	}
	if err := sc.createRenderPass(chain, rel); err != nil {
		return nil, err
	}
	if err := sc.createGraphicsPipeline(chain, rel); err != nil {
		return nil, err
	}
	if err := sc.createFrameBuffers(chain, rel); err != nil {
		return nil, err
	}
	return chain, nil
}

func (sc *SwapChain) createImageViews(chain *PresentationChain, rel *releaseStack) error {
	d := sc.dc.D
	chain.ImgViews = make([]ImageView, len(chain.Images))
	for i := range chain.Images {
		iv, err := d.CreateImageView(ImageViewDesc{
			Image:  chain.Images[i],
			Format: chain.Format.Format,
		})
		if err != nil {
			return &SwapchainCreationError{Step: StepImageViews, Err: errors.Wrapf(err, "image view %d", i)}
		}
		rel.push(func() { d.DestroyImageView(iv) })
		chain.ImgViews[i] = iv
	}
	log.Printf("Successfully created %d image views", len(chain.ImgViews))
	return nil
}

func (sc *SwapChain) createRenderPass(chain *PresentationChain, rel *releaseStack) error {
	d := sc.dc.D
	rp, err := d.CreateRenderPass(RenderPassDesc{
		ColorFormat:   chain.Format.Format,
		LoadOp:        AttachmentLoadOpClear,
		StoreOp:       AttachmentStoreOpStore,
		InitialLayout: ImageLayoutUndefined,
		FinalLayout:   ImageLayoutPresentSrc,
	})
	if err != nil {
		return &SwapchainCreationError{Step: StepRenderPass, Err: err}
	}
	rel.push(func() { d.DestroyRenderPass(rp) })
	chain.RenderPass = rp
	return nil
}

// createGraphicsPipeline builds the fixed triangle pipeline. Shader modules only carry the code onto the
// device and are destroyed again once the pipeline exists.
func (sc *SwapChain) createGraphicsPipeline(chain *PresentationChain, rel *releaseStack) error {
	d := sc.dc.D
	vertMod, err := sc.loadShaderModule(sc.cfg.VertexShader)
	if err != nil {
		return &SwapchainCreationError{Step: StepPipeline, Err: err}
	}
	defer d.DestroyShaderModule(vertMod)
	fragMod, err := sc.loadShaderModule(sc.cfg.FragmentShader)
	if err != nil {
		return &SwapchainCreationError{Step: StepPipeline, Err: err}
	}
	defer d.DestroyShaderModule(fragMod)

	layout, err := d.CreatePipelineLayout()
	if err != nil {
		return &SwapchainCreationError{Step: StepPipeline, Err: errors.Wrap(err, "pipeline layout")}
	}
	rel.push(func() { d.DestroyPipelineLayout(layout) })
	chain.PipelineLayout = layout

	pipeline, err := d.CreateGraphicsPipeline(PipelineDesc{
		Layout:         layout,
		RenderPass:     chain.RenderPass,
		Subpass:        0,
		VertexShader:   vertMod,
		FragmentShader: fragMod,
		EntryPoint:     "main",
		Topology:       PrimitiveTopologyTriangleList,
		Viewport:       chain.Extent,
		PolygonMode:    PolygonModeFill,
		CullMode:       CullModeBack,
		FrontFace:      FrontFaceClockwise,
		Samples:        1,
		BlendEnable:    false,
	})
	if err != nil {
		return &SwapchainCreationError{Step: StepPipeline, Err: err}
	}
	rel.push(func() { d.DestroyPipeline(pipeline) })
	chain.Pipeline = pipeline
	log.Printf("Successfully created graphics pipeline")
	return nil
}

func (sc *SwapChain) loadShaderModule(name string) (ShaderModule, error) {
	code, err := sc.shaders.Load(name)
	if err != nil {
		return 0, errors.Wrapf(err, "load shader %q", name)
	}
	mod, err := sc.dc.D.CreateShaderModule(code)
	if err != nil {
		return 0, errors.Wrapf(err, "create shader module %q", name)
	}
	return mod, nil
}

func (sc *SwapChain) createFrameBuffers(chain *PresentationChain, rel *releaseStack) error {
	d := sc.dc.D
	chain.FrameBuffers = make([]Framebuffer, len(chain.ImgViews))
	for i := range chain.ImgViews {
		fb, err := d.CreateFramebuffer(FramebufferDesc{
			RenderPass: chain.RenderPass,
			Attachment: chain.ImgViews[i],
			Extent:     chain.Extent,
		})
		if err != nil {
			return &SwapchainCreationError{Step: StepFramebuffers, Err: errors.Wrapf(err, "frame buffer [%d]", i)}
		}
		rel.push(func() { d.DestroyFramebuffer(fb) })
		chain.FrameBuffers[i] = fb
	}
	log.Printf("Successfully created %d frame buffers", len(chain.FrameBuffers))
	return nil
}

// Record runs the command recorder over the current chain.
func (sc *SwapChain) Record() error {
	buffers, err := recordCommandBuffers(sc.dc.D, sc.cmdPool, sc.chain, sc.cfg.ClearColor)
	if err != nil {
		return err
	}
	sc.chain.CommandBuffers = buffers
	return nil
}

// Teardown releases the current chain in reverse dependency order. Surface, device and instance are left
// untouched.
func (sc *SwapChain) Teardown() {
	chain := sc.chain
	if chain == nil {
		return
	}
	d := sc.dc.D
	for i := range chain.FrameBuffers {
		d.DestroyFramebuffer(chain.FrameBuffers[i])
	}
	if len(chain.CommandBuffers) > 0 {
		d.FreeCommandBuffers(sc.cmdPool, chain.CommandBuffers)
	}
	d.DestroyPipeline(chain.Pipeline)
	d.DestroyPipelineLayout(chain.PipelineLayout)
	d.DestroyRenderPass(chain.RenderPass)
	for i := range chain.ImgViews {
		d.DestroyImageView(chain.ImgViews[i])
	}
	d.DestroySwapchain(chain.Handle)
	sc.chain = nil
}

// Rebuild replaces the current chain with a new generation matching the surface as it is now. While the
// window is minimized it waits for window events. If the window gets closed during that wait, Rebuild returns
// without rebuilding and the caller is expected to stop rendering.
func (sc *SwapChain) Rebuild() error {
	width, height := sc.win.FramebufferSize()
	for width == 0 || height == 0 {
		if sc.win.ShouldClose() {
			return nil
		}
		sc.win.WaitEvents()
		width, height = sc.win.FramebufferSize()
	}

	if err := sc.dc.D.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle before swap chain rebuild")
	}
	sc.resizeRequested.Store(false)

	sc.Teardown()
	caps, err := ProbeCapabilities(sc.in, sc.dc.PhysicalDevice, sc.surface)
	if err != nil {
		return &SwapchainCreationError{Step: StepSwapchain, Err: err}
	}
	if err := sc.Build(caps); err != nil {
		return err
	}
	if err := sc.Record(); err != nil {
		sc.Teardown()
		return err
	}
	log.Printf("Rebuilt swap chain for framebuffer %dx%d", width, height)
	return nil
}

// selectSwapSurfaceFormat prefers 8 bit BGRA sRGB and otherwise falls back to the first format offered.
func selectSwapSurfaceFormat(formats []SurfaceFormat) SurfaceFormat {
	for _, af := range formats {
		if af.Format == FormatB8g8r8a8Srgb && af.ColorSpace == ColorSpaceSrgbNonlinear {
			return af
		}
	}
	fallbackFormat := formats[0]
	log.Printf("Did not find prefered SurfaceFormat, selecting first one available. (%v)", fallbackFormat)
	return fallbackFormat
}

// selectSwapPresentMode prefers mailbox. FIFO is the fallback as it is always available.
func selectSwapPresentMode(modes []PresentMode) PresentMode {
	for _, pm := range modes {
		if pm == PresentModeMailbox {
			return pm
		}
	}
	return PresentModeFifo
}

// chooseSwapExtent uses the current extent of the surface unless it is adaptive, in which case the window
// framebuffer size is clamped into the surface limits.
func chooseSwapExtent(caps SurfaceCapabilities, fbWidth, fbHeight int) Extent2D {
	if !caps.CurrentExtent.isAdaptive() {
		return caps.CurrentExtent
	}
	return Extent2D{
		Width:  clamp(uint32(max(fbWidth, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(max(fbHeight, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum, capped by the maximum unless it is 0 (unbounded).
func chooseImageCount(caps SurfaceCapabilities) uint32 {
	imgCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imgCount > caps.MaxImageCount {
		imgCount = caps.MaxImageCount
	}
	return imgCount
}

// chooseSharingMode shares images concurrently between distinct graphics and present families, which saves
// explicit ownership transfers.
func chooseSharingMode(families QueueFamilyIndices) (SharingMode, []uint32) {
	if families.Shared() {
		return SharingModeExclusive, nil
	}
	return SharingModeConcurrent, []uint32{*families.GraphicsFamily, *families.PresentFamily}
}
