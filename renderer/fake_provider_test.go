package renderer

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// fakePhysicalDevice describes one device the fake GPU reports.
type fakePhysicalDevice struct {
	name       string
	families   []QueueFamilyProperties
	present    map[uint32]bool
	extensions []string
	caps       SurfaceCapabilities
	formats    []SurfaceFormat
	modes      []PresentMode
}

// newTestDevice returns a suitable device with one family for graphics and presentation and a fixed
// 800x600 surface accepting 2 or more images.
func newTestDevice(name string) *fakePhysicalDevice {
	return &fakePhysicalDevice{
		name:       name,
		families:   []QueueFamilyProperties{{QueueCount: 1, Graphics: true}},
		present:    map[uint32]bool{0: true},
		extensions: []string{"VK_KHR_get_memory_requirements2", "VK_KHR_swapchain"},
		caps: SurfaceCapabilities{
			MinImageCount:       2,
			MaxImageCount:       0,
			CurrentExtent:       Extent2D{Width: 800, Height: 600},
			MinImageExtent:      Extent2D{Width: 1, Height: 1},
			MaxImageExtent:      Extent2D{Width: 4096, Height: 4096},
			SupportedTransforms: SurfaceTransformIdentity,
			CurrentTransform:    SurfaceTransformIdentity,
		},
		formats: []SurfaceFormat{
			{Format: FormatB8g8r8a8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
			{Format: FormatB8g8r8a8Srgb, ColorSpace: ColorSpaceSrgbNonlinear},
		},
		modes: []PresentMode{PresentModeFifo, PresentModeMailbox},
	}
}

type fakeFence struct {
	signaled bool
	pending  bool
	// stall is the number of waits that observe the fence as not yet signaled.
	stall int
}

// fakeGPU implements Instance and Device. It hands out sequential handles, labels them per kind in creation
// order (fence#0, fence#1, ...), keeps an event log of everything the renderer does and checks the
// synchronization rules a real driver would enforce.
type fakeGPU struct {
	devices []*fakePhysicalDevice
	pds     map[PhysicalDevice]*fakePhysicalDevice
	order   []PhysicalDevice

	next   Handle
	live   map[Handle]string
	labels map[Handle]string
	byName map[string]Handle
	kinds  map[string]int

	events      []string
	violations  []string
	badDestroys []string
	calls       map[string]int
	failOn      map[string]int

	deviceDesc *DeviceDesc
	deviceLive bool
	queues     map[uint32]Queue

	fences map[Fence]*fakeFence
	sems   map[Semaphore]bool

	swapImages     map[Swapchain][]Image
	nextImage      map[Swapchain]uint32
	acquireResults map[int]Result
	presentResults map[int]Result

	swapDescs     []SwapchainDesc
	pipelineDescs []PipelineDesc
	submits       []SubmitDesc

	cmds     map[CommandBuffer][]string
	rpBegins map[CommandBuffer]RenderPassBegin
}

func newFakeGPU(devices ...*fakePhysicalDevice) *fakeGPU {
	g := &fakeGPU{
		devices:        devices,
		pds:            map[PhysicalDevice]*fakePhysicalDevice{},
		live:           map[Handle]string{},
		labels:         map[Handle]string{},
		byName:         map[string]Handle{},
		kinds:          map[string]int{},
		calls:          map[string]int{},
		failOn:         map[string]int{},
		queues:         map[uint32]Queue{},
		fences:         map[Fence]*fakeFence{},
		sems:           map[Semaphore]bool{},
		swapImages:     map[Swapchain][]Image{},
		nextImage:      map[Swapchain]uint32{},
		acquireResults: map[int]Result{},
		presentResults: map[int]Result{},
		cmds:           map[CommandBuffer][]string{},
		rpBegins:       map[CommandBuffer]RenderPassBegin{},
	}
	for _, d := range devices {
		pd := PhysicalDevice(g.label("gpu"))
		g.pds[pd] = d
		g.order = append(g.order, pd)
	}
	return g
}

// label assigns a fresh handle with a kind label without tracking it as a live object.
func (g *fakeGPU) label(kind string) Handle {
	g.next++
	h := g.next
	name := fmt.Sprintf("%s#%d", kind, g.kinds[kind])
	g.kinds[kind]++
	g.labels[h] = name
	g.byName[name] = h
	return h
}

func (g *fakeGPU) create(kind string) Handle {
	h := g.label(kind)
	g.live[h] = kind
	g.logf("create %s", g.labels[h])
	return h
}

func (g *fakeGPU) destroy(h Handle) {
	if h == NullHandle {
		return
	}
	if _, ok := g.live[h]; !ok {
		g.badDestroys = append(g.badDestroys, fmt.Sprintf("%d (%s)", h, g.labels[h]))
		return
	}
	delete(g.live, h)
	g.logf("destroy %s", g.labels[h])
}

func (g *fakeGPU) name(h Handle) string {
	if h == NullHandle {
		return "null"
	}
	if l, ok := g.labels[h]; ok {
		return l
	}
	return fmt.Sprintf("unknown(%d)", h)
}

func (g *fakeGPU) handle(name string) Handle {
	return g.byName[name]
}

func (g *fakeGPU) logf(format string, args ...any) {
	g.events = append(g.events, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) violate(format string, args ...any) {
	g.violations = append(g.violations, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) fail(op string) error {
	g.calls[op]++
	if n, ok := g.failOn[op]; ok && n == g.calls[op] {
		return errors.Errorf("injected %s failure", op)
	}
	return nil
}

// leaks lists the labels of all objects still alive, sorted.
func (g *fakeGPU) leaks() []string {
	var l []string
	for h := range g.live {
		l = append(l, g.labels[h])
	}
	if g.deviceLive {
		l = append(l, "device")
	}
	sort.Strings(l)
	return l
}

func (g *fakeGPU) liveCount(kind string) int {
	n := 0
	for _, k := range g.live {
		if k == kind {
			n++
		}
	}
	return n
}

// indexOf returns the position of the first event equal to e at or after from, or -1.
func (g *fakeGPU) indexOf(e string, from int) int {
	for i := from; i < len(g.events); i++ {
		if g.events[i] == e {
			return i
		}
	}
	return -1
}

// Instance

func (g *fakeGPU) PhysicalDevices() ([]PhysicalDevice, error) {
	if err := g.fail("PhysicalDevices"); err != nil {
		return nil, err
	}
	return append([]PhysicalDevice(nil), g.order...), nil
}

func (g *fakeGPU) DeviceName(pd PhysicalDevice) string {
	return g.pds[pd].name
}

func (g *fakeGPU) QueueFamilies(pd PhysicalDevice) ([]QueueFamilyProperties, error) {
	return g.pds[pd].families, nil
}

func (g *fakeGPU) SurfaceSupport(pd PhysicalDevice, family uint32, surface Surface) (bool, error) {
	return g.pds[pd].present[family], nil
}

func (g *fakeGPU) DeviceExtensions(pd PhysicalDevice) ([]string, error) {
	return g.pds[pd].extensions, nil
}

func (g *fakeGPU) SurfaceCapabilities(pd PhysicalDevice, surface Surface) (SurfaceCapabilities, error) {
	if err := g.fail("SurfaceCapabilities"); err != nil {
		return SurfaceCapabilities{}, err
	}
	return g.pds[pd].caps, nil
}

func (g *fakeGPU) SurfaceFormats(pd PhysicalDevice, surface Surface) ([]SurfaceFormat, error) {
	return g.pds[pd].formats, nil
}

func (g *fakeGPU) SurfacePresentModes(pd PhysicalDevice, surface Surface) ([]PresentMode, error) {
	return g.pds[pd].modes, nil
}

func (g *fakeGPU) CreateDevice(pd PhysicalDevice, desc DeviceDesc) (Device, error) {
	if err := g.fail("CreateDevice"); err != nil {
		return nil, err
	}
	g.deviceDesc = &desc
	g.deviceLive = true
	g.logf("create device on %s", g.pds[pd].name)
	return g, nil
}

// Device

func (g *fakeGPU) GetQueue(family uint32, index uint32) Queue {
	if q, ok := g.queues[family]; ok {
		return q
	}
	q := Queue(g.label("queue"))
	g.queues[family] = q
	return q
}

func (g *fakeGPU) WaitIdle() error {
	g.logf("waitIdle")
	for _, f := range g.fences {
		if f.pending {
			f.pending = false
			f.signaled = true
		}
	}
	return nil
}

func (g *fakeGPU) Destroy() {
	if !g.deviceLive {
		g.violate("device destroyed twice")
	}
	g.deviceLive = false
	g.logf("destroy device")
}

func (g *fakeGPU) CreateSwapchain(desc SwapchainDesc) (Swapchain, error) {
	if err := g.fail("CreateSwapchain"); err != nil {
		return 0, err
	}
	sc := Swapchain(g.create("swapchain"))
	images := make([]Image, desc.MinImageCount)
	for i := range images {
		images[i] = Image(g.label("image"))
	}
	g.swapImages[sc] = images
	g.swapDescs = append(g.swapDescs, desc)
	return sc, nil
}

func (g *fakeGPU) SwapchainImages(sc Swapchain) ([]Image, error) {
	return append([]Image(nil), g.swapImages[sc]...), nil
}

func (g *fakeGPU) DestroySwapchain(sc Swapchain) { g.destroy(Handle(sc)) }

func (g *fakeGPU) CreateImageView(desc ImageViewDesc) (ImageView, error) {
	if err := g.fail("CreateImageView"); err != nil {
		return 0, err
	}
	return ImageView(g.create("view")), nil
}

func (g *fakeGPU) DestroyImageView(iv ImageView) { g.destroy(Handle(iv)) }

func (g *fakeGPU) CreateRenderPass(desc RenderPassDesc) (RenderPass, error) {
	if err := g.fail("CreateRenderPass"); err != nil {
		return 0, err
	}
	return RenderPass(g.create("renderpass")), nil
}

func (g *fakeGPU) DestroyRenderPass(rp RenderPass) { g.destroy(Handle(rp)) }

func (g *fakeGPU) CreateShaderModule(code []byte) (ShaderModule, error) {
	if err := g.fail("CreateShaderModule"); err != nil {
		return 0, err
	}
	return ShaderModule(g.create("shader")), nil
}

func (g *fakeGPU) DestroyShaderModule(sm ShaderModule) { g.destroy(Handle(sm)) }

func (g *fakeGPU) CreatePipelineLayout() (PipelineLayout, error) {
	if err := g.fail("CreatePipelineLayout"); err != nil {
		return 0, err
	}
	return PipelineLayout(g.create("layout")), nil
}

func (g *fakeGPU) DestroyPipelineLayout(pl PipelineLayout) { g.destroy(Handle(pl)) }

func (g *fakeGPU) CreateGraphicsPipeline(desc PipelineDesc) (Pipeline, error) {
	if err := g.fail("CreateGraphicsPipeline"); err != nil {
		return 0, err
	}
	if _, ok := g.live[Handle(desc.VertexShader)]; !ok {
		g.violate("pipeline created with dead vertex shader")
	}
	if _, ok := g.live[Handle(desc.FragmentShader)]; !ok {
		g.violate("pipeline created with dead fragment shader")
	}
	g.pipelineDescs = append(g.pipelineDescs, desc)
	return Pipeline(g.create("pipeline")), nil
}

func (g *fakeGPU) DestroyPipeline(p Pipeline) { g.destroy(Handle(p)) }

func (g *fakeGPU) CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error) {
	if err := g.fail("CreateFramebuffer"); err != nil {
		return 0, err
	}
	return Framebuffer(g.create("framebuffer")), nil
}

func (g *fakeGPU) DestroyFramebuffer(fb Framebuffer) { g.destroy(Handle(fb)) }

func (g *fakeGPU) CreateCommandPool(family uint32) (CommandPool, error) {
	if err := g.fail("CreateCommandPool"); err != nil {
		return 0, err
	}
	return CommandPool(g.create("cmdpool")), nil
}

func (g *fakeGPU) DestroyCommandPool(cp CommandPool) { g.destroy(Handle(cp)) }

func (g *fakeGPU) AllocateCommandBuffers(cp CommandPool, count uint32) ([]CommandBuffer, error) {
	if err := g.fail("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	cbs := make([]CommandBuffer, count)
	for i := range cbs {
		cbs[i] = CommandBuffer(g.create("cmdbuf"))
	}
	return cbs, nil
}

func (g *fakeGPU) FreeCommandBuffers(cp CommandPool, cbs []CommandBuffer) {
	for _, cb := range cbs {
		g.destroy(Handle(cb))
		delete(g.cmds, cb)
	}
}

func (g *fakeGPU) BeginCommandBuffer(cb CommandBuffer) error {
	if err := g.fail("BeginCommandBuffer"); err != nil {
		return err
	}
	g.cmds[cb] = []string{"begin"}
	return nil
}

func (g *fakeGPU) CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin) {
	g.rpBegins[cb] = begin
	g.cmds[cb] = append(g.cmds[cb], fmt.Sprintf("beginRenderPass %s %v", begin.Extent, begin.ClearColor))
}

func (g *fakeGPU) CmdBindPipeline(cb CommandBuffer, p Pipeline) {
	g.cmds[cb] = append(g.cmds[cb], "bindPipeline")
}

func (g *fakeGPU) CmdDraw(cb CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	g.cmds[cb] = append(g.cmds[cb], fmt.Sprintf("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance))
}

func (g *fakeGPU) CmdEndRenderPass(cb CommandBuffer) {
	g.cmds[cb] = append(g.cmds[cb], "endRenderPass")
}

func (g *fakeGPU) EndCommandBuffer(cb CommandBuffer) error {
	if err := g.fail("EndCommandBuffer"); err != nil {
		return err
	}
	g.cmds[cb] = append(g.cmds[cb], "end")
	return nil
}

func (g *fakeGPU) CreateSemaphore() (Semaphore, error) {
	if err := g.fail("CreateSemaphore"); err != nil {
		return 0, err
	}
	s := Semaphore(g.create("sem"))
	g.sems[s] = false
	return s, nil
}

func (g *fakeGPU) DestroySemaphore(s Semaphore) {
	g.destroy(Handle(s))
	delete(g.sems, s)
}

func (g *fakeGPU) CreateFence(signaled bool) (Fence, error) {
	if err := g.fail("CreateFence"); err != nil {
		return 0, err
	}
	f := Fence(g.create("fence"))
	g.fences[f] = &fakeFence{signaled: signaled}
	return f, nil
}

func (g *fakeGPU) DestroyFence(f Fence) {
	g.destroy(Handle(f))
	delete(g.fences, f)
}

// WaitForFence completes the pending submission guarded by f. Waiting on a fence no submission will ever
// signal would block forever on a real device and is reported as a violation.
func (g *fakeGPU) WaitForFence(f Fence) error {
	ff, ok := g.fences[f]
	if !ok {
		return errors.Errorf("wait on unknown fence %d", f)
	}
	for ff.stall > 0 {
		ff.stall--
		g.logf("%s not signaled", g.name(Handle(f)))
	}
	if !ff.signaled && !ff.pending {
		g.violate("wait on %s would never return", g.name(Handle(f)))
	}
	ff.pending = false
	ff.signaled = true
	g.logf("wait %s", g.name(Handle(f)))
	return nil
}

func (g *fakeGPU) ResetFence(f Fence) error {
	ff, ok := g.fences[f]
	if !ok {
		return errors.Errorf("reset of unknown fence %d", f)
	}
	if ff.pending {
		g.violate("reset of %s while its submission is pending", g.name(Handle(f)))
	}
	ff.signaled = false
	g.logf("reset %s", g.name(Handle(f)))
	return nil
}

func (g *fakeGPU) AcquireNextImage(sc Swapchain, signal Semaphore) (uint32, Result) {
	g.calls["AcquireNextImage"]++
	n := g.calls["AcquireNextImage"]
	if _, ok := g.live[Handle(sc)]; !ok {
		g.violate("acquire on dead %s", g.name(Handle(sc)))
	}
	result := Success
	if r, ok := g.acquireResults[n]; ok {
		result = r
	}
	if result != Success && result != Suboptimal {
		g.logf("acquire %s %s", g.name(Handle(sc)), result)
		return 0, result
	}
	images := g.swapImages[sc]
	idx := g.nextImage[sc] % uint32(len(images))
	g.nextImage[sc]++
	if g.sems[signal] {
		g.violate("acquire signals %s which is still signaled", g.name(Handle(signal)))
	}
	g.sems[signal] = true
	g.logf("acquire %s image %d", g.name(Handle(sc)), idx)
	return idx, result
}

func (g *fakeGPU) QueueSubmit(q Queue, desc SubmitDesc, fence Fence) error {
	if err := g.fail("QueueSubmit"); err != nil {
		return err
	}
	if !g.sems[desc.WaitSemaphore] {
		g.violate("submit waits on unsignaled %s", g.name(Handle(desc.WaitSemaphore)))
	}
	g.sems[desc.WaitSemaphore] = false
	if g.sems[desc.SignalSemaphore] {
		g.violate("submit signals %s which is still signaled", g.name(Handle(desc.SignalSemaphore)))
	}
	g.sems[desc.SignalSemaphore] = true
	if ff := g.fences[fence]; ff == nil || ff.signaled || ff.pending {
		g.violate("submit with %s not in the reset state", g.name(Handle(fence)))
	} else {
		ff.pending = true
	}
	if _, ok := g.live[Handle(desc.CommandBuffer)]; !ok {
		g.violate("submit of dead %s", g.name(Handle(desc.CommandBuffer)))
	}
	g.submits = append(g.submits, desc)
	g.logf("submit %s fence %s", g.name(Handle(desc.CommandBuffer)), g.name(Handle(fence)))
	return nil
}

func (g *fakeGPU) QueuePresent(q Queue, desc PresentDesc) Result {
	g.calls["QueuePresent"]++
	n := g.calls["QueuePresent"]
	if !g.sems[desc.WaitSemaphore] {
		g.violate("present waits on unsignaled %s", g.name(Handle(desc.WaitSemaphore)))
	}
	g.sems[desc.WaitSemaphore] = false
	result := Success
	if r, ok := g.presentResults[n]; ok {
		result = r
	}
	g.logf("present %s image %d %s", g.name(Handle(desc.Swapchain)), desc.ImageIndex, result)
	return result
}

// fakeWindow is a window whose size and close state are set by the test.
type fakeWindow struct {
	width, height   int
	closed          bool
	closeAfterPolls int
	polls           int
	waits           int
	onWait          func(w *fakeWindow)
	resize          func(width, height int)
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{width: 800, height: 600}
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	if w.closeAfterPolls > 0 && w.polls >= w.closeAfterPolls {
		w.closed = true
	}
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if w.onWait != nil {
		w.onWait(w)
	}
}

func (w *fakeWindow) ShouldClose() bool { return w.closed }

func (w *fakeWindow) FramebufferSize() (int, int) { return w.width, w.height }

func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.resize = cb }

type fakeShaders map[string][]byte

func (s fakeShaders) Load(name string) ([]byte, error) {
	code, ok := s[name]
	if !ok {
		return nil, errors.Errorf("shader %q not found", name)
	}
	return code, nil
}

func defaultShaders() fakeShaders {
	spirv := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	return fakeShaders{"shader.vert.spv": spirv, "shader.frag.spv": spirv}
}

const testSurface = Surface(0xFACE)
