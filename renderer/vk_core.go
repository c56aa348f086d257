package renderer

import (
	"log"
)

// Options configures a render core. Zero values select the defaults.
type Options struct {
	FramesInFlight   int
	DeviceExtensions []string
	ValidationLayers []string
	ClearColor       [4]float32
	VertexShader     string
	FragmentShader   string
}

func (o Options) withDefaults() Options {
	if o.FramesInFlight <= 0 {
		o.FramesInFlight = DEFAULT_FRAMES_IN_FLIGHT
	}
	if len(o.DeviceExtensions) == 0 {
		o.DeviceExtensions = DefaultDeviceExtensions
	}
	if o.VertexShader == "" {
		o.VertexShader = "shader.vert.spv"
	}
	if o.FragmentShader == "" {
		o.FragmentShader = "shader.frag.spv"
	}
	return o
}

// Core owns everything below the instance and surface: the logical device, the presentation chain and the
// frame synchronization. The caller keeps ownership of instance, surface and window.
type Core struct {
	// Device level
	device *DeviceContext

	// Target level
	swapChain *SwapChain

	// Frame level
	commandPool CommandPool
	pacer       *FramePacer
}

// NewCore selects a physical device for surface, binds it and builds the first presentation chain. On error
// every object created so far is released again.
func NewCore(in Instance, surface Surface, win Window, shaders ShaderSource, opts Options) (*Core, error) {
	opts = opts.withDefaults()
	c := &Core{}
	if err := c.initialize(in, surface, win, shaders, opts); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Core) initialize(in Instance, surface Surface, win Window, shaders ShaderSource, opts Options) error {
	pd, caps, err := SelectPhysicalDevice(in, surface, opts.DeviceExtensions)
	if err != nil {
		return err
	}
	c.device, err = NewDeviceContext(in, pd, caps.Families, opts.DeviceExtensions, opts.ValidationLayers)
	if err != nil {
		return err
	}

	c.commandPool, err = c.device.D.CreateCommandPool(*caps.Families.GraphicsFamily)
	if err != nil {
		return &InitializationError{Stage: "command pool", Err: err}
	}

	c.swapChain, err = NewSwapChain(in, surface, c.device, win, shaders, c.commandPool, SwapChainConfig{
		VertexShader:   opts.VertexShader,
		FragmentShader: opts.FragmentShader,
		ClearColor:     opts.ClearColor,
	}, caps)
	if err != nil {
		return err
	}

	c.pacer, err = NewFramePacer(c.device, c.swapChain, win, opts.FramesInFlight)
	if err != nil {
		return err
	}
	win.SetResizeCallback(func(width, height int) {
		c.swapChain.RequestResize()
	})
	log.Printf("Render core ready with %d frames in flight", opts.FramesInFlight)
	return nil
}

// Loop renders until the window is closed. All fatal errors are returned, staleness is handled internally.
func (c *Core) Loop() error {
	return c.pacer.Run()
}

// DrawFrame renders a single frame. It is exposed for callers driving their own event loop.
func (c *Core) DrawFrame() error {
	return c.pacer.DrawFrame()
}

// Pacer exposes the frame pacer for inspection.
func (c *Core) Pacer() *FramePacer {
	return c.pacer
}

// SwapChain exposes the swap chain manager for inspection.
func (c *Core) SwapChain() *SwapChain {
	return c.swapChain
}

// Destroy tears the core down in reverse creation order. It is safe on a partially initialized core.
func (c *Core) Destroy() {
	if c.device == nil {
		return
	}
	d := c.device.D
	// All submitted work has to be finished before anything it references goes away
	if err := d.WaitIdle(); err != nil {
		log.Printf("Waiting for device idle on destroy failed: %v", err)
	}
	if c.swapChain != nil {
		c.swapChain.Teardown()
		c.swapChain = nil
	}
	if c.pacer != nil {
		c.pacer.destroy()
		c.pacer = nil
	}
	d.DestroyCommandPool(c.commandPool)
	c.device.destroy()
	c.device = nil
}
