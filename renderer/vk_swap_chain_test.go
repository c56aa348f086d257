package renderer

import (
	"reflect"
	"testing"
	"testing/quick"

	"github.com/pkg/errors"
)

func TestChooseSwapExtentUsesCurrentExtent(t *testing.T) {
	caps := SurfaceCapabilities{
		CurrentExtent:  Extent2D{Width: 640, Height: 480},
		MinImageExtent: Extent2D{Width: 1, Height: 1},
		MaxImageExtent: Extent2D{Width: 4096, Height: 4096},
	}
	if got := chooseSwapExtent(caps, 1920, 1080); got != caps.CurrentExtent {
		t.Errorf("got %s, want %s", got, caps.CurrentExtent)
	}
}

func TestChooseSwapExtentClampsAdaptiveSurface(t *testing.T) {
	f := func(a, b, c, d uint16, fbW, fbH int16) bool {
		caps := SurfaceCapabilities{
			CurrentExtent:  AdaptiveExtent,
			MinImageExtent: Extent2D{Width: uint32(min(a, b)), Height: uint32(min(c, d))},
			MaxImageExtent: Extent2D{Width: uint32(max(a, b)), Height: uint32(max(c, d))},
		}
		got := chooseSwapExtent(caps, int(fbW), int(fbH))
		if got.Width < caps.MinImageExtent.Width || got.Width > caps.MaxImageExtent.Width {
			return false
		}
		if got.Height < caps.MinImageExtent.Height || got.Height > caps.MaxImageExtent.Height {
			return false
		}
		// Inside the limits the framebuffer size is taken as is
		if fbW >= 0 && uint32(fbW) >= caps.MinImageExtent.Width && uint32(fbW) <= caps.MaxImageExtent.Width &&
			got.Width != uint32(fbW) {
			return false
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestChooseImageCount(t *testing.T) {
	cases := []struct {
		min, max, want uint32
	}{
		{2, 0, 3},
		{2, 2, 2},
		{2, 8, 3},
		{3, 3, 3},
	}
	for _, tc := range cases {
		got := chooseImageCount(SurfaceCapabilities{MinImageCount: tc.min, MaxImageCount: tc.max})
		if got != tc.want {
			t.Errorf("min %d max %d: got %d, want %d", tc.min, tc.max, got, tc.want)
		}
	}
}

func TestSelectSwapSurfaceFormat(t *testing.T) {
	preferred := SurfaceFormat{Format: FormatB8g8r8a8Srgb, ColorSpace: ColorSpaceSrgbNonlinear}
	other := SurfaceFormat{Format: FormatR8g8b8a8Unorm, ColorSpace: ColorSpaceSrgbNonlinear}
	if got := selectSwapSurfaceFormat([]SurfaceFormat{other, preferred}); got != preferred {
		t.Errorf("got %+v, want %+v", got, preferred)
	}
	if got := selectSwapSurfaceFormat([]SurfaceFormat{other}); got != other {
		t.Errorf("fallback: got %+v, want %+v", got, other)
	}
}

func TestSelectSwapPresentMode(t *testing.T) {
	if got := selectSwapPresentMode([]PresentMode{PresentModeFifo, PresentModeMailbox}); got != PresentModeMailbox {
		t.Errorf("got %s, want mailbox", got)
	}
	if got := selectSwapPresentMode([]PresentMode{PresentModeImmediate, PresentModeFifoRelaxed}); got != PresentModeFifo {
		t.Errorf("got %s, want fifo", got)
	}
}

func TestSharingModeFollowsQueueFamilies(t *testing.T) {
	dev := newTestDevice("split")
	dev.families = []QueueFamilyProperties{{QueueCount: 1}, {QueueCount: 4, Graphics: true}}
	dev.present = map[uint32]bool{0: true}
	g := newFakeGPU(dev)
	c := newTestCore(t, g, newFakeWindow(), Options{})
	defer c.Destroy()

	desc := g.swapDescs[0]
	if desc.SharingMode != SharingModeConcurrent {
		t.Errorf("sharing mode: got %d, want concurrent", desc.SharingMode)
	}
	if want := []uint32{1, 0}; !reflect.DeepEqual(desc.QueueFamilyIndices, want) {
		t.Errorf("queue family indices: got %v, want %v", desc.QueueFamilyIndices, want)
	}
	if got := len(g.deviceDesc.Queues); got != 2 {
		t.Errorf("queue create infos: got %d, want 2", got)
	}

	g2 := newFakeGPU(newTestDevice("shared"))
	c2 := newTestCore(t, g2, newFakeWindow(), Options{})
	defer c2.Destroy()
	if desc := g2.swapDescs[0]; desc.SharingMode != SharingModeExclusive || len(desc.QueueFamilyIndices) != 0 {
		t.Errorf("shared family: got %d %v, want exclusive without indices", desc.SharingMode, desc.QueueFamilyIndices)
	}
}

func TestBuildUsesSurfaceSettings(t *testing.T) {
	dev := newTestDevice("gpu")
	dev.caps.CurrentTransform = SurfaceTransform(4)
	g := newFakeGPU(dev)
	c := newTestCore(t, g, newFakeWindow(), Options{})
	defer c.Destroy()

	desc := g.swapDescs[0]
	if desc.PreTransform != SurfaceTransform(4) {
		t.Errorf("pre transform: got %d, want current transform 4", desc.PreTransform)
	}
	if desc.Format.Format != FormatB8g8r8a8Srgb || desc.PresentMode != PresentModeMailbox {
		t.Errorf("got format %d mode %s", desc.Format.Format, desc.PresentMode)
	}
	p := g.pipelineDescs[0]
	if p.Topology != PrimitiveTopologyTriangleList || p.CullMode != CullModeBack || p.FrontFace != FrontFaceClockwise {
		t.Errorf("unexpected fixed function state %+v", p)
	}
	if p.EntryPoint != "main" || p.Viewport != (Extent2D{Width: 800, Height: 600}) {
		t.Errorf("unexpected shader entry or viewport %+v", p)
	}
}

func TestBuildFailureReleasesPartialObjects(t *testing.T) {
	cases := []struct {
		op   string
		nth  int
		step SwapchainStep
	}{
		{"CreateSwapchain", 1, StepSwapchain},
		{"CreateImageView", 3, StepImageViews},
		{"CreateRenderPass", 1, StepRenderPass},
		{"CreatePipelineLayout", 1, StepPipeline},
		{"CreateGraphicsPipeline", 1, StepPipeline},
		{"CreateFramebuffer", 2, StepFramebuffers},
		{"EndCommandBuffer", 2, StepCommandBuffers},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			g := newFakeGPU(newTestDevice("gpu"))
			c := newTestCore(t, g, newFakeWindow(), Options{})
			defer c.Destroy()

			sc := c.SwapChain()
			sc.Teardown()
			before := g.leaks()

			g.calls[tc.op] = 0
			g.failOn[tc.op] = tc.nth
			caps, err := ProbeCapabilities(g, c.device.PhysicalDevice, testSurface)
			if err != nil {
				t.Fatal(err)
			}
			err = sc.Build(caps)
			if err == nil {
				err = sc.Record()
			}
			var sce *SwapchainCreationError
			if !errors.As(err, &sce) {
				t.Fatalf("got %v, want SwapchainCreationError", err)
			}
			if sce.Step != tc.step {
				t.Errorf("step: got %s, want %s", sce.Step, tc.step)
			}
			if tc.step != StepCommandBuffers {
				if sc.Chain() != nil {
					t.Error("failed build left a chain behind")
				}
				if after := g.leaks(); !reflect.DeepEqual(after, before) {
					t.Errorf("objects alive after failed build: %v, before: %v", after, before)
				}
			} else if got := g.liveCount("cmdbuf"); got != 0 {
				t.Errorf("%d command buffers alive after failed recording", got)
			}
			checkClean(t, g)
		})
	}
}

func TestRecordedCommands(t *testing.T) {
	g := newFakeGPU(newTestDevice("gpu"))
	c := newTestCore(t, g, newFakeWindow(), Options{ClearColor: [4]float32{0, 0, 0, 1}})
	defer c.Destroy()

	chain := c.SwapChain().Chain()
	if len(chain.CommandBuffers) != len(chain.FrameBuffers) {
		t.Fatalf("got %d command buffers for %d framebuffers", len(chain.CommandBuffers), len(chain.FrameBuffers))
	}
	want := []string{"begin", "beginRenderPass 800x600 [0 0 0 1]", "bindPipeline", "draw 3 1 0 0", "endRenderPass", "end"}
	for i, cb := range chain.CommandBuffers {
		if got := g.cmds[cb]; !reflect.DeepEqual(got, want) {
			t.Errorf("command buffer %d: got %v, want %v", i, got, want)
		}
		if got := g.rpBegins[cb].Framebuffer; got != chain.FrameBuffers[i] {
			t.Errorf("command buffer %d renders into %s, want %s", i, g.name(Handle(got)), g.name(Handle(chain.FrameBuffers[i])))
		}
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	g := newFakeGPU(newTestDevice("gpu"))
	c := newTestCore(t, g, newFakeWindow(), Options{})
	defer c.Destroy()
	sc := c.SwapChain()

	snapshot := func() (*PresentationChain, [][]string) {
		chain := sc.Chain()
		ops := make([][]string, len(chain.CommandBuffers))
		for i, cb := range chain.CommandBuffers {
			ops[i] = append([]string(nil), g.cmds[cb]...)
		}
		return chain, ops
	}
	first, firstOps := snapshot()
	liveBefore := len(g.live)

	if err := sc.Rebuild(); err != nil {
		t.Fatal(err)
	}
	second, secondOps := snapshot()

	if !reflect.DeepEqual(firstOps, secondOps) {
		t.Errorf("recorded commands differ: %v vs %v", firstOps, secondOps)
	}
	if first.Handle == second.Handle || first.Pipeline == second.Pipeline || first.RenderPass == second.RenderPass {
		t.Error("rebuild reused handles of the previous chain")
	}
	if len(g.live) != liveBefore {
		t.Errorf("live objects: got %d, want %d", len(g.live), liveBefore)
	}
	checkClean(t, g)
}

func TestRebuildWaitsWhileMinimized(t *testing.T) {
	g := newFakeGPU(newTestDevice("gpu"))
	win := newFakeWindow()
	c := newTestCore(t, g, win, Options{})
	defer c.Destroy()

	win.width, win.height = 0, 0
	win.onWait = func(w *fakeWindow) {
		if w.waits == 2 {
			w.width, w.height = 800, 600
		}
	}
	if err := c.SwapChain().Rebuild(); err != nil {
		t.Fatal(err)
	}
	if win.waits != 2 {
		t.Errorf("waited for events %d times, want 2", win.waits)
	}
	if g.indexOf("create swapchain#1", 0) < 0 {
		t.Error("chain not rebuilt after restore")
	}
}

func TestRebuildReturnsWhenClosedWhileMinimized(t *testing.T) {
	g := newFakeGPU(newTestDevice("gpu"))
	win := newFakeWindow()
	c := newTestCore(t, g, win, Options{})
	defer c.Destroy()

	chain := c.SwapChain().Chain()
	win.width, win.height = 0, 0
	win.onWait = func(w *fakeWindow) { w.closed = true }
	if err := c.SwapChain().Rebuild(); err != nil {
		t.Fatal(err)
	}
	if c.SwapChain().Chain() != chain {
		t.Error("chain replaced although the window was closed")
	}
	if win.waits != 1 {
		t.Errorf("waited for events %d times, want 1", win.waits)
	}
}
