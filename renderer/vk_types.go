package renderer

import (
	"fmt"
	"math"
)

// Handle identifies an object owned by the graphics provider. Handles are small integer IDs handed out by the
// provider, the zero value is the null handle and is never returned by a successful create call.
type Handle uint64

const NullHandle Handle = 0

type (
	PhysicalDevice Handle
	Surface        Handle
	Queue          Handle
	Swapchain      Handle
	Image          Handle
	ImageView      Handle
	RenderPass     Handle
	ShaderModule   Handle
	PipelineLayout Handle
	Pipeline       Handle
	Framebuffer    Handle
	CommandPool    Handle
	CommandBuffer  Handle
	Semaphore      Handle
	Fence          Handle
)

// The enumerations below carry the numeric values of the Vulkan API, providers convert them by plain casts.

type Format uint32

const (
	FormatUndefined     Format = 0
	FormatR8g8b8a8Unorm Format = 37
	FormatR8g8b8a8Srgb  Format = 43
	FormatB8g8r8a8Unorm Format = 44
	FormatB8g8r8a8Srgb  Format = 50
)

type ColorSpace uint32

const ColorSpaceSrgbNonlinear ColorSpace = 0

type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo relaxed"
	default:
		return fmt.Sprintf("present mode %d", uint32(m))
	}
}

// Result is the status code reported by acquire and present operations.
type Result int32

const (
	Success           Result = 0
	NotReady          Result = 1
	Timeout           Result = 2
	Suboptimal        Result = 1000001003
	ErrorDeviceLost   Result = -4
	ErrorSurfaceLost  Result = -1000000000
	ErrorOutOfDate    Result = -1000001004
	ErrorFullScreenEx Result = -1000255000
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NotReady:
		return "not ready"
	case Timeout:
		return "timeout"
	case Suboptimal:
		return "suboptimal"
	case ErrorDeviceLost:
		return "device lost"
	case ErrorSurfaceLost:
		return "surface lost"
	case ErrorOutOfDate:
		return "out of date"
	case ErrorFullScreenEx:
		return "full screen exclusive mode lost"
	default:
		return fmt.Sprintf("result code %d", int32(r))
	}
}

type SurfaceTransform uint32

const SurfaceTransformIdentity SurfaceTransform = 1

type SharingMode uint32

const (
	SharingModeExclusive  SharingMode = 0
	SharingModeConcurrent SharingMode = 1
)

type ImageLayout uint32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

type AttachmentLoadOp uint32

const (
	AttachmentLoadOpLoad     AttachmentLoadOp = 0
	AttachmentLoadOpClear    AttachmentLoadOp = 1
	AttachmentLoadOpDontCare AttachmentLoadOp = 2
)

type AttachmentStoreOp uint32

const (
	AttachmentStoreOpStore    AttachmentStoreOp = 0
	AttachmentStoreOpDontCare AttachmentStoreOp = 1
)

type PrimitiveTopology uint32

const PrimitiveTopologyTriangleList PrimitiveTopology = 3

type PolygonMode uint32

const PolygonModeFill PolygonMode = 0

type CullMode uint32

const (
	CullModeNone CullMode = 0
	CullModeBack CullMode = 2
)

type FrontFace uint32

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

type PipelineStage uint32

const PipelineStageColorAttachmentOutput PipelineStage = 0x00000400

type Extent2D struct {
	Width  uint32
	Height uint32
}

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// AdaptiveExtent is reported as the current extent by surfaces whose size is determined by the swap chain.
var AdaptiveExtent = Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}

func (e Extent2D) isAdaptive() bool {
	return e.Width == math.MaxUint32
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceCapabilities struct {
	MinImageCount       uint32
	MaxImageCount       uint32 // 0 means unbounded
	CurrentExtent       Extent2D
	MinImageExtent      Extent2D
	MaxImageExtent      Extent2D
	SupportedTransforms SurfaceTransform
	CurrentTransform    SurfaceTransform
}

type QueueFamilyProperties struct {
	QueueCount uint32
	Graphics   bool
}

// Create and submit descriptions. They mirror the Vulkan create infos with everything this renderer never
// varies left out.

type DeviceQueueDesc struct {
	Family   uint32
	Count    uint32
	Priority float32
}

type DeviceDesc struct {
	Queues           []DeviceQueueDesc
	Extensions       []string
	ValidationLayers []string
}

type SwapchainDesc struct {
	Surface            Surface
	MinImageCount      uint32
	Format             SurfaceFormat
	Extent             Extent2D
	SharingMode        SharingMode
	QueueFamilyIndices []uint32
	PreTransform       SurfaceTransform
	PresentMode        PresentMode
}

// ImageViewDesc describes a 2D colour view with identity swizzle over a single mip level and array layer.
type ImageViewDesc struct {
	Image  Image
	Format Format
}

// RenderPassDesc describes a single colour attachment render pass with one graphics subpass.
type RenderPassDesc struct {
	ColorFormat   Format
	LoadOp        AttachmentLoadOp
	StoreOp       AttachmentStoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

type PipelineDesc struct {
	Layout         PipelineLayout
	RenderPass     RenderPass
	Subpass        uint32
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	EntryPoint     string
	Topology       PrimitiveTopology
	Viewport       Extent2D
	PolygonMode    PolygonMode
	CullMode       CullMode
	FrontFace      FrontFace
	Samples        uint32
	BlendEnable    bool
}

type FramebufferDesc struct {
	RenderPass RenderPass
	Attachment ImageView
	Extent     Extent2D
}

type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      Extent2D
	ClearColor  [4]float32
}

type SubmitDesc struct {
	WaitSemaphore   Semaphore
	WaitStage       PipelineStage
	CommandBuffer   CommandBuffer
	SignalSemaphore Semaphore
}

type PresentDesc struct {
	WaitSemaphore Semaphore
	Swapchain     Swapchain
	ImageIndex    uint32
}
