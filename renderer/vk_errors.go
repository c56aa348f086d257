package renderer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoVulkanDevice is returned when the platform reports no physical device at all.
	ErrNoVulkanDevice = errors.New("there are 0 physical devices available")
	// ErrNoSuitableDevice is returned when devices exist but none of them meets the requirements.
	ErrNoSuitableDevice = errors.New("no suitable physical device (GPU) found")

	// errSwapchainStale marks a presentation chain that must be rebuilt. It never leaves the frame pacer.
	errSwapchainStale = errors.New("swap chain is out of date")
)

// InitializationError is a fatal failure while bringing up the renderer.
type InitializationError struct {
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// DeviceCreationError wraps any provider failure while creating the logical device.
type DeviceCreationError struct {
	Err error
}

func (e *DeviceCreationError) Error() string {
	return fmt.Sprintf("create logical device: %v", e.Err)
}

func (e *DeviceCreationError) Unwrap() error { return e.Err }

// SwapchainStep names the part of a presentation chain build that failed.
type SwapchainStep int

const (
	StepSwapchain SwapchainStep = iota
	StepImageViews
	StepRenderPass
	StepPipeline
	StepFramebuffers
	StepCommandBuffers
)

func (s SwapchainStep) String() string {
	switch s {
	case StepSwapchain:
		return "swap chain"
	case StepImageViews:
		return "image views"
	case StepRenderPass:
		return "render pass"
	case StepPipeline:
		return "graphics pipeline"
	case StepFramebuffers:
		return "framebuffers"
	case StepCommandBuffers:
		return "command buffers"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// SwapchainCreationError is returned by a failed build. All sub-resources of the failed attempt have been
// released when it is returned.
type SwapchainCreationError struct {
	Step SwapchainStep
	Err  error
}

func (e *SwapchainCreationError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Step, e.Err)
}

func (e *SwapchainCreationError) Unwrap() error { return e.Err }

// PresentationError is a fatal acquire or present status.
type PresentationError struct {
	Op     string
	Result Result
}

func (e *PresentationError) Error() string {
	return fmt.Sprintf("%s failed with: %s", e.Op, e.Result)
}
