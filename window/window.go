package window

import (
	"strings"

	"github.com/pkg/errors"

	"vk_triangle/common"
	"vk_triangle/renderer"
)

type Backend string

const (
	SDL  Backend = "sdl"
	GLFW Backend = "glfw"
)

// Window is a platform window able to host a Vulkan surface.
type Window interface {
	renderer.Window
	common.VulkanWindow
	Destroy()
}

// ParseBackend maps a configuration value onto a backend, the empty string selects SDL.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", SDL:
		return SDL, nil
	case GLFW:
		return GLFW, nil
	default:
		return "", errors.Errorf("unknown window backend %q, expected %q or %q", s, SDL, GLFW)
	}
}

// New opens a resizable window with the given backend. Both backends have to be used from the main thread.
func New(backend Backend, title string, width, height int) (Window, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid window size %dx%d", width, height)
	}
	switch backend {
	case SDL:
		return NewSDLWindow(title, int32(width), int32(height))
	case GLFW:
		return NewGLFWWindow(title, width, height)
	default:
		return nil, errors.Errorf("unknown window backend %q", backend)
	}
}
