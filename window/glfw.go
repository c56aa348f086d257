package window

import (
	"log"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// GLFWWindow is the GLFW counterpart of SDLWindow. GLFW tracks the close request itself, escape only sets it.
type GLFWWindow struct {
	Win *glfw.Window
}

func NewGLFWWindow(title string, width, height int) (*GLFWWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "initialize GLFW")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("GLFW reports no Vulkan support")
	}
	// No OpenGL context, the surface is created through Vulkan
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create GLFW window")
	}
	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Release {
			w.SetShouldClose(true)
		}
	})
	log.Printf("Created GLFW %s window for use with Vulkan. Title: \"%s\", Width: %d, Height: %d", glfw.GetVersionString(), title, width, height)
	return &GLFWWindow{Win: win}, nil
}

func (w *GLFWWindow) Destroy() {
	w.Win.Destroy()
	glfw.Terminate()
}

func (w *GLFWWindow) PollEvents() {
	glfw.PollEvents()
}

func (w *GLFWWindow) WaitEvents() {
	glfw.WaitEvents()
}

func (w *GLFWWindow) ShouldClose() bool {
	return w.Win.ShouldClose()
}

func (w *GLFWWindow) FramebufferSize() (width, height int) {
	return w.Win.GetFramebufferSize()
}

func (w *GLFWWindow) SetResizeCallback(cb func(width, height int)) {
	w.Win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		cb(width, height)
	})
}

func (w *GLFWWindow) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *GLFWWindow) RequiredInstanceExtensions() []string {
	return w.Win.GetRequiredInstanceExtensions()
}

func (w *GLFWWindow) CreateVulkanSurface(instance vk.Instance) (uintptr, error) {
	return w.Win.CreateWindowSurface(instance, nil)
}
