package window

import (
	"fmt"
	"log"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const SDL_MAJOR, SDL_MINOR, SDL_PATCH = int(sdl.MAJOR_VERSION), int(sdl.MINOR_VERSION), int(sdl.PATCHLEVEL)

// SDLWindow uses SDL for window management and user input. Quitting or pressing escape requests the window to
// close, resize events are forwarded to the registered callback.
type SDLWindow struct {
	sdlVersion string

	Win       *sdl.Window
	Minimized bool
	Close     bool

	onResize func(width, height int)
}

func NewSDLWindow(title string, width int32, height int32) (*SDLWindow, error) {
	w := &SDLWindow{
		sdlVersion: fmt.Sprintf("v%d.%d.%d", SDL_MAJOR, SDL_MINOR, SDL_PATCH),
	}
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "initialize SDL")
	}
	log.Println("Initialized SDL")
	win, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width,
		height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_VULKAN,
	)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create SDL window for use with Vulkan")
	}
	log.Printf("Created SDL %s window for use with Vulkan. Title: \"%s\", Width: %d, Height: %d", w.sdlVersion, title, width, height)
	w.Win = win
	return w, nil
}

func (w *SDLWindow) Destroy() {
	if err := w.Win.Destroy(); err != nil {
		log.Printf("Failed to destroy SDL window: %v", err)
	}
	sdl.Quit()
}

func (w *SDLWindow) handle(event sdl.Event) {
	switch ev := event.(type) {
	case *sdl.QuitEvent:
		w.Close = true
	case *sdl.WindowEvent:
		switch ev.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			if w.onResize != nil {
				width, height := w.FramebufferSize()
				w.onResize(width, height)
			}
		case sdl.WINDOWEVENT_MINIMIZED:
			w.Minimized = true
		case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_MAXIMIZED:
			w.Minimized = false
		}
	case *sdl.KeyboardEvent:
		if ev.Keysym.Sym == sdl.K_ESCAPE {
			w.Close = true
		}
	}
}

func (w *SDLWindow) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
}

func (w *SDLWindow) WaitEvents() {
	if event := sdl.WaitEvent(); event != nil {
		w.handle(event)
	}
	w.PollEvents()
}

func (w *SDLWindow) ShouldClose() bool {
	return w.Close
}

// FramebufferSize is the drawable size in pixels, which differs from the window size on high-dpi screens. A
// minimized window reports 0x0.
func (w *SDLWindow) FramebufferSize() (width, height int) {
	if w.Minimized {
		return 0, 0
	}
	dw, dh := w.Win.VulkanGetDrawableSize()
	return int(dw), int(dh)
}

func (w *SDLWindow) SetResizeCallback(cb func(width, height int)) {
	w.onResize = cb
}

func (w *SDLWindow) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *SDLWindow) RequiredInstanceExtensions() []string {
	return w.Win.VulkanGetInstanceExtensions()
}

func (w *SDLWindow) CreateVulkanSurface(instance vk.Instance) (uintptr, error) {
	surfPtr, err := w.Win.VulkanCreateSurface(instance)
	if err != nil {
		return 0, err
	}
	return uintptr(surfPtr), nil
}
