package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const EnvPrefix = "VKTRIANGLE_"

// Config holds every setting of the program. There are no command line flags, values are overridden through
// environment variables named EnvPrefix + the upper case setting.
type Config struct {
	Title  string
	Width  int
	Height int
	Window string // "sdl" or "glfw"

	Validation       bool
	ValidationLayers []string
	DeviceExtensions []string

	FramesInFlight int
	ClearColor     [4]float32

	ShaderDir       string // empty resolves to the shaders directory next to the executable
	VertexShader    string
	FragmentShader  string
	ShaderCacheSize int

	Profile string // "", "cpu", "mem" or "trace"
}

func Default() Config {
	return Config{
		Title:            "Triangle",
		Width:            800,
		Height:           600,
		Window:           "sdl",
		Validation:       true,
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		DeviceExtensions: []string{"VK_KHR_swapchain"},
		FramesInFlight:   2,
		ClearColor:       [4]float32{0, 0, 0, 1},
		VertexShader:     "shader.vert.spv",
		FragmentShader:   "shader.frag.spv",
		ShaderCacheSize:  8,
	}
}

// EnabledLayers is the validation layer list to request, empty when validation is off.
func (c Config) EnabledLayers() []string {
	if !c.Validation {
		return nil
	}
	return c.ValidationLayers
}

// FromEnv applies the overrides found through lookup, usually os.LookupEnv, on top of Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var err error
	if v, ok := lookup(EnvPrefix + "TITLE"); ok {
		c.Title = v
	}
	if v, ok := lookup(EnvPrefix + "WIDTH"); ok {
		if c.Width, err = positiveInt("WIDTH", v); err != nil {
			return c, err
		}
	}
	if v, ok := lookup(EnvPrefix + "HEIGHT"); ok {
		if c.Height, err = positiveInt("HEIGHT", v); err != nil {
			return c, err
		}
	}
	if v, ok := lookup(EnvPrefix + "WINDOW"); ok {
		c.Window = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvPrefix + "VALIDATION"); ok {
		if c.Validation, err = strconv.ParseBool(v); err != nil {
			return c, errors.Wrapf(err, "%sVALIDATION", EnvPrefix)
		}
	}
	if v, ok := lookup(EnvPrefix + "FRAMES_IN_FLIGHT"); ok {
		if c.FramesInFlight, err = positiveInt("FRAMES_IN_FLIGHT", v); err != nil {
			return c, err
		}
	}
	if v, ok := lookup(EnvPrefix + "SHADER_DIR"); ok {
		c.ShaderDir = v
	}
	if v, ok := lookup(EnvPrefix + "PROFILE"); ok {
		switch p := strings.ToLower(strings.TrimSpace(v)); p {
		case "", "cpu", "mem", "trace":
			c.Profile = p
		default:
			return c, errors.Errorf("%sPROFILE: unknown profile %q", EnvPrefix, v)
		}
	}
	return c, nil
}

func positiveInt(name, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.Wrapf(err, "%s%s", EnvPrefix, name)
	}
	if n <= 0 {
		return 0, errors.Errorf("%s%s must be positive, got %d", EnvPrefix, name, n)
	}
	return n, nil
}
