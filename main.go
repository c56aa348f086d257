package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/pkg/profile"

	"vk_triangle/common"
	"vk_triangle/config"
	"vk_triangle/renderer"
	"vk_triangle/shader"
	"vk_triangle/window"
)

func init() {
	// SDL and GLFW both require their calls to come from the main thread
	runtime.LockOSThread()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	log.Println("Starting triangle renderer")
	log.Printf("Using GoLang: [%s]", runtime.Version())
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "triangle: %v\n", err)
		os.Exit(1)
	}
}

func startProfile(mode string) interface{ Stop() } {
	opts := []func(*profile.Profile){profile.ProfilePath("."), profile.NoShutdownHook}
	switch mode {
	case "cpu":
		return profile.Start(append(opts, profile.CPUProfile)...)
	case "mem":
		return profile.Start(append(opts, profile.MemProfile)...)
	case "trace":
		return profile.Start(append(opts, profile.TraceProfile)...)
	default:
		return nil
	}
}

func run() error {
	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return err
	}
	if prof := startProfile(cfg.Profile); prof != nil {
		defer prof.Stop()
	}

	backend, err := window.ParseBackend(cfg.Window)
	if err != nil {
		return err
	}
	win, err := window.New(backend, cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer win.Destroy()

	in, err := common.NewInstance(win, common.InstanceConfig{
		AppName:          cfg.Title,
		ValidationLayers: cfg.EnabledLayers(),
	})
	if err != nil {
		return err
	}
	defer in.Destroy()

	shaderDir, err := shader.ResolveDir(cfg.ShaderDir)
	if err != nil {
		return err
	}
	shaders, err := shader.NewLoader(shaderDir, cfg.ShaderCacheSize)
	if err != nil {
		return err
	}
	log.Printf("Loading shaders from %s", shaders.Dir())

	core, err := renderer.NewCore(in, in.Surface(), win, shaders, renderer.Options{
		FramesInFlight:   cfg.FramesInFlight,
		DeviceExtensions: cfg.DeviceExtensions,
		ValidationLayers: cfg.EnabledLayers(),
		ClearColor:       cfg.ClearColor,
		VertexShader:     cfg.VertexShader,
		FragmentShader:   cfg.FragmentShader,
	})
	if err != nil {
		return err
	}
	defer core.Destroy()

	return core.Loop()
}
