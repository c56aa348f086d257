package common

import (
	"fmt"
	"log"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"vk_triangle/renderer"
)

const APP_MAJOR, APP_MINOR, APP_PATCH = 1, 0, 0
const ENGINE_NAME = "No Engine"
const ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH = 1, 0, 0

// Vulkan spec go bindings = v1.0.7, as per: https://github.com/goki/vulkan = 1.3.239
const VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH int = 1, 3, 239

const DEBUG_REPORT_EXTENSION = "VK_EXT_debug_report"

// VulkanWindow is what a window system has to provide to host a Vulkan surface.
type VulkanWindow interface {
	VulkanProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	// CreateVulkanSurface creates a surface for the window and returns its raw handle.
	CreateVulkanSurface(instance vk.Instance) (uintptr, error)
}

type InstanceConfig struct {
	AppName          string
	ValidationLayers []string
}

// Instance owns the vk.Instance, the window surface and the optional debug report callback. It implements
// renderer.Instance by mapping physical devices and the surface onto arena handles.
type Instance struct {
	vkVersion string

	inst     vk.Instance
	surf     vk.Surface
	surface  renderer.Surface
	debug    *debugReport
	handles  renderer.Handle
	surfaces *arena[vk.Surface]
	pds      *arena[vk.PhysicalDevice]
	pdList   []renderer.PhysicalDevice
	pdNames  map[renderer.PhysicalDevice]string
}

// NewInstance loads the Vulkan loader through the window, creates the instance with the window's required
// extensions and the surface to render to. Validation is enabled when layers are given.
func NewInstance(win VulkanWindow, cfg InstanceConfig) (*Instance, error) {
	in := &Instance{
		vkVersion: fmt.Sprintf("v%d.%d.%d", VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
		pdNames:   map[renderer.PhysicalDevice]string{},
	}
	in.surfaces = newArena[vk.Surface](&in.handles)
	in.pds = newArena[vk.PhysicalDevice](&in.handles)

	// Find and load Vulkan addresses to be able to call driver level functions via provided mechanism
	vk.SetGetInstanceProcAddr(win.VulkanProcAddr())
	if err := vk.Init(); err != nil {
		return nil, &renderer.InitializationError{Stage: "vulkan loader", Err: err}
	}
	if err := in.createVulkanInstance(win, cfg); err != nil {
		return nil, err
	}
	surfPtr, err := win.CreateVulkanSurface(in.inst)
	if err != nil {
		in.Destroy()
		return nil, &renderer.InitializationError{Stage: "surface", Err: err}
	}
	in.surf = vk.SurfaceFromPointer(surfPtr)
	in.surface = renderer.Surface(in.surfaces.put(in.surf))
	log.Printf("Created Vulkan instance and surface - Vulkan Spec: %s", in.vkVersion)
	return in, nil
}

func (in *Instance) createVulkanInstance(win VulkanWindow, cfg InstanceConfig) error {
	enableValidation := len(cfg.ValidationLayers) > 0
	requiredExtensions := win.RequiredInstanceExtensions()
	supportedExtNames, err := ReadInstanceExtensionPropertyNames()
	if err != nil {
		return &renderer.InitializationError{Stage: "instance", Err: err}
	}
	if err := checkInstanceExtensionSupport(requiredExtensions, supportedExtNames); err != nil {
		return &renderer.InitializationError{Stage: "instance", Err: err}
	}

	withDebugReport := false
	if enableValidation {
		log.Printf("Validation enabled, checking layer support")
		if err := checkValidationLayerSupport(cfg.ValidationLayers); err != nil {
			return &renderer.InitializationError{Stage: "instance", Err: err}
		}
		// The debug report is optional, validation still works without it
		if renderer.AllOfAinB([]string{DEBUG_REPORT_EXTENSION}, supportedExtNames) {
			requiredExtensions = append(requiredExtensions, DEBUG_REPORT_EXTENSION)
			withDebugReport = true
		}
	}

	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PNext:              nil,
		PApplicationName:   TerminatedStr(cfg.AppName),
		ApplicationVersion: vk.MakeVersion(APP_MAJOR, APP_MINOR, APP_PATCH),
		PEngineName:        TerminatedStr(ENGINE_NAME),
		EngineVersion:      vk.MakeVersion(ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH),
		ApiVersion:         vk.MakeVersion(VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		PApplicationInfo:        applicationInfo,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: TerminatedStrs(requiredExtensions),
	}
	if enableValidation {
		createInfo.EnabledLayerCount = uint32(len(cfg.ValidationLayers))
		createInfo.PpEnabledLayerNames = TerminatedStrs(cfg.ValidationLayers)
	}
	in.inst, err = VkCreateInstance(createInfo, nil)
	if err != nil {
		return &renderer.InitializationError{Stage: "instance", Err: errors.Wrap(err, "vkCreateInstance")}
	}

	if withDebugReport {
		in.debug, err = newDebugReport(in.inst)
		if err != nil {
			// Without the callback validation messages go to the loader's default output
			log.Printf("Debug report unavailable: %v", err)
		}
	}
	return nil
}

func checkInstanceExtensionSupport(requiredInstanceExt []string, supportedExtNames []string) error {
	log.Printf("Required instance extensions: %v", requiredInstanceExt)
	log.Printf("Available extensions (%d): %v", len(supportedExtNames), supportedExtNames)
	if !renderer.AllOfAinB(requiredInstanceExt, supportedExtNames) {
		return errors.Errorf("at least one required instance extension of %v is not supported", requiredInstanceExt)
	}
	log.Println("Success - All required instance extensions are supported")
	return nil
}

func checkValidationLayerSupport(requiredLayers []string) error {
	supportedLayers, err := readInstanceLayerProperties()
	if err != nil {
		return err
	}
	log.Printf("Desired validation layers: %v", requiredLayers)
	log.Printf("Supported layers (%d):\n%s", len(supportedLayers), layerTable(supportedLayers))
	if !renderer.AllOfAinB(requiredLayers, layerNames(supportedLayers)) {
		return errors.Errorf("at least one desired validation layer of %v is not supported", requiredLayers)
	}
	log.Println("Success - All desired validation layers are supported")
	return nil
}

// Surface is the handle of the window surface for use with the renderer.
func (in *Instance) Surface() renderer.Surface {
	return in.surface
}

// Destroy tears down the debug report, surface and instance. Every device created from the instance has to
// be destroyed before.
func (in *Instance) Destroy() {
	if in.debug != nil {
		in.debug.destroy(in.inst)
		in.debug = nil
	}
	if in.surf != nil {
		vk.DestroySurface(in.inst, in.surf, nil)
		in.surfaces.take(renderer.Handle(in.surface))
		in.surf = nil
	}
	if in.inst != nil {
		vk.DestroyInstance(in.inst, nil)
		in.inst = nil
	}
}

func (in *Instance) physicalDevice(pd renderer.PhysicalDevice) (vk.PhysicalDevice, error) {
	p, ok := in.pds.get(renderer.Handle(pd))
	if !ok {
		return nil, errors.Errorf("unknown physical device %d", pd)
	}
	return p, nil
}

func (in *Instance) nativeSurface(s renderer.Surface) (vk.Surface, error) {
	surf, ok := in.surfaces.get(renderer.Handle(s))
	if !ok {
		return nil, errors.Errorf("unknown surface %d", s)
	}
	return surf, nil
}

// PhysicalDevices enumerates the devices once and logs a report for each of them. Later calls return the same
// handles.
func (in *Instance) PhysicalDevices() ([]renderer.PhysicalDevice, error) {
	if in.pdList != nil {
		return in.pdList, nil
	}
	availableDevices, err := readPhysicalDevices(in.inst)
	if err != nil {
		return nil, err
	}
	pds := make([]renderer.PhysicalDevice, len(availableDevices))
	for i, p := range availableDevices {
		pdProps := readPhysicalDeviceProperties(p)
		pds[i] = renderer.PhysicalDevice(in.pds.put(p))
		report := newDeviceReport(i, pds[i], pdProps, readQueueFamilies(p))
		log.Printf("Physical %s", report)
		in.pdNames[pds[i]] = report.name
	}
	in.pdList = pds
	return pds, nil
}

func (in *Instance) DeviceName(pd renderer.PhysicalDevice) string {
	return in.pdNames[pd]
}

func (in *Instance) QueueFamilies(pd renderer.PhysicalDevice) ([]renderer.QueueFamilyProperties, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return nil, err
	}
	qFamilies := readQueueFamilies(p)
	props := make([]renderer.QueueFamilyProperties, len(qFamilies))
	for i := range qFamilies {
		props[i] = renderer.QueueFamilyProperties{
			QueueCount: qFamilies[i].QueueCount,
			Graphics:   vk.QueueFlagBits(qFamilies[i].QueueFlags)&vk.QueueGraphicsBit > 0,
		}
	}
	return props, nil
}

func (in *Instance) SurfaceSupport(pd renderer.PhysicalDevice, family uint32, surface renderer.Surface) (bool, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return false, err
	}
	surf, err := in.nativeSurface(surface)
	if err != nil {
		return false, err
	}
	var presentSupport vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(p, family, surf, &presentSupport)); err != nil {
		return false, errors.Wrap(err, "vkGetPhysicalDeviceSurfaceSupportKHR")
	}
	return presentSupport == vk.True, nil
}

func (in *Instance) DeviceExtensions(pd renderer.PhysicalDevice) ([]string, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return nil, err
	}
	supportedExt, err := readDeviceExtensionProperties(p)
	if err != nil {
		return nil, err
	}
	return extensionNames(supportedExt), nil
}

func (in *Instance) SurfaceCapabilities(pd renderer.PhysicalDevice, surface renderer.Surface) (renderer.SurfaceCapabilities, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return renderer.SurfaceCapabilities{}, err
	}
	surf, err := in.nativeSurface(surface)
	if err != nil {
		return renderer.SurfaceCapabilities{}, err
	}
	caps, err := readSurfaceCapabilities(p, surf)
	if err != nil {
		return renderer.SurfaceCapabilities{}, errors.Wrap(err, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	}
	return renderer.SurfaceCapabilities{
		MinImageCount:       caps.MinImageCount,
		MaxImageCount:       caps.MaxImageCount,
		CurrentExtent:       fromVkExtent(caps.CurrentExtent),
		MinImageExtent:      fromVkExtent(caps.MinImageExtent),
		MaxImageExtent:      fromVkExtent(caps.MaxImageExtent),
		SupportedTransforms: renderer.SurfaceTransform(caps.SupportedTransforms),
		CurrentTransform:    renderer.SurfaceTransform(caps.CurrentTransform),
	}, nil
}

func (in *Instance) SurfaceFormats(pd renderer.PhysicalDevice, surface renderer.Surface) ([]renderer.SurfaceFormat, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return nil, err
	}
	surf, err := in.nativeSurface(surface)
	if err != nil {
		return nil, err
	}
	vkFormats, err := readSurfaceFormats(p, surf)
	if err != nil {
		return nil, errors.Wrap(err, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}
	formats := make([]renderer.SurfaceFormat, len(vkFormats))
	for i := range vkFormats {
		formats[i] = renderer.SurfaceFormat{
			Format:     renderer.Format(vkFormats[i].Format),
			ColorSpace: renderer.ColorSpace(vkFormats[i].ColorSpace),
		}
	}
	return formats, nil
}

func (in *Instance) SurfacePresentModes(pd renderer.PhysicalDevice, surface renderer.Surface) ([]renderer.PresentMode, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return nil, err
	}
	surf, err := in.nativeSurface(surface)
	if err != nil {
		return nil, err
	}
	vkModes, err := readSurfacePresentModes(p, surf)
	if err != nil {
		return nil, errors.Wrap(err, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}
	modes := make([]renderer.PresentMode, len(vkModes))
	for i := range vkModes {
		modes[i] = renderer.PresentMode(vkModes[i])
	}
	return modes, nil
}

// CreateDevice creates the logical device with the requested queues, extensions and layers.
func (in *Instance) CreateDevice(pd renderer.PhysicalDevice, desc renderer.DeviceDesc) (renderer.Device, error) {
	p, err := in.physicalDevice(pd)
	if err != nil {
		return nil, err
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(desc.Queues))
	for i, q := range desc.Queues {
		priorities := make([]float32, q.Count)
		for j := range priorities {
			priorities[j] = q.Priority
		}
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			PNext:            nil,
			Flags:            0,
			QueueFamilyIndex: q.Family,
			QueueCount:       q.Count,
			PQueuePriorities: priorities,
		}
	}
	deviceCreatInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(desc.Extensions)),
		PpEnabledExtensionNames: TerminatedStrs(desc.Extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}
	if len(desc.ValidationLayers) > 0 {
		deviceCreatInfo.EnabledLayerCount = uint32(len(desc.ValidationLayers))
		deviceCreatInfo.PpEnabledLayerNames = TerminatedStrs(desc.ValidationLayers)
	}
	d, err := VkCreateDevice(p, deviceCreatInfo, nil)
	if err != nil {
		return nil, errors.Wrap(err, "vkCreateDevice")
	}
	return newDevice(d, in.surfaces), nil
}

func fromVkExtent(e vk.Extent2D) renderer.Extent2D {
	return renderer.Extent2D{Width: e.Width, Height: e.Height}
}

func toVkExtent(e renderer.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}
