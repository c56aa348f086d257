package common

import (
	vk "github.com/goki/vulkan"

	"vk_triangle/renderer"
)

// Create infos for the presentation objects. The renderer decides the values, these builders only fill in what
// it never varies.

func swapchainCreateInfo(desc renderer.SwapchainDesc, surface vk.Surface) *vk.SwapchainCreateInfo {
	return &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Surface:               surface,
		MinImageCount:         desc.MinImageCount,
		ImageFormat:           vk.Format(desc.Format.Format),
		ImageColorSpace:       vk.ColorSpace(desc.Format.ColorSpace),
		ImageExtent:           toVkExtent(desc.Extent),
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      vk.SharingMode(desc.SharingMode),
		QueueFamilyIndexCount: uint32(len(desc.QueueFamilyIndices)),
		PQueueFamilyIndices:   desc.QueueFamilyIndices,
		PreTransform:          vk.SurfaceTransformFlagBits(desc.PreTransform),
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           vk.PresentMode(desc.PresentMode),
		Clipped:               vk.True,
		OldSwapchain:          nil,
	}
}

func imageViewCreateInfo(image vk.Image, format vk.Format) *vk.ImageViewCreateInfo {
	return &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		PNext:    nil,
		Flags:    0,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

func framebufferCreateInfo(renderPass vk.RenderPass, attachment vk.ImageView, extent renderer.Extent2D) *vk.FramebufferCreateInfo {
	attachments := []vk.ImageView{attachment}
	return &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		PNext:           nil,
		Flags:           0,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
}

func renderPassBeginInfo(renderPass vk.RenderPass, fb vk.Framebuffer, extent renderer.Extent2D, clearColor [4]float32) *vk.RenderPassBeginInfo {
	renderArea := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: toVkExtent(extent),
	}
	clearValues := []vk.ClearValue{
		vk.NewClearValue(clearColor[:]),
	}
	return &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		PNext:           nil,
		RenderPass:      renderPass,
		Framebuffer:     fb,
		RenderArea:      renderArea,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
}
