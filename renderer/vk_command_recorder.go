package renderer

import (
	"github.com/pkg/errors"
)

// recordCommandBuffers allocates one primary command buffer per framebuffer of chain and records the whole
// frame into it: clear, bind the fixed pipeline, draw the 3 vertices of the triangle. The buffers are replayed
// unmodified for as long as the chain lives.
func recordCommandBuffers(d Device, pool CommandPool, chain *PresentationChain, clearColor [4]float32) ([]CommandBuffer, error) {
	buffers, err := d.AllocateCommandBuffers(pool, uint32(len(chain.FrameBuffers)))
	if err != nil {
		return nil, &SwapchainCreationError{Step: StepCommandBuffers, Err: err}
	}
	for i := range buffers {
		if err := recordCommandBuffer(d, buffers[i], chain, chain.FrameBuffers[i], clearColor); err != nil {
			d.FreeCommandBuffers(pool, buffers)
			return nil, &SwapchainCreationError{Step: StepCommandBuffers, Err: errors.Wrapf(err, "command buffer [%d]", i)}
		}
	}
	return buffers, nil
}

func recordCommandBuffer(d Device, buffer CommandBuffer, chain *PresentationChain, fb Framebuffer, clearColor [4]float32) error {
	if err := d.BeginCommandBuffer(buffer); err != nil {
		return errors.Wrap(err, "begin recording")
	}
	d.CmdBeginRenderPass(buffer, RenderPassBegin{
		RenderPass:  chain.RenderPass,
		Framebuffer: fb,
		Extent:      chain.Extent,
		ClearColor:  clearColor,
	})
	d.CmdBindPipeline(buffer, chain.Pipeline)
	d.CmdDraw(buffer, 3, 1, 0, 0)
	d.CmdEndRenderPass(buffer)
	if err := d.EndCommandBuffer(buffer); err != nil {
		return errors.Wrap(err, "end recording")
	}
	return nil
}
