package renderer

import (
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"
)

// DEFAULT_FRAMES_IN_FLIGHT is the number of frames the CPU may record ahead of the GPU.
const DEFAULT_FRAMES_IN_FLIGHT = 2

// PacerState is the step of the per-frame state machine the pacer is in.
type PacerState int

const (
	StateIdle PacerState = iota
	StateWaitFence
	StateAcquireImage
	StateCheckStale
	StateSubmitWork
	StatePresent
	StateTriggerRebuild
)

func (s PacerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWaitFence:
		return "WaitFence"
	case StateAcquireImage:
		return "AcquireImage"
	case StateCheckStale:
		return "CheckStale"
	case StateSubmitWork:
		return "SubmitWork"
	case StatePresent:
		return "Present"
	case StateTriggerRebuild:
		return "TriggerRebuild"
	default:
		return fmt.Sprintf("PacerState(%d)", int(s))
	}
}

// frameSlot is one of the F sets of synchronization objects frames rotate through.
type frameSlot struct {
	imageAvailable Semaphore
	renderFinished Semaphore
	inFlight       Fence
}

// FramePacer drives the steady-state render loop. It keeps up to F frames in flight, and guards every chain
// image against reuse until the frame that last rendered into it has completed.
type FramePacer struct {
	dc  *DeviceContext
	sc  *SwapChain
	win Window

	slots []frameSlot
	// imagesInFlight maps a chain image index to the fence of the slot that used it last.
	imagesInFlight []Fence
	currentFrame   uint64
	state          PacerState
	frames         uint64
	rebuilds       uint64
}

// NewFramePacer creates framesInFlight synchronization slots. Fences start signaled so the first wait on each
// slot returns at once.
func NewFramePacer(dc *DeviceContext, sc *SwapChain, win Window, framesInFlight int) (*FramePacer, error) {
	if framesInFlight < 1 {
		return nil, &InitializationError{Stage: "sync objects", Err: errors.Errorf("frames in flight must be at least 1, got %d", framesInFlight)}
	}
	fp := &FramePacer{
		dc:    dc,
		sc:    sc,
		win:   win,
		slots: make([]frameSlot, 0, framesInFlight),
	}
	d := dc.D
	for i := 0; i < framesInFlight; i++ {
		var slot frameSlot
		var err error
		if slot.imageAvailable, err = d.CreateSemaphore(); err == nil {
			if slot.renderFinished, err = d.CreateSemaphore(); err == nil {
				slot.inFlight, err = d.CreateFence(true)
			}
		}
		if err != nil {
			d.DestroySemaphore(slot.imageAvailable)
			d.DestroySemaphore(slot.renderFinished)
			fp.destroy()
			return nil, &InitializationError{Stage: "sync objects", Err: errors.Wrapf(err, "frame slot %d", i)}
		}
		fp.slots = append(fp.slots, slot)
	}
	fp.resizeImageTable(sc.Chain().ImageCount())
	return fp, nil
}

// CurrentFrame is the sequence number of the next frame to be drawn.
func (fp *FramePacer) CurrentFrame() uint64 {
	return fp.currentFrame
}

// State is the last state the pacer entered.
func (fp *FramePacer) State() PacerState {
	return fp.state
}

// Frames is the number of frames presented so far.
func (fp *FramePacer) Frames() uint64 {
	return fp.frames
}

func (fp *FramePacer) slotIndex() int {
	return int(fp.currentFrame % uint64(len(fp.slots)))
}

// resizeImageTable grows or shrinks the image-in-use table to n entries. Existing entries are kept, new ones
// start without an owner.
func (fp *FramePacer) resizeImageTable(n int) {
	if n <= len(fp.imagesInFlight) {
		fp.imagesInFlight = fp.imagesInFlight[:n]
		return
	}
	fp.imagesInFlight = append(fp.imagesInFlight, make([]Fence, n-len(fp.imagesInFlight))...)
}

// DrawFrame runs one iteration of the state machine. A stale chain is rebuilt and is not reported to the
// caller. When the chain is found stale on acquire the frame sequence does not advance, so the next call
// retries the same frame on the new chain.
func (fp *FramePacer) DrawFrame() error {
	err := fp.drawFrame()
	if errors.Is(err, errSwapchainStale) {
		fp.state = StateTriggerRebuild
		err = fp.rebuild()
	}
	fp.state = StateIdle
	return err
}

func (fp *FramePacer) drawFrame() error {
	d := fp.dc.D
	slot := fp.slots[fp.slotIndex()]
	chain := fp.sc.Chain()

	fp.state = StateWaitFence
	if err := d.WaitForFence(slot.inFlight); err != nil {
		return errors.Wrap(err, "wait for frame fence")
	}

	fp.state = StateAcquireImage
	imgIdx, result := d.AcquireNextImage(chain.Handle, slot.imageAvailable)
	switch result {
	case Success, Suboptimal:
	case ErrorOutOfDate:
		return errSwapchainStale
	default:
		return &PresentationError{Op: "acquire", Result: result}
	}

	fp.state = StateCheckStale
	if int(imgIdx) >= len(fp.imagesInFlight) {
		fp.resizeImageTable(int(imgIdx) + 1)
	}
	if prev := fp.imagesInFlight[imgIdx]; prev != Fence(NullHandle) {
		if err := d.WaitForFence(prev); err != nil {
			return errors.Wrapf(err, "wait for fence guarding image %d", imgIdx)
		}
	}
	fp.imagesInFlight[imgIdx] = slot.inFlight

	fp.state = StateSubmitWork
	// The fence is only reset once work is certain to be submitted that will signal it again
	if err := d.ResetFence(slot.inFlight); err != nil {
		return errors.Wrap(err, "reset frame fence")
	}
	err := d.QueueSubmit(fp.dc.GraphicsQ, SubmitDesc{
		WaitSemaphore:   slot.imageAvailable,
		WaitStage:       PipelineStageColorAttachmentOutput,
		CommandBuffer:   chain.CommandBuffers[imgIdx],
		SignalSemaphore: slot.renderFinished,
	}, slot.inFlight)
	if err != nil {
		return errors.Wrap(err, "submit command buffer")
	}

	fp.state = StatePresent
	result = d.QueuePresent(fp.dc.PresentQ, PresentDesc{
		WaitSemaphore: slot.renderFinished,
		Swapchain:     chain.Handle,
		ImageIndex:    imgIdx,
	})
	fp.frames++
	switch result {
	case Success, Suboptimal, ErrorOutOfDate:
	default:
		// A pending resize never masks a fatal status
		return &PresentationError{Op: "present", Result: result}
	}
	if result == ErrorOutOfDate || fp.sc.ResizeRequested() {
		// The frame was handed to the queue, so the sequence moves on before the rebuild.
		fp.currentFrame++
		return errSwapchainStale
	}

	fp.currentFrame++
	return nil
}

func (fp *FramePacer) rebuild() error {
	if err := fp.sc.Rebuild(); err != nil {
		return err
	}
	fp.rebuilds++
	if chain := fp.sc.Chain(); chain != nil {
		fp.resizeImageTable(chain.ImageCount())
	}
	return nil
}

// Run draws frames until the window asks to close and then waits for the device to finish all work. Exactly
// one round of window events is polled per frame.
func (fp *FramePacer) Run() error {
	t0 := time.Now()
	startFrames := fp.frames
	for !fp.win.ShouldClose() {
		fp.win.PollEvents()
		if fp.win.ShouldClose() {
			break
		}
		if err := fp.DrawFrame(); err != nil {
			// Work already submitted must still finish before the caller tears anything down
			_ = fp.dc.D.WaitIdle()
			return err
		}
	}
	if err := fp.dc.D.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}
	dt := time.Since(t0)
	frames := fp.frames - startFrames
	log.Printf("Elapsed: %v, frames: %d, rebuilds: %d, rough avg fps: %.1f fps",
		dt, frames, fp.rebuilds, float64(frames)/max(dt.Seconds(), 1e-9))
	return nil
}

// destroy releases all synchronization objects. The device must be idle.
func (fp *FramePacer) destroy() {
	d := fp.dc.D
	for i := range fp.slots {
		d.DestroySemaphore(fp.slots[i].imageAvailable)
		d.DestroySemaphore(fp.slots[i].renderFinished)
		d.DestroyFence(fp.slots[i].inFlight)
	}
	fp.slots = nil
	fp.imagesInFlight = nil
}
