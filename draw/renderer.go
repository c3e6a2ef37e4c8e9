package draw

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
)

// Renderer submits draw calls to a device, passing along what each draw
// changes relative to the previous one.
//
// Renderer is safe for concurrent use; draws are serialized.
type Renderer struct {
	mu     sync.Mutex
	device Device
	eval   *Evaluator

	submitted uint64
}

// NewRenderer creates a renderer drawing on device.
func NewRenderer(device Device) (*Renderer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Renderer{device: device, eval: NewEvaluator()}, nil
}

// Device returns the device draws are submitted to.
func (r *Renderer) Device() Device { return r.device }

// Draw submits call against target with a viewport covering the target.
//
// When the device rejects the submission the recorded state is reset, so
// the next draw rebinds everything.
func (r *Renderer) Draw(target Target, call *DrawCall) error {
	if call == nil {
		return ErrNilDrawCall
	}
	if call.State == nil || !call.State.IsCached() {
		return ErrNoPipelineState
	}
	if target.View == gpucore.InvalidID || target.Width == 0 || target.Height == 0 {
		return ErrNoTarget
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := Submission{
		Call:          call,
		Target:        target,
		Viewport:      target.FullViewport(),
		TargetChanged: r.eval.TargetChanged(target),
	}
	s.ViewportChanged = r.eval.ViewportChanged(s.Viewport)
	if call.Scissor != nil {
		s.ScissorChanged = r.eval.ScissorChanged(*call.Scissor)
	} else {
		s.ScissorChanged = r.eval.ScissorChanged(ScissorRect{Width: target.Width, Height: target.Height})
	}
	s.Pipeline = r.eval.PipelineChanges(call.State, call.BlendFactor, call.SampleMask, call.StencilReference)
	s.Resources = r.eval.ResourceChanges(call)

	if err := r.device.Submit(&s); err != nil {
		r.eval.Reset()
		return fmt.Errorf("draw: submit: %w", err)
	}
	r.submitted++

	gpustate.Logger().Debug("draw: submitted",
		"pipeline", s.Pipeline,
		"resources", s.Resources.Changes,
		"vertices", call.VertexCount)
	return nil
}

// Submitted returns the number of successful draws.
func (r *Renderer) Submitted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitted
}

// Reset forgets the applied state, e.g. after the device was reset.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eval.Reset()
}
