package draw

import (
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

// BufferDesc describes a GPU buffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Bind  gpucore.BindFlags
}

// Submission is one draw with the state changes since the previous
// submission on the same renderer.
//
// A backend may rebind only what the change sets name. Call and Target are
// always complete, so a backend that does not track native state can
// ignore the change sets altogether.
type Submission struct {
	Call   *DrawCall
	Target Target

	Viewport Viewport

	Pipeline  state.StateChanges
	Resources ResourceRanges

	ViewportChanged bool
	ScissorChanged  bool
	TargetChanged   bool
}

// Device creates buffers and executes draw submissions.
type Device interface {
	CreateBuffer(desc *BufferDesc) (gpucore.BufferID, error)
	WriteBuffer(buf gpucore.BufferID, offset uint64, data []byte) error
	DestroyBuffer(buf gpucore.BufferID)

	Submit(s *Submission) error
}
