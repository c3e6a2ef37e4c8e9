package draw

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/binding"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

// AllSamples is the sample mask enabling every sample.
const AllSamples int32 = -1

// ScissorRect is a clip rectangle in target pixels.
type ScissorRect struct {
	X, Y          uint32
	Width, Height uint32
}

// DrawCall is one draw with every binding it needs.
//
// Draw calls are meant to be reused: a caller that issues the same draw
// again keeps the same *DrawCall, whose binding arrays then carry no new
// changes.
type DrawCall struct {
	// State is a cached pipeline state.
	State *state.PipelineState

	// Resources holds the input-assembler bindings.
	Resources binding.ResourceState

	ConstantBuffers *binding.Slots[binding.ConstantBufferBinding]
	ShaderResources *binding.Slots[gpucore.TextureViewID]
	Samplers        *binding.Slots[gpucore.SamplerID]

	VertexStart uint32
	VertexCount uint32

	// Scissor clips the draw when the rasterizer state enables scissor
	// testing. Nil means the whole target.
	Scissor *ScissorRect

	BlendFactor      gputypes.Color
	SampleMask       int32
	StencilReference uint32
}

// NewDrawCall returns an empty draw call.
func NewDrawCall() *DrawCall {
	d := &DrawCall{
		ConstantBuffers: binding.NewConstantBufferSlots(),
		ShaderResources: binding.NewShaderResourceSlots(),
		Samplers:        binding.NewSamplerSlots(),
	}
	d.Reset()
	return d
}

// Reset clears the draw call for reuse. Binding arrays keep their storage.
func (d *DrawCall) Reset() {
	d.State = nil
	d.Resources = binding.ResourceState{}
	d.ConstantBuffers.Reset()
	d.ShaderResources.Reset()
	d.Samplers.Reset()
	d.VertexStart = 0
	d.VertexCount = 0
	d.Scissor = nil
	d.BlendFactor = gputypes.ColorWhite
	d.SampleMask = AllSamples
	d.StencilReference = 0
}
