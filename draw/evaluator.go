package draw

import (
	"math"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/binding"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

// MaxViewports is the number of viewport and scissor slots tracked.
const MaxViewports = 16

// Viewport maps normalized device coordinates to a target region.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Target is the render target of a draw.
type Target struct {
	View   gpucore.TextureViewID
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat

	// Depth is an optional depth/stencil view of the same size. Pipeline
	// depth/stencil states only take effect when it is set.
	Depth       gpucore.TextureViewID
	DepthFormat gputypes.TextureFormat
}

// FullViewport returns the viewport covering the whole target.
func (t Target) FullViewport() Viewport {
	return Viewport{Width: float32(t.Width), Height: float32(t.Height), MaxDepth: 1}
}

// ResourceChanges is the set of resource binding categories that changed.
type ResourceChanges uint32

// Resource change categories.
const (
	ResourceNone            ResourceChanges = 0
	ResourceVertexBuffers   ResourceChanges = 1 << 0
	ResourceInputLayout     ResourceChanges = 1 << 1
	ResourceIndexBuffer     ResourceChanges = 1 << 2
	ResourceConstants       ResourceChanges = 1 << 3
	ResourceShaderResources ResourceChanges = 1 << 4
	ResourceSamplers        ResourceChanges = 1 << 5
)

// Has reports whether all categories in c are present.
func (r ResourceChanges) Has(c ResourceChanges) bool { return r&c == c }

func (r ResourceChanges) String() string {
	if r == ResourceNone {
		return "None"
	}
	names := [...]string{"VertexBuffers", "InputLayout", "IndexBuffer", "Constants", "ShaderResources", "Samplers"}
	parts := make([]string, 0, len(names))
	for i, n := range names {
		if r&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// Range is a contiguous run of binding slots.
type Range struct {
	Start int
	Count int
}

// ResourceRanges reports which resources changed and the slot ranges a
// backend has to rebind.
type ResourceRanges struct {
	Changes ResourceChanges

	// Input is the input-assembler difference from the previous draw.
	Input binding.DrawCallChanges

	VertexBuffers   Range
	Constants       Range
	ShaderResources Range
	Samplers        Range
}

// Evaluator remembers the state applied by the previous draw and reports
// what the next draw changes, so a backend can skip redundant native
// binding calls.
//
// An Evaluator belongs to one submission stream and is not safe for
// concurrent use.
type Evaluator struct {
	hasPipeline  bool
	topology     gputypes.PrimitiveTopology
	raster       gpucore.RasterStateID
	blend        gpucore.BlendStateID
	depthStencil gpucore.DepthStencilStateID
	shaders      [5]*state.Shader

	blendFactor      gputypes.Color
	sampleMask       int32
	stencilReference uint32

	resources       *binding.ResourceState
	vertexBuffers   *binding.Slots[binding.VertexBufferBinding]
	constants       *binding.Slots[binding.ConstantBufferBinding]
	shaderResources *binding.Slots[gpucore.TextureViewID]
	samplers        *binding.Slots[gpucore.SamplerID]

	viewports [MaxViewports]Viewport
	scissors  [MaxViewports]ScissorRect
	target    Target
}

// NewEvaluator creates an evaluator with nothing applied.
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		vertexBuffers:   binding.NewVertexBufferSlots(),
		constants:       binding.NewConstantBufferSlots(),
		shaderResources: binding.NewShaderResourceSlots(),
		samplers:        binding.NewSamplerSlots(),
	}
	e.Reset()
	return e
}

// PipelineChanges compares ps and the dynamic output-merger values with
// the previous draw and records them as applied.
//
// Native sub-objects are compared by ID and shaders by pointer. The first
// call after Reset reports every pipeline category.
func (e *Evaluator) PipelineChanges(ps *state.PipelineState, blendFactor gputypes.Color, sampleMask int32, stencilReference uint32) state.StateChanges {
	changes := state.ChangeNone

	if ps != nil {
		shaders := pipelineShaders(ps)
		if !e.hasPipeline {
			changes = state.ChangeAllWithoutBlendFlags
		} else {
			if e.topology != ps.Topology() {
				changes |= state.ChangeTopology
			}
			if e.raster != ps.RasterState() {
				changes |= state.ChangeRasterState
			}
			if e.blend != ps.BlendState() {
				changes |= state.ChangeBlendState
			}
			if e.depthStencil != ps.DepthStencilState() {
				changes |= state.ChangeDepthStencil
			}
			for i, flag := range shaderFlags {
				if e.shaders[i] != shaders[i] {
					changes |= flag
				}
			}
		}

		if changes != state.ChangeNone {
			e.hasPipeline = true
			e.topology = ps.Topology()
			e.raster = ps.RasterState()
			e.blend = ps.BlendState()
			e.depthStencil = ps.DepthStencilState()
			e.shaders = shaders
		}
	}

	if blendFactor != e.blendFactor {
		e.blendFactor = blendFactor
		changes |= state.ChangeBlendFactor
	}
	if sampleMask != e.sampleMask {
		e.sampleMask = sampleMask
		changes |= state.ChangeBlendSampleMask
	}
	if stencilReference != e.stencilReference {
		e.stencilReference = stencilReference
		changes |= state.ChangeStencilReference
	}
	return changes
}

var shaderFlags = [5]state.StateChanges{
	state.ChangeVertexShader,
	state.ChangePixelShader,
	state.ChangeGeometryShader,
	state.ChangeHullShader,
	state.ChangeDomainShader,
}

func pipelineShaders(ps *state.PipelineState) [5]*state.Shader {
	d := ps.Desc()
	return [5]*state.Shader{d.VertexShader, d.PixelShader, d.GeometryShader, d.HullShader, d.DomainShader}
}

// ResourceChanges compares the bindings of call with the previous draw and
// records them as applied.
//
// Input-assembler bindings are diffed with ResourceState.GetDifference.
// Slot arrays are merged over the union of their dirty ranges, so the
// returned ranges cover every slot a backend has to rebind.
func (e *Evaluator) ResourceChanges(call *DrawCall) ResourceRanges {
	var r ResourceRanges

	r.Input = call.Resources.GetDifference(e.resources)
	if r.Input.Has(binding.DrawCallInputLayout) {
		r.Changes |= ResourceInputLayout
	}
	if r.Input.Has(binding.DrawCallIndexBuffer) {
		r.Changes |= ResourceIndexBuffer
	}
	if r.Input.Has(binding.DrawCallVertexBuffers) && call.Resources.VertexBuffers != nil {
		if start, count, changed := binding.MergeDirty(e.vertexBuffers, call.Resources.VertexBuffers); changed {
			r.Changes |= ResourceVertexBuffers
			r.VertexBuffers = Range{start, count}
		}
	}
	applied := call.Resources
	e.resources = &applied

	if call.ConstantBuffers != nil {
		if start, count, changed := binding.MergeDirty(e.constants, call.ConstantBuffers); changed {
			r.Changes |= ResourceConstants
			r.Constants = Range{start, count}
		}
	}
	if call.ShaderResources != nil {
		if start, count, changed := binding.MergeDirty(e.shaderResources, call.ShaderResources); changed {
			r.Changes |= ResourceShaderResources
			r.ShaderResources = Range{start, count}
		}
	}
	if call.Samplers != nil {
		if start, count, changed := binding.MergeDirty(e.samplers, call.Samplers); changed {
			r.Changes |= ResourceSamplers
			r.Samplers = Range{start, count}
		}
	}
	return r
}

// ViewportChanged records viewports as applied and reports whether they
// differ from the previous ones. Slots past len(viewports) are cleared.
func (e *Evaluator) ViewportChanged(viewports ...Viewport) bool {
	return applySlots(e.viewports[:], viewports)
}

// ScissorChanged records scissor rectangles as applied and reports whether
// they differ from the previous ones.
func (e *Evaluator) ScissorChanged(rects ...ScissorRect) bool {
	return applySlots(e.scissors[:], rects)
}

func applySlots[T comparable](prev, next []T) bool {
	changed := false
	var zero T
	for i := range prev {
		v := zero
		if i < len(next) {
			v = next[i]
		}
		if prev[i] != v {
			prev[i] = v
			changed = true
		}
	}
	return changed
}

// TargetChanged records t as the applied render target and reports whether
// it differs from the previous one.
func (e *Evaluator) TargetChanged(t Target) bool {
	if e.target == t {
		return false
	}
	e.target = t
	return true
}

// Reset forgets everything applied. The next draw reports every category
// as changed.
func (e *Evaluator) Reset() {
	e.hasPipeline = false
	e.topology = gputypes.PrimitiveTopologyTriangleList
	e.raster = gpucore.InvalidID
	e.blend = gpucore.InvalidID
	e.depthStencil = gpucore.InvalidID
	e.shaders = [5]*state.Shader{}

	e.blendFactor = gputypes.ColorWhite
	e.sampleMask = math.MinInt32
	e.stencilReference = 0

	e.resources = nil
	e.vertexBuffers.Reset()
	e.constants.Reset()
	e.shaderResources.Reset()
	e.samplers.Reset()

	e.viewports = [MaxViewports]Viewport{}
	e.scissors = [MaxViewports]ScissorRect{}
	e.target = Target{}
}
