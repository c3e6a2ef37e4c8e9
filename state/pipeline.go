package state

import (
	"math"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/gpucore"
)

// InvalidSlot is the ID of a pipeline state that is not in a cache.
const InvalidSlot = math.MinInt

// StateChanges is a set of pipeline state categories.
//
// CompareState uses it to report which categories differ between two
// pipeline states; the draw evaluator additionally reports the dynamic
// output-merger values (blend factor, sample mask, stencil reference).
type StateChanges uint32

// Pipeline state categories.
const (
	ChangeNone           StateChanges = 0
	ChangeTopology       StateChanges = 1 << 0
	ChangeVertexShader   StateChanges = 1 << 1
	ChangePixelShader    StateChanges = 1 << 2
	ChangeGeometryShader StateChanges = 1 << 3
	ChangeDomainShader   StateChanges = 1 << 4
	ChangeHullShader     StateChanges = 1 << 5
	ChangeRasterState    StateChanges = 1 << 6
	ChangeBlendState     StateChanges = 1 << 7
	ChangeDepthStencil   StateChanges = 1 << 8

	// Dynamic output-merger values. They are not part of a cached state.
	ChangeBlendFactor      StateChanges = 1 << 9
	ChangeBlendSampleMask  StateChanges = 1 << 10
	ChangeStencilReference StateChanges = 1 << 11

	ChangeAll StateChanges = 1<<12 - 1

	// ChangeAllWithoutBlendFlags is every category a cached pipeline state
	// is keyed on.
	ChangeAllWithoutBlendFlags = ChangeAll &^ (ChangeBlendFactor | ChangeBlendSampleMask | ChangeStencilReference)
)

// Has reports whether all categories in c are present.
func (s StateChanges) Has(c StateChanges) bool {
	return s&c == c
}

var changeNames = [...]string{
	"Topology", "VertexShader", "PixelShader", "GeometryShader", "DomainShader",
	"HullShader", "RasterState", "BlendState", "DepthStencilState",
	"BlendFactor", "BlendSampleMask", "StencilReference",
}

// String returns the set as names joined by "|".
func (s StateChanges) String() string {
	if s == ChangeNone {
		return "None"
	}
	var b strings.Builder
	for i, name := range changeNames {
		if s&(1<<i) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
	}
	return b.String()
}

// PipelineStateDesc is the full description of a pipeline configuration.
type PipelineStateDesc struct {
	// Topology is the primitive type drawn.
	Topology gputypes.PrimitiveTopology

	VertexShader   *Shader
	PixelShader    *Shader
	GeometryShader *Shader
	HullShader     *Shader
	DomainShader   *Shader

	Raster RasterStateDesc
	Blend  BlendStateDesc

	// DepthStencil is nil when depth and stencil testing are disabled.
	DepthStencil *DepthStencilStateDesc
}

// PipelineState is a pipeline description together with the native
// sub-objects realizing it.
//
// A PipelineState obtained from NewPipelineState is a request: it has no
// slot and no native objects. PipelineStateCache.Cache returns the cached
// instance, which carries a slot ID and native objects owned by the cache.
// Callers must not destroy those objects.
type PipelineState struct {
	desc PipelineStateDesc
	id   int

	raster       gpucore.RasterStateID
	blend        gpucore.BlendStateID
	depthStencil gpucore.DepthStencilStateID

	// owned marks the native objects this entry created, as opposed to
	// ones it borrowed from an earlier entry.
	owned StateChanges
}

// NewPipelineState creates an uncached pipeline state request.
// The depth/stencil descriptor is copied so later changes by the caller do
// not leak into the cache.
func NewPipelineState(desc PipelineStateDesc) *PipelineState {
	if desc.DepthStencil != nil {
		ds := *desc.DepthStencil
		desc.DepthStencil = &ds
	}
	return &PipelineState{desc: desc, id: InvalidSlot}
}

// ID returns the cache slot, or InvalidSlot.
func (p *PipelineState) ID() int { return p.id }

// IsCached reports whether the state occupies a cache slot.
func (p *PipelineState) IsCached() bool { return p.id >= 0 }

// Desc returns a copy of the description.
func (p *PipelineState) Desc() PipelineStateDesc {
	d := p.desc
	if d.DepthStencil != nil {
		ds := *d.DepthStencil
		d.DepthStencil = &ds
	}
	return d
}

// Topology returns the primitive topology.
func (p *PipelineState) Topology() gputypes.PrimitiveTopology { return p.desc.Topology }

// VertexShader returns the vertex shader, or nil.
func (p *PipelineState) VertexShader() *Shader { return p.desc.VertexShader }

// PixelShader returns the pixel shader, or nil.
func (p *PipelineState) PixelShader() *Shader { return p.desc.PixelShader }

// RasterState returns the native rasterizer state.
func (p *PipelineState) RasterState() gpucore.RasterStateID { return p.raster }

// BlendState returns the native blend state.
func (p *PipelineState) BlendState() gpucore.BlendStateID { return p.blend }

// DepthStencilState returns the native depth/stencil state.
func (p *PipelineState) DepthStencilState() gpucore.DepthStencilStateID { return p.depthStencil }

// realized reports whether all three native objects exist.
func (p *PipelineState) realized() bool {
	return p.raster != gpucore.InvalidID &&
		p.blend != gpucore.InvalidID &&
		p.depthStencil != gpucore.InvalidID
}

// depthStencilDesc returns the effective depth/stencil description.
func (d *PipelineStateDesc) depthStencilDesc() DepthStencilStateDesc {
	if d.DepthStencil == nil {
		return DepthStencilDisabled
	}
	return *d.DepthStencil
}

// CompareState reports which categories differ between a and b.
//
// Each category is compared on its own so that a cache can reuse the
// native objects of the equal ones. Shaders compare by reference, raster
// and depth/stencil by value, blend by value across every render target
// and both output-merger flags. A nil depth/stencil equals
// DepthStencilDisabled.
func CompareState(a, b *PipelineStateDesc) StateChanges {
	var changes StateChanges

	if a.Topology != b.Topology {
		changes |= ChangeTopology
	}
	if a.VertexShader != b.VertexShader {
		changes |= ChangeVertexShader
	}
	if a.PixelShader != b.PixelShader {
		changes |= ChangePixelShader
	}
	if a.GeometryShader != b.GeometryShader {
		changes |= ChangeGeometryShader
	}
	if a.DomainShader != b.DomainShader {
		changes |= ChangeDomainShader
	}
	if a.HullShader != b.HullShader {
		changes |= ChangeHullShader
	}
	if a.Raster != b.Raster {
		changes |= ChangeRasterState
	}
	if a.Blend != b.Blend {
		changes |= ChangeBlendState
	}
	if a.depthStencilDesc() != b.depthStencilDesc() {
		changes |= ChangeDepthStencil
	}

	return changes
}
