package state

import "github.com/gogpu/gputypes"

// FillMode selects how triangles are rasterized.
type FillMode uint8

// Fill modes.
const (
	FillSolid FillMode = iota
	FillWireframe
)

// RasterStateDesc describes the fixed-function rasterizer configuration.
// Values are comparable; two descriptors share a native object exactly when
// they are ==.
type RasterStateDesc struct {
	// CullMode selects which faces are discarded.
	CullMode gputypes.CullMode

	// FrontFace defines the winding considered front-facing.
	FrontFace gputypes.FrontFace

	// FillMode selects solid or wireframe rasterization.
	FillMode FillMode

	// DepthBias is a constant depth value added to each pixel.
	DepthBias int32

	// DepthBiasClamp is the maximum depth bias of a pixel.
	DepthBiasClamp float32

	// SlopeScaledDepthBias scales the slope of the pixel before biasing.
	SlopeScaledDepthBias float32

	// DepthClipEnabled enables clipping against the near and far planes.
	DepthClipEnabled bool

	// ScissorEnabled enables scissor-rectangle culling.
	ScissorEnabled bool

	// MultisampleEnabled enables multisample anti-aliasing on MSAA targets.
	MultisampleEnabled bool

	// AntialiasedLinesEnabled enables line anti-aliasing.
	AntialiasedLinesEnabled bool

	// ForcedSampleCount forces a UAV-only sample count. Zero disables it.
	ForcedSampleCount uint32

	// ConservativeRasterEnabled rasterizes any pixel partially covered.
	ConservativeRasterEnabled bool
}

// Predefined raster states.
var (
	// RasterCullBack culls back faces and clips depth.
	RasterCullBack = RasterStateDesc{
		CullMode:         gputypes.CullModeBack,
		FrontFace:        gputypes.FrontFaceCCW,
		DepthClipEnabled: true,
	}

	// RasterNoCulling draws both faces.
	RasterNoCulling = RasterStateDesc{
		CullMode:         gputypes.CullModeNone,
		FrontFace:        gputypes.FrontFaceCCW,
		DepthClipEnabled: true,
	}

	// RasterWireframe draws both faces as lines.
	RasterWireframe = RasterStateDesc{
		CullMode:         gputypes.CullModeNone,
		FrontFace:        gputypes.FrontFaceCCW,
		FillMode:         FillWireframe,
		DepthClipEnabled: true,
	}

	// RasterScissor is RasterNoCulling with scissor testing.
	RasterScissor = RasterStateDesc{
		CullMode:         gputypes.CullModeNone,
		FrontFace:        gputypes.FrontFaceCCW,
		DepthClipEnabled: true,
		ScissorEnabled:   true,
	}
)

// MaxRenderTargets is the number of simultaneous render targets a blend
// state describes.
const MaxRenderTargets = 8

// TargetBlendDesc is the blend configuration of a single render target.
type TargetBlendDesc struct {
	// Enabled turns blending on for the target.
	Enabled bool

	// Color is the RGB blend equation.
	Color gputypes.BlendComponent

	// Alpha is the alpha blend equation.
	Alpha gputypes.BlendComponent

	// WriteMask selects the channels written.
	WriteMask gputypes.ColorWriteMask
}

// BlendState converts the target into a gputypes blend state, or nil when
// blending is disabled.
func (t TargetBlendDesc) BlendState() *gputypes.BlendState {
	if !t.Enabled {
		return nil
	}
	return &gputypes.BlendState{Color: t.Color, Alpha: t.Alpha}
}

// Predefined render target blends.
var (
	// TargetNoBlend writes the source unchanged.
	TargetNoBlend = TargetBlendDesc{WriteMask: gputypes.ColorWriteMaskAll}

	// TargetModulated blends with straight (non-premultiplied) alpha.
	TargetModulated = TargetBlendDesc{
		Enabled: true,
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		WriteMask: gputypes.ColorWriteMaskAll,
	}

	// TargetPremultiplied blends premultiplied-alpha sources.
	TargetPremultiplied = TargetBlendDesc{
		Enabled: true,
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		WriteMask: gputypes.ColorWriteMaskAll,
	}

	// TargetAdditive adds the alpha-scaled source to the destination.
	TargetAdditive = TargetBlendDesc{
		Enabled: true,
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
		WriteMask: gputypes.ColorWriteMaskAll,
	}
)

// BlendStateDesc describes blending for every render target plus the two
// output-merger flags. Values are comparable.
type BlendStateDesc struct {
	// Targets holds one blend per render target slot.
	Targets [MaxRenderTargets]TargetBlendDesc

	// AlphaToCoverage uses the pixel alpha as a multisample coverage mask.
	AlphaToCoverage bool

	// IndependentBlend uses every entry of Targets. When false only
	// Targets[0] applies and is replicated to all targets.
	IndependentBlend bool
}

// NewBlendState returns a blend state applying target to every render
// target.
func NewBlendState(target TargetBlendDesc) BlendStateDesc {
	var b BlendStateDesc
	for i := range b.Targets {
		b.Targets[i] = target
	}
	return b
}

// Target returns the effective blend of render target i, honouring
// IndependentBlend. Out-of-range indices yield TargetNoBlend.
func (b *BlendStateDesc) Target(i int) TargetBlendDesc {
	if i < 0 || i >= MaxRenderTargets {
		return TargetNoBlend
	}
	if !b.IndependentBlend {
		return b.Targets[0]
	}
	return b.Targets[i]
}

// Predefined blend states.
var (
	BlendNone          = NewBlendState(TargetNoBlend)
	BlendModulated     = NewBlendState(TargetModulated)
	BlendPremultiplied = NewBlendState(TargetPremultiplied)
	BlendAdditive      = NewBlendState(TargetAdditive)
)

// StencilFace describes the stencil test and operations for one face.
type StencilFace struct {
	Compare     gputypes.CompareFunction
	FailOp      gputypes.StencilOperation
	DepthFailOp gputypes.StencilOperation
	PassOp      gputypes.StencilOperation
}

// defaultStencilFace always passes and keeps the stored value.
var defaultStencilFace = StencilFace{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      gputypes.StencilOperationKeep,
	DepthFailOp: gputypes.StencilOperationKeep,
	PassOp:      gputypes.StencilOperationKeep,
}

// DepthStencilStateDesc describes depth and stencil testing.
// Values are comparable.
type DepthStencilStateDesc struct {
	DepthEnabled      bool
	DepthWriteEnabled bool
	DepthCompare      gputypes.CompareFunction

	StencilEnabled   bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        StencilFace
	BackFace         StencilFace
}

// Predefined depth/stencil states.
var (
	// DepthStencilDisabled turns off depth and stencil testing.
	DepthStencilDisabled = DepthStencilStateDesc{
		DepthCompare:     gputypes.CompareFunctionAlways,
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
		FrontFace:        defaultStencilFace,
		BackFace:         defaultStencilFace,
	}

	// DepthEnabled tests and writes depth with a less-than comparison.
	DepthEnabled = DepthStencilStateDesc{
		DepthEnabled:      true,
		DepthWriteEnabled: true,
		DepthCompare:      gputypes.CompareFunctionLess,
		StencilReadMask:   0xff,
		StencilWriteMask:  0xff,
		FrontFace:         defaultStencilFace,
		BackFace:          defaultStencilFace,
	}

	// DepthEnabledNoWrite tests depth without writing it.
	DepthEnabledNoWrite = DepthStencilStateDesc{
		DepthEnabled:     true,
		DepthCompare:     gputypes.CompareFunctionLess,
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
		FrontFace:        defaultStencilFace,
		BackFace:         defaultStencilFace,
	}
)

// SamplerStateDesc describes how a shader samples a texture.
// Identity is full structural equality (==).
type SamplerStateDesc struct {
	MinFilter gputypes.FilterMode
	MagFilter gputypes.FilterMode
	MipFilter gputypes.MipmapFilterMode

	AddressU gputypes.AddressMode
	AddressV gputypes.AddressMode
	AddressW gputypes.AddressMode

	// Compare turns the sampler into a comparison sampler. Undefined
	// disables comparison.
	Compare gputypes.CompareFunction

	// BorderColor is used by backends that support border addressing.
	BorderColor gputypes.Color

	MipLODBias float32
	MinLOD     float32
	MaxLOD     float32

	// MaxAnisotropy enables anisotropic filtering when greater than 1.
	MaxAnisotropy uint16
}

// maxLOD is the conventional "no upper clamp" LOD value.
const maxLOD = 32

// Predefined sampler states.
var (
	PointFiltering = SamplerStateDesc{
		MinFilter: gputypes.FilterModeNearest,
		MagFilter: gputypes.FilterModeNearest,
		MipFilter: gputypes.MipmapFilterModeNearest,
		AddressU:  gputypes.AddressModeClampToEdge,
		AddressV:  gputypes.AddressModeClampToEdge,
		AddressW:  gputypes.AddressModeClampToEdge,
		MaxLOD:    maxLOD,
	}

	LinearFiltering = SamplerStateDesc{
		MinFilter: gputypes.FilterModeLinear,
		MagFilter: gputypes.FilterModeLinear,
		MipFilter: gputypes.MipmapFilterModeLinear,
		AddressU:  gputypes.AddressModeClampToEdge,
		AddressV:  gputypes.AddressModeClampToEdge,
		AddressW:  gputypes.AddressModeClampToEdge,
		MaxLOD:    maxLOD,
	}

	Wrapping = SamplerStateDesc{
		MinFilter: gputypes.FilterModeLinear,
		MagFilter: gputypes.FilterModeLinear,
		MipFilter: gputypes.MipmapFilterModeLinear,
		AddressU:  gputypes.AddressModeRepeat,
		AddressV:  gputypes.AddressModeRepeat,
		AddressW:  gputypes.AddressModeRepeat,
		MaxLOD:    maxLOD,
	}

	AnisotropicFiltering = SamplerStateDesc{
		MinFilter:     gputypes.FilterModeLinear,
		MagFilter:     gputypes.FilterModeLinear,
		MipFilter:     gputypes.MipmapFilterModeLinear,
		AddressU:      gputypes.AddressModeRepeat,
		AddressV:      gputypes.AddressModeRepeat,
		AddressW:      gputypes.AddressModeRepeat,
		MaxLOD:        maxLOD,
		MaxAnisotropy: 16,
	}
)
