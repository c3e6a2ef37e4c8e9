package state

import "github.com/gogpu/gpustate/gpucore"

// Device creates and destroys the native sub-objects of a pipeline state.
//
// Implementations return a non-zero ID on success. Destroy methods must
// tolerate IDs they no longer know about.
type Device interface {
	CreateRasterState(desc *RasterStateDesc) (gpucore.RasterStateID, error)
	DestroyRasterState(id gpucore.RasterStateID)

	CreateBlendState(desc *BlendStateDesc) (gpucore.BlendStateID, error)
	DestroyBlendState(id gpucore.BlendStateID)

	CreateDepthStencilState(desc *DepthStencilStateDesc) (gpucore.DepthStencilStateID, error)
	DestroyDepthStencilState(id gpucore.DepthStencilStateID)
}

// SamplerDevice creates and destroys native samplers.
type SamplerDevice interface {
	CreateSampler(desc *SamplerStateDesc) (gpucore.SamplerID, error)
	DestroySampler(id gpucore.SamplerID)
}
