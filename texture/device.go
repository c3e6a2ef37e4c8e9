package texture

import "github.com/gogpu/gpustate/gpucore"

// Mapper maps texture sub-resources into CPU-visible memory.
//
// subresource is the linear index computed by gpucore.CalcSubresource.
type Mapper interface {
	MapSubresource(tex gpucore.TextureID, subresource int, mode gpucore.MapMode) (gpucore.MappedSubresource, error)
	UnmapSubresource(tex gpucore.TextureID, subresource int)
}

// ViewDevice creates and destroys texture views.
type ViewDevice interface {
	CreateTextureView(tex gpucore.TextureID, key TextureViewKey) (gpucore.TextureViewID, error)
	DestroyTextureView(view gpucore.TextureViewID)
}

// Device is everything a Texture needs from the GPU.
type Device interface {
	Mapper
	ViewDevice

	CreateTexture(info *Info) (gpucore.TextureID, error)
	DestroyTexture(tex gpucore.TextureID)
}
