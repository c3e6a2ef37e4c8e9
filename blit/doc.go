// Package blit draws textures onto render targets as single quads.
//
// [TextureBlitter] is the smallest complete user of the pipeline state
// cache, the sampler factory and the draw call machinery:
//
//	b, err := blit.NewTextureBlitter(device, blit.Options{})
//	err = b.Blit(target, blit.Op{View: view, Dst: blit.Rect{Width: 256, Height: 256}})
//
// The blitter keeps the previous draw call and resubmits it while the
// texture, sampler and blend state stay the same, and re-uploads its
// projection only when the target size changes.
package blit
