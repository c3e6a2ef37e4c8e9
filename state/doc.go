// Package state describes GPU pipeline state and caches its native objects.
//
// # Descriptors
//
// [RasterStateDesc], [BlendStateDesc], [DepthStencilStateDesc] and
// [SamplerStateDesc] are plain comparable values. Two descriptors are the
// same state exactly when they are ==, which is what the caches key on.
//
// # Pipeline states
//
// A [PipelineState] combines a topology, up to five shader stages and the
// three fixed-function descriptors. [PipelineStateCache] turns requests into
// cached states:
//
//	cache := state.NewPipelineStateCache(device)
//	ps, err := cache.Cache(state.NewPipelineState(desc))
//
// The cache compares each request with every cached entry one category at
// a time ([CompareState]). A request that matches no entry as a whole still
// borrows the native rasterizer, blend or depth/stencil object of the first
// entry that matches that category, so pipelines that differ only in a
// shader never create new fixed-function objects.
//
// # Samplers
//
// [SamplerStateFactory] is a per-context service mapping each distinct
// sampler description to a single native sampler. It is cleared on device
// loss rather than per resource.
package state
