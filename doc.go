// Package gpustate caches and diffs GPU pipeline state for the GoGPU stack.
//
// # Overview
//
// Creating native GPU state objects (rasterizer, blend, depth/stencil,
// samplers) is expensive and drivers limit how many may be alive at once.
// Rendering code on the other hand describes state per draw, producing many
// full pipeline permutations built from a small set of distinct sub-states.
// gpustate sits between the two: it deduplicates descriptions, shares native
// sub-objects between pipeline permutations, and tells the binding layer
// exactly which categories of state changed since the previous draw.
//
// # Packages
//
//   - [github.com/gogpu/gpustate/gpucore]: opaque resource IDs and shared enums
//   - [github.com/gogpu/gpustate/state]: state descriptors, the pipeline state
//     cache and the sampler state factory
//   - [github.com/gogpu/gpustate/binding]: fixed-capacity binding slots and
//     resource state differencing
//   - [github.com/gogpu/gpustate/texture]: sub-resource lock cache and the
//     per-texture view cache
//   - [github.com/gogpu/gpustate/draw]: draw calls, draw-call pooling and the
//     per-draw state evaluator
//   - [github.com/gogpu/gpustate/blit]: a textured-quad blitter built on the above
//   - [github.com/gogpu/gpustate/backend/native]: the device implementation
//     on top of gogpu/wgpu HAL
//
// # Quick Start
//
//	dev, err := native.NewFromWGPU(wgpuDevice, native.Config{})
//	if err != nil {
//	    return err
//	}
//	defer dev.Destroy()
//
//	cache := state.NewPipelineStateCache(dev)
//	ps, err := cache.Cache(state.NewPipelineState(state.PipelineStateDesc{
//	    Topology:     gputypes.PrimitiveTopologyTriangleStrip,
//	    VertexShader: vs,
//	    PixelShader:  ps,
//	    Raster:       state.RasterNoCulling,
//	    Blend:        state.BlendModulated,
//	}))
//
// # Logging
//
// gpustate is silent by default. Call [SetLogger] to route diagnostics to
// any [log/slog] handler.
package gpustate
