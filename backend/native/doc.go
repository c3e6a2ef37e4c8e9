// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements the gpustate device interfaces on a
// gogpu/wgpu HAL device.
//
// A single Device serves pipeline state caches, sampler factories, the
// shader compiler, textures and draw submission:
//
//	dev, err := native.NewFromWGPU(wgpuDevice, native.Config{Label: "app"})
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	blitter, err := blit.NewTextureBlitter(dev, blit.Options{})
//	if err != nil {
//	    return err
//	}
//	defer blitter.Close()
//
// WebGPU has no standalone rasterizer, blend or depth/stencil objects.
// Their IDs name stored descriptions, and the device folds them into
// render pipelines at submission time. Realized pipelines, bind group
// layouts and bind groups are cached by the device.
//
// Textures are mapped through staging buffers. Reads copy the
// sub-resource out and wait for the GPU; writes are uploaded on unmap.
package native
