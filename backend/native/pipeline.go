// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"math"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/binding"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

// PipelineStats reports native render pipeline cache activity.
type PipelineStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Cached    int
}

// pipelineRequest is everything a native render pipeline is built from.
type pipelineRequest struct {
	state       *state.PipelineState
	layout      *binding.InputLayout
	stripIndex  gputypes.IndexFormat
	colorFormat gputypes.TextureFormat
	depthFormat gputypes.TextureFormat
	sampleMask  int32
	counts      bindingCounts
}

type pipelineEntry struct {
	raw    hal.RenderPipeline
	vertex gpucore.ShaderModuleID
	pixel  gpucore.ShaderModuleID
}

// pipelineCache is a bounded LRU of realized render pipelines keyed by an
// FNV-1a hash of their request. Evicted pipelines are destroyed.
type pipelineCache struct {
	cache *lru.Cache[uint64, *pipelineEntry]

	// lastReq and last short-circuit consecutive draws with one pipeline.
	lastReq pipelineRequest
	last    hal.RenderPipeline

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func newPipelineCache(device hal.Device, size int) (*pipelineCache, error) {
	c := &pipelineCache{}
	cache, err := lru.NewWithEvict(size, func(_ uint64, e *pipelineEntry) {
		c.evictions.Add(1)
		device.DestroyRenderPipeline(e.raw)
	})
	if err != nil {
		return nil, fmt.Errorf("native: create pipeline cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// purgeModule drops every pipeline built from module.
func (c *pipelineCache) purgeModule(module gpucore.ShaderModuleID) {
	c.last = nil
	for _, key := range c.cache.Keys() {
		if e, ok := c.cache.Peek(key); ok && (e.vertex == module || e.pixel == module) {
			c.cache.Remove(key)
		}
	}
}

func (c *pipelineCache) purge() {
	c.last = nil
	c.cache.Purge()
}

// PipelineStats returns render pipeline cache statistics.
func (d *Device) PipelineStats() PipelineStats {
	return PipelineStats{
		Hits:      d.pipelines.hits.Load(),
		Misses:    d.pipelines.misses.Load(),
		Evictions: d.pipelines.evictions.Load(),
		Cached:    d.pipelines.cache.Len(),
	}
}

// renderPipeline returns the native pipeline for req, building it on a
// cache miss. The caller holds d.mu.
func (d *Device) renderPipeline(req *pipelineRequest) (hal.RenderPipeline, error) {
	c := d.pipelines
	if c.last != nil && c.lastReq == *req {
		c.hits.Add(1)
		return c.last, nil
	}

	key := hashPipelineRequest(req)
	e, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
		var err error
		if e, err = d.createRenderPipeline(req); err != nil {
			return nil, err
		}
		c.cache.Add(key, e)
	}
	c.lastReq, c.last = *req, e.raw
	return e.raw, nil
}

func (d *Device) createRenderPipeline(req *pipelineRequest) (*pipelineEntry, error) {
	desc := req.state.Desc()
	vs := desc.VertexShader
	if vs == nil {
		return nil, ErrNoVertexShader
	}
	vsModule, ok := d.modules[vs.Module()]
	if !ok {
		return nil, fmt.Errorf("native: vertex shader %q: %w", vs.Label(), ErrUnknownHandle)
	}

	layout, err := d.binder.layout(req.counts)
	if err != nil {
		return nil, err
	}

	entry := &pipelineEntry{vertex: vs.Module()}
	label := d.label("pipeline", uint64(d.pipelines.misses.Load()))

	hd := &hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout.pipeline,
		Vertex: hal.VertexState{
			Module:     vsModule,
			EntryPoint: vs.EntryPoint(),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:       desc.Topology,
			FrontFace:      desc.Raster.FrontFace,
			CullMode:       desc.Raster.CullMode,
			UnclippedDepth: !desc.Raster.DepthClipEnabled,
		},
		DepthStencil: depthStencilState(req.depthFormat, &desc),
		Multisample: gputypes.MultisampleState{
			Count:                  1,
			Mask:                   uint64(uint32(req.sampleMask)), //nolint:gosec // reinterpret the mask bits
			AlphaToCoverageEnabled: desc.Blend.AlphaToCoverage,
		},
	}
	if req.stripIndex != gputypes.IndexFormatUndefined {
		format := req.stripIndex
		hd.Primitive.StripIndexFormat = &format
	}
	if req.layout != nil {
		hd.Vertex.Buffers = []gputypes.VertexBufferLayout{req.layout.Layout()}
	}

	if ps := desc.PixelShader; ps != nil {
		psModule, ok := d.modules[ps.Module()]
		if !ok {
			return nil, fmt.Errorf("native: pixel shader %q: %w", ps.Label(), ErrUnknownHandle)
		}
		entry.pixel = ps.Module()
		target := desc.Blend.Target(0)
		hd.Fragment = &hal.FragmentState{
			Module:     psModule,
			EntryPoint: ps.EntryPoint(),
			Targets: []gputypes.ColorTargetState{{
				Format:    req.colorFormat,
				Blend:     target.BlendState(),
				WriteMask: target.WriteMask,
			}},
		}
	}

	raw, err := d.device.CreateRenderPipeline(hd)
	if err != nil {
		return nil, fmt.Errorf("native: create render pipeline: %w", err)
	}
	entry.raw = raw

	if desc.Raster.FillMode == state.FillWireframe {
		gpustate.Logger().Debug("native: wireframe fill drawn solid", "label", label)
	}
	gpustate.Logger().Debug("native: render pipeline created",
		"label", label,
		"topology", desc.Topology,
		"format", req.colorFormat,
		"depthFormat", req.depthFormat)
	return entry, nil
}

// depthStencilState converts the pipeline's depth/stencil description.
// It returns nil when the target has no depth attachment.
func depthStencilState(format gputypes.TextureFormat, desc *state.PipelineStateDesc) *hal.DepthStencilState {
	if format == gputypes.TextureFormatUndefined {
		return nil
	}
	ds := state.DepthStencilDisabled
	if desc.DepthStencil != nil {
		ds = *desc.DepthStencil
	}

	out := &hal.DepthStencilState{
		Format:              format,
		DepthCompare:        gputypes.CompareFunctionAlways,
		StencilFront:        stencilFace(state.StencilFace{}, false),
		StencilBack:         stencilFace(state.StencilFace{}, false),
		DepthBias:           desc.Raster.DepthBias,
		DepthBiasSlopeScale: desc.Raster.SlopeScaledDepthBias,
		DepthBiasClamp:      desc.Raster.DepthBiasClamp,
	}
	if ds.DepthEnabled {
		out.DepthWriteEnabled = ds.DepthWriteEnabled
		out.DepthCompare = ds.DepthCompare
	}
	if ds.StencilEnabled {
		out.StencilFront = stencilFace(ds.FrontFace, true)
		out.StencilBack = stencilFace(ds.BackFace, true)
		out.StencilReadMask = uint32(ds.StencilReadMask)
		out.StencilWriteMask = uint32(ds.StencilWriteMask)
	}
	return out
}

func stencilFace(f state.StencilFace, enabled bool) hal.StencilFaceState {
	if !enabled {
		return hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways}
	}
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      stencilOperation(f.FailOp),
		DepthFailOp: stencilOperation(f.DepthFailOp),
		PassOp:      stencilOperation(f.PassOp),
	}
}

// stencilOperation converts a gputypes stencil operation. The two
// enumerations share an order; gputypes reserves 0 for Undefined.
func stencilOperation(op gputypes.StencilOperation) hal.StencilOperation {
	if op == gputypes.StencilOperationUndefined {
		return hal.StencilOperationKeep
	}
	return hal.StencilOperation(op - 1) //nolint:gosec // bounded enumeration
}

// hashPipelineRequest computes an FNV-1a hash of a pipeline request.
func hashPipelineRequest(req *pipelineRequest) uint64 {
	h := fnv.New64a()
	desc := req.state.Desc()

	hashWriteShader(h, desc.VertexShader)
	hashWriteShader(h, desc.PixelShader)
	hashWriteUint32(h, uint32(desc.Topology))
	hashWriteUint32(h, uint32(req.stripIndex))

	// Vertex input
	if req.layout != nil {
		layout := req.layout.Layout()
		hashWriteUint64(h, layout.ArrayStride)
		hashWriteUint32(h, uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for _, attr := range layout.Attributes {
			hashWriteUint32(h, attr.ShaderLocation)
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, attr.Offset)
		}
	} else {
		hashWriteUint64(h, 0)
	}

	// Rasterizer
	r := &desc.Raster
	hashWriteUint32(h, uint32(r.CullMode))
	hashWriteUint32(h, uint32(r.FrontFace))
	hashWriteUint32(h, uint32(r.DepthBias)) //nolint:gosec // bit pattern only
	hashWriteUint32(h, math.Float32bits(r.DepthBiasClamp))
	hashWriteUint32(h, math.Float32bits(r.SlopeScaledDepthBias))
	hashWriteBool(h, r.DepthClipEnabled)

	// Blend, first target only
	t := desc.Blend.Target(0)
	hashWriteBool(h, t.Enabled)
	hashWriteUint32(h, uint32(t.Color.SrcFactor))
	hashWriteUint32(h, uint32(t.Color.DstFactor))
	hashWriteUint32(h, uint32(t.Color.Operation))
	hashWriteUint32(h, uint32(t.Alpha.SrcFactor))
	hashWriteUint32(h, uint32(t.Alpha.DstFactor))
	hashWriteUint32(h, uint32(t.Alpha.Operation))
	hashWriteUint32(h, uint32(t.WriteMask))
	hashWriteBool(h, desc.Blend.AlphaToCoverage)
	hashWriteUint32(h, uint32(req.sampleMask)) //nolint:gosec // bit pattern only

	// Depth/stencil, only meaningful with a depth attachment
	hashWriteUint32(h, uint32(req.depthFormat))
	if req.depthFormat != gputypes.TextureFormatUndefined && desc.DepthStencil != nil {
		ds := desc.DepthStencil
		hashWriteBool(h, ds.DepthEnabled)
		hashWriteBool(h, ds.DepthWriteEnabled)
		hashWriteUint32(h, uint32(ds.DepthCompare))
		hashWriteBool(h, ds.StencilEnabled)
		hashWriteUint32(h, uint32(ds.StencilReadMask)<<8|uint32(ds.StencilWriteMask))
		for _, f := range [2]state.StencilFace{ds.FrontFace, ds.BackFace} {
			hashWriteUint32(h, uint32(f.Compare))
			hashWriteUint32(h, uint32(f.FailOp))
			hashWriteUint32(h, uint32(f.DepthFailOp))
			hashWriteUint32(h, uint32(f.PassOp))
		}
	}

	hashWriteUint32(h, uint32(req.colorFormat))
	hashWriteUint32(h, uint32(req.counts.constants))
	hashWriteUint32(h, uint32(req.counts.textures))
	hashWriteUint32(h, uint32(req.counts.samplers))

	return h.Sum64()
}

func hashWriteShader(h hash.Hash64, s *state.Shader) {
	if s == nil {
		hashWriteUint64(h, 0)
		return
	}
	hashWriteUint64(h, uint64(s.Module()))
	hashWriteString(h, s.EntryPoint())
}

// hashWriteUint32 and hashWriteUint64 write v little-endian.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var b [4]byte
	_, _ = h.Write(binary.LittleEndian.AppendUint32(b[:0], v))
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var b [8]byte
	_, _ = h.Write(binary.LittleEndian.AppendUint64(b[:0], v))
}

// hashWriteString writes s behind its length, so adjacent strings in a key
// cannot run together.
//
//nolint:gosec // G115: entry point names are far shorter than 4 GiB
func hashWriteString(h hash.Hash64, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = io.WriteString(h, s)
}

func hashWriteBool(h hash.Hash64, v bool) {
	var b byte
	if v {
		b = 1
	}
	_, _ = h.Write([]byte{b})
}
