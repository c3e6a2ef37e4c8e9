// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
)

// Submit implements draw.Device.
//
// Each submission is recorded into its own render pass that loads and
// stores the target, so every binding is set on the pass. The change sets
// of the submission only decide what is logged; pipelines and bind groups
// are reused from their caches.
//
// Indexed draws read VertexCount indices starting at VertexStart.
func (d *Device) Submit(s *draw.Submission) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	call := s.Call
	if call == nil {
		return draw.ErrNilDrawCall
	}
	if call.State == nil {
		return draw.ErrNoPipelineState
	}

	color, ok := d.views[s.Target.View]
	if !ok {
		return fmt.Errorf("native: target view %d: %w", s.Target.View, ErrUnknownHandle)
	}
	var depth *viewEntry
	if s.Target.Depth != gpucore.InvalidID {
		if depth, ok = d.views[s.Target.Depth]; !ok {
			return fmt.Errorf("native: depth view %d: %w", s.Target.Depth, ErrUnknownHandle)
		}
	}

	bindings, err := d.resolveBindings(call)
	if err != nil {
		return err
	}

	vb, layout := boundVertexBuffer(call)
	index := call.Resources.IndexBuffer
	req := pipelineRequest{
		state:       call.State,
		layout:      layout,
		colorFormat: s.Target.Format,
		sampleMask:  call.SampleMask,
		counts:      bindings.counts,
	}
	if depth != nil {
		req.depthFormat = s.Target.DepthFormat
	}
	if index.IsBound() && isStrip(call.State.Topology()) {
		req.stripIndex = index.Format
	}

	pipeline, err := d.renderPipeline(&req)
	if err != nil {
		return err
	}
	group, err := d.binder.bindGroup(bindings)
	if err != nil {
		return err
	}

	var vertexBuf, indexBuf hal.Buffer
	if vb.Buffer != gpucore.InvalidID {
		b, ok := d.buffers[vb.Buffer]
		if !ok {
			return fmt.Errorf("native: vertex buffer %d: %w", vb.Buffer, ErrUnknownHandle)
		}
		vertexBuf = b.raw
	}
	if index.IsBound() {
		b, ok := d.buffers[index.Buffer]
		if !ok {
			return fmt.Errorf("native: index buffer %d: %w", index.Buffer, ErrUnknownHandle)
		}
		indexBuf = b.raw
	}

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: d.cfg.Label + "/draw"})
	if err != nil {
		return fmt.Errorf("native: create encoder: %w", err)
	}
	if err := enc.BeginEncoding(d.cfg.Label + "/draw"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: d.cfg.Label + "/pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    color.raw,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
		DepthStencilAttachment: depthAttachment(depth, s.Target.DepthFormat),
	})

	pass.SetPipeline(pipeline)
	if group != nil {
		pass.SetBindGroup(0, group, nil)
	}
	if vertexBuf != nil {
		pass.SetVertexBuffer(0, vertexBuf, uint64(vb.Offset))
	}
	if indexBuf != nil {
		pass.SetIndexBuffer(indexBuf, index.Format, index.Offset)
	}

	vp := s.Viewport
	pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	x, y, w, h := scissorRect(call, s.Target)
	pass.SetScissorRect(x, y, w, h)
	pass.SetBlendConstant(&call.BlendFactor)
	pass.SetStencilReference(call.StencilReference)

	if indexBuf != nil {
		pass.DrawIndexed(call.VertexCount, 1, call.VertexStart, 0, 0)
	} else {
		pass.Draw(call.VertexCount, 1, call.VertexStart, 0)
	}
	pass.End()

	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}

	gpustate.Logger().Debug("native: draw submitted",
		"pipelineChanges", s.Pipeline,
		"resourceChanges", s.Resources.Changes,
		"targetChanged", s.TargetChanged,
		"vertices", call.VertexCount,
		"indexed", indexBuf != nil)
	return nil
}

// scissorRect returns the call's scissor clamped to the target, or the
// whole target when the rasterizer state does not enable scissoring.
func scissorRect(call *draw.DrawCall, t draw.Target) (x, y, w, h uint32) {
	sc := call.Scissor
	if sc == nil || !call.State.Desc().Raster.ScissorEnabled {
		return 0, 0, t.Width, t.Height
	}
	x = min(sc.X, t.Width)
	y = min(sc.Y, t.Height)
	w = min(sc.Width, t.Width-x)
	h = min(sc.Height, t.Height-y)
	return x, y, w, h
}

func depthAttachment(v *viewEntry, format gputypes.TextureFormat) *hal.RenderPassDepthStencilAttachment {
	if v == nil {
		return nil
	}
	a := &hal.RenderPassDepthStencilAttachment{
		View:         v.raw,
		DepthLoadOp:  gputypes.LoadOpLoad,
		DepthStoreOp: gputypes.StoreOpStore,
	}
	if hasStencil(format) {
		a.StencilLoadOp = gputypes.LoadOpLoad
		a.StencilStoreOp = gputypes.StoreOpStore
	}
	return a
}

func hasStencil(format gputypes.TextureFormat) bool {
	switch format {
	case gputypes.TextureFormatStencil8,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

func isStrip(t gputypes.PrimitiveTopology) bool {
	return t == gputypes.PrimitiveTopologyTriangleStrip || t == gputypes.PrimitiveTopologyLineStrip
}
