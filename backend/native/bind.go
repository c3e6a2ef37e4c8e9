// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/gpustate/binding"
	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
)

// bindGroupCacheSize bounds the number of live bind groups.
const bindGroupCacheSize = 64

// bindingCounts is the shape of group 0: constant buffers are bound first,
// then 2D float textures, then filtering samplers, with consecutive binding
// numbers.
type bindingCounts struct {
	constants int
	textures  int
	samplers  int
}

func (c bindingCounts) empty() bool {
	return c.constants == 0 && c.textures == 0 && c.samplers == 0
}

type bindLayout struct {
	group    hal.BindGroupLayout
	pipeline hal.PipelineLayout
}

// binder owns bind group layouts, pipeline layouts and bind groups.
type binder struct {
	device  hal.Device
	layouts map[bindingCounts]*bindLayout
	groups  *lru.Cache[string, hal.BindGroup]
}

func newBinder(device hal.Device) binder {
	// The size is a positive constant, so NewWithEvict cannot fail.
	groups, _ := lru.NewWithEvict(bindGroupCacheSize, func(_ string, g hal.BindGroup) {
		device.DestroyBindGroup(g)
	})
	return binder{
		device:  device,
		layouts: make(map[bindingCounts]*bindLayout),
		groups:  groups,
	}
}

// layout returns the bind group and pipeline layout for counts.
func (b *binder) layout(counts bindingCounts) (*bindLayout, error) {
	if l, ok := b.layouts[counts]; ok {
		return l, nil
	}

	l := &bindLayout{}
	var groups []hal.BindGroupLayout
	if !counts.empty() {
		entries := make([]gputypes.BindGroupLayoutEntry, 0, counts.constants+counts.textures+counts.samplers)
		n := uint32(0)
		for range counts.constants {
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    n,
				Visibility: gputypes.ShaderStagesVertexFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			})
			n++
		}
		for range counts.textures {
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    n,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			})
			n++
		}
		for range counts.samplers {
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    n,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			})
			n++
		}

		group, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("group0/%d-%d-%d", counts.constants, counts.textures, counts.samplers),
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("native: create bind group layout: %w", err)
		}
		l.group = group
		groups = []hal.BindGroupLayout{group}
	}

	pipeline, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pipeline-layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		if l.group != nil {
			b.device.DestroyBindGroupLayout(l.group)
		}
		return nil, fmt.Errorf("native: create pipeline layout: %w", err)
	}
	l.pipeline = pipeline
	b.layouts[counts] = l
	return l, nil
}

// bindGroup returns a bind group for the resolved bindings, reusing one
// with identical entries when it is still cached.
func (b *binder) bindGroup(r *resolvedBindings) (hal.BindGroup, error) {
	if r.counts.empty() {
		return nil, nil
	}
	if g, ok := b.groups.Get(r.key); ok {
		return g, nil
	}

	l, err := b.layout(r.counts)
	if err != nil {
		return nil, err
	}
	g, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "group0",
		Layout:  l.group,
		Entries: r.entries,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	b.groups.Add(r.key, g)
	return g, nil
}

// forget drops every cached bind group. It runs when a bound resource may
// have been destroyed.
func (b *binder) forget() { b.groups.Purge() }

func (b *binder) destroy() {
	b.forget()
	for counts, l := range b.layouts {
		b.device.DestroyPipelineLayout(l.pipeline)
		if l.group != nil {
			b.device.DestroyBindGroupLayout(l.group)
		}
		delete(b.layouts, counts)
	}
}

// resolvedBindings is group 0 of a draw call in native form.
type resolvedBindings struct {
	counts  bindingCounts
	entries []gputypes.BindGroupEntry
	// key identifies the bound objects.
	key string
}

// resolveBindings collects the leading bound slots of each kind from call.
// A slot after the first unbound one of its kind is not bound. The caller
// holds d.mu.
func (d *Device) resolveBindings(call *draw.DrawCall) (*resolvedBindings, error) {
	r := &resolvedBindings{}
	var key []byte
	n := uint32(0)

	for i := range call.ConstantBuffers.Len() {
		cb := call.ConstantBuffers.At(i)
		if cb.Buffer == gpucore.InvalidID {
			break
		}
		buf, ok := d.buffers[cb.Buffer]
		if !ok {
			return nil, fmt.Errorf("native: constant buffer %d: %w", cb.Buffer, ErrUnknownHandle)
		}
		size := cb.Size
		if size == 0 {
			size = buf.size - min(cb.Offset, buf.size)
		}
		r.entries = append(r.entries, gputypes.BindGroupEntry{
			Binding: n,
			Resource: gputypes.BufferBinding{
				Buffer: buf.raw.NativeHandle(),
				Offset: cb.Offset,
				Size:   size,
			},
		})
		key = fmt.Appendf(key, "c%d:%d:%d;", cb.Buffer, cb.Offset, size)
		r.counts.constants++
		n++
	}

	for i := range call.ShaderResources.Len() {
		id := call.ShaderResources.At(i)
		if id == gpucore.InvalidID {
			break
		}
		v, ok := d.views[id]
		if !ok {
			return nil, fmt.Errorf("native: shader resource %d: %w", id, ErrUnknownHandle)
		}
		r.entries = append(r.entries, gputypes.BindGroupEntry{
			Binding:  n,
			Resource: gputypes.TextureViewBinding{TextureView: v.raw.NativeHandle()},
		})
		key = fmt.Appendf(key, "t%d;", id)
		r.counts.textures++
		n++
	}

	for i := range call.Samplers.Len() {
		id := call.Samplers.At(i)
		if id == gpucore.InvalidID {
			break
		}
		s, ok := d.samplers[id]
		if !ok {
			return nil, fmt.Errorf("native: sampler %d: %w", id, ErrUnknownHandle)
		}
		r.entries = append(r.entries, gputypes.BindGroupEntry{
			Binding:  n,
			Resource: gputypes.SamplerBinding{Sampler: s.NativeHandle()},
		})
		key = fmt.Appendf(key, "s%d;", id)
		r.counts.samplers++
		n++
	}

	r.key = string(key)
	return r, nil
}

// boundVertexBuffer returns slot 0 of the call's vertex buffers. Pipelines
// declare a single vertex buffer layout.
func boundVertexBuffer(call *draw.DrawCall) (binding.VertexBufferBinding, *binding.InputLayout) {
	vb := call.Resources.VertexBuffers
	if vb == nil {
		return binding.VertexBufferBinding{}, nil
	}
	return vb.At(0), vb.InputLayout()
}
