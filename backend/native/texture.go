// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/texture"
)

type textureEntry struct {
	raw  hal.Texture
	info texture.Info

	// staging holds the buffers of mapped sub-resources.
	staging map[int]*stagingBuffer
}

type viewEntry struct {
	raw     hal.TextureView
	texture gpucore.TextureID
}

// stagingBuffer is a host-visible copy of one sub-resource.
type stagingBuffer struct {
	buf      hal.Buffer
	mode     gpucore.MapMode
	copy     hal.BufferTextureCopy
	rowPitch uint32
	size     uint64
}

func (t *textureEntry) releaseStaging(device hal.Device) {
	for sub, s := range t.staging {
		_ = device.UnmapBuffer(s.buf)
		device.DestroyBuffer(s.buf)
		delete(t.staging, sub)
	}
}

// CreateTexture implements texture.Device. Textures are always copyable so
// they can be mapped through staging buffers.
func (d *Device) CreateTexture(info *texture.Info) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}

	id := gpucore.TextureID(d.newID())
	label := info.Label
	if label == "" {
		label = d.label("texture", uint64(id))
	}

	layers := max(uint32(info.ArrayCount), 1) //nolint:gosec // array counts are small
	if info.Dimension == gputypes.TextureDimension3D {
		layers = max(info.Depth, 1)
	}
	dim := info.Dimension
	if dim == gputypes.TextureDimensionUndefined {
		dim = gputypes.TextureDimension2D
	}

	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              info.Width,
			Height:             max(info.Height, 1),
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: max(uint32(info.MipLevels), 1), //nolint:gosec // mip counts are small
		SampleCount:   1,
		Dimension:     dim,
		Format:        info.Format,
		Usage:         textureUsage(info.Binding),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", label, err)
	}

	stored := *info
	stored.Dimension = dim
	d.textures[id] = &textureEntry{raw: raw, info: stored, staging: make(map[int]*stagingBuffer)}
	return id, nil
}

func textureUsage(bind gpucore.BindFlags) gputypes.TextureUsage {
	usage := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if bind.Has(gpucore.BindShaderResource) {
		usage |= gputypes.TextureUsageTextureBinding
	}
	if bind.Has(gpucore.BindRenderTarget) || bind.Has(gpucore.BindDepthStencil) {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	if bind.Has(gpucore.BindUnorderedAccess) {
		usage |= gputypes.TextureUsageStorageBinding
	}
	return usage
}

// DestroyTexture implements texture.Device. Views of the texture that are
// still alive are destroyed with it.
func (d *Device) DestroyTexture(tex gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[tex]
	if !ok {
		return
	}
	for id, v := range d.views {
		if v.texture == tex {
			d.device.DestroyTextureView(v.raw)
			delete(d.views, id)
		}
	}
	t.releaseStaging(d.device)
	d.device.DestroyTexture(t.raw)
	delete(d.textures, tex)
}

// CreateTextureView implements texture.ViewDevice.
func (d *Device) CreateTextureView(tex gpucore.TextureID, key texture.TextureViewKey) (gpucore.TextureViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	t, ok := d.textures[tex]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("native: view of texture %d: %w", tex, ErrUnknownHandle)
	}

	// 3D textures mark the array range with -1.
	baseLayer, layerCount := uint32(0), uint32(1)
	if key.ArrayIndex >= 0 {
		baseLayer = uint32(key.ArrayIndex) //nolint:gosec // checked non-negative
	}
	if key.ArrayCount > 0 {
		layerCount = uint32(key.ArrayCount) //nolint:gosec // checked positive
	}

	id := gpucore.TextureViewID(d.newID())
	raw, err := d.device.CreateTextureView(t.raw, &hal.TextureViewDescriptor{
		Label:           d.label("view", uint64(id)),
		Format:          key.Format,
		Dimension:       key.ViewDimension(t.info.Dimension),
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    uint32(max(key.FirstMip, 0)), //nolint:gosec // clamped
		MipLevelCount:   uint32(max(key.MipCount, 1)), //nolint:gosec // clamped
		BaseArrayLayer:  baseLayer,
		ArrayLayerCount: layerCount,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create view of texture %d: %w", tex, err)
	}
	d.views[id] = &viewEntry{raw: raw, texture: tex}
	return id, nil
}

// DestroyTextureView implements texture.ViewDevice.
func (d *Device) DestroyTextureView(view gpucore.TextureViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.views[view]; ok {
		d.binder.forget()
		d.device.DestroyTextureView(v.raw)
		delete(d.views, view)
	}
}

// MapSubresource implements texture.Mapper.
//
// WebGPU textures are never host visible, so the sub-resource is copied
// through a staging buffer whose rows are aligned to the copy pitch
// alignment. Read modes wait for the copy before returning; the returned
// RowPitch is the aligned pitch.
func (d *Device) MapSubresource(tex gpucore.TextureID, subresource int, mode gpucore.MapMode) (gpucore.MappedSubresource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.MappedSubresource{}, ErrClosed
	}
	t, ok := d.textures[tex]
	if !ok {
		return gpucore.MappedSubresource{}, fmt.Errorf("native: map texture %d: %w", tex, ErrUnknownHandle)
	}
	if _, busy := t.staging[subresource]; busy {
		return gpucore.MappedSubresource{}, ErrAlreadyMapped
	}

	s, err := d.newStaging(t, subresource, mode)
	if err != nil {
		return gpucore.MappedSubresource{}, err
	}

	if mode.Reads() {
		if err := d.copyTexture(func(enc hal.CommandEncoder) {
			enc.CopyTextureToBuffer(t.raw, s.buf, []hal.BufferTextureCopy{s.copy})
		}); err != nil {
			d.device.DestroyBuffer(s.buf)
			return gpucore.MappedSubresource{}, fmt.Errorf("native: read back texture %d: %w", tex, err)
		}
	}

	mapping, err := d.device.MapBuffer(s.buf, 0, s.size)
	if err != nil {
		d.device.DestroyBuffer(s.buf)
		return gpucore.MappedSubresource{}, fmt.Errorf("native: map staging buffer: %w", err)
	}
	t.staging[subresource] = s

	gpustate.Logger().Debug("native: sub-resource mapped",
		"texture", tex,
		"subresource", subresource,
		"mode", mode,
		"rowPitch", s.rowPitch)

	return gpucore.MappedSubresource{
		Data:       unsafe.Slice((*byte)(mapping.Ptr), s.size),
		RowPitch:   s.rowPitch,
		SlicePitch: s.rowPitch * s.copy.Size.Height,
	}, nil
}

// UnmapSubresource implements texture.Mapper. Written data is copied back
// into the texture before the staging buffer is released.
func (d *Device) UnmapSubresource(tex gpucore.TextureID, subresource int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[tex]
	if !ok {
		return
	}
	s, ok := t.staging[subresource]
	if !ok {
		gpustate.Logger().Warn("native: unmap of unmapped sub-resource",
			"texture", tex,
			"subresource", subresource,
			"err", ErrNotMapped)
		return
	}
	delete(t.staging, subresource)

	if err := d.device.UnmapBuffer(s.buf); err != nil {
		gpustate.Logger().Warn("native: unmap staging buffer", "err", err)
	}
	if s.mode != gpucore.MapRead && !d.closed {
		if err := d.copyTexture(func(enc hal.CommandEncoder) {
			enc.CopyBufferToTexture(s.buf, t.raw, []hal.BufferTextureCopy{s.copy})
		}); err != nil {
			gpustate.Logger().Warn("native: upload sub-resource",
				"texture", tex,
				"subresource", subresource,
				"err", err)
		}
	}
	d.device.DestroyBuffer(s.buf)
}

// newStaging creates the staging buffer for one sub-resource of t.
func (d *Device) newStaging(t *textureEntry, subresource int, mode gpucore.MapMode) (*stagingBuffer, error) {
	info := t.info
	mips := max(info.MipLevels, 1)
	mip := subresource % mips
	layer := subresource / mips

	bpp := gpucore.BytesPerPixel(info.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, info.Format)
	}

	width := gpucore.MipSize(info.Width, mip)
	height := gpucore.MipSize(max(info.Height, 1), mip)
	depth := uint32(1)
	origin := hal.Origin3D{Z: uint32(layer)} //nolint:gosec // layer is bounded by the array count
	if info.Dimension == gputypes.TextureDimension3D {
		depth = gpucore.MipSize(max(info.Depth, 1), mip)
		origin.Z = 0
	}

	align := d.cfg.CopyPitchAlignment
	rowPitch := (width*bpp + align - 1) / align * align
	size := uint64(rowPitch) * uint64(height) * uint64(depth)

	usage := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if mode.Reads() {
		usage |= gputypes.BufferUsageMapRead
	}
	if mode != gpucore.MapRead {
		usage |= gputypes.BufferUsageMapWrite
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.label("staging", uint64(subresource)),
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}

	return &stagingBuffer{
		buf:  buf,
		mode: mode,
		copy: hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: rowPitch, RowsPerImage: height},
			TextureBase: hal.ImageCopyTexture{
				Texture:  t.raw,
				MipLevel: uint32(mip), //nolint:gosec // mip is bounded by the mip count
				Origin:   origin,
				Aspect:   gputypes.TextureAspectAll,
			},
			Size: hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: depth},
		},
		rowPitch: rowPitch,
		size:     size,
	}, nil
}

// copyTexture records one copy, submits it and waits for the GPU.
func (d *Device) copyTexture(record func(enc hal.CommandEncoder)) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: d.cfg.Label + "/copy"})
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	if err := enc.BeginEncoding(d.cfg.Label + "/copy"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return d.device.WaitIdle()
}
