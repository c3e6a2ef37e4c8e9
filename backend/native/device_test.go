// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

// openNoop opens a device and queue on the noop HAL backend.
func openNoop(t *testing.T) hal.OpenDevice {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return open
}

// newTestDevice creates a Device on the noop backend, closed at cleanup.
func newTestDevice(t *testing.T) *Device {
	t.Helper()
	open := openNoop(t)
	d, err := New(open.Device, open.Queue, Config{Label: "test"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// mockProvider is a gpucontext.DeviceProvider exposing HAL objects.
type mockProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *mockProvider) Device() gpucontext.Device { return nil }
func (p *mockProvider) Queue() gpucontext.Queue { return nil }
func (p *mockProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *mockProvider) Adapter() gpucontext.Adapter { return nil }
func (p *mockProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{Name: "mock"} }
func (p *mockProvider) HalDevice() any { return p.device }
func (p *mockProvider) HalQueue() any { return p.queue }

// bareProvider exposes no HAL objects.
type bareProvider struct{ mockProvider }

func (p *bareProvider) HalDevice() {}

func TestNew_NilDevice(t *testing.T) {
	if _, err := New(nil, nil, Config{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil) error = %v, want ErrNilDevice", err)
	}
	if _, err := NewFromWGPU(nil, Config{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewFromWGPU(nil) error = %v, want ErrNilDevice", err)
	}
	if _, err := NewFromProvider(nil, Config{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewFromProvider(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestNewFromProvider(t *testing.T) {
	open := openNoop(t)

	p := &mockProvider{device: open.Device, queue: open.Queue, format: gputypes.TextureFormatBGRA8Unorm}
	d, err := NewFromProvider(p, Config{})
	if err != nil {
		t.Fatalf("NewFromProvider failed: %v", err)
	}
	defer d.Close()

	if got := d.SurfaceFormat(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want BGRA8Unorm", got)
	}
	if dev, queue := d.HAL(); dev != open.Device || queue != open.Queue {
		t.Error("HAL() did not return the provider's device and queue")
	}

	if _, err := NewFromProvider(&mockProvider{}, Config{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("provider with nil HAL objects: error = %v, want ErrNoHAL", err)
	}
	if _, err := NewFromProvider(&bareProvider{}, Config{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("provider without HAL accessors: error = %v, want ErrNoHAL", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Label == "" {
		t.Error("default Label is empty")
	}
	if cfg.PipelineCacheSize != DefaultPipelineCacheSize {
		t.Errorf("PipelineCacheSize = %d, want %d", cfg.PipelineCacheSize, DefaultPipelineCacheSize)
	}
	if cfg.CopyPitchAlignment != 256 {
		t.Errorf("CopyPitchAlignment = %d, want 256", cfg.CopyPitchAlignment)
	}

	custom := Config{Label: "x", PipelineCacheSize: 8, CopyPitchAlignment: 64}.withDefaults()
	if custom.Label != "x" || custom.PipelineCacheSize != 8 || custom.CopyPitchAlignment != 64 {
		t.Errorf("withDefaults overrode explicit values: %+v", custom)
	}
}

func TestBufferRoundTrip(t *testing.T) {
	d := newTestDevice(t)

	id, err := d.CreateBuffer(&draw.BufferDesc{Size: 10, Bind: gpucore.BindVertexBuffer})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	entry := d.buffers[id]
	if entry.size != 12 {
		t.Errorf("buffer size = %d, want 12 (4-byte aligned)", entry.size)
	}

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := d.WriteBuffer(id, 4, data); err != nil {
		t.Fatalf("WriteBuffer failed: %v", err)
	}

	mapping, err := d.device.MapBuffer(entry.raw, 0, entry.size)
	if err != nil {
		t.Fatalf("MapBuffer failed: %v", err)
	}
	got := unsafe.Slice((*byte)(mapping.Ptr), entry.size)
	want := []byte{0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(got, want) {
		t.Errorf("buffer contents = %v, want %v", got, want)
	}

	if err := d.WriteBuffer(id, 8, data); err == nil {
		t.Error("WriteBuffer past the end succeeded")
	}
	if err := d.WriteBuffer(999, 0, data); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("WriteBuffer(unknown) error = %v, want ErrUnknownHandle", err)
	}

	d.DestroyBuffer(id)
	if _, ok := d.buffers[id]; ok {
		t.Error("buffer still registered after DestroyBuffer")
	}
	d.DestroyBuffer(id) // tolerated
}

func TestBufferUsage(t *testing.T) {
	tests := []struct {
		bind gpucore.BindFlags
		want gputypes.BufferUsage
	}{
		{gpucore.BindNone, gputypes.BufferUsageCopyDst},
		{gpucore.BindVertexBuffer, gputypes.BufferUsageCopyDst | gputypes.BufferUsageVertex},
		{gpucore.BindIndexBuffer, gputypes.BufferUsageCopyDst | gputypes.BufferUsageIndex},
		{gpucore.BindConstantBuffer, gputypes.BufferUsageCopyDst | gputypes.BufferUsageUniform},
		{gpucore.BindUnorderedAccess, gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage},
		{
			gpucore.BindVertexBuffer | gpucore.BindIndexBuffer,
			gputypes.BufferUsageCopyDst | gputypes.BufferUsageVertex | gputypes.BufferUsageIndex,
		},
	}
	for _, tt := range tests {
		if got := bufferUsage(tt.bind); got != tt.want {
			t.Errorf("bufferUsage(%#x) = %#x, want %#x", tt.bind, got, tt.want)
		}
	}
}

func TestStateObjects(t *testing.T) {
	d := newTestDevice(t)

	r, err := d.CreateRasterState(&state.RasterCullBack)
	if err != nil {
		t.Fatalf("CreateRasterState failed: %v", err)
	}
	b, err := d.CreateBlendState(&state.BlendPremultiplied)
	if err != nil {
		t.Fatalf("CreateBlendState failed: %v", err)
	}
	ds, err := d.CreateDepthStencilState(&state.DepthEnabled)
	if err != nil {
		t.Fatalf("CreateDepthStencilState failed: %v", err)
	}

	if r == gpucore.InvalidID || b == gpucore.InvalidID || ds == gpucore.InvalidID {
		t.Fatal("state IDs must be non-zero")
	}
	if uint64(r) == uint64(b) || uint64(b) == uint64(ds) {
		t.Error("state IDs are not unique")
	}
	if d.rasterStates[r] != state.RasterCullBack {
		t.Error("raster description not stored")
	}
	if d.blendStates[b] != state.BlendPremultiplied {
		t.Error("blend description not stored")
	}
	if d.depthStencils[ds] != state.DepthEnabled {
		t.Error("depth/stencil description not stored")
	}

	d.DestroyRasterState(r)
	d.DestroyBlendState(b)
	d.DestroyDepthStencilState(ds)
	if len(d.rasterStates)+len(d.blendStates)+len(d.depthStencils) != 0 {
		t.Error("state descriptions remain after destroy")
	}
}

func TestSamplerDescriptor(t *testing.T) {
	desc := state.AnisotropicFiltering
	got := samplerDescriptor("s", &desc)
	if got.MipmapFilter != gputypes.FilterModeLinear {
		t.Errorf("MipmapFilter = %v, want Linear", got.MipmapFilter)
	}
	if got.Anisotropy != desc.MaxAnisotropy {
		t.Errorf("Anisotropy = %d, want %d", got.Anisotropy, desc.MaxAnisotropy)
	}

	point := samplerDescriptor("p", &state.PointFiltering)
	if point.MipmapFilter != gputypes.FilterModeNearest {
		t.Errorf("point MipmapFilter = %v, want Nearest", point.MipmapFilter)
	}
	if point.Anisotropy != 1 {
		t.Errorf("point Anisotropy = %d, want 1", point.Anisotropy)
	}
	if point.LodMaxClamp != state.PointFiltering.MaxLOD {
		t.Errorf("LodMaxClamp = %v, want %v", point.LodMaxClamp, state.PointFiltering.MaxLOD)
	}

	d := newTestDevice(t)
	factory := state.NewSamplerStateFactory()
	s1, err := factory.GetSamplerState(d, &state.LinearFiltering, nil)
	if err != nil {
		t.Fatalf("GetSamplerState failed: %v", err)
	}
	s2, err := factory.GetSamplerState(d, &state.LinearFiltering, nil)
	if err != nil {
		t.Fatalf("GetSamplerState failed: %v", err)
	}
	if s1 != s2 {
		t.Errorf("equal descriptions produced samplers %d and %d", s1, s2)
	}
	if len(d.samplers) != 1 {
		t.Errorf("native samplers = %d, want 1", len(d.samplers))
	}
	factory.ClearCache()
	if len(d.samplers) != 0 {
		t.Errorf("native samplers after ClearCache = %d, want 0", len(d.samplers))
	}
}

func TestClose(t *testing.T) {
	open := openNoop(t)
	d, err := New(open.Device, open.Queue, Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := d.CreateBuffer(&draw.BufferDesc{Size: 16, Bind: gpucore.BindConstantBuffer}); err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if len(d.buffers) != 0 {
		t.Errorf("buffers after Close = %d, want 0", len(d.buffers))
	}

	if _, err := d.CreateBuffer(&draw.BufferDesc{Size: 16}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer after Close: error = %v, want ErrClosed", err)
	}
	if _, err := d.CreateRasterState(&state.RasterCullBack); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateRasterState after Close: error = %v, want ErrClosed", err)
	}
	if err := d.Submit(&draw.Submission{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close: error = %v, want ErrClosed", err)
	}
}
