// Package fakegpu provides an in-memory device for tests.
//
// Device implements every device interface of the module. It hands out
// sequential IDs, remembers which objects are alive, keeps buffer and
// texture contents in memory and records each submission, so tests can
// assert on creation counts and leaks without a GPU.
package fakegpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
	"github.com/gogpu/gpustate/texture"
)

// Kind names a class of native object.
type Kind string

// Object kinds.
const (
	KindRasterState  Kind = "raster"
	KindBlendState   Kind = "blend"
	KindDepthStencil Kind = "depthstencil"
	KindSampler      Kind = "sampler"
	KindShaderModule Kind = "shader"
	KindBuffer       Kind = "buffer"
	KindTexture      Kind = "texture"
	KindTextureView  Kind = "view"
)

// ErrUnknownObject is returned when an operation names an object that does
// not exist.
var ErrUnknownObject = errors.New("fakegpu: unknown object")

// Device is a fake GPU device. The zero value is not usable; call New.
//
// Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	nextID uint64

	live      map[uint64]Kind
	created   map[Kind]int
	destroyed map[Kind]int
	fail      map[Kind]error

	buffers  map[gpucore.BufferID][]byte
	textures map[gpucore.TextureID]*texture.Info
	mapped   map[gpucore.TextureID]map[int]int

	submissions []draw.Submission
	submitErr   error
}

// New creates an empty fake device.
func New() *Device {
	return &Device{
		live:      make(map[uint64]Kind),
		created:   make(map[Kind]int),
		destroyed: make(map[Kind]int),
		fail:      make(map[Kind]error),
		buffers:   make(map[gpucore.BufferID][]byte),
		textures:  make(map[gpucore.TextureID]*texture.Info),
		mapped:    make(map[gpucore.TextureID]map[int]int),
	}
}

// FailCreate makes the next creations of kind fail with err. A nil err
// clears the failure.
func (d *Device) FailCreate(kind Kind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fail, kind)
		return
	}
	d.fail[kind] = err
}

// FailSubmit makes Submit fail with err. A nil err clears the failure.
func (d *Device) FailSubmit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitErr = err
}

// Created returns how many objects of kind were created.
func (d *Device) Created(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Destroyed returns how many objects of kind were destroyed.
func (d *Device) Destroyed(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// Live returns how many objects of kind are alive.
func (d *Device) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Submissions returns a copy of every submission so far.
func (d *Device) Submissions() []draw.Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]draw.Submission, len(d.submissions))
	copy(out, d.submissions)
	return out
}

// BufferData returns a copy of the contents of buf.
func (d *Device) BufferData(buf gpucore.BufferID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.buffers[buf]
	if !ok {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// MapCount returns how often the sub-resource of tex was mapped.
func (d *Device) MapCount(tex gpucore.TextureID, subresource int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mapped[tex][subresource]
}

func (d *Device) create(kind Kind) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[kind]; err != nil {
		return 0, err
	}
	d.nextID++
	d.live[d.nextID] = kind
	d.created[kind]++
	return d.nextID, nil
}

func (d *Device) destroy(kind Kind, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyLocked(kind, id)
}

func (d *Device) destroyLocked(kind Kind, id uint64) {
	if d.live[id] != kind {
		return
	}
	delete(d.live, id)
	d.destroyed[kind]++
}

// CreateRasterState implements state.Device.
func (d *Device) CreateRasterState(*state.RasterStateDesc) (gpucore.RasterStateID, error) {
	id, err := d.create(KindRasterState)
	return gpucore.RasterStateID(id), err
}

// DestroyRasterState implements state.Device.
func (d *Device) DestroyRasterState(id gpucore.RasterStateID) { d.destroy(KindRasterState, uint64(id)) }

// CreateBlendState implements state.Device.
func (d *Device) CreateBlendState(*state.BlendStateDesc) (gpucore.BlendStateID, error) {
	id, err := d.create(KindBlendState)
	return gpucore.BlendStateID(id), err
}

// DestroyBlendState implements state.Device.
func (d *Device) DestroyBlendState(id gpucore.BlendStateID) { d.destroy(KindBlendState, uint64(id)) }

// CreateDepthStencilState implements state.Device.
func (d *Device) CreateDepthStencilState(*state.DepthStencilStateDesc) (gpucore.DepthStencilStateID, error) {
	id, err := d.create(KindDepthStencil)
	return gpucore.DepthStencilStateID(id), err
}

// DestroyDepthStencilState implements state.Device.
func (d *Device) DestroyDepthStencilState(id gpucore.DepthStencilStateID) {
	d.destroy(KindDepthStencil, uint64(id))
}

// CreateSampler implements state.SamplerDevice.
func (d *Device) CreateSampler(*state.SamplerStateDesc) (gpucore.SamplerID, error) {
	id, err := d.create(KindSampler)
	return gpucore.SamplerID(id), err
}

// DestroySampler implements state.SamplerDevice.
func (d *Device) DestroySampler(id gpucore.SamplerID) { d.destroy(KindSampler, uint64(id)) }

// CreateShaderModule implements shader.Device.
func (d *Device) CreateShaderModule(_ string, spirv []uint32) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, errors.New("fakegpu: empty shader module")
	}
	id, err := d.create(KindShaderModule)
	return gpucore.ShaderModuleID(id), err
}

// DestroyShaderModule implements shader.Device.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.destroy(KindShaderModule, uint64(id))
}

// CreateBuffer implements draw.Device.
func (d *Device) CreateBuffer(desc *draw.BufferDesc) (gpucore.BufferID, error) {
	id, err := d.create(KindBuffer)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.Lock()
	d.buffers[gpucore.BufferID(id)] = make([]byte, desc.Size)
	d.mu.Unlock()
	return gpucore.BufferID(id), nil
}

// WriteBuffer implements draw.Device.
func (d *Device) WriteBuffer(buf gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	dst, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("fakegpu: write buffer %d: %w", buf, ErrUnknownObject)
	}
	if offset+uint64(len(data)) > uint64(len(dst)) {
		return fmt.Errorf("fakegpu: write of %d bytes at %d overflows buffer of %d", len(data), offset, len(dst))
	}
	copy(dst[offset:], data)
	return nil
}

// DestroyBuffer implements draw.Device.
func (d *Device) DestroyBuffer(buf gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buf)
	d.destroyLocked(KindBuffer, uint64(buf))
}

// Submit implements draw.Device. The submission is recorded by value; the
// draw call it points to is not copied.
func (d *Device) Submit(s *draw.Submission) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitErr != nil {
		return d.submitErr
	}
	d.submissions = append(d.submissions, *s)
	return nil
}

// CreateTexture implements texture.Device.
func (d *Device) CreateTexture(info *texture.Info) (gpucore.TextureID, error) {
	id, err := d.create(KindTexture)
	if err != nil {
		return gpucore.InvalidID, err
	}
	info2 := *info
	d.mu.Lock()
	d.textures[gpucore.TextureID(id)] = &info2
	d.mu.Unlock()
	return gpucore.TextureID(id), nil
}

// DestroyTexture implements texture.Device.
func (d *Device) DestroyTexture(tex gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, tex)
	d.destroyLocked(KindTexture, uint64(tex))
}

// CreateTextureView implements texture.Device.
func (d *Device) CreateTextureView(tex gpucore.TextureID, _ texture.TextureViewKey) (gpucore.TextureViewID, error) {
	d.mu.Lock()
	_, ok := d.textures[tex]
	d.mu.Unlock()
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("fakegpu: view of texture %d: %w", tex, ErrUnknownObject)
	}
	id, err := d.create(KindTextureView)
	return gpucore.TextureViewID(id), err
}

// DestroyTextureView implements texture.Device.
func (d *Device) DestroyTextureView(view gpucore.TextureViewID) {
	d.destroy(KindTextureView, uint64(view))
}

// MapSubresource implements texture.Device. Mapped memory holds one tightly
// packed row per texel row of the top mip.
func (d *Device) MapSubresource(tex gpucore.TextureID, subresource int, _ gpucore.MapMode) (gpucore.MappedSubresource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.textures[tex]
	if !ok {
		return gpucore.MappedSubresource{}, fmt.Errorf("fakegpu: map texture %d: %w", tex, ErrUnknownObject)
	}
	if d.mapped[tex] == nil {
		d.mapped[tex] = make(map[int]int)
	}
	d.mapped[tex][subresource]++

	rowPitch, slicePitch := gpucore.Pitch(info.Format, info.Width, max(info.Height, 1))
	return gpucore.MappedSubresource{
		Data:       make([]byte, slicePitch),
		RowPitch:   rowPitch,
		SlicePitch: slicePitch,
	}, nil
}

// UnmapSubresource implements texture.Device.
func (d *Device) UnmapSubresource(gpucore.TextureID, int) {}
