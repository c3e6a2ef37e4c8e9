package binding

import "github.com/gogpu/gpustate/gpucore"

// Slot capacities per binding kind.
const (
	MaxVertexBuffers   = 16
	MaxConstantBuffers = 14
	MaxShaderResources = 64
	MaxSamplers        = 16
	MaxReadWriteViews  = 8
	MaxStreamOut       = 4
)

// VertexBufferBinding binds a vertex buffer to an input slot.
type VertexBufferBinding struct {
	Buffer gpucore.BufferID
	Stride uint32
	Offset uint32
}

// ConstantBufferBinding binds a range of a uniform buffer.
// A zero Size binds the whole buffer.
type ConstantBufferBinding struct {
	Buffer gpucore.BufferID
	Offset uint64
	Size   uint64
}

// ReadWriteViewBinding binds a texture view for unordered access.
type ReadWriteViewBinding struct {
	View gpucore.TextureViewID
	// InitialCount is the append/consume counter; -1 keeps the current value.
	InitialCount int32
}

// StreamOutBinding binds a buffer as a stream-out target.
type StreamOutBinding struct {
	Buffer gpucore.BufferID
	Offset uint32
}

// NewVertexBufferSlots returns an empty vertex buffer slot array.
func NewVertexBufferSlots() *Slots[VertexBufferBinding] {
	return NewSlots[VertexBufferBinding](MaxVertexBuffers)
}

// NewConstantBufferSlots returns an empty constant buffer slot array.
func NewConstantBufferSlots() *Slots[ConstantBufferBinding] {
	return NewSlots[ConstantBufferBinding](MaxConstantBuffers)
}

// NewShaderResourceSlots returns an empty shader resource view slot array.
func NewShaderResourceSlots() *Slots[gpucore.TextureViewID] {
	return NewSlots[gpucore.TextureViewID](MaxShaderResources)
}

// NewSamplerSlots returns an empty sampler slot array.
func NewSamplerSlots() *Slots[gpucore.SamplerID] {
	return NewSlots[gpucore.SamplerID](MaxSamplers)
}

// NewReadWriteViewSlots returns an empty read/write view slot array.
func NewReadWriteViewSlots() *Slots[ReadWriteViewBinding] {
	return NewSlots[ReadWriteViewBinding](MaxReadWriteViews)
}

// NewStreamOutSlots returns an empty stream-out slot array.
func NewStreamOutSlots() *Slots[StreamOutBinding] {
	return NewSlots[StreamOutBinding](MaxStreamOut)
}

// CopyVertexBuffers splices vertex buffer bindings into dst at start.
func CopyVertexBuffers(dst *Slots[VertexBufferBinding], src []VertexBufferBinding, start int) int {
	return Splice(dst, src, start)
}

// CopyConstantBuffers splices constant buffer bindings into dst at start.
func CopyConstantBuffers(dst *Slots[ConstantBufferBinding], src []ConstantBufferBinding, start int) int {
	return Splice(dst, src, start)
}

// CopyShaderResources splices shader resource views into dst at start.
func CopyShaderResources(dst *Slots[gpucore.TextureViewID], src []gpucore.TextureViewID, start int) int {
	return Splice(dst, src, start)
}

// CopySamplers splices samplers into dst at start.
func CopySamplers(dst *Slots[gpucore.SamplerID], src []gpucore.SamplerID, start int) int {
	return Splice(dst, src, start)
}

// CopyReadWriteViews splices read/write view bindings into dst at start.
func CopyReadWriteViews(dst *Slots[ReadWriteViewBinding], src []ReadWriteViewBinding, start int) int {
	return Splice(dst, src, start)
}

// CopyStreamOut splices stream-out bindings into dst at start.
func CopyStreamOut(dst *Slots[StreamOutBinding], src []StreamOutBinding, start int) int {
	return Splice(dst, src, start)
}
