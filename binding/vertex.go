package binding

import (
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate/gpucore"
)

// InputLayout describes how vertex data is read from a vertex buffer.
// It is immutable; draw state compares layouts by pointer.
type InputLayout struct {
	label  string
	layout gputypes.VertexBufferLayout
}

// NewInputLayout creates a per-vertex input layout.
func NewInputLayout(label string, stride uint64, attributes ...gputypes.VertexAttribute) *InputLayout {
	return &InputLayout{
		label: label,
		layout: gputypes.VertexBufferLayout{
			ArrayStride: stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  slices.Clone(attributes),
		},
	}
}

// Label returns the debug label.
func (l *InputLayout) Label() string { return l.label }

// Stride returns the vertex size in bytes.
func (l *InputLayout) Stride() uint64 { return l.layout.ArrayStride }

// Layout returns the layout as a gputypes vertex buffer layout.
func (l *InputLayout) Layout() gputypes.VertexBufferLayout {
	out := l.layout
	out.Attributes = slices.Clone(l.layout.Attributes)
	return out
}

// VertexBufferBindings is an immutable set of vertex buffer bindings
// together with the input layout that reads them.
//
// The collection is copy-on-write: With returns a new collection and
// leaves the receiver unchanged. Two draw states holding the same
// collection pointer therefore bind identical vertex buffers.
type VertexBufferBindings struct {
	layout *InputLayout
	slots  *Slots[VertexBufferBinding]
}

// NewVertexBufferBindings creates a collection binding buffers to slots
// 0..len(buffers)-1.
func NewVertexBufferBindings(layout *InputLayout, buffers ...VertexBufferBinding) *VertexBufferBindings {
	slots := NewVertexBufferSlots()
	CopyVertexBuffers(slots, buffers, 0)
	return &VertexBufferBindings{layout: layout, slots: slots}
}

// With returns a copy of the collection with slot set to b.
func (v *VertexBufferBindings) With(slot int, b VertexBufferBinding) *VertexBufferBindings {
	c := &VertexBufferBindings{layout: v.layout, slots: v.slots.Clone()}
	c.slots.Set(slot, b)
	return c
}

// WithLayout returns a copy of the collection read through layout.
func (v *VertexBufferBindings) WithLayout(layout *InputLayout) *VertexBufferBindings {
	return &VertexBufferBindings{layout: layout, slots: v.slots.Clone()}
}

// InputLayout returns the layout used to read the buffers.
func (v *VertexBufferBindings) InputLayout() *InputLayout { return v.layout }

// Len returns the slot capacity.
func (v *VertexBufferBindings) Len() int { return v.slots.Len() }

// At returns the binding at slot i.
func (v *VertexBufferBindings) At(i int) VertexBufferBinding { return v.slots.At(i) }

// Dirty returns the range of slots assigned since the collection was built.
func (v *VertexBufferBindings) Dirty() (start, count int) { return v.slots.Dirty() }

// IndexBufferBinding binds an index buffer. The zero value binds nothing.
type IndexBufferBinding struct {
	Buffer gpucore.BufferID
	Format gputypes.IndexFormat
	Offset uint64
}

// IsBound reports whether an index buffer is bound.
func (b IndexBufferBinding) IsBound() bool { return b.Buffer != gpucore.InvalidID }
