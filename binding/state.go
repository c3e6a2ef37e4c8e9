package binding

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// DrawCallChanges is the set of input-assembler bindings that differ
// between two draw states.
type DrawCallChanges uint8

// Draw call change categories.
const (
	DrawCallNone          DrawCallChanges = 0
	DrawCallVertexBuffers DrawCallChanges = 1 << 0
	DrawCallInputLayout   DrawCallChanges = 1 << 1
	DrawCallIndexBuffer   DrawCallChanges = 1 << 2
	DrawCallTopology      DrawCallChanges = 1 << 3

	DrawCallAll = DrawCallVertexBuffers | DrawCallInputLayout | DrawCallIndexBuffer | DrawCallTopology
)

// Has reports whether all categories in c are present.
func (d DrawCallChanges) Has(c DrawCallChanges) bool { return d&c == c }

func (d DrawCallChanges) String() string {
	if d == DrawCallNone {
		return "None"
	}
	names := [...]string{"VertexBuffers", "InputLayout", "IndexBuffer", "Topology"}
	parts := make([]string, 0, len(names))
	for i, n := range names {
		if d&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// ResourceState is a snapshot of what a draw call binds to the input
// assembler.
type ResourceState struct {
	Topology      gputypes.PrimitiveTopology
	VertexBuffers *VertexBufferBindings
	IndexBuffer   IndexBufferBinding
}

// GetDifference reports which bindings differ between s and other.
//
// A nil other means no previous state and yields DrawCallAll. Vertex
// buffer collections are compared by pointer: they are copy-on-write, so a
// shared pointer guarantees equal contents without a deep comparison. The
// input layout is taken from each collection.
func (s *ResourceState) GetDifference(other *ResourceState) DrawCallChanges {
	if other == nil {
		return DrawCallAll
	}

	var changes DrawCallChanges
	if s.Topology != other.Topology {
		changes |= DrawCallTopology
	}
	if s.VertexBuffers != other.VertexBuffers {
		changes |= DrawCallVertexBuffers
	}
	if s.inputLayout() != other.inputLayout() {
		changes |= DrawCallInputLayout
	}
	if s.IndexBuffer != other.IndexBuffer {
		changes |= DrawCallIndexBuffer
	}
	return changes
}

func (s *ResourceState) inputLayout() *InputLayout {
	if s.VertexBuffers == nil {
		return nil
	}
	return s.VertexBuffers.InputLayout()
}
