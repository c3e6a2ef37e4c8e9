package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent native GPU objects. Each device implementation
// maintains a mapping between IDs and actual backend objects.
// IDs are uint64 to accommodate various backend handle sizes.

// RasterStateID is an opaque handle to a native rasterizer state object.
type RasterStateID uint64

// BlendStateID is an opaque handle to a native blend state object.
type BlendStateID uint64

// DepthStencilStateID is an opaque handle to a native depth/stencil state object.
type DepthStencilStateID uint64

// SamplerID is an opaque handle to a native sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// TextureViewID is an opaque handle to a texture view.
type TextureViewID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// MapMode selects how a sub-resource is mapped for CPU access.
type MapMode uint8

// Map modes.
const (
	// MapRead maps the sub-resource for reading.
	MapRead MapMode = iota + 1

	// MapWrite maps the sub-resource for writing.
	MapWrite

	// MapReadWrite maps the sub-resource for reading and writing.
	MapReadWrite

	// MapWriteDiscard maps for writing; previous contents are undefined.
	MapWriteDiscard

	// MapWriteNoOverwrite maps for writing to regions the GPU is not using.
	MapWriteNoOverwrite
)

// String returns the name of the map mode.
func (m MapMode) String() string {
	switch m {
	case MapRead:
		return "Read"
	case MapWrite:
		return "Write"
	case MapReadWrite:
		return "ReadWrite"
	case MapWriteDiscard:
		return "WriteDiscard"
	case MapWriteNoOverwrite:
		return "WriteNoOverwrite"
	default:
		return "Unknown"
	}
}

// Reads reports whether the mode gives CPU read access.
func (m MapMode) Reads() bool {
	return m == MapRead || m == MapReadWrite
}

// ResourceUsage describes the intended CPU/GPU access pattern of a resource.
type ResourceUsage uint8

// Resource usages.
const (
	// UsageDefault is GPU read/write, no CPU access.
	UsageDefault ResourceUsage = iota

	// UsageImmutable is GPU read-only, initialized at creation.
	UsageImmutable

	// UsageDynamic is GPU read-only, CPU write-only.
	UsageDynamic

	// UsageStaging supports transfers between GPU and CPU.
	UsageStaging
)

// String returns the name of the usage.
func (u ResourceUsage) String() string {
	switch u {
	case UsageDefault:
		return "Default"
	case UsageImmutable:
		return "Immutable"
	case UsageDynamic:
		return "Dynamic"
	case UsageStaging:
		return "Staging"
	default:
		return "Unknown"
	}
}

// BindFlags is a bitmask of pipeline stages a resource may be bound to.
type BindFlags uint32

// Binding flags.
const (
	BindNone            BindFlags = 0
	BindShaderResource  BindFlags = 1 << 0
	BindRenderTarget    BindFlags = 1 << 1
	BindDepthStencil    BindFlags = 1 << 2
	BindUnorderedAccess BindFlags = 1 << 3
	BindVertexBuffer    BindFlags = 1 << 4
	BindIndexBuffer     BindFlags = 1 << 5
	BindConstantBuffer  BindFlags = 1 << 6
	BindStreamOut       BindFlags = 1 << 7
)

// Has reports whether all bits of flag are set.
func (f BindFlags) Has(flag BindFlags) bool {
	return f&flag == flag
}

// MappedSubresource is CPU-visible memory for one mapped sub-resource.
type MappedSubresource struct {
	// Data is the mapped memory. It is only valid until the sub-resource
	// is unmapped.
	Data []byte

	// RowPitch is the byte distance between rows.
	RowPitch uint32

	// SlicePitch is the byte distance between depth slices.
	SlicePitch uint32
}

// CalcSubresource returns the linear sub-resource index for a mip level
// and array slice of a resource with mipCount levels.
func CalcSubresource(mipLevel, arrayIndex, mipCount int) int {
	return mipLevel + arrayIndex*mipCount
}

// MipSize returns the size of dimension size at mip level, never less than 1.
func MipSize(size uint32, mipLevel int) uint32 {
	s := size >> uint(mipLevel) //nolint:gosec // mip level is clamped by callers
	if s == 0 {
		return 1
	}
	return s
}

// BytesPerPixel returns the texel size of an uncompressed color or depth
// format, or 0 when the format is block compressed or unknown.
func BytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float, gputypes.TextureFormatRG8Unorm,
		gputypes.TextureFormatRG8Snorm, gputypes.TextureFormatRG8Uint,
		gputypes.TextureFormatRG8Sint, gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint,
		gputypes.TextureFormatR32Sint, gputypes.TextureFormatRG16Unorm,
		gputypes.TextureFormatRG16Snorm, gputypes.TextureFormatRG16Uint,
		gputypes.TextureFormatRG16Sint, gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb, gputypes.TextureFormatRGB10A2Uint,
		gputypes.TextureFormatRGB10A2Unorm, gputypes.TextureFormatRG11B10Ufloat,
		gputypes.TextureFormatRGB9E5Ufloat, gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureFormatDepth32Float:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRG32Sint, gputypes.TextureFormatRGBA16Unorm,
		gputypes.TextureFormatRGBA16Snorm, gputypes.TextureFormatRGBA16Uint,
		gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return 16
	default:
		return 0
	}
}

// Pitch returns the row and slice pitch of a width x height region in format.
func Pitch(format gputypes.TextureFormat, width, height uint32) (rowPitch, slicePitch uint32) {
	rowPitch = width * BytesPerPixel(format)
	return rowPitch, rowPitch * height
}
