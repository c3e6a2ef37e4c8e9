// Package gpucore holds the vocabulary shared by every gpustate package.
//
// Native GPU objects never cross package boundaries directly. Instead each
// device implementation hands out opaque uint64 IDs ([RasterStateID],
// [SamplerID], [TextureViewID], ...) and keeps its own table from ID to
// backend object. [InvalidID] (zero) is never a live object, which lets
// caches test "is this realized" with a plain comparison.
//
// The package also defines the CPU mapping vocabulary used by texture locks
// ([MapMode], [MappedSubresource], [CalcSubresource]) and the resource
// usage and binding flags that decide which resources may be mapped at all.
package gpucore
