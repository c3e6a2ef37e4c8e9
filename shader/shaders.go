package shader

import _ "embed"

// Embedded WGSL shader sources.

//go:embed shaders/blit.wgsl
var blitShaderSource string

// Entry points of the built-in shaders.
const (
	VertexEntry = "vs_main"
	PixelEntry  = "fs_main"
)

// BlitSource returns the WGSL source of the textured quad shader.
//
// Bindings (group 0): 0 projection uniform (mat4x4<f32>), 1 source
// texture, 2 sampler. Vertex input: location 0 position (vec2<f32>),
// 1 uv (vec2<f32>), 2 color (vec4<f32>).
func BlitSource() string { return blitShaderSource }
