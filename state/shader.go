package state

import "github.com/gogpu/gpustate/gpucore"

// ShaderStage identifies the pipeline stage a shader runs in.
type ShaderStage uint8

// Shader stages.
const (
	StageVertex ShaderStage = iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
)

// String returns the name of the stage.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StagePixel:
		return "Pixel"
	case StageGeometry:
		return "Geometry"
	case StageHull:
		return "Hull"
	case StageDomain:
		return "Domain"
	default:
		return "Unknown"
	}
}

// Shader is a compiled shader bound to one pipeline stage.
//
// Pipeline states compare shaders by pointer: two *Shader values are the
// same shader only if they are the same object.
type Shader struct {
	module     gpucore.ShaderModuleID
	stage      ShaderStage
	entryPoint string
	label      string
}

// NewShader wraps a compiled module for use in pipeline states.
func NewShader(module gpucore.ShaderModuleID, stage ShaderStage, entryPoint, label string) *Shader {
	return &Shader{
		module:     module,
		stage:      stage,
		entryPoint: entryPoint,
		label:      label,
	}
}

// Module returns the native shader module.
func (s *Shader) Module() gpucore.ShaderModuleID { return s.module }

// Stage returns the pipeline stage.
func (s *Shader) Stage() ShaderStage { return s.stage }

// EntryPoint returns the entry point function name.
func (s *Shader) EntryPoint() string { return s.entryPoint }

// Label returns the debug label.
func (s *Shader) Label() string { return s.label }
