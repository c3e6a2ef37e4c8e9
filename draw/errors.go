package draw

import "errors"

// Package errors.
var (
	// ErrNilDevice is returned when a renderer is created without a device.
	ErrNilDevice = errors.New("draw: device is nil")

	// ErrNilDrawCall is returned when Draw is called with nil.
	ErrNilDrawCall = errors.New("draw: draw call is nil")

	// ErrNoPipelineState is returned for a draw call without a cached
	// pipeline state.
	ErrNoPipelineState = errors.New("draw: draw call has no cached pipeline state")

	// ErrNoTarget is returned when Draw is called without a render target.
	ErrNoTarget = errors.New("draw: render target is not set")
)
