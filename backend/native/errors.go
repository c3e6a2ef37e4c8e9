// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the HAL device.
var (
	// ErrNilDevice is returned when a device is created without a HAL device or queue.
	ErrNilDevice = errors.New("native: HAL device is nil")

	// ErrNoHAL is returned when a provider does not expose HAL types.
	ErrNoHAL = errors.New("native: provider does not expose a HAL device")

	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("native: device is closed")

	// ErrUnknownHandle is returned when an ID does not name a live object.
	ErrUnknownHandle = errors.New("native: unknown handle")

	// ErrNotMapped is returned when a sub-resource is unmapped without being mapped.
	ErrNotMapped = errors.New("native: sub-resource is not mapped")

	// ErrAlreadyMapped is returned when a mapped sub-resource is mapped again.
	ErrAlreadyMapped = errors.New("native: sub-resource is already mapped")

	// ErrNoVertexShader is returned for a pipeline state without a vertex shader.
	ErrNoVertexShader = errors.New("native: pipeline state has no vertex shader")
)

// ErrUnsupportedFormat is returned when a texture format cannot be mapped
// for CPU access.
var ErrUnsupportedFormat = errors.New("native: format has no CPU layout")
