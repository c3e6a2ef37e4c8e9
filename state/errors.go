package state

import "errors"

// Package errors.
var (
	// ErrNilDevice is returned when a cache or factory is used without a device.
	ErrNilDevice = errors.New("state: device is nil")

	// ErrNilPipelineState is returned when Cache is called with nil.
	ErrNilPipelineState = errors.New("state: pipeline state is nil")

	// ErrNilSamplerDesc is returned when GetSamplerState is called without a descriptor.
	ErrNilSamplerDesc = errors.New("state: sampler descriptor is nil")

	// ErrDeviceNotComparable is returned when a sampler device cannot be
	// used as a cache key, such as a struct value holding a map.
	ErrDeviceNotComparable = errors.New("state: sampler device is not comparable")

	// ErrInvalidNativeID is returned when a device reports success with a zero ID.
	ErrInvalidNativeID = errors.New("state: device returned an invalid native object")
)
