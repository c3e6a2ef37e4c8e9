package shader

import "errors"

var (
	// ErrNilDevice is returned when a compiler is created without a device.
	ErrNilDevice = errors.New("shader: device is nil")

	// ErrEmptySource is returned when compiling empty WGSL source.
	ErrEmptySource = errors.New("shader: source is empty")

	// ErrClosed is returned by Compile after Close.
	ErrClosed = errors.New("shader: compiler is closed")
)
