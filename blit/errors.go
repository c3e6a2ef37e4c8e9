package blit

import "errors"

// Package errors.
var (
	// ErrNilDevice is returned when a blitter is created without a device.
	ErrNilDevice = errors.New("blit: device is nil")

	// ErrClosed is returned by Blit after Close.
	ErrClosed = errors.New("blit: blitter is closed")

	// ErrNoTexture is returned when Blit is called without a texture view.
	ErrNoTexture = errors.New("blit: texture view is not set")
)
