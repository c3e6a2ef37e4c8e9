package texture

import "errors"

var (
	// ErrNilDevice is returned when a texture or cache is created without a device.
	ErrNilDevice = errors.New("texture: device is nil")

	// ErrInvalidSize is returned for a texture with a zero width or height.
	ErrInvalidSize = errors.New("texture: width and height must be positive")

	// ErrNotLockable is returned when locking a texture whose usage is not
	// Staging or Dynamic.
	ErrNotLockable = errors.New("texture: only staging and dynamic textures can be locked")

	// ErrDepthStencilLock is returned when locking a depth/stencil texture.
	ErrDepthStencilLock = errors.New("texture: depth/stencil textures cannot be locked")

	// ErrReadDynamic is returned when a dynamic texture is locked for reading.
	ErrReadDynamic = errors.New("texture: dynamic textures cannot be locked for reading")

	// ErrDisposed is returned by operations on a disposed lock cache or a
	// closed texture.
	ErrDisposed = errors.New("texture: resource has been disposed")
)
