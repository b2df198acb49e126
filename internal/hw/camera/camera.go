package camera

import (
	"context"
	"errors"
	"image"
)

// Facing selects which camera a device should open.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

var (
	// ErrDenied is returned by Open when the user or the platform refused access.
	ErrDenied = errors.New("camera: access denied")
	// ErrUnsupported is returned by Open when the environment has no camera support.
	ErrUnsupported = errors.New("camera: not supported")
	// ErrNoFrame is returned by Frame before the stream produced any picture.
	ErrNoFrame = errors.New("camera: no frame available")
)

// Device is the high-level interface used by the rest of the application.
// It represents an abstract camera, regardless of where the pictures come
// from (a browser tab, a synthetic pattern, a USB device, etc.).
type Device interface {
	// Supported reports whether the environment can provide a camera at all.
	Supported() bool
	// Open requests a video stream. It may block until the user answers a
	// permission prompt.
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open camera feed.
type Stream interface {
	// Size returns the native frame size, or zeros when unknown.
	Size() (width, height int)
	// Frame returns the current picture.
	Frame() (image.Image, error)
}
