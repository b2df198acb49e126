package camera

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

// Fallback frame size used when neither the stream nor the frame knows its size.
const (
	FallbackWidth  = 640
	FallbackHeight = 480
)

// PNGDataURLPrefix is prepended to base64 PNG payloads.
const PNGDataURLPrefix = "data:image/png;base64,"

var ErrInvalidDataURL = errors.New("camera: invalid image data URL")

// Photo is a captured frame encoded as PNG.
type Photo struct {
	PNG    []byte
	Width  int
	Height int
}

// IsZero reports whether the photo holds no image.
func (p Photo) IsZero() bool {
	return len(p.PNG) == 0
}

// DataURL returns the photo as a base64 PNG data URL, or "" for an empty photo.
func (p Photo) DataURL() string {
	if p.IsZero() {
		return ""
	}
	return PNGDataURLPrefix + base64.StdEncoding.EncodeToString(p.PNG)
}

// Snapshot grabs the stream's current frame and encodes it with SnapshotFrame.
func Snapshot(s Stream, fallbackW, fallbackH int) (Photo, error) {
	frame, err := s.Frame()
	if err != nil {
		return Photo{}, fmt.Errorf("grab frame: %w", err)
	}
	return SnapshotFrame(frame, s, fallbackW, fallbackH)
}

// SnapshotFrame encodes frame as PNG at the stream's native size. When the
// stream doesn't know its size the frame's own bounds are used, then
// fallbackW x fallbackH.
func SnapshotFrame(frame image.Image, s Stream, fallbackW, fallbackH int) (Photo, error) {
	if frame == nil {
		return Photo{}, ErrNoFrame
	}
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		b := frame.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	if w <= 0 || h <= 0 {
		w, h = fallbackW, fallbackH
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Photo{}, fmt.Errorf("encode png: %w", err)
	}
	return Photo{PNG: buf.Bytes(), Width: w, Height: h}, nil
}

// DecodeDataURL extracts the raw bytes of a base64 data URL. A bare base64
// payload without the "data:...;base64," prefix is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidDataURL
	}
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, ErrInvalidDataURL
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, nil
}

// DecodePNG decodes a PNG payload into an image.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}
