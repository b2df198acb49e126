package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// Pattern is a synthetic Device for development without a browser camera.
// Every Frame call returns a new picture so consecutive captures differ.
type Pattern struct {
	Width  int
	Height int
}

// NewPattern creates a synthetic camera producing width x height frames.
func NewPattern(width, height int) *Pattern {
	return &Pattern{Width: width, Height: height}
}

func (p *Pattern) Supported() bool { return true }

func (p *Pattern) Open(ctx context.Context, _ Facing) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &patternStream{width: p.Width, height: p.Height}, nil
}

type patternStream struct {
	mu     sync.Mutex
	width  int
	height int
	frames int
}

func (s *patternStream) Size() (int, int) {
	return s.width, s.height
}

// Frame draws a diagonal gradient whose hue shifts with the frame counter.
func (s *patternStream) Frame() (image.Image, error) {
	s.mu.Lock()
	s.frames++
	n := s.frames
	s.mu.Unlock()

	w, h := s.width, s.height
	if w <= 0 || h <= 0 {
		w, h = FallbackWidth, FallbackHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + n*17) % 256),
				G: uint8((y + n*29) % 256),
				B: uint8((x + y + n*7) % 256),
				A: 0xff,
			})
		}
	}
	return img, nil
}
