package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/cjeanneret/ElfBooth/internal/debug"
)

// Relay is a Device fed by the kiosk browser: the page owns the physical
// camera, reports the outcome of its permission prompt and pushes frames.
//
// Open blocks until the browser reports (Grant, Deny or MarkUnsupported) or
// the context ends. Once granted, the stream stays open for the lifetime of
// the Relay and later Opens return it immediately.
//
// Pushed frames expire after maxAge: a page that stopped pushing (closed,
// reloaded, lost its stream) never leaves an old picture to be captured.
type Relay struct {
	mu            sync.Mutex
	unsupported   bool
	onUnsupported func()
	facing        Facing
	stream        *relayStream
	waiters       map[chan openResult]struct{}
	maxAge        time.Duration
	now           func() time.Time
}

// DefaultMaxFrameAge is how long a pushed frame stays current.
const DefaultMaxFrameAge = 2 * time.Second

type openResult struct {
	stream *relayStream
	err    error
}

// NewRelay creates a relay with no stream.
func NewRelay() *Relay {
	return &Relay{
		waiters: make(map[chan openResult]struct{}),
		maxAge:  DefaultMaxFrameAge,
		now:     time.Now,
	}
}

// OnUnsupported registers fn to run once the browser reports it has no
// camera support.
func (r *Relay) OnUnsupported(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUnsupported = fn
}

// Supported is false once the browser reported it has no camera support.
func (r *Relay) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unsupported
}

// Facing returns the facing mode requested by the last Open.
func (r *Relay) Facing() Facing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.facing
}

// Pending reports whether an Open is waiting for the browser.
func (r *Relay) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters) > 0
}

func (r *Relay) Open(ctx context.Context, facing Facing) (Stream, error) {
	r.mu.Lock()
	r.facing = facing
	if r.unsupported {
		r.mu.Unlock()
		return nil, ErrUnsupported
	}
	if r.stream != nil {
		s := r.stream
		r.mu.Unlock()
		return s, nil
	}
	ch := make(chan openResult, 1)
	r.waiters[ch] = struct{}{}
	r.mu.Unlock()

	debug.Verbose("Camera relay: waiting for browser (facing=%s)", facing)

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.stream, nil
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.waiters, ch)
		r.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Grant records that the browser has a live stream of the given size.
// A zero size means the browser couldn't tell.
func (r *Relay) Grant(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		r.stream = &relayStream{maxAge: r.maxAge, now: r.now}
	}
	r.stream.setSize(width, height)
	debug.Live("Camera relay: stream granted (%dx%d)", width, height)
	r.resolve(openResult{stream: r.stream})
}

// Deny fails every pending Open with ErrDenied. A later Open asks again.
func (r *Relay) Deny() {
	r.mu.Lock()
	defer r.mu.Unlock()
	debug.Live("Camera relay: access denied by browser")
	r.resolve(openResult{err: ErrDenied})
}

// MarkUnsupported records that the browser has no camera API at all.
func (r *Relay) MarkUnsupported() {
	r.mu.Lock()
	r.unsupported = true
	debug.Live("Camera relay: browser has no camera support")
	r.resolve(openResult{err: ErrUnsupported})
	fn := r.onUnsupported
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Push stores img as the stream's current frame.
// It returns ErrDenied when no stream has been granted.
func (r *Relay) Push(img image.Image) error {
	r.mu.Lock()
	s := r.stream
	r.mu.Unlock()
	if s == nil {
		return ErrDenied
	}
	s.setFrame(img)
	return nil
}

// resolve must be called with r.mu held.
func (r *Relay) resolve(res openResult) {
	for ch := range r.waiters {
		ch <- res
		delete(r.waiters, ch)
	}
}

type relayStream struct {
	mu     sync.RWMutex
	width  int
	height int
	frame  image.Image
	at     time.Time
	maxAge time.Duration
	now    func() time.Time
}

func (s *relayStream) setSize(w, h int) {
	s.mu.Lock()
	s.width, s.height = w, h
	s.mu.Unlock()
}

func (s *relayStream) setFrame(img image.Image) {
	s.mu.Lock()
	s.frame = img
	s.at = s.now()
	s.mu.Unlock()
}

func (s *relayStream) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *relayStream) Frame() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil || s.now().Sub(s.at) > s.maxAge {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}
