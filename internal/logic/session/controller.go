package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/cjeanneret/ElfBooth/internal/debug"
	"github.com/cjeanneret/ElfBooth/internal/hw/camera"
	"github.com/cjeanneret/ElfBooth/internal/i18n"
	"github.com/cjeanneret/ElfBooth/internal/logic/persona"
	"github.com/cjeanneret/ElfBooth/internal/printer"
)

var (
	// ErrNoStream is returned by Capture when no camera stream is active.
	ErrNoStream = errors.New("session: camera not started")
	// ErrNoResult is returned by Print when there is nothing to print.
	ErrNoResult = errors.New("session: no result to print")
	// ErrBusy is returned when an operation isn't available on the current screen.
	ErrBusy = errors.New("session: not available on this screen")
)

// DefaultAnalysisDelay is how long the simulated analysis takes.
const DefaultAnalysisDelay = 2 * time.Second

// Generator produces the persona for a captured photo.
type Generator interface {
	Generate(photo camera.Photo, now time.Time) persona.Result
}

// Sender delivers a certificate to the print service.
type Sender interface {
	Send(ctx context.Context, c printer.Certificate) error
}

// Timer is a scheduled call that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Controller. Device, Generator and Printer are required.
type Options struct {
	Device    camera.Device
	Generator Generator
	Printer   Sender

	AnalysisDelay  time.Duration
	Facing         camera.Facing
	FallbackWidth  int
	FallbackHeight int
	Language       language.Tag

	// Now and AfterFunc default to the wall clock.
	Now       func() time.Time
	AfterFunc AfterFunc
}

// Controller owns the kiosk session: the current screen, the camera
// stream, the pending analysis and the current result. All state changes
// go through its methods and are published to subscribers as Views.
type Controller struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	screen       Screen
	cameraState  CameraState
	stream       camera.Stream
	opening      bool
	hint         string
	participants int
	result       persona.Result
	pendingPhoto camera.Photo
	pending      Timer
	generation   uint64
	printStatus  PrintStatus
	printSeq     uint64

	notifyMu  sync.Mutex
	observers map[int]func(View)
	nextObs   int
}

// New creates a controller on the Idle screen. Camera support is checked
// once here; without it the unsupported hint stays for the whole session.
func New(opts Options) (*Controller, error) {
	if opts.Device == nil {
		return nil, errors.New("session: camera device is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("session: persona generator is required")
	}
	if opts.Printer == nil {
		return nil, errors.New("session: print sender is required")
	}
	if opts.AnalysisDelay <= 0 {
		opts.AnalysisDelay = DefaultAnalysisDelay
	}
	if opts.Facing == "" {
		opts.Facing = camera.FacingUser
	}
	if opts.FallbackWidth <= 0 || opts.FallbackHeight <= 0 {
		opts.FallbackWidth, opts.FallbackHeight = camera.FallbackWidth, camera.FallbackHeight
	}
	if opts.Language == language.Und {
		opts.Language = i18n.DefaultTag()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		screen:      ScreenIdle,
		cameraState: CameraOff,
		observers:   make(map[int]func(View)),
	}
	if !opts.Device.Supported() {
		c.cameraState = CameraUnsupported
		c.hint = i18n.HintCameraUnsupported
	}
	return c, nil
}

// Close abandons a pending camera request and the pending analysis.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	c.stopPending()
	c.mu.Unlock()
}

// Subscribe registers fn to receive a View after every state change.
// The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.notifyMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.notifyMu.Unlock()

	return func() {
		c.notifyMu.Lock()
		delete(c.observers, id)
		c.notifyMu.Unlock()
	}
}

// View returns the current session snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	lang := c.opts.Language
	v := View{
		Screen:       c.screen,
		Camera:       c.cameraState,
		Facing:       string(c.opts.Facing),
		Participants: c.participants,
		Result:       resultView(lang, c.result),
		Print:        c.printStatus,
		PrintMessage: printMessage(lang, c.printStatus),
	}
	if c.hint != "" {
		v.Hint = i18n.Text(lang, c.hint)
	}
	return v
}

func (c *Controller) publish() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	v := c.View()
	for _, fn := range c.observers {
		fn(v)
	}
}

// setScreen must be called with c.mu held.
func (c *Controller) setScreen(s Screen) {
	if c.screen != s {
		debug.Screen(string(c.screen), string(s))
	}
	c.screen = s
}

// Start moves to the Camera screen and requests the camera stream unless
// one is already live or being requested.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.screen == ScreenAnalyzing || c.screen == ScreenResult {
		c.mu.Unlock()
		return ErrBusy
	}
	c.setScreen(ScreenCamera)

	switch {
	case c.cameraState == CameraUnsupported:
		// permanent; nothing to request
	case c.stream != nil:
		c.cameraState = CameraLive
		c.hint = i18n.HintCameraReady
	case !c.opening:
		c.opening = true
		c.cameraState = CameraRequesting
		c.hint = i18n.HintCameraRequesting
		go c.openCamera()
	}
	c.mu.Unlock()

	c.publish()
	return nil
}

func (c *Controller) openCamera() {
	debug.Live("Requesting camera (facing=%s)", c.opts.Facing)
	stream, err := c.opts.Device.Open(c.ctx, c.opts.Facing)

	c.mu.Lock()
	c.opening = false
	switch {
	case err == nil:
		c.stream = stream
		c.cameraState = CameraLive
		c.hint = i18n.HintCameraReady
		debug.Info("Camera stream active")
	case errors.Is(err, camera.ErrUnsupported):
		c.cameraState = CameraUnsupported
		c.hint = i18n.HintCameraUnsupported
		debug.Warn(err, "camera unsupported")
	case c.ctx.Err() != nil:
		c.cameraState = CameraOff
		c.mu.Unlock()
		return
	default:
		c.cameraState = CameraDenied
		c.hint = i18n.HintCameraDenied
		debug.Warn(err, "camera request failed")
	}
	c.mu.Unlock()

	c.publish()
}

// MarkUnsupported records that the environment has no camera support at
// all. The unsupported hint is permanent.
func (c *Controller) MarkUnsupported() {
	c.mu.Lock()
	if c.cameraState == CameraUnsupported {
		c.mu.Unlock()
		return
	}
	c.cameraState = CameraUnsupported
	c.hint = i18n.HintCameraUnsupported
	c.mu.Unlock()

	debug.Live("Camera support missing")
	c.publish()
}

// Capture snapshots the current frame, shows the Analyzing screen and
// schedules the analysis. A capture during Analyzing replaces the pending
// one. Without a stream it only sets the "start camera first" hint and
// returns ErrNoStream.
func (c *Controller) Capture() error {
	return c.capture(nil, false)
}

// CaptureFrame is Capture with the picture supplied by the caller, taken
// when the visitor pressed capture. A nil frame counts as no stream.
func (c *Controller) CaptureFrame(frame image.Image) error {
	return c.capture(frame, true)
}

func (c *Controller) capture(frame image.Image, supplied bool) error {
	c.mu.Lock()
	if c.screen != ScreenCamera && c.screen != ScreenAnalyzing {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.stream == nil || (supplied && frame == nil) {
		if c.cameraState != CameraUnsupported {
			c.hint = i18n.HintStartCameraFirst
		}
		c.mu.Unlock()
		c.publish()
		return ErrNoStream
	}

	var photo camera.Photo
	var err error
	if supplied {
		photo, err = camera.SnapshotFrame(frame, c.stream, c.opts.FallbackWidth, c.opts.FallbackHeight)
	} else {
		photo, err = camera.Snapshot(c.stream, c.opts.FallbackWidth, c.opts.FallbackHeight)
	}
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("capture: %w", err)
	}

	c.stopPending()
	c.generation++
	gen := c.generation
	c.pendingPhoto = photo
	c.setScreen(ScreenAnalyzing)
	c.pending = c.opts.AfterFunc(c.opts.AnalysisDelay, func() { c.finishAnalysis(gen) })
	debug.Verbose("Analysis %d scheduled in %v (%dx%d photo)", gen, c.opts.AnalysisDelay, photo.Width, photo.Height)
	c.mu.Unlock()

	c.publish()
	return nil
}

func (c *Controller) finishAnalysis(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.screen != ScreenAnalyzing {
		c.mu.Unlock()
		debug.Verbose("Analysis %d is stale, dropped", gen)
		return
	}
	c.result = c.opts.Generator.Generate(c.pendingPhoto, c.opts.Now())
	c.pendingPhoto = camera.Photo{}
	c.pending = nil
	c.printStatus = PrintNone
	c.participants++
	c.setScreen(ScreenResult)
	debug.WithFields(debug.Fields{
		"elf":          c.result.ElfName,
		"participants": c.participants,
	}, "result ready")
	c.mu.Unlock()

	c.publish()
}

// Next clears the result and returns to Idle. The camera stream is kept.
func (c *Controller) Next() {
	c.mu.Lock()
	c.stopPending()
	c.generation++
	c.result = persona.Result{}
	c.pendingPhoto = camera.Photo{}
	c.printStatus = PrintNone
	c.setScreen(ScreenIdle)
	c.mu.Unlock()

	c.publish()
}

// Print sends the current result to the print service once. Observers see
// "sending" then "success" or "failed"; the returned error is the send
// error. Without a current result no request is made and ErrNoResult is
// returned.
func (c *Controller) Print(ctx context.Context) error {
	c.mu.Lock()
	if c.screen != ScreenResult || c.result.IsZero() {
		c.mu.Unlock()
		return ErrNoResult
	}
	cert := printer.FromResult(c.result)
	id := c.result.ID
	c.printSeq++
	seq := c.printSeq
	c.printStatus = PrintSending
	c.mu.Unlock()
	c.publish()

	err := c.opts.Printer.Send(ctx, cert)

	c.mu.Lock()
	// Only the latest request for the still-current result may set the status.
	current := c.result.ID == id && c.printSeq == seq
	if current {
		if err != nil {
			c.printStatus = PrintFailed
		} else {
			c.printStatus = PrintSuccess
		}
	}
	c.mu.Unlock()

	if err != nil {
		debug.Warn(err, "print failed")
	} else {
		debug.Live("Certificate for %s printed", cert.ElfName)
	}
	if current {
		c.publish()
	}
	return err
}

// stopPending must be called with c.mu held.
func (c *Controller) stopPending() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
