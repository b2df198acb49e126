package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/ElfBooth/internal/debug"
	"github.com/cjeanneret/ElfBooth/internal/hw/camera"
	"github.com/cjeanneret/ElfBooth/internal/logic/session"
)

// MaxFrameBytes caps an uploaded camera frame.
const MaxFrameBytes = 8 << 20

// Session is the kiosk session driven by the HTTP handlers.
type Session interface {
	View() session.View
	Start() error
	Capture() error
	CaptureFrame(frame image.Image) error
	Next()
	Print(ctx context.Context) error
}

// CameraRelay receives the camera status and frames from the kiosk browser.
type CameraRelay interface {
	Grant(width, height int)
	Deny()
	MarkUnsupported()
	Push(img image.Image) error
}

// ClientConfig holds the settings the page reads at startup.
type ClientConfig struct {
	Locale          string `json:"locale"`
	Facing          string `json:"facing"`
	AnalysisDelayMs int    `json:"analysisDelayMs"`
	FramePushMs     int    `json:"framePushMs"`
	Relay           bool   `json:"relay"` // the browser must feed the camera
}

// CameraStatus is the body of POST /camera/status.
type CameraStatus struct {
	State  string `json:"state"` // granted, denied or unsupported
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Session     Session
	Relay       CameraRelay // nil when frames don't come from the browser
	Client      ClientConfig
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If relay is nil, the /camera routes return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, sess Session, relay CameraRelay, client ClientConfig, staticFS fs.FS) *Handlers {
	client.Relay = relay != nil
	return &Handlers{
		Broadcaster: broadcaster,
		Session:     sess,
		Relay:       relay,
		Client:      client,
		staticFS:    staticFS,
	}
}

// HandleConfig returns the page settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Client)
}

// HandleState returns the current session view.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.View())
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStart handles POST /start.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Start(); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.View())
}

// HandleCapture handles POST /capture. When the browser feeds the camera,
// the body must be the PNG frame grabbed at the click; an empty body is
// answered like a capture without a camera.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var err error
	if h.Relay != nil {
		data, status, rerr := readFrame(w, r)
		if rerr != nil {
			http.Error(w, rerr.Error(), status)
			return
		}
		var frame image.Image
		if len(data) > 0 {
			if frame, rerr = camera.DecodePNG(data); rerr != nil {
				http.Error(w, "frame is not a PNG image", http.StatusBadRequest)
				return
			}
		}
		err = h.Session.CaptureFrame(frame)
	} else {
		err = h.Session.Capture()
	}
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.View())
}

// HandleNext handles POST /next.
func (h *Handlers) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.Session.Next()
	writeJSON(w, http.StatusOK, h.Session.View())
}

// HandlePrint handles POST /print. The request returns right away; the
// outcome reaches the page through the status stream.
func (h *Handlers) HandlePrint(w http.ResponseWriter, r *http.Request) {
	v := h.Session.View()
	if v.Screen != session.ScreenResult || v.Result.Placeholder {
		h.writeSessionError(w, session.ErrNoResult)
		return
	}

	go func() {
		if err := h.Session.Print(context.Background()); err != nil {
			if errors.Is(err, session.ErrNoResult) {
				return
			}
			h.Broadcaster.Broadcast("error", "Print failed: "+err.Error())
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sending"})
}

// HandleCameraStatus handles POST /camera/status from the page.
func (h *Handlers) HandleCameraStatus(w http.ResponseWriter, r *http.Request) {
	if h.Relay == nil {
		http.Error(w, "camera relay not configured", http.StatusServiceUnavailable)
		return
	}

	var st CameraStatus
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&st); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if st.Width < 0 || st.Height < 0 {
		http.Error(w, "width and height must be >= 0", http.StatusBadRequest)
		return
	}

	switch st.State {
	case "granted":
		h.Relay.Grant(st.Width, st.Height)
	case "denied":
		h.Relay.Deny()
	case "unsupported":
		h.Relay.MarkUnsupported()
	default:
		http.Error(w, "state must be granted, denied or unsupported", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCameraFrame handles POST /camera/frame with a PNG body.
func (h *Handlers) HandleCameraFrame(w http.ResponseWriter, r *http.Request) {
	if h.Relay == nil {
		http.Error(w, "camera relay not configured", http.StatusServiceUnavailable)
		return
	}
	data, status, err := readFrame(w, r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	if status, err := h.pushFrame(data); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readFrame reads a frame body. On error it also returns the HTTP status
// to answer with.
func readFrame(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("frame too large")
		}
		return nil, http.StatusBadRequest, fmt.Errorf("read frame: %w", err)
	}
	return data, 0, nil
}

func (h *Handlers) pushFrame(data []byte) (int, error) {
	img, err := camera.DecodePNG(data)
	if err != nil {
		return http.StatusBadRequest, errors.New("frame is not a PNG image")
	}
	if err := h.Relay.Push(img); err != nil {
		return http.StatusConflict, errors.New("camera stream not granted")
	}
	debug.Trace("Frame pushed (%dx%d)", img.Bounds().Dx(), img.Bounds().Dy())
	return 0, nil
}

// writeSessionError maps session errors to HTTP answers. The body carries
// the current hint so the page can show it.
func (h *Handlers) writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoStream),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoResult),
		errors.Is(err, camera.ErrNoFrame):
		status = http.StatusConflict
	default:
		debug.Error(err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"hint":  h.Session.View().Hint,
	})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment and the current state
	w.Write([]byte(": connected\n\n"))
	v := h.Session.View()
	if data, err := json.Marshal(StatusEvent{Time: time.Now().Format(time.RFC3339), Level: "state", View: &v}); err == nil {
		w.Write([]byte("data: " + string(data) + "\n\n"))
	}
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
