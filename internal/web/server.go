package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/ElfBooth/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
// relay may be nil when the camera is not fed by the browser.
func NewServer(addr string, broadcaster *StatusBroadcaster, sess Session, relay CameraRelay, client ClientConfig) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: sub static fs: %w", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, sess, relay, client, subFS),
	}, nil
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /start", s.handlers.HandleStart)
	mux.HandleFunc("POST /capture", s.handlers.HandleCapture)
	mux.HandleFunc("POST /next", s.handlers.HandleNext)
	mux.HandleFunc("POST /print", s.handlers.HandlePrint)
	mux.HandleFunc("POST /camera/status", s.handlers.HandleCameraStatus)
	mux.HandleFunc("POST /camera/frame", s.handlers.HandleCameraFrame)
	mux.HandleFunc("GET /state", s.handlers.HandleState)
	mux.HandleFunc("GET /config", s.handlers.HandleConfig)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	return Serve(ctx, s.addr, s.Mux(), "web server")
}

// Serve runs h on addr until ctx is cancelled. The print-server command
// uses it too.
func Serve(ctx context.Context, addr string, h http.Handler, name string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("%s listening on %s", name, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
