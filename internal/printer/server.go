package printer

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cjeanneret/ElfBooth/internal/debug"
	"github.com/cjeanneret/ElfBooth/internal/hw/camera"
)

const maxCertificateBytes = 16 << 20

// Handler is the receiving side of the print service.
type Handler struct {
	token string
	spool Spooler
}

// NewHandler creates a print service handler. An empty token makes every
// print request fail with 500, since the service is not configured.
func NewHandler(token string, spool Spooler) *Handler {
	return &Handler{token: token, spool: spool}
}

// Mux returns an http.Handler with the print service routes.
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("POST "+CertificatePath, h.HandleCertificate)
	return mux
}

// HandleHealth is a liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCertificate authenticates, decodes and spools one certificate.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "PRINT_API_TOKEN is not configured."})
		return
	}
	if !h.authorized(r.Header.Get("Authorization")) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Unauthorized"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCertificateBytes)
	var c Certificate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON"})
		return
	}
	if c.ElfName == "" || c.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "elfName and title are required"})
		return
	}

	var image []byte
	if c.ImageDataURL != "" {
		var err error
		if image, err = camera.DecodeDataURL(c.ImageDataURL); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid image data URL"})
			return
		}
	}

	if _, err := h.spool.Spool(c, image); err != nil {
		debug.Warn(err, "printing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Printing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "printed"})
}

func (h *Handler) authorized(header string) bool {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
