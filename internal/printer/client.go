// Package printer talks to the certificate print service: a client that
// posts certificates and a small receiving handler that spools them.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cjeanneret/ElfBooth/internal/debug"
	"github.com/cjeanneret/ElfBooth/internal/logic/persona"
)

// CertificatePath is the print service endpoint.
const CertificatePath = "/api/print-certificate"

// Certificate is the JSON payload sent to the print service.
type Certificate struct {
	Name         string `json:"name"`
	ElfName      string `json:"elfName"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	JouluPower   string `json:"jouluPower"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
}

// FromResult builds the certificate for a persona result.
func FromResult(r persona.Result) Certificate {
	return Certificate{
		Name:         r.Visitor,
		ElfName:      r.ElfName,
		Title:        r.Title,
		Description:  r.Description,
		JouluPower:   r.Power,
		ImageDataURL: r.Photo.DataURL(),
	}
}

// StatusError is returned when the print service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("print service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("print service returned %d: %s", e.StatusCode, e.Body)
}

// Client posts certificates to a print service. It never retries.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL (scheme://host:port).
// A zero timeout means 10 seconds.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Send posts c once. Any 2xx answer is success.
func (cl *Client) Send(ctx context.Context, c Certificate) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal certificate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.baseURL+CertificatePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build print request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cl.token)

	debug.WithFields(debug.Fields{"elf": c.ElfName, "bytes": len(body)}, "sending certificate")

	resp, err := cl.http.Do(req)
	if err != nil {
		return fmt.Errorf("post certificate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
