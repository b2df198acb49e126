package printer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cjeanneret/ElfBooth/internal/debug"
)

// Spooler accepts a decoded certificate for printing.
// image is the raw PNG, or nil when the certificate has no photo.
type Spooler interface {
	Spool(c Certificate, image []byte) (string, error)
}

// DirSpool writes each certificate as <id>.json plus <id>.png into Dir,
// where a print daemon can pick them up.
type DirSpool struct {
	Dir string
}

func (s DirSpool) Spool(c Certificate, image []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	id := uuid.NewString()
	if len(image) > 0 {
		if err := os.WriteFile(filepath.Join(s.Dir, id+".png"), image, 0o644); err != nil {
			return "", fmt.Errorf("write spool image: %w", err)
		}
	}

	// The image lives next to the metadata; keep the JSON small.
	c.ImageDataURL = ""
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal spool entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, id+".json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write spool entry: %w", err)
	}

	debug.Live("Spooled certificate %s for %s", id, c.ElfName)
	return id, nil
}
