package session

import (
	"time"

	"golang.org/x/text/language"

	"github.com/cjeanneret/ElfBooth/internal/i18n"
	"github.com/cjeanneret/ElfBooth/internal/logic/persona"
)

// Screen is one of the four mutually exclusive kiosk screens.
type Screen string

const (
	ScreenIdle      Screen = "idle"
	ScreenCamera    Screen = "camera"
	ScreenAnalyzing Screen = "analyzing"
	ScreenResult    Screen = "result"
)

// CameraState describes the session's camera stream.
type CameraState string

const (
	CameraOff         CameraState = "off"
	CameraRequesting  CameraState = "requesting"
	CameraLive        CameraState = "live"
	CameraDenied      CameraState = "denied"
	CameraUnsupported CameraState = "unsupported"
)

// PrintStatus is the outcome of the latest print request for the current result.
type PrintStatus string

const (
	PrintNone    PrintStatus = ""
	PrintSending PrintStatus = "sending"
	PrintSuccess PrintStatus = "success"
	PrintFailed  PrintStatus = "failed"
)

// View is an immutable snapshot of the session for the rendering surface.
type View struct {
	Screen       Screen      `json:"screen"`
	Camera       CameraState `json:"camera"`
	Facing       string      `json:"facing"`
	Hint         string      `json:"hint"`
	Participants int         `json:"participants"`
	Result       ResultView  `json:"result"`
	Print        PrintStatus `json:"print"`
	PrintMessage string      `json:"printMessage,omitempty"`
}

// ResultView holds the result fields as displayed. When Placeholder is set
// the session has no current result and the fields hold placeholder text.
type ResultView struct {
	Placeholder bool      `json:"placeholder"`
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Visitor     string    `json:"visitor"`
	Title       string    `json:"title"`
	Power       string    `json:"power"`
	Description string    `json:"description"`
	Photo       string    `json:"photo"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

func placeholderView(lang language.Tag) ResultView {
	return ResultView{
		Placeholder: true,
		Name:        i18n.Text(lang, i18n.PlaceholderName),
	}
}

func resultView(lang language.Tag, r persona.Result) ResultView {
	if r.IsZero() {
		return placeholderView(lang)
	}
	return ResultView{
		ID:          r.ID.String(),
		Name:        r.DisplayName(lang),
		Visitor:     r.Visitor,
		Title:       r.Title,
		Power:       r.Power,
		Description: r.Description,
		Photo:       r.Photo.DataURL(),
		CreatedAt:   r.CreatedAt,
	}
}

func printMessage(lang language.Tag, s PrintStatus) string {
	switch s {
	case PrintSending:
		return i18n.Text(lang, i18n.PrintSending)
	case PrintSuccess:
		return i18n.Text(lang, i18n.PrintSuccess)
	case PrintFailed:
		return i18n.Text(lang, i18n.PrintFailed)
	default:
		return ""
	}
}
