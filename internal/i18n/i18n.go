// Package i18n holds the kiosk's user-facing strings for each supported
// locale and the helpers to resolve and render them.
package i18n

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	HintCameraReady       = "hint.camera_ready"
	HintCameraDenied      = "hint.camera_denied"
	HintCameraUnsupported = "hint.camera_unsupported"
	HintStartCameraFirst  = "hint.start_camera_first"
	HintCameraRequesting  = "hint.camera_requesting"

	PrintSending = "print.sending"
	PrintSuccess = "print.success"
	PrintFailed  = "print.failed"

	PlaceholderName = "placeholder.name"

	Description = "persona.description"
)

var (
	Finnish = language.Finnish
	English = language.English
)

var supported = []language.Tag{Finnish, English}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[string]string{
	Finnish: {
		HintCameraReady:       "Hymyile ja pysy kameran edessä!",
		HintCameraDenied:      "Kameran käyttö estetty. Tarkista selaimen luvat.",
		HintCameraUnsupported: "Selain ei tue kameraa. Käytä päivitettyä selainta.",
		HintStartCameraFirst:  "Käynnistä kamera ensin.",
		HintCameraRequesting:  "Käynnistetään kameraa…",
		PrintSending:          "Lähetetään tulostukseen…",
		PrintSuccess:          "Todistus lähetetty tulostimelle!",
		PrintFailed:           "Tulostus epäonnistui. Yritä uudelleen.",
		PlaceholderName:       "TONTTUNIMI",
		Description:           "%[1]s tunnetaan nyt nimellä %[2]s. Arvonimi: %[3]s. Jouluvoima: %[4]s.",
	},
	English: {
		HintCameraReady:       "Smile and stay in front of the camera!",
		HintCameraDenied:      "Camera access blocked. Check the browser permissions.",
		HintCameraUnsupported: "This browser has no camera support. Use an up-to-date browser.",
		HintStartCameraFirst:  "Start the camera first.",
		HintCameraRequesting:  "Starting the camera…",
		PrintSending:          "Sending to the printer…",
		PrintSuccess:          "Certificate sent to the printer!",
		PrintFailed:           "Printing failed. Please try again.",
		PlaceholderName:       "ELF NAME",
		Description:           "%[1]s is now known as %[2]s. Title: %[3]s. Holiday power: %[4]s.",
	},
}

func init() {
	for tag, msgs := range catalog {
		for key, msg := range msgs {
			if err := message.SetString(tag, key, msg); err != nil {
				panic("i18n: register " + key + ": " + err.Error())
			}
		}
	}
}

// DefaultTag returns the kiosk's default locale.
func DefaultTag() language.Tag {
	return Finnish
}

// SupportedTags returns the locales with a full catalog.
func SupportedTags() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// ParseTag resolves a user or config supplied locale to a supported tag.
// The bool is false when nothing matched with reasonable confidence.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTag(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return DefaultTag(), false
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return DefaultTag(), false
	}
	return supported[idx], true
}

// Printer returns a message printer for tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Text renders key in tag's catalog.
func Text(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}

// Upper upper-cases s with tag's casing rules.
func Upper(tag language.Tag, s string) string {
	return cases.Upper(tag).String(s)
}
