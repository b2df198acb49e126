package i18n

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestEveryLocaleHasEveryKey(t *testing.T) {
	base := catalog[DefaultTag()]
	for tag, msgs := range catalog {
		for key := range base {
			if _, ok := msgs[key]; !ok {
				t.Errorf("locale %s missing key %q", tag, key)
			}
		}
	}
}

func TestText(t *testing.T) {
	cases := []struct {
		tag  language.Tag
		key  string
		want string
	}{
		{Finnish, HintStartCameraFirst, "Käynnistä kamera ensin."},
		{English, HintStartCameraFirst, "Start the camera first."},
		{Finnish, PlaceholderName, "TONTTUNIMI"},
	}
	for _, tc := range cases {
		if got := Text(tc.tag, tc.key); got != tc.want {
			t.Errorf("Text(%s, %q) = %q, want %q", tc.tag, tc.key, got, tc.want)
		}
	}
}

func TestTextDescriptionArgs(t *testing.T) {
	got := Text(English, Description, "Visitor", "Kanelitähti", "Title", "+10 %")
	for _, part := range []string{"Visitor", "Kanelitähti", "Title", "+10 %"} {
		if !strings.Contains(got, part) {
			t.Errorf("description %q missing %q", got, part)
		}
	}
}

func TestParseTag(t *testing.T) {
	cases := []struct {
		in     string
		want   language.Tag
		wantOK bool
	}{
		{"fi", Finnish, true},
		{"fi-FI", Finnish, true},
		{"en-US", English, true},
		{"", Finnish, false},
		{"not a tag!", Finnish, false},
	}
	for _, tc := range cases {
		got, ok := ParseTag(tc.in)
		if ok != tc.wantOK {
			t.Errorf("ParseTag(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseTag(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestUpper(t *testing.T) {
	if got := Upper(Finnish, "säihkysäde"); got != "SÄIHKYSÄDE" {
		t.Errorf("Upper = %q, want SÄIHKYSÄDE", got)
	}
}
