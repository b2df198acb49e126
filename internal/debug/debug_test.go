package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func withOutput(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := level
	Init(lvl)
	SetOutput(&buf)
	t.Cleanup(func() {
		Init(prev)
		SetOutput(os.Stdout)
	})
	return &buf
}

func TestLevelOffPrintsNothing(t *testing.T) {
	buf := withOutput(t, LevelOff)

	Info("hello %d", 1)
	Live("live")
	Error(errors.New("boom"))

	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestLevelGating(t *testing.T) {
	buf := withOutput(t, LevelLive)

	Info("info line")
	Live("live line")
	Verbose("verbose line")
	Trace("trace line")

	out := buf.String()
	if !strings.Contains(out, "info line") || !strings.Contains(out, "live line") {
		t.Errorf("expected info and live lines, got %q", out)
	}
	if strings.Contains(out, "verbose line") || strings.Contains(out, "trace line") {
		t.Errorf("verbose/trace should be filtered at level 2, got %q", out)
	}
}

func TestScreenFields(t *testing.T) {
	buf := withOutput(t, LevelInfo)

	Screen("idle", "camera")

	out := buf.String()
	if !strings.Contains(out, "from=idle") || !strings.Contains(out, "to=camera") {
		t.Errorf("expected structured fields, got %q", out)
	}
}

func TestIsEnabled(t *testing.T) {
	withOutput(t, LevelVerbose)

	if !IsEnabled(LevelInfo) || !IsEnabled(LevelVerbose) {
		t.Error("levels up to verbose should be enabled")
	}
	if IsEnabled(LevelTrace) {
		t.Error("trace should not be enabled at level 3")
	}
}
