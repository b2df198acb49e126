package button

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/ElfBooth/internal/hw/gpio"
)

// recordingDriver records setup calls and serves levels from a map.
type recordingDriver struct {
	setups  map[int]gpio.PinMode
	levels  map[int]gpio.Level
	readErr error
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{
		setups: make(map[int]gpio.PinMode),
		levels: make(map[int]gpio.Level),
	}
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.setups[pin] = mode
	if mode == gpio.InputPullUp {
		d.levels[pin] = gpio.High
	}
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.levels[pin] = level
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return d.levels[pin], d.readErr
}

func (d *recordingDriver) Close() error { return nil }

var t0 = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestButton_SetupPullUp(t *testing.T) {
	drv := newRecordingDriver()
	NewButton(drv, Config{Name: "start", Pin: 17})
	if mode, ok := drv.setups[17]; !ok || mode != gpio.InputPullUp {
		t.Errorf("pin 17 setup = %v (%v), want InputPullUp", mode, ok)
	}
}

func TestButton_PressAfterDebounce(t *testing.T) {
	drv := newRecordingDriver()
	b := NewButton(drv, Config{Name: "capture", Pin: 27, Debounce: 20 * time.Millisecond})

	if pressed, _ := b.Poll(at(0)); pressed {
		t.Fatal("idle button should not report a press")
	}

	drv.levels[27] = gpio.Low
	if pressed, _ := b.Poll(at(10)); pressed {
		t.Error("press should not count before debounce")
	}
	if pressed, _ := b.Poll(at(25)); pressed {
		t.Error("press should not count before debounce elapsed since the edge")
	}
	if pressed, _ := b.Poll(at(31)); !pressed {
		t.Error("stable LOW past debounce should report a press")
	}
	if pressed, _ := b.Poll(at(100)); pressed {
		t.Error("holding the button must not repeat")
	}
}

func TestButton_BounceIgnored(t *testing.T) {
	drv := newRecordingDriver()
	b := NewButton(drv, Config{Name: "next", Pin: 22, Debounce: 20 * time.Millisecond})

	levels := []gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High}
	for i, lvl := range levels {
		drv.levels[22] = lvl
		if pressed, _ := b.Poll(at(i * 5)); pressed {
			t.Fatalf("bounce at sample %d reported a press", i)
		}
	}
}

func TestButton_ReleaseThenPressAgain(t *testing.T) {
	drv := newRecordingDriver()
	b := NewButton(drv, Config{Name: "print", Pin: 23})

	presses := 0
	sequence := []gpio.Level{gpio.Low, gpio.Low, gpio.High, gpio.Low, gpio.High}
	for i, lvl := range sequence {
		drv.levels[23] = lvl
		pressed, err := b.Poll(at(i))
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if pressed {
			presses++
		}
	}
	if presses != 2 {
		t.Errorf("presses = %d, want 2", presses)
	}
}

func TestButton_ReadError(t *testing.T) {
	drv := newRecordingDriver()
	b := NewButton(drv, Config{Name: "start", Pin: 17})
	drv.readErr = errors.New("gpio gone")

	if _, err := b.Poll(at(0)); err == nil {
		t.Error("expected read error")
	}
}

func TestPanel_SkipsUnwiredButtons(t *testing.T) {
	drv := newRecordingDriver()
	p := NewPanel(drv, 0,
		Binding{Config: Config{Name: "start", Pin: 17}, Action: func() {}},
		Binding{Config: Config{Name: "print", Pin: 0}, Action: func() {}},
		Binding{Config: Config{Name: "next", Pin: 22}},
	)
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
	if _, ok := drv.setups[0]; ok {
		t.Error("pin 0 must not be configured")
	}
}

func TestPanel_DispatchesPress(t *testing.T) {
	drv := newRecordingDriver()
	var started, captured int
	p := NewPanel(drv, time.Millisecond,
		Binding{Config: Config{Name: "start", Pin: 17}, Action: func() { started++ }},
		Binding{Config: Config{Name: "capture", Pin: 27}, Action: func() { captured++ }},
	)

	drv.levels[27] = gpio.Low
	if err := p.PollOnce(at(0)); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if started != 0 || captured != 1 {
		t.Errorf("started=%d captured=%d, want 0/1", started, captured)
	}
}

func TestPanel_RunStopsOnCancel(t *testing.T) {
	drv := gpio.NewMockDriver()
	pressed := make(chan struct{}, 1)
	p := NewPanel(drv, time.Millisecond,
		Binding{Config: Config{Name: "start", Pin: 17}, Action: func() {
			select {
			case pressed <- struct{}{}:
			default:
			}
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	drv.Set(17, gpio.Low)
	select {
	case <-pressed:
	case <-time.After(time.Second):
		t.Fatal("press was not dispatched")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPanel_RunWithoutButtons(t *testing.T) {
	p := NewPanel(newRecordingDriver(), 0)
	if err := p.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}
