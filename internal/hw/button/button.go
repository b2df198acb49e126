package button

import (
	"context"
	"time"

	"github.com/cjeanneret/ElfBooth/internal/debug"
	"github.com/cjeanneret/ElfBooth/internal/hw/gpio"
)

// Config holds the hardware configuration for a kiosk push button.
type Config struct {
	Name     string
	Pin      int           // BCM pin, wired to ground through the button. 0 = not used. Active LOW.
	Debounce time.Duration // level must be stable this long before it counts
}

// Button turns raw pin reads into debounced press events.
// A press is a stable HIGH -> LOW transition; holding the button down
// doesn't repeat.
type Button struct {
	gpio gpio.Driver
	cfg  Config

	stable    gpio.Level
	candidate gpio.Level
	since     time.Time
}

// NewButton configures the pin as a pull-up input.
func NewButton(g gpio.Driver, cfg Config) *Button {
	_ = g.SetupPin(cfg.Pin, gpio.InputPullUp)
	return &Button{
		gpio:      g,
		cfg:       cfg,
		stable:    gpio.High,
		candidate: gpio.High,
	}
}

// Name returns the configured button name.
func (b *Button) Name() string {
	return b.cfg.Name
}

// Poll samples the pin and reports whether a press completed at now.
func (b *Button) Poll(now time.Time) (bool, error) {
	level, err := b.gpio.ReadPin(b.cfg.Pin)
	if err != nil {
		return false, err
	}

	if level != b.candidate {
		b.candidate = level
		b.since = now
	}
	if b.candidate == b.stable || now.Sub(b.since) < b.cfg.Debounce {
		return false, nil
	}

	b.stable = b.candidate
	return b.stable == gpio.Low, nil
}

// Binding ties a button to the action run on each press.
type Binding struct {
	Config Config
	Action func()
}

// Panel polls a set of buttons and runs their actions.
type Panel struct {
	buttons  []*Button
	actions  []func()
	interval time.Duration
}

// NewPanel creates a panel for the bindings whose pin is set.
// interval is the poll period; 0 means 10ms.
func NewPanel(g gpio.Driver, interval time.Duration, bindings ...Binding) *Panel {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	p := &Panel{interval: interval}
	for _, bnd := range bindings {
		if bnd.Config.Pin <= 0 || bnd.Action == nil {
			continue
		}
		debug.Verbose("Button %q on pin %d", bnd.Config.Name, bnd.Config.Pin)
		p.buttons = append(p.buttons, NewButton(g, bnd.Config))
		p.actions = append(p.actions, bnd.Action)
	}
	return p
}

// Len returns the number of wired buttons.
func (p *Panel) Len() int {
	return len(p.buttons)
}

// PollOnce samples every button once and runs the actions of those pressed.
func (p *Panel) PollOnce(now time.Time) error {
	for i, b := range p.buttons {
		pressed, err := b.Poll(now)
		if err != nil {
			return err
		}
		if pressed {
			debug.Press(b.Name(), b.cfg.Pin)
			p.actions[i]()
		}
	}
	return nil
}

// Run polls until ctx is cancelled. It returns nil right away when no
// button is wired.
func (p *Panel) Run(ctx context.Context) error {
	if len(p.buttons) == 0 {
		return nil
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := p.PollOnce(now); err != nil {
				return err
			}
		}
	}
}
