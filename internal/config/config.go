package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ElfBooth/internal/i18n"
	"github.com/cjeanneret/ElfBooth/internal/logic/persona"
)

// MaxConfigFileBytes caps the size of a YAML config file.
const MaxConfigFileBytes = 1 << 20

// DefaultPath is the config file used when none is given.
const DefaultPath = "configs/default.yaml"

// KioskConfig holds the session flow settings.
type KioskConfig struct {
	AnalysisDelayMs int    `yaml:"analysis_delay_ms"` // pause on the analyzing screen (ms)
	Locale          string `yaml:"locale"`            // "fi" or "en"
}

// CameraConfig describes where frames come from.
// Type "relay" takes frames pushed by the kiosk browser; "pattern" is a
// synthetic source for development without a webcam.
type CameraConfig struct {
	Type           string `yaml:"type"`
	Facing         string `yaml:"facing"`          // "user" or "environment"
	FallbackWidth  int    `yaml:"fallback_width"`  // used when the stream reports no size
	FallbackHeight int    `yaml:"fallback_height"` // idem
}

// PrintConfig points at the certificate print service.
type PrintConfig struct {
	URL       string `yaml:"url"`   // scheme://host:port
	Token     string `yaml:"token"` // bearer token, usually from PRINT_API_TOKEN
	TimeoutMs int    `yaml:"timeout_ms"`
}

// PrintServerConfig configures the bundled print-server command.
type PrintServerConfig struct {
	Addr     string `yaml:"addr"`
	SpoolDir string `yaml:"spool_dir"`
}

// ButtonsConfig maps the kiosk actions to GPIO push buttons.
// A pin of 0 leaves the action on the touch screen only.
type ButtonsConfig struct {
	StartPin   int `yaml:"start_pin"`
	CapturePin int `yaml:"capture_pin"`
	NextPin    int `yaml:"next_pin"`
	PrintPin   int `yaml:"print_pin"`
	PollMs     int `yaml:"poll_ms"`
	DebounceMs int `yaml:"debounce_ms"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Kiosk       KioskConfig       `yaml:"kiosk"`
	Camera      CameraConfig      `yaml:"camera"`
	Print       PrintConfig       `yaml:"print"`
	PrintServer PrintServerConfig `yaml:"print_server"`
	Buttons     ButtonsConfig     `yaml:"buttons"`
	Pools       *persona.Pools    `yaml:"pools,omitempty"` // optional, replaces the built-in pools
	Defaults    DefaultsConfig    `yaml:"defaults"`
}

// Overrides are the settings that may come from the environment.
type Overrides struct {
	PrintToken string `env:"PRINT_API_TOKEN"`
	PrintURL   string `env:"ELFBOOTH_PRINT_URL"`
	Locale     string `env:"ELFBOOTH_LOCALE"`
	Camera     string `env:"ELFBOOTH_CAMERA"`
	SpoolDir   string `env:"ELFBOOTH_SPOOL_DIR"`
	DebugLevel *int   `env:"ELFBOOTH_DEBUG"`
	MockGPIO   *bool  `env:"ELFBOOTH_MOCK_GPIO"`
}

// ValidateConfigPath checks that path names a .yaml file inside a
// directory called "configs" and contains no ".." element.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == filepath.Separator }) {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}

	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the validated configuration with
// defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when
// none) into the process environment. Missing files are not an error and
// variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides on cfg and validates the result.
func (c *Config) ApplyEnv() error {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return c.Apply(o)
}

// Apply overlays the non-empty overrides on c and validates the result.
func (c *Config) Apply(o Overrides) error {
	if o.PrintToken != "" {
		c.Print.Token = o.PrintToken
	}
	if o.PrintURL != "" {
		c.Print.URL = o.PrintURL
	}
	if o.Locale != "" {
		c.Kiosk.Locale = o.Locale
	}
	if o.Camera != "" {
		c.Camera.Type = o.Camera
	}
	if o.SpoolDir != "" {
		c.PrintServer.SpoolDir = o.SpoolDir
	}
	if o.DebugLevel != nil {
		c.Defaults.DebugLevel = *o.DebugLevel
	}
	if o.MockGPIO != nil {
		c.Defaults.MockGPIO = *o.MockGPIO
	}
	return c.normalize()
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	_ = cfg.normalize()
	return &cfg
}

func (c *Config) normalize() error {
	// Kiosk
	if c.Kiosk.AnalysisDelayMs < 0 {
		return fmt.Errorf("kiosk.analysis_delay_ms must be >= 0, got %d", c.Kiosk.AnalysisDelayMs)
	}
	if c.Kiosk.AnalysisDelayMs == 0 {
		c.Kiosk.AnalysisDelayMs = 2000
	}
	if c.Kiosk.Locale == "" {
		c.Kiosk.Locale = i18n.DefaultTag().String()
	}
	if _, ok := i18n.ParseTag(c.Kiosk.Locale); !ok {
		return fmt.Errorf("kiosk.locale %q is not supported", c.Kiosk.Locale)
	}

	// Camera
	if c.Camera.Type == "" {
		c.Camera.Type = "relay"
	}
	if c.Camera.Type != "relay" && c.Camera.Type != "pattern" {
		return fmt.Errorf("camera.type must be relay or pattern, got %q", c.Camera.Type)
	}
	if c.Camera.Facing == "" {
		c.Camera.Facing = "user"
	}
	if c.Camera.Facing != "user" && c.Camera.Facing != "environment" {
		return fmt.Errorf("camera.facing must be user or environment, got %q", c.Camera.Facing)
	}
	if c.Camera.FallbackWidth < 0 || c.Camera.FallbackHeight < 0 {
		return fmt.Errorf("camera fallback size must be >= 0, got %dx%d", c.Camera.FallbackWidth, c.Camera.FallbackHeight)
	}
	if c.Camera.FallbackWidth == 0 {
		c.Camera.FallbackWidth = 640
	}
	if c.Camera.FallbackHeight == 0 {
		c.Camera.FallbackHeight = 480
	}

	// Print client
	if c.Print.URL == "" {
		c.Print.URL = "http://localhost:8000"
	}
	u, err := url.Parse(c.Print.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("print.url must be an http(s) URL, got %q", c.Print.URL)
	}
	if c.Print.TimeoutMs < 0 {
		return fmt.Errorf("print.timeout_ms must be >= 0, got %d", c.Print.TimeoutMs)
	}
	if c.Print.TimeoutMs == 0 {
		c.Print.TimeoutMs = 10000
	}

	// Print server
	if c.PrintServer.Addr == "" {
		c.PrintServer.Addr = ":8000"
	}
	if c.PrintServer.SpoolDir == "" {
		c.PrintServer.SpoolDir = "spool"
	}

	// Buttons
	seen := make(map[int]string)
	for name, pin := range map[string]int{
		"start_pin":   c.Buttons.StartPin,
		"capture_pin": c.Buttons.CapturePin,
		"next_pin":    c.Buttons.NextPin,
		"print_pin":   c.Buttons.PrintPin,
	} {
		if pin < 0 || pin > 27 {
			return fmt.Errorf("buttons.%s must be a BCM pin 0-27, got %d", name, pin)
		}
		if pin == 0 {
			continue
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("buttons.%s and buttons.%s share pin %d", name, other, pin)
		}
		seen[pin] = name
	}
	if c.Buttons.PollMs <= 0 {
		c.Buttons.PollMs = 10
	}
	if c.Buttons.DebounceMs < 0 {
		return fmt.Errorf("buttons.debounce_ms must be >= 0, got %d", c.Buttons.DebounceMs)
	}
	if c.Buttons.DebounceMs == 0 {
		c.Buttons.DebounceMs = 30
	}

	// Pools
	if c.Pools != nil {
		if err := c.Pools.Validate(); err != nil {
			return fmt.Errorf("pools: %w", err)
		}
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// AnalysisDelay returns the time spent on the analyzing screen.
func (c *Config) AnalysisDelay() time.Duration {
	return time.Duration(c.Kiosk.AnalysisDelayMs) * time.Millisecond
}

// PrintTimeout returns the print request timeout.
func (c *Config) PrintTimeout() time.Duration {
	return time.Duration(c.Print.TimeoutMs) * time.Millisecond
}

// PollInterval returns the button poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Buttons.PollMs) * time.Millisecond
}

// Debounce returns the button debounce time.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Buttons.DebounceMs) * time.Millisecond
}

// PersonaPools returns the configured pools, or the built-in ones.
func (c *Config) PersonaPools() persona.Pools {
	if c.Pools != nil {
		return *c.Pools
	}
	return persona.DefaultPools()
}
