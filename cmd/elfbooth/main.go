package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/cjeanneret/ElfBooth/internal/config"
	"github.com/cjeanneret/ElfBooth/internal/debug"
	"github.com/cjeanneret/ElfBooth/internal/hw/button"
	"github.com/cjeanneret/ElfBooth/internal/hw/camera"
	"github.com/cjeanneret/ElfBooth/internal/hw/gpio"
	"github.com/cjeanneret/ElfBooth/internal/i18n"
	"github.com/cjeanneret/ElfBooth/internal/logic/persona"
	"github.com/cjeanneret/ElfBooth/internal/logic/session"
	"github.com/cjeanneret/ElfBooth/internal/printer"
	"github.com/cjeanneret/ElfBooth/internal/web"
)

var version = "dev" // set via ldflags at build time

// framePushMs is how often the kiosk page pushes a camera frame.
const framePushMs = 500

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(newOptions()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds the command-line flags shared by all commands.
type options struct {
	configPath string
	envFile    string
	printURL   string
	mockGPIO   bool
	debugLevel int
	web        webPortFlag
	addr       string
}

func newOptions() *options {
	return &options{web: webPortFlag{val: 8080, defaultPort: 8080}}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "elfbooth",
		Short: "Christmas elf photo kiosk",
		Long: `elfbooth runs the elf persona kiosk: the visitor starts the camera,
takes a photo, and after a short "analysis" gets an elf name, title and
holiday power, which can be printed as a certificate.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runKiosk(cmd.Context(), cfg, opts.web.port())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultPath, "path to config file (must be a .yaml inside a configs/ directory)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with secrets such as PRINT_API_TOKEN")
	pf.StringVar(&opts.printURL, "print-url", "", "override print service URL (scheme://host:port)")
	pf.BoolVar(&opts.mockGPIO, "mock-gpio", false, "use the mock GPIO driver")
	pf.IntVar(&opts.debugLevel, "debug", 0, "debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)")

	root.Flags().Var(&opts.web, "web", `web server port; --web for 8080, --web=off for buttons only`)
	root.Flags().Lookup("web").NoOptDefVal = strconv.Itoa(opts.web.defaultPort)

	root.AddCommand(newPrintServerCmd(opts))
	return root
}

func newPrintServerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print-server",
		Short: "Receive certificates and spool them for printing",
		Long: `print-server accepts certificates on ` + printer.CertificatePath + `
with the PRINT_API_TOKEN bearer token and writes them to the spool directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runPrintServer(cmd.Context(), cfg, opts.addr)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from print_server.addr)")
	return cmd
}

// loadConfig reads .env, the YAML file, the environment and the flags, in
// that order; each layer overrides the previous one.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	if err := config.ValidateConfigPath(opts.configPath); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	cfg, err := config.Load(opts.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && opts.configPath == config.DefaultPath:
		cfg = config.Default()
	case err != nil:
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Apply(flagOverrides(cmd, opts)); err != nil {
		return nil, fmt.Errorf("invalid flag: %w", err)
	}
	return cfg, nil
}

// flagOverrides returns the flags the user actually set.
func flagOverrides(cmd *cobra.Command, opts *options) config.Overrides {
	o := config.Overrides{PrintURL: opts.printURL}
	if f := cmd.Flags().Lookup("debug"); f != nil && f.Changed {
		lvl := opts.debugLevel
		o.DebugLevel = &lvl
	}
	if f := cmd.Flags().Lookup("mock-gpio"); f != nil && f.Changed {
		mock := opts.mockGPIO
		o.MockGPIO = &mock
	}
	return o
}

func runKiosk(ctx context.Context, cfg *config.Config, port int) error {
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Summary("ElfBooth kiosk")
	debug.Section("Initialization")
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Kiosk config", cfg.Kiosk)

	if port == 0 && cfg.Camera.Type == "relay" {
		return errors.New("the relay camera is fed by the kiosk page; run with --web or camera.type: pattern")
	}

	broadcaster := web.NewStatusBroadcaster()
	if port > 0 {
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	// Camera
	debug.Step(1, "Initializing camera")
	device, relay := newDevice(cfg)
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Facing", cfg.Camera.Facing)

	// Persona generator
	debug.Step(2, "Preparing persona pools")
	lang, _ := i18n.ParseTag(cfg.Kiosk.Locale)
	gen, err := persona.NewGenerator(cfg.PersonaPools(), nil, lang)
	if err != nil {
		return fmt.Errorf("init persona generator: %w", err)
	}

	// Print client
	debug.Step(3, "Configuring print client")
	if cfg.Print.Token == "" {
		debug.Info("PRINT_API_TOKEN is not set; the print service will reject certificates")
	}
	debug.Value("Print URL", cfg.Print.URL)
	printClient := printer.NewClient(cfg.Print.URL, cfg.Print.Token, cfg.PrintTimeout())

	ctrl, err := session.New(session.Options{
		Device:         device,
		Generator:      gen,
		Printer:        printClient,
		AnalysisDelay:  cfg.AnalysisDelay(),
		Facing:         camera.Facing(cfg.Camera.Facing),
		FallbackWidth:  cfg.Camera.FallbackWidth,
		FallbackHeight: cfg.Camera.FallbackHeight,
		Language:       lang,
	})
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer ctrl.Close()
	defer ctrl.Subscribe(broadcaster.BroadcastView)()
	watchCameraSupport(relay, ctrl)

	// GPIO buttons
	debug.Step(4, "Initializing GPIO buttons")
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO failed: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			debug.Warn(err, "closing GPIO driver failed")
		}
	}()
	panel := button.NewPanel(gpioDriver, cfg.PollInterval(), buttonBindings(ctx, cfg, ctrl)...)
	debug.Value("Buttons wired", panel.Len())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return panel.Run(ctx)
	})
	if port > 0 {
		srv, err := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, ctrl, relay, clientConfig(cfg, lang))
		if err != nil {
			return err
		}
		group.Go(func() error {
			return srv.Run(ctx)
		})
	}

	debug.Section("Kiosk ready")
	err = group.Wait()
	debug.Info("Kiosk stopped")
	return err
}

// newDevice selects the camera source. The relay is returned separately
// so the web layer can feed it; it is nil for the pattern source.
func newDevice(cfg *config.Config) (camera.Device, web.CameraRelay) {
	if cfg.Camera.Type == "pattern" {
		return camera.NewPattern(cfg.Camera.FallbackWidth, cfg.Camera.FallbackHeight), nil
	}
	r := camera.NewRelay()
	return r, r
}

// watchCameraSupport lets the page's "no camera support" report reach the
// session as soon as it arrives, before any Start.
func watchCameraSupport(relay web.CameraRelay, ctrl *session.Controller) {
	if r, ok := relay.(*camera.Relay); ok {
		r.OnUnsupported(ctrl.MarkUnsupported)
	}
}

// clientConfig is what the kiosk page reads from /config. The locale is
// the resolved catalog tag, not the raw config value.
func clientConfig(cfg *config.Config, lang language.Tag) web.ClientConfig {
	return web.ClientConfig{
		Locale:          lang.String(),
		Facing:          cfg.Camera.Facing,
		AnalysisDelayMs: cfg.Kiosk.AnalysisDelayMs,
		FramePushMs:     framePushMs,
	}
}

// buttonBindings maps the configured pins to session actions.
func buttonBindings(ctx context.Context, cfg *config.Config, ctrl *session.Controller) []button.Binding {
	bind := func(name string, pin int, action func() error) button.Binding {
		return button.Binding{
			Config: button.Config{Name: name, Pin: pin, Debounce: cfg.Debounce()},
			Action: func() {
				if err := action(); err != nil {
					debug.Live("Button %s: %v", name, err)
				}
			},
		}
	}
	return []button.Binding{
		bind("start", cfg.Buttons.StartPin, ctrl.Start),
		bind("capture", cfg.Buttons.CapturePin, ctrl.Capture),
		bind("next", cfg.Buttons.NextPin, func() error {
			ctrl.Next()
			return nil
		}),
		bind("print", cfg.Buttons.PrintPin, func() error {
			go ctrl.Print(ctx)
			return nil
		}),
	}
}

func runPrintServer(ctx context.Context, cfg *config.Config, addr string) error {
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Summary("ElfBooth print server")
	if addr == "" {
		addr = cfg.PrintServer.Addr
	}
	if cfg.Print.Token == "" {
		return errors.New("PRINT_API_TOKEN must be set for the print server")
	}
	debug.Value("Spool directory", cfg.PrintServer.SpoolDir)

	h := printer.NewHandler(cfg.Print.Token, printer.DirSpool{Dir: cfg.PrintServer.SpoolDir})
	return web.Serve(ctx, addr, h.Mux(), "print server")
}

// webPortFlag implements pflag.Value for --web: "off" or 0 = disabled,
// --web alone → 8080, --web=8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	if s == "off" {
		w.val = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }
