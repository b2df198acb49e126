package debug

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (screen changes, participant count)
	LevelLive    = 2 // Live info (button presses, captures, print calls)
	LevelVerbose = 3 // Verbose (timers, snapshots, config details)
	LevelTrace   = 4 // Trace (GPIO, very low level)
)

var (
	level  int
	logger = newLogger(os.Stdout)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	l.SetLevel(logrus.TraceLevel)
	return l
}

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (screen changes, participant count)
// 2 = live info (button presses, captures, print calls)
// 3 = verbose (timers, snapshots, config details)
// 4 = trace (GPIO, very low level)
func Init(debugLevel int) {
	level = debugLevel
}

// SetOutput redirects all debug output, e.g. to tee it into the status stream.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// Fields is an alias so callers don't import logrus for structured values.
type Fields = logrus.Fields

// WithFields logs msg at level 2 with structured fields attached.
func WithFields(fields Fields, msg string) {
	if level >= LevelLive {
		logger.WithFields(fields).Info(msg)
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Infof(format, args...)
	}
}

// Summary prints an important banner (level 1).
func Summary(title string) {
	if level >= LevelInfo {
		logger.Info("═══════════════════════════════════════")
		logger.Infof("  %s", title)
		logger.Info("═══════════════════════════════════════")
	}
}

// Screen prints a screen transition (level 1).
func Screen(from, to string) {
	if level >= LevelInfo {
		logger.WithFields(logrus.Fields{"from": from, "to": to}).Info("screen")
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive {
		logger.Infof(format, args...)
	}
}

// Press prints a kiosk button press (level 2).
func Press(button string, pin int) {
	if level >= LevelLive {
		logger.WithFields(logrus.Fields{"button": button, "pin": pin}).Info("button pressed")
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose {
		logger.Debugf(format, args...)
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose {
		logger.Debugf("%s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose {
		logger.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Debugf("  %s", name)
		logger.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose {
		logger.Debugf("Step %d: %s", num, description)
	}
}

// Value prints a named value (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo {
		logger.Infof("  %s = %v", name, value)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message.
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace {
		logger.Tracef(format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace {
		logger.WithFields(logrus.Fields{"op": operation, "pin": pin, "value": value}).Trace("gpio")
	}
}

// --- General functions ---

// Error prints an error (level 1+).
func Error(err error) {
	if level >= LevelInfo {
		logger.WithError(err).Error("error")
	}
}

// Warn prints a recoverable failure with context (level 1+).
func Warn(err error, msg string) {
	if level >= LevelInfo {
		logger.WithError(err).Warn(msg)
	}
}
