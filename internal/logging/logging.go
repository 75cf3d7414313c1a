// Package logging configures the zerolog logger used for diagnostics.
// Human-facing progress lines are written by the commands themselves;
// this logger carries warnings, errors and debug detail to stderr.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/lorea/bootstrap/internal/branding"
)

// Profile selects defaults for a run context.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config controls logger construction.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// DefaultConfig returns the defaults for profile.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel}
	}
}

// ApplyEnv overrides cfg from <PREFIX>_LOG_LEVEL, <PREFIX>_LOG_TIMESTAMP
// and <PREFIX>_LOG_NOCOLOR.
func ApplyEnv(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(branding.EnvVar("LOG_LEVEL"))); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(branding.EnvVar("LOG_TIMESTAMP"))); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(branding.EnvVar("LOG_NOCOLOR"))); ok {
		cfg.NoColor = v
	}
}

// New builds a console logger writing to w. Colour is disabled when w
// is not a terminal.
func New(w io.Writer, cfg Config) zerolog.Logger {
	noColor := cfg.NoColor
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		noColor = true
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	ctx := zerolog.New(output).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
