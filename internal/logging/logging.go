package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "MYRMEX_LOG_LEVEL"
	EnvLogNoColor = "MYRMEX_LOG_NOCOLOR"
	EnvLogJSON    = "MYRMEX_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// New builds the process logger for the given profile, applying any
// MYRMEX_LOG_* environment overrides on top of the profile defaults.
func New(app string, profile Profile) zerolog.Logger {
	level := zerolog.InfoLevel
	if profile == ProfileTest {
		level = zerolog.DebugLevel
	}
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    envBool(EnvLogNoColor),
	}
	if envBool(EnvLogJSON) {
		out = os.Stderr
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger()
}

// Nop returns a disabled logger for callers that want logging off entirely.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(raw string) (zerolog.Level, bool) {
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

func envBool(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}
