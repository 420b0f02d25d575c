package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smartdoctor/agent/internal/config"
)

// Init sets the global zerolog level and output from the logging config
func Init(lcfg config.LoggingConfig) {
	InitWriter(lcfg, os.Stderr)
}

// InitWriter is Init with an explicit output
func InitWriter(lcfg config.LoggingConfig, out io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(lcfg.Level))

	if strings.ToLower(lcfg.Format) == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		// default json
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
