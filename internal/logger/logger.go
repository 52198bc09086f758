// Package logger configures structured logging for scenebridge.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console output for terminals
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a config level name onto a zerolog level. Unknown names mean info.
func ParseLevel(name string) zerolog.Level {
	switch name {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a logger from cfg without touching global state.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "scenebridge").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return zlog
}

// Init builds a logger from cfg and installs it as the global zerolog logger.
func Init(cfg Config) zerolog.Logger {
	zlog := New(cfg)
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	log.Logger = zlog
	return zlog
}

// Component returns a child of the global logger tagged with component.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
