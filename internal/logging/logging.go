/*
Package logging configures the process-wide zerolog logger and hands out
component-scoped child loggers. Every subsystem (registry, supervisor, bus,
cache, store, discovery, httpapi) logs through a WithComponent logger rather
than the global logger directly, so log lines are always attributable.
*/
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance, configured once by Init.
	Logger zerolog.Logger
)

// Level is the configured minimum severity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init builds the global logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Call once at process startup.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with component=name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithJob returns a child logger tagged with job_id and kind, the two
// fields almost every job-lifecycle log line needs.
func WithJob(jobID, kind string) zerolog.Logger {
	return Logger.With().Str("job_id", jobID).Str("kind", kind).Logger()
}

// WithRoom returns a child logger tagged with the progress-bus room name.
func WithRoom(room string) zerolog.Logger {
	return Logger.With().Str("room", room).Logger()
}
