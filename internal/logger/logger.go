// Package logger provides a configured zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// Output formats accepted by Configure.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a JSON logger on stdout tagged with serviceName.
// Call sites should use .Stack() on error events to include stacks.
func New(serviceName string) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, serviceName string) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}

	return zerolog.New(w).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// Configure builds the service logger from the configured format and level.
// The console format writes human-readable lines to stdout.
func Configure(serviceName, format, level string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return WithLevel(NewWithWriter(w, serviceName), level)
}

// WithLevel parses level (debug, info, warn, error) and applies it to l.
// Unknown levels leave l unchanged.
func WithLevel(l zerolog.Logger, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return l
	}
	return l.Level(lvl)
}
