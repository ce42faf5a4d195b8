package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New builds a leveled logger writing to out. format "console" gives human
// readable output; anything else is JSON.
func New(level, format string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()
}
