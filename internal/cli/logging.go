package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// newLogger returns a console zerolog logger writing to w. Verbosity 0 logs
// warnings, 1 info and 2 or more debug. The logger adds no timestamp.
func newLogger(w io.Writer, verbosity int, jsonOutput bool) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbosity >= 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}

	out := w
	if !jsonOutput {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level)
}

// newSlogLogger returns a slog logger writing through logger, so the library
// packages, which log through slog, share the command's output. Records carry
// their own time field, so logger should not add one.
func newSlogLogger(logger zerolog.Logger) *slog.Logger {
	return slog.New(slogzerolog.Option{
		Level:  slogLevel(logger.GetLevel()),
		Logger: &logger,
	}.NewZerologHandler())
}

func slogLevel(l zerolog.Level) slog.Level {
	switch l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return slog.LevelDebug
	case zerolog.InfoLevel:
		return slog.LevelInfo
	case zerolog.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
