package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// LogOptions selects the console format, level and optional log file.
type LogOptions struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	File   string // when set, JSON records are also appended here
}

// NewLogger builds the service logger writing to stderr. When opts.File is
// set every record is fanned out to a JSON handler on that file as well. The
// returned cleanup closes the file.
func NewLogger(opts LogOptions) (*slog.Logger, func() error) {
	return newLogger(os.Stderr, opts)
}

func newLogger(console io.Writer, opts LogOptions) (*slog.Logger, func() error) {
	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var consoleHandler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		consoleHandler = slog.NewTextHandler(console, handlerOpts)
	} else {
		consoleHandler = slog.NewJSONHandler(console, handlerOpts)
	}

	noop := func() error { return nil }
	if opts.File == "" {
		return slog.New(consoleHandler), noop
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("failed to open log file, using console only", "error", err, "file", opts.File)
		return logger, noop
	}

	fileHandler := slog.NewJSONHandler(file, handlerOpts)
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler)), file.Close
}

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
