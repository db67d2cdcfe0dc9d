package utils

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// NewLogger writes human output to console and every record down to Debug
// to diag, when diag is not nil.
func NewLogger(console io.Writer, diag io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlers := fanout{tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})}
	if diag != nil {
		handlers = append(handlers, slog.NewJSONHandler(diag, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(handlers)
}

// SetupLogging installs the default logger. The returned closer flushes the
// diagnostic file.
func SetupLogging(c *ArchiverConfig) (io.Closer, error) {
	var diag *os.File
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		diag = f
	}
	var w io.Writer
	if diag != nil {
		w = diag
	}
	slog.SetDefault(NewLogger(os.Stderr, w, c.Verbose))
	if diag == nil {
		return nopCloser{}, nil
	}
	return diag, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
