// Package log is keepsake's process-wide structured logger.
//
// Warnings and errors go to stderr; with a debug directory configured every
// record is also appended as JSON to a per-day file, so a failed backup or
// restore can be traced after the fact.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var (
	logger *slog.Logger
	sink   *DailyFile
)

// Options configures the logger.
type Options struct {
	// Verbose lowers the stderr level to debug.
	Verbose bool
	// JSON switches stderr output to JSON lines.
	JSON bool
	// Dir receives the daily debug files. Empty disables file logging.
	Dir string
	// KeepDays prunes debug files older than this many days. Zero keeps all.
	KeepDays int
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Init replaces the global logger.
func Init(opts Options) error {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	stderrOpts := &slog.HandlerOptions{Level: level}

	var fan fanout
	if opts.JSON {
		fan = append(fan, slog.NewJSONHandler(stderr, stderrOpts))
	} else {
		fan = append(fan, slog.NewTextHandler(stderr, stderrOpts))
	}

	if opts.Dir != "" {
		if opts.KeepDays > 0 {
			Prune(opts.Dir, opts.KeepDays)
		}
		f, err := OpenDailyFile(opts.Dir)
		if err != nil {
			return err
		}
		Close()
		sink = f
		fan = append(fan, slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	logger = slog.New(fan)
	slog.SetDefault(logger)
	return nil
}

// Close releases the debug file, if any.
func Close() {
	if sink != nil {
		sink.Close()
		sink = nil
	}
}

// fanout sends each record to every handler that accepts its level.
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
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
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

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// With returns a child of the global logger.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// SetOutput sends everything to w as text. Tests use it to capture logs.
func SetOutput(w io.Writer) {
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// Operation tags subsequent records with the running command, so the
// debug file can be grepped per backup or restore. The returned func
// restores the previous logger.
func Operation(op string) func() {
	prev := logger
	logger = prev.With(slog.String("op", op))
	slog.SetDefault(logger)
	return func() {
		logger = prev
		slog.SetDefault(logger)
	}
}

func init() {
	logger = slog.Default()
}
