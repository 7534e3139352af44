// Package log provides context-aware logging for polypress.
//
// A Logger carries two kinds of output to the same writer: plain
// user-facing lines (Printf, Println) and structured diagnostics through
// the embedded slog.Logger (Debug, Info, Warn, Error).
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

type ctxKey struct{}

// Logger provides output and leveled diagnostic logging.
type Logger struct {
	*slog.Logger
	out     io.Writer
	verbose bool
	quiet   bool
}

// New creates a new logger writing to out.
// verbose enables debug diagnostics; quiet suppresses everything below
// error level, including Printf and Println.
func New(out io.Writer, verbose, quiet bool) *Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	return &Logger{
		Logger:  slog.New(h),
		out:     out,
		verbose: verbose && !quiet,
		quiet:   quiet,
	}
}

// Discard returns a logger that drops all output.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler), out: io.Discard}
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Discard()
}

// Printf writes formatted output.
func (l *Logger) Printf(format string, args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Println writes a line of output.
func (l *Logger) Println(args ...any) {
	if l.quiet {
		return
	}
	fmt.Fprintln(l.out, args...)
}

// Op logs the start of a named boundary operation at debug level and
// returns a function that logs its outcome with the elapsed time.
//
//	done := l.Op("publication.touch", "id", id)
//	defer func() { done(err) }()
func (l *Logger) Op(name string, args ...any) func(err error) {
	start := time.Now()
	l.Debug(name+" start", args...)
	return func(err error) {
		ms := time.Since(start).Milliseconds()
		if err != nil {
			l.Warn(name+" failed", append(args, "ms", ms, "error", err)...)
			return
		}
		l.Debug(name+" ok", append(args, "ms", ms)...)
	}
}

// Verbose returns true if verbose mode is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// Writer returns the underlying writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}
