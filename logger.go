package fuzzyhash

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with fuzzyhash-specific fields.
// The aggregation core never logs; only the codec and the aggregation helpers do.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithComposite tags the logger with the identity and shape of a composite.
func (l *Logger) WithComposite(c *CompositeHash) *Logger {
	return &Logger{Logger: l.Logger.With(
		"composite", c.ID().String(),
		"bits", c.BitLength(),
		"algorithm", c.AlgorithmID(),
	)}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{Logger: l.Logger.With("count", count)}
}

// LogEncode logs a snapshot encode.
func (l *Logger) LogEncode(ctx context.Context, c *CompositeHash, compression CompressionKind, written int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot encode failed",
			"composite", c.ID().String(),
			"compression", compression.String(),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "snapshot encoded",
		"composite", c.ID().String(),
		"members", c.MemberCount(),
		"compression", compression.String(),
		"bytes", written,
	)
}

// LogDecode logs a snapshot decode.
func (l *Logger) LogDecode(ctx context.Context, bits, members int, read int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "snapshot decode failed",
			"bytes", read,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "snapshot decoded",
		"bits", bits,
		"members", members,
		"bytes", read,
	)
}

// LogAggregate logs a parallel aggregation.
func (l *Logger) LogAggregate(ctx context.Context, hashes, workers int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "aggregation failed",
			"hashes", hashes,
			"workers", workers,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "aggregation completed",
		"hashes", hashes,
		"workers", workers,
	)
}
