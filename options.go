package fuzzyhash

import "runtime"

var (
	// DefaultWorkers is the number of goroutines used by the aggregation helpers
	// when WithWorkers is not given.
	DefaultWorkers = runtime.GOMAXPROCS(0)

	// DefaultCompression is the snapshot payload compression used when
	// WithCompression is not given.
	DefaultCompression = CompressionNone
)

// SnapshotOptions configures a SnapshotCodec.
type SnapshotOptions struct {
	Compression CompressionKind
	Logger      *Logger
}

// SnapshotOption configures a SnapshotCodec.
type SnapshotOption func(*SnapshotOptions)

// WithCompression selects the compression applied to the snapshot payload.
// Decoding detects the compression from the envelope, so the option only
// affects Encode.
func WithCompression(kind CompressionKind) SnapshotOption {
	return func(o *SnapshotOptions) {
		o.Compression = kind
	}
}

// WithSnapshotLogger sets the logger used by the codec.
// If nil is passed, logging is disabled.
func WithSnapshotLogger(l *Logger) SnapshotOption {
	return func(o *SnapshotOptions) {
		if l == nil {
			l = NoopLogger()
		}
		o.Logger = l
	}
}

func applySnapshotOptions(opts []SnapshotOption) SnapshotOptions {
	o := SnapshotOptions{
		Compression: DefaultCompression,
		Logger:      NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// AggregateOptions configures ParallelMerge and AggregateGroups.
type AggregateOptions struct {
	Workers int
	Logger  *Logger
}

// AggregateOption configures ParallelMerge and AggregateGroups.
type AggregateOption func(*AggregateOptions)

// WithWorkers bounds the number of goroutines. Values <= 0 select DefaultWorkers.
func WithWorkers(n int) AggregateOption {
	return func(o *AggregateOptions) {
		if n <= 0 {
			n = DefaultWorkers
		}
		o.Workers = n
	}
}

// WithAggregateLogger sets the logger used by the aggregation helpers.
// If nil is passed, logging is disabled.
func WithAggregateLogger(l *Logger) AggregateOption {
	return func(o *AggregateOptions) {
		if l == nil {
			l = NoopLogger()
		}
		o.Logger = l
	}
}

func applyAggregateOptions(opts []AggregateOption) AggregateOptions {
	o := AggregateOptions{
		Workers: DefaultWorkers,
		Logger:  NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}
