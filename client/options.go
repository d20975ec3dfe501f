package client

import (
	"time"

	"github.com/aaronwong1989/smppc/comm/logging"
)

const (
	DefaultPort           = 2775
	DefaultConnectTimeout = 5 * time.Second
	DefaultMaxFrameLength = 64 * 1024
)

// Option is a function that will set up option.
type Option func(opts *Options)

func loadOptions(options ...Option) *Options {
	opts := &Options{
		Logger:          logging.GetDefaultLogger(),
		MaxFrameLength:  DefaultMaxFrameLength,
		InitialSequence: 1,
	}
	for _, option := range options {
		option(opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return opts
}

// Options are configurations for the smpp client.
type Options struct {
	// Logger is the customized logger for logging info, if it is not set,
	// then client uses the default logger powered by go.uber.org/zap.
	Logger logging.Logger

	// RequestTimeout bounds the wait for a response to a request sent after bind,
	// zero means requests wait until the connection closes.
	RequestTimeout time.Duration

	// EnquireLinkInterval makes the client send enquire_link periodically while bound,
	// zero disables it.
	EnquireLinkInterval time.Duration

	// MaxFrameLength is the largest command_length accepted from the peer.
	MaxFrameLength int

	// InitialSequence is the sequence number of the bind request.
	InitialSequence int32
}

// WithOptions sets up all options.
func WithOptions(options Options) Option {
	return func(opts *Options) {
		*opts = options
	}
}

// WithLogger sets up a customized logger.
func WithLogger(logger logging.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithRequestTimeout sets up the per-request timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.RequestTimeout = timeout
	}
}

// WithEnquireLinkInterval sets up the keep-alive interval.
func WithEnquireLinkInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.EnquireLinkInterval = interval
	}
}

// WithMaxFrameLength sets up the maximum accepted frame length.
func WithMaxFrameLength(n int) Option {
	return func(opts *Options) {
		opts.MaxFrameLength = n
	}
}

// WithInitialSequence sets up the first sequence number.
func WithInitialSequence(seq int32) Option {
	return func(opts *Options) {
		opts.InitialSequence = seq
	}
}
