package mapxsd

import "log/slog"

// Option configures schema loading and validation
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for schema warnings and validation tracing.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
