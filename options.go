package rpstage

import "log/slog"

type options struct {
	name     string
	logger   *Logger
	logLevel *slog.Level
	metrics  MetricsObserver
}

// Option configures NewStage.
type Option func(*options)

// WithName names the stage in log output. Default: "region-profile".
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger for the stage.
// If nil is passed, a NoopLogger is used.
//
// Example:
//
//	logger := rpstage.NewJSONLogger(slog.LevelDebug)
//	st, err := rpstage.NewStage(dev, 0, 4, rpstage.Adaptive(cfg), rpstage.WithLogger(logger))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel builds a text logger to stderr at level. It is ignored when
// WithLogger is also given.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logLevel = &level
	}
}

// WithMetricsObserver sets the metrics observer for the stage.
// If nil is passed, metrics are discarded.
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsObserver{}
		}
		o.metrics = m
	}
}

func applyOptions(opts []Option) options {
	o := options{
		name:    "region-profile",
		metrics: NoopMetricsObserver{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		if o.logLevel != nil {
			o.logger = NewTextLogger(*o.logLevel)
		} else {
			o.logger = NoopLogger()
		}
	}
	return o
}
