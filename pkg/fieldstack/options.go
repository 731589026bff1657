package fieldstack

import "github.com/tbc-tools/fieldstack/pkg/log"

// Option configures optional behavior of a Stacker.
type Option func(*options)

type options struct {
	logger  log.Logger
	handler EventHandler
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets the logger used by the session and its adapters.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventHandler registers a handler for alignment warnings.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}
