// Package fieldstack combines multiple TBC captures of the same tape into a
// single lower-noise capture.
//
// Example usage:
//
//	cfg := fieldstack.Config{
//	    Inputs: []fieldstack.InputConfig{
//	        {Path: "cap1", StartField: 1},
//	        {Path: "cap2", StartField: 1},
//	        {Path: "cap3", StartField: 3},
//	    },
//	    Output: "stacked",
//	}
//	if err := fieldstack.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
package fieldstack

import (
	"context"

	stack "github.com/tbc-tools/fieldstack/pkg/fieldstack"
)

// Config configures a stacking run. See pkg/fieldstack for field docs.
type Config = stack.Config

// InputConfig identifies one capture stream and its start field.
type InputConfig = stack.InputConfig

// Option customizes a run (logging, event handlers).
type Option = stack.Option

// EventHandler receives alignment warnings from a running session.
type EventHandler = stack.EventHandler

// WithLogger attaches a logger to the run.
var WithLogger = stack.WithLogger

// WithEventHandler attaches an event handler to the run.
var WithEventHandler = stack.WithEventHandler

// Run stacks the configured inputs into the output capture. It blocks until
// the primary input is exhausted, the context is cancelled, or a fatal error
// occurs.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	s, err := stack.New(cfg, opts...)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
