package ports

import (
	"context"
	"io"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

// ErrNoMoreFields indicates that an input has no more fields to read.
var ErrNoMoreFields = io.EOF

// FieldSource supplies decoded fields for one input in physical order.
// Implementations read from the capture container and its metadata sidecar.
type FieldSource interface {
	// Next returns the next field for this input.
	// Returns io.EOF when the input is exhausted.
	// Returns other errors for unrecoverable I/O issues.
	Next(ctx context.Context) (domain.Field, error)

	// Close releases all resources held by the source.
	Close() error
}

// FieldSink receives combined output fields in strictly ascending order.
type FieldSink interface {
	// Write appends one output field to the sink.
	Write(ctx context.Context, f domain.OutputField) error

	// Close flushes buffered data and finalizes the output metadata.
	// The sink is unusable afterwards.
	Close() error
}
