package stacker

import (
	"context"
	"errors"
	"io"

	"github.com/tbc-tools/fieldstack/internal/domain"
	"github.com/tbc-tools/fieldstack/internal/ports"
)

// inputState is the aligner's per-input state.
type inputState uint8

const (
	// stateAligned: normal lockstep, contributes to StackGroups.
	stateAligned inputState = iota

	// stateDupeHolding: a dupe is being resolved on this input this step.
	stateDupeHolding

	// stateDrifted: excluded from StackGroups after sustained disagreement.
	// The cursor keeps advancing in lockstep so the stream position stays
	// meaningful for manual re-synchronization.
	stateDrifted

	// stateExhausted: the input ran out of fields.
	stateExhausted
)

// cursor wraps one input's FieldSource, tracking position, the pending
// (peeked but unconsumed) field, and the parity of the last consumed field.
type cursor struct {
	id  int // 0-based input ordinal
	src ports.FieldSource

	state   inputState
	pending *domain.Field

	lastParity domain.Parity
	haveLast   bool

	consumed int
	dupes    int
}

// peek loads the next field if none is pending. Returns nil once the input
// is exhausted.
func (c *cursor) peek(ctx context.Context) (*domain.Field, error) {
	if c.state == stateExhausted {
		return nil, nil
	}
	if c.pending != nil {
		return c.pending, nil
	}
	f, err := c.src.Next(ctx)
	if errors.Is(err, io.EOF) {
		c.state = stateExhausted
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.pending = &f
	return c.pending, nil
}

// isDupe reports whether the pending field repeats the parity of the last
// consumed field, i.e. the decoder re-emitted a field instead of alternating.
func (c *cursor) isDupe() bool {
	return c.haveLast && c.pending != nil && c.pending.Parity == c.lastParity
}

// consume takes the pending field and records its parity.
func (c *cursor) consume() *domain.Field {
	f := c.pending
	c.pending = nil
	c.lastParity = f.Parity
	c.haveLast = true
	c.consumed++
	return f
}
