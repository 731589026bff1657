package stacker

import (
	"context"
	"fmt"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

type stepKind uint8

const (
	// stepStack: a full StackGroup is ready to combine.
	stepStack stepKind = iota

	// stepDupe: a duplicate field is written verbatim this step.
	stepDupe

	// stepSwallow: dupes were discarded but nothing is written.
	stepSwallow

	// stepDropPair: dupes were converted to drops; this step and the next
	// stacked result are discarded.
	stepDropPair

	// stepDone: the primary input is exhausted.
	stepDone
)

// stepResult is one aligner decision: which fields from which inputs
// participate in the current output field, if any.
type stepResult struct {
	kind stepKind

	// group and members are parallel: the contributing fields and their
	// 0-based input ids, for stepStack.
	group   []*domain.Field
	members []int

	// dupeField is the field written verbatim for stepDupe.
	dupeField *domain.Field
	dupeInput int

	// swallowed lists inputs whose duplicate field was discarded.
	swallowed []int

	// primaryIndex is the primary input's physical field index backing this
	// step's passthrough metadata.
	primaryIndex int
}

// aligner drives all input cursors in parity lockstep, resolves duplicate
// fields, and selects the StackGroup for each output step. It owns all
// cross-step mutable state: cursor positions and input states.
type aligner struct {
	cursors      []*cursor
	dupesToDrops bool
	minStack     int

	// lastPrimaryIdx backs passthrough metadata on steps where the primary
	// input holds its pending field.
	lastPrimaryIdx int
}

func newAligner(cursors []*cursor, dupesToDrops bool, minStack int) *aligner {
	return &aligner{
		cursors:      cursors,
		dupesToDrops: dupesToDrops,
		minStack:     minStack,
	}
}

// next advances the session by one step.
//
// All non-exhausted cursors move together: on a stack step every one of them
// consumes a field (drifted cursors advance without contributing); on a dupe
// step only the duped cursors consume, everyone else holds its pending field
// for the next step.
func (a *aligner) next(ctx context.Context) (stepResult, error) {
	advancing := a.cursors[:0:0]
	for _, c := range a.cursors {
		if c.state == stateExhausted {
			continue
		}
		if _, err := c.peek(ctx); err != nil {
			return stepResult{}, fmt.Errorf("input %d: %w", c.id+1, err)
		}
		if c.state != stateExhausted {
			advancing = append(advancing, c)
		}
	}

	primary := a.cursors[0]
	if primary.state == stateExhausted {
		return stepResult{kind: stepDone}, nil
	}

	contributors := 0
	for _, c := range advancing {
		if c.state == stateAligned {
			contributors++
		}
	}
	if contributors < a.minStack {
		return stepResult{}, fmt.Errorf("%w: %d of %d required",
			domain.ErrStackTooSmall, contributors, a.minStack)
	}

	var duped []*cursor
	for _, c := range advancing {
		if c.isDupe() {
			duped = append(duped, c)
		}
	}
	if len(duped) == 0 {
		return a.stackStep(advancing), nil
	}
	return a.dupeStep(duped), nil
}

func (a *aligner) stackStep(advancing []*cursor) stepResult {
	res := stepResult{kind: stepStack}
	for _, c := range advancing {
		f := c.consume()
		if c.id == 0 {
			a.lastPrimaryIdx = f.Index
		}
		if c.state == stateAligned {
			res.group = append(res.group, f)
			res.members = append(res.members, c.id)
		}
	}
	res.primaryIndex = a.lastPrimaryIdx
	return res
}

func (a *aligner) dupeStep(duped []*cursor) stepResult {
	res := stepResult{kind: stepSwallow, dupeInput: -1}

	if a.dupesToDrops {
		res.kind = stepDropPair
		for _, c := range duped {
			prev := c.state
			c.state = stateDupeHolding
			f := c.consume()
			c.dupes++
			c.state = prev
			if c.id == 0 {
				a.lastPrimaryIdx = f.Index
			}
			res.swallowed = append(res.swallowed, c.id)
		}
		res.primaryIndex = a.lastPrimaryIdx
		return res
	}

	// The earliest contributing dupe is kept as authoritative and written
	// out; every later dupe this step is discarded. Dupes on drifted inputs
	// are always discarded.
	for _, c := range duped {
		prev := c.state
		c.state = stateDupeHolding
		f := c.consume()
		c.dupes++
		c.state = prev
		if c.id == 0 {
			a.lastPrimaryIdx = f.Index
		}
		if res.dupeField == nil && prev == stateAligned {
			res.kind = stepDupe
			res.dupeField = f
			res.dupeInput = c.id
		} else {
			res.swallowed = append(res.swallowed, c.id)
		}
	}
	res.primaryIndex = a.lastPrimaryIdx
	return res
}

// markDrifted permanently excludes an input from future StackGroups.
// Its cursor keeps advancing in lockstep.
func (a *aligner) markDrifted(id int) {
	a.cursors[id].state = stateDrifted
}
