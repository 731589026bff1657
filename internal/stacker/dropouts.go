package stacker

import (
	"sort"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

// MergeDropouts combines the dropout sets of the contributing fields.
// Each run is flattened to start/end events on the sample axis; a merged
// run is emitted wherever at least threshold inputs agree on a dropout.
// Lines outside the field are discarded.
func MergeDropouts(sets []*domain.Dropouts, width, height, threshold int) *domain.Dropouts {
	type event struct {
		pos   int
		start bool
	}
	var events []event
	for _, d := range sets {
		for i := 0; i < d.Len(); i++ {
			line := d.Line[i]
			if line < 0 || line >= height {
				continue
			}
			events = append(events, event{pos: line*width + d.StartX[i], start: true})
			events = append(events, event{pos: line*width + d.EndX[i], start: false})
		}
	}
	if len(events) == 0 {
		return nil
	}
	sort.Slice(events, func(a, b int) bool {
		if events[a].pos != events[b].pos {
			return events[a].pos < events[b].pos
		}
		// Starts sort before ends so touching runs stay merged.
		return events[a].start && !events[b].start
	})

	var out domain.Dropouts
	depth := 0
	runStart := 0
	for _, e := range events {
		if e.start {
			depth++
			if depth == threshold {
				runStart = e.pos
			}
		} else {
			if depth == threshold {
				line := runStart / width
				out.Line = append(out.Line, line)
				out.StartX = append(out.StartX, runStart-line*width)
				out.EndX = append(out.EndX, e.pos-line*width)
			}
			depth--
		}
	}
	if len(out.Line) == 0 {
		return nil
	}
	return &out
}
