package stacker

// EventSink receives alignment anomalies as they are detected. Inputs and
// steps are 1-based, matching the CLI's numbering. Calls happen on the
// session loop, so implementations must not block.
type EventSink interface {
	// HighInitialMSE fires when an input disagrees badly with the group
	// within the start-of-run window: a likely wrong starting field.
	HighInitialMSE(input, step int, mse float64)

	// SustainedDrift fires when an input is excluded after its error stayed
	// above threshold for a sustained run of steps.
	SustainedDrift(input, step int, mse float64)

	// DupeSwallowed fires when a duplicate field is discarded.
	DupeSwallowed(input, step int)

	// DupeConvertedToDrop fires when a duplicate field is converted to a
	// two-field drop.
	DupeConvertedToDrop(input, step int)
}

// NoopEvents discards all events.
type NoopEvents struct{}

func (NoopEvents) HighInitialMSE(input, step int, mse float64) {}
func (NoopEvents) SustainedDrift(input, step int, mse float64) {}
func (NoopEvents) DupeSwallowed(input, step int)               {}
func (NoopEvents) DupeConvertedToDrop(input, step int)         {}
