package fieldstack

// EventHandler receives alignment warnings from a running session. Inputs
// and fields are 1-based. Calls happen on the session loop; handlers must
// not block.
type EventHandler interface {
	// OnHighInitialMSE signals a likely wrong starting field for an input.
	OnHighInitialMSE(input, field int, mse float64)

	// OnSustainedDrift signals that an input was excluded after sustained
	// disagreement with the stacked output.
	OnSustainedDrift(input, field int, mse float64)

	// OnDupeSwallowed signals that an input's duplicate field was discarded.
	OnDupeSwallowed(input, field int)

	// OnDupeConvertedToDrop signals that a duplicate field was converted to
	// a two-field drop.
	OnDupeConvertedToDrop(input, field int)
}

// eventBridge adapts an EventHandler to the internal event sink.
type eventBridge struct {
	handler EventHandler
}

func (b eventBridge) HighInitialMSE(input, step int, mse float64) {
	b.handler.OnHighInitialMSE(input, step, mse)
}

func (b eventBridge) SustainedDrift(input, step int, mse float64) {
	b.handler.OnSustainedDrift(input, step, mse)
}

func (b eventBridge) DupeSwallowed(input, step int) {
	b.handler.OnDupeSwallowed(input, step)
}

func (b eventBridge) DupeConvertedToDrop(input, step int) {
	b.handler.OnDupeConvertedToDrop(input, step)
}
