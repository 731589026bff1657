package stacker

import "sync"

// Default desync thresholds. The exact values are user-facing tunables; see
// the configuration surface.
const (
	// DefaultHighMSE flags disagreement of roughly 2000 sample units RMS
	// against the stacked median.
	DefaultHighMSE = 4.0e6

	// DefaultDriftRun is how many consecutive over-threshold steps mark an
	// input as drifted.
	DefaultDriftRun = 30

	// DefaultStartWindow is how many initial steps the wrong-starting-offset
	// check covers.
	DefaultStartWindow = 30
)

// Tunables guards the desync thresholds that may be retuned while a session
// is running (see internal/tuning).
type Tunables struct {
	mu       sync.Mutex
	highMSE  float64
	driftRun int
}

// NewTunables creates a threshold set.
func NewTunables(highMSE float64, driftRun int) *Tunables {
	return &Tunables{highMSE: highMSE, driftRun: driftRun}
}

// Set replaces both thresholds atomically.
func (t *Tunables) Set(highMSE float64, driftRun int) {
	t.mu.Lock()
	if highMSE > 0 {
		t.highMSE = highMSE
	}
	if driftRun > 0 {
		t.driftRun = driftRun
	}
	t.mu.Unlock()
}

// Get returns the current thresholds.
func (t *Tunables) Get() (highMSE float64, driftRun int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.highMSE, t.driftRun
}

type verdict uint8

const (
	verdictNone verdict = iota

	// verdictHighStart: high disagreement within the start window,
	// advisory only.
	verdictHighStart

	// verdictDrift: sustained disagreement, exclude the input.
	verdictDrift
)

// detector applies the start-of-run and steady-state desync checks.
// It keeps one run-length counter per input; a single spike resets to zero
// tolerance of legitimate dropout noise.
type detector struct {
	tun         *Tunables
	startWindow int
	warnedStart []bool
	run         []int
}

func newDetector(tun *Tunables, startWindow, inputs int) *detector {
	return &detector{
		tun:         tun,
		startWindow: startWindow,
		warnedStart: make([]bool, inputs),
		run:         make([]int, inputs),
	}
}

// observe scores one input's MSE for one output step (0-based) and returns
// the action to take. Inputs are observed in ascending id order, which is
// the documented tie-break.
func (d *detector) observe(step, input int, mse float64) verdict {
	high, runLen := d.tun.Get()
	if mse <= high {
		d.run[input] = 0
		return verdictNone
	}
	if step < d.startWindow {
		if !d.warnedStart[input] {
			d.warnedStart[input] = true
			return verdictHighStart
		}
		return verdictNone
	}
	d.run[input]++
	if d.run[input] >= runLen {
		return verdictDrift
	}
	return verdictNone
}
