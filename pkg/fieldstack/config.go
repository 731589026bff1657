package fieldstack

import (
	"fmt"

	"github.com/tbc-tools/fieldstack/internal/domain"
	"github.com/tbc-tools/fieldstack/internal/stacker"
)

// InputConfig identifies one capture stream.
type InputConfig struct {
	// Path is the capture basename: <Path>.tbc plus <Path>.tbc.json, and
	// optionally <Path>_chroma.tbc.
	Path string

	// StartField is the 1-based physical field the input starts
	// contributing from. An even value swaps the input's field order.
	StartField int
}

// Config configures a stacking run.
type Config struct {
	// Inputs lists the capture streams, primary first. 3 to 15 entries.
	Inputs []InputConfig

	// Output is the basename the stacked capture is written under.
	// All output files must not already exist.
	Output string

	// MaxFields limits how many fields are emitted (0 = all).
	MaxFields int

	// DupesToDrops converts duplicated fields to two-field drops instead of
	// writing them through.
	DupesToDrops bool

	// DropoutThreshold is how many inputs must agree on a dropout before it
	// is recorded in the output (0 = ceil(contributors/2)).
	DropoutThreshold int

	// HighMSEThreshold flags an input whose per-field MSE against the
	// stacked median exceeds it (0 = default).
	HighMSEThreshold float64

	// DriftRunLength is the number of consecutive over-threshold fields
	// before an input is excluded as drifted (0 = default).
	DriftRunLength int

	// StartCheckWindow is how many initial fields the wrong-starting-offset
	// check covers (0 = default).
	StartCheckWindow int

	// MinStackSize fails the run when fewer inputs still contribute
	// (0 = 3).
	MinStackSize int

	// ReadAhead is the per-input field prefetch depth (0 = 4).
	ReadAhead int

	// WriteBehind is the output field queue depth (0 = 4).
	WriteBehind int

	// Workers sizes the stacking worker pool (0 = NumCPU).
	Workers int

	// MetricsCSV, when set, receives one (field, input, MSE) row per
	// contributing input per stacked field.
	MetricsCSV string

	// FieldmapCSV, when set, receives the output-to-source field mapping.
	FieldmapCSV string

	// ConfigPath, when set, is watched during the run and threshold edits
	// are applied live.
	ConfigPath string
}

// SetDefaults fills zero values with the documented defaults.
func (c *Config) SetDefaults() {
	if c.HighMSEThreshold <= 0 {
		c.HighMSEThreshold = stacker.DefaultHighMSE
	}
	if c.DriftRunLength <= 0 {
		c.DriftRunLength = stacker.DefaultDriftRun
	}
	if c.StartCheckWindow <= 0 {
		c.StartCheckWindow = stacker.DefaultStartWindow
	}
	if c.MinStackSize <= 0 {
		c.MinStackSize = 3
	}
	if c.ReadAhead <= 0 {
		c.ReadAhead = 4
	}
	if c.WriteBehind <= 0 {
		c.WriteBehind = 4
	}
}

// Validate checks the configuration before anything is opened or written.
func (c *Config) Validate() error {
	if len(c.Inputs) < 3 {
		return domain.ErrTooFewInputs
	}
	if len(c.Inputs) > 15 {
		return domain.ErrTooManyInputs
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output basename is required", domain.ErrInvalidConfig)
	}
	for i, in := range c.Inputs {
		if in.Path == "" {
			return fmt.Errorf("%w: input %d has no path", domain.ErrInvalidConfig, i+1)
		}
		if in.StartField < 1 {
			return fmt.Errorf("%w: input %d start field %d", domain.ErrBadStartField, i+1, in.StartField)
		}
	}
	if c.Inputs[0].StartField%2 == 0 {
		return domain.ErrPrimaryFieldOrder
	}
	if c.MaxFields < 0 {
		return fmt.Errorf("%w: max fields must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
