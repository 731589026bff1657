package domain

// Parity identifies which half of a frame pair a field belongs to.
type Parity uint8

const (
	// ParityFirst is the first (top) field of a frame pair.
	ParityFirst Parity = iota

	// ParitySecond is the second (bottom) field of a frame pair.
	ParitySecond
)

// Opposite returns the other parity.
func (p Parity) Opposite() Parity {
	if p == ParityFirst {
		return ParitySecond
	}
	return ParityFirst
}

func (p Parity) String() string {
	if p == ParityFirst {
		return "first"
	}
	return "second"
}

// Field is one decoded video field read from an input.
// A field is the atomic unit of data moving through the pipeline.
type Field struct {
	// Luma holds the quantized luma samples, fieldWidth*fieldHeight long.
	Luma []uint16

	// Chroma holds the chroma samples, same geometry as Luma.
	// Nil when the input carries no chroma stream.
	Chroma []uint16

	// Parity is the field order tag, after any configured inversion.
	Parity Parity

	// Index is the 0-based physical field index within the input.
	Index int

	// SeqNo is the decoder-assigned sequence number from the sidecar.
	SeqNo int

	// Dropouts lists decoder-flagged dropout runs, or nil.
	Dropouts *Dropouts
}

// OutputField is one combined field ready for the output sink.
type OutputField struct {
	Luma   []uint16
	Chroma []uint16

	// Dropouts is the merged dropout set for the stacked field, or nil.
	Dropouts *Dropouts

	// BlackPSNR is the black-region PSNR computed from the stacked luma.
	BlackPSNR float64

	// SourceIndex is the primary input's physical field index whose sidecar
	// entry supplies the passthrough metadata for this output field.
	SourceIndex int

	// Duplicate marks a field written verbatim from a duped input rather
	// than produced by stacking.
	Duplicate bool
}

// Dropouts describes horizontal dropout runs within a field as parallel
// slices: run i spans samples [StartX[i], EndX[i]) on field line Line[i].
type Dropouts struct {
	Line   []int
	StartX []int
	EndX   []int
}

// Len returns the number of dropout runs.
func (d *Dropouts) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Line)
}
