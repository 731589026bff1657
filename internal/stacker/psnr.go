package stacker

import "math"

// System holds the sample-region constants for one broadcast system.
// The useful region excludes the head-switch edges of a field so that error
// sums are not skewed by garbage samples; the black region is a quiet part
// of the signal used for noise measurement.
type System struct {
	Name string

	// BlackStart and BlackEnd bound the black reference region.
	BlackStart int
	BlackEnd   int

	// UsefulStart and UsefulEnd bound the region scored by the desync
	// heuristic and the exported metrics.
	UsefulStart int
	UsefulEnd   int

	// PSNRScale is the black-to-white amplitude difference.
	PSNRScale float64
}

var (
	// SystemPAL covers PAL captures.
	SystemPAL = System{
		Name:        "PAL",
		BlackStart:  24048,
		BlackEnd:    24928,
		UsefulStart: 61312,  // line 55
		UsefulEnd:   258752, // line 229
		PSNRScale:   0.7 * float64(0xD300-0x0100),
	}

	// SystemNTSC covers NTSC and PAL-M captures.
	SystemNTSC = System{
		Name:        "NTSC",
		BlackStart:  144,
		BlackEnd:    432,
		UsefulStart: 27328,  // line 31
		UsefulEnd:   209280, // line 231
		PSNRScale:   0.75 * float64(0xC800-0x0400),
	}
)

// SystemFor maps a sidecar system tag to its constants.
// PAL-M captures use NTSC geometry.
func SystemFor(tag string) System {
	if tag == "PAL" {
		return SystemPAL
	}
	return SystemNTSC
}

// Clamp bounds the regions to a field of n samples, so short test captures
// fall back to whole-field scoring.
func (s System) Clamp(n int) System {
	if s.UsefulEnd > n {
		s.UsefulStart, s.UsefulEnd = 0, n
	}
	if s.BlackEnd > n {
		s.BlackStart, s.BlackEnd = 0, n
	}
	return s
}

// ErrorToPSNR converts an RMS error amplitude to a PSNR in dB.
func (s System) ErrorToPSNR(err float64) float64 {
	return 20 * math.Log10(s.PSNRScale/err)
}

// BlackPSNR measures the noise over the field's black reference region.
func BlackPSNR(field []uint16, s System) float64 {
	region := field[s.BlackStart:s.BlackEnd]
	if len(region) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range region {
		sum += uint64(v)
	}
	mean := float64(sum) / float64(len(region))
	var variance float64
	for _, v := range region {
		dev := float64(v) - mean
		variance += dev * dev
	}
	stddev := math.Sqrt(variance / float64(len(region)))
	if stddev == 0 {
		// A perfectly flat region would give an infinite PSNR, which the
		// JSON sidecar cannot carry.
		return 0
	}
	return s.ErrorToPSNR(stddev)
}
