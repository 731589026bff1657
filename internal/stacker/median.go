package stacker

// maxInputs matches the session-wide input limit.
const maxInputs = 15

// medianRange writes the per-position median of srcs into dst for positions
// [lo, hi). When sse is non-nil it also accumulates, per input, the squared
// difference between that input's sample and the median.
//
// The function is pure over its slice arguments: positions are independent,
// so disjoint ranges can be computed concurrently.
func medianRange(dst []uint16, srcs [][]uint16, sse []uint64, lo, hi int) {
	var scratch [maxInputs]uint16
	m := len(srcs)
	half := m / 2
	for i := lo; i < hi; i++ {
		for k := 0; k < m; k++ {
			scratch[k] = srcs[k][i]
		}
		v := scratch[:m]
		insertionSort(v)

		var med uint16
		if m%2 == 1 {
			med = v[half]
		} else {
			// Mean of the two central values, not truncation.
			med = uint16((uint32(v[half-1]) + uint32(v[half])) / 2)
		}
		dst[i] = med

		if sse != nil {
			for k := 0; k < m; k++ {
				d := int64(srcs[k][i]) - int64(med)
				sse[k] += uint64(d * d)
			}
		}
	}
}

func insertionSort(v []uint16) {
	for i := 1; i < len(v); i++ {
		x := v[i]
		j := i - 1
		for j >= 0 && v[j] > x {
			v[j+1] = v[j]
			j--
		}
		v[j+1] = x
	}
}
