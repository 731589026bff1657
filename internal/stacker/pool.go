package stacker

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// chunkSamples is the unit of work handed to a pool worker.
const chunkSamples = 16384

// Pool spreads per-position median and error computation across workers.
// Stack blocks until the whole field is done, so no state leaks between
// steps and results are identical regardless of worker count.
type Pool struct {
	workers int
}

// NewPool creates a pool. workers <= 0 selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Stack computes the per-position median of group into dst and returns the
// per-input sums of squared error against the median, accumulated over
// [usefulLo, usefulHi) only. dst and every member of group must have equal
// length.
func (p *Pool) Stack(dst []uint16, group [][]uint16, usefulLo, usefulHi int) []uint64 {
	n := len(dst)
	numChunks := (n + chunkSamples - 1) / chunkSamples

	workers := p.workers
	if workers > numChunks {
		workers = numChunks
	}
	if workers <= 1 {
		sse := make([]uint64, len(group))
		stackRange(dst, group, sse, 0, n, usefulLo, usefulHi)
		return sse
	}

	partials := make([][]uint64, workers)
	var next int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		partials[w] = make([]uint64, len(group))
		wg.Add(1)
		go func(sse []uint64) {
			defer wg.Done()
			for {
				c := int(atomic.AddInt64(&next, 1)) - 1
				if c >= numChunks {
					return
				}
				lo := c * chunkSamples
				hi := lo + chunkSamples
				if hi > n {
					hi = n
				}
				stackRange(dst, group, sse, lo, hi, usefulLo, usefulHi)
			}
		}(partials[w])
	}
	wg.Wait()

	sse := make([]uint64, len(group))
	for _, part := range partials {
		for k, v := range part {
			sse[k] += v
		}
	}
	return sse
}

// stackRange processes [lo, hi), accumulating error sums only where the
// range overlaps the useful region.
func stackRange(dst []uint16, group [][]uint16, sse []uint64, lo, hi, usefulLo, usefulHi int) {
	uLo := usefulLo
	if uLo < lo {
		uLo = lo
	}
	uHi := usefulHi
	if uHi > hi {
		uHi = hi
	}
	if uLo >= uHi {
		medianRange(dst, group, nil, lo, hi)
		return
	}
	medianRange(dst, group, nil, lo, uLo)
	medianRange(dst, group, sse, uLo, uHi)
	medianRange(dst, group, nil, uHi, hi)
}
