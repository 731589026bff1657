package tbc

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

// ioBufferFields sizes the per-stream read buffer, in fields.
const ioBufferFields = 64

// Reader implements ports.FieldSource for one TBC input. A prefetch
// goroutine keeps a bounded number of decoded fields ready so that file
// reads overlap with stacking work.
type Reader struct {
	meta       *Metadata
	lumaFile   *os.File
	chromaFile *os.File
	luma       *bufio.Reader
	chroma     *bufio.Reader

	fieldLen int
	pos      int
	invert   bool

	results chan readResult
	quit    chan struct{}
	once    sync.Once
}

type readResult struct {
	field domain.Field
	err   error
}

// Open prepares a reader for one input. Base is the path without extension;
// startField is the 1-based physical field the input starts contributing
// from. An even startField swaps the parity tags of every served field.
func Open(base string, startField, readAhead int, withChroma bool) (*Reader, error) {
	meta, err := LoadMetadata(base + ".tbc.json")
	if err != nil {
		return nil, err
	}
	if startField < 1 || startField > len(meta.Fields) {
		return nil, fmt.Errorf("%w: %d (input has %d fields)", domain.ErrBadStartField, startField, len(meta.Fields))
	}

	fieldLen := meta.FieldSamples()
	fieldBytes := int64(fieldLen) * 2
	skip := int64(startField-1) * fieldBytes

	r := &Reader{
		meta:     meta,
		fieldLen: fieldLen,
		pos:      startField - 1,
		invert:   startField%2 == 0,
		results:  make(chan readResult, max(readAhead, 1)),
		quit:     make(chan struct{}),
	}

	r.lumaFile, err = os.Open(base + ".tbc")
	if err != nil {
		return nil, err
	}
	if _, err := r.lumaFile.Seek(skip, io.SeekStart); err != nil {
		r.lumaFile.Close()
		return nil, err
	}
	r.luma = bufio.NewReaderSize(r.lumaFile, fieldLen*ioBufferFields)

	if withChroma {
		r.chromaFile, err = os.Open(base + "_chroma.tbc")
		if err != nil {
			r.lumaFile.Close()
			return nil, err
		}
		if _, err := r.chromaFile.Seek(skip, io.SeekStart); err != nil {
			r.lumaFile.Close()
			r.chromaFile.Close()
			return nil, err
		}
		r.chroma = bufio.NewReaderSize(r.chromaFile, fieldLen*ioBufferFields)
	}

	go r.prefetch()
	return r, nil
}

// Meta returns the parsed sidecar for geometry and passthrough checks.
func (r *Reader) Meta() *Metadata { return r.meta }

// HasChroma reports whether a chroma stream exists alongside base.
func HasChroma(base string) bool {
	_, err := os.Stat(base + "_chroma.tbc")
	return err == nil
}

// Next returns the next field, or io.EOF once the input is exhausted.
func (r *Reader) Next(ctx context.Context) (domain.Field, error) {
	select {
	case <-ctx.Done():
		return domain.Field{}, ctx.Err()
	case res, ok := <-r.results:
		if !ok {
			return domain.Field{}, io.EOF
		}
		return res.field, res.err
	}
}

// Close stops the prefetcher and releases the underlying files.
func (r *Reader) Close() error {
	r.once.Do(func() { close(r.quit) })
	err := r.lumaFile.Close()
	if r.chromaFile != nil {
		if cerr := r.chromaFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Reader) prefetch() {
	defer close(r.results)
	for {
		f, err := r.readField()
		select {
		case r.results <- readResult{field: f, err: err}:
		case <-r.quit:
			return
		}
		if err != nil {
			return
		}
	}
}

func (r *Reader) readField() (domain.Field, error) {
	if r.pos >= len(r.meta.Fields) {
		return domain.Field{}, io.EOF
	}
	meta := r.meta.Fields[r.pos]

	luma, err := readSamples(r.luma, r.fieldLen)
	if err != nil {
		return domain.Field{}, fmt.Errorf("read field %d: %w", r.pos+1, err)
	}
	var chroma []uint16
	if r.chroma != nil {
		chroma, err = readSamples(r.chroma, r.fieldLen)
		if err != nil {
			return domain.Field{}, fmt.Errorf("read chroma field %d: %w", r.pos+1, err)
		}
	}

	parity := domain.ParitySecond
	if meta.IsFirstField {
		parity = domain.ParityFirst
	}
	if r.invert {
		parity = parity.Opposite()
	}

	f := domain.Field{
		Luma:     luma,
		Chroma:   chroma,
		Parity:   parity,
		Index:    r.pos,
		SeqNo:    meta.SeqNo,
		Dropouts: toDomainDropouts(meta.DropOuts),
	}
	r.pos++
	return f, nil
}

func readSamples(src io.Reader, n int) ([]uint16, error) {
	buf := make([]byte, n*2)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return out, nil
}

func toDomainDropouts(d *DropOuts) *domain.Dropouts {
	if d == nil || len(d.FieldLine) == 0 {
		return nil
	}
	return &domain.Dropouts{
		Line:   append([]int(nil), d.FieldLine...),
		StartX: append([]int(nil), d.StartX...),
		EndX:   append([]int(nil), d.EndX...),
	}
}
