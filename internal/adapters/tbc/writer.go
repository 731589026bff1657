package tbc

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tbc-tools/fieldstack/internal/domain"
)

// Writer implements ports.FieldSink for the stacked output. Sample data is
// written through a bounded write-behind goroutine; the metadata sidecar is
// accumulated in memory and finalized on Close.
//
// Per-field metadata is cloned from the primary input's sidecar entry named
// by OutputField.SourceIndex, so unknown keys survive the trip. Field order
// tags are normalized to strict alternation when the sidecar is finalized.
type Writer struct {
	primary    *Metadata
	jsonPath   string
	lumaFile   *os.File
	chromaFile *os.File
	luma       *bufio.Writer
	chroma     *bufio.Writer

	fields []FieldMeta

	in   chan domain.OutputField
	done chan struct{}

	mu     sync.Mutex
	ioErr  error
	closed bool
}

// Create opens the output files for writing. All output paths must not
// already exist; a previous run's partial output is never overwritten
// silently.
func Create(base string, primary *Metadata, withChroma bool, writeBehind int) (*Writer, error) {
	w := &Writer{
		primary:  primary,
		jsonPath: base + ".tbc.json",
		in:       make(chan domain.OutputField, max(writeBehind, 1)),
		done:     make(chan struct{}),
	}

	var err error
	w.lumaFile, err = createNew(base + ".tbc")
	if err != nil {
		return nil, err
	}
	bufSize := primary.FieldSamples() * ioBufferFields
	w.luma = bufio.NewWriterSize(w.lumaFile, bufSize)

	if withChroma {
		w.chromaFile, err = createNew(base + "_chroma.tbc")
		if err != nil {
			w.lumaFile.Close()
			return nil, err
		}
		w.chroma = bufio.NewWriterSize(w.chromaFile, bufSize)
	}

	go w.drain()
	return w, nil
}

func createNew(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// Write queues one output field. Returns the first I/O error encountered by
// the write-behind goroutine, if any.
func (w *Writer) Write(ctx context.Context, f domain.OutputField) error {
	if err := w.err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case w.in <- f:
		return nil
	case <-w.done:
		return w.err()
	}
}

// Close flushes all queued fields and writes the metadata sidecar.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return w.ioErr
	}
	w.closed = true
	w.mu.Unlock()

	close(w.in)
	<-w.done

	if err := w.luma.Flush(); err != nil {
		w.setErr(err)
	}
	if cerr := w.lumaFile.Close(); cerr != nil {
		w.setErr(cerr)
	}
	if w.chroma != nil {
		if err := w.chroma.Flush(); err != nil {
			w.setErr(err)
		}
		if cerr := w.chromaFile.Close(); cerr != nil {
			w.setErr(cerr)
		}
	}
	if err := w.err(); err != nil {
		return err
	}
	return w.writeSidecar()
}

// Count returns the number of fields accepted so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.fields)
}

func (w *Writer) drain() {
	defer close(w.done)
	for f := range w.in {
		if w.err() != nil {
			continue
		}
		if err := w.writeField(f); err != nil {
			w.setErr(err)
		}
	}
}

func (w *Writer) writeField(f domain.OutputField) error {
	if err := writeSamples(w.luma, f.Luma); err != nil {
		return fmt.Errorf("write field: %w", err)
	}
	if w.chroma != nil {
		if err := writeSamples(w.chroma, f.Chroma); err != nil {
			return fmt.Errorf("write chroma field: %w", err)
		}
	}

	meta := w.primary.Fields[f.SourceIndex].Clone()
	meta.VitsMetrics = &VitsMetrics{BPSNR: f.BlackPSNR}
	meta.DropOuts = fromDomainDropouts(f.Dropouts)

	w.mu.Lock()
	meta.SeqNo = len(w.fields) + 1
	w.fields = append(w.fields, meta)
	w.mu.Unlock()
	return nil
}

func (w *Writer) writeSidecar() error {
	out := *w.primary
	out.Fields = w.fields
	// Normalize cadence: written dupes duplicate the previous parity, so the
	// tags are reassigned by position.
	for i := range out.Fields {
		out.Fields[i].IsFirstField = i%2 == 0
	}
	out.VideoParameters.NumberOfSequentialFields = len(out.Fields)

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	file, err := createNew(w.jsonPath)
	if err != nil {
		return err
	}
	if _, err := file.Write(b); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (w *Writer) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ioErr
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	if w.ioErr == nil {
		w.ioErr = err
	}
	w.mu.Unlock()
}

func writeSamples(dst *bufio.Writer, samples []uint16) error {
	var scratch [2]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(scratch[:], s)
		if _, err := dst.Write(scratch[:]); err != nil {
			return err
		}
	}
	return nil
}

func fromDomainDropouts(d *domain.Dropouts) *DropOuts {
	if d.Len() == 0 {
		return nil
	}
	return &DropOuts{
		FieldLine: append([]int(nil), d.Line...),
		StartX:    append([]int(nil), d.StartX...),
		EndX:      append([]int(nil), d.EndX...),
	}
}
