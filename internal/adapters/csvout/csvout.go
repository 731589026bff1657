// Package csvout writes the diagnostic CSV exports: per-step quality
// metrics and the output-to-source field map. Both are append-only and
// written in output order; nothing reads them back.
package csvout

import (
	"bufio"
	"os"
	"strconv"
)

// MetricsWriter appends rows of the form "step,input,mse".
type MetricsWriter struct {
	file *os.File
	buf  *bufio.Writer
}

// CreateMetrics creates the metrics CSV at path. The file must not exist.
func CreateMetrics(path string) (*MetricsWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &MetricsWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// WriteSample appends one (step, input, MSE) record.
func (w *MetricsWriter) WriteSample(step, input int, mse float64) error {
	row := strconv.Itoa(step) + "," + strconv.Itoa(input) + "," +
		strconv.FormatFloat(mse, 'g', -1, 64) + "\n"
	_, err := w.buf.WriteString(row)
	return err
}

// Close flushes and closes the file.
func (w *MetricsWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// FieldmapWriter appends rows mapping each output field to the 1-based
// physical field indices it was built from, one column per input.
type FieldmapWriter struct {
	file *os.File
	buf  *bufio.Writer
}

// CreateFieldmap creates the fieldmap CSV at path. The file must not exist.
func CreateFieldmap(path string) (*FieldmapWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &FieldmapWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// WriteRow appends one row. A zero source entry marks a non-contributing
// input and is written as an empty column.
func (w *FieldmapWriter) WriteRow(step int, sources []int) error {
	row := strconv.Itoa(step)
	for _, s := range sources {
		row += ","
		if s > 0 {
			row += strconv.Itoa(s)
		}
	}
	if _, err := w.buf.WriteString(row + "\n"); err != nil {
		return err
	}
	return nil
}

// Close flushes and closes the file.
func (w *FieldmapWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
