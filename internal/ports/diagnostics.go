package ports

// MetricsWriter records one quality metric sample per contributing input for
// every output step, in output order.
type MetricsWriter interface {
	// WriteSample appends one (step, input, MSE) record.
	// Step and input are 1-based to match the CLI's numbering.
	WriteSample(step, input int, mse float64) error

	// Close flushes and releases the underlying writer.
	Close() error
}

// FieldmapWriter records, for every emitted output field, the 1-based
// physical field index each input contributed.
type FieldmapWriter interface {
	// WriteRow appends one row: the output step and the per-input source
	// field indices. A zero entry marks an input that did not contribute.
	WriteRow(step int, sources []int) error

	// Close flushes and releases the underlying writer.
	Close() error
}
