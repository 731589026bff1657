// Package ports defines the interfaces that connect the stacking core to
// infrastructure adapters.
//
// The core (internal/stacker) depends only on these interfaces. Adapters
// (internal/adapters) implement them for the TBC container format and CSV
// diagnostics. This separation enables testing the alignment and stacking
// logic with in-memory fakes, with no files involved.
//
// # Port Interfaces
//
//   - [FieldSource]: supplies decoded fields for one input, in order
//   - [FieldSink]: receives combined output fields, in order
//   - [MetricsWriter]: records per-step per-input quality metrics
//   - [FieldmapWriter]: records which physical fields built each output field
package ports
