// Package domain contains the core entities and value objects for fieldstack.
//
// This package represents the innermost layer of the architecture. It has no
// dependencies on infrastructure concerns (file formats, CSV, logging) and
// contains only the vocabulary of the stacking pipeline.
//
// # Entities
//
//   - [Field]: one decoded video field (samples, parity, position)
//   - [OutputField]: one stacked field ready for the output sink
//   - [Dropouts]: decoder-flagged dropout runs within a field
//
// Domain entities are immutable after construction where practical and are
// testable without mocks or external systems.
package domain
