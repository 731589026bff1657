package domain

import "errors"

// Domain errors represent error conditions in the fieldstack domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrTooFewInputs is returned when fewer than three inputs are configured.
	ErrTooFewInputs = errors.New("fieldstack: at least 3 inputs are required")

	// ErrTooManyInputs is returned when more than fifteen inputs are configured.
	ErrTooManyInputs = errors.New("fieldstack: at most 15 inputs are supported")

	// ErrGeometryMismatch is returned when input field geometry differs.
	ErrGeometryMismatch = errors.New("fieldstack: field geometry differs between inputs")

	// ErrBadStartField is returned for a malformed start field index.
	ErrBadStartField = errors.New("fieldstack: start field index out of range")

	// ErrPrimaryFieldOrder is returned when the primary input is configured
	// with a swapped field order.
	ErrPrimaryFieldOrder = errors.New("fieldstack: the first input must have correct field order")

	// ErrStackTooSmall is returned when the contributing group shrinks below
	// the configured minimum.
	ErrStackTooSmall = errors.New("fieldstack: too few contributing inputs remain")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("fieldstack: invalid configuration")
)
