package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDuplicateID is returned when an ID is added twice.
	ErrDuplicateID = errors.New("duplicate vector id")
	// ErrCorruptIndex is returned when a persisted index blob cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index file")
)
