package bundle

import "errors"

var (
	// ErrConsistencyViolation is returned when the index and the mapping disagree on the set of IDs.
	ErrConsistencyViolation = errors.New("index and mapping are inconsistent")
	// ErrEmptyText is returned when a document has no extractable text.
	ErrEmptyText = errors.New("document text is empty")
	// ErrFileNotFound is returned when a document's file is missing from the PDF directory.
	ErrFileNotFound = errors.New("document file not found")
	// ErrAlreadyIndexed is returned when a document name is already mapped.
	ErrAlreadyIndexed = errors.New("document already indexed")
	// ErrInvalidPath is returned for paths without a usable file name.
	ErrInvalidPath = errors.New("invalid document path")
)
