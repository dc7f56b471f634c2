package extract

import "errors"

// ErrExtractFailed is returned when a document's text cannot be extracted.
var ErrExtractFailed = errors.New("text extraction failed")
