package search

import "errors"

var (
	// ErrSearchFailed is returned when the query cannot be embedded or the index cannot be searched.
	ErrSearchFailed = errors.New("search failed")
	// ErrEmptyQuery is returned for queries with no terms.
	ErrEmptyQuery = errors.New("query cannot be empty")
)
