package embedding

import "errors"

var (
	// ErrProviderUnavailable is returned while the remote provider's circuit breaker is open.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrEmptyResponse is returned when a provider answers without embeddings.
	ErrEmptyResponse = errors.New("embedding provider returned no embeddings")
	// ErrUnknownType is returned by New for an unsupported embedder type.
	ErrUnknownType = errors.New("unknown embedder type")
)
