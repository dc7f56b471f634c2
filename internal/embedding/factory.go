package embedding

import (
	"fmt"

	"github.com/hyperjump/docfind/internal/config"
	"github.com/hyperjump/docfind/pkg/utils"
	"go.uber.org/zap"
)

// New builds the embedder selected by cfg.Type and wraps it in an LRU cache.
// An ONNX model that cannot be loaded falls back to the mock embedder with a warning.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)
	var base Embedder
	switch cfg.Type {
	case config.EmbedderMock:
		base = NewMockEmbedder(cfg.Dimensions)
	case config.EmbedderONNX:
		onnx, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder",
				zap.String("model_path", cfg.ModelPath),
				zap.Error(err),
			)
			base = NewMockEmbedder(cfg.Dimensions)
		} else {
			base = onnx
		}
	case config.EmbedderOpenAI:
		remote, err := NewRemoteEmbedder(RemoteConfig{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			APIKey:            cfg.APIKey,
			Dimensions:        cfg.Dimensions,
			RequestsPerMinute: cfg.RequestsPerMinute,
			MaxRetries:        cfg.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		base = remote
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
	if cfg.CacheSize <= 0 {
		return base, nil
	}
	return NewCachedEmbedder(base, cfg.CacheSize), nil
}
