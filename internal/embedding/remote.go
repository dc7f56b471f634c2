package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/docfind/internal/vector"
	"github.com/hyperjump/docfind/pkg/utils"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RemoteConfig configures an OpenAI-compatible embeddings endpoint.
type RemoteConfig struct {
	BaseURL           string
	Model             string
	APIKey            string
	Dimensions        int
	RequestsPerMinute int
	MaxRetries        int
	RetryDelay        time.Duration
}

// RemoteEmbedder calls an OpenAI-compatible embeddings API through langchaingo.
// Requests are rate limited, retried with backoff, and guarded by a circuit
// breaker; while the breaker is open calls fail fast with ErrProviderUnavailable.
type RemoteEmbedder struct {
	client     embeddings.Embedder
	dimensions int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRemoteEmbedder builds a langchaingo OpenAI client for cfg and wraps it.
func NewRemoteEmbedder(cfg RemoteConfig, logger *zap.Logger) (*RemoteEmbedder, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible servers accept any token.
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return NewRemoteEmbedderWithClient(client, cfg, logger), nil
}

// NewRemoteEmbedderWithClient wraps an existing langchaingo embedder.
func NewRemoteEmbedderWithClient(client embeddings.Embedder, cfg RemoteConfig, logger *zap.Logger) *RemoteEmbedder {
	logger = utils.OrNop(logger)
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 600
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &RemoteEmbedder{
		client:     client,
		dimensions: cfg.Dimensions,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		breaker:    breaker,
		maxRetries: retries,
		retryDelay: delay,
		logger:     logger,
	}
}

// Embed returns the normalized embedding for text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	var out [][]float32
	err := utils.RetryWithBackoff(ctx, func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		res, err := e.breaker.Execute(func() (interface{}, error) {
			return e.client.EmbedDocuments(ctx, texts)
		})
		if err != nil {
			return err
		}
		out = res.([][]float32)
		return nil
	}, e.maxRetries, e.retryDelay, retryable)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		e.logger.Error("remote embedding failed", zap.Int("count", len(texts)), zap.Error(err))
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrEmptyResponse, len(out), len(texts))
	}
	for _, v := range out {
		if e.dimensions > 0 && len(v) != e.dimensions {
			return nil, fmt.Errorf("%w: remote embedding has %d, expected %d", vector.ErrDimensionMismatch, len(v), e.dimensions)
		}
		utils.NormalizeL2(v)
	}
	return out, nil
}

func retryable(err error) bool {
	return !errors.Is(err, gobreaker.ErrOpenState) &&
		!errors.Is(err, gobreaker.ErrTooManyRequests) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Dimensions returns the configured embedding dimension.
func (e *RemoteEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client needs no teardown.
func (e *RemoteEmbedder) Close() error {
	return nil
}
