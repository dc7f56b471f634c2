package embedding

import (
	"errors"
	"testing"

	"github.com/hyperjump/docfind/internal/config"
)

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Type: config.EmbedderMock, Dimensions: 16, CacheSize: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Dimensions() != 16 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}

	e, err = New(config.EmbeddingConfig{Type: config.EmbedderONNX, ModelPath: "/nonexistent/model.onnx", Dimensions: 16}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*MockEmbedder); !ok {
		t.Errorf("missing model should fall back to mock, got %T", e)
	}

	if _, err := New(config.EmbeddingConfig{Type: "word2vec", Dimensions: 16}, nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}
