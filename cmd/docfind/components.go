package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/docfind/internal/bundle"
	"github.com/hyperjump/docfind/internal/config"
	"github.com/hyperjump/docfind/internal/embedding"
	"github.com/hyperjump/docfind/internal/extract"
	"github.com/hyperjump/docfind/internal/indexer"
	"github.com/hyperjump/docfind/internal/search"
	"github.com/hyperjump/docfind/internal/storage"
	"github.com/hyperjump/docfind/internal/textcache"
	"github.com/hyperjump/docfind/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Store     *storage.SQLiteMappingStore
	Index     *vector.FlatIndex
	Bundle    *bundle.Bundle
	Embedder  embedding.Embedder
	TextCache *textcache.Cache
	Texts     *textcache.Loader
	Engine    *search.Engine
	Indexer   *indexer.Indexer
}

func (c *Components) Close() {
	if c.Indexer != nil {
		c.Indexer.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.TextCache != nil {
		_ = c.TextCache.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Store, err = storage.NewSQLiteMappingStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mapping store: %w", err)
	}
	c.Index, err = vector.NewFlatIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.Bundle = bundle.New(c.Index, c.Store, cfg.Storage.PDFDir, cfg.Storage.IndexPath, bundle.WithLogger(logger))
	if err = c.Bundle.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load index bundle: %w", err)
	}
	logger.Info("index bundle loaded",
		zap.Int("documents", c.Bundle.Count()),
		zap.Int("missing_vectors", c.Bundle.MissingVectors()),
		zap.Int("dimensions", c.Bundle.Dimensions()),
		zap.String("index_path", cfg.Storage.IndexPath),
	)

	c.Embedder, err = embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if d := c.Embedder.Dimensions(); d != cfg.Embedding.Dimensions {
		return nil, fmt.Errorf("%w: embedder produces %d dimensions, index expects %d",
			vector.ErrDimensionMismatch, d, cfg.Embedding.Dimensions)
	}

	c.TextCache, err = textcache.Open(cfg.Storage.TextCachePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text cache: %w", err)
	}
	c.Texts = textcache.NewLoader(cfg.Storage.PDFDir, extract.NewExtractor(), c.TextCache, logger)

	c.Engine = search.NewEngine(c.Bundle, c.Embedder, c.Texts, cfg.Search, search.WithLogger(logger))
	c.Indexer, err = indexer.NewIndexer(c.Bundle, c.Embedder, c.Texts, cfg.Indexer.Workers, indexer.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}
	return c, nil
}
