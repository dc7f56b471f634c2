package embedding

import (
	"container/list"
	"context"
	"sync"
)

// lru is a fixed-capacity least-recently-used map. The front of order holds
// the most recently used key. Not safe for concurrent use.
type lru[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
}

type lruItem[K comparable, V any] struct {
	key K
	val V
}

func newLRU[K comparable, V any](capacity int) *lru[K, V] {
	capacity = max(capacity, 1)
	return &lru[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

func (l *lru[K, V]) get(key K) (V, bool) {
	el, ok := l.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.order.MoveToFront(el)
	return el.Value.(*lruItem[K, V]).val, true
}

// put stores val under key and reports whether an older key was evicted.
func (l *lru[K, V]) put(key K, val V) (evicted bool) {
	if el, ok := l.items[key]; ok {
		el.Value.(*lruItem[K, V]).val = val
		l.order.MoveToFront(el)
		return false
	}
	l.items[key] = l.order.PushFront(&lruItem[K, V]{key: key, val: val})
	if l.order.Len() <= l.capacity {
		return false
	}
	last := l.order.Back()
	l.order.Remove(last)
	delete(l.items, last.Value.(*lruItem[K, V]).key)
	return true
}

// CacheStats counts lookups against an EmbeddingCache.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// EmbeddingCache is a concurrency-safe LRU of embeddings keyed by text.
type EmbeddingCache struct {
	mu    sync.Mutex
	items *lru[string, []float32]
	stats CacheStats
}

// NewEmbeddingCache creates a cache holding up to capacity embeddings.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{items: newLRU[string, []float32](capacity)}
}

// Get returns the cached embedding for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items.get(text)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return v, ok
}

// Set stores the embedding for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, emb []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items.put(text, emb) {
		c.stats.Evictions++
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.order.Len()
}

// Stats returns the lookup counters so far.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// CachedEmbedder serves repeated texts (query terms, preview sentences) from an
// EmbeddingCache and delegates misses to the wrapped embedder.
type CachedEmbedder struct {
	Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps e with an LRU cache of the given capacity.
func NewCachedEmbedder(e Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: e, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached embedding for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		return cached, nil
	}
	emb, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, emb)
	return emb, nil
}

// EmbedBatch embeds only the uncached texts through the wrapped embedder.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := c.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	embs, err := c.Embedder.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(missing) {
		return nil, ErrEmptyResponse
	}
	for j, emb := range embs {
		out[missingIdx[j]] = emb
		c.cache.Set(missing[j], emb)
	}
	return out, nil
}

// Stats reports cache effectiveness.
func (c *CachedEmbedder) Stats() CacheStats {
	return c.cache.Stats()
}

// Unwrap returns the wrapped embedder.
func (c *CachedEmbedder) Unwrap() Embedder {
	return c.Embedder
}
