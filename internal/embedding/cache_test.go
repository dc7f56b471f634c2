package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	c.Set("b", []float32{4, 5})
	if v, ok := c.Get("a"); !ok || len(v) != 3 || v[0] != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	c.Set("c", []float32{6}) // a was used more recently, so b goes
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to remain", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d", c.Len())
	}
	want := CacheStats{Hits: 3, Misses: 2, Evictions: 1}
	if got := c.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestEmbeddingCache_OverwriteKeepsSize(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("a", []float32{1})
	c.Set("a", []float32{2})
	if v, _ := c.Get("a"); len(v) != 1 || v[0] != 2 {
		t.Errorf("Get(a) = %v", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d", c.Len())
	}
}

type countingEmbedder struct {
	*MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, c, texts)
}

func TestCachedEmbedder_ServesRepeats(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, 4)
	ctx := context.Background()

	first, err := e.Embed(ctx, "annual report")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(ctx, "annual report")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", inner.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached embedding differs at %d", i)
		}
	}

	out, err := e.EmbedBatch(ctx, []string{"annual report", "quarterly revenue"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || inner.calls != 2 {
		t.Errorf("batch: len=%d calls=%d", len(out), inner.calls)
	}
	if st := e.Stats(); st.Hits != 2 || st.Misses != 2 {
		t.Errorf("stats = %+v", st)
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}
