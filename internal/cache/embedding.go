package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultEmbeddingCacheSize is the default embedding cache capacity.
const DefaultEmbeddingCacheSize = 10_000

// EmbeddingCache is the content-addressed, TTL-free embedding cache: keys
// are derived from (text, model_name), values never expire because the
// same text under the same model always embeds identically. Shared across
// any text being embedded (document, chunk, concept, or WordNet lookup)
// rather than scoped to queries alone.
type EmbeddingCache struct {
	cache *TTLCache[string, []float32]
}

func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = DefaultEmbeddingCacheSize
	}
	return &EmbeddingCache{cache: NewTTLCache[string, []float32](capacity, 0)}
}

func EmbeddingKey(text, modelName string) string {
	h := sha256.Sum256([]byte(text + "\x00" + modelName))
	return hex.EncodeToString(h[:])
}

func (e *EmbeddingCache) Get(text, modelName string) ([]float32, bool) {
	return e.cache.Get(EmbeddingKey(text, modelName))
}

func (e *EmbeddingCache) Put(text, modelName string, vec []float32) {
	e.cache.Put(EmbeddingKey(text, modelName), vec)
}

func (e *EmbeddingCache) Stats() Stats { return e.cache.Stats() }

// WordNetCache reuses the embedding cache's domain (content-addressed, no
// TTL) for synonym/hypernym lookups: the same term under the same relation
// always resolves identically, so lookups are cached the same way.
type WordNetCache struct {
	cache *TTLCache[string, []string]
}

func NewWordNetCache(capacity int) *WordNetCache {
	if capacity <= 0 {
		capacity = DefaultEmbeddingCacheSize
	}
	return &WordNetCache{cache: NewTTLCache[string, []string](capacity, 0)}
}

func (w *WordNetCache) Get(term, relation string) ([]string, bool) {
	return w.cache.Get(term + "\x00" + relation)
}

func (w *WordNetCache) Put(term, relation string, terms []string) {
	w.cache.Put(term+"\x00"+relation, terms)
}

func (w *WordNetCache) Stats() Stats { return w.cache.Stats() }
