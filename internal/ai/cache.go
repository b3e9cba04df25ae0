package ai

import (
	"strings"
	"sync"
)

// stopWords are common question words stripped during key normalization;
// they do not affect which answer a question should map to.
var stopWords = map[string]bool{
	"can": true, "you": true, "please": true, "what": true, "is": true,
	"the": true, "how": true, "do": true, "does": true,
}

// CacheKey derives the lossy fingerprint for a question: lower-cased,
// stop-words removed, tokens longer than 2 characters, first 5 joined with
// underscores and prefixed with the context. Paraphrases sharing the same
// leading content words intentionally collide.
func CacheKey(question, contextLabel string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))

	var keyWords []string
	for _, word := range strings.Fields(normalized) {
		if stopWords[word] || len(word) <= 2 {
			continue
		}
		keyWords = append(keyWords, word)
		if len(keyWords) == 5 {
			break
		}
	}

	return contextLabel + ":" + strings.Join(keyWords, "_")
}

type cacheEntry struct {
	answer string
	model  string
}

// responseCache is a bounded map with FIFO batch eviction: once the entry
// count exceeds capacity, the oldest-inserted batch is dropped. Insertion
// order, not recency of use, decides eviction.
type responseCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	order      []string
	capacity   int
	evictBatch int
}

func newResponseCache(capacity, evictBatch int) *responseCache {
	return &responseCache{
		entries:    make(map[string]cacheEntry),
		capacity:   capacity,
		evictBatch: evictBatch,
	}
}

// Get returns the cached (answer, model) for a key
func (c *responseCache) Get(key string) (string, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", "", false
	}
	return entry.answer, entry.model, true
}

// Put inserts an entry, evicting the oldest batch once the bound is exceeded
func (c *responseCache) Put(key, answer, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{answer: answer, model: model}

	if len(c.entries) > c.capacity {
		evict := c.evictBatch
		if evict > len(c.order) {
			evict = len(c.order)
		}
		for _, old := range c.order[:evict] {
			delete(c.entries, old)
		}
		c.order = c.order[evict:]
	}
}

// Len returns the number of cached entries
func (c *responseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all cached entries
func (c *responseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.order = nil
}
