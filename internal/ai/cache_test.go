package ai

import (
	"fmt"
	"testing"
)

func TestCacheKeyNormalization(t *testing.T) {
	cases := []struct {
		question string
		context  string
		expected string
	}{
		{"What is the gradient descent", "data_science", "data_science:gradient_descent"},
		{"Can you please explain overfitting", "coding", "coding:explain_overfitting"},
		{"  HOW DOES a decision tree split nodes  ", "general", "general:decision_tree_split_nodes"},
		// Tokens of length <= 2 are dropped
		{"what is an ML ab model", "general", "general:model"},
		// Only the first 5 meaningful words contribute
		{"explain bias variance tradeoff regularization dropout batchnorm", "general",
			"general:explain_bias_variance_tradeoff_regularization"},
	}

	for _, c := range cases {
		if got := CacheKey(c.question, c.context); got != c.expected {
			t.Errorf("CacheKey(%q, %q) = %q, expected %q", c.question, c.context, got, c.expected)
		}
	}
}

func TestCacheKeyParaphraseCollision(t *testing.T) {
	// The fingerprint is deliberately lossy: questions sharing leading
	// content words collide.
	a := CacheKey("What is gradient descent?", "general")
	b := CacheKey("gradient descent?", "general")
	if a != b {
		t.Errorf("Expected paraphrases to collide: %q vs %q", a, b)
	}
}

func TestCacheGetPut(t *testing.T) {
	c := newResponseCache(50, 10)

	if _, _, ok := c.Get("missing"); ok {
		t.Error("Expected miss on empty cache")
	}

	c.Put("k1", "answer one", "model-a")
	answer, model, ok := c.Get("k1")
	if !ok {
		t.Fatal("Expected hit after Put")
	}
	if answer != "answer one" || model != "model-a" {
		t.Errorf("Got (%q, %q)", answer, model)
	}

	// Overwriting does not duplicate the insertion-order entry
	c.Put("k1", "answer two", "model-b")
	if c.Len() != 1 {
		t.Errorf("Expected single entry after overwrite, got %d", c.Len())
	}
	answer, _, _ = c.Get("k1")
	if answer != "answer two" {
		t.Errorf("Expected overwritten value, got %q", answer)
	}
}

func TestCacheFIFOBatchEviction(t *testing.T) {
	c := newResponseCache(50, 10)

	for i := 0; i < 51; i++ {
		c.Put(fmt.Sprintf("key-%02d", i), "answer", "model")
	}

	if c.Len() > 41 {
		t.Errorf("Expected at most 41 entries after eviction, got %d", c.Len())
	}

	// The 10 earliest-inserted keys are gone
	for i := 0; i < 10; i++ {
		if _, _, ok := c.Get(fmt.Sprintf("key-%02d", i)); ok {
			t.Errorf("Expected key-%02d to be evicted", i)
		}
	}
	// Later keys survive
	if _, _, ok := c.Get("key-10"); !ok {
		t.Error("Expected key-10 to survive eviction")
	}
	if _, _, ok := c.Get("key-50"); !ok {
		t.Error("Expected the newest key to survive eviction")
	}
}

func TestCacheEvictionIsInsertionOrderNotRecency(t *testing.T) {
	c := newResponseCache(5, 2)

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), "a", "m")
	}

	// Touch the oldest entry; FIFO eviction must ignore recency of use
	c.Get("k0")
	c.Put("k5", "a", "m")

	if _, _, ok := c.Get("k0"); ok {
		t.Error("k0 should be evicted despite the recent read")
	}
	if _, _, ok := c.Get("k1"); ok {
		t.Error("k1 should be evicted in the same batch")
	}
	if _, _, ok := c.Get("k2"); !ok {
		t.Error("k2 should survive")
	}
}

func TestCacheClear(t *testing.T) {
	c := newResponseCache(50, 10)
	c.Put("k1", "a", "m")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", c.Len())
	}
	if _, _, ok := c.Get("k1"); ok {
		t.Error("Expected miss after Clear")
	}

	// The insertion-order queue is reset too
	c.Put("k2", "a", "m")
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}
}
