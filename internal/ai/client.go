// Package ai answers transcribed questions through a chat-completion
// endpoint with a response cache and a multi-tier fallback: primary model,
// then fallback model, then a canned apology. A caller always gets a
// non-empty answer string.
package ai

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Apology is returned when every model tier fails. It is reported with
// model id "fallback" and is never cached.
const Apology = "I'm having trouble processing that question right now. Could you please rephrase it?"

// FallbackModelID marks an answer that came from the apology tier
const FallbackModelID = "fallback"

const (
	cacheCapacity   = 50
	cacheEvictBatch = 10
)

// systemPrompts select the assistant persona per context label
var systemPrompts = map[string]string{
	"data_science": "You are a senior data scientist preparing a candidate for a live technical interview. " +
		"Provide brief, precise, and confident answers to data science interview questions, including Python, ML, SQL, and statistics. " +
		"Keep responses under 150 words and focus on key points that demonstrate expertise.",

	"general": "You are an expert technical interview coach. Provide concise, accurate answers to technical questions. " +
		"Focus on demonstrating deep understanding while keeping responses brief and actionable.",

	"coding": "You are a senior software engineer helping with coding interview preparation. " +
		"Provide clear, efficient solutions with brief explanations. Focus on optimal approaches and common patterns.",
}

// Config holds remote model configuration
type Config struct {
	APIKey           string
	Endpoint         string
	PrimaryModel     string
	FallbackModel    string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Timeout          time.Duration
	MaxRetries       int
}

// DefaultConfig returns the default AI configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:         "https://openrouter.ai/api/v1",
		PrimaryModel:     "openai/gpt-4-turbo",
		FallbackModel:    "openai/gpt-3.5-turbo",
		MaxTokens:        300,
		Temperature:      0.7,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.1,
		Timeout:          10 * time.Second,
		MaxRetries:       3,
	}
}

// Logger is the subset of the application logger used by this package.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Stats reports process-lifetime client counters
type Stats struct {
	TotalRequests   int     `json:"total_requests"`
	AvgResponseTime float64 `json:"avg_response_time"`
	CacheSize       int     `json:"cache_size"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
}

// Client answers questions with caching and model fallback
type Client struct {
	api   *openai.Client
	cfg   Config
	cache *responseCache
	log   Logger

	mu                sync.Mutex
	requestCount      int
	totalResponseTime float64
}

// New creates a response client. The HTTP transport retries retryable
// statuses itself, so each tier makes up to MaxRetries+1 attempts.
func New(cfg Config, log Logger) *Client {
	if log == nil {
		log = nopLogger{}
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	apiCfg.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newRetryTransport(http.DefaultTransport, cfg.MaxRetries),
	}

	return &Client{
		api:   openai.NewClientWithConfig(apiCfg),
		cfg:   cfg,
		cache: newResponseCache(cacheCapacity, cacheEvictBatch),
		log:   log,
	}
}

// GetResponse answers a question for the given context label. The result is
// (answer, modelID, elapsedSeconds). It never returns an error: every
// failure tier degrades to the next, ending at the apology string.
func (c *Client) GetResponse(question, contextLabel string) (string, string, float64) {
	start := time.Now()

	key := CacheKey(question, contextLabel)
	if answer, model, ok := c.cache.Get(key); ok {
		c.log.Info("Using cached response")
		return answer, model, time.Since(start).Seconds()
	}

	answer, ok := c.tryModel(question, c.cfg.PrimaryModel, contextLabel)
	model := c.cfg.PrimaryModel

	if !ok {
		c.log.Warn("Primary model failed, trying fallback")
		answer, ok = c.tryModel(question, c.cfg.FallbackModel, contextLabel)
		model = c.cfg.FallbackModel
	}

	if !ok {
		answer = Apology
		model = FallbackModelID
	}

	elapsed := time.Since(start).Seconds()

	if model != FallbackModelID {
		c.cache.Put(key, answer, model)
	}

	c.mu.Lock()
	c.requestCount++
	c.totalResponseTime += elapsed
	c.mu.Unlock()

	return answer, model, elapsed
}

// tryModel requests a completion from one model. Any transport error,
// non-200 status, or empty payload is a model failure, not a hard error.
func (c *Client) tryModel(question, model, contextLabel string) (string, bool) {
	prompt, ok := systemPrompts[contextLabel]
	if !ok {
		prompt = systemPrompts["general"]
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: enhanceQuestion(question)},
		},
		MaxTokens:        c.cfg.MaxTokens,
		Temperature:      float32(c.cfg.Temperature),
		TopP:             float32(c.cfg.TopP),
		FrequencyPenalty: float32(c.cfg.FrequencyPenalty),
		PresencePenalty:  float32(c.cfg.PresencePenalty),
	}

	resp, err := c.api.CreateChatCompletion(context.Background(), req)
	if err != nil {
		c.log.Error("API error with %s: %v", model, err)
		return "", false
	}
	if len(resp.Choices) == 0 {
		c.log.Error("No choices in response from %s", model)
		return "", false
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		c.log.Error("Empty content in response from %s", model)
		return "", false
	}

	c.log.Info("Successful response from %s", model)
	return content, true
}

// enhanceQuestion wraps very short questions, which are assumed to be
// under-specified fragments of a longer spoken question
func enhanceQuestion(question string) string {
	enhanced := strings.TrimSpace(question)
	if len(enhanced) < 20 {
		return "Please provide a comprehensive answer to: " + enhanced
	}
	return enhanced
}

// GetStats returns lifetime counters. The cache hit rate is not tracked
// and always reads 0.
func (c *Client) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	avg := 0.0
	if c.requestCount > 0 {
		avg = c.totalResponseTime / float64(c.requestCount)
	}

	return Stats{
		TotalRequests:   c.requestCount,
		AvgResponseTime: math.Round(avg*100) / 100,
		CacheSize:       c.cache.Len(),
		CacheHitRate:    0,
	}
}

// ClearCache drops all cached responses
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.log.Info("Response cache cleared")
}
