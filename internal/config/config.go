package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// AudioConfig holds audio capture and chunking configuration
type AudioConfig struct {
	SampleRate       int     `json:"sample_rate"`
	Channels         int     `json:"channels"`
	FramesPerBuffer  int     `json:"frames_per_buffer"`
	BufferSeconds    int     `json:"buffer_seconds"`
	ChunkDuration    float64 `json:"chunk_duration"`
	SilenceThreshold float64 `json:"silence_threshold"`
	// VirtualDevices are name fragments of virtual loopback devices,
	// preferred over the default input so system audio can be captured.
	VirtualDevices []string `json:"virtual_devices"`
}

// WhisperConfig holds transcription engine configuration
type WhisperConfig struct {
	ModelPath     string   `json:"model_path"`
	Language      string   `json:"language"`
	InitialPrompt string   `json:"initial_prompt"`
	// CLICandidates are probed in order when the local model cannot be
	// loaded; the first available one becomes the fallback engine.
	CLICandidates []string `json:"cli_candidates"`
	CLIModelPath  string   `json:"cli_model_path"`
	CLITimeout    int      `json:"cli_timeout"` // seconds
}

// AIConfig holds remote model configuration
type AIConfig struct {
	APIKey           string  `json:"-"` // environment only, never persisted
	Endpoint         string  `json:"endpoint"`
	PrimaryModel     string  `json:"primary_model"`
	FallbackModel    string  `json:"fallback_model"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty"`
	Timeout          int     `json:"timeout"` // seconds per attempt
	MaxRetries       int     `json:"max_retries"`
	Context          string  `json:"context"` // system prompt selector
}

// Config holds application configuration
type Config struct {
	Audio    AudioConfig   `json:"audio"`
	Whisper  WhisperConfig `json:"whisper"`
	AI       AIConfig      `json:"ai"`
	LogDir   string        `json:"log_dir"`
	TempDir  string        `json:"temp_dir"`
	mu       sync.RWMutex
}

// DefaultConfig returns the default configuration
// Sample rate: 16kHz mono (Whisper recommended), 30 second retain window,
// 3 second chunks for low latency.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:       16000,
			Channels:         1,
			FramesPerBuffer:  1024,
			BufferSeconds:    30,
			ChunkDuration:    3.0,
			SilenceThreshold: 0.01,
			VirtualDevices: []string{
				"VB-Audio", "CABLE", "Stereo Mix", "What U Hear",
				"Virtual Audio Cable", "VoiceMeeter",
			},
		},
		Whisper: WhisperConfig{
			ModelPath:     "./models/ggml-base.en.bin",
			Language:      "en",
			InitialPrompt: "This is a technical interview about data science, machine learning, and programming.",
			CLICandidates: []string{
				"./whisper.cpp/main",
				"./whisper.cpp/build/bin/whisper-cli",
				"whisper-cli",
				"whisper-cpp",
				"whisper",
			},
			CLIModelPath: "./whisper.cpp/models/ggml-base.en.bin",
			CLITimeout:   30,
		},
		AI: AIConfig{
			Endpoint:         "https://openrouter.ai/api/v1",
			PrimaryModel:     "openai/gpt-4-turbo",
			FallbackModel:    "openai/gpt-3.5-turbo",
			MaxTokens:        300,
			Temperature:      0.7,
			TopP:             0.9,
			FrequencyPenalty: 0.1,
			PresencePenalty:  0.1,
			Timeout:          10,
			MaxRetries:       3,
			Context:          "data_science",
		},
		LogDir:  "./logs",
		TempDir: os.TempDir(),
	}
}

// Load loads configuration from the specified path, applying environment
// overrides afterwards. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadEnv loads a .env file if present, then applies environment overrides
// on top of the defaults. Project-local .env files are optional.
func LoadEnv() *Config {
	_ = godotenv.Load()
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// applyEnv applies environment variable overrides. The API key is only
// ever sourced from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_ENDPOINT"); v != "" {
		c.AI.Endpoint = v
	}
	if v := os.Getenv("VOXQA_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("VOXQA_MODEL_PATH"); v != "" {
		c.Whisper.ModelPath = v
	}
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate: %d (must be positive)", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("invalid channels: %d (only mono is supported)", c.Audio.Channels)
	}
	if c.Audio.BufferSeconds <= 0 {
		return fmt.Errorf("invalid buffer_seconds: %d (must be positive)", c.Audio.BufferSeconds)
	}
	if c.Audio.ChunkDuration <= 0 || c.Audio.ChunkDuration > float64(c.Audio.BufferSeconds) {
		return fmt.Errorf("invalid chunk_duration: %.1f (must be between 0 and buffer_seconds)", c.Audio.ChunkDuration)
	}
	if c.Audio.SilenceThreshold < 0 || c.Audio.SilenceThreshold >= 1 {
		return fmt.Errorf("invalid silence_threshold: %f (must be in [0, 1))", c.Audio.SilenceThreshold)
	}
	if c.Whisper.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if c.Whisper.CLITimeout <= 0 {
		return fmt.Errorf("invalid cli_timeout: %d (must be positive)", c.Whisper.CLITimeout)
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("invalid max_tokens: %d (must be positive)", c.AI.MaxTokens)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.AI.Timeout)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d (must not be negative)", c.AI.MaxRetries)
	}
	if !strings.HasPrefix(c.AI.Endpoint, "http") {
		return fmt.Errorf("invalid endpoint: %s", c.AI.Endpoint)
	}
	return nil
}

// BufferCapacity returns the ring buffer capacity in samples
func (c *Config) BufferCapacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Audio.SampleRate * c.Audio.BufferSeconds
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Audio:   c.Audio,
		Whisper: c.Whisper,
		AI:      c.AI,
		LogDir:  c.LogDir,
		TempDir: c.TempDir,
	}
	clone.Audio.VirtualDevices = append([]string(nil), c.Audio.VirtualDevices...)
	clone.Whisper.CLICandidates = append([]string(nil), c.Whisper.CLICandidates...)
	return clone
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "voxqa", "config.json")
}
