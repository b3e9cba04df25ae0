// Package transcribe converts audio chunks into text with a two-tier
// engine: a local whisper.cpp model first, then an external command-line
// tool when the model cannot be loaded.
package transcribe

import (
	"os"
	"strings"
	"sync"
	"time"
)

// State describes which transcription tier, if any, is available
type State int

const (
	// Uninitialized means New has not completed yet
	Uninitialized State = iota
	// ReadyPrimary means the local model is loaded
	ReadyPrimary
	// ReadyFallback means the subprocess tool will be used
	ReadyFallback
	// Unavailable means no transcription method was found
	Unavailable
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case ReadyPrimary:
		return "Ready(primary)"
	case ReadyFallback:
		return "Ready(fallback)"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Config holds transcription engine configuration
type Config struct {
	ModelPath     string
	Language      string
	InitialPrompt string
	CLICandidates []string
	CLIModelPath  string
	CLITimeout    time.Duration
	SampleRate    int
	TempDir       string
}

// DefaultConfig returns the default transcription configuration
func DefaultConfig() Config {
	return Config{
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
		CLITimeout:   30 * time.Second,
		SampleRate:   16000,
		TempDir:      os.TempDir(),
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

// Engine is the two-tier transcription engine. At most one transcription is
// in flight at a time; the underlying model is not assumed reentrant.
type Engine struct {
	mu         sync.Mutex
	state      State
	recognizer *WhisperRecognizer
	cli        *CLIEngine
	log        Logger
}

// New initializes the engine: it attempts to load the local model, and on
// failure probes for an external transcription tool. Initialization failure
// is not an error; the engine reports not-ready instead.
func New(cfg Config, log Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	e := &Engine{state: Uninitialized, log: log}

	log.Info("Loading Whisper model: %s", cfg.ModelPath)
	recognizer, err := NewWhisperRecognizer(cfg.ModelPath, cfg.Language, cfg.InitialPrompt)
	if err == nil {
		e.recognizer = recognizer
		e.state = ReadyPrimary
		log.Info("Whisper model loaded successfully")
		return e
	}
	log.Warn("Failed to load Whisper model: %v", err)

	if path, ok := ProbeCLI(cfg.CLICandidates); ok {
		e.cli = &CLIEngine{
			Path:       path,
			ModelPath:  cfg.CLIModelPath,
			Language:   cfg.Language,
			Timeout:    cfg.CLITimeout,
			TempDir:    cfg.TempDir,
			SampleRate: cfg.SampleRate,
		}
		e.state = ReadyFallback
		log.Info("Found whisper CLI at: %s", path)
		return e
	}

	e.state = Unavailable
	log.Error("Neither the local Whisper model nor a whisper CLI is available")
	return e
}

// Ready reports whether any transcription tier is available
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == ReadyPrimary || e.state == ReadyFallback
}

// State returns the current engine state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Transcribe converts a normalized audio chunk into text and a confidence
// in [0, 1]. Failures degrade to ("", 0) and are logged; they are never
// fatal. Calls are serialized by an internal lock.
func (e *Engine) Transcribe(chunk []float32) (string, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	switch e.state {
	case ReadyPrimary:
		text, logProbs, err := e.recognizer.Transcribe(chunk)
		if err != nil {
			e.log.Error("Whisper transcription failed: %v", err)
			return "", 0
		}
		e.log.Info("Transcription completed in %.2fs", time.Since(start).Seconds())
		return strings.TrimSpace(text), Confidence(logProbs)

	case ReadyFallback:
		text, confidence, err := e.cli.Transcribe(chunk)
		if err != nil {
			e.log.Error("Whisper CLI transcription failed: %v", err)
			return "", 0
		}
		e.log.Info("Whisper CLI transcription completed in %.2fs", time.Since(start).Seconds())
		return text, confidence

	default:
		e.log.Error("No transcription method available")
		return "", 0
	}
}

// Close releases the underlying model, if loaded
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recognizer != nil {
		e.recognizer.Close()
		e.recognizer = nil
	}
	e.state = Unavailable
}

// Confidence maps per-segment average log-probabilities to a single score:
// the mean of clamp01(avgLogProb + 1) over segments. An approximation, not
// a calibrated probability. Empty input yields 0.
func Confidence(segmentLogProbs []float64) float64 {
	if len(segmentLogProbs) == 0 {
		return 0
	}
	var sum float64
	for _, lp := range segmentLogProbs {
		c := lp + 1.0
		if c < 0 {
			c = 0
		} else if c > 1 {
			c = 1
		}
		sum += c
	}
	return sum / float64(len(segmentLogProbs))
}
