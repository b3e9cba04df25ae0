// Package pipeline ties the capture buffer, transcription engine, and AI
// client together: a polling loop extracts chunks, transcribes them, and
// dispatches meaningful transcripts to the AI client without blocking the
// next poll.
package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// State represents the orchestrator state
type State int

const (
	// Idle means the pipeline has not been started
	Idle State = iota
	// Starting means the capture device is being opened
	Starting
	// Listening means the pipeline is polling for chunks
	Listening
	// Processing means a chunk is being transcribed
	Processing
	// Stopped means the pipeline was shut down
	Stopped
	// Error means a start-time failure occurred
	Error
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// AudioSource provides buffered audio. Extract returns nil when not enough
// data is buffered or the chunk fails the silence gate.
type AudioSource interface {
	Start() error
	Stop()
	Extract(duration float64) []float32
}

// Transcriber converts a chunk to (text, confidence), degrading to ("", 0)
// on failure
type Transcriber interface {
	Ready() bool
	Transcribe(chunk []float32) (string, float64)
}

// Responder answers a question for a context label, returning
// (answer, modelID, elapsedSeconds)
type Responder interface {
	GetResponse(question, contextLabel string) (string, string, float64)
}

// Sinks receives pipeline events. Implementations must return quickly and
// perform their own marshaling onto a UI thread if needed; callbacks are
// invoked from the pipeline's goroutines.
type Sinks interface {
	OnTranscription(text string, confidence float64)
	OnAnswer(question, answer, modelID string, elapsed float64)
	OnStatus(state string)
	OnError(message string)
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

// minTranscriptLen is the trimmed length below which a transcript is
// considered spurious and never reaches the AI client
const minTranscriptLen = 3

// Config holds orchestrator configuration
type Config struct {
	// ChunkDuration is the length of audio transcribed per attempt
	ChunkDuration float64
	// PollInterval bounds CPU usage between extraction attempts
	PollInterval time.Duration
	// ContextLabel selects the system prompt for AI calls
	ContextLabel string
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		ChunkDuration: 3.0,
		PollInterval:  100 * time.Millisecond,
		ContextLabel:  "data_science",
	}
}

// Orchestrator runs the capture → transcribe → answer loop on its own
// goroutine. AI round trips are dispatched onto short-lived goroutines so a
// slow network call never stalls the poll loop; Stop waits for them.
type Orchestrator struct {
	cfg         Config
	source      AudioSource
	transcriber Transcriber
	responder   Responder
	sinks       Sinks
	log         Logger

	mu       sync.Mutex
	state    State
	stopChan chan struct{}
	loopWG   sync.WaitGroup
	answerWG sync.WaitGroup
}

// New creates an orchestrator
func New(cfg Config, source AudioSource, transcriber Transcriber, responder Responder, sinks Sinks, log Logger) *Orchestrator {
	if log == nil {
		log = nopLogger{}
	}
	return &Orchestrator{
		cfg:         cfg,
		source:      source,
		transcriber: transcriber,
		responder:   responder,
		sinks:       sinks,
		log:         log,
		state:       Idle,
	}
}

// State returns the current orchestrator state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.sinks.OnStatus(s.String())
}

// Start opens the capture device and launches the poll loop. It fails
// without leaving Idle when the transcription engine is not ready or no
// capture device can be opened.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	if o.state != Idle && o.state != Stopped && o.state != Error {
		o.mu.Unlock()
		return fmt.Errorf("pipeline already running (state: %s)", o.state)
	}
	o.state = Starting
	stopChan := make(chan struct{})
	o.stopChan = stopChan
	o.mu.Unlock()
	o.sinks.OnStatus(Starting.String())

	if !o.transcriber.Ready() {
		o.setState(Idle)
		o.sinks.OnError("Transcriber not ready")
		return fmt.Errorf("transcriber not ready")
	}

	if err := o.source.Start(); err != nil {
		o.setState(Idle)
		o.sinks.OnError("Failed to start audio capture")
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	o.setState(Listening)
	o.log.Info("Pipeline started")

	o.loopWG.Add(1)
	go o.run(stopChan)
	return nil
}

// run is the poll loop. It owns the Listening ⇄ Processing transitions.
// The stop channel is passed in because Stop clears the struct field when
// claiming the shutdown.
func (o *Orchestrator) run(stopChan <-chan struct{}) {
	defer o.loopWG.Done()

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			o.poll()
		}
	}
}

// poll attempts one extraction/transcription cycle. Panics are contained
// here: they surface as error events, never as a crashed loop.
func (o *Orchestrator) poll() {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Pipeline panic: %v", r)
			o.setState(Error)
			o.sinks.OnError(fmt.Sprintf("pipeline error: %v", r))
			o.setState(Listening)
		}
	}()

	chunk := o.source.Extract(o.cfg.ChunkDuration)
	if chunk == nil {
		return
	}

	o.setState(Processing)

	text, confidence := o.transcriber.Transcribe(chunk)
	if len(strings.TrimSpace(text)) <= minTranscriptLen {
		o.setState(Listening)
		return
	}

	o.sinks.OnTranscription(text, confidence)

	// The AI round trip can take seconds; it must not stall the next poll
	o.answerWG.Add(1)
	go o.answer(text)

	o.setState(Listening)
}

// answer runs one AI round trip and delivers the result
func (o *Orchestrator) answer(question string) {
	defer o.answerWG.Done()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Answer dispatch panic: %v", r)
			o.sinks.OnError(fmt.Sprintf("answer error: %v", r))
		}
	}()

	response, model, elapsed := o.responder.GetResponse(question, o.cfg.ContextLabel)
	o.log.Info("AI response generated in %.2fs using %s", elapsed, model)
	o.sinks.OnAnswer(question, response, model, elapsed)
}

// Stop halts the poll loop, closes the capture device, and waits for any
// in-flight answer dispatches to complete. Safe to call repeatedly and from
// multiple goroutines; only the first caller performs the shutdown.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopChan == nil || o.state == Stopped || o.state == Idle {
		o.mu.Unlock()
		return
	}
	stopChan := o.stopChan
	o.stopChan = nil
	o.mu.Unlock()
	close(stopChan)

	o.loopWG.Wait()
	o.source.Stop()

	// In-flight AI calls complete rather than being abandoned
	o.answerWG.Wait()

	o.setState(Stopped)
	o.log.Info("Pipeline stopped")
}
