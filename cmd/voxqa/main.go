package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxqa/voxqa/internal/ai"
	"github.com/voxqa/voxqa/internal/audio"
	"github.com/voxqa/voxqa/internal/config"
	"github.com/voxqa/voxqa/internal/logger"
	"github.com/voxqa/voxqa/internal/pipeline"
	"github.com/voxqa/voxqa/internal/transcribe"
)

const version = "0.1.0"

// App holds all application state
type App struct {
	logger       *logger.Logger
	config       *config.Config
	capture      *audio.Capture
	engine       *transcribe.Engine
	client       *ai.Client
	orchestrator *pipeline.Orchestrator
}

// consoleSinks prints pipeline events to stdout and mirrors Q&A pairs into
// the log file.
type consoleSinks struct {
	log *logger.Logger
}

func (s *consoleSinks) OnTranscription(text string, confidence float64) {
	fmt.Printf("\n🎤 [%.0f%%] %s\n", confidence*100, text)
}

func (s *consoleSinks) OnAnswer(question, answer, modelID string, elapsed float64) {
	fmt.Printf("\n💡 (%s, %.2fs)\n%s\n", modelID, elapsed, answer)
	s.log.QA(question, answer, modelID, elapsed)
}

func (s *consoleSinks) OnStatus(state string) {
	s.log.Debug("Pipeline state: %s", state)
}

func (s *consoleSinks) OnError(message string) {
	fmt.Fprintf(os.Stderr, "⚠️  %s\n", message)
	s.log.Error("%s", message)
}

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to config file")
	contextLabel := flag.String("context", "", "system prompt context (data_science, coding, general)")
	debug := flag.Bool("debug", false, "enable debug logging")
	listDevices := flag.Bool("devices", false, "list audio input devices and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voxqa v%s\n", version)
		return
	}

	// Project-local .env files are optional
	_ = godotenv.Load()

	app := &App{}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *contextLabel != "" {
		cfg.AI.Context = *contextLabel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	app.config = cfg

	loggerConfig := logger.DefaultConfig()
	loggerConfig.LogDir = cfg.LogDir
	if *debug {
		loggerConfig.Level = logger.DEBUG
	}
	app.logger, err = logger.New(loggerConfig)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer app.logger.Close()

	app.logger.Info("voxqa v%s starting", version)

	if *listDevices {
		printDevices()
		return
	}

	if cfg.AI.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Warning: OPENROUTER_API_KEY is not set; AI answers will fall back to an apology")
		app.logger.Warn("No API key configured")
	}

	app.capture = audio.NewCapture(audio.Config{
		SampleRate:       cfg.Audio.SampleRate,
		Channels:         cfg.Audio.Channels,
		FramesPerBuffer:  cfg.Audio.FramesPerBuffer,
		BufferSeconds:    cfg.Audio.BufferSeconds,
		SilenceThreshold: cfg.Audio.SilenceThreshold,
		VirtualDevices:   cfg.Audio.VirtualDevices,
	}, app.logger)

	app.engine = transcribe.New(transcribe.Config{
		ModelPath:     cfg.Whisper.ModelPath,
		Language:      cfg.Whisper.Language,
		InitialPrompt: cfg.Whisper.InitialPrompt,
		CLICandidates: cfg.Whisper.CLICandidates,
		CLIModelPath:  cfg.Whisper.CLIModelPath,
		CLITimeout:    time.Duration(cfg.Whisper.CLITimeout) * time.Second,
		SampleRate:    cfg.Audio.SampleRate,
		TempDir:       cfg.TempDir,
	}, app.logger)
	defer app.engine.Close()

	if !app.engine.Ready() {
		app.logger.Error("No transcription engine available")
		log.Fatalf("No transcription engine available: install a Whisper model at %s or a whisper CLI tool", cfg.Whisper.ModelPath)
	}
	app.logger.Info("Transcription engine ready (%s)", app.engine.State())

	app.client = ai.New(ai.Config{
		APIKey:           cfg.AI.APIKey,
		Endpoint:         cfg.AI.Endpoint,
		PrimaryModel:     cfg.AI.PrimaryModel,
		FallbackModel:    cfg.AI.FallbackModel,
		MaxTokens:        cfg.AI.MaxTokens,
		Temperature:      cfg.AI.Temperature,
		TopP:             cfg.AI.TopP,
		FrequencyPenalty: cfg.AI.FrequencyPenalty,
		PresencePenalty:  cfg.AI.PresencePenalty,
		Timeout:          time.Duration(cfg.AI.Timeout) * time.Second,
		MaxRetries:       cfg.AI.MaxRetries,
	}, app.logger)

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.ChunkDuration = cfg.Audio.ChunkDuration
	pipeCfg.ContextLabel = cfg.AI.Context
	app.orchestrator = pipeline.New(pipeCfg, app.capture, app.engine, app.client,
		&consoleSinks{log: app.logger}, app.logger)

	if err := app.orchestrator.Start(); err != nil {
		app.logger.Error("Failed to start pipeline: %v", err)
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	fmt.Printf("voxqa v%s listening on %q (context: %s). Press Ctrl+C to stop.\n",
		version, app.capture.DeviceName(), cfg.AI.Context)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	app.orchestrator.Stop()

	stats := app.client.GetStats()
	fmt.Printf("Session: %d requests, %.2fs avg response, %d cached answers\n",
		stats.TotalRequests, stats.AvgResponseTime, stats.CacheSize)
	app.logger.Info("Session stats: requests=%d avg=%.2fs cache=%d",
		stats.TotalRequests, stats.AvgResponseTime, stats.CacheSize)
}

func printDevices() {
	devices, err := audio.ListDevices()
	if err != nil {
		log.Fatalf("Failed to enumerate audio devices: %v", err)
	}
	if len(devices) == 0 {
		fmt.Println("No audio input devices found")
		return
	}
	fmt.Println("Audio input devices:")
	for _, d := range devices {
		marker := ""
		if d.IsDefault {
			marker = " (default)"
		}
		fmt.Printf("  [%d] %s%s\n", d.ID, d.Name, marker)
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"voxqa captures spoken questions and answers them in real time.\n\nUsage:\n  %s [flags]\n\nFlags:\n",
			os.Args[0])
		flag.PrintDefaults()
	}
}
