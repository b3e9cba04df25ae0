package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxqa/voxqa/internal/audio"
)

// probeTimeout bounds the --help invocation used to verify a candidate tool
const probeTimeout = 5 * time.Second

// fallbackConfidence is reported for CLI transcriptions; the external tool
// does not expose token probabilities.
const fallbackConfidence = 0.8

// CLIEngine transcribes chunks by invoking an external whisper.cpp-style
// command on a temporary WAV file.
type CLIEngine struct {
	Path       string
	ModelPath  string
	Language   string
	Timeout    time.Duration
	TempDir    string
	SampleRate int
}

// ProbeCLI returns the first candidate that is available: either present on
// the filesystem or runnable with --help within a short timeout.
func ProbeCLI(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		if commandExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// commandExists checks whether a command can be invoked with --help
func commandExists(command string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, "--help")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// Transcribe writes the chunk to a temporary uncompressed WAV file and runs
// the external tool on it. The temp file is removed afterwards, best-effort.
func (c *CLIEngine) Transcribe(chunk []float32) (string, float64, error) {
	tempFile := filepath.Join(c.TempDir, fmt.Sprintf("voxqa-%s.wav", uuid.NewString()))
	if err := audio.WriteWAVFile(tempFile, chunk, c.SampleRate); err != nil {
		return "", 0, fmt.Errorf("failed to save temp audio: %w", err)
	}
	defer os.Remove(tempFile)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path,
		"-m", c.ModelPath,
		"-f", tempFile,
		"-nt",
		"-l", c.Language,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", 0, fmt.Errorf("transcription timed out after %s", c.Timeout)
		}
		return "", 0, fmt.Errorf("transcription command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), fallbackConfidence, nil
}
