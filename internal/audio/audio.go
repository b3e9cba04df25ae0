package audio

import "math"

// Device represents an audio input device
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// Config holds audio capture configuration
type Config struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	// BufferSeconds is the retention window of the ring buffer. Samples
	// older than this are silently overwritten.
	BufferSeconds int
	// SilenceThreshold is the RMS energy (over normalized samples) below
	// which an extracted chunk is discarded.
	SilenceThreshold float64
	// VirtualDevices are name fragments identifying virtual loopback
	// devices, preferred over the default input.
	VirtualDevices []string
}

// DefaultConfig returns the default audio configuration
// Sample rate: 16kHz (Whisper recommended), mono, 30 second window.
func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		Channels:         1,
		FramesPerBuffer:  1024,
		BufferSeconds:    30,
		SilenceThreshold: 0.01,
		VirtualDevices: []string{
			"VB-Audio", "CABLE", "Stereo Mix", "What U Hear",
			"Virtual Audio Cable", "VoiceMeeter",
		},
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

// Normalize converts 16-bit PCM samples to float32 in range [-1.0, 1.0]
func Normalize(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Denormalize converts float samples back to 16-bit PCM, clipping to range
func Denormalize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// RMS computes the root-mean-square energy of a normalized chunk
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
