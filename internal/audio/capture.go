package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Capture streams audio from an input device into a ring buffer. It prefers
// virtual loopback devices so system audio (not just the microphone) can be
// captured, falling back to the default input device.
type Capture struct {
	cfg        Config
	ring       *RingBuffer
	log        Logger
	stream     *portaudio.Stream
	mu         sync.Mutex
	running    bool
	deviceName string
}

// NewCapture creates a capture manager. PortAudio itself is initialized
// lazily in Start so that chunk extraction stays testable without hardware.
func NewCapture(cfg Config, log Logger) *Capture {
	if log == nil {
		log = nopLogger{}
	}
	return &Capture{
		cfg:  cfg,
		ring: NewRingBuffer(cfg.SampleRate * cfg.BufferSeconds),
		log:  log,
	}
}

// SelectDevice returns the index of the preferred device: the first whose
// name contains one of the virtual-loopback markers (case-insensitive),
// otherwise the default input device. The boolean reports whether any
// usable device was found.
func SelectDevice(devices []Device, markers []string) (int, bool) {
	for _, dev := range devices {
		if matchesMarker(dev.Name, markers) {
			return dev.ID, true
		}
	}
	for _, dev := range devices {
		if dev.IsDefault {
			return dev.ID, true
		}
	}
	return 0, false
}

// matchesMarker reports whether a device name contains any of the
// virtual-loopback markers, case-insensitively
func matchesMarker(name string, markers []string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range markers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			return true
		}
	}
	return false
}

// ListDevices enumerates input-capable devices outside a capture session,
// initializing PortAudio for the duration of the call.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()
	return Devices()
}

// Devices returns the list of input-capable devices. PortAudio must be
// initialized (Start does this; callers outside a capture session use
// ListDevices instead).
func Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		defaultInput = nil
	}

	var result []Device
	for i, dev := range infos {
		if dev.MaxInputChannels > 0 {
			isDefault := defaultInput != nil && dev.Name == defaultInput.Name
			result = append(result, Device{
				ID:        i,
				Name:      dev.Name,
				IsDefault: isDefault,
			})
		}
	}
	return result, nil
}

// Start opens the selected input device and begins streaming samples into
// the ring buffer. Returns an error if no usable device is found or the
// stream cannot be opened.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	devices, err := Devices()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("cannot start capture: %w", err)
	}

	id, ok := SelectDevice(devices, c.cfg.VirtualDevices)
	if !ok {
		portaudio.Terminate()
		return fmt.Errorf("no audio input device found")
	}

	infos, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to list devices: %w", err)
	}
	device := infos[id]
	c.deviceName = device.Name

	if matchesMarker(device.Name, c.cfg.VirtualDevices) {
		c.log.Info("Found virtual audio device: %s", device.Name)
	} else {
		c.log.Warn("Using default audio device: %s", device.Name)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: c.cfg.Channels,
			Latency:  device.DefaultHighInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: c.cfg.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, c.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	c.stream = stream
	c.running = true
	c.log.Info("Audio capture started on %q", c.deviceName)
	return nil
}

// callback is invoked by PortAudio when a block of samples is available
func (c *Capture) callback(in []int16) {
	c.ring.Write(in)
}

// Extract returns the most recent duration seconds of audio, normalized to
// [-1, 1]. Returns nil when the buffer does not yet hold enough samples or
// the chunk fails the silence gate. Pure read: repeated calls do not mutate
// the buffer.
func (c *Capture) Extract(duration float64) []float32 {
	n := int(duration * float64(c.cfg.SampleRate))
	samples := c.ring.Latest(n)
	if samples == nil {
		return nil
	}

	chunk := Normalize(samples)
	if RMS(chunk) < c.cfg.SilenceThreshold {
		return nil
	}
	return chunk
}

// Buffer exposes the ring buffer. Intended for the capture callback path
// and tests; pipeline code should go through Extract.
func (c *Capture) Buffer() *RingBuffer {
	return c.ring
}

// IsRunning reports whether the capture stream is active
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// DeviceName returns the name of the active input device
func (c *Capture) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceName
}

// Stop halts capture and releases the device. Safe to call repeatedly.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	if err := c.stream.Stop(); err != nil {
		c.log.Warn("Error stopping stream: %v", err)
	}
	if err := c.stream.Close(); err != nil {
		c.log.Warn("Error closing stream: %v", err)
	}
	c.stream = nil
	c.running = false

	if err := portaudio.Terminate(); err != nil {
		c.log.Warn("Error terminating PortAudio: %v", err)
	}

	c.log.Info("Audio capture stopped")
}
