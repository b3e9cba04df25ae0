package audio

import "sync"

// RingBuffer is a fixed-capacity circular store of int16 samples. The
// capture callback appends continuously; once full, the oldest samples are
// silently overwritten. Overwritten samples are not recoverable; the
// buffer is a fixed-horizon retention window, not a queue.
type RingBuffer struct {
	mu    sync.Mutex
	data  []int16
	start int // index of the oldest sample
	size  int
}

// NewRingBuffer creates a ring buffer holding at most capacity samples
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		data: make([]int16, capacity),
	}
}

// Write appends samples, evicting the oldest once capacity is reached
func (r *RingBuffer) Write(samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.data)

	// A block larger than the whole buffer reduces to its tail
	if len(samples) >= capacity {
		copy(r.data, samples[len(samples)-capacity:])
		r.start = 0
		r.size = capacity
		return
	}

	writePos := (r.start + r.size) % capacity
	n := copy(r.data[writePos:], samples)
	if n < len(samples) {
		copy(r.data, samples[n:])
	}

	if r.size+len(samples) <= capacity {
		r.size += len(samples)
	} else {
		overwritten := r.size + len(samples) - capacity
		r.start = (r.start + overwritten) % capacity
		r.size = capacity
	}
}

// Latest copies the most recent n samples in order. Returns nil when the
// buffer holds fewer than n samples.
func (r *RingBuffer) Latest(n int) []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > r.size {
		return nil
	}

	capacity := len(r.data)
	out := make([]int16, n)
	from := (r.start + r.size - n) % capacity
	copied := copy(out, r.data[from:min(from+n, capacity)])
	if copied < n {
		copy(out[copied:], r.data[:n-copied])
	}
	return out
}

// Len returns the current number of buffered samples
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of samples the buffer can hold
func (r *RingBuffer) Capacity() int {
	return len(r.data)
}

// Clear discards all buffered samples
func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = 0
	r.size = 0
}
