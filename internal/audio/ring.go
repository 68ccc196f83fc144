package audio

import "sync"

// RingBuffer is a circular buffer of mono float32 samples shared between the
// capture callback (writer) and the processor loop (reader).
// Writes never block: when the buffer is full the oldest unread samples are
// discarded so the capture callback always completes in bounded time.
type RingBuffer struct {
	mu        sync.Mutex
	buffer    []float32
	capacity  int
	writePos  int
	readPos   int
	available int
}

// NewRingBuffer creates a ring buffer holding up to capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buffer:   make([]float32, capacity),
		capacity: capacity,
	}
}

// Write appends samples to the buffer. It never fails; on overflow the read
// cursor is advanced past the oldest samples. The lock is held for
// O(len(samples)), bounded by the capture frame size.
func (rb *RingBuffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for _, s := range samples {
		if rb.available == rb.capacity {
			rb.readPos = (rb.readPos + 1) % rb.capacity
			rb.available--
		}
		rb.buffer[rb.writePos] = s
		rb.writePos = (rb.writePos + 1) % rb.capacity
		rb.available++
	}
}

// Read fills out with the oldest len(out) samples. It is all-or-nothing: if
// fewer than len(out) samples are buffered it returns false and consumes
// nothing.
func (rb *RingBuffer) Read(out []float32) bool {
	if len(out) == 0 {
		return false
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.available < len(out) {
		return false
	}

	for i := range out {
		out[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.capacity
		rb.available--
	}
	return true
}

// Available returns the number of samples ready to read.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.available
}

// Capacity returns the total size of the buffer in samples.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// Reset discards all buffered samples.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.available = 0
}
