package common

import (
	"math"
	"sync/atomic"
)

// RingBuffer is a fixed-capacity single-producer/single-consumer sample store.
//
// The producer (the audio callback) calls Write; the consumer (the analysis
// loop) calls ReadLatest, Read or RMS. Neither side takes a lock. Samples are
// stored as atomic float bits and the write cursor only ever increases, so a
// reader racing a writer may observe a block that mixes the newest samples
// with slightly older ones. Analysis tolerates that.
type RingBuffer struct {
	data     []atomic.Uint32
	capacity uint64
	written  atomic.Uint64 // total samples ever written
}

// NewRingBuffer creates a ring buffer holding capacity samples
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		data:     make([]atomic.Uint32, capacity),
		capacity: uint64(capacity),
	}
}

// Capacity returns the buffer size in samples
func (rb *RingBuffer) Capacity() int {
	return int(rb.capacity)
}

// Write appends samples, overwriting the oldest data when full. A block at
// least as long as the buffer leaves only its last Capacity samples.
func (rb *RingBuffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	if uint64(len(samples)) > rb.capacity {
		skipped := uint64(len(samples)) - rb.capacity
		samples = samples[skipped:]
		rb.written.Add(skipped)
	}

	start := rb.written.Load()
	for i, s := range samples {
		rb.data[(start+uint64(i))%rb.capacity].Store(math.Float32bits(s))
	}
	rb.written.Add(uint64(len(samples)))
}

// Available returns how many samples can be read, at most Capacity
func (rb *RingBuffer) Available() int {
	w := rb.written.Load()
	if w > rb.capacity {
		return int(rb.capacity)
	}
	return int(w)
}

// ReadLatest copies the newest n samples in chronological order. When fewer
// than n samples exist the result is zero-padded at the front.
func (rb *RingBuffer) ReadLatest(n int) []float32 {
	if n <= 0 {
		return []float32{}
	}
	out := make([]float32, n)

	w := rb.written.Load()
	have := uint64(n)
	if have > rb.capacity {
		have = rb.capacity
	}
	if have > w {
		have = w
	}

	offset := uint64(n) - have
	first := w - have
	for i := uint64(0); i < have; i++ {
		out[offset+i] = math.Float32frombits(rb.data[(first+i)%rb.capacity].Load())
	}
	return out
}

// Read copies the newest n samples, or returns nil if fewer are available
func (rb *RingBuffer) Read(n int) []float32 {
	if n <= 0 || n > rb.Available() {
		return nil
	}
	return rb.ReadLatest(n)
}

// RMS returns the root mean square of the newest block samples
func (rb *RingBuffer) RMS(block int) float64 {
	if block <= 0 || rb.Available() == 0 {
		return 0.0
	}
	if avail := rb.Available(); block > avail {
		block = avail
	}
	return RMS(ToFloat64(rb.ReadLatest(block)))
}

// Clear forgets all written samples
func (rb *RingBuffer) Clear() {
	for i := range rb.data {
		rb.data[i].Store(0)
	}
	rb.written.Store(0)
}
