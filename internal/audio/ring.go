package audio

import "sync"

// Ring is a fixed-size mono sample window safe for one writer and many readers.
type Ring struct {
	mu     sync.RWMutex
	buffer []float32
	index  int
}

// NewRing creates a ring holding the latest size samples.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Ring{buffer: make([]float32, size)}
}

// Len returns the window size.
func (r *Ring) Len() int { return len(r.buffer) }

// Write appends interleaved frames, mixing channels down to mono.
func (r *Ring) Write(in []float32, channels int) {
	if channels > 1 {
		in = Downmix(in, channels)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mixIntoBuffer(in)
}

// Snapshot returns the window oldest sample first.
func (r *Ring) Snapshot() []float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := make([]float32, len(r.buffer))
	copy(cp, r.buffer[r.index:])
	copy(cp[len(r.buffer)-r.index:], r.buffer[:r.index])
	return cp
}

// Downmix averages interleaved channels into one.
func Downmix(in []float32, channels int) []float32 {
	mono := make([]float32, len(in)/channels)
	for i := range mono {
		sum := float32(0)
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += in[base+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

func (r *Ring) mixIntoBuffer(in []float32) {
	if len(in) == 0 {
		return
	}

	if len(in) >= len(r.buffer) {
		copy(r.buffer, in[len(in)-len(r.buffer):])
		r.index = 0
		return
	}

	if r.index+len(in) <= len(r.buffer) {
		copy(r.buffer[r.index:], in)
		r.index += len(in)
		if r.index == len(r.buffer) {
			r.index = 0
		}
		return
	}

	remaining := len(r.buffer) - r.index
	copy(r.buffer[r.index:], in[:remaining])
	copy(r.buffer, in[remaining:])
	r.index = len(in) - remaining
}
