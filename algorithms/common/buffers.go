package common

// RingBuffer keeps the most recent values up to a fixed capacity. Pushing
// into a full buffer evicts the oldest value.
type RingBuffer struct {
	buffer   []float64
	size     int
	writePos int
	count    int
}

// NewRingBuffer creates a ring buffer holding at most size values.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{
		buffer: make([]float64, size),
		size:   size,
	}
}

// Push appends v, overwriting the oldest value when full.
func (rb *RingBuffer) Push(v float64) {
	rb.buffer[rb.writePos] = v
	rb.writePos = (rb.writePos + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// Values returns the buffered values, oldest first.
func (rb *RingBuffer) Values() []float64 {
	out := make([]float64, rb.count)
	start := (rb.writePos - rb.count + rb.size) % rb.size
	for i := range rb.count {
		out[i] = rb.buffer[(start+i)%rb.size]
	}
	return out
}

// Mean returns the arithmetic mean of the buffered values, or 0 when empty.
func (rb *RingBuffer) Mean() float64 {
	if rb.count == 0 {
		return 0
	}
	if rb.count == rb.size {
		return Mean(rb.buffer)
	}
	return Mean(rb.Values())
}

// Len returns the number of buffered values.
func (rb *RingBuffer) Len() int {
	return rb.count
}

// Clear empties the buffer
func (rb *RingBuffer) Clear() {
	rb.writePos = 0
	rb.count = 0
}

// SlidingWindow implements a sliding window for frame-based processing
type SlidingWindow struct {
	buffer     []float64
	windowSize int
	hopSize    int
	writePos   int
}

// NewSlidingWindow creates a new sliding window. A hop size outside
// (0, windowSize] is treated as windowSize (no overlap).
func NewSlidingWindow(windowSize, hopSize int) *SlidingWindow {
	if hopSize <= 0 || hopSize > windowSize {
		hopSize = windowSize
	}
	return &SlidingWindow{
		buffer:     make([]float64, windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}
}

// AddSamples adds samples and returns every frame completed by them. Each
// returned frame is a fresh slice.
func (sw *SlidingWindow) AddSamples(samples []float64) [][]float64 {
	var frames [][]float64

	for _, sample := range samples {
		sw.buffer[sw.writePos] = sample
		sw.writePos++

		if sw.writePos >= sw.windowSize {
			frame := make([]float64, sw.windowSize)
			copy(frame, sw.buffer)
			frames = append(frames, frame)

			if sw.hopSize < sw.windowSize {
				// Overlap: shift buffer left by hopSize
				copy(sw.buffer, sw.buffer[sw.hopSize:])
				sw.writePos = sw.windowSize - sw.hopSize
			} else {
				sw.writePos = 0
			}
		}
	}

	return frames
}

// Pending returns how many samples are buffered towards the next frame.
func (sw *SlidingWindow) Pending() int {
	return sw.writePos
}

// Reset clears the sliding window
func (sw *SlidingWindow) Reset() {
	sw.writePos = 0
	for i := range sw.buffer {
		sw.buffer[i] = 0.0
	}
}

// GetHopSize returns the hop size
func (sw *SlidingWindow) GetHopSize() int {
	return sw.hopSize
}
