package windowing

import (
	"fmt"
	"math"
)

// Blackman represents a Blackman window function (alpha = 0.16).
// The periodic form (denominator N) is the one browser analysers apply
// before their FFT.
type Blackman struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewBlackman creates a new Blackman window
func NewBlackman(size int, symmetric bool) *Blackman {
	b := &Blackman{
		size:      size,
		symmetric: symmetric,
	}
	b.generate()
	return b
}

func (b *Blackman) generate() {
	b.coefficients = make([]float64, b.size)
	if b.size == 1 {
		b.coefficients[0] = 1
		return
	}

	denominator := float64(b.size)
	if b.symmetric {
		denominator = float64(b.size - 1)
	}

	a0, a1, a2 := 0.42, 0.5, 0.08

	for i := range b.size {
		arg := 2 * math.Pi * float64(i) / denominator
		b.coefficients[i] = a0 - a1*math.Cos(arg) + a2*math.Cos(2*arg)
	}
}

// ApplyTo writes signal*window into dst. Both slices must match the window
// size.
func (b *Blackman) ApplyTo(dst, signal []float64) error {
	if len(signal) != b.size || len(dst) != b.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), b.size)
	}

	for i := range b.size {
		dst[i] = signal[i] * b.coefficients[i]
	}

	return nil
}

// Coefficient returns the i-th window coefficient.
func (b *Blackman) Coefficient(i int) float64 {
	return b.coefficients[i]
}

// GetSize returns the window size
func (b *Blackman) GetSize() int {
	return b.size
}
