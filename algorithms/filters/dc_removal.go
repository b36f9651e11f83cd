package filters

import (
	"math"
)

// DCBlocker is a one-pole high-pass filter that strips the DC offset many
// consumer microphones add to a capture stream. It runs on the continuous
// stream ahead of framing; the pitch detector still removes each frame's
// residual mean.
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCBlocker struct {
	pole float64 // R parameter (0 < R < 1)

	x1 float64
	y1 float64
}

// NewDCBlocker creates a DC blocker with a -3 dB cutoff of cutoffHz at the
// given sample rate. Non-positive arguments fall back to R = 0.995.
func NewDCBlocker(sampleRate int, cutoffHz float64) *DCBlocker {
	pole := 0.995
	if sampleRate > 0 && cutoffHz > 0 {
		// R = 1 - 2*pi*fc/fs (small angle approximation)
		pole = 1.0 - (2.0 * math.Pi * cutoffHz / float64(sampleRate))
	}
	switch {
	case pole >= 1.0:
		pole = 0.999
	case pole <= 0.0:
		pole = 0.001
	}
	return &DCBlocker{pole: pole}
}

// Process filters one sample.
func (dc *DCBlocker) Process(input float64) float64 {
	output := input - dc.x1 + dc.pole*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessInPlace filters buf, overwriting it.
func (dc *DCBlocker) ProcessInPlace(buf []float64) {
	for i, sample := range buf {
		buf[i] = dc.Process(sample)
	}
}

// Reset clears the filter state. Call it between discontinuous segments.
func (dc *DCBlocker) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// Pole returns the R parameter.
func (dc *DCBlocker) Pole() float64 {
	return dc.pole
}

// CutoffFrequency returns the approximate -3 dB cutoff: fc ≈ (1-R)*fs/(2*pi)
func (dc *DCBlocker) CutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0.0
	}
	return (1.0 - dc.pole) * float64(sampleRate) / (2.0 * math.Pi)
}
