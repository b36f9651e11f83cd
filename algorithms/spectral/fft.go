package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal using mjibson/go-dsp, which
// handles non-power-of-2 sizes as well.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Magnitudes returns |X[k]| for the first n bins of the spectrum of x.
func (f *FFT) Magnitudes(x []float64, n int) []float64 {
	spectrum := f.Compute(x)
	if n > len(spectrum) {
		n = len(spectrum)
	}
	mags := make([]float64, n)
	for k := range n {
		mags[k] = cmplx.Abs(spectrum[k])
	}
	return mags
}
