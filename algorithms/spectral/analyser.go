package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/windowing"
)

// AnalyserParams mirrors the knobs of a browser AnalyserNode.
type AnalyserParams struct {
	FFTSize               int     `json:"fft_size" yaml:"fft_size"`
	SmoothingTimeConstant float64 `json:"smoothing_time_constant" yaml:"smoothing_time_constant"`
	MinDecibels           float64 `json:"min_decibels" yaml:"min_decibels"`
	MaxDecibels           float64 `json:"max_decibels" yaml:"max_decibels"`
}

// DefaultAnalyserParams returns the settings the spectrogram recorder used:
// 2048-point FFT, 0.8 smoothing, -90..-10 dB display range.
func DefaultAnalyserParams() AnalyserParams {
	return AnalyserParams{
		FFTSize:               2048,
		SmoothingTimeConstant: 0.8,
		MinDecibels:           -90,
		MaxDecibels:           -10,
	}
}

// Validate reports parameter combinations the analyser cannot run with.
func (p AnalyserParams) Validate() error {
	if p.FFTSize < 32 || p.FFTSize%2 != 0 {
		return fmt.Errorf("fft_size must be an even number >= 32, got %d", p.FFTSize)
	}
	if p.SmoothingTimeConstant < 0 || p.SmoothingTimeConstant >= 1 {
		return fmt.Errorf("smoothing_time_constant must be in [0,1), got %v", p.SmoothingTimeConstant)
	}
	if p.MinDecibels >= p.MaxDecibels {
		return fmt.Errorf("min_decibels (%v) must be below max_decibels (%v)", p.MinDecibels, p.MaxDecibels)
	}
	return nil
}

// Analyser turns time-domain frames into byte-scaled magnitude spectra the
// same way a Web Audio AnalyserNode does: Blackman window, FFT, magnitude
// normalized by N, exponential smoothing across frames, conversion to dB and
// linear mapping of [MinDecibels, MaxDecibels] onto [0, 255].
//
// An Analyser carries smoothing state and is not safe for concurrent use.
type Analyser struct {
	params   AnalyserParams
	window   *windowing.Blackman
	fft      *FFT
	frame    []float64
	smoothed []float64
}

// NewAnalyser creates an analyser.
func NewAnalyser(params AnalyserParams) (*Analyser, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Analyser{
		params:   params,
		window:   windowing.NewBlackman(params.FFTSize, false),
		fft:      NewFFT(),
		frame:    make([]float64, params.FFTSize),
		smoothed: make([]float64, params.FFTSize/2),
	}, nil
}

// FrequencyBinCount returns the number of bins in each spectrum (FFTSize/2).
func (a *Analyser) FrequencyBinCount() int {
	return a.params.FFTSize / 2
}

// BinFrequency returns the centre frequency in Hz of bin k.
func (a *Analyser) BinFrequency(k, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(a.params.FFTSize)
}

// ByteFrequencyData analyses the most recent FFTSize samples (zero padded at
// the front when fewer are supplied) and returns FrequencyBinCount bytes.
func (a *Analyser) ByteFrequencyData(samples []float64) []uint8 {
	n := a.params.FFTSize
	for i := range a.frame {
		a.frame[i] = 0
	}
	if len(samples) >= n {
		copy(a.frame, samples[len(samples)-n:])
	} else {
		copy(a.frame[n-len(samples):], samples)
	}
	if err := a.window.ApplyTo(a.frame, a.frame); err != nil {
		panic(err)
	}

	mags := a.fft.Magnitudes(a.frame, len(a.smoothed))
	tau := a.params.SmoothingTimeConstant
	dbRange := a.params.MaxDecibels - a.params.MinDecibels

	out := make([]uint8, len(a.smoothed))
	for k, m := range mags {
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*m/float64(n)

		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		scaled := math.Floor(255 / dbRange * (db - a.params.MinDecibels))
		switch {
		case math.IsInf(scaled, -1) || scaled < 0:
			out[k] = 0
		case scaled > 255:
			out[k] = 255
		default:
			out[k] = uint8(scaled)
		}
	}
	return out
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}
