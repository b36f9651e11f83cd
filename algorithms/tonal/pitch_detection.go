package tonal

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// Detection band and gates shared by every tracker variant.
const (
	DefaultMinPitch            = 80.0
	DefaultMaxPitch            = 600.0
	DefaultMinVolume           = 0.001
	DefaultConfidenceThreshold = 0.6
	DefaultOctaveTolerance     = 0.02
)

// SampleFrame is a fixed-size window of time-domain samples normalized to
// [-1, 1]. A frame is immutable once produced.
type SampleFrame struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// Duration returns the wall-clock span the frame covers.
func (f SampleFrame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// PitchEstimate is the per-frame detector output. An unvoiced frame has
// Voiced == false, Frequency == 0 and Confidence == 0.
type PitchEstimate struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Voiced     bool    `json:"voiced"`
}

// Unvoiced is the estimate returned for silent, noisy or out-of-band frames.
var Unvoiced = PitchEstimate{}

// PitchDetectionParams contains parameters for pitch detection
type PitchDetectionParams struct {
	// Frequency range constraints
	MinFreq float64 `json:"min_freq" yaml:"min_pitch"` // Minimum frequency (Hz)
	MaxFreq float64 `json:"max_freq" yaml:"max_pitch"` // Maximum frequency (Hz)

	// MinVolume is the mean-square energy below which a frame is treated as
	// silence.
	MinVolume float64 `json:"min_volume" yaml:"min_volume"`

	// ConfidenceThreshold is the normalized autocorrelation a peak must
	// exceed to be reported as voiced.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// OctaveTolerance lets a shorter period win when its correlation is
	// within this distance of the global maximum. Periodic signals correlate
	// almost equally at every multiple of their period.
	OctaveTolerance float64 `json:"octave_tolerance" yaml:"octave_tolerance"`

	// Interpolate enables parabolic refinement of the winning lag.
	Interpolate bool `json:"interpolate" yaml:"interpolate"`
}

// DefaultPitchDetectionParams returns the voice-band defaults.
func DefaultPitchDetectionParams() PitchDetectionParams {
	return PitchDetectionParams{
		MinFreq:             DefaultMinPitch,
		MaxFreq:             DefaultMaxPitch,
		MinVolume:           DefaultMinVolume,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		OctaveTolerance:     DefaultOctaveTolerance,
		Interpolate:         true,
	}
}

// Validate reports parameter values the detector cannot work with.
func (p PitchDetectionParams) Validate() error {
	if p.MinFreq <= 0 || p.MaxFreq <= p.MinFreq {
		return fmt.Errorf("pitch band [%v, %v] Hz is empty", p.MinFreq, p.MaxFreq)
	}
	if p.MinVolume < 0 {
		return fmt.Errorf("min_volume must be >= 0, got %v", p.MinVolume)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %v", p.ConfidenceThreshold)
	}
	if p.OctaveTolerance < 0 || p.OctaveTolerance > 1 {
		return fmt.Errorf("octave_tolerance must be in [0,1], got %v", p.OctaveTolerance)
	}
	return nil
}

// PitchDetector estimates the fundamental frequency of monophonic voice with
// normalized autocorrelation.
//
// References:
// - Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
// - McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
//
// Detect allocates per call and keeps no state between frames, so a single
// detector may be shared by concurrent callers.
type PitchDetector struct {
	params PitchDetectionParams
}

// NewPitchDetector creates a detector with default parameters.
func NewPitchDetector() *PitchDetector {
	return &PitchDetector{params: DefaultPitchDetectionParams()}
}

// NewPitchDetectorWithParams creates a detector with custom parameters.
func NewPitchDetectorWithParams(params PitchDetectionParams) (*PitchDetector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &PitchDetector{params: params}, nil
}

// Params returns the detector configuration.
func (pd *PitchDetector) Params() PitchDetectionParams {
	return pd.params
}

// LagRange returns the inclusive autocorrelation lag range searched for a
// frame of n samples at sampleRate. ok is false when the range is empty.
func (pd *PitchDetector) LagRange(sampleRate, n int) (minLag, maxLag int, ok bool) {
	if sampleRate <= 0 {
		return 0, 0, false
	}
	minLag = int(math.Floor(float64(sampleRate) / pd.params.MaxFreq))
	maxLag = int(math.Floor(float64(sampleRate) / pd.params.MinFreq))
	if minLag < 1 {
		minLag = 1
	}
	if limit := n/2 - 1; maxLag > limit {
		maxLag = limit
	}
	return minLag, maxLag, minLag <= maxLag
}

// Detect estimates the pitch of one frame. It never fails: silence, noise
// and out-of-band results are all reported as Unvoiced.
func (pd *PitchDetector) Detect(frame SampleFrame) PitchEstimate {
	n := len(frame.Samples)
	minLag, maxLag, ok := pd.LagRange(frame.SampleRate, n)
	if !ok {
		return Unvoiced
	}

	x := common.SubtractMean(frame.Samples)
	if energy := common.MeanSquare(x); energy < pd.params.MinVolume || math.IsNaN(energy) {
		return Unvoiced
	}

	corr := pd.normalizedAutocorrelation(x, minLag, maxLag)
	best, peak := pd.pickLag(corr)
	if best < 0 {
		return Unvoiced
	}

	confidence := corr[peak]
	if confidence <= pd.params.ConfidenceThreshold {
		return Unvoiced
	}

	period := float64(best + minLag)
	if pd.params.Interpolate {
		period = common.ParabolicPeak(corr, best) + float64(minLag)
	}
	frequency := float64(frame.SampleRate) / period
	if frequency < pd.params.MinFreq || frequency > pd.params.MaxFreq {
		return Unvoiced
	}

	return PitchEstimate{
		Frequency:  frequency,
		Confidence: math.Min(confidence, 1),
		Voiced:     true,
	}
}

// normalizedAutocorrelation returns r[lag-minLag] = Σx[i]x[i+lag] / Σx[i]²
// over the overlap i ∈ [0, n-lag). The denominators come from a prefix sum of
// squares so each lag costs a single dot product.
func (pd *PitchDetector) normalizedAutocorrelation(x []float64, minLag, maxLag int) []float64 {
	n := len(x)
	squares := make([]float64, n)
	floats.MulTo(squares, x, x)
	energy := make([]float64, n)
	floats.CumSum(energy, squares)

	corr := make([]float64, maxLag-minLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		overlap := n - lag
		denom := energy[overlap-1]
		if denom <= 0 {
			continue
		}
		corr[lag-minLag] = floats.Dot(x[:overlap], x[lag:]) / denom
	}
	return corr
}

// pickLag returns the index of the winning lag in corr and the index of the
// global maximum, or -1 for both. The winner is the shortest local peak whose
// correlation lies within OctaveTolerance of the maximum; when no interior
// peak qualifies the maximum wins. The period comes from the winner, the
// confidence from the maximum.
func (pd *PitchDetector) pickLag(corr []float64) (best, maxIdx int) {
	if len(corr) == 0 {
		return -1, -1
	}
	maxIdx = floats.MaxIdx(corr)
	maxVal := corr[maxIdx]
	if maxVal <= 0 {
		return -1, -1
	}

	floor := maxVal - pd.params.OctaveTolerance
	for i := 1; i < len(corr)-1; i++ {
		if corr[i] >= floor && corr[i] >= corr[i-1] && corr[i] >= corr[i+1] {
			return i, maxIdx
		}
	}
	return maxIdx, maxIdx
}
