package tracker

import (
	"math"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
)

// CalibrationPhase is the state of range learning.
type CalibrationPhase int

const (
	PhaseCalibrating CalibrationPhase = iota
	PhaseCalibrated
)

func (p CalibrationPhase) String() string {
	if p == PhaseCalibrated {
		return "calibrated"
	}
	return "calibrating"
}

// MarshalText encodes the phase by name.
func (p CalibrationPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CalibrationState is either Calibrating{StartedAt, MinSeen, MaxSeen} or
// Calibrated{MinHz, MaxHz}. MinSeen and MaxSeen are meaningful only when
// Seen is true.
type CalibrationState struct {
	Phase     CalibrationPhase `json:"phase"`
	StartedAt time.Time        `json:"started_at"`
	Seen      bool             `json:"seen"`
	MinSeen   float64          `json:"min_seen,omitempty"`
	MaxSeen   float64          `json:"max_seen,omitempty"`
	MinHz     float64          `json:"min_hz,omitempty"`
	MaxHz     float64          `json:"max_hz,omitempty"`
}

// Calibrated reports whether the range has been learned.
func (s CalibrationState) Calibrated() bool {
	return s.Phase == PhaseCalibrated
}

// Range returns the learned range once calibrated.
func (s CalibrationState) Range() (Range, bool) {
	if !s.Calibrated() {
		return Range{}, false
	}
	return Range{MinHz: s.MinHz, MaxHz: s.MaxHz}, true
}

// CalibrationParams configures a Calibrator.
type CalibrationParams struct {
	Duration time.Duration
	MinSpan  float64
	// Band is the absolute detectable range the result is clamped to.
	Band Range
}

// DefaultCalibrationParams returns a 3 s window, 50 Hz span and the default
// detector band.
func DefaultCalibrationParams() CalibrationParams {
	return CalibrationParams{
		Duration: 3 * time.Second,
		MinSpan:  50,
		Band:     Range{MinHz: tonal.DefaultMinPitch, MaxHz: tonal.DefaultMaxPitch},
	}
}

// Calibrator learns the subject's usable pitch range from the estimates of
// the first seconds of a session. It is owned by one session and is not safe
// for concurrent use.
type Calibrator struct {
	params CalibrationParams
	state  CalibrationState
}

// NewCalibrator returns a calibrator whose window opens at now.
func NewCalibrator(params CalibrationParams, now time.Time) *Calibrator {
	c := &Calibrator{params: params}
	c.Reset(now)
	return c
}

// Reset discards any learned bounds and reopens the window at now.
func (c *Calibrator) Reset(now time.Time) {
	c.state = CalibrationState{Phase: PhaseCalibrating, StartedAt: now}
}

// State returns the current state.
func (c *Calibrator) State() CalibrationState {
	return c.state
}

// Observe feeds one estimate. Voiced pitches inside the window widen the
// observed bounds; the first voiced pitch after the window closes finalizes
// the range. Calibrated is terminal until Reset.
func (c *Calibrator) Observe(est tonal.PitchEstimate, now time.Time) CalibrationState {
	if c.state.Calibrated() || !est.Voiced {
		return c.state
	}

	if now.Sub(c.state.StartedAt) < c.params.Duration {
		c.widen(est.Frequency)
		return c.state
	}

	// Post-window pitch only counts when the window itself saw nothing.
	if !c.state.Seen {
		c.widen(est.Frequency)
	}
	lo, hi := enforceSpan(c.state.MinSeen, c.state.MaxSeen, c.params.MinSpan, c.params.Band)
	c.state = CalibrationState{
		Phase:     PhaseCalibrated,
		StartedAt: c.state.StartedAt,
		MinHz:     lo,
		MaxHz:     hi,
	}
	return c.state
}

func (c *Calibrator) widen(f float64) {
	if !c.state.Seen {
		c.state.Seen = true
		c.state.MinSeen, c.state.MaxSeen = f, f
		return
	}
	c.state.MinSeen = math.Min(c.state.MinSeen, f)
	c.state.MaxSeen = math.Max(c.state.MaxSeen, f)
}

// enforceSpan widens [lo, hi] symmetrically around its center to at least
// minSpan, then shifts it back inside band. The result keeps minSpan whenever
// the band itself is that wide.
func enforceSpan(lo, hi, minSpan float64, band Range) (float64, float64) {
	if hi-lo < minSpan {
		center := (lo + hi) / 2
		lo, hi = center-minSpan/2, center+minSpan/2
	}
	if lo < band.MinHz {
		hi += band.MinHz - lo
		lo = band.MinHz
	}
	if hi > band.MaxHz {
		lo -= hi - band.MaxHz
		hi = band.MaxHz
	}
	return math.Max(lo, band.MinHz), hi
}
