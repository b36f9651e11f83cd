package tracker

import (
	"math"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
)

// Direction classifies the latest movement of the displayed pitch.
type Direction int

const (
	Unknown Direction = iota
	Up
	Down
	Stable
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Stable:
		return "stable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Arrow returns a one-rune glyph for terminal views.
func (d Direction) Arrow() string {
	switch d {
	case Up:
		return "↑"
	case Down:
		return "↓"
	case Stable:
		return "→"
	default:
		return "·"
	}
}

// SmoothingParams tunes the Smoother.
type SmoothingParams struct {
	// Window is the rolling mean capacity.
	Window int
	// MinChange separates large moves (LerpFactor) from jitter (GentleFactor).
	MinChange    float64
	LerpFactor   float64
	GentleFactor float64
	// DirectionThreshold is the deadband for Up/Down classification.
	DirectionThreshold float64
	// FadeFactor scales the displayed value on every unvoiced tick until it
	// drops below FadeFloor.
	FadeFactor float64
	FadeFloor  float64
}

// DefaultSmoothingParams returns the calibrated-variant tuning.
func DefaultSmoothingParams() SmoothingParams {
	return SmoothingParams{
		Window:             8,
		MinChange:          5,
		LerpFactor:         0.3,
		GentleFactor:       0.1,
		DirectionThreshold: 2,
		FadeFactor:         0.95,
		FadeFloor:          10,
	}
}

// SmootherOutput is the displayed pitch for one tick. Displayed is
// meaningful only when Present is true.
type SmootherOutput struct {
	Displayed float64   `json:"displayed"`
	Present   bool      `json:"present"`
	Direction Direction `json:"direction"`
	At        time.Time `json:"-"`
}

// Sample returns the output as a trail sample.
func (o SmootherOutput) Sample() SmoothedSample {
	return SmoothedSample{Value: o.Displayed, Timestamp: o.At}
}

// Smoother turns per-frame estimates into a stable displayed pitch: a
// rolling mean followed by an adaptive blend with the previous value, and an
// exponential fade across unvoiced gaps. It is owned by one session and is
// not safe for concurrent use.
type Smoother struct {
	params  SmoothingParams
	window  *common.RingBuffer
	last    float64
	hasLast bool
}

// NewSmoother creates a smoother.
func NewSmoother(params SmoothingParams) *Smoother {
	return &Smoother{
		params: params,
		window: common.NewRingBuffer(params.Window),
	}
}

// Update advances the smoother by one tick.
func (s *Smoother) Update(est tonal.PitchEstimate, now time.Time) SmootherOutput {
	if est.Voiced {
		s.window.Push(est.Frequency)
		avg := s.window.Mean()

		next := avg
		if s.hasLast {
			factor := s.params.GentleFactor
			if math.Abs(avg-s.last) > s.params.MinChange {
				factor = s.params.LerpFactor
			}
			next = common.Lerp(s.last, avg, factor)
		}
		return s.emit(next, now)
	}

	if !s.hasLast {
		return SmootherOutput{Direction: Unknown, At: now}
	}
	next := s.last * s.params.FadeFactor
	if next < s.params.FadeFloor {
		s.Reset()
		return SmootherOutput{Direction: Unknown, At: now}
	}
	return s.emit(next, now)
}

func (s *Smoother) emit(next float64, now time.Time) SmootherOutput {
	dir := Stable
	if s.hasLast {
		switch delta := next - s.last; {
		case delta > s.params.DirectionThreshold:
			dir = Up
		case delta < -s.params.DirectionThreshold:
			dir = Down
		}
	}
	s.last, s.hasLast = next, true
	return SmootherOutput{Displayed: next, Present: true, Direction: dir, At: now}
}

// Last returns the previous displayed value.
func (s *Smoother) Last() (float64, bool) {
	return s.last, s.hasLast
}

// Reset forgets the displayed value and the rolling window.
func (s *Smoother) Reset() {
	s.window.Clear()
	s.last, s.hasLast = 0, false
}
