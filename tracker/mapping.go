package tracker

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// Range is a frequency interval in Hz.
type Range struct {
	MinHz float64 `json:"min_hz"`
	MaxHz float64 `json:"max_hz"`
}

// Span returns MaxHz - MinHz.
func (r Range) Span() float64 {
	return r.MaxHz - r.MinHz
}

// Contains reports whether f lies in the closed interval.
func (r Range) Contains(f float64) bool {
	return f >= r.MinHz && f <= r.MaxHz
}

// RangeFor returns the calibrated range when cal has one, else band.
func RangeFor(cal *CalibrationState, band Range) Range {
	if cal != nil {
		if r, ok := cal.Range(); ok {
			return r
		}
	}
	return band
}

// FrequencyMapper places frequencies on the vertical axis of a display.
// Top and Bottom are fractions of the drawing height measured from the top
// edge; low frequencies land at Bottom.
type FrequencyMapper struct {
	Top    float64
	Bottom float64
}

// NewFrequencyMapper returns a mapper over the given vertical extent.
func NewFrequencyMapper(top, bottom float64) FrequencyMapper {
	return FrequencyMapper{Top: top, Bottom: bottom}
}

// Normalize maps freq to [0,1] within r. A degenerate range maps to 0.5.
func (m FrequencyMapper) Normalize(freq float64, r Range) float64 {
	span := r.Span()
	if span <= 0 {
		return 0.5
	}
	return common.Clamp((freq-r.MinHz)/span, 0, 1)
}

// ToDisplayPosition returns the vertical position of freq as a fraction of
// the drawing height, always within [Top, Bottom].
func (m FrequencyMapper) ToDisplayPosition(freq float64, r Range) float64 {
	return m.Bottom - m.Normalize(freq, r)*(m.Bottom-m.Top)
}

// Row converts a display position to a row index of a grid of the given
// height.
func (m FrequencyMapper) Row(position float64, height int) int {
	if height <= 0 {
		return 0
	}
	row := int(position * float64(height))
	return min(max(row, 0), height-1)
}
