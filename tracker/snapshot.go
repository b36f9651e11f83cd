package tracker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
)

// State is the recording lifecycle of an Engine.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the immutable view of one processed frame that renderers read.
// Slices are owned by the snapshot and must not be modified.
type Snapshot struct {
	State     State
	SessionID string
	StartedAt time.Time
	// At is the clock reading of the frame; StoppedAt is set once stopped.
	At        time.Time
	StoppedAt time.Time
	Elapsed   time.Duration

	Pitch  tonal.PitchEstimate
	Output SmootherOutput

	// Calibration is nil when the variant does not calibrate.
	Calibration *CalibrationState
	Range       Range
	// Position and Note describe Output.Displayed and are set only when it
	// is present.
	Position float64
	Note     string

	Trail []SmoothedSample

	// Spectral views, populated in the heat-map and bars display modes.
	Spectrum    []uint8
	Bars        []float64
	Level       float64
	Spectrogram [][]uint8
}

// Spectral reports whether the snapshot carries spectrum views.
func (s *Snapshot) Spectral() bool {
	return s.Spectrum != nil
}

// TrailPoint is a trail sample on the wire, timed relative to session start.
type TrailPoint struct {
	Value float64 `json:"value"`
	TMs   int64   `json:"t_ms"`
}

// TrailPoints returns the trail timed in milliseconds since StartedAt.
func (s *Snapshot) TrailPoints() []TrailPoint {
	points := make([]TrailPoint, len(s.Trail))
	for i, p := range s.Trail {
		points[i] = TrailPoint{Value: p.Value, TMs: p.Timestamp.Sub(s.StartedAt).Milliseconds()}
	}
	return points
}

type wireSnapshot struct {
	Type        string              `json:"type"`
	State       State               `json:"state"`
	SessionID   string              `json:"session_id,omitempty"`
	Elapsed     string              `json:"elapsed"`
	Pitch       tonal.PitchEstimate `json:"pitch"`
	Displayed   float64             `json:"displayed"`
	Present     bool                `json:"present"`
	Direction   Direction           `json:"direction"`
	Calibration *CalibrationState   `json:"calibration,omitempty"`
	Range       Range               `json:"range"`
	Position    *float64            `json:"position,omitempty"`
	Note        string              `json:"note,omitempty"`
	Trail       []TrailPoint        `json:"trail"`
	Spectrum    []int               `json:"spectrum,omitempty"`
	Bars        []float64           `json:"bars,omitempty"`
	Level       *float64            `json:"level,omitempty"`
}

// MarshalJSON encodes the feed message form of the snapshot. The
// spectrogram history is left to the client, which accumulates spectra.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		Type:        "snapshot",
		State:       s.State,
		SessionID:   s.SessionID,
		Elapsed:     FormatElapsed(s.Elapsed),
		Pitch:       s.Pitch,
		Displayed:   s.Output.Displayed,
		Present:     s.Output.Present,
		Direction:   s.Output.Direction,
		Calibration: s.Calibration,
		Range:       s.Range,
		Note:        s.Note,
		Trail:       s.TrailPoints(),
		Bars:        s.Bars,
	}
	if s.Output.Present {
		pos := s.Position
		w.Position = &pos
	}
	if s.Spectral() {
		w.Spectrum = make([]int, len(s.Spectrum))
		for i, v := range s.Spectrum {
			w.Spectrum[i] = int(v)
		}
		level := s.Level
		w.Level = &level
	}
	return json.Marshal(w)
}

// FormatElapsed renders d as mm:ss, truncating to whole seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
