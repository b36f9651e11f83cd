package tonal

import (
	"fmt"
	"math"
)

// ReferenceA4 is the tuning anchor of the equal-tempered note table.
const ReferenceA4 = 440.0

// noteNames is indexed by semitone distance from A, modulo 12.
var noteNames = [12]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// Note is a frequency snapped to the nearest equal-tempered semitone.
type Note struct {
	Name      string  `json:"name"`
	Octave    int     `json:"octave"`
	Semitones int     `json:"semitones"` // distance from A4
	Cents     float64 `json:"cents"`     // deviation from the snapped semitone
}

// String renders the note as name plus octave, e.g. "A4".
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// NearestNote snaps frequency to the nearest semitone of the A4 = 440 Hz
// table. Octaves are counted from A: every step of twelve semitones away from
// A4 changes the octave number. ok is false for non-positive or non-finite
// input.
func NearestNote(frequency float64) (note Note, ok bool) {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return Note{}, false
	}
	exact := 12 * math.Log2(frequency/ReferenceA4)
	semitones := int(math.Round(exact))
	return Note{
		Name:      noteNames[((semitones%12)+12)%12],
		Octave:    int(math.Floor(float64(semitones)/12)) + 4,
		Semitones: semitones,
		Cents:     100 * (exact - float64(semitones)),
	}, true
}

// NoteName returns the approximate note name of frequency, e.g. "A4", or
// the empty string when frequency is not a positive finite number.
func NoteName(frequency float64) string {
	n, ok := NearestNote(frequency)
	if !ok {
		return ""
	}
	return n.String()
}

// NoteFrequency returns the frequency of the note semitones away from A4.
func NoteFrequency(semitones int) float64 {
	return ReferenceA4 * math.Pow(2, float64(semitones)/12)
}
