package tonal

import (
	"math"
	"testing"
)

func TestNoteName(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{440, "A4"},
		{220, "A3"},
		{880, "A5"},
		{466.16, "A#4"},
		{452, "A4"}, // within half a semitone
		{415.3, "G#3"},
		{493.88, "B4"},
		{523.25, "C4"}, // octaves roll over at A
		{110, "A2"},
		{0, ""},
		{-5, ""},
		{math.NaN(), ""},
	}
	for _, tc := range tests {
		if got := NoteName(tc.freq); got != tc.want {
			t.Errorf("NoteName(%v) = %q, want %q", tc.freq, got, tc.want)
		}
	}
}

func TestNearestNoteCents(t *testing.T) {
	n, ok := NearestNote(NoteFrequency(3) * math.Pow(2, 20.0/1200))
	if !ok {
		t.Fatal("expected ok")
	}
	if n.Semitones != 3 || math.Abs(n.Cents-20) > 1e-6 {
		t.Fatalf("got %+v, want 3 semitones +20 cents", n)
	}
}
