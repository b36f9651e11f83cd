package filters

import (
	"math"
	"testing"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	const sampleRate = 16000
	dc := NewDCBlocker(sampleRate, 10)

	buf := make([]float64, sampleRate)
	for i := range buf {
		buf[i] = 0.3 + 0.2*math.Sin(2*math.Pi*200*float64(i)/sampleRate)
	}
	dc.ProcessInPlace(buf)

	// Average over the last 100 ms, well after the filter settled.
	tail := buf[len(buf)-sampleRate/10:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	if mean := sum / float64(len(tail)); math.Abs(mean) > 0.01 {
		t.Fatalf("residual DC = %.4f", mean)
	}
}

func TestDCBlockerCutoffRoundTrip(t *testing.T) {
	dc := NewDCBlocker(44100, 20)
	if got := dc.CutoffFrequency(44100); math.Abs(got-20) > 1e-9 {
		t.Fatalf("CutoffFrequency = %v, want 20", got)
	}
	if NewDCBlocker(0, 0).Pole() != 0.995 {
		t.Fatal("default pole should be 0.995")
	}
}

func TestDCBlockerReset(t *testing.T) {
	dc := NewDCBlocker(8000, 5)
	dc.Process(1)
	dc.Reset()
	if got := dc.Process(0); got != 0 {
		t.Fatalf("state leaked across Reset: %v", got)
	}
}
