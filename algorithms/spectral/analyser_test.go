package spectral

import (
	"math"
	"testing"
)

func sine(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestAnalyserPeakBin(t *testing.T) {
	const sampleRate = 44100
	a, err := NewAnalyser(DefaultAnalyserParams())
	if err != nil {
		t.Fatal(err)
	}
	if a.FrequencyBinCount() != 1024 {
		t.Fatalf("FrequencyBinCount = %d, want 1024", a.FrequencyBinCount())
	}

	// 1000 Hz lands on bin 1000*2048/44100 ≈ 46.4.
	frame := sine(1000, sampleRate, 2048, 0.5)
	var data []uint8
	for range 20 {
		data = a.ByteFrequencyData(frame)
	}

	peak := 0
	for k := range data {
		if data[k] > data[peak] {
			peak = k
		}
	}
	if math.Abs(a.BinFrequency(peak, sampleRate)-1000) > 2*float64(sampleRate)/2048 {
		t.Fatalf("peak bin %d (%.1f Hz), want ~1000 Hz", peak, a.BinFrequency(peak, sampleRate))
	}
	if data[peak] < 200 {
		t.Fatalf("peak magnitude %d unexpectedly low", data[peak])
	}
	if data[len(data)-1] > data[peak]/2 {
		t.Fatalf("high bins not attenuated: %d", data[len(data)-1])
	}
}

func TestAnalyserSilenceIsZero(t *testing.T) {
	a, err := NewAnalyser(DefaultAnalyserParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range a.ByteFrequencyData(make([]float64, 512)) {
		if v != 0 {
			t.Fatalf("silence produced byte %d", v)
		}
	}
}

func TestAnalyserAnyInputLength(t *testing.T) {
	a, err := NewAnalyser(DefaultAnalyserParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, 1, 2047, 2048, 4096} {
		if got := len(a.ByteFrequencyData(sine(440, 44100, n, 0.5))); got != a.FrequencyBinCount() {
			t.Fatalf("%d samples: %d bins, want %d", n, got, a.FrequencyBinCount())
		}
	}
}

func TestAnalyserSmoothingDecays(t *testing.T) {
	a, err := NewAnalyser(DefaultAnalyserParams())
	if err != nil {
		t.Fatal(err)
	}
	loud := sine(500, 44100, 2048, 0.8)
	first := a.ByteFrequencyData(loud)
	second := a.ByteFrequencyData(loud)

	bin := int(math.Round(500 * 2048 / 44100.0))
	if second[bin] < first[bin] {
		t.Fatalf("smoothing should build up: %d then %d", first[bin], second[bin])
	}

	a.Reset()
	after := a.ByteFrequencyData(make([]float64, 2048))
	if after[bin] != 0 {
		t.Fatalf("Reset kept smoothing state: %d", after[bin])
	}
}

func TestAnalyserParamsValidate(t *testing.T) {
	bad := []AnalyserParams{
		{FFTSize: 31, SmoothingTimeConstant: 0.8, MinDecibels: -90, MaxDecibels: -10},
		{FFTSize: 2048, SmoothingTimeConstant: 1, MinDecibels: -90, MaxDecibels: -10},
		{FFTSize: 2048, SmoothingTimeConstant: 0.5, MinDecibels: -10, MaxDecibels: -90},
	}
	for i, p := range bad {
		if _, err := NewAnalyser(p); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestFrequencyBars(t *testing.T) {
	data := make([]uint8, 1024)
	for i := range data {
		data[i] = uint8(i % 256)
	}
	bars := FrequencyBars(data, 32)
	if len(bars) != 32 {
		t.Fatalf("len = %d, want 32", len(bars))
	}
	// step = 32, so bar 1 samples bin 32.
	if bars[1] != 32.0/255 {
		t.Fatalf("bars[1] = %v", bars[1])
	}
	if got := FrequencyBars(data[:10], 32); len(got) != 10 {
		t.Fatalf("short spectrum should yield one bar per bin, got %d", len(got))
	}
}

func TestAudioLevelAndHeatColor(t *testing.T) {
	full := []uint8{255, 255}
	if AudioLevel(full) != 100 {
		t.Fatalf("AudioLevel = %v, want 100", AudioLevel(full))
	}
	if AudioLevel(nil) != 0 {
		t.Fatal("empty level should be 0")
	}

	lo, hi := HeatColor(0), HeatColor(255)
	if lo != (HSL{260, 70, 30}) || hi != (HSL{300, 100, 70}) {
		t.Fatalf("HeatColor ramp endpoints = %+v %+v", lo, hi)
	}
}

func TestSpectrogramHistoryBounded(t *testing.T) {
	h := NewSpectrogramHistory(3)
	for i := range 5 {
		h.Push([]uint8{uint8(i)})
	}
	frames := h.Frames()
	if len(frames) != 3 || frames[0][0] != 2 || frames[2][0] != 4 {
		t.Fatalf("frames = %v", frames)
	}
	h.Clear()
	if h.Len() != 0 {
		t.Fatal("Clear left frames behind")
	}
}

func TestHSLHex(t *testing.T) {
	tests := []struct {
		c    HSL
		want string
	}{
		{HSL{0, 100, 50}, "#ff0000"},
		{HSL{300, 100, 50}, "#ff00ff"},
		{HSL{0, 0, 100}, "#ffffff"},
		{HSL{42, 0, 50}, "#808080"},
		{HSL{0, 100, 0}, "#000000"},
	}
	for _, tc := range tests {
		if got := tc.c.Hex(); got != tc.want {
			t.Errorf("%+v.Hex() = %s, want %s", tc.c, got, tc.want)
		}
	}
}
