package tonal

import (
	"math"
	"math/rand/v2"
	"testing"
)

func sineFrame(freq float64, sampleRate, n int, amp, offset float64) SampleFrame {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = offset + amp*math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return SampleFrame{Samples: samples, SampleRate: sampleRate}
}

func TestDetectPureTones(t *testing.T) {
	pd := NewPitchDetector()
	setups := []struct {
		sampleRate int
		frameSize  int
	}{
		{44100, 2048},
		{48000, 2048},
		{16000, 1024},
	}
	freqs := []float64{100, 150, 220, 300, 440, 500}

	for _, s := range setups {
		for _, f := range freqs {
			est := pd.Detect(sineFrame(f, s.sampleRate, s.frameSize, 0.5, 0))
			if !est.Voiced {
				t.Errorf("%d Hz/%d: %.0f Hz tone reported unvoiced", s.sampleRate, s.frameSize, f)
				continue
			}
			if math.Abs(est.Frequency-f)/f > 0.02 {
				t.Errorf("%d Hz/%d: detected %.2f Hz for %.0f Hz tone", s.sampleRate, s.frameSize, est.Frequency, f)
			}
			if est.Confidence <= pd.Params().ConfidenceThreshold || est.Confidence > 1 {
				t.Errorf("%d Hz/%d: confidence %.3f out of range for %.0f Hz", s.sampleRate, s.frameSize, est.Confidence, f)
			}
		}
	}
}

func TestDetectIgnoresDCOffset(t *testing.T) {
	pd := NewPitchDetector()
	est := pd.Detect(sineFrame(200, 44100, 2048, 0.3, 0.4))
	if !est.Voiced || math.Abs(est.Frequency-200) > 4 {
		t.Fatalf("offset tone: %+v", est)
	}
}

func TestDetectSilenceGate(t *testing.T) {
	pd := NewPitchDetector()
	frames := map[string]SampleFrame{
		"zeros":       {Samples: make([]float64, 2048), SampleRate: 44100},
		"quiet tone":  sineFrame(200, 44100, 2048, 0.01, 0),
		"pure offset": sineFrame(200, 44100, 2048, 0, 0.5),
		"short frame": {Samples: make([]float64, 64), SampleRate: 8000},
		"no rate":     sineFrame(200, 44100, 2048, 0.5, 0),
	}
	noRate := frames["no rate"]
	noRate.SampleRate = 0
	frames["no rate"] = noRate

	for name, frame := range frames {
		est := pd.Detect(frame)
		if est != Unvoiced {
			t.Errorf("%s: got %+v, want unvoiced", name, est)
		}
	}
}

func TestDetectRejectsNoise(t *testing.T) {
	pd := NewPitchDetector()
	rng := rand.New(rand.NewPCG(7, 11))
	samples := make([]float64, 2048)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}
	if est := pd.Detect(SampleFrame{Samples: samples, SampleRate: 44100}); est.Voiced {
		t.Fatalf("white noise reported voiced: %+v", est)
	}
}

// maxCorrelation is a direct evaluation of the largest normalized
// autocorrelation over the detector's lag range.
func maxCorrelation(pd *PitchDetector, frame SampleFrame) float64 {
	minLag, maxLag, _ := pd.LagRange(frame.SampleRate, len(frame.Samples))
	var mean float64
	for _, v := range frame.Samples {
		mean += v
	}
	mean /= float64(len(frame.Samples))
	x := make([]float64, len(frame.Samples))
	for i, v := range frame.Samples {
		x[i] = v - mean
	}

	best := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		var num, den float64
		for i := 0; i < len(x)-lag; i++ {
			num += x[i] * x[i+lag]
			den += x[i] * x[i]
		}
		if den > 0 && num/den > best {
			best = num / den
		}
	}
	return best
}

func TestDetectConfidenceIsMaxCorrelation(t *testing.T) {
	pd := NewPitchDetector()
	threshold := pd.Params().ConfidenceThreshold
	rng := rand.New(rand.NewPCG(3, 5))
	const sampleRate, n = 44100, 2048

	for range 400 {
		f := 90 + rng.Float64()*310
		noise := 0.3 + rng.Float64()*0.7
		frame := sineFrame(f, sampleRate, n, 0.5, 0)
		for i := range frame.Samples {
			frame.Samples[i] += noise * (rng.Float64()*2 - 1)
		}

		want := maxCorrelation(pd, frame)
		est := pd.Detect(frame)
		if math.Abs(want-threshold) < 1e-9 {
			continue
		}
		if want > threshold && !est.Voiced {
			t.Errorf("%.1f Hz noise %.2f: max correlation %.4f above threshold but unvoiced", f, noise, want)
			continue
		}
		if want <= threshold && est.Voiced {
			t.Errorf("%.1f Hz noise %.2f: max correlation %.4f below threshold but voiced %+v", f, noise, want, est)
			continue
		}
		if est.Voiced && math.Abs(est.Confidence-math.Min(want, 1)) > 1e-9 {
			t.Errorf("%.1f Hz noise %.2f: confidence %.6f, max correlation %.6f", f, noise, est.Confidence, want)
		}
	}
}

func TestDetectOutOfBand(t *testing.T) {
	params := DefaultPitchDetectionParams()
	params.MaxFreq = 500
	pd, err := NewPitchDetectorWithParams(params)
	if err != nil {
		t.Fatal(err)
	}
	// 40 Hz has its period outside the lag range; whatever peak wins must
	// still respect the band.
	est := pd.Detect(sineFrame(40, 16000, 1024, 0.5, 0))
	if est.Voiced && (est.Frequency < params.MinFreq || est.Frequency > params.MaxFreq) {
		t.Fatalf("estimate outside band: %+v", est)
	}
}

func TestLagRange(t *testing.T) {
	pd := NewPitchDetector()
	minLag, maxLag, ok := pd.LagRange(44100, 2048)
	if !ok || minLag != 73 || maxLag != 551 {
		t.Fatalf("LagRange = %d, %d, %v", minLag, maxLag, ok)
	}
	// Half-frame clamp.
	_, maxLag, _ = pd.LagRange(44100, 512)
	if maxLag != 255 {
		t.Fatalf("clamped maxLag = %d, want 255", maxLag)
	}
}

func TestParamsValidate(t *testing.T) {
	bad := []PitchDetectionParams{
		{MinFreq: 0, MaxFreq: 500},
		{MinFreq: 500, MaxFreq: 80},
		{MinFreq: 80, MaxFreq: 500, MinVolume: -1},
		{MinFreq: 80, MaxFreq: 500, ConfidenceThreshold: 1.5},
		{MinFreq: 80, MaxFreq: 500, OctaveTolerance: 2},
	}
	for i, p := range bad {
		if _, err := NewPitchDetectorWithParams(p); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func BenchmarkDetect(b *testing.B) {
	pd := NewPitchDetector()
	frame := sineFrame(180, 44100, 2048, 0.5, 0)
	b.ReportAllocs()
	for b.Loop() {
		pd.Detect(frame)
	}
}
