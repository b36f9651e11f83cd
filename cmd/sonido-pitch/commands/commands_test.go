package commands

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/tracker"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// tone returns seconds of a sine at freq followed by trailing silence.
func tone(freq float64, rate int, seconds, silence float64) []float64 {
	n := int(seconds * float64(rate))
	samples := make([]float64, n+int(silence*float64(rate)))
	for i := range n {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return samples
}

func TestConfigCommandPrintsPreset(t *testing.T) {
	stdout, _, err := runCmd(t, "config", "--variant", "raw")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(stdout, "variant: raw") {
		t.Fatalf("output missing variant:\n%s", stdout)
	}
	cfg, err := config.LoadFromReader(strings.NewReader(stdout))
	if err != nil {
		t.Fatalf("printed config does not load: %v", err)
	}
	if cfg.Smoothing.Window != 1 || cfg.Calibration.Enabled {
		t.Fatalf("reloaded raw preset = %+v", cfg.Smoothing)
	}
}

func TestConfigCommandFlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"exclusive", []string{"config", "--config", "pitch.yaml", "--variant", "raw"}, "mutually exclusive"},
		{"variant", []string{"config", "--variant", "waveform"}, "unknown variant"},
		{"log level", []string{"config", "--log-level", "chatty"}, "log-level"},
		{"missing file", []string{"config", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, "open"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCmd(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestAnalyzeSamples(t *testing.T) {
	cfg := config.Default()
	samples := tone(220, cfg.Detector.SampleRate, 3.5, 0.5)

	hop := time.Duration(cfg.Detector.HopSize) * time.Second / time.Duration(cfg.Detector.SampleRate)
	var lines int
	sum, err := analyzeSamples(context.Background(), cfg, samples, &logging.NoOpLogger{}, func(s *tracker.Snapshot) error {
		if _, err := json.Marshal(s); err != nil {
			return err
		}
		if want := time.Duration(lines) * hop; s.Elapsed != want {
			t.Errorf("frame %d elapsed = %v, want %v", lines, s.Elapsed, want)
		}
		lines++
		return nil
	})
	if err != nil {
		t.Fatalf("analyzeSamples: %v", err)
	}

	if want := len(samples) / cfg.Detector.FrameSize; sum.Frames != want {
		t.Fatalf("frames = %d, want %d", sum.Frames, want)
	}
	if lines != sum.Frames {
		t.Fatalf("snapshots seen = %d, want %d", lines, sum.Frames)
	}
	if sum.VoicedRatio < 0.75 || sum.VoicedRatio > 0.9 {
		t.Errorf("voiced ratio = %.2f, want about 0.87", sum.VoicedRatio)
	}
	if math.Abs(sum.MedianHz-220) > 220*0.02 {
		t.Errorf("median = %.1f Hz, want 220 within 2%%", sum.MedianHz)
	}
	if sum.Note != "A3" {
		t.Errorf("note = %q, want A3", sum.Note)
	}
	if math.Abs(sum.NoteHz-220) > 1e-9 || math.Abs(sum.Cents) > 35 {
		t.Errorf("note pitch = %.3f Hz %+.1f cents, want 220 Hz near 0", sum.NoteHz, sum.Cents)
	}
	if sum.Duration != "00:04" {
		t.Errorf("duration = %s", sum.Duration)
	}
	if sum.Calibrated == nil {
		t.Fatal("range was not calibrated")
	}
	if !sum.Calibrated.Contains(220) || sum.Calibrated.Span() < cfg.Calibration.MinSpan-1e-9 {
		t.Errorf("calibrated range = %+v", *sum.Calibrated)
	}

	var buf bytes.Buffer
	if err := printSummary(&buf, "take.wav", sum); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"take.wav", "median:", "A3 220.0 Hz", "cents", "calibrated range:"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, buf.String())
		}
	}
}

func TestColorableOnlyForTerminals(t *testing.T) {
	if colorable(&bytes.Buffer{}) {
		t.Fatal("buffer reported as terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if colorable(f) {
		t.Fatal("regular file reported as terminal")
	}
}

func TestAnalyzeEmptyStdin(t *testing.T) {
	_, _, err := runCmd(t, "analyze", "-")
	if err == nil || !strings.Contains(err.Error(), "empty audio data") {
		t.Fatalf("err = %v, want empty audio data", err)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	cfg, _ := config.Preset(config.VariantRaw)
	sum, err := analyzeSamples(context.Background(), cfg, make([]float64, cfg.Detector.SampleRate), &logging.NoOpLogger{}, nil)
	if err != nil {
		t.Fatalf("analyzeSamples: %v", err)
	}
	if sum.Voiced != 0 || sum.MedianHz != 0 || sum.Note != "" || sum.Calibrated != nil {
		t.Fatalf("silence summary = %+v", sum)
	}
}

func TestLiveCommandDrawsUntilInputEnds(t *testing.T) {
	samples := tone(220, 44100, 1, 0)
	pcm := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(v*math.MaxInt16)))
	}
	path := filepath.Join(t.TempDir(), "capture.s16le")
	if err := os.WriteFile(path, pcm, 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runCmd(t, "live", "--variant", "raw", "--input", path, "--rate", "44100", "--channels", "1")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	frames := strings.Split(stdout, "\x1b[H\x1b[2J")
	final := frames[len(frames)-1]
	if !strings.Contains(final, "stopped") {
		t.Fatalf("final frame is not stopped:\n%s", final)
	}
	if !strings.Contains(final, "range 80-500 Hz") {
		t.Errorf("final frame missing band:\n%s", final)
	}
}
