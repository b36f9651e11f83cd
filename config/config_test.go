package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPresetsAreValid(t *testing.T) {
	for _, v := range Variants {
		t.Run(string(v), func(t *testing.T) {
			cfg, err := Preset(v)
			if err != nil {
				t.Fatalf("Preset: %v", err)
			}
			if err := Validate(cfg); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
	if _, err := Preset("waveform"); err == nil {
		t.Fatal("unknown variant should fail")
	}
}

func TestPresetDifferences(t *testing.T) {
	cal := Default()
	if cal.Variant != VariantCalibrated || !cal.Calibration.Enabled || cal.Detector.MaxFreq != 600 {
		t.Fatalf("default preset = %+v", cal)
	}
	if cal.History.MaxCount != 400 || cal.Display.Mode != ModeTrail {
		t.Fatalf("default history/display = %+v %+v", cal.History, cal.Display)
	}

	raw, _ := Preset(VariantRaw)
	if raw.Calibration.Enabled || raw.Smoothing.Window != 1 || raw.Smoothing.FadeFactor != 0 {
		t.Fatalf("raw preset should disable calibration and smoothing: %+v", raw.Smoothing)
	}

	heat, _ := Preset(VariantHeatMap)
	if heat.Display.Mode != ModeHeatMap || !heat.Display.Mode.Spectral() {
		t.Fatalf("heatmap mode = %q", heat.Display.Mode)
	}
	if heat.History.MaxCount != 200 || heat.Detector.MaxFreq != 500 {
		t.Fatalf("heatmap bounds = %d, %v", heat.History.MaxCount, heat.Detector.MaxFreq)
	}
}

func TestLoadFromReaderOverridesPreset(t *testing.T) {
	doc := `
variant: raw
log_level: debug
detector:
  sample_rate: 48000
  confidence_threshold: 0.45
history:
  max_age: 2500ms
display:
  linger: 0s
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Variant != VariantRaw || cfg.LogLevel != "debug" {
		t.Fatalf("header = %q %q", cfg.Variant, cfg.LogLevel)
	}
	if cfg.Detector.SampleRate != 48000 || cfg.Detector.ConfidenceThreshold != 0.45 {
		t.Fatalf("detector = %+v", cfg.Detector)
	}
	// Inherited from the raw preset.
	if cfg.Detector.MaxFreq != 500 || cfg.Smoothing.Window != 1 {
		t.Fatalf("preset values lost: max=%v window=%d", cfg.Detector.MaxFreq, cfg.Smoothing.Window)
	}
	if cfg.History.MaxAge != 2500*time.Millisecond || cfg.Display.Linger != 0 {
		t.Fatalf("durations = %v %v", cfg.History.MaxAge, cfg.Display.Linger)
	}
}

func TestLoadFromReaderEmptyDocument(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Variant != VariantCalibrated {
		t.Fatalf("variant = %q", cfg.Variant)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("detector:\n  fft_window: 3\n"))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Detector.SampleRate = 0
	cfg.Smoothing.LerpFactor = 2
	cfg.Display.Top, cfg.Display.Bottom = 0.9, 0.1
	cfg.LogLevel = "chatty"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"sample_rate", "lerp_factor", "display extent", "log_level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	cfg, _ := Preset(VariantBars)
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pitch.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	again, _ := Marshal(loaded)
	if !bytes.Equal(data, again) {
		t.Fatalf("round trip changed config:\n%s\n---\n%s", data, again)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}
