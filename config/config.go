// Package config defines the YAML configuration of the pitch tracker and
// the presets that reproduce the four display variants (spectrogram bars,
// heat map, raw pitch line and calibrated pitch line) on one pipeline.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// Variant names a preset bundle of detector and display settings.
type Variant string

const (
	VariantBars       Variant = "bars"
	VariantHeatMap    Variant = "heatmap"
	VariantRaw        Variant = "raw"
	VariantCalibrated Variant = "calibrated"
)

// Variants lists every known preset.
var Variants = []Variant{VariantBars, VariantHeatMap, VariantRaw, VariantCalibrated}

// DisplayMode selects which derived view a renderer asks the engine for.
type DisplayMode string

const (
	ModeTrail   DisplayMode = "trail"
	ModeHeatMap DisplayMode = "heatmap"
	ModeBars    DisplayMode = "bars"
)

// Spectral reports whether the mode needs per-frame spectrum analysis.
func (m DisplayMode) Spectral() bool {
	return m == ModeHeatMap || m == ModeBars
}

// IsValid reports whether m is a known mode.
func (m DisplayMode) IsValid() bool {
	switch m {
	case ModeTrail, ModeHeatMap, ModeBars:
		return true
	}
	return false
}

// Config is the root configuration document.
type Config struct {
	Variant  Variant `yaml:"variant"`
	LogLevel string  `yaml:"log_level"`

	Detector    DetectorConfig    `yaml:"detector"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Smoothing   SmoothingConfig   `yaml:"smoothing"`
	History     HistoryConfig     `yaml:"history"`
	Display     DisplayConfig     `yaml:"display"`
	Analyser    AnalyserConfig    `yaml:"analyser"`
	Input       InputConfig       `yaml:"input"`
	Feed        FeedConfig        `yaml:"feed"`
}

// DetectorConfig sizes the frames and tunes the pitch detector.
type DetectorConfig struct {
	SampleRate int `yaml:"sample_rate"`
	FrameSize  int `yaml:"frame_size"`
	// HopSize is the stride between consecutive frames; equal to FrameSize
	// for back-to-back frames.
	HopSize int `yaml:"hop_size"`

	tonal.PitchDetectionParams `yaml:",inline"`
}

// CalibrationConfig controls the range-learning window.
type CalibrationConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Duration time.Duration `yaml:"duration"`
	MinSpan  float64       `yaml:"min_span"`
}

// SmoothingConfig tunes the rolling mean, adaptive interpolation and fade.
type SmoothingConfig struct {
	Window             int     `yaml:"window"`
	MinChange          float64 `yaml:"min_change"`
	LerpFactor         float64 `yaml:"lerp_factor"`
	GentleFactor       float64 `yaml:"gentle_factor"`
	DirectionThreshold float64 `yaml:"direction_threshold"`
	FadeFactor         float64 `yaml:"fade_factor"`
	FadeFloor          float64 `yaml:"fade_floor"`
}

// HistoryConfig bounds the trail.
type HistoryConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`
	MaxCount int           `yaml:"max_count"`
}

// DisplayConfig describes the renderer-facing view.
type DisplayConfig struct {
	Mode DisplayMode `yaml:"mode"`
	// Top and Bottom are the vertical extent of the pitch line as fractions
	// of the drawing height, measured from the top edge.
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
	// RefreshRate is the render cadence in Hz.
	RefreshRate float64 `yaml:"refresh_rate"`
	// Linger keeps the final snapshot readable after Stop.
	Linger time.Duration `yaml:"linger"`
}

// AnalyserConfig configures the spectrum views.
type AnalyserConfig struct {
	spectral.AnalyserParams `yaml:",inline"`

	HistoryLength int `yaml:"history_length"`
	BarCount      int `yaml:"bar_count"`
}

// InputConfig describes the capture stream fed to the engine.
type InputConfig struct {
	// SourceRate and Channels describe raw PCM on stdin (s16le).
	SourceRate int `yaml:"source_rate"`
	Channels   int `yaml:"channels"`
	// DCCutoff enables a DC blocking high-pass at this cutoff (Hz); 0 disables.
	DCCutoff    float64       `yaml:"dc_cutoff"`
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// FeedConfig configures the WebSocket snapshot feed.
type FeedConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	ClientBuffer int    `yaml:"client_buffer"`
}

// Default returns the calibrated-pitch preset, the most complete variant.
func Default() *Config {
	cfg, _ := Preset(VariantCalibrated)
	return cfg
}

// Preset returns the configuration of a named variant.
func Preset(v Variant) (*Config, error) {
	cfg := &Config{
		Variant:  v,
		LogLevel: "info",
		Detector: DetectorConfig{
			SampleRate:           44100,
			FrameSize:            2048,
			HopSize:              2048,
			PitchDetectionParams: tonal.DefaultPitchDetectionParams(),
		},
		Calibration: CalibrationConfig{
			Enabled:  true,
			Duration: 3 * time.Second,
			MinSpan:  50,
		},
		Smoothing: SmoothingConfig{
			Window:             8,
			MinChange:          5,
			LerpFactor:         0.3,
			GentleFactor:       0.1,
			DirectionThreshold: 2,
			FadeFactor:         0.95,
			FadeFloor:          10,
		},
		History: HistoryConfig{
			MaxAge:   3 * time.Second,
			MaxCount: 400,
		},
		Display: DisplayConfig{
			Mode:        ModeTrail,
			Top:         0.1,
			Bottom:      0.9,
			RefreshRate: 30,
			Linger:      time.Second,
		},
		Analyser: AnalyserConfig{
			AnalyserParams: spectral.DefaultAnalyserParams(),
			HistoryLength:  200,
			BarCount:       32,
		},
		Input: InputConfig{
			SourceRate:  44100,
			Channels:    1,
			DCCutoff:    0,
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Timeout:     30 * time.Second,
		},
		Feed: FeedConfig{
			ListenAddr:   ":8080",
			ClientBuffer: 8,
		},
	}

	switch v {
	case VariantCalibrated, "":
		cfg.Variant = VariantCalibrated
	case VariantRaw:
		cfg.Detector.MaxFreq = 500
		cfg.Detector.ConfidenceThreshold = 0.5
		cfg.Calibration.Enabled = false
		// Unsmoothed: every voiced estimate is shown as-is and dropped at once.
		cfg.Smoothing.Window = 1
		cfg.Smoothing.LerpFactor = 1
		cfg.Smoothing.GentleFactor = 1
		cfg.Smoothing.FadeFactor = 0
		cfg.History.MaxCount = 300
		cfg.Display.Top, cfg.Display.Bottom = 0, 1
	case VariantBars, VariantHeatMap:
		cfg.Detector.MaxFreq = 500
		cfg.Detector.ConfidenceThreshold = 0.3
		cfg.Calibration.Enabled = false
		cfg.History.MaxCount = 200
		cfg.Display.Top, cfg.Display.Bottom = 0, 1
		cfg.Display.Mode = ModeBars
		if v == VariantHeatMap {
			cfg.Display.Mode = ModeHeatMap
		}
	default:
		return nil, fmt.Errorf("config: unknown variant %q", v)
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		add("log_level: %v", err)
	}

	d := cfg.Detector
	if d.SampleRate <= 0 {
		add("detector.sample_rate must be positive, got %d", d.SampleRate)
	}
	if d.FrameSize < 64 {
		add("detector.frame_size must be at least 64, got %d", d.FrameSize)
	}
	if d.HopSize <= 0 || d.HopSize > d.FrameSize {
		add("detector.hop_size must be in (0, frame_size], got %d", d.HopSize)
	}
	if err := d.PitchDetectionParams.Validate(); err != nil {
		add("detector: %v", err)
	}

	if cfg.Calibration.Enabled {
		if cfg.Calibration.Duration <= 0 {
			add("calibration.duration must be positive")
		}
		if cfg.Calibration.MinSpan <= 0 || cfg.Calibration.MinSpan > d.MaxFreq-d.MinFreq {
			add("calibration.min_span must be in (0, %v], got %v", d.MaxFreq-d.MinFreq, cfg.Calibration.MinSpan)
		}
	}

	s := cfg.Smoothing
	if s.Window < 1 {
		add("smoothing.window must be >= 1, got %d", s.Window)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"lerp_factor", s.LerpFactor},
		{"gentle_factor", s.GentleFactor},
		{"fade_factor", s.FadeFactor},
	} {
		if f.v < 0 || f.v > 1 {
			add("smoothing.%s must be in [0,1], got %v", f.name, f.v)
		}
	}
	if s.MinChange < 0 || s.DirectionThreshold < 0 || s.FadeFloor < 0 {
		add("smoothing thresholds must be non-negative")
	}

	if cfg.History.MaxAge <= 0 {
		add("history.max_age must be positive")
	}
	if cfg.History.MaxCount < 1 {
		add("history.max_count must be >= 1, got %d", cfg.History.MaxCount)
	}

	disp := cfg.Display
	if !disp.Mode.IsValid() {
		add("display.mode %q is invalid; valid values: trail, heatmap, bars", disp.Mode)
	}
	if disp.Top < 0 || disp.Bottom > 1 || disp.Top >= disp.Bottom {
		add("display extent must satisfy 0 <= top < bottom <= 1, got top=%v bottom=%v", disp.Top, disp.Bottom)
	}
	if disp.RefreshRate <= 0 {
		add("display.refresh_rate must be positive")
	}
	if disp.Linger < 0 {
		add("display.linger must not be negative")
	}

	if disp.Mode.Spectral() {
		if err := cfg.Analyser.AnalyserParams.Validate(); err != nil {
			add("analyser: %v", err)
		}
		if cfg.Analyser.HistoryLength < 1 {
			add("analyser.history_length must be >= 1")
		}
		if cfg.Analyser.BarCount < 1 {
			add("analyser.bar_count must be >= 1")
		}
	}

	if cfg.Input.SourceRate <= 0 {
		add("input.source_rate must be positive")
	}
	if cfg.Input.Channels < 1 {
		add("input.channels must be >= 1")
	}
	if cfg.Input.DCCutoff < 0 {
		add("input.dc_cutoff must not be negative")
	}

	if cfg.Feed.ClientBuffer < 1 {
		add("feed.client_buffer must be >= 1")
	}

	return errors.Join(errs...)
}
