package tracker

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/config"
)

// Session holds every piece of per-recording state: one calibration, one
// smoothed value with its rolling window, one trail and, in spectral modes,
// the analyser smoothing and spectrogram history. It is created on Start and
// discarded on Stop or Clear.
type Session struct {
	ID        string
	StartedAt time.Time

	calibrator  *Calibrator
	smoother    *Smoother
	trail       *HistoryTrail
	analyser    *spectral.Analyser
	spectrogram *spectral.SpectrogramHistory
	barCount    int
}

func newSession(cfg *config.Config, band Range, now time.Time) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		smoother:  NewSmoother(smoothingParams(cfg.Smoothing)),
		trail:     NewHistoryTrail(cfg.History.MaxAge, cfg.History.MaxCount),
	}
	if cfg.Calibration.Enabled {
		s.calibrator = NewCalibrator(CalibrationParams{
			Duration: cfg.Calibration.Duration,
			MinSpan:  cfg.Calibration.MinSpan,
			Band:     band,
		}, now)
	}
	if cfg.Display.Mode.Spectral() {
		a, err := spectral.NewAnalyser(cfg.Analyser.AnalyserParams)
		if err != nil {
			return nil, fmt.Errorf("tracker: analyser: %w", err)
		}
		s.analyser = a
		s.spectrogram = spectral.NewSpectrogramHistory(cfg.Analyser.HistoryLength)
		s.barCount = cfg.Analyser.BarCount
	}
	return s, nil
}

func smoothingParams(c config.SmoothingConfig) SmoothingParams {
	return SmoothingParams{
		Window:             c.Window,
		MinChange:          c.MinChange,
		LerpFactor:         c.LerpFactor,
		GentleFactor:       c.GentleFactor,
		DirectionThreshold: c.DirectionThreshold,
		FadeFactor:         c.FadeFactor,
		FadeFloor:          c.FadeFloor,
	}
}

// step runs one estimate through calibration, smoothing and the trail. It
// reports whether this estimate completed calibration.
func (s *Session) step(est tonal.PitchEstimate, now time.Time) (cal *CalibrationState, out SmootherOutput, calibrated bool) {
	if s.calibrator != nil {
		was := s.calibrator.State().Calibrated()
		st := s.calibrator.Observe(est, now)
		cal = &st
		calibrated = !was && st.Calibrated()
	}

	out = s.smoother.Update(est, now)
	if out.Present {
		s.trail.Append(out.Sample())
	}
	s.trail.Prune(now)
	return cal, out, calibrated
}

// spectrum analyses the frame for the spectral display modes.
func (s *Session) spectrum(frame tonal.SampleFrame, snap *Snapshot) {
	if s.analyser == nil {
		return
	}
	data := s.analyser.ByteFrequencyData(frame.Samples)
	s.spectrogram.Push(data)
	snap.Spectrum = data
	snap.Bars = spectral.FrequencyBars(data, s.barCount)
	snap.Level = spectral.AudioLevel(data)
	snap.Spectrogram = s.spectrogram.Frames()
}

func (s *Session) calibrationState() *CalibrationState {
	if s.calibrator == nil {
		return nil
	}
	st := s.calibrator.State()
	return &st
}
