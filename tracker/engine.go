// Package tracker turns a stream of sample frames into a de-noised pitch
// trajectory: range calibration, smoothing, the display trail and the
// recording session lifecycle that owns them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/observe"
)

// ErrNotRecording is returned by operations that need an active session.
var ErrNotRecording = errors.New("tracker: not recording")

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metric instruments. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs the Idle → Recording → Stopped → Idle lifecycle around at most
// one Session.
//
// Process and the lifecycle operations serialize on one mutex, so no frame
// lands in a session after it was reset. Renderers read through Snapshot,
// which never blocks on frame processing.
type Engine struct {
	cfg      *config.Config
	detector *tonal.PitchDetector
	mapper   FrequencyMapper
	band     Range
	clock    Clock
	logger   logging.Logger
	metrics  *observe.Metrics

	mu      sync.Mutex
	state   State
	session *Session

	snap atomic.Pointer[Snapshot]
}

// NewEngine validates cfg and builds an idle engine.
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	detector, err := tonal.NewPitchDetectorWithParams(cfg.Detector.PitchDetectionParams)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		detector: detector,
		mapper:   NewFrequencyMapper(cfg.Display.Top, cfg.Display.Bottom),
		band:     Range{MinHz: cfg.Detector.MinFreq, MaxHz: cfg.Detector.MaxFreq},
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrGlobal(e.logger).WithFields(logging.Fields{
		"component": "tracker",
		"variant":   string(cfg.Variant),
	})
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	e.snap.Store(e.emptySnapshot(StateIdle))
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Band returns the absolute detectable range.
func (e *Engine) Band() Range {
	return e.band
}

// Mapper returns the display mapper.
func (e *Engine) Mapper() FrequencyMapper {
	return e.mapper
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.snap.Load().State
}

// Start opens a fresh session. A session already recording is discarded
// and replaced.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	sess, err := newSession(e.cfg, e.band, now)
	if err != nil {
		return err
	}
	if e.state == StateRecording {
		e.logger.Info("Restarting recording", logging.Fields{"previous_session": e.session.ID})
		e.metrics.SessionEnded(ctx)
	}

	e.session = sess
	e.state = StateRecording
	e.metrics.SessionStarted(ctx)

	snap := e.emptySnapshot(StateRecording)
	snap.SessionID = sess.ID
	snap.StartedAt = now
	snap.At = now
	snap.Calibration = sess.calibrationState()
	e.snap.Store(snap)

	e.logger.Info("Recording started", logging.Fields{"session_id": sess.ID})
	return nil
}

// Process analyses one frame and publishes the resulting snapshot. Frames
// arriving outside Recording are ignored and Process returns false.
func (e *Engine) Process(ctx context.Context, frame tonal.SampleFrame) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRecording || e.session == nil {
		return false
	}
	began := time.Now()
	sess := e.session
	now := e.clock.Now()

	est := e.detector.Detect(frame)
	cal, out, calibrated := sess.step(est, now)
	if calibrated {
		e.logger.Info("Calibration complete", logging.Fields{
			"session_id": sess.ID,
			"min_hz":     cal.MinHz,
			"max_hz":     cal.MaxHz,
		})
		e.metrics.RecordCalibration(ctx)
	}

	snap := &Snapshot{
		State:       StateRecording,
		SessionID:   sess.ID,
		StartedAt:   sess.StartedAt,
		At:          now,
		Elapsed:     now.Sub(sess.StartedAt),
		Pitch:       est,
		Output:      out,
		Calibration: cal,
		Range:       RangeFor(cal, e.band),
		Trail:       sess.trail.Snapshot(),
	}
	if out.Present {
		snap.Position = e.mapper.ToDisplayPosition(out.Displayed, snap.Range)
		snap.Note = tonal.NoteName(out.Displayed)
	}
	sess.spectrum(frame, snap)

	e.snap.Store(snap)
	e.metrics.RecordFrame(ctx, est.Voiced, time.Since(began))
	return true
}

// Stop ends the recording. The session is discarded and the last snapshot
// stays readable for the configured linger period. Stopping twice is the
// same as stopping once.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRecording {
		return
	}
	now := e.clock.Now()
	last := *e.snap.Load()
	last.State = StateStopped
	last.StoppedAt = now
	if e.session != nil {
		last.Elapsed = now.Sub(e.session.StartedAt)
	}
	e.snap.Store(&last)

	e.logger.Info("Recording stopped", logging.Fields{
		"session_id": last.SessionID,
		"elapsed":    FormatElapsed(last.Elapsed),
	})
	e.session = nil
	e.state = StateStopped
	e.metrics.SessionEnded(ctx)
}

// Clear returns to Idle from any state, discarding the session and the
// published snapshot. Clearing twice is the same as clearing once.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRecording {
		e.metrics.SessionEnded(ctx)
	}
	if e.state != StateIdle {
		e.logger.Debug("Session cleared")
	}
	e.session = nil
	e.state = StateIdle
	e.snap.Store(e.emptySnapshot(StateIdle))
}

// Recalibrate discards the learned range of the recording session and
// reopens the calibration window. Smoothing and the trail are untouched.
func (e *Engine) Recalibrate() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRecording || e.session == nil {
		return ErrNotRecording
	}
	if e.session.calibrator == nil {
		return nil
	}
	e.session.calibrator.Reset(e.clock.Now())
	e.logger.Info("Recalibrating", logging.Fields{"session_id": e.session.ID})
	return nil
}

// Snapshot returns the latest published snapshot without blocking. Once a
// stopped snapshot is older than the linger period an empty one is returned.
func (e *Engine) Snapshot() *Snapshot {
	snap := e.snap.Load()
	if snap.State == StateStopped && e.clock.Now().Sub(snap.StoppedAt) > e.cfg.Display.Linger {
		cleared := e.emptySnapshot(StateStopped)
		cleared.SessionID = snap.SessionID
		cleared.StartedAt = snap.StartedAt
		cleared.StoppedAt = snap.StoppedAt
		cleared.Elapsed = snap.Elapsed
		return cleared
	}
	return snap
}

// Detect runs the detector alone, outside of any session.
func (e *Engine) Detect(frame tonal.SampleFrame) tonal.PitchEstimate {
	return e.detector.Detect(frame)
}

func (e *Engine) emptySnapshot(state State) *Snapshot {
	return &Snapshot{
		State: state,
		Range: e.band,
		Trail: []SmoothedSample{},
	}
}
