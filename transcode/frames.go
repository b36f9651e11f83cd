package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/filters"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// FrameSourceConfig sizes the analysis frames.
type FrameSourceConfig struct {
	SampleRate int
	FrameSize  int
	HopSize    int
	// DCCutoff enables a DC blocker at this cutoff in Hz; 0 disables it.
	DCCutoff float64
	// Realtime paces delivery to one frame per hop of wall-clock time, the
	// cadence an audio callback would produce.
	Realtime bool
}

// FrameSource slices a sample stream into fixed-size frames.
type FrameSource struct {
	cfg    FrameSourceConfig
	window *common.SlidingWindow
	dc     *filters.DCBlocker
	logger logging.Logger
}

// NewFrameSource creates a frame source.
func NewFrameSource(cfg FrameSourceConfig, logger logging.Logger) *FrameSource {
	fs := &FrameSource{
		cfg:    cfg,
		window: common.NewSlidingWindow(cfg.FrameSize, cfg.HopSize),
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{"component": "frame_source"}),
	}
	if cfg.DCCutoff > 0 {
		fs.dc = filters.NewDCBlocker(cfg.SampleRate, cfg.DCCutoff)
	}
	return fs
}

// HopDuration is the time between consecutive frames.
func (fs *FrameSource) HopDuration() time.Duration {
	return time.Duration(fs.window.GetHopSize()) * time.Second / time.Duration(fs.cfg.SampleRate)
}

// Run reads src until EOF or cancellation and sends every completed frame on
// out. It closes out before returning. EOF is a normal end and returns nil.
func (fs *FrameSource) Run(ctx context.Context, src SampleSource, out chan<- tonal.SampleFrame) error {
	defer close(out)

	start := time.Now()
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		samples, err := src.ReadSamples()
		if len(samples) > 0 {
			if fs.dc != nil {
				fs.dc.ProcessInPlace(samples)
			}
			for _, frame := range fs.window.AddSamples(samples) {
				if fs.cfg.Realtime {
					if err := sleepUntil(ctx, start.Add(time.Duration(sent)*fs.HopDuration())); err != nil {
						return err
					}
				}
				select {
				case out <- tonal.SampleFrame{Samples: frame, SampleRate: fs.cfg.SampleRate}:
					sent++
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if errors.Is(err, io.EOF) {
			fs.logger.Debug("Input exhausted", logging.Fields{
				"frames":  sent,
				"dropped": fs.window.Pending(),
			})
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame source: %w", err)
		}
	}
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
