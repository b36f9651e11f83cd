package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

// frameQueue is the number of frames buffered between framing and analysis.
const frameQueue = 4

func frameSourceConfig(cfg *config.Config, realtime bool) transcode.FrameSourceConfig {
	return transcode.FrameSourceConfig{
		SampleRate: cfg.Detector.SampleRate,
		FrameSize:  cfg.Detector.FrameSize,
		HopSize:    cfg.Detector.HopSize,
		DCCutoff:   cfg.Input.DCCutoff,
		Realtime:   realtime,
	}
}

// drive frames src and hands every frame to onFrame in order until src ends
// or ctx is cancelled.
func drive(ctx context.Context, fs *transcode.FrameSource, src transcode.SampleSource, onFrame func(tonal.SampleFrame)) error {
	frames := make(chan tonal.SampleFrame, frameQueue)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fs.Run(ctx, src, frames)
	})
	g.Go(func() error {
		for f := range frames {
			onFrame(f)
		}
		return nil
	})
	return g.Wait()
}

// pcmFlags describe the raw capture stream of the live and serve commands.
type pcmFlags struct {
	input    string
	rate     int
	channels int
	realtime bool
}

func (p *pcmFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&p.input, "input", "i", "-", "raw s16le PCM file, - for stdin")
	f.IntVar(&p.rate, "rate", 0, "capture sample rate (default from config input.source_rate)")
	f.IntVar(&p.channels, "channels", 0, "capture channel count (default from config input.channels)")
	f.BoolVar(&p.realtime, "realtime", false, "pace frames in real time, for piping recorded files")
}

// open returns the capture reader and the closer of its underlying file.
func (p *pcmFlags) open(cmd *cobra.Command, cfg *config.Config, logger logging.Logger) (*transcode.PCMReader, io.Closer, error) {
	format := transcode.PCMFormat{SampleRate: cfg.Input.SourceRate, Channels: cfg.Input.Channels}
	if p.rate > 0 {
		format.SampleRate = p.rate
	}
	if p.channels > 0 {
		format.Channels = p.channels
	}

	var (
		r      io.Reader = cmd.InOrStdin()
		closer io.Closer = io.NopCloser(nil)
	)
	if p.input != "-" {
		f, err := os.Open(p.input)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		r, closer = f, f
	}

	reader, err := transcode.NewPCMReader(r, format, cfg.Detector.SampleRate)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	logger.Info("Reading PCM capture", logging.Fields{
		"input":       p.input,
		"source_rate": format.SampleRate,
		"channels":    format.Channels,
		"target_rate": reader.SampleRate(),
	})
	return reader, closer, nil
}

// ignoreInterrupt maps the cancellation caused by an interrupt to a clean
// exit.
func ignoreInterrupt(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
