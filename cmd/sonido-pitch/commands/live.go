package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/render"
	"github.com/RyanBlaney/sonido-pitch/tracker"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

func newLiveCommand(opts *globalOptions) *cobra.Command {
	var pcm pcmFlags

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Track PCM from stdin and draw it in the terminal",
		Long: `Read raw signed 16-bit little-endian PCM, track its pitch and redraw the
display at the configured refresh rate. Recording starts immediately and
stops when the input ends or on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			reader, closer, err := pcm.open(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			engine, err := tracker.NewEngine(cfg, tracker.WithLogger(logger))
			if err != nil {
				return err
			}
			fs := transcode.NewFrameSource(frameSourceConfig(cfg, pcm.realtime), logger)
			loop := &render.Loop{
				View: render.NewView(cfg.Display.Mode, engine.Mapper()),
				Out:  cmd.OutOrStdout(),
			}
			interval := time.Duration(float64(time.Second) / cfg.Display.RefreshRate)

			ctx := cmd.Context()
			if err := engine.Start(ctx); err != nil {
				return err
			}

			renderCtx, stopRender := context.WithCancel(ctx)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer stopRender()
				err := drive(gctx, fs, reader, func(f tonal.SampleFrame) {
					engine.Process(gctx, f)
				})
				engine.Stop(context.WithoutCancel(gctx))
				return err
			})
			g.Go(func() error {
				return loop.Run(renderCtx, engine.Snapshot, interval)
			})
			return ignoreInterrupt(ctx, g.Wait())
		},
	}
	pcm.register(cmd)
	return cmd
}
