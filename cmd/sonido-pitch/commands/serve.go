package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/feed"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/observe"
	"github.com/RyanBlaney/sonido-pitch/tracker"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		pcm       pcmFlags
		addr      string
		autostart bool
		origins   []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Track PCM from stdin and publish snapshots over WebSocket",
		Long: `Read raw signed 16-bit little-endian PCM and track its pitch, publishing
snapshots to WebSocket clients on /ws at the display refresh rate. Clients
control the session with {"type":"start"|"stop"|"clear"|"recalibrate"}.
Prometheus metrics are served on /metrics and a liveness probe on /healthz.

The server keeps running after the input ends, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Feed.ListenAddr
			}

			ctx := cmd.Context()
			shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sonido-pitch"})
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.Error(err, "Metrics shutdown failed")
				}
			}()

			reader, closer, err := pcm.open(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			engine, err := tracker.NewEngine(cfg, tracker.WithLogger(logger))
			if err != nil {
				return err
			}
			hub := feed.NewHub(engine, feed.HubOptions{
				ClientBuffer:   cfg.Feed.ClientBuffer,
				OriginPatterns: origins,
				Logger:         logger,
			})
			server := feed.NewServer(addr, hub)
			fs := transcode.NewFrameSource(frameSourceConfig(cfg, pcm.realtime), logger)
			interval := time.Duration(float64(time.Second) / cfg.Display.RefreshRate)

			if autostart {
				if err := engine.Start(ctx); err != nil {
					return err
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := drive(gctx, fs, reader, func(f tonal.SampleFrame) {
					engine.Process(gctx, f)
				})
				if err == nil {
					logger.Info("Input ended")
				}
				engine.Stop(context.WithoutCancel(gctx))
				return err
			})
			g.Go(func() error {
				return hub.Run(gctx, interval)
			})
			g.Go(func() error {
				return server.ListenAndServe(gctx)
			})

			err = g.Wait()
			logger.Info("Shut down", logging.Fields{"clients": hub.Clients()})
			return ignoreInterrupt(ctx, err)
		},
	}
	pcm.register(cmd)
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "listen address (default from config feed.listen_addr)")
	f.BoolVar(&autostart, "autostart", true, "start recording immediately instead of waiting for a client")
	f.StringSliceVar(&origins, "origin", nil, "allowed browser origin patterns for /ws")
	return cmd
}
