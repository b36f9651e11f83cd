package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	variant    string
	logLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "sonido-pitch",
		Short: "Live voice pitch tracking",
		Long: `sonido-pitch - track the fundamental frequency of a voice.

Audio is cut into frames, each frame's pitch is estimated by autocorrelation,
and the estimate is smoothed, remembered as a short trail and mapped onto a
display range learned during the first seconds of a session.

Variants (--variant):
  calibrated  smoothed pitch line on a learned range (default)
  raw         unsmoothed pitch line on the full band
  bars        spectrum bars with pitch readout
  heatmap     scrolling spectrogram with pitch readout

Examples:
  # Summarize a recording
  sonido-pitch analyze take1.webm

  # Track a microphone in the terminal
  arecord -f S16_LE -r 44100 -c 1 | sonido-pitch live

  # Publish snapshots to browser renderers
  arecord -f S16_LE -r 48000 -c 2 | sonido-pitch serve --rate 48000 --channels 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&opts.variant, "variant", "", "preset to start from: calibrated, raw, bars, heatmap")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newLiveCommand(opts),
		newServeCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// load resolves the configuration from the persistent flags and installs
// the global logger. Logs go to the command's stderr so stdout stays free
// for frames and JSON.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.configPath != "" && o.variant != "":
		return nil, nil, errors.New("--config and --variant are mutually exclusive; set variant in the file")
	case o.configPath != "":
		cfg, err = config.Load(o.configPath)
	default:
		cfg, err = config.Preset(config.Variant(o.variant))
	}
	if err != nil {
		return nil, nil, err
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("--log-level: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	logger := logging.NewWriterLogger(stderr, stderr, colorable(stderr))
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)
	return cfg, logger, nil
}

// colorable reports whether w is a terminal that can show ANSI colors.
func colorable(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}
