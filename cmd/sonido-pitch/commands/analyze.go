package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/tracker"
	"github.com/RyanBlaney/sonido-pitch/transcode"
)

// offlineEpoch is the session start of offline runs; only offsets matter.
var offlineEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Summary describes one offline analysis.
type Summary struct {
	Type        string         `json:"type"` // "summary"
	Variant     string         `json:"variant"`
	Duration    string         `json:"duration"`
	Frames      int            `json:"frames"`
	Voiced      int            `json:"voiced"`
	VoicedRatio float64        `json:"voiced_ratio"`
	MedianHz    float64        `json:"median_hz,omitempty"`
	Note        string         `json:"note,omitempty"`
	NoteHz      float64        `json:"note_hz,omitempty"`
	Cents       float64        `json:"cents,omitempty"`
	MinHz       float64        `json:"min_hz,omitempty"`
	MaxHz       float64        `json:"max_hz,omitempty"`
	Calibrated  *tracker.Range `json:"calibrated_range,omitempty"`
}

func newAnalyzeCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Track the pitch of a recorded file",
		Long: `Decode FILE with ffmpeg, run it through the tracker as fast as possible on a
frame clock, and print a summary. With --json every frame's snapshot is
printed as a JSON line, followed by the summary.

When FILE is "-" the recording is read from stdin, in any container ffmpeg
can read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			dec := transcode.NewDecoder(&transcode.DecoderConfig{
				TargetSampleRate: cfg.Detector.SampleRate,
				ResampleQuality:  "high",
				FFmpegPath:       cfg.Input.FFmpegPath,
				FFprobePath:      cfg.Input.FFprobePath,
				Timeout:          cfg.Input.Timeout,
			}, logger)
			var audio *transcode.AudioData
			if args[0] == "-" {
				audio, err = dec.DecodeReader(cmd.Context(), cmd.InOrStdin())
			} else {
				audio, err = dec.DecodeFile(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			var each func(*tracker.Snapshot) error
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				each = func(s *tracker.Snapshot) error { return enc.Encode(s) }
			}

			sum, err := analyzeSamples(cmd.Context(), cfg, audio.PCM, logger, each)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(out).Encode(sum)
			}
			return printSummary(out, args[0], sum)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print per-frame snapshots and the summary as JSON lines")
	return cmd
}

// analyzeSamples runs one recording session over samples on a frame clock.
// each, when set, sees every snapshot in order.
func analyzeSamples(ctx context.Context, cfg *config.Config, samples []float64, logger logging.Logger, each func(*tracker.Snapshot) error) (*Summary, error) {
	clock := tracker.NewFrameClock(offlineEpoch)
	engine, err := tracker.NewEngine(cfg, tracker.WithClock(clock), tracker.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	fs := transcode.NewFrameSource(frameSourceConfig(cfg, false), logger)
	hop := fs.HopDuration()

	if err := engine.Start(ctx); err != nil {
		return nil, err
	}

	sum := &Summary{Type: "summary", Variant: string(cfg.Variant)}
	var (
		pitches []float64
		last    *tracker.Snapshot
		eachErr error
	)
	err = drive(ctx, fs, transcode.NewSliceSource(samples, cfg.Detector.HopSize), func(f tonal.SampleFrame) {
		engine.Process(ctx, f)
		snap := engine.Snapshot()
		last = snap
		clock.Advance(hop)

		sum.Frames++
		if snap.Pitch.Voiced {
			sum.Voiced++
			pitches = append(pitches, snap.Pitch.Frequency)
		}
		if each != nil && eachErr == nil {
			eachErr = each(snap)
		}
	})
	engine.Stop(ctx)
	if err != nil {
		return nil, err
	}
	if eachErr != nil {
		return nil, eachErr
	}

	sum.Duration = tracker.FormatElapsed(time.Duration(len(samples)) * time.Second / time.Duration(cfg.Detector.SampleRate))
	if sum.Frames > 0 {
		sum.VoicedRatio = float64(sum.Voiced) / float64(sum.Frames)
	}
	if len(pitches) > 0 {
		slices.Sort(pitches)
		sum.MedianHz = stat.Quantile(0.5, stat.Empirical, pitches, nil)
		if n, ok := tonal.NearestNote(sum.MedianHz); ok {
			sum.Note = n.String()
			sum.NoteHz = tonal.NoteFrequency(n.Semitones)
			sum.Cents = n.Cents
		}
		sum.MinHz, sum.MaxHz = pitches[0], pitches[len(pitches)-1]
	}
	if last != nil && last.Calibration != nil {
		if r, ok := last.Calibration.Range(); ok {
			sum.Calibrated = &r
		}
	}

	logger.Debug("Analysis finished", logging.Fields{
		"frames": sum.Frames,
		"voiced": sum.Voiced,
	})
	return sum, nil
}

func printSummary(w io.Writer, name string, sum *Summary) error {
	_, err := fmt.Fprintf(w, "%s (%s, %s)\n  frames: %d, voiced %.0f%%\n",
		name, sum.Variant, sum.Duration, sum.Frames, sum.VoicedRatio*100)
	if err != nil {
		return err
	}
	if sum.Voiced > 0 {
		fmt.Fprintf(w, "  median: %.1f Hz (%s %.1f Hz, %+.0f cents), span %.1f-%.1f Hz\n",
			sum.MedianHz, sum.Note, sum.NoteHz, sum.Cents, sum.MinHz, sum.MaxHz)
	}
	if sum.Calibrated != nil {
		fmt.Fprintf(w, "  calibrated range: %.1f-%.1f Hz\n", sum.Calibrated.MinHz, sum.Calibrated.MaxHz)
	}
	return nil
}
