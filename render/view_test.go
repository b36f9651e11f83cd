package render

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/tracker"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func trailSnapshot(values ...float64) *tracker.Snapshot {
	snap := &tracker.Snapshot{
		State:     tracker.StateRecording,
		StartedAt: start,
		Range:     tracker.Range{MinHz: 100, MaxHz: 300},
	}
	for i, v := range values {
		snap.Trail = append(snap.Trail, tracker.SmoothedSample{
			Value:     v,
			Timestamp: start.Add(time.Duration(i) * 46 * time.Millisecond),
		})
	}
	return snap
}

func rowOf(grid [][]rune, col int) int {
	for r := range grid {
		if grid[r][col] == trailGlyph {
			return r
		}
	}
	return -1
}

func TestTrailGrid(t *testing.T) {
	mapper := tracker.NewFrequencyMapper(0, 1)
	grid := TrailGrid(trailSnapshot(300, 200, 100), mapper, 5, 10)

	// Newest samples are right-aligned.
	if rowOf(grid, 0) != -1 || rowOf(grid, 1) != -1 {
		t.Fatal("leading columns should be empty")
	}
	if got := rowOf(grid, 2); got != 0 {
		t.Errorf("top of range at row %d, want 0", got)
	}
	if got := rowOf(grid, 3); got != 5 {
		t.Errorf("middle of range at row %d, want 5", got)
	}
	if got := rowOf(grid, 4); got != 9 {
		t.Errorf("bottom of range at row %d, want 9", got)
	}
}

func TestTrailGridKeepsNewest(t *testing.T) {
	mapper := tracker.NewFrequencyMapper(0, 1)
	grid := TrailGrid(trailSnapshot(100, 100, 100, 300), mapper, 2, 4)
	if rowOf(grid, 0) != 3 || rowOf(grid, 1) != 0 {
		t.Fatalf("grid = %q", gridLines(grid))
	}
}

func TestBarsGrid(t *testing.T) {
	grid := BarsGrid([]float64{0, 0.5, 1}, 3, 4)
	want := []string{
		"  █",
		"  █",
		" ██",
		" ██",
	}
	got := gridLines(grid)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %q, want %q (grid %q)", i, got[i], want[i], got)
		}
	}

	empty := gridLines(BarsGrid(nil, 3, 2))
	if strings.TrimSpace(strings.Join(empty, "")) != "" {
		t.Fatal("no bars should draw nothing")
	}
}

func TestHeatCell(t *testing.T) {
	spectrum := []uint8{10, 20, 30, 40}
	if got := HeatCell(spectrum, 3, 4); got != 10 {
		t.Errorf("bottom row = %d, want lowest bin", got)
	}
	if got := HeatCell(spectrum, 0, 4); got != 40 {
		t.Errorf("top row = %d, want highest bin", got)
	}
	if got := HeatCell(nil, 0, 4); got != 0 {
		t.Errorf("empty spectrum = %d", got)
	}
}

func TestReadout(t *testing.T) {
	v := NewView(config.ModeTrail, tracker.NewFrequencyMapper(0.1, 0.9))

	snap := trailSnapshot(440)
	snap.Output = tracker.SmootherOutput{Displayed: 440, Present: true, Direction: tracker.Stable}
	snap.Note = "A4"
	snap.Calibration = &tracker.CalibrationState{Phase: tracker.PhaseCalibrated, MinHz: 100, MaxHz: 300}

	got := v.Readout(snap)
	for _, want := range []string{"A4", "440.0 Hz", "→", "range 100-300 Hz", "calibrated"} {
		if !strings.Contains(got, want) {
			t.Errorf("readout %q missing %q", got, want)
		}
	}

	idle := v.Readout(&tracker.Snapshot{Range: tracker.Range{MinHz: 80, MaxHz: 600}})
	if !strings.Contains(idle, "no pitch") || !strings.Contains(idle, "range 80-600 Hz") {
		t.Errorf("idle readout = %q", idle)
	}
}

func TestRenderModes(t *testing.T) {
	mapper := tracker.NewFrequencyMapper(0, 1)
	snap := trailSnapshot(150, 200, 250)
	snap.Spectrum = []uint8{0, 128, 255, 64}
	snap.Bars = []float64{0.2, 0.8}
	snap.Level = 40
	snap.Spectrogram = [][]uint8{snap.Spectrum, snap.Spectrum}

	for _, mode := range []config.DisplayMode{config.ModeTrail, config.ModeBars, config.ModeHeatMap} {
		out := NewView(mode, mapper).Render(snap, 40, 12)
		if !strings.Contains(out, "recording") {
			t.Errorf("%s: frame missing state:\n%s", mode, out)
		}
		if len(strings.Split(out, "\n")) < 10 {
			t.Errorf("%s: frame too short:\n%s", mode, out)
		}
	}

	if got := NewView(config.ModeTrail, mapper).Render(snap, 4, 4); got != "Loading..." {
		t.Errorf("tiny frame = %q", got)
	}
}

func TestLoopDrawsUntilCancelled(t *testing.T) {
	var buf bytes.Buffer
	loop := &Loop{
		View: NewView(config.ModeTrail, tracker.NewFrequencyMapper(0, 1)),
		Out:  &buf,
		Size: func() (int, int) { return 40, 10 },
	}
	snap := trailSnapshot(200)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx, func() *tracker.Snapshot { return snap }, time.Hour); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := strings.Count(buf.String(), clearScreen); n != 1 {
		t.Fatalf("frames drawn = %d, want 1", n)
	}
}
