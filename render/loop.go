package render

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/RyanBlaney/sonido-pitch/tracker"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	fallbackW   = 80
	fallbackH   = 24
)

// SnapshotFunc returns the snapshot to draw.
type SnapshotFunc func() *tracker.Snapshot

// Loop redraws a view at a fixed cadence.
type Loop struct {
	View *View
	Out  io.Writer
	// Size reports the terminal size; nil uses the size of Out when it is a
	// terminal, else 80x24.
	Size func() (width, height int)
}

// Run draws every interval until ctx is done, then draws once more so the
// final state stays on screen.
func (l *Loop) Run(ctx context.Context, snapshot SnapshotFunc, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return l.Draw(snapshot())
		case <-ticker.C:
			if err := l.Draw(snapshot()); err != nil {
				return err
			}
		}
	}
}

// Draw writes one frame.
func (l *Loop) Draw(snap *tracker.Snapshot) error {
	w, h := l.size()
	_, err := io.WriteString(l.Out, clearScreen+l.View.Render(snap, w, h)+"\n")
	return err
}

func (l *Loop) size() (int, int) {
	if l.Size != nil {
		return l.Size()
	}
	if f, ok := l.Out.(*os.File); ok && term.IsTerminal(f.Fd()) {
		if w, h, err := term.GetSize(f.Fd()); err == nil && w > 0 && h > 0 {
			return w, h - 1
		}
	}
	return fallbackW, fallbackH
}
