// Package render draws tracker snapshots as terminal frames: the pitch
// trail plotted against the active range, or the spectrum bars and heat map
// of the spectral variants.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/tracker"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Line    lipgloss.Color
	Up      lipgloss.Color
	Down    lipgloss.Color
}

// DefaultTheme is the bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Line:    lipgloss.Color("#ffd166"),
	Up:      lipgloss.Color("#06d6a0"),
	Down:    lipgloss.Color("#ef476f"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Line   lipgloss.Style
	Up     lipgloss.Style
	Down   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Line:   lipgloss.NewStyle().Foreground(t.Line),
		Up:     lipgloss.NewStyle().Bold(true).Foreground(t.Up),
		Down:   lipgloss.NewStyle().Bold(true).Foreground(t.Down),
	}
}

const (
	trailGlyph = '•'
	barGlyph   = '█'
	emptyGlyph = ' '
)

// View renders snapshots for one display mode.
type View struct {
	Styles Styles
	Mode   config.DisplayMode
	Mapper tracker.FrequencyMapper
	Title  string
	Help   string
}

// NewView creates a view with the default theme.
func NewView(mode config.DisplayMode, mapper tracker.FrequencyMapper) *View {
	return &View{
		Styles: NewStyles(DefaultTheme),
		Mode:   mode,
		Mapper: mapper,
		Title:  "sonido-pitch",
		Help:   "ctrl+c to quit",
	}
}

// Render draws snap into a frame of the given size. Width and height are
// the outer dimensions including the border.
func (v *View) Render(snap *tracker.Snapshot, width, height int) string {
	if width < 8 || height < 6 {
		return "Loading..."
	}
	cols, rows := width-2, height-4

	var body []string
	switch v.Mode {
	case config.ModeBars:
		body = gridLines(BarsGrid(snap.Bars, cols, rows))
	case config.ModeHeatMap:
		body = v.heatLines(snap.Spectrogram, cols, rows)
	default:
		body = v.colorTrail(gridLines(TrailGrid(snap, v.Mapper, cols, rows)))
	}

	title := v.Styles.Title.Render(v.Title) + v.Styles.Help.Render("["+snap.State.String()+" "+tracker.FormatElapsed(snap.Elapsed)+"]")
	plot := v.Styles.Border.Width(cols).Render(strings.Join(body, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		v.Readout(snap),
		plot,
		v.Styles.Help.Render(v.Help),
	)
}

// Readout formats the one-line numeric summary of snap.
func (v *View) Readout(snap *tracker.Snapshot) string {
	var parts []string
	if snap.Output.Present {
		arrow := snap.Output.Direction.Arrow()
		switch snap.Output.Direction {
		case tracker.Up:
			arrow = v.Styles.Up.Render(arrow)
		case tracker.Down:
			arrow = v.Styles.Down.Render(arrow)
		}
		note := snap.Note
		if note == "" {
			note = "--"
		}
		parts = append(parts,
			v.Styles.Label.Render(note),
			fmt.Sprintf("%.1f Hz", snap.Output.Displayed),
			arrow,
		)
	} else {
		parts = append(parts, v.Styles.Help.Render("no pitch"))
	}

	parts = append(parts, fmt.Sprintf("range %.0f-%.0f Hz", snap.Range.MinHz, snap.Range.MaxHz))
	if cal := snap.Calibration; cal != nil {
		if cal.Calibrated() {
			parts = append(parts, "calibrated")
		} else {
			parts = append(parts, v.Styles.Help.Render("calibrating"))
		}
	}
	if snap.Spectral() {
		parts = append(parts, fmt.Sprintf("level %3.0f%%", snap.Level))
	}
	return strings.Join(parts, "  ")
}

func (v *View) colorTrail(lines []string) []string {
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, string(trailGlyph), v.Styles.Line.Render(string(trailGlyph)))
	}
	return lines
}

// heatLines colors the most recent cols spectra, low frequencies at the
// bottom.
func (v *View) heatLines(frames [][]uint8, cols, rows int) []string {
	if len(frames) > cols {
		frames = frames[len(frames)-cols:]
	}
	styles := make(map[uint8]lipgloss.Style)
	cell := func(value uint8) string {
		st, ok := styles[value]
		if !ok {
			st = lipgloss.NewStyle().Foreground(lipgloss.Color(spectral.HeatColor(value).Hex()))
			styles[value] = st
		}
		return st.Render(string(barGlyph))
	}

	lines := make([]string, rows)
	for r := range rows {
		var b strings.Builder
		for c := range cols {
			if c >= len(frames) || len(frames[c]) == 0 {
				b.WriteRune(emptyGlyph)
				continue
			}
			b.WriteString(cell(HeatCell(frames[c], r, rows)))
		}
		lines[r] = b.String()
	}
	return lines
}

// HeatCell returns the magnitude shown at row of a rows-high column for one
// spectrum. Row 0 is the top, holding the highest bins.
func HeatCell(spectrum []uint8, row, rows int) uint8 {
	if len(spectrum) == 0 || rows <= 0 {
		return 0
	}
	bin := (rows - 1 - row) * len(spectrum) / rows
	return spectrum[min(bin, len(spectrum)-1)]
}

// TrailGrid plots the most recent cols trail samples, one per column, at
// the rows their display positions map to.
func TrailGrid(snap *tracker.Snapshot, mapper tracker.FrequencyMapper, cols, rows int) [][]rune {
	grid := blankGrid(cols, rows)
	trail := snap.Trail
	if len(trail) > cols {
		trail = trail[len(trail)-cols:]
	}
	offset := cols - len(trail)
	for i, s := range trail {
		row := mapper.Row(mapper.ToDisplayPosition(s.Value, snap.Range), rows)
		grid[row][offset+i] = trailGlyph
	}
	return grid
}

// BarsGrid draws bar heights in [0, 1] as columns growing from the bottom.
// Bars are spread evenly across cols.
func BarsGrid(bars []float64, cols, rows int) [][]rune {
	grid := blankGrid(cols, rows)
	if len(bars) == 0 {
		return grid
	}
	for c := range cols {
		h := bars[c*len(bars)/cols]
		filled := int(h*float64(rows) + 0.5)
		for r := rows - filled; r < rows; r++ {
			if r >= 0 {
				grid[r][c] = barGlyph
			}
		}
	}
	return grid
}

func blankGrid(cols, rows int) [][]rune {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(emptyGlyph), cols))
	}
	return grid
}

func gridLines(grid [][]rune) []string {
	lines := make([]string, len(grid))
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}
