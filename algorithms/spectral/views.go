package spectral

import "github.com/lucasb-eyer/go-colorful"

// FrequencyBars downsamples a byte spectrum to count bars by taking every
// floor(len/count)-th bin. Heights are normalized to [0, 1].
func FrequencyBars(data []uint8, count int) []float64 {
	if count <= 0 || len(data) == 0 {
		return nil
	}
	step := len(data) / count
	if step == 0 {
		step = 1
		count = len(data)
	}
	bars := make([]float64, count)
	for i := range count {
		bars[i] = float64(data[i*step]) / 255
	}
	return bars
}

// AudioLevel returns the mean byte magnitude as a percentage of full scale.
func AudioLevel(data []uint8) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0
	for _, v := range data {
		sum += int(v)
	}
	return float64(sum) / float64(len(data)) / 255 * 100
}

// HSL is a hue (degrees), saturation and lightness (percent) triple.
type HSL struct {
	Hue        float64 `json:"h"`
	Saturation float64 `json:"s"`
	Lightness  float64 `json:"l"`
}

// HeatColor maps a byte magnitude onto the purple-to-magenta heat-map ramp:
// hue 260..300, saturation 70..100 %, lightness 30..70 %.
func HeatColor(value uint8) HSL {
	intensity := float64(value) / 255
	return HSL{
		Hue:        260 + intensity*40,
		Saturation: 70 + intensity*30,
		Lightness:  30 + intensity*40,
	}
}

// Hex returns the colour as a #rrggbb string.
func (c HSL) Hex() string {
	return colorful.Hsl(c.Hue, c.Saturation/100, c.Lightness/100).Clamped().Hex()
}

// SpectrogramHistory is a bounded FIFO of byte spectra backing the heat-map
// view. The oldest spectrum is dropped once the limit is exceeded.
type SpectrogramHistory struct {
	limit  int
	frames [][]uint8
}

// NewSpectrogramHistory creates a history holding at most limit spectra.
func NewSpectrogramHistory(limit int) *SpectrogramHistory {
	if limit < 1 {
		limit = 1
	}
	return &SpectrogramHistory{limit: limit, frames: make([][]uint8, 0, limit)}
}

// Push appends a spectrum. The slice is retained, callers must not modify it
// afterwards.
func (h *SpectrogramHistory) Push(frame []uint8) {
	if len(h.frames) == h.limit {
		copy(h.frames, h.frames[1:])
		h.frames = h.frames[:h.limit-1]
	}
	h.frames = append(h.frames, frame)
}

// Frames returns the spectra oldest first. The outer slice is a copy; the
// spectra themselves are shared and read-only.
func (h *SpectrogramHistory) Frames() [][]uint8 {
	out := make([][]uint8, len(h.frames))
	copy(out, h.frames)
	return out
}

// Len returns the number of stored spectra.
func (h *SpectrogramHistory) Len() int {
	return len(h.frames)
}

// Clear drops every stored spectrum.
func (h *SpectrogramHistory) Clear() {
	h.frames = h.frames[:0]
}
