package transcode

import (
	"errors"
	"fmt"
	"io"
	"slices"

	resampling "github.com/tphakala/go-audio-resampling"
)

// SampleSource yields mono samples in [-1, 1] in chunks. It returns io.EOF
// once exhausted; a chunk may accompany a nil error only.
type SampleSource interface {
	ReadSamples() ([]float64, error)
}

// PCMFormat describes a raw signed 16-bit little-endian interleaved stream.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

func (f PCMFormat) frameBytes() int {
	return 2 * f.Channels
}

// PCMReader reads raw s16le capture audio (for example `arecord -f S16_LE`
// or `ffmpeg -f s16le pipe:1` on stdin), downmixes it to mono and resamples
// it to the analysis rate when the rates differ.
type PCMReader struct {
	r          io.Reader
	format     PCMFormat
	targetRate int

	buf       []byte
	leftover  int
	resampler resampling.Resampler
	done      bool
}

// defaultChunkFrames is how many capture frames one ReadSamples call asks for.
const defaultChunkFrames = 1024

// NewPCMReader wraps r. targetRate is the rate the tracker analyses at.
func NewPCMReader(r io.Reader, format PCMFormat, targetRate int) (*PCMReader, error) {
	if format.SampleRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("pcm: sample rates must be positive (source %d, target %d)", format.SampleRate, targetRate)
	}
	if format.Channels < 1 || format.Channels > 8 {
		return nil, fmt.Errorf("pcm: invalid channel count %d", format.Channels)
	}

	p := &PCMReader{
		r:          r,
		format:     format,
		targetRate: targetRate,
		buf:        make([]byte, defaultChunkFrames*format.frameBytes()),
	}
	if format.SampleRate != targetRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(format.SampleRate),
			OutputRate: float64(targetRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("pcm: failed to create resampler: %w", err)
		}
		p.resampler = rs
	}
	return p, nil
}

// SampleRate returns the rate of the samples ReadSamples yields.
func (p *PCMReader) SampleRate() int {
	return p.targetRate
}

// ReadSamples reads the next chunk. A trailing partial frame at end of
// stream is discarded.
func (p *PCMReader) ReadSamples() ([]float64, error) {
	for {
		if p.done {
			return nil, io.EOF
		}

		n, err := p.r.Read(p.buf[p.leftover:])
		n += p.leftover
		whole := n - n%p.format.frameBytes()

		var mono []float64
		if whole > 0 {
			mono = p.downmix(p.buf[:whole])
			p.leftover = copy(p.buf, p.buf[whole:n])
		} else {
			p.leftover = n
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("pcm: read: %w", err)
			}
			p.done = true
		}

		if len(mono) == 0 {
			continue
		}
		if p.resampler == nil {
			return mono, nil
		}
		out, err := p.resampler.Process(mono)
		if err != nil {
			return nil, fmt.Errorf("pcm: resample: %w", err)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
}

// downmix averages the channels of each interleaved frame.
func (p *PCMReader) downmix(data []byte) []float64 {
	channels := p.format.Channels
	frames := len(data) / p.format.frameBytes()
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			off := (i*channels + c) * 2
			sum += float64(int16(uint16(data[off])|uint16(data[off+1])<<8)) / 32768.0
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// SliceSource replays decoded samples in fixed chunks.
type SliceSource struct {
	samples []float64
	chunk   int
	pos     int
}

// NewSliceSource creates a source over samples. Chunks are copies.
func NewSliceSource(samples []float64, chunk int) *SliceSource {
	if chunk < 1 {
		chunk = defaultChunkFrames
	}
	return &SliceSource{samples: samples, chunk: chunk}
}

func (s *SliceSource) ReadSamples() ([]float64, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := min(s.pos+s.chunk, len(s.samples))
	out := slices.Clone(s.samples[s.pos:end])
	s.pos = end
	return out, nil
}
