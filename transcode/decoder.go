// Package transcode turns audio inputs into the fixed-size sample frames the
// tracker consumes: ffmpeg decoding of recorded files, raw PCM capture
// streams and the framing that slices either into analysis windows.
package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
)

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64      `json:"-"` // Samples in [-1, 1]
	SampleRate int            `json:"sample_rate"`
	Duration   time.Duration  `json:"duration"`
	Source     *AudioMetadata `json:"source,omitempty"`
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	MaxDuration      time.Duration `json:"max_duration"`
	ResampleQuality  string        `json:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // Timeout for each ffmpeg invocation
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 44100,
		ResampleQuality:  "high",
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          30 * time.Second,
	}
}

// Decoder decodes recorded audio (webm/opus captures, wav, mp3, ...) to mono
// float samples using FFmpeg.
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder. A nil logger uses the global one.
func NewDecoder(config *DecoderConfig, logger logging.Logger) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{"component": "audio_decoder"}),
	}
}

// DecodeFile probes and decodes an audio file.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": filename,
	})
	logger.Debug("Starting audio file decode")

	metadata, err := d.probe(ctx, filename, nil)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}
	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args := append([]string{"-i", filename}, d.buildFFmpegArgs(metadata)...)
	output, err := d.run(ctx, d.config.FFmpegPath, args, nil)
	if err != nil {
		logger.Error(err, "FFmpeg decode failed")
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return d.processOutput(output, metadata, logger)
}

// DecodeReader decodes an in-memory recording, such as the browser
// MediaRecorder blob uploaded by a client.
func (d *Decoder) DecodeReader(ctx context.Context, r io.Reader) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{"function": "DecodeReader"})

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio data")
	}

	metadata, err := d.probe(ctx, "pipe:0", data)
	if err != nil {
		logger.Error(err, "Failed to probe audio data")
		return nil, err
	}

	args := append([]string{"-i", "pipe:0"}, d.buildFFmpegArgs(metadata)...)
	output, err := d.run(ctx, d.config.FFmpegPath, args, data)
	if err != nil {
		logger.Error(err, "FFmpeg decode failed")
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return d.processOutput(output, metadata, logger)
}

// probe uses ffprobe to read the first audio stream of input.
func (d *Decoder) probe(ctx context.Context, input string, stdin []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		input,
	}
	output, err := d.run(ctx, d.config.FFprobePath, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobeOutput(output)
}

// run executes a tool under the configured timeout and returns its stdout.
// Failures carry the tool's stderr.
func (d *Decoder) run(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	d.logger.Debug("Running command", logging.Fields{
		"command": path + " " + strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, errors.New("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}
	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// Browser webm captures often omit duration and bitrate.
	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = 48000
	}
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs builds the output side of the ffmpeg command: mono f64le at
// the target rate on stdout.
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-vn",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
	}

	if metadata.SampleRate != d.config.TargetSampleRate {
		switch d.config.ResampleQuality {
		case "fast":
			args = append(args, "-af", "aresample=resampler=soxr:precision=16")
		case "medium":
			args = append(args, "-af", "aresample=resampler=soxr:precision=20")
		case "high":
			args = append(args, "-af", "aresample=resampler=soxr:precision=28")
		}
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	return append(args, "-v", "error", "pipe:1")
}

func (d *Decoder) processOutput(output []byte, metadata *AudioMetadata, logger logging.Logger) (*AudioData, error) {
	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, errors.New("no audio samples decoded")
	}
	duration := time.Duration(len(samples)) * time.Second / time.Duration(d.config.TargetSampleRate)

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_samples":     len(samples),
		"output_sample_rate": d.config.TargetSampleRate,
		"output_duration":    duration.Seconds(),
	})

	return &AudioData{
		PCM:        samples,
		SampleRate: d.config.TargetSampleRate,
		Duration:   duration,
		Source:     metadata,
	}, nil
}

// bytesToFloat64 converts raw little-endian float64 bytes, dropping a
// trailing partial sample.
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / 8
	if sampleCount == 0 {
		return nil
	}
	samples := make([]float64, sampleCount)
	for i := range sampleCount {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return samples
}

// CheckAvailability verifies that ffmpeg and ffprobe can be executed.
func (d *Decoder) CheckAvailability(ctx context.Context) error {
	if _, err := d.run(ctx, d.config.FFmpegPath, []string{"-version"}, nil); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	if _, err := d.run(ctx, d.config.FFprobePath, []string{"-version"}, nil); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}
	return nil
}
