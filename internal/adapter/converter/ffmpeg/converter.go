package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/infrastructure/command"
	"github.com/bnema/ytwav/internal/port"
)

var (
	ErrEmptyPath   = errors.New("path is empty")
	ErrInvalidPath = errors.New("path contains invalid characters")
)

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

type Options struct {
	FFmpegPath  string
	FFprobePath string
}

type Converter struct {
	opts   Options
	runner command.Runner
}

func NewConverter(opts Options, runner command.Runner) *Converter {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	return &Converter{opts: opts, runner: runner}
}

// Transcode decodes the first audio stream of inputPath into uncompressed PCM
// WAV at outputPath. Any video stream is dropped.
func (c *Converter) Transcode(ctx context.Context, inputPath, outputPath string, format domain.AudioFormat) error {
	if err := validatePath(inputPath); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if err := validatePath(outputPath); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := format.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	res, err := c.runner.Run(ctx, c.opts.FFmpegPath, transcodeArgs(inputPath, outputPath, format)...)
	if err != nil {
		return &command.Error{Op: "ffmpeg", Result: res, Err: err}
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg finished: %w", domain.ErrNoAudioOutput)
	}
	return nil
}

func transcodeArgs(inputPath, outputPath string, format domain.AudioFormat) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", inputPath,
		"-vn",
		"-map", "0:a:0",
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-c:a", format.PCMCodec(),
		"-f", "wav",
		outputPath,
	}
}

func (c *Converter) Probe(ctx context.Context, inputPath string) (*domain.ProbeResult, error) {
	if err := validatePath(inputPath); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
	res, err := c.runner.Run(ctx, c.opts.FFprobePath, args...)
	if err != nil {
		return nil, &command.Error{Op: "ffprobe", Result: res, Err: err}
	}

	var probe domain.ProbeResult
	if err := json.Unmarshal([]byte(res.Stdout), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	probe.RawJSON = res.Stdout

	return &probe, nil
}

var _ port.Transcoder = (*Converter)(nil)
