package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/infrastructure/command"
	"github.com/bnema/ytwav/internal/infrastructure/logger"
	"github.com/bnema/ytwav/internal/port"
)

const (
	sourceBaseName   = "source"
	fallbackSelector = "bestaudio/best"
)

type Options struct {
	BinaryPath    string
	Retries       int
	SocketTimeout time.Duration
}

// Extractor downloads the best audio stream of a video with yt-dlp.
type Extractor struct {
	opts    Options
	runner  command.Runner
	readDir func(name string) ([]os.DirEntry, error)
}

func NewExtractor(opts Options, runner command.Runner) *Extractor {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "yt-dlp"
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.SocketTimeout <= 0 {
		opts.SocketTimeout = 30 * time.Second
	}
	return &Extractor{
		opts:    opts,
		runner:  runner,
		readDir: os.ReadDir,
	}
}

type videoInfo struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Uploader string                `json:"uploader"`
	Duration float64               `json:"duration"`
	Formats  []domain.SourceFormat `json:"formats"`
}

// Extract resolves the video metadata, picks the best audio-only format and
// downloads it to <dir>/source.<ext>.
func (e *Extractor) Extract(ctx context.Context, sourceURL, dir string) (*domain.SourceAudio, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	info, err := e.fetchInfo(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	meta := domain.SourceMetadata{
		VideoID:  info.ID,
		Title:    info.Title,
		Uploader: info.Uploader,
		Duration: info.Duration,
	}

	selector := fallbackSelector
	if best, ok := domain.SelectBestAudio(info.Formats); ok {
		selector = best.ID + "/" + fallbackSelector
		meta.FormatID = best.ID
		meta.Codec = best.AudioCodec
		meta.Bitrate = best.AudioRate
		logger.Debug.Printf("selected format %s (%s, %.0fkbps) for %s", best.ID, best.AudioCodec, best.AudioRate, info.ID)
	} else {
		logger.Warn.Printf("no audio-only format listed for %s, falling back to %s", logger.SanitizeValue(sourceURL), fallbackSelector)
	}

	args := e.downloadArgs(selector, dir, sourceURL)
	res, err := e.runner.Run(ctx, e.opts.BinaryPath, args...)
	logger.Debug.Printf("yt-dlp download finished in %s (exit=%d)", res.Elapsed, res.ExitCode)
	if err != nil {
		return nil, &command.Error{Op: "yt-dlp download", Result: res, Err: err}
	}

	path, err := e.findSource(dir)
	if err != nil {
		return nil, err
	}

	return &domain.SourceAudio{Path: path, Metadata: meta}, nil
}

func (e *Extractor) fetchInfo(ctx context.Context, sourceURL string) (*videoInfo, error) {
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", strconv.Itoa(int(e.opts.SocketTimeout.Seconds())),
		sourceURL,
	}
	res, err := e.runner.Run(ctx, e.opts.BinaryPath, args...)
	if err != nil {
		return nil, &command.Error{Op: "yt-dlp metadata", Result: res, Err: err}
	}

	var info videoInfo
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return &info, nil
}

func (e *Extractor) downloadArgs(selector, dir, sourceURL string) []string {
	retries := strconv.Itoa(e.opts.Retries)
	return []string{
		"-f", selector,
		"-o", filepath.Join(dir, sourceBaseName+".%(ext)s"),
		"--no-playlist",
		"--no-part",
		"--no-mtime",
		"--no-color",
		"--no-progress",
		"--force-ipv4",
		"--retries", retries,
		"--extractor-retries", retries,
		"--fragment-retries", retries,
		"--socket-timeout", strconv.Itoa(int(e.opts.SocketTimeout.Seconds())),
		sourceURL,
	}
}

// findSource locates the downloaded file. yt-dlp picks the extension, so
// the name is only known after the download.
func (e *Extractor) findSource(dir string) (string, error) {
	entries, err := e.readDir(dir)
	if err != nil {
		return "", fmt.Errorf("read workspace: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, sourceBaseName+".") {
			continue
		}
		ext := filepath.Ext(name)
		if ext == ".part" || ext == ".ytdl" || ext == ".json" {
			continue
		}
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("yt-dlp finished: %w", domain.ErrNoAudioOutput)
}

var _ port.AudioExtractor = (*Extractor)(nil)
