// Package stub provides in-process stand-ins for the yt-dlp and ffmpeg
// adapters so the service can run without external tools.
package stub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/port"
)

const DefaultClipDuration = 3 * time.Second

// Extractor writes a silent WAV clip instead of downloading anything.
type Extractor struct {
	Duration time.Duration
	Format   domain.AudioFormat
	// Err, when set, makes every Extract call fail with it.
	Err error
}

func NewExtractor() *Extractor {
	return &Extractor{
		Duration: DefaultClipDuration,
		Format:   domain.DefaultAudioFormat(),
	}
}

// FailingExtractor returns an Extractor that always fails with err.
func FailingExtractor(err error) *Extractor {
	e := NewExtractor()
	e.Err = err
	return e
}

func (e *Extractor) Extract(ctx context.Context, sourceURL, dir string) (*domain.SourceAudio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}

	path := filepath.Join(dir, "source.wav")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create stub source: %w", err)
	}
	if err := domain.WriteSilentWAV(f, e.Format, e.Duration); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write stub source: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close stub source: %w", err)
	}

	id := domain.ExtractVideoID(sourceURL)
	if id == "" {
		id = "stub"
	}
	return &domain.SourceAudio{
		Path: path,
		Metadata: domain.SourceMetadata{
			VideoID:  id,
			Title:    "Silent clip",
			Uploader: "stub",
			Duration: e.Duration.Seconds(),
			FormatID: "stub",
			Codec:    e.Format.PCMCodec(),
		},
	}, nil
}

var _ port.AudioExtractor = (*Extractor)(nil)
