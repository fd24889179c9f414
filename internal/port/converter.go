package port

import (
	"context"

	"github.com/bnema/ytwav/internal/domain"
)

// AudioExtractor fetches the best available audio stream of a video into dir.
type AudioExtractor interface {
	Extract(ctx context.Context, sourceURL, dir string) (*domain.SourceAudio, error)
}

// Transcoder converts a local audio file into the requested WAV format.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, format domain.AudioFormat) error
	Probe(ctx context.Context, inputPath string) (*domain.ProbeResult, error)
}
