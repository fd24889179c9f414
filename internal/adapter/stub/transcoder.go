package stub

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/port"
)

// Transcoder copies its input to the output unchanged. It is only correct
// when the input already is a WAV file, which the stub Extractor guarantees.
type Transcoder struct {
	// Err, when set, makes every Transcode call fail with it.
	Err error
}

func NewTranscoder() *Transcoder {
	return &Transcoder{}
}

func FailingTranscoder(err error) *Transcoder {
	return &Transcoder{Err: err}
}

func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, format domain.AudioFormat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Err != nil {
		return t.Err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}

// Probe reads the WAV header of inputPath and reports it in ffprobe's shape.
func (t *Transcoder) Probe(ctx context.Context, inputPath string) (*domain.ProbeResult, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	info, err := domain.ReadWAVInfo(f)
	if err != nil {
		return nil, err
	}

	duration := strconv.FormatFloat(info.Duration().Seconds(), 'f', 6, 64)
	return &domain.ProbeResult{
		Format: domain.ProbeFormat{
			FormatName: "wav",
			Duration:   duration,
			NbStreams:  1,
		},
		Streams: []domain.ProbeStream{{
			CodecType:     "audio",
			CodecName:     fmt.Sprintf("pcm_s%dle", info.BitsPerSample),
			SampleRate:    strconv.Itoa(info.SampleRate),
			Channels:      info.Channels,
			BitsPerSample: info.BitsPerSample,
			Duration:      duration,
		}},
	}, nil
}

var _ port.Transcoder = (*Transcoder)(nil)
