package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// AudioFormat describes the WAV output produced by the transcoder.
type AudioFormat struct {
	Container  string
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		Container:  "wav",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	}
}

// PCMCodec returns the ffmpeg encoder name matching the bit depth.
func (f AudioFormat) PCMCodec() string {
	switch f.BitDepth {
	case 24:
		return "pcm_s24le"
	case 32:
		return "pcm_s32le"
	default:
		return "pcm_s16le"
	}
}

func (f AudioFormat) Validate() error {
	if f.Container != "wav" {
		return fmt.Errorf("unsupported container: %s", f.Container)
	}
	if f.SampleRate < 8000 || f.SampleRate > 192000 {
		return fmt.Errorf("sample rate out of range: %d", f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 8 {
		return fmt.Errorf("channel count out of range: %d", f.Channels)
	}
	switch f.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", f.BitDepth)
	}
	return nil
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%s %dHz %dch %dbit", f.Container, f.SampleRate, f.Channels, f.BitDepth)
}

// SourceFormat is one downloadable stream reported by the extractor.
type SourceFormat struct {
	ID         string  `json:"format_id"`
	Ext        string  `json:"ext"`
	VideoCodec string  `json:"vcodec"`
	AudioCodec string  `json:"acodec"`
	AudioRate  float64 `json:"abr"`
	SampleRate float64 `json:"asr"`
	FileSize   int64   `json:"filesize"`
}

func (f SourceFormat) IsAudioOnly() bool {
	return f.VideoCodec == "none" && f.AudioCodec != "none"
}

// SourceMetadata is what the extractor learned about the video.
type SourceMetadata struct {
	VideoID  string
	Title    string
	Uploader string
	Duration float64
	FormatID string
	Codec    string
	Bitrate  float64
}

// SourceAudio is the extracted audio file inside a job workspace.
type SourceAudio struct {
	Path     string
	Metadata SourceMetadata
}

// SelectBestAudio picks the audio-only format with the highest bitrate. When
// no audio-only format reports a bitrate, the first audio-only format wins.
// It returns false when there is no audio-only format at all.
func SelectBestAudio(formats []SourceFormat) (SourceFormat, bool) {
	var best SourceFormat
	found := false
	for _, f := range formats {
		if !f.IsAudioOnly() || f.AudioRate <= 0 {
			continue
		}
		if !found || f.AudioRate > best.AudioRate {
			best = f
			found = true
		}
	}
	if found {
		return best, true
	}

	for _, f := range formats {
		if f.IsAudioOnly() {
			return f, true
		}
	}
	return SourceFormat{}, false
}

var unsafeTitleChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// OutputFilename builds the download name "<title> - <uploader> - <id>.wav".
func OutputFilename(meta SourceMetadata) string {
	title := cleanTitlePart(meta.Title)
	if title == "" {
		title = "audio"
	}
	parts := []string{title}
	if uploader := cleanTitlePart(meta.Uploader); uploader != "" {
		parts = append(parts, uploader)
	}
	if meta.VideoID != "" {
		parts = append(parts, cleanTitlePart(meta.VideoID))
	}
	return strings.Join(parts, " - ") + ".wav"
}

func cleanTitlePart(s string) string {
	s = unsafeTitleChars.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
