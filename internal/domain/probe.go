package domain

import (
	"fmt"
	"strconv"
)

type ProbeFormat struct {
	FormatName string            `json:"format_name"`
	FormatLong string            `json:"format_long_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	NbStreams  int               `json:"nb_streams"`
	Tags       map[string]string `json:"tags"`
}

type ProbeStream struct {
	Index         int               `json:"index"`
	CodecType     string            `json:"codec_type"`
	CodecName     string            `json:"codec_name"`
	CodecLong     string            `json:"codec_long_name"`
	Duration      string            `json:"duration"`
	BitRate       string            `json:"bit_rate"`
	SampleRate    string            `json:"sample_rate"`
	SampleFmt     string            `json:"sample_fmt"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	BitsPerSample int               `json:"bits_per_sample"`
	Tags          map[string]string `json:"tags"`
}

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
	RawJSON string        `json:"-"`
}

const (
	oneKilobyte      = 1024
	oneMegabyte      = oneKilobyte * 1024
	oneGigabyte      = oneMegabyte * 1024
	oneMegabitPerSec = 1000000
	oneKilobitPerSec = 1000
)

func (p *ProbeResult) AudioStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// Duration prefers the container duration and falls back to the audio stream.
func (p *ProbeResult) Duration() float64 {
	if d := ParseDuration(p.Format.Duration); d > 0 {
		return d
	}
	if as := p.AudioStream(); as != nil {
		return ParseDuration(as.Duration)
	}
	return 0
}

// Summary is a one-line description of the audio stream for logs.
func (p *ProbeResult) Summary() string {
	as := p.AudioStream()
	if as == nil {
		return fmt.Sprintf("%s, no audio stream", p.Format.FormatName)
	}
	bitrate := as.BitRate
	if bitrate == "" {
		bitrate = p.Format.BitRate
	}
	return fmt.Sprintf("%s %s %s %dch %s",
		p.Format.FormatName, as.CodecName, FormatSampleRate(as.SampleRate), as.Channels, FormatBitrate(bitrate))
}

func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "00:00"
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func FormatBitrate(bitrateStr string) string {
	if bitrateStr == "" {
		return ""
	}
	bitrate, err := strconv.ParseFloat(bitrateStr, 64)
	if err != nil {
		return bitrateStr
	}
	if bitrate >= oneMegabitPerSec {
		return fmt.Sprintf("%.1f Mbps", bitrate/oneMegabitPerSec)
	}
	if bitrate >= oneKilobitPerSec {
		return fmt.Sprintf("%.1f Kbps", bitrate/oneKilobitPerSec)
	}
	return fmt.Sprintf("%.0f bps", bitrate)
}

func FormatSampleRate(sampleRateStr string) string {
	if sampleRateStr == "" {
		return ""
	}
	sampleRate, err := strconv.ParseFloat(sampleRateStr, 64)
	if err != nil {
		return sampleRateStr
	}
	return fmt.Sprintf("%.0f Hz", sampleRate)
}

func ParseDuration(durationStr string) float64 {
	if durationStr == "" || durationStr == "N/A" {
		return 0
	}
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0
	}
	return duration
}

func FormatSize(bytes int64) string {
	if bytes < oneKilobyte {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < oneMegabyte {
		return fmt.Sprintf("%.1f KB", float64(bytes)/oneKilobyte)
	}
	if bytes < oneGigabyte {
		return fmt.Sprintf("%.1f MB", float64(bytes)/oneMegabyte)
	}
	return fmt.Sprintf("%.1f GB", float64(bytes)/oneGigabyte)
}
