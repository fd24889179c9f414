package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioFormat_PCMCodec(t *testing.T) {
	assert.Equal(t, "pcm_s16le", AudioFormat{BitDepth: 16}.PCMCodec())
	assert.Equal(t, "pcm_s24le", AudioFormat{BitDepth: 24}.PCMCodec())
	assert.Equal(t, "pcm_s32le", AudioFormat{BitDepth: 32}.PCMCodec())
}

func TestAudioFormat_Validate(t *testing.T) {
	assert.NoError(t, DefaultAudioFormat().Validate())

	bad := []AudioFormat{
		{Container: "mp3", SampleRate: 48000, Channels: 2, BitDepth: 16},
		{Container: "wav", SampleRate: 100, Channels: 2, BitDepth: 16},
		{Container: "wav", SampleRate: 48000, Channels: 0, BitDepth: 16},
		{Container: "wav", SampleRate: 48000, Channels: 2, BitDepth: 8},
	}
	for _, f := range bad {
		assert.Error(t, f.Validate(), f.String())
	}
}

func TestSelectBestAudio(t *testing.T) {
	t.Run("highest bitrate audio-only wins", func(t *testing.T) {
		formats := []SourceFormat{
			{ID: "18", VideoCodec: "avc1", AudioCodec: "mp4a", AudioRate: 320},
			{ID: "139", VideoCodec: "none", AudioCodec: "mp4a", AudioRate: 48},
			{ID: "251", VideoCodec: "none", AudioCodec: "opus", AudioRate: 160},
			{ID: "140", VideoCodec: "none", AudioCodec: "mp4a", AudioRate: 129},
		}
		best, ok := SelectBestAudio(formats)
		assert.True(t, ok)
		assert.Equal(t, "251", best.ID)
	})

	t.Run("falls back to first audio-only without bitrate", func(t *testing.T) {
		formats := []SourceFormat{
			{ID: "v", VideoCodec: "vp9", AudioCodec: "none"},
			{ID: "a1", VideoCodec: "none", AudioCodec: "opus"},
			{ID: "a2", VideoCodec: "none", AudioCodec: "mp4a"},
		}
		best, ok := SelectBestAudio(formats)
		assert.True(t, ok)
		assert.Equal(t, "a1", best.ID)
	})

	t.Run("no audio-only formats", func(t *testing.T) {
		_, ok := SelectBestAudio([]SourceFormat{{ID: "18", VideoCodec: "avc1", AudioCodec: "mp4a"}})
		assert.False(t, ok)
		_, ok = SelectBestAudio(nil)
		assert.False(t, ok)
	})
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		name string
		meta SourceMetadata
		want string
	}{
		{
			name: "full metadata",
			meta: SourceMetadata{Title: "Never Gonna Give You Up", Uploader: "Rick Astley", VideoID: "dQw4w9WgXcQ"},
			want: "Never Gonna Give You Up - Rick Astley - dQw4w9WgXcQ.wav",
		},
		{
			name: "punctuation stripped",
			meta: SourceMetadata{Title: `Live! @ "Venue" (2024)`, Uploader: "Band/Official", VideoID: "x1"},
			want: "Live Venue 2024 - BandOfficial - x1.wav",
		},
		{
			name: "unicode kept",
			meta: SourceMetadata{Title: "Café del Mar", Uploader: "日本", VideoID: "id"},
			want: "Café del Mar - 日本 - id.wav",
		},
		{
			name: "empty title",
			meta: SourceMetadata{},
			want: "audio.wav",
		},
		{
			name: "title only punctuation",
			meta: SourceMetadata{Title: "!!!", VideoID: "abc"},
			want: "audio - abc.wav",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputFilename(tt.meta))
		})
	}
}
