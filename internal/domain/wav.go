package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	wavHeaderSize       = 44
)

// WAVInfo is the subset of a WAV header needed to describe the output.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int64
}

func (w WAVInfo) Duration() time.Duration {
	bytesPerSecond := int64(w.SampleRate) * int64(w.Channels) * int64(w.BitsPerSample/8)
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(w.DataSize * int64(time.Second) / bytesPerSecond)
}

// ReadWAVInfo walks the RIFF chunks of r until it has seen both "fmt " and
// "data". Chunks it does not know (LIST, fact, ...) are skipped.
func ReadWAVInfo(r io.Reader) (WAVInfo, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WAVInfo{}, ErrNotWAV
	}

	var info WAVInfo
	sawFmt := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return WAVInfo{}, fmt.Errorf("%w: truncated chunk header: %v", ErrNotWAV, err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, fmt.Errorf("%w: fmt chunk too small", ErrNotWAV)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: truncated fmt chunk: %v", ErrNotWAV, err)
			}
			tag := binary.LittleEndian.Uint16(body[0:2])
			if tag != wavFormatPCM && tag != wavFormatExtensible {
				return WAVInfo{}, fmt.Errorf("%w: unsupported format tag %#x", ErrNotWAV, tag)
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			sawFmt = true
			if size%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return WAVInfo{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
				}
			}
		case "data":
			if !sawFmt {
				return WAVInfo{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			info.DataSize = size
			return info, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: truncated %q chunk: %v", ErrNotWAV, id, err)
			}
		}
	}
}

// WriteSilentWAV writes a canonical 44-byte-header PCM WAV of the given
// duration filled with zero samples.
func WriteSilentWAV(w io.Writer, format AudioFormat, d time.Duration) error {
	if err := format.Validate(); err != nil {
		return err
	}
	blockAlign := format.Channels * format.BitDepth / 8
	frames := int64(format.SampleRate) * int64(d) / int64(time.Second)
	dataSize := frames * int64(blockAlign)

	hdr := make([]byte, wavHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+dataSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(format.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(format.BitDepth))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))

	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	silence := make([]byte, 32*1024)
	for remaining := dataSize; remaining > 0; {
		n := int64(len(silence))
		if remaining < n {
			n = remaining
		}
		if _, err := w.Write(silence[:n]); err != nil {
			return fmt.Errorf("write wav samples: %w", err)
		}
		remaining -= n
	}
	return nil
}
