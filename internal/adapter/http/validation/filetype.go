// Package validation checks what the server is about to hand to the browser:
// the download name and the content of the file itself.
package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrDisallowedFileType is returned when a file type is not in the allowlist.
var ErrDisallowedFileType = errors.New("file type not allowed")

// deliverableMIMETypes lists the content types a conversion may deliver.
var deliverableMIMETypes = map[string]bool{
	"audio/wav":   true,
	"audio/wave":  true,
	"audio/x-wav": true,
}

// magicBytesBufferSize is the number of bytes to read for content type detection.
const magicBytesBufferSize = 512

// ValidateMagicBytes detects the content type of reader from its first bytes
// and reports whether it may be delivered. The reader is rewound before
// returning so the caller can stream it from the start.
func ValidateMagicBytes(reader io.ReadSeeker) (mime string, allowed bool, err error) {
	buf := make([]byte, magicBytesBufferSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, err
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}

	if n == 0 {
		return "application/octet-stream", false, nil
	}
	buf = buf[:n]

	mime = detectCustomMagicBytes(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}

	return mime, deliverableMIMETypes[mime], nil
}

// RequireWAV is ValidateMagicBytes for callers that only need a yes or no.
func RequireWAV(reader io.ReadSeeker) error {
	mime, allowed, err := ValidateMagicBytes(reader)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: detected %s", ErrDisallowedFileType, mime)
	}
	return nil
}

// detectCustomMagicBytes names the containers yt-dlp commonly produces so a
// failed conversion can be reported precisely. http.DetectContentType knows
// none of them except WAV, which it calls audio/wave.
func detectCustomMagicBytes(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// RIFF....WAVE
	if len(buf) >= 12 && string(buf[0:4]) == "RIFF" && string(buf[8:12]) == "WAVE" {
		return "audio/wav"
	}

	// WebM/Matroska EBML header
	if buf[0] == 0x1A && buf[1] == 0x45 && buf[2] == 0xDF && buf[3] == 0xA3 {
		return "audio/webm"
	}

	if string(buf[0:4]) == "fLaC" {
		return "audio/flac"
	}

	if string(buf[0:4]) == "OggS" {
		return "audio/ogg"
	}

	// MPEG audio frame sync without an ID3 tag
	if buf[0] == 0xFF {
		switch buf[1] & 0xFE {
		case 0xFA, 0xF2:
			return "audio/mpeg"
		}
	}

	if string(buf[0:3]) == "ID3" {
		return "audio/mpeg"
	}

	// ISO BMFF: [size]["ftyp"][brand]. YouTube serves m4a as "M4A " or "dash".
	if len(buf) >= 12 && string(buf[4:8]) == "ftyp" {
		switch string(buf[8:12]) {
		case "M4A ", "dash":
			return "audio/mp4"
		default:
			return "video/mp4"
		}
	}

	return ""
}
