package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyURL          = errors.New("url is required")
	ErrMalformedURL      = errors.New("url is malformed")
	ErrUnsupportedScheme = errors.New("url scheme must be http or https")
	ErrUnsupportedHost   = errors.New("url host is not supported")
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrWorkspaceExists   = errors.New("workspace already exists")
	ErrNoAudioOutput     = errors.New("no audio output produced")
)

// ErrorKind classifies why a conversion did not produce a file.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "invalid_input"
	KindExtractionFailed ErrorKind = "extraction_failed"
	KindTranscodeFailed  ErrorKind = "transcode_failed"
	KindIOFailure        ErrorKind = "io_failure"
	KindCancelled        ErrorKind = "cancelled"
)

// ConversionError is the structured error returned to callers of the job manager.
type ConversionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewConversionError(kind ErrorKind, message string, err error) *ConversionError {
	return &ConversionError{Kind: kind, Message: message, Err: err}
}

func (e *ConversionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the kind of the first ConversionError in err's chain, or
// an empty kind when there is none.
func KindOf(err error) ErrorKind {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return ""
}
