package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobStatePending     JobState = "pending"
	JobStateDownloading JobState = "downloading"
	JobStateTranscoding JobState = "transcoding"
	JobStateReady       JobState = "ready"
	JobStateFailed      JobState = "failed"
	JobStateCleaned     JobState = "cleaned"
)

// ConversionJob is one in-flight or completed conversion. It is owned by the
// job manager for its whole life and never shared between requests.
type ConversionJob struct {
	ID         string
	SourceURL  string
	Workspace  string
	State      JobState
	ResultPath string
	Err        *ConversionError
	Metadata   SourceMetadata
	CreatedAt  time.Time
	FinishedAt time.Time
}

func NewConversionJob(sourceURL string) *ConversionJob {
	return &ConversionJob{
		ID:        NewJobID(),
		SourceURL: sourceURL,
		State:     JobStatePending,
		CreatedAt: time.Now().UTC(),
	}
}

func NewJobID() string {
	return uuid.New().String()
}

// Transition moves the job to the given state if the edge is allowed.
func (j *ConversionJob) Transition(to JobState) error {
	if !isValidTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, to)
	}
	j.State = to
	if to == JobStateCleaned {
		j.FinishedAt = time.Now().UTC()
	}
	return nil
}

// MarkReady records the deliverable output path.
func (j *ConversionJob) MarkReady(resultPath string) error {
	if err := j.Transition(JobStateReady); err != nil {
		return err
	}
	j.ResultPath = resultPath
	return nil
}

// MarkFailed records the failure. The result path is cleared so a failed job
// never points at a partial file.
func (j *ConversionJob) MarkFailed(err *ConversionError) error {
	if transErr := j.Transition(JobStateFailed); transErr != nil {
		return transErr
	}
	j.Err = err
	j.ResultPath = ""
	return nil
}

func (j *ConversionJob) IsTerminal() bool {
	return j.State == JobStateCleaned
}

// Elapsed returns how long the job ran, or has been running so far.
func (j *ConversionJob) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() {
		return time.Since(j.CreatedAt)
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}

func isValidTransition(from, to JobState) bool {
	switch from {
	case JobStatePending:
		return to == JobStateDownloading || to == JobStateFailed
	case JobStateDownloading:
		return to == JobStateTranscoding || to == JobStateFailed
	case JobStateTranscoding:
		return to == JobStateReady || to == JobStateFailed
	case JobStateReady:
		return to == JobStateCleaned
	case JobStateFailed:
		return to == JobStateCleaned
	default:
		return false
	}
}
