package service

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bnema/ytwav/internal/domain"
)

const WAVContentType = "audio/wav"

// Result is a finished conversion. The WAV file lives in the job workspace
// until Close is called.
type Result struct {
	JobID       string
	Filename    string
	ContentType string
	Size        int64
	Duration    time.Duration
	Metadata    domain.SourceMetadata

	job     *domain.ConversionJob
	release func(*domain.ConversionJob)
	once    sync.Once
}

// Open returns the WAV file for reading. It fails once the result is closed.
func (r *Result) Open() (*os.File, error) {
	if r.job.State != domain.JobStateReady {
		return nil, fmt.Errorf("result for job %s is %s", r.JobID, r.job.State)
	}
	f, err := os.Open(r.job.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("open result: %w", err)
	}
	return f, nil
}

// Path is the location of the WAV file while the result is open.
func (r *Result) Path() string {
	return r.job.ResultPath
}

// State reports the lifecycle state of the underlying job.
func (r *Result) State() domain.JobState {
	return r.job.State
}

// Close deletes the job workspace. It is safe to call more than once.
func (r *Result) Close() error {
	r.once.Do(func() {
		r.release(r.job)
	})
	return nil
}
