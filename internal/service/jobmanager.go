package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/infrastructure/logger"
	"github.com/bnema/ytwav/internal/port"
)

const (
	maxAllocateAttempts = 3

	// durationDriftWarn is how far the probed source may stray from the
	// duration the extractor reported before a warning is logged.
	durationDriftWarn = 2.0
)

type JobManagerConfig struct {
	Format       domain.AudioFormat
	AllowedHosts []string
	// Timeout bounds a whole job, extraction and transcoding included.
	// Zero means the caller's context is the only limit.
	Timeout time.Duration
}

// JobManager runs one conversion per Submit call on the caller's goroutine.
// It keeps no state shared between jobs; the workspace root is the only
// thing concurrent jobs have in common.
type JobManager struct {
	extractor  port.AudioExtractor
	transcoder port.Transcoder
	workspaces port.WorkspaceAllocator
	events     EventPublisher
	cfg        JobManagerConfig
	newID      func() string
}

func NewJobManager(
	extractor port.AudioExtractor,
	transcoder port.Transcoder,
	workspaces port.WorkspaceAllocator,
	events EventPublisher,
	cfg JobManagerConfig,
) *JobManager {
	if cfg.Format == (domain.AudioFormat{}) {
		cfg.Format = domain.DefaultAudioFormat()
	}
	return &JobManager{
		extractor:  extractor,
		transcoder: transcoder,
		workspaces: workspaces,
		events:     events,
		cfg:        cfg,
		newID:      domain.NewJobID,
	}
}

type submitOptions struct {
	ticket string
}

type SubmitOption func(*submitOptions)

// WithTicket publishes the job's state changes under ticket.
func WithTicket(ticket string) SubmitOption {
	return func(o *submitOptions) {
		o.ticket = ticket
	}
}

// Submit validates sourceURL, downloads and transcodes it inside a fresh
// workspace and returns the deliverable. On success the caller owns the
// Result and must Close it; on failure the workspace is already gone and the
// error is a *domain.ConversionError.
func (m *JobManager) Submit(ctx context.Context, sourceURL string, opts ...SubmitOption) (*Result, error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	u, err := domain.ValidateSourceURL(sourceURL, m.cfg.AllowedHosts)
	if err != nil {
		logger.Warn.Printf("rejected url %s: %v", logger.SanitizeValue(sourceURL), err)
		convErr := domain.NewConversionError(domain.KindInvalidInput, invalidInputMessage(err), err)
		m.publish(o.ticket, domain.JobStateFailed, convErr)
		return nil, convErr
	}

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	job := domain.NewConversionJob(u.String())
	job.ID = m.newID()

	if err := m.allocate(job); err != nil {
		convErr := domain.NewConversionError(domain.KindIOFailure, "could not create a job workspace", err)
		logger.Error.Printf("job %s: %v", job.ID, convErr)
		_ = job.MarkFailed(convErr)
		_ = job.Transition(domain.JobStateCleaned)
		m.publish(o.ticket, domain.JobStateFailed, convErr)
		return nil, convErr
	}
	logger.Info.Printf("job %s: started for %s", job.ID, logger.SanitizeForLog(job.SourceURL))

	defer func() {
		if p := recover(); p != nil {
			if !job.IsTerminal() {
				convErr := domain.NewConversionError(domain.KindIOFailure, "internal error during conversion", fmt.Errorf("panic: %v", p))
				m.fail(job, convErr)
				m.publish(o.ticket, domain.JobStateFailed, convErr)
			}
			panic(p)
		}
	}()

	res, convErr := m.run(ctx, job, o.ticket)
	if convErr != nil {
		m.fail(job, convErr)
		m.publish(o.ticket, domain.JobStateFailed, convErr)
		return nil, convErr
	}

	m.publish(o.ticket, domain.JobStateReady, nil)
	logger.Info.Printf("job %s: ready in %s (%s, %s, source %s)", job.ID, job.Elapsed().Round(time.Millisecond),
		domain.FormatSize(res.Size), res.Duration.Round(time.Millisecond), domain.FormatDuration(job.Metadata.Duration))
	return res, nil
}

func (m *JobManager) run(ctx context.Context, job *domain.ConversionJob, ticket string) (*Result, *domain.ConversionError) {
	if err := job.Transition(domain.JobStateDownloading); err != nil {
		return nil, domain.NewConversionError(domain.KindIOFailure, "job state error", err)
	}
	m.publish(ticket, domain.JobStateDownloading, nil)

	src, err := m.extractor.Extract(ctx, job.SourceURL, job.Workspace)
	if err != nil {
		return nil, classify(ctx, domain.KindExtractionFailed, "could not download audio from the source", err)
	}
	job.Metadata = src.Metadata

	if err := job.Transition(domain.JobStateTranscoding); err != nil {
		return nil, domain.NewConversionError(domain.KindIOFailure, "job state error", err)
	}
	m.publish(ticket, domain.JobStateTranscoding, nil)

	if probe, err := m.transcoder.Probe(ctx, src.Path); err == nil {
		logger.Debug.Printf("job %s: source %s", job.ID, probe.Summary())
		if drift := probe.Duration() - job.Metadata.Duration; job.Metadata.Duration > 0 && probe.Duration() > 0 && math.Abs(drift) > durationDriftWarn {
			logger.Warn.Printf("job %s: source is %s but the extractor reported %s", job.ID,
				domain.FormatDuration(probe.Duration()), domain.FormatDuration(job.Metadata.Duration))
		}
	} else {
		logger.Debug.Printf("job %s: probe skipped: %v", job.ID, err)
	}

	outPath := filepath.Join(job.Workspace, job.ID+".wav")
	if err := m.transcoder.Transcode(ctx, src.Path, outPath, m.cfg.Format); err != nil {
		return nil, classify(ctx, domain.KindTranscodeFailed, "could not convert the audio to WAV", err)
	}

	info, size, err := inspectOutput(outPath)
	if err != nil {
		return nil, classify(ctx, domain.KindTranscodeFailed, "the converted file is not a valid WAV", err)
	}

	if err := job.MarkReady(outPath); err != nil {
		return nil, domain.NewConversionError(domain.KindIOFailure, "job state error", err)
	}

	return &Result{
		JobID:       job.ID,
		Filename:    domain.OutputFilename(job.Metadata),
		ContentType: WAVContentType,
		Size:        size,
		Duration:    info.Duration(),
		Metadata:    job.Metadata,
		job:         job,
		release:     m.release,
	}, nil
}

// allocate creates the job workspace, drawing a new id when the directory
// for the current one already exists.
func (m *JobManager) allocate(job *domain.ConversionJob) error {
	for attempt := 1; ; attempt++ {
		path, err := m.workspaces.Allocate(job.ID)
		if err == nil {
			job.Workspace = path
			return nil
		}
		if !errors.Is(err, domain.ErrWorkspaceExists) || attempt >= maxAllocateAttempts {
			return err
		}
		logger.Warn.Printf("job %s: %v, retrying with a new id", job.ID, err)
		job.ID = m.newID()
	}
}

func (m *JobManager) fail(job *domain.ConversionJob, convErr *domain.ConversionError) {
	logger.Error.Printf("job %s: %v", job.ID, convErr)
	if err := job.MarkFailed(convErr); err != nil {
		logger.Warn.Printf("job %s: %v", job.ID, err)
	}
	m.release(job)
}

// release deletes the job workspace and moves the job to cleaned. Cleanup
// problems are logged and never change the job's outcome.
func (m *JobManager) release(job *domain.ConversionJob) {
	if job.Workspace != "" {
		if err := m.workspaces.Release(job.Workspace); err != nil {
			logger.Warn.Printf("job %s: release workspace: %v", job.ID, err)
		}
	}
	if err := job.Transition(domain.JobStateCleaned); err != nil {
		logger.Warn.Printf("job %s: %v", job.ID, err)
	}
	logger.Debug.Printf("job %s: cleaned after %s", job.ID, job.Elapsed().Round(time.Millisecond))
}

func (m *JobManager) publish(ticket string, state domain.JobState, convErr *domain.ConversionError) {
	if m.events == nil || ticket == "" {
		return
	}
	ev := Event{Type: EventTypeStatus, Status: string(state)}
	if convErr != nil {
		ev.Kind = string(convErr.Kind)
		ev.Message = convErr.Message
	}
	m.events.Publish(ticket, ev)
}

// SweepStale removes workspaces orphaned by a crash or a killed process.
func (m *JobManager) SweepStale(maxAge time.Duration) (int, error) {
	return m.workspaces.Sweep(maxAge)
}

// classify wraps err as kind unless the job's context ended first, in which
// case the failure is reported as a cancellation.
func classify(ctx context.Context, kind domain.ErrorKind, message string, err error) *domain.ConversionError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "the conversion was cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "the conversion timed out"
		}
		if !errors.Is(err, ctxErr) {
			err = errors.Join(ctxErr, err)
		}
		return domain.NewConversionError(domain.KindCancelled, msg, err)
	}
	return domain.NewConversionError(kind, message, err)
}

func invalidInputMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyURL):
		return "please enter a URL"
	case errors.Is(err, domain.ErrUnsupportedScheme):
		return "only http and https URLs are supported"
	case errors.Is(err, domain.ErrUnsupportedHost):
		return "this site is not supported"
	default:
		return "the URL is not valid"
	}
}

func inspectOutput(path string) (domain.WAVInfo, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.WAVInfo{}, 0, fmt.Errorf("%w: %v", domain.ErrNoAudioOutput, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return domain.WAVInfo{}, 0, err
	}
	info, err := domain.ReadWAVInfo(f)
	if err != nil {
		return domain.WAVInfo{}, 0, err
	}
	return info, stat.Size(), nil
}
