package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/bnema/ytwav/internal/adapter/http/middleware"
	"github.com/bnema/ytwav/internal/adapter/http/ratelimit"
	"github.com/bnema/ytwav/internal/adapter/http/templates"
	"github.com/bnema/ytwav/internal/adapter/http/validation"
	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/infrastructure/logger"
	"github.com/bnema/ytwav/internal/service"
)

// StatusClientClosedRequest is nginx's non-standard code for a client that
// went away before the response was ready.
const StatusClientClosedRequest = 499

const (
	maxFormBytes    = 16 << 10
	kindRateLimited = "rate_limited"
	csrfHeader      = "X-CSRF-Token"
)

var (
	ticketPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)
	// codecPattern keeps extractor-supplied codec names header safe.
	codecPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)
)

type Converter interface {
	Submit(ctx context.Context, sourceURL string, opts ...service.SubmitOption) (*service.Result, error)
}

// ToolCheck reports whether an external tool the backend needs is usable.
type ToolCheck func() bool

type Handlers struct {
	converter   Converter
	limiter     *ratelimit.SubmissionLimiter
	behindProxy bool
	format      string
	version     string
	backend     string
	tools       map[string]ToolCheck
}

func NewHandlers(converter Converter, limiter *ratelimit.SubmissionLimiter, cfg ServerConfig) *Handlers {
	return &Handlers{
		converter:   converter,
		limiter:     limiter,
		behindProxy: cfg.BehindProxy,
		format:      cfg.Format,
		version:     cfg.Version,
		backend:     cfg.Backend,
		tools:       cfg.Tools,
	}
}

func (h *Handlers) Index() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.Index(templates.IndexData{
			CSRFToken: middleware.TokenFromContext(r.Context()),
			Format:    h.format,
			Version:   h.version,
		}).Render(r.Context(), w)
	}
}

// Convert handles the form submission. Success streams the WAV file,
// failure renders an inline error fragment.
func (h *Handlers) Convert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wait, ok := h.allow(r); !ok {
			setRetryAfter(w, wait)
			renderError(w, r, http.StatusTooManyRequests, kindRateLimited, "Too many conversions, try again later.")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			renderError(w, r, http.StatusBadRequest, string(domain.KindInvalidInput), "Invalid form submission.")
			return
		}

		var opts []service.SubmitOption
		if ticket := r.PostFormValue("ticket"); ticketPattern.MatchString(ticket) {
			opts = append(opts, service.WithTicket(ticket))
		}

		res, err := h.converter.Submit(r.Context(), r.PostFormValue("url"), opts...)
		if err != nil {
			kind, message, status := describeError(err)
			if status == StatusClientClosedRequest {
				logger.Info.Printf("client went away: %v", err)
				w.WriteHeader(status)
				return
			}
			renderError(w, r, status, kind, message)
			return
		}

		deliver(w, r, res)
	}
}

type apiConvertRequest struct {
	URL string `json:"url"`
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// APIConvert is the JSON flavour of Convert for scripts and other origins.
func (h *Handlers) APIConvert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wait, ok := h.allow(r); !ok {
			setRetryAfter(w, wait)
			writeJSONError(w, http.StatusTooManyRequests, kindRateLimited, "too many conversions, try again later")
			return
		}

		var req apiConvertRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, string(domain.KindInvalidInput), "request body must be JSON like {\"url\": \"...\"}")
			return
		}

		res, err := h.converter.Submit(r.Context(), req.URL)
		if err != nil {
			kind, message, status := describeError(err)
			if status == StatusClientClosedRequest {
				logger.Info.Printf("client went away: %v", err)
			}
			writeJSONError(w, status, kind, message)
			return
		}

		deliver(w, r, res)
	}
}

func (h *Handlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tools := make(map[string]bool, len(h.tools))
		healthy := true
		for name, check := range h.tools {
			ok := check()
			tools[name] = ok
			healthy = healthy && ok
		}

		status := "ok"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  status,
			"backend": h.backend,
			"version": h.version,
			"tools":   tools,
		})
	}
}

func (h *Handlers) allow(r *http.Request) (time.Duration, bool) {
	allowed, wait := h.limiter.Allow(ratelimit.ClientID(r, h.behindProxy))
	return wait, allowed
}

// deliver streams the result and removes its workspace once the response has
// been written, whether or not the client read all of it.
func deliver(w http.ResponseWriter, r *http.Request, res *service.Result) {
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn.Printf("job %s: close result: %v", res.JobID, err)
		}
	}()

	f, err := res.Open()
	if err != nil {
		logger.Error.Printf("job %s: open result: %v", res.JobID, err)
		http.Error(w, "Result not available", http.StatusInternalServerError)
		return
	}
	defer f.Close() //nolint:errcheck

	if err := validation.RequireWAV(f); err != nil {
		logger.Error.Printf("job %s: refusing to deliver: %v", res.JobID, err)
		http.Error(w, "Conversion produced an invalid file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", validation.ContentDisposition(res.Filename, false))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Audio-Duration", strconv.FormatFloat(res.Duration.Seconds(), 'f', 3, 64))
	if codecPattern.MatchString(res.Metadata.Codec) {
		w.Header().Set("X-Audio-Source-Codec", res.Metadata.Codec)
	}
	if res.Metadata.Bitrate > 0 {
		w.Header().Set("X-Audio-Source-Bitrate", strconv.FormatFloat(res.Metadata.Bitrate, 'f', 0, 64))
	}

	cw := &countingWriter{ResponseWriter: w}
	http.ServeContent(cw, r, res.Filename, time.Time{}, f)

	if cw.complete(r, res.Size) {
		logger.Info.Printf("job %s: delivered %q (%s)", res.JobID, logger.SanitizeForLog(res.Filename), domain.FormatSize(res.Size))
	} else {
		logger.Warn.Printf("job %s: aborted after %d of %d bytes", res.JobID, cw.written, res.Size)
	}
}

// countingWriter records how much of the body reached the connection.
type countingWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (cw *countingWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	n, err := cw.ResponseWriter.Write(p)
	cw.written += int64(n)
	return n, err
}

func (cw *countingWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// complete reports whether the full file went out. Range and conditional
// responses carry less than size on purpose and are not counted as aborts.
func (cw *countingWriter) complete(r *http.Request, size int64) bool {
	if cw.status != http.StatusOK || r.Header.Get("Range") != "" {
		return cw.status != 0
	}
	return cw.written == size
}

// describeError maps a conversion failure to what the client is told.
func describeError(err error) (kind, message string, status int) {
	var convErr *domain.ConversionError
	if !errors.As(err, &convErr) {
		return string(domain.KindIOFailure), "Unexpected server error.", http.StatusInternalServerError
	}

	message = convErr.Message
	switch convErr.Kind {
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindExtractionFailed:
		status = http.StatusBadGateway
		if detail := errorDetail(convErr); detail != "" {
			message = fmt.Sprintf("%s: %s", message, detail)
		}
	case domain.KindTranscodeFailed:
		status = http.StatusInternalServerError
		if detail := errorDetail(convErr); detail != "" {
			message = fmt.Sprintf("%s: %s", message, detail)
		}
	case domain.KindCancelled:
		status = StatusClientClosedRequest
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	default:
		status = http.StatusInternalServerError
	}
	return string(convErr.Kind), message, status
}

// errorDetail is the tool diagnostic carried by the error, trimmed for display.
func errorDetail(convErr *domain.ConversionError) string {
	if convErr.Err == nil {
		return ""
	}
	return logger.SanitizeValue(convErr.Err.Error())
}

// renderError answers the script on the page with a fragment it can insert,
// and a plain form post with a whole page.
func renderError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Header.Get(csrfHeader) != "" {
		_ = templates.ErrorInline(kind, message).Render(r.Context(), w)
		return
	}
	_ = templates.ErrorPage(strconv.Itoa(status), kind, message).Render(r.Context(), w)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErrorResponse{Error: apiError{Kind: kind, Message: message}})
}

func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
}
