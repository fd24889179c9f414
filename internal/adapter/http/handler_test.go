package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/ytwav/internal/adapter/http/ratelimit"
	"github.com/bnema/ytwav/internal/adapter/storage/workspace"
	"github.com/bnema/ytwav/internal/adapter/stub"
	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/infrastructure/logger"
	"github.com/bnema/ytwav/internal/port/mocks"
	"github.com/bnema/ytwav/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testVideoURL = "https://www.youtube.com/watch?v=abc123XYZ00"

type converterFunc func(ctx context.Context, sourceURL string, opts ...service.SubmitOption) (*service.Result, error)

func (f converterFunc) Submit(ctx context.Context, sourceURL string, opts ...service.SubmitOption) (*service.Result, error) {
	return f(ctx, sourceURL, opts...)
}

func newStubConverter(t *testing.T, root string, events service.EventPublisher) *service.JobManager {
	t.Helper()
	return service.NewJobManager(stub.NewExtractor(), stub.NewTranscoder(), workspace.NewStore(root), events, service.JobManagerConfig{
		AllowedHosts: domain.DefaultAllowedHosts,
	})
}

func newTestHandlers(converter Converter, limiter *ratelimit.SubmissionLimiter) *Handlers {
	return NewHandlers(converter, limiter, ServerConfig{Version: "test", Backend: "stub"})
}

func postForm(handler http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLog(t *testing.T, l *log.Logger) *logBuffer {
	t.Helper()
	buf := &logBuffer{}
	prev := l.Writer()
	l.SetOutput(buf)
	t.Cleanup(func() { l.SetOutput(prev) })
	return buf
}

func TestConvert_StreamsWAVAndCleansUp(t *testing.T) {
	root := t.TempDir()
	h := newTestHandlers(newStubConverter(t, root, nil), nil)

	rec := postForm(h.Convert(), url.Values{"url": {testVideoURL}})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Silent clip - stub - abc123XYZ00.wav"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "3.000", rec.Header().Get("X-Audio-Duration"))

	body := rec.Body.Bytes()
	assert.Equal(t, 44+3*48000*4, len(body))
	assert.Equal(t, "RIFF", string(body[:4]))
	assert.Equal(t, "WAVE", string(body[8:12]))

	assertEmptyDir(t, root)
}

func TestConvert_PublishesToTicket(t *testing.T) {
	root := t.TempDir()
	bus := service.NewEventBus()
	ch := bus.Subscribe("ticket-abcdef")
	defer bus.Unsubscribe("ticket-abcdef", ch)

	h := newTestHandlers(newStubConverter(t, root, bus), nil)
	rec := postForm(h.Convert(), url.Values{"url": {testVideoURL}, "ticket": {"ticket-abcdef"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []string
	for len(ch) > 0 {
		statuses = append(statuses, (<-ch).Status)
	}
	assert.Equal(t, []string{"downloading", "transcoding", "ready"}, statuses)
}

func TestConvert_IgnoresMalformedTicket(t *testing.T) {
	var got []service.SubmitOption
	conv := converterFunc(func(ctx context.Context, sourceURL string, opts ...service.SubmitOption) (*service.Result, error) {
		got = opts
		return nil, domain.NewConversionError(domain.KindInvalidInput, "the URL is not valid", domain.ErrMalformedURL)
	})

	rec := postForm(newTestHandlers(conv, nil).Convert(), url.Values{"url": {"x"}, "ticket": {"<script>"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, got)
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		extractor  *stub.Extractor
		transcoder *stub.Transcoder
		wantStatus int
		wantKind   string
		wantText   string
	}{
		{
			name:       "empty url",
			url:        "",
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
			wantText:   "please enter a URL",
		},
		{
			name:       "unsupported scheme",
			url:        "ftp://www.youtube.com/watch?v=abc",
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
			wantText:   "only http and https URLs are supported",
		},
		{
			name:       "unsupported host",
			url:        "https://example.com/video",
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
			wantText:   "this site is not supported",
		},
		{
			name:       "extraction failure",
			url:        testVideoURL,
			extractor:  stub.FailingExtractor(errors.New("video unavailable")),
			wantStatus: http.StatusBadGateway,
			wantKind:   "extraction_failed",
			wantText:   "video unavailable",
		},
		{
			name:       "transcode failure",
			url:        testVideoURL,
			transcoder: stub.FailingTranscoder(errors.New("invalid data found")),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "transcode_failed",
			wantText:   "could not convert the audio to WAV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			ext, tr := tt.extractor, tt.transcoder
			if ext == nil {
				ext = stub.NewExtractor()
			}
			if tr == nil {
				tr = stub.NewTranscoder()
			}
			jm := service.NewJobManager(ext, tr, workspace.NewStore(root), nil, service.JobManagerConfig{
				AllowedHosts: domain.DefaultAllowedHosts,
			})

			rec := postForm(newTestHandlers(jm, nil).Convert(), url.Values{"url": {tt.url}})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `data-kind="`+tt.wantKind+`"`)
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assertEmptyDir(t, root)
		})
	}
}

func TestConvert_ErrorPageWithoutScript(t *testing.T) {
	root := t.TempDir()
	h := newTestHandlers(newStubConverter(t, root, nil), nil)

	plain := postForm(h.Convert(), url.Values{"url": {"not a url"}})
	assert.Equal(t, http.StatusBadRequest, plain.Code)
	assert.Contains(t, plain.Body.String(), "<!doctype html>")
	assert.Contains(t, plain.Body.String(), "<h1>400</h1>")

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(url.Values{"url": {"not a url"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", "token")
	rec := httptest.NewRecorder()
	h.Convert().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<div class="error"`))
}

func TestConvert_ClientGone(t *testing.T) {
	conv := converterFunc(func(ctx context.Context, sourceURL string, opts ...service.SubmitOption) (*service.Result, error) {
		return nil, domain.NewConversionError(domain.KindCancelled, "the conversion was cancelled", context.Canceled)
	})

	rec := postForm(newTestHandlers(conv, nil).Convert(), url.Values{"url": {testVideoURL}})

	assert.Equal(t, StatusClientClosedRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestConvert_RateLimited(t *testing.T) {
	root := t.TempDir()
	limiter := ratelimit.NewSubmissionLimiter(1, time.Minute)
	h := newTestHandlers(newStubConverter(t, root, nil), limiter)

	first := postForm(h.Convert(), url.Values{"url": {testVideoURL}})
	require.Equal(t, http.StatusOK, first.Code)

	second := postForm(h.Convert(), url.Values{"url": {testVideoURL}})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	retryAfter, err := strconv.Atoi(second.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 30)
	assert.LessOrEqual(t, retryAfter, 60)
	assert.Contains(t, second.Body.String(), `data-kind="rate_limited"`)
}

func TestAPIConvert(t *testing.T) {
	root := t.TempDir()
	h := newTestHandlers(newStubConverter(t, root, nil), nil)

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"url":"`+testVideoURL+`"}`))
		rec := httptest.NewRecorder()
		h.APIConvert().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
		assertEmptyDir(t, root)
	})

	errorCases := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"not json", `url=x`, http.StatusBadRequest, "invalid_input"},
		{"empty body", ``, http.StatusBadRequest, "invalid_input"},
		{"bad url", `{"url":"not a url"}`, http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.APIConvert().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp apiErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestAPIConvert_SourceHeaders(t *testing.T) {
	tests := []struct {
		name        string
		codec       string
		bitrate     float64
		wantCodec   string
		wantBitrate string
	}{
		{"codec and bitrate", "opus", 129.4, "opus", "129"},
		{"unknown bitrate", "mp4a.40.2", 0, "mp4a.40.2", ""},
		{"unsafe codec dropped", "opus\r\nSet-Cookie: x=1", 160, "", "160"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			extractor := mocks.NewAudioExtractorMock(t)
			extractor.EXPECT().Extract(mock.Anything, mock.Anything, mock.Anything).
				RunAndReturn(func(ctx context.Context, sourceURL, dir string) (*domain.SourceAudio, error) {
					src, err := stub.NewExtractor().Extract(ctx, sourceURL, dir)
					if err != nil {
						return nil, err
					}
					src.Metadata.Codec = tt.codec
					src.Metadata.Bitrate = tt.bitrate
					return src, nil
				}).
				Once()
			jobs := service.NewJobManager(extractor, stub.NewTranscoder(), workspace.NewStore(root), nil, service.JobManagerConfig{})

			req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"url":"`+testVideoURL+`"}`))
			rec := httptest.NewRecorder()
			newTestHandlers(jobs, nil).APIConvert().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantCodec, rec.Header().Get("X-Audio-Source-Codec"))
			assert.Equal(t, tt.wantBitrate, rec.Header().Get("X-Audio-Source-Bitrate"))
			assertEmptyDir(t, root)
		})
	}
}

func TestAPIConvert_LogsDelivery(t *testing.T) {
	t.Run("full body", func(t *testing.T) {
		info := captureLog(t, logger.Info)
		warn := captureLog(t, logger.Warn)
		h := newTestHandlers(newStubConverter(t, t.TempDir(), nil), nil)

		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"url":"`+testVideoURL+`"}`))
		rec := httptest.NewRecorder()
		h.APIConvert().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, info.String(), "delivered")
		assert.NotContains(t, warn.String(), "aborted")
	})

	t.Run("range request", func(t *testing.T) {
		info := captureLog(t, logger.Info)
		warn := captureLog(t, logger.Warn)
		h := newTestHandlers(newStubConverter(t, t.TempDir(), nil), nil)

		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"url":"`+testVideoURL+`"}`))
		req.Header.Set("Range", "bytes=0-99")
		rec := httptest.NewRecorder()
		h.APIConvert().ServeHTTP(rec, req)

		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, 100, rec.Body.Len())
		assert.Contains(t, info.String(), "delivered")
		assert.NotContains(t, warn.String(), "aborted")
	})
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   string
		wantStatus int
	}{
		{"invalid input", domain.NewConversionError(domain.KindInvalidInput, "bad", nil), "invalid_input", http.StatusBadRequest},
		{"extraction", domain.NewConversionError(domain.KindExtractionFailed, "dl", errors.New("403")), "extraction_failed", http.StatusBadGateway},
		{"transcode", domain.NewConversionError(domain.KindTranscodeFailed, "tc", nil), "transcode_failed", http.StatusInternalServerError},
		{"io", domain.NewConversionError(domain.KindIOFailure, "io", nil), "io_failure", http.StatusInternalServerError},
		{"cancelled", domain.NewConversionError(domain.KindCancelled, "gone", context.Canceled), "cancelled", StatusClientClosedRequest},
		{"timed out", domain.NewConversionError(domain.KindCancelled, "slow", context.DeadlineExceeded), "cancelled", http.StatusGatewayTimeout},
		{"plain error", errors.New("boom"), "io_failure", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, message, status := describeError(tt.err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantStatus, status)
			assert.NotEmpty(t, message)
		})
	}

	_, message, _ := describeError(domain.NewConversionError(domain.KindExtractionFailed, "dl", errors.New("HTTP Error 403")))
	assert.Equal(t, "dl: HTTP Error 403", message)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		tools      map[string]ToolCheck
		wantStatus int
		wantState  string
	}{
		{"no tools", nil, http.StatusOK, "ok"},
		{"all present", map[string]ToolCheck{"ffmpeg": func() bool { return true }}, http.StatusOK, "ok"},
		{"missing tool", map[string]ToolCheck{
			"ffmpeg": func() bool { return true },
			"yt-dlp": func() bool { return false },
		}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(nil, nil, ServerConfig{Version: "v1", Backend: "exec", Tools: tt.tools})
			rec := httptest.NewRecorder()
			h.Health().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body struct {
				Status  string          `json:"status"`
				Backend string          `json:"backend"`
				Version string          `json:"version"`
				Tools   map[string]bool `json:"tools"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantState, body.Status)
			assert.Equal(t, "exec", body.Backend)
			assert.Equal(t, "v1", body.Version)
			assert.Len(t, body.Tools, len(tt.tools))
		})
	}
}

func newTestServer(t *testing.T, cfg ServerConfig) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	cfg.CSRFSecret = "test-secret"
	srv := httptest.NewServer(NewServer(newStubConverter(t, root, nil), service.NewEventBus(), nil, cfg))
	t.Cleanup(srv.Close)
	return srv, root
}

func TestServer_FormFlowWithCSRF(t *testing.T) {
	srv, root := newTestServer(t, ServerConfig{})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), `id="convert-form"`)
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))

	u, _ := url.Parse(srv.URL)
	var token string
	for _, c := range jar.Cookies(u) {
		if c.Name == "csrf_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	// Without the token the submission is refused.
	resp, err = client.PostForm(srv.URL+"/convert", url.Values{"url": {testVideoURL}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = client.PostForm(srv.URL+"/convert", url.Values{"url": {testVideoURL}, "csrf_token": {token}})
	require.NoError(t, err)
	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "RIFF", string(audio[:4]))
	assertEmptyDir(t, root)
}

func TestServer_APICORS(t *testing.T) {
	srv, _ := newTestServer(t, ServerConfig{CORSOrigins: []string{"https://tools.example"}})

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/convert", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	allowed := preflight("https://tools.example")
	assert.Equal(t, "https://tools.example", allowed.Header.Get("Access-Control-Allow-Origin"))

	denied := preflight("https://evil.example")
	assert.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_APIExposesAudioHeaders(t *testing.T) {
	srv, _ := newTestServer(t, ServerConfig{CORSOrigins: []string{"https://tools.example"}})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/convert", strings.NewReader(`{"url":"`+testVideoURL+`"}`))
	require.NoError(t, err)
	req.Header.Set("Origin", "https://tools.example")
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	exposed := resp.Header.Get("Access-Control-Expose-Headers")
	for _, name := range []string{"X-Audio-Duration", "X-Audio-Source-Codec", "X-Audio-Source-Bitrate"} {
		assert.Contains(t, exposed, name)
	}
	assert.Equal(t, "pcm_s16le", resp.Header.Get("X-Audio-Source-Codec"))
}

// A client that hangs up mid-download must not leave its workspace behind.
func TestServer_AbortedDownloadCleansUp(t *testing.T) {
	root := t.TempDir()
	warn := captureLog(t, logger.Warn)

	extractor := stub.NewExtractor()
	extractor.Duration = 2 * time.Minute
	jobs := service.NewJobManager(extractor, stub.NewTranscoder(), workspace.NewStore(root), nil, service.JobManagerConfig{
		AllowedHosts: domain.DefaultAllowedHosts,
	})
	srv := httptest.NewServer(NewServer(jobs, service.NewEventBus(), nil, ServerConfig{CSRFSecret: "test-secret"}))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/convert", "application/json", strings.NewReader(`{"url":"`+testVideoURL+`"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	head := make([]byte, 1024)
	_, err = io.ReadFull(resp.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(head[:4]))
	require.NoError(t, resp.Body.Close())

	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(root)
		return err == nil && len(entries) == 0
	}, 5*time.Second, 20*time.Millisecond, "workspace must be removed after the client disconnects")
	assert.Eventually(t, func() bool {
		return strings.Contains(warn.String(), "aborted after")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServer_APICORSDefaultsToSameOrigin(t *testing.T) {
	opts := corsOptions(nil)
	require.NotNil(t, opts.AllowOriginFunc)
	assert.False(t, opts.AllowOriginFunc("https://anything.example"))
}

func TestServer_StaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, ServerConfig{})

	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
