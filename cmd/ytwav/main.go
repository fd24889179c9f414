package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/ytwav/config"
	"github.com/bnema/ytwav/internal/adapter/converter/ffmpeg"
	"github.com/bnema/ytwav/internal/adapter/extractor/ytdlp"
	HTTPAdapter "github.com/bnema/ytwav/internal/adapter/http"
	"github.com/bnema/ytwav/internal/adapter/http/ratelimit"
	"github.com/bnema/ytwav/internal/adapter/storage/workspace"
	"github.com/bnema/ytwav/internal/adapter/stub"
	"github.com/bnema/ytwav/internal/infrastructure/command"
	"github.com/bnema/ytwav/internal/infrastructure/logger"
	"github.com/bnema/ytwav/internal/port"
	"github.com/bnema/ytwav/internal/service"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

const sweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}
	logger.SetDebug(cfg.Debug)

	logger.Info.Printf("starting ytwav %s on port %d, backend=%s, output=%s", version, cfg.Port, cfg.Backend, cfg.AudioFormat())

	store := workspace.NewStore(cfg.TempDir)
	if err := store.Init(); err != nil {
		logger.Error.Printf("failed to create temp directory: %v", err)
		os.Exit(1)
	}

	extractor, transcoder, tools := buildBackend(cfg)
	for name, check := range tools {
		if !check() {
			logger.Warn.Printf("%s not found, conversions will fail until it is installed", name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := service.NewEventBus()
	jobs := service.NewJobManager(extractor, transcoder, store, eventBus, service.JobManagerConfig{
		Format:       cfg.AudioFormat(),
		AllowedHosts: cfg.AllowedHosts,
		Timeout:      cfg.JobTimeout,
	})

	limiter := ratelimit.NewSubmissionLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.Run(ctx)

	// Workspaces left behind by a previous crash, then periodically.
	sweep(jobs, cfg.StaleWorkspaceAge)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweep(jobs, cfg.StaleWorkspaceAge)
			case <-ctx.Done():
				return
			}
		}
	}()

	server := HTTPAdapter.NewServer(jobs, eventBus, limiter, HTTPAdapter.ServerConfig{
		CORSOrigins: cfg.CORSOrigins,
		BehindProxy: cfg.BehindProxy,
		CSRFSecret:  cfg.CSRFSecret,
		Version:     version,
		Format:      cfg.AudioFormat().String(),
		Backend:     cfg.Backend,
		Tools:       tools,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      cfg.ResponseWriteTimeout(),
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown; in-flight jobs finish before the last sweep.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info.Printf("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}
		sweep(jobs, 0)
		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s, temp dir %s", addr, store.Root())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("server failed: %v", err)
		os.Exit(1)
	}
	<-shutdownDone
}

func buildBackend(cfg *config.Config) (port.AudioExtractor, port.Transcoder, map[string]HTTPAdapter.ToolCheck) {
	if cfg.Backend == config.BackendStub {
		logger.Warn.Printf("stub backend: every conversion returns a silent clip")
		return stub.NewExtractor(), stub.NewTranscoder(), nil
	}

	runner := command.NewExecRunner()
	extractor := ytdlp.NewExtractor(ytdlp.Options{
		BinaryPath:    cfg.YtDlpPath,
		Retries:       cfg.ExtractRetries,
		SocketTimeout: cfg.SocketTimeout,
	}, runner)
	transcoder := ffmpeg.NewConverter(ffmpeg.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
	}, runner)

	tools := map[string]HTTPAdapter.ToolCheck{
		"yt-dlp":  func() bool { return command.Available(cfg.YtDlpPath) },
		"ffmpeg":  func() bool { return command.Available(cfg.FFmpegPath) },
		"ffprobe": func() bool { return command.Available(cfg.FFprobePath) },
	}
	return extractor, transcoder, tools
}

func sweep(jobs *service.JobManager, maxAge time.Duration) {
	removed, err := jobs.SweepStale(maxAge)
	if err != nil {
		logger.Error.Printf("workspace sweep failed: %v", err)
		return
	}
	if removed > 0 {
		logger.Info.Printf("removed %d stale workspace(s)", removed)
	}
}
