package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bnema/ytwav/internal/domain"
)

const (
	BackendExec = "exec"
	BackendStub = "stub"
)

type Config struct {
	Port    int
	TempDir string
	Backend string

	YtDlpPath   string
	FFmpegPath  string
	FFprobePath string

	SampleRate int
	Channels   int
	BitDepth   int

	JobTimeout     time.Duration
	ExtractRetries int
	SocketTimeout  time.Duration

	AllowedHosts       []string
	CORSOrigins        []string
	RateLimitPerMinute int
	StaleWorkspaceAge  time.Duration

	CSRFSecret  string
	BehindProxy bool
	Debug       bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var err error
	cfg := &Config{
		TempDir:      getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "ytwav")),
		Backend:      strings.ToLower(getEnv("BACKEND", BackendExec)),
		YtDlpPath:    getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:  getEnv("FFPROBE_PATH", "ffprobe"),
		AllowedHosts: getList("ALLOWED_HOSTS", domain.DefaultAllowedHosts),
		CORSOrigins:  getList("CORS_ORIGINS", nil),
		CSRFSecret:   os.Getenv("CSRF_SECRET"),
	}
	if slices.Contains(cfg.AllowedHosts, "*") {
		cfg.AllowedHosts = nil
	}

	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", cfg.Port)
	}
	if cfg.SampleRate, err = getInt("SAMPLE_RATE", 48000); err != nil {
		return nil, err
	}
	if cfg.Channels, err = getInt("CHANNELS", 2); err != nil {
		return nil, err
	}
	if cfg.BitDepth, err = getInt("BIT_DEPTH", 16); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = getDuration("JOB_TIMEOUT", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ExtractRetries, err = getInt("EXTRACT_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.SocketTimeout, err = getDuration("SOCKET_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return nil, err
	}
	if cfg.StaleWorkspaceAge, err = getDuration("STALE_WORKSPACE_AGE", time.Hour); err != nil {
		return nil, err
	}
	if cfg.BehindProxy, err = getBool("BEHIND_PROXY", false); err != nil {
		return nil, err
	}
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return nil, err
	}

	if cfg.Backend != BackendExec && cfg.Backend != BackendStub {
		return nil, fmt.Errorf("invalid BACKEND: %q (want %s or %s)", cfg.Backend, BackendExec, BackendStub)
	}
	if err := cfg.AudioFormat().Validate(); err != nil {
		return nil, fmt.Errorf("invalid output format: %w", err)
	}
	if cfg.StaleWorkspaceAge <= 0 {
		return nil, fmt.Errorf("invalid STALE_WORKSPACE_AGE: must be positive")
	}

	if cfg.CSRFSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate CSRF secret: %w", err)
		}
		cfg.CSRFSecret = secret
	}

	return cfg, nil
}

// AudioFormat is the WAV layout every job transcodes to.
func (c *Config) AudioFormat() domain.AudioFormat {
	return domain.AudioFormat{
		Container:  "wav",
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitDepth:   c.BitDepth,
	}
}

// deliveryGrace is how long a finished WAV may take to reach the client.
const deliveryGrace = 5 * time.Minute

// ResponseWriteTimeout bounds a whole conversion response. A JobTimeout of
// zero disables the job limit, so the write deadline goes too.
func (c *Config) ResponseWriteTimeout() time.Duration {
	if c.JobTimeout == 0 {
		return 0
	}
	return c.JobTimeout + deliveryGrace
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getList splits a comma-separated variable. A variable that is set but
// empty yields nil.
func getList(key string, defaultValue []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
