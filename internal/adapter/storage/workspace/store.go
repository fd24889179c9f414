package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/port"
)

const dirPrefix = "job-"

// Store manages per-job directories under a process-wide temp root.
type Store struct {
	root string
	now  func() time.Time
}

func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Init creates the temp root if it does not exist. The root itself is never
// removed; each job directory is the unit of cleanup.
func (s *Store) Init() error {
	if strings.TrimSpace(s.root) == "" {
		return fmt.Errorf("workspace root is empty")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create workspace root %s: %w", s.root, err)
	}
	return nil
}

func (s *Store) Root() string {
	return s.root
}

// Allocate creates <root>/job-<jobID>. It uses Mkdir rather than MkdirAll so
// a leftover directory from an earlier run is reported as
// domain.ErrWorkspaceExists instead of being reused.
func (s *Store) Allocate(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}

	path := filepath.Join(s.root, dirPrefix+jobID)
	if err := os.Mkdir(path, 0o700); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrWorkspaceExists, path)
		}
		return "", fmt.Errorf("create workspace %s: %w", path, err)
	}
	return path, nil
}

// Release removes a job directory and everything in it. Paths outside the
// root are refused.
func (s *Store) Release(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("refusing to remove %s: not a workspace under %s", path, s.root)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove workspace %s: %w", path, err)
	}
	return nil
}

// Sweep removes job directories older than maxAge and returns how many were
// removed. It is meant for directories orphaned by a crash.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read workspace root: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Store) owns(path string) bool {
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return false
	}
	return !strings.Contains(rel, string(os.PathSeparator)) && strings.HasPrefix(rel, dirPrefix)
}

var _ port.WorkspaceAllocator = (*Store)(nil)
