package port

import "time"

// WorkspaceAllocator hands out exclusively-owned job directories under a
// shared temp root.
type WorkspaceAllocator interface {
	Allocate(jobID string) (string, error)
	Release(path string) error
	Sweep(maxAge time.Duration) (int, error)
}
