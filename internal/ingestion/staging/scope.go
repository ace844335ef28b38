// Package staging owns every temporary path the service writes: per-request
// scopes that are always released, and the per-upload chunk directories.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

// Scope tracks temporary paths created while serving one request.
// Release removes them in reverse order and is safe to call more than once.
type Scope struct {
	root string
	log  *logger.Logger

	mu       sync.Mutex
	paths    []string
	released bool
}

func NewScope(root string, log *logger.Logger) *Scope {
	if root == "" {
		root = os.TempDir()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scope{root: root, log: log}
}

func (s *Scope) Root() string { return s.root }

// CreateTemp creates a file under the scope root and registers it for removal.
func (s *Scope) CreateTemp(pattern string) (*os.File, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("staging root: %w", err)
	}
	f, err := os.CreateTemp(s.root, pattern)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	if err := s.Track(f.Name()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}

func (s *Scope) MkdirTemp(pattern string) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("staging root: %w", err)
	}
	dir, err := os.MkdirTemp(s.root, pattern)
	if err != nil {
		return "", fmt.Errorf("create staged dir: %w", err)
	}
	if err := s.Track(dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// Track registers a path created elsewhere.
func (s *Scope) Track(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return errors.New("staging scope already released")
	}
	s.paths = append(s.paths, path)
	return nil
}

// Paths returns a snapshot of the tracked paths.
func (s *Scope) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Release deletes every tracked path. Deletion failures are logged, never returned:
// the request outcome is already decided by the time cleanup runs.
func (s *Scope) Release() {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.released = true
	s.mu.Unlock()

	for i := len(paths) - 1; i >= 0; i-- {
		p := paths[i]
		if err := os.RemoveAll(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("staged path cleanup failed", "path", p, "error", err)
			continue
		}
		s.log.Debug("staged path removed", "path", p)
	}
}
