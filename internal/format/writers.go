package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/agentic-research/scenebridge/internal/scenecache"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// sharedWriter is an open output file and the channels written to it so far.
type sharedWriter struct {
	*scenecache.Writer

	mu      sync.Mutex
	written map[sdf.Path]struct{}
}

func (w *sharedWriter) wrote(key sdf.Path) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.written[key]
	return ok
}

func (w *sharedWriter) mark(key sdf.Path) {
	w.mu.Lock()
	w.written[key] = struct{}{}
	w.mu.Unlock()
}

// sharedWriters keeps one cache writer per output file so that per-frame
// exports append to the same file until the last frame closes it.
type sharedWriters struct {
	mu      sync.Mutex
	writers map[string]*sharedWriter
}

func newSharedWriters() *sharedWriters {
	return &sharedWriters{writers: map[string]*sharedWriter{}}
}

func writerKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// get returns the writer for path, creating it on first use.
func (s *sharedWriters) get(path string, fps float64) (*sharedWriter, error) {
	key := writerKey(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.writers[key]; ok {
		return w, nil
	}
	out, err := scenecache.Create(path, scenecache.WithFrameRate("maya", fps))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := &sharedWriter{Writer: out, written: map[sdf.Path]struct{}{}}
	s.writers[key] = w
	return w, nil
}

// close writes and forgets the writer for path. Unknown paths are a no-op.
func (s *sharedWriters) close(path string) error {
	key := writerKey(path)
	s.mu.Lock()
	w, ok := s.writers[key]
	delete(s.writers, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return w.Close()
}

func (s *sharedWriters) closeAll() error {
	s.mu.Lock()
	writers := s.writers
	s.writers = map[string]*sharedWriter{}
	s.mu.Unlock()

	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func (s *sharedWriters) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writers)
}
