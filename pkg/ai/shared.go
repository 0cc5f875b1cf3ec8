package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// LoadError reports that the shared capability could not be built.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load generation capability: " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// Shared is a lazily built, reference-counted process-wide Capability.
// The first Acquire builds it; later callers reuse the same instance. It is
// never torn down while the process runs, so a zero reference count only
// means nobody is using it right now. A failed build is not cached.
type Shared struct {
	mu    sync.Mutex
	build func() (Capability, error)
	cap   Capability
	refs  int

	// loaded is read without mu so health checks do not wait on a build.
	loaded atomic.Bool
}

// NewShared wraps a capability constructor.
func NewShared(build func() (Capability, error)) *Shared {
	return &Shared{build: build}
}

// Acquire returns the shared capability, building it on first use, together
// with a release func that drops the caller's reference. Release is safe to
// call more than once.
func (s *Shared) Acquire() (Capability, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		if s.build == nil {
			return nil, nil, fmt.Errorf("no capability constructor configured")
		}
		start := time.Now()
		c, err := s.build()
		if err != nil {
			slog.Error("capability_load_error", "error", err)
			return nil, nil, &LoadError{Err: err}
		}
		s.cap = c
		s.loaded.Store(true)
		slog.Info("capability_loaded",
			"model", c.Model(),
			"template", c.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	s.refs++
	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			s.refs--
			s.mu.Unlock()
		})
	}
	return s.cap, release, nil
}

// Refs reports how many holders currently reference the capability.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Loaded reports whether the capability has been built. It never blocks,
// even while a build is in progress.
func (s *Shared) Loaded() bool {
	return s.loaded.Load()
}

// Generate acquires the capability for the duration of one call. Load
// failures come back as *LoadError; generation failures are returned as is.
func (s *Shared) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	c, release, err := s.Acquire()
	if err != nil {
		return "", err
	}
	defer release()
	return c.Generate(ctx, prompt, params)
}

var _ Generator = (*Shared)(nil)
