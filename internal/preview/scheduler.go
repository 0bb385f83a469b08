// Package preview keeps a rendered preview of the filled document in
// step with the field list without running a fill per keystroke.
// Mutations restart a debounce timer; when it fires, one render runs
// against a complete snapshot of the field list. Only one render is
// ever in flight, and the previous preview file is released before the
// new one is installed.
package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last mutation before a
// preview render starts.
const DefaultDebounce = 550 * time.Millisecond

// RenderFunc produces the preview document bytes from a complete
// snapshot of the current field list.
type RenderFunc func(ctx context.Context) ([]byte, error)

// Scheduler owns the debounce timer and the current preview file.
type Scheduler struct {
	render RenderFunc
	delay  time.Duration
	dir    string
	log    zerolog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	inflight bool
	closed   bool
	current  string
	gen      int

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler writing preview files into dir.
// A non-positive delay falls back to DefaultDebounce.
func NewScheduler(dir string, delay time.Duration, render RenderFunc, log zerolog.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Scheduler{
		render: render,
		delay:  delay,
		dir:    dir,
		log:    log.With().Str("component", "preview").Logger(),
	}
}

// Notify records a field-list mutation and restarts the debounce
// timer. Restarting the timer is also the cancellation mechanism for
// pending preview work.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Current returns the path of the latest preview, if one exists.
func (s *Scheduler) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != ""
}

// fire starts a render unless one is already running; in that case the
// debounce window restarts so the newer state renders afterwards.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inflight {
		s.timer = time.AfterFunc(s.delay, s.fire)
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.gen++
	gen := s.gen
	// Registered under the lock so Close cannot observe a zero counter
	// between the inflight flag and the goroutine start.
	s.wg.Add(1)
	s.mu.Unlock()

	go s.renderOnce(gen)
}

func (s *Scheduler) renderOnce(gen int) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.inflight = false
		s.mu.Unlock()
	}()

	out, err := s.render(context.Background())
	if err != nil {
		// The prior preview stays in place; the user's edits are
		// still valid regardless of a preview failure.
		s.log.Warn().Err(err).Msg("preview render failed, keeping previous preview")
		return
	}

	path := filepath.Join(s.dir, fmt.Sprintf("preview-%d.pdf", gen))
	if err := os.WriteFile(path, out, 0o600); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("preview write failed, keeping previous preview")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = os.Remove(path)
		return
	}
	prev := s.current
	// Release before install; leaking the old file under rapid editing
	// is a bug, not a performance issue.
	if prev != "" {
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", prev).Msg("failed to release previous preview")
		}
	}
	s.current = path
	s.mu.Unlock()
}

// Close cancels pending work, waits for an in-flight render and
// releases the current preview file.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	current := s.current
	s.current = ""
	s.mu.Unlock()

	if current != "" {
		if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
