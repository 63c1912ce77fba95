package persist

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lapboard/lapboard/server/internal/metrics"
	"github.com/lapboard/lapboard/server/internal/store"
)

// DefaultDebounce is the quiet period after the last Schedule call before the
// data file is written.
const DefaultDebounce = 200 * time.Millisecond

// Source provides the state to write. *store.Store satisfies it.
type Source interface {
	State() store.State
}

// Manager debounces and performs data file writes.
type Manager struct {
	path     string
	debounce time.Duration
	src      Source
	clock    clockwork.Clock
	rec      metrics.Recorder

	mu      sync.Mutex
	pending clockwork.Timer
	gen     uint64 // bumped on every Schedule and Flush; stale timers compare and bail

	writeMu sync.Mutex // serializes writes; an in-flight write is never cancelled
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithRecorder reports save outcomes to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(m *Manager) { m.rec = rec }
}

// NewManager creates a Manager that writes src to path. A non-positive
// debounce uses DefaultDebounce.
func NewManager(path string, debounce time.Duration, src Source, opts ...Option) *Manager {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	m := &Manager{
		path:     path,
		debounce: debounce,
		src:      src,
		clock:    clockwork.NewRealClock(),
		rec:      metrics.NoopRecorder{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Path returns the data file path.
func (m *Manager) Path() string { return m.path }

// Schedule requests a write of the current state. It cancels any pending
// write and re-arms the debounce timer from now. It never blocks on I/O.
func (m *Manager) Schedule() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != nil {
		m.pending.Stop()
	}
	m.gen++
	gen := m.gen
	m.pending = m.clock.AfterFunc(m.debounce, func() { m.fire(gen) })
}

// Flush cancels the pending timer and writes synchronously if a write was
// pending. It reports whether a write was performed.
func (m *Manager) Flush() bool {
	m.mu.Lock()
	if m.pending == nil {
		m.mu.Unlock()
		return false
	}
	m.pending.Stop()
	m.pending = nil
	m.gen++
	m.mu.Unlock()

	m.save()
	return true
}

// Pending reports whether a write is scheduled but not yet started.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		// Superseded by a later Schedule or Flush.
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.mu.Unlock()

	m.save()
}

// save writes the state as it is now, not as it was at Schedule time.
func (m *Manager) save() {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	start := time.Now()
	data, err := encode(m.src.State())
	if err == nil {
		err = writeAtomic(m.path, data)
	}
	m.rec.ObserveSaveDuration(time.Since(start))
	if err != nil {
		m.rec.IncSave(false)
		slog.Error("persist: save failed", "path", m.path, "err", err)
		return
	}
	m.rec.IncSave(true)
	slog.Debug("persist: saved", "path", m.path, "bytes", len(data))
}
