package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pointer-app/pointer/pkg/models"
)

// Recorder writes entries on a background goroutine so the overlay never
// blocks on disk. The file is opened only for each write, which leaves it
// free for other pointer processes in between.
type Recorder struct {
	path      string
	logger    *slog.Logger
	entries   chan models.HistoryEntry
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder creates a recorder for the history file at path. Call Start
// before Record.
func NewRecorder(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		path:    path,
		logger:  logger,
		entries: make(chan models.HistoryEntry, 16),
		done:    make(chan struct{}),
	}
}

// Start begins draining entries.
func (r *Recorder) Start() {
	go r.process()
}

func (r *Recorder) process() {
	defer close(r.done)
	for e := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := Append(ctx, r.path, e); err != nil {
			r.logger.Warn("failed to record overlay session", "error", err)
		}
		cancel()
	}
}

// Record queues e. It reports false when the recorder is closed or full.
func (r *Recorder) Record(e models.HistoryEntry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.entries <- e:
		return true
	default:
		r.logger.Warn("history queue full, dropping entry")
		return false
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.entries)
		r.mu.Unlock()
	})
	<-r.done
}
