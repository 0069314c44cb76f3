// Package toast keeps the short-lived notifications shown in the main window.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pointer-app/pointer/pkg/models"
)

// DefaultTTL is how long a toast stays up unless dismissed.
const DefaultTTL = 3 * time.Second

// Queue is safe for concurrent use; the connection manager pushes from its
// own goroutines while the TUI reads.
type Queue struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []models.Toast
	// OnChange, when set, is called after every Push, Dismiss or DismissAll.
	OnChange func()
}

// NewQueue creates a queue whose toasts expire after ttl.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{ttl: ttl, now: time.Now}
}

// TTL returns the expiry delay.
func (q *Queue) TTL() time.Duration {
	return q.ttl
}

// Push adds a toast and returns its ID.
func (q *Queue) Push(kind models.ToastKind, message string) string {
	return q.add(models.Toast{Kind: kind, Message: message})
}

// Notify implements channel.Notifier.
func (q *Queue) Notify(t models.Toast) {
	q.add(t)
}

func (q *Queue) add(t models.Toast) string {
	t.ID = uuid.New().String()
	q.mu.Lock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = q.now()
	}
	q.items = append(q.items, t)
	onChange := q.OnChange
	q.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return t.ID
}

// Dismiss removes the toast with id. It reports whether one was removed.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	removed := false
	for i, t := range q.items {
		if t.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			removed = true
			break
		}
	}
	onChange := q.OnChange
	q.mu.Unlock()

	if removed && onChange != nil {
		onChange()
	}
	return removed
}

// DismissAll clears every toast, persistent ones included.
func (q *Queue) DismissAll() {
	q.mu.Lock()
	removed := len(q.items) > 0
	q.items = nil
	onChange := q.OnChange
	q.mu.Unlock()
	if removed && onChange != nil {
		onChange()
	}
}

// Active drops expired toasts and returns the rest, oldest first.
func (q *Queue) Active(now time.Time) []models.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, t := range q.items {
		if t.Persistent || now.Sub(t.CreatedAt) < q.ttl {
			kept = append(kept, t)
		}
	}
	q.items = kept

	out := make([]models.Toast, len(kept))
	copy(out, kept)
	return out
}
