package toast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointer-app/pointer/pkg/models"
)

func fixedQueue(start time.Time) *Queue {
	q := NewQueue(3 * time.Second)
	q.now = func() time.Time { return start }
	return q
}

func TestToastsExpireAfterTTL(t *testing.T) {
	start := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	q := fixedQueue(start)

	q.Push(models.ToastSuccess, "Saved")
	q.Notify(models.Toast{Kind: models.ToastError, Message: "Failed to connect to backend", Persistent: true})

	assert.Len(t, q.Active(start.Add(2999*time.Millisecond)), 2)

	active := q.Active(start.Add(3 * time.Second))
	require.Len(t, active, 1)
	assert.Equal(t, "Failed to connect to backend", active[0].Message)
}

func TestDismiss(t *testing.T) {
	start := time.Now()
	q := fixedQueue(start)
	changes := 0
	q.OnChange = func() { changes++ }

	first := q.Push(models.ToastInfo, "one")
	q.Push(models.ToastInfo, "two")
	assert.NotEqual(t, "", first)

	assert.True(t, q.Dismiss(first))
	assert.False(t, q.Dismiss(first))

	active := q.Active(start)
	require.Len(t, active, 1)
	assert.Equal(t, "two", active[0].Message)
	assert.Equal(t, 3, changes)
}

func TestIDsAreUnique(t *testing.T) {
	q := NewQueue(0)
	assert.Equal(t, DefaultTTL, q.TTL())
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := q.Push(models.ToastInfo, "x")
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestDismissAllClearsPersistent(t *testing.T) {
	q := NewQueue(time.Second)
	q.Notify(models.Toast{Kind: models.ToastError, Message: "down", Persistent: true})
	changes := 0
	q.OnChange = func() { changes++ }
	q.DismissAll()
	assert.Empty(t, q.Active(time.Now()))
	assert.Equal(t, 1, changes)

	// nothing left to remove
	q.DismissAll()
	assert.Equal(t, 1, changes)
}
