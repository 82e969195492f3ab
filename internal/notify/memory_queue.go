package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryQueue records notifications in memory. Meant for tests.
type MemoryQueue struct {
	mutex         sync.Mutex
	notifications []Notification
	err           error
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, n Notification) (uuid.UUID, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.err != nil {
		return uuid.Nil, q.err
	}

	q.notifications = append(q.notifications, n)
	return uuid.New(), nil
}

// Notifications returns a copy of all recorded notifications.
func (q *MemoryQueue) Notifications() []Notification {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	out := make([]Notification, len(q.notifications))
	copy(out, q.notifications)
	return out
}

// FailWith makes all subsequent Enqueue calls return err.
func (q *MemoryQueue) FailWith(err error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.err = err
}
