package appstate

import (
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a short user-visible message about an operation's outcome.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// NotificationQueue buffers notifications until a client drains them.
// The oldest entries are discarded once Limit is reached.
type NotificationQueue struct {
	Limit int

	mu    sync.Mutex
	items []Notification
}

func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{Limit: 50}
}

func (q *NotificationQueue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if q.Limit > 0 && len(q.items) > q.Limit {
		q.items = append([]Notification(nil), q.items[len(q.items)-q.Limit:]...)
	}
}

// Drain returns the queued notifications in order and empties the queue.
func (q *NotificationQueue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Lifecycle is the state of a remote operation.
type Lifecycle int

const (
	Idle Lifecycle = iota
	Pending
	Succeeded
	Failed
)

func (l Lifecycle) String() string {
	switch l {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
