package appstate

import (
	"context"
	"sync"
)

// StorageFactory returns the storage backing one user's session.
type StorageFactory func(userID string) Storage

// Sessions lazily opens one Store per user id and keeps it for the life of
// the process. Each store gets its own notification queue.
type Sessions struct {
	factory StorageFactory
	opts    Options

	mu     sync.Mutex
	stores map[string]*Store
	queues map[string]*NotificationQueue
}

func NewSessions(factory StorageFactory, opts Options) *Sessions {
	return &Sessions{
		factory: factory,
		opts:    opts,
		stores:  make(map[string]*Store),
		queues:  make(map[string]*NotificationQueue),
	}
}

// Get returns the user's store, opening it on first use. Opening happens
// outside the registry lock; when two requests race, the first store
// registered wins.
func (s *Sessions) Get(ctx context.Context, userID string) (*Store, error) {
	s.mu.Lock()
	st, ok := s.stores[userID]
	s.mu.Unlock()
	if ok {
		return st, nil
	}

	queue := NewNotificationQueue()
	opts := s.opts
	opts.Notifier = queue
	opened, err := Open(ctx, s.factory(userID), opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stores[userID]; ok {
		return st, nil
	}
	s.stores[userID] = opened
	s.queues[userID] = queue
	return opened, nil
}

// Notifications drains the user's pending notifications.
func (s *Sessions) Notifications(userID string) []Notification {
	s.mu.Lock()
	q := s.queues[userID]
	s.mu.Unlock()
	if q == nil {
		return []Notification{}
	}
	return q.Drain()
}
