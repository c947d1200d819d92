package memory

import (
	"context"
	"sync"

	"github.com/elpatron68/todo-web/internal/backend"
)

func (s *Store) Subscribe(ctx context.Context, table, ownerID string, fn func(backend.Change)) (backend.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.takeFailure("subscribe"); err != nil {
		return nil, err
	}
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = subscription{table: table, owner: ownerID, fn: fn}
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}, nil
}

// Subscribers reports the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Store) publish(c backend.Change) {
	s.subsMu.Lock()
	targets := make([]func(backend.Change), 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.table == c.Table && sub.owner == c.OwnerID {
			targets = append(targets, sub.fn)
		}
	}
	s.subsMu.Unlock()
	for _, fn := range targets {
		fn(c)
	}
}
