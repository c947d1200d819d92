// Package ui keeps per-session transient messages. Each message carries its
// own expiry; posting a new one never cancels an older one.
package ui

import (
	"sync"
	"time"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Message struct {
	ID      uint64
	Kind    Kind
	Text    string
	Posted  time.Time
	Expires time.Time
}

// TTL is the remaining lifetime, rounded to milliseconds, for templates.
func (m Message) TTL(now time.Time) int64 {
	d := m.Expires.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

type MessageStore struct {
	mu     sync.Mutex
	byKey  map[string][]Message
	max    int
	nextID uint64
	now    func() time.Time
}

func NewMessageStore(max int) *MessageStore {
	if max <= 0 {
		max = 20
	}
	return &MessageStore{byKey: make(map[string][]Message), max: max, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *MessageStore) WithClock(now func() time.Time) *MessageStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MessageStore) Post(key string, kind Kind, text string, ttl time.Duration) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.nextID++
	m := Message{ID: s.nextID, Kind: kind, Text: text, Posted: now, Expires: now.Add(ttl)}
	buf := append(s.prune(key, now), m)
	if len(buf) > s.max {
		// drop oldest
		buf = buf[len(buf)-s.max:]
	}
	s.byKey[key] = buf
	return m
}

// Active returns the unexpired messages for key, oldest first.
func (s *MessageStore) Active(key string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.prune(key, s.now())
	out := make([]Message, len(buf))
	copy(out, buf)
	return out
}

func (s *MessageStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, key)
}

func (s *MessageStore) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// prune must be called with s.mu held.
func (s *MessageStore) prune(key string, now time.Time) []Message {
	buf := s.byKey[key]
	kept := buf[:0]
	for _, m := range buf {
		if now.Before(m.Expires) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		delete(s.byKey, key)
		return nil
	}
	s.byKey[key] = kept
	return kept
}
