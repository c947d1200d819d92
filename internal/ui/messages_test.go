package ui

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMessageExpiresAfterTTL(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewMessageStore(10).WithClock(clk.now)

	s.Post("sess", KindError, "Invalid login credentials", 5*time.Second)
	if got := s.Active("sess"); len(got) != 1 || got[0].Text != "Invalid login credentials" {
		t.Fatalf("unexpected messages: %+v", got)
	}
	clk.t = clk.t.Add(4 * time.Second)
	if got := s.Active("sess"); len(got) != 1 {
		t.Fatalf("message expired early: %+v", got)
	}
	clk.t = clk.t.Add(time.Second)
	if got := s.Active("sess"); len(got) != 0 {
		t.Fatalf("message should have expired: %+v", got)
	}
}

func TestMessagesHaveIndependentExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewMessageStore(10).WithClock(clk.now)

	s.Post("sess", KindError, "first", 3*time.Second)
	clk.t = clk.t.Add(2 * time.Second)
	s.Post("sess", KindError, "second", 3*time.Second)
	clk.t = clk.t.Add(2 * time.Second)

	got := s.Active("sess")
	if len(got) != 1 || got[0].Text != "second" {
		t.Fatalf("expected only the second message, got %+v", got)
	}
	if ttl := got[0].TTL(clk.t); ttl != 1000 {
		t.Errorf("ttl = %d, want 1000", ttl)
	}
}

func TestMessageStoreLimitAndIsolation(t *testing.T) {
	s := NewMessageStore(3)
	for i := 0; i < 5; i++ {
		s.Post("alice", KindInfo, fmt.Sprintf("m%d", i), time.Minute)
	}
	got := s.Active("alice")
	if len(got) != 3 || got[0].Text != "m2" {
		t.Fatalf("expected last 3 messages, got %+v", got)
	}
	if len(s.Active("bob")) != 0 {
		t.Fatal("messages leaked across keys")
	}
	s.Clear("alice")
	if len(s.Active("alice")) != 0 {
		t.Fatal("clear did not drop messages")
	}
}
