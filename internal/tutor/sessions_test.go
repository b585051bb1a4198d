package tutor

import (
	"fmt"
	"testing"
	"time"
)

func TestSessionStore_GetOrCreate_New(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	sess := s.GetOrCreate("u1", "d1", "c1", now)
	if sess.Mode != ModeFocused || sess.ActiveCardID != "c1" {
		t.Fatalf("expected Focused(c1), got %s(%s)", sess.Mode, sess.ActiveCardID)
	}
	if s.Len() != 1 {
		t.Errorf("store length = %d, want 1", s.Len())
	}
}

func TestSessionStore_GetOrCreate_SameCardPreservesState(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	sess := s.GetOrCreate("u1", "d1", "c1", now)
	sess.AttemptCount = 2
	sess.appendContext(Message{Role: "user", Content: "guess"})
	s.Update("u1", "d1", sess)

	again := s.GetOrCreate("u1", "d1", "c1", now)
	if again.AttemptCount != 2 {
		t.Errorf("attemptCount = %d, want 2", again.AttemptCount)
	}
	if len(again.Context) != 1 {
		t.Errorf("context length = %d, want 1", len(again.Context))
	}
}

func TestSessionStore_GetOrCreate_CardChangeResets(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	sess := s.GetOrCreate("u1", "d1", "c1", now)
	sess.AttemptCount = 3
	sess.appendContext(Message{Role: "user", Content: "guess"})
	s.Update("u1", "d1", sess)

	next := s.GetOrCreate("u1", "d1", "c2", now)
	if next.ActiveCardID != "c2" {
		t.Errorf("activeCardID = %q, want c2", next.ActiveCardID)
	}
	if next.AttemptCount != 0 {
		t.Errorf("attemptCount = %d, want 0 after card change", next.AttemptCount)
	}
	if len(next.Context) != 0 {
		t.Errorf("context length = %d, want 0 after card change", len(next.Context))
	}
	if next.ConversationID != sess.ConversationID {
		t.Error("conversationID must survive a card change")
	}
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	s.GetOrCreate("u1", "d1", "c1", now)

	a := s.Get("u1", "d1")
	a.AttemptCount = 7

	b := s.Get("u1", "d1")
	if b.AttemptCount != 0 {
		t.Errorf("mutating a returned session leaked into the store: attemptCount = %d", b.AttemptCount)
	}
}

func TestSessionStore_GetMissing(t *testing.T) {
	s := NewSessionStore(0, 0)
	if got := s.Get("nobody", "nothing"); got != nil {
		t.Errorf("expected nil for missing session, got %+v", got)
	}
}

func TestSessionStore_Reset(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	s.GetOrCreate("u1", "d1", "c1", now)
	s.Reset("u1", "d1")

	if got := s.Get("u1", "d1"); got != nil {
		t.Error("session should be gone after reset")
	}
}

func TestSessionStore_Clear(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	s.GetOrCreate("u1", "d1", "c1", now)
	s.GetOrCreate("u2", "d2", "", now)
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("store length = %d after clear, want 0", s.Len())
	}
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	s := NewSessionStore(10, 20*time.Millisecond)
	now := time.Now()

	s.GetOrCreate("u1", "d1", "c1", now)
	time.Sleep(50 * time.Millisecond)

	if got := s.Get("u1", "d1"); got != nil {
		t.Error("session should have expired")
	}
}

func TestSessionStore_CapacityEviction(t *testing.T) {
	s := NewSessionStore(3, time.Minute)
	now := time.Now()

	for i := 0; i < 4; i++ {
		s.GetOrCreate(fmt.Sprintf("u%d", i), "d1", "c1", now)
	}

	if s.Len() != 3 {
		t.Errorf("store length = %d, want capacity 3", s.Len())
	}
	if got := s.Get("u0", "d1"); got != nil {
		t.Error("oldest session should have been evicted")
	}
	if got := s.Get("u3", "d1"); got == nil {
		t.Error("newest session should still be present")
	}
}

func TestSessionStore_DistinctKeys(t *testing.T) {
	s := NewSessionStore(0, 0)
	now := time.Now()

	a := s.GetOrCreate("u1", "d1", "c1", now)
	b := s.GetOrCreate("u1", "d2", "c2", now)
	if a.ConversationID == b.ConversationID {
		t.Error("sessions for different decks should have distinct ids")
	}

	a.AttemptCount = 5
	s.Update("u1", "d1", a)
	if got := s.Get("u1", "d2"); got.AttemptCount != 0 {
		t.Error("update to one key leaked into another")
	}
}
