package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"parlo/internal/srs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "parlo-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDeck(t *testing.T, s *Store, userID string) *Deck {
	t.Helper()
	deck, err := s.Decks().Create(context.Background(), userID, "Spanish Basics", "starter deck", "es-ES")
	if err != nil {
		t.Fatalf("create deck: %v", err)
	}
	return deck
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestDeckCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deck := seedDeck(t, s, "user1")

	got, err := s.Decks().GetByID(ctx, deck.ID, "user1")
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Name != "Spanish Basics" || got.Language != "es-ES" {
		t.Errorf("got deck %+v", got)
	}

	// Other users must not see the deck.
	if _, err := s.Decks().GetByID(ctx, deck.ID, "user2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user get err = %v, want ErrNotFound", err)
	}

	name := "Spanish A1"
	updated, err := s.Decks().Update(ctx, deck.ID, "user1", &name, nil)
	if err != nil {
		t.Fatalf("update deck: %v", err)
	}
	if updated.Name != "Spanish A1" || updated.Description != "starter deck" {
		t.Errorf("updated deck %+v", updated)
	}

	if err := s.Decks().Delete(ctx, deck.ID, "user1"); err != nil {
		t.Fatalf("delete deck: %v", err)
	}
	if err := s.Decks().Delete(ctx, deck.ID, "user1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestCardCreateSeedsSRSFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deck := seedDeck(t, s, "user1")

	card, err := s.Cards().Create(ctx, deck.ID, "user1", "Hola", "Hello")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.EaseFactor != srs.DefaultEaseFactor {
		t.Errorf("EaseFactor = %f, want %f", card.EaseFactor, srs.DefaultEaseFactor)
	}
	if card.DueAt.IsZero() {
		t.Error("expected a fresh card to be due immediately")
	}
}

func TestNextDue_OrderAndFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deck := seedDeck(t, s, "user1")
	now := time.Now().UTC().Truncate(time.Second)

	early, err := s.Cards().Create(ctx, deck.ID, "user1", "Hola", "Hello")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	later, err := s.Cards().Create(ctx, deck.ID, "user1", "Adiós", "Goodbye")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	// Push one card well into the past, one into the future.
	early.DueAt = now.Add(-time.Hour)
	early.UpdatedAt = now
	if _, err := s.Cards().Replace(ctx, early); err != nil {
		t.Fatalf("replace: %v", err)
	}
	later.DueAt = now.Add(time.Hour)
	later.UpdatedAt = now
	if _, err := s.Cards().Replace(ctx, later); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Cards().NextDue(ctx, "user1", deck.ID, now)
	if err != nil {
		t.Fatalf("next due: %v", err)
	}
	if got.ID != early.ID {
		t.Errorf("NextDue = %s, want %s", got.ID, early.ID)
	}

	// With both cards in the future, nothing is due.
	early.DueAt = now.Add(2 * time.Hour)
	if _, err := s.Cards().Replace(ctx, early); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.Cards().NextDue(ctx, "user1", deck.ID, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("NextDue err = %v, want ErrNotFound", err)
	}

	earliest, err := s.Cards().EarliestDueAt(ctx, "user1", deck.ID)
	if err != nil {
		t.Fatalf("earliest due: %v", err)
	}
	if !earliest.Equal(now.Add(time.Hour)) {
		t.Errorf("EarliestDueAt = %v, want %v", earliest, now.Add(time.Hour))
	}
}

func TestNextDue_BackfillsLegacyCard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deck := seedDeck(t, s, "user1")
	now := time.Now().UTC().Truncate(time.Second)

	// Insert a pre-scheduling row directly: no SRS columns at all.
	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO cards (id, deck_id, user_id, front, back, created_at, updated_at)
		 VALUES ('legacy-1', ?, 'user1', 'Gracias', 'Thank you', ?, ?)`,
		deck.ID, dbTime(now), dbTime(now))
	if err != nil {
		t.Fatalf("insert legacy card: %v", err)
	}

	got, err := s.Cards().NextDue(ctx, "user1", deck.ID, now)
	if err != nil {
		t.Fatalf("next due: %v", err)
	}
	if got.ID != "legacy-1" {
		t.Fatalf("NextDue = %s, want legacy-1", got.ID)
	}
	if got.EaseFactor != srs.DefaultEaseFactor || got.DueAt.After(now) {
		t.Errorf("backfilled card = %+v", got)
	}

	// The backfill must be persisted.
	var dueAt string
	if err := s.DB().QueryRow(`SELECT due_at FROM cards WHERE id = 'legacy-1'`).Scan(&dueAt); err != nil {
		t.Fatalf("read due_at: %v", err)
	}
	if dueAt == "" {
		t.Error("expected due_at to be backfilled on first read")
	}
}

func TestReplace_PersistsGradingFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deck := seedDeck(t, s, "user1")
	now := time.Now().UTC().Truncate(time.Second)

	card, err := s.Cards().Create(ctx, deck.ID, "user1", "Hola", "Hello")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	card.EaseFactor = 2.6
	card.Repetitions = 1
	card.IntervalDays = 1
	card.DueAt = now.Add(4 * 24 * time.Hour)
	card.LastGrade = string(srs.GradeEasy)
	card.LastGradedAt = &now
	card.LastReviewedAt = &now
	card.UpdatedAt = now
	if _, err := s.Cards().Replace(ctx, card); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Cards().GetByID(ctx, card.ID, "user1")
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if got.LastGrade != "easy" || got.Repetitions != 1 {
		t.Errorf("got card %+v", got)
	}
	if got.LastGradedAt == nil || !got.LastGradedAt.Equal(now) {
		t.Errorf("LastGradedAt = %v, want %v", got.LastGradedAt, now)
	}
	if !got.DueAt.Equal(now.Add(4 * 24 * time.Hour)) {
		t.Errorf("DueAt = %v", got.DueAt)
	}
}

func TestCountDue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deck := seedDeck(t, s, "user1")
	now := time.Now().UTC().Truncate(time.Second)

	for _, front := range []string{"uno", "dos", "tres"} {
		if _, err := s.Cards().Create(ctx, deck.ID, "user1", front, front); err != nil {
			t.Fatalf("create card: %v", err)
		}
	}

	n, err := s.Cards().CountDue(ctx, "user1", deck.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("count due: %v", err)
	}
	if n != 3 {
		t.Errorf("CountDue = %d, want 3", n)
	}
}

func TestEventAppends(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	err := s.Events().AppendReview(ctx, ReviewEventData{
		UserID: "user1", DeckID: "d1", CardID: "c1",
		Grade: "easy", Quality: 5, AttemptCount: 1, DueAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("append review: %v", err)
	}

	err = s.Events().AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "mock", Purpose: "tutor-verdict",
		InputTokens: 10, OutputTokens: 5, LatencyMs: 12, Success: true,
	})
	if err != nil {
		t.Fatalf("append llm: %v", err)
	}

	var reviews, llms int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM review_events`).Scan(&reviews); err != nil {
		t.Fatal(err)
	}
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM llm_events`).Scan(&llms); err != nil {
		t.Fatal(err)
	}
	if reviews != 1 || llms != 1 {
		t.Errorf("events = %d/%d, want 1/1", reviews, llms)
	}
}
