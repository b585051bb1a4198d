package store

import (
	"context"
	"fmt"
	"time"
)

// ReviewEventData captures a single grading outcome for audit.
type ReviewEventData struct {
	UserID       string
	DeckID       string
	CardID       string
	Grade        string
	Quality      int
	AttemptCount int
	Revealed     bool
	DueAt        time.Time
}

// LLMRequestEventData captures telemetry for a single LLM API call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendReview records a grading event.
	AppendReview(ctx context.Context, data ReviewEventData) error

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

type eventRepo struct {
	store *Store
}

func (r *eventRepo) AppendReview(ctx context.Context, data ReviewEventData) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO review_events (id, user_id, deck_id, card_id, grade, quality,
		                            attempt_count, revealed, due_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.store.newID(), data.UserID, data.DeckID, data.CardID, data.Grade,
		data.Quality, data.AttemptCount, boolToInt(data.Revealed),
		dbTime(data.DueAt), dbTime(time.Now()))
	if err != nil {
		return fmt.Errorf("append review event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO llm_events (id, provider, model, purpose, input_tokens,
		                         output_tokens, latency_ms, success, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.store.newID(), data.Provider, data.Model, data.Purpose,
		data.InputTokens, data.OutputTokens, data.LatencyMs,
		boolToInt(data.Success), data.ErrorMessage, dbTime(time.Now()))
	if err != nil {
		return fmt.Errorf("append llm event: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
