package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parlo/internal/srs"
)

// Card is a single front/back learnable unit subject to spaced repetition.
// Cards created before scheduling existed have no SRS fields; the repo
// treats them as due now and backfills defaults on first read.
type Card struct {
	ID             string     `json:"id"`
	DeckID         string     `json:"deckId"`
	UserID         string     `json:"userId"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	DueAt          time.Time  `json:"dueAt"`
	EaseFactor     float64    `json:"easeFactor"`
	Repetitions    int        `json:"repetitions"`
	IntervalDays   int        `json:"intervalDays"`
	LastGrade      string     `json:"lastGrade,omitempty"`
	LastGradedAt   *time.Time `json:"lastGradedAt,omitempty"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CardRepo provides card persistence, scoped to the owning user.
type CardRepo interface {
	Create(ctx context.Context, deckID, userID, front, back string) (*Card, error)
	GetByID(ctx context.Context, cardID, userID string) (*Card, error)
	ListByDeck(ctx context.Context, deckID, userID string) ([]*Card, error)
	Update(ctx context.Context, cardID, userID string, front, back *string) (*Card, error)
	Delete(ctx context.Context, cardID, userID string) error
	DeleteByDeck(ctx context.Context, deckID, userID string) (int, error)

	// Replace persists the full card row, including SRS fields, after grading.
	Replace(ctx context.Context, card *Card) (*Card, error)

	// NextDue returns the earliest due card for the deck, or ErrNotFound
	// when nothing is due. Unscheduled cards are due now and come first.
	NextDue(ctx context.Context, userID, deckID string, now time.Time) (*Card, error)

	// EarliestDueAt returns the soonest upcoming due timestamp for the
	// deck, or ErrNotFound for an empty deck.
	EarliestDueAt(ctx context.Context, userID, deckID string) (time.Time, error)

	// CountDue returns the number of cards currently due for the deck.
	CountDue(ctx context.Context, userID, deckID string, now time.Time) (int, error)
}

type cardRepo struct {
	db *sql.DB
}

func (r *cardRepo) Create(ctx context.Context, deckID, userID, front, back string) (*Card, error) {
	now := time.Now().UTC().Truncate(time.Second)
	card := &Card{
		ID:           uuid.NewString(),
		DeckID:       deckID,
		UserID:       userID,
		Front:        front,
		Back:         back,
		DueAt:        now,
		EaseFactor:   srs.DefaultEaseFactor,
		Repetitions:  0,
		IntervalDays: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (id, deck_id, user_id, front, back, due_at, ease_factor,
		                    repetitions, interval_days, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.DeckID, card.UserID, card.Front, card.Back,
		dbTime(card.DueAt), card.EaseFactor, card.Repetitions, card.IntervalDays,
		dbTime(card.CreatedAt), dbTime(card.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}
	return card, nil
}

const cardColumns = `id, deck_id, user_id, front, back, due_at, ease_factor,
	repetitions, interval_days, last_grade, last_graded_at, last_reviewed_at,
	created_at, updated_at`

func (r *cardRepo) GetByID(ctx context.Context, cardID, userID string) (*Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ? AND user_id = ?`, cardID, userID)
	card, backfilled, err := scanCard(row)
	if err != nil {
		return nil, err
	}
	if backfilled {
		if err := r.persistBackfill(ctx, card); err != nil {
			return nil, err
		}
	}
	return card, nil
}

func (r *cardRepo) ListByDeck(ctx context.Context, deckID, userID string) ([]*Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards
		 WHERE deck_id = ? AND user_id = ? ORDER BY created_at`, deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		card, _, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r *cardRepo) Update(ctx context.Context, cardID, userID string, front, back *string) (*Card, error) {
	card, err := r.GetByID(ctx, cardID, userID)
	if err != nil {
		return nil, err
	}
	if front != nil {
		card.Front = *front
	}
	if back != nil {
		card.Back = *back
	}
	card.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx,
		`UPDATE cards SET front = ?, back = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		card.Front, card.Back, dbTime(card.UpdatedAt), cardID, userID)
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

func (r *cardRepo) Delete(ctx context.Context, cardID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE id = ? AND user_id = ?`, cardID, userID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *cardRepo) DeleteByDeck(ctx context.Context, deckID, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE deck_id = ? AND user_id = ?`, deckID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete cards by deck: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *cardRepo) Replace(ctx context.Context, card *Card) (*Card, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET front = ?, back = ?, due_at = ?, ease_factor = ?,
		        repetitions = ?, interval_days = ?, last_grade = ?,
		        last_graded_at = ?, last_reviewed_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		card.Front, card.Back, dbTime(card.DueAt), card.EaseFactor,
		card.Repetitions, card.IntervalDays, nullString(card.LastGrade),
		nullTime(card.LastGradedAt), nullTime(card.LastReviewedAt),
		dbTime(card.UpdatedAt), card.ID, card.UserID)
	if err != nil {
		return nil, fmt.Errorf("replace card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return card, nil
}

func (r *cardRepo) NextDue(ctx context.Context, userID, deckID string, now time.Time) (*Card, error) {
	// NULL due_at sorts first, so legacy cards win ties.
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards
		 WHERE user_id = ? AND deck_id = ? AND (due_at IS NULL OR due_at <= ?)
		 ORDER BY due_at LIMIT 1`,
		userID, deckID, dbTime(now))
	card, backfilled, err := scanCard(row)
	if err != nil {
		return nil, err
	}
	if backfilled {
		card.DueAt = now.UTC().Truncate(time.Second)
		if err := r.persistBackfill(ctx, card); err != nil {
			return nil, err
		}
	}
	return card, nil
}

func (r *cardRepo) EarliestDueAt(ctx context.Context, userID, deckID string) (time.Time, error) {
	var dueAt sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(due_at) FROM cards WHERE user_id = ? AND deck_id = ?`,
		userID, deckID).Scan(&dueAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("earliest due: %w", err)
	}
	if !dueAt.Valid {
		return time.Time{}, ErrNotFound
	}
	return parseDBTime(dueAt.String)
}

func (r *cardRepo) CountDue(ctx context.Context, userID, deckID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards
		 WHERE user_id = ? AND deck_id = ? AND (due_at IS NULL OR due_at <= ?)`,
		userID, deckID, dbTime(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count due: %w", err)
	}
	return n, nil
}

// persistBackfill writes freshly seeded SRS fields for a legacy card.
func (r *cardRepo) persistBackfill(ctx context.Context, card *Card) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cards SET due_at = ?, ease_factor = ?, repetitions = ?, interval_days = ?
		 WHERE id = ?`,
		dbTime(card.DueAt), card.EaseFactor, card.Repetitions, card.IntervalDays, card.ID)
	if err != nil {
		return fmt.Errorf("backfill card srs fields: %w", err)
	}
	return nil
}

// scanCard scans a card row. The second return value reports whether the
// row lacked scheduling fields and was seeded with defaults in memory;
// callers decide whether to persist the backfill.
func scanCard(row rowScanner) (*Card, bool, error) {
	var card Card
	var dueAt, lastGrade, lastGradedAt, lastReviewedAt sql.NullString
	var easeFactor sql.NullFloat64
	var repetitions, intervalDays sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&card.ID, &card.DeckID, &card.UserID, &card.Front, &card.Back,
		&dueAt, &easeFactor, &repetitions, &intervalDays,
		&lastGrade, &lastGradedAt, &lastReviewedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan card: %w", err)
	}

	if card.CreatedAt, err = parseDBTime(createdAt); err != nil {
		return nil, false, fmt.Errorf("parse card created_at: %w", err)
	}
	if card.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, false, fmt.Errorf("parse card updated_at: %w", err)
	}

	backfilled := false
	if !dueAt.Valid {
		// Legacy row: due immediately with fresh SRS state.
		card.DueAt = time.Now().UTC().Truncate(time.Second)
		card.EaseFactor = srs.DefaultEaseFactor
		backfilled = true
	} else {
		if card.DueAt, err = parseDBTime(dueAt.String); err != nil {
			return nil, false, fmt.Errorf("parse card due_at: %w", err)
		}
		card.EaseFactor = easeFactor.Float64
		card.Repetitions = int(repetitions.Int64)
		card.IntervalDays = int(intervalDays.Int64)
	}

	card.LastGrade = lastGrade.String
	if lastGradedAt.Valid {
		t, err := parseDBTime(lastGradedAt.String)
		if err != nil {
			return nil, false, fmt.Errorf("parse card last_graded_at: %w", err)
		}
		card.LastGradedAt = &t
	}
	if lastReviewedAt.Valid {
		t, err := parseDBTime(lastReviewedAt.String)
		if err != nil {
			return nil, false, fmt.Errorf("parse card last_reviewed_at: %w", err)
		}
		card.LastReviewedAt = &t
	}

	return &card, backfilled, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}
