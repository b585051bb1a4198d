package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Deck is a named collection of cards targeting one language.
type Deck struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DeckRepo provides deck persistence. All operations are scoped to the
// owning user; a deck owned by someone else behaves as if it did not exist.
type DeckRepo interface {
	Create(ctx context.Context, userID, name, description, language string) (*Deck, error)
	GetByID(ctx context.Context, deckID, userID string) (*Deck, error)
	ListByUser(ctx context.Context, userID string) ([]*Deck, error)
	Update(ctx context.Context, deckID, userID string, name, description *string) (*Deck, error)
	Delete(ctx context.Context, deckID, userID string) error
	Exists(ctx context.Context, deckID, userID string) (bool, error)
}

type deckRepo struct {
	db *sql.DB
}

func (r *deckRepo) Create(ctx context.Context, userID, name, description, language string) (*Deck, error) {
	now := time.Now().UTC().Truncate(time.Second)
	deck := &Deck{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Language:    language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO decks (id, user_id, name, description, language, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		deck.ID, deck.UserID, deck.Name, deck.Description, deck.Language,
		dbTime(deck.CreatedAt), dbTime(deck.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert deck: %w", err)
	}
	return deck, nil
}

func (r *deckRepo) GetByID(ctx context.Context, deckID, userID string) (*Deck, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, language, created_at, updated_at
		 FROM decks WHERE id = ? AND user_id = ?`, deckID, userID)
	return scanDeck(row)
}

func (r *deckRepo) ListByUser(ctx context.Context, userID string) ([]*Deck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, language, created_at, updated_at
		 FROM decks WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var decks []*Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, deck)
	}
	return decks, rows.Err()
}

func (r *deckRepo) Update(ctx context.Context, deckID, userID string, name, description *string) (*Deck, error) {
	deck, err := r.GetByID(ctx, deckID, userID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		deck.Name = *name
	}
	if description != nil {
		deck.Description = *description
	}
	deck.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx,
		`UPDATE decks SET name = ?, description = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		deck.Name, deck.Description, dbTime(deck.UpdatedAt), deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("update deck: %w", err)
	}
	return deck, nil
}

func (r *deckRepo) Delete(ctx context.Context, deckID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM decks WHERE id = ? AND user_id = ?`, deckID, userID)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
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

func (r *deckRepo) Exists(ctx context.Context, deckID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM decks WHERE id = ? AND user_id = ?`, deckID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deck exists: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*Deck, error) {
	var deck Deck
	var description sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&deck.ID, &deck.UserID, &deck.Name, &description, &deck.Language, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan deck: %w", err)
	}

	deck.Description = description.String
	if deck.CreatedAt, err = parseDBTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse deck created_at: %w", err)
	}
	if deck.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse deck updated_at: %w", err)
	}
	return &deck, nil
}
