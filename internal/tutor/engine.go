package tutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"parlo/internal/srs"
	"parlo/internal/store"
)

// CardInfo is the card surface shown to the learner. The back never leaves
// the server.
type CardInfo struct {
	ID    string `json:"id"`
	Front string `json:"front"`
}

// StartResult is the outcome of opening a study session.
type StartResult struct {
	AssistantMessage string    `json:"assistantMessage"`
	Mode             Mode      `json:"mode"`
	Card             *CardInfo `json:"card"`
	ConversationID   string    `json:"conversationId"`
	AgentName        string    `json:"agentName"`
	Language         string    `json:"language"`
}

// TurnResult is the outcome of one learner turn.
type TurnResult struct {
	AssistantMessage string    `json:"assistantMessage"`
	Mode             Mode      `json:"mode"`
	Card             *CardInfo `json:"card"`
}

// Engine drives the tutoring state machine. Each turn it pulls a session
// snapshot from the store, mutates the copy, talks to the judge outside any
// lock, and writes the result back in one step.
type Engine struct {
	decks    store.DeckRepo
	cards    store.CardRepo
	events   store.EventRepo
	sessions *SessionStore
	judge    *Judge
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine wires the engine to its collaborators.
func NewEngine(decks store.DeckRepo, cards store.CardRepo, events store.EventRepo, sessions *SessionStore, judge *Judge, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		decks:    decks,
		cards:    cards,
		events:   events,
		sessions: sessions,
		judge:    judge,
		logger:   logger,
		now:      time.Now,
	}
}

// StartSession opens (or resumes) the session for a learner and deck. When
// a card is due the session starts focused on it, otherwise in free
// conversation. The greeting is generated locally, without a model call.
func (e *Engine) StartSession(ctx context.Context, learner, deckID string) (*StartResult, error) {
	deck, err := e.decks.GetByID(ctx, deckID, learner)
	if err != nil {
		return nil, err
	}
	persona, err := PersonaFor(deck.Language)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()

	var hint string
	due, err := e.cards.NextDue(ctx, learner, deckID, now)
	switch {
	case err == nil:
		hint = due.ID
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("next due card: %w", err)
	}

	sess := e.sessions.GetOrCreate(learner, deckID, hint, now)
	if sess.Mode == ModeFocused && due == nil {
		// The focused card is gone and nothing else is due.
		sess.enterFree()
	}

	res := &StartResult{
		Mode:           sess.Mode,
		ConversationID: sess.ConversationID,
		AgentName:      persona.AgentName,
		Language:       deck.Language,
	}
	if sess.Mode == ModeFocused && due != nil {
		res.Card = &CardInfo{ID: due.ID, Front: due.Front}
		res.AssistantMessage = cardGreeting(persona, due.Front)
	} else {
		res.AssistantMessage = freeGreeting(persona)
	}

	sess.appendContext(Message{Role: "assistant", Content: res.AssistantMessage})
	e.sessions.Update(learner, deckID, sess)

	return res, nil
}

// SubmitTurn processes one learner message and returns the tutor's reply
// along with the session's mode after the turn.
func (e *Engine) SubmitTurn(ctx context.Context, learner, deckID, message string) (*TurnResult, error) {
	deck, err := e.decks.GetByID(ctx, deckID, learner)
	if err != nil {
		return nil, err
	}
	persona, err := PersonaFor(deck.Language)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()

	sess := e.sessions.Get(learner, deckID)
	if sess == nil {
		sess, err = e.initSession(ctx, learner, deckID, now)
		if err != nil {
			return nil, err
		}
	}

	if IsRevealRequest(message) {
		sess.ExplicitRevealCount++
		e.logger.Debug("explicit reveal request",
			zap.String("deckId", deckID),
			zap.Int("count", sess.ExplicitRevealCount))
	}

	var res *TurnResult
	if sess.Mode == ModeFocused {
		res, err = e.focusedTurn(ctx, sess, persona, learner, deckID, message, now)
	} else {
		res, err = e.freeTurn(ctx, sess, persona, learner, deckID, message, now)
	}
	if err != nil {
		return nil, err
	}

	e.sessions.Update(learner, deckID, sess)
	return res, nil
}

// initSession recreates session state after expiry or eviction, mirroring
// StartSession's due-card selection.
func (e *Engine) initSession(ctx context.Context, learner, deckID string, now time.Time) (*Session, error) {
	var hint string
	due, err := e.cards.NextDue(ctx, learner, deckID, now)
	switch {
	case err == nil:
		hint = due.ID
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("next due card: %w", err)
	}
	return e.sessions.GetOrCreate(learner, deckID, hint, now), nil
}

// focusedTurn handles a turn while a card is active: judge the answer, and
// on the first terminal verdict grade the card, persist it and advance.
func (e *Engine) focusedTurn(ctx context.Context, sess *Session, persona Persona, learner, deckID, message string, now time.Time) (*TurnResult, error) {
	// A resolved activation should have advanced already; recover by
	// advancing now and handling the turn in the resulting state.
	if sess.Resolved() {
		next, err := e.advance(ctx, sess, learner, deckID, now)
		if err != nil {
			return nil, err
		}
		if sess.Mode == ModeFree {
			return e.freeTurn(ctx, sess, persona, learner, deckID, message, now)
		}
		return e.focusedTurnOnCard(ctx, sess, persona, learner, deckID, next, message, now)
	}

	card, err := e.cards.GetByID(ctx, sess.ActiveCardID, learner)
	if errors.Is(err, store.ErrNotFound) {
		// The active card was deleted between turns. Fall through to
		// re-selection as if no card were active.
		e.logger.Info("active card vanished, reselecting",
			zap.String("deckId", deckID),
			zap.String("cardId", sess.ActiveCardID))
		next, aerr := e.advance(ctx, sess, learner, deckID, now)
		if aerr != nil {
			return nil, aerr
		}
		if sess.Mode == ModeFree {
			return e.freeTurn(ctx, sess, persona, learner, deckID, message, now)
		}
		return e.focusedTurnOnCard(ctx, sess, persona, learner, deckID, next, message, now)
	}
	if err != nil {
		return nil, fmt.Errorf("load active card: %w", err)
	}

	return e.focusedTurnOnCard(ctx, sess, persona, learner, deckID, card, message, now)
}

func (e *Engine) focusedTurnOnCard(ctx context.Context, sess *Session, persona Persona, learner, deckID string, card *store.Card, message string, now time.Time) (*TurnResult, error) {
	sess.AttemptCount++
	shouldReveal := sess.ExplicitRevealCount >= revealThreshold

	verdict := e.judge.CardVerdict(ctx, persona, card.Front, card.Back, sess.Context, message, shouldReveal)

	sess.appendContext(
		Message{Role: "user", Content: message},
		Message{Role: "assistant", Content: verdict.Feedback},
	)
	sess.LastVerdictCorrect = verdict.IsCorrect
	if verdict.Revealed {
		sess.Revealed = true
	}

	res := &TurnResult{
		AssistantMessage: verdict.Feedback,
		Mode:             ModeFocused,
		Card:             &CardInfo{ID: card.ID, Front: card.Front},
	}

	if !verdict.IsCorrect && !verdict.Revealed {
		return res, nil
	}

	// First terminal verdict for this activation: grade, persist, advance.
	resolvedAt := now
	sess.ResolvedAt = &resolvedAt

	if err := e.gradeAndPersist(ctx, sess, learner, deckID, card, now); err != nil {
		return nil, err
	}

	next, err := e.advance(ctx, sess, learner, deckID, now)
	if err != nil {
		return nil, err
	}
	if sess.Mode == ModeFocused {
		res.Card = &CardInfo{ID: next.ID, Front: next.Front}
	} else {
		res.Mode = ModeFree
		res.Card = nil
	}
	return res, nil
}

// gradeAndPersist derives the grade from session behavior, updates the
// card's SM-2 state and due date, and writes card and audit event.
func (e *Engine) gradeAndPersist(ctx context.Context, sess *Session, learner, deckID string, card *store.Card, now time.Time) error {
	grade, err := srs.ComputeGrade(sess.Revealed, sess.AttemptCount)
	if err != nil {
		return err
	}
	quality, err := srs.QualityFor(grade)
	if err != nil {
		return err
	}
	state, err := srs.Apply(srs.SM2State{
		EaseFactor:   card.EaseFactor,
		Repetitions:  card.Repetitions,
		IntervalDays: card.IntervalDays,
	}, quality)
	if err != nil {
		return err
	}
	dueAt, err := srs.DueAt(now, grade)
	if err != nil {
		return err
	}

	card.EaseFactor = state.EaseFactor
	card.Repetitions = state.Repetitions
	card.IntervalDays = state.IntervalDays
	card.DueAt = dueAt
	card.LastGrade = string(grade)
	gradedAt := now.Truncate(time.Second)
	card.LastGradedAt = &gradedAt
	card.LastReviewedAt = &gradedAt
	card.UpdatedAt = gradedAt

	if _, err := e.cards.Replace(ctx, card); err != nil {
		return fmt.Errorf("persist graded card: %w", err)
	}

	if err := e.events.AppendReview(ctx, store.ReviewEventData{
		UserID:       learner,
		DeckID:       deckID,
		CardID:       card.ID,
		Grade:        string(grade),
		Quality:      quality,
		AttemptCount: sess.AttemptCount,
		Revealed:     sess.Revealed,
		DueAt:        dueAt,
	}); err != nil {
		// The card is already persisted; a lost audit row must not fail
		// the learner's turn.
		e.logger.Warn("review event append failed", zap.Error(err))
	}

	e.logger.Info("card graded",
		zap.String("cardId", card.ID),
		zap.String("grade", string(grade)),
		zap.Int("attempts", sess.AttemptCount),
		zap.Bool("revealed", sess.Revealed),
		zap.Time("dueAt", dueAt))
	return nil
}

// advance moves the session to the next due card, or to free conversation
// when nothing is due. Per-card counters and context are cleared either way.
func (e *Engine) advance(ctx context.Context, sess *Session, learner, deckID string, now time.Time) (*store.Card, error) {
	next, err := e.cards.NextDue(ctx, learner, deckID, now)
	if errors.Is(err, store.ErrNotFound) {
		sess.enterFree()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next due card: %w", err)
	}
	sess.resetForCard(next.ID)
	return next, nil
}

// freeTurn handles open conversation. A history trim is the cue to check
// whether a card has come due in the meantime.
func (e *Engine) freeTurn(ctx context.Context, sess *Session, persona Persona, learner, deckID, message string, now time.Time) (*TurnResult, error) {
	verdict := e.judge.FreeReply(ctx, persona, sess.Context, message)

	rolled := sess.appendContext(
		Message{Role: "user", Content: message},
		Message{Role: "assistant", Content: verdict.Feedback},
	)

	res := &TurnResult{
		AssistantMessage: verdict.Feedback,
		Mode:             ModeFree,
	}

	if rolled {
		due, err := e.cards.NextDue(ctx, learner, deckID, now)
		if err == nil {
			sess.resetForCard(due.ID)
			res.Mode = ModeFocused
			res.Card = &CardInfo{ID: due.ID, Front: due.Front}
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("next due card: %w", err)
		}
	}
	return res, nil
}

// ApplyGrade applies a learner-chosen grade to a card outside the chat
// flow, then drops the chat session so the next turn re-initializes.
func (e *Engine) ApplyGrade(ctx context.Context, learner, deckID, cardID string, grade srs.Grade) (*store.Card, error) {
	card, err := e.cards.GetByID(ctx, cardID, learner)
	if err != nil {
		return nil, err
	}
	if card.DeckID != deckID {
		return nil, store.ErrNotFound
	}

	quality, err := srs.QualityFor(grade)
	if err != nil {
		return nil, err
	}
	state, err := srs.Apply(srs.SM2State{
		EaseFactor:   card.EaseFactor,
		Repetitions:  card.Repetitions,
		IntervalDays: card.IntervalDays,
	}, quality)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	dueAt, err := srs.DueAt(now, grade)
	if err != nil {
		return nil, err
	}

	card.EaseFactor = state.EaseFactor
	card.Repetitions = state.Repetitions
	card.IntervalDays = state.IntervalDays
	card.DueAt = dueAt
	card.LastGrade = string(grade)
	gradedAt := now.Truncate(time.Second)
	card.LastGradedAt = &gradedAt
	card.LastReviewedAt = &gradedAt
	card.UpdatedAt = gradedAt

	updated, err := e.cards.Replace(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("persist graded card: %w", err)
	}

	if err := e.events.AppendReview(ctx, store.ReviewEventData{
		UserID:  learner,
		DeckID:  deckID,
		CardID:  card.ID,
		Grade:   string(grade),
		Quality: quality,
		DueAt:   dueAt,
	}); err != nil {
		e.logger.Warn("review event append failed", zap.Error(err))
	}

	e.sessions.Reset(learner, deckID)
	return updated, nil
}
