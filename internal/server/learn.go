package server

import (
	"errors"
	"net/http"
	"time"

	"parlo/internal/auth"
	"parlo/internal/srs"
	"parlo/internal/store"
	"parlo/internal/tutor"
)

type learnNextResponse struct {
	Card      *store.Card `json:"card"`
	NextDueAt *time.Time  `json:"nextDueAt"`
}

type learnReviewRequest struct {
	DeckID string `json:"deckId"`
	CardID string `json:"cardId"`
	Grade  string `json:"grade"`
}

type learnStartRequest struct {
	DeckID string `json:"deckId"`
}

type learnChatRequest struct {
	DeckID      string `json:"deckId"`
	UserMessage string `json:"userMessage"`
}

type learnAgent struct {
	DeckID       string `json:"deckId"`
	DeckName     string `json:"deckName"`
	Language     string `json:"language"`
	AgentName    string `json:"agentName"`
	DueCardCount int    `json:"dueCardCount"`
}

type learnAgentsResponse struct {
	Agents []learnAgent `json:"agents"`
	Count  int          `json:"count"`
}

// maxUserMessageLen matches the client contract for chat messages.
const maxUserMessageLen = 2000

func (s *Server) handleLearnNext(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.URL.Query().Get("deckId")
	if deckID == "" {
		writeError(w, http.StatusBadRequest, "deckId query parameter is required")
		return
	}
	if !s.requireDeck(w, r, deckID, user.UserID) {
		return
	}

	now := time.Now().UTC()
	card, err := s.cards.NextDue(r.Context(), user.UserID, deckID, now)
	if err == nil {
		writeJSON(w, http.StatusOK, learnNextResponse{Card: card})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := learnNextResponse{}
	if nextDue, err := s.cards.EarliestDueAt(r.Context(), user.UserID, deckID); err == nil {
		res.NextDueAt = &nextDue
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLearnReview(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	var req learnReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.requireDeck(w, r, req.DeckID, user.UserID) {
		return
	}

	grade := srs.Grade(req.Grade)
	if !grade.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid grade: "+req.Grade)
		return
	}

	card, err := s.engine.ApplyGrade(r.Context(), user.UserID, req.DeckID, req.CardID, grade)
	if err != nil {
		writeStoreError(w, err, "Card with ID "+req.CardID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleLearnAgents(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	decks, err := s.decks.ListByUser(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now().UTC()
	agents := []learnAgent{}
	for _, deck := range decks {
		persona, err := tutor.PersonaFor(deck.Language)
		if err != nil {
			continue
		}
		due, err := s.cards.CountDue(r.Context(), user.UserID, deck.ID, now)
		if err != nil || due == 0 {
			continue
		}
		agents = append(agents, learnAgent{
			DeckID:       deck.ID,
			DeckName:     deck.Name,
			Language:     deck.Language,
			AgentName:    persona.AgentName,
			DueCardCount: due,
		})
	}
	writeJSON(w, http.StatusOK, learnAgentsResponse{Agents: agents, Count: len(agents)})
}

func (s *Server) handleLearnStart(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	var req learnStartRequest
	if err := decodeJSON(r, &req); err != nil || req.DeckID == "" {
		writeError(w, http.StatusBadRequest, "deckId is required")
		return
	}

	res, err := s.engine.StartSession(r.Context(), user.UserID, req.DeckID)
	if err != nil {
		writeStoreError(w, err, "Deck with ID "+req.DeckID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLearnChat(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	var req learnChatRequest
	if err := decodeJSON(r, &req); err != nil || req.DeckID == "" {
		writeError(w, http.StatusBadRequest, "deckId is required")
		return
	}
	if req.UserMessage == "" || len(req.UserMessage) > maxUserMessageLen {
		writeError(w, http.StatusBadRequest, "userMessage must be 1-2000 characters")
		return
	}

	res, err := s.engine.SubmitTurn(r.Context(), user.UserID, req.DeckID, req.UserMessage)
	if err != nil {
		writeStoreError(w, err, "Deck with ID "+req.DeckID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
