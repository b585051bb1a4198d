package server

import (
	"net/http"

	"parlo/internal/auth"
	"parlo/internal/store"
)

type cardCreateRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type cardUpdateRequest struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

type cardListResponse struct {
	Cards []*store.Card `json:"cards"`
	Count int           `json:"count"`
}

// requireDeck checks deck existence and ownership, writing the 404 itself.
func (s *Server) requireDeck(w http.ResponseWriter, r *http.Request, deckID, userID string) bool {
	ok, err := s.decks.Exists(r.Context(), deckID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Deck with ID "+deckID+" not found")
		return false
	}
	return true
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")

	if !s.requireDeck(w, r, deckID, user.UserID) {
		return
	}

	cards, err := s.cards.ListByDeck(r.Context(), deckID, user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cards == nil {
		cards = []*store.Card{}
	}
	writeJSON(w, http.StatusOK, cardListResponse{Cards: cards, Count: len(cards)})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")

	if !s.requireDeck(w, r, deckID, user.UserID) {
		return
	}

	var req cardCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Front == "" || req.Back == "" {
		writeError(w, http.StatusBadRequest, "front and back are required")
		return
	}

	card, err := s.cards.Create(r.Context(), deckID, user.UserID, req.Front, req.Back)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// cardInDeck loads a card and verifies it belongs to the deck in the path.
func (s *Server) cardInDeck(w http.ResponseWriter, r *http.Request, deckID, cardID, userID string) *store.Card {
	card, err := s.cards.GetByID(r.Context(), cardID, userID)
	if err != nil {
		writeStoreError(w, err, "Card with ID "+cardID+" not found")
		return nil
	}
	if card.DeckID != deckID {
		writeError(w, http.StatusNotFound, "Card with ID "+cardID+" not found in deck "+deckID)
		return nil
	}
	return card
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")
	cardID := r.PathValue("cardId")

	if !s.requireDeck(w, r, deckID, user.UserID) {
		return
	}
	card := s.cardInDeck(w, r, deckID, cardID, user.UserID)
	if card == nil {
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")
	cardID := r.PathValue("cardId")

	if !s.requireDeck(w, r, deckID, user.UserID) {
		return
	}
	if s.cardInDeck(w, r, deckID, cardID, user.UserID) == nil {
		return
	}

	var req cardUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Front != nil && *req.Front == "") || (req.Back != nil && *req.Back == "") {
		writeError(w, http.StatusBadRequest, "front and back must not be empty")
		return
	}

	card, err := s.cards.Update(r.Context(), cardID, user.UserID, req.Front, req.Back)
	if err != nil {
		writeStoreError(w, err, "Card with ID "+cardID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")
	cardID := r.PathValue("cardId")

	if !s.requireDeck(w, r, deckID, user.UserID) {
		return
	}
	if s.cardInDeck(w, r, deckID, cardID, user.UserID) == nil {
		return
	}

	if err := s.cards.Delete(r.Context(), cardID, user.UserID); err != nil {
		writeStoreError(w, err, "Card with ID "+cardID+" not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
