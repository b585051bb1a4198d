package server

import (
	"net/http"

	"parlo/internal/auth"
	"parlo/internal/store"
	"parlo/internal/tutor"
)

type deckCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type deckUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type deckListResponse struct {
	Decks []*store.Deck `json:"decks"`
	Count int           `json:"count"`
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	decks, err := s.decks.ListByUser(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if decks == nil {
		decks = []*store.Deck{}
	}
	writeJSON(w, http.StatusOK, deckListResponse{Decks: decks, Count: len(decks)})
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	var req deckCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := tutor.PersonaFor(req.Language); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deck, err := s.decks.Create(r.Context(), user.UserID, req.Name, req.Description, req.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")

	deck, err := s.decks.GetByID(r.Context(), deckID, user.UserID)
	if err != nil {
		writeStoreError(w, err, "Deck with ID "+deckID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")

	var req deckUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	deck, err := s.decks.Update(r.Context(), deckID, user.UserID, req.Name, req.Description)
	if err != nil {
		writeStoreError(w, err, "Deck with ID "+deckID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())
	deckID := r.PathValue("deckId")

	if _, err := s.decks.GetByID(r.Context(), deckID, user.UserID); err != nil {
		writeStoreError(w, err, "Deck with ID "+deckID+" not found")
		return
	}
	if _, err := s.cards.DeleteByDeck(r.Context(), deckID, user.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.decks.Delete(r.Context(), deckID, user.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
