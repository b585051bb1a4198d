// Package server exposes the HTTP API: study sessions, the manual SRS
// flow, deck and card CRUD, and seeding.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"parlo/internal/auth"
	"parlo/internal/config"
	"parlo/internal/store"
	"parlo/internal/tutor"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	cfg       config.ServerConfig
	logger    *zap.Logger
	decks     store.DeckRepo
	cards     store.CardRepo
	engine    *tutor.Engine
	validator *auth.Validator
}

// New assembles a Server.
func New(cfg config.ServerConfig, logger *zap.Logger, decks store.DeckRepo, cards store.CardRepo, engine *tutor.Engine, validator *auth.Validator) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		decks:     decks,
		cards:     cards,
		engine:    engine,
		validator: validator,
	}
}

// Handler builds the routing table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	authed := auth.Middleware(s.validator, s.logger)

	mux.Handle("GET /decks", authed(http.HandlerFunc(s.handleListDecks)))
	mux.Handle("POST /decks", authed(http.HandlerFunc(s.handleCreateDeck)))
	mux.Handle("GET /decks/{deckId}", authed(http.HandlerFunc(s.handleGetDeck)))
	mux.Handle("PUT /decks/{deckId}", authed(http.HandlerFunc(s.handleUpdateDeck)))
	mux.Handle("DELETE /decks/{deckId}", authed(http.HandlerFunc(s.handleDeleteDeck)))

	mux.Handle("GET /decks/{deckId}/cards", authed(http.HandlerFunc(s.handleListCards)))
	mux.Handle("POST /decks/{deckId}/cards", authed(http.HandlerFunc(s.handleCreateCard)))
	mux.Handle("GET /decks/{deckId}/cards/{cardId}", authed(http.HandlerFunc(s.handleGetCard)))
	mux.Handle("PUT /decks/{deckId}/cards/{cardId}", authed(http.HandlerFunc(s.handleUpdateCard)))
	mux.Handle("DELETE /decks/{deckId}/cards/{cardId}", authed(http.HandlerFunc(s.handleDeleteCard)))

	mux.Handle("GET /learn/next", authed(http.HandlerFunc(s.handleLearnNext)))
	mux.Handle("POST /learn/review", authed(http.HandlerFunc(s.handleLearnReview)))
	mux.Handle("GET /learn/agents", authed(http.HandlerFunc(s.handleLearnAgents)))
	mux.Handle("POST /learn/start", authed(http.HandlerFunc(s.handleLearnStart)))
	mux.Handle("POST /learn/chat", authed(http.HandlerFunc(s.handleLearnChat)))

	mux.Handle("POST /seed", authed(http.HandlerFunc(s.handleSeed)))

	var h http.Handler = mux
	h = s.corsMiddleware(h)
	h = s.recoverMiddleware(h)
	h = s.logMiddleware(h)
	return h
}

// Run serves until the context is canceled or SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout.Std(),
		WriteTimeout: s.cfg.WriteTimeout.Std(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Std())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Parlo API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health": "/healthz",
			"decks":  "/decks",
			"cards":  "/decks/{deckId}/cards",
			"learn":  "/learn",
			"seed":   "/seed",
		},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
