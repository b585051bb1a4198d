package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parlo/internal/auth"
	"parlo/internal/llm"
	"parlo/internal/server"
	"parlo/internal/store"
	"parlo/internal/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
}

// runServe opens the store, builds dependencies, and serves HTTP until
// interrupted.
func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.Events())
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Tutoring chat will degrade to fallback responses.")
		provider = llm.NewMockProvider()
	}

	validator, err := auth.NewValidator(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	sessions := tutor.NewSessionStore(cfg.Session.MaxSessions, cfg.Session.TTL.Std())
	judge := tutor.NewJudge(provider, logger)
	engine := tutor.NewEngine(st.Decks(), st.Cards(), st.Events(), sessions, judge, logger)

	srv := server.New(cfg.Server, logger, st.Decks(), st.Cards(), engine, validator)

	logger.Info("starting parlo",
		zap.String("db", cfg.DBPath),
		zap.Bool("auth", cfg.Auth.Enabled),
		zap.String("llmProvider", cfg.LLM.Provider))
	return srv.Run(ctx)
}
