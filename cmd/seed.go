package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"parlo/internal/server"
	"parlo/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with sample decks and cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		userID, _ := cmd.Flags().GetString("user")

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		decks, cards, err := server.SeedSampleData(cmd.Context(), st.Decks(), st.Cards(), userID)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d decks and %d cards for user %s\n", decks, cards, userID)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("user", "dev-user", "User ID to seed data for")
}
