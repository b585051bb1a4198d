package server

import (
	"context"
	"fmt"
	"net/http"

	"parlo/internal/auth"
	"parlo/internal/store"
)

type seedDeck struct {
	Name        string
	Description string
	Language    string
	Cards       [][2]string
}

// sampleDecks is the starter content created by POST /seed.
var sampleDecks = []seedDeck{
	{
		Name:        "Spanish Basics",
		Description: "Essential Spanish words and phrases for beginners",
		Language:    "es-ES",
		Cards: [][2]string{
			{"Hola", "Hello"},
			{"Adiós", "Goodbye"},
			{"Gracias", "Thank you"},
			{"Por favor", "Please"},
			{"Buenos días", "Good morning"},
			{"Buenas noches", "Good night"},
			{"¿Cómo estás?", "How are you?"},
			{"Me llamo...", "My name is..."},
			{"¿Cuánto cuesta?", "How much does it cost?"},
			{"No entiendo", "I don't understand"},
		},
	},
	{
		Name:        "French Essentials",
		Description: "Common French vocabulary for everyday conversations",
		Language:    "fr-FR",
		Cards: [][2]string{
			{"Bonjour", "Hello / Good morning"},
			{"Bonsoir", "Good evening"},
			{"Au revoir", "Goodbye"},
			{"Merci", "Thank you"},
			{"S'il vous plaît", "Please"},
			{"Excusez-moi", "Excuse me"},
			{"Comment allez-vous?", "How are you? (formal)"},
			{"Je m'appelle...", "My name is..."},
			{"Parlez-vous anglais?", "Do you speak English?"},
			{"Je ne comprends pas", "I don't understand"},
		},
	},
	{
		Name:        "German Fundamentals",
		Description: "Core German words and expressions",
		Language:    "de-DE",
		Cards: [][2]string{
			{"Guten Tag", "Good day / Hello"},
			{"Guten Morgen", "Good morning"},
			{"Auf Wiedersehen", "Goodbye"},
			{"Danke", "Thank you"},
			{"Bitte", "Please / You're welcome"},
			{"Entschuldigung", "Excuse me / Sorry"},
			{"Wie geht es Ihnen?", "How are you? (formal)"},
			{"Ich heiße...", "My name is..."},
			{"Sprechen Sie Englisch?", "Do you speak English?"},
			{"Ich verstehe nicht", "I don't understand"},
		},
	},
}

type seedResponse struct {
	Message      string `json:"message"`
	DecksCreated int    `json:"decksCreated"`
	CardsCreated int    `json:"cardsCreated"`
}

// SeedSampleData creates the sample decks and cards for a user.
func SeedSampleData(ctx context.Context, decks store.DeckRepo, cards store.CardRepo, userID string) (int, int, error) {
	decksCreated, cardsCreated := 0, 0
	for _, sd := range sampleDecks {
		deck, err := decks.Create(ctx, userID, sd.Name, sd.Description, sd.Language)
		if err != nil {
			return decksCreated, cardsCreated, fmt.Errorf("create deck %q: %w", sd.Name, err)
		}
		decksCreated++

		for _, c := range sd.Cards {
			if _, err := cards.Create(ctx, deck.ID, userID, c[0], c[1]); err != nil {
				return decksCreated, cardsCreated, fmt.Errorf("create card %q: %w", c[0], err)
			}
			cardsCreated++
		}
	}
	return decksCreated, cardsCreated, nil
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	user := auth.IdentityFrom(r.Context())

	decksCreated, cardsCreated, err := SeedSampleData(r.Context(), s.decks, s.cards, user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, seedResponse{
		Message:      "Sample data created successfully",
		DecksCreated: decksCreated,
		CardsCreated: cardsCreated,
	})
}
