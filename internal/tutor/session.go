package tutor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode says whether the session is working a specific card or in open
// conversation. The wire values match the client contract.
type Mode string

const (
	ModeFocused Mode = "card"
	ModeFree    Mode = "free"
)

const (
	// focusedContextMax bounds history while working a card. Context is
	// cleared on every card change, so rollover never needs signaling.
	focusedContextMax = 6

	// freeContextMax bounds history in free conversation. A trim here is
	// the trigger for re-checking whether a card has come due.
	freeContextMax = 10

	// revealThreshold is how many explicit reveal requests it takes
	// before the judge is instructed to reveal the answer.
	revealThreshold = 2
)

// Message is one turn of conversation context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the per (learner, deck) conversation state. Exactly one of
// {Focused with ActiveCardID set, Free with ActiveCardID empty} holds.
// AttemptCount only moves while ResolvedAt is unset.
type Session struct {
	Mode                Mode
	ActiveCardID        string
	AttemptCount        int
	ResolvedAt          *time.Time
	Context             []Message
	ExplicitRevealCount int
	Revealed            bool
	LastVerdictCorrect  bool
	ConversationID      string
	CreatedAt           time.Time
}

// newSession creates a session seeded into Focused(cardID), or Free when
// cardID is empty.
func newSession(learner, deckID, cardID string, now time.Time) *Session {
	s := &Session{
		Mode:           ModeFree,
		CreatedAt:      now,
		ConversationID: conversationID(learner, deckID, now),
	}
	if cardID != "" {
		s.Mode = ModeFocused
		s.ActiveCardID = cardID
	}
	return s
}

// conversationID derives a stable id from the session's identity. The same
// (learner, deck, creation time) always yields the same id, so a client can
// correlate across evictions.
func conversationID(learner, deckID string, createdAt time.Time) string {
	seed := fmt.Sprintf("%s|%s|%d", learner, deckID, createdAt.UTC().Unix())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// Clone returns a deep copy. The store hands out and accepts only copies so
// no caller ever mutates shared state.
func (s *Session) Clone() *Session {
	c := *s
	if s.ResolvedAt != nil {
		t := *s.ResolvedAt
		c.ResolvedAt = &t
	}
	c.Context = make([]Message, len(s.Context))
	copy(c.Context, s.Context)
	return &c
}

// Resolved reports whether the active card reached a terminal verdict for
// this activation.
func (s *Session) Resolved() bool {
	return s.ResolvedAt != nil
}

// resetForCard re-initializes the session for a new active card, keeping
// identity fields intact.
func (s *Session) resetForCard(cardID string) {
	s.Mode = ModeFocused
	s.ActiveCardID = cardID
	s.AttemptCount = 0
	s.ResolvedAt = nil
	s.Context = nil
	s.ExplicitRevealCount = 0
	s.Revealed = false
	s.LastVerdictCorrect = false
}

// enterFree moves the session to free conversation, clearing per-card state.
func (s *Session) enterFree() {
	s.Mode = ModeFree
	s.ActiveCardID = ""
	s.AttemptCount = 0
	s.ResolvedAt = nil
	s.Context = nil
	s.ExplicitRevealCount = 0
	s.Revealed = false
	s.LastVerdictCorrect = false
}

// appendContext appends messages under the mode's bound, dropping the
// oldest entries on overflow. Returns true when the append caused a trim;
// only free mode acts on that signal.
func (s *Session) appendContext(msgs ...Message) bool {
	limit := focusedContextMax
	if s.Mode == ModeFree {
		limit = freeContextMax
	}

	s.Context = append(s.Context, msgs...)
	if len(s.Context) <= limit {
		return false
	}
	s.Context = s.Context[len(s.Context)-limit:]
	return true
}
