package tutor

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultSessionTTL is the sliding inactivity window after which a
	// session is treated as gone.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultMaxSessions caps the store; the least recently used entry is
	// evicted to admit a new one.
	DefaultMaxSessions = 10000
)

type sessionKey struct {
	learner string
	deck    string
}

// SessionStore is a concurrent, time-bounded cache of sessions keyed by
// (learner, deck). All operations are serialized under one mutex; the lock
// covers only cache access, never a collaborator call. Callers get and give
// back copies, so torn state is never visible.
type SessionStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[sessionKey, *Session]
}

// NewSessionStore creates a store with the given capacity and sliding TTL.
// Zero values select the defaults.
func NewSessionStore(maxEntries int, ttl time.Duration) *SessionStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		cache: expirable.NewLRU[sessionKey, *Session](maxEntries, nil, ttl),
	}
}

// GetOrCreate returns the session for (learner, deck), refreshing its TTL.
// A differing non-empty cardHint re-initializes the session for that card.
// When absent, a new session is created seeded into Focused(cardHint) or
// Free for an empty hint.
func (s *SessionStore) GetOrCreate(learner, deckID, cardHint string, now time.Time) *Session {
	key := sessionKey{learner: learner, deck: deckID}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.cache.Get(key)
	switch {
	case !ok:
		sess = newSession(learner, deckID, cardHint, now)
	case cardHint != "" && sess.ActiveCardID != cardHint:
		sess = sess.Clone()
		sess.resetForCard(cardHint)
	default:
		sess = sess.Clone()
	}

	// Re-add so the TTL slides on every touch.
	s.cache.Add(key, sess)
	return sess.Clone()
}

// Get returns a copy of the session, or nil when absent or expired. A hit
// refreshes the TTL.
func (s *SessionStore) Get(learner, deckID string) *Session {
	key := sessionKey{learner: learner, deck: deckID}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	s.cache.Add(key, sess)
	return sess.Clone()
}

// Update replaces the stored session and refreshes its TTL.
func (s *SessionStore) Update(learner, deckID string, sess *Session) {
	key := sessionKey{learner: learner, deck: deckID}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(key, sess.Clone())
}

// Reset removes the session, forcing re-initialization on the next turn.
// Used after a grade is submitted outside the chat flow.
func (s *SessionStore) Reset(learner, deckID string) {
	key := sessionKey{learner: learner, deck: deckID}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(key)
}

// Clear drops all sessions.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
