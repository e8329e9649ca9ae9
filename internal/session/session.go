// Package session keeps per-conversation history in memory.
//
// History is a bounded FIFO of user/assistant exchanges: once a session
// exceeds the configured retention, the oldest exchanges fall off. Only
// rendered text leaves this package; the generation engine receives a
// session's history as one formatted string.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxHistory is how many exchanges a session retains by default.
// Two exchanges keep prompts small while covering the usual follow-up
// question.
const DefaultMaxHistory = 2

// Exchange is one completed user/assistant turn pair.
type Exchange struct {
	User      string
	Assistant string
}

// Store holds conversation history for active sessions. Safe for
// concurrent use by HTTP handlers.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]Exchange
	maxHistory int
}

// NewStore creates a session store retaining maxHistory exchanges per
// session. Zero retains nothing, making every query stateless; negative
// values fall back to DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory < 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{sessions: make(map[string][]Exchange), maxHistory: maxHistory}
}

// NewSession registers a new session and returns its ID.
func (s *Store) NewSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id
}

// AddExchange records one completed turn. Unknown session IDs are created
// on the fly so callers can bring their own identifiers.
func (s *Store) AddExchange(id, userMsg, assistantMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[id], Exchange{User: userMsg, Assistant: assistantMsg})
	if over := len(history) - s.maxHistory; over > 0 {
		history = history[over:]
	}
	s.sessions[id] = history
}

// History renders a session's retained exchanges oldest first, formatted
// for the generation engine. Returns "" for unknown or empty sessions.
func (s *Store) History(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exchanges := s.sessions[id]
	if len(exchanges) == 0 {
		return ""
	}
	parts := make([]string, len(exchanges))
	for i, ex := range exchanges {
		parts[i] = FormatExchange(ex.User, ex.Assistant)
	}
	return strings.Join(parts, "\n")
}

// Clear empties a session's history but keeps the session usable.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		s.sessions[id] = nil
	}
}

// FormatExchange renders one turn pair the way history is shown to the
// model.
func FormatExchange(userInput, assistantResponse string) string {
	return "User: " + userInput + "\nAssistant: " + assistantResponse
}
