package assistant

import (
	"sync"

	"github.com/NguyenVanDuc36/AffiliHub/internal/llm"
)

// DefaultHistoryLimit caps how many messages a session keeps.
const DefaultHistoryLimit = 20

// ConversationStore keeps per-session chat history in memory. It is built
// once at startup and handed to the Service.
type ConversationStore struct {
	mu       sync.RWMutex
	sessions map[string][]llm.ChatMessage
	limit    int
}

// NewConversationStore keeps at most limit messages per session; older
// ones are dropped first. limit <= 0 uses DefaultHistoryLimit.
func NewConversationStore(limit int) *ConversationStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ConversationStore{
		sessions: make(map[string][]llm.ChatMessage),
		limit:    limit,
	}
}

func (s *ConversationStore) Append(sessionID string, msgs ...llm.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], msgs...)
	if over := len(history) - s.limit; over > 0 {
		history = append([]llm.ChatMessage(nil), history[over:]...)
	}
	s.sessions[sessionID] = history
}

// History returns a copy of the session's messages, oldest first.
func (s *ConversationStore) History(sessionID string) []llm.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]llm.ChatMessage(nil), s.sessions[sessionID]...)
}

func (s *ConversationStore) Reset(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
