package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/kidwatch/backend/internal/model/chat"
)

var (
	ErrGuardianRequired = errors.New("guardian id is required")
	ErrSessionNotFound  = errors.New("session not found")
)

// Service encapsulates conversation state management. It is the storage
// collaborator the safety pipeline reads context from and writes turns to.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewService bootstraps the in-memory chat service suitable for early iterations.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession provisions a session binding a child to the guardian who
// receives its alerts.
func (s *Service) CreateSession(_ context.Context, childID, guardianID string, childAge int) (chat.Session, error) {
	if guardianID == "" {
		return chat.Session{}, ErrGuardianRequired
	}

	session := chat.Session{
		ID:         uuid.NewString(),
		ChildID:    childID,
		GuardianID: guardianID,
		ChildAge:   childAge,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// RecentMessages returns up to n most recent messages for the session, oldest
// first, which is the order the classifier expects its context in.
func (s *Service) RecentMessages(_ context.Context, sessionID string, n int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	start := len(messages) - n
	if n <= 0 || start < 0 {
		start = 0
	}

	copied := make([]chat.Message, len(messages)-start)
	copy(copied, messages[start:])
	return copied, nil
}

// LoadTranscript returns all stored messages for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.RecentMessages(ctx, sessionID, 0)
}
