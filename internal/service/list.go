package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"gigchat/internal/models"
	"gigchat/internal/privacy"
	"gigchat/pkg/api"
)

// ConversationCache is the subset of the local store the list uses to paint
// instantly on startup and to survive offline starts.
type ConversationCache interface {
	SaveConversations(ctx context.Context, userID string, conversations []models.Conversation) error
	LoadConversations(ctx context.Context, userID string) ([]models.Conversation, error)
}

// ListService owns the ordered set of conversations for the session user.
// It fetches from the persistence collaborator and applies live
// message-seen updates pushed over the realtime channel.
type ListService struct {
	userID string
	client api.Client
	cache  ConversationCache
	logger *logrus.Logger

	mu            sync.RWMutex
	conversations []models.Conversation
}

// NewListService creates a list service for the given user. cache may be
// nil, in which case nothing is persisted between runs.
func NewListService(userID string, client api.Client, cache ConversationCache, logger *logrus.Logger) *ListService {
	return &ListService{
		userID: userID,
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// LoadCached populates the list from the local cache without touching the
// network. Missing or empty cache is not an error.
func (s *ListService) LoadCached(ctx context.Context) []models.Conversation {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.LoadConversations(ctx, s.userID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load cached conversations")
		return nil
	}

	s.mu.Lock()
	if len(s.conversations) == 0 {
		s.conversations = cached
	}
	result := s.snapshotLocked()
	s.mu.Unlock()
	return result
}

// Load fetches the ordered conversation set from the collaborator. On
// failure the previous in-memory list is kept so a retry has something to
// render; the error is surfaced for a manual retry action.
func (s *ListService) Load(ctx context.Context) ([]models.Conversation, error) {
	conversations, err := s.client.GetConversations(ctx, s.userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conversations = conversations
	result := s.snapshotLocked()
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveConversations(ctx, s.userID, conversations); err != nil {
			s.logger.WithError(err).Warn("Failed to cache conversations")
		}
	}

	return result, nil
}

// Conversations returns a copy of the current ordered list.
func (s *ListService) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the conversation with the given id.
func (s *ListService) Get(conversationID string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conv := range s.conversations {
		if conv.ID == conversationID {
			return conv, true
		}
	}
	return models.Conversation{}, false
}

// ApplySeen folds a pushed message into the matching conversation's
// last-message summary. Conversations other than the event's are left
// untouched. Returns true if a tracked conversation was updated.
func (s *ListService) ApplySeen(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.conversations {
		if s.conversations[i].ID != msg.ConversationID {
			continue
		}
		summary := msg.Summary()
		s.conversations[i].LastMessage = &summary
		s.conversations[i].UpdatedAt = msg.CreatedAt
		s.logger.WithField("conversation_id", privacy.MaskID(msg.ConversationID)).
			Debug("Conversation preview updated from seen event")
		return true
	}
	return false
}

func (s *ListService) snapshotLocked() []models.Conversation {
	out := make([]models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}
