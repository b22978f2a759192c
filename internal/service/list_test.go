package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gigchat/internal/errors"
	"gigchat/internal/models"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) SaveConversations(ctx context.Context, userID string, conversations []models.Conversation) error {
	args := m.Called(ctx, userID, conversations)
	return args.Error(0)
}

func (m *mockCache) LoadConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func testConversations() []models.Conversation {
	return []models.Conversation{
		{
			ID:               "c1",
			OtherParticipant: models.Participant{ID: "u2", Username: "bob_builds"},
			LastMessage:      &models.MessageSummary{Text: "see you then"},
			UpdatedAt:        time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:               "c2",
			OtherParticipant: models.Participant{ID: "u3", Username: "carol.writes"},
			LastMessage:      &models.MessageSummary{MediaKind: models.MediaKindImage},
			UpdatedAt:        time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
		},
	}
}

func setupList(t *testing.T) (*ListService, *mockAPIClient, *mockCache) {
	t.Helper()
	client := new(mockAPIClient)
	cache := new(mockCache)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewListService("u1", client, cache, logger), client, cache
}

func TestListService_Load(t *testing.T) {
	list, client, cache := setupList(t)
	ctx := context.Background()

	conversations := testConversations()
	client.On("GetConversations", ctx, "u1").Return(conversations, nil)
	cache.On("SaveConversations", ctx, "u1", conversations).Return(nil)

	result, err := list.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, conversations, result)
	cache.AssertExpectations(t)
}

func TestListService_LoadFailureKeepsPreviousList(t *testing.T) {
	list, client, cache := setupList(t)
	ctx := context.Background()

	conversations := testConversations()
	client.On("GetConversations", ctx, "u1").Return(conversations, nil).Once()
	cache.On("SaveConversations", ctx, "u1", conversations).Return(nil).Once()
	_, err := list.Load(ctx)
	require.NoError(t, err)

	client.On("GetConversations", ctx, "u1").
		Return(nil, errors.New(errors.ErrCodeAPIRequest, "unreachable")).Once()
	_, err = list.Load(ctx)
	require.Error(t, err)

	assert.Len(t, list.Conversations(), 2, "a failed refresh must not wipe the shown list")
}

func TestListService_LoadCached(t *testing.T) {
	list, _, cache := setupList(t)
	ctx := context.Background()

	cache.On("LoadConversations", ctx, "u1").Return(testConversations(), nil)

	result := list.LoadCached(ctx)
	assert.Len(t, result, 2)
	assert.Len(t, list.Conversations(), 2)
}

func TestListService_LoadCachedErrorIsNotFatal(t *testing.T) {
	list, _, cache := setupList(t)
	ctx := context.Background()

	cache.On("LoadConversations", ctx, "u1").
		Return(nil, errors.New(errors.ErrCodeStoreQuery, "corrupt"))

	assert.Nil(t, list.LoadCached(ctx))
}

func TestListService_CacheSaveFailureIsNotFatal(t *testing.T) {
	list, client, cache := setupList(t)
	ctx := context.Background()

	conversations := testConversations()
	client.On("GetConversations", ctx, "u1").Return(conversations, nil)
	cache.On("SaveConversations", ctx, "u1", conversations).
		Return(errors.New(errors.ErrCodeStoreQuery, "disk full"))

	result, err := list.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestListService_Get(t *testing.T) {
	list, client, cache := setupList(t)
	ctx := context.Background()

	client.On("GetConversations", ctx, "u1").Return(testConversations(), nil)
	cache.On("SaveConversations", ctx, "u1", mock.Anything).Return(nil)
	_, err := list.Load(ctx)
	require.NoError(t, err)

	conv, ok := list.Get("c2")
	require.True(t, ok)
	assert.Equal(t, "carol.writes", conv.OtherParticipant.Username)

	_, ok = list.Get("nope")
	assert.False(t, ok)
}

func TestListService_ApplySeenUpdatesOnlyMatchingConversation(t *testing.T) {
	list, client, cache := setupList(t)
	ctx := context.Background()

	client.On("GetConversations", ctx, "u1").Return(testConversations(), nil)
	cache.On("SaveConversations", ctx, "u1", mock.Anything).Return(nil)
	_, err := list.Load(ctx)
	require.NoError(t, err)

	pushed := models.Message{
		ID:             "m9",
		ConversationID: "c2",
		SenderID:       "u3",
		Text:           "new draft attached",
		CreatedAt:      time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
	}
	assert.True(t, list.ApplySeen(pushed))

	current := list.Conversations()
	assert.Equal(t, "see you then", current[0].LastMessage.Text, "other conversations stay untouched")
	assert.Equal(t, "new draft attached", current[1].LastMessage.Text)
	assert.Equal(t, pushed.CreatedAt, current[1].UpdatedAt)
}

func TestListService_ApplySeenMediaMessage(t *testing.T) {
	list, client, cache := setupList(t)
	ctx := context.Background()

	client.On("GetConversations", ctx, "u1").Return(testConversations(), nil)
	cache.On("SaveConversations", ctx, "u1", mock.Anything).Return(nil)
	_, err := list.Load(ctx)
	require.NoError(t, err)

	pushed := models.Message{
		ID:             "m10",
		ConversationID: "c1",
		SenderID:       "u2",
		MediaURL:       "https://cdn.example.com/shot.png",
		MediaKind:      models.MediaKindImage,
		CreatedAt:      time.Now().UTC(),
	}
	require.True(t, list.ApplySeen(pushed))

	current := list.Conversations()
	assert.Empty(t, current[0].LastMessage.Text)
	assert.Equal(t, models.MediaKindImage, current[0].LastMessage.MediaKind)
}

func TestListService_ApplySeenUnknownConversation(t *testing.T) {
	list, _, _ := setupList(t)

	assert.False(t, list.ApplySeen(models.Message{ID: "m1", ConversationID: "ghost"}))
}
