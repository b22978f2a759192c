package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gigchat/internal/errors"
	"gigchat/internal/metrics"
	"gigchat/internal/models"
	"gigchat/pkg/api"
	"gigchat/pkg/upload"
)

type mockAPIClient struct {
	mock.Mock
}

func (m *mockAPIClient) GetConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *mockAPIClient) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockAPIClient) SendMessage(ctx context.Context, out api.OutgoingMessage) (*models.Message, error) {
	args := m.Called(ctx, out)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, path, contentType string, progress upload.ProgressFunc) (*models.UploadResult, error) {
	args := m.Called(ctx, path, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UploadResult), args.Error(1)
}

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) EmitMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func testConversation() models.Conversation {
	return models.Conversation{
		ID:               "c1",
		OtherParticipant: models.Participant{ID: "u2", Username: "bob_builds"},
	}
}

func setupThread(t *testing.T) (*Thread, *mockAPIClient, *mockUploader, *mockEmitter, *PresenceTracker) {
	t.Helper()
	client := new(mockAPIClient)
	uploader := new(mockUploader)
	emitter := new(mockEmitter)
	presence := NewPresenceTracker()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	thread := NewThread(testConversation(), "u1", client, uploader, emitter, presence, logger, metrics.NewRegistry())
	require.NotNil(t, thread)
	return thread, client, uploader, emitter, presence
}

func TestThread_Load(t *testing.T) {
	thread, client, _, _, _ := setupThread(t)
	ctx := context.Background()

	history := []models.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "u2", Text: "hello"},
		{ID: "m2", ConversationID: "c1", SenderID: "u1", Text: "hi"},
	}
	client.On("GetMessages", ctx, "c1").Return(history, nil)

	messages, err := thread.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, history, messages)
	assert.Equal(t, ThreadReady, thread.State())
}

func TestThread_LoadFailureStaysLoading(t *testing.T) {
	thread, client, _, _, _ := setupThread(t)
	ctx := context.Background()

	client.On("GetMessages", ctx, "c1").Return(nil, errors.New(errors.ErrCodeAPIRequest, "boom"))

	_, err := thread.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, ThreadLoading, thread.State())
	assert.Error(t, thread.LastError())
}

func TestThread_SendEmptyDraftRejectedBeforeNetwork(t *testing.T) {
	thread, client, uploader, _, _ := setupThread(t)

	_, err := thread.Send(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmptyMessage, errors.GetCode(err))

	client.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestThread_SendTextOnly(t *testing.T) {
	thread, client, _, emitter, _ := setupThread(t)
	ctx := context.Background()

	created := &models.Message{
		ID:             "m10",
		ConversationID: "c1",
		SenderID:       "u1",
		Text:           "Hello",
		CreatedAt:      time.Now().UTC(),
	}
	client.On("SendMessage", ctx, api.OutgoingMessage{
		SenderID:       "u1",
		ConversationID: "c1",
		Text:           "Hello",
	}).Return(created, nil)
	emitter.On("EmitMessage", ctx, *created).Return(nil)

	thread.SetText("Hello")
	msg, err := thread.Send(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "m10", msg.ID)

	// Appended exactly once and the draft was cleared.
	messages := thread.Messages()
	require.Len(t, messages, 1)
	assert.True(t, thread.Draft().Empty())

	client.AssertExpectations(t)
	emitter.AssertExpectations(t)
}

func TestThread_SendFailurePreservesDraft(t *testing.T) {
	thread, client, _, _, _ := setupThread(t)
	ctx := context.Background()

	client.On("SendMessage", ctx, mock.Anything).Return(nil, errors.New(errors.ErrCodeAPIRequest, "unreachable"))

	thread.SetText("Hello")
	_, err := thread.Send(ctx, nil)
	require.Error(t, err)

	assert.Equal(t, "Hello", thread.Draft().Text, "draft must survive a failed send")
	assert.Empty(t, thread.Messages())
	assert.Equal(t, ThreadReady, thread.State(), "a failed send must not leave the thread stuck sending")
}

func TestThread_SendAttachmentUploadsFirst(t *testing.T) {
	thread, client, uploader, emitter, _ := setupThread(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "mockup.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0600))

	uploader.On("Upload", ctx, path, "image/png").
		Return(&models.UploadResult{SecureURL: "https://cdn.example.com/mockup.png", PublicID: "mockup"}, nil)
	client.On("SendMessage", ctx, api.OutgoingMessage{
		SenderID:       "u1",
		ConversationID: "c1",
		MediaURL:       "https://cdn.example.com/mockup.png",
		MediaKind:      models.MediaKindImage,
	}).Return(&models.Message{ID: "m11", ConversationID: "c1", SenderID: "u1",
		MediaURL: "https://cdn.example.com/mockup.png", MediaKind: models.MediaKindImage}, nil)
	emitter.On("EmitMessage", ctx, mock.Anything).Return(nil)

	require.NoError(t, thread.Attach(path, "image/png"))
	_, err := thread.Send(ctx, nil)
	require.NoError(t, err)

	uploader.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestThread_SendUploadFailureSkipsAPI(t *testing.T) {
	thread, client, uploader, _, _ := setupThread(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "big.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0600))

	uploader.On("Upload", ctx, path, "video/mp4").
		Return(nil, errors.New(errors.ErrCodeMediaTooLarge, "too large"))

	require.NoError(t, thread.Attach(path, "video/mp4"))
	_, err := thread.Send(ctx, nil)
	require.Error(t, err)

	client.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	assert.Equal(t, path, thread.Draft().AttachmentPath)
}

func TestThread_AttachmentWinsOverClip(t *testing.T) {
	thread, client, uploader, emitter, _ := setupThread(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "brief.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0600))

	uploader.On("Upload", ctx, path, "application/pdf").
		Return(&models.UploadResult{URL: "http://cdn.example.com/brief.pdf", PublicID: "brief"}, nil)
	client.On("SendMessage", ctx, mock.MatchedBy(func(out api.OutgoingMessage) bool {
		return out.MediaKind == models.MediaKindDocument
	})).Return(&models.Message{ID: "m12", ConversationID: "c1", SenderID: "u1"}, nil)
	emitter.On("EmitMessage", ctx, mock.Anything).Return(nil)

	clip := &Clip{SampleRate: 16000, Data: make([]byte, 3200)}
	thread.SetClip(clip)
	require.NoError(t, thread.Attach(path, "application/pdf"))

	_, err := thread.Send(ctx, nil)
	require.NoError(t, err)

	// Only the attachment was uploaded; the clip waits for the next send.
	uploader.AssertNumberOfCalls(t, "Upload", 1)
	assert.Same(t, clip, thread.Draft().Clip)
	assert.Empty(t, thread.Draft().AttachmentPath)
}

func TestThread_SendClipUploadsWAV(t *testing.T) {
	thread, client, uploader, emitter, _ := setupThread(t)
	ctx := context.Background()

	uploader.On("Upload", ctx, mock.MatchedBy(func(path string) bool {
		return filepath.Ext(path) == ".wav"
	}), "audio/wav").Return(&models.UploadResult{SecureURL: "https://cdn.example.com/v.wav", PublicID: "v"}, nil)
	client.On("SendMessage", ctx, mock.MatchedBy(func(out api.OutgoingMessage) bool {
		return out.MediaKind == models.MediaKindAudio && out.MediaURL == "https://cdn.example.com/v.wav"
	})).Return(&models.Message{ID: "m13", ConversationID: "c1", SenderID: "u1",
		MediaURL: "https://cdn.example.com/v.wav", MediaKind: models.MediaKindAudio}, nil)
	emitter.On("EmitMessage", ctx, mock.Anything).Return(nil)

	thread.SetClip(&Clip{SampleRate: 16000, Data: make([]byte, 1600)})
	_, err := thread.Send(ctx, nil)
	require.NoError(t, err)

	assert.Nil(t, thread.Draft().Clip, "a sent clip must not linger in the draft")
	uploader.AssertExpectations(t)
}

func TestThread_EmitFailureDoesNotFailSend(t *testing.T) {
	thread, client, _, emitter, _ := setupThread(t)
	ctx := context.Background()

	created := &models.Message{ID: "m14", ConversationID: "c1", SenderID: "u1", Text: "hi"}
	client.On("SendMessage", ctx, mock.Anything).Return(created, nil)
	emitter.On("EmitMessage", ctx, *created).
		Return(errors.New(errors.ErrCodeChannelClosed, "channel down"))

	thread.SetText("hi")
	msg, err := thread.Send(ctx, nil)
	require.NoError(t, err, "emit failures are logged, not surfaced")
	assert.Equal(t, "m14", msg.ID)
	assert.Len(t, thread.Messages(), 1)
}

func TestThread_AppendDeduplicatesByID(t *testing.T) {
	thread, _, _, _, _ := setupThread(t)

	msg := models.Message{ID: "m1", ConversationID: "c1", SenderID: "u2", Text: "hello"}
	assert.True(t, thread.Append(msg))
	assert.False(t, thread.Append(msg), "a message id is appended at most once")
	assert.Len(t, thread.Messages(), 1)

	// A later message keeps append order.
	assert.True(t, thread.Append(models.Message{ID: "m2", ConversationID: "c1", SenderID: "u1"}))
	messages := thread.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)
}

func TestThread_AttachRejectsTraversal(t *testing.T) {
	thread, _, _, _, _ := setupThread(t)

	err := thread.Attach("../../etc/passwd", "text/plain")
	require.Error(t, err)
	assert.Empty(t, thread.Draft().AttachmentPath)
}

func TestThread_OtherOnlineDefaultsOffline(t *testing.T) {
	thread, _, _, _, presence := setupThread(t)

	assert.False(t, thread.OtherOnline())
	presence.Set("u2", true)
	assert.True(t, thread.OtherOnline())
	presence.Reset()
	assert.False(t, thread.OtherOnline(), "presence resets to offline when the channel drops")
}

func TestThread_IsOwn(t *testing.T) {
	thread, _, _, _, _ := setupThread(t)

	assert.True(t, thread.IsOwn(models.Message{SenderID: "u1"}))
	assert.False(t, thread.IsOwn(models.Message{SenderID: "u2"}))
}
