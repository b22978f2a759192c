package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"gigchat/internal/errors"
	"gigchat/internal/models"
	"gigchat/internal/tracing"
)

// Client is the marketplace chat persistence collaborator. Paths are part
// of the wire contract and must match the backend exactly.
type Client interface {
	GetConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, out OutgoingMessage) (*models.Message, error)
}

// OutgoingMessage is the multipart payload for POST /messages/send. Media,
// when present, is the already-uploaded remote URL; the API never receives
// file bytes directly.
type OutgoingMessage struct {
	SenderID       string
	ConversationID string
	Text           string
	MediaURL       string
	MediaKind      models.MediaKind
}

type client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) Client {
	return &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *client) GetConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx, span := tracing.StartSpan(ctx, "api.GetConversations",
		attribute.String("user.id", userID))
	defer span.End()

	var conversations []models.Conversation
	path := "/conversations/" + url.PathEscape(userID)
	if err := c.getJSON(ctx, path, &conversations); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return conversations, nil
}

func (c *client) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "api.GetMessages",
		attribute.String("conversation.id", conversationID))
	defer span.End()

	var messages []models.Message
	path := "/messages/" + url.PathEscape(conversationID)
	if err := c.getJSON(ctx, path, &messages); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return messages, nil
}

func (c *client) SendMessage(ctx context.Context, out OutgoingMessage) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "api.SendMessage",
		attribute.String("conversation.id", out.ConversationID))
	defer span.End()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("senderId", out.SenderID); err != nil {
		return nil, fmt.Errorf("failed to write senderId field: %w", err)
	}
	if err := writer.WriteField("conversationId", out.ConversationID); err != nil {
		return nil, fmt.Errorf("failed to write conversationId field: %w", err)
	}
	if out.Text != "" {
		if err := writer.WriteField("text", out.Text); err != nil {
			return nil, fmt.Errorf("failed to write text field: %w", err)
		}
	}
	if out.MediaURL != "" {
		if err := writer.WriteField("media", out.MediaURL); err != nil {
			return nil, fmt.Errorf("failed to write media field: %w", err)
		}
		if err := writer.WriteField("mediaType", string(out.MediaKind)); err != nil {
			return nil, fmt.Errorf("failed to write mediaType field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages/send", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, errors.WrapRetryable(err, errors.ErrCodeAPIRequest, "send message request failed").
			WithUserMessage("Message could not be sent")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err := errors.New(errors.ErrCodeAPIRequest,
			fmt.Sprintf("send message failed with status %d", resp.StatusCode)).
			WithUserMessage("Message could not be sent")
		tracing.RecordError(ctx, err)
		return nil, err
	}

	var created models.Message
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode created message: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"conversation_id": out.ConversationID,
		"has_media":       out.MediaURL != "",
	}).Debug("Message persisted")

	return &created, nil
}

func (c *client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapRetryable(err, errors.ErrCodeAPIRequest, "request failed").
			WithUserMessage("Could not reach the chat service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return errors.New(errors.ErrCodeAPIRequest,
			fmt.Sprintf("request to %s failed with status %d", path, resp.StatusCode)).
			WithUserMessage("Could not reach the chat service")
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
