package models

import (
	"path"
	"strings"
	"time"
)

// MediaKind classifies a message attachment. It selects both the renderer
// used for the message and the size bucket enforced by the upload pipeline.
type MediaKind string

const (
	MediaKindNone     MediaKind = ""
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindAudio    MediaKind = "audio"
	MediaKindDocument MediaKind = "document"
)

// Participant is one side of a conversation as embedded in API responses.
type Participant struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar,omitempty"`
}

// MessageSummary is the denormalized last-message preview carried by a
// conversation. Exactly one of Text or MediaKind is meaningful; an empty
// summary means the conversation has no messages yet.
type MessageSummary struct {
	Text      string    `json:"text,omitempty"`
	MediaKind MediaKind `json:"mediaType,omitempty"`
}

// Conversation is a persistent two-party thread. The backend embeds the
// other participant and the last-message summary so the list view needs no
// further lookups.
type Conversation struct {
	ID               string          `json:"_id"`
	OtherParticipant Participant     `json:"otherParticipant"`
	LastMessage      *MessageSummary `json:"lastMessage,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt,omitempty"`
}

// Message is one immutable unit of communication within a conversation.
// Messages are append-only on the client: once added to a thread they are
// never reordered or deleted.
type Message struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Text           string    `json:"text,omitempty"`
	MediaURL       string    `json:"media,omitempty"`
	MediaKind      MediaKind `json:"mediaType,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasMedia reports whether the message carries an attachment.
func (m *Message) HasMedia() bool {
	return m.MediaURL != ""
}

// Kind returns the effective media kind. Messages whose mediaType was not
// set by the sender are classified by the URL's file extension, so the
// renderer and the playback controls always agree.
func (m *Message) Kind() MediaKind {
	if m.MediaKind != MediaKindNone {
		return m.MediaKind
	}
	if !m.HasMedia() {
		return MediaKindNone
	}
	name := m.MediaURL
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}
	return KindFromExtension(strings.TrimPrefix(path.Ext(name), "."))
}

// Summary folds the message into the denormalized preview form used by
// conversation lists.
func (m *Message) Summary() MessageSummary {
	if m.HasMedia() {
		return MessageSummary{MediaKind: m.MediaKind}
	}
	return MessageSummary{Text: m.Text}
}
