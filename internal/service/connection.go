package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"gigchat/internal/models"
	"gigchat/pkg/realtime"
)

// Event is a realtime update surfaced to the presentation layer.
type Event interface{ realtimeEvent() }

// PresenceChanged reports another user's online/offline transition.
type PresenceChanged struct {
	UserID string
	Online bool
}

// ConversationUpdated reports that a conversation's last-message preview
// changed from a pushed seen event.
type ConversationUpdated struct {
	ConversationID string
	Message        models.Message
}

// ChannelDown reports that the realtime channel dropped. Presence is stale
// from this point until a manual reconnect.
type ChannelDown struct {
	Err error
}

func (PresenceChanged) realtimeEvent()     {}
func (ConversationUpdated) realtimeEvent() {}
func (ChannelDown) realtimeEvent()         {}

// ConnectionManager owns the session's realtime channel for its lifetime.
// It is the only writer of presence state and the bridge between channel
// events and the conversation list.
type ConnectionManager struct {
	channel  *realtime.Channel
	presence *PresenceTracker
	list     *ListService
	logger   *logrus.Logger
	events   chan Event
}

// NewConnectionManager wires the channel to the presence tracker and the
// conversation list.
func NewConnectionManager(channel *realtime.Channel, presence *PresenceTracker, list *ListService, logger *logrus.Logger) *ConnectionManager {
	return &ConnectionManager{
		channel:  channel,
		presence: presence,
		list:     list,
		logger:   logger,
		events:   make(chan Event, 64),
	}
}

// Start connects the channel and registers the event subscriptions. A
// connection failure is returned to the caller; presence simply stays at
// its offline default and the rest of the client keeps working over REST.
func (m *ConnectionManager) Start(ctx context.Context) error {
	m.channel.OnOnlineStatus(func(event models.OnlineStatusEvent) {
		m.presence.Set(event.UserID, event.Status)
		m.publish(PresenceChanged{UserID: event.UserID, Online: event.Status})
	})

	m.channel.OnMessageSeen(func(msg models.Message) {
		if m.list.ApplySeen(msg) {
			m.publish(ConversationUpdated{ConversationID: msg.ConversationID, Message: msg})
		}
	})

	m.channel.OnDisconnect(func(err error) {
		m.presence.Reset()
		m.publish(ChannelDown{Err: err})
	})

	return m.channel.Connect(ctx)
}

// Reconnect re-dials after a drop. Only ever invoked from an explicit user
// action; the manager never retries on its own.
func (m *ConnectionManager) Reconnect(ctx context.Context) error {
	m.channel.Close()
	return m.channel.Connect(ctx)
}

// Events is the stream of realtime updates for the presentation layer.
func (m *ConnectionManager) Events() <-chan Event {
	return m.events
}

// Presence exposes the tracker for read access by views.
func (m *ConnectionManager) Presence() *PresenceTracker {
	return m.presence
}

// EmitMessage forwards a locally-persisted message to the remote peer.
func (m *ConnectionManager) EmitMessage(ctx context.Context, msg models.Message) error {
	return m.channel.EmitMessage(ctx, msg)
}

// Connected reports whether the channel is currently up.
func (m *ConnectionManager) Connected() bool {
	return m.channel.IsConnected()
}

// Close tears the channel down unconditionally.
func (m *ConnectionManager) Close() {
	m.channel.Close()
}

// publish never blocks the channel read loop; if the UI falls behind, the
// oldest updates are dropped and the next full refresh reconciles.
func (m *ConnectionManager) publish(event Event) {
	select {
	case m.events <- event:
	default:
		m.logger.Debug("Dropping realtime event, consumer is behind")
	}
}
