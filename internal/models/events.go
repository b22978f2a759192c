package models

import "encoding/json"

// Envelope is the framing for every event exchanged over the realtime
// channel: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into a wire envelope.
func NewEnvelope(event string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}

// JoinEvent is emitted once after the channel opens, scoping the connection
// to the current user.
type JoinEvent struct {
	UserID string `json:"userId"`
}

// OnlineStatusEvent propagates another user's transient presence. Presence
// is held only in memory and is invalidated when the channel drops.
type OnlineStatusEvent struct {
	UserID string `json:"userId"`
	Status bool   `json:"status"`
}

// A messageSeen event carries a full Message (with its conversationId) and
// drives the conversation list's last-message preview update; no dedicated
// payload type is needed beyond Message.
