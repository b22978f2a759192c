package main

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"gigchat/internal/constants"
	"gigchat/internal/models"
)

// hub tracks the connected websocket clients by user id and fans presence
// changes out to everyone else.
type hub struct {
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

func newHub(logger *logrus.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[string]*websocket.Conn),
	}
}

// join registers a connection, tells the newcomer who is already online,
// and broadcasts the newcomer's presence to everyone else.
func (h *hub) join(ctx context.Context, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		old.Close(websocket.StatusPolicyViolation, "replaced by a newer session")
	}
	h.clients[userID] = conn
	online := make([]string, 0, len(h.clients))
	for id := range h.clients {
		if id != userID {
			online = append(online, id)
		}
	}
	h.mu.Unlock()

	for _, id := range online {
		h.sendTo(ctx, userID, constants.EventOnlineStatus, models.OnlineStatusEvent{UserID: id, Status: true})
	}
	h.broadcast(ctx, userID, constants.EventOnlineStatus, models.OnlineStatusEvent{UserID: userID, Status: true})
	h.logger.WithField("user_id", userID).Info("Client joined")
}

// leave drops the connection and broadcasts the user going offline.
func (h *hub) leave(ctx context.Context, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.clients[userID]; ok && current == conn {
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	h.broadcast(ctx, userID, constants.EventOnlineStatus, models.OnlineStatusEvent{UserID: userID, Status: false})
	h.logger.WithField("user_id", userID).Info("Client left")
}

// deliver forwards a message to its recipient as a messageSeen event.
func (h *hub) deliver(ctx context.Context, recipientID string, msg models.Message) {
	h.sendTo(ctx, recipientID, constants.EventMessageSeen, msg)
}

func (h *hub) sendTo(ctx context.Context, userID, event string, data interface{}) {
	h.mu.Lock()
	conn, ok := h.clients[userID]
	h.mu.Unlock()
	if !ok {
		return
	}

	env, err := models.NewEnvelope(event, data)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode event")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, env); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to deliver event")
	}
}

func (h *hub) broadcast(ctx context.Context, exceptUserID, event string, data interface{}) {
	h.mu.Lock()
	targets := make([]string, 0, len(h.clients))
	for id := range h.clients {
		if id != exceptUserID {
			targets = append(targets, id)
		}
	}
	h.mu.Unlock()

	for _, id := range targets {
		h.sendTo(ctx, id, event, data)
	}
}
