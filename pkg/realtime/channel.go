package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"gigchat/internal/constants"
	"gigchat/internal/errors"
	"gigchat/internal/models"
)

// Channel is the single bidirectional realtime connection for a session.
// It emits join on connect, carries outbound sendMessage events, and
// dispatches inbound onlineStatus and messageSeen events to registered
// handlers. A dropped channel is not redialed automatically; the owner
// decides when (and whether) to call Connect again.
type Channel struct {
	url    string
	userID string
	logger *logrus.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	connected bool

	handlersMu   sync.RWMutex
	onOnline     func(models.OnlineStatusEvent)
	onSeen       func(models.Message)
	onDisconnect func(error)

	wg sync.WaitGroup
}

// NewChannel creates a channel for the given endpoint and user. Nothing is
// dialed until Connect.
func NewChannel(url, userID string, logger *logrus.Logger) *Channel {
	return &Channel{
		url:    url,
		userID: userID,
		logger: logger,
	}
}

// OnOnlineStatus registers the handler for inbound presence events.
func (c *Channel) OnOnlineStatus(fn func(models.OnlineStatusEvent)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onOnline = fn
}

// OnMessageSeen registers the handler for inbound message-seen events.
func (c *Channel) OnMessageSeen(fn func(models.Message)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onSeen = fn
}

// OnDisconnect registers the handler invoked once when the read loop ends.
func (c *Channel) OnDisconnect(fn func(error)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onDisconnect = fn
}

// Connect dials the endpoint, emits the join event scoped to the session
// user, and starts the read loop. Calling Connect on an already-connected
// channel is an error.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return fmt.Errorf("channel is already connected")
	}

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeChannelClosed, "failed to dial realtime channel")
	}

	join, err := models.NewEnvelope(constants.EventJoin, models.JoinEvent{UserID: c.userID})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "join encode failed")
		return fmt.Errorf("failed to encode join event: %w", err)
	}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		conn.Close(websocket.StatusInternalError, "join write failed")
		return errors.Wrap(err, errors.ErrCodeChannelClosed, "failed to emit join event")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.connected = true

	c.wg.Add(1)
	go c.readLoop(loopCtx, conn)

	c.logger.WithField("user_id", c.userID).Info("Realtime channel connected")
	return nil
}

// EmitMessage sends a constructed message over the channel so the remote
// peer receives it without a fetch round-trip.
func (c *Channel) EmitMessage(ctx context.Context, msg models.Message) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return errors.New(errors.ErrCodeChannelClosed, "realtime channel is not connected")
	}

	env, err := models.NewEnvelope(constants.EventSendMessage, msg)
	if err != nil {
		return fmt.Errorf("failed to encode message event: %w", err)
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return errors.Wrap(err, errors.ErrCodeChannelClosed, "failed to emit message event")
	}
	return nil
}

// IsConnected reports whether the channel currently has a live connection.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the channel down unconditionally and waits for the read loop
// to exit. Safe to call on a channel that never connected.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.connected = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client shutdown")
	}
	c.wg.Wait()
	return nil
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		var env models.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			c.mu.Lock()
			wasConnected := c.connected
			c.connected = false
			c.mu.Unlock()

			if wasConnected {
				c.logger.WithError(err).Warn("Realtime channel closed")
				c.handlersMu.RLock()
				fn := c.onDisconnect
				c.handlersMu.RUnlock()
				if fn != nil {
					fn(err)
				}
			}
			return
		}

		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env models.Envelope) {
	switch env.Event {
	case constants.EventOnlineStatus:
		var event models.OnlineStatusEvent
		if err := json.Unmarshal(env.Data, &event); err != nil {
			c.logger.WithError(err).Warn("Malformed onlineStatus event")
			return
		}
		c.handlersMu.RLock()
		fn := c.onOnline
		c.handlersMu.RUnlock()
		if fn != nil {
			fn(event)
		}
	case constants.EventMessageSeen:
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.logger.WithError(err).Warn("Malformed messageSeen event")
			return
		}
		c.handlersMu.RLock()
		fn := c.onSeen
		c.handlersMu.RUnlock()
		if fn != nil {
			fn(msg)
		}
	default:
		c.logger.WithField("event", env.Event).Debug("Ignoring unknown channel event")
	}
}
