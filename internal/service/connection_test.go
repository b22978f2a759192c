package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigchat/internal/constants"
	"gigchat/internal/models"
	"gigchat/pkg/realtime"
)

// connHarness is a websocket endpoint that keeps every accepted connection
// so tests can push events and drop the link at will.
type connHarness struct {
	server   *httptest.Server
	accepted chan *websocket.Conn
}

func newConnHarness(t *testing.T) *connHarness {
	h := &connHarness{accepted: make(chan *websocket.Conn, 4)}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		// Consume the join frame before handing the connection to the test.
		var env models.Envelope
		if err := wsjson.Read(r.Context(), conn, &env); err != nil {
			return
		}
		h.accepted <- conn

		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(h.server.Close)
	return h
}

func (h *connHarness) conn(t *testing.T) *websocket.Conn {
	select {
	case conn := <-h.accepted:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
		return nil
	}
}

func (h *connHarness) push(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	env, err := models.NewEnvelope(event, payload)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(context.Background(), conn, env))
}

func setupConnectionManager(t *testing.T) (*ConnectionManager, *connHarness, *PresenceTracker) {
	t.Helper()
	h := newConnHarness(t)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	channel := realtime.NewChannel(url, "u1", logger)
	presence := NewPresenceTracker()
	list := NewListService("u1", new(mockAPIClient), nil, logger)

	manager := NewConnectionManager(channel, presence, list, logger)
	t.Cleanup(manager.Close)
	return manager, h, presence
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime event arrived")
		return nil
	}
}

func TestConnectionManager_StartDispatchesPresence(t *testing.T) {
	manager, h, presence := setupConnectionManager(t)

	require.NoError(t, manager.Start(context.Background()))
	conn := h.conn(t)

	h.push(t, conn, constants.EventOnlineStatus, models.OnlineStatusEvent{UserID: "u2", Status: true})

	event := waitEvent(t, manager.Events())
	changed, ok := event.(PresenceChanged)
	require.True(t, ok, "expected a PresenceChanged event, got %T", event)
	assert.Equal(t, "u2", changed.UserID)
	assert.True(t, changed.Online)
	assert.True(t, presence.IsOnline("u2"))
}

func TestConnectionManager_DropResetsPresence(t *testing.T) {
	manager, h, presence := setupConnectionManager(t)

	require.NoError(t, manager.Start(context.Background()))
	conn := h.conn(t)

	h.push(t, conn, constants.EventOnlineStatus, models.OnlineStatusEvent{UserID: "u2", Status: true})
	waitEvent(t, manager.Events())

	conn.Close(websocket.StatusGoingAway, "server restart")

	event := waitEvent(t, manager.Events())
	_, ok := event.(ChannelDown)
	require.True(t, ok, "expected a ChannelDown event, got %T", event)
	assert.False(t, presence.IsOnline("u2"), "presence must reset to offline on a drop")
	assert.Eventually(t, func() bool { return !manager.Connected() }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_ReconnectAfterDrop(t *testing.T) {
	manager, h, presence := setupConnectionManager(t)

	require.NoError(t, manager.Start(context.Background()))
	conn := h.conn(t)
	conn.Close(websocket.StatusGoingAway, "server restart")

	event := waitEvent(t, manager.Events())
	_, ok := event.(ChannelDown)
	require.True(t, ok, "expected a ChannelDown event, got %T", event)
	assert.Eventually(t, func() bool { return !manager.Connected() }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, manager.Reconnect(context.Background()))
	assert.True(t, manager.Connected())

	// Presence events flow again over the new connection.
	fresh := h.conn(t)
	h.push(t, fresh, constants.EventOnlineStatus, models.OnlineStatusEvent{UserID: "u3", Status: true})
	waitEvent(t, manager.Events())
	assert.True(t, presence.IsOnline("u3"))
}
