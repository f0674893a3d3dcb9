package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, hub *Hub) *httptest.Server {
	e := echo.New()
	e.GET("/feed", hub.Handle)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dialFeed(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	srv := newFeedServer(t, hub)

	first := dialFeed(t, srv)
	second := dialFeed(t, srv)
	waitForClients(t, hub, 2)

	sent := Event{Table: "orders", Type: EventUpdate, ID: "abc"}
	hub.Broadcast(sent)

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got Event
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, sent, got)
	}
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	hub := NewHub()
	srv := newFeedServer(t, hub)

	conn := dialFeed(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// broadcasting into an empty hub is a no-op
	hub.Broadcast(Event{Table: "orders", Type: EventDelete, ID: "gone"})
}

func TestHandleRejectsPlainHTTP(t *testing.T) {
	hub := NewHub()
	srv := newFeedServer(t, hub)

	resp, err := http.Get(srv.URL + "/feed")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
