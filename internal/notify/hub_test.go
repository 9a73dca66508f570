package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/voxkey/voxkey/internal/settings"
)

// dialTestHub upgrades one client against an in-process hub endpoint.
func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		require.NoError(t, err)
		hub.Attach(conn)
		return nil
	})
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(payload, &envelope))
	return envelope
}

func TestHubBroadcastReachesSubscribedContexts(t *testing.T) {
	hub := NewHub(nil)
	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)

	require.Equal(t, MessageTypeHello, readEnvelope(t, first).Type)
	require.Equal(t, MessageTypeHello, readEnvelope(t, second).Type)
	require.Equal(t, 2, hub.Count())

	snapshot := settings.Default()
	snapshot.Language = "pt-BR"
	results := hub.Broadcast(context.Background(), snapshot)
	require.Len(t, results, 2)
	for _, result := range results {
		require.True(t, result.OK)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		envelope := readEnvelope(t, conn)
		require.Equal(t, MessageTypeSettings, envelope.Type)
		require.Equal(t, "pt-BR", envelope.Settings[settings.KeyLanguage])
		require.NotEmpty(t, envelope.MessageID)
	}
}

func TestHubIsolatesDroppedContext(t *testing.T) {
	hub := NewHub(nil)
	stale := dialTestHub(t, hub)
	alive := dialTestHub(t, hub)

	readEnvelope(t, stale)
	readEnvelope(t, alive)

	// Simulate a context that navigated away without unsubscribing.
	require.NoError(t, stale.Close())

	var sawFailure, sawSuccess bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sawFailure, sawSuccess = false, false
		for _, result := range hub.Broadcast(context.Background(), settings.Default()) {
			if result.OK {
				sawSuccess = true
			} else {
				sawFailure = true
			}
		}
		if hub.Count() == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	_ = sawFailure // a torn-down socket may fail the write or already be dropped
	require.True(t, sawSuccess)
	require.Equal(t, 1, hub.Count())

	// The surviving context still receives the snapshot.
	envelope := readEnvelope(t, alive)
	require.Equal(t, MessageTypeSettings, envelope.Type)
}

func TestServerHealthz(t *testing.T) {
	hub := NewHub(nil)
	server := NewServer(hub, func() settings.Settings { return settings.Default() }, nil)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	server.echo.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestServerSendsSnapshotOnSubscribe(t *testing.T) {
	hub := NewHub(nil)
	snapshot := settings.Default()
	snapshot.Language = "nl-NL"
	server := NewServer(hub, func() settings.Settings { return snapshot }, nil)

	ts := httptest.NewServer(server.echo)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Equal(t, MessageTypeHello, readEnvelope(t, conn).Type)
	envelope := readEnvelope(t, conn)
	require.Equal(t, MessageTypeSettings, envelope.Type)
	require.Equal(t, "nl-NL", envelope.Settings[settings.KeyLanguage])
}
