package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"bookswap/internal/notifications"
	"bookswap/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the test app on a loopback port and returns its address.
func (e *testEnv) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.ShutdownWithTimeout(2 * time.Second) })
	return ln.Addr().String()
}

func TestWebsocket_DeliversRequestNotification(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "owner", 0, 100)
	reader := testutil.CreateProfile(t, env.db, "reader", 100, 100)
	book := testutil.CreateBook(t, env.db, owner, "Middlemarch", 30)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.srv.hub.StartWiring(ctx, env.srv.notifier))

	addr := env.listen(t)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, signToken(t, owner.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[map[string]any](t, resp)["ticket"].(string)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws?ticket="+ticket, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return env.srv.hub.IsOnline(owner.ID) }, 2*time.Second, 10*time.Millisecond)

	resp = env.do(t, http.MethodPost, "/api/requests", CreateRequestRequest{BookID: book.ID}, signToken(t, reader.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string `json:"type"`
		Payload struct {
			Message string `json:"message"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, notifications.EventNotification, event.Type)
	assert.Contains(t, event.Payload.Message, "Middlemarch")
}

func TestWebsocket_RejectsReusedTicket(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateProfile(t, env.db, "listener", 0, 100)
	addr := env.listen(t)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, signToken(t, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[map[string]any](t, resp)["ticket"].(string)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws?ticket="+ticket, nil)
	require.NoError(t, err)
	_ = conn.Close()

	_, upgrade, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws?ticket="+ticket, nil)
	require.Error(t, err)
	require.NotNil(t, upgrade)
	defer func() { _ = upgrade.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, upgrade.StatusCode)
}
