package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/coreman2200/ledfix/internal/diagnostics"
)

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(8)
	mux := http.NewServeMux()
	h.Routes(mux)
	srv := httptest.NewServer(WithCORS(mux))
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func next(t *testing.T, h *Hub) Inbound {
	t.Helper()
	select {
	case in := <-h.Inbound():
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound work")
	}
	return Inbound{}
}

func TestCommandsReachInbound(t *testing.T) {
	h, srv := newServer(t)
	c := dial(t, srv, "/ws")

	conn := next(t, h)
	assert.True(t, conn.Connect)
	assert.Equal(t, 1, h.ClientCount())

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"bri":128}`)))
	in := next(t, h)
	assert.False(t, in.Connect)
	assert.Equal(t, conn.Client, in.Client)
	assert.JSONEq(t, `{"bri":128}`, string(in.Data))
}

func TestPushes(t *testing.T) {
	h, srv := newServer(t)
	c := dial(t, srv, "/ws")
	conn := next(t, h)

	require.NoError(t, h.SendTo(conn.Client, []byte(`{"model":[]}`)))
	h.SendJSON([]byte(`{"bri":{"value":1}}`))
	h.BroadcastBinary([]byte{1, 8, 8, 1, 16})

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"model":[]}`, string(data))

	_, data, err = c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bri":{"value":1}}`, string(data))

	kind, data, err = c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, []byte{1, 8, 8, 1, 16}, data)

	assert.ErrorIs(t, h.SendTo(999, nil), ErrNoClient)
}

func TestDiagPush(t *testing.T) {
	h, srv := newServer(t)
	c := dial(t, srv, "/diag")

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.diagClients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.PushDiag(diag.Diagnostic{Severity: diag.Warn, Code: diag.LookupMiss, Summary: "variable not found"})
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var d diag.Diagnostic
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, diag.LookupMiss, d.Code)
}

func TestHandleJSON(t *testing.T) {
	h, srv := newServer(t)
	go func() {
		in := <-h.Inbound()
		in.Reply <- []byte(`{"diagnostics":[]}`)
	}()

	resp, err := http.Post(srv.URL+"/json", "application/json", strings.NewReader(`{"bri":5}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "diagnostics")

	get, err := http.Get(srv.URL + "/json")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestHealth(t *testing.T) {
	h, srv := newServer(t)
	h.Status = func() map[string]any { return map[string]any{"fps": 40} }

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0.0, body["clients"])
	assert.Equal(t, 40.0, body["fps"])
	assert.Contains(t, body, "uptime_s")
}
