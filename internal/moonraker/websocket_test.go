package moonraker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fkcurrie/klipper-led-golang/internal/types"
)

type wsRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     int64           `json:"id"`
}

// newWebsocketStub answers each request with replies[method]. A method without a reply is never answered.
// Callers close the server before checking for leaks.
func newWebsocketStub(t *testing.T, replies map[string]string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		notification := `{"jsonrpc": "2.0", "method": "notify_proc_stat_update", "params": [{}]}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(notification)); err != nil {
			return
		}

		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			reply, ok := replies[req.Method]
			if !ok {
				continue
			}
			msg := `{"jsonrpc": "2.0", ` + reply + `, "id": ` + jsonInt(req.ID) + `}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	return server
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func dialStub(t *testing.T, server *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	caller, err := DialWebsocket(ctx, server.URL)
	require.NoError(t, err)
	return NewClient(caller, timeout, "printer")
}

func TestWebsocketState(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newWebsocketStub(t, map[string]string{
		methodObjectsQuery: `"result": {"eventtime": 3.2, "status": {"print_stats": {"state": "complete"}}}`,
	})
	defer server.Close()
	c := dialStub(t, server, time.Second)
	defer c.Close()

	state, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateComplete, state)

	// a second call gets a fresh id
	state, err = c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateComplete, state)
}

func TestWebsocketPower(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newWebsocketStub(t, map[string]string{
		methodPowerDevices: `"result": {"devices": [{"device": "printer", "status": "off"}]}`,
		methodPowerOff:     `"result": {"printer": "off"}`,
	})
	defer server.Close()
	c := dialStub(t, server, time.Second)
	defer c.Close()

	status, err := c.PowerStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.PowerOff, status)

	ack, err := c.PowerOff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "off", ack)
}

func TestWebsocketAPIError(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newWebsocketStub(t, map[string]string{
		methodObjectsQuery: `"error": {"code": -32601, "message": "Method not found"}`,
	})
	defer server.Close()
	c := dialStub(t, server, time.Second)
	defer c.Close()

	_, err := c.State(context.Background())

	assert.ErrorIs(t, err, ErrAPI)
	assert.True(t, IsTransient(err))
}

func TestWebsocketTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newWebsocketStub(t, nil)
	defer server.Close()
	c := dialStub(t, server, 20*time.Millisecond)
	defer c.Close()

	_, err := c.Snapshot(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsTransient(err))
}

func TestWebsocketClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newWebsocketStub(t, nil)
	defer server.Close()
	c := dialStub(t, server, time.Second)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.State(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, IsTransient(err))
}

func TestWebsocketReplyBeforeDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		reply := `{"jsonrpc": "2.0", "result": {"status": {"print_stats": {"state": "standby"}}}, "id": ` + jsonInt(req.ID) + `}`
		conn.WriteMessage(websocket.TextMessage, []byte(reply))
	}))
	defer server.Close()

	for i := 0; i < 20; i++ {
		c := dialStub(t, server, time.Second)
		state, err := c.State(context.Background())
		require.NoError(t, err, "attempt %d", i)
		assert.Equal(t, types.StateStandby, state)
		require.NoError(t, c.Close())
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "http://localhost:7125", want: "ws://localhost:7125/websocket"},
		{endpoint: "https://printer.local/", want: "wss://printer.local/websocket"},
		{endpoint: "ws://10.0.0.5:7125/websocket", want: "ws://10.0.0.5:7125/websocket"},
		{endpoint: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := websocketURL(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
