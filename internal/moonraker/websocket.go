package moonraker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// readLimit bounds a single JSON-RPC message
	readLimit = 1 << 20
	writeWait = 10 * time.Second
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  Params `json:"params,omitempty"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

// WebsocketCaller calls Moonraker over its JSON-RPC websocket
type WebsocketCaller struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan rpcResponse
	readErr error

	done      chan struct{}
	closeOnce sync.Once
}

// DialWebsocket connects to the Moonraker websocket. endpoint may be the http URL of the API.
func DialWebsocket(ctx context.Context, endpoint string) (*WebsocketCaller, error) {
	u, err := websocketURL(endpoint)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Moonraker: %w", err)
	}

	c := &WebsocketCaller{
		conn:    conn,
		pending: make(map[int64]chan rpcResponse),
		done:    make(chan struct{}),
	}
	go c.readPump()

	return c, nil
}

func websocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid endpoint %q: unsupported scheme", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/websocket"
	}
	return u.String(), nil
}

// Call implements Caller
func (c *WebsocketCaller) Call(ctx context.Context, method string, params Params, result any) error {
	ch := make(chan rpcResponse, 1)

	c.mu.Lock()
	if c.readErr != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		// the response may have been delivered just before the pump exited
		select {
		case resp := <-ch:
			return resp.decode(result)
		default:
			return ErrClosed
		}
	case resp := <-ch:
		return resp.decode(result)
	}
}

func (r rpcResponse) decode(result any) error {
	if r.Error != nil {
		return fmt.Errorf("%w: %d %s", ErrAPI, r.Error.Code, r.Error.Message)
	}
	return decodeResult(r.Result, result)
}

func (c *WebsocketCaller) write(ctx context.Context, req rpcRequest) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", req.Method, err)
	}
	return nil
}

// readPump dispatches responses to waiting calls until the connection fails
func (c *WebsocketCaller) readPump() {
	defer close(c.done)

	c.conn.SetReadLimit(readLimit)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Moonraker websocket closed")
			}
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			log.WithError(err).Debug("Failed to parse websocket message")
			continue
		}
		if resp.ID == nil {
			// notify_* broadcasts are not requested
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*resp.ID]
		c.mu.Unlock()
		if ok {
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// Close closes the connection and waits for the read pump to exit
func (c *WebsocketCaller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.conn.Close()
		<-c.done
	})
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
