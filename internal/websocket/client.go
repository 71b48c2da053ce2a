package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/pkg/stream"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var errClientClosed = errors.New("websocket client closed")

// ChatFunc runs one chat turn and writes the reply to sink.
type ChatFunc func(ctx context.Context, userID string, req *dto.ChatRequest, sink stream.Sink) error

// Client is one chat connection. Its context ends when the peer goes away, which
// cancels any turn still running for it.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	UserID string

	// Buffered channel of outbound messages.
	Send chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	chat   ChatFunc
	busy   atomic.Bool
	turns  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, chat ChatFunc) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
		chat:   chat,
	}
}

// send queues data without blocking. It fails once the client is closed or its
// buffer is full.
func (c *Client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return errors.New("websocket send buffer full")
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) sendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.send(data)
}

// readPump reads chat requests until the peer disconnects.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.turns.Wait()
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("WS", "Unexpected websocket close", map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				})
			}
			return
		}
		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var req dto.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		_ = c.sendJSON(ErrorMessage(serverutils.ErrorResponse(400, "invalid chat request")))
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		_ = c.sendJSON(ErrorMessage(serverutils.ErrorBodyFor(err)))
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		_ = c.sendJSON(ErrorMessage(serverutils.ErrorResponse(409, "a reply is already in progress")))
		return
	}

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		defer c.busy.Store(false)

		if err := c.chat(c.ctx, c.UserID, &req, &Sink{client: c}); err != nil && c.ctx.Err() == nil {
			_ = c.sendJSON(ErrorMessage(stream.NewErrorFrame(err)))
		}
	}()
}

// writePump pumps messages from the send buffer to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per message: clients parse each frame as JSON.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
