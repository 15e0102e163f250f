package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is a WebSocket connection to the relay speaking the envelope
// protocol.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// Dial connects to cfg.ServerURL, presenting cfg.Origin when set.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if cfg.Origin != "" {
		headers.Set("Origin", cfg.Origin)
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.ServerURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.ServerURL, err)
	}

	return &Client{conn: conn, log: log.With("server", cfg.ServerURL)}, nil
}

// Join asks the relay to register name.
func (c *Client) Join(name string) error {
	return c.send(chat.JoinRequest{Name: name})
}

// Say sends a chat line. The relay drops it until a join succeeds.
func (c *Client) Say(message string) error {
	return c.send(chat.ChatMessage{Message: message})
}

func (c *Client) send(env chat.Envelope) error {
	payload, err := chat.Encode(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Listen reads frames until the connection closes or ctx is done, passing
// each decoded envelope to onEnvelope and undecodable frames to onText. A
// normal closure returns nil.
func (c *Client) Listen(ctx context.Context, onEnvelope func(chat.Envelope), onText func(string)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		frame := chat.Parse(raw)
		if frame.IsLegacy() {
			c.log.Debug("Undecodable frame from server", "frame", frame.Text)
			onText(frame.Text)
			continue
		}
		onEnvelope(frame.Envelope)
	}
}

// Close sends a close frame and closes the connection. Safe to call more
// than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
