// Package wsclient wraps a single client-side WebSocket connection and
// tracks the bytes moved over it.
package wsclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message represents a WebSocket data frame to send or receive.
type Message struct {
	Type int // websocket.TextMessage or websocket.BinaryMessage
	Data []byte
}

// Config configures a client connection.
type Config struct {
	URL              string
	Headers          http.Header
	HandshakeTimeout time.Duration
	ReceiveTimeout   time.Duration
	MaxMessageSize   int64
}

// Client is one WebSocket connection. Send and Receive may be used
// from different goroutines; Ping and Close are safe to call
// concurrently with either (gorilla's control-frame guarantee).
//
// Outgoing data and control frames are masked per RFC 6455; the
// library applies a fresh random mask to every client frame, as a
// compliant client must.
type Client struct {
	url            string
	headers        http.Header
	dialer         *websocket.Dialer
	receiveTimeout time.Duration
	maxMessageSize int64

	mu        sync.Mutex
	conn      *websocket.Conn
	bytesRead int64
	bytesSent int64
}

// NewClient creates an unconnected client.
func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 1024 * 1024
	}

	return &Client{
		url:            cfg.URL,
		headers:        cfg.Headers,
		receiveTimeout: cfg.ReceiveTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
	}
}

// Connect dials the endpoint and completes the protocol upgrade.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	conn.SetReadLimit(c.maxMessageSize)
	c.conn = conn
	return nil
}

// Send writes one data frame.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	if err := conn.WriteMessage(msg.Type, msg.Data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	c.mu.Lock()
	c.bytesSent += int64(len(msg.Data))
	c.mu.Unlock()

	return nil
}

// Receive reads the next data frame. When the client was configured
// with a receive timeout, a read that stalls longer than that returns
// an error and poisons the connection.
func (c *Client) Receive() (Message, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return Message{}, fmt.Errorf("not connected")
	}

	if c.receiveTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.receiveTimeout))
	}

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return Message{}, fmt.Errorf("read message: %w", err)
	}

	c.mu.Lock()
	c.bytesRead += int64(len(data))
	c.mu.Unlock()

	return Message{Type: msgType, Data: data}, nil
}

// Ping sends a ping control frame.
func (c *Client) Ping() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(5*time.Second),
	)

	closeErr := c.conn.Close()
	c.conn = nil

	if err != nil {
		return err
	}
	return closeErr
}

// BytesRead returns the cumulative payload bytes received.
func (c *Client) BytesRead() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesRead
}

// BytesSent returns the cumulative payload bytes sent.
func (c *Client) BytesSent() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesSent
}
