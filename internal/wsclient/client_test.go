package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Helper function to create a test WebSocket server.
func createTestWSServer(handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConnectSendReceive(t *testing.T) {
	server := createTestWSServer(func(conn *websocket.Conn) {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{URL: wsURL(server)})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	testMsg := "Hello, WebSocket!"
	if err := client.Send(Message{Type: websocket.TextMessage, Data: []byte(testMsg)}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	received, err := client.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if received.Type != websocket.TextMessage {
		t.Errorf("expected message type %d, got %d", websocket.TextMessage, received.Type)
	}
	if string(received.Data) != testMsg {
		t.Errorf("expected message %q, got %q", testMsg, string(received.Data))
	}
}

func TestByteCounters(t *testing.T) {
	server := createTestWSServer(func(conn *websocket.Conn) {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{URL: wsURL(server)})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	payload := []byte("0123456789")
	for i := 0; i < 3; i++ {
		if err := client.Send(Message{Type: websocket.BinaryMessage, Data: payload}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if _, err := client.Receive(); err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
	}

	if got := client.BytesSent(); got != 30 {
		t.Errorf("expected 30 bytes sent, got %d", got)
	}
	if got := client.BytesRead(); got != 30 {
		t.Errorf("expected 30 bytes read, got %d", got)
	}
}

func TestPing(t *testing.T) {
	var pings int32
	server := createTestWSServer(func(conn *websocket.Conn) {
		conn.SetPingHandler(func(appData string) error {
			atomic.AddInt32(&pings, 1)
			return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{URL: wsURL(server)})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&pings) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&pings) == 0 {
		t.Error("server never observed the ping")
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	client := NewClient(Config{URL: "ws://127.0.0.1:1"})

	if err := client.Send(Message{Type: websocket.TextMessage, Data: []byte("x")}); err == nil {
		t.Error("expected Send on unconnected client to fail")
	}
	if _, err := client.Receive(); err == nil {
		t.Error("expected Receive on unconnected client to fail")
	}
	if err := client.Ping(); err == nil {
		t.Error("expected Ping on unconnected client to fail")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close on unconnected client should be a no-op, got %v", err)
	}
}

func TestConnectRefused(t *testing.T) {
	client := NewClient(Config{
		URL:              "ws://127.0.0.1:1",
		HandshakeTimeout: time.Second,
	})

	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to a closed port to fail")
	}
}

func TestReceiveTimeout(t *testing.T) {
	server := createTestWSServer(func(conn *websocket.Conn) {
		// Never respond; just hold the connection open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(Config{
		URL:            wsURL(server),
		ReceiveTimeout: 50 * time.Millisecond,
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	start := time.Now()
	if _, err := client.Receive(); err == nil {
		t.Fatal("expected Receive to time out")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Receive took too long to time out: %s", elapsed)
	}
}
