// Command echoserver runs a WebSocket echo endpoint for exercising
// wsdrill by hand. Every received frame is echoed back unchanged, so
// correlation tokens in the payload round-trip as wsdrill expects.
//
// Optional knobs simulate less cooperative servers:
//
//	-delay      artificial latency before each echo
//	-chatter    interval for unsolicited status frames
//	-reject-pct percentage of upgrade requests rejected with 503
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	path := flag.String("path", "/ws", "WebSocket endpoint path")
	delay := flag.Duration("delay", 0, "Artificial delay before echoing each frame")
	chatter := flag.Duration("chatter", 0, "Interval for unsolicited server frames (0 disables)")
	rejectPct := flag.Int("reject-pct", 0, "Percentage of handshakes to reject with 503")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}
	if *rejectPct < 0 || *rejectPct > 100 {
		log.Fatalf("reject-pct must be between 0 and 100")
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc(*path, func(w http.ResponseWriter, r *http.Request) {
		if *rejectPct > 0 && rand.Intn(100) < *rejectPct {
			http.Error(w, "synthetic rejection", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		go serveConn(conn, *delay, *chatter)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("echo server listening on ws://localhost%s%s", addr, *path)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func serveConn(conn *websocket.Conn, delay, chatter time.Duration) {
	defer conn.Close()

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	write := func(msgType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(msgType, data)
	}

	done := make(chan struct{})
	defer close(done)

	if chatter > 0 {
		go func() {
			ticker := time.NewTicker(chatter)
			defer ticker.Stop()
			seq := 0
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					seq++
					frame := fmt.Sprintf(`{"status":"chatter","seq":%d}`, seq)
					if err := write(websocket.TextMessage, []byte(frame)); err != nil {
						return
					}
				}
			}
		}()
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		if err := write(msgType, data); err != nil {
			return
		}
	}
}
