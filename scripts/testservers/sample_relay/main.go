// Command sample_relay serves a local WebSocket endpoint for manual
// relaybench runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

type serverMode string

const (
	modeEcho  serverMode = "echo"
	modeRelay serverMode = "relay"
	modeHold  serverMode = "hold"
	modeClose serverMode = "close"
)

func main() {
	mode := flag.String("mode", string(modeRelay), "Server mode: echo, relay, hold, close")
	port := flag.Int("port", 0, "Listening port")
	events := flag.Int("events", 10, "EVENT messages sent per REQ in relay mode")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}

	var handler func(*websocket.Conn)
	switch serverMode(*mode) {
	case modeEcho:
		handler = handleEcho
	case modeRelay:
		handler = func(conn *websocket.Conn) { handleRelay(conn, *events) }
	case modeHold:
		handler = handleHold
	case modeClose:
		handler = handleClose
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	log.Fatal(runWebSocketServer(*port, serverMode(*mode), handler))
}

func runWebSocketServer(port int, mode serverMode, handler func(*websocket.Conn)) error {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		go func() {
			defer conn.Close()
			handler(conn)
		}()
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("sample %s server listening on %s", mode, addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}

func handleEcho(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}

func handleRelay(conn *websocket.Conn, events int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg := gjson.ParseBytes(data)
		if msg.Get("0").String() != "REQ" {
			continue
		}
		sub := msg.Get("1").String()
		limit := int(msg.Get("2.limit").Int())
		n := events
		if limit > 0 && limit < n {
			n = limit
		}
		for i := 0; i < n; i++ {
			event := fmt.Sprintf(`["EVENT",%q,{"id":"%064x","kind":1,"created_at":%d,"content":"sample %d"}]`,
				sub, i, time.Now().Unix(), i)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
				return
			}
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`["EOSE",%q]`, sub))); err != nil {
			return
		}
	}
}

func handleHold(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func handleClose(conn *websocket.Conn) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second),
	)
}
