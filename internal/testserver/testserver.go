// Package testserver provides in-process WebSocket servers for exercising
// the load engine in tests: an echo server, a server that closes every
// stream right after the upgrade, ones that hold streams open with or
// without reading, a minimal relay that answers REQ subscriptions, and one
// that refuses the upgrade.
package testserver

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Server wraps an httptest.Server and records what it saw.
type Server struct {
	*httptest.Server

	accepted atomic.Int64
	mu       sync.Mutex
	headers  []http.Header
	remotes  []string
}

// WSURL returns the ws:// URL of the server.
func (s *Server) WSURL() *url.URL {
	u, _ := url.Parse("ws" + strings.TrimPrefix(s.URL, "http"))
	return u
}

// TCPAddr returns the listener address.
func (s *Server) TCPAddr() *net.TCPAddr {
	return s.Listener.Addr().(*net.TCPAddr)
}

// Accepted returns how many streams were upgraded.
func (s *Server) Accepted() int64 {
	return s.accepted.Load()
}

// Headers returns the request headers of every upgraded stream.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

// RemoteAddrs returns the client address of every upgraded stream.
func (s *Server) RemoteAddrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.remotes...)
}

func newServer(handler func(*websocket.Conn)) *Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.headers = append(s.headers, r.Header.Clone())
		s.remotes = append(s.remotes, r.RemoteAddr)
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.accepted.Add(1)

		handler(conn)
	}))
	return s
}

// Echo returns a server that writes every data message straight back.
func Echo() *Server {
	return newServer(func(conn *websocket.Conn) {
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
}

// CloseImmediately returns a server that sends a normal close frame right
// after the upgrade.
func CloseImmediately() *Server {
	return newServer(func(conn *websocket.Conn) {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
	})
}

// Hold returns a server that keeps every stream open and discards whatever
// the client sends until the client goes away.
func Hold() *Server {
	return newServer(func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

// Deaf returns a server that upgrades every stream and then never reads
// from it for hold, so client writes back up once the socket buffers fill.
func Deaf(hold time.Duration) *Server {
	return newServer(func(conn *websocket.Conn) {
		time.Sleep(hold)
	})
}

// Relay returns a server speaking the subscription protocol. Each REQ is
// answered with events EVENT messages followed by EOSE. CLOSE is accepted
// silently.
func Relay(events int) *Server {
	return newServer(func(conn *websocket.Conn) {
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
			for i := 0; i < events; i++ {
				event := fmt.Sprintf(`["EVENT",%q,{"id":"%064x","kind":1,"content":"event %d"}]`, sub, i, i)
				if err := conn.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
					return
				}
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`["EOSE",%q]`, sub))); err != nil {
				return
			}
		}
	})
}

// ClosingRelay answers every REQ with a CLOSED message for the subscription.
func ClosingRelay() *Server {
	return newServer(func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg := gjson.ParseBytes(data)
			if msg.Get("0").String() != "REQ" {
				continue
			}
			closed := fmt.Sprintf(`["CLOSED",%q,"error: shutting down"]`, msg.Get("1").String())
			if err := conn.WriteMessage(websocket.TextMessage, []byte(closed)); err != nil {
				return
			}
		}
	})
}

// Reject returns a plain HTTP server that answers every request with status
// instead of upgrading.
func Reject(status int) *Server {
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(status), status)
	}))
	return s
}

// Stall returns a TCP listener that accepts connections but never answers
// the upgrade request. Close the returned listener when done.
func Stall() (net.Listener, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	go func() {
		var held []net.Conn
		defer func() {
			for _, c := range held {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, c)
		}
	}()
	return ln, nil
}
