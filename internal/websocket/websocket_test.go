package websocket_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/torosent/relaybench/internal/testserver"
	"github.com/torosent/relaybench/internal/websocket"
)

func TestDialEchoRoundTrip(t *testing.T) {
	server := testserver.Echo()
	defer server.Close()

	d := websocket.NewDialer(websocket.Config{})
	conn, err := d.Dial(context.Background(), server.WSURL(), nil, server.TCPAddr(), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(gorilla.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if msgType != gorilla.TextMessage || string(data) != "ping" {
		t.Fatalf("unexpected reply: type=%d data=%q", msgType, data)
	}
}

func TestDialBindsLocalAddress(t *testing.T) {
	server := testserver.Hold()
	defer server.Close()

	local := &net.TCPAddr{IP: net.ParseIP("127.0.0.1")}
	d := websocket.NewDialer(websocket.Config{})
	conn, err := d.Dial(context.Background(), server.WSURL(), local, server.TCPAddr(), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("expected TCP local address, got %T", conn.LocalAddr())
	}
	if !addr.IP.Equal(local.IP) {
		t.Fatalf("expected local IP %s, got %s", local.IP, addr.IP)
	}
}

func TestDialSendsHeaders(t *testing.T) {
	server := testserver.Hold()
	defer server.Close()

	d := websocket.NewDialer(websocket.Config{
		Headers: http.Header{"X-Bench": []string{"base"}, "X-Keep": []string{"yes"}},
	})
	extra := http.Header{"X-Bench": []string{"slot"}}
	conn, err := d.Dial(context.Background(), server.WSURL(), nil, server.TCPAddr(), extra)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	headers := server.Headers()
	if len(headers) != 1 {
		t.Fatalf("expected one upgrade request, got %d", len(headers))
	}
	if got := headers[0].Get("X-Bench"); got != "slot" {
		t.Errorf("expected per-dial header to win, got %q", got)
	}
	if got := headers[0].Get("X-Keep"); got != "yes" {
		t.Errorf("expected configured header, got %q", got)
	}
}

func TestDialHandshakeRejected(t *testing.T) {
	server := testserver.Reject(http.StatusForbidden)
	defer server.Close()

	d := websocket.NewDialer(websocket.Config{})
	_, err := d.Dial(context.Background(), server.WSURL(), nil, server.TCPAddr(), nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Errorf("expected status in error, got %v", err)
	}
	if kind := websocket.ErrorKind(err); kind != websocket.KindHandshake {
		t.Errorf("expected kind %q, got %q", websocket.KindHandshake, kind)
	}
}

func TestDialConnectTimeout(t *testing.T) {
	ln, err := testserver.Stall()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	target := mustURL(t, fmt.Sprintf("ws://%s/", addr))

	d := websocket.NewDialer(websocket.Config{ConnectTimeout: 200 * time.Millisecond})
	start := time.Now()
	_, err = d.Dial(context.Background(), target, nil, addr, nil)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !errors.Is(err, websocket.ErrConnectTimeout) {
		t.Fatalf("expected ErrConnectTimeout, got %v", err)
	}
	if kind := websocket.ErrorKind(err); kind != websocket.KindConnectTimeout {
		t.Errorf("expected kind %q, got %q", websocket.KindConnectTimeout, kind)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}
}

func TestDialConnectTimeoutUnderLoad(t *testing.T) {
	ln, err := testserver.Stall()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	target := mustURL(t, fmt.Sprintf("ws://%s/", addr))
	d := websocket.NewDialer(websocket.Config{ConnectTimeout: 100 * time.Millisecond})

	const dials = 30
	errs := make(chan error, dials)
	for i := 0; i < dials; i++ {
		go func() {
			_, err := d.Dial(context.Background(), target, nil, addr, nil)
			errs <- err
		}()
	}
	for i := 0; i < dials; i++ {
		err := <-errs
		if kind := websocket.ErrorKind(err); kind != websocket.KindConnectTimeout {
			t.Errorf("dial %d: kind %q, want %q (%v)", i, kind, websocket.KindConnectTimeout, err)
		}
	}
}

func TestAbortUnblocksStuckWriter(t *testing.T) {
	server := testserver.Deaf(5 * time.Second)
	defer server.Close()

	d := websocket.NewDialer(websocket.Config{})
	conn, err := d.Dial(context.Background(), server.WSURL(), nil, server.TCPAddr(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	writeErr := make(chan error, 1)
	go func() {
		payload := make([]byte, 1<<20)
		for {
			if err := conn.WriteMessage(gorilla.BinaryMessage, payload); err != nil {
				writeErr <- err
				return
			}
		}
	}()
	// let the send buffers fill so the writer blocks
	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	if err := conn.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	select {
	case <-writeErr:
	case <-time.After(2 * time.Second):
		t.Fatal("writer still blocked after Abort")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("abort took %s", elapsed)
	}
}

func TestDialCanceledIsNotTimeout(t *testing.T) {
	ln, err := testserver.Stall()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	target := mustURL(t, fmt.Sprintf("ws://%s/", addr))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	d := websocket.NewDialer(websocket.Config{ConnectTimeout: 10 * time.Second})
	_, err = d.Dial(ctx, target, nil, addr, nil)
	if err == nil {
		t.Fatal("expected cancellation")
	}
	if errors.Is(err, websocket.ErrConnectTimeout) {
		t.Fatalf("cancellation must not be reported as a timeout: %v", err)
	}
	if kind := websocket.ErrorKind(err); kind != websocket.KindCanceled {
		t.Errorf("expected kind %q, got %q", websocket.KindCanceled, kind)
	}
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	d := websocket.NewDialer(websocket.Config{})
	_, err = d.Dial(context.Background(), mustURL(t, fmt.Sprintf("ws://%s/", addr)), nil, addr, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if kind := websocket.ErrorKind(err); kind != websocket.KindDial {
		t.Errorf("expected kind %q, got %q", websocket.KindDial, kind)
	}
}

func TestIsRemoteClose(t *testing.T) {
	server := testserver.CloseImmediately()
	defer server.Close()

	d := websocket.NewDialer(websocket.Config{})
	conn, err := d.Dial(context.Background(), server.WSURL(), nil, server.TCPAddr(), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected close")
	}
	if !websocket.IsRemoteClose(err) {
		t.Fatalf("expected remote close, got %v", err)
	}
	if websocket.IsRemoteClose(errors.New("boom")) {
		t.Fatal("plain error must not be a remote close")
	}
	if websocket.IsRemoteClose(nil) {
		t.Fatal("nil must not be a remote close")
	}
}
