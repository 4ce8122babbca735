package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultConnectTimeout bounds connect plus TLS plus protocol upgrade.
const DefaultConnectTimeout = 60 * time.Second

// Config configures the connection establisher.
type Config struct {
	Headers            http.Header
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// Dialer opens protocol-upgraded WebSocket streams. A Dialer is safe for
// concurrent use by many connection slots.
type Dialer struct {
	headers http.Header
	timeout time.Duration
	tls     *tls.Config
}

// NewDialer creates a Dialer with the given configuration.
func NewDialer(cfg Config) *Dialer {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	d := &Dialer{
		headers: cfg.Headers,
		timeout: cfg.ConnectTimeout,
	}
	if cfg.InsecureSkipVerify {
		d.tls = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in via --insecure
	}
	return d
}

// Timeout returns the connect deadline applied to every Dial.
func (d *Dialer) Timeout() time.Duration {
	return d.timeout
}

// Dial opens a TCP socket to remote, optionally bound to local, and performs
// the TLS and WebSocket handshakes for target. The URL supplies the Host
// header and TLS server name; remote is the pre-resolved destination.
//
// The whole sequence runs under a single deadline. Exceeding it fails with an
// error wrapping ErrConnectTimeout. extra headers are merged over the
// dialer's configured headers.
func (d *Dialer) Dial(ctx context.Context, target *url.URL, local, remote *net.TCPAddr, extra http.Header) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	netDialer := &net.Dialer{}
	if local != nil {
		netDialer.LocalAddr = local
	}
	dst := remote.String()

	ws := &websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return netDialer.DialContext(ctx, network, dst)
		},
		TLSClientConfig: d.tls,
	}

	conn, resp, err := ws.DialContext(dialCtx, target.String(), mergeHeaders(d.headers, extra))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("websocket dial interrupted: %w", ctx.Err())
		}
		if deadlineExpired(dialCtx, err) {
			return nil, fmt.Errorf("%w after %s: %v", ErrConnectTimeout, d.timeout, err)
		}
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	return &Conn{conn: conn}, nil
}

// deadlineExpired reports whether a dial failure was caused by the connect
// deadline. The socket deadline gorilla derives from ctx can fire before
// ctx's own timer, so an i/o timeout counts even while ctx.Err() is nil.
func deadlineExpired(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && !time.Now().Before(deadline)
}

func mergeHeaders(base, extra http.Header) http.Header {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := base.Clone()
	if merged == nil {
		merged = http.Header{}
	}
	for k, v := range extra {
		merged[k] = append([]string(nil), v...)
	}
	return merged
}

// Conn is an established WebSocket stream. ReadMessage and WriteMessage must
// each be called from one goroutine at a time; Close may be called from any
// goroutine and unblocks a pending read.
type Conn struct {
	conn *websocket.Conn
}

// ReadMessage reads the next data message.
func (c *Conn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

// WriteMessage writes one data message.
func (c *Conn) WriteMessage(messageType int, data []byte) error {
	return c.conn.WriteMessage(messageType, data)
}

// LocalAddr returns the local socket address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Abort closes the socket without a close frame. Pending reads and writes,
// including a write blocked on a full send buffer, fail at once.
func (c *Conn) Abort() error {
	return c.conn.NetConn().Close()
}

// Close sends a close frame on a best-effort basis and closes the socket.
func (c *Conn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}
