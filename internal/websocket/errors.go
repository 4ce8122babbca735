package websocket

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"

	"github.com/torosent/relaybench/internal/metrics"
)

// ErrConnectTimeout reports that connect and handshake did not finish within
// the dialer's deadline.
var ErrConnectTimeout = errors.New("connect timeout")

// Error kinds used in the connection error breakdown.
const (
	KindConnectTimeout = "connect_timeout"
	KindHandshake      = "handshake"
	KindTLS            = "tls"
	KindDial           = "dial"
	KindCanceled       = "canceled"
	KindClosed         = "closed"
)

// ErrorKind classifies a Dial error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		opErr      *net.OpError
		recordErr  tls.RecordHeaderError
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)

	switch {
	case errors.Is(err, ErrConnectTimeout):
		return KindConnectTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, websocket.ErrBadHandshake):
		return KindHandshake
	case errors.As(err, &recordErr), errors.As(err, &verifyErr), errors.As(err, &unknownCA),
		errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return KindTLS
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return KindDial
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return KindClosed
	}
	if inner := errors.Unwrap(err); inner != nil {
		err = inner
	}
	return metrics.TypeKind(err)
}

// IsRemoteClose reports whether err is the peer ending the stream with a
// close frame, or the stream being torn down underneath a reader.
func IsRemoteClose(err error) bool {
	if err == nil {
		return false
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
