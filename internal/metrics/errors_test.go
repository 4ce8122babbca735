package metrics_test

import (
	"errors"
	"net"
	"testing"

	"github.com/torosent/relaybench/internal/metrics"
)

type customFailure struct{}

func (e *customFailure) Error() string { return "custom" }

func TestTypeKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"net op error", &net.OpError{Op: "read", Err: errors.New("x")}, "net_op_error"},
		{"errors string", errors.New("plain"), "errors_error_string"},
		{"local type", &customFailure{}, "metrics_test_custom_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metrics.TypeKind(tt.err); got != tt.want {
				t.Errorf("TypeKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFriendlyKind(t *testing.T) {
	tests := map[string]string{
		"connect_timeout": "Connect timeout",
		"handshake":       "Handshake rejected",
		"":                "Unknown error",
		"net_op_error":    "Net op error",
	}
	for kind, want := range tests {
		if got := metrics.FriendlyKind(kind); got != want {
			t.Errorf("FriendlyKind(%q) = %q, want %q", kind, got, want)
		}
	}
}
