package config

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ParseTarget parses a ws:// or wss:// address. The returned URL always
// carries an explicit port.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("target is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", raw, err)
	}

	var defaultPort string
	switch strings.ToLower(u.Scheme) {
	case "ws":
		defaultPort = "80"
	case "wss":
		defaultPort = "443"
	case "":
		return nil, fmt.Errorf("target %q has no scheme: use ws:// or wss://", raw)
	default:
		return nil, fmt.Errorf("target scheme %q is not supported: use ws:// or wss://", u.Scheme)
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("target %q has no host", raw)
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return nil, fmt.Errorf("target %q has an invalid port", raw)
	}
	u.Host = net.JoinHostPort(host, port)
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ResolveTarget resolves the target host once. Every connection of a run
// dials the returned address. IPv4 results are preferred.
func ResolveTarget(ctx context.Context, r Resolver, target *url.URL) (*net.TCPAddr, error) {
	port, err := strconv.Atoi(target.Port())
	if err != nil {
		return nil, fmt.Errorf("target %s has no port", target)
	}
	host := target.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		return &net.TCPAddr{IP: ip, Port: port}, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: no addresses", host)
	}
	chosen := addrs[0]
	for _, a := range addrs {
		if a.IP.To4() != nil {
			chosen = a
			break
		}
	}
	return &net.TCPAddr{IP: chosen.IP, Port: port, Zone: chosen.Zone}, nil
}

// ParseInterfaces parses local bind addresses given as "ip" or "ip:port".
// A bare IP binds an ephemeral port.
func ParseInterfaces(values []string) ([]*net.TCPAddr, error) {
	if len(values) == 0 {
		return nil, nil
	}
	addrs := make([]*net.TCPAddr, 0, len(values))
	for _, raw := range splitList(values) {
		addr, err := parseInterface(raw)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func parseInterface(raw string) (*net.TCPAddr, error) {
	if ip := net.ParseIP(strings.Trim(raw, "[]")); ip != nil {
		return &net.TCPAddr{IP: ip}, nil
	}
	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid interface %q: expected IP or IP:PORT", raw)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("invalid interface %q: %q is not an IP address", raw, host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid interface %q: bad port", raw)
	}
	return &net.TCPAddr{IP: ip, Port: port}, nil
}

// ParseHeaders parses handshake headers given as "Key: Value" or "Key=Value".
func ParseHeaders(values []string) (http.Header, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := http.Header{}
	for _, raw := range values {
		idx := strings.IndexAny(raw, ":=")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid header %q: expected KEY: VALUE or KEY=VALUE", raw)
		}
		key := strings.TrimSpace(raw[:idx])
		if key == "" {
			return nil, fmt.Errorf("invalid header %q: key cannot be empty", raw)
		}
		headers.Add(key, strings.TrimSpace(raw[idx+1:]))
	}
	return headers, nil
}

// splitList flattens comma-separated entries, which environment variables
// and config files produce.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
