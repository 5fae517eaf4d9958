// Package proxydial implements the proxy-tunnel variant set of spec.md
// §4.1: direct, HTTP CONNECT, SOCKS4, SOCKS4a, SOCKS5, and the experimental
// authenticated "Azadi" ChaCha20-Poly1305 tunnel. Each variant is a
// concrete type implementing Dialer, selected by New from a proxy URL; the
// protocol set is closed and small, so this is a tagged variant rather
// than an open plugin registry.
package proxydial

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/soheilmv/mvnet/wireerr"
)

// Dialer establishes a tunneled TCP stream to (destHost, destPort),
// performing whatever variant-specific handshake is required. Identity
// returns the string the keep-alive controller compares for slot reuse
// (spec.md glossary: "Proxy identity"). It is built from the variant,
// proxy host, port and user name only; passwords and the Azadi secret are
// not part of it, so two dialers that differ only in those share an
// identity.
type Dialer interface {
	Dial(ctx context.Context, destHost string, destPort int, connectTimeout, rwTimeout time.Duration) (net.Conn, error)
	Identity() string
	// IsHTTPProxy reports whether this dialer is an HTTP-type proxy, which
	// governs the request framer's Proxy-Connection vs. Connection choice
	// and absolute-URI start line (spec.md §4.3).
	IsHTTPProxy() bool
}

func dialTCP(ctx context.Context, network, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, wireerr.NewConnectFailure("tcp", err)
	}
	return conn, nil
}

// New parses a proxy URL per spec.md §6's grammar and returns the matching
// Dialer. Supported schemes: http/https (HTTP CONNECT), socks4, socks4a,
// socks5, and "ap" (Azadi, hex-encoded). An empty raw means "no proxy" —
// callers should use Direct{} directly in that case; New returns an error
// for an empty string.
func New(raw string) (Dialer, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, wireerr.NewInvalidInput(fmt.Sprintf("invalid proxy URL %q: %v", raw, err))
	}

	host := u.Hostname()
	port := 0
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, wireerr.NewInvalidInput(fmt.Sprintf("invalid proxy port in %q", raw))
		}
		port = n
	}

	user := ""
	pass := ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}

	switch u.Scheme {
	case "http", "https":
		return &HTTPConnectDialer{Host: host, Port: port, User: user, Pass: pass}, nil
	case "socks4":
		return &SOCKS4Dialer{Host: host, Port: port, UserID: user}, nil
	case "socks4a":
		return &SOCKS4Dialer{Host: host, Port: port, UserID: user, A: true}, nil
	case "socks5":
		return &SOCKS5Dialer{Host: host, Port: port, User: user, Pass: pass}, nil
	case "ap":
		return NewAzadiFromHex(u.Opaque + u.Host + u.Path)
	default:
		return nil, wireerr.NewInvalidInput(fmt.Sprintf("unsupported proxy scheme %q", u.Scheme))
	}
}

// Direct is the null proxy variant: connects straight to the destination,
// no handshake bytes.
type Direct struct{}

func (Direct) Identity() string   { return "direct" }
func (Direct) IsHTTPProxy() bool { return false }

func (Direct) Dial(ctx context.Context, destHost string, destPort int, connectTimeout, _ time.Duration) (net.Conn, error) {
	return dialTCP(ctx, "tcp", net.JoinHostPort(destHost, strconv.Itoa(destPort)), connectTimeout)
}
