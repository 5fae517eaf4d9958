// Package requri parses and manipulates the absolute/relative request URIs
// the wire engine sends requests against: it computes the Host header value,
// the path+query the framer puts on the request line, and resolves redirect
// Location values against the URI that produced them.
package requri

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// defaultPort returns the scheme's default port, or "" if the scheme is not
// one of http/https.
func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	case "socks4", "socks4a", "socks5":
		return ""
	}
	return ""
}

// URI is a parsed request target: scheme, host, port, and path+query,
// normalized so every field needed by the framer and the proxy dialer is
// available without re-parsing.
type URI struct {
	Scheme string
	Host   string // hostname or IP literal, no brackets, no port
	Port   int
	Path   string // always begins with "/"
	Query  string // without leading "?"; empty if none

	raw *url.URL
}

// Parse parses an absolute request URI (e.g. "https://example.com/a?b=1").
// It fails InvalidInput-style with a plain error if raw is not absolute or
// the scheme is unsupported.
func Parse(raw string) (*URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("requri: parse %q: %w", raw, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("requri: %q is not an absolute URI", raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("requri: unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("requri: %q has no host", raw)
	}

	port := 0
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("requri: invalid port %q: %w", p, err)
		}
		port = n
	} else if dp := defaultPort(scheme); dp != "" {
		port, _ = strconv.Atoi(dp)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return &URI{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Query:  u.RawQuery,
		raw:    u,
	}, nil
}

// IsDefaultPort reports whether Port equals the scheme's default port (80 for
// http, 443 for https).
func (u *URI) IsDefaultPort() bool {
	dp := defaultPort(u.Scheme)
	return dp != "" && strconv.Itoa(u.Port) == dp
}

// HostHeader computes the value of the request's Host header: "host" or
// "host:port", port elided iff it is the scheme default (spec invariant I1).
func (u *URI) HostHeader() string {
	if u.IsDefaultPort() {
		return u.Host
	}
	return fmt.Sprintf("%s:%d", u.Host, u.Port)
}

// PathAndQuery returns the request-line target: the path, plus "?query" if a
// query string is present. Always non-empty ("/" at minimum).
func (u *URI) PathAndQuery() string {
	if u.Query == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query
}

// String renders the absolute URI form (scheme://host[:port]path[?query]),
// used when a proxy requires an absolute-form request target.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.HostHeader())
	b.WriteString(u.PathAndQuery())
	return b.String()
}

// Resolve interprets ref (as found in a Location header) relative to u,
// returning the resolved absolute URI. A ref that is itself absolute is
// returned verbatim (reparsed); a ref with only a path is joined against u's
// scheme/host/port.
func (u *URI) Resolve(ref string) (*URI, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("requri: parse redirect target %q: %w", ref, err)
	}
	resolved := u.raw.ResolveReference(refURL)
	return Parse(resolved.String())
}

// ResolvedScheme reports the scheme ref would carry once resolved against
// u, without rejecting unsupported schemes the way Resolve (via Parse)
// does. Callers that need to detect a non-http(s) redirect target before
// deciding whether to follow it should check this first.
func (u *URI) ResolvedScheme(ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("requri: parse redirect target %q: %w", ref, err)
	}
	resolved := u.raw.ResolveReference(refURL)
	return strings.ToLower(resolved.Scheme), nil
}

// IsLoopback reports whether Host is a loopback hostname/literal, used by
// the client façade to decide whether to bypass a configured proxy.
func (u *URI) IsLoopback() bool {
	switch u.Host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasPrefix(u.Host, "127.")
}

// SameOrigin reports whether u and other share (scheme, host, port) — the
// comparison the keep-alive controller uses to decide slot reuse and the
// redirect controller uses to decide whether to strip Host/Origin headers.
func (u *URI) SameOrigin(other *URI) bool {
	return u.Scheme == other.Scheme && u.Host == other.Host && u.Port == other.Port
}
