// Package wireerr defines the small closed set of error kinds the wire
// engine surfaces to callers: ConnectFailure, SendFailure, ReceiveFailure,
// ProtocolError, ProxyError, InvalidCookie, and InvalidInput. Every
// constructor wraps an underlying cause with %w so callers can still
// errors.Is/As through to the root cause.
package wireerr

import "fmt"

// ConnectFailure reports a TCP connect failure, TCP connect timeout, TLS
// handshake failure (Sub == "ssl"), or proxy handshake failure.
type ConnectFailure struct {
	Sub string // e.g. "tcp", "ssl", "proxy"
	Err error
}

func (e *ConnectFailure) Error() string {
	if e.Sub != "" {
		return fmt.Sprintf("wireerr: connect failure (%s): %v", e.Sub, e.Err)
	}
	return fmt.Sprintf("wireerr: connect failure: %v", e.Err)
}

func (e *ConnectFailure) Unwrap() error { return e.Err }

// NewConnectFailure builds a ConnectFailure with the given sub-kind.
func NewConnectFailure(sub string, err error) error {
	return &ConnectFailure{Sub: sub, Err: err}
}

// SendFailure reports a socket error or timeout while writing a request.
type SendFailure struct {
	Err error
}

func (e *SendFailure) Error() string { return fmt.Sprintf("wireerr: send failure: %v", e.Err) }
func (e *SendFailure) Unwrap() error { return e.Err }

// NewSendFailure builds a SendFailure.
func NewSendFailure(err error) error { return &SendFailure{Err: err} }

// ReceiveFailure reports a socket error, timeout, empty response, malformed
// header line, or malformed chunked-size line. EmptyMessageBody is the flag
// the keep-alive controller inspects to trigger a silent reconnect.
type ReceiveFailure struct {
	EmptyMessageBody bool
	Err              error
}

func (e *ReceiveFailure) Error() string { return fmt.Sprintf("wireerr: receive failure: %v", e.Err) }
func (e *ReceiveFailure) Unwrap() error { return e.Err }

// NewReceiveFailure builds a ReceiveFailure.
func NewReceiveFailure(err error) error { return &ReceiveFailure{Err: err} }

// NewEmptyMessageBody builds the ReceiveFailure variant that signals the
// server closed an idle, reused connection — the silent-reconnect trigger.
func NewEmptyMessageBody(err error) error {
	return &ReceiveFailure{EmptyMessageBody: true, Err: err}
}

// ProtocolError reports a 4xx/5xx surfaced as an error (when
// ignore_protocol_errors is false) or an exceeded redirect count.
type ProtocolError struct {
	Kind       string // e.g. "status", "limit"
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wireerr: protocol error (%s): status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("wireerr: protocol error (%s): %v", e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolStatusError builds a ProtocolError for a surfaced 4xx/5xx.
func NewProtocolStatusError(statusCode int) error {
	return &ProtocolError{Kind: "status", StatusCode: statusCode}
}

// NewRedirectLimitError builds a ProtocolError for an exceeded redirect count.
func NewRedirectLimitError() error {
	return &ProtocolError{Kind: "limit", Err: fmt.Errorf("max redirects exceeded")}
}

// ProxyError reports a SOCKS4/5 reply-table error, an Azadi reply-table
// error, or an HTTP CONNECT non-200 response.
type ProxyError struct {
	Kind string // e.g. "socks4:rejected", "socks5:host-unreachable", "azadi:login", "connect:non-200"
	Err  error
}

func (e *ProxyError) Error() string { return fmt.Sprintf("wireerr: proxy error (%s): %v", e.Kind, e.Err) }
func (e *ProxyError) Unwrap() error { return e.Err }

// NewProxyError builds a ProxyError with the given kind.
func NewProxyError(kind string, err error) error { return &ProxyError{Kind: kind, Err: err} }

// InvalidCookie reports a reserved-character or "$"-prefixed cookie name
// that was not silently ignored.
type InvalidCookie struct {
	Reason string
}

func (e *InvalidCookie) Error() string { return fmt.Sprintf("wireerr: invalid cookie: %s", e.Reason) }

// NewInvalidCookie builds an InvalidCookie error.
func NewInvalidCookie(reason string) error { return &InvalidCookie{Reason: reason} }

// InvalidInput reports a caller argument-contract violation: empty host,
// out-of-range port, oversized credential, etc.
type InvalidInput struct {
	Reason string
}

func (e *InvalidInput) Error() string { return fmt.Sprintf("wireerr: invalid input: %s", e.Reason) }

// NewInvalidInput builds an InvalidInput error.
func NewInvalidInput(reason string) error { return &InvalidInput{Reason: reason} }
