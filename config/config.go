// Package config provides layered configuration loading for mvnet clients.
// It supports JSON- or YAML-based configuration loading (selected by file
// extension) with safe defaults for every policy knob the wire engine reads.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable parameter the client façade and its
// sub-components read. The struct is designed to be loaded once and then
// shared as a read-only value across goroutines (multiple *client.Client
// instances may point at the same *Config).
type Config struct {
	// ConnectTimeout bounds the TCP connect + proxy handshake phase.
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// ReadWriteTimeout bounds socket I/O per phase: the proxy handshake, the
	// request write, and the response read each get one deadline of this
	// length covering the whole phase, not one per individual read or write.
	ReadWriteTimeout time.Duration `json:"read_write_timeout" yaml:"read_write_timeout"`

	// MaxRedirects is the maximum number of 3xx hops the redirect
	// controller will follow before failing with ProtocolError{"limit"}.
	MaxRedirects int `json:"max_redirects" yaml:"max_redirects"`

	// KeepTemporaryHeadersOnRedirect, when true, carries the request's
	// temporary headers across followed redirects (spec §3); on a
	// host-changing redirect Authorization, Proxy-Authorization and Cookie
	// are still removed from them. When false they are dropped on every
	// redirect.
	KeepTemporaryHeadersOnRedirect bool `json:"keep_temporary_headers_on_redirect" yaml:"keep_temporary_headers_on_redirect"`

	// EnableMiddleHeaders, when true, records headers observed on every
	// intermediate redirect response into Response.MiddleHeaders.
	EnableMiddleHeaders bool `json:"enable_middle_headers" yaml:"enable_middle_headers"`

	// MaxKeepAliveRequests caps requests served per connection slot absent a
	// server-advertised Keep-Alive: max= value.
	MaxKeepAliveRequests int `json:"max_keep_alive_requests" yaml:"max_keep_alive_requests"`

	// KeepAliveIdleTimeout bounds how long an idle connection slot may sit
	// before being torn down, absent a server-advertised timeout=.
	KeepAliveIdleTimeout time.Duration `json:"keep_alive_idle_timeout" yaml:"keep_alive_idle_timeout"`

	// Reconnect enables the bounded fail-reconnect loop on send/receive
	// IOErrors (spec §4.7).
	Reconnect bool `json:"reconnect" yaml:"reconnect"`

	// ReconnectLimit is the maximum number of fail-reconnect attempts.
	ReconnectLimit int `json:"reconnect_limit" yaml:"reconnect_limit"`

	// ReconnectDelay is slept between fail-reconnect attempts.
	ReconnectDelay time.Duration `json:"reconnect_delay" yaml:"reconnect_delay"`

	// UseCookies enables the cookie jar on both the send and receive paths.
	UseCookies bool `json:"use_cookies" yaml:"use_cookies"`

	// CookieSingleHeader emits one combined "Cookie: a=1; b=2" header
	// instead of one "Cookie:" header per cookie.
	CookieSingleHeader bool `json:"cookie_single_header" yaml:"cookie_single_header"`

	// IgnoreInvalidCookie silently drops malformed Set-Cookie values instead
	// of failing with InvalidCookie. Defaults to true (lenient), per spec §9.
	IgnoreInvalidCookie bool `json:"ignore_invalid_cookie" yaml:"ignore_invalid_cookie"`

	// IgnoreSetForExpiredCookies drops a Set-Cookie whose expiry is already
	// in the past rather than inserting (and immediately orphaning) it.
	IgnoreSetForExpiredCookies bool `json:"ignore_set_for_expired_cookies" yaml:"ignore_set_for_expired_cookies"`

	// ExpireBeforeSet marks any pre-existing cookie with the same
	// (host, name) expired before inserting a new one.
	ExpireBeforeSet bool `json:"expire_before_set" yaml:"expire_before_set"`

	// EscapeValuesOnReceive URL-escapes cookie values as they are stored.
	EscapeValuesOnReceive bool `json:"escape_values_on_receive" yaml:"escape_values_on_receive"`

	// UnescapeValuesOnSend URL-unescapes cookie values before they are
	// written to the Cookie header. Default() sets it to false; it is not
	// derived from EscapeValuesOnReceive, so each of the two is set on its own.
	UnescapeValuesOnSend bool `json:"unescape_values_on_send" yaml:"unescape_values_on_send"`

	// IgnoreProtocolErrors, when true, surfaces 4xx/5xx responses normally
	// instead of failing Send with ProtocolError.
	IgnoreProtocolErrors bool `json:"ignore_protocol_errors" yaml:"ignore_protocol_errors"`

	// AllowEmptyHeaderValues permits a header to be set to the empty string.
	AllowEmptyHeaderValues bool `json:"allow_empty_header_values" yaml:"allow_empty_header_values"`

	// EnableContentEncoding advertises and decodes gzip/deflate.
	EnableContentEncoding bool `json:"enable_content_encoding" yaml:"enable_content_encoding"`

	// AcceptLanguageLocale seeds the Accept-Language header (spec §4.3 step 6).
	AcceptLanguageLocale string `json:"accept_language_locale" yaml:"accept_language_locale"`

	// Charset seeds the Accept-Charset header (spec §4.3 step 7).
	Charset string `json:"charset" yaml:"charset"`

	// TCPSendBufferSize is the chunk size used when streaming a request body.
	TCPSendBufferSize int `json:"tcp_send_buffer_size" yaml:"tcp_send_buffer_size"`

	// BypassProxyForLoopback skips the configured proxy when the resolved
	// destination is a loopback address.
	BypassProxyForLoopback bool `json:"bypass_proxy_for_loopback" yaml:"bypass_proxy_for_loopback"`
}

// Load reads a configuration file and deserialises it into a Config. The
// format is chosen by filename extension: ".yaml"/".yml" uses YAML,
// everything else is treated as JSON.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename) // #nosec G304 -- filename is an operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", filename, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode yaml %q: %w", filename, err)
		}
	default:
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields() // catch typos in config files early
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode json %q: %w", filename, err)
		}
	}
	return cfg, nil
}

// Default returns a *Config pre-filled with production-sensible defaults
// matching spec.md's stated defaults (8 redirects, 30s keep-alive timeout,
// 100 keep-alive requests, lenient cookie handling, …). Each call returns a
// fresh independent copy.
func Default() *Config {
	return &Config{
		ConnectTimeout:                 30 * time.Second,
		ReadWriteTimeout:               30 * time.Second,
		MaxRedirects:                   8,
		KeepTemporaryHeadersOnRedirect: false,
		EnableMiddleHeaders:            false,
		MaxKeepAliveRequests:           100,
		KeepAliveIdleTimeout:           30 * time.Second,
		Reconnect:                      true,
		ReconnectLimit:                 3,
		ReconnectDelay:                 500 * time.Millisecond,
		UseCookies:                     true,
		CookieSingleHeader:             true,
		IgnoreInvalidCookie:            true,
		IgnoreSetForExpiredCookies:     true,
		ExpireBeforeSet:                true,
		EscapeValuesOnReceive:          false,
		UnescapeValuesOnSend:           false,
		IgnoreProtocolErrors:           true,
		AllowEmptyHeaderValues:         false,
		EnableContentEncoding:          true,
		AcceptLanguageLocale:           "en-US",
		Charset:                        "UTF-8",
		TCPSendBufferSize:              16 * 1024,
		BypassProxyForLoopback:         true,
	}
}
