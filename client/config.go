// Package client wires the lower-level packages (proxydial, tlsupgrade,
// wire, keepalive, redirectctl, ckjar) into the single send(request)
// operation of spec.md §4.8: choose a proxy, dial and upgrade the
// connection slot, write the request, read the response, follow
// redirects, and feed the cookie jar — all under one mutex-guarded
// Client, in the shape of the teacher's session.Session/client.NewHTTPClient
// pairing generalized from net/http.Transport to the engine's own wire
// plumbing.
package client

import (
	"github.com/soheilmv/mvnet/ckjar"
	"github.com/soheilmv/mvnet/config"
	"github.com/soheilmv/mvnet/fingerprint"
	"github.com/soheilmv/mvnet/logger"
	"github.com/soheilmv/mvnet/metrics"
	"github.com/soheilmv/mvnet/proxydial"
	"github.com/soheilmv/mvnet/tlsupgrade"
)

// Config configures a Client. Policy is required; New rejects a Config
// whose Policy is nil so a usable Client can never be built from a
// zero-value Config{}.
type Config struct {
	// Policy carries every timeout/redirect/cookie/encoding knob the send
	// path reads. Required.
	Policy *config.Config

	// Proxy is the default proxy URL (spec.md §6 grammar), used when a
	// request carries no per-request override. Empty means direct.
	Proxy string

	// ProxyPool, when set, round-robins the default proxy across a
	// loaded list instead of using a single fixed Proxy.
	ProxyPool *proxydial.Pool

	// Fingerprint, when set, routes the TLS handshake through uTLS using
	// this profile's ClientHelloID and adds its preset headers after the
	// framer's own base headers (replacing any same-named base header) and
	// before the permanent/temporary overlays.
	Fingerprint *fingerprint.Profile

	// TLS configures the crypto/tls path used when Fingerprint is nil.
	TLS tlsupgrade.Options

	// Jar, when nil and Policy.UseCookies is true, causes New to create
	// a fresh jar from Policy's cookie flags. Pass a shared *ckjar.Jar
	// across multiple Clients to share cookies between them (spec.md §5
	// "the cookie jar may be shared between requests").
	Jar *ckjar.Jar

	// Logger and Metrics are optional; nil is valid and every call
	// becomes a no-op (logger.Logger and metrics.Metrics are both
	// nil-safe).
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

func (c Config) jarAcceptOptions() ckjar.AcceptOptions {
	return ckjar.AcceptOptions{
		EscapeValuesOnReceive:      c.Policy.EscapeValuesOnReceive,
		IgnoreInvalidCookie:        c.Policy.IgnoreInvalidCookie,
		IgnoreSetForExpiredCookies: c.Policy.IgnoreSetForExpiredCookies,
		ExpireBeforeSet:            c.Policy.ExpireBeforeSet,
	}
}
