// Package client drives spec.md §4.8's single send(request) -> response
// operation: it wires proxydial, tlsupgrade, wire, keepalive, redirectctl
// and ckjar together behind one mutex-guarded Client, in the shape of the
// teacher's NewHTTPClient/session.Session pairing generalized from
// net/http.Transport to the engine's own connect/TLS/framing/keep-alive
// plumbing.
package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/soheilmv/mvnet/ckjar"
	"github.com/soheilmv/mvnet/content"
	"github.com/soheilmv/mvnet/keepalive"
	"github.com/soheilmv/mvnet/proxydial"
	"github.com/soheilmv/mvnet/redirectctl"
	"github.com/soheilmv/mvnet/requri"
	"github.com/soheilmv/mvnet/tlsupgrade"
	"github.com/soheilmv/mvnet/wire"
	"github.com/soheilmv/mvnet/wireerr"
)

// Client drives one logical stream of requests: its own connection slot,
// proxy selection, and (unless a jar was shared in via Config.Jar) its own
// cookie jar. A *Client is not meant to serve concurrent Sends — spec.md
// §5 assigns concurrency to independent client instances, not to locking
// inside one.
type Client struct {
	cfg       Config
	dialer    proxydial.Dialer
	jar       *ckjar.Jar
	keepalive *keepalive.Controller

	mu        sync.Mutex
	permanent *wire.OrderedHeader
}

// New builds a Client from cfg. cfg.Policy is required; a Config left at
// its zero value is rejected rather than silently degrading to defaults,
// so a usable Client can only come from a deliberately constructed Config.
func New(cfg Config) (*Client, error) {
	if cfg.Policy == nil {
		return nil, wireerr.NewInvalidInput("client: Config.Policy is required")
	}

	jar := cfg.Jar
	if jar == nil && cfg.Policy.UseCookies {
		jar = ckjar.New(cfg.jarAcceptOptions())
	}

	var dialer proxydial.Dialer = proxydial.Direct{}
	if cfg.Proxy != "" {
		d, err := proxydial.New(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		dialer = d
	}

	return &Client{
		cfg:    cfg,
		dialer: dialer,
		jar:    jar,
		keepalive: keepalive.NewController(keepalive.Config{
			MaxKeepAliveRequests: cfg.Policy.MaxKeepAliveRequests,
			IdleTimeout:          cfg.Policy.KeepAliveIdleTimeout,
			Reconnect:            cfg.Policy.Reconnect,
			ReconnectLimit:       cfg.Policy.ReconnectLimit,
			ReconnectDelay:       cfg.Policy.ReconnectDelay,
		}),
		permanent: &wire.OrderedHeader{},
	}, nil
}

// SetHeader adds key/value to the client's permanent header set, overlaid
// on every request after the framer's own base headers. key must not be
// one of wire.ReservedHeaders.
func (c *Client) SetHeader(key, value string) error {
	if wire.IsReservedHeader(key) {
		return wireerr.NewInvalidInput("header " + key + " is managed by the framer")
	}
	if value == "" && !c.cfg.Policy.AllowEmptyHeaderValues {
		return wireerr.NewInvalidInput("empty value not allowed for header " + key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permanent.Set(key, value)
	return nil
}

func (c *Client) permanentSnapshot() *wire.OrderedHeader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permanent.Clone()
}

// Close tears down the client's connection slot, if one is open.
func (c *Client) Close() error {
	slot := c.keepalive.Current()
	if slot == nil {
		return nil
	}
	c.keepalive.Invalidate()
	return slot.Conn.Close()
}

// Jar returns the client's cookie jar, or nil if cookies are disabled.
func (c *Client) Jar() *ckjar.Jar { return c.jar }

// Send implements spec.md §4.8: resolve the proxy, drive the connect →
// TLS → write → read → redirect chain, and return the final response.
// req.Body is closed after the exchange, on success or failure.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Body != nil {
		defer closeBody(req.Body)
	}

	method := req.Method
	if method == "" {
		method = "GET"
	}

	uri, err := requri.Parse(req.URL)
	if err != nil {
		c.cfg.Metrics.ObserveFailure()
		c.cfg.Metrics.ObserveProtocolError("input")
		return nil, err
	}

	if req.Headers != nil {
		for _, e := range req.Headers.Entries() {
			if wire.IsReservedHeader(e.Key) {
				c.cfg.Metrics.ObserveFailure()
				c.cfg.Metrics.ObserveProtocolError("input")
				return nil, wireerr.NewInvalidInput("header " + e.Key + " is managed by the framer")
			}
		}
	}

	body := req.Body
	permanent := c.permanentSnapshot()
	temporary := req.Headers
	var middleHeaders []*wire.OrderedHeader
	redirectCount := 0
	totalReconnects := 0

	for {
		hop, err := c.sendOnce(ctx, method, uri, body, permanent, temporary, req)
		if err != nil {
			c.cfg.Metrics.ObserveFailure()
			c.cfg.Metrics.ObserveProtocolError(errorKind(err))
			return nil, err
		}
		totalReconnects += hop.reconnectCount

		if !redirectctl.IsRedirect(hop.resp.StatusCode, hop.resp.Headers) {
			if !c.cfg.Policy.IgnoreProtocolErrors && hop.resp.StatusCode >= 400 {
				c.cfg.Metrics.ObserveFailure()
				c.cfg.Metrics.ObserveProtocolError("status")
				return nil, wireerr.NewProtocolStatusError(hop.resp.StatusCode)
			}
			c.cfg.Metrics.ObserveSuccess()
			return c.finalResponse(hop, uri, middleHeaders, redirectCount, totalReconnects), nil
		}

		decision, err := redirectctl.Next(uri, hop.resp.StatusCode, hop.resp.Headers, redirectCount, c.cfg.Policy.MaxRedirects)
		if err != nil {
			c.cfg.Metrics.ObserveFailure()
			return nil, err
		}
		if decision.External {
			// spec.md §4.6 step 2: an external (non-http/https) redirect
			// target is surfaced to the caller verbatim, not followed.
			c.cfg.Metrics.ObserveSuccess()
			return c.finalResponse(hop, uri, middleHeaders, redirectCount, totalReconnects), nil
		}
		if c.cfg.Policy.EnableMiddleHeaders {
			middleHeaders = append(middleHeaders, hop.resp.Headers)
		}
		c.cfg.Metrics.ObserveRedirect()
		c.cfg.Logger.Debugf("following redirect from %s to %s (status %d)", uri.String(), decision.NextURI.String(), hop.resp.StatusCode)

		nextPermanent, nextTemporary := redirectctl.ApplyHostChange(permanent, temporary, c.cfg.Policy.KeepTemporaryHeadersOnRedirect)
		if decision.HostChanged {
			permanent = nextPermanent
		}
		temporary = redirectctl.StripSensitiveOnHostChange(nextTemporary, decision.HostChanged)

		if decision.DropBody {
			method = "GET"
			body = nil
		}
		uri = decision.NextURI
		redirectCount++
	}
}

// finalResponse builds the Response returned for the terminal hop of a
// Send — either a non-redirect status or an external redirect target that
// won't be followed — stamping the TLS diagnostics of the connection that
// hop was read over (zero values for plain HTTP) and the total reconnect
// count spent across every hop.
func (c *Client) finalResponse(hop *hopResult, uri *requri.URI, middleHeaders []*wire.OrderedHeader, redirectCount, totalReconnects int) *Response {
	resp := &Response{
		StatusCode:     hop.resp.StatusCode,
		Reason:         hop.resp.Reason,
		Headers:        hop.resp.Headers,
		Body:           hop.body,
		MiddleHeaders:  middleHeaders,
		RedirectCount:  redirectCount,
		FinalURL:       uri.String(),
		ReconnectCount: totalReconnects,
	}
	if hop.tls != nil {
		resp.CipherSuite = hop.tls.CipherSuite
		resp.TLSVersion = hop.tls.Version
		resp.PeerCert = hop.tls.PeerCert
	}
	return resp
}

// hopResult bundles one wire-level exchange's parsed response with its
// fully-drained (and content-decoded) body, the TLS handshake diagnostics
// for the connection it was read from (nil for plain HTTP), and the
// number of counted fail-reconnects it took to complete (spec.md §3's
// Response "reconnect count" diagnostic — the silent keep-alive
// reconnect is deliberately excluded, per §4.7's "not counted toward
// reconnection budgets").
type hopResult struct {
	resp           *wire.Response
	body           []byte
	tls            *tlsupgrade.Result
	reconnectCount int
}

// errorKind labels an error with the wireerr kind metrics.ObserveProtocolError
// expects, for per-kind failure counting.
func errorKind(err error) string {
	var connectFailure *wireerr.ConnectFailure
	var sendFailure *wireerr.SendFailure
	var receiveFailure *wireerr.ReceiveFailure
	var protocolError *wireerr.ProtocolError
	var proxyError *wireerr.ProxyError
	var invalidCookie *wireerr.InvalidCookie
	var invalidInput *wireerr.InvalidInput
	switch {
	case errors.As(err, &connectFailure):
		return "connect"
	case errors.As(err, &sendFailure):
		return "send"
	case errors.As(err, &receiveFailure):
		return "receive"
	case errors.As(err, &protocolError):
		return "protocol"
	case errors.As(err, &proxyError):
		return "proxy"
	case errors.As(err, &invalidCookie):
		return "cookie"
	case errors.As(err, &invalidInput):
		return "input"
	default:
		return "unknown"
	}
}

// sendOnce drives one connect-or-reuse / write / read cycle for the
// current uri, applying the silent keep-alive reconnect (an immediate,
// uncounted retry on an empty read from a reused slot) and the bounded
// fail-reconnect loop (spec.md §4.7) around everything else.
func (c *Client) sendOnce(ctx context.Context, method string, uri *requri.URI, body content.Source, permanent, temporary *wire.OrderedHeader, req Request) (*hopResult, error) {
	dialer, err := c.pickDialer(uri, req.Proxy)
	if err != nil {
		return nil, err
	}
	identity := dialer.Identity()
	origin := keepalive.Origin{Scheme: uri.Scheme, Host: uri.Host, Port: uri.Port}

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, reused, tlsResult, err := c.acquireConn(ctx, dialer, identity, origin, uri)
		if err != nil {
			wait, retry := c.keepalive.ReconnectDecision(attempt)
			if !retry {
				return nil, err
			}
			attempt++
			time.Sleep(wait)
			continue
		}

		hop, err := c.exchange(ctx, conn, dialer, method, uri, body, permanent, temporary, req.BasicAuthUser, req.BasicAuthPass, req.OnUploadProgress, req.OnDownloadProgress)
		if err == nil {
			hop.tls = tlsResult
			hop.reconnectCount = attempt
			return hop, nil
		}

		var receiveFailure *wireerr.ReceiveFailure
		if reused && errors.As(err, &receiveFailure) && receiveFailure.EmptyMessageBody {
			c.keepalive.Invalidate()
			conn.Close()
			c.cfg.Metrics.ObserveReconnect()
			c.cfg.Logger.Debugf("silent keep-alive reconnect for %s:%d", origin.Host, origin.Port)
			continue // not counted against the reconnect budget
		}

		c.keepalive.Invalidate()
		conn.Close()
		wait, retry := c.keepalive.ReconnectDecision(attempt)
		if !retry {
			return nil, err
		}
		attempt++
		c.cfg.Metrics.ObserveReconnect()
		time.Sleep(wait)
	}
}

// acquireConn returns a connection slot for (identity, origin): the
// current slot if it is eligible for reuse, or a freshly dialed and (for
// https) TLS-upgraded one. The returned *tlsupgrade.Result is nil for a
// plain-text origin, and on reuse is the handshake result recorded when
// the slot was first installed.
func (c *Client) acquireConn(ctx context.Context, dialer proxydial.Dialer, identity string, origin keepalive.Origin, uri *requri.URI) (net.Conn, bool, *tlsupgrade.Result, error) {
	if slot, ok := c.keepalive.Reuse(identity, origin, time.Now()); ok {
		return slot.Conn, true, slot.TLSResult, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, false, nil, err
	}

	conn, err := dialer.Dial(ctx, uri.Host, uri.Port, c.cfg.Policy.ConnectTimeout, c.cfg.Policy.ReadWriteTimeout)
	if err != nil {
		return nil, false, nil, err
	}
	c.cfg.Logger.Debugf("connected via %s to %s:%d", identity, origin.Host, origin.Port)

	var tlsResult *tlsupgrade.Result
	if uri.Scheme == "https" {
		if err := ctx.Err(); err != nil {
			conn.Close()
			return nil, false, nil, err
		}
		result, err := c.upgradeTLS(conn, uri.Host)
		if err != nil {
			return nil, false, nil, err
		}
		conn = result.Conn
		tlsResult = result
		c.cfg.Logger.Debugf("tls handshake complete for %s:%d (alpn=%s)", origin.Host, origin.Port, result.NegotiatedALPN)
	}

	c.keepalive.Install(conn, identity, origin)
	c.keepalive.SetTLSResult(tlsResult)
	return conn, false, tlsResult, nil
}

func (c *Client) upgradeTLS(conn net.Conn, host string) (*tlsupgrade.Result, error) {
	if c.cfg.Fingerprint != nil {
		return tlsupgrade.UpgradeUTLS(conn, host, c.cfg.Fingerprint, c.cfg.TLS.InsecureAcceptAll)
	}
	return tlsupgrade.Upgrade(conn, host, c.cfg.TLS)
}

// pickDialer resolves the proxy for one request: per-request override,
// then loopback bypass, then the pool/default configured on the client
// (spec.md §4.8).
func (c *Client) pickDialer(uri *requri.URI, override string) (proxydial.Dialer, error) {
	if override != "" {
		return proxydial.New(override)
	}
	if uri.IsLoopback() && c.cfg.Policy.BypassProxyForLoopback {
		return proxydial.Direct{}, nil
	}
	if c.cfg.ProxyPool != nil {
		if d := c.cfg.ProxyPool.Next(); d != nil {
			return d, nil
		}
		return proxydial.Direct{}, nil
	}
	return c.dialer, nil
}

// proxyAuth extracts HTTP-proxy Basic credentials from dialer, if it is
// one. Only HTTPConnectDialer carries them; every other variant
// authenticates inside its own handshake, not on each subsequent request.
func proxyAuth(dialer proxydial.Dialer) (user, pass string) {
	if h, ok := dialer.(*proxydial.HTTPConnectDialer); ok {
		return h.User, h.Pass
	}
	return "", ""
}

// exchange writes one request onto conn and reads its response, wiring
// jar lookups/accepts, progress callbacks, and the read_write_timeout
// deadlines: one write deadline set before the request is written and one
// read deadline set before the response is read, each covering that whole
// phase rather than each individual socket operation.
func (c *Client) exchange(ctx context.Context, conn net.Conn, dialer proxydial.Dialer, method string, uri *requri.URI, body content.Source, permanent, temporary *wire.OrderedHeader, basicUser, basicPass string, onUpload, onDownload func(int64, int64)) (*hopResult, error) {
	rw := c.cfg.Policy.ReadWriteTimeout

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rw > 0 {
		conn.SetWriteDeadline(time.Now().Add(rw))
	}

	var cookieLines []string
	if c.jar != nil && c.cfg.Policy.UseCookies {
		cookieLines = c.jar.FormatHeader(uri, c.cfg.Policy.CookieSingleHeader, c.cfg.Policy.UnescapeValuesOnSend)
	}

	proxyUser, proxyPass := proxyAuth(dialer)
	absoluteURI := dialer.IsHTTPProxy() && uri.Scheme == "http" && uri.IsDefaultPort()

	var fingerprintHeaders *wire.OrderedHeader
	if c.cfg.Fingerprint != nil {
		fingerprintHeaders = c.cfg.Fingerprint.Headers()
	}

	spec := wire.RequestSpec{
		Method:             method,
		URI:                uri,
		Version:            "1.1",
		FingerprintHeaders: fingerprintHeaders,
		Proxy: wire.ProxyContext{
			IsHTTPProxy:            dialer.IsHTTPProxy(),
			AbsoluteURIInStartLine: absoluteURI,
			AuthUser:               proxyUser,
			AuthPass:               proxyPass,
		},
		KeepAlive:             true,
		OriginAuthUser:        basicUser,
		OriginAuthPass:        basicPass,
		AcceptEncodingEnabled: c.cfg.Policy.EnableContentEncoding,
		AcceptLanguageLocale:  c.cfg.Policy.AcceptLanguageLocale,
		Charset:               c.cfg.Policy.Charset,
		Permanent:             permanent,
		Temporary:             temporary,
		CookieHeaderLines:     cookieLines,
		Content:               body,
		TCPSendBufferSize:     c.cfg.Policy.TCPSendBufferSize,
		OnUploadProgress:      onUpload,
	}

	n, err := wire.WriteRequest(conn, spec)
	if err != nil {
		return nil, err
	}
	c.cfg.Metrics.ObserveRequestBytes(int(n))

	var deadline time.Time
	if rw > 0 {
		deadline = time.Now().Add(rw)
		conn.SetReadDeadline(deadline)
	}
	rh := wire.NewReceiverHelper(conn, deadline)

	resp, err := wire.ReadResponse(rh, wire.ReadOptions{
		Method: method,
		OnSetCookie: func(raw string) {
			if c.jar != nil && c.cfg.Policy.UseCookies {
				c.jar.Accept(uri, raw)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader = resp.Body
	if onDownload != nil {
		total := int64(-1)
		if cl := resp.Headers.Get("Content-Length"); cl != "" {
			if parsed, err := strconv.ParseInt(cl, 10, 64); err == nil {
				total = parsed
			}
		}
		bodyReader = &progressReader{r: resp.Body, total: total, onProgress: onDownload}
	}
	bodyBytes, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}
	c.cfg.Metrics.ObserveResponseBytes(len(bodyBytes))

	c.keepalive.NoteResponse(resp.Headers.Get("Keep-Alive"), resp.ConnectionClose, false)
	if resp.ConnectionClose {
		conn.Close()
	}

	return &hopResult{resp: resp, body: bodyBytes}, nil
}
