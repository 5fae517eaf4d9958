package client

import (
	"crypto/x509"
	"io"

	"github.com/soheilmv/mvnet/content"
	"github.com/soheilmv/mvnet/wire"
)

// Request is the single argument to Client.Send (spec.md §4.8: "single
// entry send(request) -> response").
type Request struct {
	Method string
	URL    string

	// Body is the request content source; nil for a bodyless request. If
	// it implements io.Closer, Send closes it after the exchange,
	// including on failure.
	Body content.Source

	// Headers are this request's temporary headers, overlaid after the
	// client's permanent headers. They are cleared on every followed
	// redirect unless KeepTemporaryHeadersOnRedirect is set; even then,
	// Authorization, Proxy-Authorization and Cookie are removed from them on
	// a host-changing redirect. Send rejects them with InvalidInput if they
	// contain one of wire.ReservedHeaders.
	Headers *wire.OrderedHeader

	// Proxy overrides the client's default proxy for this request only
	// (spec.md §4.8: "request-local override > global > none").
	Proxy string

	// BasicAuthUser/BasicAuthPass, when set, populate the origin
	// Authorization header (spec.md §4.3 step 4).
	BasicAuthUser, BasicAuthPass string

	OnUploadProgress   func(sent, total int64)
	OnDownloadProgress func(received, total int64)
}

// Response is what Send returns on a non-error exchange. Body is read to
// completion (post content-decoding) before Send returns, since the
// connection slot's fate (reuse vs. teardown) depends on having drained it.
type Response struct {
	StatusCode int
	Reason     string
	Headers    *wire.OrderedHeader
	Body       []byte

	// MiddleHeaders holds one entry per intermediate redirect hop's
	// response headers, in hop order, when Policy.EnableMiddleHeaders is
	// set; nil otherwise.
	MiddleHeaders []*wire.OrderedHeader

	RedirectCount int
	FinalURL      string

	// TLS diagnostics for the connection the final hop was read from (spec.md
	// §3's "negotiated cipher suite, TLS protocol, peer certificate"); zero
	// values when the final hop was plain HTTP.
	CipherSuite uint16
	TLSVersion  uint16
	PeerCert    *x509.Certificate

	// ReconnectCount is the number of counted fail-reconnects (keepalive's
	// bounded reconnect loop) spent across every hop of this Send, summed
	// over redirects. It excludes the silent keep-alive reconnect on an
	// empty read, per spec.md §4.7 and the reconnect_count == 0 scenario in
	// §8.
	ReconnectCount int
}

// progressReader wraps a response body reader, invoking onProgress after
// every underlying Read — the download-progress half of spec.md §6's
// observable callbacks (progressWriter in package wire is the upload half).
type progressReader struct {
	r          io.Reader
	total      int64
	received   int64
	onProgress func(received, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.received += int64(n)
		p.onProgress(p.received, p.total)
	}
	return n, err
}

func closeBody(src content.Source) {
	if c, ok := src.(io.Closer); ok {
		c.Close()
	}
}
