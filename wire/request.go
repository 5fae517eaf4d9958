package wire

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/soheilmv/mvnet/content"
	"github.com/soheilmv/mvnet/requri"
	"github.com/soheilmv/mvnet/wireerr"
)

// ReservedHeaders are managed exclusively by the framer; a caller trying to
// set one directly on the permanent/temporary header map must be rejected
// (spec.md §3 invariants).
var ReservedHeaders = []string{
	"Host", "Content-Length", "Content-Type", "Connection",
	"Proxy-Connection", "Accept-Encoding",
}

// IsReservedHeader reports whether key (case-insensitive) is one of
// ReservedHeaders.
func IsReservedHeader(key string) bool {
	for _, r := range ReservedHeaders {
		if strings.EqualFold(r, key) {
			return true
		}
	}
	return false
}

func bodyfulMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// ProxyContext carries the handful of proxy-shaped decisions the framer
// needs: whether the active proxy is HTTP-type (governing Proxy-Connection
// vs. Connection and the absolute-URI start line), and any proxy Basic
// credentials.
type ProxyContext struct {
	IsHTTPProxy            bool
	AbsoluteURIInStartLine bool
	AuthUser, AuthPass     string // proxy Basic credentials, both empty if none
}

// RequestSpec describes one outbound request for WriteRequest.
type RequestSpec struct {
	Method  string
	URI     *requri.URI
	Version string // e.g. "1.1"

	Proxy    ProxyContext
	KeepAlive bool

	OriginAuthUser, OriginAuthPass string // origin Basic credentials

	AcceptEncodingEnabled bool   // advertise Accept-Encoding: gzip,deflate
	AcceptLanguageLocale  string // e.g. "en-US" or "fr-FR"
	Charset               string // e.g. "UTF-8"

	// FingerprintHeaders, when set, is a browser-profile preset header
	// layer seeded directly beneath the caller's own overlays (spec.md
	// §4.3): written right after the 8-step base headers, so Permanent and
	// Temporary entries can still replace any header the profile presets.
	FingerprintHeaders *OrderedHeader

	Permanent *OrderedHeader // caller's permanent headers, overlaid after base
	Temporary *OrderedHeader // caller's temporary headers, overlaid last

	CookieHeaderLines []string // pre-formatted Cookie header value(s), may be nil

	Content content.Source // nil for bodyless requests

	TCPSendBufferSize int // chunk size for streaming the body; 0 means "whole buffer at once"

	OnUploadProgress func(sent, total int64)
}

func basicAuthValue(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// buildBaseHeaders computes the 8-step base header set from spec.md §4.3,
// in OrderedHeader form so the assembly order is fixed on the wire.
func buildBaseHeaders(spec RequestSpec) *OrderedHeader {
	h := &OrderedHeader{}

	// Step 1: Host.
	h.Add("Host", spec.URI.HostHeader())

	// Step 2: Proxy-Connection or Connection.
	connValue := "close"
	if spec.KeepAlive {
		connValue = "keep-alive"
	}
	if spec.Proxy.IsHTTPProxy {
		h.Add("Proxy-Connection", connValue)
	} else {
		h.Add("Connection", connValue)
	}

	// Step 3: Proxy-Authorization.
	if spec.Proxy.IsHTTPProxy && spec.Proxy.AuthUser != "" {
		h.Add("Proxy-Authorization", basicAuthValue(spec.Proxy.AuthUser, spec.Proxy.AuthPass))
	}

	// Step 4: Authorization.
	if spec.OriginAuthUser != "" {
		h.Add("Authorization", basicAuthValue(spec.OriginAuthUser, spec.OriginAuthPass))
	}

	// Step 5: Accept-Encoding.
	if spec.AcceptEncodingEnabled {
		h.Add("Accept-Encoding", "gzip,deflate")
	}

	// Step 6: Accept-Language.
	if locale := spec.AcceptLanguageLocale; locale != "" {
		h.Add("Accept-Language", acceptLanguageValue(locale))
	}

	// Step 7: Accept-Charset.
	if charset := spec.Charset; charset != "" {
		h.Add("Accept-Charset", acceptCharsetValue(charset))
	}

	// Step 8: Content-Type / Content-Length for bodyful methods.
	if bodyfulMethod(spec.Method) && spec.Content != nil {
		if ct := spec.Content.ContentType(); ct != "" {
			h.Add("Content-Type", ct)
		}
		if n := spec.Content.ContentLength(); n >= 0 {
			h.Add("Content-Length", fmt.Sprintf("%d", n))
		}
	}

	return h
}

func acceptLanguageValue(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return locale
	}
	parts := strings.SplitN(locale, "-", 2)
	lang := parts[0]
	return fmt.Sprintf("%s,%s;q=0.8,en-US;q=0.6,en;q=0.4", locale, lang)
}

func acceptCharsetValue(charset string) string {
	if strings.EqualFold(charset, "UTF-8") {
		return "utf-8;q=0.7,*;q=0.3"
	}
	return fmt.Sprintf("%s,utf-8;q=0.7,*;q=0.3", charset)
}

// WriteRequest serializes spec onto w: start line, assembled headers
// (base, then the fingerprint preset, then permanent overlay, then
// temporary overlay, then cookies), blank line, and body (chunked into
// TCPSendBufferSize-sized writes with upload-progress callbacks). It
// returns the total bytes written.
func WriteRequest(w io.Writer, spec RequestSpec) (int64, error) {
	h := buildBaseHeaders(spec)
	if spec.FingerprintHeaders != nil {
		h.AppendFrom(spec.FingerprintHeaders)
	}
	if spec.Permanent != nil {
		h.AppendFrom(spec.Permanent)
	}
	if spec.Temporary != nil {
		h.AppendFrom(spec.Temporary)
	}
	if !h.Has("Cookie") {
		for _, line := range spec.CookieHeaderLines {
			h.Add("Cookie", line)
		}
	}

	target := spec.URI.PathAndQuery()
	if spec.Proxy.IsHTTPProxy && spec.Proxy.AbsoluteURIInStartLine {
		target = spec.URI.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s HTTP/%s\r\n", strings.ToUpper(spec.Method), target, spec.Version)
	h.WriteTo(&sb)
	sb.WriteString("\r\n")

	n, err := io.WriteString(w, sb.String())
	total := int64(n)
	if err != nil {
		return total, wireerr.NewSendFailure(err)
	}

	if !bodyfulMethod(spec.Method) || spec.Content == nil || spec.Content.ContentLength() == 0 {
		return total, nil
	}

	bodyTotal := spec.Content.ContentLength()
	bw := &progressWriter{w: w, total: bodyTotal, onProgress: spec.OnUploadProgress, bufSize: spec.TCPSendBufferSize}
	written, err := spec.Content.WriteTo(bw)
	total += written
	if err != nil {
		return total, wireerr.NewSendFailure(err)
	}
	return total, nil
}

// progressWriter wraps an io.Writer, chunking writes to bufSize bytes (when
// positive) and invoking onProgress after each underlying write, per
// spec.md §4.3's upload-progress requirement.
type progressWriter struct {
	w          io.Writer
	total      int64
	sent       int64
	onProgress func(sent, total int64)
	bufSize    int
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if p.bufSize <= 0 {
		n, err := p.w.Write(b)
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
		return n, err
	}

	written := 0
	for written < len(b) {
		end := written + p.bufSize
		if end > len(b) {
			end = len(b)
		}
		n, err := p.w.Write(b[written:end])
		written += n
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
