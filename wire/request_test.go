package wire_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soheilmv/mvnet/content"
	"github.com/soheilmv/mvnet/requri"
	"github.com/soheilmv/mvnet/wire"
)

func mustURI(t *testing.T, raw string) *requri.URI {
	t.Helper()
	u, err := requri.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestWriteRequestHostHeaderElidesDefaultPort(t *testing.T) {
	u := mustURI(t, "https://example.com/a/b")
	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:  "GET",
		URI:     u,
		Version: "1.1",
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	if !strings.Contains(buf.String(), "Host: example.com\r\n") {
		t.Errorf("missing or wrong Host header:\n%s", buf.String())
	}
	if strings.Count(buf.String(), "Host:") != 1 {
		t.Errorf("expected exactly one Host header, got:\n%s", buf.String())
	}
}

func TestWriteRequestContentLengthMatchesBytesWritten(t *testing.T) {
	u := mustURI(t, "https://example.com/submit")
	src := content.String("field=value")
	var buf bytes.Buffer
	n, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:  "POST",
		URI:     u,
		Version: "1.1",
		Content: src,
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	wantCL := "Content-Length: 11\r\n"
	if !strings.Contains(buf.String(), wantCL) {
		t.Errorf("missing %q in:\n%s", wantCL, buf.String())
	}
	if !strings.HasSuffix(buf.String(), "field=value") {
		t.Errorf("body not written:\n%s", buf.String())
	}
	if n != int64(buf.Len()) {
		t.Errorf("returned n=%d != buf.Len()=%d", n, buf.Len())
	}
}

func TestWriteRequestHeaderAssemblyOrder(t *testing.T) {
	u := mustURI(t, "https://example.com/")
	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:                "GET",
		URI:                   u,
		Version:               "1.1",
		KeepAlive:             true,
		AcceptEncodingEnabled: true,
		AcceptLanguageLocale:  "en-US",
		Charset:               "UTF-8",
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	lines := strings.Split(buf.String(), "\r\n")
	// lines[0] is the request line; headers follow in assembly order.
	wantOrder := []string{"Host:", "Connection:", "Accept-Encoding:", "Accept-Language:", "Accept-Charset:"}
	idx := 1
	for _, want := range wantOrder {
		if !strings.HasPrefix(lines[idx], want) {
			t.Errorf("line %d = %q, want prefix %q", idx, lines[idx], want)
		}
		idx++
	}
}

func TestWriteRequestProxyConnectionWhenHTTPProxy(t *testing.T) {
	u := mustURI(t, "https://example.com/")
	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:  "GET",
		URI:     u,
		Version: "1.1",
		Proxy:   wire.ProxyContext{IsHTTPProxy: true},
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	if !strings.Contains(buf.String(), "Proxy-Connection: close\r\n") {
		t.Errorf("expected Proxy-Connection header:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "\nConnection:") {
		t.Errorf("did not expect bare Connection header behind an HTTP proxy:\n%s", buf.String())
	}
}

func TestWriteRequestAbsoluteURIBehindHTTPProxy(t *testing.T) {
	u := mustURI(t, "https://example.com/a?b=1")
	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:  "GET",
		URI:     u,
		Version: "1.1",
		Proxy:   wire.ProxyContext{IsHTTPProxy: true, AbsoluteURIInStartLine: true},
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	wantLine := "GET https://example.com/a?b=1 HTTP/1.1\r\n"
	if !strings.HasPrefix(buf.String(), wantLine) {
		t.Errorf("request line = %q, want prefix %q", buf.String(), wantLine)
	}
}

func TestWriteRequestPermanentAndTemporaryOverlay(t *testing.T) {
	u := mustURI(t, "https://example.com/")
	perm := &wire.OrderedHeader{}
	perm.Add("X-Perm", "1")
	temp := &wire.OrderedHeader{}
	temp.Add("X-Temp", "2")

	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:    "GET",
		URI:       u,
		Version:   "1.1",
		Permanent: perm,
		Temporary: temp,
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	if !strings.Contains(buf.String(), "X-Perm: 1\r\n") || !strings.Contains(buf.String(), "X-Temp: 2\r\n") {
		t.Errorf("missing overlaid headers:\n%s", buf.String())
	}
}

func TestWriteRequestFingerprintHeadersSeedUnderPermanentOverlay(t *testing.T) {
	u := mustURI(t, "https://example.com/")
	fp := &wire.OrderedHeader{}
	fp.Add("User-Agent", "fingerprint-ua")
	fp.Add("Accept", "fingerprint-accept")
	perm := &wire.OrderedHeader{}
	perm.Add("User-Agent", "caller-override")

	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:             "GET",
		URI:                u,
		Version:            "1.1",
		FingerprintHeaders: fp,
		Permanent:          perm,
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Accept: fingerprint-accept\r\n") {
		t.Errorf("missing fingerprint preset header:\n%s", out)
	}
	if strings.Contains(out, "fingerprint-ua") {
		t.Errorf("caller's permanent header should have replaced the fingerprint preset:\n%s", out)
	}
	if !strings.Contains(out, "User-Agent: caller-override\r\n") {
		t.Errorf("missing caller-overridden User-Agent:\n%s", out)
	}
}

func TestWriteRequestCookieHeaderOmittedWhenAlreadySet(t *testing.T) {
	u := mustURI(t, "https://example.com/")
	perm := &wire.OrderedHeader{}
	perm.Add("Cookie", "explicit=1")

	var buf bytes.Buffer
	_, err := wire.WriteRequest(&buf, wire.RequestSpec{
		Method:            "GET",
		URI:               u,
		Version:           "1.1",
		Permanent:         perm,
		CookieHeaderLines: []string{"jar=should-not-appear"},
	})
	if err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	if strings.Contains(buf.String(), "jar=should-not-appear") {
		t.Error("jar cookie should not override an explicitly-set Cookie header")
	}
	if !strings.Contains(buf.String(), "Cookie: explicit=1\r\n") {
		t.Error("explicit Cookie header missing")
	}
}

func TestIsReservedHeader(t *testing.T) {
	for _, h := range []string{"host", "Content-Length", "CONNECTION"} {
		if !wire.IsReservedHeader(h) {
			t.Errorf("expected %q to be reserved", h)
		}
	}
	if wire.IsReservedHeader("X-Custom") {
		t.Error("X-Custom should not be reserved")
	}
}
