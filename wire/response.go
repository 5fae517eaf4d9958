package wire

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	kgzip "github.com/klauspost/compress/gzip"
	kflate "github.com/klauspost/compress/flate"

	"github.com/soheilmv/mvnet/wireerr"
)

// Response is the parsed wire response: status line, headers (in received
// order), and a lazily-read Body composed per the body-framing decision
// table. ConnectionClose is true when a Connection: close or
// Proxy-Connection: close header was observed, forcing the keep-alive
// controller to drop the slot after Body is drained.
type Response struct {
	StatusCode int
	Version    string
	Reason     string
	Headers    *OrderedHeader
	Body       io.Reader
	ConnectionClose bool
}

// ReadOptions configures ReadResponse.
type ReadOptions struct {
	// Method is the request method; HEAD responses get a zero-length body
	// regardless of framing hints.
	Method string
	// OnSetCookie, if non-nil, is invoked once per Set-Cookie header
	// observed, in header order, before the header is otherwise discarded.
	OnSetCookie func(raw string)
}

// zeroLengthStatus are the status codes that always carry an empty body
// regardless of Content-Length/Transfer-Encoding hints.
func zeroLengthStatus(code int) bool {
	switch code {
	case 100, 204, 304:
		return true
	}
	return false
}

// ReadResponse reads and parses one HTTP/1.1 response from r.
func ReadResponse(r *ReceiverHelper, opt ReadOptions) (*Response, error) {
	statusLine, err := readStatusLine(r)
	if err != nil {
		return nil, err
	}

	resp := &Response{StatusCode: statusLine.code, Version: statusLine.version, Reason: statusLine.reason, Headers: &OrderedHeader{}}

	if err := readHeaders(r, resp, opt); err != nil {
		return nil, err
	}

	resp.Body = frameBody(r, resp, opt.Method)
	return resp, nil
}

type statusLineInfo struct {
	version string
	code    int
	reason  string
}

// readStatusLine reads lines, tolerating stray leading blank lines, until it
// finds one that parses as "HTTP/<ver> <code>[ <reason>]". An empty line
// where a status line is expected (i.e. no status line at all before EOF)
// fails with the empty_message_body flag that drives the silent reconnect.
func readStatusLine(r *ReceiverHelper) (statusLineInfo, error) {
	for {
		line, err := r.ReadLine()
		trimmed := strings.TrimRight(string(line), "\r\n")
		if trimmed == "" {
			if err == io.EOF {
				return statusLineInfo{}, wireerr.NewEmptyMessageBody(io.EOF)
			}
			if err != nil {
				return statusLineInfo{}, wireerr.NewReceiveFailure(err)
			}
			continue // tolerate stray blank line before the real status line
		}
		if err != nil && err != io.EOF {
			return statusLineInfo{}, wireerr.NewReceiveFailure(err)
		}
		return parseStatusLine(trimmed)
	}
}

func parseStatusLine(line string) (statusLineInfo, error) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(line, prefix) {
		return statusLineInfo{}, wireerr.NewReceiveFailure(fmt.Errorf("malformed status line: %q", line))
	}
	rest := line[len(prefix):]
	spIdx := strings.IndexByte(rest, ' ')
	if spIdx == -1 {
		return statusLineInfo{}, wireerr.NewReceiveFailure(fmt.Errorf("malformed status line: %q", line))
	}
	version := rest[:spIdx]
	rest = strings.TrimLeft(rest[spIdx+1:], " ")

	codeStr := rest
	reason := ""
	if sp2 := strings.IndexByte(rest, ' '); sp2 != -1 {
		codeStr = rest[:sp2]
		reason = strings.TrimSpace(rest[sp2+1:])
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return statusLineInfo{}, wireerr.NewReceiveFailure(fmt.Errorf("malformed status code in %q: %w", line, err))
	}
	return statusLineInfo{version: version, code: code, reason: reason}, nil
}

// readHeaders reads header lines until a blank line, routing Set-Cookie
// lines to opt.OnSetCookie and recording every other header (later
// occurrences overwrite earlier ones, matching net/http's header model for
// non-list headers while still recording insertion order for the rest).
func readHeaders(r *ReceiverHelper, resp *Response, opt ReadOptions) error {
	for {
		line, err := r.ReadLine()
		if err != nil && err != io.EOF {
			return wireerr.NewReceiveFailure(err)
		}
		trimmed := strings.TrimRight(string(line), "\r\n")
		if trimmed == "" {
			return nil
		}
		idx := strings.IndexByte(trimmed, ':')
		if idx == -1 {
			return wireerr.NewReceiveFailure(fmt.Errorf("malformed header line: %q", trimmed))
		}
		key := trimmed[:idx]
		value := strings.Trim(trimmed[idx+1:], " \t\r\n")

		if strings.EqualFold(key, "Set-Cookie") {
			if opt.OnSetCookie != nil {
				opt.OnSetCookie(value)
			}
			continue
		}

		resp.Headers.Set(key, value)

		if (strings.EqualFold(key, "Connection") || strings.EqualFold(key, "Proxy-Connection")) &&
			strings.EqualFold(value, "close") {
			resp.ConnectionClose = true
		}

		if err == io.EOF {
			return nil
		}
	}
}

// frameBody implements spec.md §4.4's body-framing decision table.
func frameBody(r *ReceiverHelper, resp *Response, method string) io.Reader {
	if strings.EqualFold(method, "HEAD") || zeroLengthStatus(resp.StatusCode) {
		return bytes.NewReader(nil)
	}

	encoding := strings.ToLower(resp.Headers.Get("Content-Encoding"))
	transferEncoding := strings.ToLower(resp.Headers.Get("Transfer-Encoding"))
	chunked := transferEncoding == "chunked"

	var contentLength int64 = -1
	hasLength := false
	if cl := resp.Headers.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			contentLength = n
			hasLength = true
		}
	}

	var raw io.Reader
	switch {
	case chunked:
		raw = newChunkedReader(r)
	case hasLength:
		raw = io.LimitReader(r, contentLength)
	default:
		raw = r
	}

	switch encoding {
	case "", "identity":
		return raw
	case "gzip":
		return &lazyDecompressReader{open: func() (io.ReadCloser, error) { return kgzip.NewReader(raw) }}
	case "deflate":
		return &lazyDecompressReader{open: func() (io.ReadCloser, error) {
			return kflate.NewReader(raw), nil
		}}
	default:
		return &errorReader{err: wireerr.NewReceiveFailure(fmt.Errorf("unsupported Content-Encoding %q", encoding))}
	}
}

// lazyDecompressReader defers opening the underlying decompressor until the
// first Read, so a response whose body is never read (e.g. discarded
// because the caller only wanted the status code) never pays the gzip
// header-parse cost.
type lazyDecompressReader struct {
	open   func() (io.ReadCloser, error)
	opened io.ReadCloser
	err    error
}

func (l *lazyDecompressReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.opened == nil {
		rc, err := l.open()
		if err != nil {
			l.err = wireerr.NewReceiveFailure(err)
			return 0, l.err
		}
		l.opened = rc
	}
	return l.opened.Read(p)
}

type errorReader struct{ err error }

func (e *errorReader) Read([]byte) (int, error) { return 0, e.err }
