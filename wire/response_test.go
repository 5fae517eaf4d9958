package wire_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	kgzip "github.com/klauspost/compress/gzip"

	"github.com/soheilmv/mvnet/wire"
	"github.com/soheilmv/mvnet/wireerr"
)

func readerFrom(raw string) *wire.ReceiverHelper {
	return wire.NewReceiverHelper(strings.NewReader(raw), time.Now().Add(time.Second))
}

func TestReadResponsePlainGetIdentity(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want hello", body)
	}
}

func TestReadResponseToleratesLeadingBlankLinesAndMissingReason(t *testing.T) {
	raw := "\r\n\r\nHTTP/1.1 200\r\nContent-Length: 2\r\n\r\nhi"
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestReadResponseChunkedIdentity(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "Wikipedia" {
		t.Errorf("body = %q, want Wikipedia", body)
	}
}

func TestReadResponseChunkedGzip(t *testing.T) {
	var gz bytes.Buffer
	w := kgzip.NewWriter(&gz)
	if _, err := w.Write([]byte("abc123")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	compressed := gz.Bytes()

	mid := len(compressed) / 2
	chunk1, chunk2 := compressed[:mid], compressed[mid:]

	var body strings.Builder
	fmt.Fprintf(&body, "%x\r\n%s\r\n", len(chunk1), chunk1)
	fmt.Fprintf(&body, "%x\r\n%s\r\n", len(chunk2), chunk2)
	body.WriteString("0\r\n\r\n")

	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nContent-Encoding: gzip\r\n\r\n" + body.String()
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(got) != "abc123" {
		t.Errorf("body = %q, want abc123", got)
	}
}

func TestReadResponseHeadHasZeroLengthBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "HEAD"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("expected zero-length body for HEAD, got %d bytes", len(body))
	}
}

func TestReadResponse204HasZeroLengthBody(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("expected zero-length body for 204, got %d bytes", len(body))
	}
}

func TestReadResponseConnectionCloseDetected(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nhi"
	resp, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{Method: "GET"})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if !resp.ConnectionClose {
		t.Error("expected ConnectionClose to be true")
	}
}

func TestReadResponseSetCookieRoutedToCallback(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\nContent-Length: 0\r\n\r\n"
	var seen []string
	_, err := wire.ReadResponse(readerFrom(raw), wire.ReadOptions{
		Method: "GET",
		OnSetCookie: func(raw string) {
			seen = append(seen, raw)
		},
	})
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if len(seen) != 2 || seen[0] != "a=1" || seen[1] != "b=2" {
		t.Errorf("unexpected Set-Cookie callback order: %v", seen)
	}
}

func TestReadResponseEmptyStreamIsEmptyMessageBody(t *testing.T) {
	_, err := wire.ReadResponse(readerFrom(""), wire.ReadOptions{Method: "GET"})
	if err == nil {
		t.Fatal("expected error for empty stream")
	}
	var rf *wireerr.ReceiveFailure
	if !errors.As(err, &rf) || !rf.EmptyMessageBody {
		t.Fatalf("expected ReceiveFailure with EmptyMessageBody, got %v", err)
	}
}
