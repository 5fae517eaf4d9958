package batch_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soheilmv/mvnet/batch"
	"github.com/soheilmv/mvnet/client"
	"github.com/soheilmv/mvnet/config"
)

// serveOne accepts a single connection on l, reads and discards one
// request, and writes back a fixed 200 response whose body is id. It
// reports failures via t.Errorf rather than t.Fatalf since it runs
// inside its own goroutine.
func serveOne(t *testing.T, l net.Listener, id string) {
	t.Helper()
	conn, err := l.Accept()
	if err != nil {
		t.Errorf("accept: %v", err)
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		if line == "\r\n" {
			break
		}
	}
	fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(id), id)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReadWriteTimeout = 2 * time.Second
	return cfg
}

func newPool(t *testing.T, n int) *batch.Pool {
	t.Helper()
	p, err := batch.NewFromConfig(n, client.Config{Policy: testConfig()})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	p.Start()
	t.Cleanup(func() { p.Stop() })
	return p
}

func TestPoolSendPreservesOrder(t *testing.T) {
	const n = 4
	listeners := make([]net.Listener, n)
	requests := make([]client.Request, n)
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen %d: %v", i, err)
		}
		t.Cleanup(func() { l.Close() })
		listeners[i] = l

		id := fmt.Sprintf("resp-%d", i)
		go serveOne(t, l, id)

		host, port, _ := net.SplitHostPort(l.Addr().String())
		requests[i] = client.Request{Method: "GET", URL: fmt.Sprintf("http://%s:%s/%d", host, port, i)}
	}

	p := newPool(t, 2)
	results := p.Send(context.Background(), requests)

	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("request %d: %v", i, r.Err)
			continue
		}
		want := fmt.Sprintf("resp-%d", i)
		if string(r.Response.Body) != want {
			t.Errorf("request %d body = %q, want %q", i, r.Response.Body, want)
		}
	}
}

func TestPoolSendDistributesAcrossWorkers(t *testing.T) {
	const total = 6
	var served int32
	listeners := make([]net.Listener, total)
	requests := make([]client.Request, total)
	for i := 0; i < total; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen %d: %v", i, err)
		}
		t.Cleanup(func() { l.Close() })
		listeners[i] = l

		go func(l net.Listener) {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			atomic.AddInt32(&served, 1)
			r := bufio.NewReader(conn)
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if line == "\r\n" {
					break
				}
			}
			io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
		}(l)

		host, port, _ := net.SplitHostPort(l.Addr().String())
		requests[i] = client.Request{Method: "GET", URL: fmt.Sprintf("http://%s:%s/", host, port)}
	}

	p := newPool(t, 3)
	results := p.Send(context.Background(), requests)

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("request %d: %v", i, r.Err)
		}
	}
	if got := atomic.LoadInt32(&served); got != total {
		t.Errorf("served %d requests, want %d", got, total)
	}
}

func TestPoolStopClosesClients(t *testing.T) {
	p, err := batch.NewFromConfig(2, client.Config{Policy: testConfig()})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	p.Start()
	if err := p.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestNewFromConfigDefaultsNonPositiveCount(t *testing.T) {
	p, err := batch.NewFromConfig(0, client.Config{Policy: testConfig()})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if got := p.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	p.Start()
	p.Stop()
}
