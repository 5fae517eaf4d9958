package proxydial

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/soheilmv/mvnet/wireerr"
)

// HTTPConnectDialer tunnels through an HTTP(S) proxy via the CONNECT
// method, per spec.md §4.1.
type HTTPConnectDialer struct {
	Host, User, Pass string
	Port             int
}

func (d *HTTPConnectDialer) Identity() string {
	return fmt.Sprintf("http:%s:%d:%s", d.Host, d.Port, d.User)
}

func (d *HTTPConnectDialer) IsHTTPProxy() bool { return true }

// Dial connects to the proxy, then — unless destPort is 80, in which case
// the CONNECT exchange is skipped and the raw socket is handed back —
// issues a CONNECT and waits for a 200 response.
func (d *HTTPConnectDialer) Dial(ctx context.Context, destHost string, destPort int, connectTimeout, rwTimeout time.Duration) (net.Conn, error) {
	conn, err := dialTCP(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), connectTimeout)
	if err != nil {
		return nil, err
	}

	if destPort == 80 {
		return conn, nil
	}

	target := net.JoinHostPort(destHost, strconv.Itoa(destPort))
	var b strings.Builder
	fmt.Fprintf(&b, "CONNECT %s HTTP/1.1\r\n", target)
	fmt.Fprintf(&b, "Host: %s\r\n", target)
	if d.User != "" || d.Pass != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(d.User + ":" + d.Pass))
		fmt.Fprintf(&b, "Proxy-Authorization: Basic %s\r\n", cred)
	}
	b.WriteString("Proxy-Connection: Keep-Alive\r\n")
	b.WriteString("\r\n")

	if rwTimeout > 0 {
		conn.SetDeadline(time.Now().Add(rwTimeout))
		defer conn.SetDeadline(time.Time{})
	}

	if _, err := conn.Write([]byte(b.String())); err != nil {
		conn.Close()
		return nil, wireerr.NewSendFailure(err)
	}

	reader := bufio.NewReader(conn)
	status, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, wireerr.NewReceiveFailure(err)
	}
	fields := strings.SplitN(strings.TrimSpace(status), " ", 3)
	if len(fields) < 2 || fields[1] != "200" {
		conn.Close()
		return nil, wireerr.NewProxyError("connect:non-200", fmt.Errorf("CONNECT status line %q", status))
	}
	// Drain the remaining response headers until the blank line.
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, wireerr.NewReceiveFailure(err)
		}
		if strings.TrimSpace(line) == "" {
			break
		}
	}

	// reader may have buffered bytes belonging to the tunneled stream
	// (e.g. the start of a TLS ServerHello pipelined behind the CONNECT
	// response); preserve them instead of handing back the raw conn.
	return &bufferedConn{Conn: conn, r: reader}, nil
}

// bufferedConn satisfies net.Conn while draining a bufio.Reader's
// look-ahead buffer before falling through to the underlying connection.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) { return b.r.Read(p) }
