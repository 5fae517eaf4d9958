package proxydial

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/soheilmv/mvnet/wireerr"
)

// SOCKS5Dialer implements RFC 1928 with optional username/password
// sub-negotiation (RFC 1929), per spec.md §4.1.
type SOCKS5Dialer struct {
	Host, User, Pass string
	Port             int
}

func (d *SOCKS5Dialer) Identity() string {
	return fmt.Sprintf("socks5:%s:%d:%s", d.Host, d.Port, d.User)
}

func (d *SOCKS5Dialer) IsHTTPProxy() bool { return false }

var socks5ReplyErrors = map[byte]string{
	0x01: "general SOCKS server failure",
	0x02: "connection not allowed by ruleset",
	0x03: "network unreachable",
	0x04: "host unreachable",
	0x05: "connection refused",
	0x06: "TTL expired",
	0x07: "command not supported",
	0x08: "address type not supported",
}

var socks5ReplyKind = map[byte]string{
	0x01: "socks5:general-failure",
	0x02: "socks5:not-allowed",
	0x03: "socks5:network-unreachable",
	0x04: "socks5:host-unreachable",
	0x05: "socks5:connection-refused",
	0x06: "socks5:ttl-expired",
	0x07: "socks5:command-not-supported",
	0x08: "socks5:address-type-not-supported",
}

func (d *SOCKS5Dialer) Dial(ctx context.Context, destHost string, destPort int, connectTimeout, rwTimeout time.Duration) (net.Conn, error) {
	conn, err := dialTCP(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), connectTimeout)
	if err != nil {
		return nil, err
	}

	if rwTimeout > 0 {
		conn.SetDeadline(time.Now().Add(rwTimeout))
		defer conn.SetDeadline(time.Time{})
	}

	usePassword := d.User != "" && d.Pass != ""
	method := byte(0x00)
	if usePassword {
		method = 0x02
	}

	if _, err := conn.Write([]byte{0x05, 0x01, method}); err != nil {
		conn.Close()
		return nil, wireerr.NewSendFailure(err)
	}

	greet := make([]byte, 2)
	if _, err := io.ReadFull(conn, greet); err != nil {
		conn.Close()
		return nil, wireerr.NewReceiveFailure(err)
	}
	if greet[0] != 0x05 {
		conn.Close()
		return nil, wireerr.NewProxyError("socks5:bad-version", fmt.Errorf("unexpected SOCKS version 0x%02x", greet[0]))
	}
	if greet[1] != method {
		conn.Close()
		return nil, wireerr.NewProxyError("socks5:method-rejected", fmt.Errorf("server chose method 0x%02x", greet[1]))
	}

	if usePassword {
		auth := []byte{0x01, byte(len(d.User))}
		auth = append(auth, []byte(d.User)...)
		auth = append(auth, byte(len(d.Pass)))
		auth = append(auth, []byte(d.Pass)...)
		if _, err := conn.Write(auth); err != nil {
			conn.Close()
			return nil, wireerr.NewSendFailure(err)
		}
		authReply := make([]byte, 2)
		if _, err := io.ReadFull(conn, authReply); err != nil {
			conn.Close()
			return nil, wireerr.NewReceiveFailure(err)
		}
		if authReply[1] != 0x00 {
			conn.Close()
			return nil, wireerr.NewProxyError("socks5:auth-failed", fmt.Errorf("authentication failed"))
		}
	}

	req := []byte{0x05, 0x01, 0x00}
	if ip := net.ParseIP(destHost); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			req = append(req, 0x01)
			req = append(req, v4...)
		} else {
			req = append(req, 0x04)
			req = append(req, ip.To16()...)
		}
	} else {
		if len(destHost) > 255 {
			conn.Close()
			return nil, wireerr.NewInvalidInput("SOCKS5 domain name exceeds 255 bytes")
		}
		req = append(req, 0x03, byte(len(destHost)))
		req = append(req, []byte(destHost)...)
	}
	req = append(req, byte(destPort>>8), byte(destPort))

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		return nil, wireerr.NewSendFailure(err)
	}

	// Drain exactly the RFC-specified reply length (fixed 4-byte header,
	// then an address whose size depends on atype, then a 2-byte port) —
	// not a fixed 255-byte buffer, per spec.md §9's explicit correction.
	head := make([]byte, 4)
	if _, err := io.ReadFull(conn, head); err != nil {
		conn.Close()
		return nil, wireerr.NewReceiveFailure(err)
	}
	if head[0] != 0x05 {
		conn.Close()
		return nil, wireerr.NewProxyError("socks5:bad-version", fmt.Errorf("unexpected reply version 0x%02x", head[0]))
	}

	var addrLen int
	switch head[3] {
	case 0x01:
		addrLen = 4
	case 0x04:
		addrLen = 16
	case 0x03:
		lenByte := make([]byte, 1)
		if _, err := io.ReadFull(conn, lenByte); err != nil {
			conn.Close()
			return nil, wireerr.NewReceiveFailure(err)
		}
		addrLen = int(lenByte[0])
	default:
		conn.Close()
		return nil, wireerr.NewProxyError("socks5:unknown-atype", fmt.Errorf("unexpected address type 0x%02x", head[3]))
	}

	rest := make([]byte, addrLen+2) // address + port
	if _, err := io.ReadFull(conn, rest); err != nil {
		conn.Close()
		return nil, wireerr.NewReceiveFailure(err)
	}

	if head[1] != 0x00 {
		conn.Close()
		kind, ok := socks5ReplyKind[head[1]]
		if !ok {
			kind = "socks5:unknown"
		}
		msg, ok := socks5ReplyErrors[head[1]]
		if !ok {
			msg = fmt.Sprintf("unknown reply code 0x%02x", head[1])
		}
		return nil, wireerr.NewProxyError(kind, fmt.Errorf("%s", msg))
	}

	return conn, nil
}
