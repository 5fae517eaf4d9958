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

// SOCKS4Dialer implements both SOCKS4 (client-side DNS resolution) and
// SOCKS4a (sentinel IP + literal hostname) per spec.md §4.1, selected by A.
type SOCKS4Dialer struct {
	Host, UserID string
	Port         int
	A            bool
}

func (d *SOCKS4Dialer) Identity() string {
	variant := "socks4"
	if d.A {
		variant = "socks4a"
	}
	return fmt.Sprintf("%s:%s:%d:%s", variant, d.Host, d.Port, d.UserID)
}

func (d *SOCKS4Dialer) IsHTTPProxy() bool { return false }

func (d *SOCKS4Dialer) Dial(ctx context.Context, destHost string, destPort int, connectTimeout, rwTimeout time.Duration) (net.Conn, error) {
	conn, err := dialTCP(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), connectTimeout)
	if err != nil {
		return nil, err
	}

	if rwTimeout > 0 {
		conn.SetDeadline(time.Now().Add(rwTimeout))
		defer conn.SetDeadline(time.Time{})
	}

	req := []byte{0x04, 0x01, byte(destPort >> 8), byte(destPort)}

	if d.A {
		req = append(req, 0, 0, 0, 1)
		req = append(req, []byte(d.UserID)...)
		req = append(req, 0x00)
		req = append(req, []byte(destHost)...)
		req = append(req, 0x00)
	} else {
		ip, err := resolveIPv4(destHost)
		if err != nil {
			conn.Close()
			return nil, wireerr.NewConnectFailure("tcp", err)
		}
		req = append(req, ip...)
		req = append(req, []byte(d.UserID)...)
		req = append(req, 0x00)
	}

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		return nil, wireerr.NewSendFailure(err)
	}

	reply := make([]byte, 8)
	if _, err := io.ReadFull(conn, reply); err != nil {
		conn.Close()
		return nil, wireerr.NewReceiveFailure(err)
	}

	switch reply[1] {
	case 0x5A:
		return conn, nil
	case 0x5B:
		conn.Close()
		return nil, wireerr.NewProxyError("socks4:rejected", fmt.Errorf("request rejected or failed"))
	case 0x5C:
		conn.Close()
		return nil, wireerr.NewProxyError("socks4:no-identd", fmt.Errorf("client is not running identd"))
	case 0x5D:
		conn.Close()
		return nil, wireerr.NewProxyError("socks4:identd-mismatch", fmt.Errorf("identd could not confirm user-id"))
	default:
		conn.Close()
		return nil, wireerr.NewProxyError("socks4:unknown", fmt.Errorf("unexpected reply code 0x%02x", reply[1]))
	}
}

func resolveIPv4(host string) ([]byte, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%s is not an IPv4 address", host)
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address found for %s", host)
}
