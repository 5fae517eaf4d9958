package proxydial

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/soheilmv/mvnet/wireerr"
)

// AzadiDialer implements the experimental authenticated ChaCha20-Poly1305
// tunnel of spec.md §4.1. The fixed nonce derived alongside the key is a
// defect inherited from the proxy population this tunnel talks to; §9
// flags it and DESIGN.md records the decision to preserve wire
// compatibility rather than silently change the framing.
type AzadiDialer struct {
	Host, Secret, User, Pass string
	Port                     int
}

// NewAzadiFromHex builds an AzadiDialer from the ap://<hex> form, where hex
// decodes to a length-prefixed string array [host, port, secret].
func NewAzadiFromHex(hexStr string) (*AzadiDialer, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, wireerr.NewInvalidInput(fmt.Sprintf("invalid ap:// hex payload: %v", err))
	}
	fields, err := decodeStringArray(raw)
	if err != nil {
		return nil, wireerr.NewInvalidInput(fmt.Sprintf("invalid ap:// payload: %v", err))
	}
	if len(fields) != 3 {
		return nil, wireerr.NewInvalidInput("ap:// payload must encode [host, port, secret]")
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, wireerr.NewInvalidInput("ap:// payload has a non-numeric port")
	}
	return &AzadiDialer{Host: fields[0], Port: port, Secret: fields[2]}, nil
}

func (d *AzadiDialer) Identity() string {
	return fmt.Sprintf("azadi:%s:%d:%s", d.Host, d.Port, d.User)
}

func (d *AzadiDialer) IsHTTPProxy() bool { return false }

// deriveKeyNonce derives a 32-byte key and a 12-byte nonce via
// PBKDF2-HMAC-SHA1 over the shared secret, salted with the MD5 of the
// secret, 1000 iterations — matching the source byte-for-byte so existing
// Azadi proxy deployments keep working.
func deriveKeyNonce(secret string) (key, nonce []byte) {
	salt := md5.Sum([]byte(secret))
	material := pbkdf2.Key([]byte(secret), salt[:], 1000, 32+12, sha1.New)
	return material[:32], material[32:44]
}

func encodeStringArray(fields []string) []byte {
	buf := []byte{byte(len(fields))}
	for _, f := range fields {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(f)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, []byte(f)...)
	}
	return buf
}

func decodeStringArray(data []byte) ([]string, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("empty payload")
	}
	count := int(data[0])
	data = data[1:]
	fields := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < 2 {
			return nil, fmt.Errorf("truncated length prefix")
		}
		n := int(binary.BigEndian.Uint16(data[:2]))
		data = data[2:]
		if len(data) < n {
			return nil, fmt.Errorf("truncated field")
		}
		fields = append(fields, string(data[:n]))
		data = data[n:]
	}
	return fields, nil
}

func (d *AzadiDialer) Dial(ctx context.Context, destHost string, destPort int, connectTimeout, rwTimeout time.Duration) (net.Conn, error) {
	conn, err := dialTCP(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), connectTimeout)
	if err != nil {
		return nil, err
	}

	if rwTimeout > 0 {
		conn.SetDeadline(time.Now().Add(rwTimeout))
		defer conn.SetDeadline(time.Time{})
	}

	key, nonce := deriveKeyNonce(d.Secret)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		conn.Close()
		return nil, wireerr.NewConnectFailure("proxy", err)
	}

	var plaintext []byte
	if d.User != "" {
		plaintext = encodeStringArray([]string{d.User, d.Pass, destHost, strconv.Itoa(destPort)})
	} else {
		plaintext = encodeStringArray([]string{destHost, strconv.Itoa(destPort)})
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	// sealed is ciphertext||tag (Go's AEAD appends the tag); the wire
	// format is tag(16)||ciphertext, so split and reorder before sending.
	ciphertext := sealed[:len(sealed)-aead.Overhead()]
	tag := sealed[len(sealed)-aead.Overhead():]
	frame := append(append([]byte{}, tag...), ciphertext...)

	if _, err := conn.Write(frame); err != nil {
		conn.Close()
		return nil, wireerr.NewSendFailure(err)
	}

	replyFrame := make([]byte, 16+4)
	if _, err := io.ReadFull(conn, replyFrame); err != nil {
		conn.Close()
		return nil, wireerr.NewReceiveFailure(err)
	}
	replyTag := replyFrame[:16]
	replyCiphertext := replyFrame[16:]
	replySealed := append(append([]byte{}, replyCiphertext...), replyTag...)

	replyPlain, err := aead.Open(nil, nonce, replySealed, nil)
	if err != nil {
		conn.Close()
		return nil, wireerr.NewProxyError("azadi:decrypt", err)
	}
	if len(replyPlain) != 4 {
		conn.Close()
		return nil, wireerr.NewProxyError("azadi:malformed", fmt.Errorf("reply plaintext is %d bytes, want 4", len(replyPlain)))
	}

	code := binary.LittleEndian.Uint32(replyPlain)
	switch code {
	case 1:
		return conn, nil
	case 2:
		conn.Close()
		return nil, wireerr.NewProxyError("azadi:login", fmt.Errorf("login rejected"))
	case 3:
		conn.Close()
		return nil, wireerr.NewProxyError("azadi:host", fmt.Errorf("host rejected"))
	case 4:
		conn.Close()
		return nil, wireerr.NewProxyError("azadi:remote", fmt.Errorf("remote error"))
	default:
		conn.Close()
		return nil, wireerr.NewProxyError("azadi:unknown", fmt.Errorf("unknown reply code %d", code))
	}
}
