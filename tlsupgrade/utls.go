package tlsupgrade

import (
	"crypto/x509"
	"net"

	utls "github.com/refraction-networking/utls"

	"github.com/soheilmv/mvnet/fingerprint"
	"github.com/soheilmv/mvnet/wireerr"
)

// UpgradeUTLS performs the handshake through github.com/refraction-networking/utls
// instead of crypto/tls, applying profile's full ClientHelloSpec (GREASE,
// cipher order, extension order) so the resulting ClientHello matches a
// real browser's. Grounded on the teacher's client.UTLSDialer/
// buildClientHelloSpec, generalized from a hardcoded Chrome 120 ID to any
// fingerprint.Profile.
func UpgradeUTLS(conn net.Conn, host string, profile *fingerprint.Profile, insecureAcceptAll bool) (*Result, error) {
	cfg := &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: insecureAcceptAll,
	}

	uConn := utls.UClient(conn, cfg, profile.HelloID)

	spec, err := utls.UTLSIdToSpec(profile.HelloID)
	if err == nil {
		if err := uConn.ApplyPreset(&spec); err != nil {
			conn.Close()
			return nil, wireerr.NewConnectFailure("ssl", err)
		}
	}
	// A HelloID with no known parrot spec falls through to uTLS's own
	// default ClientHello construction for that ID.

	if err := uConn.Handshake(); err != nil {
		conn.Close()
		return nil, wireerr.NewConnectFailure("ssl", err)
	}

	state := uConn.ConnectionState()
	var peerCert *x509.Certificate
	if len(state.PeerCertificates) > 0 {
		peerCert = state.PeerCertificates[0]
	}

	return &Result{
		Conn:           uConn,
		CipherSuite:    state.CipherSuite,
		Version:        state.Version,
		PeerCert:       peerCert,
		NegotiatedALPN: state.NegotiatedProtocol,
	}, nil
}
