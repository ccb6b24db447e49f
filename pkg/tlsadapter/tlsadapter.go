// Package tlsadapter splices an in-band TLS handshake onto an already
// connected net.Conn, for both the client upgrade path (SNI selection,
// client certificates, cipher/version pinning) and the server accept
// path (certificate presentation, peer-credential inspection). Grounded
// on the teacher's upgradeTLS/ConfigureSNI/loadClientCertificate in
// pkg/transport/transport.go, reusing the version/cipher-suite tables in
// pkg/tlsconfig unchanged.
package tlsadapter

import (
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/go-ipp/httpcore/pkg/httperr"
	"github.com/go-ipp/httpcore/pkg/tlsconfig"
)

// ClientConfig carries the client-side TLS upgrade parameters, mirroring
// the teacher's Options subset devoted to TLS. Profile, when its Min is
// non-zero, selects a pkg/tlsconfig version/cipher-suite profile instead
// of MinVersion/MaxVersion/CipherSuites being set individually.
type ClientConfig struct {
	ServerName         string
	DisableSNI         bool
	InsecureSkipVerify bool
	MinVersion         uint16
	MaxVersion         uint16
	CipherSuites       []uint16
	Profile            tlsconfig.VersionProfile
	CustomCACerts      *x509.CertPool
	ClientCertFile     string
	ClientKeyFile      string
	Renegotiation      tls.RenegotiationSupport
}

// ConfigureSNI resolves the effective server name to present in the
// ClientHello, following the teacher's priority order: an explicit
// ServerName wins, then DisableSNI suppresses it entirely, else fall back
// to the connection's target host.
func ConfigureSNI(cfg ClientConfig, fallbackHost string) string {
	if cfg.ServerName != "" {
		return cfg.ServerName
	}
	if cfg.DisableSNI {
		return ""
	}
	return fallbackHost
}

// Upgrade performs the client-side in-band TLS handshake over conn,
// returning the wrapped *tls.Conn. It is used both for a direct HTTPS
// connect and for the RFC 2817 "Upgrade: TLS/1.x" in-band upgrade.
func Upgrade(conn net.Conn, cfg ClientConfig, fallbackHost string) (*tls.Conn, error) {
	tlsCfg := &tls.Config{
		ServerName:         ConfigureSNI(cfg, fallbackHost),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MinVersion:         orDefault(cfg.MinVersion, tlsconfig.VersionTLS12),
		MaxVersion:         orDefault(cfg.MaxVersion, tlsconfig.VersionTLS13),
		CipherSuites:       cfg.CipherSuites,
		RootCAs:            cfg.CustomCACerts,
		Renegotiation:      cfg.Renegotiation,
	}
	if cfg.Profile.Min != 0 {
		tlsconfig.ApplyVersionProfile(tlsCfg, cfg.Profile)
		if len(cfg.CipherSuites) == 0 {
			tlsconfig.ApplyCipherSuites(tlsCfg, cfg.Profile.Min)
		}
	}

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := loadClientCertificate(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	tc := tls.Client(conn, tlsCfg)
	if err := tc.Handshake(); err != nil {
		host, port := splitHostPort(fallbackHost)
		return nil, httperr.NewTLS(host, port, err)
	}
	return tc, nil
}

func loadClientCertificate(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, httperr.NewTLS(certFile, 0, err)
	}
	return cert, nil
}

func orDefault(v, fallback uint16) uint16 {
	if v == 0 {
		return fallback
	}
	return v
}

func splitHostPort(hostport string) (string, int) {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 0
	}
	return host, 0
}

// ServerConfig carries the server-side TLS accept parameters. Profile
// behaves as it does on ClientConfig.
type ServerConfig struct {
	Certificates []tls.Certificate
	MinVersion   uint16
	MaxVersion   uint16
	CipherSuites []uint16
	Profile      tlsconfig.VersionProfile
	ClientAuth   tls.ClientAuthType
	ClientCAs    *x509.CertPool
}

// Accept performs the server-side in-band TLS handshake over conn.
func Accept(conn net.Conn, cfg ServerConfig) (*tls.Conn, error) {
	tlsCfg := &tls.Config{
		Certificates: cfg.Certificates,
		MinVersion:   orDefault(cfg.MinVersion, tlsconfig.VersionTLS12),
		MaxVersion:   orDefault(cfg.MaxVersion, tlsconfig.VersionTLS13),
		CipherSuites: cfg.CipherSuites,
		ClientAuth:   cfg.ClientAuth,
		ClientCAs:    cfg.ClientCAs,
	}
	if cfg.Profile.Min != 0 {
		tlsconfig.ApplyVersionProfile(tlsCfg, cfg.Profile)
		if len(cfg.CipherSuites) == 0 {
			tlsconfig.ApplyCipherSuites(tlsCfg, cfg.Profile.Min)
		}
	}
	tc := tls.Server(conn, tlsCfg)
	if err := tc.Handshake(); err != nil {
		return nil, httperr.NewTLS("", 0, err)
	}
	return tc, nil
}

// PeerCertificates returns the certificate chain the remote party
// presented during the handshake, or nil if conn is not a *tls.Conn or
// presented none. Backs Connection.PeerCertificates (SPEC_FULL.md §6.I).
func PeerCertificates(conn net.Conn) []*x509.Certificate {
	tc, ok := conn.(*tls.Conn)
	if !ok {
		return nil
	}
	return tc.ConnectionState().PeerCertificates
}

// NegotiatedVersion returns the TLS version agreed for conn, or 0 if conn
// is not a *tls.Conn.
func NegotiatedVersion(conn net.Conn) uint16 {
	tc, ok := conn.(*tls.Conn)
	if !ok {
		return 0
	}
	return tc.ConnectionState().Version
}

// NegotiatedVersionName returns the human-readable name of the negotiated
// TLS version (e.g. "TLS 1.3"), or "" if conn is not a *tls.Conn.
func NegotiatedVersionName(conn net.Conn) string {
	if v := NegotiatedVersion(conn); v != 0 {
		return tlsconfig.GetVersionName(v)
	}
	return ""
}

// NegotiatedVersionDeprecated reports whether conn negotiated a TLS
// version below TLS 1.2, which a caller may want to log or reject even
// though the handshake itself already succeeded.
func NegotiatedVersionDeprecated(conn net.Conn) bool {
	v := NegotiatedVersion(conn)
	return v != 0 && tlsconfig.IsVersionDeprecated(v)
}

// NegotiatedCipherSuiteName returns the human-readable name of the
// negotiated cipher suite, or "" if conn is not a *tls.Conn.
func NegotiatedCipherSuiteName(conn net.Conn) string {
	tc, ok := conn.(*tls.Conn)
	if !ok {
		return ""
	}
	return tlsconfig.GetCipherSuiteName(tc.ConnectionState().CipherSuite)
}

// Pending returns the number of decrypted application bytes already
// buffered inside conn's TLS record layer but not yet delivered to a
// Read call (spec.md §4.C: "pending(conn) -> bytes ... TLS pending bytes
// count toward 'data available' regardless of socket readability").
//
// crypto/tls.Conn exposes no public API for this count, unlike OpenSSL's
// SSL_pending(), so this always returns 0 for a *tls.Conn (and for any
// non-TLS conn). pkg/sockio.Conn.WaitReadable compensates by routing TLS
// connections through a zero-byte read probe instead of an fd-level
// poll, since that probe drains already-buffered plaintext the same way
// a real pending-bytes count would have signaled.
func Pending(conn net.Conn) int {
	return 0
}
