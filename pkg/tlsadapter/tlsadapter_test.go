package tlsadapter

import (
	"net"
	"testing"
)

func TestConfigureSNIPrefersExplicitServerName(t *testing.T) {
	cfg := ClientConfig{ServerName: "override.example.com"}
	if got := ConfigureSNI(cfg, "fallback.example.com"); got != "override.example.com" {
		t.Errorf("got %q, want explicit ServerName", got)
	}
}

func TestConfigureSNIDisableSuppressesFallback(t *testing.T) {
	cfg := ClientConfig{DisableSNI: true}
	if got := ConfigureSNI(cfg, "fallback.example.com"); got != "" {
		t.Errorf("got %q, want empty when SNI disabled", got)
	}
}

func TestConfigureSNIFallsBackToHost(t *testing.T) {
	cfg := ClientConfig{}
	if got := ConfigureSNI(cfg, "fallback.example.com"); got != "fallback.example.com" {
		t.Errorf("got %q, want fallback host", got)
	}
}

func TestConfigureSNIExplicitWinsOverDisable(t *testing.T) {
	cfg := ClientConfig{ServerName: "explicit.example.com", DisableSNI: true}
	if got := ConfigureSNI(cfg, "fallback.example.com"); got != "explicit.example.com" {
		t.Errorf("got %q, want explicit ServerName to take priority", got)
	}
}

func TestNegotiatedAccessorsOnNonTLSConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	if v := NegotiatedVersion(client); v != 0 {
		t.Errorf("got %#x, want 0 for a non-TLS conn", v)
	}
	if name := NegotiatedVersionName(client); name != "" {
		t.Errorf("got %q, want empty for a non-TLS conn", name)
	}
	if NegotiatedVersionDeprecated(client) {
		t.Error("a non-TLS conn should never report a deprecated version")
	}
	if name := NegotiatedCipherSuiteName(client); name != "" {
		t.Errorf("got %q, want empty for a non-TLS conn", name)
	}
	if PeerCertificates(client) != nil {
		t.Error("expected nil PeerCertificates for a non-TLS conn")
	}
}
