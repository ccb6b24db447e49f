package tlsconfig

import (
	"crypto/tls"
	"testing"
)

func TestApplyVersionProfileSetsMinMax(t *testing.T) {
	cfg := &tls.Config{}
	ApplyVersionProfile(cfg, ProfileSecure)
	if cfg.MinVersion != VersionTLS12 || cfg.MaxVersion != VersionTLS13 {
		t.Errorf("got min=%#x max=%#x, want TLS1.2/TLS1.3", cfg.MinVersion, cfg.MaxVersion)
	}
}

func TestApplyCipherSuitesPicksTierByMinVersion(t *testing.T) {
	cfg := &tls.Config{}
	ApplyCipherSuites(cfg, VersionTLS13)
	if cfg.CipherSuites != nil {
		t.Errorf("TLS 1.3 should leave CipherSuites nil, got %v", cfg.CipherSuites)
	}

	cfg = &tls.Config{}
	ApplyCipherSuites(cfg, VersionTLS12)
	if len(cfg.CipherSuites) == 0 {
		t.Error("expected a non-empty cipher suite list for TLS 1.2")
	}
}

func TestGetVersionNameKnownAndUnknown(t *testing.T) {
	if got := GetVersionName(VersionTLS13); got != "TLS 1.3" {
		t.Errorf("got %q, want TLS 1.3", got)
	}
	if got := GetVersionName(0xffff); got != "Unknown" {
		t.Errorf("got %q, want Unknown", got)
	}
}

func TestIsVersionDeprecated(t *testing.T) {
	if !IsVersionDeprecated(VersionTLS11) {
		t.Error("TLS 1.1 should be deprecated")
	}
	if IsVersionDeprecated(VersionTLS12) {
		t.Error("TLS 1.2 should not be deprecated")
	}
}

func TestGetCipherSuiteNameKnownAndUnknown(t *testing.T) {
	if got := GetCipherSuiteName(tls.TLS_AES_128_GCM_SHA256); got != "TLS_AES_128_GCM_SHA256" {
		t.Errorf("got %q", got)
	}
	if got := GetCipherSuiteName(0xffff); got != "Unknown" {
		t.Errorf("got %q, want Unknown", got)
	}
}
