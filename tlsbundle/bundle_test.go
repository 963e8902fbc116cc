package tlsbundle

import (
	"crypto/tls"
	"testing"
)

func TestStaticBundleReturnsServerName(t *testing.T) {
	b := NewStaticBundle()
	cfg := b.TlsConfig("example.com")
	if cfg.ServerName != "example.com" {
		t.Fatalf("expected ServerName to be threaded through, got %q", cfg.ServerName)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Fatalf("expected a TLS 1.2 floor by default")
	}
}

func TestStaticBundleReplaceSwapsCertificates(t *testing.T) {
	b := NewStaticBundle()
	b.Replace(tls.Certificate{})
	cfg := b.TlsConfig("")
	if len(cfg.Certificates) != 1 {
		t.Fatalf("expected the replaced certificate pair to be visible, got %d entries", len(cfg.Certificates))
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("missing"); err == nil {
		t.Fatalf("expected an error looking up an unregistered bundle id")
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	b := NewStaticBundle()
	r.Register("primary", b)

	got, err := r.Lookup("primary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Bundle(b) {
		t.Fatalf("expected to get back the registered bundle")
	}
}
