package wire

import "testing"

func TestKeepAliveEligibleHTTP11Default(t *testing.T) {
	d := KeepAliveEligible(HTTP11, "", true, 1, 100, false)
	if !d.KeepAlive {
		t.Fatalf("expected keep-alive by default on HTTP/1.1, got %+v", d)
	}
}

func TestKeepAliveRejectedOnConnectionClose(t *testing.T) {
	d := KeepAliveEligible(HTTP11, "close", true, 1, 100, false)
	if d.KeepAlive {
		t.Fatalf("expected Connection: close to disable keep-alive")
	}
}

func TestKeepAliveHTTP10RequiresExplicitHeader(t *testing.T) {
	if KeepAliveEligible(HTTP10, "", true, 1, 100, false).KeepAlive {
		t.Fatalf("HTTP/1.0 without explicit keep-alive must not persist")
	}
	if !KeepAliveEligible(HTTP10, "keep-alive", true, 1, 100, false).KeepAlive {
		t.Fatalf("HTTP/1.0 with explicit keep-alive must persist")
	}
}

func TestKeepAliveRejectedWhileDraining(t *testing.T) {
	d := KeepAliveEligible(HTTP11, "", true, 1, 100, true)
	if d.KeepAlive {
		t.Fatalf("expected draining to force close")
	}
}

func TestKeepAliveRejectedAtRequestLimit(t *testing.T) {
	d := KeepAliveEligible(HTTP11, "", true, 100, 100, false)
	if d.KeepAlive {
		t.Fatalf("expected max-requests-per-connection to force close")
	}
}

func TestConnectionHeaderValue(t *testing.T) {
	if v := ConnectionHeaderValue(true, HTTP11); v != "" {
		t.Fatalf("expected no Connection header for HTTP/1.1 keep-alive, got %q", v)
	}
	if v := ConnectionHeaderValue(true, HTTP10); v != "keep-alive" {
		t.Fatalf("expected explicit keep-alive for HTTP/1.0, got %q", v)
	}
	if v := ConnectionHeaderValue(false, HTTP11); v != "close" {
		t.Fatalf("expected close, got %q", v)
	}
}
