package srvconfig

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsZeroPort(t *testing.T) {
	c := Default()
	c.Port = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for zero port")
	}
}

func TestApplyRestoresImmutableFields(t *testing.T) {
	cur := Default()
	cur.Port = 9000
	cur.TLSBundleID = "primary"

	next := Apply(cur, func(c Config) Config {
		c.Port = 1
		c.TLSBundleID = "tampered"
		c.KeepAliveTimeout = 0
		return c
	})

	if next.Port != 9000 || next.TLSBundleID != "primary" {
		t.Fatalf("expected immutable fields restored, got %+v", next.Immutable)
	}
	if next.KeepAliveTimeout != 0 {
		t.Fatalf("expected mutable field change to survive, got %v", next.KeepAliveTimeout)
	}
}

func TestApplyLeavesSourceUntouched(t *testing.T) {
	cur := Default()
	_ = Apply(cur, func(c Config) Config {
		c.Port = 1
		return c
	})
	if cur.Port != Default().Port {
		t.Fatalf("Apply must not mutate the input snapshot, got %+v", cur)
	}
}
