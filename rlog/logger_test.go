package rlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelRoundTrip(t *testing.T) {
	for _, lvl := range []Level{PanicLevel, FatalLevel, ErrorLevel, WarnLevel, InfoLevel, DebugLevel} {
		if got := ParseLevel(lvl.String()); got != lvl {
			t.Fatalf("ParseLevel(%q) = %v, want %v", lvl.String(), got, lvl)
		}
	}

	if ParseLevel("bogus") != NilLevel {
		t.Fatalf("expected unknown level string to parse as NilLevel")
	}
}

func TestEntrySuppressedBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := New(Options{Level: "warning", Output: buf})

	lg.Entry(InfoLevel, "should not appear").Log()
	if buf.Len() != 0 {
		t.Fatalf("expected info entry to be suppressed, got %q", buf.String())
	}

	lg.Entry(ErrorLevel, "boom").Log()
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected error entry to be emitted, got %q", buf.String())
	}
}

func TestEntryCheckPromotesOnError(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := New(Options{Level: "error", Output: buf})

	e := lg.Entry(DebugLevel, "failed step")
	e.ErrorAdd(true, errBoom)

	if !e.Check(ErrorLevel) {
		t.Fatalf("expected entry carrying an error to pass Check at the no-error floor")
	}
	if e.Level != ErrorLevel {
		t.Fatalf("expected Check to promote level to ErrorLevel, got %v", e.Level)
	}
}

func TestDiscardNeverWrites(t *testing.T) {
	lg := Discard()
	lg.Entry(ErrorLevel, "boom").Log()
}

type fakeErr string

func (f fakeErr) Error() string { return string(f) }

var errBoom = fakeErr("boom")
