package respwriter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sabouaram/reactorhttp/codec"
	"github.com/sabouaram/reactorhttp/respwriter"
)

type fakeSink struct {
	bytes.Buffer
	blocked bool
}

func (f *fakeSink) CanWrite() bool { return !f.blocked }

func TestFixedLengthRoundTrip(t *testing.T) {
	sink := &fakeSink{}
	w := respwriter.New(sink, false, nil)

	if err := w.Status(200, "OK"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := w.ContentType("text/plain"); err != nil {
		t.Fatalf("content-type: %v", err)
	}
	if err := w.ContentLength(5); err != nil {
		t.Fatalf("content-length: %v", err)
	}
	if !w.WriteBody([]byte("hello")) {
		t.Fatalf("writeBody returned false")
	}
	if w.State() != respwriter.HeadersSent {
		t.Fatalf("expected HeadersSent, got %v", w.State())
	}
	if err := w.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if w.State() != respwriter.Ended {
		t.Fatalf("expected Ended, got %v", w.State())
	}

	out := sink.String()
	if !strings.Contains(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("missing status line: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Fatalf("missing content-length: %q", out)
	}
	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("missing body: %q", out)
	}
}

func TestHeaderSetterRejectedAfterHeadersSent(t *testing.T) {
	sink := &fakeSink{}
	w := respwriter.New(sink, false, nil)
	w.WriteBody([]byte("x"))

	if err := w.Header("X-Foo", "bar"); err == nil {
		t.Fatalf("expected error setting header after HeadersSent")
	}
}

func TestReservedHeaderRejected(t *testing.T) {
	sink := &fakeSink{}
	w := respwriter.New(sink, false, nil)
	if err := w.Header("Content-Length", "10"); err == nil {
		t.Fatalf("expected reserved header rejection")
	}
}

func TestHeadSuppressesBodyBytes(t *testing.T) {
	sink := &fakeSink{}
	w := respwriter.New(sink, true, nil)
	_ = w.ContentLength(11)
	w.WriteBody([]byte("hello world"))
	_ = w.End()

	out := sink.String()
	if strings.Contains(out, "hello world") {
		t.Fatalf("HEAD response leaked body bytes: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 11\r\n") {
		t.Fatalf("HEAD response missing synthesized content-length: %q", out)
	}
}

func TestChunkedEndEmitsTerminator(t *testing.T) {
	sink := &fakeSink{}
	w := respwriter.New(sink, false, nil)
	w.WriteBody([]byte("partial"))
	if err := w.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	out := sink.String()
	if !strings.Contains(out, "Transfer-Encoding: chunked\r\n") {
		t.Fatalf("missing chunked header: %q", out)
	}
	if !strings.HasSuffix(out, "0\r\n\r\n") {
		t.Fatalf("missing terminating chunk: %q", out)
	}
}

func TestTrailerRequiresChunked(t *testing.T) {
	sink := &fakeSink{}
	w := respwriter.New(sink, false, nil)
	_ = w.ContentLength(3)
	w.WriteBody([]byte("abc"))
	if err := w.AddTrailer("X-Checksum", "abc"); err == nil {
		t.Fatalf("expected trailer rejection on fixed-length response")
	}
}

func TestBackpressureFailsWrite(t *testing.T) {
	sink := &fakeSink{blocked: true}
	w := respwriter.New(sink, false, nil)
	if w.WriteBody([]byte("x")) {
		t.Fatalf("expected writeBody to report backpressure failure")
	}
}

func TestCompressionActivatesAfterThreshold(t *testing.T) {
	sink := &fakeSink{}
	policy := &respwriter.CompressionPolicy{
		Negotiated: codec.Selection{Algorithm: codec.Gzip},
		Config:     &codec.Config{MinBytes: 4},
	}
	w := respwriter.New(sink, false, policy)
	w.WriteBody([]byte("a"))
	w.WriteBody([]byte("bcde"))
	_ = w.End()

	out := sink.Bytes()
	if !bytes.Contains(out, []byte("Content-Encoding: gzip\r\n")) {
		t.Fatalf("expected Content-Encoding: gzip, got %q", out)
	}
}

func TestUnderThresholdEmitsIdentity(t *testing.T) {
	sink := &fakeSink{}
	policy := &respwriter.CompressionPolicy{
		Negotiated: codec.Selection{Algorithm: codec.Gzip},
		Config:     &codec.Config{MinBytes: 1000},
	}
	w := respwriter.New(sink, false, policy)
	w.WriteBody([]byte("tiny"))
	_ = w.End()

	out := sink.String()
	if strings.Contains(out, "Content-Encoding") {
		t.Fatalf("did not expect Content-Encoding for a sub-threshold body: %q", out)
	}
	if !strings.Contains(out, "tiny") {
		t.Fatalf("expected identity body bytes: %q", out)
	}
}
