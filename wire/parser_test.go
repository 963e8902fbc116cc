package wire

import (
	"testing"
)

func defaultLimits() Limits {
	return Limits{MaxHeaderBytes: 8192, MaxBodyBytes: 1 << 20, MaxRequestsPerConnection: 100}
}

func TestParseBasicGet(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n"))

	req, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil {
		t.Fatalf("expected a complete request")
	}
	if req.Method != MethodGet || req.Target != "/hello" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.ContentLength != -1 || req.Chunked {
		t.Fatalf("expected no body framing, got %+v", req)
	}
}

func TestParseFeedsIncrementally(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("GET / HTTP/1.1\r\n"))

	if req, err := p.Parse(); req != nil || err != nil {
		t.Fatalf("expected need-more-data, got req=%v err=%v", req, err)
	}

	p.Feed([]byte("Host: example.com\r\n\r\n"))
	req, err := p.Parse()
	if err != nil || req == nil {
		t.Fatalf("expected complete request, got req=%v err=%v", req, err)
	}
}

func TestParseContentLengthBody(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"))

	req, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(req.Body) != "hello" {
		t.Fatalf("unexpected body: %q", req.Body)
	}
}

func TestParseChunkedBodyWithTrailer(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	raw := "POST /x HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\nX-Checksum: abc\r\n\r\n"
	p.Feed([]byte(raw))

	req, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(req.Body) != "hello world" {
		t.Fatalf("unexpected body: %q", req.Body)
	}
	if req.Trailers == nil {
		t.Fatalf("expected trailers")
	}
	if v, ok := req.Trailers.Get("X-Checksum"); !ok || v != "abc" {
		t.Fatalf("unexpected trailer: %v %v", v, ok)
	}
}

func TestParseRejectsConflictingFraming(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"))

	_, err := p.Parse()
	if err == nil {
		t.Fatalf("expected an error for conflicting framing headers")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Status != 400 {
		t.Fatalf("expected 400 ParseError, got %v", err)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("GET / HTTP/2.0\r\nHost: x\r\n\r\n"))

	_, err := p.Parse()
	pe, ok := err.(*ParseError)
	if !ok || pe.Status != 505 {
		t.Fatalf("expected 505 ParseError, got %v", err)
	}
}

func TestParseMissingHostOnHTTP11(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("GET / HTTP/1.1\r\n\r\n"))

	_, err := p.Parse()
	pe, ok := err.(*ParseError)
	if !ok || pe.Status != 400 {
		t.Fatalf("expected 400 for missing Host, got %v", err)
	}
}

func TestParseExpectContinueMarksFlag(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\nhello"))

	req, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.ExpectContinue {
		t.Fatalf("expected ExpectContinue to be set")
	}
}

func TestParsePipeliningConsumesSecondRequestFromResidualBuffer(t *testing.T) {
	p := NewParser(defaultLimits(), true)
	p.Feed([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\nGET /b HTTP/1.1\r\nHost: x\r\n\r\n"))

	first, err := p.Parse()
	if err != nil || first == nil || first.Target != "/a" {
		t.Fatalf("unexpected first request: %+v err=%v", first, err)
	}
	if !p.Pending() {
		t.Fatalf("expected residual bytes for the second request")
	}

	second, err := p.Parse()
	if err != nil || second == nil || second.Target != "/b" {
		t.Fatalf("unexpected second request: %+v err=%v", second, err)
	}
}
