/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package reactor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sabouaram/reactorhttp/headers"
	"github.com/sabouaram/reactorhttp/middleware"
	"github.com/sabouaram/reactorhttp/respwriter"
	"github.com/sabouaram/reactorhttp/router"
	"github.com/sabouaram/reactorhttp/wire"
)

// memSink is a respwriter.Sink over an in-memory buffer, standing in for the
// reactor's real connection write path so dispatch can be driven without a
// live socket.
type memSink struct {
	bytes.Buffer
	blocked bool
}

func (s *memSink) CanWrite() bool { return !s.blocked }

func newRequest(method wire.Method, target string) *wire.Request {
	return &wire.Request{
		Method:        method,
		Target:        target,
		Version:       wire.HTTP11,
		Headers:       headers.NewViewMap(),
		ContentLength: -1,
	}
}

func newWriter() (*memSink, *respwriter.Writer) {
	sink := &memSink{}
	return sink, respwriter.New(sink, false, nil)
}

func helloHandler(ctx *router.Context) router.Response {
	w := ctx.Writer.(*respwriter.Writer)
	_ = w.Status(200, "OK")
	_ = w.ContentType("text/plain")
	_ = w.ContentLength(5)
	w.WriteBody([]byte("world"))
	return nil
}

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	rtr := router.New(router.Strict)
	if err := rtr.Register(router.MethodGet, "/hello", helloHandler); err != nil {
		t.Fatalf("register /hello: %v", err)
	}
	if err := rtr.Register(router.MethodGet, "/data", func(ctx *router.Context) router.Response {
		return nil
	}); err != nil {
		t.Fatalf("register /data: %v", err)
	}
	return rtr
}

// S1 — Basic GET: handler returns a small body, response carries the right
// status line, Content-Type and Content-Length, and the connection is not
// forced closed by dispatch itself.
func TestDispatchBasicGet(t *testing.T) {
	rtr := newTestRouter(t)
	req := newRequest(wire.MethodGet, "/hello")
	sink, w := newWriter()

	status := dispatch(rtr, nil, nil, req, w, false)

	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	out := sink.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line wrong: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Fatalf("missing Content-Length: %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain\r\n") {
		t.Fatalf("missing Content-Type: %q", out)
	}
	if !strings.HasSuffix(out, "world") {
		t.Fatalf("missing body: %q", out)
	}
}

// Regression test for the End()-never-called bug: a handler-driven response
// with no declared Content-Length must still be chunk-terminated once
// dispatch returns, not left dangling in HeadersSent.
func TestDispatchChunkedHandlerAlwaysEnds(t *testing.T) {
	rtr := router.New(router.Strict)
	if err := rtr.Register(router.MethodGet, "/stream", func(ctx *router.Context) router.Response {
		w := ctx.Writer.(*respwriter.Writer)
		_ = w.Status(200, "OK")
		w.WriteBody([]byte("chunk-one"))
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := newRequest(wire.MethodGet, "/stream")
	sink, w := newWriter()

	dispatch(rtr, nil, nil, req, w, false)

	if w.State() != respwriter.Ended {
		t.Fatalf("writer state = %v, want Ended", w.State())
	}
	if !strings.HasSuffix(sink.String(), "0\r\n\r\n") {
		t.Fatalf("missing terminating chunk: %q", sink.String())
	}
}

// Invariant 9: repeated End() leaves the wire output unchanged.
func TestWriterEndIsIdempotent(t *testing.T) {
	sink, w := newWriter()
	_ = w.Status(200, "OK")
	_ = w.ContentLength(0)
	w.WriteBody(nil)
	if err := w.End(); err != nil {
		t.Fatalf("first End: %v", err)
	}
	first := sink.String()
	if err := w.End(); err != nil {
		t.Fatalf("second End: %v", err)
	}
	if sink.String() != first {
		t.Fatalf("second End mutated output: before=%q after=%q", first, sink.String())
	}
}

// Invariant 5 / method-not-allowed: a disallowed method on a matched path
// yields 405 with an Allow header, HEAD synthesized alongside GET.
func TestDispatchMethodNotAllowed(t *testing.T) {
	rtr := newTestRouter(t)
	req := newRequest(wire.MethodPost, "/hello")
	sink, w := newWriter()

	status := dispatch(rtr, nil, nil, req, w, false)

	if status != 405 {
		t.Fatalf("status = %d, want 405", status)
	}
	if !strings.Contains(sink.String(), "Allow: GET, HEAD\r\n") {
		t.Fatalf("missing Allow header: %q", sink.String())
	}
}

func TestDispatchNotFound(t *testing.T) {
	rtr := newTestRouter(t)
	req := newRequest(wire.MethodGet, "/missing")
	sink, w := newWriter()

	status := dispatch(rtr, nil, nil, req, w, false)

	if status != 404 {
		t.Fatalf("status = %d, want 404", status)
	}
	if !strings.Contains(sink.String(), "404 Not Found") {
		t.Fatalf("missing reason phrase: %q", sink.String())
	}
}

func corsPolicy() *middleware.CORSPolicy {
	return &middleware.CORSPolicy{
		AllowedOrigins: []string{"https://app.example"},
		AllowedHeaders: []string{"Content-Type"},
	}
}

// S6 — CORS preflight denied method: the route only accepts GET, the
// preflight asks for PUT; expect 405 with Allow: GET and no
// Access-Control-Allow-Origin.
func TestDispatchCORSPreflightDeniedMethod(t *testing.T) {
	rtr := newTestRouter(t)
	req := newRequest(wire.MethodOptions, "/data")
	_ = req.Headers.Add("Origin", "https://app.example", true, false)
	_ = req.Headers.Add("Access-Control-Request-Method", "PUT", true, false)

	sink, w := newWriter()
	status := dispatch(rtr, nil, corsPolicy(), req, w, false)

	if status != 405 {
		t.Fatalf("status = %d, want 405", status)
	}
	out := sink.String()
	if !strings.Contains(out, "Allow: GET") {
		t.Fatalf("missing Allow: GET: %q", out)
	}
	if strings.Contains(out, "Access-Control-Allow-Origin") {
		t.Fatalf("denied preflight must not carry Access-Control-Allow-Origin: %q", out)
	}
}

// Invariant 10: an actual (non-preflight) cross-origin response that mirrors
// Origin in Access-Control-Allow-Origin carries Origin in Vary exactly once.
func TestDispatchCORSActualVaryOnce(t *testing.T) {
	rtr := newTestRouter(t)
	req := newRequest(wire.MethodGet, "/hello")
	_ = req.Headers.Add("Origin", "https://app.example", true, false)

	sink, w := newWriter()
	status := dispatch(rtr, nil, corsPolicy(), req, w, false)

	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	out := sink.String()
	if strings.Count(out, "Origin") < 1 || strings.Count(out, "Vary: Origin") != 1 {
		t.Fatalf("expected exactly one Vary: Origin, got: %q", out)
	}
	if !strings.Contains(out, "Access-Control-Allow-Origin: https://app.example") {
		t.Fatalf("missing mirrored Allow-Origin: %q", out)
	}
}

func TestTranslateMethod(t *testing.T) {
	cases := []struct {
		in   wire.Method
		want router.Method
		ok   bool
	}{
		{wire.MethodGet, router.MethodGet, true},
		{wire.MethodPost, router.MethodPost, true},
		{wire.MethodConnect, router.MethodConnect, true},
		{wire.MethodUnknown, 0, false},
	}
	for _, c := range cases {
		got, ok := translateMethod(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("translateMethod(%v) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestRequestPathStripsQuery(t *testing.T) {
	if got := requestPath("/a/b?x=1&y=2"); got != "/a/b" {
		t.Fatalf("requestPath = %q, want /a/b", got)
	}
	if got := requestPath("/a/b"); got != "/a/b" {
		t.Fatalf("requestPath = %q, want /a/b", got)
	}
}

func TestRouteAllowedMethods(t *testing.T) {
	rtr := newTestRouter(t)
	allowed := routeAllowedMethods(rtr, "/data")
	if allowed&router.MethodGet == 0 {
		t.Fatalf("expected GET in allowed set, got %v", allowed)
	}
	if routeAllowedMethods(rtr, "/missing") != 0 {
		t.Fatalf("expected 0 for unregistered path")
	}
}

// Middleware short-circuit: a global-before Fail result must reach the wire
// without the router or handler ever running.
func TestDispatchMiddlewareFailShortCircuits(t *testing.T) {
	rtr := newTestRouter(t)
	chain := &middleware.Chain{
		GlobalBefore: []middleware.RequestFunc{
			func(req middleware.Request) middleware.Result {
				return middleware.Result{Outcome: middleware.Fail, StatusCode: 401, Reason: "unauthorized"}
			},
		},
	}
	req := newRequest(wire.MethodGet, "/hello")
	sink, w := newWriter()

	status := dispatch(rtr, chain, nil, req, w, false)

	if status != 401 {
		t.Fatalf("status = %d, want 401", status)
	}
	if !strings.Contains(sink.String(), "unauthorized") {
		t.Fatalf("missing body: %q", sink.String())
	}
}
