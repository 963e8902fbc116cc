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

// Package respwriter implements the streaming response writer state machine:
// Open -> HeadersSent -> Ended/Failed, threshold-triggered mid-flight
// compression activation, and file-backed zero-copy bodies. No teacher
// package models this exact state machine (net/http's ResponseWriter hides
// it behind bufio), so this is original engineering styled after the
// explicit state-guarded setter pattern used across this module
// (lifecycle.State, the codec.Algorithm registry).
package respwriter

import (
	"io"
	"strconv"
	"time"

	"github.com/sabouaram/reactorhttp/codec"
	"github.com/sabouaram/reactorhttp/headers"
	"github.com/sabouaram/reactorhttp/rerrors"
	"github.com/sabouaram/reactorhttp/wire"
)

const (
	ErrWrongState rerrors.CodeError = iota + rerrors.MinPkgRespWriter
	ErrReservedHeader
	ErrTrailerNotChunked
)

func init() {
	rerrors.RegisterIdFctMessage(ErrWrongState, func(c rerrors.CodeError) string {
		switch c {
		case ErrWrongState:
			return "operation not permitted in the response writer's current state"
		case ErrReservedHeader:
			return "header name is reserved and managed by the writer"
		case ErrTrailerNotChunked:
			return "trailers can only be added to a chunked response"
		default:
			return rerrors.UnknownMessage
		}
	})
}

// State is one stage of the response writer's lifecycle.
type State uint8

const (
	Open State = iota
	HeadersSent
	Ended
	Failed
)

// Sink is the underlying byte destination a Writer flushes to; the reactor's
// connection write path implements it. CanWrite reports backpressure: when
// false, writeBody must not block and instead reports failure to the caller.
type Sink interface {
	io.Writer
	CanWrite() bool
}

// FilePayload installs a zero-copy file body (sendfile-shaped); the reactor
// resolves Handle against its own fd table.
type FilePayload struct {
	Handle uintptr
	Offset int64
	Size   int64
}

// CompressionPolicy is the subset of codec negotiation a Writer needs to
// decide whether and how to activate streaming compression mid-flight.
type CompressionPolicy struct {
	Negotiated codec.Selection
	Config     *codec.Config
}

// Writer drives one response's lifecycle. It is not safe for concurrent use;
// the reactor owns it on its single thread per connection per spec.md §5.
type Writer struct {
	sink Sink

	state      State
	statusCode int
	reason     string
	headers    *headers.ResponseHeaders
	chunked    bool
	isHead     bool

	contentLength int64 // -1 until set or implied
	contentType   string

	compression   *CompressionPolicy
	compressBuf   []byte
	encoder       codec.Helper
	encoderActive bool

	file *FilePayload

	trailers *headers.ViewMap
}

// New creates a Writer bound to sink for one response; isHead suppresses
// body bytes per §4.7's HEAD handling while still synthesizing Content-Length.
func New(sink Sink, isHead bool, compression *CompressionPolicy) *Writer {
	return &Writer{
		sink:          sink,
		state:         Open,
		statusCode:    200,
		headers:       headers.NewResponseHeaders(),
		isHead:        isHead,
		contentLength: -1,
		compression:   compression,
	}
}

func (w *Writer) State() State { return w.state }

// StatusCode reports the status set via Status (200 until changed), for
// telemetry and access logging once the response has been dispatched.
func (w *Writer) StatusCode() int { return w.statusCode }

// Headers exposes the response header container so response middleware can
// mutate it (spec.md §4.4's response-middleware pass) before WriteBody/End
// flushes it. Valid only while the writer is still Open; callers must not
// retain it past the dispatch call.
func (w *Writer) Headers() *headers.ResponseHeaders { return w.headers }

// ContentTypeValue reports the content type set via ContentType, for the
// reactor's compression-eligibility check (§4.5) to consult without a
// header scan.
func (w *Writer) ContentTypeValue() string { return w.contentType }

func (w *Writer) guardOpen() error {
	if w.state != Open {
		return rerrors.New(ErrWrongState, "not in Open state")
	}
	return nil
}

// Status sets the response status line; only valid while Open.
func (w *Writer) Status(code int, reason string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	w.statusCode = code
	w.reason = reason
	return nil
}

// Header sets a header, rejecting the reserved set §4.8 calls out
// (Date/Content-Length/Connection/Transfer-Encoding are writer-managed).
func (w *Writer) Header(name, value string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if headers.IsReservedResponse(name) {
		return rerrors.New(ErrReservedHeader, name)
	}
	w.headers.Set(name, value)
	return nil
}

// AddCustomHeader appends a header without replacing an existing value of
// the same name (e.g. repeated Set-Cookie).
func (w *Writer) AddCustomHeader(name, value string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	if headers.IsReservedResponse(name) {
		return rerrors.New(ErrReservedHeader, name)
	}
	w.headers.Add(name, value)
	return nil
}

// ContentLength declares a known body length, selecting fixed-length framing
// over chunked.
func (w *Writer) ContentLength(n int64) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	w.contentLength = n
	w.chunked = false
	return nil
}

// ContentType sets the Content-Type header, tracked separately so
// compression eligibility (§4.5) can consult it without a header scan.
func (w *Writer) ContentType(ct string) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	w.contentType = ct
	w.headers.Set("Content-Type", ct)
	return nil
}

// File installs a zero-copy file payload; forbids any later writeBody call.
func (w *Writer) File(f FilePayload) error {
	if err := w.guardOpen(); err != nil {
		return err
	}
	w.file = &f
	w.contentLength = f.Size
	return w.flushHeaders()
}

func (w *Writer) explicitEncoding() bool {
	_, ok := w.headers.Get("Content-Encoding")
	return ok
}

// WriteBody writes a chunk of response body. Headers flush either
// immediately (no compression candidate) or once the compression decision
// is made (§4.7: "activate streaming encoder mid-flight, headers not yet
// sent"). Returns false if the sink reports backpressure exhaustion or the
// writer already failed.
func (w *Writer) WriteBody(data []byte) bool {
	if w.state == Failed || w.file != nil {
		return false
	}

	if w.state == Open && w.compressionCandidate() {
		return w.maybeBuffer(data)
	}

	if w.state == Open {
		if !w.beginBody() {
			w.state = Failed
			return false
		}
	}
	if w.state != HeadersSent {
		return false
	}
	if w.isHead {
		return w.sink.CanWrite()
	}

	if !w.sink.CanWrite() {
		return false
	}

	if w.encoderActive {
		if _, err := w.encoder.Write(data); err != nil {
			w.state = Failed
			return false
		}
		if err := w.drainEncoderFramed(); err != nil {
			w.state = Failed
			return false
		}
		return true
	}

	if err := w.writeFramed(data); err != nil {
		w.state = Failed
		return false
	}
	return true
}

func (w *Writer) compressionCandidate() bool {
	return !w.isHead && w.compression != nil && !w.explicitEncoding() && !w.compression.Negotiated.Algorithm.IsIdentity()
}

// writeFramed writes one body fragment, wrapping it in HTTP/1.1 chunked
// framing (size line in hex, CRLF, data, CRLF) when the response is chunked,
// or raw otherwise.
func (w *Writer) writeFramed(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !w.chunked {
		_, err := w.sink.Write(data)
		return err
	}
	if _, err := w.sink.Write([]byte(strconv.FormatInt(int64(len(data)), 16) + "\r\n")); err != nil {
		return err
	}
	if _, err := w.sink.Write(data); err != nil {
		return err
	}
	_, err := w.sink.Write([]byte("\r\n"))
	return err
}

// maybeBuffer implements the "buffer up to minBytes, then decide" rule
// (§4.7): it accumulates body bytes without flushing headers while under
// the threshold, then resolves the compression decision, flushes headers
// (with Content-Encoding set if an encoder was activated), and emits
// whatever was buffered.
func (w *Writer) maybeBuffer(data []byte) bool {
	w.compressBuf = append(w.compressBuf, data...)
	if len(w.compressBuf) < w.compression.Config.MinBytes {
		return true
	}
	return w.resolveCompression()
}

// resolveCompression finalizes the buffered compression decision once the
// buffer crosses minBytes; End itself handles a response that finishes
// under threshold (identity per §4.7).
func (w *Writer) resolveCompression() bool {
	buffered := w.compressBuf
	w.compressBuf = nil

	enc, err := codec.NewStreamCompressor(w.compression.Negotiated.Algorithm)
	if err == nil {
		w.encoder = enc
		w.encoderActive = true
		w.headers.Set("Content-Encoding", w.compression.Negotiated.Algorithm.Token())
	}
	if w.compression.Config.AddVaryHeader {
		appendVary(w.headers, "Accept-Encoding")
	}
	w.compression = nil

	if !w.beginBody() {
		w.state = Failed
		return false
	}

	if !w.encoderActive {
		if err := w.writeFramed(buffered); err != nil {
			w.state = Failed
			return false
		}
		return true
	}

	if _, err := w.encoder.Write(buffered); err != nil {
		w.state = Failed
		return false
	}
	if err := w.drainEncoderFramed(); err != nil {
		w.state = Failed
		return false
	}
	return true
}

func (w *Writer) drainEncoderFramed() error {
	out := make([]byte, 4096)
	for {
		n, err := w.encoder.Read(out)
		if n > 0 {
			if werr := w.writeFramed(out[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF || n == 0 {
			break
		}
	}
	return nil
}

func appendVary(h *headers.ResponseHeaders, token string) {
	existing, ok := h.Get("Vary")
	if !ok {
		h.Set("Vary", token)
		return
	}
	h.Set("Vary", existing+", "+token)
}

// beginBody decides fixed-vs-chunked framing and writes the status line and
// headers, per §4.7's "writeBody implicitly flushes accumulated headers".
func (w *Writer) beginBody() bool {
	if w.contentLength < 0 {
		w.chunked = true
	}

	if w.isHead {
		if w.contentLength < 0 {
			w.headers.Set("Content-Length", "0")
		} else {
			w.headers.Set("Content-Length", strconv.FormatInt(w.contentLength, 10))
		}
	} else if !w.chunked {
		w.headers.Set("Content-Length", strconv.FormatInt(w.contentLength, 10))
	} else {
		w.headers.Set("Transfer-Encoding", "chunked")
	}

	return w.flushHeaders() == nil
}

func (w *Writer) flushHeaders() error {
	if w.state != Open {
		return rerrors.New(ErrWrongState, "headers already flushed")
	}
	w.headers.Set("Date", wire.FormatDate(time.Now()))
	statusLine := "HTTP/1.1 " + strconv.Itoa(w.statusCode) + " " + w.reason + "\r\n"
	if _, err := w.sink.Write([]byte(statusLine)); err != nil {
		w.state = Failed
		return err
	}
	if _, err := w.sink.Write(w.headers.Bytes()); err != nil {
		w.state = Failed
		return err
	}
	if _, err := w.sink.Write([]byte("\r\n")); err != nil {
		w.state = Failed
		return err
	}
	w.state = HeadersSent
	return nil
}

// AddTrailer is only valid in HeadersSent and only for a chunked response.
func (w *Writer) AddTrailer(name, value string) error {
	if w.state != HeadersSent {
		return rerrors.New(ErrWrongState, "trailers require HeadersSent")
	}
	if !w.chunked {
		return rerrors.New(ErrTrailerNotChunked, name)
	}
	if w.trailers == nil {
		w.trailers = headers.NewViewMap()
	}
	return w.trailers.Add(name, value, true, true)
}

// End is idempotent; it flushes any pending compression buffer as identity,
// finalizes the encoder, and emits the terminating chunk and trailers.
func (w *Writer) End() error {
	if w.state == Ended {
		return nil
	}
	if w.state == Failed {
		return rerrors.New(ErrWrongState, "writer already failed")
	}

	if w.state == Open {
		pending := w.compressBuf
		w.compressBuf = nil
		w.compression = nil // threshold never crossed: §4.7 requires identity
		if w.contentLength < 0 {
			w.contentLength = int64(len(pending))
		}
		if !w.beginBody() {
			return rerrors.New(ErrWrongState, "failed flushing headers at end")
		}
		if err := w.writeFramed(pending); err != nil {
			w.state = Failed
			return err
		}
	}

	if w.encoderActive {
		if err := w.encoder.Close(); err != nil {
			w.state = Failed
			return err
		}
		if err := w.drainEncoderFramed(); err != nil {
			w.state = Failed
			return err
		}
	}

	if w.file != nil {
		// The reactor's write path performs the actual sendfile transfer;
		// the writer only marks the framing as already accounted for.
	}

	if w.chunked {
		if _, err := w.sink.Write([]byte("0\r\n")); err != nil {
			w.state = Failed
			return err
		}
		if w.trailers != nil {
			for _, v := range w.trailers.All() {
				line := v.Name + ": " + v.Value + "\r\n"
				if _, err := w.sink.Write([]byte(line)); err != nil {
					w.state = Failed
					return err
				}
			}
		}
		if _, err := w.sink.Write([]byte("\r\n")); err != nil {
			w.state = Failed
			return err
		}
	}

	w.state = Ended
	return nil
}
