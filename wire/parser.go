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

package wire

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/sabouaram/reactorhttp/headers"
)

// State is one stage of the per-connection parser state machine (§4.2).
type State uint8

const (
	AwaitingRequestLine State = iota
	ReadingHeaders
	ReadingBody
	ReadingTrailers
	RequestReady
)

// Limits bounds what the parser will accept before failing a request.
type Limits struct {
	MaxHeaderBytes           int
	MaxBodyBytes             int64
	MaxRequestsPerConnection int
}

// Request is the parsed, not-yet-dispatched request. Its header map and body
// are copies owned by the Request; they do not point into the parser's buffer.
type Request struct {
	Method  Method
	Target  string
	Version Version
	Headers *headers.ViewMap
	Body    []byte
	Trailers *headers.ViewMap

	ContentLength   int64 // -1 if absent
	Chunked         bool
	ContentEncoding string
	ExpectContinue  bool
}

// Parser is a single connection's incremental HTTP/1.x decoder. Feed appends
// newly-read bytes; Parse advances as far as the buffered bytes allow,
// returning (nil, nil) when more data is needed.
type Parser struct {
	limits Limits
	state  State
	buf    []byte

	headerBytesRead int
	requestCount    int

	method  Method
	target  string
	version Version

	hdrs *headers.ViewMap

	contentLength int64
	chunked       bool
	expectCont    bool

	bodyBuf      []byte
	chunkState   chunkState
	chunkRemain  int64
	trailerBytes int
	trailerMap   *headers.ViewMap

	mergeUnknownHeaders bool
}

type chunkState uint8

const (
	chunkSize chunkState = iota
	chunkData
	chunkCRLF
	chunkTrailers
)

func NewParser(limits Limits, mergeUnknownHeaders bool) *Parser {
	return &Parser{limits: limits, state: AwaitingRequestLine, contentLength: -1, mergeUnknownHeaders: mergeUnknownHeaders}
}

// Feed appends newly read bytes to the parser's buffer.
func (p *Parser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Pending reports whether unconsumed bytes remain, used to drive pipelining.
func (p *Parser) Pending() bool {
	return len(p.buf) > 0
}

func (p *Parser) resetForNextRequest() {
	p.state = AwaitingRequestLine
	p.method = MethodUnknown
	p.target = ""
	p.hdrs = nil
	p.contentLength = -1
	p.chunked = false
	p.expectCont = false
	p.bodyBuf = nil
	p.chunkState = chunkSize
	p.chunkRemain = 0
	p.headerBytesRead = 0
	p.trailerBytes = 0
	p.trailerMap = nil
}

// Parse advances the state machine over buffered bytes. It returns a
// complete Request once RequestReady, or (nil, nil) if more bytes are
// needed. A returned error is always a *ParseError.
func (p *Parser) Parse() (*Request, error) {
	for {
		switch p.state {
		case AwaitingRequestLine:
			line, ok := p.takeLine()
			if !ok {
				return nil, nil
			}
			if len(line) == 0 {
				// RFC 7230 allows a leading CRLF to be ignored between
				// pipelined requests.
				continue
			}
			if err := p.parseRequestLine(line); err != nil {
				return nil, err
			}
			p.hdrs = headers.NewViewMap()
			p.state = ReadingHeaders

		case ReadingHeaders:
			done, err := p.readHeaderLines()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, nil
			}
			if err := p.afterHeaders(); err != nil {
				return nil, err
			}

		case ReadingBody:
			done, err := p.readBody()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, nil
			}
			if p.chunked {
				p.state = ReadingTrailers
			} else {
				p.state = RequestReady
			}

		case ReadingTrailers:
			done, err := p.readTrailers()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, nil
			}
			p.state = RequestReady

		case RequestReady:
			req := p.buildRequest()
			p.requestCount++
			p.resetForNextRequest()
			return req, nil
		}
	}
}

func (p *Parser) buildRequest() *Request {
	ce, _ := p.hdrs.Get("Content-Encoding")
	return &Request{
		Method:          p.method,
		Target:          p.target,
		Version:         p.version,
		Headers:         p.hdrs,
		Body:            p.bodyBuf,
		Trailers:        p.trailerMap,
		ContentLength:   p.contentLength,
		Chunked:         p.chunked,
		ContentEncoding: ce,
		ExpectContinue:  p.expectCont,
	}
}

// RequestCount returns how many requests this connection has completed,
// used against maxRequestsPerConnection for keep-alive eligibility (§4.2.7).
func (p *Parser) RequestCount() int { return p.requestCount }

func (p *Parser) takeLine() ([]byte, bool) {
	idx := bytes.IndexByte(p.buf, '\n')
	if idx < 0 {
		return nil, false
	}
	line := p.buf[:idx]
	line = bytes.TrimSuffix(line, []byte("\r"))
	p.buf = p.buf[idx+1:]
	return line, true
}

func (p *Parser) parseRequestLine(line []byte) error {
	parts := strings.SplitN(string(line), " ", 3)
	if len(parts) != 3 {
		return newParseError(400, ErrBadRequest, "malformed request line")
	}
	m, ok := ParseMethod(parts[0])
	if !ok {
		return newParseError(400, ErrBadRequest, "unknown method")
	}
	switch parts[2] {
	case "HTTP/1.1":
		p.version = HTTP11
	case "HTTP/1.0":
		p.version = HTTP10
	default:
		return newParseError(505, ErrUnsupportedVersion, parts[2])
	}
	p.method = m
	p.target = parts[1]
	return nil
}

func (p *Parser) readHeaderLines() (bool, error) {
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx < 0 {
			if p.limits.MaxHeaderBytes > 0 && p.headerBytesRead+len(p.buf) > p.limits.MaxHeaderBytes {
				return false, newParseError(431, ErrHeaderTooLarge, "")
			}
			return false, nil
		}
		line := bytes.TrimSuffix(p.buf[:idx], []byte("\r"))
		consumed := idx + 1
		p.headerBytesRead += consumed
		if p.limits.MaxHeaderBytes > 0 && p.headerBytesRead > p.limits.MaxHeaderBytes {
			return false, newParseError(431, ErrHeaderTooLarge, "")
		}
		p.buf = p.buf[consumed:]

		if len(line) == 0 {
			return true, nil
		}

		name, value, ok := splitHeaderLine(line)
		if !ok || !httpguts.ValidHeaderFieldName(name) {
			return false, newParseError(400, ErrBadRequest, "malformed header line")
		}
		if err := p.hdrs.Add(name, value, p.mergeUnknownHeaders, false); err != nil {
			return false, newParseError(400, ErrBadRequest, err.Error())
		}
	}
}

func splitHeaderLine(line []byte) (name, value string, ok bool) {
	idx := bytes.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	name = string(line[:idx])
	value = strings.TrimSpace(string(line[idx+1:]))
	return name, value, true
}

func (p *Parser) afterHeaders() error {
	if p.version == HTTP11 {
		if _, ok := p.hdrs.Get("Host"); !ok {
			return newParseError(400, ErrBadRequest, "missing Host header")
		}
	}

	te, hasTE := p.hdrs.Get("Transfer-Encoding")
	cl, hasCL := p.hdrs.Get("Content-Length")

	if hasTE && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		if p.version == HTTP10 {
			return newParseError(400, ErrBadRequest, "chunked body on HTTP/1.0")
		}
		if hasCL {
			return newParseError(400, ErrBadRequest, "both Transfer-Encoding and Content-Length present")
		}
		p.chunked = true
	} else if hasCL {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return newParseError(400, ErrBadRequest, "invalid Content-Length")
		}
		if p.limits.MaxBodyBytes > 0 && n > p.limits.MaxBodyBytes {
			return newParseError(413, ErrBodyTooLarge, "")
		}
		p.contentLength = n
	}

	if exp, ok := p.hdrs.Get("Expect"); ok {
		if !strings.EqualFold(strings.TrimSpace(exp), "100-continue") {
			return newParseError(417, ErrExpectationFailed, exp)
		}
		if p.chunked || p.contentLength > 0 {
			p.expectCont = true
		}
	}

	if !p.chunked && p.contentLength <= 0 {
		p.state = RequestReady
		return nil
	}

	p.state = ReadingBody
	return nil
}

func (p *Parser) readBody() (bool, error) {
	if p.chunked {
		return p.readChunkedBody()
	}
	need := p.contentLength - int64(len(p.bodyBuf))
	if need <= 0 {
		return true, nil
	}
	avail := int64(len(p.buf))
	if avail == 0 {
		return false, nil
	}
	take := need
	if avail < take {
		take = avail
	}
	p.bodyBuf = append(p.bodyBuf, p.buf[:take]...)
	p.buf = p.buf[take:]
	return int64(len(p.bodyBuf)) >= p.contentLength, nil
}

func (p *Parser) readChunkedBody() (bool, error) {
	for {
		switch p.chunkState {
		case chunkSize:
			line, ok := p.takeLine()
			if !ok {
				return false, nil
			}
			sizeTok := line
			if idx := bytes.IndexByte(line, ';'); idx >= 0 {
				sizeTok = line[:idx]
			}
			n, err := strconv.ParseInt(strings.TrimSpace(string(sizeTok)), 16, 64)
			if err != nil || n < 0 {
				return false, newParseError(400, ErrBadRequest, "invalid chunk size")
			}
			if n == 0 {
				return true, nil
			}
			if p.limits.MaxBodyBytes > 0 && int64(len(p.bodyBuf))+n > p.limits.MaxBodyBytes {
				return false, newParseError(413, ErrBodyTooLarge, "")
			}
			p.chunkRemain = n
			p.chunkState = chunkData

		case chunkData:
			if p.chunkRemain == 0 {
				p.chunkState = chunkCRLF
				continue
			}
			avail := int64(len(p.buf))
			if avail == 0 {
				return false, nil
			}
			take := p.chunkRemain
			if avail < take {
				take = avail
			}
			p.bodyBuf = append(p.bodyBuf, p.buf[:take]...)
			p.buf = p.buf[take:]
			p.chunkRemain -= take
			if p.chunkRemain == 0 {
				p.chunkState = chunkCRLF
			}

		case chunkCRLF:
			line, ok := p.takeLine()
			if !ok {
				return false, nil
			}
			if len(line) != 0 {
				return false, newParseError(400, ErrBadRequest, "malformed chunk terminator")
			}
			p.chunkState = chunkSize
		}
	}
}

func (p *Parser) readTrailers() (bool, error) {
	if p.trailerMap == nil {
		p.trailerMap = headers.NewViewMap()
	}
	for {
		line, ok := p.takeLine()
		if !ok {
			return false, nil
		}
		p.trailerBytes += len(line) + 2
		if p.limits.MaxHeaderBytes > 0 && p.trailerBytes > p.limits.MaxHeaderBytes {
			return false, newParseError(431, ErrHeaderTooLarge, "")
		}
		if len(line) == 0 {
			return true, nil
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return false, newParseError(400, ErrBadRequest, "malformed trailer line")
		}
		if headers.IsForbiddenTrailer(name) {
			return false, newParseError(400, ErrBadRequest, "forbidden trailer: "+name)
		}
		if err := p.trailerMap.Add(name, value, p.mergeUnknownHeaders, true); err != nil {
			return false, newParseError(400, ErrBadRequest, err.Error())
		}
	}
}
