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
	"time"

	"github.com/sabouaram/reactorhttp/wire"
)

// outboundChunk is one pending write: either raw bytes or a zero-copy file
// payload (never both), matching respwriter.FilePayload's mutual exclusion
// with buffered body writes (spec.md §3's Connection outbound queue).
type outboundChunk struct {
	data []byte
	file *pendingFile
}

type pendingFile struct {
	fd     int
	offset int64
	size   int64
	sent   int64
}

// connState tags what phase of deadline accounting applies to a
// connection, consulted by the maintenance sweep (spec.md §4.1).
type connState uint8

const (
	connAwaitingRequest connState = iota
	connReadingHeaders
	connReadingBody
	connWritingResponse
	connClosing
)

// connection owns one accepted socket: its non-blocking fd, incremental
// parser, outbound queue, and bookkeeping the reactor needs for fairness,
// backpressure, and idle sweeping.
type connection struct {
	fd         int
	generation uint64 // recycled-handle guard (spec.md §9 "cyclic references")

	parser *wire.Parser
	state  connState

	outbound       []outboundChunk
	outboundBytes  int
	writableArmed  bool

	requestCount int
	lastActivity time.Time

	pendingResponse *activeResponse // non-nil while a streaming handler is writing

	closeAfterDrain bool // force Connection: close on the next response
	markedForClose  bool
}

// activeResponse tracks the in-flight streaming response writer bound to
// this connection, so writeBody backpressure can be reflected to the
// handler without the handler holding a raw fd.
type activeResponse struct {
	connGeneration uint64
}

func newConnection(fd int, p *wire.Parser, generation uint64) *connection {
	return &connection{
		fd:           fd,
		generation:   generation,
		parser:       p,
		lastActivity: time.Now(),
	}
}

// queue appends data to the outbound queue, returning false if doing so
// would exceed maxOutboundBufferBytes (spec.md §4.1's backpressure policy);
// the caller is responsible for marking the connection for close on false.
func (c *connection) queue(data []byte, maxOutboundBufferBytes int) bool {
	if len(data) == 0 {
		return true
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.outbound = append(c.outbound, outboundChunk{data: cp})
	c.outboundBytes += len(cp)
	return maxOutboundBufferBytes <= 0 || c.outboundBytes <= maxOutboundBufferBytes
}

func (c *connection) queueFile(f pendingFile) {
	c.outbound = append(c.outbound, outboundChunk{file: &f})
}

func (c *connection) hasPendingOutbound() bool {
	return len(c.outbound) > 0
}

func (c *connection) touch() {
	c.lastActivity = time.Now()
}
