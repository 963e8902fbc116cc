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

import "testing"

// Invariant 7: after any finite number of queue() calls, the outbound buffer
// never exceeds maxOutboundBufferBytes by more than one chunk. queue reports
// the overflow on the call that crosses the limit so the caller can mark the
// connection for close, but it still accepts the chunk that tipped it over
// (a write in flight cannot be un-written).
func TestConnectionQueueBackpressure(t *testing.T) {
	c := newConnection(3, nil, 1)
	const limit = 16

	ok := c.queue(make([]byte, 10), limit)
	if !ok {
		t.Fatalf("first chunk under limit reported over-limit")
	}
	if c.outboundBytes != 10 {
		t.Fatalf("outboundBytes = %d, want 10", c.outboundBytes)
	}

	ok = c.queue(make([]byte, 10), limit)
	if ok {
		t.Fatalf("second chunk crossing the limit should report over-limit")
	}
	if c.outboundBytes != 20 {
		t.Fatalf("outboundBytes = %d, want 20", c.outboundBytes)
	}
	if c.outboundBytes > limit+10 {
		t.Fatalf("outboundBytes %d exceeds limit+one-chunk (%d)", c.outboundBytes, limit+10)
	}
}

func TestConnectionQueueUnboundedWhenLimitZero(t *testing.T) {
	c := newConnection(3, nil, 1)
	for i := 0; i < 5; i++ {
		if !c.queue(make([]byte, 1000), 0) {
			t.Fatalf("queue() with limit 0 must never report over-limit")
		}
	}
}

func TestConnectionQueueEmptyDataIsNoop(t *testing.T) {
	c := newConnection(3, nil, 1)
	if !c.queue(nil, 1) {
		t.Fatalf("queueing empty data should never report over-limit")
	}
	if len(c.outbound) != 0 {
		t.Fatalf("empty data should not append an outbound chunk")
	}
}
