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

// Package telemetry defines the reactor's counter-sink hook: a small,
// transport-agnostic interface the reactor calls into (the hook is passed to
// reactor.New), without importing any metrics backend itself. promadapter supplies the Prometheus-backed
// implementation (client_golang), matching the teacher's prometheus/types
// Metric abstraction without its full registration machinery.
package telemetry

import "time"

// Hook receives reactor lifecycle and per-request counters. A nil Hook
// field on the reactor falls back to NoOp.
type Hook interface {
	ConnectionAccepted()
	ConnectionClosed()
	RequestCompleted(status int, duration time.Duration, bytesIn, bytesOut int64)
	RequestRejected(reason string)
	CompressionApplied(algorithm string, originalBytes, compressedBytes int)
}

// NoOp is the default Hook: every method is a no-op.
type NoOp struct{}

func (NoOp) ConnectionAccepted()                                                  {}
func (NoOp) ConnectionClosed()                                                    {}
func (NoOp) RequestCompleted(status int, duration time.Duration, in, out int64)   {}
func (NoOp) RequestRejected(reason string)                                        {}
func (NoOp) CompressionApplied(algorithm string, originalBytes, compressedBytes int) {}

var _ Hook = NoOp{}
